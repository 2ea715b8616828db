package knowledge

import "time"

// Document represents a stored contract chunk.
// Metadata carries loader-provided attributes (source, filename, page, ...).
type Document struct {
	ID        string            // Unique identifier
	Content   string            // Chunk text content
	Metadata  map[string]string // Optional metadata
	CreatedAt time.Time         // Creation timestamp
}

// Result represents a single search result with similarity score.
type Result struct {
	Document   Document
	Similarity float32 // Cosine similarity score (0-1)
}

// Stats describes the state of the document collection.
type Stats struct {
	Documents int64  `json:"documents"`
	Table     string `json:"table"`
}

// SearchOption configures search behavior using the functional options pattern.
type SearchOption func(*searchConfig)

// searchConfig holds internal search configuration.
type searchConfig struct {
	topK      int
	threshold float32
	filter    map[string]string
	timeout   time.Duration
}

// DefaultTopK is the number of results returned when WithTopK is not given.
const DefaultTopK = 8

// defaultSearchTimeout bounds embedding generation plus the vector query.
const defaultSearchTimeout = 10 * time.Second

// WithTopK sets the maximum number of results to return.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithScoreThreshold drops results whose cosine similarity is below min.
// Zero (the default) keeps everything the vector query returns.
func WithScoreThreshold(min float32) SearchOption {
	return func(c *searchConfig) {
		c.threshold = min
	}
}

// WithFilter adds a metadata filter to restrict search results.
// Multiple calls add additional filters (AND logic).
// Example: WithFilter("extension", "pdf")
func WithFilter(key, value string) SearchOption {
	return func(c *searchConfig) {
		if c.filter == nil {
			c.filter = make(map[string]string)
		}
		c.filter[key] = value
	}
}

// WithTimeout overrides the default search timeout.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// buildSearchConfig applies search options and returns the final configuration.
func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:    DefaultTopK,
		timeout: defaultSearchTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
