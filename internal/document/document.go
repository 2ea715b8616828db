// Package document loads contract template files and splits them into
// chunks for embedding. Plain text, HTML and PDF sources are supported;
// HTML is reduced to visible text and PDFs load page by page.
package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tmc/langchaingo/documentloaders"
)

// ErrUnsupportedType is returned for file extensions without a loader.
var ErrUnsupportedType = errors.New("unsupported document type")

// Loaded is one unit of extracted text with its provenance metadata.
// A text or HTML file yields one Loaded; a PDF yields one per page.
type Loaded struct {
	Content  string
	Metadata map[string]string
}

// supportedExtensions maps lowercase extensions to loaders.
var supportedExtensions = map[string]bool{
	".txt":  true,
	".html": true,
	".htm":  true,
	".pdf":  true,
}

// Supported reports whether path has a loadable extension.
func Supported(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// Load reads the file at path and extracts its text content.
// Returns ErrUnsupportedType for extensions without a loader.
func Load(ctx context.Context, path string) ([]Loaded, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stating %s: %w", path, err)
	}

	base := map[string]string{
		"source":    filepath.Base(path),
		"extension": strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		"file_size": strconv.FormatInt(info.Size(), 10),
		"mod_time":  info.ModTime().UTC().Format(time.RFC3339),
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return loadText(ctx, path, base)
	case ".html", ".htm":
		return loadHTML(path, base)
	case ".pdf":
		return loadPDF(ctx, path, info.Size(), base)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(path))
	}
}

func loadText(ctx context.Context, path string, base map[string]string) ([]Loaded, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	docs, err := documentloaders.NewText(f).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading text from %s: %w", path, err)
	}

	loaded := make([]Loaded, 0, len(docs))
	for _, doc := range docs {
		content := strings.TrimSpace(doc.PageContent)
		if content == "" {
			continue
		}
		loaded = append(loaded, Loaded{Content: content, Metadata: cloneMetadata(base)})
	}
	return loaded, nil
}

func loadHTML(path string, base map[string]string) ([]Loaded, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML from %s: %w", path, err)
	}

	doc.Find("script, style, noscript").Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	text := normalizeWhitespace(root.Text())
	if text == "" {
		return nil, nil
	}

	meta := cloneMetadata(base)
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		meta["title"] = title
	}

	return []Loaded{{Content: text, Metadata: meta}}, nil
}

func loadPDF(ctx context.Context, path string, size int64, base map[string]string) ([]Loaded, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	docs, err := documentloaders.NewPDF(f, size).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading PDF from %s: %w", path, err)
	}

	loaded := make([]Loaded, 0, len(docs))
	for _, doc := range docs {
		content := strings.TrimSpace(doc.PageContent)
		if content == "" {
			continue
		}

		meta := cloneMetadata(base)
		meta["page_count"] = strconv.Itoa(len(docs))
		// The loader records page numbers (as ints) in its own metadata;
		// carry them over.
		for key, value := range doc.Metadata {
			if s := metadataString(value); s != "" {
				meta[key] = s
			}
		}
		loaded = append(loaded, Loaded{Content: content, Metadata: meta})
	}
	return loaded, nil
}

// normalizeWhitespace collapses runs of whitespace inside lines and drops
// blank lines, preserving paragraph breaks as single newlines.
func normalizeWhitespace(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		lines = append(lines, strings.Join(fields, " "))
	}
	return strings.Join(lines, "\n")
}

// metadataString renders a loader metadata value as a string. Scalar
// values are converted; anything else yields "".
func metadataString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func cloneMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
