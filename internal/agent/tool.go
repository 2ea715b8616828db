package agent

import (
	"context"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/clausa/clausa/internal/knowledge"
)

// SearchToolName is the registered name of the contract search tool.
const SearchToolName = "searchContracts"

// Searcher is the store operation the search tool needs.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// searchResult is one formatted match handed back to the model.
type searchResult struct {
	Content  string  `json:"content"`
	Filename string  `json:"filename"`
	Score    float32 `json:"score"`
	Page     string  `json:"page,omitempty"`
}

// searchOutput is the structured tool response.
type searchOutput struct {
	SearchResults []searchResult `json:"search_results"`
	Query         string         `json:"query"`
}

// RegisterSearchTool registers the contract search tool: top-k similarity
// search over the template store with scores and source attribution.
func RegisterSearchTool(g *genkit.Genkit, store Searcher, topK int) ai.Tool {
	return genkit.DefineTool(
		g, SearchToolName,
		"Search for examples of Non-disclosure agreement contracts. "+
			"Retrieves the top matching template excerpts with similarity scores, "+
			"source filenames and page information.",
		func(ctx *ai.ToolContext, input struct {
			Query string `json:"query" jsonschema_description:"The search query string"`
		},
		) (searchOutput, error) {
			results, err := store.Search(ctx, input.Query, knowledge.WithTopK(topK))
			if err != nil {
				return searchOutput{}, err
			}

			formatted := make([]searchResult, 0, len(results))
			for _, r := range results {
				sr := searchResult{
					Content:  r.Document.Content,
					Filename: r.Document.Metadata["source"],
					Score:    r.Similarity,
				}
				if sr.Filename == "" {
					sr.Filename = "Unknown"
				}
				if page, ok := r.Document.Metadata["page"]; ok {
					sr.Page = page
				}
				formatted = append(formatted, sr)
			}

			return searchOutput{SearchResults: formatted, Query: input.Query}, nil
		},
	)
}
