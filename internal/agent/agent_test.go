package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/genkit"

	"github.com/clausa/clausa/internal/knowledge"
	"github.com/clausa/clausa/internal/testutil"
	"github.com/clausa/clausa/internal/thread"
)

func TestConfigValidate(t *testing.T) {
	ctx := context.Background()
	g := genkit.Init(ctx)
	threads := &thread.Store{}

	valid := Config{
		Genkit:         g,
		Threads:        threads,
		Model:          "openai/gpt-4o",
		SummaryTrigger: 12,
		SummaryKeep:    2,
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing genkit", func(c *Config) { c.Genkit = nil }, true},
		{"missing threads", func(c *Config) { c.Threads = nil }, true},
		{"missing model", func(c *Config) { c.Model = "" }, true},
		{"keep >= trigger", func(c *Config) { c.SummaryKeep = 12 }, true},
		{"summarization disabled", func(c *Config) { c.SummaryTrigger = 0; c.SummaryKeep = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			_, err := New(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSystemPrompt(t *testing.T) {
	a := &Agent{}

	base := a.systemPrompt("")
	if !strings.Contains(base, "Intelligent Contract Template Selector") {
		t.Errorf("persona missing: %q", base)
	}
	if strings.Contains(base, "Summary of conversation earlier") {
		t.Errorf("empty summary should not be mentioned: %q", base)
	}

	withSummary := a.systemPrompt("They compared mutual and one-way NDAs.")
	if !strings.Contains(withSummary, "Summary of conversation earlier: They compared mutual and one-way NDAs.") {
		t.Errorf("summary not appended: %q", withSummary)
	}
}

func TestExecuteEmptyQuery(t *testing.T) {
	a := &Agent{threads: &thread.Store{}}

	_, err := a.Execute(context.Background(), "t", "   ", nil)
	if !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("error = %v, want ErrEmptyQuery", err)
	}
}

// mockSearcher returns canned results for the search tool.
type mockSearcher struct {
	results   []knowledge.Result
	err       error
	lastQuery string
}

func (m *mockSearcher) Search(_ context.Context, query string, _ ...knowledge.SearchOption) ([]knowledge.Result, error) {
	m.lastQuery = query
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

func TestSearchTool(t *testing.T) {
	ctx := context.Background()
	g := genkit.Init(ctx)

	searcher := &mockSearcher{
		results: []knowledge.Result{
			{
				Document: knowledge.Document{
					Content:  "The Receiving Party shall not disclose Confidential Information.",
					Metadata: map[string]string{"source": "nda_mutual.txt"},
				},
				Similarity: 0.87,
			},
			{
				Document: knowledge.Document{
					Content:  "Term: three years from the Effective Date.",
					Metadata: map[string]string{"page": "2"},
				},
				Similarity: 0.54,
			},
		},
	}

	tool := RegisterSearchTool(g, searcher, 8)
	if tool == nil {
		t.Fatal("RegisterSearchTool returned nil")
	}
	if tool.Name() != SearchToolName {
		t.Errorf("tool name = %q", tool.Name())
	}

	raw, err := tool.RunRaw(ctx, map[string]any{"query": "disclosure obligations"})
	if err != nil {
		t.Fatalf("RunRaw: %v", err)
	}
	if searcher.lastQuery != "disclosure obligations" {
		t.Errorf("searcher got query %q", searcher.lastQuery)
	}

	// RunRaw round-trips the output through JSON, so decode it back into
	// the concrete type before asserting on fields.
	encoded, err := json.Marshal(raw)
	if err != nil {
		t.Fatalf("marshaling tool output: %v", err)
	}
	var out searchOutput
	if err := json.Unmarshal(encoded, &out); err != nil {
		t.Fatalf("decoding tool output (%T): %v", raw, err)
	}
	if out.Query != "disclosure obligations" {
		t.Errorf("output query = %q", out.Query)
	}
	if len(out.SearchResults) != 2 {
		t.Fatalf("results = %d, want 2", len(out.SearchResults))
	}
	if out.SearchResults[0].Filename != "nda_mutual.txt" {
		t.Errorf("filename = %q", out.SearchResults[0].Filename)
	}
	if out.SearchResults[1].Filename != "Unknown" {
		t.Errorf("missing source should map to Unknown, got %q", out.SearchResults[1].Filename)
	}
	if out.SearchResults[1].Page != "2" {
		t.Errorf("page = %q", out.SearchResults[1].Page)
	}
}

func TestSearchToolError(t *testing.T) {
	ctx := context.Background()
	g := genkit.Init(ctx)

	searchErr := errors.New("store offline")
	tool := RegisterSearchTool(g, &mockSearcher{err: searchErr}, 8)

	_, err := tool.RunRaw(ctx, map[string]any{"query": "anything"})
	if err == nil {
		t.Fatal("expected error from failing searcher")
	}
}

func TestFlowSingleton(t *testing.T) {
	ResetFlowForTesting()
	t.Cleanup(ResetFlowForTesting)

	ctx := context.Background()
	g := genkit.Init(ctx)

	threads := &thread.Store{}
	a := &Agent{g: g, threads: threads, model: "mock/test-model", logger: testutil.DiscardLogger()}

	f, err := InitFlow(g, a)
	if err != nil {
		t.Fatalf("InitFlow: %v", err)
	}
	if f == nil {
		t.Fatal("InitFlow returned nil flow")
	}
	if GetFlow() != f {
		t.Error("GetFlow returned a different flow")
	}

	if _, err := InitFlow(g, a); err == nil {
		t.Error("second InitFlow should fail")
	}
}
