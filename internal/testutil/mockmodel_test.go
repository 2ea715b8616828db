package testutil

import (
	"context"
	"math"
	"testing"

	"github.com/firebase/genkit/go/ai"
)

func TestMockModelPatternMatching(t *testing.T) {
	m := NewMockModel("fallback answer")
	m.Respond("mutual nda", "We have two mutual NDA templates.")
	m.Respond("term", "Typical terms run 2-5 years.")

	resp, err := m.generate(context.Background(), &ai.ModelRequest{
		Messages: []*ai.Message{ai.NewUserTextMessage("Show me a MUTUAL NDA please")},
	}, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := resp.Message.Text(); got != "We have two mutual NDA templates." {
		t.Errorf("response = %q", got)
	}

	resp, err = m.generate(context.Background(), &ai.ModelRequest{
		Messages: []*ai.Message{ai.NewUserTextMessage("something unrelated")},
	}, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := resp.Message.Text(); got != "fallback answer" {
		t.Errorf("fallback response = %q", got)
	}

	if calls := m.Calls(); len(calls) != 2 {
		t.Errorf("recorded calls = %d, want 2", len(calls))
	}
}

func TestMockModelToolRequests(t *testing.T) {
	m := NewMockModel("ok")
	m.RespondWithTools("search", []*ai.ToolRequest{
		{Name: "searchContracts", Input: map[string]any{"query": "term"}},
	}, "searching")

	resp, err := m.generate(context.Background(), &ai.ModelRequest{
		Messages: []*ai.Message{ai.NewUserTextMessage("please search the templates")},
	}, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var toolParts int
	for _, p := range resp.Message.Content {
		if p.Kind == ai.PartToolRequest {
			toolParts++
			if p.ToolRequest.Name != "searchContracts" {
				t.Errorf("tool name = %q", p.ToolRequest.Name)
			}
		}
	}
	if toolParts != 1 {
		t.Errorf("tool request parts = %d, want 1", toolParts)
	}
}

func TestMockModelStreaming(t *testing.T) {
	m := NewMockModel("streamed text")

	var chunks []string
	_, err := m.generate(context.Background(), &ai.ModelRequest{
		Messages: []*ai.Message{ai.NewUserTextMessage("hi")},
	}, func(_ context.Context, c *ai.ModelResponseChunk) error {
		chunks = append(chunks, c.Text())
		return nil
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "streamed text" {
		t.Errorf("chunks = %v", chunks)
	}
}

func TestMockEmbedderDeterminism(t *testing.T) {
	e := NewMockEmbedder(16)

	a := e.vectorFor("governing law clause")
	b := e.vectorFor("governing law clause")
	c := e.vectorFor("completely different text")

	if len(a) != 16 {
		t.Fatalf("dimensions = %d, want 16", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same content produced different vectors")
		}
	}

	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different content produced identical vectors")
	}

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-5 {
		t.Errorf("vector norm = %v, want 1", math.Sqrt(norm))
	}
}

func TestMockEmbedderExplicitVector(t *testing.T) {
	e := NewMockEmbedder(3)
	e.SetVector("pinned", []float32{1, 0, 0})

	resp, err := e.Embed(context.Background(), &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText("pinned", nil)},
	})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	got := resp.Embeddings[0].Embedding
	if got[0] != 1 || got[1] != 0 || got[2] != 0 {
		t.Errorf("vector = %v", got)
	}
}
