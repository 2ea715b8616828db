package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clausa/clausa/internal/testutil"
	"github.com/clausa/clausa/internal/thread"
)

type fakeThreadStore struct {
	threads  map[string]thread.Thread
	messages map[string][]thread.Message
	cleared  []string
}

func newFakeThreadStore() *fakeThreadStore {
	return &fakeThreadStore{
		threads:  make(map[string]thread.Thread),
		messages: make(map[string][]thread.Message),
	}
}

func (f *fakeThreadStore) Get(_ context.Context, id string) (thread.Thread, error) {
	t, ok := f.threads[id]
	if !ok {
		return thread.Thread{}, thread.ErrNotFound
	}
	return t, nil
}

func (f *fakeThreadStore) List(context.Context) ([]thread.Thread, error) {
	out := make([]thread.Thread, 0, len(f.threads))
	for _, t := range f.threads {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeThreadStore) Messages(_ context.Context, id string) ([]thread.Message, error) {
	return f.messages[id], nil
}

func (f *fakeThreadStore) Clear(_ context.Context, id string) error {
	if _, ok := f.threads[id]; !ok {
		return thread.ErrNotFound
	}
	delete(f.threads, id)
	delete(f.messages, id)
	f.cleared = append(f.cleared, id)
	return nil
}

func newThreadsRequest(method, path, id string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if id != "" {
		req.SetPathValue("id", id)
	}
	return req
}

func TestThreadList(t *testing.T) {
	store := newFakeThreadStore()
	store.threads["abcd1234"] = thread.Thread{
		ID:        "abcd1234",
		Summary:   "asked about mutual NDAs",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	h := &threadHandler{store: store, logger: testutil.DiscardLogger()}

	rec := httptest.NewRecorder()
	h.list(rec, newThreadsRequest("GET", "/api/v1/threads", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Items []threadItem `json:"items"`
		Total int          `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Total != 1 {
		t.Fatalf("total = %d, want 1", body.Total)
	}
	if body.Items[0].ID != "abcd1234" {
		t.Errorf("thread ID = %q, want abcd1234", body.Items[0].ID)
	}
	if body.Items[0].Summary != "asked about mutual NDAs" {
		t.Errorf("summary = %q", body.Items[0].Summary)
	}
}

func TestThreadMessages(t *testing.T) {
	store := newFakeThreadStore()
	store.threads["abcd1234"] = thread.Thread{ID: "abcd1234"}
	store.messages["abcd1234"] = []thread.Message{
		{ID: 1, ThreadID: "abcd1234", Role: "user", Content: "hello", CreatedAt: time.Now()},
		{ID: 2, ThreadID: "abcd1234", Role: "model", Content: "hi there", CreatedAt: time.Now()},
	}
	h := &threadHandler{store: store, logger: testutil.DiscardLogger()}

	rec := httptest.NewRecorder()
	h.messages(rec, newThreadsRequest("GET", "/api/v1/threads/abcd1234/messages", "abcd1234"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Items []messageItem `json:"items"`
		Total int           `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Total != 2 {
		t.Fatalf("total = %d, want 2", body.Total)
	}
	if body.Items[0].Role != "user" || body.Items[1].Role != "model" {
		t.Error("message roles not preserved in order")
	}
}

func TestThreadMessagesNotFound(t *testing.T) {
	h := &threadHandler{store: newFakeThreadStore(), logger: testutil.DiscardLogger()}

	rec := httptest.NewRecorder()
	h.messages(rec, newThreadsRequest("GET", "/api/v1/threads/missing/messages", "missing"))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "not_found") {
		t.Error("expected not_found error code")
	}
}

func TestThreadDelete(t *testing.T) {
	store := newFakeThreadStore()
	store.threads["abcd1234"] = thread.Thread{ID: "abcd1234"}
	h := &threadHandler{store: store, logger: testutil.DiscardLogger()}

	rec := httptest.NewRecorder()
	h.remove(rec, newThreadsRequest("DELETE", "/api/v1/threads/abcd1234", "abcd1234"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(store.cleared) != 1 || store.cleared[0] != "abcd1234" {
		t.Errorf("cleared = %v, want [abcd1234]", store.cleared)
	}
}

func TestThreadDeleteNotFound(t *testing.T) {
	h := &threadHandler{store: newFakeThreadStore(), logger: testutil.DiscardLogger()}

	rec := httptest.NewRecorder()
	h.remove(rec, newThreadsRequest("DELETE", "/api/v1/threads/missing", "missing"))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
