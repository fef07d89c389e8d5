package classify

import (
	"context"
	"testing"

	"github.com/pvolkov/tome/internal/providers"
)

func TestClassifyPageSuccess(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = `{"is_start": true, "title": "протокол обыска", "document_type": "протокол"}`

	c := New(mock, Config{Model: "test-model"})
	hist := NewHistory(10)

	v, err := c.ClassifyPage(context.Background(), []byte("img"), 1, 20, hist)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.IsStart || v.Title != "протокол обыска" {
		t.Fatalf("verdict wrong: %+v", v)
	}
	if hist.Len() != 2 {
		t.Fatalf("history should hold the user/assistant pair, has %d entries", hist.Len())
	}
}

func TestClassifyPageCallFailure(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ShouldFail = true

	c := New(mock, Config{})
	hist := NewHistory(10)

	if _, err := c.ClassifyPage(context.Background(), nil, 3, 20, hist); err == nil {
		t.Fatal("expected error from failing client")
	}
	if hist.Len() != 0 {
		t.Fatalf("failed exchange must not enter history, has %d entries", hist.Len())
	}
}

func TestClassifyPageUnparsableReply(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = "I cannot classify this page, sorry."

	c := New(mock, Config{})
	hist := NewHistory(10)

	if _, err := c.ClassifyPage(context.Background(), nil, 5, 20, hist); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestHistoryWindowing(t *testing.T) {
	h := NewHistory(4)
	for i := 0; i < 10; i++ {
		h.Add("user", "page")
		h.Add("assistant", "{}")
	}
	if h.Len() != 4 {
		t.Fatalf("history length %d, want 4", h.Len())
	}

	msgs := h.Messages()
	// Window must end on the most recent assistant turn.
	if msgs[len(msgs)-1].Role != "assistant" {
		t.Fatalf("last entry role %q, want assistant", msgs[len(msgs)-1].Role)
	}

	// Messages returns a copy: mutating it must not affect the history.
	msgs[0].Content = "mutated"
	if h.Messages()[0].Content == "mutated" {
		t.Fatal("Messages must return a copy")
	}
}

func TestHistoryDefaultWindow(t *testing.T) {
	h := NewHistory(0)
	for i := 0; i < 30; i++ {
		h.Add("user", "x")
	}
	if h.Len() != DefaultHistoryWindow {
		t.Fatalf("history length %d, want %d", h.Len(), DefaultHistoryWindow)
	}
}
