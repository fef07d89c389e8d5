package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/pvolkov/tome/internal/api"
	"github.com/pvolkov/tome/internal/extract"
)

// ExtractStreamEndpoint handles GET /api/volumes/{id}/extract/stream. It
// runs the same extraction as the synchronous endpoint while reporting
// per-page progress as server-sent events. The stream carries any number of
// progress events followed by exactly one complete or error event.
type ExtractStreamEndpoint struct{}

var _ api.Endpoint = (*ExtractStreamEndpoint)(nil)

func (e *ExtractStreamEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/volumes/{id}/extract/stream", e.handler
}

func (e *ExtractStreamEndpoint) RequiresInit() bool { return true }

func (e *ExtractStreamEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	runner, pdfPath, status, msg := buildRunner(r, id)
	if runner == nil {
		writeError(w, status, msg)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// A disconnected client cancels r.Context(), which stops the run
	// between pages. The terminal event then goes nowhere, which is fine.
	_, _ = runner.RunStream(r.Context(), id, pdfPath, func(ev extract.Event) {
		writeSSE(w, flusher, ev)
	})
}

// writeSSE writes one event in text/event-stream framing and flushes it.
func writeSSE(w http.ResponseWriter, flusher http.Flusher, ev extract.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	flusher.Flush()
}

func (e *ExtractStreamEndpoint) Command(_ func() string) *cobra.Command {
	// No CLI command for the SSE stream; use volumes-extract instead.
	return nil
}
