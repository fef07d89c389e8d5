package extract

import "context"

// Event types emitted by RunStream.
const (
	EventProgress = "progress"
	EventComplete = "complete"
	EventError    = "error"
)

// Event is one streaming update. A stream is any number of progress events
// followed by exactly one terminal event (complete or error).
type Event struct {
	Type       string  `json:"type"`
	Page       int     `json:"page,omitempty"`
	TotalPages int     `json:"total_pages,omitempty"`
	Result     *Result `json:"result,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// RunStream executes the same extraction as Run while reporting per-page
// progress through emit. The persisted run is identical to what Run would
// produce for the same inputs. emit is called from the runner's goroutine;
// it must not block indefinitely.
func (r *Runner) RunStream(ctx context.Context, volumeID int64, pdfPath string, emit func(Event)) (*Result, error) {
	result, err := r.run(ctx, volumeID, pdfPath, func(page, total int) {
		emit(Event{Type: EventProgress, Page: page, TotalPages: total})
	})
	if err != nil {
		emit(Event{Type: EventError, Error: err.Error()})
		return nil, err
	}
	emit(Event{Type: EventComplete, Result: result})
	return result, nil
}
