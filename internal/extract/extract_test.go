package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/pvolkov/tome/internal/providers"
	"github.com/pvolkov/tome/internal/raster"
	"github.com/pvolkov/tome/internal/store"
	"github.com/pvolkov/tome/internal/types"
)

// fakeRenderer serves a fixed page count and synthetic page images without
// touching poppler.
type fakeRenderer struct {
	pages     int
	countErr  error
	renderErr map[int]error // per-page failures
}

func (f *fakeRenderer) PageCount(string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.pages, nil
}

func (f *fakeRenderer) RenderPage(_ string, page int, _ raster.Options) ([]byte, error) {
	if err := f.renderErr[page]; err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("page-%d", page)), nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedVolume(t *testing.T, s *store.Store) *types.Volume {
	t.Helper()
	ctx := context.Background()
	c, err := s.CreateCase(ctx, types.Case{CaseNumber: "1-7/2026", Title: "Test"})
	if err != nil {
		t.Fatalf("create case: %v", err)
	}
	v, err := s.CreateVolume(ctx, types.Volume{CaseID: c.ID, VolumeNumber: 1, FileName: "vol.pdf"})
	if err != nil {
		t.Fatalf("create volume: %v", err)
	}
	return v
}

func verdictJSON(isStart, isEnd, isInv bool, docType, title string) string {
	return fmt.Sprintf(`{"is_start":%t,"is_end":%t,"is_inventory_page":%t,"document_type":%q,"title":%q,"date":""}`,
		isStart, isEnd, isInv, docType, title)
}

// tenPageResponses describes a volume with two ordinary documents, an
// inventory block, and a trailing document.
func tenPageResponses() []string {
	cont := verdictJSON(false, false, false, "", "")
	return []string{
		verdictJSON(true, false, false, "протокол", "Протокол осмотра"),
		cont,
		cont,
		verdictJSON(false, true, false, "", ""),
		verdictJSON(true, false, false, "постановление", "Постановление"),
		cont,
		verdictJSON(false, false, true, "", ""),
		verdictJSON(false, false, true, "", ""),
		verdictJSON(true, false, false, "справка", "Справка"),
		cont,
	}
}

func newRunner(s *store.Store, llm providers.LLMClient, renderer Renderer) *Runner {
	return NewRunner(s, llm, renderer, Config{Model: "test-model"}, nil)
}

func TestRunSegmentsVolume(t *testing.T) {
	s := newTestStore(t)
	v := seedVolume(t, s)
	mock := providers.NewMockClient()
	mock.Responses = tenPageResponses()

	r := newRunner(s, mock, &fakeRenderer{pages: 10})
	result, err := r.Run(context.Background(), v.ID, "vol.pdf")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.Run.Version != 1 || !result.Run.IsCurrent {
		t.Fatalf("expected current version 1, got %+v", result.Run)
	}
	if result.Run.TotalPages != 10 {
		t.Fatalf("expected 10 pages, got %d", result.Run.TotalPages)
	}
	if result.AnalyzedPages != 10 {
		t.Fatalf("expected 10 analyzed pages, got %d", result.AnalyzedPages)
	}
	if len(result.Documents) != 4 {
		t.Fatalf("expected 4 documents, got %d: %+v", len(result.Documents), result.Documents)
	}

	wantRanges := [][2]int{{1, 4}, {5, 6}, {7, 8}, {9, 10}}
	for i, want := range wantRanges {
		d := result.Documents[i]
		if d.StartPage != want[0] || d.EndPage != want[1] {
			t.Fatalf("document %d: expected pages [%d,%d], got [%d,%d]", i, want[0], want[1], d.StartPage, d.EndPage)
		}
	}
	if result.Documents[2].DocType != types.InventoryDocType {
		t.Fatalf("expected inventory document third, got %q", result.Documents[2].DocType)
	}

	vol, err := s.GetVolume(context.Background(), v.ID)
	if err != nil {
		t.Fatalf("get volume: %v", err)
	}
	if vol.ProcessingStatus != "completed" {
		t.Fatalf("expected volume completed, got %q", vol.ProcessingStatus)
	}
}

func TestRunPageFailuresDegradeToContinuation(t *testing.T) {
	s := newTestStore(t)
	v := seedVolume(t, s)
	mock := providers.NewMockClient()
	mock.Responses = tenPageResponses()
	// Page 6's classification fails; page 3's render fails. Both pages are
	// continuations in the scenario, so the segmentation is unchanged.
	mock.FailOn = map[int]bool{6: true}

	renderer := &fakeRenderer{pages: 10, renderErr: map[int]error{3: errors.New("pdftoppm exploded")}}
	r := newRunner(s, mock, renderer)
	result, err := r.Run(context.Background(), v.ID, "vol.pdf")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Documents) != 4 {
		t.Fatalf("expected 4 documents despite page failures, got %d", len(result.Documents))
	}
}

func TestRunUnreadableSource(t *testing.T) {
	s := newTestStore(t)
	v := seedVolume(t, s)
	r := newRunner(s, providers.NewMockClient(), &fakeRenderer{countErr: errors.New("not a PDF")})

	_, err := r.Run(context.Background(), v.ID, "broken.pdf")
	if !errors.Is(err, ErrSourceUnreadable) {
		t.Fatalf("expected ErrSourceUnreadable, got %v", err)
	}

	runs, err := s.ListRunHistory(context.Background(), v.ID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected no run persisted, got %d", len(runs))
	}
}

func TestRunNoProvider(t *testing.T) {
	s := newTestStore(t)
	v := seedVolume(t, s)
	r := NewRunner(s, nil, &fakeRenderer{pages: 3}, Config{}, nil)
	if _, err := r.Run(context.Background(), v.ID, "vol.pdf"); !errors.Is(err, ErrConfigurationMissing) {
		t.Fatalf("expected ErrConfigurationMissing, got %v", err)
	}
}

func TestRunUnknownVolume(t *testing.T) {
	s := newTestStore(t)
	r := newRunner(s, providers.NewMockClient(), &fakeRenderer{pages: 3})
	if _, err := r.Run(context.Background(), 404, "vol.pdf"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRunCancellation(t *testing.T) {
	s := newTestStore(t)
	v := seedVolume(t, s)
	mock := providers.NewMockClient()
	mock.Responses = tenPageResponses()

	ctx, cancel := context.WithCancel(context.Background())
	pages := 0
	r := newRunner(s, mock, &fakeRenderer{pages: 10})
	_, err := r.RunStream(ctx, v.ID, "vol.pdf", func(e Event) {
		if e.Type == EventProgress {
			pages++
			if pages == 3 {
				cancel()
			}
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	runs, err := s.ListRunHistory(context.Background(), v.ID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected no run after cancellation, got %d", len(runs))
	}

	// The status write-back ignores the cancelled context; the volume must
	// not stay stuck in "processing".
	vol, err := s.GetVolume(context.Background(), v.ID)
	if err != nil {
		t.Fatalf("get volume: %v", err)
	}
	if vol.ProcessingStatus != "error" {
		t.Fatalf("volume status %q after cancelled run, want %q", vol.ProcessingStatus, "error")
	}
}

func TestRunStreamMatchesSync(t *testing.T) {
	s := newTestStore(t)
	v := seedVolume(t, s)

	syncMock := providers.NewMockClient()
	syncMock.Responses = tenPageResponses()
	syncRunner := newRunner(s, syncMock, &fakeRenderer{pages: 10})
	syncResult, err := syncRunner.Run(context.Background(), v.ID, "vol.pdf")
	if err != nil {
		t.Fatalf("sync run: %v", err)
	}

	streamMock := providers.NewMockClient()
	streamMock.Responses = tenPageResponses()
	streamRunner := newRunner(s, streamMock, &fakeRenderer{pages: 10})

	var events []Event
	streamResult, err := streamRunner.RunStream(context.Background(), v.ID, "vol.pdf", func(e Event) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatalf("stream run: %v", err)
	}

	// Same documents modulo run identity: the streamed run is just the next
	// version.
	if streamResult.Run.Version != syncResult.Run.Version+1 {
		t.Fatalf("expected consecutive versions, got %d then %d", syncResult.Run.Version, streamResult.Run.Version)
	}
	stripped := func(docs []types.Document) []types.LogicalDocument {
		out := make([]types.LogicalDocument, len(docs))
		for i, d := range docs {
			out[i] = types.LogicalDocument{
				Title:        d.Title,
				DocumentType: d.DocType,
				StartPage:    d.StartPage,
				EndPage:      d.EndPage,
			}
		}
		return out
	}
	if !reflect.DeepEqual(stripped(syncResult.Documents), stripped(streamResult.Documents)) {
		t.Fatalf("sync and stream documents differ:\n%+v\n%+v", syncResult.Documents, streamResult.Documents)
	}

	if len(events) != 11 {
		t.Fatalf("expected 10 progress + 1 terminal event, got %d", len(events))
	}
	for i := 0; i < 10; i++ {
		if events[i].Type != EventProgress || events[i].Page != i+1 || events[i].TotalPages != 10 {
			t.Fatalf("event %d: %+v", i, events[i])
		}
	}
	last := events[len(events)-1]
	if last.Type != EventComplete || last.Result == nil {
		t.Fatalf("expected terminal complete event, got %+v", last)
	}
}

func TestRunStreamEmitsSingleErrorEvent(t *testing.T) {
	s := newTestStore(t)
	v := seedVolume(t, s)
	r := newRunner(s, providers.NewMockClient(), &fakeRenderer{countErr: errors.New("unreadable")})

	var events []Event
	_, err := r.RunStream(context.Background(), v.ID, "vol.pdf", func(e Event) {
		events = append(events, e)
	})
	if !errors.Is(err, ErrSourceUnreadable) {
		t.Fatalf("expected ErrSourceUnreadable, got %v", err)
	}
	if len(events) != 1 || events[0].Type != EventError || events[0].Error == "" {
		t.Fatalf("expected exactly one error event, got %+v", events)
	}
}

func TestAllPagesUnclassifiableStillProducesRun(t *testing.T) {
	s := newTestStore(t)
	v := seedVolume(t, s)
	mock := providers.NewMockClient()
	mock.ShouldFail = true

	r := newRunner(s, mock, &fakeRenderer{pages: 5})
	result, err := r.Run(context.Background(), v.ID, "vol.pdf")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// Every page degraded to continuation: no boundaries, no documents, but
	// the run itself is still recorded.
	if len(result.Documents) != 0 {
		t.Fatalf("expected empty document list, got %d", len(result.Documents))
	}
	if result.Run.DocumentsCount != 0 || result.Run.TotalPages != 5 {
		t.Fatalf("unexpected run: %+v", result.Run)
	}
}
