package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pvolkov/tome/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedVolume(t *testing.T, s *Store) *types.Volume {
	t.Helper()
	ctx := context.Background()
	c, err := s.CreateCase(ctx, types.Case{CaseNumber: "1-123/2026", Title: "Test case"})
	if err != nil {
		t.Fatalf("create case: %v", err)
	}
	v, err := s.CreateVolume(ctx, types.Volume{CaseID: c.ID, VolumeNumber: 1, FileName: "vol1.pdf", PageCount: 10})
	if err != nil {
		t.Fatalf("create volume: %v", err)
	}
	return v
}

func TestCaseCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c, err := s.CreateCase(ctx, types.Case{CaseNumber: "1-42/2026", Title: "Fraud", Article: "159", DefendantName: "Ivanov"})
	if err != nil {
		t.Fatalf("create case: %v", err)
	}
	if c.ID == 0 {
		t.Fatal("expected non-zero case ID")
	}
	if c.Status != "active" {
		t.Fatalf("expected default status active, got %q", c.Status)
	}

	got, err := s.GetCase(ctx, c.ID)
	if err != nil {
		t.Fatalf("get case: %v", err)
	}
	if got.CaseNumber != "1-42/2026" || got.Article != "159" {
		t.Fatalf("unexpected case: %+v", got)
	}

	list, err := s.ListCases(ctx)
	if err != nil {
		t.Fatalf("list cases: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 case, got %d", len(list))
	}

	if err := s.DeleteCase(ctx, c.ID); err != nil {
		t.Fatalf("delete case: %v", err)
	}
	if _, err := s.GetCase(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteCase(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestCreateCaseRequiresNumber(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateCase(context.Background(), types.Case{Title: "no number"}); err == nil {
		t.Fatal("expected error for empty case number")
	}
}

func TestVolumeCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	v := seedVolume(t, s)

	got, err := s.GetVolume(ctx, v.ID)
	if err != nil {
		t.Fatalf("get volume: %v", err)
	}
	if got.ProcessingStatus != "pending" {
		t.Fatalf("expected default status pending, got %q", got.ProcessingStatus)
	}

	if err := s.UpdateVolumeStatus(ctx, v.ID, "completed"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, err = s.GetVolume(ctx, v.ID)
	if err != nil {
		t.Fatalf("get volume: %v", err)
	}
	if got.ProcessingStatus != "completed" {
		t.Fatalf("expected status completed, got %q", got.ProcessingStatus)
	}

	list, err := s.ListVolumes(ctx, v.CaseID)
	if err != nil {
		t.Fatalf("list volumes: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 volume, got %d", len(list))
	}

	if err := s.DeleteVolume(ctx, v.ID); err != nil {
		t.Fatalf("delete volume: %v", err)
	}
	if _, err := s.GetVolume(ctx, v.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestCreateVolumeUnknownCase(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateVolume(context.Background(), types.Volume{CaseID: 999, FileName: "x.pdf"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRunVersioning(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	v := seedVolume(t, s)

	docs := []types.LogicalDocument{
		{Title: "Протокол осмотра", DocumentType: "протокол", StartPage: 1, EndPage: 4},
		{Title: "Постановление", DocumentType: "постановление", StartPage: 5, EndPage: 10},
	}

	run1, err := s.CreateRun(ctx, RunParams{VolumeID: v.ID, TotalPages: 10, CropRatio: 0.9, ModelUsed: "m1", Documents: docs})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if run1.Version != 1 || !run1.IsCurrent {
		t.Fatalf("expected current version 1, got %+v", run1)
	}
	if run1.DocumentsCount != 2 {
		t.Fatalf("expected 2 documents, got %d", run1.DocumentsCount)
	}

	run2, err := s.CreateRun(ctx, RunParams{VolumeID: v.ID, TotalPages: 10, CropRatio: 0.9, ModelUsed: "m2", Documents: docs[:1]})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if run2.Version != 2 {
		t.Fatalf("expected version 2, got %d", run2.Version)
	}

	cur, err := s.GetCurrentRun(ctx, v.ID)
	if err != nil {
		t.Fatalf("get current: %v", err)
	}
	if cur.ID != run2.ID || cur.Version != 2 {
		t.Fatalf("expected run 2 current, got %+v", cur)
	}

	old, err := s.GetRunByVersion(ctx, v.ID, 1)
	if err != nil {
		t.Fatalf("get version 1: %v", err)
	}
	if old.IsCurrent {
		t.Fatal("expected version 1 demoted after second run")
	}

	history, err := s.ListRunHistory(ctx, v.ID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(history))
	}
	if history[0].Version != 2 || history[1].Version != 1 {
		t.Fatalf("expected newest first, got versions %d, %d", history[0].Version, history[1].Version)
	}
}

func TestGetCurrentRunNoRuns(t *testing.T) {
	s := newTestStore(t)
	v := seedVolume(t, s)
	if _, err := s.GetCurrentRun(context.Background(), v.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRunDocumentsPersisted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	v := seedVolume(t, s)

	docs := []types.LogicalDocument{
		{Title: "Опись документов", DocumentType: types.InventoryDocType, StartPage: 1, EndPage: 2},
		{Title: "Протокол допроса", DocumentType: "протокол", StartPage: 3, EndPage: 7, Date: "15.03.2024"},
		{Title: "Справка", DocumentType: "справка", StartPage: 8, EndPage: 10, Date: "not a date"},
	}
	run, err := s.CreateRun(ctx, RunParams{VolumeID: v.ID, TotalPages: 10, CropRatio: 0.9, ModelUsed: "m", Documents: docs})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}

	got, err := s.ListRunDocuments(ctx, run.ID)
	if err != nil {
		t.Fatalf("list documents: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].StartPage <= got[i-1].StartPage {
			t.Fatalf("documents not in page order: %+v", got)
		}
	}
	if got[0].DocumentDate != nil {
		t.Fatalf("expected nil date for inventory, got %v", got[0].DocumentDate)
	}
	if got[1].DocumentDate == nil {
		t.Fatal("expected parsed date for second document")
	} else if d := got[1].DocumentDate.Format("2006-01-02"); d != "2024-03-15" {
		t.Fatalf("expected 2024-03-15, got %s", d)
	}
	if got[2].DocumentDate != nil {
		t.Fatalf("expected nil date for unparseable input, got %v", got[2].DocumentDate)
	}
	if got[1].CaseID != v.CaseID || got[1].VolumeID != v.ID || got[1].ExtractionRunID != run.ID {
		t.Fatalf("document ownership wrong: %+v", got[1])
	}
}

func TestCascadeDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	v := seedVolume(t, s)

	run, err := s.CreateRun(ctx, RunParams{VolumeID: v.ID, TotalPages: 10, Documents: []types.LogicalDocument{
		{Title: "Doc", DocumentType: "иное", StartPage: 1, EndPage: 10},
	}})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}

	if err := s.DeleteCase(ctx, v.CaseID); err != nil {
		t.Fatalf("delete case: %v", err)
	}

	if _, err := s.GetVolume(ctx, v.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected volume gone, got %v", err)
	}
	if _, err := s.GetCurrentRun(ctx, v.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected run gone, got %v", err)
	}
	docs, err := s.ListRunDocuments(ctx, run.ID)
	if err != nil {
		t.Fatalf("list documents: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected documents gone, got %d", len(docs))
	}
}

func TestParseDocumentDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string // "" means nil expected
	}{
		{"iso", "2024-03-15", "2024-03-15"},
		{"dotted full year", "15.03.2024", "2024-03-15"},
		{"dotted short year", "15.03.24", "2024-03-15"},
		{"whitespace", "  2024-03-15 ", "2024-03-15"},
		{"empty", "", ""},
		{"garbage", "пятнадцатое марта", ""},
		{"partial", "03.2024", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDocumentDate(tt.in)
			if tt.want == "" {
				if got != nil {
					t.Fatalf("expected nil, got %v", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("expected %s, got nil", tt.want)
			}
			if s := got.Format("2006-01-02"); s != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, s)
			}
		})
	}
}

func TestRunTimestamps(t *testing.T) {
	s := newTestStore(t)
	v := seedVolume(t, s)
	run, err := s.CreateRun(context.Background(), RunParams{VolumeID: v.ID, TotalPages: 10})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if run.CreatedAt.IsZero() {
		t.Fatal("expected non-zero created_at")
	}
	if time.Since(run.CreatedAt) > time.Minute {
		t.Fatalf("created_at too old: %v", run.CreatedAt)
	}
}
