package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pvolkov/tome/internal/types"
)

// RunParams carries everything needed to persist one extraction run.
type RunParams struct {
	VolumeID   int64
	TotalPages int
	CropRatio  float64
	ModelUsed  string
	Documents  []types.LogicalDocument
}

// CreateRun persists one extraction run and its documents atomically.
// Within a single transaction it demotes the previous current run of the
// volume, assigns version max+1 (1 for the first run), and inserts the
// document rows. Either everything lands or nothing does.
func (s *Store) CreateRun(ctx context.Context, p RunParams) (*types.ExtractionRun, error) {
	vol, err := s.GetVolume(ctx, p.VolumeID)
	if err != nil {
		return nil, fmt.Errorf("volume %d: %w", p.VolumeID, err)
	}

	createdAt := now()
	var run types.ExtractionRun

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE extraction_runs SET is_current = 0 WHERE volume_id = ? AND is_current = 1`,
			p.VolumeID); err != nil {
			return fmt.Errorf("demote current run: %w", err)
		}

		var version int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(version), 0) + 1 FROM extraction_runs WHERE volume_id = ?`,
			p.VolumeID).Scan(&version); err != nil {
			return fmt.Errorf("next run version: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO extraction_runs (volume_id, version, documents_count, total_pages, crop_ratio, model_used, is_current, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, 1, ?)`,
			p.VolumeID, version, len(p.Documents), p.TotalPages, p.CropRatio, p.ModelUsed, createdAt)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		runID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("run insert id: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO documents (case_id, volume_id, extraction_run_id, doc_type, title, start_page, end_page, document_date, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare document insert: %w", err)
		}
		defer stmt.Close()

		for _, doc := range p.Documents {
			var date any
			if t := ParseDocumentDate(doc.Date); t != nil {
				date = t.Format(dateLayout)
			}
			if _, err := stmt.ExecContext(ctx,
				vol.CaseID, p.VolumeID, runID, doc.DocumentType, doc.Title,
				doc.StartPage, doc.EndPage, date, createdAt); err != nil {
				return fmt.Errorf("insert document %q: %w", doc.Title, err)
			}
		}

		run = types.ExtractionRun{
			ID:             runID,
			VolumeID:       p.VolumeID,
			Version:        version,
			DocumentsCount: len(p.Documents),
			TotalPages:     p.TotalPages,
			CropRatio:      p.CropRatio,
			ModelUsed:      p.ModelUsed,
			IsCurrent:      true,
			CreatedAt:      parseTimestamp(createdAt),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetCurrentRun returns the volume's current run, or ErrNotFound when the
// volume has never been extracted.
func (s *Store) GetCurrentRun(ctx context.Context, volumeID int64) (*types.ExtractionRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, volume_id, version, documents_count, total_pages, crop_ratio, model_used, is_current, created_at
		 FROM extraction_runs WHERE volume_id = ? AND is_current = 1`, volumeID)
	return scanRun(row)
}

// GetRunByVersion returns a specific historical run of a volume.
func (s *Store) GetRunByVersion(ctx context.Context, volumeID int64, version int) (*types.ExtractionRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, volume_id, version, documents_count, total_pages, crop_ratio, model_used, is_current, created_at
		 FROM extraction_runs WHERE volume_id = ? AND version = ?`, volumeID, version)
	return scanRun(row)
}

// ListRunHistory returns all runs of a volume, newest version first.
func (s *Store) ListRunHistory(ctx context.Context, volumeID int64) ([]types.ExtractionRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, volume_id, version, documents_count, total_pages, crop_ratio, model_used, is_current, created_at
		 FROM extraction_runs WHERE volume_id = ? ORDER BY version DESC`, volumeID)
	if err != nil {
		return nil, fmt.Errorf("list run history: %w", err)
	}
	defer rows.Close()

	var runs []types.ExtractionRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// ListRunDocuments returns the documents of a run in page order.
func (s *Store) ListRunDocuments(ctx context.Context, runID int64) ([]types.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, case_id, volume_id, extraction_run_id, doc_type, title, start_page, end_page, document_date, created_at
		 FROM documents WHERE extraction_run_id = ? ORDER BY start_page`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run documents: %w", err)
	}
	defer rows.Close()

	var docs []types.Document
	for rows.Next() {
		var d types.Document
		var date sql.NullString
		var createdAt string
		if err := rows.Scan(&d.ID, &d.CaseID, &d.VolumeID, &d.ExtractionRunID, &d.DocType,
			&d.Title, &d.StartPage, &d.EndPage, &date, &createdAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if date.Valid {
			if t, err := time.Parse(dateLayout, date.String); err == nil {
				d.DocumentDate = &t
			}
		}
		d.CreatedAt = parseTimestamp(createdAt)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func scanRun(row rowScanner) (*types.ExtractionRun, error) {
	var r types.ExtractionRun
	var isCurrent int
	var createdAt string
	err := row.Scan(&r.ID, &r.VolumeID, &r.Version, &r.DocumentsCount, &r.TotalPages,
		&r.CropRatio, &r.ModelUsed, &isCurrent, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	r.IsCurrent = isCurrent != 0
	r.CreatedAt = parseTimestamp(createdAt)
	return &r, nil
}

// dateLayout is the canonical form document dates are stored in.
const dateLayout = "2006-01-02"

// dateLayouts are the input forms accepted from classifier output, tried in
// order. Two-digit years are pivoted by time.Parse ("06" maps 69- to 19xx).
var dateLayouts = []string{
	dateLayout,
	"02.01.2006",
	"02.01.06",
}

// ParseDocumentDate parses a raw classifier date string. It returns nil when
// the string is empty or matches none of the accepted layouts; the document
// is then stored with a NULL date rather than rejected.
func ParseDocumentDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}
