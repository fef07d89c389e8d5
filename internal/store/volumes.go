package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pvolkov/tome/internal/types"
)

// CreateVolume inserts a new volume under a case. The case must exist.
func (s *Store) CreateVolume(ctx context.Context, v types.Volume) (*types.Volume, error) {
	if _, err := s.GetCase(ctx, v.CaseID); err != nil {
		return nil, fmt.Errorf("case %d: %w", v.CaseID, err)
	}
	if v.ProcessingStatus == "" {
		v.ProcessingStatus = "pending"
	}
	createdAt := now()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO volumes (case_id, volume_number, file_name, file_size, page_count, processing_status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.CaseID, v.VolumeNumber, v.FileName, v.FileSize, v.PageCount, v.ProcessingStatus, createdAt)
	if err != nil {
		return nil, fmt.Errorf("insert volume: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("volume insert id: %w", err)
	}

	v.ID = id
	v.CreatedAt = parseTimestamp(createdAt)
	return &v, nil
}

// GetVolume returns the volume with the given ID, or ErrNotFound.
func (s *Store) GetVolume(ctx context.Context, id int64) (*types.Volume, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, case_id, volume_number, file_name, file_size, page_count, processing_status, created_at
		 FROM volumes WHERE id = ?`, id)
	return scanVolume(row)
}

// ListVolumes returns all volumes of a case ordered by volume number.
func (s *Store) ListVolumes(ctx context.Context, caseID int64) ([]types.Volume, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, case_id, volume_number, file_name, file_size, page_count, processing_status, created_at
		 FROM volumes WHERE case_id = ? ORDER BY volume_number, id`, caseID)
	if err != nil {
		return nil, fmt.Errorf("list volumes: %w", err)
	}
	defer rows.Close()

	var volumes []types.Volume
	for rows.Next() {
		v, err := scanVolume(rows)
		if err != nil {
			return nil, err
		}
		volumes = append(volumes, *v)
	}
	return volumes, rows.Err()
}

// UpdateVolumeStatus sets the processing status of a volume.
func (s *Store) UpdateVolumeStatus(ctx context.Context, id int64, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE volumes SET processing_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update volume status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update volume status result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteVolume removes a volume and, by cascade, its runs and documents.
func (s *Store) DeleteVolume(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM volumes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete volume: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete volume result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanVolume(row rowScanner) (*types.Volume, error) {
	var v types.Volume
	var createdAt string
	err := row.Scan(&v.ID, &v.CaseID, &v.VolumeNumber, &v.FileName, &v.FileSize, &v.PageCount, &v.ProcessingStatus, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan volume: %w", err)
	}
	v.CreatedAt = parseTimestamp(createdAt)
	return &v, nil
}
