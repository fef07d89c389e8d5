package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pvolkov/tome/internal/types"
)

// CreateCase inserts a new case and returns it with ID and CreatedAt set.
func (s *Store) CreateCase(ctx context.Context, c types.Case) (*types.Case, error) {
	if c.CaseNumber == "" {
		return nil, fmt.Errorf("case number is required")
	}
	if c.Status == "" {
		c.Status = "active"
	}
	createdAt := now()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO cases (case_number, title, article, defendant_name, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.CaseNumber, c.Title, c.Article, c.DefendantName, c.Status, createdAt)
	if err != nil {
		return nil, fmt.Errorf("insert case: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("case insert id: %w", err)
	}

	c.ID = id
	c.CreatedAt = parseTimestamp(createdAt)
	return &c, nil
}

// GetCase returns the case with the given ID, or ErrNotFound.
func (s *Store) GetCase(ctx context.Context, id int64) (*types.Case, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, case_number, title, article, defendant_name, status, created_at
		 FROM cases WHERE id = ?`, id)
	return scanCase(row)
}

// ListCases returns all cases, newest first.
func (s *Store) ListCases(ctx context.Context) ([]types.Case, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, case_number, title, article, defendant_name, status, created_at
		 FROM cases ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var cases []types.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, *c)
	}
	return cases, rows.Err()
}

// DeleteCase removes a case. Volumes, runs and documents under it are
// removed by cascade.
func (s *Store) DeleteCase(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cases WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete case: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete case result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*types.Case, error) {
	var c types.Case
	var createdAt string
	err := row.Scan(&c.ID, &c.CaseNumber, &c.Title, &c.Article, &c.DefendantName, &c.Status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan case: %w", err)
	}
	c.CreatedAt = parseTimestamp(createdAt)
	return &c, nil
}
