package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/onmission/matchd/internal/match"
)

// PostgresStore persists profiles and assignments as JSONB documents.
type PostgresStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wires a sql.DB implementation.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// classify maps driver-level connection failures onto ErrUnavailable so
// callers can answer 503 instead of 500.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08: connection exception. Class 57: operator intervention
		// (shutdown, crash recovery).
		if class := pqErr.Code.Class(); class == "08" || class == "57" {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return err
}

// GetProfile retrieves a profile by ID.
func (s *PostgresStore) GetProfile(ctx context.Context, id string) (*match.Profile, error) {
	query, args, err := s.builder.
		Select("doc").
		From("matching_profiles").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var doc []byte
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, classify(err)
	}

	var p match.Profile
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", id, err)
	}
	return &p, nil
}

// UpsertProfile inserts or replaces a profile by ID.
func (s *PostgresStore) UpsertProfile(ctx context.Context, p *match.Profile) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", p.ID, err)
	}

	query, args, err := s.builder.
		Insert("matching_profiles").
		Columns("id", "doc").
		Values(p.ID, doc).
		Suffix("ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return classify(err)
	}
	return nil
}

// DeleteProfile removes a profile by ID.
func (s *PostgresStore) DeleteProfile(ctx context.Context, id string) error {
	query, args, err := s.builder.
		Delete("matching_profiles").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// GetAssignment retrieves an assignment by ID regardless of status.
func (s *PostgresStore) GetAssignment(ctx context.Context, id string) (*match.Assignment, error) {
	query, args, err := s.builder.
		Select("doc").
		From("assignments").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var doc []byte
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAssignmentNotFound
		}
		return nil, classify(err)
	}

	var a match.Assignment
	if err := json.Unmarshal(doc, &a); err != nil {
		return nil, fmt.Errorf("decode assignment %s: %w", id, err)
	}
	return &a, nil
}

// ListActive returns all assignments in the ranking pool. The status
// column is maintained by UpsertAssignment so the pool query stays
// indexable without touching the document.
func (s *PostgresStore) ListActive(ctx context.Context) ([]match.Assignment, error) {
	query, args, err := s.builder.
		Select("doc").
		From("assignments").
		Where(sq.Eq{"status": match.StatusActive}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var result []match.Assignment
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, classify(err)
		}
		var a match.Assignment
		if err := json.Unmarshal(doc, &a); err != nil {
			return nil, fmt.Errorf("decode assignment: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return result, nil
}

// UpsertAssignment inserts or replaces an assignment by ID.
func (s *PostgresStore) UpsertAssignment(ctx context.Context, a *match.Assignment) error {
	doc, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode assignment %s: %w", a.ID, err)
	}

	query, args, err := s.builder.
		Insert("assignments").
		Columns("id", "status", "doc").
		Values(a.ID, a.Status, doc).
		Suffix("ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, doc = EXCLUDED.doc, updated_at = NOW()").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return classify(err)
	}
	return nil
}

// DeleteAssignment removes an assignment by ID.
func (s *PostgresStore) DeleteAssignment(ctx context.Context, id string) error {
	query, args, err := s.builder.
		Delete("assignments").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}
