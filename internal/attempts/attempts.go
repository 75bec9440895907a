// Package attempts keeps an audit log of face verification attempts in
// Postgres. Descriptors are never stored; only the decision and distance.
package attempts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Attempt is one verification request and its decision.
type Attempt struct {
	ID        string    `json:"id"`
	UserEmail string    `json:"user_email"`
	Outcome   string    `json:"outcome"`
	Distance  *float64  `json:"distance,omitempty"`
	Error     string    `json:"error,omitempty"`
	Queued    bool      `json:"queued"`
	CreatedAt time.Time `json:"created_at"`
}

// Log records attempts.
type Log interface {
	Record(ctx context.Context, a Attempt) (Attempt, error)
	ListByUser(ctx context.Context, email string, limit int) ([]Attempt, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS verification_attempts (
	id          UUID PRIMARY KEY,
	user_email  TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	distance    DOUBLE PRECISION,
	error       TEXT NOT NULL DEFAULT '',
	queued      BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS verification_attempts_user_idx
	ON verification_attempts (user_email, created_at DESC);
`

// Repository persists attempts in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the table when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create verification_attempts: %w", err)
	}
	return nil
}

// Record writes a new attempt, filling ID and CreatedAt.
func (r *Repository) Record(ctx context.Context, a Attempt) (Attempt, error) {
	a = prepare(a)
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO verification_attempts (id, user_email, outcome, distance, error, queued, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`, a.ID, a.UserEmail, a.Outcome, a.Distance, a.Error, a.Queued, a.CreatedAt)
	if err := row.Scan(&a.CreatedAt); err != nil {
		return Attempt{}, fmt.Errorf("insert attempt: %w", err)
	}
	return a, nil
}

// ListByUser returns the most recent attempts for email, newest first.
func (r *Repository) ListByUser(ctx context.Context, email string, limit int) ([]Attempt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_email, outcome, distance, error, queued, created_at
		FROM verification_attempts
		WHERE user_email = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, email, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Attempt
	for rows.Next() {
		var a Attempt
		var dist sql.NullFloat64
		if err := rows.Scan(&a.ID, &a.UserEmail, &a.Outcome, &dist, &a.Error, &a.Queued, &a.CreatedAt); err != nil {
			return nil, err
		}
		if dist.Valid {
			d := dist.Float64
			a.Distance = &d
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func prepare(a Attempt) Attempt {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return a
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 500 {
		return 500
	}
	return limit
}

// ErrDisabled is returned by Discard when asked to list.
var ErrDisabled = errors.New("attempt log disabled")

// Discard drops every attempt. Used when Postgres is not configured.
type Discard struct{}

func (Discard) Record(_ context.Context, a Attempt) (Attempt, error) { return prepare(a), nil }

func (Discard) ListByUser(context.Context, string, int) ([]Attempt, error) {
	return nil, ErrDisabled
}

// Memory keeps attempts in process, newest last.
type Memory struct {
	mu   sync.Mutex
	rows []Attempt
}

func (m *Memory) Record(_ context.Context, a Attempt) (Attempt, error) {
	a = prepare(a)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, a)
	return a, nil
}

func (m *Memory) ListByUser(_ context.Context, email string, limit int) ([]Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit = clampLimit(limit)
	var res []Attempt
	for i := len(m.rows) - 1; i >= 0 && len(res) < limit; i-- {
		if m.rows[i].UserEmail == email {
			res = append(res, m.rows[i])
		}
	}
	return res, nil
}
