package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-surveillance-api/internal/models"
)

const sessionColumns = `id, code, name, is_active, created_at, updated_at`

// SessionRepository persists scheduling sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns every session, newest code first.
func (r *SessionRepository) List(ctx context.Context) ([]models.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions ORDER BY code DESC`
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// FindByID returns a session by id.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// FindActive returns the active session or sql.ErrNoRows.
func (r *SessionRepository) FindActive(ctx context.Context) (*models.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE is_active = TRUE ORDER BY updated_at DESC LIMIT 1`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query); err != nil {
		return nil, err
	}
	return &session, nil
}

// Create inserts a new inactive session.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	const query = `INSERT INTO sessions (id, code, name, is_active, created_at, updated_at)
VALUES (:id, :code, :name, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create session %s: %w", session.Code, ErrDuplicateKey)
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Activate clears the active flag everywhere then sets it on id. Run it inside a transaction.
func (r *SessionRepository) Activate(ctx context.Context, exec sqlx.ExtContext, id string) error {
	target := r.exec(exec)
	now := time.Now().UTC()
	if _, err := target.ExecContext(ctx, `UPDATE sessions SET is_active = FALSE, updated_at = $1 WHERE is_active = TRUE AND id <> $2`, now, id); err != nil {
		return fmt.Errorf("deactivate sessions: %w", err)
	}
	res, err := target.ExecContext(ctx, `UPDATE sessions SET is_active = TRUE, updated_at = $1 WHERE id = $2`, now, id)
	if err != nil {
		return fmt.Errorf("activate session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check activated session rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
