package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-surveillance-api/internal/models"
)

const attributionColumns = `id, session_id, exam_id, invigilator_id, is_pre_assigned, is_obligatory, is_locked, created_at`

// AttributionRepository persists invigilator attributions.
type AttributionRepository struct {
	db *sqlx.DB
}

// NewAttributionRepository constructs the repository.
func NewAttributionRepository(db *sqlx.DB) *AttributionRepository {
	return &AttributionRepository{db: db}
}

func (r *AttributionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListByExam returns the attributions of one exam.
func (r *AttributionRepository) ListByExam(ctx context.Context, examID string) ([]models.Attribution, error) {
	const query = `SELECT ` + attributionColumns + ` FROM attributions WHERE exam_id = $1 ORDER BY created_at ASC`
	var attributions []models.Attribution
	if err := r.db.SelectContext(ctx, &attributions, query, examID); err != nil {
		return nil, fmt.Errorf("list exam attributions: %w", err)
	}
	return attributions, nil
}

// ListBySession returns every attribution of a session.
func (r *AttributionRepository) ListBySession(ctx context.Context, sessionID string) ([]models.Attribution, error) {
	const query = `SELECT ` + attributionColumns + ` FROM attributions WHERE session_id = $1 ORDER BY exam_id ASC, created_at ASC`
	var attributions []models.Attribution
	if err := r.db.SelectContext(ctx, &attributions, query, sessionID); err != nil {
		return nil, fmt.Errorf("list session attributions: %w", err)
	}
	return attributions, nil
}

// FindByID returns one attribution.
func (r *AttributionRepository) FindByID(ctx context.Context, id string) (*models.Attribution, error) {
	const query = `SELECT ` + attributionColumns + ` FROM attributions WHERE id = $1`
	var attribution models.Attribution
	if err := r.db.GetContext(ctx, &attribution, query, id); err != nil {
		return nil, err
	}
	return &attribution, nil
}

// Exists checks whether the invigilator is already attributed to the exam in the session.
func (r *AttributionRepository) Exists(ctx context.Context, exec sqlx.ExtContext, sessionID, examID, invigilatorID string) (bool, error) {
	const query = `SELECT 1 FROM attributions WHERE session_id = $1 AND exam_id = $2 AND invigilator_id = $3 LIMIT 1`
	var exists int
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query, sessionID, examID, invigilatorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check attribution: %w", err)
	}
	return true, nil
}

// Create inserts an attribution.
func (r *AttributionRepository) Create(ctx context.Context, exec sqlx.ExtContext, attribution *models.Attribution) error {
	if attribution.ID == "" {
		attribution.ID = uuid.NewString()
	}
	if attribution.CreatedAt.IsZero() {
		attribution.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attributions (id, session_id, exam_id, invigilator_id, is_pre_assigned, is_obligatory, is_locked, created_at)
VALUES (:id, :session_id, :exam_id, :invigilator_id, :is_pre_assigned, :is_obligatory, :is_locked, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, attribution); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create attribution for %s: %w", attribution.InvigilatorID, ErrDuplicateKey)
		}
		return fmt.Errorf("create attribution: %w", err)
	}
	return nil
}

// Delete removes an attribution.
func (r *AttributionRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	res, err := r.exec(exec).ExecContext(ctx, `DELETE FROM attributions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attribution: %w", err)
	}
	return expectAffected(res, "delete attribution")
}
