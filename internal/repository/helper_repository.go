package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-surveillance-api/internal/models"
)

const helperColumns = `id, exam_id, name, email, is_assistant, present_on_site, counts_toward_quota, created_at, updated_at`

// HelperRepository persists helper persons brought by teachers.
type HelperRepository struct {
	db *sqlx.DB
}

// NewHelperRepository constructs the repository.
func NewHelperRepository(db *sqlx.DB) *HelperRepository {
	return &HelperRepository{db: db}
}

// ListByExam returns the helpers of one exam.
func (r *HelperRepository) ListByExam(ctx context.Context, examID string) ([]models.HelperPerson, error) {
	const query = `SELECT ` + helperColumns + ` FROM helper_persons WHERE exam_id = $1 ORDER BY created_at ASC`
	var helpers []models.HelperPerson
	if err := r.db.SelectContext(ctx, &helpers, query, examID); err != nil {
		return nil, fmt.Errorf("list exam helpers: %w", err)
	}
	return helpers, nil
}

// ListBySession returns the helpers of every active exam in a session.
func (r *HelperRepository) ListBySession(ctx context.Context, sessionID string) ([]models.HelperPerson, error) {
	const query = `SELECT h.id, h.exam_id, h.name, h.email, h.is_assistant, h.present_on_site, h.counts_toward_quota, h.created_at, h.updated_at
FROM helper_persons h
JOIN exams e ON e.id = h.exam_id
WHERE e.session_id = $1 AND e.active = TRUE
ORDER BY h.exam_id ASC, h.created_at ASC`
	var helpers []models.HelperPerson
	if err := r.db.SelectContext(ctx, &helpers, query, sessionID); err != nil {
		return nil, fmt.Errorf("list session helpers: %w", err)
	}
	return helpers, nil
}

// FindByID returns one helper.
func (r *HelperRepository) FindByID(ctx context.Context, id string) (*models.HelperPerson, error) {
	const query = `SELECT ` + helperColumns + ` FROM helper_persons WHERE id = $1`
	var helper models.HelperPerson
	if err := r.db.GetContext(ctx, &helper, query, id); err != nil {
		return nil, err
	}
	return &helper, nil
}

// Create inserts a helper.
func (r *HelperRepository) Create(ctx context.Context, helper *models.HelperPerson) error {
	if helper.ID == "" {
		helper.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	helper.CreatedAt = now
	helper.UpdatedAt = now
	const query = `INSERT INTO helper_persons (id, exam_id, name, email, is_assistant, present_on_site, counts_toward_quota, created_at, updated_at)
VALUES (:id, :exam_id, :name, :email, :is_assistant, :present_on_site, :counts_toward_quota, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, helper); err != nil {
		return fmt.Errorf("create helper: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields of a helper.
func (r *HelperRepository) Update(ctx context.Context, helper *models.HelperPerson) error {
	helper.UpdatedAt = time.Now().UTC()
	const query = `UPDATE helper_persons
SET name = :name, email = :email, is_assistant = :is_assistant, present_on_site = :present_on_site,
    counts_toward_quota = :counts_toward_quota, updated_at = :updated_at
WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, helper)
	if err != nil {
		return fmt.Errorf("update helper: %w", err)
	}
	return expectAffected(res, "update helper")
}

// Delete removes a helper.
func (r *HelperRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM helper_persons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete helper: %w", err)
	}
	return expectAffected(res, "delete helper")
}
