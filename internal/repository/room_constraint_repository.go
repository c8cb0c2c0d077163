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

const roomConstraintColumns = `id, room_label, required_count, notes, created_at, updated_at`

// normalizedLabelExpr mirrors requirement.NormalizeRoom in SQL.
const normalizedLabelExpr = `lower(regexp_replace(trim(room_label), '\s+', ' ', 'g'))`

// RoomConstraintRepository persists room staffing constraints.
type RoomConstraintRepository struct {
	db *sqlx.DB
}

// NewRoomConstraintRepository constructs the repository.
func NewRoomConstraintRepository(db *sqlx.DB) *RoomConstraintRepository {
	return &RoomConstraintRepository{db: db}
}

// List returns every constraint ordered by label.
func (r *RoomConstraintRepository) List(ctx context.Context) ([]models.RoomConstraint, error) {
	const query = `SELECT ` + roomConstraintColumns + ` FROM room_constraints ORDER BY room_label ASC`
	var constraints []models.RoomConstraint
	if err := r.db.SelectContext(ctx, &constraints, query); err != nil {
		return nil, fmt.Errorf("list room constraints: %w", err)
	}
	return constraints, nil
}

// FindByID returns one constraint.
func (r *RoomConstraintRepository) FindByID(ctx context.Context, id string) (*models.RoomConstraint, error) {
	const query = `SELECT ` + roomConstraintColumns + ` FROM room_constraints WHERE id = $1`
	var constraint models.RoomConstraint
	if err := r.db.GetContext(ctx, &constraint, query, id); err != nil {
		return nil, err
	}
	return &constraint, nil
}

// ExistsByNormalizedLabel reports whether another constraint already uses the normalised label.
func (r *RoomConstraintRepository) ExistsByNormalizedLabel(ctx context.Context, normalized, excludeID string) (bool, error) {
	const query = `SELECT 1 FROM room_constraints WHERE ` + normalizedLabelExpr + ` = $1 AND id <> $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, normalized, excludeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check room constraint label: %w", err)
	}
	return true, nil
}

// Create inserts a constraint.
func (r *RoomConstraintRepository) Create(ctx context.Context, constraint *models.RoomConstraint) error {
	if constraint.ID == "" {
		constraint.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	constraint.CreatedAt = now
	constraint.UpdatedAt = now
	const query = `INSERT INTO room_constraints (id, room_label, required_count, notes, created_at, updated_at)
VALUES (:id, :room_label, :required_count, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, constraint); err != nil {
		return fmt.Errorf("create room constraint: %w", err)
	}
	return nil
}

// Update overwrites label, count and notes of a constraint.
func (r *RoomConstraintRepository) Update(ctx context.Context, constraint *models.RoomConstraint) error {
	constraint.UpdatedAt = time.Now().UTC()
	const query = `UPDATE room_constraints SET room_label = :room_label, required_count = :required_count, notes = :notes, updated_at = :updated_at
WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, constraint)
	if err != nil {
		return fmt.Errorf("update room constraint: %w", err)
	}
	return expectAffected(res, "update room constraint")
}

// Delete removes a constraint.
func (r *RoomConstraintRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM room_constraints WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete room constraint: %w", err)
	}
	return expectAffected(res, "delete room constraint")
}
