package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-surveillance-api/internal/models"
)

const examColumns = `id, session_id, code, subject, exam_date, start_time, end_time, room_label, validation_status,
teacher_present, theoretical_override, theoretical_count, teacher_count, helper_count, pre_assigned_count, active,
created_at, updated_at`

// ExamRepository reads and updates exam rows.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository constructs the repository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

func (r *ExamRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns a filtered page of exams with the total count.
func (r *ExamRepository) List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error) {
	conditions := []string{"session_id = $1"}
	args := []interface{}{filter.SessionID}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("validation_status = $%d", len(args)))
	}
	if code := strings.TrimSpace(filter.Code); code != "" {
		args = append(args, code)
		conditions = append(conditions, fmt.Sprintf("code = $%d", len(args)))
	}
	if filter.Date != nil {
		args = append(args, filter.Date.Format("2006-01-02"))
		conditions = append(conditions, fmt.Sprintf("exam_date = $%d", len(args)))
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "active = TRUE")
	}
	where := strings.Join(conditions, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM exams WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count exams: %w", err)
	}

	page, size := filter.Page, filter.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 500 {
		size = 100
	}
	args = append(args, size, (page-1)*size)
	query := fmt.Sprintf("SELECT %s FROM exams WHERE %s ORDER BY exam_date ASC, start_time ASC, code ASC, room_label ASC LIMIT $%d OFFSET $%d",
		examColumns, where, len(args)-1, len(args))

	var exams []models.Exam
	if err := r.db.SelectContext(ctx, &exams, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list exams: %w", err)
	}
	return exams, total, nil
}

// ListActiveBySession returns every active exam of a session.
func (r *ExamRepository) ListActiveBySession(ctx context.Context, sessionID string) ([]models.Exam, error) {
	const query = `SELECT ` + examColumns + ` FROM exams WHERE session_id = $1 AND active = TRUE
ORDER BY exam_date ASC, start_time ASC, code ASC, room_label ASC`
	var exams []models.Exam
	if err := r.db.SelectContext(ctx, &exams, query, sessionID); err != nil {
		return nil, fmt.Errorf("list session exams: %w", err)
	}
	return exams, nil
}

// FindByID returns one exam.
func (r *ExamRepository) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	const query = `SELECT ` + examColumns + ` FROM exams WHERE id = $1`
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, query, id); err != nil {
		return nil, err
	}
	return &exam, nil
}

// UpdateStatus sets the validation status of an exam.
func (r *ExamRepository) UpdateStatus(ctx context.Context, id string, status models.ValidationStatus) error {
	const query = `UPDATE exams SET validation_status = $1, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update exam status: %w", err)
	}
	return expectAffected(res, "update exam status")
}

// SetTheoreticalOverride writes (or clears with nil) the administrator override of one row.
func (r *ExamRepository) SetTheoreticalOverride(ctx context.Context, exec sqlx.ExtContext, id string, value *int) error {
	const query = `UPDATE exams SET theoretical_override = $1, updated_at = $2 WHERE id = $3`
	var arg interface{}
	if value != nil {
		arg = *value
	}
	res, err := r.exec(exec).ExecContext(ctx, query, arg, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set theoretical override: %w", err)
	}
	return expectAffected(res, "set theoretical override")
}

// UpdateSnapshot persists computed counters. Rows already holding the same
// values are left untouched so retries do not bump updated_at.
func (r *ExamRepository) UpdateSnapshot(ctx context.Context, exec sqlx.ExtContext, snapshot models.ExamSnapshot) (bool, error) {
	const query = `UPDATE exams
SET theoretical_count = $1, teacher_count = $2, helper_count = $3, pre_assigned_count = $4, updated_at = $5
WHERE id = $6 AND (theoretical_count IS DISTINCT FROM $1 OR teacher_count <> $2 OR helper_count <> $3 OR pre_assigned_count <> $4)`
	res, err := r.exec(exec).ExecContext(ctx, query,
		snapshot.TheoreticalCount,
		snapshot.TeacherCount,
		snapshot.HelperCount,
		snapshot.PreAssignedCount,
		time.Now().UTC(),
		snapshot.ExamID,
	)
	if err != nil {
		return false, fmt.Errorf("update exam snapshot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check exam snapshot rows: %w", err)
	}
	return affected > 0, nil
}

// SyncPreAssignedCount recomputes pre_assigned_count from locked attributions.
func (r *ExamRepository) SyncPreAssignedCount(ctx context.Context, exec sqlx.ExtContext, examID string) error {
	const query = `UPDATE exams SET pre_assigned_count = (
	SELECT COUNT(DISTINCT invigilator_id) FROM attributions
	WHERE exam_id = $1 AND (is_pre_assigned OR is_obligatory OR is_locked)
), updated_at = $2 WHERE id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, examID, time.Now().UTC()); err != nil {
		return fmt.Errorf("sync pre-assigned count: %w", err)
	}
	return nil
}

func expectAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
