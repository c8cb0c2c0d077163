package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-surveillance-api/internal/dto"
	"github.com/noah-isme/exam-surveillance-api/internal/models"
	appErrors "github.com/noah-isme/exam-surveillance-api/pkg/errors"
)

type attributionRepoStub struct {
	items     map[string]*models.Attribution
	createErr error
}

func newAttributionRepoStub(items ...models.Attribution) *attributionRepoStub {
	stub := &attributionRepoStub{items: map[string]*models.Attribution{}}
	for i := range items {
		item := items[i]
		stub.items[item.ID] = &item
	}
	return stub
}

func (r *attributionRepoStub) ListByExam(ctx context.Context, examID string) ([]models.Attribution, error) {
	var out []models.Attribution
	for _, item := range r.items {
		if item.ExamID == examID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *attributionRepoStub) ListBySession(ctx context.Context, sessionID string) ([]models.Attribution, error) {
	var out []models.Attribution
	for _, item := range r.items {
		if item.SessionID == sessionID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *attributionRepoStub) FindByID(ctx context.Context, id string) (*models.Attribution, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *item
	return &copied, nil
}

func (r *attributionRepoStub) Exists(ctx context.Context, exec sqlx.ExtContext, sessionID, examID, invigilatorID string) (bool, error) {
	for _, item := range r.items {
		if item.SessionID == sessionID && item.ExamID == examID && item.InvigilatorID == invigilatorID {
			return true, nil
		}
	}
	return false, nil
}

func (r *attributionRepoStub) Create(ctx context.Context, exec sqlx.ExtContext, attribution *models.Attribution) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.items[attribution.ID] = attribution
	return nil
}

func (r *attributionRepoStub) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, ok := r.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.items, id)
	return nil
}

func TestAttributionServicePreAssign(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	exams := newExamRepoStub(models.Exam{ID: "e-1", SessionID: "s-1"})
	repo := newAttributionRepoStub()
	cacheRepo := newMemoryCacheRepo()
	svc := NewAttributionService(repo, exams, tx, newTestCache(cacheRepo), nil, nil)

	mock.ExpectBegin()
	mock.ExpectCommit()

	attribution, err := svc.PreAssign(context.Background(), "e-1", dto.PreAssignRequest{InvigilatorID: " inv-1 "})
	require.NoError(t, err)
	assert.Equal(t, "inv-1", attribution.InvigilatorID)
	assert.Equal(t, "s-1", attribution.SessionID)
	assert.True(t, attribution.IsPreAssigned)
	assert.True(t, attribution.IsObligatory)
	assert.True(t, attribution.Locked())
	assert.Equal(t, []string{"e-1"}, exams.synced)
	assert.Equal(t, []string{"req:session:s-1"}, cacheRepo.deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttributionServicePreAssignDuplicate(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	exams := newExamRepoStub(models.Exam{ID: "e-1", SessionID: "s-1"})
	repo := newAttributionRepoStub(models.Attribution{ID: "a-1", SessionID: "s-1", ExamID: "e-1", InvigilatorID: "inv-1", IsPreAssigned: true})
	svc := NewAttributionService(repo, exams, tx, nil, nil, nil)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.PreAssign(context.Background(), "e-1", dto.PreAssignRequest{InvigilatorID: "inv-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Len(t, repo.items, 1)
	assert.Empty(t, exams.synced)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttributionServicePreAssignUnknownExam(t *testing.T) {
	svc := NewAttributionService(newAttributionRepoStub(), newExamRepoStub(), nil, nil, nil, nil)

	_, err := svc.PreAssign(context.Background(), "missing", dto.PreAssignRequest{InvigilatorID: "inv-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.PreAssign(context.Background(), "missing", dto.PreAssignRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestAttributionServiceDeleteResyncs(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	exams := newExamRepoStub(models.Exam{ID: "e-1", SessionID: "s-1", PreAssignedCount: 1})
	repo := newAttributionRepoStub(models.Attribution{ID: "a-1", SessionID: "s-1", ExamID: "e-1", InvigilatorID: "inv-1"})
	svc := NewAttributionService(repo, exams, tx, nil, nil, nil)

	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, svc.Delete(context.Background(), "a-1"))
	assert.Empty(t, repo.items)
	assert.Equal(t, []string{"e-1"}, exams.synced)
	require.NoError(t, mock.ExpectationsWereMet())

	err := svc.Delete(context.Background(), "a-1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
