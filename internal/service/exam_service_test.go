package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-surveillance-api/internal/dto"
	"github.com/noah-isme/exam-surveillance-api/internal/models"
	"github.com/noah-isme/exam-surveillance-api/internal/requirement"
	appErrors "github.com/noah-isme/exam-surveillance-api/pkg/errors"
)

func groupExams(t *testing.T) []models.Exam {
	date := examDate(t, "2024-06-10")
	return []models.Exam{
		{ID: "e-1", SessionID: "s-1", Code: "MATH101", ExamDate: date, StartTime: "09:00", RoomLabel: "Amphi A", Active: true, ValidationStatus: models.ExamStatusNotProcessed},
		{ID: "e-2", SessionID: "s-1", Code: "MATH101", ExamDate: date, StartTime: "09:00", RoomLabel: "Amphi B", Active: true, ValidationStatus: models.ExamStatusNotProcessed},
		{ID: "e-3", SessionID: "s-1", Code: "MATH101", ExamDate: date, StartTime: "09:00", RoomLabel: "Amphi C", Active: true, ValidationStatus: models.ExamStatusNotProcessed},
		{ID: "e-4", SessionID: "s-1", Code: "PHYS200", ExamDate: date, StartTime: "14:00", RoomLabel: "Room 12", Active: true, ValidationStatus: models.ExamStatusInProgress},
	}
}

func groupRequest(total *int) dto.EditGroupRequest {
	return dto.EditGroupRequest{Code: "MATH101", Date: "2024-06-10", StartTime: "09:00", Room: "amphi", Theoretical: total}
}

func TestExamServiceEditGroupCeil(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	repo := newExamRepoStub(groupExams(t)...)
	cacheRepo := newMemoryCacheRepo()
	svc := NewExamService(repo, tx, newTestCache(cacheRepo), nil, nil, ExamServiceConfig{})

	mock.ExpectBegin()
	mock.ExpectCommit()

	resp, err := svc.EditGroup(context.Background(), "s-1", groupRequest(intPtr(7)))
	require.NoError(t, err)
	assert.Equal(t, []string{"e-1", "e-2", "e-3"}, resp.ExamIDs)
	assert.Equal(t, []int{3, 3, 3}, resp.Redistribution.PerRow)
	assert.Equal(t, 9, resp.Redistribution.Applied)
	require.Len(t, resp.Redistribution.Warnings, 1)
	assert.Equal(t, requirement.WarnInconsistentGroupRounding, resp.Redistribution.Warnings[0].Code)

	for _, id := range resp.ExamIDs {
		require.NotNil(t, repo.overrides[id])
		assert.Equal(t, 3, *repo.overrides[id])
	}
	assert.NotContains(t, repo.overrides, "e-4")
	assert.Equal(t, []string{"req:session:s-1"}, cacheRepo.deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExamServiceEditGroupExact(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	repo := newExamRepoStub(groupExams(t)...)
	svc := NewExamService(repo, tx, nil, nil, nil, ExamServiceConfig{Policy: requirement.PolicyExact})

	mock.ExpectBegin()
	mock.ExpectCommit()

	resp, err := svc.EditGroup(context.Background(), "s-1", groupRequest(intPtr(7)))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 2}, resp.Redistribution.PerRow)
	assert.Equal(t, 7, resp.Redistribution.Applied)
	assert.Empty(t, resp.Redistribution.Warnings)
}

func TestExamServiceEditGroupNilClearsOverride(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	exams := groupExams(t)
	exams[0].TheoreticalOverride = intPtr(4)
	repo := newExamRepoStub(exams...)
	svc := NewExamService(repo, tx, nil, nil, nil, ExamServiceConfig{})

	mock.ExpectBegin()
	mock.ExpectCommit()

	resp, err := svc.EditGroup(context.Background(), "s-1", groupRequest(nil))
	require.NoError(t, err)
	assert.Len(t, resp.ExamIDs, 3)
	for _, id := range resp.ExamIDs {
		v, ok := repo.overrides[id]
		require.True(t, ok)
		assert.Nil(t, v)
	}
}

func TestExamServiceEditGroupRollsBackOnFailure(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	repo := newExamRepoStub(groupExams(t)...)
	repo.overrideErr = errors.New("write failed")
	svc := NewExamService(repo, tx, nil, nil, nil, ExamServiceConfig{})

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.EditGroup(context.Background(), "s-1", groupRequest(intPtr(3)))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExamServiceEditGroupUnknownGroup(t *testing.T) {
	repo := newExamRepoStub(groupExams(t)...)
	svc := NewExamService(repo, nil, nil, nil, nil, ExamServiceConfig{})

	req := groupRequest(intPtr(2))
	req.StartTime = "10:00"
	_, err := svc.EditGroup(context.Background(), "s-1", req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestExamServiceEditGroupValidates(t *testing.T) {
	svc := NewExamService(newExamRepoStub(), nil, nil, nil, nil, ExamServiceConfig{})

	req := groupRequest(intPtr(-1))
	_, err := svc.EditGroup(context.Background(), "s-1", req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	req = groupRequest(intPtr(1))
	req.Date = "10/06/2024"
	_, err = svc.EditGroup(context.Background(), "s-1", req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestExamServiceUpdateStatus(t *testing.T) {
	cases := []struct {
		name    string
		from    models.ValidationStatus
		to      models.ValidationStatus
		wantErr *appErrors.Error
	}{
		{name: "start review", from: models.ExamStatusNotProcessed, to: models.ExamStatusInProgress},
		{name: "validate", from: models.ExamStatusInProgress, to: models.ExamStatusValidated},
		{name: "reject", from: models.ExamStatusNotProcessed, to: models.ExamStatusRejected},
		{name: "same status", from: models.ExamStatusValidated, to: models.ExamStatusValidated},
		{name: "un-validate", from: models.ExamStatusValidated, to: models.ExamStatusInProgress, wantErr: appErrors.ErrInvalidTransition},
		{name: "skip review", from: models.ExamStatusNotProcessed, to: models.ExamStatusValidated, wantErr: appErrors.ErrInvalidTransition},
		{name: "reopen rejected", from: models.ExamStatusRejected, to: models.ExamStatusNotProcessed, wantErr: appErrors.ErrInvalidTransition},
		{name: "unknown", from: models.ExamStatusNotProcessed, to: "archived", wantErr: appErrors.ErrValidation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newExamRepoStub(models.Exam{ID: "e-1", SessionID: "s-1", ValidationStatus: tc.from})
			svc := NewExamService(repo, nil, nil, nil, nil, ExamServiceConfig{})

			exam, err := svc.UpdateStatus(context.Background(), "e-1", dto.UpdateExamStatusRequest{Status: tc.to})
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tc.wantErr))
				assert.Equal(t, tc.from, repo.exams["e-1"].ValidationStatus)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.to, exam.ValidationStatus)
			if tc.from == tc.to {
				assert.Empty(t, repo.statuses)
			}
		})
	}
}

func TestExamServiceListRejectsUnknownStatus(t *testing.T) {
	repo := newExamRepoStub(groupExams(t)...)
	svc := NewExamService(repo, nil, nil, nil, nil, ExamServiceConfig{})

	_, _, err := svc.List(context.Background(), "s-1", dto.ExamListQuery{Status: "done"})
	require.Error(t, err)

	exams, page, err := svc.List(context.Background(), "s-1", dto.ExamListQuery{Status: "IN_PROGRESS", Date: "2024-06-10", PageSize: 1000})
	require.NoError(t, err)
	assert.Len(t, exams, 4)
	assert.Equal(t, 500, page.PageSize)
	require.NotNil(t, repo.lastFilter.Status)
	assert.Equal(t, models.ExamStatusInProgress, *repo.lastFilter.Status)
	require.NotNil(t, repo.lastFilter.Date)
}
