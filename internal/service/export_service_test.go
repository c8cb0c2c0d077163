package service

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-surveillance-api/internal/dto"
	"github.com/noah-isme/exam-surveillance-api/internal/models"
	"github.com/noah-isme/exam-surveillance-api/internal/requirement"
	"github.com/noah-isme/exam-surveillance-api/pkg/export"
	"github.com/noah-isme/exam-surveillance-api/pkg/storage"
)

type requirementSourceStub struct {
	sessions []string
}

func (r *requirementSourceStub) Session(ctx context.Context, sessionID string) (*dto.SessionRequirementsResponse, bool, error) {
	r.sessions = append(r.sessions, sessionID)
	table := requirement.NewConstraintTable([]models.RoomConstraint{{RoomLabel: "Amphi A", RequiredCount: 2}})
	date, _ := time.Parse("2006-01-02", "2024-06-10")
	inputs := []requirement.Input{
		{Exam: models.Exam{ID: "e-1", Code: "MATH101", Subject: "Algebra", ExamDate: date, StartTime: "09:00", EndTime: "11:00", RoomLabel: "Amphi A"}},
		{Exam: models.Exam{ID: "e-2", Code: "PHYS200", Subject: "Optics", ExamDate: date, StartTime: "14:00", EndTime: "16:00", RoomLabel: "Lab X, Lab Y"}},
	}
	result := requirement.Compute(sessionID, inputs, table)
	return &dto.SessionRequirementsResponse{Result: result, Policy: requirement.PolicyCeil}, false, nil
}

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}
	svc := NewExportService(&requirementSourceStub{}, store, signer, cfg, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
	return svc, store
}

func TestExportServiceGenerateRequirementsCSV(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-1",
		Type:      models.ReportTypeRequirements,
		Params:    models.ReportJobParams{SessionID: "s-1", Format: models.ReportFormatCSV},
		CreatedBy: "admin",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/export/"))
	assert.True(t, strings.HasPrefix(filepath.Base(result.RelativePath), "requirements_s-1_"))

	text := string(readStored(t, store, result.RelativePath))
	assert.Contains(t, text, "Date,Start,End,Code,Subject,Room,Rows,Theoretical,Teacher,Helpers,Pre-assigned,Net Need")
	assert.Contains(t, text, "2024-06-10,09:00,11:00,MATH101,Algebra,Amphi,1,2,0,0,0,2")
	assert.Contains(t, text, "Rooms without constraint: 2")
}

func TestExportServiceGenerateUnmatchedRoomsPDF(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-2",
		Type:      models.ReportTypeUnmatchedRooms,
		Params:    models.ReportJobParams{SessionID: "s-1", Format: models.ReportFormatPDF},
		CreatedBy: "admin",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, models.ReportFormatPDF, result.Format)

	content := readStored(t, store, result.RelativePath)
	require.NotEmpty(t, content)
	assert.True(t, strings.HasPrefix(string(content), "%PDF"))
}

func readStored(t *testing.T, store *storage.LocalStorage, rel string) []byte {
	t.Helper()
	f, err := store.Open(rel)
	require.NoError(t, err)
	defer f.Close()
	content, err := io.ReadAll(f)
	require.NoError(t, err)
	return content
}

func TestUnmatchedRoomsDataset(t *testing.T) {
	resp, _, err := (&requirementSourceStub{}).Session(context.Background(), "s-1")
	require.NoError(t, err)

	dataset := unmatchedRoomsDataset(resp)
	require.Len(t, dataset.Rows, 2)
	assert.Equal(t, "Lab X", dataset.Rows[0]["Room"])
	assert.Equal(t, "PHYS200", dataset.Rows[0]["Exams"])
	assert.Equal(t, "1", dataset.Rows[0]["Assumed Required"])
	assert.Equal(t, "Lab Y", dataset.Rows[1]["Room"])
}

func TestExportServiceRejectsJobWithoutSession(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	_, err := svc.Generate(context.Background(), &models.ReportJob{
		ID:     "job-3",
		Type:   models.ReportTypeRequirements,
		Params: models.ReportJobParams{Format: models.ReportFormatCSV},
	})
	require.Error(t, err)
}
