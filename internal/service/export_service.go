package service

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-surveillance-api/internal/dto"
	"github.com/noah-isme/exam-surveillance-api/internal/models"
	"github.com/noah-isme/exam-surveillance-api/internal/requirement"
	"github.com/noah-isme/exam-surveillance-api/pkg/export"
	"github.com/noah-isme/exam-surveillance-api/pkg/storage"
)

type requirementSource interface {
	Session(ctx context.Context, sessionID string) (*dto.SessionRequirementsResponse, bool, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds staffing datasets and persists rendered files.
type ExportService struct {
	requirements requirementSource
	storage      fileStorage
	csv          csvRenderer
	pdf          pdfRenderer
	signer       *storage.SignedURLSigner
	logger       *zap.Logger
	cfg          ExportConfig
	now          func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(requirements requirementSource, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		requirements: requirements,
		storage:      store,
		csv:          csv,
		pdf:          pdf,
		signer:       signer,
		logger:       logger,
		cfg:          cfg,
		now:          time.Now,
	}
}

// Generate builds the dataset of the job, renders it and stores the file.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Debug("report rendered", zap.String("job_id", job.ID), zap.String("path", relPath), zap.Int("bytes", len(payload)))
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), sanitizeFilename(job.Params.SessionID), timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	if job.Params.SessionID == "" {
		return export.Dataset{}, "", fmt.Errorf("report job %s has no session", job.ID)
	}
	result, _, err := s.requirements.Session(ctx, job.Params.SessionID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	switch job.Type {
	case models.ReportTypeRequirements:
		return requirementsDataset(result), fmt.Sprintf("Surveillance Requirements %s", job.Params.SessionID), nil
	case models.ReportTypeUnmatchedRooms:
		return unmatchedRoomsDataset(result), fmt.Sprintf("Rooms Without Constraint %s", job.Params.SessionID), nil
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

var requirementHeaders = []string{"Date", "Start", "End", "Code", "Subject", "Room", "Rows", "Theoretical", "Teacher", "Helpers", "Pre-assigned", "Net Need"}

func requirementsDataset(resp *dto.SessionRequirementsResponse) export.Dataset {
	rows := make([]map[string]string, 0, len(resp.Groups))
	for _, g := range resp.Groups {
		rows = append(rows, map[string]string{
			"Date":         g.Key.Date,
			"Start":        g.Key.StartTime,
			"End":          g.EndTime,
			"Code":         g.Key.Code,
			"Subject":      g.Subject,
			"Room":         g.Key.Room,
			"Rows":         strconv.Itoa(len(g.Rows)),
			"Theoretical":  strconv.Itoa(g.Theoretical),
			"Teacher":      strconv.Itoa(g.TeacherPresent),
			"Helpers":      strconv.Itoa(g.HelpersCounted),
			"Pre-assigned": strconv.Itoa(g.PreAssigned),
			"Net Need":     strconv.Itoa(g.NetNeed),
		})
	}
	t := resp.Totals
	return export.Dataset{
		Headers: requirementHeaders,
		Rows:    rows,
		Summary: []string{
			fmt.Sprintf("Groups: %d (%d rows)", t.Groups, t.Rows),
			fmt.Sprintf("Theoretical: %d, covered: %d, net need: %d", t.Theoretical, t.Covered, t.NetNeed),
			fmt.Sprintf("Rooms without constraint: %d", t.DefaultedRooms),
			fmt.Sprintf("Redistribution policy: %s", resp.Policy),
		},
	}
}

func unmatchedRoomsDataset(resp *dto.SessionRequirementsResponse) export.Dataset {
	exams := make(map[string]map[string]struct{})
	for _, g := range resp.Groups {
		for _, row := range g.Rows {
			for _, room := range row.Rooms {
				if !room.Defaulted() {
					continue
				}
				key := requirement.NormalizeRoom(room.Room)
				if exams[key] == nil {
					exams[key] = make(map[string]struct{})
				}
				exams[key][row.Code] = struct{}{}
			}
		}
	}

	rows := make([]map[string]string, 0, len(resp.UnmatchedRooms))
	for _, room := range resp.UnmatchedRooms {
		codes := make([]string, 0)
		for code := range exams[requirement.NormalizeRoom(room)] {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		rows = append(rows, map[string]string{
			"Room":             room,
			"Exams":            strings.Join(codes, ", "),
			"Assumed Required": strconv.Itoa(requirement.DefaultRequirement),
		})
	}
	return export.Dataset{
		Headers: []string{"Room", "Exams", "Assumed Required"},
		Rows:    rows,
		Summary: []string{fmt.Sprintf("Rooms without constraint: %d", len(rows))},
	}
}
