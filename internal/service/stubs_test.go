package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-surveillance-api/internal/models"
	appErrors "github.com/noah-isme/exam-surveillance-api/pkg/errors"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

type memoryCacheRepo struct {
	items   map[string][]byte
	deleted []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	prefix, wildcard := strings.CutSuffix(pattern, "*")
	for key := range m.items {
		if key == pattern || (wildcard && strings.HasPrefix(key, prefix)) {
			delete(m.items, key)
		}
	}
	return nil
}

func newTestCache(repo *memoryCacheRepo) *CacheService {
	return NewCacheService(repo, nil, time.Minute, nil, true)
}

type examRepoStub struct {
	exams       map[string]*models.Exam
	listErr     error
	overrideErr error
	overrides   map[string]*int
	snapshots   []models.ExamSnapshot
	synced      []string
	statuses    map[string]models.ValidationStatus
	lastFilter  models.ExamFilter
}

func newExamRepoStub(exams ...models.Exam) *examRepoStub {
	stub := &examRepoStub{
		exams:     map[string]*models.Exam{},
		overrides: map[string]*int{},
		statuses:  map[string]models.ValidationStatus{},
	}
	for i := range exams {
		exam := exams[i]
		stub.exams[exam.ID] = &exam
	}
	return stub
}

func (r *examRepoStub) sorted() []models.Exam {
	out := make([]models.Exam, 0, len(r.exams))
	for _, e := range r.exams {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *examRepoStub) List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error) {
	r.lastFilter = filter
	if r.listErr != nil {
		return nil, 0, r.listErr
	}
	var out []models.Exam
	for _, e := range r.sorted() {
		if e.SessionID == filter.SessionID {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (r *examRepoStub) ListActiveBySession(ctx context.Context, sessionID string) ([]models.Exam, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []models.Exam
	for _, e := range r.sorted() {
		if e.SessionID == sessionID && e.Active {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *examRepoStub) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	exam, ok := r.exams[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *exam
	return &copied, nil
}

func (r *examRepoStub) UpdateStatus(ctx context.Context, id string, status models.ValidationStatus) error {
	exam, ok := r.exams[id]
	if !ok {
		return sql.ErrNoRows
	}
	exam.ValidationStatus = status
	r.statuses[id] = status
	return nil
}

func (r *examRepoStub) SetTheoreticalOverride(ctx context.Context, exec sqlx.ExtContext, id string, value *int) error {
	if r.overrideErr != nil {
		return r.overrideErr
	}
	r.overrides[id] = value
	return nil
}

func (r *examRepoStub) UpdateSnapshot(ctx context.Context, exec sqlx.ExtContext, snapshot models.ExamSnapshot) (bool, error) {
	r.snapshots = append(r.snapshots, snapshot)
	exam, ok := r.exams[snapshot.ExamID]
	if !ok {
		return false, nil
	}
	theo := snapshot.TheoreticalCount
	changed := exam.TheoreticalCount == nil || *exam.TheoreticalCount != theo ||
		exam.TeacherCount != snapshot.TeacherCount ||
		exam.HelperCount != snapshot.HelperCount ||
		exam.PreAssignedCount != snapshot.PreAssignedCount
	exam.TheoreticalCount = &theo
	exam.TeacherCount = snapshot.TeacherCount
	exam.HelperCount = snapshot.HelperCount
	exam.PreAssignedCount = snapshot.PreAssignedCount
	return changed, nil
}

func (r *examRepoStub) SyncPreAssignedCount(ctx context.Context, exec sqlx.ExtContext, examID string) error {
	r.synced = append(r.synced, examID)
	return nil
}

func intPtr(v int) *int {
	return &v
}

func examDate(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", raw)
	require.NoError(t, err)
	return d
}
