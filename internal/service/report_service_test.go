package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/crams-api/internal/models"
	appErrors "github.com/noah-isme/crams-api/pkg/errors"
	"github.com/noah-isme/crams-api/pkg/export"
)

type memoryCacheRepo struct {
	items map[string][]byte
	sets  int
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
	m.sets++
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	for key := range m.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.items, key)
		}
	}
	return nil
}

type reportStoreStub struct {
	roles      []models.RoleCount
	totals     models.EnrollmentTotals
	recent     []models.RecentActivity
	enrollment []models.EnrollmentReportRow
	advisors   []models.AdvisorActivityRow
	progress   []models.StudentProgressRow
	near       []models.SeatConflictCourse
	waitlisted []models.SeatConflictCourse
	slots      []models.TimeSlotUsage
	depts      []models.DepartmentUtilization
	schedules  []models.Course
	slotLimit  int
	ratio      float64
	calls      int
	err        error
}

func (r *reportStoreStub) RoleCounts(ctx context.Context) ([]models.RoleCount, error) {
	r.calls++
	return r.roles, r.err
}

func (r *reportStoreStub) EnrollmentTotals(ctx context.Context) (models.EnrollmentTotals, error) {
	return r.totals, nil
}

func (r *reportStoreStub) RecentActivity(ctx context.Context, limit int) ([]models.RecentActivity, error) {
	return r.recent, nil
}

func (r *reportStoreStub) EnrollmentReport(ctx context.Context) ([]models.EnrollmentReportRow, error) {
	return r.enrollment, r.err
}

func (r *reportStoreStub) AdvisorActivity(ctx context.Context) ([]models.AdvisorActivityRow, error) {
	return r.advisors, r.err
}

func (r *reportStoreStub) StudentProgress(ctx context.Context) ([]models.StudentProgressRow, error) {
	return r.progress, r.err
}

func (r *reportStoreStub) NearCapacity(ctx context.Context, ratio float64) ([]models.SeatConflictCourse, error) {
	r.calls++
	r.ratio = ratio
	return r.near, r.err
}

func (r *reportStoreStub) Waitlisted(ctx context.Context) ([]models.SeatConflictCourse, error) {
	return r.waitlisted, nil
}

func (r *reportStoreStub) TimeSlotUsage(ctx context.Context, limit int) ([]models.TimeSlotUsage, error) {
	r.calls++
	r.slotLimit = limit
	return r.slots, r.err
}

func (r *reportStoreStub) DepartmentUtilization(ctx context.Context) ([]models.DepartmentUtilization, error) {
	return r.depts, nil
}

func (r *reportStoreStub) ActiveSchedules(ctx context.Context) ([]models.Course, error) {
	return r.schedules, nil
}

type selectionCounterStub struct {
	counts  models.SelectionStatusCounts
	advisor string
}

func (s *selectionCounterStub) CountByStatus(ctx context.Context, advisorID string) (models.SelectionStatusCounts, error) {
	s.advisor = advisorID
	return s.counts, nil
}

func newReportFixture(store *reportStoreStub, cacheRepo CacheRepository) *ReportService {
	var cacheSvc *CacheService
	if cacheRepo != nil {
		cacheSvc = NewCacheService(cacheRepo, NewMetricsService(), time.Minute, nil, true)
	}
	svc := NewReportService(store, &selectionCounterStub{counts: models.SelectionStatusCounts{Pending: 3, Approved: 5, Rejected: 1}}, cacheSvc, nil, ReportServiceConfig{NearCapacityRatio: 0.8})
	svc.now = func() time.Time { return time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC) }
	return svc
}

func TestReportServiceDashboard(t *testing.T) {
	store := &reportStoreStub{
		roles:  []models.RoleCount{{Role: models.RoleStudent, Count: 40}, {Role: models.RoleAdvisor, Count: 4}},
		totals: models.EnrollmentTotals{ActiveCourses: 3, TotalCapacity: 90, TotalEnrollment: 30},
	}
	repo := newMemoryCacheRepo()
	svc := newReportFixture(store, repo)

	stats, hit, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 40, stats.Users[models.RoleStudent])
	assert.Equal(t, 0, stats.Users[models.RoleAdmin])
	assert.Equal(t, 3, stats.ActiveCourses)
	assert.Equal(t, 9, stats.Selections.Total())
	assert.InDelta(t, 33.33, stats.UtilizationPercent, 0.001)
	assert.NotNil(t, stats.RecentActivity)

	cached, hit, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, stats.ActiveCourses, cached.ActiveCourses)
	assert.Equal(t, 1, store.calls)
}

func TestReportServiceDashboardWithoutCache(t *testing.T) {
	store := &reportStoreStub{}
	svc := newReportFixture(store, nil)

	stats, hit, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Zero(t, stats.UtilizationPercent)

	_, _, err = svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, store.calls)
}

func TestReportServiceDashboardFailure(t *testing.T) {
	svc := newReportFixture(&reportStoreStub{err: errors.New("db down")}, nil)
	_, _, err := svc.Dashboard(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestReportServiceSeatConflicts(t *testing.T) {
	store := &reportStoreStub{
		near:       []models.SeatConflictCourse{{ID: "c1", Code: "CS101", Capacity: 10, Enrolled: 9}},
		waitlisted: []models.SeatConflictCourse{{ID: "c2", Code: "MA201", Capacity: 5, Enrolled: 5, Pending: 2}},
	}
	repo := newMemoryCacheRepo()
	svc := newReportFixture(store, repo)

	report, hit, err := svc.SeatConflicts(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 0.8, store.ratio)
	require.Len(t, report.NearCapacity, 1)
	require.Len(t, report.Waitlisted, 1)
	assert.Equal(t, 2, report.Waitlisted[0].Pending)

	require.NoError(t, repo.DeleteByPattern(context.Background(), "crams:admin:*"))
	_, hit, err = svc.SeatConflicts(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, store.calls)
}

func TestReportServiceScheduleStats(t *testing.T) {
	store := &reportStoreStub{
		slots: []models.TimeSlotUsage{{ScheduleTime: "09:00-10:00", CourseCount: 2, TotalEnrolled: 40}},
		depts: []models.DepartmentUtilization{{Department: "CS", CourseCount: 3, AvgUtilization: 66.67}},
		schedules: []models.Course{
			{ID: "c1", Code: "CS101", ScheduleDays: "MWF", ScheduleTime: "09:00-10:00"},
			{ID: "c2", Code: "CS102", ScheduleDays: "TR", ScheduleTime: "09:00-10:00"},
			{ID: "c3", Code: "MA201", ScheduleDays: "WF", ScheduleTime: "09:00-10:00"},
			{ID: "c4", Code: "PH110", ScheduleDays: "M", ScheduleTime: "13:00-14:00"},
		},
	}
	repo := newMemoryCacheRepo()
	svc := newReportFixture(store, repo)

	stats, hit, err := svc.ScheduleStats(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 10, store.slotLimit)
	require.Len(t, stats.TimeSlots, 1)
	require.Len(t, stats.Departments, 1)
	require.Len(t, stats.Conflicts, 1)
	assert.Equal(t, "CS101", stats.Conflicts[0].First.Code)
	assert.Equal(t, "MA201", stats.Conflicts[0].Second.Code)
	assert.Equal(t, "MWF 09:00-10:00", stats.Conflicts[0].First.Schedule)

	stats, hit, err = svc.ScheduleStats(context.Background())
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Len(t, stats.Conflicts, 1)
	assert.Equal(t, 1, store.calls)
}

func TestReportServiceScheduleStatsNeverNil(t *testing.T) {
	svc := newReportFixture(&reportStoreStub{}, nil)

	stats, _, err := svc.ScheduleStats(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, stats.TimeSlots)
	assert.NotNil(t, stats.Departments)
	assert.NotNil(t, stats.Conflicts)
	assert.Empty(t, stats.Conflicts)
}

func TestReportServiceScheduleStatsFailure(t *testing.T) {
	svc := newReportFixture(&reportStoreStub{err: errors.New("db down")}, nil)
	_, _, err := svc.ScheduleStats(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestReportServiceReportUnknownType(t *testing.T) {
	svc := newReportFixture(&reportStoreStub{}, nil)
	_, err := svc.Report(context.Background(), models.ReportType("grades"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestReportServiceExportCSV(t *testing.T) {
	store := &reportStoreStub{enrollment: []models.EnrollmentReportRow{
		{CourseCode: "CS101", CourseName: "Intro", Department: "CS", Capacity: 30, Enrolled: 15, Pending: 4, Approved: 15, UtilizationPct: 50},
	}}
	svc := newReportFixture(store, nil)

	file, err := svc.Export(context.Background(), models.ReportEnrollment, export.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "enrollment-report-20240901-080000.csv", file.Name)
	lines := strings.Split(strings.TrimSpace(string(file.Payload)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Course Code,Course Name"))
	assert.Equal(t, "CS101,Intro,CS,30,15,4,15,0,50.00", lines[1])
}

func TestReportServiceExportPDF(t *testing.T) {
	number := "S-001"
	year := 2
	store := &reportStoreStub{progress: []models.StudentProgressRow{
		{StudentName: "Ana Lee", StudentNumber: &number, YearLevel: &year, TotalSelections: 3, Approved: 2, ApprovedCredits: 6},
	}}
	svc := newReportFixture(store, nil)

	file, err := svc.Export(context.Background(), models.ReportStudentProgress, export.FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Payload, []byte("%PDF")))
}
