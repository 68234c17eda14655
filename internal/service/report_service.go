package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/crams-api/internal/models"
	"github.com/noah-isme/crams-api/pkg/cache"
	appErrors "github.com/noah-isme/crams-api/pkg/errors"
	"github.com/noah-isme/crams-api/pkg/export"
)

type reportStore interface {
	RoleCounts(ctx context.Context) ([]models.RoleCount, error)
	EnrollmentTotals(ctx context.Context) (models.EnrollmentTotals, error)
	RecentActivity(ctx context.Context, limit int) ([]models.RecentActivity, error)
	EnrollmentReport(ctx context.Context) ([]models.EnrollmentReportRow, error)
	AdvisorActivity(ctx context.Context) ([]models.AdvisorActivityRow, error)
	StudentProgress(ctx context.Context) ([]models.StudentProgressRow, error)
	NearCapacity(ctx context.Context, ratio float64) ([]models.SeatConflictCourse, error)
	Waitlisted(ctx context.Context) ([]models.SeatConflictCourse, error)
	TimeSlotUsage(ctx context.Context, limit int) ([]models.TimeSlotUsage, error)
	DepartmentUtilization(ctx context.Context) ([]models.DepartmentUtilization, error)
	ActiveSchedules(ctx context.Context) ([]models.Course, error)
}

type selectionCounter interface {
	CountByStatus(ctx context.Context, advisorID string) (models.SelectionStatusCounts, error)
}

// ReportServiceConfig tunes admin projections.
type ReportServiceConfig struct {
	CacheTTL            time.Duration
	NearCapacityRatio   float64
	RecentActivityLimit int
	TimeSlotLimit       int
}

// ReportService builds the admin dashboard, tabular reports and the seat conflict view.
type ReportService struct {
	reports    reportStore
	selections selectionCounter
	cache      *CacheService
	logger     *zap.Logger
	now        func() time.Time
	cfg        ReportServiceConfig
}

// NewReportService constructs a ReportService with sane defaults.
func NewReportService(reports reportStore, selections selectionCounter, cacheSvc *CacheService, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.NearCapacityRatio <= 0 || cfg.NearCapacityRatio > 1 {
		cfg.NearCapacityRatio = 0.9
	}
	if cfg.RecentActivityLimit <= 0 {
		cfg.RecentActivityLimit = 10
	}
	if cfg.TimeSlotLimit <= 0 {
		cfg.TimeSlotLimit = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		reports:    reports,
		selections: selections,
		cache:      cacheSvc,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		cfg:        cfg,
	}
}

// Dashboard returns the admin overview and indicates cache utilisation.
func (s *ReportService) Dashboard(ctx context.Context) (*models.DashboardStats, bool, error) {
	var cached models.DashboardStats
	if hit, _ := s.cache.Get(ctx, cache.PrefixDashboard, &cached); hit {
		return &cached, true, nil
	}

	roles, err := s.reports.RoleCounts(ctx)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to count users")
	}
	totals, err := s.reports.EnrollmentTotals(ctx)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load enrollment totals")
	}
	counts, err := s.selections.CountByStatus(ctx, "")
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to count selections")
	}
	recent, err := s.reports.RecentActivity(ctx, s.cfg.RecentActivityLimit)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load recent activity")
	}

	stats := &models.DashboardStats{
		Users:           map[models.UserRole]int{models.RoleStudent: 0, models.RoleAdvisor: 0, models.RoleAdmin: 0},
		ActiveCourses:   totals.ActiveCourses,
		Selections:      counts,
		TotalCapacity:   totals.TotalCapacity,
		TotalEnrollment: totals.TotalEnrollment,
		RecentActivity:  recent,
		GeneratedAt:     s.now(),
	}
	for _, rc := range roles {
		stats.Users[rc.Role] = rc.Count
	}
	if totals.TotalCapacity > 0 {
		stats.UtilizationPercent = roundPercent(float64(totals.TotalEnrollment) / float64(totals.TotalCapacity) * 100)
	}
	if stats.RecentActivity == nil {
		stats.RecentActivity = []models.RecentActivity{}
	}

	s.persist(ctx, cache.PrefixDashboard, stats)
	return stats, false, nil
}

// SeatConflicts lists near-capacity and waitlisted courses.
func (s *ReportService) SeatConflicts(ctx context.Context) (*models.SeatConflictReport, bool, error) {
	var cached models.SeatConflictReport
	if hit, _ := s.cache.Get(ctx, cache.PrefixSeatConflict, &cached); hit {
		return &cached, true, nil
	}

	near, err := s.reports.NearCapacity(ctx, s.cfg.NearCapacityRatio)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load near-capacity courses")
	}
	waitlisted, err := s.reports.Waitlisted(ctx)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load waitlisted courses")
	}

	report := &models.SeatConflictReport{
		NearCapacity: nonNilCourses(near),
		Waitlisted:   nonNilCourses(waitlisted),
	}
	s.persist(ctx, cache.PrefixSeatConflict, report)
	return report, false, nil
}

// ScheduleStats reports the busiest time slots, per-department seat utilization and
// every pair of active courses whose meeting times collide.
func (s *ReportService) ScheduleStats(ctx context.Context) (*models.ScheduleStats, bool, error) {
	var cached models.ScheduleStats
	if hit, _ := s.cache.Get(ctx, cache.PrefixScheduleStats, &cached); hit {
		return &cached, true, nil
	}

	slots, err := s.reports.TimeSlotUsage(ctx, s.cfg.TimeSlotLimit)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load time slot usage")
	}
	departments, err := s.reports.DepartmentUtilization(ctx)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load department utilization")
	}
	courses, err := s.reports.ActiveSchedules(ctx)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load course schedules")
	}

	stats := &models.ScheduleStats{
		TimeSlots:   slots,
		Departments: departments,
		Conflicts:   findScheduleConflicts(courses),
		GeneratedAt: s.now(),
	}
	if stats.TimeSlots == nil {
		stats.TimeSlots = []models.TimeSlotUsage{}
	}
	if stats.Departments == nil {
		stats.Departments = []models.DepartmentUtilization{}
	}

	s.persist(ctx, cache.PrefixScheduleStats, stats)
	return stats, false, nil
}

// Report returns the rows of the requested report type.
func (s *ReportService) Report(ctx context.Context, reportType models.ReportType) (interface{}, error) {
	switch reportType {
	case models.ReportEnrollment:
		rows, err := s.reports.EnrollmentReport(ctx)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to build enrollment report")
		}
		return rows, nil
	case models.ReportAdvisorActivity:
		rows, err := s.reports.AdvisorActivity(ctx)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to build advisor activity report")
		}
		return rows, nil
	case models.ReportStudentProgress:
		rows, err := s.reports.StudentProgress(ctx)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to build student progress report")
		}
		return rows, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown report type %q", reportType))
	}
}

// Export renders a report as a downloadable CSV or PDF file.
func (s *ReportService) Export(ctx context.Context, reportType models.ReportType, format export.Format) (*export.File, error) {
	dataset, err := s.buildDataset(ctx, reportType)
	if err != nil {
		return nil, err
	}
	file, err := export.Render(dataset, format, string(reportType)+"-report")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unable to render report")
	}
	s.logger.Info("report exported",
		zap.String("type", string(reportType)),
		zap.String("format", string(format)),
		zap.Int("rows", len(dataset.Rows)),
	)
	return file, nil
}

func (s *ReportService) buildDataset(ctx context.Context, reportType models.ReportType) (export.Dataset, error) {
	data, err := s.Report(ctx, reportType)
	if err != nil {
		return export.Dataset{}, err
	}
	dataset := export.Dataset{GeneratedAt: s.now()}
	switch rows := data.(type) {
	case []models.EnrollmentReportRow:
		dataset.Title = "Enrollment Report"
		dataset.Headers = []string{"Course Code", "Course Name", "Department", "Capacity", "Enrolled", "Pending", "Approved", "Rejected", "Utilization (%)"}
		for _, row := range rows {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Course Code":     row.CourseCode,
				"Course Name":     row.CourseName,
				"Department":      row.Department,
				"Capacity":        strconv.Itoa(row.Capacity),
				"Enrolled":        strconv.Itoa(row.Enrolled),
				"Pending":         strconv.Itoa(row.Pending),
				"Approved":        strconv.Itoa(row.Approved),
				"Rejected":        strconv.Itoa(row.Rejected),
				"Utilization (%)": fmt.Sprintf("%.2f", row.UtilizationPct),
			})
		}
	case []models.AdvisorActivityRow:
		dataset.Title = "Advisor Activity Report"
		dataset.Headers = []string{"Advisor", "Email", "Students", "Reviews", "Approvals", "Rejections", "Last Review"}
		for _, row := range rows {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Advisor":     row.AdvisorName,
				"Email":       row.Email,
				"Students":    strconv.Itoa(row.AssignedStudents),
				"Reviews":     strconv.Itoa(row.ReviewsCompleted),
				"Approvals":   strconv.Itoa(row.Approvals),
				"Rejections":  strconv.Itoa(row.Rejections),
				"Last Review": formatReportTime(row.LastReviewAt),
			})
		}
	case []models.StudentProgressRow:
		dataset.Title = "Student Progress Report"
		dataset.Headers = []string{"Student", "Student Number", "Department", "Year", "Selections", "Approved", "Pending", "Credits"}
		for _, row := range rows {
			year := ""
			if row.YearLevel != nil {
				year = strconv.Itoa(*row.YearLevel)
			}
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Student":        row.StudentName,
				"Student Number": deref(row.StudentNumber),
				"Department":     deref(row.Department),
				"Year":           year,
				"Selections":     strconv.Itoa(row.TotalSelections),
				"Approved":       strconv.Itoa(row.Approved),
				"Pending":        strconv.Itoa(row.Pending),
				"Credits":        strconv.Itoa(row.ApprovedCredits),
			})
		}
	}
	return dataset, nil
}

func (s *ReportService) persist(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func nonNilCourses(rows []models.SeatConflictCourse) []models.SeatConflictCourse {
	if rows == nil {
		return []models.SeatConflictCourse{}
	}
	return rows
}

func roundPercent(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func formatReportTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
