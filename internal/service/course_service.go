package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/crams-api/internal/models"
	"github.com/noah-isme/crams-api/internal/repository"
	"github.com/noah-isme/crams-api/pkg/cache"
	appErrors "github.com/noah-isme/crams-api/pkg/errors"
)

type courseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Course, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	Update(ctx context.Context, course *models.Course) error
	Deactivate(ctx context.Context, id string) (bool, error)
	Departments(ctx context.Context) ([]string, error)
}

type capacityAdjuster interface {
	IncreaseCapacity(ctx context.Context, courseID string, newCapacity int) (*models.CapacityResult, error)
}

// CourseService manages the course catalog. Seat counts are owned by the enrollment ledger.
type CourseService struct {
	repo      courseRepository
	ledger    capacityAdjuster
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseRepository, ledger capacityAdjuster, cacheSvc *CacheService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, ledger: ledger, cache: cacheSvc, validator: validate, logger: logger}
}

// List returns active courses with derived seat availability and reports whether the cache served it.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseView, bool, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	key := cache.CourseListKey(filter.Department, filter.Semester, filter.Year, strings.ToLower(filter.Search))

	var cached []models.CourseView
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, true, nil
	}

	courses, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to list courses")
	}
	views := make([]models.CourseView, 0, len(courses))
	for _, c := range courses {
		views = append(views, models.NewCourseView(c))
	}
	if err := s.cache.Set(ctx, key, views, 0); err != nil {
		s.logger.Debug("course list not cached", zap.Error(err))
	}
	return views, false, nil
}

// Get returns a single course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.CourseView, error) {
	var cached models.CourseView
	if hit, _ := s.cache.Get(ctx, cache.CourseKey(id), &cached); hit {
		return &cached, nil
	}
	course, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	view := models.NewCourseView(*course)
	_ = s.cache.Set(ctx, cache.CourseKey(id), view, 0)
	return &view, nil
}

// Create adds a course to the catalog.
func (s *CourseService) Create(ctx context.Context, req models.CreateCourseRequest) (*models.CourseView, error) {
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := &models.Course{
		Code:          req.Code,
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Credits:       req.Credits,
		Department:    strings.TrimSpace(req.Department),
		Prerequisites: pq.StringArray(req.Prerequisites),
		Capacity:      req.Capacity,
		ScheduleDays:  strings.ToUpper(strings.TrimSpace(req.ScheduleDays)),
		ScheduleTime:  strings.TrimSpace(req.ScheduleTime),
		Instructor:    req.Instructor,
		Semester:      strings.TrimSpace(req.Semester),
		Year:          req.Year,
		Active:        true,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course code already exists for this semester and year")
		}
		return nil, appErrors.Internal(err, "failed to create course")
	}
	s.invalidate(ctx)
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("code", course.Code))
	view := models.NewCourseView(*course)
	return &view, nil
}

// Update edits catalog fields. A capacity change is delegated to the ledger first
// so pending selections are reconciled against the new seat count. A course being
// reactivated in the same patch is reactivated before the ledger sees it.
func (s *CourseService) Update(ctx context.Context, id string, req models.UpdateCourseRequest) (*models.CourseView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Capacity != nil && *req.Capacity != course.Capacity {
		reactivated := false
		if req.Active != nil && *req.Active && !course.Active {
			course.Active = true
			if err := s.save(ctx, course); err != nil {
				return nil, err
			}
			reactivated = true
		}
		result, err := s.ledger.IncreaseCapacity(ctx, id, *req.Capacity)
		if err != nil {
			if reactivated {
				course.Active = false
				if restoreErr := s.save(ctx, course); restoreErr != nil {
					s.logger.Warn("failed to restore course state", zap.String("course_id", id), zap.Error(restoreErr))
				}
				s.invalidate(ctx)
			}
			return nil, err
		}
		course.Capacity = result.Course.Capacity
		course.Enrolled = result.Course.Enrolled
	}

	applyCourseUpdate(course, req)
	if err := s.save(ctx, course); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	view := models.NewCourseView(*course)
	return &view, nil
}

// Deactivate soft deletes a course.
func (s *CourseService) Deactivate(ctx context.Context, id string) error {
	ok, err := s.repo.Deactivate(ctx, id)
	if err != nil {
		return appErrors.Internal(err, "failed to deactivate course")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	s.invalidate(ctx)
	return nil
}

// Departments lists the departments offering active courses.
func (s *CourseService) Departments(ctx context.Context) ([]string, error) {
	departments, err := s.repo.Departments(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list departments")
	}
	if departments == nil {
		departments = []string{}
	}
	return departments, nil
}

// CheckConflicts reports pairs of active courses meeting at the same time on a shared day.
func (s *CourseService) CheckConflicts(ctx context.Context, req models.CheckConflictsRequest) (*models.ConflictCheckResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "course_ids is required")
	}
	courses, err := s.repo.FindByIDs(ctx, dedupe(req.CourseIDs))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load courses")
	}

	active := make([]models.Course, 0, len(courses))
	for _, c := range courses {
		if c.Active {
			active = append(active, c)
		}
	}

	result := &models.ConflictCheckResult{Conflicts: findScheduleConflicts(active)}
	result.HasConflicts = len(result.Conflicts) > 0
	return result, nil
}

func (s *CourseService) load(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Internal(err, "failed to load course")
	}
	return course, nil
}

func (s *CourseService) save(ctx context.Context, course *models.Course) error {
	if err := s.repo.Update(ctx, course); err != nil {
		if repository.IsUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "course code already exists for this semester and year")
		}
		return appErrors.Internal(err, "failed to update course")
	}
	return nil
}

func (s *CourseService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, cache.PrefixCourses+"*", cache.PrefixDashboard+"*", cache.PrefixSeatConflict+"*", cache.PrefixScheduleStats+"*")
}

func applyCourseUpdate(course *models.Course, req models.UpdateCourseRequest) {
	if req.Name != nil {
		course.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		course.Description = req.Description
	}
	if req.Credits != nil {
		course.Credits = *req.Credits
	}
	if req.Department != nil {
		course.Department = strings.TrimSpace(*req.Department)
	}
	if req.Prerequisites != nil {
		course.Prerequisites = pq.StringArray(req.Prerequisites)
	}
	if req.ScheduleDays != nil {
		course.ScheduleDays = strings.ToUpper(strings.TrimSpace(*req.ScheduleDays))
	}
	if req.ScheduleTime != nil {
		course.ScheduleTime = strings.TrimSpace(*req.ScheduleTime)
	}
	if req.Instructor != nil {
		course.Instructor = req.Instructor
	}
	if req.Semester != nil {
		course.Semester = strings.TrimSpace(*req.Semester)
	}
	if req.Year != nil {
		course.Year = *req.Year
	}
	if req.Active != nil {
		course.Active = *req.Active
	}
}

// findScheduleConflicts pairs every two courses whose schedules overlap, in input order.
func findScheduleConflicts(courses []models.Course) []models.ScheduleConflict {
	conflicts := []models.ScheduleConflict{}
	for i := 0; i < len(courses); i++ {
		for j := i + 1; j < len(courses); j++ {
			if schedulesOverlap(courses[i], courses[j]) {
				conflicts = append(conflicts, models.ScheduleConflict{
					First:  slotOf(courses[i]),
					Second: slotOf(courses[j]),
				})
			}
		}
	}
	return conflicts
}

// schedulesOverlap matches when the day letters intersect and the time strings are identical.
func schedulesOverlap(a, b models.Course) bool {
	if a.ScheduleTime != b.ScheduleTime {
		return false
	}
	return strings.ContainsAny(a.ScheduleDays, b.ScheduleDays)
}

func slotOf(c models.Course) models.CourseSlot {
	return models.CourseSlot{ID: c.ID, Code: c.Code, Name: c.Name, Schedule: c.ScheduleDays + " " + c.ScheduleTime}
}
