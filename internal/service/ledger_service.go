package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/crams-api/internal/models"
	"github.com/noah-isme/crams-api/internal/repository"
	"github.com/noah-isme/crams-api/pkg/cache"
	appErrors "github.com/noah-isme/crams-api/pkg/errors"
)

// AutoApprovalComment is stored on selections approved by capacity reconciliation.
const AutoApprovalComment = "Auto-approved after capacity increase"

const manualResolutionComment = "Approved by administrator during seat conflict resolution"

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type ledgerCourseStore interface {
	GetForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Course, error)
	SetCapacity(ctx context.Context, exec sqlx.ExtContext, id string, capacity int) error
	IncrementEnrollment(ctx context.Context, exec sqlx.ExtContext, id string, delta int) error
}

type ledgerSelectionStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, selection *models.Selection) error
	ExistsForPair(ctx context.Context, exec sqlx.ExtContext, studentID, courseID string) (bool, error)
	CourseIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) (map[string]string, error)
	GetForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Selection, error)
	SetReview(ctx context.Context, exec sqlx.ExtContext, review models.SelectionReview) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
	UpdatePriority(ctx context.Context, exec sqlx.ExtContext, id string, priority int) error
	ListPendingOrderedByAge(ctx context.Context, exec sqlx.ExtContext, courseID string, limit int) ([]models.Selection, error)
	FindPendingIDsForStudents(ctx context.Context, courseID string, studentIDs []string) ([]string, error)
}

type notificationSink interface {
	Create(ctx context.Context, exec sqlx.ExtContext, n *models.Notification) error
}

type assignmentChecker interface {
	IsAssigned(ctx context.Context, exec sqlx.ExtContext, advisorID, studentID string) (bool, error)
}

// NotificationPublisher pushes committed notifications to connected clients.
type NotificationPublisher interface {
	Publish(n models.Notification)
}

// LedgerDeps bundles collaborators of the EnrollmentLedger.
type LedgerDeps struct {
	Courses       ledgerCourseStore
	Selections    ledgerSelectionStore
	Notifications notificationSink
	Assignments   assignmentChecker
	Tx            txProvider
	Publisher     NotificationPublisher
	Cache         *CacheService
	Metrics       *MetricsService
	Validator     *validator.Validate
	Logger        *zap.Logger
	Now           func() time.Time
}

// EnrollmentLedger is the only writer of selection status and course enrollment.
// Every operation runs in one transaction that locks the rows it decides on.
// Course rows are always locked before selection rows, and courses in ascending id order.
type EnrollmentLedger struct {
	courses       ledgerCourseStore
	selections    ledgerSelectionStore
	notifications notificationSink
	assignments   assignmentChecker
	tx            txProvider
	publisher     NotificationPublisher
	cache         *CacheService
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	now           func() time.Time
}

// NewEnrollmentLedger wires the ledger.
func NewEnrollmentLedger(deps LedgerDeps) *EnrollmentLedger {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &EnrollmentLedger{
		courses:       deps.Courses,
		selections:    deps.Selections,
		notifications: deps.Notifications,
		assignments:   deps.Assignments,
		tx:            deps.Tx,
		publisher:     deps.Publisher,
		cache:         deps.Cache,
		metrics:       deps.Metrics,
		validator:     deps.Validator,
		logger:        deps.Logger,
		now:           deps.Now,
	}
}

// reviewTarget is a selection to review together with the course row locked ahead of it.
type reviewTarget struct {
	selectionID string
	courseID    string
}

// reviewOutcome is the result of one successful review inside a transaction.
type reviewOutcome struct {
	selection    models.Selection
	notification models.Notification
	courseID     string
}

// CreateSelection records a pending selection for the calling student.
func (l *EnrollmentLedger) CreateSelection(ctx context.Context, actor models.Actor, req models.CreateSelectionRequest) (sel *models.Selection, err error) {
	if err := l.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid selection payload")
	}
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can select courses")
	}
	start := time.Now()
	defer func() { l.record("create_selection", start, err) }()

	tx, err := l.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	course, err := l.lockCourse(ctx, tx, req.CourseID)
	if err != nil {
		return nil, err
	}
	if !course.Active {
		err = appErrors.Clone(appErrors.ErrCourseInactive, fmt.Sprintf("course %s is not active", course.Code))
		return nil, err
	}

	exists, err := l.selections.ExistsForPair(ctx, tx, actor.UserID, course.ID)
	if err != nil {
		err = appErrors.Internal(err, "failed to check existing selection")
		return nil, err
	}
	if exists {
		err = appErrors.Clone(appErrors.ErrDuplicateSelection, fmt.Sprintf("course %s already selected", course.Code))
		return nil, err
	}

	sel = &models.Selection{
		StudentID:  actor.UserID,
		CourseID:   course.ID,
		Status:     models.SelectionPending,
		Priority:   req.Priority,
		SelectedAt: l.now(),
	}
	if err = l.selections.Create(ctx, tx, sel); err != nil {
		if repository.IsUniqueViolation(err) {
			err = appErrors.Clone(appErrors.ErrDuplicateSelection, fmt.Sprintf("course %s already selected", course.Code))
			return nil, err
		}
		err = appErrors.Internal(err, "failed to create selection")
		return nil, err
	}

	note := models.Notification{
		UserID:   actor.UserID,
		Title:    "Course Selection Submitted",
		Body:     fmt.Sprintf("Your selection of %s - %s is pending advisor review.", course.Code, course.Name),
		Category: models.NotificationSelectionSubmitted,
	}
	if err = l.notify(ctx, tx, &note); err != nil {
		return nil, err
	}

	if err = l.commit(tx); err != nil {
		return nil, err
	}

	l.afterCommit(ctx, []models.Notification{note}, false)
	return sel, nil
}

// RemoveSelection withdraws a pending selection owned by the caller.
func (l *EnrollmentLedger) RemoveSelection(ctx context.Context, actor models.Actor, selectionID string) (err error) {
	start := time.Now()
	defer func() { l.record("remove_selection", start, err) }()

	tx, err := l.begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	sel, err := l.lockOwnedPending(ctx, tx, actor, selectionID, "withdrawn")
	if err != nil {
		return err
	}
	if err = l.selections.Delete(ctx, tx, sel.ID); err != nil {
		err = appErrors.Internal(err, "failed to delete selection")
		return err
	}
	if err = l.commit(tx); err != nil {
		return err
	}

	l.afterCommit(ctx, nil, false)
	return nil
}

// UpdatePriority changes the priority of a pending selection owned by the caller.
func (l *EnrollmentLedger) UpdatePriority(ctx context.Context, actor models.Actor, selectionID string, req models.UpdatePriorityRequest) (sel *models.Selection, err error) {
	if err := l.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "priority must be a positive integer")
	}
	start := time.Now()
	defer func() { l.record("update_priority", start, err) }()

	tx, err := l.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	sel, err = l.lockOwnedPending(ctx, tx, actor, selectionID, "reprioritised")
	if err != nil {
		return nil, err
	}
	if err = l.selections.UpdatePriority(ctx, tx, sel.ID, req.Priority); err != nil {
		err = appErrors.Internal(err, "failed to update selection priority")
		return nil, err
	}
	if err = l.commit(tx); err != nil {
		return nil, err
	}
	sel.Priority = req.Priority
	return sel, nil
}

// Review applies an advisor or admin decision to one pending selection.
func (l *EnrollmentLedger) Review(ctx context.Context, actor models.Actor, selectionID string, req models.ReviewSelectionRequest) (sel *models.Selection, err error) {
	if err := l.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { l.record("review", start, err) }()

	tx, err := l.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	targets, missing, err := l.planReviews(ctx, tx, []string{selectionID})
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		err = appErrors.Clone(appErrors.ErrNotFound, "selection not found")
		return nil, err
	}
	outcome, err := l.reviewOne(ctx, tx, actor, targets[0], req.Decision, req.Comment)
	if err != nil {
		return nil, err
	}
	if err = l.commit(tx); err != nil {
		return nil, err
	}

	l.afterCommit(ctx, []models.Notification{outcome.notification}, req.Decision == models.DecisionApproved)
	return &outcome.selection, nil
}

// BulkReview applies one decision to many selections in a single transaction.
// Business rule failures skip the item; infrastructure failures abort the batch.
func (l *EnrollmentLedger) BulkReview(ctx context.Context, actor models.Actor, req models.BulkReviewRequest) (result *models.BulkReviewResult, err error) {
	if err := l.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk review payload")
	}
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { l.record("bulk_review", start, err) }()

	ids := dedupe(req.SelectionIDs)
	result = &models.BulkReviewResult{Requested: len(ids), Skipped: []models.SkippedSelection{}}

	tx, err := l.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	targets, missing, err := l.planReviews(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	skip := func(id string, reviewErr error, code string) {
		result.Skipped = append(result.Skipped, models.SkippedSelection{SelectionID: id, Code: code, Reason: appErrors.FromError(reviewErr).Message})
		l.metrics.RecordBulkSkip(code)
	}
	for _, id := range missing {
		skip(id, appErrors.Clone(appErrors.ErrNotFound, "selection not found"), appErrors.ErrNotFound.Code)
	}

	notes := make([]models.Notification, 0, len(targets))
	for _, target := range targets {
		outcome, reviewErr := l.reviewOne(ctx, tx, actor, target, req.Decision, req.Comment)
		if reviewErr != nil {
			if code, ok := skippable(reviewErr); ok {
				skip(target.selectionID, reviewErr, code)
				continue
			}
			err = reviewErr
			return nil, err
		}
		result.Succeeded++
		notes = append(notes, outcome.notification)
	}
	position := make(map[string]int, len(ids))
	for i, id := range ids {
		position[id] = i
	}
	sort.SliceStable(result.Skipped, func(i, j int) bool {
		return position[result.Skipped[i].SelectionID] < position[result.Skipped[j].SelectionID]
	})

	if err = l.commit(tx); err != nil {
		return nil, err
	}

	l.logger.Info("bulk review applied",
		zap.String("reviewer_id", actor.UserID),
		zap.String("decision", string(req.Decision)),
		zap.Int("requested", result.Requested),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("skipped", len(result.Skipped)),
	)
	l.afterCommit(ctx, notes, result.Succeeded > 0 && req.Decision == models.DecisionApproved)
	return result, nil
}

// IncreaseCapacity sets a course capacity and approves the oldest pending selections into freed seats.
func (l *EnrollmentLedger) IncreaseCapacity(ctx context.Context, courseID string, newCapacity int) (result *models.CapacityResult, err error) {
	if newCapacity < 1 {
		return nil, appErrors.Clone(appErrors.ErrInvalidCapacity, "capacity must be at least 1")
	}
	start := time.Now()
	defer func() { l.record("increase_capacity", start, err) }()

	tx, err := l.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	course, err := l.lockCourse(ctx, tx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.Active {
		err = appErrors.Clone(appErrors.ErrCourseInactive, fmt.Sprintf("course %s is not active", course.Code))
		return nil, err
	}
	if newCapacity < course.Enrolled {
		err = appErrors.Clone(appErrors.ErrInvalidCapacity, fmt.Sprintf("capacity cannot be lower than current enrollment (%d)", course.Enrolled))
		return nil, err
	}

	if err = l.courses.SetCapacity(ctx, tx, course.ID, newCapacity); err != nil {
		err = appErrors.Internal(err, "failed to update course capacity")
		return nil, err
	}
	course.Capacity = newCapacity

	result = &models.CapacityResult{ApprovedIDs: []string{}}
	var notes []models.Notification

	if freed := newCapacity - course.Enrolled; freed > 0 {
		pending, listErr := l.selections.ListPendingOrderedByAge(ctx, tx, course.ID, freed)
		if listErr != nil {
			err = appErrors.Internal(listErr, "failed to load pending selections")
			return nil, err
		}
		now := l.now()
		comment := AutoApprovalComment
		for i := range pending {
			if i >= freed {
				break
			}
			sel := pending[i]
			if err = l.selections.SetReview(ctx, tx, models.SelectionReview{
				ID:         sel.ID,
				Status:     models.SelectionApproved,
				Comment:    &comment,
				ReviewedAt: now,
			}); err != nil {
				err = appErrors.Internal(err, "failed to auto-approve selection")
				return nil, err
			}
			if err = l.courses.IncrementEnrollment(ctx, tx, course.ID, 1); err != nil {
				err = appErrors.Internal(err, "failed to increment enrollment")
				return nil, err
			}
			course.Enrolled++

			note := models.Notification{
				UserID:   sel.StudentID,
				Title:    "Course Selection Approved",
				Body:     fmt.Sprintf("Your selection of %s - %s was approved after the course capacity increased.", course.Code, course.Name),
				Category: models.NotificationAutoApproved,
			}
			if err = l.notify(ctx, tx, &note); err != nil {
				return nil, err
			}
			notes = append(notes, note)
			result.ApprovedIDs = append(result.ApprovedIDs, sel.ID)
		}
	}

	if err = l.commit(tx); err != nil {
		return nil, err
	}

	result.AutoApproved = len(result.ApprovedIDs)
	result.Course = models.NewCourseView(*course)
	l.metrics.AddAutoApprovals(result.AutoApproved)
	l.logger.Info("course capacity reconciled",
		zap.String("course_id", course.ID),
		zap.Int("capacity", newCapacity),
		zap.Int("enrollment", course.Enrolled),
		zap.Int("auto_approved", result.AutoApproved),
	)
	l.afterCommit(ctx, notes, true)
	return result, nil
}

// ResolveConflict settles a seat conflict either by raising capacity or by approving chosen students.
func (l *EnrollmentLedger) ResolveConflict(ctx context.Context, actor models.Actor, courseID string, req models.ResolveConflictRequest) (*models.ResolveConflictResult, error) {
	if err := l.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict resolution payload")
	}
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can resolve seat conflicts")
	}

	switch req.Action {
	case models.ResolveIncreaseCapacity:
		capacity, err := l.IncreaseCapacity(ctx, courseID, req.NewCapacity)
		if err != nil {
			return nil, err
		}
		return &models.ResolveConflictResult{Action: req.Action, Capacity: capacity}, nil
	case models.ResolveManualSelection:
		if len(req.StudentIDs) == 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student_ids are required for manual selection")
		}
		ids, err := l.selections.FindPendingIDsForStudents(ctx, courseID, req.StudentIDs)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load pending selections")
		}
		if len(ids) == 0 {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no pending selections for the given students")
		}
		review, err := l.BulkReview(ctx, actor, models.BulkReviewRequest{
			SelectionIDs: ids,
			Decision:     models.DecisionApproved,
			Comment:      manualResolutionComment,
		})
		if err != nil {
			return nil, err
		}
		return &models.ResolveConflictResult{Action: req.Action, Review: review}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, "unknown action")
}

// planReviews resolves the course of each selection without locking and orders the
// targets by course id. Ids that match no selection are returned as missing.
func (l *EnrollmentLedger) planReviews(ctx context.Context, tx *sqlx.Tx, ids []string) ([]reviewTarget, []string, error) {
	courses, err := l.selections.CourseIDs(ctx, tx, ids)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to load selections")
	}
	targets := make([]reviewTarget, 0, len(ids))
	var missing []string
	for _, id := range ids {
		courseID, ok := courses[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		targets = append(targets, reviewTarget{selectionID: id, courseID: courseID})
	}
	sort.SliceStable(targets, func(i, j int) bool {
		return targets[i].courseID < targets[j].courseID
	})
	return targets, missing, nil
}

func (l *EnrollmentLedger) reviewOne(ctx context.Context, tx *sqlx.Tx, actor models.Actor, target reviewTarget, decision models.ReviewDecision, comment string) (*reviewOutcome, error) {
	course, err := l.lockCourse(ctx, tx, target.courseID)
	if err != nil {
		return nil, err
	}
	sel, err := l.selections.GetForUpdate(ctx, tx, target.selectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "selection not found")
		}
		return nil, appErrors.Internal(err, "failed to load selection")
	}

	if err := l.authorizeReview(ctx, tx, actor, sel.StudentID); err != nil {
		return nil, err
	}
	if sel.Status != models.SelectionPending {
		return nil, appErrors.Clone(appErrors.ErrSelectionNotPending, fmt.Sprintf("selection is already %s", sel.Status))
	}

	if decision == models.DecisionApproved {
		if course.IsFull() {
			return nil, appErrors.Clone(appErrors.ErrCourseFull, fmt.Sprintf("course %s is at maximum capacity (%d)", course.Code, course.Capacity))
		}
		if err := l.courses.IncrementEnrollment(ctx, tx, course.ID, 1); err != nil {
			if errors.Is(err, repository.ErrCapacityExceeded) {
				return nil, appErrors.Clone(appErrors.ErrCourseFull, fmt.Sprintf("course %s is at maximum capacity (%d)", course.Code, course.Capacity))
			}
			return nil, appErrors.Internal(err, "failed to increment enrollment")
		}
	}

	reviewer := actor.UserID
	review := models.SelectionReview{
		ID:         sel.ID,
		Status:     decision.Status(),
		AdvisorID:  &reviewer,
		Comment:    optionalString(comment),
		ReviewedAt: l.now(),
	}
	if err := l.selections.SetReview(ctx, tx, review); err != nil {
		return nil, appErrors.Internal(err, "failed to review selection")
	}

	note := reviewNotification(sel.StudentID, course, decision, comment)
	if err := l.notify(ctx, tx, &note); err != nil {
		return nil, err
	}

	sel.Status = review.Status
	sel.AdvisorID = review.AdvisorID
	sel.Comment = review.Comment
	reviewedAt := review.ReviewedAt
	sel.ReviewedAt = &reviewedAt
	return &reviewOutcome{selection: *sel, notification: note, courseID: course.ID}, nil
}

// authorizeReview is the single capability check for reviewing a student's selection.
func (l *EnrollmentLedger) authorizeReview(ctx context.Context, tx *sqlx.Tx, actor models.Actor, studentID string) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleAdvisor:
		ok, err := l.assignments.IsAssigned(ctx, tx, actor.UserID, studentID)
		if err != nil {
			return appErrors.Internal(err, "failed to check advisor assignment")
		}
		if !ok {
			return appErrors.Clone(appErrors.ErrForbidden, "student is not assigned to this advisor")
		}
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "only advisors and administrators can review selections")
}

func (l *EnrollmentLedger) lockOwnedPending(ctx context.Context, tx *sqlx.Tx, actor models.Actor, selectionID, verb string) (*models.Selection, error) {
	sel, err := l.selections.GetForUpdate(ctx, tx, selectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "selection not found")
		}
		return nil, appErrors.Internal(err, "failed to load selection")
	}
	if sel.StudentID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "selection belongs to another student")
	}
	if sel.Status != models.SelectionPending {
		return nil, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("only pending selections can be %s", verb))
	}
	return sel, nil
}

func (l *EnrollmentLedger) lockCourse(ctx context.Context, tx *sqlx.Tx, courseID string) (*models.Course, error) {
	course, err := l.courses.GetForUpdate(ctx, tx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Internal(err, "failed to load course")
	}
	return course, nil
}

func (l *EnrollmentLedger) notify(ctx context.Context, tx *sqlx.Tx, note *models.Notification) error {
	if err := l.notifications.Create(ctx, tx, note); err != nil {
		return appErrors.Internal(err, "failed to record notification")
	}
	return nil
}

func (l *EnrollmentLedger) begin(ctx context.Context) (*sqlx.Tx, error) {
	if l.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := l.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to begin transaction")
	}
	return tx, nil
}

func (l *EnrollmentLedger) commit(tx *sqlx.Tx) error {
	if err := tx.Commit(); err != nil {
		return appErrors.Internal(err, "failed to commit transaction")
	}
	return nil
}

// afterCommit runs side effects that must never fail the committed operation.
func (l *EnrollmentLedger) afterCommit(ctx context.Context, notes []models.Notification, seatsChanged bool) {
	if l.publisher != nil {
		for _, n := range notes {
			l.publisher.Publish(n)
		}
	}
	patterns := []string{cache.PrefixSeatConflict + "*", cache.PrefixDashboard + "*", cache.PrefixScheduleStats + "*"}
	if seatsChanged {
		patterns = append(patterns, cache.PrefixCourses+"*")
	}
	_ = l.cache.Invalidate(ctx, patterns...)
}

func (l *EnrollmentLedger) record(operation string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = strings.ToLower(appErrors.FromError(err).Code)
		if appErrors.IsCode(err, appErrors.ErrInternal.Code) {
			l.logger.Error("ledger operation failed", zap.String("operation", operation), zap.Error(err))
		}
	}
	l.metrics.RecordLedgerOperation(operation, outcome, time.Since(start))
}

func requireReviewer(actor models.Actor) error {
	if actor.Role != models.RoleAdvisor && actor.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only advisors and administrators can review selections")
	}
	return nil
}

// skippable reports whether a review failure is a business rule a batch tolerates.
func skippable(err error) (string, bool) {
	for _, candidate := range []*appErrors.Error{
		appErrors.ErrNotFound,
		appErrors.ErrForbidden,
		appErrors.ErrCourseFull,
		appErrors.ErrSelectionNotPending,
	} {
		if appErrors.IsCode(err, candidate.Code) {
			return candidate.Code, true
		}
	}
	return "", false
}

func reviewNotification(studentID string, course *models.Course, decision models.ReviewDecision, comment string) models.Notification {
	note := models.Notification{UserID: studentID, Category: models.NotificationSelectionReviewed}
	if decision == models.DecisionApproved {
		note.Title = "Course Selection Approved"
		note.Body = fmt.Sprintf("Your selection of %s - %s has been approved.", course.Code, course.Name)
		if comment != "" {
			note.Body += " Comment: " + comment
		}
		return note
	}
	note.Title = "Course Selection Rejected"
	note.Body = fmt.Sprintf("Your selection of %s - %s has been rejected.", course.Code, course.Name)
	if comment != "" {
		note.Body += " Reason: " + comment
	}
	return note
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
