package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	e "github.com/gartstein/timeclock/internal/attendance/errors"
	"github.com/gartstein/timeclock/internal/attendance/events"
	"github.com/gartstein/timeclock/internal/attendance/models"
	"github.com/gartstein/timeclock/internal/attendance/timeutil"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AssignmentRepository defines the storage interface for assignments.
type AssignmentRepository interface {
	CreateAssignment(ctx context.Context, a *models.Assignment) error
	GetAssignment(ctx context.Context, id, employeeID uuid.UUID) (*models.Assignment, error)
	ListAssignmentsByEmployee(ctx context.Context, employeeID uuid.UUID) ([]models.Assignment, error)
	UpdateAssignment(ctx context.Context, update *models.AssignmentUpdate) error
	DeleteAssignment(ctx context.Context, id, employeeID uuid.UUID) error
}

// ShiftReader supplies company-scoped shift templates.
type ShiftReader interface {
	GetShift(ctx context.Context, id, companyID uuid.UUID) (*models.Shift, error)
}

// RulesReader supplies the company's labor rules, ErrNotFound when the
// company has none configured.
type RulesReader interface {
	GetRules(ctx context.Context, companyID uuid.UUID) (*models.LaborRules, error)
}

// AssignmentService validates and persists shift/date assignments:
// one assignment per employee per calendar day, no overlapping manual
// hours, shift duration within the company's daily limit.
type AssignmentService struct {
	repo     AssignmentRepository
	shifts   ShiftReader
	rules    RulesReader
	producer EventProducer
	locks    *employeeLocks
	logger   *zap.Logger
}

// NewAssignmentService constructs an AssignmentService.
func NewAssignmentService(repo AssignmentRepository, shifts ShiftReader, rules RulesReader, producer EventProducer, logger *zap.Logger) *AssignmentService {
	return &AssignmentService{
		repo:     repo,
		shifts:   shifts,
		rules:    rules,
		producer: producer,
		locks:    newEmployeeLocks(),
		logger:   logger.Named("assignment_service"),
	}
}

// CreateAssignment validates a proposed assignment against the employee's
// existing records and persists it. Exactly one of ShiftID or the manual
// StartTime/EndTime pair must be populated; when ShiftID is set the
// template's hours are copied onto the assignment.
func (s *AssignmentService) CreateAssignment(ctx context.Context, a *models.Assignment) (*models.Assignment, error) {
	if a.EmployeeID == uuid.Nil || a.Date.IsZero() {
		return nil, fmt.Errorf("%w: employee_id and date are required", e.ErrInvalidInput)
	}
	a.Date = timeutil.Day(a.Date)

	unlock := s.locks.Lock(a.EmployeeID)
	defer unlock()

	existing, err := s.repo.ListAssignmentsByEmployee(ctx, a.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	if err := checkDuplicateDay(existing, a.Date, uuid.Nil); err != nil {
		return nil, err
	}

	if a.ShiftID != nil {
		if err := s.applyShift(ctx, a); err != nil {
			return nil, err
		}
	} else {
		if a.StartTime == "" || a.EndTime == "" {
			return nil, e.ErrMissingHours
		}
		if err := validateHourOrder(a.StartTime, a.EndTime); err != nil {
			return nil, err
		}
		if err := checkManualOverlap(a.Date, a.StartTime, a.EndTime, existing, uuid.Nil); err != nil {
			return nil, err
		}
	}

	a.ID = uuid.New()
	if err := s.repo.CreateAssignment(ctx, a); err != nil {
		if errors.Is(err, e.ErrDuplicateAssignment) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}

	go func() {
		s.producer.Produce(events.AssignmentCreated, a.EmployeeID, a)
	}()
	return a, nil
}

// UpdateAssignment re-runs the creation checks against the target record,
// excluding the record itself, scoped by (id, employee_id).
func (s *AssignmentService) UpdateAssignment(ctx context.Context, update *models.AssignmentUpdate) (*models.Assignment, error) {
	if update.ID == uuid.Nil || update.EmployeeID == uuid.Nil {
		return nil, fmt.Errorf("%w: assignment id and employee_id are required", e.ErrInvalidInput)
	}

	unlock := s.locks.Lock(update.EmployeeID)
	defer unlock()

	current, err := s.repo.GetAssignment(ctx, update.ID, update.EmployeeID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load assignment: %w", err)
	}

	date := timeutil.Day(current.Date)
	if update.Date != nil {
		date = timeutil.Day(*update.Date)
		update.Date = &date
	}

	existing, err := s.repo.ListAssignmentsByEmployee(ctx, update.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	if err := checkDuplicateDay(existing, date, update.ID); err != nil {
		return nil, err
	}

	if update.ShiftID != nil {
		companyID := update.CompanyID
		if companyID == uuid.Nil {
			companyID = current.CompanyID
		}
		staged := &models.Assignment{
			EmployeeID: update.EmployeeID,
			CompanyID:  companyID,
			ShiftID:    update.ShiftID,
			Date:       date,
		}
		if err := s.applyShift(ctx, staged); err != nil {
			return nil, err
		}
		update.StartTime = &staged.StartTime
		update.EndTime = &staged.EndTime
	} else {
		if update.StartTime == nil || update.EndTime == nil {
			return nil, e.ErrMissingHours
		}
		if err := validateHourOrder(*update.StartTime, *update.EndTime); err != nil {
			return nil, err
		}
		if err := checkManualOverlap(date, *update.StartTime, *update.EndTime, existing, update.ID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateAssignment(ctx, update); err != nil {
		if errors.Is(err, e.ErrNotFound) || errors.Is(err, e.ErrDuplicateAssignment) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update assignment: %w", err)
	}

	updated, err := s.repo.GetAssignment(ctx, update.ID, update.EmployeeID)
	if err != nil {
		s.logger.Error("Failed to reload assignment after update",
			zap.Error(err),
			zap.String("assignment_id", update.ID.String()),
		)
		return nil, err
	}

	go func() {
		s.producer.Produce(events.AssignmentUpdated, updated.EmployeeID, updated)
	}()
	return updated, nil
}

// DeleteAssignment removes an assignment scoped by (id, employee_id).
func (s *AssignmentService) DeleteAssignment(ctx context.Context, id, employeeID uuid.UUID) error {
	assignment, err := s.repo.GetAssignment(ctx, id, employeeID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to load assignment for deletion: %w", err)
	}

	if err := s.repo.DeleteAssignment(ctx, id, employeeID); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete assignment: %w", err)
	}

	go func() {
		s.producer.Produce(events.AssignmentDeleted, assignment.EmployeeID, assignment)
	}()
	return nil
}

// applyShift resolves the referenced shift template, enforces the
// company's daily-hours limit and snapshots the template hours onto the
// assignment.
func (s *AssignmentService) applyShift(ctx context.Context, a *models.Assignment) error {
	if a.CompanyID == uuid.Nil {
		return fmt.Errorf("%w: company_id is required to resolve the shift", e.ErrInvalidInput)
	}

	shift, err := s.shifts.GetShift(ctx, *a.ShiftID, a.CompanyID)
	if err != nil {
		if errors.Is(err, e.ErrShiftNotFound) {
			return err
		}
		return fmt.Errorf("failed to load shift: %w", err)
	}

	duration, err := timeutil.ShiftDurationMinutes(shift.StartTime, shift.EndTime)
	if err != nil {
		return fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
	}

	rules, err := s.rules.GetRules(ctx, a.CompanyID)
	if err != nil && !errors.Is(err, e.ErrNotFound) {
		return fmt.Errorf("failed to load labor rules: %w", err)
	}
	if rules != nil && rules.MaxDailyHours > 0 {
		if float64(duration)/60 > rules.MaxDailyHours {
			return fmt.Errorf("%w: shift lasts %.1fh, limit is %.1fh",
				e.ErrExceedsMaxDailyHours, float64(duration)/60, rules.MaxDailyHours)
		}
	}

	a.StartTime = shift.StartTime
	a.EndTime = shift.EndTime
	return nil
}

func checkDuplicateDay(existing []models.Assignment, date time.Time, excludeID uuid.UUID) error {
	for _, a := range existing {
		if a.ID == excludeID {
			continue
		}
		if timeutil.Day(a.Date).Equal(date) {
			return e.ErrDuplicateAssignment
		}
	}
	return nil
}

func validateHourOrder(start, end string) error {
	startMin, err := timeutil.ToMinutes(start)
	if err != nil {
		return fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
	}
	endMin, err := timeutil.ToMinutes(end)
	if err != nil {
		return fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
	}
	if startMin >= endMin {
		return e.ErrInvalidHourOrder
	}
	return nil
}

// checkManualOverlap compares the proposed interval against every other
// assignment of the employee that carries hours, mapping each onto
// instants so overnight shifts from adjacent days are caught too.
func checkManualOverlap(date time.Time, start, end string, existing []models.Assignment, excludeID uuid.UUID) error {
	from, to, err := timeutil.ShiftInterval(date, start, end)
	if err != nil {
		return fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
	}

	for _, a := range existing {
		if a.ID == excludeID || a.StartTime == "" || a.EndTime == "" {
			continue
		}
		exFrom, exTo, err := timeutil.ShiftInterval(timeutil.Day(a.Date), a.StartTime, a.EndTime)
		if err != nil {
			continue
		}
		if timeutil.Overlaps(from, to, exFrom, exTo) {
			return &e.AssignmentConflictError{
				Date:      timeutil.Day(a.Date),
				StartTime: a.StartTime,
				EndTime:   a.EndTime,
			}
		}
	}
	return nil
}
