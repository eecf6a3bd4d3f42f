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

// AbsenceRepository defines the storage interface for absences.
type AbsenceRepository interface {
	CreateAbsence(ctx context.Context, a *models.Absence) error
	GetAbsence(ctx context.Context, id, companyID uuid.UUID) (*models.Absence, error)
	ListAbsencesByEmployee(ctx context.Context, employeeID, companyID uuid.UUID) ([]models.Absence, error)
	UpdateAbsence(ctx context.Context, update *models.AbsenceUpdate) error
	DeleteAbsence(ctx context.Context, id, companyID uuid.UUID) error
}

// AbsenceService validates and persists absence requests. Two
// non-rejected absences of one employee may never share a day.
type AbsenceService struct {
	repo     AbsenceRepository
	producer EventProducer
	locks    *employeeLocks
	logger   *zap.Logger
	now      func() time.Time
}

// NewAbsenceService constructs an AbsenceService.
func NewAbsenceService(repo AbsenceRepository, producer EventProducer, logger *zap.Logger) *AbsenceService {
	return &AbsenceService{
		repo:     repo,
		producer: producer,
		locks:    newEmployeeLocks(),
		logger:   logger.Named("absence_service"),
		now:      time.Now,
	}
}

// RegisterAbsence validates a proposed absence and persists it with the
// status defaulted to pending.
func (s *AbsenceService) RegisterAbsence(ctx context.Context, a *models.Absence) (*models.Absence, error) {
	if a.EmployeeID == uuid.Nil || a.CompanyID == uuid.Nil || a.Type == "" ||
		a.StartDate.IsZero() || a.EndDate.IsZero() {
		return nil, fmt.Errorf("%w: employee_id, company_id, type, start and end dates", e.ErrMissingFields)
	}
	if !a.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", e.ErrInvalidType, a.Type)
	}
	if a.Status == "" {
		a.Status = models.AbsencePending
	}
	if !a.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", e.ErrInvalidStatus, a.Status)
	}

	a.StartDate = timeutil.Day(a.StartDate)
	a.EndDate = timeutil.Day(a.EndDate)
	if err := s.validateRange(a.StartDate, a.EndDate); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(a.EmployeeID)
	defer unlock()

	if err := s.checkOverlap(ctx, a.EmployeeID, a.CompanyID, a.StartDate, a.EndDate, uuid.Nil); err != nil {
		return nil, err
	}

	a.ID = uuid.New()
	if err := s.repo.CreateAbsence(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create absence: %w", err)
	}

	go func() {
		s.producer.Produce(events.AbsenceRegistered, a.EmployeeID, a)
	}()
	return a, nil
}

// ModifyAbsence re-validates the changed fields against the other
// absences of the employee, excluding the record being updated, scoped by
// (id, company_id).
func (s *AbsenceService) ModifyAbsence(ctx context.Context, update *models.AbsenceUpdate) (*models.Absence, error) {
	if update.ID == uuid.Nil || update.CompanyID == uuid.Nil {
		return nil, fmt.Errorf("%w: absence id and company_id are required", e.ErrMissingFields)
	}

	current, err := s.repo.GetAbsence(ctx, update.ID, update.CompanyID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load absence: %w", err)
	}

	if update.Type != nil && !update.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", e.ErrInvalidType, *update.Type)
	}
	if update.Status != nil && !update.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", e.ErrInvalidStatus, *update.Status)
	}

	unlock := s.locks.Lock(current.EmployeeID)
	defer unlock()

	// A single supplied endpoint still moves the effective range, so the
	// missing side is taken from the stored record before re-validation.
	if update.StartDate != nil || update.EndDate != nil {
		start := timeutil.Day(current.StartDate)
		if update.StartDate != nil {
			start = timeutil.Day(*update.StartDate)
			update.StartDate = &start
		}
		end := timeutil.Day(current.EndDate)
		if update.EndDate != nil {
			end = timeutil.Day(*update.EndDate)
			update.EndDate = &end
		}
		if err := s.validateRange(start, end); err != nil {
			return nil, err
		}
		if err := s.checkOverlap(ctx, current.EmployeeID, update.CompanyID, start, end, update.ID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateAbsence(ctx, update); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update absence: %w", err)
	}

	updated, err := s.repo.GetAbsence(ctx, update.ID, update.CompanyID)
	if err != nil {
		s.logger.Error("Failed to reload absence after update",
			zap.Error(err),
			zap.String("absence_id", update.ID.String()),
		)
		return nil, err
	}

	go func() {
		s.producer.Produce(events.AbsenceUpdated, updated.EmployeeID, updated)
	}()
	return updated, nil
}

// DeleteAbsence removes an absence scoped by (id, company_id). Approved
// absences must have their status reverted before deletion.
func (s *AbsenceService) DeleteAbsence(ctx context.Context, id, companyID uuid.UUID) error {
	absence, err := s.repo.GetAbsence(ctx, id, companyID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to load absence for deletion: %w", err)
	}
	if absence.Status == models.AbsenceApproved {
		return e.ErrCannotDeleteApproved
	}

	if err := s.repo.DeleteAbsence(ctx, id, companyID); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete absence: %w", err)
	}

	go func() {
		s.producer.Produce(events.AbsenceDeleted, absence.EmployeeID, absence)
	}()
	return nil
}

func (s *AbsenceService) validateRange(start, end time.Time) error {
	if start.After(end) {
		return e.ErrInvertedRange
	}
	if end.After(s.now().AddDate(1, 0, 0)) {
		return e.ErrTooFarAhead
	}
	return nil
}

// checkOverlap rejects any closed-interval intersection with another
// non-rejected absence of the employee, naming the conflicting record.
func (s *AbsenceService) checkOverlap(ctx context.Context, employeeID, companyID uuid.UUID, start, end time.Time, excludeID uuid.UUID) error {
	existing, err := s.repo.ListAbsencesByEmployee(ctx, employeeID, companyID)
	if err != nil {
		return fmt.Errorf("failed to list absences: %w", err)
	}
	for _, a := range existing {
		if a.ID == excludeID || a.Status == models.AbsenceRejected {
			continue
		}
		if timeutil.DateRangesOverlap(timeutil.Day(a.StartDate), timeutil.Day(a.EndDate), start, end) {
			return &e.AbsenceConflictError{
				Type:      a.Type,
				StartDate: timeutil.Day(a.StartDate),
				EndDate:   timeutil.Day(a.EndDate),
			}
		}
	}
	return nil
}
