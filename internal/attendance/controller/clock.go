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

// defaultClockMethod is recorded when the caller does not say how the
// stamp was captured.
const defaultClockMethod = "web"

// ClockRepository defines the storage interface for clock events and the
// per-day records derived from them.
type ClockRepository interface {
	CreateClockEvent(ctx context.Context, ev *models.ClockEvent) error
	LatestClockEvent(ctx context.Context, employeeID, companyID uuid.UUID) (*models.ClockEvent, error)
	GetClockEvent(ctx context.Context, id, companyID uuid.UUID) (*models.ClockEvent, error)
	UpdateClockEvent(ctx context.Context, update *models.ClockEventUpdate) error
	DeleteClockEvent(ctx context.Context, id, companyID uuid.UUID) error

	CreateDayRecord(ctx context.Context, rec *models.DayRecord) error
	DayRecordForDay(ctx context.Context, employeeID uuid.UUID, day time.Time) (*models.DayRecord, error)
	UpdateDayRecord(ctx context.Context, update *models.DayRecordUpdate) error

	ListAssignmentsByEmployee(ctx context.Context, employeeID uuid.UUID) ([]models.Assignment, error)
}

// ClockService validates clock events against the employee's history:
// in/out stamps must alternate, never move backwards and never sit in the
// future. Accepted stamps are folded into the day record the report
// aggregator reads.
type ClockService struct {
	repo     ClockRepository
	producer EventProducer
	locks    *employeeLocks
	logger   *zap.Logger
	now      func() time.Time
}

// NewClockService constructs a ClockService.
func NewClockService(repo ClockRepository, producer EventProducer, logger *zap.Logger) *ClockService {
	return &ClockService{
		repo:     repo,
		producer: producer,
		locks:    newEmployeeLocks(),
		logger:   logger.Named("clock_service"),
		now:      time.Now,
	}
}

// RegisterEvent validates a new in/out stamp against the employee's most
// recent event and persists it. The timestamp defaults to now.
func (s *ClockService) RegisterEvent(ctx context.Context, ev *models.ClockEvent) (*models.ClockEvent, error) {
	if ev.EmployeeID == uuid.Nil || ev.CompanyID == uuid.Nil || ev.Type == "" {
		return nil, fmt.Errorf("%w: employee_id, company_id and type", e.ErrMissingFields)
	}
	if !ev.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", e.ErrInvalidType, ev.Type)
	}

	now := s.now()
	if ev.Timestamp.IsZero() {
		ev.Timestamp = now
	}
	if ev.Timestamp.After(now) {
		return nil, e.ErrFutureEvent
	}
	if ev.Method == "" {
		ev.Method = defaultClockMethod
	}

	unlock := s.locks.Lock(ev.EmployeeID)
	defer unlock()

	latest, err := s.repo.LatestClockEvent(ctx, ev.EmployeeID, ev.CompanyID)
	if err != nil && !errors.Is(err, e.ErrNotFound) {
		return nil, fmt.Errorf("failed to load latest clock event: %w", err)
	}
	if latest != nil {
		if latest.Type == ev.Type {
			return nil, fmt.Errorf("%w: a %q event must be recorded first",
				e.ErrConsecutiveSameType, ev.Type.Opposite())
		}
		if ev.Timestamp.Before(latest.Timestamp) {
			return nil, e.ErrBackdatedEvent
		}
	}

	ev.ID = uuid.New()
	if err := s.repo.CreateClockEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("failed to create clock event: %w", err)
	}

	// The day record is derived state; a failure here must not undo the
	// accepted stamp.
	if err := s.foldIntoDayRecord(ctx, ev); err != nil {
		s.logger.Error("Failed to fold clock event into day record",
			zap.Error(err),
			zap.String("employee_id", ev.EmployeeID.String()),
		)
	}

	go func() {
		s.producer.Produce(events.ClockEventStamped, ev.EmployeeID, ev)
	}()
	return ev, nil
}

// UpdateEvent corrects a stored event, scoped by (id, company_id).
// Corrections do not re-run the sequencing checks.
func (s *ClockService) UpdateEvent(ctx context.Context, update *models.ClockEventUpdate) (*models.ClockEvent, error) {
	if update.ID == uuid.Nil || update.CompanyID == uuid.Nil {
		return nil, fmt.Errorf("%w: event id and company_id are required", e.ErrMissingFields)
	}
	if update.Type != nil && !update.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", e.ErrInvalidType, *update.Type)
	}
	if update.Timestamp != nil && update.Timestamp.After(s.now()) {
		return nil, e.ErrFutureEvent
	}

	if err := s.repo.UpdateClockEvent(ctx, update); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update clock event: %w", err)
	}
	return s.repo.GetClockEvent(ctx, update.ID, update.CompanyID)
}

// DeleteEvent removes an event scoped by (id, company_id).
func (s *ClockService) DeleteEvent(ctx context.Context, id, companyID uuid.UUID) error {
	if _, err := s.repo.GetClockEvent(ctx, id, companyID); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to load clock event for deletion: %w", err)
	}
	if err := s.repo.DeleteClockEvent(ctx, id, companyID); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete clock event: %w", err)
	}
	return nil
}

// CreateDayRecord registers a shift-bound clock pair for a specific day.
// A record whose day plus shift-start hour has not been reached yet is
// rejected.
func (s *ClockService) CreateDayRecord(ctx context.Context, rec *models.DayRecord) (*models.DayRecord, error) {
	if rec.EmployeeID == uuid.Nil || rec.CompanyID == uuid.Nil || rec.Day.IsZero() {
		return nil, fmt.Errorf("%w: employee_id, company_id and day", e.ErrMissingFields)
	}
	rec.Day = timeutil.Day(rec.Day)

	if rec.ShiftStart != "" {
		startMin, err := timeutil.ToMinutes(rec.ShiftStart)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
		}
		shiftHour := rec.Day.Add(time.Duration(startMin/60) * time.Hour)
		if shiftHour.After(s.now()) {
			return nil, e.ErrFutureShift
		}
	}

	rec.ID = uuid.New()
	if err := s.repo.CreateDayRecord(ctx, rec); err != nil {
		if errors.Is(err, e.ErrDuplicateDayRecord) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create day record: %w", err)
	}

	go func() {
		s.producer.Produce(events.DayRecordChanged, rec.EmployeeID, rec)
	}()
	return rec, nil
}

// SetEntry corrects the entry stamp of one day's record. Sequencing is
// not re-validated; this is a correction, not a new event.
func (s *ClockService) SetEntry(ctx context.Context, employeeID uuid.UUID, day, entry time.Time) (*models.DayRecord, error) {
	return s.setStamp(ctx, employeeID, day, &entry, nil)
}

// SetExit corrects the exit stamp of one day's record.
func (s *ClockService) SetExit(ctx context.Context, employeeID uuid.UUID, day, exit time.Time) (*models.DayRecord, error) {
	return s.setStamp(ctx, employeeID, day, nil, &exit)
}

func (s *ClockService) setStamp(ctx context.Context, employeeID uuid.UUID, day time.Time, entry, exit *time.Time) (*models.DayRecord, error) {
	rec, err := s.repo.DayRecordForDay(ctx, employeeID, timeutil.Day(day))
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load day record: %w", err)
	}

	update := &models.DayRecordUpdate{
		ID:        rec.ID,
		CompanyID: rec.CompanyID,
		EntryAt:   entry,
		ExitAt:    exit,
	}
	if err := s.repo.UpdateDayRecord(ctx, update); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update day record: %w", err)
	}

	updated, err := s.repo.DayRecordForDay(ctx, employeeID, timeutil.Day(day))
	if err != nil {
		return nil, err
	}

	go func() {
		s.producer.Produce(events.DayRecordChanged, employeeID, updated)
	}()
	return updated, nil
}

// foldIntoDayRecord reflects an accepted stamp in the employee's record
// for that calendar day, creating the record on first stamp. The expected
// shift window is taken from the day's assignment when one exists.
func (s *ClockService) foldIntoDayRecord(ctx context.Context, ev *models.ClockEvent) error {
	day := timeutil.Day(ev.Timestamp)

	rec, err := s.repo.DayRecordForDay(ctx, ev.EmployeeID, day)
	if err != nil {
		if !errors.Is(err, e.ErrNotFound) {
			return err
		}
		rec = &models.DayRecord{
			ID:         uuid.New(),
			EmployeeID: ev.EmployeeID,
			CompanyID:  ev.CompanyID,
			Day:        day,
		}
		if start, end, ok := s.assignedWindow(ctx, ev.EmployeeID, day); ok {
			rec.ShiftStart = start
			rec.ShiftEnd = end
		}
		if ev.Type == models.ClockIn {
			rec.EntryAt = &ev.Timestamp
		} else {
			rec.ExitAt = &ev.Timestamp
		}
		return s.repo.CreateDayRecord(ctx, rec)
	}

	update := &models.DayRecordUpdate{ID: rec.ID, CompanyID: rec.CompanyID}
	if ev.Type == models.ClockIn {
		if rec.EntryAt != nil {
			return nil
		}
		update.EntryAt = &ev.Timestamp
	} else {
		update.ExitAt = &ev.Timestamp
	}
	return s.repo.UpdateDayRecord(ctx, update)
}

func (s *ClockService) assignedWindow(ctx context.Context, employeeID uuid.UUID, day time.Time) (string, string, bool) {
	assignments, err := s.repo.ListAssignmentsByEmployee(ctx, employeeID)
	if err != nil {
		s.logger.Warn("Failed to resolve assignment for day record",
			zap.Error(err),
			zap.String("employee_id", employeeID.String()),
		)
		return "", "", false
	}
	for _, a := range assignments {
		if timeutil.Day(a.Date).Equal(day) && a.StartTime != "" && a.EndTime != "" {
			return a.StartTime, a.EndTime, true
		}
	}
	return "", "", false
}
