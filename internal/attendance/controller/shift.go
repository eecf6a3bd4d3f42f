package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	e "github.com/gartstein/timeclock/internal/attendance/errors"
	"github.com/gartstein/timeclock/internal/attendance/models"
	"github.com/gartstein/timeclock/internal/attendance/timeutil"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Shift templates shorter than 30 minutes or longer than 12 hours are
// rejected regardless of company configuration.
const (
	minShiftMinutes = 30
	maxShiftMinutes = 12 * 60
)

// ShiftRepository defines the storage interface for shift templates.
type ShiftRepository interface {
	CreateShift(ctx context.Context, shift *models.Shift) error
	GetShift(ctx context.Context, id, companyID uuid.UUID) (*models.Shift, error)
	ListShifts(ctx context.Context, companyID uuid.UUID) ([]models.Shift, error)
	UpdateShift(ctx context.Context, shift *models.Shift) error
}

// ShiftService is the company-scoped shift catalog.
type ShiftService struct {
	repo   ShiftRepository
	rules  RulesReader
	logger *zap.Logger
}

// NewShiftService constructs a ShiftService.
func NewShiftService(repo ShiftRepository, rules RulesReader, logger *zap.Logger) *ShiftService {
	return &ShiftService{
		repo:   repo,
		rules:  rules,
		logger: logger.Named("shift_service"),
	}
}

// GetShift looks a template up scoped by company.
func (s *ShiftService) GetShift(ctx context.Context, id, companyID uuid.UUID) (*models.Shift, error) {
	if id == uuid.Nil || companyID == uuid.Nil {
		return nil, fmt.Errorf("%w: shift id and company_id are required", e.ErrInvalidInput)
	}
	return s.repo.GetShift(ctx, id, companyID)
}

// ListShifts returns the company's catalog.
func (s *ShiftService) ListShifts(ctx context.Context, companyID uuid.UUID) ([]models.Shift, error) {
	if companyID == uuid.Nil {
		return nil, fmt.Errorf("%w: company_id is required", e.ErrInvalidInput)
	}
	return s.repo.ListShifts(ctx, companyID)
}

// SaveShift validates a template's window and creates it, or updates it
// when an id is present. The window must parse as "HH:MM", last at least
// 30 minutes and at most 12 hours, and stay within the company's daily
// limit when rules are configured.
func (s *ShiftService) SaveShift(ctx context.Context, shift *models.Shift) (*models.Shift, error) {
	if shift.CompanyID == uuid.Nil || shift.Name == "" {
		return nil, fmt.Errorf("%w: company_id and name are required", e.ErrInvalidInput)
	}

	shift.StartTime = strings.TrimSpace(shift.StartTime)
	shift.EndTime = strings.TrimSpace(shift.EndTime)

	duration, err := timeutil.ShiftDurationMinutes(shift.StartTime, shift.EndTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
	}
	if duration < minShiftMinutes {
		return nil, fmt.Errorf("%w: shift lasts under 30 minutes", e.ErrInvalidInput)
	}
	if duration > maxShiftMinutes {
		return nil, fmt.Errorf("%w: shift exceeds 12 hours", e.ErrInvalidInput)
	}

	rules, err := s.rules.GetRules(ctx, shift.CompanyID)
	if err != nil && !errors.Is(err, e.ErrNotFound) {
		return nil, fmt.Errorf("failed to load labor rules: %w", err)
	}
	if rules != nil && rules.MaxDailyHours > 0 && float64(duration)/60 > rules.MaxDailyHours {
		return nil, fmt.Errorf("%w: shift lasts %.1fh, limit is %.1fh",
			e.ErrExceedsMaxDailyHours, float64(duration)/60, rules.MaxDailyHours)
	}

	if shift.ID != uuid.Nil {
		if err := s.repo.UpdateShift(ctx, shift); err != nil {
			if errors.Is(err, e.ErrShiftNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to update shift: %w", err)
		}
		return shift, nil
	}

	shift.ID = uuid.New()
	if err := s.repo.CreateShift(ctx, shift); err != nil {
		return nil, fmt.Errorf("failed to create shift: %w", err)
	}
	return shift, nil
}
