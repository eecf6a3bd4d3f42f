package controller

import (
	"context"
	"errors"
	"fmt"

	e "github.com/gartstein/timeclock/internal/attendance/errors"
	"github.com/gartstein/timeclock/internal/attendance/events"
	"github.com/gartstein/timeclock/internal/attendance/models"
	"github.com/gartstein/timeclock/internal/attendance/timeutil"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RulesRepository defines the storage interface for labor rules.
type RulesRepository interface {
	CreateRules(ctx context.Context, rules *models.LaborRules) error
	GetRules(ctx context.Context, companyID uuid.UUID) (*models.LaborRules, error)
	UpdateRules(ctx context.Context, rules *models.LaborRules) error
	DeleteRules(ctx context.Context, companyID uuid.UUID) error
}

// ruleCheck pairs a predicate with the violation it reports. The list is
// meant to grow as new jurisdictions add rules, without touching the
// validator itself.
type ruleCheck struct {
	violated func(r *models.LaborRules) bool
	message  string
}

var ruleChecks = []ruleCheck{
	{
		violated: func(r *models.LaborRules) bool { return r.MaxDailyHours <= 0 },
		message:  "maximum daily hours must be greater than 0",
	},
	{
		violated: func(r *models.LaborRules) bool { return r.MaxWeeklyHours <= 0 },
		message:  "maximum weekly hours must be greater than 0",
	},
	{
		violated: func(r *models.LaborRules) bool { return r.MaxNightHours > r.MaxDailyHours },
		message:  "maximum night hours cannot exceed the maximum daily hours",
	},
	{
		violated: func(r *models.LaborRules) bool { return r.NightWindowStart == r.NightWindowEnd },
		message:  "night window start and end cannot be equal",
	},
	{
		violated: func(r *models.LaborRules) bool { return r.MaxDailyOvertime > r.MaxWeeklyOvertime },
		message:  "daily overtime cannot exceed weekly overtime",
	},
	{
		violated: func(r *models.LaborRules) bool { return r.MinRestHours < 8 },
		message:  "minimum rest cannot be less than 8 hours",
	},
}

// ValidateLaborRules returns every violated rule, not just the first, so
// a caller can fix all of them in one round trip. An empty slice means
// the rules are acceptable.
func ValidateLaborRules(rules *models.LaborRules) []string {
	var violations []string
	for _, field := range []struct{ name, value string }{
		{"night window start", rules.NightWindowStart},
		{"night window end", rules.NightWindowEnd},
	} {
		if field.value == "" {
			violations = append(violations, field.name+" is required")
		} else if _, err := timeutil.ToMinutes(field.value); err != nil {
			violations = append(violations, field.name+" is not a valid time of day")
		}
	}
	for _, check := range ruleChecks {
		if check.violated(rules) {
			violations = append(violations, check.message)
		}
	}
	return violations
}

// RulesService manages the per-company labor rule configuration.
type RulesService struct {
	repo     RulesRepository
	producer EventProducer
	logger   *zap.Logger
}

// NewRulesService constructs a RulesService.
func NewRulesService(repo RulesRepository, producer EventProducer, logger *zap.Logger) *RulesService {
	return &RulesService{
		repo:     repo,
		producer: producer,
		logger:   logger.Named("rules_service"),
	}
}

// GetRules returns the company's labor rules, ErrNotFound when none are
// configured.
func (s *RulesService) GetRules(ctx context.Context, companyID uuid.UUID) (*models.LaborRules, error) {
	if companyID == uuid.Nil {
		return nil, fmt.Errorf("%w: company_id is required", e.ErrInvalidInput)
	}
	rules, err := s.repo.GetRules(ctx, companyID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load labor rules: %w", err)
	}
	return rules, nil
}

// CreateRules persists a company's labor rules. A company can hold only
// one rule set.
func (s *RulesService) CreateRules(ctx context.Context, rules *models.LaborRules) (*models.LaborRules, error) {
	if rules.CompanyID == uuid.Nil {
		return nil, fmt.Errorf("%w: company_id is required", e.ErrInvalidInput)
	}

	existing, err := s.repo.GetRules(ctx, rules.CompanyID)
	if err != nil && !errors.Is(err, e.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing labor rules: %w", err)
	}
	if existing != nil {
		return nil, e.ErrRulesExist
	}

	if violations := ValidateLaborRules(rules); len(violations) > 0 {
		return nil, &e.RuleViolationsError{Violations: violations}
	}

	rules.ID = uuid.New()
	if err := s.repo.CreateRules(ctx, rules); err != nil {
		if errors.Is(err, e.ErrRulesExist) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create labor rules: %w", err)
	}

	go func() {
		s.producer.Produce(events.RulesChanged, uuid.Nil, rules)
	}()
	return rules, nil
}

// UpdateRules replaces the company's rule set after validation.
func (s *RulesService) UpdateRules(ctx context.Context, rules *models.LaborRules) (*models.LaborRules, error) {
	if rules.CompanyID == uuid.Nil {
		return nil, fmt.Errorf("%w: company_id is required", e.ErrInvalidInput)
	}

	if _, err := s.repo.GetRules(ctx, rules.CompanyID); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load labor rules: %w", err)
	}

	if violations := ValidateLaborRules(rules); len(violations) > 0 {
		return nil, &e.RuleViolationsError{Violations: violations}
	}

	if err := s.repo.UpdateRules(ctx, rules); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update labor rules: %w", err)
	}

	updated, err := s.repo.GetRules(ctx, rules.CompanyID)
	if err != nil {
		s.logger.Error("Failed to reload labor rules after update",
			zap.Error(err),
			zap.String("company_id", rules.CompanyID.String()),
		)
		return nil, err
	}

	go func() {
		s.producer.Produce(events.RulesChanged, uuid.Nil, updated)
	}()
	return updated, nil
}

// DeleteRules removes the company's rule set.
func (s *RulesService) DeleteRules(ctx context.Context, companyID uuid.UUID) error {
	if companyID == uuid.Nil {
		return fmt.Errorf("%w: company_id is required", e.ErrInvalidInput)
	}
	if _, err := s.repo.GetRules(ctx, companyID); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to load labor rules: %w", err)
	}
	if err := s.repo.DeleteRules(ctx, companyID); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete labor rules: %w", err)
	}
	return nil
}
