package controller

import (
	"context"
	"testing"

	"github.com/gartstein/timeclock/internal/attendance/db"
	e "github.com/gartstein/timeclock/internal/attendance/errors"
	"github.com/gartstein/timeclock/internal/attendance/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newRulesService(t *testing.T) (*RulesService, *db.Repository) {
	repo := newTestRepo(t)
	svc := NewRulesService(repo, &recordingProducer{}, zaptest.NewLogger(t))
	return svc, repo
}

func validRules(companyID uuid.UUID) *models.LaborRules {
	return &models.LaborRules{
		CompanyID:         companyID,
		MaxDailyHours:     9,
		MaxWeeklyHours:    40,
		NightWindowStart:  "22:00",
		NightWindowEnd:    "06:00",
		MaxNightHours:     8,
		OvertimeAllowed:   true,
		MaxDailyOvertime:  2,
		MaxWeeklyOvertime: 10,
		MinRestHours:      12,
	}
}

func TestCreateAndGetRules(t *testing.T) {
	svc, _ := newRulesService(t)
	ctx := context.Background()
	companyID := uuid.New()

	created, err := svc.CreateRules(ctx, validRules(companyID))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	got, err := svc.GetRules(ctx, companyID)
	require.NoError(t, err)
	assert.Equal(t, 9.0, got.MaxDailyHours)
}

func TestCreateRulesAlreadyExist(t *testing.T) {
	svc, _ := newRulesService(t)
	ctx := context.Background()
	companyID := uuid.New()

	_, err := svc.CreateRules(ctx, validRules(companyID))
	require.NoError(t, err)

	_, err = svc.CreateRules(ctx, validRules(companyID))
	assert.ErrorIs(t, err, e.ErrRulesExist)
}

func TestCreateRulesReportsEveryViolation(t *testing.T) {
	svc, _ := newRulesService(t)

	broken := &models.LaborRules{
		CompanyID:         uuid.New(),
		MaxDailyHours:     0,
		MaxWeeklyHours:    0,
		NightWindowStart:  "23:00",
		NightWindowEnd:    "23:00",
		MaxNightHours:     10,
		MaxDailyOvertime:  5,
		MaxWeeklyOvertime: 2,
		MinRestHours:      6,
	}
	_, err := svc.CreateRules(context.Background(), broken)
	assert.ErrorIs(t, err, e.ErrInvalidInput)

	var violations *e.RuleViolationsError
	require.ErrorAs(t, err, &violations)
	assert.Len(t, violations.Violations, 6, "all violations come back in one response")
}

func TestCreateRulesNightWindowRequired(t *testing.T) {
	svc, _ := newRulesService(t)

	rules := validRules(uuid.New())
	rules.NightWindowStart = ""
	rules.NightWindowEnd = "25:00"

	_, err := svc.CreateRules(context.Background(), rules)
	var violations *e.RuleViolationsError
	require.ErrorAs(t, err, &violations)
	assert.Contains(t, violations.Violations, "night window start is required")
	assert.Contains(t, violations.Violations, "night window end is not a valid time of day")
}

func TestUpdateRules(t *testing.T) {
	svc, _ := newRulesService(t)
	ctx := context.Background()
	companyID := uuid.New()

	_, err := svc.CreateRules(ctx, validRules(companyID))
	require.NoError(t, err)

	rules := validRules(companyID)
	rules.MaxDailyHours = 8
	updated, err := svc.UpdateRules(ctx, rules)
	require.NoError(t, err)
	assert.Equal(t, 8.0, updated.MaxDailyHours)
}

func TestUpdateRulesNotConfigured(t *testing.T) {
	svc, _ := newRulesService(t)

	_, err := svc.UpdateRules(context.Background(), validRules(uuid.New()))
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestDeleteRules(t *testing.T) {
	svc, _ := newRulesService(t)
	ctx := context.Background()
	companyID := uuid.New()

	_, err := svc.CreateRules(ctx, validRules(companyID))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRules(ctx, companyID))
	assert.ErrorIs(t, svc.DeleteRules(ctx, companyID), e.ErrNotFound)
}
