package controller

import (
	"context"
	"testing"

	"github.com/gartstein/timeclock/internal/attendance/db"
	e "github.com/gartstein/timeclock/internal/attendance/errors"
	"github.com/gartstein/timeclock/internal/attendance/models"
	"github.com/gartstein/timeclock/internal/pkg/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newAssignmentService(t *testing.T) (*AssignmentService, *db.Repository) {
	repo := newTestRepo(t)
	svc := NewAssignmentService(repo, repo, repo, &recordingProducer{}, zaptest.NewLogger(t))
	return svc, repo
}

func TestCreateAssignmentManualHours(t *testing.T) {
	svc, _ := newAssignmentService(t)
	ctx := context.Background()

	created, err := svc.CreateAssignment(ctx, &models.Assignment{
		EmployeeID: uuid.New(),
		CompanyID:  uuid.New(),
		Date:       date(2024, 3, 4),
		StartTime:  "09:00",
		EndTime:    "17:00",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, date(2024, 3, 4), created.Date)
}

func TestCreateAssignmentRequiresEmployeeAndDate(t *testing.T) {
	svc, _ := newAssignmentService(t)

	_, err := svc.CreateAssignment(context.Background(), &models.Assignment{
		EmployeeID: uuid.New(),
	})
	assert.ErrorIs(t, err, e.ErrInvalidInput)
}

func TestCreateAssignmentDuplicateDate(t *testing.T) {
	svc, _ := newAssignmentService(t)
	ctx := context.Background()
	employeeID := uuid.New()

	_, err := svc.CreateAssignment(ctx, &models.Assignment{
		EmployeeID: employeeID,
		CompanyID:  uuid.New(),
		Date:       date(2024, 3, 4),
		StartTime:  "09:00",
		EndTime:    "13:00",
	})
	require.NoError(t, err)

	// A second assignment on the same day is refused even with disjoint
	// hours.
	_, err = svc.CreateAssignment(ctx, &models.Assignment{
		EmployeeID: employeeID,
		CompanyID:  uuid.New(),
		Date:       date(2024, 3, 4),
		StartTime:  "14:00",
		EndTime:    "18:00",
	})
	assert.ErrorIs(t, err, e.ErrDuplicateAssignment)
}

func TestCreateAssignmentMissingHours(t *testing.T) {
	svc, _ := newAssignmentService(t)

	_, err := svc.CreateAssignment(context.Background(), &models.Assignment{
		EmployeeID: uuid.New(),
		CompanyID:  uuid.New(),
		Date:       date(2024, 3, 4),
		StartTime:  "09:00",
	})
	assert.ErrorIs(t, err, e.ErrMissingHours)
}

func TestCreateAssignmentInvalidHourOrder(t *testing.T) {
	svc, _ := newAssignmentService(t)

	_, err := svc.CreateAssignment(context.Background(), &models.Assignment{
		EmployeeID: uuid.New(),
		CompanyID:  uuid.New(),
		Date:       date(2024, 3, 4),
		StartTime:  "17:00",
		EndTime:    "09:00",
	})
	assert.ErrorIs(t, err, e.ErrInvalidHourOrder)
}

func TestCreateAssignmentOvernightOverlap(t *testing.T) {
	svc, repo := newAssignmentService(t)
	ctx := context.Background()
	employeeID := uuid.New()
	companyID := uuid.New()

	night := uuid.New()
	require.NoError(t, repo.CreateShift(ctx, &models.Shift{
		ID:        night,
		CompanyID: companyID,
		Name:      "Night",
		StartTime: "22:00",
		EndTime:   "06:00",
	}))

	_, err := svc.CreateAssignment(ctx, &models.Assignment{
		EmployeeID: employeeID,
		CompanyID:  companyID,
		ShiftID:    &night,
		Date:       date(2024, 3, 4),
	})
	require.NoError(t, err)

	// The night shift spills into March 5th until 06:00; morning hours
	// starting at 05:00 collide with it.
	_, err = svc.CreateAssignment(ctx, &models.Assignment{
		EmployeeID: employeeID,
		CompanyID:  companyID,
		Date:       date(2024, 3, 5),
		StartTime:  "05:00",
		EndTime:    "09:00",
	})
	assert.ErrorIs(t, err, e.ErrOverlappingAssignment)

	var conflict *e.AssignmentConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "22:00", conflict.StartTime)

	// Touching intervals do not overlap; 06:00 is exactly where the
	// night shift ends.
	_, err = svc.CreateAssignment(ctx, &models.Assignment{
		EmployeeID: employeeID,
		CompanyID:  companyID,
		Date:       date(2024, 3, 5),
		StartTime:  "06:00",
		EndTime:    "10:00",
	})
	assert.NoError(t, err)
}

func TestCreateAssignmentShiftSnapshotsHours(t *testing.T) {
	svc, repo := newAssignmentService(t)
	ctx := context.Background()
	companyID := uuid.New()

	shiftID := uuid.New()
	require.NoError(t, repo.CreateShift(ctx, &models.Shift{
		ID:        shiftID,
		CompanyID: companyID,
		Name:      "Evening",
		StartTime: "14:00",
		EndTime:   "22:00",
	}))

	created, err := svc.CreateAssignment(ctx, &models.Assignment{
		EmployeeID: uuid.New(),
		CompanyID:  companyID,
		ShiftID:    &shiftID,
		Date:       date(2024, 3, 4),
	})
	require.NoError(t, err)
	assert.Equal(t, "14:00", created.StartTime)
	assert.Equal(t, "22:00", created.EndTime)
}

func TestCreateAssignmentShiftExceedsDailyLimit(t *testing.T) {
	svc, repo := newAssignmentService(t)
	ctx := context.Background()
	companyID := uuid.New()

	require.NoError(t, repo.CreateRules(ctx, &models.LaborRules{
		ID:               uuid.New(),
		CompanyID:        companyID,
		MaxDailyHours:    8,
		MaxWeeklyHours:   40,
		NightWindowStart: "22:00",
		NightWindowEnd:   "06:00",
		MinRestHours:     12,
	}))

	// 20:00 to 05:00 crosses midnight and lasts nine hours.
	longID := uuid.New()
	require.NoError(t, repo.CreateShift(ctx, &models.Shift{
		ID:        longID,
		CompanyID: companyID,
		Name:      "Long Night",
		StartTime: "20:00",
		EndTime:   "05:00",
	}))

	_, err := svc.CreateAssignment(ctx, &models.Assignment{
		EmployeeID: uuid.New(),
		CompanyID:  companyID,
		ShiftID:    &longID,
		Date:       date(2024, 3, 4),
	})
	assert.ErrorIs(t, err, e.ErrExceedsMaxDailyHours)

	// Exactly at the limit passes: 22:00 to 06:00 is eight hours.
	okID := uuid.New()
	require.NoError(t, repo.CreateShift(ctx, &models.Shift{
		ID:        okID,
		CompanyID: companyID,
		Name:      "Night",
		StartTime: "22:00",
		EndTime:   "06:00",
	}))
	_, err = svc.CreateAssignment(ctx, &models.Assignment{
		EmployeeID: uuid.New(),
		CompanyID:  companyID,
		ShiftID:    &okID,
		Date:       date(2024, 3, 4),
	})
	assert.NoError(t, err)
}

func TestCreateAssignmentUnknownShift(t *testing.T) {
	svc, _ := newAssignmentService(t)
	shiftID := uuid.New()

	_, err := svc.CreateAssignment(context.Background(), &models.Assignment{
		EmployeeID: uuid.New(),
		CompanyID:  uuid.New(),
		ShiftID:    &shiftID,
		Date:       date(2024, 3, 4),
	})
	assert.ErrorIs(t, err, e.ErrShiftNotFound)
}

func TestUpdateAssignmentKeepsOwnDate(t *testing.T) {
	svc, _ := newAssignmentService(t)
	ctx := context.Background()
	employeeID := uuid.New()

	created, err := svc.CreateAssignment(ctx, &models.Assignment{
		EmployeeID: employeeID,
		CompanyID:  uuid.New(),
		Date:       date(2024, 3, 4),
		StartTime:  "09:00",
		EndTime:    "13:00",
	})
	require.NoError(t, err)

	// Re-saving the record on its own date must not trip the duplicate
	// check against itself.
	updated, err := svc.UpdateAssignment(ctx, &models.AssignmentUpdate{
		ID:         created.ID,
		EmployeeID: employeeID,
		StartTime:  utils.Ptr("10:00"),
		EndTime:    utils.Ptr("14:00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "10:00", updated.StartTime)
	assert.Equal(t, "14:00", updated.EndTime)
}

func TestUpdateAssignmentNotFound(t *testing.T) {
	svc, _ := newAssignmentService(t)

	_, err := svc.UpdateAssignment(context.Background(), &models.AssignmentUpdate{
		ID:         uuid.New(),
		EmployeeID: uuid.New(),
		StartTime:  utils.Ptr("09:00"),
		EndTime:    utils.Ptr("17:00"),
	})
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestDeleteAssignment(t *testing.T) {
	svc, repo := newAssignmentService(t)
	ctx := context.Background()
	employeeID := uuid.New()

	created, err := svc.CreateAssignment(ctx, &models.Assignment{
		EmployeeID: employeeID,
		CompanyID:  uuid.New(),
		Date:       date(2024, 3, 4),
		StartTime:  "09:00",
		EndTime:    "17:00",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAssignment(ctx, created.ID, employeeID))
	_, err = repo.GetAssignment(ctx, created.ID, employeeID)
	assert.ErrorIs(t, err, e.ErrNotFound)

	assert.ErrorIs(t, svc.DeleteAssignment(ctx, uuid.New(), employeeID), e.ErrNotFound)
}
