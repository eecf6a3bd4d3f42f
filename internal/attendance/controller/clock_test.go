package controller

import (
	"context"
	"testing"
	"time"

	"github.com/gartstein/timeclock/internal/attendance/db"
	e "github.com/gartstein/timeclock/internal/attendance/errors"
	"github.com/gartstein/timeclock/internal/attendance/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newClockService(t *testing.T) (*ClockService, *db.Repository) {
	repo := newTestRepo(t)
	svc := NewClockService(repo, &recordingProducer{}, zaptest.NewLogger(t))
	svc.now = frozenNow
	return svc, repo
}

func TestRegisterEventDefaults(t *testing.T) {
	svc, _ := newClockService(t)

	ev, err := svc.RegisterEvent(context.Background(), &models.ClockEvent{
		EmployeeID: uuid.New(),
		CompanyID:  uuid.New(),
		Type:       models.ClockIn,
	})
	require.NoError(t, err)
	assert.Equal(t, testNow, ev.Timestamp, "timestamp defaults to now")
	assert.Equal(t, "web", ev.Method, "method defaults to web")
}

func TestRegisterEventMissingFields(t *testing.T) {
	svc, _ := newClockService(t)

	_, err := svc.RegisterEvent(context.Background(), &models.ClockEvent{
		EmployeeID: uuid.New(),
		Type:       models.ClockIn,
	})
	assert.ErrorIs(t, err, e.ErrMissingFields)
}

func TestRegisterEventInvalidType(t *testing.T) {
	svc, _ := newClockService(t)

	_, err := svc.RegisterEvent(context.Background(), &models.ClockEvent{
		EmployeeID: uuid.New(),
		CompanyID:  uuid.New(),
		Type:       "pause",
	})
	assert.ErrorIs(t, err, e.ErrInvalidType)
}

func TestRegisterEventInFuture(t *testing.T) {
	svc, _ := newClockService(t)

	_, err := svc.RegisterEvent(context.Background(), &models.ClockEvent{
		EmployeeID: uuid.New(),
		CompanyID:  uuid.New(),
		Type:       models.ClockIn,
		Timestamp:  testNow.Add(time.Minute),
	})
	assert.ErrorIs(t, err, e.ErrFutureEvent)
}

func TestRegisterEventAlternation(t *testing.T) {
	svc, _ := newClockService(t)
	ctx := context.Background()
	employeeID := uuid.New()
	companyID := uuid.New()

	_, err := svc.RegisterEvent(ctx, &models.ClockEvent{
		EmployeeID: employeeID,
		CompanyID:  companyID,
		Type:       models.ClockIn,
		Timestamp:  testNow.Add(-2 * time.Hour),
	})
	require.NoError(t, err)

	_, err = svc.RegisterEvent(ctx, &models.ClockEvent{
		EmployeeID: employeeID,
		CompanyID:  companyID,
		Type:       models.ClockIn,
		Timestamp:  testNow.Add(-time.Hour),
	})
	assert.ErrorIs(t, err, e.ErrConsecutiveSameType)

	_, err = svc.RegisterEvent(ctx, &models.ClockEvent{
		EmployeeID: employeeID,
		CompanyID:  companyID,
		Type:       models.ClockOut,
		Timestamp:  testNow.Add(-time.Hour),
	})
	assert.NoError(t, err)
}

func TestRegisterEventBackdated(t *testing.T) {
	svc, _ := newClockService(t)
	ctx := context.Background()
	employeeID := uuid.New()
	companyID := uuid.New()

	_, err := svc.RegisterEvent(ctx, &models.ClockEvent{
		EmployeeID: employeeID,
		CompanyID:  companyID,
		Type:       models.ClockIn,
		Timestamp:  testNow.Add(-time.Hour),
	})
	require.NoError(t, err)

	_, err = svc.RegisterEvent(ctx, &models.ClockEvent{
		EmployeeID: employeeID,
		CompanyID:  companyID,
		Type:       models.ClockOut,
		Timestamp:  testNow.Add(-2 * time.Hour),
	})
	assert.ErrorIs(t, err, e.ErrBackdatedEvent)
}

func TestRegisterEventFoldsIntoDayRecord(t *testing.T) {
	svc, repo := newClockService(t)
	ctx := context.Background()
	employeeID := uuid.New()
	companyID := uuid.New()

	// An assignment on the day supplies the expected shift window.
	require.NoError(t, repo.CreateAssignment(ctx, &models.Assignment{
		ID:         uuid.New(),
		EmployeeID: employeeID,
		CompanyID:  companyID,
		Date:       date(2024, 3, 15),
		StartTime:  "09:00",
		EndTime:    "17:00",
	}))

	in := testNow.Add(-3 * time.Hour)
	out := testNow.Add(-time.Hour)
	_, err := svc.RegisterEvent(ctx, &models.ClockEvent{
		EmployeeID: employeeID,
		CompanyID:  companyID,
		Type:       models.ClockIn,
		Timestamp:  in,
	})
	require.NoError(t, err)
	_, err = svc.RegisterEvent(ctx, &models.ClockEvent{
		EmployeeID: employeeID,
		CompanyID:  companyID,
		Type:       models.ClockOut,
		Timestamp:  out,
	})
	require.NoError(t, err)

	rec, err := repo.DayRecordForDay(ctx, employeeID, date(2024, 3, 15))
	require.NoError(t, err)
	assert.Equal(t, "09:00", rec.ShiftStart)
	assert.Equal(t, "17:00", rec.ShiftEnd)
	require.NotNil(t, rec.EntryAt)
	require.NotNil(t, rec.ExitAt)
	assert.Equal(t, in, rec.EntryAt.UTC())
	assert.Equal(t, out, rec.ExitAt.UTC())
}

func TestCreateDayRecordInFuture(t *testing.T) {
	svc, _ := newClockService(t)

	_, err := svc.CreateDayRecord(context.Background(), &models.DayRecord{
		EmployeeID: uuid.New(),
		CompanyID:  uuid.New(),
		Day:        date(2024, 3, 16),
		ShiftStart: "09:00",
		ShiftEnd:   "17:00",
	})
	assert.ErrorIs(t, err, e.ErrFutureShift)
}

func TestCreateDayRecord(t *testing.T) {
	svc, repo := newClockService(t)
	ctx := context.Background()
	employeeID := uuid.New()

	created, err := svc.CreateDayRecord(ctx, &models.DayRecord{
		EmployeeID: employeeID,
		CompanyID:  uuid.New(),
		Day:        date(2024, 3, 14),
		ShiftStart: "09:00",
		ShiftEnd:   "17:00",
	})
	require.NoError(t, err)

	got, err := repo.DayRecordForDay(ctx, employeeID, date(2024, 3, 14))
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestCreateDayRecordDuplicateDay(t *testing.T) {
	svc, _ := newClockService(t)
	ctx := context.Background()
	employeeID := uuid.New()
	companyID := uuid.New()

	_, err := svc.CreateDayRecord(ctx, &models.DayRecord{
		EmployeeID: employeeID,
		CompanyID:  companyID,
		Day:        date(2024, 3, 14),
		ShiftStart: "09:00",
		ShiftEnd:   "17:00",
	})
	require.NoError(t, err)

	_, err = svc.CreateDayRecord(ctx, &models.DayRecord{
		EmployeeID: employeeID,
		CompanyID:  companyID,
		Day:        date(2024, 3, 14),
		ShiftStart: "10:00",
		ShiftEnd:   "18:00",
	})
	assert.ErrorIs(t, err, e.ErrDuplicateDayRecord)
}

func TestSetEntryAndExit(t *testing.T) {
	svc, _ := newClockService(t)
	ctx := context.Background()
	employeeID := uuid.New()

	_, err := svc.CreateDayRecord(ctx, &models.DayRecord{
		EmployeeID: employeeID,
		CompanyID:  uuid.New(),
		Day:        date(2024, 3, 14),
		ShiftStart: "09:00",
		ShiftEnd:   "17:00",
	})
	require.NoError(t, err)

	entry := date(2024, 3, 14).Add(9 * time.Hour)
	rec, err := svc.SetEntry(ctx, employeeID, date(2024, 3, 14), entry)
	require.NoError(t, err)
	require.NotNil(t, rec.EntryAt)
	assert.Equal(t, entry, rec.EntryAt.UTC())

	exit := date(2024, 3, 14).Add(17 * time.Hour)
	rec, err = svc.SetExit(ctx, employeeID, date(2024, 3, 14), exit)
	require.NoError(t, err)
	require.NotNil(t, rec.ExitAt)
	assert.Equal(t, exit, rec.ExitAt.UTC())
}

func TestSetEntryWithoutRecord(t *testing.T) {
	svc, _ := newClockService(t)

	_, err := svc.SetEntry(context.Background(), uuid.New(), date(2024, 3, 14), testNow)
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestUpdateEventCorrection(t *testing.T) {
	svc, _ := newClockService(t)
	ctx := context.Background()
	companyID := uuid.New()

	ev, err := svc.RegisterEvent(ctx, &models.ClockEvent{
		EmployeeID: uuid.New(),
		CompanyID:  companyID,
		Type:       models.ClockIn,
		Timestamp:  testNow.Add(-time.Hour),
	})
	require.NoError(t, err)

	corrected := testNow.Add(-30 * time.Minute)
	updated, err := svc.UpdateEvent(ctx, &models.ClockEventUpdate{
		ID:        ev.ID,
		CompanyID: companyID,
		Timestamp: &corrected,
	})
	require.NoError(t, err)
	assert.Equal(t, corrected, updated.Timestamp.UTC())
}

func TestDeleteEvent(t *testing.T) {
	svc, _ := newClockService(t)
	ctx := context.Background()
	companyID := uuid.New()

	ev, err := svc.RegisterEvent(ctx, &models.ClockEvent{
		EmployeeID: uuid.New(),
		CompanyID:  companyID,
		Type:       models.ClockIn,
		Timestamp:  testNow.Add(-time.Hour),
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteEvent(ctx, ev.ID, companyID))
	assert.ErrorIs(t, svc.DeleteEvent(ctx, ev.ID, companyID), e.ErrNotFound)
}
