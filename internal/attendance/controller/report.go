package controller

import (
	"context"
	"fmt"
	"time"

	e "github.com/gartstein/timeclock/internal/attendance/errors"
	"github.com/gartstein/timeclock/internal/attendance/models"
	"github.com/gartstein/timeclock/internal/attendance/timeutil"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReportRepository defines the read-side storage interface for the
// monthly attendance report.
type ReportRepository interface {
	ListApprovedAbsencesInRange(ctx context.Context, employeeID uuid.UUID, from, to time.Time) ([]models.Absence, error)
	ListDayRecordsInRange(ctx context.Context, employeeID uuid.UUID, from, to time.Time) ([]models.DayRecord, error)
}

// ReportService builds per-employee monthly attendance reports. It is a
// pure read-side computation and mutates nothing.
type ReportService struct {
	repo   ReportRepository
	logger *zap.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(repo ReportRepository, logger *zap.Logger) *ReportService {
	return &ReportService{
		repo:   repo,
		logger: logger.Named("report_service"),
	}
}

// BuildMonthlyReport returns one entry per calendar day of the month,
// ascending and gap-free even when no underlying records exist. Each day
// combines the approved-absence type flags, the attended percentage from
// that day's clock pair and the complementary absence percentage. The
// result is deterministic for unchanged underlying data.
func (s *ReportService) BuildMonthlyReport(ctx context.Context, employeeID uuid.UUID, year int, month time.Month) ([]models.ReportEntry, error) {
	if employeeID == uuid.Nil {
		return nil, fmt.Errorf("%w: employee_id is required", e.ErrInvalidInput)
	}
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: month %d out of range", e.ErrInvalidInput, month)
	}

	days := timeutil.MonthDays(year, month)
	first, last := days[0], days[len(days)-1]

	absences, err := s.repo.ListApprovedAbsencesInRange(ctx, employeeID, first, last)
	if err != nil {
		return nil, fmt.Errorf("failed to list absences: %w", err)
	}
	records, err := s.repo.ListDayRecordsInRange(ctx, employeeID, first, last)
	if err != nil {
		return nil, fmt.Errorf("failed to list day records: %w", err)
	}

	recordByDay := make(map[time.Time]*models.DayRecord, len(records))
	for i := range records {
		recordByDay[timeutil.Day(records[i].Day)] = &records[i]
	}

	report := make([]models.ReportEntry, 0, len(days))
	for _, day := range days {
		metrics := models.DayMetrics{}
		for _, a := range absences {
			if !timeutil.DateRangesOverlap(timeutil.Day(a.StartDate), timeutil.Day(a.EndDate), day, day) {
				continue
			}
			switch a.Type {
			case models.AbsenceVacation:
				metrics.Vacation = 1
			case models.AbsenceDayOff:
				metrics.DayOff = 1
			case models.AbsenceSick:
				metrics.Sick = 1
			case models.AbsenceLeave:
				metrics.Leave = 1
			case models.AbsenceTraining:
				metrics.Training = 1
			}
		}

		if rec, ok := recordByDay[day]; ok {
			metrics.AttendedPct = attendedPct(rec)
		}
		metrics.AbsencePct = 100 - metrics.AttendedPct

		report = append(report, models.ReportEntry{Day: day, Metrics: metrics})
	}
	return report, nil
}

// attendedPct is the worked share of the expected shift window, clamped
// to [0,100]. Days with a missing stamp or a malformed window yield 0.
func attendedPct(rec *models.DayRecord) float64 {
	if rec.EntryAt == nil || rec.ExitAt == nil {
		return 0
	}
	shiftMinutes, err := timeutil.ShiftDurationMinutes(rec.ShiftStart, rec.ShiftEnd)
	if err != nil || shiftMinutes == 0 {
		return 0
	}
	worked := rec.ExitAt.Sub(*rec.EntryAt).Minutes()
	pct := worked * 100 / float64(shiftMinutes)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
