// Package errors defines the rejection taxonomy shared by the timekeeping
// validators. Validators return these as structured values; the handler
// tier maps them to transport responses.
package errors

import (
	"fmt"
	"strings"
	"time"

	"github.com/gartstein/timeclock/internal/attendance/models"
)

var (
	// Input rejections: required data absent or malformed.
	ErrInvalidInput  = fmt.Errorf("invalid input")
	ErrMissingFields = fmt.Errorf("missing required fields")
	ErrMissingHours  = fmt.Errorf("missing manual start or end hour")
	ErrInvalidType   = fmt.Errorf("invalid type")
	ErrInvalidStatus = fmt.Errorf("invalid status")

	// Temporal invariant rejections.
	ErrInvalidHourOrder = fmt.Errorf("start hour must be earlier than end hour")
	ErrInvertedRange    = fmt.Errorf("start date is after end date")
	ErrTooFarAhead      = fmt.Errorf("absence ends more than one year ahead")
	ErrFutureShift      = fmt.Errorf("shift day has not started yet")
	ErrBackdatedEvent   = fmt.Errorf("event predates the last recorded event")
	ErrFutureEvent      = fmt.Errorf("event timestamp is in the future")

	// Conflicts with existing state.
	ErrDuplicateAssignment   = fmt.Errorf("employee already has an assignment for that date")
	ErrOverlappingAssignment = fmt.Errorf("assignment overlaps an existing one")
	ErrOverlappingAbsence    = fmt.Errorf("absence overlaps an existing one")
	ErrConsecutiveSameType   = fmt.Errorf("consecutive clock events of the same type")
	ErrDuplicateDayRecord    = fmt.Errorf("employee already has a day record for that day")

	// Missing targets.
	ErrNotFound      = fmt.Errorf("not found")
	ErrShiftNotFound = fmt.Errorf("shift not found")

	// Business-rule guards.
	ErrExceedsMaxDailyHours = fmt.Errorf("shift exceeds the maximum daily hours")
	ErrCannotDeleteApproved = fmt.Errorf("approved absences cannot be deleted")
	ErrRulesExist           = fmt.Errorf("labor rules already exist for the company")
)

// AbsenceConflictError names the absence a proposed range collides with.
type AbsenceConflictError struct {
	Type      models.AbsenceType
	StartDate time.Time
	EndDate   time.Time
}

func (e *AbsenceConflictError) Error() string {
	return fmt.Sprintf("absence conflicts with a %s absence from %s to %s",
		e.Type, e.StartDate.Format("2006-01-02"), e.EndDate.Format("2006-01-02"))
}

func (e *AbsenceConflictError) Unwrap() error {
	return ErrOverlappingAbsence
}

// AssignmentConflictError names the assignment a proposed interval
// collides with.
type AssignmentConflictError struct {
	Date      time.Time
	StartTime string
	EndTime   string
}

func (e *AssignmentConflictError) Error() string {
	return fmt.Sprintf("assignment overlaps the %s shift %s-%s of the same employee",
		e.Date.Format("2006-01-02"), e.StartTime, e.EndTime)
}

func (e *AssignmentConflictError) Unwrap() error {
	return ErrOverlappingAssignment
}

// RuleViolationsError carries every labor-rule violation found on a write,
// so a caller can fix all of them in one round trip.
type RuleViolationsError struct {
	Violations []string
}

func (e *RuleViolationsError) Error() string {
	return fmt.Sprintf("labor rules rejected: %s", strings.Join(e.Violations, "; "))
}

func (e *RuleViolationsError) Unwrap() error {
	return ErrInvalidInput
}
