// Package models defines the core domain models for workforce timekeeping:
// shift templates, daily assignments, absences, clock events, per-day
// attendance records and per-company labor rules.
package models

import (
	"time"

	"github.com/google/uuid"
)

// ClockType identifies the direction of a clock event.
type ClockType string

const (
	ClockIn  ClockType = "in"
	ClockOut ClockType = "out"
)

// Valid reports whether the clock type is one of the recognized values.
func (t ClockType) Valid() bool {
	return t == ClockIn || t == ClockOut
}

// Opposite returns the clock type that must alternate with this one.
func (t ClockType) Opposite() ClockType {
	if t == ClockIn {
		return ClockOut
	}
	return ClockIn
}

// AbsenceType categorizes an absence request.
type AbsenceType string

const (
	AbsenceVacation AbsenceType = "vacation"
	AbsenceDayOff   AbsenceType = "day_off"
	AbsenceSick     AbsenceType = "sick"
	AbsenceLeave    AbsenceType = "leave"
	AbsenceTraining AbsenceType = "training"
	AbsenceOther    AbsenceType = "other"
)

// AbsenceTypes lists every recognized absence type.
var AbsenceTypes = []AbsenceType{
	AbsenceVacation,
	AbsenceDayOff,
	AbsenceSick,
	AbsenceLeave,
	AbsenceTraining,
	AbsenceOther,
}

// Valid reports whether the absence type is one of the recognized values.
func (t AbsenceType) Valid() bool {
	for _, v := range AbsenceTypes {
		if t == v {
			return true
		}
	}
	return false
}

// AbsenceStatus tracks the approval state of an absence.
type AbsenceStatus string

const (
	AbsencePending  AbsenceStatus = "pending"
	AbsenceApproved AbsenceStatus = "approved"
	AbsenceRejected AbsenceStatus = "rejected"
)

// Valid reports whether the status is one of the recognized values.
func (s AbsenceStatus) Valid() bool {
	return s == AbsencePending || s == AbsenceApproved || s == AbsenceRejected
}

// Shift is a named, company-scoped template of a start/end time-of-day.
// Times are stored as "HH:MM" strings; an end time at or before the start
// time means the shift crosses midnight.
type Shift struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID uuid.UUID `gorm:"type:uuid;index"`
	Name      string    `gorm:"size:100"`
	StartTime string    `gorm:"size:8"`
	EndTime   string    `gorm:"size:8"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Assignment binds an employee to a calendar date and either a shift
// template or manually entered hours. When a shift is referenced its
// start/end are copied into StartTime/EndTime at creation time, so later
// edits to the template never change existing assignments.
type Assignment struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	EmployeeID uuid.UUID  `gorm:"type:uuid;uniqueIndex:idx_assignment_employee_date"`
	CompanyID  uuid.UUID  `gorm:"type:uuid;index"`
	ShiftID    *uuid.UUID `gorm:"type:uuid"`
	Date       time.Time  `gorm:"uniqueIndex:idx_assignment_employee_date"`
	StartTime  string     `gorm:"size:8"`
	EndTime    string     `gorm:"size:8"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AssignmentUpdate represents the fields that can be updated for an
// Assignment. Pointer types allow partial updates.
type AssignmentUpdate struct {
	ID         uuid.UUID
	EmployeeID uuid.UUID
	CompanyID  uuid.UUID
	ShiftID    *uuid.UUID
	Date       *time.Time
	StartTime  *string
	EndTime    *string
}

// Absence is a typed, date-ranged record of planned non-attendance,
// subject to approval. Both range bounds are inclusive calendar days.
type Absence struct {
	ID         uuid.UUID     `gorm:"type:uuid;primaryKey"`
	EmployeeID uuid.UUID     `gorm:"type:uuid;index"`
	CompanyID  uuid.UUID     `gorm:"type:uuid;index"`
	Type       AbsenceType   `gorm:"size:20"`
	StartDate  time.Time     `gorm:"index"`
	EndDate    time.Time     `gorm:"index"`
	Status     AbsenceStatus `gorm:"size:20"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AbsenceUpdate represents the fields that can be updated for an Absence.
type AbsenceUpdate struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	Type      *AbsenceType
	StartDate *time.Time
	EndDate   *time.Time
	Status    *AbsenceStatus
}

// ClockEvent is a single timestamped in/out stamp in an employee's
// attendance sequence.
type ClockEvent struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	EmployeeID uuid.UUID `gorm:"type:uuid;index"`
	CompanyID  uuid.UUID `gorm:"type:uuid;index"`
	Type       ClockType `gorm:"size:8"`
	Timestamp  time.Time `gorm:"index"`
	Method     string    `gorm:"size:20"`
	CreatedAt  time.Time
}

// ClockEventUpdate represents the fields that can be corrected on a
// stored ClockEvent.
type ClockEventUpdate struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	Type      *ClockType
	Timestamp *time.Time
	Method    *string
}

// DayRecord pairs one clock-in/out with the shift window expected for a
// specific calendar day. It is the canonical representation consumed by
// the attendance report.
type DayRecord struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	EmployeeID uuid.UUID  `gorm:"type:uuid;uniqueIndex:idx_day_record_employee_day"`
	CompanyID  uuid.UUID  `gorm:"type:uuid;index"`
	Day        time.Time  `gorm:"uniqueIndex:idx_day_record_employee_day"`
	ShiftStart string     `gorm:"size:8"`
	ShiftEnd   string     `gorm:"size:8"`
	EntryAt    *time.Time
	ExitAt     *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DayRecordUpdate represents the fields that can be corrected on a
// stored DayRecord.
type DayRecordUpdate struct {
	ID         uuid.UUID
	CompanyID  uuid.UUID
	ShiftStart *string
	ShiftEnd   *string
	EntryAt    *time.Time
	ExitAt     *time.Time
}

// LaborRules holds the per-company configurable limits bounding shift
// duration, overtime and rest. Hour limits are expressed in hours; the
// night window bounds are "HH:MM" times-of-day.
type LaborRules struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID         uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	MaxDailyHours     float64
	MaxWeeklyHours    float64
	NightWindowStart  string `gorm:"size:8"`
	NightWindowEnd    string `gorm:"size:8"`
	MaxNightHours     float64
	MaxUnhealthyHours float64
	OvertimeAllowed   bool
	MaxDailyOvertime  float64
	MaxWeeklyOvertime float64
	MinRestHours      float64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// DayMetrics is the per-day cell of a monthly attendance report.
// Flags are 0/1; percentages are in [0,100].
type DayMetrics struct {
	DayOff      int     `json:"day_off"`
	AttendedPct float64 `json:"attended_pct"`
	Vacation    int     `json:"vacation"`
	AbsencePct  float64 `json:"absence_pct"`
	Leave       int     `json:"leave"`
	Sick        int     `json:"sick"`
	Training    int     `json:"training"`
}

// ReportEntry is one calendar day of a monthly attendance report.
type ReportEntry struct {
	Day     time.Time  `json:"day"`
	Metrics DayMetrics `json:"metrics"`
}
