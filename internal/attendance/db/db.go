// Package db implements the GORM-backed record store for assignments,
// absences, clock events, day records, shifts and labor rules. Update and
// delete operations are scoped by the owning employee or company and map
// zero affected rows to ErrNotFound so callers can tell a missing target
// from a storage failure.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	e "github.com/gartstein/timeclock/internal/attendance/errors"
	"github.com/gartstein/timeclock/internal/attendance/models"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// NewRepository connects to postgres and migrates the timekeeping schema.
func NewRepository(cfg *Config) (*Repository, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewWithDB(db)
}

// NewWithDB wraps an already opened GORM handle. Tests use this with an
// in-memory sqlite database.
func NewWithDB(db *gorm.DB) (*Repository, error) {
	err := db.AutoMigrate(
		&models.Shift{},
		&models.Assignment{},
		&models.Absence{},
		&models.ClockEvent{},
		&models.DayRecord{},
		&models.LaborRules{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Repository{db: db}, nil
}

// ---------------------------------------------------------------------------
// Shifts

func (r *Repository) CreateShift(ctx context.Context, shift *models.Shift) error {
	return r.db.WithContext(ctx).Create(shift).Error
}

// GetShift looks a shift up scoped by company, preventing cross-tenant reads.
func (r *Repository) GetShift(ctx context.Context, id, companyID uuid.UUID) (*models.Shift, error) {
	var shift models.Shift
	result := r.db.WithContext(ctx).First(&shift, "id = ? AND company_id = ?", id, companyID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrShiftNotFound
		}
		return nil, result.Error
	}
	return &shift, nil
}

func (r *Repository) ListShifts(ctx context.Context, companyID uuid.UUID) ([]models.Shift, error) {
	var shifts []models.Shift
	result := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("name").
		Find(&shifts)
	return shifts, result.Error
}

func (r *Repository) UpdateShift(ctx context.Context, shift *models.Shift) error {
	result := r.db.WithContext(ctx).Model(&models.Shift{}).
		Where("id = ? AND company_id = ?", shift.ID, shift.CompanyID).
		Updates(map[string]any{
			"name":       shift.Name,
			"start_time": shift.StartTime,
			"end_time":   shift.EndTime,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrShiftNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Assignments

// CreateAssignment inserts an assignment. The unique index on
// (employee_id, date) backstops the validator's duplicate check; a
// constraint violation surfaces as the same rejection.
func (r *Repository) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	result := r.db.WithContext(ctx).Create(a)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return e.ErrDuplicateAssignment
		}
		return result.Error
	}
	return nil
}

func (r *Repository) GetAssignment(ctx context.Context, id, employeeID uuid.UUID) (*models.Assignment, error) {
	var a models.Assignment
	result := r.db.WithContext(ctx).First(&a, "id = ? AND employee_id = ?", id, employeeID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &a, nil
}

func (r *Repository) ListAssignmentsByEmployee(ctx context.Context, employeeID uuid.UUID) ([]models.Assignment, error) {
	var assignments []models.Assignment
	result := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("date").
		Find(&assignments)
	return assignments, result.Error
}

func (r *Repository) UpdateAssignment(ctx context.Context, update *models.AssignmentUpdate) error {
	result := r.db.WithContext(ctx).Model(&models.Assignment{}).
		Where("id = ? AND employee_id = ?", update.ID, update.EmployeeID).
		Updates(update)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return e.ErrDuplicateAssignment
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteAssignment(ctx context.Context, id, employeeID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Delete(&models.Assignment{}, "id = ? AND employee_id = ?", id, employeeID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Absences

func (r *Repository) CreateAbsence(ctx context.Context, a *models.Absence) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *Repository) GetAbsence(ctx context.Context, id, companyID uuid.UUID) (*models.Absence, error) {
	var a models.Absence
	result := r.db.WithContext(ctx).First(&a, "id = ? AND company_id = ?", id, companyID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &a, nil
}

func (r *Repository) ListAbsencesByEmployee(ctx context.Context, employeeID, companyID uuid.UUID) ([]models.Absence, error) {
	var absences []models.Absence
	result := r.db.WithContext(ctx).
		Where("employee_id = ? AND company_id = ?", employeeID, companyID).
		Order("start_date").
		Find(&absences)
	return absences, result.Error
}

// ListApprovedAbsencesInRange returns the approved absences whose closed
// date range intersects [from, to].
func (r *Repository) ListApprovedAbsencesInRange(ctx context.Context, employeeID uuid.UUID, from, to time.Time) ([]models.Absence, error) {
	var absences []models.Absence
	result := r.db.WithContext(ctx).
		Where("employee_id = ? AND status = ? AND start_date <= ? AND end_date >= ?",
			employeeID, models.AbsenceApproved, to, from).
		Order("start_date").
		Find(&absences)
	return absences, result.Error
}

func (r *Repository) UpdateAbsence(ctx context.Context, update *models.AbsenceUpdate) error {
	result := r.db.WithContext(ctx).Model(&models.Absence{}).
		Where("id = ? AND company_id = ?", update.ID, update.CompanyID).
		Updates(update)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteAbsence(ctx context.Context, id, companyID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Delete(&models.Absence{}, "id = ? AND company_id = ?", id, companyID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Clock events

func (r *Repository) CreateClockEvent(ctx context.Context, ev *models.ClockEvent) error {
	return r.db.WithContext(ctx).Create(ev).Error
}

// LatestClockEvent returns the employee's most recent event by timestamp,
// or ErrNotFound when the employee has no history.
func (r *Repository) LatestClockEvent(ctx context.Context, employeeID, companyID uuid.UUID) (*models.ClockEvent, error) {
	var ev models.ClockEvent
	result := r.db.WithContext(ctx).
		Where("employee_id = ? AND company_id = ?", employeeID, companyID).
		Order("timestamp DESC").
		First(&ev)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &ev, nil
}

func (r *Repository) GetClockEvent(ctx context.Context, id, companyID uuid.UUID) (*models.ClockEvent, error) {
	var ev models.ClockEvent
	result := r.db.WithContext(ctx).First(&ev, "id = ? AND company_id = ?", id, companyID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &ev, nil
}

func (r *Repository) UpdateClockEvent(ctx context.Context, update *models.ClockEventUpdate) error {
	result := r.db.WithContext(ctx).Model(&models.ClockEvent{}).
		Where("id = ? AND company_id = ?", update.ID, update.CompanyID).
		Updates(update)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteClockEvent(ctx context.Context, id, companyID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Delete(&models.ClockEvent{}, "id = ? AND company_id = ?", id, companyID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Day records

// CreateDayRecord inserts a day record. The unique index on
// (employee_id, day) keeps one record per employee per day.
func (r *Repository) CreateDayRecord(ctx context.Context, rec *models.DayRecord) error {
	result := r.db.WithContext(ctx).Create(rec)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return e.ErrDuplicateDayRecord
		}
		return result.Error
	}
	return nil
}

func (r *Repository) GetDayRecord(ctx context.Context, id, companyID uuid.UUID) (*models.DayRecord, error) {
	var rec models.DayRecord
	result := r.db.WithContext(ctx).First(&rec, "id = ? AND company_id = ?", id, companyID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &rec, nil
}

// DayRecordForDay returns the employee's record for one calendar day.
func (r *Repository) DayRecordForDay(ctx context.Context, employeeID uuid.UUID, day time.Time) (*models.DayRecord, error) {
	var rec models.DayRecord
	result := r.db.WithContext(ctx).
		Where("employee_id = ? AND day = ?", employeeID, day).
		First(&rec)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &rec, nil
}

func (r *Repository) ListDayRecordsInRange(ctx context.Context, employeeID uuid.UUID, from, to time.Time) ([]models.DayRecord, error) {
	var records []models.DayRecord
	result := r.db.WithContext(ctx).
		Where("employee_id = ? AND day BETWEEN ? AND ?", employeeID, from, to).
		Order("day").
		Find(&records)
	return records, result.Error
}

func (r *Repository) UpdateDayRecord(ctx context.Context, update *models.DayRecordUpdate) error {
	result := r.db.WithContext(ctx).Model(&models.DayRecord{}).
		Where("id = ? AND company_id = ?", update.ID, update.CompanyID).
		Updates(update)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Labor rules

func (r *Repository) CreateRules(ctx context.Context, rules *models.LaborRules) error {
	result := r.db.WithContext(ctx).Create(rules)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return e.ErrRulesExist
		}
		return result.Error
	}
	return nil
}

func (r *Repository) GetRules(ctx context.Context, companyID uuid.UUID) (*models.LaborRules, error) {
	var rules models.LaborRules
	result := r.db.WithContext(ctx).First(&rules, "company_id = ?", companyID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &rules, nil
}

func (r *Repository) UpdateRules(ctx context.Context, rules *models.LaborRules) error {
	result := r.db.WithContext(ctx).Model(&models.LaborRules{}).
		Where("company_id = ?", rules.CompanyID).
		Updates(map[string]any{
			"max_daily_hours":     rules.MaxDailyHours,
			"max_weekly_hours":    rules.MaxWeeklyHours,
			"night_window_start":  rules.NightWindowStart,
			"night_window_end":    rules.NightWindowEnd,
			"max_night_hours":     rules.MaxNightHours,
			"max_unhealthy_hours": rules.MaxUnhealthyHours,
			"overtime_allowed":    rules.OvertimeAllowed,
			"max_daily_overtime":  rules.MaxDailyOvertime,
			"max_weekly_overtime": rules.MaxWeeklyOvertime,
			"min_rest_hours":      rules.MinRestHours,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteRules(ctx context.Context, companyID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Delete(&models.LaborRules{}, "company_id = ?", companyID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------

func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
