// Package handlers exposes the timekeeping core over HTTP. It owns JSON
// encoding and the single mapping from rejection kinds to status codes;
// all business decisions stay in the controller package.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gartstein/timeclock/internal/attendance/auth"
	"github.com/gartstein/timeclock/internal/attendance/controller"
	e "github.com/gartstein/timeclock/internal/attendance/errors"
	"github.com/gartstein/timeclock/internal/attendance/models"
	"github.com/gartstein/timeclock/internal/attendance/timeutil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler holds the services the HTTP surface delegates to.
type Handler struct {
	assignments *controller.AssignmentService
	absences    *controller.AbsenceService
	clock       *controller.ClockService
	shifts      *controller.ShiftService
	rules       *controller.RulesService
	reports     *controller.ReportService
	logger      *zap.Logger
}

// NewHandler constructs a Handler.
func NewHandler(
	assignments *controller.AssignmentService,
	absences *controller.AbsenceService,
	clock *controller.ClockService,
	shifts *controller.ShiftService,
	rules *controller.RulesService,
	reports *controller.ReportService,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		assignments: assignments,
		absences:    absences,
		clock:       clock,
		shifts:      shifts,
		rules:       rules,
		reports:     reports,
		logger:      logger.Named("http_handler"),
	}
}

// NewRouter wires the routes, middleware stack and authentication.
func NewRouter(h *Handler, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/assignments", func(r chi.Router) {
			r.Post("/", h.CreateAssignment)
			r.Put("/{id}", h.UpdateAssignment)
			r.Delete("/{id}", h.DeleteAssignment)
		})
		r.Route("/absences", func(r chi.Router) {
			r.Post("/", h.RegisterAbsence)
			r.Put("/{id}", h.ModifyAbsence)
			r.Delete("/{id}", h.DeleteAbsence)
		})
		r.Route("/clock", func(r chi.Router) {
			r.Post("/events", h.RegisterClockEvent)
			r.Post("/days", h.CreateDayRecord)
			r.Put("/days/{day}/entry", h.SetEntry)
			r.Put("/days/{day}/exit", h.SetExit)
		})
		r.Route("/shifts", func(r chi.Router) {
			r.Get("/", h.ListShifts)
			r.Post("/", h.SaveShift)
		})
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", h.GetRules)
			r.Post("/", h.CreateRules)
			r.Put("/", h.UpdateRules)
			r.Delete("/", h.DeleteRules)
		})
		r.Get("/reports/{employeeID}/{year}/{month}", h.MonthlyReport)
	})

	return auth.HTTPMiddleware(r, jwtSecret)
}

// ---------------------------------------------------------------------------
// Assignments

type assignmentRequest struct {
	EmployeeID string  `json:"employee_id"`
	ShiftID    *string `json:"shift_id,omitempty"`
	Date       string  `json:"date"`
	StartTime  string  `json:"start_time,omitempty"`
	EndTime    string  `json:"end_time,omitempty"`
}

func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	identity := auth.FromContext(r.Context())
	var req assignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, e.ErrInvalidInput)
		return
	}

	assignment, err := h.assignmentFromRequest(&req, identity)
	if err != nil {
		h.writeError(w, err)
		return
	}

	created, err := h.assignments.CreateAssignment(r.Context(), assignment)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	identity := auth.FromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, e.ErrInvalidInput)
		return
	}
	var req assignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, e.ErrInvalidInput)
		return
	}

	employeeID, err := uuid.Parse(req.EmployeeID)
	if err != nil {
		h.writeError(w, e.ErrInvalidInput)
		return
	}

	update := &models.AssignmentUpdate{
		ID:         id,
		EmployeeID: employeeID,
		CompanyID:  identity.CompanyID,
	}
	if req.ShiftID != nil {
		shiftID, err := uuid.Parse(*req.ShiftID)
		if err != nil {
			h.writeError(w, e.ErrInvalidInput)
			return
		}
		update.ShiftID = &shiftID
	}
	if req.Date != "" {
		date, err := timeutil.ParseDate(req.Date)
		if err != nil {
			h.writeError(w, e.ErrInvalidInput)
			return
		}
		update.Date = &date
	}
	if req.StartTime != "" {
		update.StartTime = &req.StartTime
	}
	if req.EndTime != "" {
		update.EndTime = &req.EndTime
	}

	updated, err := h.assignments.UpdateAssignment(r.Context(), update)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, e.ErrInvalidInput)
		return
	}
	employeeID, err := uuid.Parse(r.URL.Query().Get("employee_id"))
	if err != nil {
		h.writeError(w, e.ErrInvalidInput)
		return
	}
	if err := h.assignments.DeleteAssignment(r.Context(), id, employeeID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) assignmentFromRequest(req *assignmentRequest, identity *auth.Identity) (*models.Assignment, error) {
	employeeID, err := uuid.Parse(req.EmployeeID)
	if err != nil {
		return nil, e.ErrInvalidInput
	}
	date, err := timeutil.ParseDate(req.Date)
	if err != nil {
		return nil, e.ErrInvalidInput
	}
	assignment := &models.Assignment{
		EmployeeID: employeeID,
		CompanyID:  identity.CompanyID,
		Date:       date,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
	}
	if req.ShiftID != nil {
		shiftID, err := uuid.Parse(*req.ShiftID)
		if err != nil {
			return nil, e.ErrInvalidInput
		}
		assignment.ShiftID = &shiftID
	}
	return assignment, nil
}

// ---------------------------------------------------------------------------
// Absences

type absenceRequest struct {
	EmployeeID string `json:"employee_id"`
	Type       string `json:"type"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Status     string `json:"status,omitempty"`
}

func (h *Handler) RegisterAbsence(w http.ResponseWriter, r *http.Request) {
	identity := auth.FromContext(r.Context())
	var req absenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, e.ErrInvalidInput)
		return
	}

	employeeID, err := uuid.Parse(req.EmployeeID)
	if err != nil {
		h.writeError(w, e.ErrMissingFields)
		return
	}
	start, err := timeutil.ParseDate(req.StartDate)
	if err != nil {
		h.writeError(w, e.ErrMissingFields)
		return
	}
	end, err := timeutil.ParseDate(req.EndDate)
	if err != nil {
		h.writeError(w, e.ErrMissingFields)
		return
	}

	absence := &models.Absence{
		EmployeeID: employeeID,
		CompanyID:  identity.CompanyID,
		Type:       models.AbsenceType(req.Type),
		StartDate:  start,
		EndDate:    end,
		Status:     models.AbsenceStatus(req.Status),
	}
	created, err := h.absences.RegisterAbsence(r.Context(), absence)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) ModifyAbsence(w http.ResponseWriter, r *http.Request) {
	identity := auth.FromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, e.ErrInvalidInput)
		return
	}
	var req absenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, e.ErrInvalidInput)
		return
	}

	update := &models.AbsenceUpdate{ID: id, CompanyID: identity.CompanyID}
	if req.Type != "" {
		t := models.AbsenceType(req.Type)
		update.Type = &t
	}
	if req.Status != "" {
		st := models.AbsenceStatus(req.Status)
		update.Status = &st
	}
	if req.StartDate != "" {
		start, err := timeutil.ParseDate(req.StartDate)
		if err != nil {
			h.writeError(w, e.ErrInvalidInput)
			return
		}
		update.StartDate = &start
	}
	if req.EndDate != "" {
		end, err := timeutil.ParseDate(req.EndDate)
		if err != nil {
			h.writeError(w, e.ErrInvalidInput)
			return
		}
		update.EndDate = &end
	}

	updated, err := h.absences.ModifyAbsence(r.Context(), update)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteAbsence(w http.ResponseWriter, r *http.Request) {
	identity := auth.FromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, e.ErrInvalidInput)
		return
	}
	if err := h.absences.DeleteAbsence(r.Context(), id, identity.CompanyID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Clock

type clockEventRequest struct {
	EmployeeID string     `json:"employee_id"`
	Type       string     `json:"type"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
	Method     string     `json:"method,omitempty"`
}

func (h *Handler) RegisterClockEvent(w http.ResponseWriter, r *http.Request) {
	identity := auth.FromContext(r.Context())
	var req clockEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, e.ErrInvalidInput)
		return
	}
	employeeID, err := uuid.Parse(req.EmployeeID)
	if err != nil {
		h.writeError(w, e.ErrMissingFields)
		return
	}

	event := &models.ClockEvent{
		EmployeeID: employeeID,
		CompanyID:  identity.CompanyID,
		Type:       models.ClockType(req.Type),
		Method:     req.Method,
	}
	if req.Timestamp != nil {
		event.Timestamp = *req.Timestamp
	}

	created, err := h.clock.RegisterEvent(r.Context(), event)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

type dayRecordRequest struct {
	EmployeeID string `json:"employee_id"`
	Day        string `json:"day"`
	ShiftStart string `json:"shift_start"`
	ShiftEnd   string `json:"shift_end"`
}

func (h *Handler) CreateDayRecord(w http.ResponseWriter, r *http.Request) {
	identity := auth.FromContext(r.Context())
	var req dayRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, e.ErrInvalidInput)
		return
	}
	employeeID, err := uuid.Parse(req.EmployeeID)
	if err != nil {
		h.writeError(w, e.ErrMissingFields)
		return
	}
	day, err := timeutil.ParseDate(req.Day)
	if err != nil {
		h.writeError(w, e.ErrMissingFields)
		return
	}

	record := &models.DayRecord{
		EmployeeID: employeeID,
		CompanyID:  identity.CompanyID,
		Day:        day,
		ShiftStart: req.ShiftStart,
		ShiftEnd:   req.ShiftEnd,
	}
	created, err := h.clock.CreateDayRecord(r.Context(), record)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

type stampRequest struct {
	EmployeeID string    `json:"employee_id"`
	Timestamp  time.Time `json:"timestamp"`
}

func (h *Handler) SetEntry(w http.ResponseWriter, r *http.Request) {
	h.setStamp(w, r, true)
}

func (h *Handler) SetExit(w http.ResponseWriter, r *http.Request) {
	h.setStamp(w, r, false)
}

func (h *Handler) setStamp(w http.ResponseWriter, r *http.Request, entry bool) {
	day, err := timeutil.ParseDate(chi.URLParam(r, "day"))
	if err != nil {
		h.writeError(w, e.ErrInvalidInput)
		return
	}
	var req stampRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, e.ErrInvalidInput)
		return
	}
	employeeID, err := uuid.Parse(req.EmployeeID)
	if err != nil {
		h.writeError(w, e.ErrMissingFields)
		return
	}

	var updated *models.DayRecord
	if entry {
		updated, err = h.clock.SetEntry(r.Context(), employeeID, day, req.Timestamp)
	} else {
		updated, err = h.clock.SetExit(r.Context(), employeeID, day, req.Timestamp)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

// ---------------------------------------------------------------------------
// Shifts

type shiftRequest struct {
	ID        *string `json:"id,omitempty"`
	Name      string  `json:"name"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
}

func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	identity := auth.FromContext(r.Context())
	shifts, err := h.shifts.ListShifts(r.Context(), identity.CompanyID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, shifts)
}

func (h *Handler) SaveShift(w http.ResponseWriter, r *http.Request) {
	identity := auth.FromContext(r.Context())
	var req shiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, e.ErrInvalidInput)
		return
	}

	shift := &models.Shift{
		CompanyID: identity.CompanyID,
		Name:      req.Name,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	if req.ID != nil {
		id, err := uuid.Parse(*req.ID)
		if err != nil {
			h.writeError(w, e.ErrInvalidInput)
			return
		}
		shift.ID = id
	}

	saved, err := h.shifts.SaveShift(r.Context(), shift)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, saved)
}

// ---------------------------------------------------------------------------
// Labor rules

func (h *Handler) GetRules(w http.ResponseWriter, r *http.Request) {
	identity := auth.FromContext(r.Context())
	rules, err := h.rules.GetRules(r.Context(), identity.CompanyID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rules)
}

func (h *Handler) CreateRules(w http.ResponseWriter, r *http.Request) {
	h.saveRules(w, r, true)
}

func (h *Handler) UpdateRules(w http.ResponseWriter, r *http.Request) {
	h.saveRules(w, r, false)
}

func (h *Handler) saveRules(w http.ResponseWriter, r *http.Request, create bool) {
	identity := auth.FromContext(r.Context())
	var rules models.LaborRules
	if err := json.NewDecoder(r.Body).Decode(&rules); err != nil {
		h.writeError(w, e.ErrInvalidInput)
		return
	}
	rules.CompanyID = identity.CompanyID

	var (
		saved *models.LaborRules
		err   error
	)
	if create {
		saved, err = h.rules.CreateRules(r.Context(), &rules)
	} else {
		saved, err = h.rules.UpdateRules(r.Context(), &rules)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	status := http.StatusOK
	if create {
		status = http.StatusCreated
	}
	h.writeJSON(w, status, saved)
}

func (h *Handler) DeleteRules(w http.ResponseWriter, r *http.Request) {
	identity := auth.FromContext(r.Context())
	if err := h.rules.DeleteRules(r.Context(), identity.CompanyID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Reports

func (h *Handler) MonthlyReport(w http.ResponseWriter, r *http.Request) {
	employeeID, err := uuid.Parse(chi.URLParam(r, "employeeID"))
	if err != nil {
		h.writeError(w, e.ErrInvalidInput)
		return
	}
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		h.writeError(w, e.ErrInvalidInput)
		return
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil {
		h.writeError(w, e.ErrInvalidInput)
		return
	}

	report, err := h.reports.BuildMonthlyReport(r.Context(), employeeID, year, time.Month(month))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// ---------------------------------------------------------------------------

type errorResponse struct {
	Error string `json:"error"`
}

// writeError is the single place rejection kinds become status codes.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, e.ErrNotFound),
		errors.Is(err, e.ErrShiftNotFound):
		status = http.StatusNotFound
	case errors.Is(err, e.ErrDuplicateAssignment),
		errors.Is(err, e.ErrOverlappingAssignment),
		errors.Is(err, e.ErrOverlappingAbsence),
		errors.Is(err, e.ErrConsecutiveSameType),
		errors.Is(err, e.ErrDuplicateDayRecord),
		errors.Is(err, e.ErrRulesExist),
		errors.Is(err, e.ErrCannotDeleteApproved):
		status = http.StatusConflict
	case errors.Is(err, e.ErrInvalidInput),
		errors.Is(err, e.ErrMissingFields),
		errors.Is(err, e.ErrMissingHours),
		errors.Is(err, e.ErrInvalidType),
		errors.Is(err, e.ErrInvalidStatus),
		errors.Is(err, e.ErrInvalidHourOrder),
		errors.Is(err, e.ErrInvertedRange),
		errors.Is(err, e.ErrTooFarAhead),
		errors.Is(err, e.ErrFutureShift),
		errors.Is(err, e.ErrFutureEvent),
		errors.Is(err, e.ErrBackdatedEvent),
		errors.Is(err, e.ErrExceedsMaxDailyHours):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.Error(err))
		h.writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
