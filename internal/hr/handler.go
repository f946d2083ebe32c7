package hr

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/univera/univera/internal/authz"
	"github.com/univera/univera/internal/platform/httpx"
	"github.com/univera/univera/internal/rbac"
	"github.com/univera/univera/internal/shared"
)

// Handler exposes HR endpoints. Listings are scoped through the access
// resolver inside the query; single-record reads and writes check the
// resolved scope against the record's active units.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	resolver  *authz.Resolver
	audit     *shared.AuditLogger
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, resolver *authz.Resolver, audit *shared.AuditLogger, rbacMW rbac.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		resolver:  resolver,
		audit:     audit,
		rbac:      rbacMW,
		validator: validator.New(),
	}
}

// MountRoutes registers HR routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermEmployeesView))
		r.Get("/employees", h.listEmployees)
		r.Get("/employees/{id}", h.getEmployee)
		r.Get("/positions", h.listPositions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermEmployeesUpdate))
		r.Post("/employees", h.createEmployee)
		r.Put("/employees/{id}", h.updateEmployee)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermEmployeesDelete))
		r.Delete("/employees/{id}", h.deactivateEmployee)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermAssignmentsView))
		r.Get("/employees/{id}/assignments", h.listAssignments)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermAssignmentsUpdate))
		r.Post("/assignments", h.createAssignment)
		r.Delete("/assignments/{id}", h.endAssignment)
		r.Put("/positions", h.upsertPosition)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermQualificationsView))
		r.Get("/employees/{id}/qualifications", h.listQualifications)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermQualificationsEdit))
		r.Post("/employees/{id}/qualifications", h.addQualification)
		r.Delete("/qualifications/{id}", h.removeQualification)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermTrainingsView))
		r.Get("/employees/{id}/trainings", h.listTrainings)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermTrainingsEdit))
		r.Post("/employees/{id}/trainings", h.addTraining)
		r.Delete("/trainings/{id}", h.removeTraining)
	})
}

func (h *Handler) listEmployees(w http.ResponseWriter, r *http.Request) {
	userID, ok := rbac.CurrentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	scope := h.resolver.ResolveAccessibleUnits(r.Context(), userID, "hr.employees")

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	filters := ListFilters{
		Page:   page,
		Limit:  limit,
		Search: r.URL.Query().Get("q"),
		Scope:  scopeFilter(scope),
	}
	employees, total, err := h.service.ListEmployees(r.Context(), filters)
	if err != nil {
		h.logger.Error("list employees", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"employees":  employees,
		"pagination": shared.NewPagination(page, limit, total),
		"scope":      scope.Tier,
	})
}

// scopeFilter translates a resolved scope into the repository restriction.
// The unit set and the self rule both apply; a tier-2 scope still covers the
// caller's own record through their home unit.
func scopeFilter(scope authz.Scope) ScopeFilter {
	filter := ScopeFilter{All: scope.All, SelfUserID: scope.SelfUserID}
	for id := range scope.Units {
		filter.UnitIDs = append(filter.UnitIDs, id)
	}
	return filter
}

func (h *Handler) getEmployee(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.loadScopedEmployee(w, r, "hr.employees")
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, emp)
}

// loadScopedEmployee fetches the path employee and verifies the caller's
// resolved scope for the given resource covers them.
func (h *Handler) loadScopedEmployee(w http.ResponseWriter, r *http.Request, resource string) (Employee, bool) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid employee id")
		return Employee{}, false
	}
	emp, err := h.service.GetEmployee(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, "get employee", err)
		return Employee{}, false
	}
	if !h.scopeAllowsEmployee(w, r, resource, emp) {
		return Employee{}, false
	}
	return emp, true
}

// scopeAllowsEmployee verifies the caller's resolved scope covers the
// employee. Out-of-scope records answer 404 rather than 403 so the listing
// and detail views agree on what exists.
func (h *Handler) scopeAllowsEmployee(w http.ResponseWriter, r *http.Request, resource string, emp Employee) bool {
	userID, ok := rbac.CurrentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return false
	}
	scope := h.resolver.ResolveAccessibleUnits(r.Context(), userID, resource)
	if scope.AllowsUser(emp.UserID) {
		return true
	}
	homes, err := h.service.HomeUnits(r.Context(), emp.UserID)
	if err != nil {
		h.logger.Error("employee home units", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return false
	}
	if !scope.AllowsAny(homes) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return false
	}
	return true
}

type employeeForm struct {
	UserID         int64  `json:"user_id" validate:"required"`
	EmployeeNo     string `json:"employee_no" validate:"required,min=2,max=32"`
	FullName       string `json:"full_name" validate:"required,min=2,max=255"`
	EmploymentType string `json:"employment_type" validate:"required,min=2,max=32"`
	HiredAt        string `json:"hired_at" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) createEmployee(w http.ResponseWriter, r *http.Request) {
	var form employeeForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	var hiredAt time.Time
	if form.HiredAt != "" {
		hiredAt, _ = time.Parse("2006-01-02", form.HiredAt)
	}
	emp, err := h.service.CreateEmployee(r.Context(), Employee{
		UserID:         form.UserID,
		EmployeeNo:     form.EmployeeNo,
		FullName:       form.FullName,
		EmploymentType: form.EmploymentType,
		HiredAt:        hiredAt,
	})
	if err != nil {
		h.respondServiceError(w, "create employee", err)
		return
	}
	h.recordAudit(r, "hr.employee.create", "employee", emp.ID, map[string]any{"employee_no": emp.EmployeeNo})
	httpx.JSON(w, http.StatusCreated, emp)
}

type employeeUpdateForm struct {
	FullName       string `json:"full_name" validate:"required,min=2,max=255"`
	EmploymentType string `json:"employment_type" validate:"required,min=2,max=32"`
}

func (h *Handler) updateEmployee(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.loadScopedEmployee(w, r, "hr.employees")
	if !ok {
		return
	}
	var form employeeUpdateForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	updated, err := h.service.UpdateEmployee(r.Context(), Employee{
		ID:             emp.ID,
		FullName:       form.FullName,
		EmploymentType: form.EmploymentType,
	})
	if err != nil {
		h.respondServiceError(w, "update employee", err)
		return
	}
	h.recordAudit(r, "hr.employee.update", "employee", updated.ID, nil)
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) deactivateEmployee(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.loadScopedEmployee(w, r, "hr.employees")
	if !ok {
		return
	}
	if err := h.service.DeactivateEmployee(r.Context(), emp.ID); err != nil {
		h.respondServiceError(w, "deactivate employee", err)
		return
	}
	h.recordAudit(r, "hr.employee.deactivate", "employee", emp.ID, nil)
	httpx.NoContent(w)
}

func (h *Handler) listAssignments(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.loadScopedEmployee(w, r, "hr.assignments")
	if !ok {
		return
	}
	assignments, err := h.service.Assignments(r.Context(), emp.ID)
	if err != nil {
		h.respondServiceError(w, "list assignments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"assignments": assignments})
}

type assignmentForm struct {
	EmployeeID     int64   `json:"employee_id" validate:"required"`
	OrgUnitID      int64   `json:"org_unit_id" validate:"required"`
	PositionID     int64   `json:"position_id" validate:"required"`
	IsPrimary      bool    `json:"is_primary"`
	AssignmentType string  `json:"assignment_type" validate:"required"`
	Allocation     float64 `json:"allocation" validate:"required,gt=0,lte=1"`
	StartDate      string  `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate        string  `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) createAssignment(w http.ResponseWriter, r *http.Request) {
	userID, ok := rbac.CurrentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var form assignmentForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	// The target unit must be inside the caller's resolved scope; holding
	// hr.assignments.update alone is not enough to assign staff anywhere.
	if !h.resolver.Authorize(r.Context(), userID, shared.PermAssignmentsUpdate, &form.OrgUnitID) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	assignment := Assignment{
		EmployeeID:     form.EmployeeID,
		OrgUnitID:      form.OrgUnitID,
		PositionID:     form.PositionID,
		IsPrimary:      form.IsPrimary,
		AssignmentType: form.AssignmentType,
		Allocation:     form.Allocation,
	}
	if form.StartDate != "" {
		assignment.StartDate, _ = time.Parse("2006-01-02", form.StartDate)
	}
	if form.EndDate != "" {
		end, _ := time.Parse("2006-01-02", form.EndDate)
		assignment.EndDate = &end
	}
	created, err := h.service.CreateAssignment(r.Context(), assignment)
	if err != nil {
		h.respondServiceError(w, "create assignment", err)
		return
	}
	h.recordAudit(r, "hr.assignment.create", "org_assignment", created.ID, map[string]any{"org_unit_id": created.OrgUnitID})
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) endAssignment(w http.ResponseWriter, r *http.Request) {
	userID, ok := rbac.CurrentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid assignment id")
		return
	}
	assignment, err := h.service.GetAssignment(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, "get assignment", err)
		return
	}
	if !h.resolver.Authorize(r.Context(), userID, shared.PermAssignmentsUpdate, &assignment.OrgUnitID) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	if err := h.service.EndAssignment(r.Context(), id); err != nil {
		h.respondServiceError(w, "end assignment", err)
		return
	}
	h.recordAudit(r, "hr.assignment.end", "org_assignment", id, nil)
	httpx.NoContent(w)
}

func (h *Handler) listPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.service.Positions(r.Context())
	if err != nil {
		h.logger.Error("list positions", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"positions": positions})
}

type positionForm struct {
	Code  string `json:"code" validate:"required,min=2,max=32"`
	Title string `json:"title" validate:"required,min=2,max=255"`
}

func (h *Handler) upsertPosition(w http.ResponseWriter, r *http.Request) {
	var form positionForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	pos, err := h.service.EnsurePosition(r.Context(), form.Code, form.Title)
	if err != nil {
		h.respondServiceError(w, "upsert position", err)
		return
	}
	httpx.JSON(w, http.StatusOK, pos)
}

func (h *Handler) listQualifications(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.loadScopedEmployee(w, r, "hr.qualifications")
	if !ok {
		return
	}
	quals, err := h.service.Qualifications(r.Context(), emp.ID)
	if err != nil {
		h.respondServiceError(w, "list qualifications", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"qualifications": quals})
}

type qualificationForm struct {
	Kind        string `json:"kind" validate:"required,min=2,max=32"`
	Title       string `json:"title" validate:"required,min=2,max=255"`
	Institution string `json:"institution" validate:"max=255"`
	AwardedAt   string `json:"awarded_at" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) addQualification(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.loadScopedEmployee(w, r, "hr.qualifications")
	if !ok {
		return
	}
	var form qualificationForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	qual := Qualification{
		EmployeeID:  emp.ID,
		Kind:        form.Kind,
		Title:       form.Title,
		Institution: form.Institution,
	}
	if form.AwardedAt != "" {
		qual.AwardedAt, _ = time.Parse("2006-01-02", form.AwardedAt)
	}
	created, err := h.service.AddQualification(r.Context(), qual)
	if err != nil {
		h.respondServiceError(w, "add qualification", err)
		return
	}
	h.recordAudit(r, "hr.qualification.add", "qualification", created.ID, nil)
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) removeQualification(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid qualification id")
		return
	}
	qual, err := h.service.GetQualification(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, "get qualification", err)
		return
	}
	emp, err := h.service.GetEmployee(r.Context(), qual.EmployeeID)
	if err != nil {
		h.respondServiceError(w, "get employee", err)
		return
	}
	if !h.scopeAllowsEmployee(w, r, "hr.qualifications", emp) {
		return
	}
	if err := h.service.RemoveQualification(r.Context(), id); err != nil {
		h.respondServiceError(w, "remove qualification", err)
		return
	}
	h.recordAudit(r, "hr.qualification.remove", "qualification", id, nil)
	httpx.NoContent(w)
}

func (h *Handler) listTrainings(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.loadScopedEmployee(w, r, "hr.trainings")
	if !ok {
		return
	}
	trainings, err := h.service.Trainings(r.Context(), emp.ID)
	if err != nil {
		h.respondServiceError(w, "list trainings", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"trainings": trainings})
}

type trainingForm struct {
	Title       string `json:"title" validate:"required,min=2,max=255"`
	Provider    string `json:"provider" validate:"max=255"`
	Hours       int    `json:"hours" validate:"gte=0"`
	CompletedAt string `json:"completed_at" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) addTraining(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.loadScopedEmployee(w, r, "hr.trainings")
	if !ok {
		return
	}
	var form trainingForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	tr := Training{
		EmployeeID: emp.ID,
		Title:      form.Title,
		Provider:   form.Provider,
		Hours:      form.Hours,
	}
	if form.CompletedAt != "" {
		tr.CompletedAt, _ = time.Parse("2006-01-02", form.CompletedAt)
	}
	created, err := h.service.AddTraining(r.Context(), tr)
	if err != nil {
		h.respondServiceError(w, "add training", err)
		return
	}
	h.recordAudit(r, "hr.training.add", "training", created.ID, nil)
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) removeTraining(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid training id")
		return
	}
	tr, err := h.service.GetTraining(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, "get training", err)
		return
	}
	emp, err := h.service.GetEmployee(r.Context(), tr.EmployeeID)
	if err != nil {
		h.respondServiceError(w, "get employee", err)
		return
	}
	if !h.scopeAllowsEmployee(w, r, "hr.trainings", emp) {
		return
	}
	if err := h.service.RemoveTraining(r.Context(), id); err != nil {
		h.respondServiceError(w, "remove training", err)
		return
	}
	h.recordAudit(r, "hr.training.remove", "training", id, nil)
	httpx.NoContent(w)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrDuplicate):
		httpx.RespondError(w, httpx.ErrDuplicate)
	case errors.Is(err, ErrInvalidInput):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *Handler) recordAudit(r *http.Request, action, entity string, entityID int64, meta map[string]any) {
	if h.audit == nil {
		return
	}
	actorID, _ := rbac.CurrentUserID(r)
	if err := h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	}); err != nil {
		h.logger.Warn("audit record", slog.Any("error", err))
	}
}

func pathID(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, key), 10, 64)
}
