package academics

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/univera/univera/internal/authz"
	"github.com/univera/univera/internal/platform/httpx"
	"github.com/univera/univera/internal/rbac"
	"github.com/univera/univera/internal/shared"
)

// Handler exposes academic catalog endpoints. The catalog is readable by
// anyone holding the view permissions; mutations are scope-checked against
// the owning org unit of the program.
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

// MountRoutes registers academic catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermProgramsView))
		r.Get("/programs", h.listPrograms)
		r.Get("/programs/{id}", h.getProgram)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermProgramsUpdate))
		r.Post("/programs", h.createProgram)
		r.Put("/programs/{id}", h.updateProgram)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermProgramsDelete))
		r.Delete("/programs/{id}", h.archiveProgram)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermCoursesView))
		r.Get("/programs/{id}/courses", h.listCourses)
		r.Get("/courses/{id}", h.getCourse)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermCoursesUpdate))
		r.Post("/programs/{id}/courses", h.createCourse)
		r.Put("/courses/{id}", h.updateCourse)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermCoursesDelete))
		r.Delete("/courses/{id}", h.archiveCourse)
	})
}

func (h *Handler) listPrograms(w http.ResponseWriter, r *http.Request) {
	var unitIDs []int64
	if raw := r.URL.Query().Get("unit_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid unit_id")
			return
		}
		unitIDs = []int64{id}
	}
	programs, err := h.service.ListPrograms(r.Context(), unitIDs)
	if err != nil {
		h.logger.Error("list programs", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"programs": programs})
}

func (h *Handler) getProgram(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid program id")
		return
	}
	program, err := h.service.GetProgram(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, "get program", err)
		return
	}
	httpx.JSON(w, http.StatusOK, program)
}

type programForm struct {
	OrgUnitID int64  `json:"org_unit_id" validate:"required"`
	Code      string `json:"code" validate:"required,min=2,max=32"`
	Name      string `json:"name" validate:"required,min=2,max=255"`
	Level     string `json:"level" validate:"required"`
	Credits   int    `json:"credits" validate:"required,gt=0"`
}

func (h *Handler) createProgram(w http.ResponseWriter, r *http.Request) {
	userID, ok := rbac.CurrentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var form programForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if !h.resolver.Authorize(r.Context(), userID, shared.PermProgramsUpdate, &form.OrgUnitID) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	program, err := h.service.CreateProgram(r.Context(), Program{
		OrgUnitID: form.OrgUnitID,
		Code:      form.Code,
		Name:      form.Name,
		Level:     form.Level,
		Credits:   form.Credits,
	})
	if err != nil {
		h.respondServiceError(w, "create program", err)
		return
	}
	h.recordAudit(r, "academics.program.create", "program", program.ID, map[string]any{"code": program.Code})
	httpx.JSON(w, http.StatusCreated, program)
}

type programUpdateForm struct {
	Name    string `json:"name" validate:"required,min=2,max=255"`
	Level   string `json:"level" validate:"required"`
	Credits int    `json:"credits" validate:"required,gt=0"`
	Status  string `json:"status" validate:"required"`
}

func (h *Handler) updateProgram(w http.ResponseWriter, r *http.Request) {
	program, ok := h.loadAuthorizedProgram(w, r, shared.PermProgramsUpdate)
	if !ok {
		return
	}
	var form programUpdateForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	updated, err := h.service.UpdateProgram(r.Context(), Program{
		ID:      program.ID,
		Name:    form.Name,
		Level:   form.Level,
		Credits: form.Credits,
		Status:  form.Status,
	})
	if err != nil {
		h.respondServiceError(w, "update program", err)
		return
	}
	h.recordAudit(r, "academics.program.update", "program", updated.ID, nil)
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) archiveProgram(w http.ResponseWriter, r *http.Request) {
	program, ok := h.loadAuthorizedProgram(w, r, shared.PermProgramsDelete)
	if !ok {
		return
	}
	if err := h.service.ArchiveProgram(r.Context(), program.ID); err != nil {
		h.respondServiceError(w, "archive program", err)
		return
	}
	h.recordAudit(r, "academics.program.archive", "program", program.ID, nil)
	httpx.NoContent(w)
}

// loadAuthorizedProgram fetches the path program and checks the caller's
// scope against its owning unit.
func (h *Handler) loadAuthorizedProgram(w http.ResponseWriter, r *http.Request, permission string) (Program, bool) {
	userID, ok := rbac.CurrentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return Program{}, false
	}
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid program id")
		return Program{}, false
	}
	program, err := h.service.GetProgram(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, "get program", err)
		return Program{}, false
	}
	if !h.resolver.Authorize(r.Context(), userID, permission, &program.OrgUnitID) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return Program{}, false
	}
	return program, true
}

func (h *Handler) listCourses(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid program id")
		return
	}
	courses, err := h.service.ListCourses(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, "list courses", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"courses": courses})
}

func (h *Handler) getCourse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid course id")
		return
	}
	course, err := h.service.GetCourse(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, "get course", err)
		return
	}
	httpx.JSON(w, http.StatusOK, course)
}

type courseForm struct {
	Code     string `json:"code" validate:"required,min=2,max=32"`
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Credits  int    `json:"credits" validate:"required,gt=0"`
	Semester int    `json:"semester" validate:"required,gt=0"`
}

func (h *Handler) createCourse(w http.ResponseWriter, r *http.Request) {
	program, ok := h.loadAuthorizedProgram(w, r, shared.PermCoursesUpdate)
	if !ok {
		return
	}
	var form courseForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	course, err := h.service.CreateCourse(r.Context(), Course{
		ProgramID: program.ID,
		Code:      form.Code,
		Name:      form.Name,
		Credits:   form.Credits,
		Semester:  form.Semester,
	})
	if err != nil {
		h.respondServiceError(w, "create course", err)
		return
	}
	h.recordAudit(r, "academics.course.create", "course", course.ID, map[string]any{"code": course.Code})
	httpx.JSON(w, http.StatusCreated, course)
}

type courseUpdateForm struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Credits  int    `json:"credits" validate:"required,gt=0"`
	Semester int    `json:"semester" validate:"required,gt=0"`
	Status   string `json:"status" validate:"required"`
}

func (h *Handler) updateCourse(w http.ResponseWriter, r *http.Request) {
	course, ok := h.loadAuthorizedCourse(w, r, shared.PermCoursesUpdate)
	if !ok {
		return
	}
	var form courseUpdateForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	updated, err := h.service.UpdateCourse(r.Context(), Course{
		ID:       course.ID,
		Name:     form.Name,
		Credits:  form.Credits,
		Semester: form.Semester,
		Status:   form.Status,
	})
	if err != nil {
		h.respondServiceError(w, "update course", err)
		return
	}
	h.recordAudit(r, "academics.course.update", "course", updated.ID, nil)
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) archiveCourse(w http.ResponseWriter, r *http.Request) {
	course, ok := h.loadAuthorizedCourse(w, r, shared.PermCoursesDelete)
	if !ok {
		return
	}
	if err := h.service.ArchiveCourse(r.Context(), course.ID); err != nil {
		h.respondServiceError(w, "archive course", err)
		return
	}
	h.recordAudit(r, "academics.course.archive", "course", course.ID, nil)
	httpx.NoContent(w)
}

// loadAuthorizedCourse fetches the path course and checks the caller's scope
// against the owning unit of its program.
func (h *Handler) loadAuthorizedCourse(w http.ResponseWriter, r *http.Request, permission string) (Course, bool) {
	userID, ok := rbac.CurrentUserID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return Course{}, false
	}
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid course id")
		return Course{}, false
	}
	course, err := h.service.GetCourse(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, "get course", err)
		return Course{}, false
	}
	program, err := h.service.GetProgram(r.Context(), course.ProgramID)
	if err != nil {
		h.respondServiceError(w, "get course program", err)
		return Course{}, false
	}
	if !h.resolver.Authorize(r.Context(), userID, permission, &program.OrgUnitID) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return Course{}, false
	}
	return course, true
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

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
