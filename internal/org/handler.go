package org

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/univera/univera/internal/platform/httpx"
	"github.com/univera/univera/internal/rbac"
	"github.com/univera/univera/internal/shared"
)

// Handler exposes org structure endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	audit     *shared.AuditLogger
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, audit *shared.AuditLogger, rbacMW rbac.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		audit:     audit,
		rbac:      rbacMW,
		validator: validator.New(),
	}
}

// MountRoutes registers org routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermOrgUnitsView))
		r.Get("/units", h.listUnits)
		r.Get("/units/tree", h.tree)
		r.Get("/units/{id}", h.getUnit)
		r.Get("/units/{id}/children", h.children)
		r.Get("/units/{id}/descendants", h.descendants)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermOrgUnitsUpdate))
		r.Post("/units", h.createUnit)
		r.Put("/units/{id}", h.updateUnit)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermOrgUnitsDelete))
		r.Delete("/units/{id}", h.archiveUnit)
	})
}

func (h *Handler) listUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.service.ListUnits(r.Context())
	if err != nil {
		h.logger.Error("list org units", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"units": units})
}

func (h *Handler) tree(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.service.Tree(r.Context())
	if err != nil {
		h.logger.Error("org tree", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tree": nodes})
}

func (h *Handler) getUnit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid unit id")
		return
	}
	unit, err := h.service.GetUnit(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, "get org unit", err)
		return
	}
	httpx.JSON(w, http.StatusOK, unit)
}

func (h *Handler) children(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid unit id")
		return
	}
	units, err := h.service.ChildrenOf(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, "list unit children", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"units": units})
}

func (h *Handler) descendants(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid unit id")
		return
	}
	set, err := h.service.DescendantsOf(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, "list unit descendants", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"unit_ids": set.IDs()})
}

type unitForm struct {
	ParentID *int64 `json:"parent_id"`
	Type     string `json:"type" validate:"required,min=2,max=32"`
	Code     string `json:"code" validate:"required,min=2,max=32"`
	Name     string `json:"name" validate:"required,min=2,max=255"`
}

func (h *Handler) createUnit(w http.ResponseWriter, r *http.Request) {
	var form unitForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	unit, err := h.service.CreateUnit(r.Context(), Unit{
		ParentID: form.ParentID,
		Type:     form.Type,
		Code:     form.Code,
		Name:     form.Name,
	})
	if err != nil {
		h.respondServiceError(w, "create org unit", err)
		return
	}
	h.recordAudit(r, "org.unit.create", unit.ID, map[string]any{"code": unit.Code})
	httpx.JSON(w, http.StatusCreated, unit)
}

type unitUpdateForm struct {
	ParentID *int64 `json:"parent_id"`
	Type     string `json:"type" validate:"required,min=2,max=32"`
	Name     string `json:"name" validate:"required,min=2,max=255"`
}

func (h *Handler) updateUnit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid unit id")
		return
	}
	var form unitUpdateForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	unit, err := h.service.UpdateUnit(r.Context(), Unit{
		ID:       id,
		ParentID: form.ParentID,
		Type:     form.Type,
		Name:     form.Name,
	})
	if err != nil {
		h.respondServiceError(w, "update org unit", err)
		return
	}
	h.recordAudit(r, "org.unit.update", unit.ID, nil)
	httpx.JSON(w, http.StatusOK, unit)
}

func (h *Handler) archiveUnit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid unit id")
		return
	}
	if err := h.service.ArchiveUnit(r.Context(), id); err != nil {
		h.respondServiceError(w, "archive org unit", err)
		return
	}
	h.recordAudit(r, "org.unit.archive", id, nil)
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

func (h *Handler) recordAudit(r *http.Request, action string, unitID int64, meta map[string]any) {
	if h.audit == nil {
		return
	}
	actorID, _ := rbac.CurrentUserID(r)
	if err := h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "org_unit",
		EntityID: strconv.FormatInt(unitID, 10),
		Meta:     meta,
	}); err != nil {
		h.logger.Warn("audit record", slog.Any("error", err))
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
