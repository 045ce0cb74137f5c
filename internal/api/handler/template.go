package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/amcchord/slideReports/internal/api/request"
	"github.com/amcchord/slideReports/internal/api/response"
	"github.com/amcchord/slideReports/internal/metrics"
	"github.com/amcchord/slideReports/internal/model"
	"github.com/amcchord/slideReports/internal/platform"
	"github.com/amcchord/slideReports/internal/report"
	"github.com/amcchord/slideReports/internal/sandbox"
	"github.com/amcchord/slideReports/internal/store"
	"github.com/amcchord/slideReports/internal/templates"
)

type Template struct {
	store     *store.Store
	generator *report.Generator
}

func NewTemplate(st *store.Store, gen *report.Generator) *Template {
	return &Template{store: st, generator: gen}
}

// List returns the built-in templates followed by the stored ones.
func (h *Template) List(w http.ResponseWriter, r *http.Request) {
	builtins, err := templates.All()
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	stored, err := h.store.Templates(r.Context())
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	views := make([]templateView, 0, len(builtins)+len(stored))
	for _, b := range builtins {
		views = append(views, builtinView(b))
	}
	for _, t := range stored {
		views = append(views, storedView(t))
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{"templates": views})
}

func (h *Template) Get(w http.ResponseWriter, r *http.Request) {
	view, err := resolveTemplate(r.Context(), h.store, chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, view)
}

func (h *Template) Create(w http.ResponseWriter, r *http.Request) {
	var body request.CreateTemplate
	if err := request.Decode(r, &body); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	v := sandbox.Validate(body.HTML)
	if !v.Valid {
		metrics.TemplateValidationFailed()
		response.WriteError(w, http.StatusBadRequest, v.Reason)
		return
	}

	name := body.Name
	if name == "" {
		name = platform.NewName("report-")
	}

	now := time.Now().UTC()
	t := &model.ReportTemplate{
		TemplateID:  platform.NewID(),
		Name:        name,
		HTML:        body.HTML,
		DataSources: body.DataSources,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if body.Description != "" {
		t.Description = &body.Description
	}

	if err := h.store.CreateTemplate(r.Context(), t); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, map[string]any{
		"template_id": t.TemplateID,
		"success":     true,
		"warnings":    v.Warnings,
	})
}

func (h *Template) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := builtinID(id); ok {
		response.WriteError(w, http.StatusBadRequest, "cannot edit built-in templates")
		return
	}

	var body request.UpdateTemplate
	if err := request.Decode(r, &body); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.store.TemplateByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	if body.Name != nil {
		t.Name = *body.Name
	}
	if body.Description != nil {
		t.Description = body.Description
	}
	if body.HTML != nil {
		t.HTML = *body.HTML
	}
	if body.DataSources != nil {
		t.DataSources = body.DataSources
	}

	v := sandbox.Validate(t.HTML)
	if !v.Valid {
		metrics.TemplateValidationFailed()
		response.WriteError(w, http.StatusBadRequest, v.Reason)
		return
	}

	if err := h.store.UpdateTemplate(r.Context(), t); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"warnings": v.Warnings,
	})
}

func (h *Template) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := builtinID(id); ok {
		response.WriteError(w, http.StatusBadRequest, "cannot delete built-in templates")
		return
	}

	if err := h.store.DeleteTemplate(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Clone copies a built-in or stored template into a new stored
// template the caller can edit.
func (h *Template) Clone(w http.ResponseWriter, r *http.Request) {
	src, err := resolveTemplate(r.Context(), h.store, chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	now := time.Now().UTC()
	t := &model.ReportTemplate{
		TemplateID:  platform.NewID(),
		Name:        src.Name + " (Copy)",
		HTML:        src.HTML,
		DataSources: src.DataSources,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if src.Description != "" {
		t.Description = &src.Description
	}

	if err := h.store.CreateTemplate(r.Context(), t); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, map[string]any{
		"template_id": t.TemplateID,
		"success":     true,
	})
}

// Test renders raw template HTML against real data without storing it.
// Invalid templates fail fast with the validation reason; runtime
// template errors come back as a diagnostic document.
func (h *Template) Test(w http.ResponseWriter, r *http.Request) {
	var body request.TestTemplate
	if err := request.Decode(r, &body); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	v := sandbox.Validate(body.HTML)
	if !v.Valid {
		metrics.TemplateValidationFailed()
		response.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   v.Reason,
		})
		return
	}

	req, err := renderRequest(body.HTML, body.StartDate, body.EndDate, body.DataSources, body.ClientID)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	html, err := h.generator.Render(r.Context(), req)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"html":     html,
		"warnings": v.Warnings,
	})
}
