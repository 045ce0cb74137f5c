package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/amcchord/slideReports/internal/api/request"
	"github.com/amcchord/slideReports/internal/api/response"
	"github.com/amcchord/slideReports/internal/report"
	"github.com/amcchord/slideReports/internal/store"
)

type Report struct {
	store     *store.Store
	generator *report.Generator
}

func NewReport(st *store.Store, gen *report.Generator) *Report {
	return &Report{store: st, generator: gen}
}

// Preview renders a stored or built-in template and returns the
// document as JSON. Template problems come back as a diagnostic
// document, not an error status.
func (h *Report) Preview(w http.ResponseWriter, r *http.Request) {
	req, status, err := h.decodeRender(r)
	if err != nil {
		response.WriteError(w, status, err.Error())
		return
	}

	html, err := h.generator.Render(r.Context(), req)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]string{"html": html})
}

// Download renders a standalone document with images inlined as data
// URIs and serves it as a file attachment.
func (h *Report) Download(w http.ResponseWriter, r *http.Request) {
	req, status, err := h.decodeRender(r)
	if err != nil {
		response.WriteError(w, status, err.Error())
		return
	}

	html, err := h.generator.RenderStandalone(r.Context(), req)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadFilename(req, time.Now())))
	response.WriteHTML(w, http.StatusOK, html)
}

// Values returns the fully assembled render context for the default
// window, the catalogue of everything a template can reference.
func (h *Report) Values(w http.ResponseWriter, r *http.Request) {
	c, err := h.generator.BuildContext(r.Context(), report.RenderRequest{
		DataSources: report.AllDataSources,
		ClientID:    r.URL.Query().Get("client_id"),
	})
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, c)
}

func (h *Report) decodeRender(r *http.Request) (report.RenderRequest, int, error) {
	var body request.RenderReport
	if err := request.Decode(r, &body); err != nil {
		return report.RenderRequest{}, http.StatusBadRequest, err
	}

	view, err := resolveTemplate(r.Context(), h.store, body.TemplateID)
	if err != nil {
		return report.RenderRequest{}, http.StatusNotFound, err
	}

	sources := body.DataSources
	if len(sources) == 0 {
		sources = view.DataSources
	}

	req, err := renderRequest(view.HTML, body.StartDate, body.EndDate, sources, body.ClientID)
	if err != nil {
		return report.RenderRequest{}, http.StatusBadRequest, err
	}
	return req, http.StatusOK, nil
}

func downloadFilename(req report.RenderRequest, now time.Time) string {
	if !req.Start.IsZero() && !req.End.IsZero() {
		return fmt.Sprintf("backup-report-%s-to-%s.html",
			req.Start.Format("2006-01-02"), req.End.Format("2006-01-02"))
	}
	return fmt.Sprintf("backup-report-%s.html", now.Format("2006-01-02"))
}
