package handler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/amcchord/slideReports/internal/model"
	"github.com/amcchord/slideReports/internal/report"
	"github.com/amcchord/slideReports/internal/store"
	"github.com/amcchord/slideReports/internal/templates"
)

// templateView is the JSON shape shared by built-in and stored
// templates. Built-in IDs are negative integers rendered as strings so
// both kinds fit one identifier space.
type templateView struct {
	TemplateID  string   `json:"template_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	HTML        string   `json:"html_content"`
	DataSources []string `json:"data_sources"`
	BuiltIn     bool     `json:"built_in"`
	IsDefault   bool     `json:"is_default"`
}

func builtinView(b templates.Builtin) templateView {
	return templateView{
		TemplateID:  strconv.FormatInt(b.ID, 10),
		Name:        b.Name,
		Description: b.Description,
		HTML:        b.HTML,
		BuiltIn:     true,
		IsDefault:   b.IsDefault,
	}
}

func storedView(t model.ReportTemplate) templateView {
	var desc string
	if t.Description != nil {
		desc = *t.Description
	}
	return templateView{
		TemplateID:  t.TemplateID,
		Name:        t.Name,
		Description: desc,
		HTML:        t.HTML,
		DataSources: t.DataSources,
		BuiltIn:     t.BuiltIn,
	}
}

// renderRequest builds a report render request from request-body
// fields. Date strings are ISO timestamps; empty strings leave the
// window bound unset so the generator applies its default.
func renderRequest(html, startDate, endDate string, dataSources []string, clientID string) (report.RenderRequest, error) {
	req := report.RenderRequest{
		Template:    html,
		DataSources: dataSources,
		ClientID:    clientID,
	}
	if startDate != "" {
		t, err := report.ParseTimestamp(startDate)
		if err != nil {
			return report.RenderRequest{}, fmt.Errorf("invalid start_date: %w", err)
		}
		req.Start = t
	}
	if endDate != "" {
		t, err := report.ParseTimestamp(endDate)
		if err != nil {
			return report.RenderRequest{}, fmt.Errorf("invalid end_date: %w", err)
		}
		req.End = t
	}
	return req, nil
}

// builtinID reports whether id names a built-in template and, if so,
// its numeric form.
func builtinID(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n >= 0 {
		return 0, false
	}
	return n, true
}

// resolveTemplate finds a template by ID across the built-in set and
// the store.
func resolveTemplate(ctx context.Context, st *store.Store, id string) (templateView, error) {
	if n, ok := builtinID(id); ok {
		b, ok := templates.ByID(n)
		if !ok {
			return templateView{}, fmt.Errorf("template %s not found", id)
		}
		return builtinView(b), nil
	}
	t, err := st.TemplateByID(ctx, id)
	if err != nil {
		return templateView{}, fmt.Errorf("template %s not found", id)
	}
	return storedView(*t), nil
}
