package store

import (
	"context"
	"fmt"

	"github.com/amcchord/slideReports/internal/model"
)

// CreateTemplate stores a new report template.
func (s *Store) CreateTemplate(ctx context.Context, t *model.ReportTemplate) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO report_templates (template_id, name, description, html, data_sources, built_in, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.TemplateID, t.Name, t.Description, t.HTML, t.DataSources, t.BuiltIn, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert report template: %w", err)
	}
	return nil
}

// TemplateByID fetches a stored report template.
func (s *Store) TemplateByID(ctx context.Context, id string) (*model.ReportTemplate, error) {
	var t model.ReportTemplate
	err := s.db.QueryRow(ctx,
		`SELECT template_id, name, description, html, data_sources, built_in, created_at, updated_at
		 FROM report_templates WHERE template_id = $1`, id,
	).Scan(&t.TemplateID, &t.Name, &t.Description, &t.HTML, &t.DataSources, &t.BuiltIn,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get report template %s: %w", id, err)
	}
	return &t, nil
}

// Templates lists all stored report templates, name order.
func (s *Store) Templates(ctx context.Context) ([]model.ReportTemplate, error) {
	rows, err := s.db.Query(ctx,
		`SELECT template_id, name, description, html, data_sources, built_in, created_at, updated_at
		 FROM report_templates ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list report templates: %w", err)
	}
	defer rows.Close()

	var templates []model.ReportTemplate
	for rows.Next() {
		var t model.ReportTemplate
		if err := rows.Scan(&t.TemplateID, &t.Name, &t.Description, &t.HTML, &t.DataSources,
			&t.BuiltIn, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan report template: %w", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report templates: %w", err)
	}
	return templates, nil
}

// UpdateTemplate updates name, description, html and data sources of a
// stored template.
func (s *Store) UpdateTemplate(ctx context.Context, t *model.ReportTemplate) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE report_templates
		 SET name = $1, description = $2, html = $3, data_sources = $4, updated_at = now()
		 WHERE template_id = $5 AND built_in = false`,
		t.Name, t.Description, t.HTML, t.DataSources, t.TemplateID)
	if err != nil {
		return fmt.Errorf("update report template %s: %w", t.TemplateID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update report template %s: not found or built-in", t.TemplateID)
	}
	return nil
}

// DeleteTemplate removes a stored template. Built-in templates cannot be
// deleted.
func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM report_templates WHERE template_id = $1 AND built_in = false`, id)
	if err != nil {
		return fmt.Errorf("delete report template %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete report template %s: not found or built-in", id)
	}
	return nil
}
