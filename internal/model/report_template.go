package model

import "time"

// ReportTemplate is a stored report template.
type ReportTemplate struct {
	TemplateID  string    `json:"template_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	HTML        string    `json:"html"`
	DataSources []string  `json:"data_sources"`
	BuiltIn     bool      `json:"built_in"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
