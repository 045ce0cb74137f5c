package request

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Decode parses the JSON request body into v and validates it.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return nil
}

// CreateTemplate is the body for POST /api/templates. An empty name
// gets a generated one.
type CreateTemplate struct {
	Name        string   `json:"name" validate:"max=128"`
	Description string   `json:"description"`
	HTML        string   `json:"html_content" validate:"required"`
	DataSources []string `json:"data_sources"`
}

// UpdateTemplate is the body for PATCH /api/templates/{id}. Nil fields
// keep their stored value.
type UpdateTemplate struct {
	Name        *string  `json:"name" validate:"omitempty,max=128"`
	Description *string  `json:"description"`
	HTML        *string  `json:"html_content"`
	DataSources []string `json:"data_sources"`
}

// RenderReport is the body for report preview and download requests.
// Dates are ISO strings; empty dates default the window to the last
// 30 days.
type RenderReport struct {
	TemplateID  string   `json:"template_id" validate:"required"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	DataSources []string `json:"data_sources"`
	ClientID    string   `json:"client_id"`
}

// TestTemplate is the body for POST /api/templates/test: render raw
// template HTML against real data without storing it.
type TestTemplate struct {
	HTML        string   `json:"html_content" validate:"required"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	DataSources []string `json:"data_sources"`
	ClientID    string   `json:"client_id"`
}

// SetTimezone is the body for POST /api/preferences/timezone.
type SetTimezone struct {
	Timezone string `json:"timezone" validate:"required"`
}
