package request

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, body string, v any) error {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	return Decode(r, v)
}

func TestDecode_CreateTemplate(t *testing.T) {
	var v CreateTemplate
	err := decode(t, `{"name": "Weekly", "html_content": "<p>x</p>", "data_sources": ["backups"]}`, &v)
	require.NoError(t, err)

	assert.Equal(t, "Weekly", v.Name)
	assert.Equal(t, "<p>x</p>", v.HTML)
	assert.Equal(t, []string{"backups"}, v.DataSources)
}

func TestDecode_CreateTemplateNameOptional(t *testing.T) {
	var v CreateTemplate
	err := decode(t, `{"html_content": "<p>x</p>"}`, &v)
	require.NoError(t, err)
	assert.Empty(t, v.Name)
}

func TestDecode_InvalidJSON(t *testing.T) {
	var v CreateTemplate
	err := decode(t, `{broken`, &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestDecode_MissingRequiredField(t *testing.T) {
	var v CreateTemplate
	err := decode(t, `{"name": "no html"}`, &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation error")
}

func TestDecode_RenderReportDefaults(t *testing.T) {
	var v RenderReport
	err := decode(t, `{"template_id": "-1"}`, &v)
	require.NoError(t, err)

	assert.Equal(t, "-1", v.TemplateID)
	assert.Empty(t, v.StartDate)
	assert.Empty(t, v.DataSources)
}

func TestDecode_SetTimezoneRequired(t *testing.T) {
	var v SetTimezone
	err := decode(t, `{}`, &v)
	require.Error(t, err)
}
