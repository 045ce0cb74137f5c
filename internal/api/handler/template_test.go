package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/amcchord/slideReports/internal/store"
)

func TestTemplateCreate_InvalidJSON(t *testing.T) {
	h := NewTemplate(nil, nil)
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPost, "/api/templates", "{bad json")

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTemplateCreate_MissingNameGetsGeneratedName(t *testing.T) {
	db := &handlerMockDB{}
	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	h := NewTemplate(store.New(db), nil)
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPost, "/api/templates", `{"html_content": "<p>hi</p>"}`)

	h.Create(rec, r)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, db.Calls, 1)
	insertArgs := db.Calls[0].Arguments.Get(2).([]any)
	name, ok := insertArgs[1].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(name, "report-"))
}

func TestTemplateCreate_MissingHTML(t *testing.T) {
	h := NewTemplate(nil, nil)
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPost, "/api/templates", `{"name": "no body"}`)

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTemplateCreate_RejectsDangerousTemplate(t *testing.T) {
	h := NewTemplate(nil, nil)
	rec := httptest.NewRecorder()
	body := `{"name": "evil", "html_content": "{{ ''.__class__.__mro__ }}"}`
	r := newRequestRaw(http.MethodPost, "/api/templates", body)

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "Dangerous pattern")
}

func TestTemplateCreate_OK(t *testing.T) {
	db := &handlerMockDB{}
	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	h := NewTemplate(store.New(db), nil)
	rec := httptest.NewRecorder()
	body := `{"name": "My Report", "html_content": "<h1>{{ report_title }}</h1>", "data_sources": ["backups"]}`
	r := newRequestRaw(http.MethodPost, "/api/templates", body)

	h.Create(rec, r)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.NotEmpty(t, resp["template_id"])
	db.AssertExpectations(t)
}

func TestTemplateUpdate_BuiltinGuard(t *testing.T) {
	h := NewTemplate(nil, nil)
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPatch, "/api/templates/-1", `{"name": "renamed"}`)
	r = withURLParam(r, "id", "-1")

	h.Update(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "cannot edit built-in templates", resp["error"])
}

func TestTemplateDelete_BuiltinGuard(t *testing.T) {
	h := NewTemplate(nil, nil)
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodDelete, "/api/templates/-2", nil)
	r = withURLParam(r, "id", "-2")

	h.Delete(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTemplateGet_Builtin(t *testing.T) {
	h := NewTemplate(nil, nil)
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/templates/-1", nil)
	r = withURLParam(r, "id", "-1")

	h.Get(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp templateView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Weekly Report", resp.Name)
	assert.True(t, resp.BuiltIn)
	assert.True(t, resp.IsDefault)
	assert.NotEmpty(t, resp.HTML)
}

func TestTemplateGet_UnknownBuiltin(t *testing.T) {
	h := NewTemplate(nil, nil)
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/templates/-99", nil)
	r = withURLParam(r, "id", "-99")

	h.Get(rec, r)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTemplateTest_InvalidTemplate(t *testing.T) {
	h := NewTemplate(nil, nil)
	rec := httptest.NewRecorder()
	body := `{"html_content": "{{ config.__init__ }}"}`
	r := newRequestRaw(http.MethodPost, "/api/templates/test", body)

	h.Test(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.Contains(t, resp["error"], "Dangerous pattern")
}
