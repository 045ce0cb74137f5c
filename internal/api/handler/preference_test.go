package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/amcchord/slideReports/internal/store"
)

func TestSetTimezone_MissingTimezone(t *testing.T) {
	h := NewPreference(nil, zerolog.Nop())
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPost, "/api/preferences/timezone", `{}`)

	h.SetTimezone(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetTimezone_OK(t *testing.T) {
	db := &handlerMockDB{}
	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	h := NewPreference(store.New(db), zerolog.Nop())
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPost, "/api/preferences/timezone", `{"timezone": "Europe/Stockholm"}`)

	h.SetTimezone(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Europe/Stockholm", resp["timezone"])
}

func TestSetTimezone_UnknownZoneFallsBack(t *testing.T) {
	db := &handlerMockDB{}
	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	h := NewPreference(store.New(db), zerolog.Nop())
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPost, "/api/preferences/timezone", `{"timezone": "Mars/Olympus_Mons"}`)

	h.SetTimezone(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "America/New_York", resp["timezone"])
}

func TestUploadLogo_NoFile(t *testing.T) {
	h := NewPreference(nil, zerolog.Nop())
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/preferences/logo", nil)

	h.UploadLogo(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadLogo_RejectsNonImage(t *testing.T) {
	h := NewPreference(nil, zerolog.Nop())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("logo", "logo.txt")
	require.NoError(t, err)
	fw.Write([]byte("definitely not an image"))
	mw.Close()

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/preferences/logo", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())

	h.UploadLogo(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "invalid file type")
}

func TestLogoMIMEType(t *testing.T) {
	pngHeader := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}

	mimeType, err := logoMIMEType(pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)

	mimeType, err = logoMIMEType([]byte(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`))
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", mimeType)

	_, err = logoMIMEType([]byte("plain text"))
	assert.Error(t, err)
}
