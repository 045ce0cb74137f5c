package handler

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/amcchord/slideReports/internal/api/request"
	"github.com/amcchord/slideReports/internal/api/response"
	"github.com/amcchord/slideReports/internal/store"
)

// maxLogoBytes caps uploaded logo files at 2 MiB.
const maxLogoBytes = 2 * 1024 * 1024

type Preference struct {
	store  *store.Store
	logger zerolog.Logger
}

func NewPreference(st *store.Store, logger zerolog.Logger) *Preference {
	return &Preference{store: st, logger: logger}
}

// SetTimezone stores the report timezone preference. Unknown zone
// names fall back to Eastern time instead of failing the request.
func (h *Preference) SetTimezone(w http.ResponseWriter, r *http.Request) {
	var body request.SetTimezone
	if err := request.Decode(r, &body); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tz := body.Timezone
	if _, err := time.LoadLocation(tz); err != nil {
		h.logger.Warn().Str("timezone", tz).Msg("invalid timezone provided, falling back to America/New_York")
		tz = "America/New_York"
	}

	if err := h.store.SetPreference(r.Context(), store.PrefTimezone, tz); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "timezone": tz})
}

// UploadLogo accepts a multipart logo upload and stores it as a data
// URI used as the report logo.
func (h *Preference) UploadLogo(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("logo")
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, "no logo file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxLogoBytes+1))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(data) > maxLogoBytes {
		response.WriteError(w, http.StatusBadRequest, "file size exceeds 2MB limit")
		return
	}

	mimeType, err := logoMIMEType(data)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	dataURI := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))

	if err := h.store.SetPreference(r.Context(), store.PrefCustomLogo, dataURI); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.Info().Int("bytes", len(data)).Str("mime", mimeType).Msg("custom logo uploaded")
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Logo uploaded successfully",
		"logo_url": dataURI,
	})
}

// DeleteLogo resets the report logo to the default.
func (h *Preference) DeleteLogo(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeletePreference(r.Context(), store.PrefCustomLogo); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logo reset to default",
	})
}

// logoMIMEType sniffs the uploaded bytes and allows PNG, JPEG, GIF
// and SVG only.
func logoMIMEType(data []byte) (string, error) {
	detected := http.DetectContentType(data)
	switch detected {
	case "image/png", "image/jpeg", "image/gif":
		return detected, nil
	}

	// DetectContentType reports SVG as plain XML or text.
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	if strings.Contains(string(head), "<svg") {
		return "image/svg+xml", nil
	}

	return "", fmt.Errorf("invalid file type, allowed: PNG, JPG, GIF, SVG")
}
