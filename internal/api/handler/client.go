package handler

import (
	"net/http"

	"github.com/amcchord/slideReports/internal/api/response"
	"github.com/amcchord/slideReports/internal/store"
)

type Client struct {
	store *store.Store
}

func NewClient(st *store.Store) *Client {
	return &Client{store: st}
}

// List returns all known clients, used to populate the report client
// filter.
func (h *Client) List(w http.ResponseWriter, r *http.Request) {
	clients, err := h.store.Clients(r.Context(), "")
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{"clients": clients})
}
