package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/itchan-dev/community/internal/domain"
	internal_errors "github.com/itchan-dev/community/internal/errors"
)

type blacklistItemJSON struct {
	Id      int64  `json:"id"`
	Pattern string `json:"pattern"`
	Type    string `json:"type"`
}

func toBlacklistItemJSON(item domain.BlacklistItem) blacklistItemJSON {
	return blacklistItemJSON{Id: item.Id, Pattern: item.Pattern, Type: string(item.Type)}
}

func (h *Handler) BlacklistItemsHandler(w http.ResponseWriter, r *http.Request) {
	items, err := h.Blacklist.Items(r.Context())
	if err != nil {
		writeErrorJSON(w, err)
		return
	}
	resp := make([]blacklistItemJSON, 0, len(items))
	for _, item := range items {
		resp = append(resp, toBlacklistItemJSON(item))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": resp})
}

func (h *Handler) BlacklistAddHandler(w http.ResponseWriter, r *http.Request) {
	var body blacklistItemJSON
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErrorJSON(w, internal_errors.BadRequest("Invalid JSON body"))
		return
	}

	item, err := h.Blacklist.AddItem(r.Context(), domain.BlacklistItem{Pattern: body.Pattern, Type: domain.BlacklistType(body.Type)})
	if err != nil {
		writeErrorJSON(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBlacklistItemJSON(item))
}

func (h *Handler) BlacklistDeleteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeErrorJSON(w, internal_errors.BadRequest("Invalid id"))
		return
	}
	if err := h.Blacklist.DeleteItem(r.Context(), id); err != nil {
		writeErrorJSON(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
