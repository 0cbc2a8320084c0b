package httpapi

import (
	"net/http"
	"strconv"

	"github.com/campusvote/campusvote/internal/domain"
)

func (a *API) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	entries, err := a.audits.Recent(r.Context(), actorFrom(r.Context()), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}
