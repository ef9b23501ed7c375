package httpadapter

import (
	"net/http"

	"agency-hub/internal/core/domain"
)

type preferenceRequest struct {
	domain.PreferenceID
	Enabled *bool `json:"enabled"`
}

type preferenceResponse struct {
	Key     string `json:"key"`
	Enabled bool   `json:"enabled"`
}

// handleReadPreference reads one widget flag identified by the `surface`,
// `account`, `campaign` and `parameter` query parameters.
func (h *Handler) handleReadPreference(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := domain.PreferenceID{
		Surface:   q.Get("surface"),
		Account:   q.Get("account"),
		Campaign:  q.Get("campaign"),
		Parameter: q.Get("parameter"),
	}
	h.writeJSON(w, http.StatusOK, preferenceResponse{
		Key:     id.Key(),
		Enabled: h.prefs.Read(r.Context(), id),
	})
}

func (h *Handler) handleWritePreference(w http.ResponseWriter, r *http.Request) {
	var req preferenceRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "")
		return
	}
	if req.Enabled == nil {
		h.writeError(w, http.StatusBadRequest, "missing 'enabled'", "")
		return
	}
	h.prefs.Write(r.Context(), req.PreferenceID, *req.Enabled)
	h.writeJSON(w, http.StatusOK, preferenceResponse{Key: req.PreferenceID.Key(), Enabled: *req.Enabled})
}
