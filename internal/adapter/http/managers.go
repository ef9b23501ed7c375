package httpadapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"agency-hub/internal/core/domain"
)

type managerRequest struct {
	Name string `json:"name"`
}

// handleState returns the whole agency document.
func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.agency.GetSnapshot())
}

func (h *Handler) handleListManagers(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.agency.GetSnapshot().ListManagers())
}

func (h *Handler) handleManagerStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.agency.GetSnapshot().ManagerStats())
}

// handleAddManager creates a manager. An empty or already used name
// (ignoring case) is rejected with 409 since the store does not say which.
func (h *Handler) handleAddManager(w http.ResponseWriter, r *http.Request) {
	var req managerRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "")
		return
	}
	m := h.agency.AddManager(r.Context(), req.Name)
	if m == nil {
		h.writeError(w, http.StatusConflict, "manager name is empty or taken", "")
		return
	}
	h.writeJSON(w, http.StatusCreated, m)
}

// handleRenameManager maps each rename failure reason to its own status.
func (h *Handler) handleRenameManager(w http.ResponseWriter, r *http.Request) {
	var req managerRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "")
		return
	}
	res := h.agency.RenameManager(r.Context(), chi.URLParam(r, "managerID"), req.Name)
	if res.OK {
		h.writeJSON(w, http.StatusOK, res)
		return
	}
	status := http.StatusBadRequest
	switch res.Reason {
	case domain.RenameNotFound:
		status = http.StatusNotFound
	case domain.RenameDuplicate:
		status = http.StatusConflict
	}
	h.writeError(w, status, "rename rejected", string(res.Reason))
}

// handleDeleteManager is idempotent: deleting an unknown manager succeeds.
func (h *Handler) handleDeleteManager(w http.ResponseWriter, r *http.Request) {
	h.agency.DeleteManager(r.Context(), chi.URLParam(r, "managerID"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleManagerCampaigns(w http.ResponseWriter, r *http.Request) {
	snap := h.agency.GetSnapshot()
	id := chi.URLParam(r, "managerID")
	if _, ok := snap.ManagerByID(id); !ok {
		h.writeError(w, http.StatusNotFound, "manager not found", "")
		return
	}
	h.writeJSON(w, http.StatusOK, snap.CampaignsByOwner(id))
}
