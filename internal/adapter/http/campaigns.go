package httpadapter

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"agency-hub/internal/core/domain"
)

type statusRequest struct {
	Status domain.CampaignStatus `json:"status"`
}

// handleListCampaigns returns the flattened campaign view. It accepts an
// optional `owner` query parameter, or `unassigned=true` for the
// administrator pool.
func (h *Handler) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	var (
		snap = h.agency.GetSnapshot()
		q    = r.URL.Query()
	)
	if v := q.Get("unassigned"); v != "" {
		unassigned, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid 'unassigned' flag", "")
			return
		}
		if unassigned {
			h.writeJSON(w, http.StatusOK, snap.UnassignedCampaigns())
			return
		}
	}
	if owner := q.Get("owner"); owner != "" {
		h.writeJSON(w, http.StatusOK, snap.CampaignsByOwner(owner))
		return
	}
	h.writeJSON(w, http.StatusOK, snap.AllCampaigns())
}

func (h *Handler) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	c, ok := h.agency.GetSnapshot().CampaignByID(chi.URLParam(r, "campaignID"))
	if !ok {
		h.writeError(w, http.StatusNotFound, "campaign not found", "")
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	if !h.agency.DeleteCampaign(r.Context(), chi.URLParam(r, "campaignID")) {
		h.writeError(w, http.StatusNotFound, "campaign not found", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAssignCampaign(w http.ResponseWriter, r *http.Request) {
	var req ownerRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "")
		return
	}
	if !h.agency.AssignCampaign(r.Context(), chi.URLParam(r, "campaignID"), req.ManagerID) {
		h.writeError(w, http.StatusNotFound, "campaign or manager not found", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUnassignCampaign returns the campaign to the administrator pool.
func (h *Handler) handleUnassignCampaign(w http.ResponseWriter, r *http.Request) {
	h.agency.RemoveCampaignFromManager(r.Context(), chi.URLParam(r, "campaignID"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetCampaignStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "")
		return
	}
	if !req.Status.Valid() {
		h.writeError(w, http.StatusBadRequest, "invalid status", "")
		return
	}
	if !h.agency.SetCampaignStatus(r.Context(), chi.URLParam(r, "campaignID"), req.Status) {
		h.writeError(w, http.StatusNotFound, "campaign not found", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
