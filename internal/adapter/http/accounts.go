package httpadapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type ownerRequest struct {
	ManagerID string `json:"managerId"`
}

type campaignRequest struct {
	Name string `json:"name"`
}

func (h *Handler) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.agency.GetSnapshot().ListAccounts())
}

func (h *Handler) handleAddAiAccount(w http.ResponseWriter, r *http.Request) {
	acc := h.agency.AddAiAccount(r.Context())
	if acc == nil {
		h.writeError(w, http.StatusConflict, "account quota exceeded", "quota_exceeded")
		return
	}
	h.writeJSON(w, http.StatusCreated, acc)
}

func (h *Handler) handleAddOwnAccount(w http.ResponseWriter, r *http.Request) {
	acc := h.agency.AddOwnAccount(r.Context())
	if acc == nil {
		h.writeError(w, http.StatusConflict, "account quota exceeded", "quota_exceeded")
		return
	}
	h.writeJSON(w, http.StatusCreated, acc)
}

// handleAssignAccount hands every campaign of the account to one manager.
func (h *Handler) handleAssignAccount(w http.ResponseWriter, r *http.Request) {
	var req ownerRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "")
		return
	}
	if !h.agency.AssignAccount(r.Context(), chi.URLParam(r, "accountID"), req.ManagerID) {
		h.writeError(w, http.StatusNotFound, "account or manager not found", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnassignAccount(w http.ResponseWriter, r *http.Request) {
	h.agency.RemoveFromManager(r.Context(), chi.URLParam(r, "accountID"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAccountCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns := h.agency.GetSnapshot().CampaignsByAccount(chi.URLParam(r, "accountID"))
	if campaigns == nil {
		h.writeError(w, http.StatusNotFound, "account not found", "")
		return
	}
	h.writeJSON(w, http.StatusOK, campaigns)
}

// handleAddCampaign accepts an optional JSON body carrying the name.
func (h *Handler) handleAddCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid JSON", "")
			return
		}
	}
	c := h.agency.AddCampaign(r.Context(), chi.URLParam(r, "accountID"), req.Name)
	if c == nil {
		h.writeError(w, http.StatusNotFound, "account not found", "")
		return
	}
	h.writeJSON(w, http.StatusCreated, c)
}
