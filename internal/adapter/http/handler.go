package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"agency-hub/internal/core/port"
)

// Handler is the inbound HTTP adapter through which the view layer reads
// and mutates the stores. Routes are registered on a chi.Router.
type Handler struct {
	agency   port.AgencyUseCase
	prefs    port.PreferenceUseCase
	logger   *slog.Logger
	router   chi.Router
	upgrader websocket.Upgrader
}

// NewHandler creates a handler with all routes configured. allowedOrigins
// lists the origins accepted on the websocket endpoint; when empty only
// same-host upgrades are accepted.
func NewHandler(agency port.AgencyUseCase, prefs port.PreferenceUseCase, logger *slog.Logger, allowedOrigins []string) *Handler {
	h := &Handler{agency: agency, prefs: prefs, logger: logger}
	h.upgrader = websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)}

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/state", h.handleState)
		r.Get("/ws", h.handleWS)

		r.Route("/managers", func(r chi.Router) {
			r.Get("/", h.handleListManagers)
			r.Post("/", h.handleAddManager)
			r.Get("/stats", h.handleManagerStats)
			r.Patch("/{managerID}", h.handleRenameManager)
			r.Delete("/{managerID}", h.handleDeleteManager)
			r.Get("/{managerID}/campaigns", h.handleManagerCampaigns)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.handleListAccounts)
			r.Post("/ai", h.handleAddAiAccount)
			r.Post("/own", h.handleAddOwnAccount)
			r.Put("/{accountID}/owner", h.handleAssignAccount)
			r.Delete("/{accountID}/owner", h.handleUnassignAccount)
			r.Get("/{accountID}/campaigns", h.handleAccountCampaigns)
			r.Post("/{accountID}/campaigns", h.handleAddCampaign)
		})

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", h.handleListCampaigns)
			r.Get("/{campaignID}", h.handleGetCampaign)
			r.Delete("/{campaignID}", h.handleDeleteCampaign)
			r.Put("/{campaignID}/owner", h.handleAssignCampaign)
			r.Delete("/{campaignID}/owner", h.handleUnassignCampaign)
			r.Put("/{campaignID}/status", h.handleSetCampaignStatus)
		})

		r.Get("/preferences", h.handleReadPreference)
		r.Put("/preferences", h.handleWritePreference)
	})
	h.router = r
	return h
}

// Router returns the underlying http.Handler.
func (h *Handler) Router() http.Handler {
	return h.router
}

// errorBody is the JSON payload of every non-2xx response.
type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// encoding should rarely fail; the header is already sent
		h.logger.Error("encode response error", slog.Any("error", err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg, reason string) {
	h.writeJSON(w, status, errorBody{Error: msg, Reason: reason})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
