package httpadapter

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"agency-hub/internal/core/domain"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsPrefBuffer   = 64
)

// wsFrame is one server-to-client message on the live stream.
type wsFrame struct {
	Type    string              `json:"type"` // "state" or "preference"
	State   *domain.AgencyState `json:"state,omitempty"`
	Key     string              `json:"key,omitempty"`
	Enabled *bool               `json:"enabled,omitempty"`
}

type prefChange struct {
	key     string
	enabled bool
}

// handleWS streams the agency document and preference changes to a view
// client. A state frame is sent on connect and after every store
// notification; bursts of notifications coalesce into one frame. Both
// subscriptions are released when the connection ends.
func (h *Handler) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade", slog.Any("error", err))
		return
	}
	defer conn.Close()

	stateDirty := make(chan struct{}, 1)
	prefs := make(chan prefChange, wsPrefBuffer)

	unsubState := h.agency.Subscribe(func() {
		select {
		case stateDirty <- struct{}{}:
		default:
		}
	})
	defer unsubState()
	unsubPrefs := h.prefs.Subscribe(func(key string, enabled bool) {
		select {
		case prefs <- prefChange{key: key, enabled: enabled}:
		default:
			h.logger.Warn("dropping preference frame for slow client", slog.String("key", key))
		}
	})
	defer unsubPrefs()

	// The read loop only detects the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(f wsFrame) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(f); err != nil {
			h.logger.Debug("websocket write", slog.Any("error", err))
			return false
		}
		return true
	}

	if !send(wsFrame{Type: "state", State: h.agency.GetSnapshot()}) {
		return
	}
	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-stateDirty:
			if !send(wsFrame{Type: "state", State: h.agency.GetSnapshot()}) {
				return
			}
		case p := <-prefs:
			enabled := p.enabled
			if !send(wsFrame{Type: "preference", Key: p.key, Enabled: &enabled}) {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}

// originChecker accepts the listed origins, or same-host requests when the
// list is empty.
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if len(allowed) > 0 {
			return slices.Contains(allowed, origin)
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}
