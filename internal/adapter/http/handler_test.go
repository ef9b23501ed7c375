package httpadapter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agency-hub/internal/adapter/memory"
	"agency-hub/internal/adapter/usecase"
	"agency-hub/internal/core/domain"
	"agency-hub/internal/core/port"
)

type fixture struct {
	server *httptest.Server
	agency *usecase.AgencyStore
	prefs  *usecase.PreferenceBus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	origin := memory.NewOrigin()
	storage := origin.Storage()

	raw, err := domain.EncodeState(domain.DemoState())
	require.NoError(t, err)
	require.NoError(t, storage.Set(context.Background(), usecase.StateKey, raw))

	agency := usecase.NewAgencyStore(storage, logger)
	prefs := usecase.NewPreferenceBus(storage, origin.Channel("prefs"), memory.NewEventTarget[port.Message](), logger)
	server := httptest.NewServer(NewHandler(agency, prefs, logger, nil).Router())
	t.Cleanup(func() {
		server.Close()
		prefs.Close()
		agency.Close()
	})
	return &fixture{server: server, agency: agency, prefs: prefs}
}

func (f *fixture) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.server.URL+"/api/v1"+path, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestStateEndpoint(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/state", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.DemoState(), decode[*domain.AgencyState](t, resp))
}

func TestManagersLifecycle(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/managers", `{"name":"Jordan Lee"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	m := decode[domain.Manager](t, resp)
	assert.Equal(t, "Jordan Lee", m.Name)

	resp = f.do(t, http.MethodPost, "/managers", `{"name":"jordan lee"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/managers", `{"nickname":"x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/managers", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	managers := decode[[]domain.Manager](t, resp)
	require.Len(t, managers, 3)
	assert.Equal(t, m.ID, managers[0].ID)

	resp = f.do(t, http.MethodDelete, "/managers/mgr-1", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = f.do(t, http.MethodDelete, "/managers/mgr-1", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/managers/mgr-1/campaigns", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/campaigns?unassigned=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]domain.FlatCampaign](t, resp), 4)
}

func TestRenameManagerStatuses(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		reason string
	}{
		{name: "ok", path: "/managers/mgr-1", body: `{"name":"Alex M."}`, status: http.StatusOK},
		{name: "empty", path: "/managers/mgr-1", body: `{"name":"  "}`, status: http.StatusBadRequest, reason: "empty"},
		{name: "unknown", path: "/managers/nobody", body: `{"name":"X"}`, status: http.StatusNotFound, reason: "not_found"},
		{name: "duplicate", path: "/managers/mgr-1", body: `{"name":"SAM RIVERA"}`, status: http.StatusConflict, reason: "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, http.MethodPatch, tt.path, tt.body)
			require.Equal(t, tt.status, resp.StatusCode)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, decode[errorBody](t, resp).Reason)
			}
		})
	}

	m, ok := f.agency.GetSnapshot().ManagerByID("mgr-1")
	require.True(t, ok)
	assert.Equal(t, "Alex M.", m.Name)
}

func TestManagerStats(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/managers/stats", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode[[]domain.ManagerStats](t, resp)
	require.Len(t, stats, 2)
	assert.Equal(t, f.agency.GetSnapshot().ManagerStats(), stats)
}

func TestAccountQuotaIsReported(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/accounts/ai", "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "quota_exceeded", decode[errorBody](t, resp).Reason)

	require.NoError(t, f.agency.SetQuotaOverride(context.Background(), true))
	resp = f.do(t, http.MethodPost, "/accounts/own", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	acc := decode[domain.Account](t, resp)
	assert.Equal(t, "Own account 2", acc.Name)
	assert.Empty(t, acc.Campaigns)
}

func TestAccountOwnership(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPut, "/accounts/acc-1/owner", `{"managerId":"mgr-2"}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	for _, c := range f.agency.GetSnapshot().CampaignsByAccount("acc-1") {
		assert.Equal(t, "mgr-2", c.OwnerID)
	}

	resp = f.do(t, http.MethodPut, "/accounts/acc-1/owner", `{"managerId":"ghost"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, "/accounts/acc-1/owner", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Len(t, f.agency.GetSnapshot().UnassignedCampaigns(), 5)

	resp = f.do(t, http.MethodGet, "/accounts/nope/campaigns", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCampaignEndpoints(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/accounts/acc-1/campaigns", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	c := decode[domain.Campaign](t, resp)
	assert.Equal(t, domain.DefaultCampaignName, c.Name)
	assert.Equal(t, domain.AdminOwnerID, c.OwnerID)

	resp = f.do(t, http.MethodPost, "/accounts/acc-1/campaigns", `{"name":"Brand search"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	named := decode[domain.Campaign](t, resp)

	resp = f.do(t, http.MethodPut, "/campaigns/"+named.ID+"/owner", `{"managerId":"mgr-1"}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/campaigns/"+named.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	flat := decode[domain.FlatCampaign](t, resp)
	assert.Equal(t, "mgr-1", flat.OwnerID)
	assert.Equal(t, "acc-1", flat.AccountID)

	resp = f.do(t, http.MethodGet, "/campaigns?owner=mgr-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]domain.FlatCampaign](t, resp), 3)

	resp = f.do(t, http.MethodPut, "/campaigns/"+named.ID+"/status", `{"status":"paused"}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = f.do(t, http.MethodPut, "/campaigns/"+named.ID+"/status", `{"status":"archived"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, "/campaigns/"+named.ID+"/owner", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, "/campaigns/"+c.ID, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = f.do(t, http.MethodDelete, "/campaigns/"+c.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/campaigns?unassigned=maybe", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPreferenceEndpoints(t *testing.T) {
	f := newFixture(t)
	query := "/preferences?surface=Checklist&account=acc-1&campaign=cmp-1&parameter=AI%20suggestions"
	key := domain.PreferenceID{Surface: "Checklist", Account: "acc-1", Campaign: "cmp-1", Parameter: "AI suggestions"}.Key()

	resp := f.do(t, http.MethodGet, query, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, preferenceResponse{Key: key, Enabled: true}, decode[preferenceResponse](t, resp))

	resp = f.do(t, http.MethodPut, "/preferences",
		`{"surface":"Checklist","account":"acc-1","campaign":"cmp-1","parameter":"AI suggestions","enabled":false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, preferenceResponse{Key: key, Enabled: false}, decode[preferenceResponse](t, resp))

	resp = f.do(t, http.MethodGet, query, "")
	assert.False(t, decode[preferenceResponse](t, resp).Enabled)

	resp = f.do(t, http.MethodPut, "/preferences", `{"surface":"Checklist"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebsocketStreamsChanges(t *testing.T) {
	f := newFixture(t)
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/api/v1/ws"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var frame wsFrame
	require.NoError(t, conn.ReadJSON(&frame))
	require.Equal(t, "state", frame.Type)
	assert.Len(t, frame.State.Managers, 2)

	require.NotNil(t, f.agency.AddManager(context.Background(), "Jordan"))
	frame = wsFrame{}
	require.NoError(t, conn.ReadJSON(&frame))
	require.Equal(t, "state", frame.Type)
	assert.Len(t, frame.State.Managers, 3)

	id := domain.PreferenceID{Surface: "keywords", Parameter: "show"}
	f.prefs.Write(context.Background(), id, false)
	frame = wsFrame{}
	require.NoError(t, conn.ReadJSON(&frame))
	require.Equal(t, "preference", frame.Type)
	assert.Equal(t, id.Key(), frame.Key)
	require.NotNil(t, frame.Enabled)
	assert.False(t, *frame.Enabled)
}

func TestOriginChecker(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://hub.local/api/v1/ws", nil)

	sameHost := originChecker(nil)
	assert.True(t, sameHost(req))
	req.Header.Set("Origin", "http://hub.local")
	assert.True(t, sameHost(req))
	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, sameHost(req))

	listed := originChecker([]string{"http://evil.example"})
	assert.True(t, listed(req))
}
