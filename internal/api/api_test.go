package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/combattracker/internal/api"
	"github.com/mcoot/combattracker/internal/api/apierr"
	"github.com/mcoot/combattracker/internal/api/middleware"
	"github.com/mcoot/combattracker/internal/api/response"
	"github.com/mcoot/combattracker/internal/cloudsync"
	"github.com/mcoot/combattracker/internal/factory"
	"github.com/mcoot/combattracker/internal/model"
	"github.com/mcoot/combattracker/internal/testutil"
)

// testServer wraps a router over an in-memory app
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

type serverOption func(*api.RouterConfig)

func withoutSync() serverOption {
	return func(cfg *api.RouterConfig) { cfg.Sync = nil }
}

func withAPIKeyHash(hash string) serverOption {
	return func(cfg *api.RouterConfig) { cfg.APIKeyHash = hash }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	t.Cleanup(func() { _ = app.Close() })

	cfg := api.RouterConfig{
		Logger:     testutil.NopLogger(),
		Clock:      app.MockClock,
		Random:     app.MockRandom,
		Library:    app.Library,
		Tracker:    app.Tracker,
		Sync:       app.Sync,
		Renderer:   app.Renderer,
		HubManager: app.HubManager,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &testServer{handler: api.NewRouter(cfg), app: app}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[apierr.ErrorResponse](t, rr).Error.Code
}

func (ts *testServer) createCombat(t *testing.T, name string) model.SavedCombat {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/v1/combats", map[string]string{"name": name}, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decodeBody[model.SavedCombat](t, rr)
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decodeBody[response.Health](t, rr).Status)
}

func TestAPIKeyRequired(t *testing.T) {
	hash, err := middleware.HashKey("table-secret")
	require.NoError(t, err)
	ts := newTestServer(t, withAPIKeyHash(hash))

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code, "health stays open")

	rr = ts.request(http.MethodGet, "/api/v1/combats", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, apierr.CodeUnauthorized, errorCode(t, rr))

	rr = ts.request(http.MethodGet, "/api/v1/combats", nil, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/combats", nil, "table-secret")
	assert.Equal(t, http.StatusOK, rr.Code)

	// Second request with the same key is served from the verified cache
	rr = ts.request(http.MethodGet, "/api/v1/combats", nil, "table-secret")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestPlayerCRUD(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/players", map[string]any{
		"name": "Aria", "maxHp": 30, "ac": 16, "initiativeBonus": 3,
	}, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decodeBody[model.SavedPlayer](t, rr)
	assert.NotEmpty(t, created.ID)

	rr = ts.request(http.MethodPut, "/api/v1/players/"+created.ID, map[string]any{
		"name": "Aria", "maxHp": 34, "ac": 17,
	}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 34, decodeBody[model.SavedPlayer](t, rr).MaxHP)

	rr = ts.request(http.MethodGet, "/api/v1/players", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]model.SavedPlayer](t, rr), 1)

	rr = ts.request(http.MethodDelete, "/api/v1/players/"+created.ID, nil, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/players/"+created.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodePlayerNotFound, errorCode(t, rr))
}

func TestCreatePlayerValidation(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/players", map[string]any{"name": "", "maxHp": 10}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidTemplate, errorCode(t, rr))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/players", strings.NewReader("{not json"))
	bad := httptest.NewRecorder()
	ts.handler.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, errorCode(t, bad))
}

func TestMonsterFormulaSetsMaxHP(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/monsters", map[string]any{
		"name": "Ogre", "hpFormula": "7d10 + 21", "ac": 11,
	}, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	ogre := decodeBody[model.SavedMonster](t, rr)
	assert.Equal(t, 59, ogre.MaxHP)
	assert.Equal(t, "7d10+21", ogre.HPFormula)

	rr = ts.request(http.MethodPost, "/api/v1/monsters", map[string]any{"name": "Blob", "hpFormula": "lots"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCombatLifecycle(t *testing.T) {
	ts := newTestServer(t)
	combat := ts.createCombat(t, "Ambush")

	rr := ts.request(http.MethodPut, "/api/v1/combats/"+combat.ID, map[string]string{"name": "Road Ambush", "description": "Dusk"}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Road Ambush", decodeBody[model.SavedCombat](t, rr).Name)

	rr = ts.request(http.MethodGet, "/api/v1/combats", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decodeBody[[]response.CombatSummary](t, rr)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].Round)

	rr = ts.request(http.MethodDelete, "/api/v1/combats/"+combat.ID, nil, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/combats/"+combat.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeCombatNotFound, errorCode(t, rr))
}

func TestCreateCombatRequiresName(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/combats", map[string]string{"name": "  "}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidCombat, errorCode(t, rr))
}

func TestCombatantOperations(t *testing.T) {
	ts := newTestServer(t)
	combat := ts.createCombat(t, "Crypt")
	base := "/api/v1/combats/" + combat.ID

	rr := ts.request(http.MethodPost, base+"/combatants", map[string]any{
		"name": "Cleric", "initiative": 14, "maxHp": 40, "ac": 18, "isPlayer": true,
	}, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	added := decodeBody[response.CombatantsAdded](t, rr)
	require.Len(t, added.Added, 1)
	cleric := added.Added[0]
	cpath := base + "/combatants/" + cleric.ID

	rr = ts.request(http.MethodPost, cpath+"/concentration", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodPost, cpath+"/hp", map[string]int{"delta": -24}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	hp := decodeBody[response.HPChanged](t, rr)
	require.NotNil(t, hp.Concentration)
	assert.Equal(t, 12, hp.Concentration.DC)
	assert.Equal(t, 16, hp.Combat.State.Combatants[0].HP)

	rr = ts.request(http.MethodPost, cpath+"/hp", map[string]int{"hp": 40}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Nil(t, decodeBody[response.HPChanged](t, rr).Concentration)

	rr = ts.request(http.MethodPost, cpath+"/hp", map[string]int{"hp": 1, "delta": 2}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPut, cpath+"/temp-hp", map[string]int{"value": 5}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 5, decodeBody[model.SavedCombat](t, rr).State.Combatants[0].TempHP)

	rr = ts.request(http.MethodPut, cpath+"/temp-hp", map[string]int{"value": -1}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidValue, errorCode(t, rr))

	rr = ts.request(http.MethodPut, cpath+"/max-hp", map[string]any{}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPost, cpath+"/conditions", map[string]string{"condition": " Prone "}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"prone"}, decodeBody[model.SavedCombat](t, rr).State.Combatants[0].Conditions)

	rr = ts.request(http.MethodPut, cpath+"/death-saves", map[string]int{"successes": 2, "failures": 5}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, model.DeathSaves{Successes: 2, Failures: 3}, decodeBody[model.SavedCombat](t, rr).State.Combatants[0].DeathSaves)

	rr = ts.request(http.MethodPut, cpath+"/initiative", map[string]int{"value": 3}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 3, decodeBody[model.SavedCombat](t, rr).State.Combatants[0].Initiative)

	rr = ts.request(http.MethodDelete, base+"/combatants/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeCombatantNotFound, errorCode(t, rr))

	rr = ts.request(http.MethodDelete, cpath, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodeBody[model.SavedCombat](t, rr).State.Combatants)
}

func TestCombatantQuantityIsCapped(t *testing.T) {
	ts := newTestServer(t)
	created := ts.createCombat(t, "Horde")

	for _, path := range []string{"/combatants", "/parked"} {
		rr := ts.request(http.MethodPost, "/api/v1/combats/"+created.ID+path,
			map[string]any{"name": "Goblin", "quantity": 1 << 50, "maxHp": 7}, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, path)
		assert.Equal(t, apierr.CodeInvalidCombatant, errorCode(t, rr), path)
	}

	got, err := ts.app.Tracker.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Empty(t, got.State.Combatants)
	assert.Empty(t, got.State.ParkedGroups)
}

func TestTurnOrder(t *testing.T) {
	ts := newTestServer(t)
	combat := ts.createCombat(t, "Arena")
	base := "/api/v1/combats/" + combat.ID

	rr := ts.request(http.MethodPost, base+"/combatants", map[string]any{
		"name": "Gladiator", "quantity": 2, "initiative": 10, "maxHp": 20, "identifierType": "number",
	}, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	added := decodeBody[response.CombatantsAdded](t, rr)
	require.Len(t, added.Added, 2)
	assert.Equal(t, "1", added.Added[0].Identifier)
	assert.Equal(t, "2", added.Added[1].Identifier)

	rr = ts.request(http.MethodPost, base+"/next", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decodeBody[model.SavedCombat](t, rr).State.CurrentTurn)

	rr = ts.request(http.MethodPost, base+"/next", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	state := decodeBody[model.SavedCombat](t, rr).State
	assert.Equal(t, 0, state.CurrentTurn)
	assert.Equal(t, 2, state.Round)

	rr = ts.request(http.MethodPost, base+"/prev", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	state = decodeBody[model.SavedCombat](t, rr).State
	assert.Equal(t, 1, state.CurrentTurn)
	assert.Equal(t, 1, state.Round)

	rr = ts.request(http.MethodPost, base+"/reset", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	state = decodeBody[model.SavedCombat](t, rr).State
	assert.Equal(t, 0, state.CurrentTurn)
	assert.Equal(t, 1, state.Round)
}

func TestParkedGroups(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/monsters", map[string]any{"name": "Wolf", "maxHp": 11, "ac": 13}, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	wolf := decodeBody[model.SavedMonster](t, rr)

	combat := ts.createCombat(t, "Hunt")
	base := "/api/v1/combats/" + combat.ID

	rr = ts.request(http.MethodPost, base+"/parked", map[string]any{
		"quantity":       3,
		"initiative":     15,
		"templateOrigin": map[string]string{"originType": "monster", "originId": wolf.ID},
	}, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	parked := decodeBody[response.GroupParked](t, rr)
	assert.Equal(t, "Wolf", parked.Group.Name)
	assert.Empty(t, parked.Combat.State.Combatants)

	rr = ts.request(http.MethodPost, base+"/parked/"+parked.Group.ID+"/activate", nil, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	activated := decodeBody[response.CombatantsAdded](t, rr)
	assert.Len(t, activated.Added, 3)
	assert.Empty(t, activated.Combat.State.ParkedGroups)

	rr = ts.request(http.MethodDelete, base+"/parked/"+parked.Group.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeParkedGroupNotFound, errorCode(t, rr))
}

func TestSyncDisabled(t *testing.T) {
	ts := newTestServer(t, withoutSync())

	rr := ts.request(http.MethodGet, "/api/v1/sync/status", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decodeBody[response.SyncStatus](t, rr).Enabled)

	for _, path := range []string{"/api/v1/sync", "/api/v1/sync/upload", "/api/v1/sync/download", "/api/v1/sync/revoke"} {
		rr = ts.request(http.MethodPost, path, nil, "")
		assert.Equal(t, http.StatusNotImplemented, rr.Code, path)
		assert.Equal(t, apierr.CodeSyncDisabled, errorCode(t, rr), path)
	}
}

func TestSyncFlow(t *testing.T) {
	ts := newTestServer(t)
	ts.createCombat(t, "Synced")

	rr := ts.request(http.MethodPost, "/api/v1/sync", nil, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, apierr.CodeSyncNotAuthorized, errorCode(t, rr))

	rr = ts.request(http.MethodGet, "/api/v1/sync/authorize", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(decodeBody[response.AuthorizationURL](t, rr).URL, "memory://authorize"))

	rr = ts.request(http.MethodPost, "/api/v1/sync/authorize", map[string]string{"code": "dm-token"}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	status := decodeBody[response.SyncStatus](t, rr)
	assert.True(t, status.Authorized)
	assert.Equal(t, "memory", status.Provider)

	rr = ts.request(http.MethodPost, "/api/v1/sync/download", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeNoRemoteData, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/sync", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	result := decodeBody[cloudsync.Result](t, rr)
	assert.Equal(t, cloudsync.Pushed, result.Direction)
	assert.Equal(t, ts.app.MockClock.Now().UnixMilli(), result.LastSynced)
	assert.Contains(t, string(ts.app.Remote.Data()), "Synced")

	rr = ts.request(http.MethodPost, "/api/v1/sync/revoke", nil, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, []string{"dm-token"}, ts.app.Remote.Revoked())

	rr = ts.request(http.MethodGet, "/api/v1/sync/status", nil, "")
	status = decodeBody[response.SyncStatus](t, rr)
	assert.False(t, status.Authorized)
	assert.Zero(t, status.LastSynced)
}

func TestMarkdown(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/markdown", map[string]string{
		"text": "**Bite** {atk: +4} for 1d6+2 piercing",
	}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	html := decodeBody[response.Markdown](t, rr).HTML
	assert.Contains(t, html, "<strong>Bite</strong>")
	assert.Contains(t, html, `data-roll="1d20+4"`)
	assert.Contains(t, html, `data-roll="1d6+2"`)
}

func TestDiceRoll(t *testing.T) {
	ts := newTestServer(t)
	ts.app.MockRandom.QueueIntn(2, 5)

	rr := ts.request(http.MethodPost, "/api/v1/dice/roll", map[string]string{"expression": "2d6+3"}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	roll := decodeBody[response.Roll](t, rr)
	assert.Equal(t, []int{3, 6}, roll.Results)
	assert.Equal(t, 12, roll.Total)

	rr = ts.request(http.MethodPost, "/api/v1/dice/roll", map[string]string{"expression": "2d"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidDice, errorCode(t, rr))
}

func TestCombatEventStream(t *testing.T) {
	ts := newTestServer(t)
	combat := ts.createCombat(t, "Watched")

	server := httptest.NewServer(ts.handler)
	defer server.Close()
	transport := &http.Transport{}
	defer transport.CloseIdleConnections()
	client := &http.Client{Transport: transport}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/combats/"+combat.ID+"/events", nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	next := func() (string, string) {
		t.Helper()
		var event, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case line == "":
				if event != "" {
					return event, data
				}
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data += strings.TrimPrefix(line, "data: ")
			}
		}
	}

	event, _ := next()
	assert.Equal(t, "connected", event)
	event, data := next()
	assert.Equal(t, "combat", event)
	assert.Contains(t, data, `"Watched"`)

	rr := ts.request(http.MethodPut, "/api/v1/combats/"+combat.ID, map[string]string{"name": "Renamed"}, "")
	require.Equal(t, http.StatusOK, rr.Code)

	event, data = next()
	assert.Equal(t, "combat", event)
	var published model.Event
	require.NoError(t, json.Unmarshal([]byte(data), &published))
	assert.Equal(t, combat.ID, published.CombatID)
	assert.Contains(t, data, `"Renamed"`)
}

func TestEventStreamForMissingCombat(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/combats/missing/events", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeCombatNotFound, errorCode(t, rr))
}
