package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/combattracker/internal/api"
	"github.com/mcoot/combattracker/internal/api/apierr"
	"github.com/mcoot/combattracker/internal/api/middleware"
	"github.com/mcoot/combattracker/internal/api/response"
	"github.com/mcoot/combattracker/internal/factory"
	"github.com/mcoot/combattracker/internal/model"
	"github.com/mcoot/combattracker/internal/testutil"
)

// syncBuffer is a bytes.Buffer safe for a streaming command and a polling test
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type CLISuite struct {
	suite.Suite
	app    *factory.TestApp
	server *httptest.Server
	apiKey string
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLISuite))
}

func (s *CLISuite) SetupTest() {
	s.app = factory.NewTestApp()
	s.apiKey = ""
	s.startServer("")
}

func (s *CLISuite) TearDownTest() {
	s.server.Close()
	_ = s.app.Close()
}

func (s *CLISuite) startServer(keyHash string) {
	if s.server != nil {
		s.server.Close()
	}
	s.server = httptest.NewServer(api.NewRouter(api.RouterConfig{
		Logger:     testutil.NopLogger(),
		Clock:      s.app.MockClock,
		Random:     s.app.MockRandom,
		Library:    s.app.Library,
		Tracker:    s.app.Tracker,
		Sync:       s.app.Sync,
		Renderer:   s.app.Renderer,
		HubManager: s.app.HubManager,
		APIKeyHash: keyHash,
	}))
}

func (s *CLISuite) execute(ctx context.Context, out *syncBuffer, stdin string, args ...string) error {
	cmd := NewRootCmd()
	full := []string{"--server", s.server.URL, "--style", "notty"}
	if s.apiKey != "" {
		full = append(full, "--api-key", s.apiKey)
	}
	cmd.SetArgs(append(full, args...))
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetIn(strings.NewReader(stdin))
	return cmd.ExecuteContext(ctx)
}

// run executes the CLI and returns its output
func (s *CLISuite) run(args ...string) (string, error) {
	var out syncBuffer
	err := s.execute(context.Background(), &out, "", args...)
	return out.String(), err
}

// runJSON executes the CLI with JSON output and decodes the result
func (s *CLISuite) runJSON(v any, args ...string) {
	out, err := s.run(append([]string{"--output", "json"}, args...)...)
	s.Require().NoError(err, out)
	s.Require().NoError(json.Unmarshal([]byte(out), v), out)
}

func (s *CLISuite) TestHealth() {
	out, err := s.run("health")
	s.Require().NoError(err)
	s.Equal("Status: ok\n", out)
}

func (s *CLISuite) TestCombatFlow() {
	var goblin model.SavedMonster
	s.runJSON(&goblin, "monster", "create", "--name", "Goblin", "--hp-formula", "2d6", "--ac", "15", "--init-bonus", "2")
	s.Equal(7, goblin.MaxHP)

	var combat model.SavedCombat
	s.runJSON(&combat, "combat", "create", "--name", "Ambush", "--description", "Forest road")
	s.Equal("Ambush", combat.Name)

	var added response.CombatantsAdded
	s.runJSON(&added, "combat", "add", combat.ID, "--monster", goblin.ID, "-n", "2", "--init", "12")
	s.Require().Len(added.Added, 2)
	s.Equal("Goblin A", added.Added[0].DisplayName())

	var hp response.HPChanged
	s.runJSON(&hp, "combat", "damage", combat.ID, added.Added[0].ID, "3")
	s.Equal(4, hp.Combat.State.Combatants[hp.Combat.State.IndexOf(added.Added[0].ID)].HP)

	s.runJSON(&combat, "combat", "next", combat.ID)
	s.Equal(1, combat.State.CurrentTurn)

	out, err := s.run("combat", "condition", combat.ID, added.Added[1].ID, "prone")
	s.Require().NoError(err)
	s.Contains(out, "Combat: Ambush")
	s.Contains(out, "Goblin B")
	s.Contains(out, "Prone")
	s.Contains(out, "4/7")

	out, err = s.run("combat", "list")
	s.Require().NoError(err)
	s.Contains(out, "Ambush")
	s.Contains(out, "Goblin")
}

func (s *CLISuite) TestConcentrationNotice() {
	var combat model.SavedCombat
	s.runJSON(&combat, "combat", "create", "--name", "Duel")

	var added response.CombatantsAdded
	s.runJSON(&added, "combat", "add", combat.ID, "--name", "Mage", "--max-hp", "20", "--ac", "12")
	mage := added.Added[0].ID

	_, err := s.run("combat", "concentrate", combat.ID, mage)
	s.Require().NoError(err)

	out, err := s.run("combat", "damage", combat.ID, mage, "24")
	s.Require().NoError(err)
	s.Contains(out, "Concentration check: DC 12 (took 24 damage)")
	s.Contains(out, "Down S0/F0")
}

func (s *CLISuite) TestParkAndActivate() {
	var combat model.SavedCombat
	s.runJSON(&combat, "combat", "create", "--name", "Lair")

	var parked response.GroupParked
	s.runJSON(&parked, "combat", "park", combat.ID, "--name", "Wolf", "--max-hp", "11", "--ac", "13", "-n", "3")
	s.Len(parked.Combat.State.ParkedGroups, 1)
	s.Empty(parked.Combat.State.Combatants)

	out, err := s.run("combat", "get", combat.ID)
	s.Require().NoError(err)
	s.Contains(out, "No combatants")
	s.Contains(out, "Wolf x3")

	var activated response.CombatantsAdded
	s.runJSON(&activated, "combat", "activate", combat.ID, parked.Group.ID)
	s.Len(activated.Added, 3)
	s.Empty(activated.Combat.State.ParkedGroups)
}

func (s *CLISuite) TestAPIErrorsSurface() {
	_, err := s.run("combat", "get", "missing")

	var apiErr *APIError
	s.Require().True(errors.As(err, &apiErr))
	s.Equal(http.StatusNotFound, apiErr.Status)
	s.Equal(apierr.CodeCombatNotFound, apiErr.Code)
}

func (s *CLISuite) TestUsageErrors() {
	_, err := s.run("--output", "yaml", "health")
	s.EqualError(err, "--output must be text or json")

	_, err = s.run("combat", "damage", "c", "x", "lots")
	s.EqualError(err, `amount must be a whole number: "lots"`)

	_, err = s.run("combat", "add", "c", "--player", "p", "--monster", "m")
	s.Error(err)
}

func (s *CLISuite) TestAPIKey() {
	hash, err := middleware.HashKey("table-secret")
	s.Require().NoError(err)
	s.startServer(hash)

	_, err = s.run("combat", "list")
	var apiErr *APIError
	s.Require().True(errors.As(err, &apiErr))
	s.Equal(http.StatusUnauthorized, apiErr.Status)

	s.apiKey = "table-secret"
	out, err := s.run("combat", "list")
	s.Require().NoError(err)
	s.Equal("No combats\n", out)

	// Health stays open
	s.apiKey = ""
	_, err = s.run("health")
	s.NoError(err)
}

func (s *CLISuite) TestKeyHash() {
	out, err := s.run("key-hash", "table-secret")
	s.Require().NoError(err)
	s.NoError(bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("table-secret")))
}

func (s *CLISuite) TestRoll() {
	s.app.MockRandom.QueueIntn(2, 5)

	out, err := s.run("roll", "2d6+3")
	s.Require().NoError(err)
	s.Equal("2d6+3: [3, 6] +3 = 12\n", out)
	s.Zero(s.app.MockRandom.Pending())
}

func (s *CLISuite) TestSync() {
	out, err := s.run("sync", "status")
	s.Require().NoError(err)
	s.Contains(out, "Sync: memory")
	s.Contains(out, "Authorized: no")

	_, err = s.run("sync", "authorize", "dm-token")
	s.Require().NoError(err)

	var result response.SyncResult
	s.runJSON(&result, "sync")
	s.Equal("pushed", string(result.Direction))

	out, err = s.run("sync", "revoke")
	s.Require().NoError(err)
	s.Equal("Sync authorization revoked\n", out)
}

func (s *CLISuite) TestNotes() {
	var out syncBuffer
	err := s.execute(context.Background(), &out, "# Goblin\n\nScimitar {atk: +4}, {dmg: 1d6+2} slashing.\n", "notes")
	s.Require().NoError(err)
	s.Contains(out.String(), "Goblin")
	s.Contains(out.String(), "atk: +4")
	s.Contains(out.String(), "dmg: 1d6+2")

	out = syncBuffer{}
	err = s.execute(context.Background(), &out, "Bite {hit: +5}", "notes", "--html")
	s.Require().NoError(err)
	s.Contains(out.String(), "1d20+5")
}

func (s *CLISuite) TestCombatantNotes() {
	var combat model.SavedCombat
	s.runJSON(&combat, "combat", "create", "--name", "Crypt")

	var added response.CombatantsAdded
	s.runJSON(&added, "combat", "add", combat.ID, "--name", "Ghoul", "--max-hp", "22", "--ac", "12", "--notes", "**Paralyzing** claws")

	out, err := s.run("combat", "notes", combat.ID, added.Added[0].ID)
	s.Require().NoError(err)
	s.Contains(out, "Paralyzing")
	s.Contains(out, "claws")
}

func (s *CLISuite) TestEventsStream() {
	combat, err := s.app.Tracker.Create(context.Background(), "Siege", "")
	s.Require().NoError(err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- s.execute(ctx, &out, "", "events", combat.ID)
	}()

	s.Require().Eventually(func() bool {
		return strings.Contains(out.String(), "round 1")
	}, 3*time.Second, 10*time.Millisecond)

	// Deleting the combat closes its stream
	s.Require().NoError(s.app.Tracker.Delete(context.Background(), combat.ID))
	s.app.HubManager.RemoveHub(combat.ID)

	select {
	case err := <-done:
		s.NoError(err)
	case <-ctx.Done():
		s.Fail("events command did not exit")
	}
	s.Contains(out.String(), "Connected to combat "+combat.ID)
	s.Contains(out.String(), "Disconnected")
}

func TestReadEvents(t *testing.T) {
	stream := ": keepalive\n\n" +
		"event: combat\ndata: {\"type\":\"combat\",\n" +
		"data: \"payload\":{\"name\":\"A\",\"state\":{\"round\":2,\"currentTurn\":0,\"combatants\":[{\"id\":\"x\",\"name\":\"Orc\"}]}}}\n\n" +
		"event: concentration\ndata: {\"payload\":{\"name\":\"Mage\",\"damage\":9,\"dc\":10}}\n\n" +
		"event: combat_deleted\ndata: {}\n\n" +
		"event: combat\ndata: {}\n\n"

	var got []string
	err := readEvents(strings.NewReader(stream), func(evt SSEEvent) bool {
		got = append(got, describeEvent(evt))
		return evt.Event != string(model.EventCombatDeleted)
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		"round 2, Orc's turn, 1 combatants",
		"Mage took 9 damage, concentration DC 10",
		"combat deleted",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d events %q, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
