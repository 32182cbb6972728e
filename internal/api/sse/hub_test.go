package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/mcoot/combattracker/internal/model"
	"github.com/mcoot/combattracker/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFormatSSEMessage(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		data      string
		expected  string
	}{
		{"single line data", "combat", `{"round":1}`, "event: combat\ndata: {\"round\":1}\n\n"},
		{"multi-line data", "combat", "a\nb", "event: combat\ndata: a\ndata: b\n\n"},
		{"empty data", "ping", "", "event: ping\ndata: \n\n"},
		{"carriage returns", "test", "line1\r\nline2\r\n", "event: test\ndata: line1\ndata: line2\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatSSEMessage(tt.eventName, tt.data)
			if string(result) != tt.expected {
				t.Errorf("formatSSEMessage(%q, %q)\ngot:  %q\nwant: %q",
					tt.eventName, tt.data, string(result), tt.expected)
			}
		})
	}
}

// waitFor polls until cond holds or the deadline passes
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := NewHub("combat-1", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	client := NewClient("test")
	if !hub.Register(client) {
		t.Fatal("Register returned false on a running hub")
	}
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	hub.BroadcastEvent("combat", "data")

	select {
	case msg := <-client.send:
		if string(msg) != "event: combat\ndata: data\n\n" {
			t.Errorf("client received %q", string(msg))
		}
	case <-time.After(time.Second):
		t.Error("client did not receive message")
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub("combat-1", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	client := NewClient("test")
	hub.Register(client)
	hub.Unregister(client)

	waitFor(t, func() bool { return hub.ClientCount() == 0 })
	if _, ok := <-client.send; ok {
		t.Error("send channel should be closed after unregister")
	}
}

func TestHub_RegisterAfterClose(t *testing.T) {
	hub := NewHub("combat-1", testutil.NopLogger())
	go hub.Run()
	hub.Close()
	hub.Close()

	if hub.Register(NewClient("late")) {
		t.Error("Register should fail on a closed hub")
	}
	hub.Unregister(NewClient("late"))
}

func TestHubManager(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()

	if manager.GetHub("combat-1") != nil {
		t.Error("GetHub returned a hub before one was created")
	}
	hub := manager.GetOrCreateHub("combat-1")
	if manager.GetOrCreateHub("combat-1") != hub {
		t.Error("GetOrCreateHub returned a different hub for the same combat")
	}
	if manager.GetOrCreateHub("combat-2") == hub {
		t.Error("GetOrCreateHub returned the same hub for different combats")
	}

	manager.RemoveHub("combat-2")
	if manager.GetHub("combat-2") != nil {
		t.Error("hub still exists after RemoveHub")
	}
	manager.RemoveHub("missing")
}

func TestHubManager_CleanupEmptyHubs(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()

	manager.GetOrCreateHub("empty")
	active := manager.GetOrCreateHub("active")
	active.Register(NewClient("test"))
	waitFor(t, func() bool { return active.ClientCount() == 1 })

	if removed := manager.CleanupEmptyHubs(); removed != 1 {
		t.Errorf("CleanupEmptyHubs removed %d hubs, want 1", removed)
	}
	if manager.GetHub("empty") != nil {
		t.Error("empty hub still exists after cleanup")
	}
	if manager.GetHub("active") == nil {
		t.Error("active hub was removed during cleanup")
	}
}

func TestBroadcaster_Publish(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()
	broadcaster := NewBroadcaster(manager, testutil.NopLogger())

	// No hub yet: nothing to do
	broadcaster.Publish(model.Event{Type: model.EventCombatUpdated, CombatID: "combat-1"})

	hub := manager.GetOrCreateHub("combat-1")
	client := NewClient("test")
	hub.Register(client)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	broadcaster.Publish(model.Event{
		Type:     model.EventConcentration,
		CombatID: "combat-1",
		Payload:  model.ConcentrationCheckPayload{CombatantID: "c1", Name: "Cleric", Damage: 8, DC: 10},
	})

	select {
	case msg := <-client.send:
		s := string(msg)
		if !strings.HasPrefix(s, "event: concentration\n") {
			t.Errorf("unexpected event name in %q", s)
		}
		if !strings.Contains(s, `"dc":10`) || !strings.Contains(s, `"combatId":"combat-1"`) {
			t.Errorf("payload missing from %q", s)
		}
	case <-time.After(time.Second):
		t.Error("client did not receive event")
	}
}

func TestServeSSE(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeSSE(w, r, manager, "combat-1", formatSSEMessage("combat", "initial"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	transport := &http.Transport{}
	defer transport.CloseIdleConnections()
	resp, err := (&http.Client{Transport: transport}).Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		var lines []string
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read failed: %v", err)
			}
			if line == "\n" {
				return strings.Join(lines, "")
			}
			lines = append(lines, line)
		}
	}

	if ev := readEvent(); !strings.HasPrefix(ev, "event: connected") {
		t.Errorf("first event = %q", ev)
	}
	if ev := readEvent(); ev != "event: combat\ndata: initial\n" {
		t.Errorf("initial event = %q", ev)
	}

	hub := manager.GetHub("combat-1")
	waitFor(t, func() bool { return hub.ClientCount() == 1 })
	hub.BroadcastEvent("combat", "update")
	if ev := readEvent(); ev != "event: combat\ndata: update\n" {
		t.Errorf("broadcast event = %q", ev)
	}

	cancel()
	waitFor(t, func() bool { return hub.ClientCount() == 0 })
}
