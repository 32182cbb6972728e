package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/combattracker/internal/model"
)

func newEventsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "events <combat-id>",
		Short: "Stream live updates for a combat",
		Long: `Connect to the combat's event stream and print updates as they happen.

Events include:
  - combat: The turn order changed (the current state is sent on connect)
  - concentration: A concentrating combatant took damage
  - combat_deleted: The combat was deleted

Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return streamEvents(cmd, args[0], jsonOutput || cfg.Output == "json")
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

// SSEEvent is one parsed server-sent event
type SSEEvent struct {
	Time  time.Time `json:"time"`
	Event string    `json:"event"`
	Data  string    `json:"data"`
}

func streamEvents(cmd *cobra.Command, combatID string, jsonOutput bool) error {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	body, err := client.Stream(ctx, apiPath("combats", combatID, "events"))
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	if !jsonOutput {
		fmt.Fprintf(w, "Connected to combat %s\n", combatID)
	}

	err = readEvents(body, func(evt SSEEvent) bool {
		printEvent(w, evt, jsonOutput)
		return evt.Event != string(model.EventCombatDeleted)
	})
	if err != nil && !errors.Is(err, context.Canceled) && ctx.Err() == nil {
		return fmt.Errorf("stream error: %w", err)
	}

	if !jsonOutput {
		fmt.Fprintln(w, "Disconnected")
	}
	return nil
}

// readEvents parses an SSE stream, calling fn for each complete event until
// fn returns false or the stream ends
func readEvents(r io.Reader, fn func(SSEEvent) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var currentEvent string
	var dataLines []string

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, ":"):
			// Comment or keepalive
		case strings.HasPrefix(line, "event: "):
			currentEvent = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		case line == "":
			if currentEvent != "" {
				evt := SSEEvent{Time: time.Now(), Event: currentEvent, Data: strings.Join(dataLines, "\n")}
				if !fn(evt) {
					return nil
				}
			}
			currentEvent = ""
			dataLines = nil
		}
	}
	return scanner.Err()
}

func printEvent(w io.Writer, evt SSEEvent, jsonOutput bool) {
	if jsonOutput {
		data, _ := json.Marshal(evt)
		fmt.Fprintln(w, string(data))
		return
	}

	timestamp := evt.Time.Format("15:04:05")
	fmt.Fprintf(w, "[%s] %s: %s\n", timestamp, evt.Event, describeEvent(evt))
}

// describeEvent summarises an event's payload on one line
func describeEvent(evt SSEEvent) string {
	var raw struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal([]byte(evt.Data), &raw); err != nil {
		return truncate(evt.Data)
	}

	switch model.EventType(evt.Event) {
	case model.EventCombatUpdated:
		var c model.SavedCombat
		if err := json.Unmarshal(raw.Payload, &c); err != nil {
			return truncate(evt.Data)
		}
		active := "-"
		if a := c.State.Active(); a != nil {
			active = a.DisplayName()
		}
		return fmt.Sprintf("round %d, %s's turn, %d combatants", c.State.Round, active, len(c.State.Combatants))
	case model.EventConcentration:
		var p model.ConcentrationCheckPayload
		if err := json.Unmarshal(raw.Payload, &p); err != nil {
			return truncate(evt.Data)
		}
		return fmt.Sprintf("%s took %d damage, concentration DC %d", p.Name, p.Damage, p.DC)
	case model.EventCombatDeleted:
		return "combat deleted"
	}
	return truncate(evt.Data)
}

func truncate(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 100 {
		return s[:100] + "..."
	}
	return s
}
