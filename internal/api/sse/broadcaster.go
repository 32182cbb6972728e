package sse

import (
	"encoding/json"
	"log/slog"

	"github.com/mcoot/combattracker/internal/model"
)

// Broadcaster publishes tracker events to the hub of the affected combat
type Broadcaster struct {
	hubManager *HubManager
	logger     *slog.Logger
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hubManager *HubManager, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hubManager: hubManager,
		logger:     logger.With(slog.String("component", "sse-broadcaster")),
	}
}

// Publish sends the event to everyone watching its combat
func (b *Broadcaster) Publish(event model.Event) {
	hub := b.hubManager.GetHub(event.CombatID)
	if hub == nil {
		return
	}
	msg, err := EncodeEvent(event)
	if err != nil {
		b.logger.Error("sse failed to encode event",
			slog.String("combat_id", event.CombatID),
			slog.String("type", string(event.Type)),
			slog.Any("error", err))
		return
	}
	hub.Broadcast(msg)
}

// EncodeEvent frames an event as an SSE message named after its type
func EncodeEvent(event model.Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return formatSSEMessage(string(event.Type), string(data)), nil
}
