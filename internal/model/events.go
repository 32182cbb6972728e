package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	EventCombatUpdated EventType = "combat"         // Any change to the turn order
	EventCombatDeleted EventType = "combat_deleted" // Encounter removed
	EventConcentration EventType = "concentration"  // Concentrating combatant took damage
)

// Event is published to subscribers of a combat
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	CombatID  string    `json:"combatId"`
	Payload   any       `json:"payload,omitempty"` // Type-specific data
}

// ConcentrationCheckPayload asks the table for a concentration save
type ConcentrationCheckPayload struct {
	CombatantID string `json:"combatantId"`
	Name        string `json:"name"`
	Damage      int    `json:"damage"`
	DC          int    `json:"dc"`
}
