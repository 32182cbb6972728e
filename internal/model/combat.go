package model

import (
	"fmt"
	"strings"
)

// CombatState is the live turn order of an encounter
type CombatState struct {
	Combatants   []Combatant   `json:"combatants"`
	CurrentTurn  int           `json:"currentTurn"` // Index into Combatants
	Round        int           `json:"round"`       // Starts at 1
	ParkedGroups []ParkedGroup `json:"parkedGroups"`
}

// NewCombatState returns an empty encounter at round 1
func NewCombatState() CombatState {
	return CombatState{
		Combatants:   []Combatant{},
		CurrentTurn:  0,
		Round:        1,
		ParkedGroups: []ParkedGroup{},
	}
}

// Active returns the combatant whose turn it is, or nil for an empty combat
func (s *CombatState) Active() *Combatant {
	if s.CurrentTurn < 0 || s.CurrentTurn >= len(s.Combatants) {
		return nil
	}
	return &s.Combatants[s.CurrentTurn]
}

// IndexOf returns the position of a combatant, or -1
func (s *CombatState) IndexOf(id string) int {
	for i := range s.Combatants {
		if s.Combatants[i].ID == id {
			return i
		}
	}
	return -1
}

// ParkedIndexOf returns the position of a parked group, or -1
func (s *CombatState) ParkedIndexOf(id string) int {
	for i := range s.ParkedGroups {
		if s.ParkedGroups[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so reducers never share backing arrays
func (s CombatState) Clone() CombatState {
	out := s
	out.Combatants = make([]Combatant, len(s.Combatants))
	for i, c := range s.Combatants {
		out.Combatants[i] = c.Clone()
	}
	out.ParkedGroups = make([]ParkedGroup, len(s.ParkedGroups))
	for i, g := range s.ParkedGroups {
		out.ParkedGroups[i] = g
		if g.AC != nil {
			out.ParkedGroups[i].AC = IntPtr(*g.AC)
		}
	}
	if out.Round < 1 {
		out.Round = 1
	}
	return out
}

// SavedCombat is a named, persisted encounter
type SavedCombat struct {
	Meta
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	State       CombatState `json:"state"`
}

// Validate checks the fields a user can edit
func (c *SavedCombat) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCombat)
	}
	return nil
}
