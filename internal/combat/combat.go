// Package combat holds the pure state transitions of an encounter.
// Every function takes a CombatState by value and returns a new one;
// the input is never mutated.
package combat

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/mcoot/combattracker/internal/model"
)

// Sort orders combatants by initiative (highest first), then name, then
// group index. The combatant whose turn it was stays active.
func Sort(state model.CombatState) model.CombatState {
	next := state.Clone()
	activeID := ""
	if active := next.Active(); active != nil {
		activeID = active.ID
	}

	slices.SortStableFunc(next.Combatants, compareCombatants)

	if activeID != "" {
		next.CurrentTurn = next.IndexOf(activeID)
	}
	return clampTurn(next)
}

func compareCombatants(a, b model.Combatant) int {
	if c := cmp.Compare(b.Initiative, a.Initiative); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return cmp.Compare(a.GroupIndex, b.GroupIndex)
}

// NextTurn advances the turn pointer, starting a new round after the last combatant
func NextTurn(state model.CombatState) model.CombatState {
	next := state.Clone()
	if len(next.Combatants) == 0 {
		return next
	}
	next.CurrentTurn++
	if next.CurrentTurn >= len(next.Combatants) {
		next.CurrentTurn = 0
		next.Round++
	}
	return next
}

// PrevTurn moves the turn pointer back. It never goes before round 1, turn 0.
func PrevTurn(state model.CombatState) model.CombatState {
	next := state.Clone()
	if len(next.Combatants) == 0 {
		return next
	}
	if next.CurrentTurn > 0 {
		next.CurrentTurn--
		return next
	}
	if next.Round <= 1 {
		return next
	}
	next.CurrentTurn = len(next.Combatants) - 1
	next.Round--
	return next
}

// Reset starts the encounter over: round 1, everyone at full HP with no
// conditions, death saves or concentration. Parked groups are kept.
func Reset(state model.CombatState) model.CombatState {
	next := state.Clone()
	next.Round = 1
	next.CurrentTurn = 0
	for i := range next.Combatants {
		c := &next.Combatants[i]
		c.HP = c.MaxHP
		c.TempHP = 0
		c.Conditions = []string{}
		c.DeathSaves = model.DeathSaves{}
		c.Concentrating = false
	}
	return next
}

// update applies fn to one combatant of a copy of state
func update(state model.CombatState, id string, fn func(c *model.Combatant) error) (model.CombatState, error) {
	next := state.Clone()
	idx := next.IndexOf(id)
	if idx < 0 {
		return state, fmt.Errorf("%w: %s", model.ErrCombatantNotFound, id)
	}
	if err := fn(&next.Combatants[idx]); err != nil {
		return state, err
	}
	return next, nil
}

func clampTurn(state model.CombatState) model.CombatState {
	if state.CurrentTurn < 0 || state.CurrentTurn >= len(state.Combatants) {
		state.CurrentTurn = 0
	}
	return state
}
