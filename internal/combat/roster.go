package combat

import (
	"fmt"
	"strings"

	"github.com/mcoot/combattracker/internal/dependencies/random"
	"github.com/mcoot/combattracker/internal/dice"
	"github.com/mcoot/combattracker/internal/model"
)

// DefaultAC is used when a draft leaves armor class blank
const DefaultAC = 10

// Add expands a draft into Quantity combatants and inserts them in
// initiative order. IDs and any rolls come from rnd.
func Add(state model.CombatState, draft model.NewCombatant, rnd random.Random) (model.CombatState, []model.Combatant, error) {
	if err := draft.Validate(); err != nil {
		return state, nil, err
	}

	var formula *dice.Expression
	if draft.RollHP && draft.HPFormula != "" {
		expr, err := dice.Parse(draft.HPFormula)
		if err != nil {
			return state, nil, fmt.Errorf("%w: hp formula: %w", model.ErrInvalidCombatant, err)
		}
		formula = &expr
	}

	kind := draft.IdentifierType
	if kind == "" {
		kind = model.IdentifierLetter
	}
	name := strings.TrimSpace(draft.Name)
	highest, labelled := highestIdentifier(state.Combatants, name, kind)
	useIdentifiers := draft.Quantity > 1 || labelled

	next := state.Clone()
	added := make([]model.Combatant, 0, draft.Quantity)
	for i := 0; i < draft.Quantity; i++ {
		c := model.Combatant{
			ID:              rnd.ID(),
			Name:            name,
			Initiative:      draft.Initiative,
			InitiativeBonus: draft.InitiativeBonus,
			MaxHP:           draft.MaxHP,
			HP:              draft.HP,
			AC:              model.IntPtr(DefaultAC),
			Conditions:      []string{},
			IsPlayer:        draft.IsPlayer,
			Notes:           draft.Notes,
			TemplateOrigin:  draft.TemplateOrigin,
		}
		if draft.AC != nil {
			c.AC = model.IntPtr(*draft.AC)
		}
		if c.TemplateOrigin.OriginType == "" {
			c.TemplateOrigin = model.NoTemplate()
		}
		if useIdentifiers {
			c.GroupIndex = highest + i + 1
			c.Identifier = formatIdentifier(kind, c.GroupIndex)
		}
		if draft.RollInitiative {
			c.Initiative = dice.D20(rnd, draft.InitiativeBonus)
		}
		if formula != nil {
			c.MaxHP = max(1, formula.Roll(rnd).Total)
			c.HP = c.MaxHP
		}
		if c.HP <= 0 || c.HP > c.MaxHP {
			c.HP = c.MaxHP
		}
		added = append(added, c)
	}

	next.Combatants = append(next.Combatants, added...)
	return Sort(next), added, nil
}

// Remove takes a combatant out of the turn order. If it was active the
// turn passes to whoever followed it, wrapping into the next round like
// NextTurn.
func Remove(state model.CombatState, id string) (model.CombatState, error) {
	idx := state.IndexOf(id)
	if idx < 0 {
		return state, fmt.Errorf("%w: %s", model.ErrCombatantNotFound, id)
	}
	next := state.Clone()
	next.Combatants = append(next.Combatants[:idx], next.Combatants[idx+1:]...)
	switch {
	case idx < next.CurrentTurn:
		next.CurrentTurn--
	case idx == next.CurrentTurn && idx == len(next.Combatants) && idx > 0:
		// The active combatant was last: the turn passes to the top of a new round
		next.CurrentTurn = 0
		next.Round++
	}
	return clampTurn(next), nil
}

// SetInitiative changes a combatant's initiative and re-sorts
func SetInitiative(state model.CombatState, id string, initiative int) (model.CombatState, error) {
	next, err := update(state, id, func(c *model.Combatant) error {
		c.Initiative = initiative
		return nil
	})
	if err != nil {
		return state, err
	}
	return Sort(next), nil
}

// Park stores a draft on the combat without adding it to the turn order
func Park(state model.CombatState, draft model.NewCombatant, rnd random.Random) (model.CombatState, model.ParkedGroup, error) {
	if err := draft.Validate(); err != nil {
		return state, model.ParkedGroup{}, err
	}
	if draft.TemplateOrigin.OriginType == "" {
		draft.TemplateOrigin = model.NoTemplate()
	}
	group := model.ParkedGroup{ID: rnd.ID(), NewCombatant: draft}
	next := state.Clone()
	next.ParkedGroups = append(next.ParkedGroups, group)
	return next, group, nil
}

// Unpark adds a parked group to the encounter and drops it from the parked list
func Unpark(state model.CombatState, groupID string, rnd random.Random) (model.CombatState, []model.Combatant, error) {
	idx := state.ParkedIndexOf(groupID)
	if idx < 0 {
		return state, nil, fmt.Errorf("%w: %s", model.ErrParkedGroupNotFound, groupID)
	}
	next, added, err := Add(state, state.ParkedGroups[idx].NewCombatant, rnd)
	if err != nil {
		return state, nil, err
	}
	next.ParkedGroups = append(next.ParkedGroups[:idx], next.ParkedGroups[idx+1:]...)
	return next, added, nil
}

// DiscardParked deletes a parked group
func DiscardParked(state model.CombatState, groupID string) (model.CombatState, error) {
	idx := state.ParkedIndexOf(groupID)
	if idx < 0 {
		return state, fmt.Errorf("%w: %s", model.ErrParkedGroupNotFound, groupID)
	}
	next := state.Clone()
	next.ParkedGroups = append(next.ParkedGroups[:idx], next.ParkedGroups[idx+1:]...)
	return next, nil
}
