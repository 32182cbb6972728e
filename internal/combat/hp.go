package combat

import (
	"fmt"
	"slices"

	"github.com/mcoot/combattracker/internal/model"
)

// MinConcentrationDC is the floor of a concentration saving throw
const MinConcentrationDC = 10

// HPChange describes the effect of an HP delta
type HPChange struct {
	Damage             int // Total damage dealt, including to temp HP
	ConcentrationCheck bool
	DC                 int
}

// ConcentrationDC returns the save DC for taking damage while concentrating
func ConcentrationDC(damage int) int {
	return max(MinConcentrationDC, damage/2)
}

// ApplyHPDelta heals (positive) or damages (negative) a combatant.
// Damage consumes temp HP first. HP stays within [0, maxHp].
func ApplyHPDelta(state model.CombatState, id string, delta int) (model.CombatState, HPChange, error) {
	var change HPChange
	next, err := update(state, id, func(c *model.Combatant) error {
		if delta < 0 {
			damage := -delta
			absorbed := min(c.TempHP, damage)
			c.TempHP -= absorbed
			setHP(c, c.HP-(damage-absorbed))
			change.Damage = damage
			if c.Concentrating {
				change.ConcentrationCheck = true
				change.DC = ConcentrationDC(damage)
			}
			return nil
		}
		setHP(c, c.HP+delta)
		return nil
	})
	if err != nil {
		return state, HPChange{}, err
	}
	return next, change, nil
}

// SetHP sets current HP directly, clamped to [0, maxHp]
func SetHP(state model.CombatState, id string, hp int) (model.CombatState, error) {
	return update(state, id, func(c *model.Combatant) error {
		setHP(c, hp)
		return nil
	})
}

// SetTempHP replaces temporary HP
func SetTempHP(state model.CombatState, id string, tempHP int) (model.CombatState, error) {
	if tempHP < 0 {
		return state, fmt.Errorf("%w: temp HP cannot be negative", model.ErrInvalidValue)
	}
	return update(state, id, func(c *model.Combatant) error {
		c.TempHP = tempHP
		return nil
	})
}

// SetMaxHP changes max HP and pulls current HP down if needed
func SetMaxHP(state model.CombatState, id string, maxHP int) (model.CombatState, error) {
	if maxHP < 1 {
		return state, fmt.Errorf("%w: max HP must be at least 1", model.ErrInvalidValue)
	}
	return update(state, id, func(c *model.Combatant) error {
		c.MaxHP = maxHP
		setHP(c, c.HP)
		return nil
	})
}

// ToggleCondition adds the condition if absent, removes it otherwise
func ToggleCondition(state model.CombatState, id, condition string) (model.CombatState, error) {
	name := model.NormalizeCondition(condition)
	if name == "" {
		return state, fmt.Errorf("%w: condition is required", model.ErrInvalidValue)
	}
	return update(state, id, func(c *model.Combatant) error {
		if i := slices.Index(c.Conditions, name); i >= 0 {
			c.Conditions = slices.Delete(c.Conditions, i, i+1)
			return nil
		}
		c.Conditions = append(c.Conditions, name)
		slices.Sort(c.Conditions)
		return nil
	})
}

// SetDeathSaves sets both counters, each clamped to [0, 3]
func SetDeathSaves(state model.CombatState, id string, successes, failures int) (model.CombatState, error) {
	return update(state, id, func(c *model.Combatant) error {
		c.DeathSaves = model.DeathSaves{
			Successes: clamp(successes, 0, model.MaxDeathSaves),
			Failures:  clamp(failures, 0, model.MaxDeathSaves),
		}
		return nil
	})
}

// ToggleConcentration flips the concentration flag
func ToggleConcentration(state model.CombatState, id string) (model.CombatState, error) {
	return update(state, id, func(c *model.Combatant) error {
		c.Concentrating = !c.Concentrating
		return nil
	})
}

// setHP clamps and clears death saves once the combatant is back above 0
func setHP(c *model.Combatant, hp int) {
	c.HP = clamp(hp, 0, c.MaxHP)
	if c.HP > 0 {
		c.DeathSaves = model.DeathSaves{}
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
