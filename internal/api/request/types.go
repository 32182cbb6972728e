package request

import (
	"github.com/mcoot/combattracker/internal/model"
)

// PlayerRequest is the request body for creating or updating a player template
type PlayerRequest struct {
	Name            string `json:"name"`
	MaxHP           int    `json:"maxHp"`
	AC              int    `json:"ac"`
	InitiativeBonus int    `json:"initiativeBonus"`
	Notes           string `json:"notes"`
}

// ToModel converts the request into a player template
func (r PlayerRequest) ToModel() model.SavedPlayer {
	return model.SavedPlayer{
		Name:            r.Name,
		MaxHP:           r.MaxHP,
		AC:              r.AC,
		InitiativeBonus: r.InitiativeBonus,
		Notes:           r.Notes,
	}
}

// MonsterRequest is the request body for creating or updating a monster template
type MonsterRequest struct {
	Name            string `json:"name"`
	MaxHP           int    `json:"maxHp"`
	HPFormula       string `json:"hpFormula"`
	AC              int    `json:"ac"`
	InitiativeBonus int    `json:"initiativeBonus"`
	ChallengeRating string `json:"challengeRating"`
	Notes           string `json:"notes"`
}

// ToModel converts the request into a monster template
func (r MonsterRequest) ToModel() model.SavedMonster {
	return model.SavedMonster{
		Name:            r.Name,
		MaxHP:           r.MaxHP,
		HPFormula:       r.HPFormula,
		AC:              r.AC,
		InitiativeBonus: r.InitiativeBonus,
		ChallengeRating: r.ChallengeRating,
		Notes:           r.Notes,
	}
}

// CombatRequest is the request body for creating or renaming a combat
type CombatRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CombatantRequest is a combatant draft. Quantity defaults to one.
type CombatantRequest = model.NewCombatant

// HPRequest either applies a delta or sets HP outright
type HPRequest struct {
	Delta *int `json:"delta,omitempty"`
	HP    *int `json:"hp,omitempty"`
}

// ValueRequest carries a single number (temp HP, max HP, initiative)
type ValueRequest struct {
	Value *int `json:"value"`
}

// ConditionRequest is the request body for toggling a condition
type ConditionRequest struct {
	Condition string `json:"condition"`
}

// DeathSavesRequest is the request body for setting death saves
type DeathSavesRequest struct {
	Successes int `json:"successes"`
	Failures  int `json:"failures"`
}

// AuthorizeRequest completes sync authorization
type AuthorizeRequest struct {
	Code string `json:"code"`
}

// MarkdownRequest is the request body for rendering notes
type MarkdownRequest struct {
	Text string `json:"text"`
}

// RollRequest is the request body for rolling dice
type RollRequest struct {
	Expression string `json:"expression"`
}
