package model

import (
	"fmt"
	"strings"
)

// Meta is the identity and bookkeeping shared by every stored record.
// Timestamps are epoch milliseconds.
type Meta struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Metadata exposes the embedded Meta to the storage providers
func (m *Meta) Metadata() *Meta {
	return m
}

// SavedPlayer is a player character in the library
type SavedPlayer struct {
	Meta
	Name            string `json:"name"`
	MaxHP           int    `json:"maxHp"`
	AC              int    `json:"ac"`
	InitiativeBonus int    `json:"initiativeBonus"`
	Notes           string `json:"notes,omitempty"`
}

// Validate checks the player's stat block
func (p *SavedPlayer) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidTemplate)
	}
	if p.MaxHP < 1 {
		return fmt.Errorf("%w: max HP must be at least 1", ErrInvalidTemplate)
	}
	if p.AC < 0 {
		return fmt.Errorf("%w: AC cannot be negative", ErrInvalidTemplate)
	}
	return nil
}

// SavedMonster is a monster stat block in the library
type SavedMonster struct {
	Meta
	Name            string `json:"name"`
	MaxHP           int    `json:"maxHp"`
	HPFormula       string `json:"hpFormula,omitempty"` // Dice notation, e.g. 2d6+2
	AC              int    `json:"ac"`
	InitiativeBonus int    `json:"initiativeBonus"`
	ChallengeRating string `json:"challengeRating,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// Validate checks the monster's stat block
func (m *SavedMonster) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidTemplate)
	}
	if m.MaxHP < 1 {
		return fmt.Errorf("%w: max HP must be at least 1", ErrInvalidTemplate)
	}
	if m.AC < 0 {
		return fmt.Errorf("%w: AC cannot be negative", ErrInvalidTemplate)
	}
	return nil
}

// Draft builds a combatant draft from a player template
func (p *SavedPlayer) Draft() NewCombatant {
	return NewCombatant{
		Name:            p.Name,
		Quantity:        1,
		InitiativeBonus: p.InitiativeBonus,
		HP:              p.MaxHP,
		MaxHP:           p.MaxHP,
		AC:              IntPtr(p.AC),
		Notes:           p.Notes,
		IsPlayer:        true,
		TemplateOrigin:  TemplateOrigin{OriginType: OriginPlayer, OriginID: p.ID},
	}
}

// Draft builds a combatant draft from a monster template
func (m *SavedMonster) Draft(quantity int) NewCombatant {
	return NewCombatant{
		Name:            m.Name,
		Quantity:        quantity,
		InitiativeBonus: m.InitiativeBonus,
		HP:              m.MaxHP,
		MaxHP:           m.MaxHP,
		HPFormula:       m.HPFormula,
		AC:              IntPtr(m.AC),
		Notes:           m.Notes,
		IdentifierType:  IdentifierLetter,
		TemplateOrigin:  TemplateOrigin{OriginType: OriginMonster, OriginID: m.ID},
	}
}
