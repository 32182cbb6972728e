package model

import (
	"fmt"
	"strings"
)

// OriginType says where a combatant's stat block comes from
type OriginType string

const (
	OriginNone    OriginType = "no_template" // Full stats carried inline
	OriginPlayer  OriginType = "player"      // References a SavedPlayer
	OriginMonster OriginType = "monster"     // References a SavedMonster
)

// TemplateOrigin points a combatant at the library entry it was created from
type TemplateOrigin struct {
	OriginType OriginType `json:"originType"`
	OriginID   string     `json:"originId,omitempty"`
}

// NoTemplate returns the origin for combatants entered by hand
func NoTemplate() TemplateOrigin {
	return TemplateOrigin{OriginType: OriginNone}
}

// IsTemplate reports whether the origin references a library entry.
// The zero value counts as no_template.
func (o TemplateOrigin) IsTemplate() bool {
	return (o.OriginType == OriginPlayer || o.OriginType == OriginMonster) && o.OriginID != ""
}

// IdentifierType selects how members of a group are labelled
type IdentifierType string

const (
	IdentifierLetter IdentifierType = "letter" // Goblin A, Goblin B, ...
	IdentifierNumber IdentifierType = "number" // Goblin 1, Goblin 2, ...
)

// DeathSaves tracks death saving throws, each counter in [0, 3]
type DeathSaves struct {
	Successes int `json:"successes"`
	Failures  int `json:"failures"`
}

// MaxDeathSaves is the cap on either death save counter
const MaxDeathSaves = 3

// Combatant is a participant in the turn order
type Combatant struct {
	ID              string         `json:"id"`
	Name            string         `json:"name,omitempty"`
	Identifier      string         `json:"identifier,omitempty"`
	GroupIndex      int            `json:"groupIndex,omitempty"`
	Initiative      int            `json:"initiative"`
	InitiativeBonus int            `json:"initiativeBonus,omitempty"`
	HP              int            `json:"hp"`
	MaxHP           int            `json:"maxHp"`
	TempHP          int            `json:"tempHp,omitempty"`
	AC              *int           `json:"ac,omitempty"` // nil only in optimized records
	Conditions      []string       `json:"conditions"`
	DeathSaves      DeathSaves     `json:"deathSaves"`
	Concentrating   bool           `json:"concentrating,omitempty"`
	IsPlayer        bool           `json:"isPlayer,omitempty"`
	Notes           string         `json:"notes,omitempty"`
	TemplateOrigin  TemplateOrigin `json:"templateOrigin"`
}

// DisplayName returns the name with the group identifier appended
func (c *Combatant) DisplayName() string {
	if c.Identifier == "" {
		return c.Name
	}
	return fmt.Sprintf("%s %s", c.Name, c.Identifier)
}

// ArmorClass returns the AC, or 0 when the record is a bare template reference
func (c *Combatant) ArmorClass() int {
	if c.AC == nil {
		return 0
	}
	return *c.AC
}

// HasCondition reports whether the combatant has the named condition
func (c *Combatant) HasCondition(name string) bool {
	name = NormalizeCondition(name)
	for _, cond := range c.Conditions {
		if cond == name {
			return true
		}
	}
	return false
}

// IsDown returns true at 0 HP
func (c *Combatant) IsDown() bool {
	return c.HP <= 0
}

// Clone returns a deep copy
func (c Combatant) Clone() Combatant {
	out := c
	if c.AC != nil {
		ac := *c.AC
		out.AC = &ac
	}
	out.Conditions = append([]string(nil), c.Conditions...)
	if out.Conditions == nil {
		out.Conditions = []string{}
	}
	return out
}

// NormalizeCondition trims and lower-cases a condition name
func NormalizeCondition(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IntPtr is a helper for optional integer fields
func IntPtr(v int) *int {
	return &v
}

// MaxQuantity caps how many combatants one draft can add
const MaxQuantity = 100

// NewCombatant is the draft submitted to add one or more combatants
type NewCombatant struct {
	Name            string         `json:"name,omitempty"`
	Quantity        int            `json:"quantity"`
	Initiative      int            `json:"initiative"`
	InitiativeBonus int            `json:"initiativeBonus,omitempty"`
	RollInitiative  bool           `json:"rollInitiative,omitempty"`
	HP              int            `json:"hp,omitempty"`
	MaxHP           int            `json:"maxHp,omitempty"`
	HPFormula       string         `json:"hpFormula,omitempty"`
	RollHP          bool           `json:"rollHp,omitempty"`
	AC              *int           `json:"ac,omitempty"`
	Notes           string         `json:"notes,omitempty"`
	IsPlayer        bool           `json:"isPlayer,omitempty"`
	IdentifierType  IdentifierType `json:"identifierType,omitempty"`
	TemplateOrigin  TemplateOrigin `json:"templateOrigin"`
}

// Validate checks a draft before it is expanded into combatants
func (n *NewCombatant) Validate() error {
	if strings.TrimSpace(n.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCombatant)
	}
	if n.Quantity < 1 || n.Quantity > MaxQuantity {
		return fmt.Errorf("%w: quantity must be between 1 and %d", ErrInvalidCombatant, MaxQuantity)
	}
	if n.MaxHP < 1 && !(n.RollHP && n.HPFormula != "") {
		return fmt.Errorf("%w: max HP must be at least 1", ErrInvalidCombatant)
	}
	if n.HP < 0 {
		return fmt.Errorf("%w: HP cannot be negative", ErrInvalidCombatant)
	}
	if n.AC != nil && *n.AC < 0 {
		return fmt.Errorf("%w: AC cannot be negative", ErrInvalidCombatant)
	}
	switch n.IdentifierType {
	case "", IdentifierLetter, IdentifierNumber:
	default:
		return fmt.Errorf("%w: unknown identifier type %q", ErrInvalidCombatant, n.IdentifierType)
	}
	return nil
}

// ParkedGroup is a draft held back from the encounter until activated
type ParkedGroup struct {
	ID string `json:"id"`
	NewCombatant
}
