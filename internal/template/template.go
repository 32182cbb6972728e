// Package template compacts combats for storage and expands them on load.
//
// A combatant or parked group created from a library entry is stored as a
// reference: its template origin plus the fields that change during play.
// Everything else is read back from the library when the combat is loaded.
package template

import (
	"log/slog"

	"github.com/mcoot/combattracker/internal/model"
)

// Fallbacks for references whose library entry no longer exists
const (
	UnknownPlayerName  = "Unknown player"
	UnknownMonsterName = "Unknown monster"
	FallbackAC         = 10
)

// Library resolves template references by ID
type Library struct {
	players  map[string]model.SavedPlayer
	monsters map[string]model.SavedMonster
}

// NewLibrary indexes the player and monster lists
func NewLibrary(players []model.SavedPlayer, monsters []model.SavedMonster) *Library {
	lib := &Library{
		players:  make(map[string]model.SavedPlayer, len(players)),
		monsters: make(map[string]model.SavedMonster, len(monsters)),
	}
	for _, p := range players {
		lib.players[p.ID] = p
	}
	for _, m := range monsters {
		lib.monsters[m.ID] = m
	}
	return lib
}

// Player returns the player with the given ID
func (l *Library) Player(id string) (model.SavedPlayer, bool) {
	p, ok := l.players[id]
	return p, ok
}

// Monster returns the monster with the given ID
func (l *Library) Monster(id string) (model.SavedMonster, bool) {
	m, ok := l.monsters[id]
	return m, ok
}

// Optimize strips template-derived fields from every referenced combatant
// and parked group. The input is not modified.
func Optimize(combat model.SavedCombat) model.SavedCombat {
	out := combat
	out.State = combat.State.Clone()
	for i := range out.State.Combatants {
		out.State.Combatants[i] = optimizeCombatant(out.State.Combatants[i])
	}
	for i := range out.State.ParkedGroups {
		out.State.ParkedGroups[i] = optimizeParked(out.State.ParkedGroups[i])
	}
	return out
}

func optimizeCombatant(c model.Combatant) model.Combatant {
	if !c.TemplateOrigin.IsTemplate() {
		return c
	}
	return model.Combatant{
		ID:             c.ID,
		Identifier:     c.Identifier,
		GroupIndex:     c.GroupIndex,
		Initiative:     c.Initiative,
		HP:             c.HP,
		MaxHP:          c.MaxHP,
		TempHP:         c.TempHP,
		Conditions:     c.Conditions,
		DeathSaves:     c.DeathSaves,
		Concentrating:  c.Concentrating,
		TemplateOrigin: c.TemplateOrigin,
	}
}

func optimizeParked(g model.ParkedGroup) model.ParkedGroup {
	if !g.TemplateOrigin.IsTemplate() {
		return g
	}
	return model.ParkedGroup{
		ID: g.ID,
		NewCombatant: model.NewCombatant{
			Quantity:       g.Quantity,
			Initiative:     g.Initiative,
			RollInitiative: g.RollInitiative,
			RollHP:         g.RollHP,
			IdentifierType: g.IdentifierType,
			TemplateOrigin: g.TemplateOrigin,
		},
	}
}

// Restore expands references back into full records using lib. A reference
// to a missing library entry becomes a minimal placeholder and is logged.
func Restore(combat model.SavedCombat, lib *Library, logger *slog.Logger) model.SavedCombat {
	out := combat
	out.State = combat.State.Clone()
	for i := range out.State.Combatants {
		out.State.Combatants[i] = restoreCombatant(out.State.Combatants[i], lib, logger)
	}
	for i := range out.State.ParkedGroups {
		out.State.ParkedGroups[i] = restoreParked(out.State.ParkedGroups[i], lib, logger)
	}
	return out
}

// isReference reports whether a stored record is the compact form
func isReference(origin model.TemplateOrigin, name string) bool {
	return origin.IsTemplate() && name == ""
}

func restoreCombatant(c model.Combatant, lib *Library, logger *slog.Logger) model.Combatant {
	if !isReference(c.TemplateOrigin, c.Name) {
		return c
	}

	origin := c.TemplateOrigin
	switch origin.OriginType {
	case model.OriginPlayer:
		if p, ok := lib.Player(origin.OriginID); ok {
			c.Name = p.Name
			c.AC = model.IntPtr(p.AC)
			c.InitiativeBonus = p.InitiativeBonus
			c.Notes = p.Notes
			c.IsPlayer = true
			if c.MaxHP < 1 {
				c.MaxHP = p.MaxHP
			}
			return c
		}
		c.Name = UnknownPlayerName
		c.IsPlayer = true
	case model.OriginMonster:
		if m, ok := lib.Monster(origin.OriginID); ok {
			c.Name = m.Name
			c.AC = model.IntPtr(m.AC)
			c.InitiativeBonus = m.InitiativeBonus
			c.Notes = m.Notes
			if c.MaxHP < 1 {
				c.MaxHP = m.MaxHP
			}
			return c
		}
		c.Name = UnknownMonsterName
	}

	logger.Warn("template not found, using placeholder",
		slog.String("combatant_id", c.ID),
		slog.String("origin_type", string(origin.OriginType)),
		slog.String("origin_id", origin.OriginID),
	)
	c.AC = model.IntPtr(FallbackAC)
	c.MaxHP = max(c.MaxHP, c.HP, 1)
	return c
}

func restoreParked(g model.ParkedGroup, lib *Library, logger *slog.Logger) model.ParkedGroup {
	if !isReference(g.TemplateOrigin, g.Name) {
		return g
	}

	var full model.NewCombatant
	origin := g.TemplateOrigin
	found := false
	switch origin.OriginType {
	case model.OriginPlayer:
		if p, ok := lib.Player(origin.OriginID); ok {
			full, found = p.Draft(), true
		}
	case model.OriginMonster:
		if m, ok := lib.Monster(origin.OriginID); ok {
			full, found = m.Draft(g.Quantity), true
		}
	}

	if !found {
		logger.Warn("template not found, using placeholder",
			slog.String("parked_group_id", g.ID),
			slog.String("origin_type", string(origin.OriginType)),
			slog.String("origin_id", origin.OriginID),
		)
		full = model.NewCombatant{
			Name:     UnknownMonsterName,
			MaxHP:    1,
			HP:       1,
			AC:       model.IntPtr(FallbackAC),
			IsPlayer: origin.OriginType == model.OriginPlayer,
		}
		if full.IsPlayer {
			full.Name = UnknownPlayerName
		}
	}

	full.Quantity = max(g.Quantity, 1)
	full.Initiative = g.Initiative
	full.RollInitiative = g.RollInitiative
	full.RollHP = g.RollHP
	if g.IdentifierType != "" {
		full.IdentifierType = g.IdentifierType
	}
	full.TemplateOrigin = origin
	return model.ParkedGroup{ID: g.ID, NewCombatant: full}
}
