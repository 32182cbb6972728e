package storage

import (
	"log/slog"

	"github.com/mcoot/combattracker/internal/dependencies/clock"
	"github.com/mcoot/combattracker/internal/dependencies/random"
	"github.com/mcoot/combattracker/internal/model"
)

// Per-entity providers
type (
	Combats  = Collection[model.SavedCombat, *model.SavedCombat]
	Players  = Collection[model.SavedPlayer, *model.SavedPlayer]
	Monsters = Collection[model.SavedMonster, *model.SavedMonster]
)

// Providers groups the three collections over a shared key-value store
type Providers struct {
	KV       KV
	Locks    *KeyLocks
	Combats  *Combats
	Players  *Players
	Monsters *Monsters
}

// NewProviders creates the combat, player and monster providers
func NewProviders(kv KV, clk clock.Clock, rnd random.Random, logger *slog.Logger) *Providers {
	locks := NewKeyLocks()
	return &Providers{
		KV:       kv,
		Locks:    locks,
		Combats:  NewCollection[model.SavedCombat](kv, locks, KeyCombats, clk, rnd, logger),
		Players:  NewCollection[model.SavedPlayer](kv, locks, KeyPlayers, clk, rnd, logger),
		Monsters: NewCollection[model.SavedMonster](kv, locks, KeyMonsters, clk, rnd, logger),
	}
}
