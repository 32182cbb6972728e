package storage

import (
	"context"
)

// Fixed storage keys. Each collection key holds a single JSON array.
const (
	KeyCombats      = "combats"
	KeyPlayers      = "players"
	KeyMonsters     = "monsters"
	KeyLastSynced   = "lastSynced"
	KeySyncToken    = "syncToken"
	KeySyncVerifier = "syncVerifier"
)

// CollectionKeys lists the keys mirrored by cloud sync
var CollectionKeys = []string{KeyCombats, KeyPlayers, KeyMonsters}

// KV defines the string key-value store the providers are built on
type KV interface {
	// Get returns the value and whether the key exists
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
