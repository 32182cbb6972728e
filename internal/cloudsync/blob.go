package cloudsync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcoot/combattracker/internal/storage"
)

// Blob is the file stored remotely. Each collection is the verbatim local
// value, or null when the key is unset.
type Blob struct {
	Combats    *string `json:"combats"`
	Players    *string `json:"players"`
	Monsters   *string `json:"monsters"`
	LastSynced int64   `json:"lastSynced"`
}

func (b *Blob) field(key string) **string {
	switch key {
	case storage.KeyCombats:
		return &b.Combats
	case storage.KeyPlayers:
		return &b.Players
	case storage.KeyMonsters:
		return &b.Monsters
	}
	return nil
}

// readLocal snapshots the collection keys
func readLocal(ctx context.Context, kv storage.KV) (Blob, error) {
	var blob Blob
	for _, key := range storage.CollectionKeys {
		value, ok, err := kv.Get(ctx, key)
		if err != nil {
			return Blob{}, fmt.Errorf("read %s: %w", key, err)
		}
		if ok {
			*blob.field(key) = &value
		}
	}
	return blob, nil
}

// writeLocal replaces the collection keys with the blob's values
func writeLocal(ctx context.Context, kv storage.KV, blob Blob) error {
	for _, key := range storage.CollectionKeys {
		value := *blob.field(key)
		if value == nil {
			if err := kv.Delete(ctx, key); err != nil {
				return fmt.Errorf("delete %s: %w", key, err)
			}
			continue
		}
		if err := kv.Set(ctx, key, *value); err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
	}
	return nil
}

func decodeBlob(data []byte) (Blob, error) {
	var blob Blob
	if err := json.Unmarshal(data, &blob); err != nil {
		return Blob{}, fmt.Errorf("decode remote file: %w", err)
	}
	return blob, nil
}
