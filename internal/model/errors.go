package model

import "errors"

// Common errors used across the application
var (
	// Storage errors
	ErrNotFound = errors.New("record not found")

	// Library errors
	ErrPlayerNotFound  = errors.New("player not found")
	ErrMonsterNotFound = errors.New("monster not found")
	ErrInvalidTemplate = errors.New("invalid template")

	// Combat errors
	ErrCombatNotFound      = errors.New("combat not found")
	ErrInvalidCombat       = errors.New("invalid combat")
	ErrCombatantNotFound   = errors.New("combatant not found")
	ErrParkedGroupNotFound = errors.New("parked group not found")
	ErrInvalidCombatant    = errors.New("invalid combatant")
	ErrInvalidValue        = errors.New("invalid value")

	// Dice errors
	ErrInvalidDice = errors.New("invalid dice expression")

	// Sync errors
	ErrSyncDisabled   = errors.New("cloud sync is not configured")
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrNotAuthorized  = errors.New("sync provider not authorized")
	ErrNoRemoteData   = errors.New("no remote data")
)
