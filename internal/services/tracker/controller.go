// Package tracker runs encounters: every change loads the stored combat,
// expands template references, applies a reducer, compacts the result and
// stores it, then publishes the new snapshot to live subscribers.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mcoot/combattracker/internal/combat"
	"github.com/mcoot/combattracker/internal/dependencies/clock"
	"github.com/mcoot/combattracker/internal/dependencies/random"
	"github.com/mcoot/combattracker/internal/model"
	"github.com/mcoot/combattracker/internal/services/library"
	"github.com/mcoot/combattracker/internal/storage"
	"github.com/mcoot/combattracker/internal/template"
)

// Publisher receives combat events
type Publisher interface {
	Publish(event model.Event)
}

// Controller manages saved combats and their turn order
type Controller struct {
	combats   *storage.Combats
	library   *library.Service
	publisher Publisher
	clock     clock.Clock
	random    random.Random
	logger    *slog.Logger

	// Orders mutations so published snapshots follow storage order
	mu sync.Mutex
}

// NewController creates a new tracker Controller
func NewController(
	providers *storage.Providers,
	library *library.Service,
	publisher Publisher,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		combats:   providers.Combats,
		library:   library,
		publisher: publisher,
		clock:     clock,
		random:    random,
		logger:    logger.With(slog.String("service", "tracker")),
	}
}

// List returns every saved combat with template references expanded
func (c *Controller) List(ctx context.Context) ([]model.SavedCombat, error) {
	stored, err := c.combats.List(ctx)
	if err != nil {
		return nil, err
	}
	lib, err := c.library.Library(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.SavedCombat, len(stored))
	for i := range stored {
		out[i] = template.Restore(stored[i], lib, c.logger)
	}
	return out, nil
}

// Get returns one combat with template references expanded
func (c *Controller) Get(ctx context.Context, id string) (*model.SavedCombat, error) {
	stored, err := c.load(ctx, id)
	if err != nil {
		return nil, err
	}
	lib, err := c.library.Library(ctx)
	if err != nil {
		return nil, err
	}
	restored := template.Restore(*stored, lib, c.logger)
	return &restored, nil
}

// Create starts a new, empty encounter
func (c *Controller) Create(ctx context.Context, name, description string) (*model.SavedCombat, error) {
	saved := &model.SavedCombat{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		State:       model.NewCombatState(),
	}
	if err := saved.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	created, err := c.combats.Create(ctx, saved)
	if err != nil {
		return nil, err
	}
	c.logger.Info("combat created", slog.String("combat_id", created.ID), slog.String("name", created.Name))
	return created, nil
}

// UpdateDetails renames or re-describes a combat
func (c *Controller) UpdateDetails(ctx context.Context, id, name, description string) (*model.SavedCombat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", model.ErrInvalidCombat)
	}
	return c.mutateCombat(ctx, id, func(saved *model.SavedCombat) error {
		saved.Name = name
		saved.Description = strings.TrimSpace(description)
		return nil
	})
}

// Delete removes a combat
func (c *Controller) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.combats.Delete(ctx, id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrCombatNotFound
		}
		return err
	}
	c.logger.Info("combat deleted", slog.String("combat_id", id))
	c.publish(model.EventCombatDeleted, id, nil)
	return nil
}

// AddCombatant adds a draft to the turn order. A draft that only names a
// library entry is filled in from the library first.
func (c *Controller) AddCombatant(ctx context.Context, id string, draft model.NewCombatant) (*model.SavedCombat, []model.Combatant, error) {
	draft, err := c.resolveDraft(ctx, draft)
	if err != nil {
		return nil, nil, err
	}
	var added []model.Combatant
	saved, err := c.mutate(ctx, id, func(state model.CombatState) (model.CombatState, error) {
		next, a, err := combat.Add(state, draft, c.random)
		added = a
		return next, err
	})
	if err != nil {
		return nil, nil, err
	}
	return saved, added, nil
}

// RemoveCombatant takes a combatant out of the encounter
func (c *Controller) RemoveCombatant(ctx context.Context, id, combatantID string) (*model.SavedCombat, error) {
	return c.mutate(ctx, id, func(state model.CombatState) (model.CombatState, error) {
		return combat.Remove(state, combatantID)
	})
}

// ApplyHPDelta damages or heals a combatant. Damage to a concentrating
// combatant also publishes a concentration check.
func (c *Controller) ApplyHPDelta(ctx context.Context, id, combatantID string, delta int) (*model.SavedCombat, combat.HPChange, error) {
	var change combat.HPChange
	saved, err := c.mutate(ctx, id, func(state model.CombatState) (model.CombatState, error) {
		next, ch, err := combat.ApplyHPDelta(state, combatantID, delta)
		change = ch
		return next, err
	})
	if err != nil {
		return nil, combat.HPChange{}, err
	}
	if change.ConcentrationCheck {
		name := ""
		if idx := saved.State.IndexOf(combatantID); idx >= 0 {
			name = saved.State.Combatants[idx].DisplayName()
		}
		c.publish(model.EventConcentration, id, model.ConcentrationCheckPayload{
			CombatantID: combatantID,
			Name:        name,
			Damage:      change.Damage,
			DC:          change.DC,
		})
	}
	return saved, change, nil
}

// SetHP sets a combatant's current HP
func (c *Controller) SetHP(ctx context.Context, id, combatantID string, hp int) (*model.SavedCombat, error) {
	return c.mutate(ctx, id, func(state model.CombatState) (model.CombatState, error) {
		return combat.SetHP(state, combatantID, hp)
	})
}

// SetTempHP sets a combatant's temporary HP
func (c *Controller) SetTempHP(ctx context.Context, id, combatantID string, tempHP int) (*model.SavedCombat, error) {
	return c.mutate(ctx, id, func(state model.CombatState) (model.CombatState, error) {
		return combat.SetTempHP(state, combatantID, tempHP)
	})
}

// SetMaxHP sets a combatant's maximum HP
func (c *Controller) SetMaxHP(ctx context.Context, id, combatantID string, maxHP int) (*model.SavedCombat, error) {
	return c.mutate(ctx, id, func(state model.CombatState) (model.CombatState, error) {
		return combat.SetMaxHP(state, combatantID, maxHP)
	})
}

// ToggleCondition adds or removes a condition
func (c *Controller) ToggleCondition(ctx context.Context, id, combatantID, condition string) (*model.SavedCombat, error) {
	return c.mutate(ctx, id, func(state model.CombatState) (model.CombatState, error) {
		return combat.ToggleCondition(state, combatantID, condition)
	})
}

// SetDeathSaves records death saving throws
func (c *Controller) SetDeathSaves(ctx context.Context, id, combatantID string, successes, failures int) (*model.SavedCombat, error) {
	return c.mutate(ctx, id, func(state model.CombatState) (model.CombatState, error) {
		return combat.SetDeathSaves(state, combatantID, successes, failures)
	})
}

// ToggleConcentration flips a combatant's concentration
func (c *Controller) ToggleConcentration(ctx context.Context, id, combatantID string) (*model.SavedCombat, error) {
	return c.mutate(ctx, id, func(state model.CombatState) (model.CombatState, error) {
		return combat.ToggleConcentration(state, combatantID)
	})
}

// SetInitiative changes a combatant's initiative
func (c *Controller) SetInitiative(ctx context.Context, id, combatantID string, initiative int) (*model.SavedCombat, error) {
	return c.mutate(ctx, id, func(state model.CombatState) (model.CombatState, error) {
		return combat.SetInitiative(state, combatantID, initiative)
	})
}

// NextTurn advances to the next combatant
func (c *Controller) NextTurn(ctx context.Context, id string) (*model.SavedCombat, error) {
	return c.mutate(ctx, id, func(state model.CombatState) (model.CombatState, error) {
		return combat.NextTurn(state), nil
	})
}

// PrevTurn goes back one combatant
func (c *Controller) PrevTurn(ctx context.Context, id string) (*model.SavedCombat, error) {
	return c.mutate(ctx, id, func(state model.CombatState) (model.CombatState, error) {
		return combat.PrevTurn(state), nil
	})
}

// Reset restarts the encounter
func (c *Controller) Reset(ctx context.Context, id string) (*model.SavedCombat, error) {
	return c.mutate(ctx, id, func(state model.CombatState) (model.CombatState, error) {
		return combat.Reset(state), nil
	})
}

// Park holds a draft back for later
func (c *Controller) Park(ctx context.Context, id string, draft model.NewCombatant) (*model.SavedCombat, model.ParkedGroup, error) {
	draft, err := c.resolveDraft(ctx, draft)
	if err != nil {
		return nil, model.ParkedGroup{}, err
	}
	var group model.ParkedGroup
	saved, err := c.mutate(ctx, id, func(state model.CombatState) (model.CombatState, error) {
		next, g, err := combat.Park(state, draft, c.random)
		group = g
		return next, err
	})
	if err != nil {
		return nil, model.ParkedGroup{}, err
	}
	return saved, group, nil
}

// Unpark adds a parked group to the turn order
func (c *Controller) Unpark(ctx context.Context, id, groupID string) (*model.SavedCombat, []model.Combatant, error) {
	var added []model.Combatant
	saved, err := c.mutate(ctx, id, func(state model.CombatState) (model.CombatState, error) {
		next, a, err := combat.Unpark(state, groupID, c.random)
		added = a
		return next, err
	})
	if err != nil {
		return nil, nil, err
	}
	return saved, added, nil
}

// DiscardParked deletes a parked group
func (c *Controller) DiscardParked(ctx context.Context, id, groupID string) (*model.SavedCombat, error) {
	return c.mutate(ctx, id, func(state model.CombatState) (model.CombatState, error) {
		return combat.DiscardParked(state, groupID)
	})
}

// mutate applies a reducer to a combat's state
func (c *Controller) mutate(ctx context.Context, id string, fn func(model.CombatState) (model.CombatState, error)) (*model.SavedCombat, error) {
	return c.mutateCombat(ctx, id, func(saved *model.SavedCombat) error {
		next, err := fn(saved.State)
		if err != nil {
			return err
		}
		saved.State = next
		return nil
	})
}

// mutateCombat is the load, restore, change, optimize, save, publish cycle
func (c *Controller) mutateCombat(ctx context.Context, id string, fn func(*model.SavedCombat) error) (*model.SavedCombat, error) {
	lib, err := c.library.Library(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var restored model.SavedCombat
	found := false
	updated, err := c.combats.Modify(ctx, id, func(stored *model.SavedCombat) error {
		found = true
		restored = template.Restore(*stored, lib, c.logger)
		if err := fn(&restored); err != nil {
			return err
		}
		*stored = template.Optimize(restored)
		return nil
	})
	if err != nil {
		if !found && errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrCombatNotFound
		}
		return nil, err
	}
	restored.Meta = updated.Meta

	c.publish(model.EventCombatUpdated, id, restored)
	return &restored, nil
}

func (c *Controller) load(ctx context.Context, id string) (*model.SavedCombat, error) {
	stored, err := c.combats.Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrCombatNotFound
		}
		return nil, err
	}
	return stored, nil
}

// resolveDraft fills a template-only draft from the library, keeping the
// choices made on the draft itself
func (c *Controller) resolveDraft(ctx context.Context, draft model.NewCombatant) (model.NewCombatant, error) {
	if !draft.TemplateOrigin.IsTemplate() || strings.TrimSpace(draft.Name) != "" {
		return draft, nil
	}
	full, err := c.library.Draft(ctx, draft.TemplateOrigin, draft.Quantity)
	if err != nil {
		return model.NewCombatant{}, err
	}
	full.Initiative = draft.Initiative
	full.RollInitiative = draft.RollInitiative
	full.RollHP = draft.RollHP
	if draft.IdentifierType != "" {
		full.IdentifierType = draft.IdentifierType
	}
	return full, nil
}

func (c *Controller) publish(eventType model.EventType, combatID string, payload any) {
	if c.publisher == nil {
		return
	}
	c.publisher.Publish(model.Event{
		Type:      eventType,
		Timestamp: c.clock.Now(),
		CombatID:  combatID,
		Payload:   payload,
	})
}
