package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mcoot/combattracker/internal/dice"
	"github.com/mcoot/combattracker/internal/model"
	"github.com/mcoot/combattracker/internal/storage"
	"github.com/mcoot/combattracker/internal/template"
)

// Service manages the player and monster library
type Service struct {
	players  *storage.Players
	monsters *storage.Monsters
	logger   *slog.Logger
}

// New creates a library service over the stored collections
func New(providers *storage.Providers, logger *slog.Logger) *Service {
	return &Service{
		players:  providers.Players,
		monsters: providers.Monsters,
		logger:   logger.With(slog.String("service", "library")),
	}
}

// ListPlayers returns every saved player
func (s *Service) ListPlayers(ctx context.Context) ([]model.SavedPlayer, error) {
	return s.players.List(ctx)
}

// GetPlayer returns a player by ID
func (s *Service) GetPlayer(ctx context.Context, id string) (*model.SavedPlayer, error) {
	p, err := s.players.Get(ctx, id)
	return p, notFound(err, model.ErrPlayerNotFound)
}

// CreatePlayer validates and stores a new player
func (s *Service) CreatePlayer(ctx context.Context, p model.SavedPlayer) (*model.SavedPlayer, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.ID = ""
	created, err := s.players.Create(ctx, &p)
	if err != nil {
		return nil, err
	}
	s.logger.Info("player created", slog.String("player_id", created.ID), slog.String("name", created.Name))
	return created, nil
}

// UpdatePlayer replaces a player's stat block
func (s *Service) UpdatePlayer(ctx context.Context, id string, p model.SavedPlayer) (*model.SavedPlayer, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.ID = id
	updated, err := s.players.Update(ctx, &p)
	return updated, notFound(err, model.ErrPlayerNotFound)
}

// DeletePlayer removes a player. Combatants referencing it fall back to a
// placeholder when their combat is next loaded.
func (s *Service) DeletePlayer(ctx context.Context, id string) error {
	if err := notFound(s.players.Delete(ctx, id), model.ErrPlayerNotFound); err != nil {
		return err
	}
	s.logger.Info("player deleted", slog.String("player_id", id))
	return nil
}

// ListMonsters returns every saved monster
func (s *Service) ListMonsters(ctx context.Context) ([]model.SavedMonster, error) {
	return s.monsters.List(ctx)
}

// GetMonster returns a monster by ID
func (s *Service) GetMonster(ctx context.Context, id string) (*model.SavedMonster, error) {
	m, err := s.monsters.Get(ctx, id)
	return m, notFound(err, model.ErrMonsterNotFound)
}

// CreateMonster validates and stores a new monster. A monster with an HP
// formula and no max HP gets the formula's average.
func (s *Service) CreateMonster(ctx context.Context, m model.SavedMonster) (*model.SavedMonster, error) {
	if err := prepareMonster(&m); err != nil {
		return nil, err
	}
	m.ID = ""
	created, err := s.monsters.Create(ctx, &m)
	if err != nil {
		return nil, err
	}
	s.logger.Info("monster created", slog.String("monster_id", created.ID), slog.String("name", created.Name))
	return created, nil
}

// UpdateMonster replaces a monster's stat block
func (s *Service) UpdateMonster(ctx context.Context, id string, m model.SavedMonster) (*model.SavedMonster, error) {
	if err := prepareMonster(&m); err != nil {
		return nil, err
	}
	m.ID = id
	updated, err := s.monsters.Update(ctx, &m)
	return updated, notFound(err, model.ErrMonsterNotFound)
}

// DeleteMonster removes a monster
func (s *Service) DeleteMonster(ctx context.Context, id string) error {
	if err := notFound(s.monsters.Delete(ctx, id), model.ErrMonsterNotFound); err != nil {
		return err
	}
	s.logger.Info("monster deleted", slog.String("monster_id", id))
	return nil
}

// Library loads both collections for template resolution
func (s *Service) Library(ctx context.Context) (*template.Library, error) {
	players, err := s.players.List(ctx)
	if err != nil {
		return nil, err
	}
	monsters, err := s.monsters.List(ctx)
	if err != nil {
		return nil, err
	}
	return template.NewLibrary(players, monsters), nil
}

// Draft builds a combatant draft from a library entry
func (s *Service) Draft(ctx context.Context, origin model.TemplateOrigin, quantity int) (model.NewCombatant, error) {
	switch origin.OriginType {
	case model.OriginPlayer:
		p, err := s.GetPlayer(ctx, origin.OriginID)
		if err != nil {
			return model.NewCombatant{}, err
		}
		return p.Draft(), nil
	case model.OriginMonster:
		m, err := s.GetMonster(ctx, origin.OriginID)
		if err != nil {
			return model.NewCombatant{}, err
		}
		return m.Draft(max(quantity, 1)), nil
	}
	return model.NewCombatant{}, fmt.Errorf("%w: origin type %q", model.ErrInvalidCombatant, origin.OriginType)
}

func prepareMonster(m *model.SavedMonster) error {
	m.Name = strings.TrimSpace(m.Name)
	m.HPFormula = strings.TrimSpace(m.HPFormula)
	if m.HPFormula != "" {
		expr, err := dice.Parse(m.HPFormula)
		if err != nil {
			return fmt.Errorf("%w: hp formula: %w", model.ErrInvalidTemplate, err)
		}
		m.HPFormula = expr.String()
		if m.MaxHP == 0 {
			m.MaxHP = max(1, expr.Average())
		}
	}
	return m.Validate()
}

// notFound swaps the storage-level not-found error for a specific one
func notFound(err, specific error) error {
	if errors.Is(err, model.ErrNotFound) {
		return specific
	}
	return err
}
