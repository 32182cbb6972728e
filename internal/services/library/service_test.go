package library

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/combattracker/internal/dependencies/mocks"
	"github.com/mcoot/combattracker/internal/model"
	"github.com/mcoot/combattracker/internal/storage"
	"github.com/mcoot/combattracker/internal/storage/memory"
	"github.com/mcoot/combattracker/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	clock   *mocks.MockClock
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.UnixMilli(1_700_000_000_000))
	providers := storage.NewProviders(memory.New(), s.clock, mocks.NewMockRandom(), testutil.NopLogger())
	s.service = New(providers, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *ServiceSuite) TestCreateAndGetPlayer() {
	created, err := s.service.CreatePlayer(s.ctx, model.SavedPlayer{Name: "  Aria ", MaxHP: 38, AC: 16, InitiativeBonus: 3})
	s.Require().NoError(err)
	s.Equal("id-1", created.ID)
	s.Equal("Aria", created.Name)
	s.Equal(int64(1_700_000_000_000), created.CreatedAt)

	got, err := s.service.GetPlayer(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(*created, *got)
}

func (s *ServiceSuite) TestCreatePlayerValidates() {
	_, err := s.service.CreatePlayer(s.ctx, model.SavedPlayer{Name: "", MaxHP: 10})
	s.ErrorIs(err, model.ErrInvalidTemplate)

	_, err = s.service.CreatePlayer(s.ctx, model.SavedPlayer{Name: "Aria", MaxHP: 0})
	s.ErrorIs(err, model.ErrInvalidTemplate)
}

func (s *ServiceSuite) TestUpdatePlayer() {
	created, err := s.service.CreatePlayer(s.ctx, model.SavedPlayer{Name: "Aria", MaxHP: 38, AC: 16})
	s.Require().NoError(err)
	s.clock.Advance(time.Hour)

	updated, err := s.service.UpdatePlayer(s.ctx, created.ID, model.SavedPlayer{Name: "Aria", MaxHP: 45, AC: 17})

	s.Require().NoError(err)
	s.Equal(45, updated.MaxHP)
	s.Equal(created.CreatedAt, updated.CreatedAt)
	s.Equal(created.CreatedAt+time.Hour.Milliseconds(), updated.UpdatedAt)
}

func (s *ServiceSuite) TestMissingPlayer() {
	_, err := s.service.GetPlayer(s.ctx, "missing")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	_, err = s.service.UpdatePlayer(s.ctx, "missing", model.SavedPlayer{Name: "X", MaxHP: 1})
	s.ErrorIs(err, model.ErrPlayerNotFound)

	s.ErrorIs(s.service.DeletePlayer(s.ctx, "missing"), model.ErrPlayerNotFound)
}

func (s *ServiceSuite) TestDeletePlayer() {
	created, err := s.service.CreatePlayer(s.ctx, model.SavedPlayer{Name: "Aria", MaxHP: 38})
	s.Require().NoError(err)

	s.Require().NoError(s.service.DeletePlayer(s.ctx, created.ID))

	players, err := s.service.ListPlayers(s.ctx)
	s.Require().NoError(err)
	s.Empty(players)
}

func (s *ServiceSuite) TestCreateMonsterDerivesMaxHPFromFormula() {
	created, err := s.service.CreateMonster(s.ctx, model.SavedMonster{Name: "Ogre", HPFormula: "7d10 + 21", AC: 11})

	s.Require().NoError(err)
	s.Equal("7d10+21", created.HPFormula)
	s.Equal(59, created.MaxHP)
}

func (s *ServiceSuite) TestCreateMonsterRejectsBadFormula() {
	_, err := s.service.CreateMonster(s.ctx, model.SavedMonster{Name: "Ogre", HPFormula: "lots", MaxHP: 59})

	s.ErrorIs(err, model.ErrInvalidTemplate)
	s.ErrorIs(err, model.ErrInvalidDice)
}

func (s *ServiceSuite) TestMissingMonster() {
	_, err := s.service.GetMonster(s.ctx, "missing")
	s.ErrorIs(err, model.ErrMonsterNotFound)
	s.ErrorIs(s.service.DeleteMonster(s.ctx, "missing"), model.ErrMonsterNotFound)
}

func (s *ServiceSuite) TestDraftFromTemplates() {
	player, err := s.service.CreatePlayer(s.ctx, model.SavedPlayer{Name: "Aria", MaxHP: 38, AC: 16})
	s.Require().NoError(err)
	monster, err := s.service.CreateMonster(s.ctx, model.SavedMonster{Name: "Goblin", MaxHP: 7, AC: 15})
	s.Require().NoError(err)

	d, err := s.service.Draft(s.ctx, model.TemplateOrigin{OriginType: model.OriginPlayer, OriginID: player.ID}, 3)
	s.Require().NoError(err)
	s.Equal(1, d.Quantity)
	s.True(d.IsPlayer)

	d, err = s.service.Draft(s.ctx, model.TemplateOrigin{OriginType: model.OriginMonster, OriginID: monster.ID}, 3)
	s.Require().NoError(err)
	s.Equal(3, d.Quantity)
	s.Equal(model.IdentifierLetter, d.IdentifierType)
	s.Equal(15, *d.AC)

	_, err = s.service.Draft(s.ctx, model.TemplateOrigin{OriginType: model.OriginMonster, OriginID: "gone"}, 1)
	s.ErrorIs(err, model.ErrMonsterNotFound)

	_, err = s.service.Draft(s.ctx, model.NoTemplate(), 1)
	s.ErrorIs(err, model.ErrInvalidCombatant)
}

func (s *ServiceSuite) TestLibraryResolvesBoth() {
	player, _ := s.service.CreatePlayer(s.ctx, model.SavedPlayer{Name: "Aria", MaxHP: 38})
	monster, _ := s.service.CreateMonster(s.ctx, model.SavedMonster{Name: "Goblin", MaxHP: 7})

	lib, err := s.service.Library(s.ctx)

	s.Require().NoError(err)
	_, ok := lib.Player(player.ID)
	s.True(ok)
	_, ok = lib.Monster(monster.ID)
	s.True(ok)
}

// delayedKV slows reads so overlapping writes interleave
type delayedKV struct {
	*memory.Storage
}

func (k delayedKV) Get(ctx context.Context, key string) (string, bool, error) {
	time.Sleep(time.Microsecond)
	return k.Storage.Get(ctx, key)
}

func (s *ServiceSuite) TestConcurrentCreatesAreAllStored() {
	providers := storage.NewProviders(delayedKV{memory.New()}, s.clock, mocks.NewMockRandom(), testutil.NopLogger())
	service := New(providers, testutil.NopLogger())
	const n = 300

	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.CreatePlayer(s.ctx, model.SavedPlayer{Name: "Aria", MaxHP: 10})
			s.NoError(err)
		}()
	}
	wg.Wait()

	players, err := service.ListPlayers(s.ctx)
	s.Require().NoError(err)
	s.Len(players, n)
}
