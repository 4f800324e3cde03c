package dex

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/globaldex/internal/dependencies/mocks"
	"github.com/mcoot/globaldex/internal/model"
	"github.com/mcoot/globaldex/internal/services/merge"
	"github.com/mcoot/globaldex/internal/storage/memory"
	"github.com/mcoot/globaldex/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	engine  *merge.Engine
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	logger := testutil.NopLogger()
	s.engine = merge.New(s.storage, mocks.NewMockClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)), logger)
	s.service = New(s.storage, 100, logger)
	s.ctx = context.Background()
}

func (s *ServiceSuite) register(id model.PlayerID, name string) {
	_, err := s.engine.Register(s.ctx, model.RegisterIntent{PlayerID: id, DisplayName: name})
	s.Require().NoError(err)
}

func (s *ServiceSuite) capture(id model.PlayerID, species string, shiny bool) {
	_, err := s.engine.Capture(s.ctx, model.CaptureIntent{PlayerID: id, Species: species, Shiny: shiny})
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestDex() {
	s.register("P1", "Ash")
	s.capture("P1", "Pikachu", true)
	s.capture("P1", "bulbasaur", false)

	dex, err := s.service.Dex(s.ctx, "P1")
	s.Require().NoError(err)
	s.Require().NotNil(dex.Player)
	s.Equal("Ash", dex.Player.SafeName)
	s.Equal(2, dex.Count)
	s.Equal(1, dex.ShinyCount)
	s.Equal("bulbasaur", dex.Captures[0].Species)
}

func (s *ServiceSuite) TestDexUnknownPlayerIsEmpty() {
	dex, err := s.service.Dex(s.ctx, "ghost")
	s.Require().NoError(err)
	s.Nil(dex.Player)
	s.Equal(0, dex.Count)
}

func (s *ServiceSuite) TestSearchPlayer() {
	s.register("P1", "Ash")
	s.register("P2", "Ashley")
	s.capture("P2", "Eevee", false)

	match, err := s.service.SearchPlayer(s.ctx, "  ash ")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("P2"), match.Summary.ID, "best-ranked match wins")
	s.Equal(1, match.Rank)
	s.Len(match.Captures, 1)

	match, err = s.service.SearchPlayer(s.ctx, "P1")
	s.Require().NoError(err)
	s.Equal(2, match.Rank)

	_, err = s.service.SearchPlayer(s.ctx, "   ")
	s.ErrorIs(err, model.ErrValidation)

	_, err = s.service.SearchPlayer(s.ctx, strings.Repeat("a", 65))
	s.ErrorIs(err, model.ErrValidation)

	_, err = s.service.SearchPlayer(s.ctx, "misty")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *ServiceSuite) TestSpeciesCaught() {
	s.register("P1", "Ash")
	s.register("P2", "Misty")
	s.capture("P1", "Psyduck", true)
	s.capture("P2", "Psyduck", false)

	caught, err := s.service.SpeciesCaught(s.ctx, "Psyduck")
	s.Require().NoError(err)
	s.Equal(SpeciesCaught{Species: "Psyduck", TotalPlayers: 2, ShinyPlayers: 1}, caught)
}

func (s *ServiceSuite) TestSearchSpeciesDefaults() {
	names, err := s.service.SearchSpecies(s.ctx, "", 0)
	s.Require().NoError(err)
	s.NotNil(names)
	s.Empty(names)

	s.register("P1", "Ash")
	s.capture("P1", "Pikachu", false)
	names, err = s.service.SearchSpecies(s.ctx, " chu ", 0)
	s.Require().NoError(err)
	s.Equal([]string{"Pikachu"}, names)
}

func (s *ServiceSuite) TestCompletion() {
	s.register("P1", "Ash")
	s.register("P2", "Misty")
	s.capture("P1", "Pikachu", false)
	s.capture("P1", "Eevee", false)
	s.capture("P2", "Staryu", false)

	completion, err := s.service.Completion(s.ctx, 0)
	s.Require().NoError(err)
	s.Equal(100, completion.MaxSpecies)
	s.Require().Len(completion.Entries, 2)
	s.Equal(model.PlayerID("P1"), completion.Entries[0].ID)
	s.InDelta(0.02, completion.Entries[0].Ratio, 1e-9)
	s.InDelta(0.01, completion.Entries[1].Ratio, 1e-9)
}

func (s *ServiceSuite) TestCompletionWithoutMaxSpecies() {
	s.service = New(s.storage, 0, testutil.NopLogger())
	s.register("P1", "Ash")
	s.capture("P1", "Pikachu", false)

	completion, err := s.service.Completion(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(completion.Entries, 1)
	s.Zero(completion.Entries[0].Ratio)
}
