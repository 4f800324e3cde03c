// Package storagetest holds the behaviour every storage backend must share.
// Backend packages run it from their own tests.
package storagetest

import (
	"context"
	"errors"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/globaldex/internal/model"
	"github.com/mcoot/globaldex/internal/storage"
)

// Suite exercises a storage.Storage built fresh for every test
type Suite struct {
	suite.Suite

	// NewStorage returns an empty store. It is called from SetupTest.
	NewStorage func() storage.Storage

	store storage.Storage
	ctx   context.Context
	now   time.Time
}

func (s *Suite) SetupTest() {
	s.Require().NotNil(s.NewStorage, "NewStorage must be set")
	s.store = s.NewStorage()
	s.ctx = context.Background()
	s.now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *Suite) TearDownTest() {
	if s.store != nil {
		_ = s.store.Close()
	}
}

// Store returns the store under test
func (s *Suite) Store() storage.Storage {
	return s.store
}

// write runs fn in the write-section and fails the test on error
func (s *Suite) write(fn func(tx storage.WriteTx) error) {
	s.Require().NoError(s.store.Write(s.ctx, fn))
}

func (s *Suite) register(id model.PlayerID, name string) {
	s.write(func(tx storage.WriteTx) error {
		_, err := tx.UpsertPlayer(s.ctx, id, name, name, s.now)
		return err
	})
}

func (s *Suite) capture(id model.PlayerID, species string, shiny bool) {
	s.write(func(tx storage.WriteTx) error {
		_, err := tx.InsertCaptureIfAbsent(s.ctx, id, species, shiny, s.now)
		return err
	})
}

// Player tests

func (s *Suite) TestUpsertPlayerCreatesThenRefreshes() {
	var created bool
	s.write(func(tx storage.WriteTx) error {
		var err error
		created, err = tx.UpsertPlayer(s.ctx, "player-1", "Ash", "Ash", s.now)
		return err
	})
	s.True(created)

	later := s.now.Add(time.Hour)
	s.write(func(tx storage.WriteTx) error {
		var err error
		created, err = tx.UpsertPlayer(s.ctx, "player-1", "Ash K.", "Ash K.", later)
		return err
	})
	s.False(created)

	p, err := s.store.GetPlayer(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal("Ash K.", p.DisplayName)
	s.Equal("Ash K.", p.SafeName)
	s.True(p.CreatedAt.Equal(s.now), "created_at must be preserved")
	s.True(p.UpdatedAt.Equal(later))
	s.True(p.LastSeenAt.Equal(later))
}

func (s *Suite) TestGetPlayerNotFound() {
	_, err := s.store.GetPlayer(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestPlayerExists() {
	s.register("player-1", "Ash")

	s.write(func(tx storage.WriteTx) error {
		ok, err := tx.PlayerExists(s.ctx, "player-1")
		s.Require().NoError(err)
		s.True(ok)

		ok, err = tx.PlayerExists(s.ctx, "player-2")
		s.Require().NoError(err)
		s.False(ok)
		return nil
	})
}

func (s *Suite) TestRenamePlayer() {
	s.register("player-1", "Ash")

	s.write(func(tx storage.WriteTx) error {
		found, err := tx.RenamePlayer(s.ctx, "player-1", "Red", "Red", s.now.Add(time.Minute))
		s.Require().NoError(err)
		s.True(found)

		found, err = tx.RenamePlayer(s.ctx, "ghost", "Blue", "Blue", s.now)
		s.Require().NoError(err)
		s.False(found)
		return nil
	})

	p, err := s.store.GetPlayer(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal("Red", p.SafeName)
	s.True(p.CreatedAt.Equal(s.now))
}

func (s *Suite) TestDeletePlayerRemovesCaptures() {
	s.register("player-1", "Ash")
	s.register("player-2", "Misty")
	s.capture("player-1", "Pikachu", true)
	s.capture("player-2", "Pikachu", false)

	s.write(func(tx storage.WriteTx) error {
		found, err := tx.DeletePlayer(s.ctx, "player-1")
		s.Require().NoError(err)
		s.True(found)

		found, err = tx.DeletePlayer(s.ctx, "player-1")
		s.Require().NoError(err)
		s.False(found)
		return nil
	})

	_, err := s.store.GetPlayer(s.ctx, "player-1")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	counts, err := s.store.SpeciesCounts(s.ctx, "Pikachu")
	s.Require().NoError(err)
	s.Equal(model.SpeciesCounts{DistinctPlayers: 1, ShinyRows: 0}, counts)
}

// Capture tests

func (s *Suite) TestInsertCaptureIfAbsent() {
	s.register("player-1", "Ash")

	s.write(func(tx storage.WriteTx) error {
		inserted, err := tx.InsertCaptureIfAbsent(s.ctx, "player-1", "Pikachu", false, s.now)
		s.Require().NoError(err)
		s.True(inserted)

		inserted, err = tx.InsertCaptureIfAbsent(s.ctx, "player-1", "Pikachu", true, s.now)
		s.Require().NoError(err)
		s.False(inserted, "second insert must not replace the row")
		return nil
	})

	shiny, found, err := s.store.GetCaptureShiny(s.ctx, "player-1", "Pikachu")
	s.Require().NoError(err)
	s.True(found)
	s.False(shiny)
}

func (s *Suite) TestInsertCaptureUnregisteredPlayer() {
	err := s.store.Write(s.ctx, func(tx storage.WriteTx) error {
		_, err := tx.InsertCaptureIfAbsent(s.ctx, "ghost", "Pikachu", false, s.now)
		return err
	})
	s.ErrorIs(err, model.ErrPlayerNotRegistered)

	_, found, err := s.store.GetCaptureShiny(s.ctx, "ghost", "Pikachu")
	s.Require().NoError(err)
	s.False(found)
}

func (s *Suite) TestUpgradeToShinyIfNonShiny() {
	s.register("player-1", "Ash")
	s.capture("player-1", "Eevee", false)

	s.write(func(tx storage.WriteTx) error {
		upgraded, err := tx.UpgradeToShinyIfNonShiny(s.ctx, "player-1", "Eevee")
		s.Require().NoError(err)
		s.True(upgraded)

		upgraded, err = tx.UpgradeToShinyIfNonShiny(s.ctx, "player-1", "Eevee")
		s.Require().NoError(err)
		s.False(upgraded)

		upgraded, err = tx.UpgradeToShinyIfNonShiny(s.ctx, "player-1", "Mew")
		s.Require().NoError(err)
		s.False(upgraded)
		return nil
	})

	shiny, found, err := s.store.GetCaptureShiny(s.ctx, "player-1", "Eevee")
	s.Require().NoError(err)
	s.True(found)
	s.True(shiny)

	counts, err := s.store.SpeciesCounts(s.ctx, "Eevee")
	s.Require().NoError(err)
	s.Equal(1, counts.ShinyRows)
}

func (s *Suite) TestDeleteCapture() {
	s.register("player-1", "Ash")
	s.capture("player-1", "Pikachu", true)

	s.write(func(tx storage.WriteTx) error {
		deleted, err := tx.DeleteCapture(s.ctx, "player-1", "Pikachu")
		s.Require().NoError(err)
		s.Equal(1, deleted)

		deleted, err = tx.DeleteCapture(s.ctx, "player-1", "Pikachu")
		s.Require().NoError(err)
		s.Equal(0, deleted)
		return nil
	})

	_, found, err := s.store.GetCaptureShiny(s.ctx, "player-1", "Pikachu")
	s.Require().NoError(err)
	s.False(found)

	names, err := s.store.SearchSpecies(s.ctx, "pika", 0)
	s.Require().NoError(err)
	s.Empty(names)
}

func (s *Suite) TestSnapshotSpeciesCounts() {
	s.register("player-1", "Ash")
	s.register("player-2", "Misty")
	s.register("player-3", "Brock")
	s.capture("player-1", "Pikachu", false)
	s.capture("player-2", "Pikachu", true)
	s.capture("player-3", "Onix", true)

	s.write(func(tx storage.WriteTx) error {
		counts, err := tx.SnapshotSpeciesCounts(s.ctx, "Pikachu")
		s.Require().NoError(err)
		s.Equal(model.SpeciesCounts{DistinctPlayers: 2, ShinyRows: 1}, counts)

		counts, err = tx.SnapshotSpeciesCounts(s.ctx, "Mew")
		s.Require().NoError(err)
		s.Equal(model.SpeciesCounts{}, counts)
		return nil
	})
}

func (s *Suite) TestWriteReturnsFunctionError() {
	sentinel := errors.New("boom")
	err := s.store.Write(s.ctx, func(tx storage.WriteTx) error {
		return sentinel
	})
	s.ErrorIs(err, sentinel)
}

func (s *Suite) TestWriteHonoursCancelledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	called := false
	err := s.store.Write(ctx, func(tx storage.WriteTx) error {
		called = true
		return nil
	})
	s.ErrorIs(err, context.Canceled)
	s.False(called)
}

// Read view tests

func (s *Suite) TestListCapturesOrderedBySpecies() {
	s.register("player-1", "Ash")
	s.capture("player-1", "pidgey", false)
	s.capture("player-1", "Bulbasaur", true)
	s.capture("player-1", "Charmander", false)

	captures, err := s.store.ListCaptures(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Require().Len(captures, 3)
	s.Equal("Bulbasaur", captures[0].Species)
	s.True(captures[0].Shiny)
	s.Equal("Charmander", captures[1].Species)
	s.Equal("pidgey", captures[2].Species)
	s.True(captures[2].CapturedAt.Equal(s.now))

	empty, err := s.store.ListCaptures(s.ctx, "nobody")
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *Suite) seedLeaderboard() {
	s.register("p-ash", "Ash")
	s.register("p-misty", "misty")
	s.register("p-brock", "Brock")
	s.register("p-gary", "Gary")

	// Ash and Misty tie on total and shinies; the name decides, ignoring case
	s.capture("p-ash", "Pikachu", true)
	s.capture("p-ash", "Pidgey", false)
	s.capture("p-misty", "Staryu", true)
	s.capture("p-misty", "Psyduck", false)
	s.capture("p-brock", "Onix", false)
	s.capture("p-brock", "Geodude", false)
	s.capture("p-brock", "Vulpix", false)
}

func (s *Suite) TestLeaderboardOrdering() {
	s.seedLeaderboard()

	board, err := s.store.Leaderboard(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(board, 4)
	s.Equal(model.PlayerID("p-brock"), board[0].ID)
	s.Equal(3, board[0].Total)
	s.Equal(model.PlayerID("p-ash"), board[1].ID)
	s.Equal(1, board[1].Shinies)
	s.Equal(model.PlayerID("p-misty"), board[2].ID)
	s.Equal(model.PlayerID("p-gary"), board[3].ID)
	s.Equal(0, board[3].Total)

	top, err := s.store.Leaderboard(s.ctx, 2)
	s.Require().NoError(err)
	s.Len(top, 2)
}

func (s *Suite) TestLeaderboardTieBreakFoldsASCIIOnly() {
	s.register("p-lower", "\u00e9lan")
	s.register("p-upper", "\u00c9lan")
	s.register("p-ascii", "ALAN")

	board, err := s.store.Leaderboard(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(board, 3)
	s.Equal(model.PlayerID("p-ascii"), board[0].ID)
	s.Equal(model.PlayerID("p-upper"), board[1].ID)
	s.Equal(model.PlayerID("p-lower"), board[2].ID)

	rank, err := s.store.PlayerRank(s.ctx, board[2])
	s.Require().NoError(err)
	s.Equal(3, rank)
}

func (s *Suite) TestFindPlayerAndRank() {
	s.seedLeaderboard()

	byID, err := s.store.FindPlayer(s.ctx, "p-misty")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("p-misty"), byID.ID)

	byName, err := s.store.FindPlayer(s.ctx, "ROC")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("p-brock"), byName.ID)

	rank, err := s.store.PlayerRank(s.ctx, *byID)
	s.Require().NoError(err)
	s.Equal(3, rank)

	rank, err = s.store.PlayerRank(s.ctx, *byName)
	s.Require().NoError(err)
	s.Equal(1, rank)

	_, err = s.store.FindPlayer(s.ctx, "zzz")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestSearchSpecies() {
	s.register("player-1", "Ash")
	s.register("player-2", "Misty")
	s.capture("player-1", "Pikachu", false)
	s.capture("player-2", "Pikachu", false)
	s.capture("player-1", "Pidgey", false)
	s.capture("player-2", "Psyduck", false)

	names, err := s.store.SearchSpecies(s.ctx, "pi", 0)
	s.Require().NoError(err)
	s.Equal([]string{"Pidgey", "Pikachu"}, names)

	limited, err := s.store.SearchSpecies(s.ctx, "p", 2)
	s.Require().NoError(err)
	s.Equal([]string{"Pidgey", "Pikachu"}, limited)
}

func (s *Suite) TestCompletionLeaderboard() {
	s.register("player-1", "Ash")
	s.register("player-2", "Misty")
	s.register("player-3", "Brock")
	s.capture("player-1", "Pikachu", false)
	s.capture("player-1", "Mega Charizard X", false)
	s.capture("player-2", "Staryu", false)
	s.capture("player-2", "Starmie", true)
	s.capture("player-3", "Gmax Onix", false)

	entries, err := s.store.CompletionLeaderboard(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(model.PlayerID("player-2"), entries[0].ID)
	s.Equal(2, entries[0].UniqueSpecies)
	s.Equal(model.PlayerID("player-1"), entries[1].ID)
	s.Equal(1, entries[1].UniqueSpecies)

	top, err := s.store.CompletionLeaderboard(s.ctx, 1)
	s.Require().NoError(err)
	s.Len(top, 1)
}
