// Package dex serves the read-only aggregate views over the store. These
// reads are unsynchronized with the writer and may briefly lag it.
package dex

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/mcoot/globaldex/internal/model"
	"github.com/mcoot/globaldex/internal/storage"
)

// MaxQueryLength bounds player and species search terms
const MaxQueryLength = 64

// Dex is a player's capture list. Player is nil for unknown IDs.
type Dex struct {
	PlayerID   model.PlayerID
	Player     *model.Player
	Captures   []model.Capture
	Count      int
	ShinyCount int
}

// PlayerMatch is the best player match for a search, with leaderboard rank
type PlayerMatch struct {
	Summary  model.PlayerSummary
	Rank     int
	Captures []model.Capture
}

// SpeciesCaught counts the players holding a species
type SpeciesCaught struct {
	Species      string
	TotalPlayers int
	ShinyPlayers int
}

// CompletionRow is a completion entry with its share of all species
type CompletionRow struct {
	model.CompletionEntry
	MaxSpecies int
	Ratio      float64
}

// Completion is the completion leaderboard
type Completion struct {
	MaxSpecies int
	Entries    []CompletionRow
}

// Service answers read-view queries
type Service struct {
	reader     storage.Reader
	maxSpecies int
	logger     *slog.Logger
}

// New creates a dex Service. maxSpecies is the denominator for completion ratios.
func New(reader storage.Reader, maxSpecies int, logger *slog.Logger) *Service {
	return &Service{
		reader:     reader,
		maxSpecies: maxSpecies,
		logger:     logger,
	}
}

// Dex returns a player's captures sorted by species
func (s *Service) Dex(ctx context.Context, id model.PlayerID) (*Dex, error) {
	player, err := s.reader.GetPlayer(ctx, id)
	if err != nil && !errors.Is(err, model.ErrPlayerNotFound) {
		return nil, err
	}

	captures, err := s.reader.ListCaptures(ctx, id)
	if err != nil {
		return nil, err
	}

	dex := &Dex{
		PlayerID: id,
		Player:   player,
		Captures: captures,
		Count:    len(captures),
	}
	for _, c := range captures {
		if c.Shiny {
			dex.ShinyCount++
		}
	}
	return dex, nil
}

// Leaderboard returns the top players. A non-positive limit uses the default.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]model.PlayerSummary, error) {
	if limit <= 0 {
		limit = storage.DefaultLeaderboardLimit
	}
	return s.reader.Leaderboard(ctx, limit)
}

// SearchPlayer finds a player by exact ID or by a fragment of their safe name
func (s *Service) SearchPlayer(ctx context.Context, query string) (*PlayerMatch, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, model.ValidationError("query is required")
	}
	if utf8.RuneCountInString(q) > MaxQueryLength {
		return nil, model.ValidationError("query must be at most %d characters", MaxQueryLength)
	}

	summary, err := s.reader.FindPlayer(ctx, q)
	if err != nil {
		if errors.Is(err, model.ErrPlayerNotFound) {
			s.logger.Debug("player search matched nothing", slog.String("query", q))
		}
		return nil, err
	}

	rank, err := s.reader.PlayerRank(ctx, *summary)
	if err != nil {
		return nil, err
	}

	captures, err := s.reader.ListCaptures(ctx, summary.ID)
	if err != nil {
		return nil, err
	}

	return &PlayerMatch{
		Summary:  *summary,
		Rank:     rank,
		Captures: captures,
	}, nil
}

// SpeciesCaught counts how many players caught a species, and how many shiny
func (s *Service) SpeciesCaught(ctx context.Context, species string) (SpeciesCaught, error) {
	counts, err := s.reader.SpeciesCounts(ctx, species)
	if err != nil {
		return SpeciesCaught{}, err
	}
	return SpeciesCaught{
		Species:      species,
		TotalPlayers: counts.DistinctPlayers,
		ShinyPlayers: counts.ShinyRows,
	}, nil
}

// SearchSpecies autocompletes captured species names
func (s *Service) SearchSpecies(ctx context.Context, term string, limit int) ([]string, error) {
	term = strings.TrimSpace(term)
	if utf8.RuneCountInString(term) > MaxQueryLength {
		return nil, model.ValidationError("term must be at most %d characters", MaxQueryLength)
	}
	if limit <= 0 {
		limit = storage.DefaultSpeciesSearchLimit
	}

	names, err := s.reader.SearchSpecies(ctx, term, limit)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// Completion ranks players by distinct tracked species
func (s *Service) Completion(ctx context.Context, limit int) (*Completion, error) {
	if limit <= 0 {
		limit = storage.DefaultCompletionLimit
	}

	entries, err := s.reader.CompletionLeaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}

	out := &Completion{
		MaxSpecies: s.maxSpecies,
		Entries:    make([]CompletionRow, 0, len(entries)),
	}
	for _, e := range entries {
		row := CompletionRow{CompletionEntry: e, MaxSpecies: s.maxSpecies}
		if s.maxSpecies > 0 {
			row.Ratio = float64(e.UniqueSpecies) / float64(s.maxSpecies)
		}
		out.Entries = append(out.Entries, row)
	}
	return out, nil
}
