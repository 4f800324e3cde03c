package storage

import (
	"context"
	"time"

	"github.com/mcoot/globaldex/internal/model"
)

// Storage is the durable single-writer store for players and captures.
//
// Reads are unsynchronized and may observe state that a concurrent Write is
// about to change. Every mutation goes through Write, which holds the store's
// write-section for the duration of fn.
type Storage interface {
	Reader

	// Write runs fn inside the global write-section. The WriteTx is only valid
	// until fn returns. Backends with transactions commit when fn returns nil
	// and roll back otherwise.
	Write(ctx context.Context, fn func(tx WriteTx) error) error

	Close() error
}

// WriteTx holds the mutation primitives available inside the write-section
type WriteTx interface {
	// UpsertPlayer inserts the player if absent, otherwise refreshes names and
	// updated/last-seen times while preserving the creation time.
	UpsertPlayer(ctx context.Context, id model.PlayerID, rawName, safeName string, now time.Time) (created bool, err error)
	PlayerExists(ctx context.Context, id model.PlayerID) (bool, error)
	GetCaptureShiny(ctx context.Context, id model.PlayerID, species string) (shiny bool, found bool, err error)
	SnapshotSpeciesCounts(ctx context.Context, species string) (model.SpeciesCounts, error)
	InsertCaptureIfAbsent(ctx context.Context, id model.PlayerID, species string, shiny bool, capturedAt time.Time) (inserted bool, err error)
	UpgradeToShinyIfNonShiny(ctx context.Context, id model.PlayerID, species string) (upgraded bool, err error)
	DeleteCapture(ctx context.Context, id model.PlayerID, species string) (deleted int, err error)

	// Admin operations
	RenamePlayer(ctx context.Context, id model.PlayerID, rawName, safeName string, now time.Time) (found bool, err error)
	DeletePlayer(ctx context.Context, id model.PlayerID) (found bool, err error)
}

// Reader holds the unsynchronized read queries
type Reader interface {
	// GetCaptureShiny reads the current shiny state outside the write-section
	GetCaptureShiny(ctx context.Context, id model.PlayerID, species string) (shiny bool, found bool, err error)

	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	// ListCaptures returns a player's captures ordered by species, case-insensitively
	ListCaptures(ctx context.Context, id model.PlayerID) ([]model.Capture, error)
	// ListPlayers returns every player with totals in leaderboard order
	ListPlayers(ctx context.Context) ([]model.PlayerSummary, error)
	// Leaderboard returns the top players by total, then shinies, then name
	Leaderboard(ctx context.Context, limit int) ([]model.PlayerSummary, error)
	// FindPlayer returns the best-ranked player whose ID equals query or whose
	// safe name contains it
	FindPlayer(ctx context.Context, query string) (*model.PlayerSummary, error)
	// PlayerRank returns the 1-based leaderboard position of the summary
	PlayerRank(ctx context.Context, p model.PlayerSummary) (int, error)
	// SpeciesCounts returns how many players caught a species and how many of those are shiny
	SpeciesCounts(ctx context.Context, species string) (model.SpeciesCounts, error)
	// SearchSpecies returns captured species names containing term
	SearchSpecies(ctx context.Context, term string, limit int) ([]string, error)
	// CompletionLeaderboard ranks players by distinct tracked species
	CompletionLeaderboard(ctx context.Context, limit int) ([]model.CompletionEntry, error)
}
