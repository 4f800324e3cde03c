package model

import "time"

// PlayerID is the stable account identifier supplied by the game client
type PlayerID string

// Player is a registered dex owner
type Player struct {
	ID          PlayerID
	DisplayName string // raw, as supplied by the client
	SafeName    string // always derived from DisplayName via sanitize.Name
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastSeenAt  time.Time
}

// PlayerSummary is a player with capture totals, as shown on leaderboards
type PlayerSummary struct {
	ID          PlayerID
	DisplayName string
	SafeName    string
	Total       int
	Shinies     int
	CreatedAt   time.Time
	LastSeenAt  time.Time
}

// CompletionEntry is a player's distinct species count for the completion ranking
type CompletionEntry struct {
	ID            PlayerID
	DisplayName   string
	SafeName      string
	UniqueSpecies int
}

// NameKey returns the name used for case-insensitive leaderboard tie-breaks
func (p PlayerSummary) NameKey() string {
	switch {
	case p.SafeName != "":
		return p.SafeName
	case p.DisplayName != "":
		return p.DisplayName
	default:
		return "Unknown"
	}
}
