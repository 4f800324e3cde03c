package response

import (
	"time"

	"github.com/mcoot/globaldex/internal/model"
	"github.com/mcoot/globaldex/internal/services/dex"
)

// RegisterResponse is the response for a merged register
type RegisterResponse struct {
	OK          bool    `json:"ok"`
	ID          string  `json:"id"`
	DisplayName *string `json:"display_name"`
	SafeName    *string `json:"safe_name"`
	Created     bool    `json:"created"`
	Updated     bool    `json:"updated"`
}

// RegisterResponseFromResult converts a model.RegisterResult
func RegisterResponseFromResult(r model.RegisterResult) RegisterResponse {
	return RegisterResponse{
		OK:          true,
		ID:          string(r.PlayerID),
		DisplayName: optional(r.DisplayName),
		SafeName:    optional(r.SafeName),
		Created:     r.Created,
		Updated:     r.Updated,
	}
}

// CaptureResponse is the response for a merged capture
type CaptureResponse struct {
	OK            bool   `json:"ok"`
	Ignored       bool   `json:"ignored,omitempty"`
	Reason        string `json:"reason,omitempty"`
	Inserted      bool   `json:"inserted"`
	ShinyUpgraded bool   `json:"shiny_upgraded"`
	FirstOverall  bool   `json:"first_overall"`
	FirstShiny    bool   `json:"first_shiny"`
}

// CaptureResponseFromResult converts a model.CaptureResult
func CaptureResponseFromResult(r model.CaptureResult) CaptureResponse {
	return CaptureResponse{
		OK:            true,
		Ignored:       r.Ignored,
		Reason:        r.Reason,
		Inserted:      r.Inserted,
		ShinyUpgraded: r.ShinyUpgraded,
		FirstOverall:  r.FirstOverall,
		FirstShiny:    r.FirstShiny,
	}
}

// QueuedResponse acknowledges an intent accepted without waiting for its result
type QueuedResponse struct {
	OK     bool `json:"ok"`
	Queued bool `json:"queued"`
}

// UncaptureResponse is the response for an uncapture
type UncaptureResponse struct {
	OK      bool `json:"ok"`
	Deleted int  `json:"deleted"`
}

// Capture is a single dex entry
type Capture struct {
	Species    string    `json:"species"`
	Shiny      bool      `json:"shiny"`
	CapturedAt time.Time `json:"captured_at"`
}

// CapturesFromModel converts a capture list, never returning nil
func CapturesFromModel(captures []model.Capture) []Capture {
	out := make([]Capture, 0, len(captures))
	for _, c := range captures {
		out = append(out, Capture{Species: c.Species, Shiny: c.Shiny, CapturedAt: c.CapturedAt})
	}
	return out
}

// DexResponse is a player's dex
type DexResponse struct {
	ID          string    `json:"id"`
	DisplayName *string   `json:"display_name"`
	SafeName    *string   `json:"safe_name"`
	Count       int       `json:"count"`
	ShinyCount  int       `json:"shiny_count"`
	Captures    []Capture `json:"captures"`
}

// DexResponseFromDex converts a dex.Dex
func DexResponseFromDex(d *dex.Dex) DexResponse {
	resp := DexResponse{
		ID:         string(d.PlayerID),
		Count:      d.Count,
		ShinyCount: d.ShinyCount,
		Captures:   CapturesFromModel(d.Captures),
	}
	if d.Player != nil {
		resp.DisplayName = optional(d.Player.DisplayName)
		resp.SafeName = optional(d.Player.SafeName)
	}
	return resp
}

// LeaderboardEntry is a ranked player
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	SafeName    string `json:"safe_name"`
	Total       int    `json:"total"`
	Shinies     int    `json:"shinies"`
}

// LeaderboardResponse is the capture-count leaderboard
type LeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
}

// LeaderboardFromSummaries ranks summaries in the order given
func LeaderboardFromSummaries(summaries []model.PlayerSummary) LeaderboardResponse {
	entries := make([]LeaderboardEntry, 0, len(summaries))
	for i, s := range summaries {
		entries = append(entries, LeaderboardEntry{
			Rank:        i + 1,
			ID:          string(s.ID),
			DisplayName: s.DisplayName,
			SafeName:    s.SafeName,
			Total:       s.Total,
			Shinies:     s.Shinies,
		})
	}
	return LeaderboardResponse{Entries: entries}
}

// PlayerSearchResponse is the best player match for a search
type PlayerSearchResponse struct {
	LeaderboardEntry
	Captures []Capture `json:"captures"`
}

// PlayerSearchFromMatch converts a dex.PlayerMatch
func PlayerSearchFromMatch(m *dex.PlayerMatch) PlayerSearchResponse {
	return PlayerSearchResponse{
		LeaderboardEntry: LeaderboardEntry{
			Rank:        m.Rank,
			ID:          string(m.Summary.ID),
			DisplayName: m.Summary.DisplayName,
			SafeName:    m.Summary.SafeName,
			Total:       m.Summary.Total,
			Shinies:     m.Summary.Shinies,
		},
		Captures: CapturesFromModel(m.Captures),
	}
}

// SpeciesCaughtResponse counts the players holding a species
type SpeciesCaughtResponse struct {
	Species      string `json:"species"`
	TotalPlayers int    `json:"total_players"`
	ShinyPlayers int    `json:"shiny_players"`
}

// SpeciesSearchResponse lists matching species names
type SpeciesSearchResponse struct {
	Names []string `json:"names"`
}

// CompletionEntry is a player's completion ratio
type CompletionEntry struct {
	Rank          int     `json:"rank"`
	ID            string  `json:"id"`
	DisplayName   string  `json:"display_name"`
	SafeName      string  `json:"safe_name"`
	UniqueSpecies int     `json:"unique_species"`
	MaxSpecies    int     `json:"max_species"`
	Ratio         float64 `json:"completion_ratio"`
}

// CompletionResponse is the completion leaderboard
type CompletionResponse struct {
	MaxSpecies int               `json:"max_species"`
	Entries    []CompletionEntry `json:"entries"`
}

// CompletionFromDex converts a dex.Completion
func CompletionFromDex(c *dex.Completion) CompletionResponse {
	entries := make([]CompletionEntry, 0, len(c.Entries))
	for i, e := range c.Entries {
		entries = append(entries, CompletionEntry{
			Rank:          i + 1,
			ID:            string(e.ID),
			DisplayName:   e.DisplayName,
			SafeName:      e.SafeName,
			UniqueSpecies: e.UniqueSpecies,
			MaxSpecies:    e.MaxSpecies,
			Ratio:         e.Ratio,
		})
	}
	return CompletionResponse{MaxSpecies: c.MaxSpecies, Entries: entries}
}

// QueueStats is the state of one admission queue
type QueueStats struct {
	Name      string `json:"name"`
	Depth     int    `json:"depth"`
	Capacity  int    `json:"capacity"`
	Workers   int    `json:"workers"`
	Processed uint64 `json:"processed"`
	Failed    uint64 `json:"failed"`
	Rejected  uint64 `json:"rejected"`
}

// HealthResponse is the health check response
type HealthResponse struct {
	OK     bool         `json:"ok"`
	Queues []QueueStats `json:"queues"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
