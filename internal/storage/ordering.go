package storage

import (
	"sort"
	"strings"

	"github.com/mcoot/globaldex/internal/model"
)

// Default limits for read views
const (
	DefaultLeaderboardLimit   = 50
	DefaultCompletionLimit    = 15
	DefaultSpeciesSearchLimit = 15
)

// SortSummaries orders summaries the way the leaderboard does: most captures
// first, then most shinies, then name case-insensitively. Backends without a
// query engine use this so every backend ranks identically.
//
// Case folding covers ASCII letters only, matching SQLite's NOCASE collation
// and LIKE operator.
func SortSummaries(summaries []model.PlayerSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		return RanksAbove(summaries[i], summaries[j])
	})
}

// RanksAbove reports whether a is placed strictly above b on the leaderboard
func RanksAbove(a, b model.PlayerSummary) bool {
	if a.Total != b.Total {
		return a.Total > b.Total
	}
	if a.Shinies != b.Shinies {
		return a.Shinies > b.Shinies
	}
	return foldASCII(a.NameKey()) < foldASCII(b.NameKey())
}

// RankIn returns the 1-based position p would take among summaries
func RankIn(summaries []model.PlayerSummary, p model.PlayerSummary) int {
	rank := 1
	for _, other := range summaries {
		if RanksAbove(other, p) {
			rank++
		}
	}
	return rank
}

// SortCompletion orders completion entries by distinct species, then name
func SortCompletion(entries []model.CompletionEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].UniqueSpecies != entries[j].UniqueSpecies {
			return entries[i].UniqueSpecies > entries[j].UniqueSpecies
		}
		return foldASCII(nameKey(entries[i].SafeName, entries[i].DisplayName)) <
			foldASCII(nameKey(entries[j].SafeName, entries[j].DisplayName))
	})
}

// SortSpeciesNames orders species names case-insensitively
func SortSpeciesNames(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		return foldASCII(names[i]) < foldASCII(names[j])
	})
}

// ContainsFold reports whether s contains substr, ignoring ASCII case
func ContainsFold(s, substr string) bool {
	return strings.Contains(foldASCII(s), foldASCII(substr))
}

// Truncate limits a slice to n entries when n is positive
func Truncate[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

func foldASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

func nameKey(safe, raw string) string {
	return model.PlayerSummary{SafeName: safe, DisplayName: raw}.NameKey()
}
