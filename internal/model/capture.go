package model

import (
	"strings"
	"time"
)

// Capture records that a player has caught a species. There is at most one
// Capture per (PlayerID, Species) pair and Shiny never reverts to false.
type Capture struct {
	PlayerID   PlayerID
	Species    string
	Shiny      bool
	CapturedAt time.Time
}

// SpeciesCounts is an aggregate over all captures of one species
type SpeciesCounts struct {
	DistinctPlayers int
	ShinyRows       int
}

// IgnoredReasonMegaGmax is reported for species forms that are never tracked
const IgnoredReasonMegaGmax = "mega-gmax-not-tracked"

var untrackedPrefixes = []string{"mega ", "gmax "}

// IsUntrackedSpecies reports whether the species is a Mega or Gigantamax form.
// These are discarded before reaching storage.
func IsUntrackedSpecies(species string) bool {
	lower := strings.ToLower(species)
	for _, prefix := range untrackedPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
