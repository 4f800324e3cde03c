package redis

import (
	"fmt"

	"github.com/mcoot/globaldex/internal/model"
)

// Key prefix for all dex data
const keyPrefix = "globaldex"

// playerKey returns the HASH holding a player's names and timestamps
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// playersIndexKey returns the SET of all registered player IDs
func playersIndexKey() string {
	return fmt.Sprintf("%s:idx:players", keyPrefix)
}

// capturesKey returns the HASH of species -> encoded capture for a player
func capturesKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:captures:%s", keyPrefix, id)
}

// speciesKey returns the HASH of player ID -> shiny flag ("0"/"1") for a species
func speciesKey(species string) string {
	return fmt.Sprintf("%s:species:%s", keyPrefix, species)
}

// speciesIndexKey returns the SET of species names with at least one capture
func speciesIndexKey() string {
	return fmt.Sprintf("%s:idx:species", keyPrefix)
}
