package model

import "time"

// RegisterIntent asks the writer to create or refresh a player
type RegisterIntent struct {
	ID          string
	PlayerID    PlayerID
	DisplayName string
}

// CaptureIntent asks the writer to merge a capture into a player's dex
type CaptureIntent struct {
	ID         string
	PlayerID   PlayerID
	Species    string
	Shiny      bool
	CapturedAt *time.Time
}

// UncaptureIntent asks the writer to remove a capture regardless of shiny state
type UncaptureIntent struct {
	ID       string
	PlayerID PlayerID
	Species  string
}

// RegisterResult is the outcome of a merged RegisterIntent
type RegisterResult struct {
	PlayerID    PlayerID
	DisplayName string
	SafeName    string
	Created     bool
	Updated     bool
}

// CaptureResult is the outcome of a merged CaptureIntent.
// A zero CaptureResult is the idempotent no-op outcome.
type CaptureResult struct {
	Ignored       bool
	Reason        string
	Inserted      bool
	ShinyUpgraded bool
	FirstOverall  bool
	FirstShiny    bool
}

// Changed reports whether the merge wrote anything
func (r CaptureResult) Changed() bool {
	return r.Inserted || r.ShinyUpgraded
}

// UncaptureResult is the outcome of a merged UncaptureIntent
type UncaptureResult struct {
	Deleted int
}
