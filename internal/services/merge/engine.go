// Package merge applies register, capture and uncapture intents to the store.
//
// Every procedure runs inside a single storage.Write call, so the read of
// existing state, the species snapshot and the writes that follow happen in
// one write-section and cannot interleave with another merge.
package merge

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/globaldex/internal/dependencies/clock"
	"github.com/mcoot/globaldex/internal/model"
	"github.com/mcoot/globaldex/internal/sanitize"
	"github.com/mcoot/globaldex/internal/storage"
)

// Engine is the only component that mutates the store
type Engine struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a merge Engine
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger) *Engine {
	return &Engine{
		storage: storage,
		clock:   clock,
		logger:  logger,
	}
}

// Register creates the player or refreshes its names and last-seen time
func (e *Engine) Register(ctx context.Context, intent model.RegisterIntent) (model.RegisterResult, error) {
	safeName := sanitize.Name(intent.DisplayName)
	now := e.clock.Now()

	var created bool
	err := e.storage.Write(ctx, func(tx storage.WriteTx) error {
		var err error
		created, err = tx.UpsertPlayer(ctx, intent.PlayerID, intent.DisplayName, safeName, now)
		return err
	})
	if err != nil {
		e.logger.Error("register failed",
			slog.String("intent_id", intent.ID),
			slog.String("player_id", string(intent.PlayerID)),
			slog.String("error", err.Error()),
		)
		return model.RegisterResult{}, err
	}

	e.logger.Debug("player registered",
		slog.String("intent_id", intent.ID),
		slog.String("player_id", string(intent.PlayerID)),
		slog.Bool("created", created),
	)

	return model.RegisterResult{
		PlayerID:    intent.PlayerID,
		DisplayName: intent.DisplayName,
		SafeName:    safeName,
		Created:     created,
		Updated:     !created,
	}, nil
}

// Capture merges a capture into the player's dex. Repeats and non-shiny
// captures of an already recorded species are no-ops; a shiny capture of a
// non-shiny row upgrades it in place.
func (e *Engine) Capture(ctx context.Context, intent model.CaptureIntent) (model.CaptureResult, error) {
	if model.IsUntrackedSpecies(intent.Species) {
		return model.CaptureResult{Ignored: true, Reason: model.IgnoredReasonMegaGmax}, nil
	}

	capturedAt := e.clock.Now()
	if intent.CapturedAt != nil {
		capturedAt = *intent.CapturedAt
	}

	var result model.CaptureResult
	err := e.storage.Write(ctx, func(tx storage.WriteTx) error {
		exists, err := tx.PlayerExists(ctx, intent.PlayerID)
		if err != nil {
			return err
		}
		if !exists {
			return model.ErrPlayerNotRegistered
		}

		currentShiny, found, err := tx.GetCaptureShiny(ctx, intent.PlayerID, intent.Species)
		if err != nil {
			return err
		}
		if found && (currentShiny || !intent.Shiny) {
			return nil
		}

		// Taken before any write so the milestones reflect the state this
		// intent found, not the state it produced
		snapshot, err := tx.SnapshotSpeciesCounts(ctx, intent.Species)
		if err != nil {
			return err
		}

		result.Inserted, err = tx.InsertCaptureIfAbsent(ctx, intent.PlayerID, intent.Species, intent.Shiny, capturedAt)
		if err != nil {
			return err
		}
		if intent.Shiny {
			result.ShinyUpgraded, err = tx.UpgradeToShinyIfNonShiny(ctx, intent.PlayerID, intent.Species)
			if err != nil {
				return err
			}
		}

		result.FirstOverall = result.Inserted && snapshot.DistinctPlayers == 0
		result.FirstShiny = intent.Shiny && snapshot.ShinyRows == 0 && (result.Inserted || result.ShinyUpgraded)
		return nil
	})
	if err != nil {
		if !errors.Is(err, model.ErrPlayerNotRegistered) {
			e.logger.Error("capture failed",
				slog.String("intent_id", intent.ID),
				slog.String("player_id", string(intent.PlayerID)),
				slog.String("species", intent.Species),
				slog.String("error", err.Error()),
			)
		}
		return model.CaptureResult{}, err
	}

	if result.FirstOverall || result.FirstShiny {
		e.logger.Info("species milestone",
			slog.String("intent_id", intent.ID),
			slog.String("player_id", string(intent.PlayerID)),
			slog.String("species", intent.Species),
			slog.Bool("first_overall", result.FirstOverall),
			slog.Bool("first_shiny", result.FirstShiny),
		)
	}

	return result, nil
}

// Uncapture removes a capture regardless of its shiny state
func (e *Engine) Uncapture(ctx context.Context, intent model.UncaptureIntent) (model.UncaptureResult, error) {
	var result model.UncaptureResult
	err := e.storage.Write(ctx, func(tx storage.WriteTx) error {
		exists, err := tx.PlayerExists(ctx, intent.PlayerID)
		if err != nil {
			return err
		}
		if !exists {
			return model.ErrPlayerNotRegistered
		}

		result.Deleted, err = tx.DeleteCapture(ctx, intent.PlayerID, intent.Species)
		return err
	})
	if err != nil {
		return model.UncaptureResult{}, err
	}

	e.logger.Info("capture removed",
		slog.String("intent_id", intent.ID),
		slog.String("player_id", string(intent.PlayerID)),
		slog.String("species", intent.Species),
		slog.Int("deleted", result.Deleted),
	)

	return result, nil
}

// RenamePlayer replaces a player's display name without touching last-seen
func (e *Engine) RenamePlayer(ctx context.Context, id model.PlayerID, rawName string) (model.RegisterResult, error) {
	safeName := sanitize.Name(rawName)
	now := e.clock.Now()

	err := e.storage.Write(ctx, func(tx storage.WriteTx) error {
		found, err := tx.RenamePlayer(ctx, id, rawName, safeName, now)
		if err != nil {
			return err
		}
		if !found {
			return model.ErrPlayerNotFound
		}
		return nil
	})
	if err != nil {
		return model.RegisterResult{}, err
	}

	e.logger.Info("player renamed",
		slog.String("player_id", string(id)),
		slog.String("safe_name", safeName),
	)

	return model.RegisterResult{
		PlayerID:    id,
		DisplayName: rawName,
		SafeName:    safeName,
		Updated:     true,
	}, nil
}

// DeletePlayer removes a player and all of their captures
func (e *Engine) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	err := e.storage.Write(ctx, func(tx storage.WriteTx) error {
		found, err := tx.DeletePlayer(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return model.ErrPlayerNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.logger.Info("player deleted", slog.String("player_id", string(id)))
	return nil
}
