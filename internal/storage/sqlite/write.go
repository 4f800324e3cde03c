package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mcoot/globaldex/internal/model"
	"github.com/mcoot/globaldex/internal/storage"
)

// Write runs fn in a single IMMEDIATE transaction while holding the
// write-section. The transaction commits if fn returns nil.
func (s *Store) Write(ctx context.Context, fn func(tx storage.WriteTx) error) (err error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write: %w", translate(err))
	}
	defer func() {
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err = fn(&writeTx{tx: sqlTx}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit write: %w", translate(err))
	}
	return nil
}

type writeTx struct {
	tx *sql.Tx
}

var _ storage.WriteTx = (*writeTx)(nil)

func (t *writeTx) UpsertPlayer(ctx context.Context, id model.PlayerID, rawName, safeName string, now time.Time) (bool, error) {
	ts := formatTime(now)
	res, err := t.tx.ExecContext(ctx, `
INSERT INTO players (player_id, display_name, safe_name, created_at, updated_at, last_seen_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(player_id) DO NOTHING`,
		string(id), rawName, safeName, ts, ts, ts)
	if err != nil {
		return false, fmt.Errorf("insert player: %w", translate(err))
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}

	if _, err := t.tx.ExecContext(ctx, `
UPDATE players SET display_name = ?, safe_name = ?, updated_at = ?, last_seen_at = ?
WHERE player_id = ?`,
		rawName, safeName, ts, ts, string(id)); err != nil {
		return false, fmt.Errorf("refresh player: %w", translate(err))
	}
	return false, nil
}

func (t *writeTx) PlayerExists(ctx context.Context, id model.PlayerID) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(ctx,
		`SELECT 1 FROM players WHERE player_id = ?`, string(id)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check player: %w", translate(err))
	}
	return true, nil
}

func (t *writeTx) GetCaptureShiny(ctx context.Context, id model.PlayerID, species string) (bool, bool, error) {
	return captureShiny(ctx, t.tx, id, species)
}

func (t *writeTx) SnapshotSpeciesCounts(ctx context.Context, species string) (model.SpeciesCounts, error) {
	return speciesCounts(ctx, t.tx, species)
}

func (t *writeTx) InsertCaptureIfAbsent(ctx context.Context, id model.PlayerID, species string, shiny bool, capturedAt time.Time) (bool, error) {
	exists, err := t.PlayerExists(ctx, id)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, model.ErrPlayerNotRegistered
	}

	res, err := t.tx.ExecContext(ctx, `
INSERT INTO captures (player_id, species, shiny, captured_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(player_id, species) DO NOTHING`,
		string(id), species, boolToInt(shiny), formatTime(capturedAt))
	if err != nil {
		return false, fmt.Errorf("insert capture: %w", translate(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert capture: %w", translate(err))
	}
	return n > 0, nil
}

func (t *writeTx) UpgradeToShinyIfNonShiny(ctx context.Context, id model.PlayerID, species string) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
UPDATE captures SET shiny = 1
WHERE player_id = ? AND species = ? AND shiny = 0`,
		string(id), species)
	if err != nil {
		return false, fmt.Errorf("upgrade capture: %w", translate(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upgrade capture: %w", translate(err))
	}
	return n > 0, nil
}

func (t *writeTx) DeleteCapture(ctx context.Context, id model.PlayerID, species string) (int, error) {
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM captures WHERE player_id = ? AND species = ?`, string(id), species)
	if err != nil {
		return 0, fmt.Errorf("delete capture: %w", translate(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete capture: %w", translate(err))
	}
	return int(n), nil
}

func (t *writeTx) RenamePlayer(ctx context.Context, id model.PlayerID, rawName, safeName string, now time.Time) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
UPDATE players SET display_name = ?, safe_name = ?, updated_at = ?
WHERE player_id = ?`,
		rawName, safeName, formatTime(now), string(id))
	if err != nil {
		return false, fmt.Errorf("rename player: %w", translate(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rename player: %w", translate(err))
	}
	return n > 0, nil
}

func (t *writeTx) DeletePlayer(ctx context.Context, id model.PlayerID) (bool, error) {
	if _, err := t.tx.ExecContext(ctx,
		`DELETE FROM captures WHERE player_id = ?`, string(id)); err != nil {
		return false, fmt.Errorf("delete player captures: %w", translate(err))
	}
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM players WHERE player_id = ?`, string(id))
	if err != nil {
		return false, fmt.Errorf("delete player: %w", translate(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete player: %w", translate(err))
	}
	return n > 0, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
