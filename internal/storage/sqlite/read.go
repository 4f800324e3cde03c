package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mcoot/globaldex/internal/model"
)

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const nameKeyExpr = `COALESCE(NULLIF(p.safe_name, ''), NULLIF(p.display_name, ''), 'Unknown')`

const summarySelect = `
SELECT p.player_id, p.display_name, p.safe_name, p.created_at, p.last_seen_at,
       COUNT(c.species) AS total,
       COALESCE(SUM(c.shiny), 0) AS shinies
FROM players p
LEFT JOIN captures c ON c.player_id = p.player_id`

const summaryOrder = `
GROUP BY p.player_id
ORDER BY total DESC, shinies DESC, ` + nameKeyExpr + ` COLLATE NOCASE ASC`

func captureShiny(ctx context.Context, q queryer, id model.PlayerID, species string) (bool, bool, error) {
	var shiny int
	err := q.QueryRowContext(ctx,
		`SELECT shiny FROM captures WHERE player_id = ? AND species = ?`,
		string(id), species).Scan(&shiny)
	if errors.Is(err, sql.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("read capture: %w", translate(err))
	}
	return shiny != 0, true, nil
}

func speciesCounts(ctx context.Context, q queryer, species string) (model.SpeciesCounts, error) {
	var counts model.SpeciesCounts
	err := q.QueryRowContext(ctx, `
SELECT COUNT(DISTINCT player_id), COALESCE(SUM(shiny), 0)
FROM captures WHERE species = ?`, species).Scan(&counts.DistinctPlayers, &counts.ShinyRows)
	if err != nil {
		return model.SpeciesCounts{}, fmt.Errorf("count species: %w", translate(err))
	}
	return counts, nil
}

func (s *Store) GetCaptureShiny(ctx context.Context, id model.PlayerID, species string) (bool, bool, error) {
	return captureShiny(ctx, s.db, id, species)
}

func (s *Store) SpeciesCounts(ctx context.Context, species string) (model.SpeciesCounts, error) {
	return speciesCounts(ctx, s.db, species)
}

func (s *Store) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	var (
		p                          model.Player
		rawID                      string
		created, updated, lastSeen string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT player_id, display_name, safe_name, created_at, updated_at, last_seen_at
FROM players WHERE player_id = ?`, string(id)).
		Scan(&rawID, &p.DisplayName, &p.SafeName, &created, &updated, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get player: %w", translate(err))
	}
	p.ID = model.PlayerID(rawID)
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	p.LastSeenAt = parseTime(lastSeen)
	return &p, nil
}

func (s *Store) ListCaptures(ctx context.Context, id model.PlayerID) ([]model.Capture, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT species, shiny, captured_at FROM captures
WHERE player_id = ?
ORDER BY species COLLATE NOCASE ASC`, string(id))
	if err != nil {
		return nil, fmt.Errorf("list captures: %w", translate(err))
	}
	defer rows.Close()

	var captures []model.Capture
	for rows.Next() {
		var (
			c          model.Capture
			shiny      int
			capturedAt string
		)
		if err := rows.Scan(&c.Species, &shiny, &capturedAt); err != nil {
			return nil, fmt.Errorf("scan capture: %w", translate(err))
		}
		c.PlayerID = id
		c.Shiny = shiny != 0
		c.CapturedAt = parseTime(capturedAt)
		captures = append(captures, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list captures: %w", translate(err))
	}
	return captures, nil
}

func (s *Store) querySummaries(ctx context.Context, where, tail string, args ...any) ([]model.PlayerSummary, error) {
	rows, err := s.db.QueryContext(ctx, summarySelect+" "+where+summaryOrder+" "+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("query players: %w", translate(err))
	}
	defer rows.Close()

	var summaries []model.PlayerSummary
	for rows.Next() {
		var (
			sum               model.PlayerSummary
			rawID             string
			created, lastSeen string
		)
		if err := rows.Scan(&rawID, &sum.DisplayName, &sum.SafeName, &created, &lastSeen, &sum.Total, &sum.Shinies); err != nil {
			return nil, fmt.Errorf("scan player: %w", translate(err))
		}
		sum.ID = model.PlayerID(rawID)
		sum.CreatedAt = parseTime(created)
		sum.LastSeenAt = parseTime(lastSeen)
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query players: %w", translate(err))
	}
	return summaries, nil
}

func (s *Store) ListPlayers(ctx context.Context) ([]model.PlayerSummary, error) {
	return s.querySummaries(ctx, "", "")
}

func (s *Store) Leaderboard(ctx context.Context, limit int) ([]model.PlayerSummary, error) {
	return s.querySummaries(ctx, "", "LIMIT ?", sqlLimit(limit))
}

func (s *Store) FindPlayer(ctx context.Context, query string) (*model.PlayerSummary, error) {
	found, err := s.querySummaries(ctx,
		"WHERE p.player_id = ? OR p.safe_name LIKE '%' || ? || '%'", "LIMIT 1", query, query)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, model.ErrPlayerNotFound
	}
	return &found[0], nil
}

func (s *Store) PlayerRank(ctx context.Context, p model.PlayerSummary) (int, error) {
	var above int
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM (
    SELECT COUNT(c.species) AS total,
           COALESCE(SUM(c.shiny), 0) AS shinies,
           `+nameKeyExpr+` AS name_key
    FROM players p
    LEFT JOIN captures c ON c.player_id = p.player_id
    GROUP BY p.player_id
) lb
WHERE lb.total > ?
   OR (lb.total = ? AND lb.shinies > ?)
   OR (lb.total = ? AND lb.shinies = ? AND lb.name_key COLLATE NOCASE < ?)`,
		p.Total, p.Total, p.Shinies, p.Total, p.Shinies, p.NameKey()).Scan(&above)
	if err != nil {
		return 0, fmt.Errorf("player rank: %w", translate(err))
	}
	return above + 1, nil
}

func (s *Store) SearchSpecies(ctx context.Context, term string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT DISTINCT species FROM captures
WHERE species LIKE '%' || ? || '%'
ORDER BY species COLLATE NOCASE ASC
LIMIT ?`, term, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("search species: %w", translate(err))
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan species: %w", translate(err))
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search species: %w", translate(err))
	}
	return names, nil
}

func (s *Store) CompletionLeaderboard(ctx context.Context, limit int) ([]model.CompletionEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT p.player_id, p.display_name, p.safe_name, COUNT(DISTINCT c.species) AS unique_species
FROM players p
JOIN captures c ON c.player_id = p.player_id
WHERE c.species NOT LIKE 'mega %' AND c.species NOT LIKE 'gmax %'
GROUP BY p.player_id
ORDER BY unique_species DESC, `+nameKeyExpr+` COLLATE NOCASE ASC
LIMIT ?`, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("completion leaderboard: %w", translate(err))
	}
	defer rows.Close()

	var entries []model.CompletionEntry
	for rows.Next() {
		var (
			e     model.CompletionEntry
			rawID string
		)
		if err := rows.Scan(&rawID, &e.DisplayName, &e.SafeName, &e.UniqueSpecies); err != nil {
			return nil, fmt.Errorf("scan completion: %w", translate(err))
		}
		e.ID = model.PlayerID(rawID)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("completion leaderboard: %w", translate(err))
	}
	return entries, nil
}

// sqlLimit maps a non-positive limit to SQLite's "no limit"
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
