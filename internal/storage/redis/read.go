package redis

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/globaldex/internal/model"
	"github.com/mcoot/globaldex/internal/storage"
)

func (s *Storage) getCapture(ctx context.Context, id model.PlayerID, species string) (storedCapture, bool, error) {
	data, err := s.client.HGet(ctx, capturesKey(id), species).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return storedCapture{}, false, nil
		}
		return storedCapture{}, false, translate(err)
	}

	var c storedCapture
	if err := json.Unmarshal(data, &c); err != nil {
		return storedCapture{}, false, err
	}
	return c, true, nil
}

func (s *Storage) GetCaptureShiny(ctx context.Context, id model.PlayerID, species string) (bool, bool, error) {
	c, found, err := s.getCapture(ctx, id, species)
	return c.Shiny, found, err
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	fields, err := s.client.HGetAll(ctx, playerKey(id)).Result()
	if err != nil {
		return nil, translate(err)
	}
	if len(fields) == 0 {
		return nil, model.ErrPlayerNotFound
	}
	return decodePlayer(id, fields), nil
}

func decodePlayer(id model.PlayerID, fields map[string]string) *model.Player {
	return &model.Player{
		ID:          id,
		DisplayName: fields["display_name"],
		SafeName:    fields["safe_name"],
		CreatedAt:   parseTime(fields["created_at"]),
		UpdatedAt:   parseTime(fields["updated_at"]),
		LastSeenAt:  parseTime(fields["last_seen_at"]),
	}
}

func (s *Storage) ListCaptures(ctx context.Context, id model.PlayerID) ([]model.Capture, error) {
	entries, err := s.client.HGetAll(ctx, capturesKey(id)).Result()
	if err != nil {
		return nil, translate(err)
	}

	names := make([]string, 0, len(entries))
	for species := range entries {
		names = append(names, species)
	}
	storage.SortSpeciesNames(names)

	captures := make([]model.Capture, 0, len(names))
	for _, species := range names {
		var c storedCapture
		if err := json.Unmarshal([]byte(entries[species]), &c); err != nil {
			return nil, err
		}
		captures = append(captures, model.Capture{
			PlayerID:   id,
			Species:    species,
			Shiny:      c.Shiny,
			CapturedAt: c.CapturedAt,
		})
	}
	return captures, nil
}

// loadPlayers fetches every player's fields and capture set in one pipeline
func (s *Storage) loadPlayers(ctx context.Context) (map[model.PlayerID]map[string]string, map[model.PlayerID]map[string]string, error) {
	ids, err := s.client.SMembers(ctx, playersIndexKey()).Result()
	if err != nil {
		return nil, nil, translate(err)
	}
	if len(ids) == 0 {
		return nil, nil, nil
	}

	pipe := s.client.Pipeline()
	playerCmds := make(map[model.PlayerID]*redis.MapStringStringCmd, len(ids))
	captureCmds := make(map[model.PlayerID]*redis.MapStringStringCmd, len(ids))
	for _, raw := range ids {
		id := model.PlayerID(raw)
		playerCmds[id] = pipe.HGetAll(ctx, playerKey(id))
		captureCmds[id] = pipe.HGetAll(ctx, capturesKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, nil, translate(err)
	}

	players := make(map[model.PlayerID]map[string]string, len(ids))
	captures := make(map[model.PlayerID]map[string]string, len(ids))
	for id, cmd := range playerCmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		players[id] = fields
		captures[id] = captureCmds[id].Val()
	}
	return players, captures, nil
}

func (s *Storage) ListPlayers(ctx context.Context) ([]model.PlayerSummary, error) {
	players, captures, err := s.loadPlayers(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.PlayerSummary, 0, len(players))
	for id, fields := range players {
		p := decodePlayer(id, fields)
		summary := model.PlayerSummary{
			ID:          id,
			DisplayName: p.DisplayName,
			SafeName:    p.SafeName,
			CreatedAt:   p.CreatedAt,
			LastSeenAt:  p.LastSeenAt,
		}
		for _, raw := range captures[id] {
			var c storedCapture
			if err := json.Unmarshal([]byte(raw), &c); err != nil {
				return nil, err
			}
			summary.Total++
			if c.Shiny {
				summary.Shinies++
			}
		}
		summaries = append(summaries, summary)
	}
	storage.SortSummaries(summaries)
	return summaries, nil
}

func (s *Storage) Leaderboard(ctx context.Context, limit int) ([]model.PlayerSummary, error) {
	summaries, err := s.ListPlayers(ctx)
	if err != nil {
		return nil, err
	}
	return storage.Truncate(summaries, limit), nil
}

func (s *Storage) FindPlayer(ctx context.Context, query string) (*model.PlayerSummary, error) {
	summaries, err := s.ListPlayers(ctx)
	if err != nil {
		return nil, err
	}
	for _, summary := range summaries {
		if string(summary.ID) == query || storage.ContainsFold(summary.SafeName, query) {
			found := summary
			return &found, nil
		}
	}
	return nil, model.ErrPlayerNotFound
}

func (s *Storage) PlayerRank(ctx context.Context, p model.PlayerSummary) (int, error) {
	summaries, err := s.ListPlayers(ctx)
	if err != nil {
		return 0, err
	}
	return storage.RankIn(summaries, p), nil
}

func (s *Storage) SpeciesCounts(ctx context.Context, species string) (model.SpeciesCounts, error) {
	flags, err := s.client.HVals(ctx, speciesKey(species)).Result()
	if err != nil {
		return model.SpeciesCounts{}, translate(err)
	}

	counts := model.SpeciesCounts{DistinctPlayers: len(flags)}
	for _, flag := range flags {
		if flag == "1" {
			counts.ShinyRows++
		}
	}
	return counts, nil
}

func (s *Storage) SearchSpecies(ctx context.Context, term string, limit int) ([]string, error) {
	all, err := s.client.SMembers(ctx, speciesIndexKey()).Result()
	if err != nil {
		return nil, translate(err)
	}

	var names []string
	for _, species := range all {
		if term == "" || storage.ContainsFold(species, term) {
			names = append(names, species)
		}
	}
	storage.SortSpeciesNames(names)
	return storage.Truncate(names, limit), nil
}

func (s *Storage) CompletionLeaderboard(ctx context.Context, limit int) ([]model.CompletionEntry, error) {
	players, captures, err := s.loadPlayers(ctx)
	if err != nil {
		return nil, err
	}

	var entries []model.CompletionEntry
	for id, fields := range players {
		unique := 0
		for species := range captures[id] {
			if !model.IsUntrackedSpecies(species) {
				unique++
			}
		}
		if unique == 0 {
			continue
		}
		entries = append(entries, model.CompletionEntry{
			ID:            id,
			DisplayName:   fields["display_name"],
			SafeName:      fields["safe_name"],
			UniqueSpecies: unique,
		})
	}
	storage.SortCompletion(entries)
	return storage.Truncate(entries, limit), nil
}
