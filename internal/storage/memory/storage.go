package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mcoot/globaldex/internal/model"
	"github.com/mcoot/globaldex/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	// writeMu is the write-section; mu guards the maps against concurrent readers
	writeMu sync.Mutex
	mu      sync.RWMutex

	players     map[model.PlayerID]*model.Player
	captures    map[model.PlayerID]map[string]model.Capture
	unavailable bool
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:  make(map[model.PlayerID]*model.Player),
		captures: make(map[model.PlayerID]map[string]model.Capture),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// SetUnavailable makes every subsequent operation fail with ErrStoreUnavailable
func (s *Storage) SetUnavailable(unavailable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = unavailable
}

// Close is a no-op for the in-memory store
func (s *Storage) Close() error {
	return nil
}

func (s *Storage) checkAvailable() error {
	if s.unavailable {
		return model.ErrStoreUnavailable
	}
	return nil
}

// Write runs fn under the write-section. Changes made by fn are undone if it
// returns an error.
func (s *Storage) Write(ctx context.Context, fn func(tx storage.WriteTx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &writeTx{s: s}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

type writeTx struct {
	s    *Storage
	undo []func()
}

var _ storage.WriteTx = (*writeTx)(nil)

func (t *writeTx) rollback() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *writeTx) UpsertPlayer(ctx context.Context, id model.PlayerID, rawName, safeName string, now time.Time) (bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.checkAvailable(); err != nil {
		return false, err
	}

	existing, ok := t.s.players[id]
	if !ok {
		t.s.players[id] = &model.Player{
			ID:          id,
			DisplayName: rawName,
			SafeName:    safeName,
			CreatedAt:   now,
			UpdatedAt:   now,
			LastSeenAt:  now,
		}
		t.undo = append(t.undo, func() { delete(t.s.players, id) })
		return true, nil
	}

	prev := *existing
	updated := prev
	updated.DisplayName = rawName
	updated.SafeName = safeName
	updated.UpdatedAt = now
	updated.LastSeenAt = now
	t.s.players[id] = &updated
	t.undo = append(t.undo, func() { t.s.players[id] = &prev })
	return false, nil
}

func (t *writeTx) PlayerExists(ctx context.Context, id model.PlayerID) (bool, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if err := t.s.checkAvailable(); err != nil {
		return false, err
	}
	_, ok := t.s.players[id]
	return ok, nil
}

func (t *writeTx) GetCaptureShiny(ctx context.Context, id model.PlayerID, species string) (bool, bool, error) {
	return t.s.GetCaptureShiny(ctx, id, species)
}

func (t *writeTx) SnapshotSpeciesCounts(ctx context.Context, species string) (model.SpeciesCounts, error) {
	return t.s.SpeciesCounts(ctx, species)
}

func (t *writeTx) InsertCaptureIfAbsent(ctx context.Context, id model.PlayerID, species string, shiny bool, capturedAt time.Time) (bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.checkAvailable(); err != nil {
		return false, err
	}
	if _, ok := t.s.players[id]; !ok {
		return false, model.ErrPlayerNotRegistered
	}

	dex, ok := t.s.captures[id]
	if !ok {
		dex = make(map[string]model.Capture)
		t.s.captures[id] = dex
	}
	if _, exists := dex[species]; exists {
		return false, nil
	}

	dex[species] = model.Capture{PlayerID: id, Species: species, Shiny: shiny, CapturedAt: capturedAt}
	t.undo = append(t.undo, func() { delete(dex, species) })
	return true, nil
}

func (t *writeTx) UpgradeToShinyIfNonShiny(ctx context.Context, id model.PlayerID, species string) (bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.checkAvailable(); err != nil {
		return false, err
	}

	dex := t.s.captures[id]
	c, ok := dex[species]
	if !ok || c.Shiny {
		return false, nil
	}
	prev := c
	c.Shiny = true
	dex[species] = c
	t.undo = append(t.undo, func() { dex[species] = prev })
	return true, nil
}

func (t *writeTx) DeleteCapture(ctx context.Context, id model.PlayerID, species string) (int, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.checkAvailable(); err != nil {
		return 0, err
	}

	dex := t.s.captures[id]
	c, ok := dex[species]
	if !ok {
		return 0, nil
	}
	delete(dex, species)
	t.undo = append(t.undo, func() { dex[species] = c })
	return 1, nil
}

func (t *writeTx) RenamePlayer(ctx context.Context, id model.PlayerID, rawName, safeName string, now time.Time) (bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.checkAvailable(); err != nil {
		return false, err
	}

	existing, ok := t.s.players[id]
	if !ok {
		return false, nil
	}
	prev := *existing
	renamed := prev
	renamed.DisplayName = rawName
	renamed.SafeName = safeName
	renamed.UpdatedAt = now
	t.s.players[id] = &renamed
	t.undo = append(t.undo, func() { t.s.players[id] = &prev })
	return true, nil
}

func (t *writeTx) DeletePlayer(ctx context.Context, id model.PlayerID) (bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.checkAvailable(); err != nil {
		return false, err
	}

	player, ok := t.s.players[id]
	if !ok {
		return false, nil
	}
	dex, hadDex := t.s.captures[id]
	delete(t.s.players, id)
	delete(t.s.captures, id)
	t.undo = append(t.undo, func() {
		t.s.players[id] = player
		if hadDex {
			t.s.captures[id] = dex
		}
	})
	return true, nil
}

// Read operations

func (s *Storage) GetCaptureShiny(ctx context.Context, id model.PlayerID, species string) (bool, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkAvailable(); err != nil {
		return false, false, err
	}
	c, ok := s.captures[id][species]
	if !ok {
		return false, false, nil
	}
	return c.Shiny, true, nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkAvailable(); err != nil {
		return nil, err
	}
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	p := *player
	return &p, nil
}

func (s *Storage) ListCaptures(ctx context.Context, id model.PlayerID) ([]model.Capture, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkAvailable(); err != nil {
		return nil, err
	}

	dex := s.captures[id]
	names := make([]string, 0, len(dex))
	for species := range dex {
		names = append(names, species)
	}
	storage.SortSpeciesNames(names)

	captures := make([]model.Capture, 0, len(names))
	for _, species := range names {
		captures = append(captures, dex[species])
	}
	return captures, nil
}

func (s *Storage) ListPlayers(ctx context.Context) ([]model.PlayerSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkAvailable(); err != nil {
		return nil, err
	}
	return s.summariesLocked(), nil
}

func (s *Storage) summariesLocked() []model.PlayerSummary {
	summaries := make([]model.PlayerSummary, 0, len(s.players))
	for id, p := range s.players {
		summary := model.PlayerSummary{
			ID:          id,
			DisplayName: p.DisplayName,
			SafeName:    p.SafeName,
			CreatedAt:   p.CreatedAt,
			LastSeenAt:  p.LastSeenAt,
		}
		for _, c := range s.captures[id] {
			summary.Total++
			if c.Shiny {
				summary.Shinies++
			}
		}
		summaries = append(summaries, summary)
	}
	storage.SortSummaries(summaries)
	return summaries
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
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkAvailable(); err != nil {
		return model.SpeciesCounts{}, err
	}

	var counts model.SpeciesCounts
	for _, dex := range s.captures {
		c, ok := dex[species]
		if !ok {
			continue
		}
		counts.DistinctPlayers++
		if c.Shiny {
			counts.ShinyRows++
		}
	}
	return counts, nil
}

func (s *Storage) SearchSpecies(ctx context.Context, term string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkAvailable(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var names []string
	for _, dex := range s.captures {
		for species := range dex {
			if _, ok := seen[species]; ok {
				continue
			}
			if term != "" && !storage.ContainsFold(species, term) {
				continue
			}
			seen[species] = struct{}{}
			names = append(names, species)
		}
	}
	storage.SortSpeciesNames(names)
	return storage.Truncate(names, limit), nil
}

func (s *Storage) CompletionLeaderboard(ctx context.Context, limit int) ([]model.CompletionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkAvailable(); err != nil {
		return nil, err
	}

	var entries []model.CompletionEntry
	for id, p := range s.players {
		unique := 0
		for species := range s.captures[id] {
			if !model.IsUntrackedSpecies(species) {
				unique++
			}
		}
		if unique == 0 {
			continue
		}
		entries = append(entries, model.CompletionEntry{
			ID:            id,
			DisplayName:   p.DisplayName,
			SafeName:      p.SafeName,
			UniqueSpecies: unique,
		})
	}
	storage.SortCompletion(entries)
	return storage.Truncate(entries, limit), nil
}
