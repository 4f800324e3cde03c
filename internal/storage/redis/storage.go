package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/globaldex/internal/model"
	"github.com/mcoot/globaldex/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
//
// Each WriteTx primitive is applied as its own MULTI/EXEC pipeline, so a
// failing write function does not undo primitives that already ran.
type Storage struct {
	client  *redis.Client
	cfg     Config
	writeMu sync.Mutex
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, translate(err)
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// storedCapture is the encoded value in a player's captures hash
type storedCapture struct {
	Shiny      bool      `json:"shiny"`
	CapturedAt time.Time `json:"captured_at"`
}

// translate maps connection failures onto ErrStoreUnavailable
func translate(err error) error {
	if err == nil || errors.Is(err, redis.Nil) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, redis.ErrClosed) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func shinyFlag(shiny bool) string {
	if shiny {
		return "1"
	}
	return "0"
}

// Write runs fn while holding the write-section
func (s *Storage) Write(ctx context.Context, fn func(tx storage.WriteTx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&writeTx{s: s})
}

type writeTx struct {
	s *Storage
}

var _ storage.WriteTx = (*writeTx)(nil)

func (t *writeTx) UpsertPlayer(ctx context.Context, id model.PlayerID, rawName, safeName string, now time.Time) (bool, error) {
	ts := formatTime(now)
	key := playerKey(id)

	pipe := t.s.client.TxPipeline()
	created := pipe.HSetNX(ctx, key, "created_at", ts)
	pipe.HSet(ctx, key,
		"display_name", rawName,
		"safe_name", safeName,
		"updated_at", ts,
		"last_seen_at", ts,
	)
	pipe.SAdd(ctx, playersIndexKey(), string(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return false, translate(err)
	}
	return created.Val(), nil
}

func (t *writeTx) PlayerExists(ctx context.Context, id model.PlayerID) (bool, error) {
	ok, err := t.s.client.SIsMember(ctx, playersIndexKey(), string(id)).Result()
	if err != nil {
		return false, translate(err)
	}
	return ok, nil
}

func (t *writeTx) GetCaptureShiny(ctx context.Context, id model.PlayerID, species string) (bool, bool, error) {
	return t.s.GetCaptureShiny(ctx, id, species)
}

func (t *writeTx) SnapshotSpeciesCounts(ctx context.Context, species string) (model.SpeciesCounts, error) {
	return t.s.SpeciesCounts(ctx, species)
}

func (t *writeTx) InsertCaptureIfAbsent(ctx context.Context, id model.PlayerID, species string, shiny bool, capturedAt time.Time) (bool, error) {
	exists, err := t.PlayerExists(ctx, id)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, model.ErrPlayerNotRegistered
	}

	data, err := json.Marshal(storedCapture{Shiny: shiny, CapturedAt: capturedAt.UTC()})
	if err != nil {
		return false, err
	}
	// The capture and the species aggregate land in one MULTI so the
	// milestone snapshot never sees one without the other.
	var inserted bool
	err = t.s.client.Watch(ctx, func(tx *redis.Tx) error {
		held, err := tx.HExists(ctx, capturesKey(id), species).Result()
		if err != nil || held {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, capturesKey(id), species, data)
			pipe.HSet(ctx, speciesKey(species), string(id), shinyFlag(shiny))
			pipe.SAdd(ctx, speciesIndexKey(), species)
			return nil
		})
		if err != nil {
			return err
		}
		inserted = true
		return nil
	}, capturesKey(id))
	if err != nil {
		return false, translate(err)
	}
	return inserted, nil
}

func (t *writeTx) UpgradeToShinyIfNonShiny(ctx context.Context, id model.PlayerID, species string) (bool, error) {
	c, found, err := t.s.getCapture(ctx, id, species)
	if err != nil {
		return false, err
	}
	if !found || c.Shiny {
		return false, nil
	}

	c.Shiny = true
	data, err := json.Marshal(c)
	if err != nil {
		return false, err
	}
	pipe := t.s.client.TxPipeline()
	pipe.HSet(ctx, capturesKey(id), species, data)
	pipe.HSet(ctx, speciesKey(species), string(id), shinyFlag(true))
	if _, err := pipe.Exec(ctx); err != nil {
		return false, translate(err)
	}
	return true, nil
}

func (t *writeTx) DeleteCapture(ctx context.Context, id model.PlayerID, species string) (int, error) {
	n, err := t.s.client.HDel(ctx, capturesKey(id), species).Result()
	if err != nil {
		return 0, translate(err)
	}
	if n == 0 {
		return 0, nil
	}
	if err := t.dropSpeciesEntry(ctx, id, species); err != nil {
		return 0, err
	}
	return int(n), nil
}

// dropSpeciesEntry removes a player from a species aggregate and unindexes
// the species once nobody holds it
func (t *writeTx) dropSpeciesEntry(ctx context.Context, id model.PlayerID, species string) error {
	if err := t.s.client.HDel(ctx, speciesKey(species), string(id)).Err(); err != nil {
		return translate(err)
	}
	remaining, err := t.s.client.HLen(ctx, speciesKey(species)).Result()
	if err != nil {
		return translate(err)
	}
	if remaining == 0 {
		return translate(t.s.client.SRem(ctx, speciesIndexKey(), species).Err())
	}
	return nil
}

func (t *writeTx) RenamePlayer(ctx context.Context, id model.PlayerID, rawName, safeName string, now time.Time) (bool, error) {
	exists, err := t.PlayerExists(ctx, id)
	if err != nil || !exists {
		return false, err
	}
	if err := t.s.client.HSet(ctx, playerKey(id),
		"display_name", rawName,
		"safe_name", safeName,
		"updated_at", formatTime(now),
	).Err(); err != nil {
		return false, translate(err)
	}
	return true, nil
}

func (t *writeTx) DeletePlayer(ctx context.Context, id model.PlayerID) (bool, error) {
	exists, err := t.PlayerExists(ctx, id)
	if err != nil || !exists {
		return false, err
	}

	species, err := t.s.client.HKeys(ctx, capturesKey(id)).Result()
	if err != nil {
		return false, translate(err)
	}
	for _, name := range species {
		if err := t.dropSpeciesEntry(ctx, id, name); err != nil {
			return false, err
		}
	}

	pipe := t.s.client.TxPipeline()
	pipe.Del(ctx, playerKey(id), capturesKey(id))
	pipe.SRem(ctx, playersIndexKey(), string(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return false, translate(err)
	}
	return true, nil
}
