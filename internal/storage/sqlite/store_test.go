package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/globaldex/internal/model"
	"github.com/mcoot/globaldex/internal/storage"
	"github.com/mcoot/globaldex/internal/storage/storagetest"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "dex.db")
	s, err := Open(cfg)
	require.NoError(t, err)
	return s
}

func TestStoreSuite(t *testing.T) {
	var st storagetest.Suite
	st.NewStorage = func() storage.Storage {
		return openTestStore(st.T())
	}
	suite.Run(t, &st)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "dex.db")

	s, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, func(tx storage.WriteTx) error {
		_, err := tx.UpsertPlayer(ctx, "player-1", "Ash", "Ash", time.Now())
		return err
	}))
	require.NoError(t, s.Close())

	reopened, err := Open(cfg)
	require.NoError(t, err)
	defer reopened.Close()

	p, err := reopened.GetPlayer(ctx, "player-1")
	require.NoError(t, err)
	assert.Equal(t, "Ash", p.DisplayName)
}

func TestWriteRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	defer s.Close()

	err := s.Write(ctx, func(tx storage.WriteTx) error {
		if _, err := tx.UpsertPlayer(ctx, "player-1", "Ash", "Ash", time.Now()); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	_, err = s.GetPlayer(ctx, "player-1")
	assert.ErrorIs(t, err, model.ErrPlayerNotFound)
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.Leaderboard(ctx, 10)
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
}

func TestCheckpointAndBackup(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	defer s.Close()

	require.NoError(t, s.Write(ctx, func(tx storage.WriteTx) error {
		if _, err := tx.UpsertPlayer(ctx, "player-1", "Ash", "Ash", time.Now()); err != nil {
			return err
		}
		_, err := tx.InsertCaptureIfAbsent(ctx, "player-1", "Pikachu", true, time.Now())
		return err
	}))
	require.NoError(t, s.Checkpoint(ctx))

	dest := filepath.Join(t.TempDir(), "backup.db")
	require.NoError(t, s.BackupTo(ctx, dest))
	_, err := os.Stat(dest)
	require.NoError(t, err)

	assert.Error(t, s.BackupTo(ctx, dest), "existing destination must not be overwritten")

	backup, err := Open(Config{Path: dest})
	require.NoError(t, err)
	defer backup.Close()

	shiny, found, err := backup.GetCaptureShiny(ctx, "player-1", "Pikachu")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, shiny)
}

func TestUpMigration(t *testing.T) {
	sql := "-- +migrate Up\nCREATE TABLE a (x);\n-- +migrate Down\nDROP TABLE a;\n"
	assert.Equal(t, "\nCREATE TABLE a (x);\n", upMigration(sql))
	assert.Equal(t, "SELECT 1;", upMigration("SELECT 1;"))
}
