package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/globaldex/internal/api"
	"github.com/mcoot/globaldex/internal/factory"
	"github.com/mcoot/globaldex/internal/model"
	"github.com/mcoot/globaldex/internal/storage"
	"github.com/mcoot/globaldex/internal/storage/sqlite"
	"github.com/mcoot/globaldex/internal/testutil"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func startServer(t *testing.T) string {
	t.Helper()
	app := factory.NewTestApp()
	app.Start(t.Context())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = app.Shutdown(ctx)
	})

	srv := httptest.NewServer(api.NewRouter(api.RouterConfig{
		Logger:         testutil.NopLogger(),
		AdminUserAgent: "Global-Dex-Admin",
		Intake:         app.Intake,
		Dex:            app.Dex,
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func decodeOutput[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestClientSendsAdminUserAgent(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.UserAgent()
		_, _ = w.Write([]byte(`{"ok":true,"queues":[]}`))
	}))
	defer srv.Close()

	_, err := runCLI(t, "--server", srv.URL, "--user-agent", "Dex-Ops", "health")
	require.NoError(t, err)
	assert.Equal(t, "Dex-Ops", ua)
}

func TestClientReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":"QUEUE_FULL","message":"Queue is full"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	status, err := c.Do(http.MethodPost, "/api/v1/capture", map[string]any{}, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Contains(t, err.Error(), "QUEUE_FULL")
}

func TestAPICommands(t *testing.T) {
	url := startServer(t)
	base := []string{"--server", url, "-o", "json"}

	out, err := runCLI(t, append(base, "health")...)
	require.NoError(t, err)
	assert.True(t, decodeOutput[HealthResult](t, out).OK)

	out, err = runCLI(t, append(base, "register", "--id", "player-1", "--name", "Ash")...)
	require.NoError(t, err)
	reg := decodeOutput[RegisterResult](t, out)
	assert.True(t, reg.Created)

	out, err = runCLI(t, append(base, "capture", "--id", "player-1", "--species", "Pikachu", "--shiny")...)
	require.NoError(t, err)
	capture := decodeOutput[CaptureResult](t, out)
	assert.True(t, capture.Inserted)
	assert.True(t, capture.FirstShiny)

	out, err = runCLI(t, append(base, "dex", "--id", "player-1")...)
	require.NoError(t, err)
	dex := decodeOutput[Dex](t, out)
	assert.Equal(t, 1, dex.Count)
	assert.Equal(t, 1, dex.ShinyCount)

	out, err = runCLI(t, append(base, "caught-count", "--species", "Pikachu", "--non-shiny")...)
	require.NoError(t, err)
	count := decodeOutput[CaughtCount](t, out)
	assert.Equal(t, "non-shiny", count.Filter)
	assert.Equal(t, 0, count.Players)

	out, err = runCLI(t, append(base, "leaderboard", "--limit", "5")...)
	require.NoError(t, err)
	require.Len(t, decodeOutput[Leaderboard](t, out).Entries, 1)

	out, err = runCLI(t, append(base, "leaderboard-completion")...)
	require.NoError(t, err)
	require.Len(t, decodeOutput[Completion](t, out).Entries, 1)

	out, err = runCLI(t, append(base, "search-player", "--query", "ash")...)
	require.NoError(t, err)
	assert.Equal(t, 1, decodeOutput[PlayerMatch](t, out).Rank)

	out, err = runCLI(t, append(base, "uncapture", "--id", "player-1", "--species", "Pikachu")...)
	require.NoError(t, err)
	assert.Equal(t, 1, decodeOutput[UncaptureResult](t, out).Deleted)
}

func TestCaptureUnregisteredFails(t *testing.T) {
	url := startServer(t)

	_, err := runCLI(t, "--server", url, "capture", "--id", "ghost", "--species", "Eevee")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PLAYER_NOT_REGISTERED")
}

func TestCaughtCountFlagsExclusive(t *testing.T) {
	_, err := runCLI(t, "caught-count", "--species", "Eevee", "--shiny", "--non-shiny")
	assert.Error(t, err)
}

func seedDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dex.db")
	store, err := sqlite.Open(sqlite.Config{Path: path})
	require.NoError(t, err)
	defer func() { require.NoError(t, store.Close()) }()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Write(context.Background(), func(tx storage.WriteTx) error {
		if _, err := tx.UpsertPlayer(context.Background(), "player-1", "Ash", "Ash", now); err != nil {
			return err
		}
		_, err := tx.InsertCaptureIfAbsent(context.Background(), "player-1", "Eevee", false, now)
		return err
	}))
	return path
}

func TestDBCommands(t *testing.T) {
	path := seedDB(t)

	out, err := runCLI(t, "-o", "json", "db", "--db", path, "list-players")
	require.NoError(t, err)
	list := decodeOutput[PlayerList](t, out)
	require.Len(t, list.Players, 1)
	assert.Equal(t, 1, list.Players[0].Total)

	_, err = runCLI(t, "db", "--db", path, "rename-player", "--id", "player-1", "--name", "Red")
	require.NoError(t, err)

	out, err = runCLI(t, "-o", "json", "db", "--db", path, "list-players")
	require.NoError(t, err)
	assert.Equal(t, "Red", decodeOutput[PlayerList](t, out).Players[0].SafeName)

	_, err = runCLI(t, "db", "--db", path, "rename-player", "--id", "nobody", "--name", "X")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrPlayerNotFound)

	out, err = runCLI(t, "-o", "json", "db", "--db", path, "backup")
	require.NoError(t, err)
	result := decodeOutput[BackupResult](t, out)
	assert.True(t, strings.HasPrefix(result.Path, path+".bak."))
	_, statErr := os.Stat(result.Path)
	assert.NoError(t, statErr)

	_, err = runCLI(t, "db", "--db", path, "delete-player", "--id", "player-1")
	require.NoError(t, err)

	out, err = runCLI(t, "-o", "json", "db", "--db", path, "list-players")
	require.NoError(t, err)
	assert.Empty(t, decodeOutput[PlayerList](t, out).Players)
}

func TestDBBackupUploadRequiresBucket(t *testing.T) {
	t.Setenv("GLOBALDEX_BACKUP_BUCKET", "")
	path := seedDB(t)

	_, err := runCLI(t, "db", "--db", path, "backup", "--upload")
	assert.Error(t, err)
}
