package e2e_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/globaldex/internal/api"
	"github.com/mcoot/globaldex/internal/factory"
	"github.com/mcoot/globaldex/internal/storage/sqlite"
	"github.com/mcoot/globaldex/internal/testutil"
)

const adminAgent = "Global-Dex-Admin"

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	// Find project root (where go.mod is)
	projectRoot := findProjectRoot(t)

	// Build the CLI binary
	binaryPath := filepath.Join(t.TempDir(), "dexadmin-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/dexadmin")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	cmd.Dir = os.TempDir()
	output, err := cmd.Output()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// testServer runs the real server stack on a loopback port
type testServer struct {
	url    string
	dbPath string
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "globaldex.db")
	logger := testutil.NopLogger()

	app, err := factory.New(factory.Config{
		Logger:       logger,
		StorageType:  factory.StorageTypeSQLite,
		SQLiteConfig: &sqlite.Config{Path: dbPath},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	app.Start(ctx)

	router := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		AdminUserAgent: adminAgent,
		Intake:         app.Intake,
		Dex:            app.Dex,
	})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	serverCfg := api.DefaultServerConfig()
	serverCfg.ShutdownTimeout = 5 * time.Second
	server := api.NewServer(router, serverCfg, logger)

	go func() {
		if err := server.Serve(listener); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := "http://" + listener.Addr().String()
	waitForServer(t, serverURL+"/api/v1/health")

	t.Cleanup(func() {
		defer cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
		_ = app.Shutdown(shutdownCtx)
	})

	return &testServer{url: serverURL, dbPath: dbPath}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// Response types for JSON parsing
type healthResponse struct {
	OK bool `json:"ok"`
}

type registerResponse struct {
	OK      bool `json:"ok"`
	Queued  bool `json:"queued"`
	Created bool `json:"created"`
}

type captureResponse struct {
	OK           bool   `json:"ok"`
	Ignored      bool   `json:"ignored"`
	Reason       string `json:"reason"`
	Inserted     bool   `json:"inserted"`
	Upgraded     bool   `json:"shiny_upgraded"`
	FirstOverall bool   `json:"first_overall"`
	FirstShiny   bool   `json:"first_shiny"`
}

type dexResponse struct {
	ID         string  `json:"id"`
	SafeName   *string `json:"safe_name"`
	Count      int     `json:"count"`
	ShinyCount int     `json:"shiny_count"`
}

type leaderboardResponse struct {
	Entries []struct {
		ID    string `json:"id"`
		Total int    `json:"total"`
	} `json:"entries"`
}

type playerListResponse struct {
	Players []struct {
		ID       string `json:"id"`
		SafeName string `json:"safe_name"`
	} `json:"players"`
}

func parse[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), "output: %s", out)
	return v
}

func waitForDex(t *testing.T, cli *cliRunner, id string, count int) dexResponse {
	t.Helper()
	var dex dexResponse
	require.Eventually(t, func() bool {
		out, err := cli.run("dex", "--id", id)
		if err != nil {
			return false
		}
		dex = parse[dexResponse](t, out)
		return dex.SafeName != nil && dex.Count == count
	}, 5*time.Second, 50*time.Millisecond)
	return dex
}

func TestCLIEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the CLI binary")
	}

	ts := startTestServer(t)
	cli := newCLIRunner(t, ts.url)

	out, err := cli.run("health")
	require.NoError(t, err)
	assert.True(t, parse[healthResponse](t, out).OK)

	// Register acknowledges immediately by default
	out, err = cli.run("register", "--id", "76561198000000000", "--name", "Ash")
	require.NoError(t, err)
	assert.True(t, parse[registerResponse](t, out).Queued)
	waitForDex(t, cli, "76561198000000000", 0)

	// Captures wait for the merge by default
	out, err = cli.run("capture", "--id", "76561198000000000", "--species", "Alolan Raichu")
	require.NoError(t, err)
	first := parse[captureResponse](t, out)
	assert.True(t, first.Inserted)
	assert.True(t, first.FirstOverall)

	out, err = cli.run("capture", "--id", "76561198000000000", "--species", "Alolan Raichu", "--shiny")
	require.NoError(t, err)
	upgrade := parse[captureResponse](t, out)
	assert.True(t, upgrade.Upgraded)
	assert.True(t, upgrade.FirstShiny)

	out, err = cli.run("capture", "--id", "76561198000000000", "--species", "Gmax Pikachu")
	require.NoError(t, err)
	assert.True(t, parse[captureResponse](t, out).Ignored)

	dex := waitForDex(t, cli, "76561198000000000", 1)
	assert.Equal(t, 1, dex.ShinyCount)

	out, err = cli.run("leaderboard", "--limit", "20")
	require.NoError(t, err)
	board := parse[leaderboardResponse](t, out)
	require.Len(t, board.Entries, 1)
	assert.Equal(t, 1, board.Entries[0].Total)

	// DB commands read the same file the server writes
	out, err = cli.run("db", "--db", ts.dbPath, "list-players")
	require.NoError(t, err)
	players := parse[playerListResponse](t, out)
	require.Len(t, players.Players, 1)
	assert.Equal(t, "Ash", players.Players[0].SafeName)

	_, err = cli.run("capture", "--id", "nobody", "--species", "Eevee")
	assert.Error(t, err)
}
