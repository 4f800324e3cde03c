package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil)), &buf
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestIsAdminAgent(t *testing.T) {
	assert.True(t, IsAdminAgent("Global-Dex-Admin", "Global-Dex-Admin"))
	assert.True(t, IsAdminAgent("  global-dex-admin ", "Global-Dex-Admin"))
	assert.False(t, IsAdminAgent("curl/8.0", "Global-Dex-Admin"))
	assert.False(t, IsAdminAgent("", ""))
}

func TestLoggingRecordsRequest(t *testing.T) {
	logger, buf := bufferLogger()
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hi"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("User-Agent", "tester")
	h.ServeHTTP(httptest.NewRecorder(), req)

	lines := logLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "http request", lines[0]["msg"])
	assert.Equal(t, "/api/v1/health", lines[0]["path"])
	assert.EqualValues(t, http.StatusTeapot, lines[0]["status"])
	assert.EqualValues(t, 2, lines[0]["size"])
	assert.Equal(t, "tester", lines[0]["user_agent"])
}

func TestAdminAuditOnlyForAdminAgent(t *testing.T) {
	logger, buf := bufferLogger()
	h := AdminAudit(logger, "Global-Dex-Admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/capture?x=1", nil)
	req.Header.Set("User-Agent", "curl/8.0")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Empty(t, buf.String())

	req = httptest.NewRequest(http.MethodPost, "/api/v1/capture?x=1", nil)
	req.Header.Set("User-Agent", "GLOBAL-DEX-ADMIN")
	req.RemoteAddr = "10.0.0.7:5555"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	lines := logLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "admin", lines[0]["audit"])
	assert.Equal(t, "x=1", lines[0]["query"])
	assert.Equal(t, "10.0.0.7", lines[0]["client_ip"])
	assert.EqualValues(t, http.StatusCreated, lines[0]["status"])
}

func TestRecoveryCallsHandler(t *testing.T) {
	logger, buf := bufferLogger()
	called := false
	h := Recovery(logger, func(w http.ResponseWriter, _ *http.Request, err any) {
		called = true
		assert.Equal(t, "kaboom", err)
		w.WriteHeader(http.StatusInternalServerError)
	})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, buf.String(), "panic recovered")
}
