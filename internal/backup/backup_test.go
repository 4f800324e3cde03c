package backup

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/globaldex/internal/dependencies/mocks"
	"github.com/mcoot/globaldex/internal/storage/sqlite"
	"github.com/mcoot/globaldex/internal/testutil"
)

type fakeUploader struct {
	keys  []string
	paths []string
	err   error
}

func (f *fakeUploader) Upload(_ context.Context, key, path string) error {
	f.keys = append(f.keys, key)
	f.paths = append(f.paths, path)
	return f.err
}

var backupTime = time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC)

func openStore(t *testing.T) (*sqlite.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dex.db")
	store, err := sqlite.Open(sqlite.Config{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestPath(t *testing.T) {
	assert.Equal(t, "data/dex.db.bak.20240309-140506", Path("data/dex.db", backupTime))
}

func TestRunWritesSnapshot(t *testing.T) {
	store, path := openStore(t)
	svc := New(store, path, mocks.NewMockClock(backupTime), nil, testutil.NopLogger())

	result, err := svc.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, Path(path, backupTime), result.Path)
	assert.False(t, result.Uploaded)
	assert.Positive(t, result.Size)

	restored, err := sqlite.Open(sqlite.Config{Path: result.Path})
	require.NoError(t, err)
	require.NoError(t, restored.Close())
}

func TestRunRefusesExistingDestination(t *testing.T) {
	store, path := openStore(t)
	svc := New(store, path, mocks.NewMockClock(backupTime), nil, testutil.NopLogger())

	_, err := svc.Run(context.Background(), false)
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), false)
	assert.Error(t, err)
}

func TestRunUploads(t *testing.T) {
	store, path := openStore(t)
	uploader := &fakeUploader{}
	svc := New(store, path, mocks.NewMockClock(backupTime), uploader, testutil.NopLogger())

	result, err := svc.Run(context.Background(), true)
	require.NoError(t, err)

	assert.True(t, result.Uploaded)
	assert.Equal(t, "dex.db.bak.20240309-140506", result.Key)
	assert.Equal(t, []string{result.Key}, uploader.keys)
	assert.Equal(t, []string{result.Path}, uploader.paths)
}

func TestRunUploadFailureKeepsLocalCopy(t *testing.T) {
	store, path := openStore(t)
	uploader := &fakeUploader{err: errors.New("denied")}
	svc := New(store, path, mocks.NewMockClock(backupTime), uploader, testutil.NopLogger())

	result, err := svc.Run(context.Background(), true)
	require.Error(t, err)
	assert.False(t, result.Uploaded)

	_, statErr := os.Stat(result.Path)
	assert.NoError(t, statErr)
}

func TestRunUploadWithoutBucket(t *testing.T) {
	store, path := openStore(t)
	svc := New(store, path, mocks.NewMockClock(backupTime), nil, testutil.NopLogger())

	_, err := svc.Run(context.Background(), true)
	assert.Error(t, err)
}

func TestNewS3UploaderRequiresBucket(t *testing.T) {
	_, err := NewS3Uploader(context.Background(), S3Config{})
	assert.Error(t, err)
}

func TestS3UploaderPutsObject(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		target string
		body   []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		method = r.Method
		target = r.URL.Path
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	uploader, err := NewS3Uploader(context.Background(), S3Config{
		Bucket:          "backups",
		Endpoint:        srv.URL,
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "dex.db.bak")
	require.NoError(t, os.WriteFile(file, []byte("snapshot"), 0o600))

	require.NoError(t, uploader.Upload(context.Background(), "dex.db.bak", file))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/backups/dex.db.bak", target)
	assert.True(t, strings.Contains(string(body), "snapshot"))
}
