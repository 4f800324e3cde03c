// Package backup takes consistent SQLite snapshots and optionally ships them
// to S3-compatible object storage
package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mcoot/globaldex/internal/dependencies/clock"
)

// TimestampFormat is the suffix layout of backup files
const TimestampFormat = "20060102-150405"

// Snapshotter writes a consistent copy of a live database to dest
type Snapshotter interface {
	BackupTo(ctx context.Context, dest string) error
}

// Uploader stores a local file under key
type Uploader interface {
	Upload(ctx context.Context, key, path string) error
}

// Result describes a completed backup
type Result struct {
	Path     string
	Key      string
	Size     int64
	Uploaded bool
}

// Service creates backups of one database file
type Service struct {
	source   Snapshotter
	dbPath   string
	clock    clock.Clock
	uploader Uploader
	logger   *slog.Logger
}

// New creates a backup service. uploader may be nil when uploads are not configured.
func New(source Snapshotter, dbPath string, clk clock.Clock, uploader Uploader, logger *slog.Logger) *Service {
	return &Service{
		source:   source,
		dbPath:   dbPath,
		clock:    clk,
		uploader: uploader,
		logger:   logger,
	}
}

// Path returns the backup file name for a database taken at t
func Path(dbPath string, t time.Time) string {
	return fmt.Sprintf("%s.bak.%s", dbPath, t.Format(TimestampFormat))
}

// Run snapshots the database next to the original and uploads it if asked
func (s *Service) Run(ctx context.Context, upload bool) (Result, error) {
	if upload && s.uploader == nil {
		return Result{}, errors.New("upload requested but no bucket is configured")
	}

	dest := Path(s.dbPath, s.clock.Now())
	if err := s.source.BackupTo(ctx, dest); err != nil {
		return Result{}, fmt.Errorf("snapshot: %w", err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return Result{}, fmt.Errorf("stat backup: %w", err)
	}
	result := Result{Path: dest, Size: info.Size()}

	s.logger.Info("backup written",
		slog.String("path", dest),
		slog.Int64("size", result.Size),
	)

	if !upload {
		return result, nil
	}

	result.Key = filepath.Base(dest)
	if err := s.uploader.Upload(ctx, result.Key, dest); err != nil {
		return result, fmt.Errorf("upload backup: %w", err)
	}
	result.Uploaded = true

	s.logger.Info("backup uploaded", slog.String("key", result.Key))
	return result, nil
}
