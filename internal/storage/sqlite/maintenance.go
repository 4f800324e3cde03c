package sqlite

import (
	"context"
	"fmt"
	"os"
)

// Checkpoint folds the WAL back into the main database file and truncates it
func (s *Store) Checkpoint(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return fmt.Errorf("wal checkpoint: %w", translate(err))
	}
	return nil
}

// BackupTo writes a consistent copy of the database to dest. dest must not exist.
func (s *Store) BackupTo(ctx context.Context, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("backup destination %s already exists", dest)
	}
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, dest); err != nil {
		return fmt.Errorf("vacuum into %s: %w", dest, translate(err))
	}
	return nil
}
