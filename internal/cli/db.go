package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/globaldex/internal/backup"
	"github.com/mcoot/globaldex/internal/dependencies/clock"
	"github.com/mcoot/globaldex/internal/model"
	"github.com/mcoot/globaldex/internal/services/merge"
	"github.com/mcoot/globaldex/internal/storage/sqlite"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Direct database maintenance (SQLite)",
		Long: `Direct database maintenance against the SQLite file.

Mutations go through the same write path as the server, but the server's own
process does not see this tool's lock: prefer running them while the server
is stopped or idle.`,
	}

	cmd.PersistentFlags().StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path (env: GLOBALDEX_DB_PATH)")

	cmd.AddCommand(newDBBackupCmd())
	cmd.AddCommand(newDBListPlayersCmd())
	cmd.AddCommand(newDBRenamePlayerCmd())
	cmd.AddCommand(newDBDeletePlayerCmd())

	return cmd
}

// withStore opens the database for the duration of fn
func withStore(fn func(store *sqlite.Store) error) error {
	store, err := sqlite.Open(sqlite.Config{Path: cfg.DBPath, BusyTimeout: cfg.DBBusyTimeout})
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(store)
}

func newDBBackupCmd() *cobra.Command {
	var upload bool

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a timestamped snapshot next to the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var uploader backup.Uploader
			if upload {
				s3cfg := backup.S3Config{
					Bucket:          cfg.Backup.Bucket,
					Endpoint:        cfg.Backup.Endpoint,
					AccessKeyID:     cfg.Backup.AccessKeyID,
					SecretAccessKey: cfg.Backup.SecretAccessKey,
					Region:          cfg.Backup.Region,
				}
				if !s3cfg.Enabled() {
					return errors.New("--upload requires GLOBALDEX_BACKUP_BUCKET")
				}
				s3Uploader, err := backup.NewS3Uploader(ctx, s3cfg)
				if err != nil {
					return err
				}
				uploader = s3Uploader
			}

			return withStore(func(store *sqlite.Store) error {
				svc := backup.New(store, cfg.DBPath, clock.New(), uploader, logger())
				result, err := svc.Run(ctx, upload)
				if err != nil {
					return err
				}

				NewOutput(cfg.Output, cmd.OutOrStdout()).Print(BackupResult{
					Path:     result.Path,
					Size:     result.Size,
					Key:      result.Key,
					Uploaded: result.Uploaded,
				})
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&upload, "upload", false, "Upload the snapshot to the configured bucket")

	return cmd
}

func newDBListPlayersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-players",
		Short: "List every player with capture totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store *sqlite.Store) error {
				summaries, err := store.ListPlayers(cmd.Context())
				if err != nil {
					return err
				}

				list := PlayerList{Players: make([]PlayerRow, 0, len(summaries))}
				for _, s := range summaries {
					list.Players = append(list.Players, PlayerRow{
						ID:          string(s.ID),
						DisplayName: s.DisplayName,
						SafeName:    s.SafeName,
						Total:       s.Total,
						Shinies:     s.Shinies,
						LastSeenAt:  s.LastSeenAt,
					})
				}

				NewOutput(cfg.Output, cmd.OutOrStdout()).Print(list)
				return nil
			})
		},
	}
}

func newDBRenamePlayerCmd() *cobra.Command {
	var id, name string

	cmd := &cobra.Command{
		Use:   "rename-player",
		Short: "Change a player's display name",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store *sqlite.Store) error {
				engine := merge.New(store, clock.New(), logger())
				result, err := engine.RenamePlayer(cmd.Context(), model.PlayerID(id), name)
				if err != nil {
					return fmt.Errorf("rename %s: %w", id, err)
				}

				NewOutput(cfg.Output, cmd.OutOrStdout()).PrintMessage(
					fmt.Sprintf("Renamed %s to %q (safe name %q)", result.PlayerID, result.DisplayName, result.SafeName))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Player ID (required)")
	cmd.Flags().StringVar(&name, "name", "", "New display name (required)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newDBDeletePlayerCmd() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "delete-player",
		Short: "Delete a player and all of their captures",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store *sqlite.Store) error {
				engine := merge.New(store, clock.New(), logger())
				if err := engine.DeletePlayer(cmd.Context(), model.PlayerID(id)); err != nil {
					return fmt.Errorf("delete %s: %w", id, err)
				}

				NewOutput(cfg.Output, cmd.OutOrStdout()).PrintMessage(fmt.Sprintf("Deleted %s", id))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Player ID (required)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}
