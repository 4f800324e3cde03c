package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func newRegisterCmd() *cobra.Command {
	var id, name string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register or refresh a player",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{"id": id}
			if cmd.Flags().Changed("name") {
				req["display_name"] = name
			}

			var result RegisterResult
			status, err := client.Do(http.MethodPost, "/api/v1/register", req, &result)
			if err != nil {
				return err
			}
			result.Status = status

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Player ID (required)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newCaptureCmd() *cobra.Command {
	var id, species, capturedAt string
	var shiny bool

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Record a capture",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{"id": id, "species": species, "shiny": shiny}
			if capturedAt != "" {
				if _, err := time.Parse(time.RFC3339, capturedAt); err != nil {
					return fmt.Errorf("--captured-at must be RFC 3339: %w", err)
				}
				req["captured_at"] = capturedAt
			}

			var result CaptureResult
			status, err := client.Do(http.MethodPost, "/api/v1/capture", req, &result)
			if err != nil {
				return err
			}
			result.Status = status

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Player ID (required)")
	cmd.Flags().StringVar(&species, "species", "", "Species name (required)")
	cmd.Flags().BoolVar(&shiny, "shiny", false, "Shiny capture")
	cmd.Flags().StringVar(&capturedAt, "captured-at", "", "Capture time, RFC 3339 (default: server time)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("species")

	return cmd
}

func newUncaptureCmd() *cobra.Command {
	var id, species string

	cmd := &cobra.Command{
		Use:   "uncapture",
		Short: "Remove a capture",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{"id": id, "species": species}

			var result UncaptureResult
			if err := client.Post("/api/v1/uncapture", req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Player ID (required)")
	cmd.Flags().StringVar(&species, "species", "", "Species name (required)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("species")

	return cmd
}
