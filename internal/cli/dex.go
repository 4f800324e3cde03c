package cli

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newDexCmd() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "dex",
		Short: "Show a player's dex",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Dex
			if err := client.Get("/api/v1/dex/"+url.PathEscape(id), &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Player ID (required)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newLeaderboardCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the capture leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Leaderboard
			if err := client.Get(withLimit("/api/v1/leaderboard", limit), &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Number of entries (default: server default)")

	return cmd
}

func newCompletionCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "leaderboard-completion",
		Short: "Show the completion leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Completion
			if err := client.Get(withLimit("/api/v1/leaderboard/completion", limit), &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Number of entries (default: server default)")

	return cmd
}

func newSearchPlayerCmd() *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "search-player",
		Short: "Find a player by ID or name and show their rank",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result PlayerMatch
			path := "/api/v1/player/search?" + url.Values{"query": {query}}.Encode()
			if err := client.Get(path, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "Player ID or name fragment (required)")
	_ = cmd.MarkFlagRequired("query")

	return cmd
}

func newCaughtCountCmd() *cobra.Command {
	var species string
	var shinyOnly, nonShinyOnly bool

	cmd := &cobra.Command{
		Use:   "caught-count",
		Short: "Count the players who caught a species",
		RunE: func(cmd *cobra.Command, args []string) error {
			if shinyOnly && nonShinyOnly {
				return errors.New("--shiny and --non-shiny are mutually exclusive")
			}

			var caught SpeciesCaught
			path := fmt.Sprintf("/api/v1/species/%s/caught", url.PathEscape(species))
			if err := client.Get(path, &caught); err != nil {
				return err
			}

			result := CaughtCount{Species: caught.Species, Filter: "all", Players: caught.TotalPlayers}
			switch {
			case shinyOnly:
				result.Filter = "shiny"
				result.Players = caught.ShinyPlayers
			case nonShinyOnly:
				result.Filter = "non-shiny"
				result.Players = caught.TotalPlayers - caught.ShinyPlayers
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&species, "species", "", "Species name (required)")
	cmd.Flags().BoolVar(&shinyOnly, "shiny", false, "Count only shiny captures")
	cmd.Flags().BoolVar(&nonShinyOnly, "non-shiny", false, "Count only non-shiny captures")
	_ = cmd.MarkFlagRequired("species")

	return cmd
}

func withLimit(path string, limit int) string {
	if limit <= 0 {
		return path
	}
	return path + "?" + url.Values{"limit": {fmt.Sprint(limit)}}.Encode()
}
