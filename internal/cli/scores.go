package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/memorygame/internal/services/scoring"
)

func newScoresCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scores",
		Short: "Leaderboard commands",
	}

	cmd.AddCommand(newScoresListCmd())
	cmd.AddCommand(newScoresSubmitCmd())
	cmd.AddCommand(newScoresComputeCmd())

	return cmd
}

func newScoresListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the top scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []Score

			if err := client.Get(cmd.Context(), "/api/scores", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newScoresSubmitCmd() *cobra.Command {
	var name string
	var score, elapsed, moves, pairs int64

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a finished game",
		Long: `Submit a finished game to the leaderboard.

When logged in the score is recorded under your account name and --name is
ignored. Pass either --score or --moves; with --moves the server computes the
score from the move count and the time taken.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("score") && !flags.Changed("moves") {
				return fmt.Errorf("one of --score or --moves is required")
			}

			req := map[string]any{"time": elapsed}
			if name != "" {
				req["name"] = name
			}
			if flags.Changed("score") {
				req["score"] = score
			}
			if flags.Changed("moves") {
				req["moves"] = moves
				req["pairs"] = pairs
			}

			var result ScoreCreated
			if err := client.Post(cmd.Context(), "/api/scores", req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Player name, required when not logged in")
	cmd.Flags().Int64Var(&score, "score", 0, "Final score")
	cmd.Flags().Int64Var(&elapsed, "time", 0, "Seconds taken to finish (required)")
	cmd.Flags().Int64Var(&moves, "moves", 0, "Number of card-pair flips made")
	cmd.Flags().Int64Var(&pairs, "pairs", scoring.DefaultPairCount, "Number of pairs on the board")
	_ = cmd.MarkFlagRequired("time")

	return cmd
}

func newScoresComputeCmd() *cobra.Command {
	var elapsed, moves, pairs int64

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Calculate the score for a game without submitting it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if pairs <= 0 {
				return fmt.Errorf("--pairs must be positive")
			}
			if moves < pairs {
				return fmt.Errorf("--moves must be at least --pairs")
			}
			if elapsed < 0 {
				return fmt.Errorf("--time must not be negative")
			}

			NewOutput(cfg.Output).Print(ComputedScore{
				Pairs: pairs,
				Moves: moves,
				Time:  elapsed,
				Score: scoring.ComputeScore(pairs, moves, elapsed),
			})
			return nil
		},
	}

	cmd.Flags().Int64Var(&elapsed, "time", 0, "Seconds taken to finish")
	cmd.Flags().Int64Var(&moves, "moves", 0, "Number of card-pair flips made (required)")
	cmd.Flags().Int64Var(&pairs, "pairs", scoring.DefaultPairCount, "Number of pairs on the board")
	_ = cmd.MarkFlagRequired("moves")

	return cmd
}
