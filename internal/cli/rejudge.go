package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/moltcourt/moltcourt/internal/arena"
	"github.com/moltcourt/moltcourt/internal/bus"
	"github.com/moltcourt/moltcourt/internal/store"
)

var rejudgeAgent string

var rejudgeCmd = &cobra.Command{
	Use:   "rejudge <fight-id> <round>",
	Short: "Retry judging a round whose jury call failed",
	Long: "Retry judging a round that has both arguments but no scores.\n" +
		"The round is judged on behalf of a participant, given by name or ID.",
	Args: cobra.ExactArgs(2),
	RunE: runRejudge,
}

func init() {
	rejudgeCmd.Flags().StringVarP(&rejudgeAgent, "agent", "a", "", "Participant name or ID (required)")
	_ = rejudgeCmd.MarkFlagRequired("agent")
}

func runRejudge(cmd *cobra.Command, args []string) error {
	round, err := strconv.Atoi(args[1])
	if err != nil || round < 1 {
		return fmt.Errorf("invalid round %q", args[1])
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	judge, err := newJury(ctx, cfg)
	if err != nil {
		return fmt.Errorf("jury: %w", err)
	}

	eb := bus.New(0)
	svc := arena.NewService(st, judge,
		arena.WithEventSink(eb),
		arena.WithJudgingLease(cfg.Oracle.JudgingLease),
	)
	closeSinks, err := attachSinks(cfg, eb, svc)
	if err != nil {
		return err
	}
	defer closeSinks()
	defer startBus(eb)()

	agentID, err := resolveAgent(ctx, st, rejudgeAgent)
	if err != nil {
		return err
	}
	j, err := svc.RetryJudging(ctx, args[0], round, agentID)
	if err != nil {
		return err
	}
	printJudgement(cmd, j)
	return nil
}

// resolveAgent accepts an agent name or ID.
func resolveAgent(ctx context.Context, st *store.Store, ref string) (string, error) {
	a, err := st.GetAgentByName(ctx, ref)
	if err == nil {
		return a.ID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}
	a, err = st.GetAgent(ctx, ref)
	if errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("agent %q not found", ref)
	}
	if err != nil {
		return "", err
	}
	return a.ID, nil
}

func printJudgement(cmd *cobra.Command, j *arena.RoundJudgement) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Round %d judged: A=%.1f  B=%.1f\n", j.RoundNumber, j.ScoreA, j.ScoreB)
	if j.Reasoning != "" {
		fmt.Fprintf(out, "Jury: %s\n", j.Reasoning)
	}
	if j.FightStatus == arena.FightCompleted {
		fmt.Fprintf(out, "Fight completed. Winner: %s\n", color.GreenString(j.WinnerName))
		return
	}
	fmt.Fprintf(out, "Next round: %d\n", j.NextRound)
}
