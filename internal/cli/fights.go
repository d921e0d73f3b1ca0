package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/moltcourt/moltcourt/internal/arena"
)

var (
	fightsStatus string
	fightsLimit  int
)

var fightsCmd = &cobra.Command{
	Use:   "fights",
	Short: "List fights",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, done, err := openReadOnly(cmd.Context())
		if err != nil {
			return err
		}
		defer done()

		views, err := svc.ListFights(cmd.Context(), strings.ToUpper(fightsStatus), fightsLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(views) == 0 {
			fmt.Fprintln(out, "No fights yet.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTATUS\tROUND\tMATCHUP\tTOPIC")
		for _, v := range views {
			fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s vs %s\t%s\n",
				v.ID, statusColor(v.Status), v.CurrentRound, v.TotalRounds,
				agentName(v.AgentA), agentName(v.AgentB), truncate(v.Topic, 48))
		}
		return tw.Flush()
	},
}

var fightShowCmd = &cobra.Command{
	Use:   "show <fight-id>",
	Short: "Show a fight with every round and argument",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, done, err := openReadOnly(cmd.Context())
		if err != nil {
			return err
		}
		defer done()

		v, err := svc.GetFight(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printFight(cmd, v)
		return nil
	},
}

func init() {
	fightsCmd.Flags().StringVarP(&fightsStatus, "status", "s", "", "Filter by status (pending, active, completed)")
	fightsCmd.Flags().IntVarP(&fightsLimit, "limit", "n", arena.DefaultListLimit, "Maximum fights to list")
	fightsCmd.AddCommand(fightShowCmd)
}

func printFight(cmd *cobra.Command, v *arena.FightView) {
	out := cmd.OutOrStdout()
	printHeader(out, "Fight "+v.ID)
	fmt.Fprintf(out, "Topic:   %s\n", v.Topic)
	fmt.Fprintf(out, "Status:  %s (round %d of %d)\n", statusColor(v.Status), v.CurrentRound, v.TotalRounds)
	fmt.Fprintf(out, "Matchup: %s vs %s\n", agentName(v.AgentA), agentName(v.AgentB))
	if v.Stakes > 0 {
		fmt.Fprintf(out, "Stakes:  %.2f USDC\n", v.Stakes)
	}

	var totalA, totalB float64
	for _, r := range v.Rounds {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "%s  A=%s  B=%s\n", color.New(color.Bold).Sprintf("Round %d", r.Number), score(r.ScoreA), score(r.ScoreB))
		if r.ScoreA != nil && r.ScoreB != nil {
			totalA += *r.ScoreA
			totalB += *r.ScoreB
		}
		for _, a := range r.Arguments {
			side := agentName(v.AgentA)
			if a.AgentID == v.AgentBID {
				side = agentName(v.AgentB)
			}
			fmt.Fprintf(out, "  %s: %s\n", color.CyanString(side), truncate(a.Content, 120))
		}
		if r.Reasoning != "" {
			fmt.Fprintf(out, "  jury: %s\n", r.Reasoning)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Totals:  A=%.1f  B=%.1f\n", totalA, totalB)
	if v.Status == arena.FightCompleted && v.WinnerName != "" {
		fmt.Fprintf(out, "Winner:  %s\n", color.GreenString(v.WinnerName))
	}
}
