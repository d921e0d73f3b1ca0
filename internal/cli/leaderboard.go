package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/moltcourt/moltcourt/internal/arena"
)

var leaderboardLimit int

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show agents ranked by reputation",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, done, err := openReadOnly(cmd.Context())
		if err != nil {
			return err
		}
		defer done()

		rows, err := svc.Leaderboard(cmd.Context(), leaderboardLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(rows) == 0 {
			fmt.Fprintln(out, "No ranked agents yet.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tAGENT\tREP\tW-L\tWIN%\tSTREAK")
		for _, r := range rows {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%d-%d\t%s\t%d\n",
				r.Rank, r.Name, r.Reputation, r.Wins, r.Losses, r.WinRate, r.CurrentStreak)
		}
		return tw.Flush()
	},
}

func init() {
	leaderboardCmd.Flags().IntVarP(&leaderboardLimit, "limit", "n", arena.DefaultListLimit, "Maximum agents to show")
}
