package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/moltcourt/moltcourt/internal/arena"
	"github.com/moltcourt/moltcourt/internal/events"
)

var (
	eventsGroup   string
	eventsBrokers []string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect the arena event stream",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Follow arena events from Kafka",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		brokers := cfg.Events.Kafka.Brokers
		if len(eventsBrokers) > 0 {
			brokers = eventsBrokers
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Tailing %s (Ctrl+C to stop)\n", cfg.Events.Kafka.Topic)
		return events.Tail(ctx, brokers, cfg.Events.Kafka.Topic, eventsGroup, func(evt arena.Event) {
			printEvent(out, evt)
		})
	},
}

func init() {
	eventsTailCmd.Flags().StringVarP(&eventsGroup, "group", "g", "", "Consumer group ID (default: read latest offsets without a group)")
	eventsTailCmd.Flags().StringSliceVar(&eventsBrokers, "brokers", nil, "Kafka brokers (overrides events.kafka.brokers)")
	eventsCmd.AddCommand(eventsTailCmd)
}

func printEvent(w io.Writer, evt arena.Event) {
	line := fmt.Sprintf("%s %-20s fight=%s", evt.At.Format("15:04:05"), evt.Type, evt.FightID)
	if evt.Round > 0 {
		line += fmt.Sprintf(" round=%d", evt.Round)
	}
	if evt.ScoreA != nil && evt.ScoreB != nil {
		line += fmt.Sprintf(" A=%.1f B=%.1f", *evt.ScoreA, *evt.ScoreB)
	}
	if evt.WinnerID != "" {
		line += " winner=" + evt.WinnerID
	}
	if evt.Reason != "" {
		line += " reason=" + evt.Reason
	}
	switch evt.Type {
	case arena.EventFightCompleted:
		line = color.GreenString(line)
	case arena.EventJudgingFailed:
		line = color.RedString(line)
	}
	fmt.Fprintln(w, line)
}
