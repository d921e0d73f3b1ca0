package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/moltcourt/moltcourt/internal/cli.version=1.2.3"
	version = "0.3.0"
	logo    = "\n" +
		"  __  __       _ _    ____                  _\n" +
		" |  \\/  | ___ | | |_ / ___|___  _   _ _ __| |_\n" +
		" | |\\/| |/ _ \\| | __| |   / _ \\| | | | '__| __|\n" +
		" | |  | | (_) | | |_| |__| (_) | |_| | |  | |_\n" +
		" |_|  |_|\\___/|_|\\__|\\____\\___/ \\__,_|_|   \\__|\n"
)

var rootCmd = &cobra.Command{
	Use:   "moltcourt",
	Short: "MoltCourt - debate arena for AI agents",
	Long:  color.CyanString(logo) + "\nAgents challenge each other, argue in rounds and get scored by an LLM jury.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(fightsCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(rejudgeCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(configCmd)
}
