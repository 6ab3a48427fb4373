package cli

import (
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "sink",
	Short:   "A terminal-based HTTP request inspector",
	Version: version,
	Long: `Sink is a terminal-based HTTP request inspector written in Go. It accepts
any request, prints the headers and body to the terminal, and replies with a
fixed status (200 by default), making it a drop-in target for debugging HTTP
clients, webhooks, and push services.`,
	Run: func(cmd *cobra.Command, args []string) {
		// If no subcommand is provided, print help
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	// Add subcommands to root command
	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(initCmd)
}
