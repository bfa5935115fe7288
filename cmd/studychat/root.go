package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/studychat/internal/observability"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "studychat",
	Short: "Chat with course assistants and mentors from the terminal",
	Long: `studychat runs a simulated study chat locally. Automated partners answer
after a short delay; switching partner starts a fresh conversation.`,
	Version:           fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initLogging,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initLogging keeps log records off the chat transcript.
func initLogging(cmd *cobra.Command, args []string) error {
	observability.SetOutput(cmd.ErrOrStderr())
	if verbose {
		observability.SetLevel("debug")
	} else {
		observability.SetLevel("error")
	}
	return nil
}
