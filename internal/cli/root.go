// Package cli defines the greenroom command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgPath string
	version = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:   "greenroom",
	Short: "Scripted interview runtime and service",
	Long: `Greenroom administers scripted interviews: a timed, multi-section
Q&A runtime with AI-generated follow-up questions and post-session
summarization. Serve the collaborator API with "serve", run an interview in
the terminal with "run", or check a script with "validate".`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to a YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
