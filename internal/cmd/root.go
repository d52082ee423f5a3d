package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/sathwikbalu/Zenith-Study/internal/ui"
	"github.com/sathwikbalu/Zenith-Study/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "studyroom",
	Short:   "Join live study sessions from the terminal",
	Long:    `studyroom connects to a study session hub, meshes with the other members over WebRTC, and exposes the session's chat and shared whiteboard from the command line.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
