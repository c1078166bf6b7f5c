package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phsym/console-slog"
	"github.com/spf13/cobra"

	"github.com/arloliu/go-wpactl/logger"
)

var rootCmd = &cobra.Command{
	Use:   "wpactl",
	Short: "Lifecycle and control channel client for wpa_supplicant style daemons",
	Long: `wpactl drives a wpa_supplicant style daemon: it starts and stops the
daemon through a service supervisor, sends control commands over the
daemon's UNIX datagram control socket, and streams unsolicited events.

Lifecycle commands (start, stop) need --scan-dir pointing at an
s6/daemontools scan directory. Without it wpactl assumes the daemon is
managed elsewhere and only talks to its control socket.`,
	PersistentPreRun: setupLogger,
	SilenceUsage:     true,
	SilenceErrors:    true,
}

// Execute runs the root command with signal handling.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	RegisterGlobalFlags(rootCmd)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(commandCmd)
	rootCmd.AddCommand(monitorCmd)
}

// setupLogger routes library logs to stderr so command output stays clean on
// stdout.
func setupLogger(cmd *cobra.Command, args []string) {
	level, slogLevel := logger.InfoLevel, slog.LevelInfo
	if globalFlags.Verbose {
		level, slogLevel = logger.DebugLevel, slog.LevelDebug
	}

	handler := console.NewHandler(os.Stderr, &console.HandlerOptions{Level: slogLevel})
	logger.SetLogger(logger.NewSlogWithHandler(level, handler))
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("wpactl v0.1.0")
	},
}
