package main

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon and control channel status",
	Long: `Show the supervisor's view of the daemon and probe the control
channel with a keepalive command.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	mgr, cfg, err := newManager()
	if err != nil {
		return err
	}

	state := "assumed running (no --scan-dir)"
	if globalFlags.ScanDir != "" {
		sup, err := newSupervisor()
		if err != nil {
			return err
		}

		status, err := sup.Status(ctx, globalFlags.Service)
		if err != nil {
			return err
		}
		state = status.String()
	}

	cmd.Printf("Service:   %s (%s)\n", cfg.Service(), state)
	cmd.Printf("Interface: %s\n", cfg.Interface())
	cmd.Printf("Endpoint:  %s\n", cfg.ControlPath())

	if err := mgr.Connect(ctx); err != nil {
		cmd.Printf("Channel:   unreachable (%v)\n", err)
		return nil
	}
	defer func() { _ = mgr.Disconnect() }()

	if err := mgr.Ping(ctx); err != nil {
		cmd.Printf("Channel:   ping failed (%v)\n", err)
		return nil
	}
	cmd.Println("Channel:   OK")

	return nil
}
