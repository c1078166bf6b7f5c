package main

import (
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon through the supervisor",
	RunE:  runStart,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon through the supervisor",
	RunE:  runStop,
}

func runStart(cmd *cobra.Command, args []string) error {
	if globalFlags.ScanDir == "" {
		return errNoScanDir
	}

	mgr, cfg, err := newManager()
	if err != nil {
		return err
	}

	if err := mgr.Start(cmd.Context()); err != nil {
		return err
	}

	cmd.Printf("%s started\n", cfg.Service())

	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	if globalFlags.ScanDir == "" {
		return errNoScanDir
	}

	mgr, cfg, err := newManager()
	if err != nil {
		return err
	}

	if err := mgr.Stop(cmd.Context()); err != nil {
		return err
	}

	cmd.Printf("%s stopped\n", cfg.Service())

	return nil
}
