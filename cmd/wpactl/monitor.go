package main

import (
	"github.com/spf13/cobra"

	"github.com/arloliu/go-wpactl/supplicant"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Stream daemon events to stdout",
	Long: `Attach to the daemon's event stream and print each event on its own
line. The stream ends with a terminating event when the daemon goes
away or the process is interrupted.`,
	RunE: runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	mgr, _, err := newManager()
	if err != nil {
		return err
	}

	if err := mgr.Connect(ctx); err != nil {
		return err
	}
	defer func() { _ = mgr.Disconnect() }()

	for {
		ev := mgr.WaitEvent(ctx)
		if supplicant.IsIgnore(ev) {
			continue
		}

		cmd.Println(ev)

		if supplicant.IsTerminating(ev) {
			return nil
		}
	}
}
