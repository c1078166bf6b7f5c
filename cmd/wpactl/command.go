package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the daemon answers on the control channel",
	RunE:  runPing,
}

var commandCmd = &cobra.Command{
	Use:   "cmd <command>...",
	Short: "Send a raw control command and print the reply",
	Long: `Send a raw control command to the daemon and print its reply,
for example:

  wpactl cmd LIST_NETWORKS
  wpactl cmd SET_NETWORK 0 ssid '"home"'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

func runPing(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	mgr, _, err := newManager()
	if err != nil {
		return err
	}

	if err := mgr.Connect(ctx); err != nil {
		return err
	}
	defer func() { _ = mgr.Disconnect() }()

	if err := mgr.Ping(ctx); err != nil {
		return err
	}

	cmd.Println("PONG")

	return nil
}

func runCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	mgr, _, err := newManager()
	if err != nil {
		return err
	}

	if err := mgr.Connect(ctx); err != nil {
		return err
	}
	defer func() { _ = mgr.Disconnect() }()

	reply, err := mgr.Command(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	cmd.Println(reply)

	return nil
}
