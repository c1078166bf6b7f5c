package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-wpactl/supervise"
	"github.com/arloliu/go-wpactl/supplicant"
)

// GlobalFlags holds the persistent flags shared by all subcommands.
type GlobalFlags struct {
	Service   string
	Iface     string
	CtrlDir   string
	ClientDir string
	ScanDir   string
	Timeout   time.Duration
	Verbose   bool
}

var globalFlags = &GlobalFlags{}

// RegisterGlobalFlags registers persistent flags on the root command.
func RegisterGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&globalFlags.Service, "service", "s", "wpa_supplicant", "Supervisor service name of the daemon")
	cmd.PersistentFlags().StringVarP(&globalFlags.Iface, "iface", "i", "wlan0", "Network interface to control")
	cmd.PersistentFlags().StringVar(&globalFlags.CtrlDir, "ctrl-dir", "/var/run/wpa_supplicant", "Directory of daemon control sockets")
	cmd.PersistentFlags().StringVar(&globalFlags.ClientDir, "client-dir", "", "Directory for local client sockets (default: system temp)")
	cmd.PersistentFlags().StringVar(&globalFlags.ScanDir, "scan-dir", "", "s6/daemontools scan directory (enables start/stop)")
	cmd.PersistentFlags().DurationVar(&globalFlags.Timeout, "timeout", 10*time.Second, "Reply timeout for control commands")
	cmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "Enable debug logging")
}

var errNoScanDir = errors.New("no supervisor configured: set --scan-dir to an s6/daemontools scan directory")

// newSupervisor builds the supervisor backend selected by the flags.
//
// With --scan-dir the daemon lifecycle is driven through its service
// directory. Without one the daemon is assumed to be externally managed: a
// static registry reports it running so the control channel can connect, and
// start/stop are refused.
func newSupervisor() (supervise.Supervisor, error) {
	if globalFlags.ScanDir != "" {
		return supervise.NewDir(globalFlags.ScanDir)
	}

	store := supervise.NewStore()
	store.SetStatus(globalFlags.Service, supervise.StatusRunning)

	return store, nil
}

// newManager builds a Manager and its configuration from the global flags.
func newManager() (*supplicant.Manager, *supplicant.Config, error) {
	sup, err := newSupervisor()
	if err != nil {
		return nil, nil, err
	}

	opts := []supplicant.Option{
		supplicant.WithSupervisor(sup),
		supplicant.WithControlDir(globalFlags.CtrlDir),
		supplicant.WithRequestTimeout(globalFlags.Timeout),
	}
	if globalFlags.ClientDir != "" {
		opts = append(opts, supplicant.WithClientDir(globalFlags.ClientDir))
	}

	cfg, err := supplicant.NewConfig(globalFlags.Service, globalFlags.Iface, opts...)
	if err != nil {
		return nil, nil, err
	}

	return supplicant.NewManager(cfg), cfg, nil
}
