package supplicant

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/arloliu/go-wpactl/logger"
	"github.com/arloliu/go-wpactl/provision"
	"github.com/arloliu/go-wpactl/supervise"
)

// Interface names are bounded by IFNAMSIZ including the terminator.
const ifaceNameMax = 15

// Config holds the configuration for a Manager.
type Config struct {
	// service is the supervisor status key of the daemon, e.g. "wpa_supplicant".
	service string
	// iface is the network interface name. It keys the control socket path
	// and is the subject of synthetic events.
	iface string

	// supervisor drives the daemon lifecycle. Defaults to an in-process
	// supervise.Store.
	supervisor supervise.Supervisor
	// provisioner, when set, prepares daemon files before every start.
	provisioner provision.Provisioner

	// controlDir is the directory of filesystem control sockets.
	// Defaults to /var/run/wpa_supplicant.
	controlDir string
	// abstractPrefix names the abstract-namespace control socket used when
	// controlDir does not exist. Defaults to "wpa_".
	abstractPrefix string
	// clientDir overrides the directory for local client socket files.
	clientDir string

	startTimeout      time.Duration
	startPollInterval time.Duration
	stopTimeout       time.Duration
	stopPollInterval  time.Duration
	requestTimeout    time.Duration
	eventWaitInterval time.Duration

	// autoPing enables periodic keepalive pings on the command connection.
	autoPing bool
	// pingInterval defines the interval between keepalive pings.
	// This field is only relevant when autoPing is true.
	pingInterval time.Duration

	logger logger.Logger
}

// Option represents a functional option for configuring a Manager.
type Option interface {
	apply(*Config) error
}

type optFunc struct {
	name      string
	applyFunc func(*Config) error
}

func (o *optFunc) apply(cfg *Config) error { return o.applyFunc(cfg) }

func newOptFunc(name string, f func(*Config) error) *optFunc {
	return &optFunc{name: name, applyFunc: f}
}

// NewConfig creates a Manager configuration for the daemon registered under
// service, controlling the network interface iface.
func NewConfig(service, iface string, opts ...Option) (*Config, error) {
	if service == "" {
		return nil, errors.New("service name is empty")
	}
	if iface == "" {
		return nil, errors.New("interface name is empty")
	}
	if len(iface) > ifaceNameMax {
		return nil, fmt.Errorf("interface name %q exceeds %d bytes", iface, ifaceNameMax)
	}

	cfg := &Config{
		service:           service,
		iface:             iface,
		controlDir:        "/var/run/wpa_supplicant",
		abstractPrefix:    "wpa_",
		startTimeout:      20 * time.Second,
		startPollInterval: 100 * time.Millisecond,
		stopTimeout:       5 * time.Second,
		stopPollInterval:  100 * time.Millisecond,
		requestTimeout:    10 * time.Second,
		eventWaitInterval: 30 * time.Second,
		pingInterval:      10 * time.Second,
		logger:            logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.supervisor == nil {
		cfg.supervisor = supervise.NewStore()
	}

	return cfg, nil
}

// Service returns the supervisor status key of the daemon.
func (cfg *Config) Service() string {
	return cfg.service
}

// Interface returns the managed network interface name.
func (cfg *Config) Interface() string {
	return cfg.iface
}

// ControlPath resolves the daemon control endpoint for the managed interface.
//
// When the control directory exists, the endpoint is the filesystem socket
// <controlDir>/<iface>; otherwise it is the abstract-namespace socket
// "@<prefix><iface>". The path is resolved at Connect time and stays fixed
// for the lifetime of that channel.
func (cfg *Config) ControlPath() string {
	if err := unix.Access(cfg.controlDir, unix.F_OK); err == nil {
		return filepath.Join(cfg.controlDir, cfg.iface)
	}

	return "@" + cfg.abstractPrefix + cfg.iface
}

// WithSupervisor sets the supervisor the Manager drives the daemon through.
//
// The default is an in-process supervise.Store registry.
func WithSupervisor(s supervise.Supervisor) Option {
	return newOptFunc("WithSupervisor", func(cfg *Config) error {
		if s == nil {
			return errors.New("supervisor is nil")
		}
		cfg.supervisor = s

		return nil
	})
}

// WithProvisioner sets a provisioner that prepares daemon files before every
// start.
//
// There is no default provisioner.
func WithProvisioner(p provision.Provisioner) Option {
	return newOptFunc("WithProvisioner", func(cfg *Config) error {
		if p == nil {
			return errors.New("provisioner is nil")
		}
		cfg.provisioner = p

		return nil
	})
}

// WithControlDir sets the directory searched for filesystem control sockets.
//
// The default value is /var/run/wpa_supplicant.
func WithControlDir(dir string) Option {
	return newOptFunc("WithControlDir", func(cfg *Config) error {
		if dir == "" {
			return errors.New("control directory is empty")
		}
		cfg.controlDir = dir

		return nil
	})
}

// WithAbstractPrefix sets the abstract-namespace socket prefix used when the
// control directory does not exist.
//
// The default value is "wpa_".
func WithAbstractPrefix(prefix string) Option {
	return newOptFunc("WithAbstractPrefix", func(cfg *Config) error {
		if prefix == "" {
			return errors.New("abstract prefix is empty")
		}
		cfg.abstractPrefix = prefix

		return nil
	})
}

// WithClientDir sets the directory in which control connections bind their
// local client socket files.
//
// The default is the system temporary directory.
func WithClientDir(dir string) Option {
	return newOptFunc("WithClientDir", func(cfg *Config) error {
		if dir == "" {
			return errors.New("client directory is empty")
		}
		cfg.clientDir = dir

		return nil
	})
}

// WithStartTimeout sets how long Start waits for the daemon to report running.
// An error is returned if the timeout is outside the valid range (0.1-600 seconds).
//
// The default value is 20 seconds.
func WithStartTimeout(val time.Duration) Option {
	return newOptFunc("WithStartTimeout", func(cfg *Config) error {
		if val < 100*time.Millisecond || val > 600*time.Second {
			return errors.New("start timeout out of range [0.1, 600]")
		}
		cfg.startTimeout = val

		return nil
	})
}

// WithStartPollInterval sets how often Start polls the supervisor while
// waiting for the daemon to come up.
// An error is returned if the interval is outside the valid range (0.001-10 seconds).
//
// The default value is 100 milliseconds.
func WithStartPollInterval(val time.Duration) Option {
	return newOptFunc("WithStartPollInterval", func(cfg *Config) error {
		if val < time.Millisecond || val > 10*time.Second {
			return errors.New("start poll interval out of range [0.001, 10]")
		}
		cfg.startPollInterval = val

		return nil
	})
}

// WithStopTimeout sets how long Stop waits for the daemon to report stopped.
// An error is returned if the timeout is outside the valid range (0.1-600 seconds).
//
// The default value is 5 seconds.
func WithStopTimeout(val time.Duration) Option {
	return newOptFunc("WithStopTimeout", func(cfg *Config) error {
		if val < 100*time.Millisecond || val > 600*time.Second {
			return errors.New("stop timeout out of range [0.1, 600]")
		}
		cfg.stopTimeout = val

		return nil
	})
}

// WithStopPollInterval sets how often Stop polls the supervisor while waiting
// for the daemon to go down.
// An error is returned if the interval is outside the valid range (0.001-10 seconds).
//
// The default value is 100 milliseconds.
func WithStopPollInterval(val time.Duration) Option {
	return newOptFunc("WithStopPollInterval", func(cfg *Config) error {
		if val < time.Millisecond || val > 10*time.Second {
			return errors.New("stop poll interval out of range [0.001, 10]")
		}
		cfg.stopPollInterval = val

		return nil
	})
}

// WithRequestTimeout sets how long a command waits for its solicited reply.
// An error is returned if the timeout is outside the valid range (0.01-120 seconds).
//
// The default value is 10 seconds.
func WithRequestTimeout(val time.Duration) Option {
	return newOptFunc("WithRequestTimeout", func(cfg *Config) error {
		if val < 10*time.Millisecond || val > 120*time.Second {
			return errors.New("request timeout out of range [0.01, 120]")
		}
		cfg.requestTimeout = val

		return nil
	})
}

// WithEventWaitInterval sets the liveness probe period of WaitEvent: how long
// it waits without any event before re-checking that the daemon still runs.
// An error is returned if the interval is outside the valid range (0.01-600 seconds).
//
// The default value is 30 seconds.
func WithEventWaitInterval(val time.Duration) Option {
	return newOptFunc("WithEventWaitInterval", func(cfg *Config) error {
		if val < 10*time.Millisecond || val > 600*time.Second {
			return errors.New("event wait interval out of range [0.01, 600]")
		}
		cfg.eventWaitInterval = val

		return nil
	})
}

// WithAutoPing enables or disables periodic keepalive pings on the command
// connection while a channel is connected.
//
// When enabled, a failed ping is logged and a timed-out ping additionally
// wakes a blocked WaitEvent, the same way a user command timeout does.
//
// The default value is false.
func WithAutoPing(val bool) Option {
	return newOptFunc("WithAutoPing", func(cfg *Config) error {
		cfg.autoPing = val

		return nil
	})
}

// WithPingInterval sets the interval between keepalive pings. This option is
// only relevant when WithAutoPing is enabled.
// An error is returned if the interval is outside the valid range (0.05-600 seconds).
//
// The default value is 10 seconds.
func WithPingInterval(val time.Duration) Option {
	return newOptFunc("WithPingInterval", func(cfg *Config) error {
		if val < 50*time.Millisecond || val > 600*time.Second {
			return errors.New("ping interval out of range [0.05, 600]")
		}
		cfg.pingInterval = val

		return nil
	})
}

// WithLogger sets the logger for the Manager and its control connections.
//
// The default logger is the global logger instance.
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(cfg *Config) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
