package ctrl

import (
	"errors"
	"time"

	"github.com/arloliu/go-wpactl/logger"
)

// connConfig holds the configuration parameters for a control connection.
type connConfig struct {
	// clientDir is the directory holding the local socket file when the
	// endpoint is a filesystem path. Defaults to os.TempDir().
	clientDir string

	// requestTimeout bounds how long Request waits for a solicited reply.
	// Defaults to 10 seconds.
	requestTimeout time.Duration

	// eventCallback receives unsolicited event datagrams that arrive while
	// Request waits for its reply. Optional.
	eventCallback func([]byte)

	// logger provides a logger instance for connection events and errors.
	logger logger.Logger
}

// Option represents a functional option for configuring a control connection.
type Option interface {
	apply(*connConfig) error
}

type optFunc struct {
	name      string
	applyFunc func(*connConfig) error
}

func (o *optFunc) apply(cfg *connConfig) error { return o.applyFunc(cfg) }

func newOptFunc(name string, f func(*connConfig) error) *optFunc {
	return &optFunc{name: name, applyFunc: f}
}

// WithClientDir sets the directory in which the connection binds its local
// socket file. It is only used for filesystem endpoints; abstract endpoints
// bind abstract local names.
//
// The default is os.TempDir().
func WithClientDir(dir string) Option {
	return newOptFunc("WithClientDir", func(cfg *connConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if dir == "" {
			return errors.New("client directory is empty")
		}
		cfg.clientDir = dir

		return nil
	})
}

// WithRequestTimeout sets how long Request waits for a solicited reply before
// failing with ErrTimeout.
// An error is returned if the timeout is outside the valid range (0.01-120 seconds).
//
// The default value is 10 seconds.
func WithRequestTimeout(val time.Duration) Option {
	return newOptFunc("WithRequestTimeout", func(cfg *connConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if val < 10*time.Millisecond || val > 120*time.Second {
			return errors.New("request timeout out of range [0.01, 120]")
		}
		cfg.requestTimeout = val

		return nil
	})
}

// WithEventCallback registers a callback for unsolicited event datagrams that
// arrive on this connection while a Request waits for its reply. The callback
// receives a copy it may retain.
//
// Connections used only for Recv never invoke the callback.
func WithEventCallback(cb func([]byte)) Option {
	return newOptFunc("WithEventCallback", func(cfg *connConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		cfg.eventCallback = cb

		return nil
	})
}

// WithLogger sets the logger for the control connection.
//
// The default logger is the global logger instance.
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(cfg *connConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
