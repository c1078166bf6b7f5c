package supervise

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cactus/tai64"
	"github.com/cenkalti/backoff/v4"
	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"

	"github.com/arloliu/go-wpactl/logger"
)

// s6 supervise/status binary layout (43 bytes).
const (
	s6StatusSize  = 43
	s6StampOffset = 0
	s6PidOffset   = 24
	s6FlagsOffset = 42

	s6FlagFinishing = 0x02
	s6FlagWantUp    = 0x04
	s6FlagReady     = 0x08
)

// Classic daemontools status layout (18 bytes).
const (
	dtStatusSize = 18
	dtPidOffset  = 12
	dtWantOffset = 17
)

const (
	superviseDirName = "supervise"
	statusFileName   = "status"
	controlFileName  = "control"

	controlUp   = byte('u')
	controlDown = byte('d')
)

// Dir is a Supervisor client for s6/daemontools-style scan directories.
//
// A service named "svc" under root "/run/service" is expected at
// /run/service/svc with its supervisor maintaining
// /run/service/svc/supervise/{status,control}. Dir never spawns the
// supervisor itself; it only reads status files and writes control commands.
type Dir struct {
	root           string
	controlTimeout time.Duration
	readiness      bool
	logger         logger.Logger
}

var _ Supervisor = (*Dir)(nil)

// DirOption represents a functional option for configuring a Dir supervisor.
type DirOption interface {
	apply(*Dir) error
}

type dirOptFunc struct {
	name      string
	applyFunc func(*Dir) error
}

func (o *dirOptFunc) apply(d *Dir) error { return o.applyFunc(d) }

func newDirOptFunc(name string, f func(*Dir) error) *dirOptFunc {
	return &dirOptFunc{name: name, applyFunc: f}
}

// WithControlTimeout bounds how long Start and Stop retry control-FIFO writes
// while the supervisor is still creating or reopening the FIFO.
// An error is returned if the timeout is outside the valid range (0.05-120 seconds).
//
// The default value is 5 seconds.
func WithControlTimeout(val time.Duration) DirOption {
	return newDirOptFunc("WithControlTimeout", func(d *Dir) error {
		if val < 50*time.Millisecond || val > 120*time.Second {
			return errors.New("control timeout out of range [0.05, 120]")
		}
		d.controlTimeout = val

		return nil
	})
}

// WithReadinessCheck makes Status report StatusStarting for services that are
// up but have not posted s6 readiness yet. Only enable it for services that
// actually use readiness notification; most daemons never post ready and
// would be reported as starting forever.
func WithReadinessCheck() DirOption {
	return newDirOptFunc("WithReadinessCheck", func(d *Dir) error {
		d.readiness = true

		return nil
	})
}

// WithDirLogger sets the logger for the Dir supervisor.
//
// The default logger is the global logger instance.
func WithDirLogger(l logger.Logger) DirOption {
	return newDirOptFunc("WithDirLogger", func(d *Dir) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		d.logger = l

		return nil
	})
}

// NewDir creates a Dir supervisor client rooted at the given scan directory.
func NewDir(root string, opts ...DirOption) (*Dir, error) {
	if root == "" {
		return nil, errors.New("scan directory is empty")
	}
	if err := unix.Access(root, unix.F_OK); err != nil {
		return nil, fmt.Errorf("scan directory %s: %w", root, err)
	}

	d := &Dir{
		root:           root,
		controlTimeout: 5 * time.Second,
		logger:         logger.GetLogger(),
	}
	for _, opt := range opts {
		if err := opt.apply(d); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// statusInfo is the decoded form of a supervise status file.
type statusInfo struct {
	stamp     time.Time
	pid       int
	finishing bool
	wantUp    bool
	ready     bool
}

// Start asks the service's supervisor to bring it up.
func (d *Dir) Start(ctx context.Context, name string) error {
	return d.writeControl(ctx, name, controlUp)
}

// Stop asks the service's supervisor to take it down.
func (d *Dir) Stop(ctx context.Context, name string) error {
	return d.writeControl(ctx, name, controlDown)
}

// Status decodes the service's supervise status file.
//
// A service whose supervise directory does not exist yet reports
// StatusUnknown. A recorded pid whose process no longer exists reports
// StatusStopped regardless of what the stale status file claims.
func (d *Dir) Status(_ context.Context, name string) (Status, error) {
	info, err := d.readStatus(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return StatusUnknown, nil
		}
		return StatusUnknown, err
	}

	switch {
	case info.pid == 0 && info.wantUp:
		return StatusStarting, nil
	case info.pid == 0:
		return StatusStopped, nil
	case info.finishing:
		return StatusStopped, nil
	}

	if exists, err := process.PidExists(int32(info.pid)); err == nil && !exists {
		d.logger.Warn("stale supervise status file", "service", name, "pid", info.pid)
		return StatusStopped, nil
	}

	if d.readiness && !info.ready {
		return StatusStarting, nil
	}

	return StatusRunning, nil
}

// Serial reports the status-change TAI64N stamp in nanoseconds. Supervisors
// rewrite the stamp on every transition, so a changed serial proves the
// service transitioned even when polling missed the intermediate state.
func (d *Dir) Serial(_ context.Context, name string) (uint64, error) {
	info, err := d.readStatus(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	return uint64(info.stamp.UnixNano()), nil
}

func (d *Dir) readStatus(name string) (statusInfo, error) {
	if err := validServiceName(name); err != nil {
		return statusInfo{}, err
	}

	path := filepath.Join(d.root, name, superviseDirName, statusFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return statusInfo{}, err
	}

	info, err := decodeStatus(data)
	if err != nil {
		return statusInfo{}, fmt.Errorf("%s: %w", path, err)
	}

	return info, nil
}

func decodeStatus(data []byte) (statusInfo, error) {
	switch len(data) {
	case s6StatusSize:
		return decodeStatusS6(data)
	case dtStatusSize:
		return decodeStatusDaemontools(data)
	default:
		return statusInfo{}, fmt.Errorf("%w: %d bytes", ErrStatusFormat, len(data))
	}
}

// decodeStatusS6 decodes the 43-byte s6 layout: TAI64N change stamp at 0,
// TAI64N ready stamp at 12, big-endian pid at 24 and pgid at 32, big-endian
// wait status at 40, flags byte at 42.
func decodeStatusS6(data []byte) (statusInfo, error) {
	stamp, err := tai64.Parse("@" + hex.EncodeToString(data[s6StampOffset:s6StampOffset+12]))
	if err != nil {
		return statusInfo{}, fmt.Errorf("%w: bad change stamp: %w", ErrStatusFormat, err)
	}

	flags := data[s6FlagsOffset]

	return statusInfo{
		stamp:     stamp,
		pid:       int(binary.BigEndian.Uint64(data[s6PidOffset : s6PidOffset+8])),
		finishing: flags&s6FlagFinishing != 0,
		wantUp:    flags&s6FlagWantUp != 0,
		ready:     flags&s6FlagReady != 0,
	}, nil
}

// decodeStatusDaemontools decodes the classic 18-byte layout: TAI64N stamp
// at 0, little-endian pid at 12, paused byte at 16, want char at 17.
// Daemontools has no readiness notion, so a live pid decodes as ready.
func decodeStatusDaemontools(data []byte) (statusInfo, error) {
	stamp, err := tai64.Parse("@" + hex.EncodeToString(data[:12]))
	if err != nil {
		return statusInfo{}, fmt.Errorf("%w: bad change stamp: %w", ErrStatusFormat, err)
	}

	return statusInfo{
		stamp:  stamp,
		pid:    int(binary.LittleEndian.Uint32(data[dtPidOffset : dtPidOffset+4])),
		wantUp: data[dtWantOffset] == 'u',
		ready:  true,
	}, nil
}

// writeControl writes a single command byte to the service's control FIFO.
//
// ENXIO (no supervisor reading the FIFO yet) and ENOENT (supervise directory
// not created yet) are retried with exponential backoff until the control
// timeout elapses; any other failure aborts immediately.
func (d *Dir) writeControl(ctx context.Context, name string, cmd byte) error {
	if err := validServiceName(name); err != nil {
		return err
	}

	path := filepath.Join(d.root, name, superviseDirName, controlFileName)

	op := func() error {
		fd, err := unix.Open(path, unix.O_WRONLY|unix.O_NONBLOCK, 0)
		if err != nil {
			if errors.Is(err, unix.ENXIO) || errors.Is(err, unix.ENOENT) {
				return err
			}
			return backoff.Permanent(err)
		}
		defer unix.Close(fd)

		if _, err := unix.Write(fd, []byte{cmd}); err != nil {
			return backoff.Permanent(err)
		}

		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 20 * time.Millisecond
	bo.MaxInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = d.controlTimeout

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("send control command %q to %s: %w", string(cmd), path, err)
	}

	d.logger.Debug("control command sent", "service", name, "cmd", string(cmd))

	return nil
}

func validServiceName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsRune(name, os.PathSeparator) {
		return fmt.Errorf("invalid service name %q", name)
	}

	return nil
}
