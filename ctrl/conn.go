package ctrl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/arloliu/go-wpactl/internal/pool"
	"github.com/arloliu/go-wpactl/logger"
)

// localPrefix names local client sockets: wpactl_<pid>-<id>.
const localPrefix = "wpactl_"

var (
	eventIfacePrefix = []byte("IFNAME=")
	okReply          = []byte("OK\n")
)

// Conn is one datagram connection to a control daemon endpoint.
//
// A Conn is safe for concurrent use; Request calls are serialized so at most
// one command is in flight at a time.
type Conn struct {
	cfg      *connConfig
	conn     *net.UnixConn
	remote   string
	local    string
	abstract bool
	logger   logger.Logger

	reqMu   sync.Mutex
	closed  atomic.Bool
	metrics ConnMetrics
}

// Open connects to the control endpoint at path.
//
// A path beginning with '@' addresses the abstract socket namespace;
// any other path is a filesystem socket. Open binds a unique local socket
// (required for the daemon to address replies) before connecting, and Close
// releases it.
func Open(path string, opts ...Option) (*Conn, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	cfg := &connConfig{
		clientDir:      os.TempDir(),
		requestTimeout: 10 * time.Second,
		logger:         logger.GetLogger(),
	}
	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	abstract := strings.HasPrefix(path, "@")
	suffix := fmt.Sprintf("%s%d-%s", localPrefix, os.Getpid(), uuid.NewString()[:8])

	var local string
	if abstract {
		local = "@" + suffix
	} else {
		local = filepath.Join(cfg.clientDir, suffix)
	}

	laddr := &net.UnixAddr{Name: local, Net: "unixgram"}
	raddr := &net.UnixAddr{Name: path, Net: "unixgram"}

	conn, err := net.DialUnix("unixgram", laddr, raddr)
	if err != nil {
		return nil, fmt.Errorf("open control socket %s: %w", path, err)
	}

	if !abstract {
		// The local socket carries daemon replies; keep it private.
		if err := os.Chmod(local, 0o600); err != nil {
			cfg.logger.Warn("failed to restrict local socket mode", "path", local, "error", err)
		}
	}

	c := &Conn{
		cfg:      cfg,
		conn:     conn,
		remote:   path,
		local:    local,
		abstract: abstract,
		logger:   cfg.logger.With("endpoint", path),
	}
	c.logger.Debug("control socket opened", "local", local)

	return c, nil
}

// Request sends cmd and waits for the solicited reply.
//
// Unsolicited event datagrams that arrive first are forwarded to the event
// callback (when configured) and skipped. Request fails with ErrTimeout when
// no reply arrives within the request timeout, or with the context error when
// ctx carries an earlier deadline.
func (c *Conn) Request(ctx context.Context, cmd string) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	deadline := time.Now().Add(c.cfg.requestTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set send deadline: %w", err)
	}
	if _, err := c.conn.Write([]byte(cmd)); err != nil {
		c.metrics.incRequestErrCount()
		if errors.Is(err, net.ErrClosed) {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("send command: %w", err)
	}
	c.metrics.incRequestCount()

	buf := pool.GetBuffer()[:pool.BufferSize]
	defer pool.PutBuffer(buf)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return nil, fmt.Errorf("set reply deadline: %w", err)
		}

		n, err := c.conn.Read(buf)
		if err != nil {
			switch {
			case errors.Is(err, os.ErrDeadlineExceeded):
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				c.metrics.incTimeoutCount()
				c.logger.Debug("command timed out", "cmd", cmd)
				return nil, ErrTimeout
			case errors.Is(err, net.ErrClosed):
				return nil, ErrClosed
			default:
				c.metrics.incRequestErrCount()
				return nil, fmt.Errorf("receive reply: %w", err)
			}
		}

		if isEvent(buf[:n]) {
			c.metrics.incEventSkipCount()
			if c.cfg.eventCallback != nil {
				ev := make([]byte, n)
				copy(ev, buf[:n])
				c.cfg.eventCallback(ev)
			}
			continue
		}

		c.metrics.incReplyCount()
		reply := make([]byte, n)
		copy(reply, buf[:n])

		return reply, nil
	}
}

// Attach subscribes this connection to the daemon's asynchronous event stream.
func (c *Conn) Attach(ctx context.Context) error {
	reply, err := c.Request(ctx, "ATTACH")
	if err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	if !bytes.HasPrefix(reply, okReply) {
		return ErrAttachRejected
	}

	return nil
}

// Detach unsubscribes this connection from the daemon's event stream.
func (c *Conn) Detach(ctx context.Context) error {
	reply, err := c.Request(ctx, "DETACH")
	if err != nil {
		return fmt.Errorf("detach: %w", err)
	}
	if !bytes.HasPrefix(reply, okReply) {
		return ErrDetachRejected
	}

	return nil
}

// Recv performs a blocking read of one datagram into buf and returns the
// number of bytes received. A zero count reports a daemon-side EOF datagram.
// Close unblocks a pending Recv with an error satisfying
// errors.Is(err, net.ErrClosed).
func (c *Conn) Recv(buf []byte) (int, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}

	// Clear any deadline a previous Request left behind.
	if err := c.conn.SetReadDeadline(time.Time{}); err != nil {
		return 0, fmt.Errorf("clear read deadline: %w", err)
	}

	n, err := c.conn.Read(buf)
	if err != nil {
		return 0, err
	}
	c.metrics.incRecvCount()

	return n, nil
}

// LocalPath returns the bound local socket path or abstract name.
func (c *Conn) LocalPath() string {
	return c.local
}

// RemotePath returns the daemon endpoint this connection addresses.
func (c *Conn) RemotePath() string {
	return c.remote
}

// Metrics returns the connection metrics.
func (c *Conn) Metrics() *ConnMetrics {
	return &c.metrics
}

// Close closes the socket and removes the local socket file. It is
// idempotent and unblocks any pending Recv or Request.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	err := c.conn.Close()
	if !c.abstract {
		if rmErr := os.Remove(c.local); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			c.logger.Warn("failed to remove local socket", "path", c.local, "error", rmErr)
		}
	}
	c.logger.Debug("control socket closed")

	return err
}

// isEvent reports whether a datagram is an unsolicited event rather than a
// solicited reply. Events carry a '<level>' tag or an IFNAME= prefix.
func isEvent(msg []byte) bool {
	if len(msg) > 0 && msg[0] == '<' {
		return true
	}

	return bytes.HasPrefix(msg, eventIfacePrefix)
}
