// Package supervise defines the service-supervision contract the
// control-channel client drives daemons through, together with three
// interchangeable backends.
//
// The Supervisor interface models an external supervision mechanism: start
// and stop a service by name, query its current status, and read a
// monotonically increasing change serial per status key. The serial lets a
// poller detect that at least one transition was recorded even when it
// misses intermediate states, which is what makes "started then immediately
// died" distinguishable from "never started".
//
// Backends:
//
//   - Store: an in-process registry with atomic status and serial per
//     service. Useful for tests and for embedding when the daemon lifecycle
//     is owned by the same process.
//   - Dir: a client for s6/daemontools-style scan directories. It reads the
//     binary supervise/status file and writes single-byte commands to the
//     supervise/control FIFO.
//   - Exec: a minimal self-managed child-process supervisor for
//     environments without an external supervision system.
//
// All backends are safe for concurrent use.
package supervise
