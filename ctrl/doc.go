// Package ctrl implements the client side of the wpa_supplicant-style
// control interface: UNIX datagram sockets carrying line-oriented text
// commands, replies, and asynchronous event notifications.
//
// Each Conn is one datagram connection to the daemon's control endpoint.
// Because datagram sockets have no implicit return address, Open binds a
// unique local socket first (a file under the client directory, or an
// abstract-namespace name when the endpoint itself is abstract) and removes
// it again on Close.
//
// A typical client opens two connections to the same endpoint: one for
// synchronous Request calls and one attached to the daemon's event stream
// with Attach and drained with Recv:
//
//	cmd, err := ctrl.Open("/var/run/wpa_supplicant/wlan0")
//	if err != nil { ... }
//	defer cmd.Close()
//
//	mon, err := ctrl.Open("/var/run/wpa_supplicant/wlan0")
//	if err != nil { ... }
//	defer mon.Close()
//
//	if err := mon.Attach(ctx); err != nil { ... }
//
//	reply, err := cmd.Request(ctx, "PING")
//
// Endpoint paths beginning with '@' address the Linux abstract socket
// namespace and leave no filesystem residue.
package ctrl
