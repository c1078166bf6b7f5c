// Package supplicant provides a high-level client for a wpa_supplicant-style
// control-plane daemon: lifecycle management through a service supervisor,
// a dual-connection control channel (commands plus event stream), and an
// event wait loop that reduces every terminal condition to a synthetic
// terminating event.
//
// A Manager owns one daemon instance. Start brings the daemon up through the
// configured supervise.Supervisor and provisions its files first; Connect
// opens the control channel; Command and Ping talk to the daemon; WaitEvent
// delivers normalized events; Disconnect and Stop wind everything down.
//
//	cfg, err := supplicant.NewConfig("wpa_supplicant", "wlan0",
//	    supplicant.WithSupervisor(sup),
//	    supplicant.WithControlDir("/var/run/wpa_supplicant"),
//	)
//	if err != nil { ... }
//
//	mgr := supplicant.NewManager(cfg)
//	if err := mgr.Start(ctx); err != nil { ... }
//	if err := mgr.Connect(ctx); err != nil { ... }
//	defer mgr.Disconnect()
//
//	for {
//	    ev := mgr.WaitEvent(ctx)
//	    if supplicant.IsTerminating(ev) {
//	        break
//	    }
//	    // handle ev
//	}
//
// WaitEvent never returns an error: when the daemon dies, the connection
// drops, or the wait is canceled, it returns a synthetic
// "CTRL-EVENT-TERMINATING" event carrying the reason, so consumers handle
// daemon death through the same path as daemon-announced termination.
package supplicant
