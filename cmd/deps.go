package cmd

import (
	"net"
	"time"
)

// NotifyFunc represents systemd notification function.
type NotifyFunc func(unsetEnvironment bool, state string) (bool, error)

// WatchdogFunc reports the watchdog interval requested by the service manager.
type WatchdogFunc func(unsetEnvironment bool) (time.Duration, error)

// ServeDeps holds serve dependencies.
type ServeDeps struct {
	Notify        NotifyFunc
	Watchdog      WatchdogFunc
	SweepInterval time.Duration
	// OnReady, if set, is called with the bound address.
	OnReady func(net.Addr)
}
