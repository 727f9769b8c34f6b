package cmd

import (
	"context"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"github.com/Qian-MoBai/systemd-web/internal/api"
)

// DefaultSweepInterval is how often expired sessions are purged.
const DefaultSweepInterval = 10 * time.Minute

// Sweeper removes expired sessions.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// ServeOptions holds serve command options.
type ServeOptions struct {
	ListenAddress string
}

// ServeCommand represents the serve command.
type ServeCommand struct{}

// NewServeCommand creates a new ServeCommand.
func NewServeCommand() *ServeCommand {
	return &ServeCommand{}
}

// GetCobraCommand returns the cobra command for running the HTTP API.
func (c *ServeCommand) GetCobraCommand() *cobra.Command {
	var opts ServeOptions

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the unit control API",
		Long: `Serve the unit control API until SIGINT or SIGTERM.

When run under systemd with Type=notify the service reports readiness,
shutdown and watchdog keep-alives to the manager.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.Run(ctx, getApp(cmd), opts, c.buildDeps())
		},
		SilenceUsage: true,
	}

	serveCmd.Flags().StringVar(&opts.ListenAddress, "listen", "", "Address to listen on (overrides listenAddress)")
	return serveCmd
}

// buildDeps creates production dependencies for the serve command.
func (c *ServeCommand) buildDeps() ServeDeps {
	return ServeDeps{
		Notify:        daemon.SdNotify,
		Watchdog:      daemon.SdWatchdogEnabled,
		SweepInterval: DefaultSweepInterval,
	}
}

// Run serves until ctx is cancelled.
func (c *ServeCommand) Run(ctx context.Context, app *App, opts ServeOptions, deps ServeDeps) error {
	cfg := app.Config
	logger := app.Logger

	if err := app.Validator.SystemRequirements(ctx); err != nil {
		logger.Error("System requirements not met", "error", err)
	}

	var token string
	if cfg.AuthTokenFile != "" {
		t, err := api.ReadTokenFile(cfg.AuthTokenFile)
		if err != nil {
			return err
		}
		token = t
	}

	listen := cfg.ListenAddress
	if opts.ListenAddress != "" {
		listen = opts.ListenAddress
	}

	handler := api.NewHandler(app.Service, app.Audit, cfg.MaxUploadBytes, logger)
	server := api.NewServer(api.Config{
		ListenAddress:   listen,
		SessionCookie:   cfg.SessionCookie,
		SessionTTL:      cfg.SessionTTL,
		ShutdownTimeout: cfg.ShutdownTimeout,
		AuthToken:       token,
	}, handler, logger)

	bgCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	if sweeper, ok := app.Sessions.(Sweeper); ok && deps.SweepInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.sweepSessions(bgCtx, app, sweeper, deps.SweepInterval)
		}()
	}

	err := server.Start(ctx, func(addr net.Addr) {
		c.notify(app, deps, daemon.SdNotifyReady)
		if interval := c.watchdogInterval(app, deps); interval > 0 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.keepAlive(bgCtx, app, deps, interval)
			}()
		}
		if deps.OnReady != nil {
			deps.OnReady(addr)
		}
	})

	c.notify(app, deps, daemon.SdNotifyStopping)
	return err
}

func (c *ServeCommand) notify(app *App, deps ServeDeps, state string) {
	if deps.Notify == nil {
		return
	}
	if sent, err := deps.Notify(false, state); err != nil {
		app.Logger.Warn("Failed to notify systemd", "state", state, "error", err)
	} else if sent {
		app.Logger.Debug("Notified systemd", "state", state)
	}
}

func (c *ServeCommand) watchdogInterval(app *App, deps ServeDeps) time.Duration {
	if deps.Watchdog == nil {
		return 0
	}
	interval, err := deps.Watchdog(false)
	if err != nil {
		app.Logger.Warn("Failed to read watchdog settings", "error", err)
		return 0
	}
	return interval
}

// keepAlive pings the watchdog at half the requested interval.
func (c *ServeCommand) keepAlive(ctx context.Context, app *App, deps ServeDeps, interval time.Duration) {
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.notify(app, deps, daemon.SdNotifyWatchdog)
		}
	}
}

func (c *ServeCommand) sweepSessions(ctx context.Context, app *App, sweeper Sweeper, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := sweeper.Sweep(ctx)
			if err != nil {
				app.Logger.Warn("Failed to sweep sessions", "error", err)
				continue
			}
			if removed > 0 {
				app.Logger.Debug("Swept expired sessions", "removed", removed)
			}
		}
	}
}
