package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/asaskevich/EventBus"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/trogers1052/ats/internal/apiclient"
	"github.com/trogers1052/ats/internal/config"
	"github.com/trogers1052/ats/internal/orders"
	"github.com/trogers1052/ats/internal/session"
	"github.com/trogers1052/ats/internal/strategy"
)

// App wires the API client and the client-side services behind the command tree
type App struct {
	cfg    *config.ClientConfig
	in     io.Reader
	stdin  *bufio.Reader
	out    io.Writer
	logger log.FieldLogger

	creds      *Credentials
	client     *apiclient.Client
	session    *session.Manager
	strategies *strategy.Service
	orders     *orders.Service
	closers    []func()
}

// New creates an App; nothing is contacted until a command runs
func New(cfg *config.ClientConfig, in io.Reader, out io.Writer, logger log.FieldLogger) *App {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &App{cfg: cfg, in: in, out: out, logger: logger}
}

// Command builds the root command
func (a *App) Command() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "ats",
		Short:         "Manage trading strategies, orders and signals from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if verbose {
				if l, ok := a.logger.(*log.Logger); ok {
					l.SetLevel(log.DebugLevel)
				}
			}
			return a.setup(cmd.Context(), cmd.Flags().Changed("api"))
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	root.SetOut(a.out)
	root.SetIn(a.in)
	root.PersistentFlags().StringVar(&a.cfg.APIBase, "api", a.cfg.APIBase, "API base URL")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log requests")

	root.AddCommand(
		a.registerCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.stockCmd(),
		a.strategyCmd(),
		a.signalsCmd(),
		a.orderCmd(),
		a.positionCmd(),
		a.dashboardCmd(),
		a.analyticsCmd(),
		a.backtestCmd(),
		a.settingsCmd(),
		a.brokerCmd(),
	)
	return root
}

// setup builds the client from the saved credentials; an explicit --api wins over the saved base URL
func (a *App) setup(ctx context.Context, apiFlag bool) error {
	creds, err := LoadCredentials(a.cfg.Home)
	if err != nil {
		return err
	}
	a.creds = creds

	base := a.cfg.APIBase
	if !apiFlag && creds.BaseURL != "" {
		base = creds.BaseURL
	}
	token := a.cfg.Token
	if token == "" && (creds.BaseURL == "" || creds.BaseURL == base) {
		token = creds.Token
	}

	client, err := apiclient.New(apiclient.Config{
		BaseURL: base,
		Timeout: a.cfg.Timeout,
		Token:   token,
		Logger:  a.logger,
	})
	if err != nil {
		return err
	}
	a.client = client

	a.strategies = strategy.NewService(client, strategy.Options{
		FanOut:        a.cfg.SignalFanOut,
		RatePerSecond: a.cfg.SignalRPS,
		Logger:        a.logger,
	})
	a.orders = orders.NewService(client, a.logger)
	a.session = session.NewManager(client, session.Options{
		Schedule:    a.cfg.RevalidateCron,
		Broadcaster: a.broadcaster(ctx),
		Logger:      a.logger,
	})
	return nil
}

// broadcaster shares session events with other terminals through Redis when configured
func (a *App) broadcaster(ctx context.Context) session.Broadcaster {
	if a.cfg.RedisURL == "" {
		return session.NewLocalBroadcaster(EventBus.New())
	}
	opt, err := redis.ParseURL(a.cfg.RedisURL)
	if err != nil {
		a.logger.WithError(err).Warn("Invalid REDIS_URL, session events stay local")
		return session.NewLocalBroadcaster(EventBus.New())
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		a.logger.WithError(err).Warn("Redis unavailable, session events stay local")
		rdb.Close()
		return session.NewLocalBroadcaster(EventBus.New())
	}
	a.closers = append(a.closers, func() { rdb.Close() })
	return session.NewRedisBroadcaster(rdb, session.DefaultChannel, a.logger)
}

func (a *App) close() {
	for _, fn := range a.closers {
		fn()
	}
	a.closers = nil
}

// saveSession persists the current token so later invocations stay logged in
func (a *App) saveSession(username string) error {
	a.creds.BaseURL = a.client.BaseURL()
	a.creds.Token = a.client.Token()
	a.creds.Username = username
	if err := a.creds.Save(a.cfg.Home); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}
