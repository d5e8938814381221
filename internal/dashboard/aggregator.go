// Package dashboard loads the panels of the trading dashboard concurrently.
// Every panel carries its own error so one failing source never hides the others.
package dashboard

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/trogers1052/ats/internal/apiclient"
	"github.com/trogers1052/ats/internal/models"
	"golang.org/x/sync/errgroup"
)

// Strategies supplies active strategies with their last signals filled
type Strategies interface {
	Active(ctx context.Context) ([]models.Strategy, error)
}

// Broker reports the connection state of the user's brokerage account
type Broker interface {
	CheckBroker(ctx context.Context, broker string) (*models.BrokerStatus, error)
}

// API is the subset of the REST client used by the dashboard
type API interface {
	WatchList(ctx context.Context) ([]string, error)
	Overview(ctx context.Context) ([]models.TickerOverview, error)
	RecentSignals(ctx context.Context) ([]models.Signal, error)
	PriceData(ctx context.Context, ticker string, q apiclient.PriceDataQuery) ([]models.PriceBar, error)
}

// Panel is the outcome of loading one dashboard section
type Panel[T any] struct {
	Data     T
	Err      error
	Duration time.Duration
}

// Failed reports whether the panel could not be loaded
func (p Panel[T]) Failed() bool {
	return p.Err != nil
}

// StrategyRow is one active strategy and ticker pair
type StrategyRow struct {
	ID         string
	StrategyID int
	Title      string
	Ticker     string
	LastSignal string
}

// Dashboard holds every panel of one load
type Dashboard struct {
	Strategies Panel[[]StrategyRow]
	WatchList  Panel[[]string]
	Overview   Panel[[]models.TickerOverview]
	Broker     Panel[*models.BrokerStatus]
	Signals    Panel[*Pager[models.Signal]]
	Chart      Panel[[]models.PriceBar]

	// Ticker is the ticker shown in the mini chart, empty when none was available
	Ticker string
}

// Options configures an Aggregator
type Options struct {
	PageSize     int
	PanelTimeout time.Duration
	Logger       log.FieldLogger
}

// Aggregator composes the dashboard from independent sources
type Aggregator struct {
	strategies Strategies
	broker     Broker
	api        API
	pageSize   int
	timeout    time.Duration
	log        log.FieldLogger
}

// NewAggregator creates an aggregator
func NewAggregator(strategies Strategies, broker Broker, api API, opts Options) *Aggregator {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.PanelTimeout <= 0 {
		opts.PanelTimeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	return &Aggregator{
		strategies: strategies,
		broker:     broker,
		api:        api,
		pageSize:   opts.PageSize,
		timeout:    opts.PanelTimeout,
		log:        opts.Logger,
	}
}

// Load fetches all panels concurrently. When selectedTicker is empty the chart
// shows the first watchlist ticker. Load never fails as a whole; inspect each panel.
func (a *Aggregator) Load(ctx context.Context, selectedTicker string) *Dashboard {
	d := &Dashboard{Ticker: selectedTicker}
	firstTicker := make(chan string, 1)

	g := new(errgroup.Group)

	g.Go(func() error {
		d.Strategies = load(ctx, a, "strategies", a.strategyRows)
		return nil
	})

	g.Go(func() error {
		d.WatchList = load(ctx, a, "watchlist", a.api.WatchList)
		first := ""
		if len(d.WatchList.Data) > 0 {
			first = d.WatchList.Data[0]
		}
		firstTicker <- first

		if d.WatchList.Failed() || len(d.WatchList.Data) == 0 {
			d.Overview = Panel[[]models.TickerOverview]{Data: []models.TickerOverview{}}
			return nil
		}
		d.Overview = load(ctx, a, "overview", a.api.Overview)
		return nil
	})

	g.Go(func() error {
		d.Broker = load(ctx, a, "broker", func(ctx context.Context) (*models.BrokerStatus, error) {
			return a.broker.CheckBroker(ctx, "")
		})
		return nil
	})

	g.Go(func() error {
		d.Signals = load(ctx, a, "signals", func(ctx context.Context) (*Pager[models.Signal], error) {
			signals, err := a.api.RecentSignals(ctx)
			if err != nil {
				return nil, err
			}
			return NewPager(signals, a.pageSize), nil
		})
		return nil
	})

	g.Go(func() error {
		ticker := selectedTicker
		if ticker == "" {
			select {
			case ticker = <-firstTicker:
			case <-ctx.Done():
			}
		}
		if ticker == "" {
			d.Chart = Panel[[]models.PriceBar]{Data: []models.PriceBar{}}
			return nil
		}
		d.Ticker = ticker
		d.Chart = load(ctx, a, "chart", func(ctx context.Context) ([]models.PriceBar, error) {
			return a.api.PriceData(ctx, ticker, apiclient.PriceDataQuery{})
		})
		return nil
	})

	_ = g.Wait()
	return d
}

func (a *Aggregator) strategyRows(ctx context.Context) ([]StrategyRow, error) {
	list, err := a.strategies.Active(ctx)
	if err != nil {
		return nil, err
	}
	return StrategyRows(list), nil
}

// StrategyRows flattens strategies to one row per assigned ticker
func StrategyRows(list []models.Strategy) []StrategyRow {
	rows := []StrategyRow{}
	for _, st := range list {
		for _, ticker := range st.Tickers {
			action, ok := st.LastSignals[ticker]
			if !ok {
				action = models.ActionHold
			}
			rows = append(rows, StrategyRow{
				ID:         fmt.Sprintf("%d_%s", st.ID, ticker),
				StrategyID: st.ID,
				Title:      st.Title,
				Ticker:     ticker,
				LastSignal: action,
			})
		}
	}
	return rows
}

// load runs one panel source under its own timeout
func load[T any](ctx context.Context, a *Aggregator, name string, fn func(context.Context) (T, error)) Panel[T] {
	pctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	data, err := fn(pctx)
	p := Panel[T]{Data: data, Err: err, Duration: time.Since(start)}
	if err != nil {
		a.log.WithError(err).WithField("panel", name).Warn("Dashboard panel failed")
	}
	return p
}
