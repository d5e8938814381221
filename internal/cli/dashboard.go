package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/trogers1052/ats/internal/dashboard"
	"github.com/trogers1052/ats/internal/models"
	"github.com/trogers1052/ats/internal/request"
)

func (a *App) dashboardCmd() *cobra.Command {
	var ticker string
	var page int
	var watch time.Duration
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show strategies, watchlist, broker account, recent signals and a price chart",
		RunE: func(cmd *cobra.Command, _ []string) error {
			agg := dashboard.NewAggregator(a.strategies, a.orders, a.client, dashboard.Options{
				Logger: a.logger,
			})
			if watch <= 0 {
				a.renderDashboard(agg.Load(cmd.Context(), ticker), page)
				return nil
			}
			return a.watchDashboard(cmd.Context(), agg, ticker, page, watch)
		},
	}
	cmd.Flags().StringVarP(&ticker, "ticker", "t", "", "ticker for the price chart, first watchlist ticker by default")
	cmd.Flags().IntVar(&page, "page", 1, "recent signals page")
	cmd.Flags().DurationVarP(&watch, "watch", "w", 0, "refresh interval, runs until interrupted or logged out")
	return cmd
}

// watchDashboard reloads on every tick and stops as soon as the session ends,
// whether by revalidation or by a logout in another terminal. Loads go through a
// request slot so a slow load overtaken by a newer one is never drawn.
func (a *App) watchDashboard(ctx context.Context, agg *dashboard.Aggregator, ticker string, page int, every time.Duration) error {
	u, err := a.session.Load(ctx)
	if err != nil {
		return err
	}
	if u == nil {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}
	if err := a.session.Start(ctx); err != nil {
		return err
	}
	defer a.session.Stop()

	ended := make(chan struct{}, 1)
	unsub := a.session.Subscribe(func(u *models.User) {
		if u == nil {
			select {
			case ended <- struct{}{}:
			default:
			}
		}
	})
	defer unsub()

	var drawMu sync.Mutex
	slot := request.NewSlot[*dashboard.Dashboard](errMessage)
	slot.OnChange(func(s request.Snapshot[*dashboard.Dashboard]) {
		if s.State != request.Success {
			return
		}
		drawMu.Lock()
		defer drawMu.Unlock()
		a.renderDashboard(s.Data, page)
	})

	loadCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()
	refresh := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			slot.Do(loadCtx, func(ctx context.Context) (*dashboard.Dashboard, error) {
				return agg.Load(ctx, ticker), nil
			})
		}()
	}

	ticks := time.NewTicker(every)
	defer ticks.Stop()
	refresh()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ended:
			slot.Reset()
			drawMu.Lock()
			defer drawMu.Unlock()
			fmt.Fprintln(a.out, "Session ended, log in again with \"ats login\"")
			return nil
		case <-ticks.C:
			refresh()
		}
	}
}

func (a *App) renderDashboard(d *dashboard.Dashboard, page int) {
	fmt.Fprintln(a.out, "== Active strategies")
	switch {
	case a.panelFailed(d.Strategies.Err):
	case len(d.Strategies.Data) == 0:
		fmt.Fprintln(a.out, "No active strategies")
	default:
		table := newTable(a.out, "Strategy", "Ticker", "Last Signal")
		for _, row := range d.Strategies.Data {
			table.Append([]string{row.Title, row.Ticker, row.LastSignal})
		}
		table.Render()
	}

	fmt.Fprintln(a.out, "\n== Watchlist")
	switch {
	case a.panelFailed(d.WatchList.Err):
	case len(d.WatchList.Data) == 0:
		fmt.Fprintln(a.out, "Your watchlist is empty")
	case a.panelFailed(d.Overview.Err):
	default:
		a.overviewTable(d.Overview.Data)
	}

	fmt.Fprintln(a.out, "\n== Broker")
	if d.Broker.Failed() && d.Broker.Data == nil {
		fmt.Fprintf(a.out, "Not connected: %s\n", errMessage(d.Broker.Err))
	} else {
		a.brokerSummary(d.Broker.Data)
	}

	fmt.Fprintln(a.out, "\n== Recent signals")
	if !a.panelFailed(d.Signals.Err) {
		a.signalPage(d.Signals.Data, page)
	}

	if d.Ticker == "" {
		return
	}
	fmt.Fprintf(a.out, "\n== %s\n", d.Ticker)
	if !a.panelFailed(d.Chart.Err) {
		a.chart(d.Chart.Data)
	}
}

func (a *App) panelFailed(err error) bool {
	if err == nil {
		return false
	}
	fmt.Fprintf(a.out, "Unavailable: %s\n", errMessage(err))
	return true
}

func (a *App) brokerSummary(st *models.BrokerStatus) {
	if st == nil {
		return
	}
	state := "connected"
	if !st.Connected {
		state = "not connected"
		if st.Error != "" {
			state += ": " + st.Error
		}
	}
	fmt.Fprintf(a.out, "Status:     %s %s\n", state, st.AccountStatus)
	fmt.Fprintf(a.out, "Cash:       %s   Buying power: %s\n", nullMoney(st.Cash), nullMoney(st.BuyingPower))
	fmt.Fprintf(a.out, "Portfolio:  %s   Today: %s   Total: %s\n", nullMoney(st.PortfolioValue), nullMoney(st.TodayPnL), nullMoney(st.TotalPnL))
}

const chartWidth = 40

// chart draws the last closes as horizontal bars scaled between the series low and high
func (a *App) chart(bars []models.PriceBar) {
	if len(bars) == 0 {
		fmt.Fprintln(a.out, "No price data")
		return
	}
	if len(bars) > 15 {
		bars = bars[len(bars)-15:]
	}
	low, high := bars[0].Close, bars[0].Close
	for _, b := range bars {
		if b.Close.LessThan(low) {
			low = b.Close
		}
		if b.Close.GreaterThan(high) {
			high = b.Close
		}
	}
	span := high.Sub(low)
	for _, b := range bars {
		width := chartWidth
		if span.IsPositive() {
			width = 1 + int(b.Close.Sub(low).Div(span).Mul(decimalOf(chartWidth-1)).IntPart())
		}
		marker := ""
		switch {
		case b.BuySignal:
			marker = " BUY"
		case b.SellSignal:
			marker = " SELL"
		}
		fmt.Fprintf(a.out, "%-10s %10s %s%s\n", b.Date, money(b.Close), bar(width), marker)
	}
}
