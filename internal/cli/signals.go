package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/trogers1052/ats/internal/dashboard"
	"github.com/trogers1052/ats/internal/models"
)

func (a *App) signalsCmd() *cobra.Command {
	var page, size int
	cmd := &cobra.Command{
		Use:   "signals",
		Short: "Show recent signals of the last day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := a.client.RecentSignals(cmd.Context())
			if err != nil {
				return err
			}
			a.signalPage(dashboard.NewPager(list, size), page)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&size, "page-size", dashboard.DefaultPageSize, "signals per page")

	last := &cobra.Command{
		Use:   "last <strategy id> <ticker>",
		Short: "Show the latest action of a strategy for one ticker",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ls, err := a.client.LastSignal(cmd.Context(), id, strings.ToUpper(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, ls.Normalized())
			return nil
		},
	}
	cmd.AddCommand(last)
	return cmd
}

func (a *App) signalPage(p *dashboard.Pager[models.Signal], page int) {
	n := p.Clamp(page)
	a.signalTable(p.Page(n))
	if p.Pages() > 1 {
		fmt.Fprintf(a.out, "Page %d of %d\n", n, p.Pages())
	}
}

func (a *App) signalTable(list []models.Signal) {
	table := newTable(a.out, "Time", "Strategy", "Ticker", "Action", "Price", "Executed")
	for _, s := range list {
		strat := s.StrategyTitle
		if strat == "" {
			strat = strconv.Itoa(s.StrategyID)
		}
		table.Append([]string{
			stamp(&s.CreatedAt), strat, s.Ticker, models.NormalizeAction(s.Action),
			nullMoney(s.Price), strconv.FormatBool(s.Executed),
		})
	}
	table.Render()
}

func (a *App) stockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "watchlist",
		Aliases: []string{"stocks"},
		Short:   "Manage the followed tickers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.printOverview(cmd)
		},
	}
	add := &cobra.Command{
		Use:   "add <ticker>...",
		Short: "Follow tickers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, t := range models.NormalizeTickers(args) {
				if err := a.client.AddStock(cmd.Context(), t); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Added %s\n", t)
			}
			return nil
		},
	}
	remove := &cobra.Command{
		Use:   "remove <ticker>...",
		Short: "Stop following tickers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, t := range models.NormalizeTickers(args) {
				if err := a.client.RemoveStock(cmd.Context(), t); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Removed %s\n", t)
			}
			return nil
		},
	}
	indicators := &cobra.Command{
		Use:   "indicators <ticker>",
		Short: "Show the latest indicator values of a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.client.Indicators(cmd.Context(), strings.ToUpper(args[0]))
			if err != nil {
				return err
			}
			table := newTable(a.out, "Indicator", "Value")
			for _, k := range models.IndicatorKeys {
				if v, ok := snap[k]; ok {
					table.Append([]string{k, v.StringFixed(2)})
				}
			}
			table.Render()
			return nil
		},
	}
	var days int
	predict := &cobra.Command{
		Use:   "predict <ticker>",
		Short: "Show the AI model's recent buy and sell predictions for a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := a.client.Prediction(cmd.Context(), strings.ToUpper(args[0]))
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(a.out, "No predictions")
				return nil
			}
			if days > 0 && len(rows) > days {
				rows = rows[len(rows)-days:]
			}
			table := newTable(a.out, "Close", "Prediction")
			for _, p := range rows {
				label := models.ActionHold
				switch {
				case p.Buy():
					label = models.ActionBuy
				case p.Sell():
					label = models.ActionSell
				}
				table.Append([]string{money(p.Close), label})
			}
			table.Render()
			return nil
		},
	}
	predict.Flags().IntVarP(&days, "days", "n", 15, "number of most recent rows, 0 for all")

	cmd.AddCommand(add, remove, indicators, predict)
	return cmd
}

func (a *App) printOverview(cmd *cobra.Command) error {
	tickers, err := a.client.WatchList(cmd.Context())
	if err != nil {
		return err
	}
	if len(tickers) == 0 {
		fmt.Fprintln(a.out, "Your watchlist is empty")
		return nil
	}
	overview, err := a.client.Overview(cmd.Context())
	if err != nil {
		return err
	}
	a.overviewTable(overview)
	return nil
}

func (a *App) overviewTable(list []models.TickerOverview) {
	table := newTable(a.out, "Symbol", "Price", "RSI", "EMA 10", "Signal")
	for _, o := range list {
		table.Append([]string{o.Symbol, nullMoney(o.Price), nullMoney(o.RSI), nullMoney(o.EMA10), o.Signal})
	}
	table.Render()
}
