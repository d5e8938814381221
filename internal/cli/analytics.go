package cli

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"
	"github.com/trogers1052/ats/internal/models"
)

const dateFlagLayout = "2006-01-02"

type filterFlags struct {
	strategyID int
	ticker     string
	from, to   string
	limit      int
}

func (f *filterFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.strategyID, "strategy", 0, "only this strategy id")
	cmd.Flags().StringVar(&f.ticker, "ticker", "", "only this ticker")
	cmd.Flags().StringVar(&f.from, "from", "", "start date, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.to, "to", "", "end date, YYYY-MM-DD")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "maximum rows")
}

func (f *filterFlags) filter() (models.AnalyticsFilter, error) {
	out := models.AnalyticsFilter{StrategyID: f.strategyID, Ticker: f.ticker, Limit: f.limit}
	var err error
	if f.from != "" {
		if out.StartDate, err = time.Parse(dateFlagLayout, f.from); err != nil {
			return out, fmt.Errorf("invalid --from %q: want YYYY-MM-DD", f.from)
		}
	}
	if f.to != "" {
		if out.EndDate, err = time.Parse(dateFlagLayout, f.to); err != nil {
			return out, fmt.Errorf("invalid --to %q: want YYYY-MM-DD", f.to)
		}
	}
	return out, out.Validate()
}

// tradeRow is the CSV layout of an exported trade log
type tradeRow struct {
	ID         int    `csv:"id"`
	StrategyID int    `csv:"strategy_id"`
	Symbol     string `csv:"symbol"`
	Action     string `csv:"action"`
	Price      string `csv:"price"`
	Quantity   int    `csv:"quantity"`
	Timestamp  string `csv:"timestamp"`
	ExitPrice  string `csv:"exit_price"`
	ExitTime   string `csv:"exit_time"`
	PnL        string `csv:"pnl"`
}

func newTradeRow(t models.TradeLog) tradeRow {
	row := tradeRow{
		ID:         t.ID,
		StrategyID: t.StrategyID,
		Symbol:     t.Symbol,
		Action:     t.Action,
		Price:      t.Price.String(),
		Quantity:   t.Quantity,
		Timestamp:  t.Timestamp.Format(time.RFC3339),
	}
	if t.ExitPrice.Valid {
		row.ExitPrice = t.ExitPrice.Decimal.String()
	}
	if t.ExitTime != nil {
		row.ExitTime = t.ExitTime.Format(time.RFC3339)
	}
	if t.PnL.Valid {
		row.PnL = t.PnL.Decimal.String()
	}
	return row
}

func (a *App) analyticsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Trading performance reports",
	}

	var overviewFlags filterFlags
	overview := &cobra.Command{
		Use:   "overview",
		Short: "Summary of trades and PnL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := overviewFlags.filter()
			if err != nil {
				return err
			}
			o, err := a.client.AnalyticsOverview(cmd.Context(), f)
			if err != nil {
				return err
			}
			table := newTable(a.out, "Metric", "Value")
			table.AppendBulk([][]string{
				{"Total trades", strconv.Itoa(o.TotalTrades)},
				{"Total orders", strconv.Itoa(o.TotalOrders)},
				{"Winning trades", strconv.Itoa(o.SuccessTrades)},
				{"Win rate %", money(o.WinRate)},
				{"Total PnL", money(o.TotalPnL)},
				{"Average PnL", money(o.AveragePnL)},
				{"Max drawdown", money(o.MaxDrawdown)},
				{"Sharpe ratio", money(o.SharpeRatio)},
			})
			table.Render()
			return nil
		},
	}
	overviewFlags.bind(overview)

	var strategyFlags filterFlags
	strategies := &cobra.Command{
		Use:   "strategies",
		Short: "Realised PnL per strategy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := strategyFlags.filter()
			if err != nil {
				return err
			}
			list, err := a.client.StrategiesPnL(cmd.Context(), f)
			if err != nil {
				return err
			}
			table := newTable(a.out, "ID", "Strategy", "PnL")
			for _, s := range list {
				table.Append([]string{strconv.Itoa(s.StrategyID), s.Title, money(s.PnL)})
			}
			table.Render()
			return nil
		},
	}
	strategyFlags.bind(strategies)

	var tickerFlags filterFlags
	tickers := &cobra.Command{
		Use:   "tickers",
		Short: "Tickers ranked by PnL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := tickerFlags.filter()
			if err != nil {
				return err
			}
			list, err := a.client.TopTickers(cmd.Context(), f)
			if err != nil {
				return err
			}
			table := newTable(a.out, "Symbol", "PnL")
			for _, t := range list {
				table.Append([]string{t.Symbol, money(t.PnL)})
			}
			table.Render()
			return nil
		},
	}
	tickerFlags.bind(tickers)

	var equityFlags filterFlags
	equity := &cobra.Command{
		Use:   "equity",
		Short: "Cumulative PnL curve",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := equityFlags.filter()
			if err != nil {
				return err
			}
			points, err := a.client.EquityCurve(cmd.Context(), f)
			if err != nil {
				return err
			}
			table := newTable(a.out, "Date", "PnL")
			for _, p := range points {
				table.Append([]string{p.Date.Format(dateFlagLayout), money(p.PnL)})
			}
			table.Render()
			return nil
		},
	}
	equityFlags.bind(equity)

	cmd.AddCommand(overview, strategies, tickers, equity, a.analyticsTradesCmd())
	return cmd
}

func (a *App) analyticsTradesCmd() *cobra.Command {
	var flags filterFlags
	var csvPath string
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "Automated trade log, optionally exported as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := flags.filter()
			if err != nil {
				return err
			}
			logs, err := a.client.TradeLogs(cmd.Context(), f)
			if err != nil {
				return err
			}
			if csvPath != "" {
				return a.exportTrades(logs, csvPath)
			}
			table := newTable(a.out, "ID", "Strategy", "Symbol", "Action", "Qty", "Price", "Opened", "Exit", "Closed", "PnL")
			for _, t := range logs {
				table.Append([]string{
					strconv.Itoa(t.ID), strconv.Itoa(t.StrategyID), t.Symbol, t.Action,
					strconv.Itoa(t.Quantity), money(t.Price), stamp(&t.Timestamp),
					nullMoney(t.ExitPrice), stamp(t.ExitTime), nullMoney(t.PnL),
				})
			}
			table.Render()
			return nil
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&csvPath, "csv", "", "write the trades to this CSV file, - for stdout")
	return cmd
}

func (a *App) exportTrades(logs []models.TradeLog, path string) error {
	rows := make([]tradeRow, 0, len(logs))
	for _, t := range logs {
		rows = append(rows, newTradeRow(t))
	}

	if path == "-" {
		if err := gocsv.Marshal(&rows, a.out); err != nil {
			return fmt.Errorf("failed to write csv: %w", err)
		}
		return nil
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	fmt.Fprintf(a.out, "Wrote %d trades to %s\n", len(rows), path)
	return nil
}
