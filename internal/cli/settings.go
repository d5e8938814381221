package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/trogers1052/ats/internal/models"
)

func (a *App) settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Profile, notification and trading preferences",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show all settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			profile, err := a.client.Settings(ctx)
			if err != nil {
				return err
			}
			notif, err := a.client.NotificationSettings(ctx)
			if err != nil {
				return err
			}
			prefs, err := a.client.TradingPreferences(ctx)
			if err != nil {
				return err
			}
			table := newTable(a.out, "Setting", "Value")
			table.AppendBulk([][]string{
				{"username", profile.Username},
				{"email", profile.Email},
				{"email alerts", onOff(notif.EmailAlertsEnabled)},
				{"notify on signal", onOff(notif.NotifyOnSignal)},
				{"notify on order filled", onOff(notif.NotifyOnOrderFilled)},
				{"notify on error", onOff(notif.NotifyOnError)},
				{"default timeframe", prefs.DefaultTimeframe},
				{"auto trading", onOff(prefs.AutoTradingEnabled)},
				{"default trade amount", money(prefs.DefaultTradeAmount)},
				{"use percentage", onOff(prefs.UsePercentage)},
				{"default stop loss", optMoney(prefs.DefaultStopLoss)},
				{"default take profit", optMoney(prefs.DefaultTakeProfit)},
			})
			table.Render()
			return nil
		},
	}

	var username, email, password string
	profile := &cobra.Command{
		Use:   "profile",
		Short: "Change username, email or password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var upd models.ProfileUpdate
			if cmd.Flags().Changed("username") {
				upd.Username = &username
			}
			if cmd.Flags().Changed("email") {
				upd.Email = &email
			}
			if cmd.Flags().Changed("password") {
				upd.Password = &password
			}
			if upd == (models.ProfileUpdate{}) {
				return fmt.Errorf("nothing to update")
			}
			if err := a.client.UpdateProfile(cmd.Context(), upd); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Profile updated")
			return nil
		},
	}
	profile.Flags().StringVar(&username, "username", "", "new username")
	profile.Flags().StringVar(&email, "email", "", "new email address")
	profile.Flags().StringVar(&password, "password", "", "new password")

	cmd.AddCommand(show, profile, a.notificationsCmd(), a.tradingPrefsCmd())
	return cmd
}

// notificationsCmd changes only the flags given, keeping the rest as stored
func (a *App) notificationsCmd() *cobra.Command {
	var n models.NotificationSettings
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Change email notification settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cur, err := a.client.NotificationSettings(cmd.Context())
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("email-alerts") {
				cur.EmailAlertsEnabled = n.EmailAlertsEnabled
			}
			if flags.Changed("on-signal") {
				cur.NotifyOnSignal = n.NotifyOnSignal
			}
			if flags.Changed("on-fill") {
				cur.NotifyOnOrderFilled = n.NotifyOnOrderFilled
			}
			if flags.Changed("on-error") {
				cur.NotifyOnError = n.NotifyOnError
			}
			if err := a.client.SaveNotificationSettings(cmd.Context(), *cur); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Notification settings saved")
			return nil
		},
	}
	cmd.Flags().BoolVar(&n.EmailAlertsEnabled, "email-alerts", false, "send email alerts")
	cmd.Flags().BoolVar(&n.NotifyOnSignal, "on-signal", false, "notify on new signals")
	cmd.Flags().BoolVar(&n.NotifyOnOrderFilled, "on-fill", false, "notify on filled orders")
	cmd.Flags().BoolVar(&n.NotifyOnError, "on-error", false, "notify on errors")
	return cmd
}

func (a *App) tradingPrefsCmd() *cobra.Command {
	var timeframe string
	var auto, percent bool
	var amount, stopLoss, takeProfit decimalFlag
	cmd := &cobra.Command{
		Use:   "trading",
		Short: "Change the defaults applied to new strategies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cur, err := a.client.TradingPreferences(cmd.Context())
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("timeframe") {
				cur.DefaultTimeframe = timeframe
			}
			if flags.Changed("auto") {
				cur.AutoTradingEnabled = auto
			}
			if flags.Changed("percent") {
				cur.UsePercentage = percent
			}
			if v, err := amount.value("amount"); err != nil {
				return err
			} else if v != nil {
				cur.DefaultTradeAmount = *v
			}
			if v, err := stopLoss.value("stop-loss"); err != nil {
				return err
			} else if v != nil {
				cur.DefaultStopLoss = v
			}
			if v, err := takeProfit.value("take-profit"); err != nil {
				return err
			} else if v != nil {
				cur.DefaultTakeProfit = v
			}
			if err := cur.Validate(); err != nil {
				return err
			}
			saved, err := a.client.SaveTradingPreferences(cmd.Context(), *cur)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Trading preferences saved: %s, amount %s\n", saved.DefaultTimeframe, money(saved.DefaultTradeAmount))
			return nil
		},
	}
	cmd.Flags().StringVar(&timeframe, "timeframe", "", "default timeframe, e.g. 1H or 1D")
	cmd.Flags().BoolVar(&auto, "auto", false, "enable automatic trading")
	cmd.Flags().BoolVar(&percent, "percent", false, "size trades as a percent of balance")
	cmd.Flags().StringVar(&amount.raw, "amount", "", "default trade amount")
	cmd.Flags().StringVar(&stopLoss.raw, "stop-loss", "", "default stop loss")
	cmd.Flags().StringVar(&takeProfit.raw, "take-profit", "", "default take profit")
	return cmd
}

func (a *App) brokerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "broker",
		Short: "Manage the brokerage connection",
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the account of the connected broker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.orders.CheckBroker(cmd.Context(), "")
			if st == nil && err != nil {
				return a.brokerGate(err)
			}
			a.brokerSummary(st)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored broker connections",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conns, err := a.client.BrokerConnections(cmd.Context())
			if err != nil {
				return err
			}
			table := newTable(a.out, "ID", "Broker", "Base URL", "Created")
			for _, c := range conns {
				table.Append([]string{strconv.Itoa(c.ID), c.Broker, c.BaseURL, stamp(&c.CreatedAt)})
			}
			table.Render()
			return nil
		},
	}

	creds := models.BrokerCredentials{Broker: models.BrokerAlpaca}
	connect := &cobra.Command{
		Use:   "connect",
		Short: "Store broker API keys",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := creds.Validate(); err != nil {
				return err
			}
			conn, err := a.client.ConnectBroker(cmd.Context(), creds)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Connected %s (%s)\n", conn.Broker, conn.BaseURL)
			return nil
		},
	}
	connect.Flags().StringVar(&creds.Broker, "broker", models.BrokerAlpaca, "broker name")
	connect.Flags().StringVar(&creds.APIKey, "key", "", "API key")
	connect.Flags().StringVar(&creds.APISecret, "secret", "", "API secret")
	connect.Flags().StringVar(&creds.BaseURL, "base-url", "https://paper-api.alpaca.markets", "broker API base URL")

	disconnect := &cobra.Command{
		Use:   "disconnect [broker]",
		Short: "Remove the stored broker keys",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			broker := models.BrokerAlpaca
			if len(args) == 1 {
				broker = args[0]
			}
			if err := a.client.DisconnectBroker(cmd.Context(), broker); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Disconnected %s\n", broker)
			return nil
		},
	}

	check := &cobra.Command{
		Use:   "check [broker]",
		Short: "Verify the stored keys against the broker",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			broker := models.BrokerAlpaca
			if len(args) == 1 {
				broker = args[0]
			}
			st, err := a.orders.CheckBroker(cmd.Context(), broker)
			if st == nil && err != nil {
				return a.brokerGate(err)
			}
			a.brokerSummary(st)
			return nil
		},
	}

	cmd.AddCommand(status, list, connect, disconnect, check)
	return cmd
}

func (a *App) backtestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay strategies over historical data",
	}

	var req models.BacktestRequest
	var from, to string
	run := &cobra.Command{
		Use:   "run <strategy id> <ticker>",
		Short: "Run a backtest",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			req.StrategyID = id
			req.Ticker = args[1]
			if req.StartDate, err = time.Parse(dateFlagLayout, from); err != nil {
				return fmt.Errorf("invalid --from %q: want YYYY-MM-DD", from)
			}
			if req.EndDate, err = time.Parse(dateFlagLayout, to); err != nil {
				return fmt.Errorf("invalid --to %q: want YYYY-MM-DD", to)
			}
			res, err := a.client.RunBacktest(cmd.Context(), req)
			if err != nil {
				return err
			}
			a.backtestResult(res)
			return nil
		},
	}
	run.Flags().StringVar(&from, "from", "", "start date, YYYY-MM-DD")
	run.Flags().StringVar(&to, "to", "", "end date, YYYY-MM-DD")
	run.MarkFlagRequired("from")
	run.MarkFlagRequired("to")

	show := &cobra.Command{
		Use:   "show <backtest id>",
		Short: "Show a stored backtest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			res, err := a.client.BacktestResult(cmd.Context(), id)
			if err != nil {
				return err
			}
			a.backtestResult(res)
			return nil
		},
	}

	cmd.AddCommand(run, show)
	return cmd
}

func (a *App) backtestResult(res *models.BacktestResult) {
	if res.ID != nil {
		fmt.Fprintf(a.out, "Backtest %d\n", *res.ID)
	}
	m := res.Metrics
	fmt.Fprintf(a.out, "PnL %s   win rate %s%%   max drawdown %s   sharpe %s   average %s\n",
		money(m.TotalPnL), money(m.WinRate), money(m.MaxDrawdown), nullMoney(m.SharpeRatio), nullMoney(m.AveragePnL))

	table := newTable(a.out, "Time", "Action", "Price", "Result", "PnL")
	for _, t := range res.Trades {
		table.Append([]string{stamp(&t.Time), t.Action, money(t.Price), t.Result, money(t.PnL)})
	}
	table.Render()
}
