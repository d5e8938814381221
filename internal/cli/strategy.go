package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/trogers1052/ats/internal/models"
)

func (a *App) strategyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "strategy",
		Aliases: []string{"strategies", "st"},
		Short:   "Manage trading strategies",
	}
	cmd.AddCommand(
		a.strategyListCmd(),
		a.strategyShowCmd(),
		a.strategyCreateCmd(),
		a.strategyUpdateCmd(),
		a.strategyIDCmd("delete", "Delete a strategy with its tickers and logs", func(cmd *cobra.Command, id int) error {
			if err := a.strategies.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Strategy %d deleted\n", id)
			return nil
		}),
		a.strategyIDCmd("enable", "Start evaluating a strategy", func(cmd *cobra.Command, id int) error {
			if err := a.strategies.Enable(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Strategy %d enabled\n", id)
			return nil
		}),
		a.strategyIDCmd("disable", "Stop evaluating a strategy", func(cmd *cobra.Command, id int) error {
			if err := a.strategies.Disable(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Strategy %d disabled\n", id)
			return nil
		}),
		a.strategyTickersCmd(),
		a.strategyIDCmd("train", "Train the model of a model strategy", func(cmd *cobra.Command, id int) error {
			res, err := a.strategies.TrainModel(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, res.Message)
			return nil
		}),
		a.strategyModelCmd(),
		a.strategyLogsCmd(),
		a.strategyExportCmd(),
	)
	return cmd
}

// strategyIDCmd builds a subcommand taking a single strategy id
func (a *App) strategyIDCmd(use, short string, run func(cmd *cobra.Command, id int) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(cmd, id)
		},
	}
}

func (a *App) strategyListCmd() *cobra.Command {
	var active bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List strategies with their last signals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var list []models.Strategy
			var err error
			if active {
				list, err = a.strategies.Active(cmd.Context())
			} else {
				list, err = a.strategies.List(cmd.Context())
			}
			if err != nil {
				return err
			}
			table := newTable(a.out, "ID", "Title", "Type", "Enabled", "Mode", "Tickers", "Signals")
			for _, st := range list {
				table.Append([]string{
					strconv.Itoa(st.ID),
					st.Title,
					st.StrategyType,
					onOff(st.IsEnabled),
					st.AutomationMode,
					strings.Join(st.Tickers, ","),
					formatSignals(st.LastSignals),
				})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&active, "active", false, "only enabled strategies")
	return cmd
}

func (a *App) strategyShowCmd() *cobra.Command {
	return a.strategyIDCmd("show", "Show one strategy", func(cmd *cobra.Command, id int) error {
		st, err := a.strategies.Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "#%d %s (%s, %s)\n", st.ID, st.Title, st.StrategyType, enabledLabel(st.IsEnabled))
		fmt.Fprintf(a.out, "Tickers:     %s\n", strings.Join(st.Tickers, ", "))
		fmt.Fprintf(a.out, "Automation:  %s, checked every %s\n", st.AutomationMode, st.MarketCheckFrequency)
		fmt.Fprintf(a.out, "Order:       %s, amount %s\n", st.OrderType, money(st.TradeAmount))
		fmt.Fprintf(a.out, "Exits:       stop loss %s, take profit %s\n", optMoney(st.StopLoss), optMoney(st.TakeProfit))
		if st.IsModel() {
			fmt.Fprintf(a.out, "Training:    %s %s..%s, last trained %s\n",
				st.TrainingTicker, st.TrainingFromDate, st.TrainingToDate, stamp(st.LastTrainedAt))
			return nil
		}
		table := newTable(a.out, "Side", "Indicator", "Operator", "Value")
		for _, r := range st.BuySignals {
			table.Append([]string{"buy", r.Indicator, r.Operator, strconv.FormatFloat(r.Value, 'f', -1, 64)})
		}
		for _, r := range st.SellSignals {
			table.Append([]string{"sell", r.Indicator, r.Operator, strconv.FormatFloat(r.Value, 'f', -1, 64)})
		}
		table.SetFooter([]string{"", "", "Logic", st.SignalLogic})
		table.Render()
		return nil
	})
}

func (a *App) strategyCreateCmd() *cobra.Command {
	var file, tickers string
	var defaults bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a strategy from a YAML or JSON draft",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := readDraft(file, a.in)
			if err != nil {
				return err
			}
			if defaults {
				prefs, err := a.client.TradingPreferences(cmd.Context())
				if err != nil {
					return err
				}
				prefs.ApplyTo(&d)
			}
			st, err := a.strategies.Create(cmd.Context(), d, splitTickers(tickers)...)
			if err != nil {
				if st != nil {
					fmt.Fprintf(a.out, "Strategy %d created, but its tickers were not saved\n", st.ID)
				}
				return err
			}
			fmt.Fprintf(a.out, "Strategy %d created\n", st.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "draft file, - for stdin")
	cmd.Flags().StringVar(&tickers, "tickers", "", "comma separated tickers to assign")
	cmd.Flags().BoolVar(&defaults, "defaults", false, "fill empty fields from trading preferences")
	cmd.MarkFlagRequired("file")
	return cmd
}

func (a *App) strategyUpdateCmd() *cobra.Command {
	var file string
	cmd := a.strategyIDCmd("update", "Replace the editable fields of a disabled strategy", func(cmd *cobra.Command, id int) error {
		d, err := readDraft(file, a.in)
		if err != nil {
			return err
		}
		if _, err := a.strategies.Update(cmd.Context(), id, d); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Strategy %d updated\n", id)
		return nil
	})
	cmd.Flags().StringVarP(&file, "file", "f", "", "draft file, - for stdin")
	cmd.MarkFlagRequired("file")
	return cmd
}

func (a *App) strategyTickersCmd() *cobra.Command {
	cmd := a.strategyIDCmd("tickers", "Show the tickers of a strategy", func(cmd *cobra.Command, id int) error {
		tickers, err := a.strategies.Tickers(cmd.Context(), id)
		if err != nil {
			return err
		}
		for _, t := range tickers {
			fmt.Fprintln(a.out, t)
		}
		return nil
	})
	set := &cobra.Command{
		Use:   "set <id> <ticker>...",
		Short: "Replace the tickers of a disabled strategy",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var tickers []string
			for _, arg := range args[1:] {
				tickers = append(tickers, strings.Split(arg, ",")...)
			}
			if err := a.strategies.SetTickers(cmd.Context(), id, tickers); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Strategy %d now trades %s\n", id, strings.Join(models.NormalizeTickers(tickers), ", "))
			return nil
		},
	}
	cmd.AddCommand(set)
	return cmd
}

func (a *App) strategyModelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage the trained model of a model strategy",
	}
	cmd.AddCommand(a.strategyIDCmd("delete", "Delete the trained model", func(cmd *cobra.Command, id int) error {
		if err := a.strategies.DeleteModel(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Model of strategy %d deleted\n", id)
		return nil
	}))
	return cmd
}

func (a *App) strategyLogsCmd() *cobra.Command {
	var limit int
	cmd := a.strategyIDCmd("logs", "Show the recent signals of a strategy", func(cmd *cobra.Command, id int) error {
		logs, err := a.strategies.Logs(cmd.Context(), id, limit)
		if err != nil {
			return err
		}
		a.signalTable(logs)
		return nil
	})
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of signals")
	return cmd
}

func (a *App) strategyExportCmd() *cobra.Command {
	return a.strategyIDCmd("export", "Print a strategy as an editable YAML draft", func(cmd *cobra.Command, id int) error {
		st, err := a.strategies.Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		return writeDraft(a.out, st.Draft())
	})
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func enabledLabel(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func formatSignals(signals map[string]string) string {
	if len(signals) == 0 {
		return "-"
	}
	tickers := make([]string, 0, len(signals))
	for t := range signals {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	parts := make([]string, len(tickers))
	for i, t := range tickers {
		parts[i] = t + ":" + signals[t]
	}
	return strings.Join(parts, " ")
}
