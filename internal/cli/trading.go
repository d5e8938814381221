package cli

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/trogers1052/ats/internal/models"
	"github.com/trogers1052/ats/internal/orders"
)

const brokerHelp = `No broker account is connected.

Trading needs a connected Alpaca account. Connect one with:

  ats broker connect --key <api key> --secret <api secret> [--base-url <url>]

then check it with "ats broker check".
`

// brokerGate prints the connection help instead of an error when the broker is missing
func (a *App) brokerGate(err error) error {
	if errors.Is(err, orders.ErrBrokerNotConnected) {
		fmt.Fprint(a.out, brokerHelp)
		return nil
	}
	return err
}

func (a *App) orderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "order",
		Aliases: []string{"orders"},
		Short:   "Place and manage broker orders",
	}
	cmd.AddCommand(a.orderListCmd(), a.orderPlaceCmd(), a.orderCancelCmd())
	return cmd
}

func (a *App) orderListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recent orders",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.orders.CheckBroker(cmd.Context(), ""); err != nil {
				return a.brokerGate(err)
			}
			list, err := a.orders.Orders(cmd.Context())
			if err != nil {
				return err
			}
			table := newTable(a.out, "ID", "Symbol", "Side", "Type", "Qty", "Filled", "Avg Price", "Status", "Submitted")
			for _, o := range list {
				table.Append([]string{
					o.ID, o.Symbol, o.Side, o.OrderType,
					nullMoney(o.Qty), nullMoney(o.FilledQty), nullMoney(o.AvgFillPrice),
					o.Status, stamp(o.SubmittedAt),
				})
			}
			table.Render()
			return nil
		},
	}
}

// decimalFlag collects an optional decimal flag as a string so absence stays distinguishable
type decimalFlag struct {
	raw string
}

func (f *decimalFlag) value(name string) (*decimal.Decimal, error) {
	if f.raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(f.raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q", name, f.raw)
	}
	return &d, nil
}

func (a *App) orderPlaceCmd() *cobra.Command {
	var spec models.OrderSpec
	var qty, notional, limit, stop, trailPrice, trailPercent decimalFlag
	cmd := &cobra.Command{
		Use:   "place <symbol>",
		Short: "Place a manual order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec.Symbol = args[0]
			fields := []struct {
				name string
				flag *decimalFlag
				dst  **decimal.Decimal
			}{
				{"qty", &qty, &spec.Qty},
				{"notional", &notional, &spec.Notional},
				{"limit", &limit, &spec.LimitPrice},
				{"stop", &stop, &spec.StopPrice},
				{"trail-price", &trailPrice, &spec.TrailPrice},
				{"trail-percent", &trailPercent, &spec.TrailPercent},
			}
			for _, f := range fields {
				v, err := f.flag.value(f.name)
				if err != nil {
					return err
				}
				*f.dst = v
			}

			if _, err := a.orders.CheckBroker(cmd.Context(), ""); err != nil {
				return a.brokerGate(err)
			}
			o, err := a.orders.PlaceOrder(cmd.Context(), spec)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Order %s %s: %s %s %s\n", o.ID, o.Status, o.Side, nullMoney(o.Qty), o.Symbol)
			return nil
		},
	}
	cmd.Flags().StringVar(&spec.Side, "side", models.SideBuy, "buy or sell")
	cmd.Flags().StringVar(&spec.OrderType, "type", models.OrderTypeMarket, "market, limit, stop, stop_limit or trailing_stop")
	cmd.Flags().StringVar(&spec.TimeInForce, "tif", models.TimeInForceDay, "day or gtc")
	cmd.Flags().StringVar(&qty.raw, "qty", "", "share quantity")
	cmd.Flags().StringVar(&notional.raw, "notional", "", "dollar amount, market day orders only")
	cmd.Flags().StringVar(&limit.raw, "limit", "", "limit price")
	cmd.Flags().StringVar(&stop.raw, "stop", "", "stop price")
	cmd.Flags().StringVar(&trailPrice.raw, "trail-price", "", "trailing amount")
	cmd.Flags().StringVar(&trailPercent.raw, "trail-percent", "", "trailing percent")
	return cmd
}

func (a *App) orderCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <order id>",
		Short: "Cancel an open order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.orders.CancelOrder(cmd.Context(), args[0])
			if errors.Is(err, orders.ErrAlreadySettled) {
				fmt.Fprintf(a.out, "Order %s is no longer open\n", args[0])
				return nil
			}
			if err != nil {
				return a.brokerGate(err)
			}
			fmt.Fprintf(a.out, "Order %s cancelled\n", args[0])
			return nil
		},
	}
}

func (a *App) positionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "position",
		Aliases: []string{"positions"},
		Short:   "List and close broker positions",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List open positions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.orders.CheckBroker(cmd.Context(), ""); err != nil {
				return a.brokerGate(err)
			}
			list, err := a.orders.Positions(cmd.Context())
			if err != nil {
				return err
			}
			table := newTable(a.out, "Symbol", "Qty", "Entry", "Price", "Value", "Unrealized", "%")
			for _, p := range list {
				table.Append([]string{
					p.Symbol, p.Qty.String(), money(p.AvgEntryPrice), money(p.CurrentPrice),
					money(p.MarketValue), money(p.UnrealizedPL), p.UnrealizedPLPC.Mul(decimal.NewFromInt(100)).StringFixed(2),
				})
			}
			table.Render()
			return nil
		},
	}
	closeCmd := &cobra.Command{
		Use:   "close <symbol>",
		Short: "Close a position at market",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.orders.ClosePosition(cmd.Context(), args[0])
			if errors.Is(err, orders.ErrAlreadySettled) {
				fmt.Fprintf(a.out, "No open position in %s\n", args[0])
				return nil
			}
			if err != nil {
				return a.brokerGate(err)
			}
			fmt.Fprintf(a.out, "Position %s closed\n", args[0])
			return nil
		},
	}
	cmd.AddCommand(list, closeCmd)
	return cmd
}
