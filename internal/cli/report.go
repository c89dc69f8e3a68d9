package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// addReportCommands adds position and P&L reports.
func addReportCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newPositionsCmd(app))
	rootCmd.AddCommand(newPnLCmd(app))
}

func newPositionsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "positions",
		Short: "Show open positions at average cost",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			positions, err := app.Journal.Positions(ctx, app.Owner())
			if err != nil {
				return fmt.Errorf("failed to compute positions: %w", err)
			}

			if output.IsJSON() {
				type view struct {
					Ticker      string  `json:"ticker"`
					Direction   string  `json:"direction"`
					NetQuantity float64 `json:"net_quantity"`
					AverageCost float64 `json:"average_cost"`
				}
				views := make([]view, 0, len(positions))
				for _, p := range positions {
					views = append(views, view{p.Ticker, string(p.Direction), p.NetQuantity, p.AverageCost})
				}
				return output.JSON(views)
			}

			if len(positions) == 0 {
				output.Info("No open positions")
				return nil
			}

			table := NewTable(output, "Ticker", "Dir", "Qty", "Avg Cost", "Cost Basis")
			for _, p := range positions {
				table.AddRow(
					p.Ticker,
					string(p.Direction),
					FormatQuantity(p.NetQuantity),
					FormatPrice(p.AverageCost),
					FormatMoney(p.NetQuantity*p.AverageCost),
				)
			}
			table.Render()
			return nil
		},
	}
}

func newPnLCmd(app *App) *cobra.Command {
	var (
		ticker  string
		closing bool
	)

	cmd := &cobra.Command{
		Use:   "pnl",
		Short: "Show realized P&L per trade",
		Long: `Show realized P&L per trade using average cost. Realized P&L is
price-only: (exit - average cost) x quantity, with fees and taxes excluded.
Opening trades have no realized P&L.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			report, err := app.Journal.RealizedPL(ctx, app.Owner(), ticker)
			if err != nil {
				return fmt.Errorf("failed to compute P&L: %w", err)
			}

			if output.IsJSON() {
				type row struct {
					Trade      tradeView `json:"trade"`
					RealizedPL *float64  `json:"realized_pl"`
				}
				rows := make([]row, 0, len(report.Rows))
				for _, r := range report.Rows {
					if closing && r.RealizedPL == nil {
						continue
					}
					rows = append(rows, row{newTradeView(r.Trade), r.RealizedPL})
				}
				s := report.Summary
				return output.JSON(map[string]interface{}{
					"rows": rows,
					"summary": map[string]interface{}{
						"closing_trades": s.ClosingTrades,
						"winners":        s.Winners,
						"losers":         s.Losers,
						"gross_profit":   s.GrossProfit,
						"gross_loss":     s.GrossLoss,
						"net_pl":         s.NetPL,
					},
				})
			}

			if len(report.Rows) == 0 {
				output.Info("No trades found")
				return nil
			}

			layout := app.Config.UI.DateFormat
			table := NewTable(output, "Date", "Ticker", "Side", "Dir", "Qty", "Price", "Realized P&L")
			for _, r := range report.Rows {
				if closing && r.RealizedPL == nil {
					continue
				}
				t := r.Trade
				table.AddRow(
					FormatDate(t.Date, layout),
					t.Ticker,
					string(t.Side),
					string(t.Direction),
					FormatQuantity(t.Quantity),
					FormatPrice(t.Price),
					output.FormatOptionalPnL(r.RealizedPL),
				)
			}
			table.Render()

			s := report.Summary
			output.Println()
			output.Bold("Summary")
			output.Printf("  Closing trades: %d (%d winners, %d losers)\n", s.ClosingTrades, s.Winners, s.Losers)
			if s.ClosingTrades > 0 {
				output.Printf("  Win rate:       %.1f%%\n", float64(s.Winners)/float64(s.ClosingTrades)*100)
			}
			output.Printf("  Gross profit:   %s\n", output.FormatPnL(s.GrossProfit))
			output.Printf("  Gross loss:     %s\n", output.FormatPnL(s.GrossLoss))
			output.Printf("  Net P&L:        %s\n", output.FormatPnL(s.NetPL))
			return nil
		},
	}

	cmd.Flags().StringVar(&ticker, "ticker", "", "Only report this ticker")
	cmd.Flags().BoolVar(&closing, "closing", false, "Only show closing trades")

	return cmd
}
