package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/journal"
	"trade-journal/internal/models"
	"trade-journal/internal/store"
	"trade-journal/internal/validation"
)

// tradeView is the JSON shape of a canonical trade.
type tradeView struct {
	ID                 string    `json:"id"`
	Ticker             string    `json:"ticker"`
	AssetType          string    `json:"asset_type"`
	Side               string    `json:"side"`
	Direction          string    `json:"direction"`
	Price              float64   `json:"price"`
	Quantity           float64   `json:"quantity"`
	Date               time.Time `json:"date"`
	Fees               *float64  `json:"fees"`
	Taxes              *float64  `json:"taxes"`
	Notes              string    `json:"notes,omitempty"`
	OrderType          string    `json:"order_type,omitempty"`
	Source             string    `json:"source"`
	ExternalID         string    `json:"external_id,omitempty"`
	BrokerageAccountID string    `json:"brokerage_account_id,omitempty"`
	TradePlanID        string    `json:"trade_plan_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

func newTradeView(t models.Trade) tradeView {
	return tradeView{
		ID:                 t.ID,
		Ticker:             t.Ticker,
		AssetType:          string(t.AssetType),
		Side:               string(t.Side),
		Direction:          string(t.Direction),
		Price:              t.Price,
		Quantity:           t.Quantity,
		Date:               t.Date,
		Fees:               t.Fees,
		Taxes:              t.Taxes,
		Notes:              t.Notes,
		OrderType:          t.OrderType,
		Source:             string(t.Source),
		ExternalID:         t.ExternalID,
		BrokerageAccountID: t.BrokerageAccountID,
		TradePlanID:        t.TradePlanID,
		CreatedAt:          t.CreatedAt,
	}
}

// addTradeCommands adds commands for canonical journal trades.
func addTradeCommands(rootCmd *cobra.Command, app *App) {
	tradeCmd := &cobra.Command{
		Use:   "trade",
		Short: "Manage journal trades",
		Long:  `Add, list, edit, and delete trades in the journal.`,
	}

	tradeCmd.AddCommand(newTradeAddCmd(app))
	tradeCmd.AddCommand(newTradeListCmd(app))
	tradeCmd.AddCommand(newTradeEditCmd(app))
	tradeCmd.AddCommand(newTradeDeleteCmd(app))

	rootCmd.AddCommand(tradeCmd)
}

func newTradeAddCmd(app *App) *cobra.Command {
	var (
		ticker, side, direction, asset, date, orderType, account, notes, plan string
		price, qty, fees, taxes                                               float64
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a trade by hand",
		Example: `  journal trade add --ticker AAPL --side buy --direction long --price 187.20 --qty 10
  journal trade add --ticker BTC --asset crypto --side sell --direction long \
      --price 64000 --qty 0.05 --date "2024-03-15 14:30" --fees 3.20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			when := time.Now()
			if date != "" {
				t, err := ParseDate(date)
				if err != nil {
					return err
				}
				when = t
			}

			c := models.Candidate{
				Source:             models.SourceManual,
				Ticker:             ticker,
				AssetType:          models.AssetType(strings.ToLower(asset)),
				Side:               models.Side(strings.ToLower(side)),
				Direction:          models.Direction(strings.ToLower(direction)),
				Price:              &price,
				Quantity:           &qty,
				Date:               &when,
				OrderType:          orderType,
				BrokerageAccountID: account,
				Notes:              notes,
				TradePlanID:        plan,
			}
			if cmd.Flags().Changed("fees") {
				c.Fees = &fees
			}
			if cmd.Flags().Changed("taxes") {
				c.Taxes = &taxes
			}

			trade, err := app.Journal.AddTrade(ctx, app.Owner(), c)
			if err != nil {
				var tradeErr *apperrors.TradeError
				if errors.As(err, &tradeErr) {
					for _, msg := range tradeErr.Errors {
						output.Error("%s", msg)
					}
				}
				return fmt.Errorf("failed to add trade: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(newTradeView(*trade))
			}
			output.Success("Recorded %s %s %s @ %s (%s)", trade.Side, FormatQuantity(trade.Quantity), trade.Ticker, FormatPrice(trade.Price), ShortID(trade.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&ticker, "ticker", "", "Ticker symbol (required)")
	cmd.Flags().StringVar(&side, "side", "", "Side: buy or sell (required)")
	cmd.Flags().StringVar(&direction, "direction", "long", "Direction: long or short")
	cmd.Flags().StringVar(&asset, "asset", "stock", "Asset type: stock or crypto")
	cmd.Flags().Float64Var(&price, "price", 0, "Execution price (required)")
	cmd.Flags().Float64Var(&qty, "qty", 0, "Quantity (required)")
	cmd.Flags().StringVar(&date, "date", "", "Execution time, defaults to now")
	cmd.Flags().Float64Var(&fees, "fees", 0, "Fees")
	cmd.Flags().Float64Var(&taxes, "taxes", 0, "Taxes")
	cmd.Flags().StringVar(&orderType, "order-type", "", "Order type")
	cmd.Flags().StringVar(&account, "account", "", "Brokerage account id")
	cmd.Flags().StringVar(&notes, "notes", "", "Notes")
	cmd.Flags().StringVar(&plan, "plan", "", "Trade plan id")

	cmd.MarkFlagRequired("ticker")
	cmd.MarkFlagRequired("side")
	cmd.MarkFlagRequired("price")
	cmd.MarkFlagRequired("qty")

	return cmd
}

func newTradeListCmd(app *App) *cobra.Command {
	var (
		ticker, source, from, to string
		limit                    int
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List journal trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			filter := store.TradeFilter{
				Ticker: validation.NormalizeTicker(ticker),
				Source: models.ParseSource(source),
				Limit:  limit,
			}
			if source != "" && filter.Source == "" {
				return fmt.Errorf("%w: %q", apperrors.ErrUnsupportedSource, source)
			}
			var err error
			if from != "" {
				if filter.StartDate, err = ParseDate(from); err != nil {
					return err
				}
			}
			if to != "" {
				if filter.EndDate, err = ParseDate(to); err != nil {
					return err
				}
			}

			trades, err := app.Journal.ListTrades(ctx, app.Owner(), filter)
			if err != nil {
				return fmt.Errorf("failed to list trades: %w", err)
			}

			if output.IsJSON() {
				views := make([]tradeView, 0, len(trades))
				for _, t := range trades {
					views = append(views, newTradeView(t))
				}
				return output.JSON(views)
			}

			if len(trades) == 0 {
				output.Info("No trades found")
				return nil
			}

			layout := app.Config.UI.DateFormat
			table := NewTable(output, "ID", "Date", "Ticker", "Side", "Dir", "Qty", "Price", "Fees", "Source", "Notes")
			for _, t := range trades {
				table.AddRow(
					t.ID,
					FormatDate(t.Date, layout),
					t.Ticker,
					string(t.Side),
					string(t.Direction),
					FormatQuantity(t.Quantity),
					FormatPrice(t.Price),
					FormatOptionalMoney(t.Fees),
					string(t.Source),
					TruncateString(t.Notes, 30),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&ticker, "ticker", "", "Only this ticker")
	cmd.Flags().StringVar(&source, "source", "", "Only this source (manual, ibkr, kraken)")
	cmd.Flags().StringVar(&from, "from", "", "Trades on or after this date")
	cmd.Flags().StringVar(&to, "to", "", "Trades on or before this date")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of trades")

	return cmd
}

func newTradeEditCmd(app *App) *cobra.Command {
	var (
		notes, plan string
		fees, taxes float64
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Update notes, plan link, fees, or taxes of a trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			var patch journal.TradePatch
			if cmd.Flags().Changed("notes") {
				patch.Notes = &notes
			}
			if cmd.Flags().Changed("plan") {
				patch.TradePlanID = &plan
			}
			if cmd.Flags().Changed("fees") {
				patch.Fees = &fees
			}
			if cmd.Flags().Changed("taxes") {
				patch.Taxes = &taxes
			}
			if patch == (journal.TradePatch{}) {
				return fmt.Errorf("nothing to change: pass --notes, --plan, --fees, or --taxes")
			}

			trade, err := app.Journal.EditTrade(ctx, app.Owner(), args[0], patch)
			if err != nil {
				return fmt.Errorf("failed to edit trade: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(newTradeView(*trade))
			}
			output.Success("Updated trade %s", ShortID(trade.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "Notes")
	cmd.Flags().StringVar(&plan, "plan", "", "Trade plan id (empty to unlink)")
	cmd.Flags().Float64Var(&fees, "fees", 0, "Fees")
	cmd.Flags().Float64Var(&taxes, "taxes", 0, "Taxes")

	return cmd
}

func newTradeDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a journal trade",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			if err := app.Journal.DeleteTrade(ctx, app.Owner(), args[0]); err != nil {
				return fmt.Errorf("failed to delete trade: %w", err)
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"deleted": args[0]})
			}
			output.Success("Deleted trade %s", args[0])
			return nil
		},
	}
}
