package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trade-journal/internal/inbox"
	"trade-journal/internal/models"
)

// inboxView is the JSON shape of an inbox row.
type inboxView struct {
	ID                 string     `json:"id"`
	Status             string     `json:"status"`
	Source             string     `json:"source"`
	Ticker             string     `json:"ticker"`
	AssetType          string     `json:"asset_type,omitempty"`
	Side               string     `json:"side,omitempty"`
	Direction          string     `json:"direction,omitempty"`
	Price              *float64   `json:"price"`
	Quantity           *float64   `json:"quantity"`
	Date               *time.Time `json:"date"`
	Fees               *float64   `json:"fees"`
	Taxes              *float64   `json:"taxes"`
	OrderType          string     `json:"order_type,omitempty"`
	ExternalID         string     `json:"external_id,omitempty"`
	BrokerageAccountID string     `json:"brokerage_account_id,omitempty"`
	Account            string     `json:"account,omitempty"`
	Notes              string     `json:"notes,omitempty"`
	TradePlanID        string     `json:"trade_plan_id,omitempty"`
	ValidationErrors   []string   `json:"validation_errors"`
	ValidationWarnings []string   `json:"validation_warnings"`
	ImportedAt         time.Time  `json:"imported_at"`
}

func newInboxView(row models.InboxTrade, accounts map[accountKey]string) inboxView {
	c := row.Candidate
	v := inboxView{
		ID:                 row.ID,
		Status:             string(row.Status),
		Source:             string(c.Source),
		Ticker:             c.Ticker,
		AssetType:          string(c.AssetType),
		Side:               string(c.Side),
		Direction:          string(c.Direction),
		Price:              c.Price,
		Quantity:           c.Quantity,
		Date:               c.Date,
		Fees:               c.Fees,
		Taxes:              c.Taxes,
		OrderType:          c.OrderType,
		ExternalID:         c.ExternalID,
		BrokerageAccountID: c.BrokerageAccountID,
		Account:            accounts[accountKey{c.Source, c.BrokerageAccountID}],
		Notes:              c.Notes,
		TradePlanID:        c.TradePlanID,
		ValidationErrors:   nonNil(c.ValidationErrors),
		ValidationWarnings: nonNil(c.ValidationWarnings),
		ImportedAt:         row.ImportedAt,
	}
	return v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// addInboxCommands adds the review inbox commands.
func addInboxCommands(rootCmd *cobra.Command, app *App) {
	inboxCmd := &cobra.Command{
		Use:   "inbox",
		Short: "Review imported trades",
		Long: `Review trades imported from brokerage exports.

Imported rows wait here until they are accepted into the journal or deleted.
Rows with validation errors must be fixed with 'inbox edit' first.`,
	}

	inboxCmd.AddCommand(newInboxListCmd(app))
	inboxCmd.AddCommand(newInboxEditCmd(app))
	inboxCmd.AddCommand(newInboxAcceptCmd(app))
	inboxCmd.AddCommand(newInboxAcceptAllCmd(app))
	inboxCmd.AddCommand(newInboxDeleteCmd(app))
	inboxCmd.AddCommand(newInboxDeleteAllCmd(app))

	rootCmd.AddCommand(inboxCmd)
}

func newInboxListCmd(app *App) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List trades awaiting review",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			rows, err := app.Inbox.List(ctx, app.Owner())
			if err != nil {
				return fmt.Errorf("failed to list inbox: %w", err)
			}
			accounts, err := accountNames(ctx, app)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				views := make([]inboxView, 0, len(rows))
				for _, row := range rows {
					views = append(views, newInboxView(row, accounts))
				}
				return output.JSON(views)
			}

			if len(rows) == 0 {
				output.Info("Inbox is empty")
				return nil
			}

			layout := app.Config.UI.DateFormat
			table := NewTable(output, "ID", "Date", "Ticker", "Side", "Dir", "Qty", "Price", "Account", "Status")
			for _, row := range rows {
				c := row.Candidate
				date := "-"
				if c.Date != nil {
					date = FormatDate(*c.Date, layout)
				}
				account := accounts[accountKey{c.Source, c.BrokerageAccountID}]
				if account == "" {
					account = c.BrokerageAccountID
				}
				table.AddRow(
					row.ID,
					date,
					orDash(c.Ticker),
					orDash(string(c.Side)),
					orDash(string(c.Direction)),
					optionalQuantity(c.Quantity),
					FormatOptionalMoney(c.Price),
					orDash(account),
					inboxStatus(output, c),
				)
			}
			table.Render()

			if verbose {
				output.Println()
				for _, row := range rows {
					c := row.Candidate
					for _, msg := range c.ValidationErrors {
						output.Printf("%s  %s\n", ShortID(row.ID), output.Red(msg))
					}
					for _, msg := range c.ValidationWarnings {
						output.Printf("%s  %s\n", ShortID(row.ID), output.Yellow(msg))
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show validation messages")
	return cmd
}

func inboxStatus(output *Output, c models.Candidate) string {
	switch {
	case len(c.ValidationErrors) > 0:
		return output.Red(fmt.Sprintf("%d error(s)", len(c.ValidationErrors)))
	case len(c.ValidationWarnings) > 0:
		return output.Yellow(fmt.Sprintf("%d warning(s)", len(c.ValidationWarnings)))
	default:
		return output.Green("ready")
	}
}

func optionalQuantity(q *float64) string {
	if q == nil {
		return "-"
	}
	return FormatQuantity(*q)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func newInboxEditCmd(app *App) *cobra.Command {
	var (
		ticker, side, direction, asset, date, orderType, account, notes, plan string
		price, qty, fees, taxes                                               float64
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Correct fields of an imported trade",
		Long: `Correct fields of an imported trade. Only flags that are given change the
row; the row is validated again after the edit.`,
		Example: `  journal inbox edit 3f2a9c1e --side buy --direction long
  journal inbox edit 3f2a9c1e --date "2024-03-15 14:30" --fees 1.25`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			flags := cmd.Flags()
			var patch models.CandidatePatch
			if flags.Changed("ticker") {
				patch.Ticker = &ticker
			}
			if flags.Changed("side") {
				s := models.Side(strings.ToLower(side))
				patch.Side = &s
			}
			if flags.Changed("direction") {
				d := models.Direction(strings.ToLower(direction))
				patch.Direction = &d
			}
			if flags.Changed("asset") {
				a := models.AssetType(strings.ToLower(asset))
				patch.AssetType = &a
			}
			if flags.Changed("price") {
				patch.Price = &price
			}
			if flags.Changed("qty") {
				patch.Quantity = &qty
			}
			if flags.Changed("date") {
				t, err := ParseDate(date)
				if err != nil {
					return err
				}
				patch.Date = &t
			}
			if flags.Changed("fees") {
				patch.Fees = &fees
			}
			if flags.Changed("taxes") {
				patch.Taxes = &taxes
			}
			if flags.Changed("order-type") {
				patch.OrderType = &orderType
			}
			if flags.Changed("account") {
				patch.BrokerageAccountID = &account
			}
			if flags.Changed("notes") {
				patch.Notes = &notes
			}
			if flags.Changed("plan") {
				patch.TradePlanID = &plan
			}
			if patch.Empty() {
				return fmt.Errorf("nothing to change: pass at least one field flag")
			}

			row, err := app.Inbox.Edit(ctx, app.Owner(), args[0], patch)
			if err != nil {
				return fmt.Errorf("failed to edit inbox trade: %w", err)
			}

			if output.IsJSON() {
				accounts, err := accountNames(ctx, app)
				if err != nil {
					return err
				}
				return output.JSON(newInboxView(*row, accounts))
			}

			output.Success("Updated inbox trade %s", ShortID(row.ID))
			printDiagnostics(output, row.Candidate)
			return nil
		},
	}

	cmd.Flags().StringVar(&ticker, "ticker", "", "Ticker symbol")
	cmd.Flags().StringVar(&side, "side", "", "Side (buy/sell)")
	cmd.Flags().StringVar(&direction, "direction", "", "Direction (long/short)")
	cmd.Flags().StringVar(&asset, "asset", "", "Asset type (stock/crypto)")
	cmd.Flags().Float64Var(&price, "price", 0, "Execution price")
	cmd.Flags().Float64Var(&qty, "qty", 0, "Quantity")
	cmd.Flags().StringVar(&date, "date", "", "Execution time (YYYY-MM-DD [HH:MM[:SS]] or RFC3339)")
	cmd.Flags().Float64Var(&fees, "fees", 0, "Fees")
	cmd.Flags().Float64Var(&taxes, "taxes", 0, "Taxes")
	cmd.Flags().StringVar(&orderType, "order-type", "", "Order type")
	cmd.Flags().StringVar(&account, "account", "", "Brokerage account id")
	cmd.Flags().StringVar(&notes, "notes", "", "Notes")
	cmd.Flags().StringVar(&plan, "plan", "", "Trade plan id (empty to unlink)")

	return cmd
}

func printDiagnostics(output *Output, c models.Candidate) {
	for _, msg := range c.ValidationErrors {
		output.Error("%s", msg)
	}
	for _, msg := range c.ValidationWarnings {
		output.Warning("%s", msg)
	}
}

func newInboxAcceptCmd(app *App) *cobra.Command {
	var notes, plan string

	cmd := &cobra.Command{
		Use:   "accept <id>",
		Short: "Accept an imported trade into the journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			var overrides inbox.Overrides
			if cmd.Flags().Changed("notes") {
				overrides.Notes = &notes
			}
			if cmd.Flags().Changed("plan") {
				overrides.TradePlanID = &plan
			}

			res, err := app.Inbox.Accept(ctx, app.Owner(), args[0], overrides)
			if err != nil {
				return fmt.Errorf("failed to accept inbox trade: %w", err)
			}

			if output.IsJSON() {
				out := map[string]interface{}{
					"accepted": res.Accepted,
					"error":    res.Error,
				}
				if res.Trade != nil {
					out["trade"] = newTradeView(*res.Trade)
				}
				return output.JSON(out)
			}

			if !res.Accepted {
				return fmt.Errorf("inbox trade %s was not accepted: %s", args[0], res.Error)
			}
			t := res.Trade
			output.Success("Accepted %s %s %s %s @ %s", ShortID(t.ID), t.Side, FormatQuantity(t.Quantity), t.Ticker, FormatPrice(t.Price))
			return nil
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "Replace the notes on the accepted trade")
	cmd.Flags().StringVar(&plan, "plan", "", "Link the accepted trade to a trade plan")

	return cmd
}

func newInboxAcceptAllCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "accept-all",
		Short: "Accept every valid imported trade",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			res, err := app.Inbox.AcceptAll(ctx, app.Owner())
			if err != nil {
				return fmt.Errorf("failed to accept inbox: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"accepted":        res.Accepted,
					"skipped_invalid": res.SkippedInvalid,
					"errors":          nonNil(res.Errors),
				})
			}

			output.Success("Accepted %d trade(s)", res.Accepted)
			if res.SkippedInvalid > 0 {
				output.Warning("Skipped %d trade(s):", res.SkippedInvalid)
				for _, e := range res.Errors {
					output.Printf("  %s\n", e)
				}
			}
			return nil
		},
	}
}

func newInboxDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Discard an imported trade",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			if err := app.Inbox.Delete(ctx, app.Owner(), args[0]); err != nil {
				return fmt.Errorf("failed to delete inbox trade: %w", err)
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"deleted": args[0]})
			}
			output.Success("Deleted inbox trade %s", args[0])
			return nil
		},
	}
}

func newInboxDeleteAllCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete-all",
		Short: "Discard every imported trade",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if !yes {
				return fmt.Errorf("refusing to clear the inbox without --yes")
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			n, err := app.Inbox.DeleteAll(ctx, app.Owner())
			if err != nil {
				return fmt.Errorf("failed to clear inbox: %w", err)
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"deleted": n})
			}
			output.Success("Deleted %d inbox trade(s)", n)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm clearing the inbox")
	return cmd
}
