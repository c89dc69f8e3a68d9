package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"trade-journal/internal/audit"
	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

type accountKey struct {
	source    models.Source
	accountID string
}

// accountNames maps brokerage accounts to their configured display names.
func accountNames(ctx context.Context, app *App) (map[accountKey]string, error) {
	mappings, err := app.Store.ListAccountMappings(ctx, app.Owner())
	if err != nil {
		return nil, err
	}
	names := make(map[accountKey]string, len(mappings))
	for _, m := range mappings {
		names[accountKey{m.Source, m.AccountID}] = m.DisplayName
	}
	return names, nil
}

// addAccountCommands adds brokerage account display name commands.
func addAccountCommands(rootCmd *cobra.Command, app *App) {
	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Manage brokerage account display names",
	}

	accountCmd.AddCommand(&cobra.Command{
		Use:     "set <ibkr|kraken> <account-id> <display-name>",
		Short:   "Name a brokerage account",
		Example: `  journal account set ibkr U1234567 "IRA"`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			source := models.ParseSource(args[0])
			if !source.Valid() {
				return fmt.Errorf("%w: %q", apperrors.ErrUnsupportedSource, args[0])
			}
			mapping := &models.AccountMapping{
				OwnerID:     app.Owner(),
				Source:      source,
				AccountID:   args[1],
				DisplayName: args[2],
			}
			if err := app.Store.SetAccountMapping(ctx, mapping); err != nil {
				return fmt.Errorf("failed to save account: %w", err)
			}
			recordAccount(ctx, app, audit.EventEdit, mapping)

			output.Success("%s account %s is now shown as %q", source, args[1], args[2])
			return nil
		},
	})

	accountCmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List named brokerage accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			mappings, err := app.Store.ListAccountMappings(ctx, app.Owner())
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}

			if output.IsJSON() {
				type view struct {
					Source      string `json:"source"`
					AccountID   string `json:"account_id"`
					DisplayName string `json:"display_name"`
				}
				views := make([]view, 0, len(mappings))
				for _, m := range mappings {
					views = append(views, view{string(m.Source), m.AccountID, m.DisplayName})
				}
				return output.JSON(views)
			}

			if len(mappings) == 0 {
				output.Info("No accounts named yet")
				return nil
			}
			table := NewTable(output, "Source", "Account", "Name")
			for _, m := range mappings {
				table.AddRow(string(m.Source), m.AccountID, m.DisplayName)
			}
			table.Render()
			return nil
		},
	})

	accountCmd.AddCommand(&cobra.Command{
		Use:     "delete <ibkr|kraken> <account-id>",
		Aliases: []string{"rm"},
		Short:   "Remove an account display name",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			source := models.ParseSource(args[0])
			if err := app.Store.DeleteAccountMapping(ctx, app.Owner(), source, args[1]); err != nil {
				return fmt.Errorf("failed to delete account: %w", err)
			}
			recordAccount(ctx, app, audit.EventDelete, &models.AccountMapping{OwnerID: app.Owner(), Source: source, AccountID: args[1]})

			output.Success("Removed name for %s account %s", source, args[1])
			return nil
		},
	})

	rootCmd.AddCommand(accountCmd)
}

func recordAccount(ctx context.Context, app *App, typ audit.EventType, m *models.AccountMapping) {
	err := app.Audit.Record(ctx, audit.Event{
		Type:     typ,
		OwnerID:  m.OwnerID,
		EntityID: string(m.Source) + ":" + m.AccountID,
		Details: map[string]interface{}{
			"entity":       "account_mapping",
			"display_name": m.DisplayName,
		},
		Success: true,
	})
	if err != nil {
		app.Logger.Warn().Err(err).Msg("Failed to write audit event")
	}
}
