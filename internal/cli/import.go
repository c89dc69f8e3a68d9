package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"trade-journal/internal/identity"
	"trade-journal/internal/importers"
	"trade-journal/internal/inbox"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
)

// commandTimeout bounds every store-backed command.
const commandTimeout = 30 * time.Second

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, commandTimeout)
}

// addImportCommands adds the brokerage import command.
func addImportCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "import <ibkr|kraken> <file.csv>",
		Short: "Import a brokerage export into the review inbox",
		Long: `Import a brokerage CSV export into the review inbox.

IBKR exports are read at order level: rows must carry the Open/CloseIndicator
and Buy/Sell columns. Kraken trade-history exports are read at fill level and
fills of the same order are combined into one trade.

Executions already in the journal or the inbox are skipped. Rows that fail
validation are still imported so they can be corrected with 'inbox edit'.`,
		Example: `  journal import ibkr ~/Downloads/trades_2024.csv
  journal import kraken trades.csv --json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			source := models.ParseSource(args[0])
			normalizer, err := importers.GetNormalizer(source, importers.Options{Location: app.Config.Location()})
			if err != nil {
				return err
			}

			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("opening export: %w", err)
			}
			defer f.Close()

			res, tagged, err := runImport(ctx, app, normalizer, f)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"imported":               res.Imported,
					"skipped_duplicates":     res.SkippedDuplicates,
					"with_validation_errors": res.WithValidationErrors,
					"with_warnings":          res.WithWarnings,
					"fingerprinted":          tagged,
				})
			}

			output.Success("Imported %d trade(s) from %s", res.Imported, source)
			if res.SkippedDuplicates > 0 {
				output.Dim("Skipped %d duplicate(s)", res.SkippedDuplicates)
			}
			if tagged > 0 {
				output.Dim("Derived identities for %d execution(s) without a broker id", tagged)
			}
			if res.WithValidationErrors > 0 {
				output.Warning("%d row(s) need fixes before they can be accepted; see 'journal inbox list'", res.WithValidationErrors)
			}
			if res.WithWarnings > 0 {
				output.Dim("%d row(s) have warnings", res.WithWarnings)
			}
			return nil
		},
	}

	rootCmd.AddCommand(cmd)
}

// runImport normalizes an export, tags missing identities when configured,
// and hands the candidates to the inbox.
func runImport(ctx context.Context, app *App, normalizer importers.Normalizer, f *os.File) (inbox.ImportResult, int, error) {
	logger := logging.WithSource(logging.WithOperation(app.Logger, "import"), string(normalizer.Source()))

	candidates, err := normalizer.Normalize(f)
	if err != nil {
		return inbox.ImportResult{}, 0, err
	}
	logger.Debug().Int("candidates", len(candidates)).Str("file", f.Name()).Msg("Export normalized")

	tagged := 0
	if app.Config.Import.FingerprintMissingIDs {
		candidates, tagged = identity.Tag(candidates)
	}

	res, err := app.Inbox.Import(ctx, app.Owner(), candidates)
	if err != nil {
		return inbox.ImportResult{}, 0, err
	}
	return res, tagged, nil
}
