// Package inbox manages imported executions from arrival until they are
// accepted into the journal or discarded.
//
// An inbox row only ever holds the pending_review status. Accepting a row
// materializes a canonical trade and removes the row; deleting a row simply
// removes it.
package inbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/identity"
	"trade-journal/internal/models"
	"trade-journal/internal/validation"
)

// MsgNotPendingReview is the accept failure reported for rows that are no
// longer awaiting review.
const MsgNotPendingReview = "Trade is not pending review"

// PlanLookup resolves trade plans by id regardless of owner.
type PlanLookup interface {
	GetTradePlan(ctx context.Context, id string) (*models.TradePlan, error)
}

// ImportResult summarizes one import batch.
type ImportResult struct {
	Imported             int
	SkippedDuplicates    int
	WithValidationErrors int
	WithWarnings         int
	// Rows are the new inbox rows, in candidate order.
	Rows []models.InboxTrade
}

// ImportCandidates turns a batch of normalized candidates into new inbox
// rows. A candidate is skipped when its (source, external id) key is already
// held by a canonical trade, a pending inbox row, or an earlier candidate in
// the same batch. Candidates without an external id are always imported.
func ImportCandidates(ownerID string, candidates []models.Candidate, existingTrades []models.Trade, existingPending []models.InboxTrade) ImportResult {
	seen := make(map[identity.DedupKey]struct{}, len(existingTrades)+len(existingPending)+len(candidates))
	for _, t := range existingTrades {
		if key, ok := identity.KeyOfTrade(t); ok {
			seen[key] = struct{}{}
		}
	}
	for _, r := range existingPending {
		if r.Status != models.InboxPendingReview {
			continue
		}
		if key, ok := identity.KeyOf(r.Candidate); ok {
			seen[key] = struct{}{}
		}
	}

	now := time.Now().UTC()
	var res ImportResult
	for _, c := range candidates {
		if key, ok := identity.KeyOf(c); ok {
			if _, dup := seen[key]; dup {
				res.SkippedDuplicates++
				continue
			}
			seen[key] = struct{}{}
		}

		checked := validation.Validate(c, false).Apply(c)
		if len(checked.ValidationErrors) > 0 {
			res.WithValidationErrors++
		}
		if len(checked.ValidationWarnings) > 0 {
			res.WithWarnings++
		}

		res.Rows = append(res.Rows, models.InboxTrade{
			ID:         uuid.NewString(),
			OwnerID:    ownerID,
			Status:     models.InboxPendingReview,
			Candidate:  checked,
			ImportedAt: now,
			UpdatedAt:  now,
		})
		res.Imported++
	}

	return res
}

// Overrides are optional values applied to the trade created on accept.
type Overrides struct {
	Notes       *string
	TradePlanID *string
}

// AcceptResult reports the outcome of accepting one inbox row. A refused
// accept is a result, not an error, so batch accepts can continue.
type AcceptResult struct {
	Accepted bool
	Error    string
	Trade    *models.Trade

	// revalidated is set when validation refused the row; it carries the
	// fresh diagnostics to store back on the row.
	revalidated *models.Candidate
}

// AcceptInboxTrade re-validates row and, when it passes, builds the canonical
// trade it becomes. The row is not modified. Ownership failures on the row or
// on the referenced plan are returned as errors wrapping ErrNotFound.
func AcceptInboxTrade(ctx context.Context, ownerID string, row models.InboxTrade, overrides Overrides, plans PlanLookup) (AcceptResult, error) {
	if row.OwnerID != ownerID {
		return AcceptResult{}, fmt.Errorf("inbox trade %s: %w", row.ID, apperrors.ErrNotFound)
	}
	if row.Status != models.InboxPendingReview {
		return AcceptResult{Error: MsgNotPendingReview}, nil
	}

	result := validation.Validate(row.Candidate, false)
	if !result.Valid() {
		c := result.Apply(row.Candidate)
		return AcceptResult{
			Error:       strings.Join(result.Errors, "; "),
			revalidated: &c,
		}, nil
	}

	c := row.Candidate
	planID := c.TradePlanID
	if overrides.TradePlanID != nil {
		planID = *overrides.TradePlanID
	}
	if planID != "" {
		if err := checkPlan(ctx, plans, ownerID, planID); err != nil {
			return AcceptResult{}, err
		}
	}

	notes := c.Notes
	if overrides.Notes != nil {
		notes = *overrides.Notes
	}

	trade := &models.Trade{
		ID:                 uuid.NewString(),
		OwnerID:            ownerID,
		Ticker:             result.Ticker,
		AssetType:          c.AssetType,
		Side:               c.Side,
		Direction:          c.Direction,
		Price:              *c.Price,
		Quantity:           *c.Quantity,
		Date:               *c.Date,
		Fees:               copyFloat(c.Fees),
		Taxes:              copyFloat(c.Taxes),
		Notes:              notes,
		OrderType:          c.OrderType,
		Source:             c.Source,
		ExternalID:         strings.TrimSpace(c.ExternalID),
		BrokerageAccountID: c.BrokerageAccountID,
		TradePlanID:        planID,
		CreatedAt:          time.Now().UTC(),
	}

	return AcceptResult{Accepted: true, Trade: trade}, nil
}

// checkPlan fails with ErrNotFound when the plan is missing or belongs to
// another owner.
func checkPlan(ctx context.Context, plans PlanLookup, ownerID, planID string) error {
	plan, err := plans.GetTradePlan(ctx, planID)
	if err != nil {
		return fmt.Errorf("looking up trade plan: %w", err)
	}
	if plan == nil || plan.OwnerID != ownerID {
		return fmt.Errorf("trade plan %s: %w", planID, apperrors.ErrNotFound)
	}
	return nil
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return models.Float(*v)
}
