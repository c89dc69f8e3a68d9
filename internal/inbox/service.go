package inbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"trade-journal/internal/audit"
	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
	"trade-journal/internal/store"
	"trade-journal/internal/validation"
)

// Store is the persistence the inbox service needs.
type Store interface {
	store.InboxStore
	ListTrades(ctx context.Context, ownerID string, filter store.TradeFilter) ([]models.Trade, error)
	PlanLookup
}

// AcceptAllResult summarizes a batch accept.
type AcceptAllResult struct {
	Accepted       int
	SkippedInvalid int
	// Errors holds one "{id}: {error}" entry per row that was not accepted.
	Errors []string
}

// Service runs inbox operations against a store. Each top-level operation
// holds the service lock so a batch's dedup check and inserts are not
// interleaved with another batch.
type Service struct {
	store  Store
	audit  audit.Recorder
	logger zerolog.Logger
	mu     sync.Mutex
}

// NewService creates a new inbox service.
func NewService(st Store, recorder audit.Recorder, logger zerolog.Logger) *Service {
	if recorder == nil {
		recorder = audit.Nop()
	}
	return &Service{
		store:  st,
		audit:  recorder,
		logger: logger.With().Str("component", "inbox").Logger(),
	}
}

// List returns the owner's inbox rows in import order.
func (s *Service) List(ctx context.Context, ownerID string) ([]models.InboxTrade, error) {
	if ownerID == "" {
		return nil, apperrors.ErrOwnerRequired
	}
	return s.store.ListInboxTrades(ctx, ownerID)
}

// Import deduplicates and validates candidates and stores the survivors as
// pending rows.
func (s *Service) Import(ctx context.Context, ownerID string, candidates []models.Candidate) (ImportResult, error) {
	if ownerID == "" {
		return ImportResult{}, apperrors.ErrOwnerRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	trades, err := s.store.ListTrades(ctx, ownerID, store.TradeFilter{})
	if err != nil {
		return ImportResult{}, apperrors.Wrap(err, "loading trades")
	}
	pending, err := s.store.ListInboxTrades(ctx, ownerID)
	if err != nil {
		return ImportResult{}, apperrors.Wrap(err, "loading inbox")
	}

	res := ImportCandidates(ownerID, candidates, trades, pending)
	if err := s.store.InsertInboxTrades(ctx, res.Rows); err != nil {
		return ImportResult{}, apperrors.Wrapf(err, "saving %d inbox rows", len(res.Rows))
	}

	s.logger.Info().
		Str("owner", ownerID).
		Int("imported", res.Imported).
		Int("duplicates", res.SkippedDuplicates).
		Int("with_errors", res.WithValidationErrors).
		Int("with_warnings", res.WithWarnings).
		Msg("Import complete")

	s.record(ctx, audit.Event{
		Type:    audit.EventImport,
		OwnerID: ownerID,
		Success: true,
		Details: map[string]interface{}{
			"imported":               res.Imported,
			"skipped_duplicates":     res.SkippedDuplicates,
			"with_validation_errors": res.WithValidationErrors,
			"with_warnings":          res.WithWarnings,
		},
	})

	return res, nil
}

// Edit applies patch to a pending row and fully re-validates the result.
func (s *Service) Edit(ctx context.Context, ownerID, id string, patch models.CandidatePatch) (*models.InboxTrade, error) {
	if ownerID == "" {
		return nil, apperrors.ErrOwnerRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, err := s.pendingRow(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	merged := patch.Apply(row.Candidate)
	if merged.TradePlanID != "" {
		if err := checkPlan(ctx, s.store, ownerID, merged.TradePlanID); err != nil {
			return nil, err
		}
	}

	row.Candidate = validation.Validate(merged, false).Apply(merged)
	row.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateInboxTrade(ctx, row); err != nil {
		return nil, fmt.Errorf("saving inbox row: %w", err)
	}

	s.logger.Debug().Str("owner", ownerID).Str("inbox_id", id).
		Int("errors", len(row.Candidate.ValidationErrors)).Msg("Inbox row edited")
	s.record(ctx, audit.Event{
		Type:     audit.EventEdit,
		OwnerID:  ownerID,
		EntityID: id,
		Success:  true,
		Details:  map[string]interface{}{"validation_errors": row.Candidate.ValidationErrors},
	})

	return row, nil
}

// Accept re-fetches and re-validates a row, then turns it into a canonical
// trade. Refusals come back as an AcceptResult; a missing or foreign row is
// an error.
func (s *Service) Accept(ctx context.Context, ownerID, id string, overrides Overrides) (AcceptResult, error) {
	if ownerID == "" {
		return AcceptResult{}, apperrors.ErrOwnerRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.accept(ctx, ownerID, id, overrides)
}

func (s *Service) accept(ctx context.Context, ownerID, id string, overrides Overrides) (AcceptResult, error) {
	row, err := s.store.GetInboxTrade(ctx, ownerID, id)
	if err != nil {
		return AcceptResult{}, err
	}

	res, err := AcceptInboxTrade(ctx, ownerID, *row, overrides, s.store)
	if err != nil {
		s.recordAcceptFailure(ctx, ownerID, id, err.Error())
		return AcceptResult{}, err
	}

	if !res.Accepted {
		if res.revalidated != nil {
			row.Candidate = *res.revalidated
			row.UpdatedAt = time.Now().UTC()
			if err := s.store.UpdateInboxTrade(ctx, row); err != nil {
				return AcceptResult{}, fmt.Errorf("saving diagnostics: %w", err)
			}
		}
		s.recordAcceptFailure(ctx, ownerID, id, res.Error)
		return res, nil
	}

	if err := s.store.AcceptInboxTrade(ctx, row.ID, res.Trade); err != nil {
		return AcceptResult{}, fmt.Errorf("accepting inbox row: %w", err)
	}

	s.logger.Debug().Str("owner", ownerID).Str("inbox_id", id).Str("trade_id", res.Trade.ID).Msg("Inbox row accepted")
	s.record(ctx, audit.Event{
		Type:     audit.EventAccept,
		OwnerID:  ownerID,
		EntityID: id,
		Success:  true,
		Details:  map[string]interface{}{"trade_id": res.Trade.ID, "ticker": res.Trade.Ticker},
	})

	return res, nil
}

// AcceptAll accepts every pending row for the owner. A failing row never
// stops the batch.
func (s *Service) AcceptAll(ctx context.Context, ownerID string) (AcceptAllResult, error) {
	if ownerID == "" {
		return AcceptAllResult{}, apperrors.ErrOwnerRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.store.ListInboxTrades(ctx, ownerID)
	if err != nil {
		return AcceptAllResult{}, fmt.Errorf("loading inbox: %w", err)
	}

	var out AcceptAllResult
	for _, row := range rows {
		if row.Status != models.InboxPendingReview {
			continue
		}

		res, err := s.accept(ctx, ownerID, row.ID, Overrides{})
		switch {
		case err != nil:
			out.SkippedInvalid++
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", row.ID, err))
		case !res.Accepted:
			out.SkippedInvalid++
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %s", row.ID, res.Error))
		default:
			out.Accepted++
		}
	}

	s.logger.Info().
		Str("owner", ownerID).
		Int("accepted", out.Accepted).
		Int("skipped", out.SkippedInvalid).
		Msg("Accept all complete")

	return out, nil
}

// Delete removes a pending row.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return apperrors.ErrOwnerRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.pendingRow(ctx, ownerID, id); err != nil {
		return err
	}
	return s.delete(ctx, ownerID, id)
}

// DeleteAll removes every pending row for the owner and returns how many
// were removed.
func (s *Service) DeleteAll(ctx context.Context, ownerID string) (int, error) {
	if ownerID == "" {
		return 0, apperrors.ErrOwnerRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.store.ListInboxTrades(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("loading inbox: %w", err)
	}

	deleted := 0
	for _, row := range rows {
		if row.Status != models.InboxPendingReview {
			continue
		}
		if err := s.delete(ctx, ownerID, row.ID); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func (s *Service) delete(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteInboxTrade(ctx, ownerID, id); err != nil {
		return fmt.Errorf("deleting inbox row: %w", err)
	}
	s.logger.Debug().Str("owner", ownerID).Str("inbox_id", id).Msg("Inbox row deleted")
	s.record(ctx, audit.Event{Type: audit.EventDelete, OwnerID: ownerID, EntityID: id, Success: true})
	return nil
}

// pendingRow loads a row and refuses it unless it is pending review.
func (s *Service) pendingRow(ctx context.Context, ownerID, id string) (*models.InboxTrade, error) {
	row, err := s.store.GetInboxTrade(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if row.Status != models.InboxPendingReview {
		return nil, fmt.Errorf("inbox trade %s: %w", id, apperrors.ErrNotPendingReview)
	}
	return row, nil
}

func (s *Service) recordAcceptFailure(ctx context.Context, ownerID, id, msg string) {
	s.logger.Debug().Str("owner", ownerID).Str("inbox_id", id).Str("reason", msg).Msg("Inbox row not accepted")
	s.record(ctx, audit.Event{
		Type:     audit.EventAcceptFailed,
		OwnerID:  ownerID,
		EntityID: id,
		ErrorMsg: msg,
	})
}

func (s *Service) record(ctx context.Context, event audit.Event) {
	if err := s.audit.Record(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("event", string(event.Type)).Msg("Failed to write audit event")
	}
}
