// Package journal handles canonical trades entered by hand and the reports
// derived from the owner's full trade history.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trade-journal/internal/accounting"
	"trade-journal/internal/audit"
	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
	"trade-journal/internal/store"
	"trade-journal/internal/validation"
)

// Store is the persistence the journal service needs.
type Store interface {
	store.TradeStore
	GetTradePlan(ctx context.Context, id string) (*models.TradePlan, error)
}

// TradePatch holds the fields of a canonical trade that may change after
// entry. Nil fields are left untouched; an empty TradePlanID unlinks.
type TradePatch struct {
	Notes       *string
	TradePlanID *string
	Fees        *float64
	Taxes       *float64
}

// PnLRow pairs a trade with its realized P&L. RealizedPL is nil for opening
// trades.
type PnLRow struct {
	Trade      models.Trade
	RealizedPL *float64
}

// PnLReport is the realized P&L of every trade in chronological order.
type PnLReport struct {
	Rows    []PnLRow
	Summary accounting.Summary
}

// Service manages canonical trades.
type Service struct {
	store  Store
	audit  audit.Recorder
	logger zerolog.Logger
}

// NewService creates a new journal service.
func NewService(st Store, recorder audit.Recorder, logger zerolog.Logger) *Service {
	if recorder == nil {
		recorder = audit.Nop()
	}
	return &Service{
		store:  st,
		audit:  recorder,
		logger: logger.With().Str("component", "journal").Logger(),
	}
}

// AddTrade validates a manually entered trade and stores it. Validation
// findings are returned as a *TradeError.
func (s *Service) AddTrade(ctx context.Context, ownerID string, c models.Candidate) (*models.Trade, error) {
	if ownerID == "" {
		return nil, apperrors.ErrOwnerRequired
	}

	result := validation.Validate(c, false)
	if !result.Valid() {
		return nil, &apperrors.TradeError{Errors: result.Errors}
	}
	if c.TradePlanID != "" {
		if err := s.checkPlan(ctx, ownerID, c.TradePlanID); err != nil {
			return nil, err
		}
	}

	t := &models.Trade{
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
		Notes:              c.Notes,
		OrderType:          c.OrderType,
		Source:             models.SourceManual,
		ExternalID:         c.ExternalID,
		BrokerageAccountID: c.BrokerageAccountID,
		TradePlanID:        c.TradePlanID,
		CreatedAt:          time.Now().UTC(),
	}
	if err := s.store.InsertTrade(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Debug().Str("trade_id", t.ID).Str("ticker", t.Ticker).Msg("Trade added")
	s.record(ctx, audit.EventTradeCreated, ownerID, t.ID, map[string]interface{}{"ticker": t.Ticker})
	return t, nil
}

// EditTrade applies patch to one of the owner's trades.
func (s *Service) EditTrade(ctx context.Context, ownerID, id string, patch TradePatch) (*models.Trade, error) {
	t, err := s.store.GetTrade(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if patch.Notes != nil {
		t.Notes = *patch.Notes
	}
	if patch.TradePlanID != nil {
		if *patch.TradePlanID != "" {
			if err := s.checkPlan(ctx, ownerID, *patch.TradePlanID); err != nil {
				return nil, err
			}
		}
		t.TradePlanID = *patch.TradePlanID
	}
	if patch.Fees != nil {
		t.Fees = models.Float(*patch.Fees)
	}
	if patch.Taxes != nil {
		t.Taxes = models.Float(*patch.Taxes)
	}

	if err := s.store.UpdateTrade(ctx, t); err != nil {
		return nil, err
	}
	s.record(ctx, audit.EventTradeUpdated, ownerID, id, nil)
	return t, nil
}

// DeleteTrade removes one of the owner's trades.
func (s *Service) DeleteTrade(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteTrade(ctx, ownerID, id); err != nil {
		return err
	}
	s.record(ctx, audit.EventTradeDeleted, ownerID, id, nil)
	return nil
}

// ListTrades returns the owner's trades in chronological order.
func (s *Service) ListTrades(ctx context.Context, ownerID string, filter store.TradeFilter) ([]models.Trade, error) {
	return s.store.ListTrades(ctx, ownerID, filter)
}

// Positions returns the owner's open positions. Positions that net to dust
// are dropped.
func (s *Service) Positions(ctx context.Context, ownerID string) ([]models.Position, error) {
	trades, err := s.store.ListTrades(ctx, ownerID, store.TradeFilter{})
	if err != nil {
		return nil, err
	}
	return accounting.OpenPositions(accounting.ComputePositions(trades)), nil
}

// RealizedPL computes the P&L report over the owner's whole history. When
// ticker is set only that ticker's rows are reported; the cost basis is
// still computed from every trade.
func (s *Service) RealizedPL(ctx context.Context, ownerID, ticker string) (*PnLReport, error) {
	trades, err := s.store.ListTrades(ctx, ownerID, store.TradeFilter{})
	if err != nil {
		return nil, err
	}

	pl := accounting.ComputeRealizedPL(trades)
	ticker = validation.NormalizeTicker(ticker)

	report := &PnLReport{}
	reported := make(map[string]*float64, len(trades))
	for _, t := range trades {
		if ticker != "" && t.Ticker != ticker {
			continue
		}
		report.Rows = append(report.Rows, PnLRow{Trade: t, RealizedPL: pl[t.ID]})
		reported[t.ID] = pl[t.ID]
	}
	report.Summary = accounting.Summarize(reported)
	return report, nil
}

func (s *Service) checkPlan(ctx context.Context, ownerID, planID string) error {
	plan, err := s.store.GetTradePlan(ctx, planID)
	if err != nil {
		return err
	}
	if plan == nil || plan.OwnerID != ownerID {
		return fmt.Errorf("trade plan %s: %w", planID, apperrors.ErrNotFound)
	}
	return nil
}

func (s *Service) record(ctx context.Context, typ audit.EventType, ownerID, id string, details map[string]interface{}) {
	err := s.audit.Record(ctx, audit.Event{Type: typ, OwnerID: ownerID, EntityID: id, Success: true, Details: details})
	if err != nil {
		s.logger.Warn().Err(err).Str("event", string(typ)).Msg("Failed to write audit event")
	}
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return models.Float(*v)
}
