package planning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trade-journal/internal/audit"
	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
	"trade-journal/internal/store"
	"trade-journal/internal/validation"
)

// PlanInput holds the fields of a new trade plan.
type PlanInput struct {
	CampaignID string
	Ticker     string
	Direction  models.Direction
	EntryPrice float64
	StopLoss   float64
	Target     float64
	Notes      string
}

// Service creates plans and campaigns and moves them through their
// lifecycles.
type Service struct {
	store  store.PlanStore
	audit  audit.Recorder
	logger zerolog.Logger
}

// NewService creates a new planning service.
func NewService(st store.PlanStore, recorder audit.Recorder, logger zerolog.Logger) *Service {
	if recorder == nil {
		recorder = audit.Nop()
	}
	return &Service{
		store:  st,
		audit:  recorder,
		logger: logger.With().Str("component", "planning").Logger(),
	}
}

// CreateCampaign stores a new campaign in the planning status.
func (s *Service) CreateCampaign(ctx context.Context, ownerID, name, thesis string) (*models.Campaign, error) {
	if ownerID == "" {
		return nil, apperrors.ErrOwnerRequired
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("campaign name is required")
	}

	now := time.Now().UTC()
	c := &models.Campaign{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		Thesis:    thesis,
		Status:    models.CampaignPlanning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.SaveCampaign(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// CreatePlan stores a new plan in the idea status. A referenced campaign
// must belong to the owner.
func (s *Service) CreatePlan(ctx context.Context, ownerID string, in PlanInput) (*models.TradePlan, error) {
	if ownerID == "" {
		return nil, apperrors.ErrOwnerRequired
	}

	ticker := validation.NormalizeTicker(in.Ticker)
	if ticker == "" {
		return nil, fmt.Errorf("trade plan: %s", validation.MsgTickerRequired)
	}
	if !in.Direction.Valid() {
		return nil, fmt.Errorf("trade plan: %s", validation.MsgDirectionRequired)
	}
	if in.CampaignID != "" {
		if _, err := s.store.GetCampaign(ctx, ownerID, in.CampaignID); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	p := &models.TradePlan{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		CampaignID: in.CampaignID,
		Ticker:     ticker,
		Direction:  in.Direction,
		EntryPrice: in.EntryPrice,
		StopLoss:   in.StopLoss,
		Target:     in.Target,
		Status:     models.PlanIdea,
		Notes:      in.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.SavePlan(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetPlan returns one of the owner's plans.
func (s *Service) GetPlan(ctx context.Context, ownerID, planID string) (*models.TradePlan, error) {
	p, err := s.store.GetTradePlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if p == nil || p.OwnerID != ownerID {
		return nil, fmt.Errorf("trade plan %s: %w", planID, apperrors.ErrNotFound)
	}
	return p, nil
}

// TransitionPlan moves a plan to a new status. Activation is refused while
// the plan's campaign is closed, independently of the adjacency table.
func (s *Service) TransitionPlan(ctx context.Context, ownerID, planID string, to models.PlanStatus) (*models.TradePlan, error) {
	p, err := s.GetPlan(ctx, ownerID, planID)
	if err != nil {
		return nil, err
	}

	if !CanTransitionPlan(p.Status, to) {
		return nil, apperrors.NewTransitionError("trade plan", planID, string(p.Status), string(to), "")
	}

	if to == models.PlanActive && p.CampaignID != "" {
		c, err := s.store.GetCampaign(ctx, ownerID, p.CampaignID)
		if err != nil {
			return nil, err
		}
		if c.Status == models.CampaignClosed {
			return nil, apperrors.NewTransitionError("trade plan", planID, string(p.Status), string(to), "campaign is closed")
		}
	}

	if err := s.store.UpdatePlanStatus(ctx, ownerID, planID, to); err != nil {
		return nil, err
	}

	s.logger.Debug().Str("plan_id", planID).Str("from", string(p.Status)).Str("to", string(to)).Msg("Plan status changed")
	s.recordStatus(ctx, ownerID, planID, "trade_plan", string(p.Status), string(to))

	p.Status = to
	return p, nil
}

// TransitionCampaign moves a campaign to a new status. Closing a campaign
// leaves its plans untouched.
func (s *Service) TransitionCampaign(ctx context.Context, ownerID, campaignID string, to models.CampaignStatus) (*models.Campaign, error) {
	c, err := s.store.GetCampaign(ctx, ownerID, campaignID)
	if err != nil {
		return nil, err
	}

	if !CanTransitionCampaign(c.Status, to) {
		return nil, apperrors.NewTransitionError("campaign", campaignID, string(c.Status), string(to), "")
	}

	if err := s.store.UpdateCampaignStatus(ctx, ownerID, campaignID, to); err != nil {
		return nil, err
	}

	s.logger.Debug().Str("campaign_id", campaignID).Str("from", string(c.Status)).Str("to", string(to)).Msg("Campaign status changed")
	s.recordStatus(ctx, ownerID, campaignID, "campaign", string(c.Status), string(to))

	c.Status = to
	return c, nil
}

// ListPlans returns the owner's plans.
func (s *Service) ListPlans(ctx context.Context, ownerID string, filter store.PlanFilter) ([]models.TradePlan, error) {
	return s.store.ListPlans(ctx, ownerID, filter)
}

// ListCampaigns returns the owner's campaigns.
func (s *Service) ListCampaigns(ctx context.Context, ownerID string) ([]models.Campaign, error) {
	return s.store.ListCampaigns(ctx, ownerID)
}

func (s *Service) recordStatus(ctx context.Context, ownerID, id, entity, from, to string) {
	err := s.audit.Record(ctx, audit.Event{
		Type:     audit.EventStatusChanged,
		OwnerID:  ownerID,
		EntityID: id,
		Success:  true,
		Details:  map[string]interface{}{"entity": entity, "from": from, "to": to},
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write audit event")
	}
}
