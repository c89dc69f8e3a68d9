package planning

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"trade-journal/internal/audit"
	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
	"trade-journal/internal/store"
)

func TestCanTransitionPlan(t *testing.T) {
	all := []models.PlanStatus{models.PlanIdea, models.PlanWatching, models.PlanActive, models.PlanClosed}
	allowed := map[[2]models.PlanStatus]bool{
		{models.PlanIdea, models.PlanWatching}:   true,
		{models.PlanIdea, models.PlanActive}:     true,
		{models.PlanIdea, models.PlanClosed}:     true,
		{models.PlanWatching, models.PlanIdea}:   true,
		{models.PlanWatching, models.PlanActive}: true,
		{models.PlanWatching, models.PlanClosed}: true,
		{models.PlanActive, models.PlanWatching}: true,
		{models.PlanActive, models.PlanClosed}:   true,
		{models.PlanClosed, models.PlanIdea}:     true,
		{models.PlanClosed, models.PlanWatching}: true,
		{models.PlanClosed, models.PlanActive}:   true,
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]models.PlanStatus{from, to}]
			if got := CanTransitionPlan(from, to); got != want {
				t.Errorf("CanTransitionPlan(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}

	if CanTransitionPlan("archived", models.PlanIdea) {
		t.Error("unknown status should have no transitions")
	}
}

func TestCanTransitionCampaign(t *testing.T) {
	tests := []struct {
		from, to models.CampaignStatus
		want     bool
	}{
		{models.CampaignPlanning, models.CampaignActive, true},
		{models.CampaignPlanning, models.CampaignClosed, true},
		{models.CampaignActive, models.CampaignPlanning, true},
		{models.CampaignActive, models.CampaignClosed, true},
		{models.CampaignClosed, models.CampaignActive, true},
		{models.CampaignClosed, models.CampaignPlanning, false},
		{models.CampaignActive, models.CampaignActive, false},
	}

	for _, tt := range tests {
		if got := CanTransitionCampaign(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransitionCampaign(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "plans.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewService(st, audit.Nop(), zerolog.Nop())
}

func TestTransitionPlan_ClosedCampaignBlocksActivation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	camp, err := svc.CreateCampaign(ctx, "alice", "Semis", "AI capex cycle")
	if err != nil {
		t.Fatalf("CreateCampaign() error = %v", err)
	}
	plan, err := svc.CreatePlan(ctx, "alice", PlanInput{CampaignID: camp.ID, Ticker: "nvda", Direction: models.DirectionLong})
	if err != nil {
		t.Fatalf("CreatePlan() error = %v", err)
	}
	if plan.Ticker != "NVDA" || plan.Status != models.PlanIdea {
		t.Errorf("CreatePlan() = %+v", plan)
	}

	if _, err := svc.TransitionCampaign(ctx, "alice", camp.ID, models.CampaignClosed); err != nil {
		t.Fatalf("TransitionCampaign() error = %v", err)
	}

	_, err = svc.TransitionPlan(ctx, "alice", plan.ID, models.PlanActive)
	var te *apperrors.TransitionError
	if !errors.As(err, &te) || te.Reason != "campaign is closed" {
		t.Fatalf("TransitionPlan(active) error = %v, want closed campaign refusal", err)
	}
	if !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Errorf("error does not wrap ErrInvalidTransition: %v", err)
	}

	// Other moves are unaffected by the closed campaign.
	if _, err := svc.TransitionPlan(ctx, "alice", plan.ID, models.PlanWatching); err != nil {
		t.Errorf("TransitionPlan(watching) error = %v", err)
	}
}

func TestTransitionPlan_ActivePlanSurvivesCampaignClose(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	camp, _ := svc.CreateCampaign(ctx, "alice", "Energy", "")
	plan, _ := svc.CreatePlan(ctx, "alice", PlanInput{CampaignID: camp.ID, Ticker: "XOM", Direction: models.DirectionShort})

	if _, err := svc.TransitionPlan(ctx, "alice", plan.ID, models.PlanActive); err != nil {
		t.Fatalf("TransitionPlan(active) error = %v", err)
	}
	if _, err := svc.TransitionCampaign(ctx, "alice", camp.ID, models.CampaignClosed); err != nil {
		t.Fatalf("TransitionCampaign(closed) error = %v", err)
	}

	got, err := svc.GetPlan(ctx, "alice", plan.ID)
	if err != nil {
		t.Fatalf("GetPlan() error = %v", err)
	}
	if got.Status != models.PlanActive {
		t.Errorf("plan status = %s, want active", got.Status)
	}
}

func TestTransitionPlan_Adjacency(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	plan, _ := svc.CreatePlan(ctx, "alice", PlanInput{Ticker: "AAPL", Direction: models.DirectionLong})

	if _, err := svc.TransitionPlan(ctx, "alice", plan.ID, models.PlanIdea); !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Errorf("same-status transition error = %v, want ErrInvalidTransition", err)
	}

	steps := []models.PlanStatus{models.PlanActive, models.PlanClosed, models.PlanIdea}
	for _, to := range steps {
		if _, err := svc.TransitionPlan(ctx, "alice", plan.ID, to); err != nil {
			t.Fatalf("TransitionPlan(%s) error = %v", to, err)
		}
	}

	if _, err := svc.TransitionPlan(ctx, "bob", plan.ID, models.PlanWatching); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("foreign owner error = %v, want ErrNotFound", err)
	}
}

func TestCreatePlan_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	if _, err := svc.CreatePlan(ctx, "alice", PlanInput{Ticker: " ", Direction: models.DirectionLong}); err == nil {
		t.Error("CreatePlan() accepted a blank ticker")
	}
	if _, err := svc.CreatePlan(ctx, "alice", PlanInput{Ticker: "AAPL"}); err == nil {
		t.Error("CreatePlan() accepted a missing direction")
	}

	camp, _ := svc.CreateCampaign(ctx, "bob", "Bob's", "")
	if _, err := svc.CreatePlan(ctx, "alice", PlanInput{CampaignID: camp.ID, Ticker: "AAPL", Direction: models.DirectionLong}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("CreatePlan() with foreign campaign error = %v, want ErrNotFound", err)
	}
}

func TestTransitionCampaign_Refusals(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	camp, _ := svc.CreateCampaign(ctx, "alice", "Rates", "")
	if _, err := svc.TransitionCampaign(ctx, "alice", camp.ID, models.CampaignClosed); err != nil {
		t.Fatalf("TransitionCampaign(closed) error = %v", err)
	}
	if _, err := svc.TransitionCampaign(ctx, "alice", camp.ID, models.CampaignPlanning); !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Errorf("closed -> planning error = %v, want ErrInvalidTransition", err)
	}
	if _, err := svc.TransitionCampaign(ctx, "alice", camp.ID, models.CampaignActive); err != nil {
		t.Errorf("closed -> active error = %v", err)
	}
}
