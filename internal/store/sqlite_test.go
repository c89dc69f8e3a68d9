package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTrade(id, owner string, date time.Time) *models.Trade {
	return &models.Trade{
		ID:        id,
		OwnerID:   owner,
		Ticker:    "AAPL",
		AssetType: models.AssetStock,
		Side:      models.SideBuy,
		Direction: models.DirectionLong,
		Price:     10,
		Quantity:  5,
		Date:      date,
		Source:    models.SourceManual,
	}
}

func TestTrades_OwnerScoping(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	if err := s.InsertTrade(ctx, sampleTrade("t1", "alice", day)); err != nil {
		t.Fatalf("InsertTrade() error = %v", err)
	}

	if _, err := s.GetTrade(ctx, "bob", "t1"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("GetTrade() for foreign owner error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteTrade(ctx, "bob", "t1"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("DeleteTrade() for foreign owner error = %v, want ErrNotFound", err)
	}

	trades, err := s.ListTrades(ctx, "bob", TradeFilter{})
	if err != nil {
		t.Fatalf("ListTrades() error = %v", err)
	}
	if len(trades) != 0 {
		t.Errorf("ListTrades() for foreign owner returned %d trades", len(trades))
	}

	if err := s.DeleteTrade(ctx, "alice", "t1"); err != nil {
		t.Errorf("DeleteTrade() error = %v", err)
	}
}

func TestListTrades_OrderAndFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	inserts := []*models.Trade{
		sampleTrade("late", "alice", day.Add(48*time.Hour)),
		sampleTrade("tie-a", "alice", day),
		sampleTrade("tie-b", "alice", day),
	}
	msft := sampleTrade("msft", "alice", day.Add(24*time.Hour))
	msft.Ticker = "MSFT"
	inserts = append(inserts, msft)

	for _, tr := range inserts {
		if err := s.InsertTrade(ctx, tr); err != nil {
			t.Fatalf("InsertTrade(%s) error = %v", tr.ID, err)
		}
	}

	trades, err := s.ListTrades(ctx, "alice", TradeFilter{})
	if err != nil {
		t.Fatalf("ListTrades() error = %v", err)
	}
	var ids []string
	for _, tr := range trades {
		ids = append(ids, tr.ID)
	}
	if diff := cmp.Diff([]string{"tie-a", "tie-b", "msft", "late"}, ids); diff != "" {
		t.Errorf("ListTrades() order mismatch (-want +got):\n%s", diff)
	}

	filtered, err := s.ListTrades(ctx, "alice", TradeFilter{Ticker: "MSFT"})
	if err != nil {
		t.Fatalf("ListTrades() error = %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != "msft" {
		t.Errorf("ListTrades(Ticker=MSFT) = %+v", filtered)
	}

	ranged, err := s.ListTrades(ctx, "alice", TradeFilter{StartDate: day.Add(time.Hour)})
	if err != nil {
		t.Fatalf("ListTrades() error = %v", err)
	}
	if len(ranged) != 2 {
		t.Errorf("ListTrades(StartDate) returned %d trades, want 2", len(ranged))
	}
}

func TestUpdateTrade(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tr := sampleTrade("t1", "alice", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	if err := s.InsertTrade(ctx, tr); err != nil {
		t.Fatalf("InsertTrade() error = %v", err)
	}

	tr.Price = 12.5
	tr.Notes = "moved stop"
	tr.Fees = models.Float(1.25)
	if err := s.UpdateTrade(ctx, tr); err != nil {
		t.Fatalf("UpdateTrade() error = %v", err)
	}

	got, err := s.GetTrade(ctx, "alice", "t1")
	if err != nil {
		t.Fatalf("GetTrade() error = %v", err)
	}
	if got.Price != 12.5 || got.Notes != "moved stop" || got.Fees == nil || *got.Fees != 1.25 {
		t.Errorf("GetTrade() after update = %+v", got)
	}

	tr.OwnerID = "bob"
	if err := s.UpdateTrade(ctx, tr); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("UpdateTrade() for foreign owner error = %v, want ErrNotFound", err)
	}
}

func sampleInboxRow(id, owner string) models.InboxTrade {
	d := time.Date(2024, 2, 5, 14, 30, 0, 0, time.UTC)
	now := time.Date(2024, 2, 6, 0, 0, 0, 0, time.UTC)
	return models.InboxTrade{
		ID:      id,
		OwnerID: owner,
		Status:  models.InboxPendingReview,
		Candidate: models.Candidate{
			Source:             models.SourceKraken,
			Ticker:             "BTC",
			AssetType:          models.AssetCrypto,
			Side:               models.SideBuy,
			Direction:          models.DirectionLong,
			Price:              models.Float(42000),
			Quantity:           models.Float(0.5),
			Date:               &d,
			Fees:               models.Float(3.2),
			Taxes:              models.Float(0),
			ExternalID:         "O-" + id,
			ValidationErrors:   []string{},
			ValidationWarnings: []string{"some warning"},
		},
		ImportedAt: now,
		UpdatedAt:  now,
	}
}

func TestInbox_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	partial := sampleInboxRow("r2", "alice")
	partial.Candidate.Price = nil
	partial.Candidate.Date = nil
	partial.Candidate.ValidationErrors = []string{"Price is required", "Date is required"}

	rows := []models.InboxTrade{sampleInboxRow("r1", "alice"), partial}
	if err := s.InsertInboxTrades(ctx, rows); err != nil {
		t.Fatalf("InsertInboxTrades() error = %v", err)
	}

	got, err := s.ListInboxTrades(ctx, "alice")
	if err != nil {
		t.Fatalf("ListInboxTrades() error = %v", err)
	}
	if diff := cmp.Diff(rows, got); diff != "" {
		t.Errorf("ListInboxTrades() mismatch (-want +got):\n%s", diff)
	}

	if _, err := s.GetInboxTrade(ctx, "bob", "r1"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("GetInboxTrade() for foreign owner error = %v, want ErrNotFound", err)
	}
}

func TestEpochDate_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	epoch := time.UnixMilli(0).UTC()

	if err := s.InsertTrade(ctx, sampleTrade("t1", "alice", epoch)); err != nil {
		t.Fatalf("InsertTrade() error = %v", err)
	}
	trade, err := s.GetTrade(ctx, "alice", "t1")
	if err != nil {
		t.Fatalf("GetTrade() error = %v", err)
	}
	if !trade.Date.Equal(epoch) || trade.Date.IsZero() {
		t.Errorf("trade date = %v, want %v", trade.Date, epoch)
	}

	row := sampleInboxRow("r1", "alice")
	row.Candidate.Date = &epoch
	if err := s.InsertInboxTrades(ctx, []models.InboxTrade{row}); err != nil {
		t.Fatalf("InsertInboxTrades() error = %v", err)
	}
	got, err := s.GetInboxTrade(ctx, "alice", "r1")
	if err != nil {
		t.Fatalf("GetInboxTrade() error = %v", err)
	}
	if got.Candidate.Date == nil || got.Candidate.Date.IsZero() || !got.Candidate.Date.Equal(epoch) {
		t.Errorf("inbox date = %v, want %v", got.Candidate.Date, epoch)
	}
}

func TestUpdateInboxTrade(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	row := sampleInboxRow("r1", "alice")
	if err := s.InsertInboxTrades(ctx, []models.InboxTrade{row}); err != nil {
		t.Fatalf("InsertInboxTrades() error = %v", err)
	}

	row.Candidate.Notes = "checked"
	row.Candidate.Quantity = nil
	row.Candidate.ValidationErrors = []string{"Quantity must be a positive number"}
	if err := s.UpdateInboxTrade(ctx, &row); err != nil {
		t.Fatalf("UpdateInboxTrade() error = %v", err)
	}

	got, err := s.GetInboxTrade(ctx, "alice", "r1")
	if err != nil {
		t.Fatalf("GetInboxTrade() error = %v", err)
	}
	if diff := cmp.Diff(row, *got); diff != "" {
		t.Errorf("GetInboxTrade() mismatch (-want +got):\n%s", diff)
	}
}

func TestAcceptInboxTrade(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if err := s.InsertInboxTrades(ctx, []models.InboxTrade{sampleInboxRow("r1", "alice")}); err != nil {
		t.Fatalf("InsertInboxTrades() error = %v", err)
	}

	trade := sampleTrade("t1", "alice", time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC))
	if err := s.AcceptInboxTrade(ctx, "r1", trade); err != nil {
		t.Fatalf("AcceptInboxTrade() error = %v", err)
	}

	if _, err := s.GetInboxTrade(ctx, "alice", "r1"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("inbox row still present after accept: %v", err)
	}
	if _, err := s.GetTrade(ctx, "alice", "t1"); err != nil {
		t.Errorf("GetTrade() after accept error = %v", err)
	}

	// A second accept of the same row inserts nothing.
	again := sampleTrade("t2", "alice", time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC))
	if err := s.AcceptInboxTrade(ctx, "r1", again); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("second AcceptInboxTrade() error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetTrade(ctx, "alice", "t2"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("trade inserted by failed accept: %v", err)
	}
}

func TestPlansAndCampaigns(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	camp := &models.Campaign{ID: "c1", OwnerID: "alice", Name: "AI infra", Status: models.CampaignPlanning, CreatedAt: now, UpdatedAt: now}
	if err := s.SaveCampaign(ctx, camp); err != nil {
		t.Fatalf("SaveCampaign() error = %v", err)
	}
	plan := &models.TradePlan{ID: "p1", OwnerID: "alice", CampaignID: "c1", Ticker: "NVDA", Direction: models.DirectionLong, Status: models.PlanIdea, CreatedAt: now, UpdatedAt: now}
	if err := s.SavePlan(ctx, plan); err != nil {
		t.Fatalf("SavePlan() error = %v", err)
	}

	got, err := s.GetTradePlan(ctx, "p1")
	if err != nil || got == nil {
		t.Fatalf("GetTradePlan() = %v, %v", got, err)
	}
	if got.OwnerID != "alice" || got.CampaignID != "c1" {
		t.Errorf("GetTradePlan() = %+v", got)
	}

	missing, err := s.GetTradePlan(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("GetTradePlan(missing) = %v, %v; want nil, nil", missing, err)
	}

	if err := s.UpdatePlanStatus(ctx, "alice", "p1", models.PlanWatching); err != nil {
		t.Fatalf("UpdatePlanStatus() error = %v", err)
	}
	plans, err := s.ListPlans(ctx, "alice", PlanFilter{Status: models.PlanWatching})
	if err != nil || len(plans) != 1 {
		t.Fatalf("ListPlans(watching) = %v, %v", plans, err)
	}
	if err := s.UpdatePlanStatus(ctx, "bob", "p1", models.PlanActive); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("UpdatePlanStatus() for foreign owner error = %v, want ErrNotFound", err)
	}

	if err := s.UpdateCampaignStatus(ctx, "alice", "c1", models.CampaignClosed); err != nil {
		t.Fatalf("UpdateCampaignStatus() error = %v", err)
	}
	c, err := s.GetCampaign(ctx, "alice", "c1")
	if err != nil {
		t.Fatalf("GetCampaign() error = %v", err)
	}
	if c.Status != models.CampaignClosed {
		t.Errorf("campaign status = %s, want closed", c.Status)
	}
	if _, err := s.GetCampaign(ctx, "bob", "c1"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("GetCampaign() for foreign owner error = %v, want ErrNotFound", err)
	}
}

func TestAccountMappings(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	m := &models.AccountMapping{OwnerID: "alice", Source: models.SourceIBKR, AccountID: "U123", DisplayName: "Main"}
	if err := s.SetAccountMapping(ctx, m); err != nil {
		t.Fatalf("SetAccountMapping() error = %v", err)
	}
	m.DisplayName = "IRA"
	if err := s.SetAccountMapping(ctx, m); err != nil {
		t.Fatalf("SetAccountMapping() upsert error = %v", err)
	}

	got, err := s.ListAccountMappings(ctx, "alice")
	if err != nil {
		t.Fatalf("ListAccountMappings() error = %v", err)
	}
	if diff := cmp.Diff([]models.AccountMapping{*m}, got); diff != "" {
		t.Errorf("ListAccountMappings() mismatch (-want +got):\n%s", diff)
	}

	if err := s.DeleteAccountMapping(ctx, "alice", models.SourceIBKR, "U123"); err != nil {
		t.Errorf("DeleteAccountMapping() error = %v", err)
	}
	if err := s.DeleteAccountMapping(ctx, "alice", models.SourceIBKR, "U123"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("second DeleteAccountMapping() error = %v, want ErrNotFound", err)
	}
}

func TestNewSQLiteStore_UnopenablePath(t *testing.T) {
	_, err := NewSQLiteStore(filepath.Join(t.TempDir(), "missing", "dir", "journal.db"))
	if !errors.Is(err, apperrors.ErrDatabaseError) {
		t.Fatalf("NewSQLiteStore() error = %v, want ErrDatabaseError", err)
	}
}
