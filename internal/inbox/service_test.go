package inbox

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trade-journal/internal/audit"
	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
	"trade-journal/internal/store"
	"trade-journal/internal/validation"
)

func newTestService(t *testing.T) (*Service, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "inbox.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewService(st, audit.Nop(), zerolog.Nop()), st
}

func listTrades(t *testing.T, st *store.SQLiteStore, owner string) []models.Trade {
	t.Helper()
	trades, err := st.ListTrades(context.Background(), owner, store.TradeFilter{})
	if err != nil {
		t.Fatalf("ListTrades() error = %v", err)
	}
	return trades
}

func TestService_ImportDedupAcrossBatches(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	first, err := svc.Import(ctx, "alice", []models.Candidate{validCandidate("X1"), validCandidate("X1")})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if first.Imported != 1 || first.SkippedDuplicates != 1 {
		t.Errorf("first import = %+v, want imported=1 skipped=1", first)
	}

	second, err := svc.Import(ctx, "alice", []models.Candidate{validCandidate("X1"), validCandidate("X2")})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if second.Imported != 1 || second.SkippedDuplicates != 1 {
		t.Errorf("second import = %+v, want imported=1 skipped=1", second)
	}

	// Another owner's journal is independent.
	other, err := svc.Import(ctx, "bob", []models.Candidate{validCandidate("X1")})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if other.Imported != 1 {
		t.Errorf("bob import = %+v, want imported=1", other)
	}
}

func TestService_ImportSkipsAcceptedTrades(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if _, err := svc.Import(ctx, "alice", []models.Candidate{validCandidate("X1")}); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res, err := svc.AcceptAll(ctx, "alice"); err != nil || res.Accepted != 1 {
		t.Fatalf("AcceptAll() = %+v, %v", res, err)
	}

	again, err := svc.Import(ctx, "alice", []models.Candidate{validCandidate("X1")})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if again.Imported != 0 || again.SkippedDuplicates != 1 {
		t.Errorf("re-import = %+v, want the accepted execution skipped", again)
	}
}

func TestService_EditRevalidates(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)

	broken := validCandidate("X1")
	broken.Price = nil
	if _, err := svc.Import(ctx, "alice", []models.Candidate{broken}); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	rows, _ := svc.List(ctx, "alice")
	id := rows[0].ID

	edited, err := svc.Edit(ctx, "alice", id, models.CandidatePatch{Price: models.Float(181)})
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if len(edited.Candidate.ValidationErrors) != 0 {
		t.Errorf("errors after fixing price = %v, want none", edited.Candidate.ValidationErrors)
	}

	ticker := "  "
	edited, err = svc.Edit(ctx, "alice", id, models.CandidatePatch{Ticker: &ticker})
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if len(edited.Candidate.ValidationErrors) != 1 || edited.Candidate.ValidationErrors[0] != validation.MsgTickerRequired {
		t.Errorf("errors after blanking ticker = %v", edited.Candidate.ValidationErrors)
	}

	stored, err := st.GetInboxTrade(ctx, "alice", id)
	if err != nil {
		t.Fatalf("GetInboxTrade() error = %v", err)
	}
	if len(stored.Candidate.ValidationErrors) != 1 {
		t.Errorf("stored errors = %v, want one", stored.Candidate.ValidationErrors)
	}
}

func TestService_EditGuards(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)

	now := time.Now().UTC()
	if err := st.SavePlan(ctx, &models.TradePlan{ID: "p-bob", OwnerID: "bob", Ticker: "AAPL", Status: models.PlanIdea, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("SavePlan() error = %v", err)
	}
	if _, err := svc.Import(ctx, "alice", []models.Candidate{validCandidate("X1")}); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	rows, _ := svc.List(ctx, "alice")
	id := rows[0].ID

	planID := "p-bob"
	if _, err := svc.Edit(ctx, "alice", id, models.CandidatePatch{TradePlanID: &planID}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Edit() with foreign plan error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Edit(ctx, "bob", id, models.CandidatePatch{Price: models.Float(1)}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Edit() by foreign owner error = %v, want ErrNotFound", err)
	}

	stale := models.InboxTrade{ID: "stale", OwnerID: "alice", Status: "accepted", Candidate: validCandidate("X9"), ImportedAt: now, UpdatedAt: now}
	if err := st.InsertInboxTrades(ctx, []models.InboxTrade{stale}); err != nil {
		t.Fatalf("InsertInboxTrades() error = %v", err)
	}
	if _, err := svc.Edit(ctx, "alice", "stale", models.CandidatePatch{Price: models.Float(1)}); !errors.Is(err, apperrors.ErrNotPendingReview) {
		t.Errorf("Edit() on non-pending row error = %v, want ErrNotPendingReview", err)
	}
	if err := svc.Delete(ctx, "alice", "stale"); !errors.Is(err, apperrors.ErrNotPendingReview) {
		t.Errorf("Delete() on non-pending row error = %v, want ErrNotPendingReview", err)
	}
}

func TestService_AcceptNotPendingLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	row := models.InboxTrade{ID: "r1", OwnerID: "alice", Status: "accepted", Candidate: validCandidate("X1"), ImportedAt: now, UpdatedAt: now}
	if err := st.InsertInboxTrades(ctx, []models.InboxTrade{row}); err != nil {
		t.Fatalf("InsertInboxTrades() error = %v", err)
	}

	res, err := svc.Accept(ctx, "alice", "r1", Overrides{})
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if res.Accepted || res.Error != "Trade is not pending review" {
		t.Errorf("Accept() = %+v", res)
	}

	if got := listTrades(t, st, "alice"); len(got) != 0 {
		t.Errorf("canonical trades = %d, want 0", len(got))
	}
	stored, err := st.GetInboxTrade(ctx, "alice", "r1")
	if err != nil {
		t.Fatalf("row missing after refused accept: %v", err)
	}
	if stored.Status != "accepted" || !stored.UpdatedAt.Equal(now) {
		t.Errorf("row changed by refused accept: %+v", stored)
	}
}

func TestService_AcceptAllIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)

	broken := validCandidate("X2")
	broken.Price = nil
	if _, err := svc.Import(ctx, "alice", []models.Candidate{validCandidate("X1"), broken, validCandidate("X3")}); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	rows, _ := svc.List(ctx, "alice")
	brokenID := rows[1].ID

	res, err := svc.AcceptAll(ctx, "alice")
	if err != nil {
		t.Fatalf("AcceptAll() error = %v", err)
	}
	if res.Accepted != 2 || res.SkippedInvalid != 1 {
		t.Errorf("AcceptAll() = %+v, want accepted=2 skipped=1", res)
	}
	if len(res.Errors) != 1 || !strings.HasPrefix(res.Errors[0], brokenID+": ") {
		t.Errorf("Errors = %v, want one entry for %s", res.Errors, brokenID)
	}

	trades := listTrades(t, st, "alice")
	if len(trades) != 2 {
		t.Fatalf("canonical trades = %d, want 2", len(trades))
	}
	ids := map[string]bool{}
	for _, tr := range trades {
		ids[tr.ExternalID] = true
	}
	if !ids["X1"] || !ids["X3"] {
		t.Errorf("accepted external ids = %v, want X1 and X3", ids)
	}

	remaining, _ := svc.List(ctx, "alice")
	if len(remaining) != 1 || remaining[0].ID != brokenID {
		t.Errorf("remaining inbox = %+v, want only the invalid row", remaining)
	}
	if len(remaining[0].Candidate.ValidationErrors) != 1 {
		t.Errorf("invalid row diagnostics = %v", remaining[0].Candidate.ValidationErrors)
	}
}

func TestService_AcceptAllReportsOwnershipFailures(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)

	now := time.Now().UTC()
	if err := st.SavePlan(ctx, &models.TradePlan{ID: "p-bob", OwnerID: "bob", Ticker: "AAPL", Status: models.PlanIdea, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("SavePlan() error = %v", err)
	}

	linked := validCandidate("X1")
	linked.TradePlanID = "p-bob"
	if _, err := svc.Import(ctx, "alice", []models.Candidate{linked, validCandidate("X2")}); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	res, err := svc.AcceptAll(ctx, "alice")
	if err != nil {
		t.Fatalf("AcceptAll() error = %v", err)
	}
	if res.Accepted != 1 || res.SkippedInvalid != 1 || len(res.Errors) != 1 {
		t.Errorf("AcceptAll() = %+v, want one accepted and one reported failure", res)
	}
}

func TestService_AcceptForeignRow(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if _, err := svc.Import(ctx, "alice", []models.Candidate{validCandidate("X1")}); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	rows, _ := svc.List(ctx, "alice")

	if _, err := svc.Accept(ctx, "bob", rows[0].ID, Overrides{}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Accept() by foreign owner error = %v, want ErrNotFound", err)
	}
}

func TestService_DeleteAll(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)

	if _, err := svc.Import(ctx, "alice", []models.Candidate{validCandidate("X1"), validCandidate("X2")}); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if _, err := svc.Import(ctx, "bob", []models.Candidate{validCandidate("X1")}); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	n, err := svc.DeleteAll(ctx, "alice")
	if err != nil || n != 2 {
		t.Fatalf("DeleteAll() = %d, %v; want 2", n, err)
	}
	if rows, _ := svc.List(ctx, "alice"); len(rows) != 0 {
		t.Errorf("alice inbox = %d rows, want 0", len(rows))
	}
	if rows, _ := svc.List(ctx, "bob"); len(rows) != 1 {
		t.Errorf("bob inbox = %d rows, want 1", len(rows))
	}
	if got := listTrades(t, st, "alice"); len(got) != 0 {
		t.Errorf("DeleteAll created %d trades", len(got))
	}
}

func TestService_RequiresOwner(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Import(context.Background(), "", nil); !errors.Is(err, apperrors.ErrOwnerRequired) {
		t.Errorf("Import() without owner error = %v, want ErrOwnerRequired", err)
	}
}
