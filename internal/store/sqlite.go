// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	retry retryPolicy
	// mu serializes writers so each top-level operation is applied as a unit.
	mu sync.Mutex
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %w", apperrors.ErrDatabaseError, dbPath, err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db, retry: defaultRetryPolicy()}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to initialize schema: %w", apperrors.ErrDatabaseError, err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Canonical trades
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		ticker TEXT NOT NULL,
		asset_type TEXT NOT NULL,
		side TEXT NOT NULL,
		direction TEXT NOT NULL,
		price REAL NOT NULL,
		quantity REAL NOT NULL,
		date INTEGER NOT NULL,
		fees REAL,
		taxes REAL,
		notes TEXT NOT NULL DEFAULT '',
		order_type TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT 'manual',
		external_id TEXT NOT NULL DEFAULT '',
		brokerage_account_id TEXT NOT NULL DEFAULT '',
		trade_plan_id TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	-- Imported executions awaiting review
	CREATE TABLE IF NOT EXISTS inbox_trades (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		status TEXT NOT NULL,
		source TEXT NOT NULL,
		ticker TEXT NOT NULL DEFAULT '',
		asset_type TEXT NOT NULL DEFAULT '',
		side TEXT NOT NULL DEFAULT '',
		direction TEXT NOT NULL DEFAULT '',
		price REAL,
		quantity REAL,
		date INTEGER,
		fees REAL,
		taxes REAL,
		order_type TEXT NOT NULL DEFAULT '',
		external_id TEXT NOT NULL DEFAULT '',
		brokerage_account_id TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		trade_plan_id TEXT NOT NULL DEFAULT '',
		validation_errors TEXT NOT NULL DEFAULT '[]',
		validation_warnings TEXT NOT NULL DEFAULT '[]',
		imported_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	-- Campaigns group trade plans
	CREATE TABLE IF NOT EXISTS campaigns (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		thesis TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	-- Trade plans
	CREATE TABLE IF NOT EXISTS trade_plans (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		campaign_id TEXT NOT NULL DEFAULT '',
		ticker TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry_price REAL NOT NULL DEFAULT 0,
		stop_loss REAL NOT NULL DEFAULT 0,
		target REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	-- Brokerage account display names
	CREATE TABLE IF NOT EXISTS account_mappings (
		owner_id TEXT NOT NULL,
		source TEXT NOT NULL,
		account_id TEXT NOT NULL,
		display_name TEXT NOT NULL,
		PRIMARY KEY (owner_id, source, account_id)
	);

	CREATE INDEX IF NOT EXISTS idx_trades_owner_date ON trades(owner_id, date);
	CREATE INDEX IF NOT EXISTS idx_trades_owner_external ON trades(owner_id, source, external_id);
	CREATE INDEX IF NOT EXISTS idx_inbox_owner ON inbox_trades(owner_id, imported_at);
	CREATE INDEX IF NOT EXISTS idx_plans_owner ON trade_plans(owner_id, status);
	CREATE INDEX IF NOT EXISTS idx_campaigns_owner ON campaigns(owner_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// ============================================================================
// Trades Methods
// ============================================================================

const tradeColumns = "id, owner_id, ticker, asset_type, side, direction, price, quantity, date, fees, taxes, notes, order_type, source, external_id, brokerage_account_id, trade_plan_id, created_at"

// InsertTrade saves a trade to the database.
func (s *SQLiteStore) InsertTrade(ctx context.Context, trade *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.retry.do(ctx, func() error {
		return insertTrade(ctx, s.db, trade)
	})
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

func insertTrade(ctx context.Context, ex execer, t *models.Trade) error {
	source := t.Source
	if source == "" {
		source = models.SourceManual
	}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO trades (`+tradeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.OwnerID, t.Ticker, t.AssetType, t.Side, t.Direction, t.Price, t.Quantity, toMillis(t.Date),
		nullFloat(t.Fees), nullFloat(t.Taxes), t.Notes, t.OrderType, source, t.ExternalID,
		t.BrokerageAccountID, t.TradePlanID, toMillis(t.CreatedAt))
	return err
}

// GetTrade retrieves one of the owner's trades.
func (s *SQLiteStore) GetTrade(ctx context.Context, ownerID, id string) (*models.Trade, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+tradeColumns+" FROM trades WHERE owner_id = ? AND id = ?", ownerID, id)
	t, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("trade %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	return t, nil
}

// ListTrades retrieves the owner's trades in chronological order. Trades
// sharing a date keep insertion order.
func (s *SQLiteStore) ListTrades(ctx context.Context, ownerID string, filter TradeFilter) ([]models.Trade, error) {
	query := "SELECT " + tradeColumns + " FROM trades WHERE owner_id = ?"
	args := []interface{}{ownerID}

	if filter.Ticker != "" {
		query += " AND ticker = ?"
		args = append(args, filter.Ticker)
	}
	if filter.Source != "" {
		query += " AND source = ?"
		args = append(args, filter.Source)
	}
	if !filter.StartDate.IsZero() {
		query += " AND date >= ?"
		args = append(args, toMillis(filter.StartDate))
	}
	if !filter.EndDate.IsZero() {
		query += " AND date <= ?"
		args = append(args, toMillis(filter.EndDate))
	}

	query += " ORDER BY date ASC, rowid ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, *t)
	}

	return trades, rows.Err()
}

// UpdateTrade overwrites the mutable fields of an owner's trade.
func (s *SQLiteStore) UpdateTrade(ctx context.Context, t *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.exec(ctx, `
		UPDATE trades SET ticker = ?, asset_type = ?, side = ?, direction = ?, price = ?, quantity = ?, date = ?,
			fees = ?, taxes = ?, notes = ?, order_type = ?, brokerage_account_id = ?, trade_plan_id = ?
		WHERE owner_id = ? AND id = ?
	`, t.Ticker, t.AssetType, t.Side, t.Direction, t.Price, t.Quantity, toMillis(t.Date),
		nullFloat(t.Fees), nullFloat(t.Taxes), t.Notes, t.OrderType, t.BrokerageAccountID, t.TradePlanID,
		t.OwnerID, t.ID)
	if err != nil {
		return fmt.Errorf("failed to update trade: %w", err)
	}
	return expectOne(result, "trade", t.ID)
}

// DeleteTrade removes an owner's trade.
func (s *SQLiteStore) DeleteTrade(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.exec(ctx, "DELETE FROM trades WHERE owner_id = ? AND id = ?", ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}
	return expectOne(result, "trade", id)
}

func scanTrade(sc rowScanner) (*models.Trade, error) {
	var t models.Trade
	var date, createdAt int64
	var fees, taxes sql.NullFloat64

	if err := sc.Scan(&t.ID, &t.OwnerID, &t.Ticker, &t.AssetType, &t.Side, &t.Direction, &t.Price, &t.Quantity,
		&date, &fees, &taxes, &t.Notes, &t.OrderType, &t.Source, &t.ExternalID, &t.BrokerageAccountID,
		&t.TradePlanID, &createdAt); err != nil {
		return nil, err
	}

	t.Date = time.UnixMilli(date).UTC()
	t.CreatedAt = fromMillis(createdAt)
	t.Fees = floatPtr(fees)
	t.Taxes = floatPtr(taxes)
	return &t, nil
}

// ============================================================================
// Inbox Methods
// ============================================================================

const inboxColumns = "id, owner_id, status, source, ticker, asset_type, side, direction, price, quantity, date, fees, taxes, order_type, external_id, brokerage_account_id, notes, trade_plan_id, validation_errors, validation_warnings, imported_at, updated_at"

// InsertInboxTrades saves an import batch atomically.
func (s *SQLiteStore) InsertInboxTrades(ctx context.Context, rows []models.InboxTrade) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO inbox_trades (`+inboxColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, r := range rows {
			c := r.Candidate
			errs, warns, err := encodeDiagnostics(c)
			if err != nil {
				return err
			}
			_, err = stmt.ExecContext(ctx, r.ID, r.OwnerID, r.Status, c.Source, c.Ticker, c.AssetType, c.Side, c.Direction,
				nullFloat(c.Price), nullFloat(c.Quantity), nullMillis(c.Date), nullFloat(c.Fees), nullFloat(c.Taxes),
				c.OrderType, c.ExternalID, c.BrokerageAccountID, c.Notes, c.TradePlanID, errs, warns,
				toMillis(r.ImportedAt), toMillis(r.UpdatedAt))
			if err != nil {
				return fmt.Errorf("failed to insert inbox trade: %w", err)
			}
		}
		return nil
	})
}

// GetInboxTrade retrieves one of the owner's inbox rows.
func (s *SQLiteStore) GetInboxTrade(ctx context.Context, ownerID, id string) (*models.InboxTrade, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+inboxColumns+" FROM inbox_trades WHERE owner_id = ? AND id = ?", ownerID, id)
	r, err := scanInboxTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("inbox trade %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inbox trade: %w", err)
	}
	return r, nil
}

// ListInboxTrades retrieves the owner's inbox rows in import order.
func (s *SQLiteStore) ListInboxTrades(ctx context.Context, ownerID string) ([]models.InboxTrade, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+inboxColumns+" FROM inbox_trades WHERE owner_id = ? ORDER BY imported_at ASC, rowid ASC", ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query inbox trades: %w", err)
	}
	defer rows.Close()

	var out []models.InboxTrade
	for rows.Next() {
		r, err := scanInboxTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inbox trade: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// UpdateInboxTrade overwrites an inbox row's candidate fields and status.
func (s *SQLiteStore) UpdateInboxTrade(ctx context.Context, r *models.InboxTrade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := r.Candidate
	errs, warns, err := encodeDiagnostics(c)
	if err != nil {
		return err
	}

	result, err := s.exec(ctx, `
		UPDATE inbox_trades SET status = ?, ticker = ?, asset_type = ?, side = ?, direction = ?, price = ?, quantity = ?,
			date = ?, fees = ?, taxes = ?, order_type = ?, brokerage_account_id = ?, notes = ?, trade_plan_id = ?,
			validation_errors = ?, validation_warnings = ?, updated_at = ?
		WHERE owner_id = ? AND id = ?
	`, r.Status, c.Ticker, c.AssetType, c.Side, c.Direction, nullFloat(c.Price), nullFloat(c.Quantity),
		nullMillis(c.Date), nullFloat(c.Fees), nullFloat(c.Taxes), c.OrderType, c.BrokerageAccountID, c.Notes,
		c.TradePlanID, errs, warns, toMillis(r.UpdatedAt), r.OwnerID, r.ID)
	if err != nil {
		return fmt.Errorf("failed to update inbox trade: %w", err)
	}
	return expectOne(result, "inbox trade", r.ID)
}

// DeleteInboxTrade removes an owner's inbox row.
func (s *SQLiteStore) DeleteInboxTrade(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.exec(ctx, "DELETE FROM inbox_trades WHERE owner_id = ? AND id = ?", ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to delete inbox trade: %w", err)
	}
	return expectOne(result, "inbox trade", id)
}

// AcceptInboxTrade materializes an inbox row as a canonical trade.
func (s *SQLiteStore) AcceptInboxTrade(ctx context.Context, inboxID string, trade *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "DELETE FROM inbox_trades WHERE owner_id = ? AND id = ? AND status = ?",
			trade.OwnerID, inboxID, models.InboxPendingReview)
		if err != nil {
			return fmt.Errorf("failed to delete inbox trade: %w", err)
		}
		if err := expectOne(result, "inbox trade", inboxID); err != nil {
			return err
		}

		if err := insertTrade(ctx, tx, trade); err != nil {
			return fmt.Errorf("failed to insert trade: %w", err)
		}
		return nil
	})
}

func scanInboxTrade(sc rowScanner) (*models.InboxTrade, error) {
	var r models.InboxTrade
	var c models.Candidate
	var price, qty, fees, taxes sql.NullFloat64
	var date sql.NullInt64
	var errsJSON, warnsJSON string
	var importedAt, updatedAt int64

	if err := sc.Scan(&r.ID, &r.OwnerID, &r.Status, &c.Source, &c.Ticker, &c.AssetType, &c.Side, &c.Direction,
		&price, &qty, &date, &fees, &taxes, &c.OrderType, &c.ExternalID, &c.BrokerageAccountID, &c.Notes,
		&c.TradePlanID, &errsJSON, &warnsJSON, &importedAt, &updatedAt); err != nil {
		return nil, err
	}

	c.Price = floatPtr(price)
	c.Quantity = floatPtr(qty)
	c.Fees = floatPtr(fees)
	c.Taxes = floatPtr(taxes)
	if date.Valid {
		d := time.UnixMilli(date.Int64).UTC()
		c.Date = &d
	}
	if err := json.Unmarshal([]byte(errsJSON), &c.ValidationErrors); err != nil {
		return nil, fmt.Errorf("decoding validation errors: %w", err)
	}
	if err := json.Unmarshal([]byte(warnsJSON), &c.ValidationWarnings); err != nil {
		return nil, fmt.Errorf("decoding validation warnings: %w", err)
	}

	r.Candidate = c
	r.ImportedAt = fromMillis(importedAt)
	r.UpdatedAt = fromMillis(updatedAt)
	return &r, nil
}

func encodeDiagnostics(c models.Candidate) (string, string, error) {
	errs := c.ValidationErrors
	if errs == nil {
		errs = []string{}
	}
	warns := c.ValidationWarnings
	if warns == nil {
		warns = []string{}
	}
	errsJSON, err := json.Marshal(errs)
	if err != nil {
		return "", "", fmt.Errorf("encoding validation errors: %w", err)
	}
	warnsJSON, err := json.Marshal(warns)
	if err != nil {
		return "", "", fmt.Errorf("encoding validation warnings: %w", err)
	}
	return string(errsJSON), string(warnsJSON), nil
}

// ============================================================================
// Plan and Campaign Methods
// ============================================================================

const planColumns = "id, owner_id, campaign_id, ticker, direction, entry_price, stop_loss, target, status, notes, created_at, updated_at"

// SavePlan inserts or replaces a trade plan.
func (s *SQLiteStore) SavePlan(ctx context.Context, p *models.TradePlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.exec(ctx, `
		INSERT OR REPLACE INTO trade_plans (`+planColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.OwnerID, p.CampaignID, p.Ticker, p.Direction, p.EntryPrice, p.StopLoss, p.Target, p.Status, p.Notes,
		toMillis(p.CreatedAt), toMillis(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}
	return nil
}

// GetTradePlan retrieves a plan by id regardless of owner.
func (s *SQLiteStore) GetTradePlan(ctx context.Context, id string) (*models.TradePlan, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+planColumns+" FROM trade_plans WHERE id = ?", id)
	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return p, nil
}

// ListPlans retrieves the owner's trade plans, newest first.
func (s *SQLiteStore) ListPlans(ctx context.Context, ownerID string, filter PlanFilter) ([]models.TradePlan, error) {
	query := "SELECT " + planColumns + " FROM trade_plans WHERE owner_id = ?"
	args := []interface{}{ownerID}

	if filter.Ticker != "" {
		query += " AND ticker = ?"
		args = append(args, filter.Ticker)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.CampaignID != "" {
		query += " AND campaign_id = ?"
		args = append(args, filter.CampaignID)
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	var plans []models.TradePlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

// UpdatePlanStatus updates the status of an owner's trade plan.
func (s *SQLiteStore) UpdatePlanStatus(ctx context.Context, ownerID, planID string, status models.PlanStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.exec(ctx, "UPDATE trade_plans SET status = ?, updated_at = ? WHERE owner_id = ? AND id = ?",
		status, toMillis(time.Now()), ownerID, planID)
	if err != nil {
		return fmt.Errorf("failed to update plan status: %w", err)
	}
	return expectOne(result, "plan", planID)
}

func scanPlan(sc rowScanner) (*models.TradePlan, error) {
	var p models.TradePlan
	var createdAt, updatedAt int64
	if err := sc.Scan(&p.ID, &p.OwnerID, &p.CampaignID, &p.Ticker, &p.Direction, &p.EntryPrice, &p.StopLoss,
		&p.Target, &p.Status, &p.Notes, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}

const campaignColumns = "id, owner_id, name, thesis, status, created_at, updated_at"

// SaveCampaign inserts or replaces a campaign.
func (s *SQLiteStore) SaveCampaign(ctx context.Context, c *models.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.exec(ctx, `
		INSERT OR REPLACE INTO campaigns (`+campaignColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.OwnerID, c.Name, c.Thesis, c.Status, toMillis(c.CreatedAt), toMillis(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save campaign: %w", err)
	}
	return nil
}

// GetCampaign retrieves one of the owner's campaigns.
func (s *SQLiteStore) GetCampaign(ctx context.Context, ownerID, id string) (*models.Campaign, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+campaignColumns+" FROM campaigns WHERE owner_id = ? AND id = ?", ownerID, id)
	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("campaign %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return c, nil
}

// ListCampaigns retrieves the owner's campaigns, newest first.
func (s *SQLiteStore) ListCampaigns(ctx context.Context, ownerID string) ([]models.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+campaignColumns+" FROM campaigns WHERE owner_id = ? ORDER BY created_at DESC", ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, rows.Err()
}

// UpdateCampaignStatus updates the status of an owner's campaign.
func (s *SQLiteStore) UpdateCampaignStatus(ctx context.Context, ownerID, campaignID string, status models.CampaignStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.exec(ctx, "UPDATE campaigns SET status = ?, updated_at = ? WHERE owner_id = ? AND id = ?",
		status, toMillis(time.Now()), ownerID, campaignID)
	if err != nil {
		return fmt.Errorf("failed to update campaign status: %w", err)
	}
	return expectOne(result, "campaign", campaignID)
}

func scanCampaign(sc rowScanner) (*models.Campaign, error) {
	var c models.Campaign
	var createdAt, updatedAt int64
	if err := sc.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Thesis, &c.Status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return &c, nil
}

// ============================================================================
// Account Mapping Methods
// ============================================================================

// SetAccountMapping upserts a display name for a brokerage account.
func (s *SQLiteStore) SetAccountMapping(ctx context.Context, m *models.AccountMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.exec(ctx, `
		INSERT INTO account_mappings (owner_id, source, account_id, display_name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner_id, source, account_id) DO UPDATE SET display_name = excluded.display_name
	`, m.OwnerID, m.Source, m.AccountID, m.DisplayName)
	if err != nil {
		return fmt.Errorf("failed to save account mapping: %w", err)
	}
	return nil
}

// ListAccountMappings retrieves the owner's account mappings.
func (s *SQLiteStore) ListAccountMappings(ctx context.Context, ownerID string) ([]models.AccountMapping, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT owner_id, source, account_id, display_name FROM account_mappings
		WHERE owner_id = ? ORDER BY source, account_id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query account mappings: %w", err)
	}
	defer rows.Close()

	var out []models.AccountMapping
	for rows.Next() {
		var m models.AccountMapping
		if err := rows.Scan(&m.OwnerID, &m.Source, &m.AccountID, &m.DisplayName); err != nil {
			return nil, fmt.Errorf("failed to scan account mapping: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteAccountMapping removes an account mapping.
func (s *SQLiteStore) DeleteAccountMapping(ctx context.Context, ownerID string, source models.Source, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.exec(ctx, "DELETE FROM account_mappings WHERE owner_id = ? AND source = ? AND account_id = ?",
		ownerID, source, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete account mapping: %w", err)
	}
	return expectOne(result, "account mapping", accountID)
}

// ============================================================================
// Helpers
// ============================================================================

func expectOne(result sql.Result, entity, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: %w", entity, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, apperrors.ErrNotFound)
	}
	return nil
}

// toMillis and fromMillis map the zero time to 0 for NOT NULL bookkeeping
// columns such as created_at. Execution dates never go through fromMillis:
// 0 is a valid 1970-01-01 timestamp there.
func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
