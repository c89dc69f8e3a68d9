// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"trade-journal/internal/models"
)

// DataStore defines the interface for data persistence. Every owner-scoped
// read treats a record belonging to another owner as missing.
type DataStore interface {
	TradeStore
	InboxStore
	PlanStore
	AccountStore

	// Lifecycle
	Close() error
}

// TradeStore persists canonical trades.
type TradeStore interface {
	InsertTrade(ctx context.Context, trade *models.Trade) error
	GetTrade(ctx context.Context, ownerID, id string) (*models.Trade, error)
	ListTrades(ctx context.Context, ownerID string, filter TradeFilter) ([]models.Trade, error)
	UpdateTrade(ctx context.Context, trade *models.Trade) error
	DeleteTrade(ctx context.Context, ownerID, id string) error
}

// InboxStore persists imported trades awaiting review.
type InboxStore interface {
	// InsertInboxTrades writes a whole import batch in one transaction.
	InsertInboxTrades(ctx context.Context, rows []models.InboxTrade) error
	GetInboxTrade(ctx context.Context, ownerID, id string) (*models.InboxTrade, error)
	ListInboxTrades(ctx context.Context, ownerID string) ([]models.InboxTrade, error)
	UpdateInboxTrade(ctx context.Context, row *models.InboxTrade) error
	DeleteInboxTrade(ctx context.Context, ownerID, id string) error

	// AcceptInboxTrade inserts the canonical trade and removes the inbox row
	// in one transaction.
	AcceptInboxTrade(ctx context.Context, inboxID string, trade *models.Trade) error
}

// PlanStore persists trade plans and campaigns.
type PlanStore interface {
	SavePlan(ctx context.Context, plan *models.TradePlan) error
	// GetTradePlan is not owner-scoped; callers compare OwnerID themselves.
	// It returns nil, nil when the plan does not exist.
	GetTradePlan(ctx context.Context, id string) (*models.TradePlan, error)
	ListPlans(ctx context.Context, ownerID string, filter PlanFilter) ([]models.TradePlan, error)
	UpdatePlanStatus(ctx context.Context, ownerID, planID string, status models.PlanStatus) error

	SaveCampaign(ctx context.Context, campaign *models.Campaign) error
	GetCampaign(ctx context.Context, ownerID, id string) (*models.Campaign, error)
	ListCampaigns(ctx context.Context, ownerID string) ([]models.Campaign, error)
	UpdateCampaignStatus(ctx context.Context, ownerID, campaignID string, status models.CampaignStatus) error
}

// AccountStore persists brokerage account display names.
type AccountStore interface {
	SetAccountMapping(ctx context.Context, mapping *models.AccountMapping) error
	ListAccountMappings(ctx context.Context, ownerID string) ([]models.AccountMapping, error)
	DeleteAccountMapping(ctx context.Context, ownerID string, source models.Source, accountID string) error
}

// TradeFilter represents filters for querying trades.
type TradeFilter struct {
	Ticker    string
	Source    models.Source
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

// PlanFilter represents filters for querying trade plans.
type PlanFilter struct {
	Ticker     string
	Status     models.PlanStatus
	CampaignID string
	Limit      int
}
