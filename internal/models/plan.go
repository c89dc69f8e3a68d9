package models

import "time"

// TradePlan represents a planned trade idea that trades can be linked to.
type TradePlan struct {
	ID         string
	OwnerID    string
	CampaignID string
	Ticker     string
	Direction  Direction
	EntryPrice float64
	StopLoss   float64
	Target     float64
	Status     PlanStatus
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PlanStatus represents the lifecycle state of a trade plan.
type PlanStatus string

const (
	PlanIdea     PlanStatus = "idea"
	PlanWatching PlanStatus = "watching"
	PlanActive   PlanStatus = "active"
	PlanClosed   PlanStatus = "closed"
)

// Campaign groups related trade plans.
type Campaign struct {
	ID        string
	OwnerID   string
	Name      string
	Thesis    string
	Status    CampaignStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CampaignStatus represents the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignPlanning CampaignStatus = "planning"
	CampaignActive   CampaignStatus = "active"
	CampaignClosed   CampaignStatus = "closed"
)
