package models

import "time"

// Trade represents a canonical journal trade.
type Trade struct {
	ID                 string
	OwnerID            string
	Ticker             string
	AssetType          AssetType
	Side               Side
	Direction          Direction
	Price              float64
	Quantity           float64
	Date               time.Time
	Fees               *float64
	Taxes              *float64
	Notes              string
	OrderType          string
	Source             Source
	ExternalID         string
	BrokerageAccountID string
	TradePlanID        string
	CreatedAt          time.Time
}

// Candidate is the pre-canonical shape produced by the brokerage normalizers.
// Every business field is optional; empty strings and nil pointers mean the
// field is absent.
type Candidate struct {
	Source             Source
	Ticker             string
	AssetType          AssetType
	Side               Side
	Direction          Direction
	Price              *float64
	Quantity           *float64
	Date               *time.Time
	Fees               *float64
	Taxes              *float64
	OrderType          string
	ExternalID         string
	BrokerageAccountID string
	Notes              string
	TradePlanID        string
	ValidationErrors   []string
	ValidationWarnings []string
}

// Clone returns a deep copy of c.
func (c Candidate) Clone() Candidate {
	out := c
	out.Price = cloneFloat(c.Price)
	out.Quantity = cloneFloat(c.Quantity)
	out.Fees = cloneFloat(c.Fees)
	out.Taxes = cloneFloat(c.Taxes)
	if c.Date != nil {
		d := *c.Date
		out.Date = &d
	}
	out.ValidationErrors = append([]string(nil), c.ValidationErrors...)
	out.ValidationWarnings = append([]string(nil), c.ValidationWarnings...)
	return out
}

// CandidatePatch is a partial update of a Candidate. Nil fields are left
// untouched.
type CandidatePatch struct {
	Ticker             *string
	AssetType          *AssetType
	Side               *Side
	Direction          *Direction
	Price              *float64
	Quantity           *float64
	Date               *time.Time
	Fees               *float64
	Taxes              *float64
	OrderType          *string
	BrokerageAccountID *string
	Notes              *string
	TradePlanID        *string
}

// Empty reports whether the patch changes nothing.
func (p CandidatePatch) Empty() bool {
	return p == CandidatePatch{}
}

// Apply returns a copy of c with the patch applied. The external id and
// source are immutable after import.
func (p CandidatePatch) Apply(c Candidate) Candidate {
	out := c.Clone()
	if p.Ticker != nil {
		out.Ticker = *p.Ticker
	}
	if p.AssetType != nil {
		out.AssetType = *p.AssetType
	}
	if p.Side != nil {
		out.Side = *p.Side
	}
	if p.Direction != nil {
		out.Direction = *p.Direction
	}
	if p.Price != nil {
		out.Price = cloneFloat(p.Price)
	}
	if p.Quantity != nil {
		out.Quantity = cloneFloat(p.Quantity)
	}
	if p.Date != nil {
		d := *p.Date
		out.Date = &d
	}
	if p.Fees != nil {
		out.Fees = cloneFloat(p.Fees)
	}
	if p.Taxes != nil {
		out.Taxes = cloneFloat(p.Taxes)
	}
	if p.OrderType != nil {
		out.OrderType = *p.OrderType
	}
	if p.BrokerageAccountID != nil {
		out.BrokerageAccountID = *p.BrokerageAccountID
	}
	if p.Notes != nil {
		out.Notes = *p.Notes
	}
	if p.TradePlanID != nil {
		out.TradePlanID = *p.TradePlanID
	}
	return out
}

// InboxStatus represents the review state of an inbox trade.
type InboxStatus string

// InboxPendingReview is the only state an inbox row holds while it exists.
// Accepted and deleted rows are removed rather than transitioned.
const InboxPendingReview InboxStatus = "pending_review"

// InboxTrade is an imported execution awaiting review.
type InboxTrade struct {
	ID         string
	OwnerID    string
	Status     InboxStatus
	Candidate  Candidate
	ImportedAt time.Time
	UpdatedAt  time.Time
}

// Position is an open holding derived from canonical trades.
type Position struct {
	Ticker      string
	Direction   Direction
	NetQuantity float64
	AverageCost float64
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
