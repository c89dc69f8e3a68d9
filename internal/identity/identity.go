// Package identity derives deduplication keys for brokerage executions.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"trade-journal/internal/models"
)

// Kind says how an identity was derived.
type Kind string

const (
	// KindNative is a broker-assigned execution id.
	KindNative Kind = "native"
	// KindHash is a fingerprint of the execution's observable fields. Two
	// fills with identical fields collide.
	KindHash Kind = "hash"
)

const fieldSeparator = "\x1f"

// Execution is the subset of a brokerage fill that identifies it.
type Execution struct {
	Provider   models.Source
	AccountRef string
	Symbol     string
	Side       models.Side
	Quantity   float64
	Price      float64
	OccurredAt time.Time
	ExternalID string
}

// Identity is a dedup key for one execution.
type Identity struct {
	Kind  Kind
	Value string
}

// Build returns the native id when the execution carries one, and a stable
// fingerprint otherwise.
func Build(e Execution) Identity {
	if id := strings.TrimSpace(e.ExternalID); id != "" {
		return Identity{Kind: KindNative, Value: id}
	}

	fields := []string{
		string(e.Provider),
		e.AccountRef,
		strings.ToUpper(strings.TrimSpace(e.Symbol)),
		string(e.Side),
		strconv.FormatFloat(e.Quantity, 'g', -1, 64),
		strconv.FormatFloat(e.Price, 'g', -1, 64),
		strconv.FormatInt(e.OccurredAt.UnixMilli(), 10),
	}
	sum := sha256.Sum256([]byte(strings.Join(fields, fieldSeparator)))
	return Identity{Kind: KindHash, Value: string(KindHash) + ":" + hex.EncodeToString(sum[:])}
}

// FromCandidate builds the execution view of a candidate. Missing numeric
// fields contribute zero.
func FromCandidate(c models.Candidate) Execution {
	e := Execution{
		Provider:   c.Source,
		AccountRef: c.BrokerageAccountID,
		Symbol:     c.Ticker,
		Side:       c.Side,
		ExternalID: c.ExternalID,
	}
	if c.Quantity != nil {
		e.Quantity = *c.Quantity
	}
	if c.Price != nil {
		e.Price = *c.Price
	}
	if c.Date != nil {
		e.OccurredAt = *c.Date
	}
	return e
}

// Tag fills in a fingerprint external id on candidates that lack one. It
// reports how many candidates were tagged.
func Tag(candidates []models.Candidate) ([]models.Candidate, int) {
	out := make([]models.Candidate, len(candidates))
	tagged := 0
	for i, c := range candidates {
		out[i] = c
		if strings.TrimSpace(c.ExternalID) != "" {
			continue
		}
		out[i] = c.Clone()
		out[i].ExternalID = Build(FromCandidate(c)).Value
		tagged++
	}
	return out, tagged
}

// DedupKey identifies an execution within one owner's journal.
type DedupKey struct {
	Source     models.Source
	ExternalID string
}

// KeyOf returns the dedup key for a candidate. ok is false when the
// candidate has no external id and so cannot be matched.
func KeyOf(c models.Candidate) (DedupKey, bool) {
	id := strings.TrimSpace(c.ExternalID)
	if id == "" {
		return DedupKey{}, false
	}
	return DedupKey{Source: c.Source, ExternalID: id}, true
}

// KeyOfTrade returns the dedup key for a canonical trade.
func KeyOfTrade(t models.Trade) (DedupKey, bool) {
	id := strings.TrimSpace(t.ExternalID)
	if id == "" {
		return DedupKey{}, false
	}
	return DedupKey{Source: t.Source, ExternalID: id}, true
}
