// Package validation checks trade candidates before they enter the journal.
package validation

import (
	"math"
	"strings"

	"trade-journal/internal/models"
)

// Diagnostic messages. Callers and stored rows compare against these verbatim.
const (
	MsgTickerRequired    = "Ticker is required"
	MsgAssetTypeRequired = "Asset type is required"
	MsgSideRequired      = "Side is required"
	MsgDirectionRequired = "Direction is required"
	MsgDateRequired      = "Date is required and must be a valid timestamp"
	MsgPriceRequired     = "Price is required and must be > 0"
	MsgQuantityRequired  = "Quantity is required and must be > 0"
	MsgNoExternalID      = "No externalId provided; dedup cannot be guaranteed."
)

// Result holds the outcome of validating a candidate.
type Result struct {
	// Ticker is the trimmed, uppercased ticker, or "" when absent.
	Ticker   string
	Errors   []string
	Warnings []string
}

// Valid reports whether the candidate has no errors.
func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

// Apply copies the result onto c, replacing its ticker and diagnostics.
func (r Result) Apply(c models.Candidate) models.Candidate {
	out := c.Clone()
	out.Ticker = r.Ticker
	out.ValidationErrors = append([]string(nil), r.Errors...)
	out.ValidationWarnings = append([]string(nil), r.Warnings...)
	return out
}

// Validate checks every rule independently so the caller always receives the
// complete set of findings. When includeExisting is true the candidate's own
// diagnostics are carried forward and new findings are appended after them.
func Validate(c models.Candidate, includeExisting bool) Result {
	var res Result
	if includeExisting {
		res.Errors = append(res.Errors, c.ValidationErrors...)
		res.Warnings = append(res.Warnings, c.ValidationWarnings...)
	}

	res.Ticker = NormalizeTicker(c.Ticker)
	if res.Ticker == "" {
		res.Errors = append(res.Errors, MsgTickerRequired)
	}
	if !c.AssetType.Valid() {
		res.Errors = append(res.Errors, MsgAssetTypeRequired)
	}
	if !c.Side.Valid() {
		res.Errors = append(res.Errors, MsgSideRequired)
	}
	if !c.Direction.Valid() {
		res.Errors = append(res.Errors, MsgDirectionRequired)
	}
	if c.Date == nil || c.Date.IsZero() {
		res.Errors = append(res.Errors, MsgDateRequired)
	}
	if !positive(c.Price) {
		res.Errors = append(res.Errors, MsgPriceRequired)
	}
	if !positive(c.Quantity) {
		res.Errors = append(res.Errors, MsgQuantityRequired)
	}
	if strings.TrimSpace(c.ExternalID) == "" {
		res.Warnings = append(res.Warnings, MsgNoExternalID)
	}

	return res
}

// NormalizeTicker trims and uppercases a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

func positive(v *float64) bool {
	if v == nil {
		return false
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return false
	}
	return *v > 0
}
