package importers

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"trade-journal/internal/models"
)

const (
	krakenTimeLayout = "2006-01-02 15:04:05"
	krakenAssetClass = "equity_pair"
)

// krakenRow is one fill of a Kraken trades export.
type krakenRow struct {
	TxID      string `csv:"txid"`
	OrderTxID string `csv:"ordertxid"`
	Pair      string `csv:"pair"`
	AClass    string `csv:"aclass"`
	Time      string `csv:"time"`
	Type      string `csv:"type"`
	OrderType string `csv:"ordertype"`
	Price     string `csv:"price"`
	Cost      string `csv:"cost"`
	Fee       string `csv:"fee"`
	Vol       string `csv:"vol"`
}

// krakenOrder accumulates the fills of one order.
type krakenOrder struct {
	orderTxID string
	first     *krakenRow
	cost      float64
	volume    float64
	fee       float64
	earliest  *time.Time
	fills     int
	warnings  []string
	// broken is set when a fill's cost or volume could not be read, so the
	// aggregate price and quantity cannot be trusted.
	broken bool
}

func (o *krakenOrder) add(row *krakenRow) {
	o.fills++

	cost, costOK := parseNumber(row.Cost)
	vol, volOK := parseNumber(row.Vol)
	if !costOK || !volOK {
		o.broken = true
		o.warnings = append(o.warnings, fmt.Sprintf("Fill %s has unparseable cost or volume", strings.TrimSpace(row.TxID)))
	}
	o.cost += cost
	o.volume += vol

	if fee, ok := parseNumber(row.Fee); ok {
		o.fee += fee
	}

	t, err := parseKrakenTime(row.Time)
	if err != nil {
		o.warnings = append(o.warnings, fmt.Sprintf("Unparseable fill time %q", strings.TrimSpace(row.Time)))
		return
	}
	if o.earliest == nil || t.Before(*o.earliest) {
		o.earliest = &t
	}
}

// KrakenNormalizer parses Kraken fill-level trade exports, merging partial
// fills of one order into a single candidate.
type KrakenNormalizer struct{}

// NewKrakenNormalizer creates a new KrakenNormalizer.
func NewKrakenNormalizer() *KrakenNormalizer {
	return &KrakenNormalizer{}
}

// Source returns models.SourceKraken.
func (n *KrakenNormalizer) Source() models.Source {
	return models.SourceKraken
}

// Normalize converts a Kraken export into one candidate per order, in the
// order each order first appears.
func (n *KrakenNormalizer) Normalize(r io.Reader) ([]models.Candidate, error) {
	var rows []*krakenRow
	if err := decodeRows(models.SourceKraken, r, &rows); err != nil {
		return nil, err
	}

	orders := make(map[string]*krakenOrder)
	var sequence []string
	for _, row := range rows {
		if row == nil {
			continue
		}
		if strings.TrimSpace(row.AClass) != krakenAssetClass {
			continue
		}
		id := strings.TrimSpace(row.OrderTxID)
		if id == "" {
			continue
		}

		order, ok := orders[id]
		if !ok {
			order = &krakenOrder{orderTxID: id, first: row}
			orders[id] = order
			sequence = append(sequence, id)
		}
		order.add(row)
	}

	candidates := make([]models.Candidate, 0, len(sequence))
	for _, id := range sequence {
		candidates = append(candidates, finalize(orders[id].candidate()))
	}
	return candidates, nil
}

func (o *krakenOrder) candidate() models.Candidate {
	c := models.Candidate{
		Source:             models.SourceKraken,
		Ticker:             krakenTicker(o.first.Pair),
		AssetType:          models.AssetCrypto,
		Side:               models.ParseSide(o.first.Type),
		Direction:          models.DirectionLong,
		Date:               o.earliest,
		Fees:               models.Float(o.fee),
		Taxes:              models.Float(0),
		OrderType:          strings.TrimSpace(o.first.OrderType),
		ExternalID:         o.orderTxID,
		ValidationWarnings: o.warnings,
	}

	if !o.broken {
		c.Quantity = models.Float(o.volume)
		if o.volume > 0 {
			c.Price = models.Float(o.cost / o.volume)
		}
	}
	return c
}

// krakenTicker returns the base asset of a BASE/QUOTE pair.
func krakenTicker(pair string) string {
	pair = strings.TrimSpace(pair)
	if i := strings.Index(pair, "/"); i >= 0 {
		pair = pair[:i]
	}
	return strings.ToUpper(strings.TrimSpace(pair))
}

// parseKrakenTime accepts both the "2006-01-02 15:04:05.0000" export format
// and fractional unix seconds, always in UTC.
func parseKrakenTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(krakenTimeLayout, s, time.UTC); err == nil {
		return t, nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing kraken time %q: %w", s, err)
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC(), nil
}
