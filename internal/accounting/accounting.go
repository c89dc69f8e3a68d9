// Package accounting computes average-cost positions and realized P&L from
// canonical trades.
package accounting

import (
	"math"
	"sort"

	"trade-journal/internal/models"
)

// FlatEpsilon is the magnitude below which a reported position is treated
// as closed.
const FlatEpsilon = 1e-4

// PositionKey identifies one independently tracked position.
type PositionKey struct {
	Ticker    string
	Direction models.Direction
}

// Less orders keys by ticker, then direction.
func (k PositionKey) Less(other PositionKey) bool {
	if k.Ticker != other.Ticker {
		return k.Ticker < other.Ticker
	}
	return k.Direction < other.Direction
}

// tracker holds the running state of one position. totalEntryCost divided
// by totalEntryQuantity is the average entry price of the open portion.
type tracker struct {
	netQuantity        float64
	totalEntryCost     float64
	totalEntryQuantity float64
}

func (t *tracker) averageCost() float64 {
	if t.totalEntryQuantity > 0 {
		return t.totalEntryCost / t.totalEntryQuantity
	}
	return 0
}

func (t *tracker) open(price, qty float64) {
	t.netQuantity += qty
	t.totalEntryCost += price * qty
	t.totalEntryQuantity += qty
}

// close reduces the cost basis and returns the realized P&L. Over-closing is
// not clamped; it realizes against whatever average cost is on record.
func (t *tracker) close(direction models.Direction, price, qty float64) float64 {
	avg := t.averageCost()

	var pnl float64
	if direction == models.DirectionShort {
		pnl = (avg - price) * qty
	} else {
		pnl = (price - avg) * qty
	}

	t.totalEntryCost = math.Max(0, t.totalEntryCost-avg*qty)
	t.totalEntryQuantity = math.Max(0, t.totalEntryQuantity-qty)
	if t.totalEntryQuantity == 0 {
		t.totalEntryCost = 0
	}
	t.netQuantity -= qty

	return pnl
}

// ledger replays trades in chronological order.
type ledger struct {
	trackers map[PositionKey]*tracker
}

func newLedger() *ledger {
	return &ledger{trackers: make(map[PositionKey]*tracker)}
}

// apply processes one trade and returns its realized P&L, or nil when the
// trade opens rather than closes.
func (l *ledger) apply(t models.Trade) *float64 {
	key := PositionKey{Ticker: t.Ticker, Direction: t.Direction}
	tr, ok := l.trackers[key]
	if !ok {
		tr = &tracker{}
		l.trackers[key] = tr
	}

	if t.Direction.Opens(t.Side) {
		tr.open(t.Price, t.Quantity)
		return nil
	}
	pnl := tr.close(t.Direction, t.Price, t.Quantity)
	return &pnl
}

// chronological returns a copy of trades sorted by date, keeping input order
// for trades with the same date.
func chronological(trades []models.Trade) []models.Trade {
	sorted := make([]models.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

// ComputeRealizedPL returns the realized P&L of every trade keyed by trade
// id. Opening trades map to nil.
func ComputeRealizedPL(trades []models.Trade) map[string]*float64 {
	out := make(map[string]*float64, len(trades))
	l := newLedger()
	for _, t := range chronological(trades) {
		out[t.ID] = l.apply(t)
	}
	return out
}

// ComputePositions returns every position with a strictly positive net
// quantity, sorted by ticker.
func ComputePositions(trades []models.Trade) []models.Position {
	l := newLedger()
	for _, t := range chronological(trades) {
		l.apply(t)
	}

	keys := make([]PositionKey, 0, len(l.trackers))
	for k, tr := range l.trackers {
		if tr.netQuantity > 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	positions := make([]models.Position, 0, len(keys))
	for _, k := range keys {
		tr := l.trackers[k]
		positions = append(positions, models.Position{
			Ticker:      k.Ticker,
			Direction:   k.Direction,
			NetQuantity: tr.netQuantity,
			AverageCost: tr.averageCost(),
		})
	}
	return positions
}

// IsFlat reports whether a quantity is small enough to treat as closed.
func IsFlat(qty float64) bool {
	return math.Abs(qty) < FlatEpsilon
}

// OpenPositions drops positions whose size is below FlatEpsilon.
func OpenPositions(positions []models.Position) []models.Position {
	out := make([]models.Position, 0, len(positions))
	for _, p := range positions {
		if !IsFlat(p.NetQuantity) {
			out = append(out, p)
		}
	}
	return out
}

// Summary aggregates realized P&L across closing trades.
type Summary struct {
	ClosingTrades int
	Winners       int
	Losers        int
	GrossProfit   float64
	GrossLoss     float64
	NetPL         float64
}

// Summarize totals a realized P&L map.
func Summarize(pl map[string]*float64) Summary {
	var s Summary
	for _, v := range pl {
		if v == nil {
			continue
		}
		s.ClosingTrades++
		s.NetPL += *v
		switch {
		case *v > 0:
			s.Winners++
			s.GrossProfit += *v
		case *v < 0:
			s.Losers++
			s.GrossLoss += *v
		}
	}
	return s
}
