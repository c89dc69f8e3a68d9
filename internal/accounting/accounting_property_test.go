package accounting

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"trade-journal/internal/models"
)

// Property: fully opening then fully closing a position realizes exactly the
// price difference times the quantity, and leaves no reported position.
func TestProperty_PLConservation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	priceGen := gen.Float64Range(0.01, 5000)
	qtyGen := gen.Float64Range(0.001, 10000)

	properties.Property("round trip P&L equals price difference times quantity", prop.ForAll(
		func(openPrice, closePrice, qty float64, short bool) bool {
			dir, openSide, closeSide := models.DirectionLong, models.SideBuy, models.SideSell
			want := (closePrice - openPrice) * qty
			if short {
				dir, openSide, closeSide = models.DirectionShort, models.SideSell, models.SideBuy
				want = (openPrice - closePrice) * qty
			}

			trades := []models.Trade{
				trade("open", "XYZ", dir, openSide, openPrice, qty, 0),
				trade("close", "XYZ", dir, closeSide, closePrice, qty, 1),
			}

			pl := ComputeRealizedPL(trades)
			if pl["open"] != nil || pl["close"] == nil {
				return false
			}
			tolerance := 1e-9 * math.Max(1, (openPrice+closePrice)*qty)
			if math.Abs(*pl["close"]-want) > tolerance {
				t.Logf("P&L mismatch: want %v, got %v", want, *pl["close"])
				return false
			}
			return len(ComputePositions(trades)) == 0
		},
		priceGen,
		priceGen,
		qtyGen,
		gen.Bool(),
	))

	properties.Property("splitting the close does not change total P&L", prop.ForAll(
		func(openPrice, closePrice float64, lots int) bool {
			qty := float64(lots * 2)
			trades := []models.Trade{
				trade("open", "XYZ", models.DirectionLong, models.SideBuy, openPrice, qty, 0),
				trade("c1", "XYZ", models.DirectionLong, models.SideSell, closePrice, qty/2, 1),
				trade("c2", "XYZ", models.DirectionLong, models.SideSell, closePrice, qty/2, 2),
			}

			pl := ComputeRealizedPL(trades)
			total := *pl["c1"] + *pl["c2"]
			want := (closePrice - openPrice) * qty
			return math.Abs(total-want) <= 1e-9*math.Max(1, (openPrice+closePrice)*qty)
		},
		priceGen,
		priceGen,
		gen.IntRange(1, 500),
	))

	properties.TestingRun(t)
}
