package validation

import (
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"trade-journal/internal/models"
)

// Property: re-validating a candidate that already carries the normalized
// ticker yields exactly the same findings as the first pass.
func TestProperty_ValidationIsIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	tickerGen := gen.OneConstOf("", "  ", "aapl", " msft ", "BTC", "eth ")
	assetGen := gen.OneConstOf(models.AssetType(""), models.AssetStock, models.AssetCrypto)
	sideGen := gen.OneConstOf(models.Side(""), models.SideBuy, models.SideSell)
	directionGen := gen.OneConstOf(models.Direction(""), models.DirectionLong, models.DirectionShort)
	numberGen := gen.Float64Range(-10, 1000)

	properties.Property("validate is idempotent under includeExisting=false", prop.ForAll(
		func(ticker string, asset models.AssetType, side models.Side, direction models.Direction, price, qty float64, hasDate, hasExternal bool) bool {
			c := models.Candidate{
				Source:    models.SourceIBKR,
				Ticker:    ticker,
				AssetType: asset,
				Side:      side,
				Direction: direction,
				Price:     models.Float(price),
				Quantity:  models.Float(qty),
			}
			if hasDate {
				d := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
				c.Date = &d
			}
			if hasExternal {
				c.ExternalID = "ext-1"
			}

			first := Validate(c, false)
			second := Validate(first.Apply(c), false)

			return first.Ticker == second.Ticker &&
				reflect.DeepEqual(first.Errors, second.Errors) &&
				reflect.DeepEqual(first.Warnings, second.Warnings)
		},
		tickerGen,
		assetGen,
		sideGen,
		directionGen,
		numberGen,
		numberGen,
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
