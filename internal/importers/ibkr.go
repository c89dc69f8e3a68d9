package importers

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"trade-journal/internal/models"
)

const (
	ibkrDateTimeLayout = "20060102;150405"
	// ibkrFillTransactionType marks execution-level rows; only order-level
	// rows are imported.
	ibkrFillTransactionType = "ExchTrade"
	ibkrHeaderMarker        = "ClientAccountID"
)

// ibkrRow is one line of an IBKR flex trades export.
type ibkrRow struct {
	ClientAccountID    string `csv:"ClientAccountID"`
	Symbol             string `csv:"Symbol"`
	AssetClass         string `csv:"AssetClass"`
	DateTime           string `csv:"DateTime"`
	OpenCloseIndicator string `csv:"Open/CloseIndicator"`
	BuySell            string `csv:"Buy/Sell"`
	Quantity           string `csv:"Quantity"`
	TradePrice         string `csv:"TradePrice"`
	Taxes              string `csv:"Taxes"`
	TransactionType    string `csv:"TransactionType"`
	OrderType          string `csv:"OrderType"`
}

// IBKRNormalizer parses IBKR order-level trade exports.
type IBKRNormalizer struct {
	loc *time.Location
}

// NewIBKRNormalizer creates a new IBKRNormalizer.
func NewIBKRNormalizer(opts Options) *IBKRNormalizer {
	return &IBKRNormalizer{loc: opts.location()}
}

// Source returns models.SourceIBKR.
func (n *IBKRNormalizer) Source() models.Source {
	return models.SourceIBKR
}

// Normalize converts an IBKR export into candidates, one per order row.
func (n *IBKRNormalizer) Normalize(r io.Reader) ([]models.Candidate, error) {
	var rows []*ibkrRow
	if err := decodeRows(models.SourceIBKR, r, &rows); err != nil {
		return nil, err
	}

	candidates := make([]models.Candidate, 0, len(rows))
	for _, row := range rows {
		if row == nil || skipIBKRRow(row) {
			continue
		}
		candidates = append(candidates, finalize(n.candidate(row)))
	}
	return candidates, nil
}

func skipIBKRRow(row *ibkrRow) bool {
	switch {
	case strings.TrimSpace(row.ClientAccountID) == ibkrHeaderMarker:
		return true
	case strings.TrimSpace(row.OpenCloseIndicator) == "":
		return true
	case strings.TrimSpace(row.TransactionType) == ibkrFillTransactionType:
		return true
	case strings.TrimSpace(row.DateTime) == "":
		return true
	}
	return false
}

func (n *IBKRNormalizer) candidate(row *ibkrRow) models.Candidate {
	account := strings.TrimSpace(row.ClientAccountID)
	symbol := strings.TrimSpace(row.Symbol)
	rawDateTime := strings.TrimSpace(row.DateTime)
	rawPrice := strings.TrimSpace(row.TradePrice)
	rawQty := strings.TrimSpace(row.Quantity)

	c := models.Candidate{
		Source:             models.SourceIBKR,
		Ticker:             symbol,
		AssetType:          ibkrAssetType(row.AssetClass),
		Side:               models.ParseSide(row.BuySell),
		Direction:          ibkrDirection(row.OpenCloseIndicator, row.BuySell),
		Fees:               models.Float(0),
		OrderType:          strings.TrimSpace(row.OrderType),
		BrokerageAccountID: account,
		ExternalID:         strings.Join([]string{account, symbol, rawDateTime, rawPrice, rawQty}, "|"),
	}

	if t, err := time.ParseInLocation(ibkrDateTimeLayout, rawDateTime, n.loc); err == nil {
		c.Date = &t
	} else {
		c.ValidationWarnings = append(c.ValidationWarnings, fmt.Sprintf("Unparseable DateTime %q", rawDateTime))
	}

	if price, ok := parseNumber(rawPrice); ok {
		c.Price = models.Float(price)
	}
	if qty, ok := parseNumber(rawQty); ok {
		// The sign repeats Buy/Sell and must not be applied twice.
		c.Quantity = models.Float(math.Abs(qty))
	}
	if taxes, ok := parseNumber(row.Taxes); ok {
		c.Taxes = models.Float(taxes)
	} else {
		c.Taxes = models.Float(0)
	}

	return c
}

// ibkrDirection infers position direction from the open/close indicator and
// execution side. Inputs outside the matrix yield "".
func ibkrDirection(openClose, buySell string) models.Direction {
	oc := strings.ToUpper(strings.TrimSpace(openClose))
	side := models.ParseSide(buySell)
	switch {
	case oc == "O" && side == models.SideBuy:
		return models.DirectionLong
	case oc == "O" && side == models.SideSell:
		return models.DirectionShort
	case oc == "C" && side == models.SideSell:
		return models.DirectionLong
	case oc == "C" && side == models.SideBuy:
		return models.DirectionShort
	default:
		return ""
	}
}

func ibkrAssetType(assetClass string) models.AssetType {
	if strings.EqualFold(strings.TrimSpace(assetClass), "CRYPTO") {
		return models.AssetCrypto
	}
	return models.AssetStock
}
