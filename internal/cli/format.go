package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FormatMoney formats an amount with a dollar sign, thousands separators and
// two decimals.
func FormatMoney(amount float64) string {
	amount = math.Round(amount*100) / 100
	if amount == 0 {
		// Rounding a small loss yields -0, which %.2f prints as "-0.00".
		amount = 0
	}
	negative := amount < 0
	if negative {
		amount = -amount
	}

	str := fmt.Sprintf("%.2f", amount)
	parts := strings.Split(str, ".")

	result := "$" + groupThousands(parts[0]) + "." + parts[1]
	if negative {
		result = "-" + result
	}
	return result
}

// groupThousands inserts a comma every three digits from the right.
func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	var b strings.Builder
	lead := n % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatPnL formats P&L with sign.
func FormatPnL(pnl float64) string {
	formatted := FormatMoney(pnl)
	if math.Round(pnl*100) > 0 {
		return "+" + formatted
	}
	return formatted
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatQuantity formats a quantity without trailing zeros. Crypto sizes
// keep up to eight decimals.
func FormatQuantity(qty float64) string {
	return strconv.FormatFloat(math.Round(qty*1e8)/1e8, 'f', -1, 64)
}

// FormatPrice formats a price with appropriate decimal places.
func FormatPrice(price float64) string {
	if math.Abs(price) >= 1 {
		return fmt.Sprintf("%.2f", price)
	}
	return fmt.Sprintf("%.6f", price)
}

// FormatOptionalMoney formats a nullable amount, rendering nil as a dash.
func FormatOptionalMoney(amount *float64) string {
	if amount == nil {
		return "-"
	}
	return FormatMoney(*amount)
}

// FormatDate formats a time using layout, rendering the zero time as a dash.
func FormatDate(t time.Time, layout string) string {
	if t.IsZero() {
		return "-"
	}
	if layout == "" {
		layout = "2006-01-02 15:04"
	}
	return t.Local().Format(layout)
}

// ParseDate accepts a date, a date and minute, or an RFC 3339 timestamp.
// Dates without a zone are read in local time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q (use YYYY-MM-DD or YYYY-MM-DD HH:MM)", s)
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// ShortID returns the first eight characters of an id for table display.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
