// Package importers normalizes brokerage execution exports into trade
// candidates.
package importers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
	"trade-journal/internal/validation"
)

// Normalizer parses one brokerage export format.
type Normalizer interface {
	Source() models.Source
	Normalize(r io.Reader) ([]models.Candidate, error)
}

// Options configures the normalizers.
type Options struct {
	// Location is used for exports that carry local timestamps. Defaults to
	// time.Local.
	Location *time.Location
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

// GetNormalizer returns the normalizer for an import source.
func GetNormalizer(source models.Source, opts Options) (Normalizer, error) {
	switch source {
	case models.SourceIBKR:
		return NewIBKRNormalizer(opts), nil
	case models.SourceKraken:
		return NewKrakenNormalizer(), nil
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedSource, source)
	}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeRows reads a headered CSV export into out, a pointer to a slice of
// tagged row structs. Ragged rows are tolerated so trailing summary lines do
// not abort the whole file.
func decodeRows(source models.Source, r io.Reader, out interface{}) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return apperrors.NewParseError(string(source), 0, "", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	if err := gocsv.UnmarshalCSV(reader, out); err != nil {
		return apperrors.NewParseError(string(source), 0, "", err)
	}
	return nil
}

// finalize runs the shared validation pass. Parser findings already on the
// candidate are kept ahead of the field-level ones.
func finalize(c models.Candidate) models.Candidate {
	return validation.Validate(c, true).Apply(c)
}

func parseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
