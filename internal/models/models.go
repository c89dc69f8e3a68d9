// Package models provides domain models for the trade journal.
package models

import (
	"strings"
)

// AssetType represents the class of instrument a trade is in.
type AssetType string

const (
	AssetStock  AssetType = "stock"
	AssetCrypto AssetType = "crypto"
)

// Valid reports whether a is a known asset type.
func (a AssetType) Valid() bool {
	return a == AssetStock || a == AssetCrypto
}

// Side represents the side of an execution.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether s is a known side.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// ParseSide maps a broker side string onto a Side. Unknown input yields "".
func ParseSide(s string) Side {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return SideBuy
	case "sell":
		return SideSell
	default:
		return ""
	}
}

// Direction represents whether a position is long or short.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionLong || d == DirectionShort
}

// Opens reports whether a trade on side s opens (rather than closes) a
// position in direction d.
func (d Direction) Opens(s Side) bool {
	switch d {
	case DirectionShort:
		return s == SideSell
	default:
		return s == SideBuy
	}
}

// Source identifies the brokerage an import came from.
type Source string

const (
	SourceManual Source = "manual"
	SourceIBKR   Source = "ibkr"
	SourceKraken Source = "kraken"
)

// Valid reports whether s is a known import source.
func (s Source) Valid() bool {
	return s == SourceIBKR || s == SourceKraken
}

// ParseSource maps user input onto a Source. Unknown input yields "".
func ParseSource(s string) Source {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case SourceIBKR:
		return SourceIBKR
	case SourceKraken:
		return SourceKraken
	case SourceManual:
		return SourceManual
	default:
		return ""
	}
}

// AccountMapping pairs a brokerage account with a display name.
type AccountMapping struct {
	OwnerID     string
	Source      Source
	AccountID   string
	DisplayName string
}
