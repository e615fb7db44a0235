package types

import (
	"fmt"
	"time"
)

// PriceField names one of the OHLC prices of a bar.
type PriceField string

const (
	PriceFieldOpen  PriceField = "open"
	PriceFieldHigh  PriceField = "high"
	PriceFieldLow   PriceField = "low"
	PriceFieldClose PriceField = "close"
)

// AllPriceFields lists the valid price fields, used for config enums.
var AllPriceFields = []any{
	PriceFieldOpen,
	PriceFieldHigh,
	PriceFieldLow,
	PriceFieldClose,
}

// Bar is a single price observation for one asset at one instant.
type Bar struct {
	Asset  Asset     `csv:"asset"`
	Time   time.Time `csv:"time"`
	Open   float64   `csv:"open"`
	High   float64   `csv:"high"`
	Low    float64   `csv:"low"`
	Close  float64   `csv:"close"`
	Volume float64   `csv:"volume"`
}

// Price returns the bar's price for the given field.
func (b Bar) Price(field PriceField) (float64, error) {
	switch field {
	case PriceFieldOpen:
		return b.Open, nil
	case PriceFieldHigh:
		return b.High, nil
	case PriceFieldLow:
		return b.Low, nil
	case PriceFieldClose:
		return b.Close, nil
	default:
		return 0, fmt.Errorf("unknown price field: %q", field)
	}
}

// ValidPriceField reports whether field names one of the OHLC prices.
func ValidPriceField(field PriceField) bool {
	switch field {
	case PriceFieldOpen, PriceFieldHigh, PriceFieldLow, PriceFieldClose:
		return true
	default:
		return false
	}
}

// Closes extracts the close prices of a window, oldest first.
func Closes(window []Bar) []float64 {
	closes := make([]float64, len(window))
	for i, bar := range window {
		closes[i] = bar.Close
	}

	return closes
}
