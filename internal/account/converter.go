package account

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"github.com/shopspring/decimal"
)

// IdentityConverter only converts a currency into itself.
type IdentityConverter struct{}

// Convert implements CurrencyConverter.
func (IdentityConverter) Convert(ctx context.Context, amount float64, from types.Currency, to types.Currency, asOf time.Time) (float64, error) {
	if from != to {
		return 0, errors.Newf(errors.ErrCodeConversionUnavailable, "no conversion from %s to %s", from, to)
	}

	return amount, nil
}

// Pair is an ordered currency pair. A rate for EUR/USD converts EUR amounts into USD.
type Pair struct {
	From types.Currency
	To   types.Currency
}

func (p Pair) String() string {
	return fmt.Sprintf("%s/%s", p.From, p.To)
}

// ParsePair parses "EUR/USD".
func ParsePair(text string) (Pair, error) {
	from, to, ok := strings.Cut(text, "/")
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))

	if !ok || from == "" || to == "" {
		return Pair{}, errors.Newf(errors.ErrCodeInvalidConfiguration, "invalid currency pair %q (expected FROM/TO)", text)
	}

	return Pair{From: types.Currency(from), To: types.Currency(to)}, nil
}

// RateTable converts with static rates. A pair is also usable in the inverse direction.
// Rates do not vary with time.
type RateTable struct {
	rates map[Pair]decimal.Decimal
}

// NewRateTable creates a rate table from "FROM/TO" keyed rates.
func NewRateTable(rates map[string]float64) (*RateTable, error) {
	table := &RateTable{rates: make(map[Pair]decimal.Decimal, len(rates))}

	for key, rate := range rates {
		pair, err := ParsePair(key)
		if err != nil {
			return nil, err
		}

		if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "rate for %s must be a positive number, got %v", pair, rate)
		}

		table.rates[pair] = decimal.NewFromFloat(rate)
	}

	return table, nil
}

// Convert implements CurrencyConverter.
func (t *RateTable) Convert(ctx context.Context, amount float64, from types.Currency, to types.Currency, asOf time.Time) (float64, error) {
	if from == to {
		return amount, nil
	}

	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "cannot convert non-finite amount %v", amount)
	}

	if rate, ok := t.rates[Pair{From: from, To: to}]; ok {
		return decimal.NewFromFloat(amount).Mul(rate).InexactFloat64(), nil
	}

	if rate, ok := t.rates[Pair{From: to, To: from}]; ok {
		return decimal.NewFromFloat(amount).DivRound(rate, 16).InexactFloat64(), nil
	}

	return 0, errors.Newf(errors.ErrCodeConversionUnavailable, "no rate for %s/%s as of %s", from, to, asOf.Format(time.RFC3339))
}
