// Package account computes the buying power of a simulated account.
package account

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-sim/internal/types"
)

// Model recomputes the derived fields of an account after its cash or positions changed.
type Model interface {
	// UpdateAccount writes account.BuyingPower. On error the account is left untouched.
	UpdateAccount(ctx context.Context, account *types.Account) error
}

// CurrencyConverter converts an amount between currencies at a point in time.
type CurrencyConverter interface {
	Convert(ctx context.Context, amount float64, from types.Currency, to types.Currency, asOf time.Time) (float64, error)
}
