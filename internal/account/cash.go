package account

import (
	"context"
	"math"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"github.com/shopspring/decimal"
)

// CashConfig configures a Cash model.
type CashConfig struct {
	// Minimum is the reserve kept out of buying power, in the base currency
	Minimum float64 `validate:"gte=0"`
}

// Cash is the account model of a cash (non-margin) account:
//
//	buyingPower = convert(cash) - convert(short exposure) - minimum
//
// Short positions are allowed but tie up 100% of their marked exposure. Open orders are
// not taken into account.
type Cash struct {
	converter CurrencyConverter
	minimum   decimal.Decimal
}

var validate = validator.New()

// NewCash creates a cash account model.
func NewCash(converter CurrencyConverter, config CashConfig) (*Cash, error) {
	if converter == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "cash account model requires a currency converter")
	}

	if math.IsNaN(config.Minimum) || math.IsInf(config.Minimum, 0) {
		return nil, errors.Newf(errors.ErrCodeInvalidMinimum, "minimum must be a finite amount, got %v", config.Minimum)
	}

	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidMinimum, err, "minimum must be >= 0, got %v", config.Minimum)
	}

	return &Cash{
		converter: converter,
		minimum:   decimal.NewFromFloat(config.Minimum),
	}, nil
}

// UpdateAccount implements Model.
func (c *Cash) UpdateAccount(ctx context.Context, account *types.Account) error {
	cash, err := c.toBase(ctx, account, account.Cash, account.CashIn())
	if err != nil {
		return err
	}

	shortExposure := decimal.Zero

	for _, asset := range sortedAssets(account.Positions) {
		position := account.Positions[asset]
		if position == nil || !position.Short {
			continue
		}

		currency := position.Currency
		if currency == "" {
			currency = account.BaseCurrency
		}

		exposure, err := c.toBase(ctx, account, position.Exposure(), currency)
		if err != nil {
			return err
		}

		shortExposure = shortExposure.Add(exposure)
	}

	account.BuyingPower = cash.Sub(shortExposure).Sub(c.minimum).InexactFloat64()

	return nil
}

func (c *Cash) toBase(ctx context.Context, account *types.Account, amount float64, from types.Currency) (decimal.Decimal, error) {
	if from != account.BaseCurrency {
		converted, err := c.converter.Convert(ctx, amount, from, account.BaseCurrency, account.LastUpdate)
		if err != nil {
			return decimal.Zero, err
		}

		amount = converted
	}

	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return decimal.Zero, errors.Newf(errors.ErrCodeInvalidParameter, "cannot compute buying power from non-finite amount %v", amount)
	}

	return decimal.NewFromFloat(amount), nil
}

func sortedAssets(positions map[types.Asset]*types.Position) []types.Asset {
	assets := make([]types.Asset, 0, len(positions))
	for asset := range positions {
		assets = append(assets, asset)
	}

	sort.Slice(assets, func(i, j int) bool {
		if assets[i].Symbol != assets[j].Symbol {
			return assets[i].Symbol < assets[j].Symbol
		}

		return assets[i].Class < assets[j].Class
	})

	return assets
}
