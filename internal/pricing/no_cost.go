package pricing

import (
	"time"

	"github.com/rxtech-lab/argo-sim/internal/types"
)

// NoCost fills every trade at the reference price.
type NoCost struct {
	field types.PriceField
}

// NewNoCost creates a frictionless engine on field. An empty field means close.
func NewNoCost(field types.PriceField) (*NoCost, error) {
	resolved, err := resolvePriceField(field)
	if err != nil {
		return nil, err
	}

	return &NoCost{field: resolved}, nil
}

// GetPricing implements Engine.
func (n *NoCost) GetPricing(bar types.Bar, asOf time.Time) (Pricing, error) {
	ref, err := referencePrice(bar, n.field)
	if err != nil {
		return nil, err
	}

	return noCostPricing{ref: ref}, nil
}

type noCostPricing struct {
	ref float64
}

func (p noCostPricing) MarketPrice(size float64) (float64, error) {
	if err := checkSize(size); err != nil {
		return 0, err
	}

	return p.ref, nil
}

func (p noCostPricing) Reference() float64 {
	return p.ref
}
