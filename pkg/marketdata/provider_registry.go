package marketdata

import (
	"sort"

	"github.com/rxtech-lab/argo-sim/pkg/errors"
)

// ProviderInfo describes a market data provider.
type ProviderInfo struct {
	Name         string `json:"name"`
	DisplayName  string `json:"displayName"`
	Description  string `json:"description"`
	AssetClass   string `json:"assetClass"`
	RequiresAuth bool   `json:"requiresAuth"`
}

var providerRegistry = map[ProviderType]ProviderInfo{
	ProviderPolygon: {
		Name:         string(ProviderPolygon),
		DisplayName:  "Polygon.io",
		Description:  "US stock aggregates",
		AssetClass:   "equity",
		RequiresAuth: true,
	},
	ProviderBinance: {
		Name:         string(ProviderBinance),
		DisplayName:  "Binance",
		Description:  "Spot klines of cryptocurrency pairs",
		AssetClass:   "crypto",
		RequiresAuth: false,
	},
}

// GetSupportedProviders returns the provider names in alphabetical order.
func GetSupportedProviders() []string {
	providers := make([]string, 0, len(providerRegistry))
	for providerType := range providerRegistry {
		providers = append(providers, string(providerType))
	}

	sort.Strings(providers)

	return providers
}

// GetProviderInfo returns the description of a provider.
func GetProviderInfo(providerName string) (ProviderInfo, error) {
	info, exists := providerRegistry[ProviderType(providerName)]
	if !exists {
		return ProviderInfo{}, errors.Newf(errors.ErrCodeUnsupportedProvider, "unsupported provider: %s", providerName)
	}

	return info, nil
}
