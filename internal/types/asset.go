package types

import "fmt"

// AssetClass is the broad instrument family of an asset.
type AssetClass string

const (
	AssetClassEquity AssetClass = "equity"
	AssetClassCrypto AssetClass = "crypto"
	AssetClassForex  AssetClass = "forex"
	AssetClassFuture AssetClass = "future"
)

// Currency is an ISO-4217 style currency code such as "USD".
type Currency string

// Asset identifies a tradable instrument. It is a comparable value and is used as a map key
// throughout the simulation core; two assets are equal when symbol and class are equal.
type Asset struct {
	Symbol string     `yaml:"symbol" json:"symbol" csv:"symbol"`
	Class  AssetClass `yaml:"class" json:"class" csv:"class"`
}

// NewAsset creates an asset of the given class.
func NewAsset(symbol string, class AssetClass) Asset {
	return Asset{Symbol: symbol, Class: class}
}

// Equity is a shorthand for an equity asset.
func Equity(symbol string) Asset {
	return NewAsset(symbol, AssetClassEquity)
}

// Crypto is a shorthand for a crypto asset.
func Crypto(symbol string) Asset {
	return NewAsset(symbol, AssetClassCrypto)
}

func (a Asset) String() string {
	if a.Class == "" {
		return a.Symbol
	}

	return fmt.Sprintf("%s:%s", a.Class, a.Symbol)
}
