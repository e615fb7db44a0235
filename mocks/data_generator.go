package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-sim/internal/types"
)

// DataGenerator produces synthetic bars for tests and benchmarks.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a generator with a fixed seed so runs are reproducible.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how bars are generated.
type GeneratorConfig struct {
	// Asset is the asset every bar belongs to
	Asset types.Asset
	// StartTime is the time of the first bar
	StartTime time.Time
	// Interval is the duration between bars
	Interval time.Duration
	// Count is the number of bars to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility is the per-bar standard deviation of returns (0.01 = 1%)
	Volatility float64
	// Trend is the total drift spread across the series
	Trend float64
	// VolumeBase is the average volume per bar
	VolumeBase float64
	// VolumeVariance is the relative variance of the volume (0.0 to 1.0)
	VolumeVariance float64
}

// DefaultConfig returns a one-minute equity series starting at 100.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Asset:          types.Equity("TEST"),
		StartTime:      time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
		Interval:       time.Minute,
		Count:          1000,
		InitialPrice:   100.0,
		Volatility:     0.002,
		Trend:          0.0,
		VolumeBase:     10000,
		VolumeVariance: 0.3,
	}
}

// Generate creates Count bars following a geometric Brownian motion.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.Bar {
	bars := make([]types.Bar, config.Count)
	currentPrice := config.InitialPrice
	currentTime := config.StartTime

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Box-Muller
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		drift := config.Trend / float64(config.Count)

		close := open * (1 + config.Volatility*z + drift)
		if close <= 0 {
			close = open * 0.99
		}

		high := math.Max(open, close) + math.Abs(g.rng.Float64()*config.Volatility*open*0.5)

		low := math.Min(open, close) - math.Abs(g.rng.Float64()*config.Volatility*open*0.5)
		if low <= 0 {
			low = math.Min(open, close) * 0.99
		}

		volume := config.VolumeBase * (1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance)
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		bars[i] = types.Bar{
			Asset:  config.Asset,
			Time:   currentTime,
			Open:   roundToDecimals(open, 4),
			High:   roundToDecimals(high, 4),
			Low:    roundToDecimals(low, 4),
			Close:  roundToDecimals(close, 4),
			Volume: roundToDecimals(volume, 2),
		}

		currentPrice = close
		currentTime = currentTime.Add(config.Interval)
	}

	return bars
}

// GenerateEvents generates one series per asset on a shared clock and groups the bars
// into events.
func (g *DataGenerator) GenerateEvents(assets []types.Asset, baseConfig GeneratorConfig) []types.Event {
	series := make([][]types.Bar, len(assets))

	for i, asset := range assets {
		config := baseConfig
		config.Asset = asset
		config.InitialPrice = baseConfig.InitialPrice * (0.8 + g.rng.Float64()*0.4)
		config.Volatility = baseConfig.Volatility * (0.8 + g.rng.Float64()*0.4)
		series[i] = g.Generate(config)
	}

	events := make([]types.Event, baseConfig.Count)
	for i := range events {
		bars := make([]types.Bar, len(assets))
		for j := range assets {
			bars[j] = series[j][i]
		}

		events[i] = types.NewEvent(series[0][i].Time, bars...)
	}

	return events
}

// Bars builds bars from close prices one minute apart, with high = close+1 and
// low = close-1.
func Bars(asset types.Asset, closes ...float64) []types.Bar {
	start := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	bars := make([]types.Bar, len(closes))

	for i, c := range closes {
		bars[i] = types.Bar{
			Asset:  asset,
			Time:   start.Add(time.Duration(i) * time.Minute),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}

	return bars
}

func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
