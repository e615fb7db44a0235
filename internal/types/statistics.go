package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// StrategyInfo contains metadata about a strategy that took part in a run.
type StrategyInfo struct {
	// Name is the registry name of the strategy (e.g., "breakout")
	Name string `yaml:"name" json:"name"`
	// InitialCapacity is the window length the strategy started with
	InitialCapacity int `yaml:"initial_capacity" json:"initial_capacity"`
	// Invocations is how many times the strategy was evaluated
	Invocations int `yaml:"invocations" json:"invocations"`
}

// SignalCounts breaks down the signals of a run.
type SignalCounts struct {
	// Raw is the number of signals produced by all strategies before resolution
	Raw int `yaml:"raw" json:"raw"`
	// Resolved is the number of signals left after the resolver policy
	Resolved int `yaml:"resolved" json:"resolved"`
	// Buy is the number of resolved signals with a positive rating
	Buy int `yaml:"buy" json:"buy"`
	// Sell is the number of resolved signals with a negative rating
	Sell int `yaml:"sell" json:"sell"`
}

type RunStats struct {
	// ID is the unique identifier for this run.
	ID string `yaml:"id" json:"id"`
	// Timestamp is when this run was executed.
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	// Events is the number of events processed.
	Events int `yaml:"events" json:"events"`
	// Signals counts raw and resolved signals.
	Signals SignalCounts `yaml:"signals" json:"signals"`
	// Fills is the number of instructions executed by the broker.
	Fills int `yaml:"fills" json:"fills"`
	// TotalFees is the sum of all commission fees.
	TotalFees float64 `yaml:"total_fees" json:"total_fees"`
	// InitialCash is the cash the account started with.
	InitialCash float64 `yaml:"initial_cash" json:"initial_cash"`
	// FinalCash is the cash left at the end of the run.
	FinalCash float64 `yaml:"final_cash" json:"final_cash"`
	// FinalEquity is cash plus marked positions at the end of the run.
	FinalEquity float64 `yaml:"final_equity" json:"final_equity"`
	// FinalBuyingPower is the buying power after the last event.
	FinalBuyingPower float64 `yaml:"final_buying_power" json:"final_buying_power"`
	// Strategies describes the strategies of the run.
	Strategies []StrategyInfo `yaml:"strategies" json:"strategies"`
}

// WriteRunStats writes run statistics to a YAML file.
func WriteRunStats(path string, stats RunStats) error {
	data, err := yaml.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal run stats to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run stats to file: %w", err)
	}

	return nil
}

// ReadRunStats reads run statistics from a YAML file.
func ReadRunStats(path string) (RunStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunStats{}, fmt.Errorf("failed to read run stats file: %w", err)
	}

	var stats RunStats
	if err := yaml.Unmarshal(data, &stats); err != nil {
		return RunStats{}, fmt.Errorf("failed to unmarshal run stats: %w", err)
	}

	return stats, nil
}
