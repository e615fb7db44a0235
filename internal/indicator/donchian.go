package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-sim/internal/types"
)

// Channel is the highest high and lowest low of a lookback period.
type Channel struct {
	High float64
	Low  float64
}

// Mid returns the centre of the channel.
func (c Channel) Mid() float64 {
	return (c.High + c.Low) / 2
}

// Donchian returns the channel of the last period bars.
func Donchian(window []types.Bar, period int) (Channel, error) {
	if err := checkPeriod("Donchian channel", period); err != nil {
		return Channel{}, err
	}

	if err := checkHistory("Donchian channel", period, len(window)); err != nil {
		return Channel{}, err
	}

	channel := Channel{High: math.Inf(-1), Low: math.Inf(1)}
	for _, bar := range tail(window, period) {
		channel.High = math.Max(channel.High, bar.High)
		channel.Low = math.Min(channel.Low, bar.Low)
	}

	return channel, nil
}
