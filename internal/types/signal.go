package types

import "time"

type SignalType string

const (
	// SignalTypeEntry opens or adds to a position in the direction of the rating
	SignalTypeEntry SignalType = "ENTRY"
	// SignalTypeExit closes an existing position
	SignalTypeExit SignalType = "EXIT"
	// SignalTypeBoth may either open or close depending on the current position
	SignalTypeBoth SignalType = "BOTH"
)

const (
	// RatingBuy is the rating of a discrete BUY marker
	RatingBuy = 1.0
	// RatingSell is the rating of a discrete SELL marker
	RatingSell = -1.0
	// RatingNeutral is the rating treated as "no actionable signal" by the resolver
	RatingNeutral = 0.0
)

type Signal struct {
	// Asset is the asset the signal is about
	Asset Asset
	// Time is the time of the event that produced the signal
	Time time.Time
	// Rating is the strength of the signal, typically in [-1, 1]
	Rating float64
	// Type is the type of the signal
	Type SignalType
	// Strategy is the name of the strategy that produced the signal
	Strategy string
	// Reason is a human readable explanation
	Reason string
}

// NewBuySignal creates a discrete BUY entry signal.
func NewBuySignal(asset Asset, t time.Time, strategy string, reason string) Signal {
	return Signal{Asset: asset, Time: t, Rating: RatingBuy, Type: SignalTypeEntry, Strategy: strategy, Reason: reason}
}

// NewSellSignal creates a discrete SELL entry signal.
func NewSellSignal(asset Asset, t time.Time, strategy string, reason string) Signal {
	return Signal{Asset: asset, Time: t, Rating: RatingSell, Type: SignalTypeEntry, Strategy: strategy, Reason: reason}
}

// NewExitSignal creates an EXIT signal. Exit signals carry a neutral rating.
func NewExitSignal(asset Asset, t time.Time, strategy string, reason string) Signal {
	return Signal{Asset: asset, Time: t, Rating: RatingNeutral, Type: SignalTypeExit, Strategy: strategy, Reason: reason}
}

// IsBuy reports whether the signal leans long.
func (s Signal) IsBuy() bool {
	return s.Rating > 0
}

// IsSell reports whether the signal leans short.
func (s Signal) IsSell() bool {
	return s.Rating < 0
}
