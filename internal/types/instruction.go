package types

import "time"

// Instruction is a fill produced by the simulated broker for one final signal.
type Instruction struct {
	// ID uniquely identifies the instruction within a run
	ID string `yaml:"id" json:"id" csv:"id"`
	// Asset is the traded asset
	Asset Asset `yaml:"asset" json:"asset" csv:"asset"`
	// Quantity is signed: positive buys, negative sells
	Quantity float64 `yaml:"quantity" json:"quantity" csv:"quantity"`
	// Price is the execution price quoted by the pricing engine
	Price float64 `yaml:"price" json:"price" csv:"price"`
	// Fee is the commission charged for the fill
	Fee float64 `yaml:"fee" json:"fee" csv:"fee"`
	// Time is the event time of the fill
	Time time.Time `yaml:"time" json:"time" csv:"time"`
	// Strategy is the strategy, or strategies joined with "+", behind the signal
	Strategy string `yaml:"strategy" json:"strategy" csv:"strategy"`
	// Reason explains which signal produced the fill
	Reason string `yaml:"reason" json:"reason" csv:"reason"`
}

// Notional is the absolute traded value excluding fees.
func (i Instruction) Notional() float64 {
	if i.Quantity < 0 {
		return -i.Quantity * i.Price
	}

	return i.Quantity * i.Price
}
