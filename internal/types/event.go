package types

import (
	"sort"
	"time"
)

// Event is one tick of the market clock: every bar observed at Time, at most one per asset.
type Event struct {
	Time time.Time
	Bars map[Asset]Bar
}

// NewEvent builds an event from bars. Later bars for the same asset replace earlier ones.
func NewEvent(t time.Time, bars ...Bar) Event {
	event := Event{
		Time: t,
		Bars: make(map[Asset]Bar, len(bars)),
	}

	for _, bar := range bars {
		event.Bars[bar.Asset] = bar
	}

	return event
}

// Assets returns the assets of the event ordered by symbol, then class.
func (e Event) Assets() []Asset {
	assets := make([]Asset, 0, len(e.Bars))
	for asset := range e.Bars {
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
