// Package resolver reduces the raw signals of one event to at most one signal per asset.
package resolver

import (
	"math"
	"strings"
	"time"

	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"github.com/shopspring/decimal"
)

// Policy names a resolution policy.
type Policy string

const (
	// PolicySum adds the ratings of an asset and drops the asset when the sum is zero and
	// no EXIT was raised
	PolicySum Policy = "sum"
	// PolicyAverage averages the ratings of an asset and drops the asset when the average is zero
	PolicyAverage Policy = "average"
	// PolicyFirst keeps the first signal of each asset
	PolicyFirst Policy = "first"
	// PolicyLast keeps the last signal of each asset
	PolicyLast Policy = "last"
)

// AllPolicies lists the valid policies, used for config enums.
var AllPolicies = []any{PolicySum, PolicyAverage, PolicyFirst, PolicyLast}

// ParsePolicy converts a configuration value into a Policy.
func ParsePolicy(name string) (Policy, error) {
	policy := Policy(strings.ToLower(strings.TrimSpace(name)))

	switch policy {
	case PolicySum, PolicyAverage, PolicyFirst, PolicyLast:
		return policy, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidPolicy, "unknown signal resolution policy %q (expected sum, average, first or last)", name)
	}
}

// Resolve applies policy to signals. It fails only when policy is not one of the
// known policies.
func Resolve(policy Policy, signals []types.Signal) ([]types.Signal, error) {
	switch policy {
	case PolicySum:
		return Sum(signals), nil
	case PolicyAverage:
		return Average(signals), nil
	case PolicyFirst:
		return First(signals), nil
	case PolicyLast:
		return Last(signals), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidPolicy, "unknown signal resolution policy %q", policy)
	}
}

// Sum combines the signals of each asset into one whose rating is the sum of the
// ratings. EXIT signals carry no rating. An asset whose sum is exactly zero is dropped,
// unless it has EXIT signals, which then resolve to a single EXIT.
func Sum(signals []types.Signal) []types.Signal {
	return combine(signals, false)
}

// Average combines the signals of each asset into one whose rating is the mean of the
// ratings of its non-EXIT signals. Zero means are handled as in Sum.
func Average(signals []types.Signal) []types.Signal {
	return combine(signals, true)
}

// First keeps the first signal of each asset.
func First(signals []types.Signal) []types.Signal {
	groups := group(signals)
	resolved := make([]types.Signal, 0, len(groups))

	for _, g := range groups {
		resolved = append(resolved, g[0])
	}

	return resolved
}

// Last keeps the last signal of each asset.
func Last(signals []types.Signal) []types.Signal {
	groups := group(signals)
	resolved := make([]types.Signal, 0, len(groups))

	for _, g := range groups {
		resolved = append(resolved, g[len(g)-1])
	}

	return resolved
}

// group splits signals by asset, in order of first appearance, keeping input order
// inside each group.
func group(signals []types.Signal) [][]types.Signal {
	index := make(map[types.Asset]int)
	groups := make([][]types.Signal, 0)

	for _, signal := range signals {
		i, ok := index[signal.Asset]
		if !ok {
			i = len(groups)
			index[signal.Asset] = i
			groups = append(groups, nil)
		}

		groups[i] = append(groups[i], signal)
	}

	return groups
}

func combine(signals []types.Signal, average bool) []types.Signal {
	groups := group(signals)
	resolved := make([]types.Signal, 0, len(groups))

	for _, g := range groups {
		rated, exits := splitExits(g)

		rating, neutral := combineRatings(rated, average)
		if neutral {
			// the ratings cancel out; explicit exits still close the position
			switch len(exits) {
			case 0:
			case 1:
				resolved = append(resolved, exits[0])
			default:
				resolved = append(resolved, merge(exits, types.RatingNeutral))
			}

			continue
		}

		if len(g) == 1 {
			resolved = append(resolved, g[0])

			continue
		}

		resolved = append(resolved, merge(g, rating))
	}

	return resolved
}

// splitExits separates the rating-bearing signals of a group from its EXIT signals.
func splitExits(g []types.Signal) ([]types.Signal, []types.Signal) {
	rated := make([]types.Signal, 0, len(g))
	exits := make([]types.Signal, 0)

	for _, signal := range g {
		if signal.Type == types.SignalTypeExit {
			exits = append(exits, signal)

			continue
		}

		rated = append(rated, signal)
	}

	return rated, exits
}

// combineRatings returns the combined rating and whether it is exactly neutral.
// Finite ratings are added as decimals so that e.g. 0.1 + 0.2 - 0.3 is neutral.
func combineRatings(g []types.Signal, average bool) (float64, bool) {
	for _, signal := range g {
		if math.IsNaN(signal.Rating) || math.IsInf(signal.Rating, 0) {
			return combineFloat(g, average), false
		}
	}

	sum := decimal.Zero
	for _, signal := range g {
		sum = sum.Add(decimal.NewFromFloat(signal.Rating))
	}

	if sum.IsZero() {
		return types.RatingNeutral, true
	}

	if average {
		sum = sum.Div(decimal.NewFromInt(int64(len(g))))
	}

	return sum.InexactFloat64(), false
}

func combineFloat(g []types.Signal, average bool) float64 {
	sum := 0.0
	for _, signal := range g {
		sum += signal.Rating
	}

	if average {
		return sum / float64(len(g))
	}

	return sum
}

// merge builds the combined signal of a group: latest time, shared type or BOTH when
// the contributors disagree, and the contributing strategy names joined with "+".
func merge(g []types.Signal, rating float64) types.Signal {
	merged := types.Signal{
		Asset:  g[0].Asset,
		Rating: rating,
		Type:   g[0].Type,
	}

	var latest time.Time

	strategies := make([]string, 0, len(g))
	reasons := make([]string, 0, len(g))
	seen := make(map[string]bool, len(g))

	for _, signal := range g {
		if signal.Time.After(latest) {
			latest = signal.Time
		}

		if signal.Type != merged.Type {
			merged.Type = types.SignalTypeBoth
		}

		if signal.Strategy != "" && !seen[signal.Strategy] {
			seen[signal.Strategy] = true
			strategies = append(strategies, signal.Strategy)
		}

		if signal.Reason != "" {
			reasons = append(reasons, signal.Reason)
		}
	}

	merged.Time = latest
	merged.Strategy = strings.Join(strategies, "+")
	merged.Reason = strings.Join(reasons, "; ")

	return merged
}
