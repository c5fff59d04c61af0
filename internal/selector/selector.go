// Package selector turns an unbounded list of scene candidates into a
// budgeted, temporally spaced set of frames.
//
// Naive top-K selection fails two ways: a single busy scene can monopolize
// the whole budget, and a flat low-motion video can yield almost nothing.
// The spacing rule handles the first; the undershoot relaxation handles the
// second.
package selector

import (
	"math"
	"sort"

	"github.com/framesift/framesift/internal/media"
)

// Params tunes the selection. The percentile factor and spacing are
// empirically chosen constants; treat them as knobs, not gospel.
type Params struct {
	// Budget caps the number of selected frames.
	Budget int
	// MinSpacing is the minimum distance in seconds between any two
	// selected timestamps.
	MinSpacing float64
	// Floor is the score below which a candidate is never considered
	// significant on its own. Matches the decode pass's threshold.
	Floor float64
	// PercentileFactor sets the oversupply cut: with far more candidates
	// than budget, keep roughly PercentileFactor×Budget as headroom for the
	// spacing filter.
	PercentileFactor float64
}

// DefaultParams returns the tuning used in production.
func DefaultParams() Params {
	return Params{
		Budget:           100,
		MinSpacing:       0.5,
		Floor:            0.0001,
		PercentileFactor: 1.5,
	}
}

// Select picks at most p.Budget candidates, spaced at least p.MinSpacing
// apart, returned in ascending timestamp order. Deterministic for a given
// input; score ties are broken by original order.
func Select(candidates []media.SceneCandidate, p Params) []media.SceneCandidate {
	if p.Budget <= 0 || len(candidates) == 0 {
		return nil
	}

	byScore := make([]media.SceneCandidate, len(candidates))
	copy(byScore, candidates)
	sort.SliceStable(byScore, func(i, j int) bool {
		return byScore[i].Score > byScore[j].Score
	})

	threshold := p.threshold(byScore)

	filtered := byScore[:0:0]
	for _, c := range byScore {
		if c.Score >= threshold {
			filtered = append(filtered, c)
		}
	}

	accepted := acceptSpaced(filtered, p.Budget, p.MinSpacing)

	// Undershoot correction: on flat or mis-scored videos the statistical
	// cut can starve selection. Below the usable minimum, drop the
	// threshold entirely and let the spacing rule alone decide.
	minKeep := p.Budget / 10
	if minKeep < 10 {
		minKeep = 10
	}
	if minKeep > p.Budget {
		minKeep = p.Budget
	}
	if len(accepted) < minKeep && len(candidates) > len(accepted) {
		accepted = acceptSpaced(byScore, p.Budget, p.MinSpacing)
	}

	sort.Slice(accepted, func(i, j int) bool {
		return accepted[i].Timestamp < accepted[j].Timestamp
	})
	return accepted
}

// threshold computes the score cut based on supply relative to budget.
func (p Params) threshold(byScore []media.SceneCandidate) float64 {
	n := len(byScore)
	switch {
	case n <= p.Budget:
		// Undersupply: accept everything above the floor.
		return p.Floor
	case n > 3*p.Budget:
		// Oversupply: percentile cut at rank floor(factor×budget).
		rank := int(math.Floor(p.PercentileFactor * float64(p.Budget)))
		if rank >= n {
			rank = n - 1
		}
		return byScore[rank].Score
	default:
		// Moderate supply: statistical cut.
		mean, stddev := scoreStats(byScore)
		cut := mean - 0.5*stddev
		if cut < p.Floor {
			cut = p.Floor
		}
		return cut
	}
}

// acceptSpaced greedily walks candidates in descending score order, taking
// each one whose timestamp is at least minSpacing away from everything
// already taken, until the budget is reached.
func acceptSpaced(byScore []media.SceneCandidate, budget int, minSpacing float64) []media.SceneCandidate {
	accepted := make([]media.SceneCandidate, 0, budget)
	for _, c := range byScore {
		if len(accepted) >= budget {
			break
		}
		ok := true
		for _, a := range accepted {
			if math.Abs(c.Timestamp-a.Timestamp) < minSpacing {
				ok = false
				break
			}
		}
		if ok {
			accepted = append(accepted, c)
		}
	}
	return accepted
}

func scoreStats(candidates []media.SceneCandidate) (mean, stddev float64) {
	var sum float64
	for _, c := range candidates {
		sum += c.Score
	}
	mean = sum / float64(len(candidates))

	var varsum float64
	for _, c := range candidates {
		d := c.Score - mean
		varsum += d * d
	}
	stddev = math.Sqrt(varsum / float64(len(candidates)))
	return mean, stddev
}
