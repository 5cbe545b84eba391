package setup

import (
	"sort"

	"github.com/calebres/thesis/shared"
)

// patternPreferenceMargin is the score distance within which the regime's preferred
// pattern outranks a higher raw score.
const patternPreferenceMargin = float64(5)

// patternPreference returns the rank of the pattern for the provided regime, lower
// preferred. Trending regimes favor continuation, everything else favors mean
// reversion.
func patternPreference(regime shared.Regime, pattern shared.Pattern) int {
	trending := regime.Trending()

	switch pattern {
	case shared.Follow:
		if trending {
			return 0
		}
		return 2
	case shared.Reclaim:
		return 1
	case shared.Fade:
		if trending {
			return 2
		}
		return 0
	default:
		return 3
	}
}

// Rank orders candidates best first by raw score, breaking ties on id. The regime's
// pattern preference is applied only to the top slot: among candidates within the
// preference margin of the best score, the preferred pattern wins. Applying the
// preference pairwise inside the sort would not be a total order, since margin chains
// can cycle, so the ranking would depend on input order.
func Rank(regime shared.Regime, candidates []*shared.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score.Total != b.Score.Total {
			return a.Score.Total > b.Score.Total
		}

		return a.ID < b.ID
	})

	if len(candidates) < 2 {
		return
	}

	preferred := 0
	for idx := 1; idx < len(candidates); idx++ {
		if candidates[0].Score.Total-candidates[idx].Score.Total > patternPreferenceMargin {
			break
		}
		if patternPreference(regime, candidates[idx].Pattern) <
			patternPreference(regime, candidates[preferred].Pattern) {
			preferred = idx
		}
	}

	if preferred != 0 {
		top := candidates[preferred]
		copy(candidates[1:preferred+1], candidates[:preferred])
		candidates[0] = top
	}
}
