package analysis

import (
	"sort"

	"github.com/ZanzyTHEbar/dialin/internal/types"
)

// Matches reports whether a shot passes the filter. From and To are inclusive.
func (f Filter) Matches(s types.Shot) bool {
	if f.BeanID != "" && s.BeanID != f.BeanID {
		return false
	}
	if !f.From.IsZero() && s.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && s.Timestamp.After(f.To) {
		return false
	}
	return true
}

// PrepareShots returns a new time-ordered slice holding the shots that match the
// filter. Shots without a positive weight in are dropped since their ratio is
// undefined, and repeated IDs are kept once.
func PrepareShots(shots []types.Shot, f Filter) []types.Shot {
	out := make([]types.Shot, 0, len(shots))
	seen := make(map[string]bool, len(shots))

	for _, s := range shots {
		if s.CoffeeWeightIn <= 0 || !f.Matches(s) {
			continue
		}
		if s.ID != "" {
			if seen[s.ID] {
				continue
			}
			seen[s.ID] = true
		}
		out = append(out, s)
	}

	sortByTimestamp(out)
	return out
}

func sortByTimestamp(shots []types.Shot) {
	sort.SliceStable(shots, func(i, j int) bool {
		return shots[i].Timestamp.Before(shots[j].Timestamp)
	})
}
