package health

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// Reconciler groups records of the same real-world workout and picks the one to keep.
//
// Records are sorted by start time and a record joins the group of its predecessor when it starts at most Tolerance
// later. Records in different groups therefore always start more than Tolerance apart.
type Reconciler struct {
	Tolerance time.Duration
	// Priority lists source names from most to least trusted. Unlisted sources rank after all listed ones.
	Priority []string
}

// NewReconciler creates a reconciler from the sources configuration.
func NewReconciler(sources Sources) Reconciler {
	return Reconciler{
		Tolerance: sources.Tolerance,
		Priority:  sources.Priority,
	}
}

// Group is a set of records describing the same workout.
type Group struct {
	Best       ExternalWorkout   `json:"best"`
	Duplicates []ExternalWorkout `json:"duplicates"`
}

// Reconcile groups records and selects the best of each group by source priority, then by the number of
// measurements, then by the earliest start and finally by ID. Groups are ordered by start time.
func (r Reconciler) Reconcile(records []ExternalWorkout) []Group {
	groups := []Group{}
	if len(records) == 0 {
		return groups
	}

	sorted := slices.Clone(records)
	slices.SortFunc(sorted, func(a, b ExternalWorkout) int {
		return cmp.Or(a.StartedAt.Compare(b.StartedAt), strings.Compare(a.ID, b.ID))
	})
	tolerance := max(r.Tolerance, 0)

	members := []ExternalWorkout{sorted[0]}
	for _, record := range sorted[1:] {
		if record.StartedAt.Sub(members[len(members)-1].StartedAt) > tolerance {
			groups = append(groups, r.group(members))
			members = nil
		}
		members = append(members, record)
	}
	return append(groups, r.group(members))
}

func (r Reconciler) group(members []ExternalWorkout) Group {
	bestIdx := 0
	for i := 1; i < len(members); i++ {
		if r.compare(members[i], members[bestIdx]) < 0 {
			bestIdx = i
		}
	}
	duplicates := make([]ExternalWorkout, 0, len(members)-1)
	duplicates = append(duplicates, members[:bestIdx]...)
	duplicates = append(duplicates, members[bestIdx+1:]...)
	return Group{Best: members[bestIdx], Duplicates: duplicates}
}

// compare orders a before b when a is the better record.
func (r Reconciler) compare(a, b ExternalWorkout) int {
	return cmp.Or(
		cmp.Compare(r.rank(a.SourceName), r.rank(b.SourceName)),
		cmp.Compare(b.richness(), a.richness()),
		a.StartedAt.Compare(b.StartedAt),
		strings.Compare(a.ID, b.ID),
	)
}

// rank is the position of source in the priority list, compared case-insensitively.
func (r Reconciler) rank(source string) int {
	if i := slices.IndexFunc(r.Priority, func(p string) bool { return strings.EqualFold(p, source) }); i >= 0 {
		return i
	}
	return len(r.Priority)
}
