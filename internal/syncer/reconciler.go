package syncer

import "fmt"

// Pair couples a source event with the target copy it should replace.
type Pair struct {
	Source Event
	Target Event
}

// Plan is the set of operations needed to converge the target calendar
// with the source. The three sets are disjoint by construction.
type Plan struct {
	Create []Event
	Update []Pair
	Delete []Event
}

// Empty reports whether the plan contains no operations.
func (p Plan) Empty() bool {
	return len(p.Create) == 0 && len(p.Update) == 0 && len(p.Delete) == 0
}

// Reconcile computes the plan that converges target with source. Both
// inputs must already be bounded to the same window, and target must
// contain only tool-managed events. Reconcile performs no I/O and does not
// mutate its inputs.
//
// Matching is by correlation key: source events without a target match are
// created, matched pairs differing in any compared field are updated, and
// target events whose key no longer appears in source are deleted. A
// duplicate key within source is a DataError; with one-way authoritative
// sync there is no safe way to pick a winner.
func Reconcile(source, target []Event, fields FieldSet) (Plan, error) {
	if fields == nil {
		fields = DefaultFields()
	}

	byKey := make(map[string]Event, len(source))
	for _, ev := range source {
		if ev.Key == "" {
			return Plan{}, &DataError{Detail: fmt.Sprintf("source event %q has no correlation key", ev.Title)}
		}
		if _, dup := byKey[ev.Key]; dup {
			return Plan{}, &DataError{Detail: fmt.Sprintf("duplicate correlation key %q in source calendar", ev.Key)}
		}
		byKey[ev.Key] = ev
	}

	var plan Plan
	seen := make(map[string]bool, len(target))
	for _, tgt := range target {
		if seen[tgt.Key] {
			// A retried create that landed twice leaves a duplicate
			// managed copy behind; drop the extra one.
			plan.Delete = append(plan.Delete, tgt)
			continue
		}
		seen[tgt.Key] = true
		src, ok := byKey[tgt.Key]
		if !ok {
			plan.Delete = append(plan.Delete, tgt)
			continue
		}
		if diffs(src, tgt, fields) {
			plan.Update = append(plan.Update, Pair{Source: src, Target: tgt})
		}
	}
	for _, ev := range source {
		if !seen[ev.Key] {
			plan.Create = append(plan.Create, ev)
		}
	}
	return plan, nil
}
