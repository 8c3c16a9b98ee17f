package sim

import (
	"fmt"
	"slices"
)

// PriorityOrder decides which end of the numeric priority range wins when several
// rules match the same video.
type PriorityOrder string

const (
	// PriorityAscending evaluates the lowest numeric priority first (default).
	PriorityAscending PriorityOrder = "ascending"
	// PriorityDescending evaluates the highest numeric priority first.
	PriorityDescending PriorityOrder = "descending"
)

// validPriorityOrders maps accepted priority order strings.
var validPriorityOrders = map[PriorityOrder]bool{
	PriorityAscending:  true,
	PriorityDescending: true,
	"":                 true, // empty defaults to ascending
}

// IsValidPriorityOrder returns true if the given string is a recognized priority order.
func IsValidPriorityOrder(order string) bool {
	return validPriorityOrders[PriorityOrder(order)]
}

// before reports whether priority a is evaluated before priority b.
func (o PriorityOrder) before(a, b int64) bool {
	if o == PriorityDescending {
		return a > b
	}
	return a < b
}

// SortRules orders rules in evaluation order. Equal priorities keep their list order.
func SortRules(rules []EnqueueRule, order PriorityOrder) {
	slices.SortStableFunc(rules, func(a, b EnqueueRule) int {
		switch {
		case order.before(a.Priority, b.Priority):
			return -1
		case order.before(b.Priority, a.Priority):
			return 1
		default:
			return 0
		}
	})
}

// MatchRule returns the first rule, in evaluation order, whose required features are
// a subset of features. The second result is false when nothing matches; callers skip
// the video in that case.
//
// rules need not be pre-sorted. Among rules with equal priority the earlier one in the
// slice wins, which is the same answer SortRules followed by a linear scan would give.
func MatchRule(features Features, rules []EnqueueRule, order PriorityOrder) (EnqueueRule, bool) {
	best := -1
	for i := range rules {
		if best >= 0 && !order.before(rules[i].Priority, rules[best].Priority) {
			continue
		}
		if rules[i].MatchesSubset(features) {
			best = i
		}
	}
	if best < 0 {
		return EnqueueRule{}, false
	}
	return rules[best], true
}

// RemoveRuleByFeatures returns rules without the first rule whose feature set equals
// features exactly. The input slice is never modified. removed is false, and the
// returned slice holds the same rules, when no rule matches.
func RemoveRuleByFeatures(features Features, rules []EnqueueRule) (remaining []EnqueueRule, removed bool) {
	idx := slices.IndexFunc(rules, func(r EnqueueRule) bool {
		return r.MatchesExact(features)
	})
	if idx < 0 {
		return rules, false
	}
	remaining = make([]EnqueueRule, 0, len(rules)-1)
	remaining = append(remaining, rules[:idx]...)
	remaining = append(remaining, rules[idx+1:]...)
	return remaining, true
}

// newProposedRule builds the rule an "Add" change introduces. Proposed rules have no
// stored identifier, so they get a synthetic one derived from their position in the request.
func newProposedRule(change EnqueueRuleChange, idx int) EnqueueRule {
	return EnqueueRule{
		ID:       fmt.Sprintf("proposed_%d", idx),
		QueueID:  change.QueueID,
		Priority: change.Priority,
		Features: change.Features.Clone(),
	}
}
