package sim

import (
	"fmt"
	"slices"
)

// Features is an ordered list of classification features attached to a video or rule.
type Features []string

// Contains reports whether feature is present.
func (f Features) Contains(feature string) bool {
	return slices.Contains(f, feature)
}

// set returns the distinct features as a lookup map.
func (f Features) set() map[string]struct{} {
	m := make(map[string]struct{}, len(f))
	for _, feature := range f {
		m[feature] = struct{}{}
	}
	return m
}

// Clone returns an independent copy. A nil receiver yields nil.
func (f Features) Clone() Features {
	if f == nil {
		return nil
	}
	return slices.Clone(f)
}

// Video is a content item flowing through review.
// LifecycleID is empty in the baseline and is assigned once, when the simulator
// first matches the video to a queue.
type Video struct {
	ID          string   `yaml:"id" json:"id"`
	Features    Features `yaml:"features" json:"features"`
	LifecycleID string   `yaml:"lifecycle_id,omitempty" json:"lifecycle_id,omitempty"`
}

// Clone returns a copy that shares no feature storage with v.
func (v Video) Clone() Video {
	v.Features = v.Features.Clone()
	return v
}

// EnqueueRule maps a required feature set to a queue at a given priority.
type EnqueueRule struct {
	ID       string   `yaml:"id" json:"id"`
	QueueID  string   `yaml:"queue_id" json:"queue_id"`
	Priority int64    `yaml:"priority" json:"priority"`
	Features Features `yaml:"features" json:"features"`
}

// MatchesSubset reports whether every feature required by the rule is present in
// candidate. A rule with no features matches every candidate.
func (r EnqueueRule) MatchesSubset(candidate Features) bool {
	have := candidate.set()
	for _, feature := range r.Features {
		if _, ok := have[feature]; !ok {
			return false
		}
	}
	return true
}

// MatchesExact reports whether the rule's feature set equals candidate as a set.
// Ordering and duplicate entries are ignored.
func (r EnqueueRule) MatchesExact(candidate Features) bool {
	mine, theirs := r.Features.set(), candidate.set()
	if len(mine) != len(theirs) {
		return false
	}
	for feature := range theirs {
		if _, ok := mine[feature]; !ok {
			return false
		}
	}
	return true
}

// Clone returns a copy whose feature slice is not shared with r.
func (r EnqueueRule) Clone() EnqueueRule {
	r.Features = r.Features.Clone()
	return r
}

func (r EnqueueRule) String() string {
	return fmt.Sprintf("EnqueueRule{ID: %s, Queue: %s, Priority: %d, Features: %v}", r.ID, r.QueueID, r.Priority, r.Features)
}
