package sim

import (
	"errors"
	"fmt"
)

// ErrInvalidChangeRequest is wrapped by every change request validation failure.
var ErrInvalidChangeRequest = errors.New("invalid change request")

// ChangeMethod is the operation a change applies.
type ChangeMethod string

const (
	MethodAdd    ChangeMethod = "Add"
	MethodRemove ChangeMethod = "Remove"
)

// ChangeKind names which variant a ChangeRequest carries.
type ChangeKind string

const (
	KindEnqueueRules   ChangeKind = "enqueue_rules"
	KindRoutingTargets ChangeKind = "routing_targets"
	KindQueueInfo      ChangeKind = "queue_info"
)

// EnqueueRuleChange adds or removes one enqueue rule. Removal matches by exact feature
// set because rule identifiers are not stable across the wire.
type EnqueueRuleChange struct {
	Method   ChangeMethod `json:"method" yaml:"method"`
	QueueID  string       `json:"queue" yaml:"queue"`
	Priority int64        `json:"priority" yaml:"priority"`
	Features Features     `json:"features" yaml:"features"`
	Reporter string       `json:"reporter,omitempty" yaml:"reporter,omitempty"`
}

// EnqueueRuleChanges is the enqueue-rule variant of a ChangeRequest.
type EnqueueRuleChanges struct {
	Changes []EnqueueRuleChange `json:"changes" yaml:"changes"`
}

// RoutingTargetChange edits the route list of one queue.
type RoutingTargetChange struct {
	QueueID      string   `json:"queue" yaml:"queue"`
	AddQueues    []string `json:"add_queues_to_route_to,omitempty" yaml:"add_queues_to_route_to,omitempty"`
	RemoveQueues []string `json:"remove_queues_to_route_to,omitempty" yaml:"remove_queues_to_route_to,omitempty"`
}

// QueueInfoChange edits queue metadata.
type QueueInfoChange struct {
	Method            ChangeMethod `json:"method" yaml:"method"`
	QueueID           string       `json:"queue" yaml:"queue"`
	Name              string       `json:"name,omitempty" yaml:"name,omitempty"`
	DesiredSLAMinutes *int64       `json:"desired_sla_min,omitempty" yaml:"desired_sla_min,omitempty"`
	Owners            []string     `json:"owners,omitempty" yaml:"owners,omitempty"`
}

// ChangeRequest is a proposed configuration change. Exactly one of EnqueueRules,
// RoutingTargets or QueueInfo must be set.
type ChangeRequest struct {
	IssueID        string               `json:"issue_id,omitempty" yaml:"issue_id,omitempty"`
	EnqueueRules   *EnqueueRuleChanges  `json:"enqueue_rules,omitempty" yaml:"enqueue_rules,omitempty"`
	RoutingTargets *RoutingTargetChange `json:"routing_targets,omitempty" yaml:"routing_targets,omitempty"`
	QueueInfo      *QueueInfoChange     `json:"queue_info,omitempty" yaml:"queue_info,omitempty"`
}

// Kind returns the variant carried by the request, or "" if none or several are set.
func (r ChangeRequest) Kind() ChangeKind {
	var kinds []ChangeKind
	if r.EnqueueRules != nil {
		kinds = append(kinds, KindEnqueueRules)
	}
	if r.RoutingTargets != nil {
		kinds = append(kinds, KindRoutingTargets)
	}
	if r.QueueInfo != nil {
		kinds = append(kinds, KindQueueInfo)
	}
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// Validate reports malformed requests. Every returned error wraps ErrInvalidChangeRequest.
func (r ChangeRequest) Validate() error {
	switch r.Kind() {
	case KindEnqueueRules:
		if len(r.EnqueueRules.Changes) == 0 {
			return invalidf("enqueue rule request has no changes")
		}
		for i, c := range r.EnqueueRules.Changes {
			if c.Method != MethodAdd && c.Method != MethodRemove {
				return invalidf("enqueue rule change %d: method %q is not Add or Remove", i, c.Method)
			}
			if c.QueueID == "" {
				return invalidf("enqueue rule change %d: queue is required", i)
			}
			if len(c.Features) == 0 {
				return invalidf("enqueue rule change %d: at least one feature is required", i)
			}
		}
	case KindRoutingTargets:
		if r.RoutingTargets.QueueID == "" {
			return invalidf("routing target change: queue is required")
		}
		if len(r.RoutingTargets.AddQueues) == 0 && len(r.RoutingTargets.RemoveQueues) == 0 {
			return invalidf("routing target change for queue %s has neither additions nor removals", r.RoutingTargets.QueueID)
		}
	case KindQueueInfo:
		if r.QueueInfo.QueueID == "" {
			return invalidf("queue info change: queue is required")
		}
	default:
		return invalidf("request must carry exactly one of enqueue_rules, routing_targets, queue_info")
	}
	return nil
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidChangeRequest, fmt.Sprintf(format, args...))
}

// ChangeResult summarizes what applying a request did to the working rule set.
type ChangeResult struct {
	Kind         ChangeKind `json:"kind"`
	RulesAdded   int        `json:"rules_added"`
	RulesRemoved int        `json:"rules_removed"`
	// UnmatchedRemovals lists the feature sets of Remove changes that matched no rule.
	UnmatchedRemovals []Features `json:"unmatched_removals,omitempty"`
	// Deferred is true when the request kind does not alter simulation inputs yet.
	Deferred bool `json:"deferred,omitempty"`
}

// applyChange applies a validated request to the working snapshot.
func applyChange(working *Snapshot, req ChangeRequest) ChangeResult {
	result := ChangeResult{Kind: req.Kind()}
	switch result.Kind {
	case KindEnqueueRules:
		for i, c := range req.EnqueueRules.Changes {
			switch c.Method {
			case MethodAdd:
				working.Rules = append(working.Rules, newProposedRule(c, i))
				result.RulesAdded++
			case MethodRemove:
				remaining, removed := RemoveRuleByFeatures(c.Features, working.Rules)
				if !removed {
					result.UnmatchedRemovals = append(result.UnmatchedRemovals, c.Features.Clone())
					continue
				}
				working.Rules = remaining
				result.RulesRemoved++
			}
		}
	case KindRoutingTargets:
		// TODO: edit working queue PossibleRoutes once the review step picks routing
		// destinations from a queue's route list instead of the prior verdict queue.
		result.Deferred = true
	case KindQueueInfo:
		// Queue metadata does not feed the simulation.
		result.Deferred = true
	}
	return result
}
