package workload

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/review-impact/impact-sim/sim"
)

// GenerateTraffic creates a baseline snapshot from a TrafficSpec: videos with
// random feature subsets, queues with random SLA targets and route lists, rules at
// priority equal to their index, and one lifecycle per spec.Lifecycles.
//
// Each lifecycle enqueues a random video into the queue its rules match (or a
// random queue when none does), is routed at most once along one of that queue's
// possible routes, and may end with a verdict in its final queue.
// Deterministic given the same spec.
func GenerateTraffic(spec *TrafficSpec) (*sim.Snapshot, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid traffic spec: %w", err)
	}
	delay, err := NewDelaySampler(spec.ReviewDelay)
	if err != nil {
		return nil, fmt.Errorf("review_delay: %w", err)
	}
	arrivals := NewArrivalSampler(spec.Arrival)

	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(spec.Seed))
	snap := &sim.Snapshot{
		Videos: generateVideos(spec, rng.ForSubsystem(sim.SubsystemVideos)),
		Queues: generateQueues(spec, rng.ForSubsystem(sim.SubsystemRules)),
	}
	snap.Rules = generateRules(spec, snap.Queues, rng.ForSubsystem(sim.SubsystemRules))
	if err := generateLifecycles(spec, snap, arrivals, delay, rng); err != nil {
		return nil, err
	}

	logrus.Infof("Generated %d videos, %d queues, %d rules, %d enqueue / %d routing / %d verdict signals",
		len(snap.Videos), len(snap.Queues), len(snap.Rules),
		len(snap.EnqueueSignals), len(snap.RoutingSignals), len(snap.VerdictSignals))
	return snap, nil
}

func featureName(i int) string { return fmt.Sprintf("feature-%d", i) }

func queueID(i int) string { return fmt.Sprintf("queue-%d", i) }

// sampleFeatures draws n distinct features from the pool.
func sampleFeatures(rng *rand.Rand, pool, n int) sim.Features {
	perm := rng.Perm(pool)[:n]
	features := make(sim.Features, n)
	for i, f := range perm {
		features[i] = featureName(f)
	}
	return features
}

func generateVideos(spec *TrafficSpec, rng *rand.Rand) []sim.Video {
	videos := make([]sim.Video, spec.Videos)
	for i := range videos {
		videos[i] = sim.Video{
			ID:       fmt.Sprintf("video-%d", i),
			Features: sampleFeatures(rng, spec.FeaturePool, rng.Intn(spec.MaxFeaturesPerVideo+1)),
		}
	}
	return videos
}

func generateQueues(spec *TrafficSpec, rng *rand.Rand) []sim.EntityQueue {
	queues := make([]sim.EntityQueue, spec.Queues)
	for i := range queues {
		var routes []string
		for _, j := range rng.Perm(spec.Queues)[:rng.Intn(spec.MaxPossibleRoutes+1)+1] {
			if j != i && len(routes) < spec.MaxPossibleRoutes {
				routes = append(routes, queueID(j))
			}
		}
		queues[i] = sim.EntityQueue{
			ID:                queueID(i),
			Name:              fmt.Sprintf("Queue %d", i),
			DesiredSLAMinutes: int64(rng.Intn(spec.MaxDesiredSLAMinutes + 1)),
			Owners:            []string{fmt.Sprintf("owner%d@example.com", i)},
			PossibleRoutes:    routes,
		}
	}
	return queues
}

func generateRules(spec *TrafficSpec, queues []sim.EntityQueue, rng *rand.Rand) []sim.EnqueueRule {
	rules := make([]sim.EnqueueRule, spec.Rules)
	for i := range rules {
		rules[i] = sim.EnqueueRule{
			ID:       fmt.Sprintf("rule-%d", i),
			QueueID:  queues[rng.Intn(len(queues))].ID,
			Priority: int64(i),
			Features: sampleFeatures(rng, spec.FeaturePool, rng.Intn(spec.MaxFeaturesPerRule)+1),
		}
	}
	return rules
}

func generateLifecycles(spec *TrafficSpec, snap *sim.Snapshot, arrivals ArrivalSampler, delay DelaySampler, rng *sim.PartitionedRNG) error {
	arrivalRNG := rng.ForSubsystem(sim.SubsystemArrivals)
	lifecycleRNG := rng.ForSubsystem(sim.SubsystemLifecycles)
	verdictRNG := rng.ForSubsystem(sim.SubsystemVerdicts)

	routes := make(map[string][]string, len(snap.Queues))
	for _, q := range snap.Queues {
		routes[q.ID] = q.PossibleRoutes
	}

	now := spec.Start
	for i := 0; i < spec.Lifecycles; i++ {
		now = now.Add(arrivals.SampleInterval(arrivalRNG))
		id, err := uuid.NewRandomFromReader(lifecycleRNG)
		if err != nil {
			return fmt.Errorf("lifecycle %d id: %w", i, err)
		}
		lifecycle := id.String()
		video := snap.Videos[lifecycleRNG.Intn(len(snap.Videos))]

		queue := snap.Queues[lifecycleRNG.Intn(len(snap.Queues))].ID
		if rule, ok := sim.MatchRule(video.Features, snap.Rules, sim.PriorityAscending); ok {
			queue = rule.QueueID
		}
		snap.EnqueueSignals = append(snap.EnqueueSignals, sim.EnqueueSignal{
			LifecycleID: lifecycle,
			CreateTime:  now,
			QueueMatch:  queue,
			VideoID:     video.ID,
		})

		current, last := queue, now
		if verdictRNG.Float64() < spec.RoutedFraction && len(routes[current]) > 0 {
			to := routes[current][verdictRNG.Intn(len(routes[current]))]
			last = last.Add(delay.Sample(verdictRNG))
			snap.RoutingSignals = append(snap.RoutingSignals, sim.RoutingSignal{
				LifecycleID: lifecycle,
				CreateTime:  last,
				FromQueue:   current,
				ToQueue:     to,
			})
			current = to
		}
		if verdictRNG.Float64() < spec.VerdictFraction {
			at := last.Add(delay.Sample(verdictRNG))
			snap.VerdictSignals = append(snap.VerdictSignals, sim.VerdictSignal{
				LifecycleID: lifecycle,
				CreateTime:  at,
				QueueID:     current,
				SLAMinutes:  int64(at.Sub(last) / time.Minute),
			})
		}
	}
	return nil
}
