package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/review-impact/impact-sim/sim"
)

// Postgres is a sim.DataSource backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// OpenPostgres creates a pooled connection and checks it with a ping.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the pool.
func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

// Ping checks the database is reachable.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) GetAllQueues(ctx context.Context) ([]sim.EntityQueue, error) {
	return queryQueues(ctx, p.pool)
}

func queryQueues(ctx context.Context, db querier) ([]sim.EntityQueue, error) {
	rows, err := db.Query(ctx, `
		SELECT id, name, desired_sla_min, owners, possible_routes FROM queues ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query queues: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (sim.EntityQueue, error) {
		var q sim.EntityQueue
		err := row.Scan(&q.ID, &q.Name, &q.DesiredSLAMinutes, &q.Owners, &q.PossibleRoutes)
		return q, err
	})
}

// GetAllEnqueueRules returns rules in their stored list order, which decides
// ties between rules of equal priority.
func (p *Postgres) GetAllEnqueueRules(ctx context.Context) ([]sim.EnqueueRule, error) {
	return queryEnqueueRules(ctx, p.pool)
}

func queryEnqueueRules(ctx context.Context, db querier) ([]sim.EnqueueRule, error) {
	rows, err := db.Query(ctx, `
		SELECT id, queue_id, priority, features FROM enqueue_rules ORDER BY position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query enqueue rules: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (sim.EnqueueRule, error) {
		var (
			r        sim.EnqueueRule
			features []string
		)
		err := row.Scan(&r.ID, &r.QueueID, &r.Priority, &features)
		r.Features = features
		return r, err
	})
}

func (p *Postgres) GetAllVideos(ctx context.Context) ([]sim.Video, error) {
	return queryVideos(ctx, p.pool)
}

func queryVideos(ctx context.Context, db querier) ([]sim.Video, error) {
	rows, err := db.Query(ctx, `SELECT id, features FROM videos ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (sim.Video, error) {
		var (
			v        sim.Video
			features []string
		)
		err := row.Scan(&v.ID, &features)
		v.Features = features
		return v, err
	})
}

func (p *Postgres) GetAllEnqueueSignals(ctx context.Context) ([]sim.EnqueueSignal, error) {
	return queryEnqueueSignals(ctx, p.pool)
}

func queryEnqueueSignals(ctx context.Context, db querier) ([]sim.EnqueueSignal, error) {
	rows, err := db.Query(ctx, `
		SELECT lifecycle_id, create_time, queue_match, video_id FROM enqueue_signals ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("query enqueue signals: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (sim.EnqueueSignal, error) {
		var s sim.EnqueueSignal
		err := row.Scan(&s.LifecycleID, &s.CreateTime, &s.QueueMatch, &s.VideoID)
		s.CreateTime = s.CreateTime.UTC()
		return s, err
	})
}

func (p *Postgres) GetAllRoutingSignals(ctx context.Context) ([]sim.RoutingSignal, error) {
	return queryRoutingSignals(ctx, p.pool)
}

func queryRoutingSignals(ctx context.Context, db querier) ([]sim.RoutingSignal, error) {
	rows, err := db.Query(ctx, `
		SELECT lifecycle_id, create_time, from_queue, to_queue FROM routing_signals ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("query routing signals: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (sim.RoutingSignal, error) {
		var s sim.RoutingSignal
		err := row.Scan(&s.LifecycleID, &s.CreateTime, &s.FromQueue, &s.ToQueue)
		s.CreateTime = s.CreateTime.UTC()
		return s, err
	})
}

func (p *Postgres) GetAllVerdictSignals(ctx context.Context) ([]sim.VerdictSignal, error) {
	return queryVerdictSignals(ctx, p.pool)
}

func queryVerdictSignals(ctx context.Context, db querier) ([]sim.VerdictSignal, error) {
	rows, err := db.Query(ctx, `
		SELECT lifecycle_id, create_time, queue_id, sla_min FROM verdict_signals ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("query verdict signals: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (sim.VerdictSignal, error) {
		var s sim.VerdictSignal
		err := row.Scan(&s.LifecycleID, &s.CreateTime, &s.QueueID, &s.SLAMinutes)
		s.CreateTime = s.CreateTime.UTC()
		return s, err
	})
}

// ReadSnapshot reads every baseline table inside one read-only REPEATABLE READ
// transaction, so a concurrent ReplaceSnapshot is seen entirely or not at all.
func (p *Postgres) ReadSnapshot(ctx context.Context) (*sim.Snapshot, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // read-only; nothing to commit

	var s sim.Snapshot
	if s.Queues, err = queryQueues(ctx, tx); err != nil {
		return nil, err
	}
	if s.Rules, err = queryEnqueueRules(ctx, tx); err != nil {
		return nil, err
	}
	if s.Videos, err = queryVideos(ctx, tx); err != nil {
		return nil, err
	}
	if s.EnqueueSignals, err = queryEnqueueSignals(ctx, tx); err != nil {
		return nil, err
	}
	if s.RoutingSignals, err = queryRoutingSignals(ctx, tx); err != nil {
		return nil, err
	}
	if s.VerdictSignals, err = queryVerdictSignals(ctx, tx); err != nil {
		return nil, err
	}
	return &s, nil
}

// ReplaceSnapshot clears every baseline table and bulk-loads snap in one
// transaction. ReadSnapshot sees either the old or the new baseline, never a mix;
// the individual getters read outside any shared transaction.
func (p *Postgres) ReplaceSnapshot(ctx context.Context, snap *sim.Snapshot) error {
	start := time.Now()
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // safe no-op on commit

	if _, err := tx.Exec(ctx, `
		TRUNCATE queues, enqueue_rules, videos, enqueue_signals, routing_signals, verdict_signals RESTART IDENTITY
	`); err != nil {
		return fmt.Errorf("clear baseline: %w", err)
	}

	copies := []struct {
		table   string
		columns []string
		rows    [][]any
	}{
		{"queues", []string{"id", "name", "desired_sla_min", "owners", "possible_routes"}, queueRows(snap.Queues)},
		{"enqueue_rules", []string{"id", "position", "queue_id", "priority", "features"}, ruleRows(snap.Rules)},
		{"videos", []string{"id", "features"}, videoRows(snap.Videos)},
		{"enqueue_signals", []string{"lifecycle_id", "video_id", "queue_match", "create_time"}, enqueueRows(snap.EnqueueSignals)},
		{"routing_signals", []string{"lifecycle_id", "from_queue", "to_queue", "create_time"}, routingRows(snap.RoutingSignals)},
		{"verdict_signals", []string{"lifecycle_id", "queue_id", "sla_min", "create_time"}, verdictRows(snap.VerdictSignals)},
	}
	for _, c := range copies {
		n, err := tx.CopyFrom(ctx, pgx.Identifier{c.table}, c.columns, pgx.CopyFromRows(c.rows))
		if err != nil {
			return fmt.Errorf("copy %s: %w", c.table, err)
		}
		logrus.Debugf("Copied %d rows into %s", n, c.table)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	logrus.Infof("Replaced baseline in %s", time.Since(start).Round(time.Millisecond))
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func queueRows(queues []sim.EntityQueue) [][]any {
	rows := make([][]any, len(queues))
	for i, q := range queues {
		rows[i] = []any{q.ID, q.Name, q.DesiredSLAMinutes, nonNil(q.Owners), nonNil(q.PossibleRoutes)}
	}
	return rows
}

func ruleRows(rules []sim.EnqueueRule) [][]any {
	rows := make([][]any, len(rules))
	for i, r := range rules {
		rows[i] = []any{r.ID, int32(i), r.QueueID, r.Priority, nonNil(r.Features)}
	}
	return rows
}

func videoRows(videos []sim.Video) [][]any {
	rows := make([][]any, len(videos))
	for i, v := range videos {
		rows[i] = []any{v.ID, nonNil(v.Features)}
	}
	return rows
}

func enqueueRows(signals []sim.EnqueueSignal) [][]any {
	rows := make([][]any, len(signals))
	for i, s := range signals {
		rows[i] = []any{s.LifecycleID, s.VideoID, s.QueueMatch, s.CreateTime}
	}
	return rows
}

func routingRows(signals []sim.RoutingSignal) [][]any {
	rows := make([][]any, len(signals))
	for i, s := range signals {
		rows[i] = []any{s.LifecycleID, s.FromQueue, s.ToQueue, s.CreateTime}
	}
	return rows
}

func verdictRows(signals []sim.VerdictSignal) [][]any {
	rows := make([][]any, len(signals))
	for i, s := range signals {
		rows[i] = []any{s.LifecycleID, s.QueueID, s.SLAMinutes, s.CreateTime}
	}
	return rows
}
