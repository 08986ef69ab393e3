package sql

import (
	"context"
	"database/sql"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/syssam/tabula/dialect"
)

// DefaultSlowQueryThreshold is the slow-statement cutoff used when an
// instrumented driver is built without an explicit threshold.
const DefaultSlowQueryThreshold = 100 * time.Millisecond

// QueryStats accumulates execution counters for an instrumented driver.
// Counters are updated atomically and shared by every connection and
// transaction derived from the driver.
type QueryStats struct {
	queries  atomic.Int64
	execs    atomic.Int64
	errors   atomic.Int64
	slow     atomic.Int64
	duration atomic.Int64 // cumulative nanoseconds
}

// Snapshot returns a point-in-time copy of the counters.
func (s *QueryStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Queries:  s.queries.Load(),
		Execs:    s.execs.Load(),
		Errors:   s.errors.Load(),
		Slow:     s.slow.Load(),
		Duration: time.Duration(s.duration.Load()),
	}
}

// Reset zeroes all counters.
func (s *QueryStats) Reset() {
	s.queries.Store(0)
	s.execs.Store(0)
	s.errors.Store(0)
	s.slow.Store(0)
	s.duration.Store(0)
}

// StatsSnapshot is a point-in-time view of an instrumented driver's
// counters.
type StatsSnapshot struct {
	Queries  int64
	Execs    int64
	Errors   int64
	Slow     int64
	Duration time.Duration
}

// AvgDuration returns the mean statement duration across queries and
// execs, or zero when nothing ran yet.
func (s StatsSnapshot) AvgDuration() time.Duration {
	total := s.Queries + s.Execs
	if total == 0 {
		return 0
	}
	return s.Duration / time.Duration(total)
}

// LogValue renders the snapshot as structured attributes, so a snapshot
// can be passed directly to slog.
func (s StatsSnapshot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("queries", s.Queries),
		slog.Int64("execs", s.Execs),
		slog.Int64("errors", s.Errors),
		slog.Int64("slow", s.Slow),
		slog.Duration("avg", s.AvgDuration()),
	)
}

// SlowQueryHook is invoked when a statement exceeds the slow threshold.
type SlowQueryHook func(ctx context.Context, query string, args []any, took time.Duration)

// StatsDriver decorates a Driver with execution counters and slow-query
// detection. It satisfies dialect.Driver, so it slots between the
// entity manager and the real driver:
//
//	drv, _ := sql.Open(dialect.Postgres, dsn)
//	instrumented := sql.NewStatsDriver(drv, sql.WithSlowQueryThreshold(200*time.Millisecond))
//	m := tabula.NewEntityManager(instrumented)
//	...
//	slog.Info("db stats", "stats", instrumented.Stats().Snapshot())
type StatsDriver struct {
	*Driver
	stats     *QueryStats
	threshold time.Duration
	onSlow    SlowQueryHook
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowQueryThreshold sets the cutoff beyond which a statement counts
// as slow.
func WithSlowQueryThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) { s.threshold = d }
}

// WithSlowQueryHook sets the callback invoked for each slow statement.
// The default logs the statement through slog.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) { s.onSlow = hook }
}

// NewStatsDriver wraps drv with counters and slow-statement detection.
func NewStatsDriver(drv *Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{
		Driver:    drv,
		stats:     &QueryStats{},
		threshold: DefaultSlowQueryThreshold,
	}
	s.onSlow = func(_ context.Context, query string, _ []any, took time.Duration) {
		slog.Warn("slow statement", "query", query, "took", took, "threshold", s.threshold)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns the shared counters.
func (d *StatsDriver) Stats() *QueryStats { return d.stats }

func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.record(ctx, query, args, start, err, &d.stats.queries)
	return err
}

func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.record(ctx, query, args, start, err, &d.stats.execs)
	return err
}

// Tx starts a transaction whose statements count against the same
// counters.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &statsTx{Tx: tx, driver: d}, nil
}

func (d *StatsDriver) record(ctx context.Context, query string, args any, start time.Time, err error, counter *atomic.Int64) {
	took := time.Since(start)
	counter.Add(1)
	d.stats.duration.Add(int64(took))
	if err != nil {
		d.stats.errors.Add(1)
	}
	if took > d.threshold {
		d.stats.slow.Add(1)
		if d.onSlow != nil {
			vars, _ := args.([]any)
			d.onSlow(ctx, query, vars, took)
		}
	}
}

type statsTx struct {
	dialect.Tx
	driver *StatsDriver
}

func (tx *statsTx) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Query(ctx, query, args, v)
	tx.driver.record(ctx, query, args, start, err, &tx.driver.stats.queries)
	return err
}

func (tx *statsTx) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Exec(ctx, query, args, v)
	tx.driver.record(ctx, query, args, start, err, &tx.driver.stats.execs)
	return err
}

// DebugDriver decorates a Driver with per-statement structured logging.
// Useful during schema development; too chatty for production.
type DebugDriver struct {
	*Driver
	logger *slog.Logger
}

// NewDebugDriver wraps drv so every statement, begin, commit and
// rollback is logged through logger (slog.Default when nil).
func NewDebugDriver(drv *Driver, logger *slog.Logger) *DebugDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &DebugDriver{Driver: drv, logger: logger}
}

func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	d.logger.LogAttrs(ctx, slog.LevelDebug, "query", slog.String("sql", query), slog.Any("args", args))
	return d.Driver.Query(ctx, query, args, v)
}

func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	d.logger.LogAttrs(ctx, slog.LevelDebug, "exec", slog.String("sql", query), slog.Any("args", args))
	return d.Driver.Exec(ctx, query, args, v)
}

func (d *DebugDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	d.logger.LogAttrs(ctx, slog.LevelDebug, "begin")
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &debugTx{Tx: tx, logger: d.logger}, nil
}

type debugTx struct {
	dialect.Tx
	logger *slog.Logger
}

func (tx *debugTx) Query(ctx context.Context, query string, args, v any) error {
	tx.logger.LogAttrs(ctx, slog.LevelDebug, "tx query", slog.String("sql", query), slog.Any("args", args))
	return tx.Tx.Query(ctx, query, args, v)
}

func (tx *debugTx) Exec(ctx context.Context, query string, args, v any) error {
	tx.logger.LogAttrs(ctx, slog.LevelDebug, "tx exec", slog.String("sql", query), slog.Any("args", args))
	return tx.Tx.Exec(ctx, query, args, v)
}

func (tx *debugTx) Commit() error {
	tx.logger.LogAttrs(context.Background(), slog.LevelDebug, "commit")
	return tx.Tx.Commit()
}

func (tx *debugTx) Rollback() error {
	tx.logger.LogAttrs(context.Background(), slog.LevelDebug, "rollback")
	return tx.Tx.Rollback()
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*statsTx)(nil)
	_ dialect.Driver = (*DebugDriver)(nil)
	_ dialect.Tx     = (*debugTx)(nil)
)

// OpenWithStats opens a connection and returns it wrapped in a
// StatsDriver.
func OpenWithStats(driverName, source string, opts ...StatsOption) (*StatsDriver, error) {
	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, err
	}
	return NewStatsDriver(NewDriver(driverName, Conn{db, driverName}), opts...), nil
}
