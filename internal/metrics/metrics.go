package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/xerrors"
)

const namespace = "txlog"

// Log records the activity of one transaction log.
type Log struct {
	appends        prometheus.Counter
	commits        prometheus.Counter
	commitFailures prometheus.Counter
	commitDuration prometheus.Observer
}

// NewLog registers (or reuses) the log collectors on reg and binds them to
// the log name and variant. A nil registerer returns a nil *Log.
func NewLog(reg prometheus.Registerer, name, variant string) (*Log, error) {
	if reg == nil {
		return nil, nil
	}

	appends, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "appends_total",
		Help:      "Number of appended transactions.",
	}, []string{"log", "variant"}))
	if err != nil {
		return nil, err
	}

	commits, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commits_total",
		Help:      "Number of durable commits.",
	}, []string{"log", "variant"}))
	if err != nil {
		return nil, err
	}

	failures, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commit_failures_total",
		Help:      "Number of commits rolled back.",
	}, []string{"log", "variant"}))
	if err != nil {
		return nil, err
	}

	duration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "commit_duration_seconds",
		Help:      "Duration of commits, failed ones included.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"log", "variant"}))
	if err != nil {
		return nil, err
	}

	return &Log{
		appends:        appends.WithLabelValues(name, variant),
		commits:        commits.WithLabelValues(name, variant),
		commitFailures: failures.WithLabelValues(name, variant),
		commitDuration: duration.WithLabelValues(name, variant),
	}, nil
}

// Append counts n appended transactions.
func (m *Log) Append(n int) {
	if m == nil {
		return
	}
	m.appends.Add(float64(n))
}

// Commit records the outcome and duration of a commit.
func (m *Log) Commit(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.commitDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.commitFailures.Inc()
		return
	}
	m.commits.Inc()
}

// Storage records storage latencies. It satisfies the pebble MetricsHook.
type Storage struct {
	reads        prometheus.Observer
	commits      prometheus.Observer
	commitBytes  prometheus.Observer
	commitWrites prometheus.Counter
}

// NewStorage registers (or reuses) the storage collectors on reg and binds
// them to the log name. A nil registerer returns a nil *Storage.
func NewStorage(reg prometheus.Registerer, name string) (*Storage, error) {
	if reg == nil {
		return nil, nil
	}

	reads, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "read_duration_seconds",
		Help:      "Duration of point reads.",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
	}, []string{"log"}))
	if err != nil {
		return nil, err
	}

	commits, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "batch_commit_duration_seconds",
		Help:      "Duration of batch commits.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"log"}))
	if err != nil {
		return nil, err
	}

	sizes, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "batch_commit_bytes",
		Help:      "Size of committed batches.",
		Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
	}, []string{"log"}))
	if err != nil {
		return nil, err
	}

	writes, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "batch_writes_total",
		Help:      "Number of key writes committed in batches.",
	}, []string{"log"}))
	if err != nil {
		return nil, err
	}

	return &Storage{
		reads:        reads.WithLabelValues(name),
		commits:      commits.WithLabelValues(name),
		commitBytes:  sizes.WithLabelValues(name),
		commitWrites: writes.WithLabelValues(name),
	}, nil
}

// ObserveRead records a point read.
func (m *Storage) ObserveRead(elapsed time.Duration, bytes int) {
	if m == nil {
		return
	}
	m.reads.Observe(elapsed.Seconds())
}

// ObserveBatchCommit records a batch commit.
func (m *Storage) ObserveBatchCommit(elapsed time.Duration, numOps int, bytes int) {
	if m == nil {
		return
	}
	m.commits.Observe(elapsed.Seconds())
	m.commitBytes.Observe(float64(bytes))
	m.commitWrites.Add(float64(numOps))
}

// register registers c, or returns the equivalent collector already present.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}

	var are prometheus.AlreadyRegisteredError
	if xerrors.As(err, &are) {
		existing, ok := are.ExistingCollector.(C)
		if ok {
			return existing, nil
		}
	}

	return c, xerrors.Errorf("failed to register collector: %w", err)
}
