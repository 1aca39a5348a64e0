package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func TestLog_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()

	m, err := NewLog(reg, "orders", "batched")
	require.NoError(t, err)

	m.Append(3)
	m.Commit(time.Millisecond, nil)
	m.Commit(time.Millisecond, xerrors.New("oops"))

	require.Equal(t, float64(3), testutil.ToFloat64(m.appends))
	require.Equal(t, float64(1), testutil.ToFloat64(m.commits))
	require.Equal(t, float64(1), testutil.ToFloat64(m.commitFailures))

	n, err := testutil.GatherAndCount(reg, "txlog_commit_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestLog_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()

	a, err := NewLog(reg, "a", "simple")
	require.NoError(t, err)
	b, err := NewLog(reg, "b", "simple")
	require.NoError(t, err)
	again, err := NewLog(reg, "a", "simple")
	require.NoError(t, err)

	a.Append(1)
	b.Append(2)
	again.Append(1)

	require.Equal(t, float64(2), testutil.ToFloat64(a.appends))
	require.Equal(t, float64(2), testutil.ToFloat64(b.appends))

	n, err := testutil.GatherAndCount(reg, "txlog_appends_total")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestLog_Conflict(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{Name: "txlog_appends_total", Help: "x"}))

	_, err := NewLog(reg, "a", "simple")
	require.Error(t, err)
}

func TestNilReceivers(t *testing.T) {
	m, err := NewLog(nil, "a", "simple")
	require.NoError(t, err)
	require.Nil(t, m)
	m.Append(1)
	m.Commit(time.Second, nil)

	s, err := NewStorage(nil, "a")
	require.NoError(t, err)
	require.Nil(t, s)
	s.ObserveRead(time.Second, 1)
	s.ObserveBatchCommit(time.Second, 1, 1)
}

func TestStorage_Observations(t *testing.T) {
	reg := prometheus.NewRegistry()

	s, err := NewStorage(reg, "orders")
	require.NoError(t, err)

	s.ObserveRead(time.Microsecond, 10)
	s.ObserveBatchCommit(time.Millisecond, 4, 512)
	s.ObserveBatchCommit(time.Millisecond, 2, 128)

	require.Equal(t, float64(6), testutil.ToFloat64(s.commitWrites))

	n, err := testutil.GatherAndCount(reg,
		"txlog_storage_read_duration_seconds",
		"txlog_storage_batch_commit_duration_seconds",
		"txlog_storage_batch_commit_bytes")
	require.NoError(t, err)
	require.Equal(t, 3, n)
}
