package txlog

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rzbill/txlog/internal/metrics"
	"github.com/rzbill/txlog/internal/storage"
	boltstore "github.com/rzbill/txlog/internal/storage/bolt"
	pebblestore "github.com/rzbill/txlog/internal/storage/pebble"
	"github.com/rzbill/txlog/pkg/log"
	"golang.org/x/xerrors"
)

// Backend selects the storage engine.
type Backend string

const (
	// BackendPebble stores each log in a Pebble directory. Default.
	BackendPebble Backend = "pebble"
	// BackendBolt stores each log in a bbolt file.
	BackendBolt Backend = "bolt"
)

// ParseBackend converts a textual backend name. Empty means pebble.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case BackendPebble, "":
		return BackendPebble, nil
	case BackendBolt:
		return BackendBolt, nil
	default:
		return "", xerrors.Errorf("unknown backend '%s'; use pebble|bolt", s)
	}
}

// FsyncMode defines durability behavior of commits.
type FsyncMode = pebblestore.FsyncMode

const (
	// FsyncAlways syncs the write-ahead log on every commit. Default.
	FsyncAlways = pebblestore.FsyncModeAlways
	// FsyncInterval groups syncs of commits arriving within FsyncInterval.
	// Pebble only; bolt treats it as FsyncAlways.
	FsyncInterval = pebblestore.FsyncModeInterval
	// FsyncNever leaves syncing to the engine.
	FsyncNever = pebblestore.FsyncModeNever
)

// ErrNoDataDir is returned by Open when Options.DataDir is empty.
var ErrNoDataDir = xerrors.New("data dir is required")

// Options configures a log.
type Options[T any] struct {
	// DataDir is the directory holding the logs. Required.
	DataDir string
	// Backend selects the storage engine. Defaults to BackendPebble.
	Backend Backend
	// Fsync determines when commits are synced. Defaults to FsyncAlways.
	Fsync FsyncMode
	// FsyncInterval is the group-commit window of FsyncInterval.
	FsyncInterval time.Duration
	// Codec serializes the data. Defaults to JSONCodec.
	Codec Codec[T]
	// Logger receives lifecycle and commit events. Defaults to a no-op
	// logger.
	Logger log.Logger
	// Registerer enables Prometheus metrics when set.
	Registerer prometheus.Registerer
	// Hooks are notified after successful transitions.
	Hooks Hooks[T]

	driver storage.Driver
}

func (o Options[T]) codec() Codec[T] {
	if o.Codec == nil {
		return JSONCodec[T]{}
	}
	return o.Codec
}

func (o Options[T]) logger() log.Logger {
	if o.Logger == nil {
		return log.NewNopLogger()
	}
	return o.Logger
}

func (o Options[T]) fsync() FsyncMode {
	if o.Fsync == pebblestore.FsyncModeUnspecified {
		return FsyncAlways
	}
	return o.Fsync
}

// newDriver builds the storage driver of the configured backend.
func (o Options[T]) newDriver(name string) (storage.Driver, error) {
	if o.driver != nil {
		return o.driver, nil
	}
	if o.DataDir == "" {
		return nil, ErrNoDataDir
	}

	backend, err := ParseBackend(string(o.Backend))
	if err != nil {
		return nil, err
	}

	switch backend {
	case BackendBolt:
		return boltstore.Driver{
			DataDir: o.DataDir,
			NoSync:  o.fsync() == FsyncNever,
		}, nil
	default:
		drv := pebblestore.Driver{
			DataDir:       o.DataDir,
			Fsync:         o.fsync(),
			FsyncInterval: o.FsyncInterval,
		}

		sm, err := metrics.NewStorage(o.Registerer, name)
		if err != nil {
			return nil, err
		}
		if sm != nil {
			drv.Metrics = sm
		}

		return drv, nil
	}
}
