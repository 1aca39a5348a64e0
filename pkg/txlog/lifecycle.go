package txlog

import (
	"context"
	"regexp"

	"github.com/rs/xid"
	"github.com/rzbill/txlog/internal/clock"
	"github.com/rzbill/txlog/internal/metrics"
	"github.com/rzbill/txlog/internal/storage"
	"github.com/rzbill/txlog/pkg/log"
	"golang.org/x/xerrors"
)

// Partition names of the persisted layouts.
const (
	partitionMain         = "main"
	partitionTransactions = "transactions"
	partitionCommits      = "commits"
)

const (
	kindSimple  = "simple"
	kindBatched = "batched"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

func simpleSchema() storage.Schema {
	return storage.Schema{
		Version: storage.SchemaVersion,
		Kind:    kindSimple,
		Partitions: []storage.PartitionSpec{
			{Name: partitionMain, Indexes: []string{timeIndex}},
		},
	}
}

func batchedSchema() storage.Schema {
	return storage.Schema{
		Version: storage.SchemaVersion,
		Kind:    kindBatched,
		Partitions: []storage.PartitionSpec{
			{Name: partitionTransactions, Indexes: []string{timeIndex}},
			{Name: partitionCommits, Indexes: []string{timeIndex}},
		},
	}
}

type state int

const (
	stateClosed state = iota
	stateOpen
)

// lifecycle implements the open/close/clear state machine shared by both log
// variants. The store handle is only set in stateOpen.
type lifecycle struct {
	name   string
	schema storage.Schema

	driver  storage.Driver
	metrics *metrics.Log
	// setupErr is a configuration error reported by Open and Clear.
	setupErr error

	base   log.Logger
	logger log.Logger
	clock  *clock.Clock

	onOpen  func()
	onClose func()
	onClear func()

	state   state
	store   storage.Store
	session xid.ID
}

func newLifecycle[T any](name string, schema storage.Schema, opts Options[T]) lifecycle {
	base := opts.logger().
		WithComponent("txlog").
		With(log.Str("log", name), log.Str("variant", schema.Kind))

	l := lifecycle{
		name:    name,
		schema:  schema,
		base:    base,
		logger:  base,
		clock:   clock.New(),
		onOpen:  opts.Hooks.OnOpen,
		onClose: opts.Hooks.OnClose,
		onClear: opts.Hooks.OnClear,
	}

	l.driver, l.setupErr = opts.newDriver(name)
	if l.setupErr != nil {
		return l
	}

	l.metrics, l.setupErr = metrics.NewLog(opts.Registerer, name, schema.Kind)

	return l
}

// Name returns the name of the log.
func (l *lifecycle) Name() string {
	return l.name
}

// IsOpen returns true between a successful Open and the next Close.
func (l *lifecycle) IsOpen() bool {
	return l.state == stateOpen
}

// Open opens the underlying store, creating its partitions on first use.
func (l *lifecycle) Open(ctx context.Context) error {
	if l.state == stateOpen {
		return ErrAlreadyOpen
	}

	err := l.prepare(ctx)
	if err != nil {
		return err
	}

	st, err := l.driver.Open(l.name, l.schema)
	if err != nil {
		return xerrors.Errorf("failed to open log '%s': %w", l.name, err)
	}

	l.store = st
	l.state = stateOpen
	l.session = xid.New()
	l.logger = l.base.With(log.Str("session", l.session.String()))

	l.logger.Info("log opened")
	fire(l.logger, "open", l.onOpen)

	return nil
}

// Close releases the store handle. The log is closed afterwards even if the
// store reports an error.
func (l *lifecycle) Close() error {
	if l.state == stateClosed {
		return ErrAlreadyClosed
	}

	err := l.store.Close()

	l.store = nil
	l.state = stateClosed

	if err != nil {
		l.logger.Error("failed to close store", log.Err(err))
		l.logger = l.base
		return xerrors.Errorf("failed to close log '%s': %w", l.name, err)
	}

	l.logger.Info("log closed")
	fire(l.logger, "close", l.onClose)

	l.logger = l.base

	return nil
}

// Clear irreversibly deletes every record persisted under the name of the log.
func (l *lifecycle) Clear(ctx context.Context) error {
	if l.state == stateOpen {
		return ErrCannotClearWhileOpen
	}

	err := l.prepare(ctx)
	if err != nil {
		return err
	}

	err = l.driver.Remove(l.name)
	if err != nil {
		return xerrors.Errorf("failed to clear log '%s': %w", l.name, err)
	}

	l.logger.Info("log cleared")
	fire(l.logger, "clear", l.onClear)

	return nil
}

// Exists returns true when data is persisted under the name of the log. It
// does not create anything, whatever the state of the log.
func (l *lifecycle) Exists(ctx context.Context) (bool, error) {
	err := l.prepare(ctx)
	if err != nil {
		return false, err
	}

	found, err := l.driver.Exists(l.name)
	if err != nil {
		return false, xerrors.Errorf("failed to look up log '%s': %w", l.name, err)
	}

	return found, nil
}

func (l *lifecycle) prepare(ctx context.Context) error {
	if l.setupErr != nil {
		return l.setupErr
	}

	if !namePattern.MatchString(l.name) {
		return xerrors.Errorf("'%s': %w", l.name, ErrInvalidName)
	}

	return ctx.Err()
}

// active returns the store of an open log.
func (l *lifecycle) active() (storage.Store, error) {
	if l.state != stateOpen {
		return nil, ErrLogClosed
	}
	return l.store, nil
}
