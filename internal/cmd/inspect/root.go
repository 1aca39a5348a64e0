package inspect

import (
	"context"

	"github.com/rzbill/txlog/internal/config"
	pebblestore "github.com/rzbill/txlog/internal/storage/pebble"
	"github.com/rzbill/txlog/pkg/log"
	"github.com/rzbill/txlog/pkg/txlog"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

// NewRoot constructs the root Cobra command of the txlog CLI. Configuration
// is resolved from defaults, the --config file, TXLOG_* variables and flags,
// in that order.
func NewRoot() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "txlog",
		Short:         "Inspect and manage transaction logs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "Configuration file (.json, .yaml or .yml)")
	flags.String("data-dir", "", "Data directory (if not specified, uses OS-specific application data directory)")
	flags.String("backend", "", "Storage backend: pebble|bolt")
	flags.String("fsync", "", "Fsync mode: always|interval|never")
	flags.Int("fsync-interval-ms", 0, "When --fsync=interval, group-commit window in ms")
	flags.String("log-level", "", "Log level: debug|info|warn|error")
	flags.String("log-format", "", "Log format: text|json")

	root.AddCommand(
		newStatCommand(a),
		newDumpCommand(a),
		newCommitsCommand(a),
		newAppendCommand(a),
		newClearCommand(a),
	)

	return root
}

// app holds the resolved configuration shared by the subcommands.
type app struct {
	cfg    config.Config
	opts   txlog.Options[[]byte]
	logger log.Logger
}

func (a *app) setup(cmd *cobra.Command) error {
	flags := cmd.Flags()

	path, _ := flags.GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	config.FromEnv(&cfg)

	if flags.Changed("data-dir") {
		cfg.DataDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("backend") {
		cfg.Backend, _ = flags.GetString("backend")
	}
	if flags.Changed("fsync") {
		cfg.Fsync, _ = flags.GetString("fsync")
	}
	if flags.Changed("fsync-interval-ms") {
		cfg.FsyncIntervalMs, _ = flags.GetInt("fsync-interval-ms")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.LogFormat, _ = flags.GetString("log-format")
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	format, err := log.ParseFormat(cfg.LogFormat)
	if err != nil {
		return err
	}
	backend, err := txlog.ParseBackend(cfg.Backend)
	if err != nil {
		return err
	}
	fsync, err := pebblestore.ParseFsyncMode(cfg.Fsync)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = log.NewLogger(
		log.WithLevel(level),
		log.WithFormat(format),
		log.WithOutput(cmd.ErrOrStderr()),
	).WithComponent("cli")

	a.opts = txlog.Options[[]byte]{
		DataDir:       cfg.DataDir,
		Backend:       backend,
		Fsync:         fsync,
		FsyncInterval: cfg.FsyncInterval(),
		Codec:         txlog.RawCodec{},
		Logger:        a.logger,
	}

	a.logger.Debug("configuration resolved",
		log.Str("data_dir", cfg.DataDir),
		log.Str("backend", string(backend)),
		log.Str("fsync", fsync.String()))

	return nil
}

// errUnknownLog is returned by read-only commands for a name holding no log.
var errUnknownLog = xerrors.New("log does not exist")

// withSimple runs fn against the opened simple log named name. Unless create
// is set, the log must already exist.
func (a *app) withSimple(ctx context.Context, name string, create bool,
	fn func(*txlog.SimpleLog[[]byte]) error) error {

	l := txlog.NewSimpleLog(name, a.opts)

	err := mustExist(ctx, l, name, create)
	if err != nil {
		return err
	}

	err = l.Open(ctx)
	if err != nil {
		return hint(err)
	}
	defer l.Close()

	return fn(l)
}

// withBatched runs fn against the opened batched log named name. Unless
// create is set, the log must already exist.
func (a *app) withBatched(ctx context.Context, name string, create bool,
	fn func(*txlog.BatchedLog[[]byte]) error) error {

	l := txlog.NewBatchedLog(name, a.opts)

	err := mustExist(ctx, l, name, create)
	if err != nil {
		return err
	}

	err = l.Open(ctx)
	if err != nil {
		return hint(err)
	}
	defer l.Close()

	return fn(l)
}

func mustExist(ctx context.Context, l interface {
	Exists(context.Context) (bool, error)
}, name string, create bool) error {
	if create {
		return nil
	}

	found, err := l.Exists(ctx)
	if err != nil {
		return err
	}
	if !found {
		return xerrors.Errorf("'%s': %w", name, errUnknownLog)
	}

	return nil
}

func hint(err error) error {
	if xerrors.Is(err, txlog.ErrSchemaMismatch) {
		return xerrors.Errorf("log variant differs, toggle --batched: %w", err)
	}
	return err
}
