// Package log provides txlog's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Internally it is backed by
// zerolog, writing either JSON lines or a human readable console format.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormat(log.TextFormat),
//	    log.WithOutput(os.Stderr),
//	)
//	l = l.With(log.Component("txlog"), log.Str("log", "orders"))
//	l.Info("log opened", log.Uint64("transactions", 42))
//
// Libraries that do not want output by default use NewNopLogger.
package log
