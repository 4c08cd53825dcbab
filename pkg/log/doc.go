// Package log provides runlog's structured logging facade.
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Internally it is backed by Go's
// standard library slog, so output format (text or JSON) and level gating
// come from slog handlers while callers code against the facade.
//
// Quick start
//
//	l := log.NewLogger(log.WithLevel(log.InfoLevel))
//	l = l.With(log.Component("recorder"), log.Str("version", "version_3"))
//	l.Info("metrics flushed", log.Int("rows", 12))
package log
