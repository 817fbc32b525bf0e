package logging

import (
	"context"
	"log/slog"
)

// BlackholeHandler is the slog.Handler used when no logger is supplied:
// it reports every level as disabled and discards all records.
type BlackholeHandler struct{}

func (h BlackholeHandler) Enabled(context.Context, slog.Level) bool { return false }

func (h BlackholeHandler) Handle(context.Context, slog.Record) error { return nil }

func (h BlackholeHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h BlackholeHandler) WithGroup(string) slog.Handler { return h }
