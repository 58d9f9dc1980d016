package histostore

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with the events histostore emits. Successful
// operations log at Debug; failures log at Error with an "error" attribute.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger on handler. A nil handler writes text to
// stderr at Info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NoopLogger discards everything.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

func (l *Logger) finished(ctx context.Context, ok, failed string, err error, attrs ...slog.Attr) {
	if err != nil {
		l.LogAttrs(ctx, slog.LevelError, failed, append(attrs, slog.Any("error", err))...)
		return
	}
	l.LogAttrs(ctx, slog.LevelDebug, ok, attrs...)
}

// LogEncode logs a template encode.
func (l *Logger) LogEncode(ctx context.Context, path string, histograms int, err error) {
	l.finished(ctx, "template encoded", "template encode failed", err,
		slog.String("path", path), slog.Int("histograms", histograms))
}

// LogDecode logs a template decode.
func (l *Logger) LogDecode(ctx context.Context, path string, histograms int, err error) {
	l.finished(ctx, "template decoded", "template decode failed", err,
		slog.String("path", path), slog.Int("histograms", histograms))
}

// LogShardWrite logs a shard write.
func (l *Logger) LogShardWrite(ctx context.Context, target string, streams, records int, err error) {
	l.finished(ctx, "shard written", "shard write failed", err,
		slog.String("target", target), slog.Int("streams", streams), slog.Int("records", records))
}

// LogAggregate logs an aggregation.
func (l *Logger) LogAggregate(ctx context.Context, pattern string, shards, records int, err error) {
	l.finished(ctx, "aggregation completed", "aggregation failed", err,
		slog.String("pattern", pattern), slog.Int("shards", shards), slog.Int("records", records))
}
