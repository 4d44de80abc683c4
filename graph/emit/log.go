package emit

import (
	"context"
	"log/slog"
	"maps"
	"slices"
)

// LogEmitter writes events through a structured logger.
//
// Run failures are logged at warn level, everything else at the emitter's
// level (info by default). Meta keys become log attributes.
//
// Example text output:
//
//	level=INFO msg=node_end run_id=1f0c… step=2 node=summarize duration_ms=812
type LogEmitter struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogEmitter creates a LogEmitter. A nil logger selects slog.Default.
func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmitter{logger: logger, level: slog.LevelInfo}
}

// WithLevel returns a copy of l that logs non-error events at level.
func (l *LogEmitter) WithLevel(level slog.Level) *LogEmitter {
	return &LogEmitter{logger: l.logger, level: level}
}

// Emit logs the event.
func (l *LogEmitter) Emit(event Event) {
	attrs := make([]slog.Attr, 0, 3+len(event.Meta))
	attrs = append(attrs, slog.String("run_id", event.RunID), slog.Int("step", event.Step))
	if event.NodeID != "" {
		attrs = append(attrs, slog.String("node", event.NodeID))
	}
	for _, k := range slices.Sorted(maps.Keys(event.Meta)) {
		attrs = append(attrs, slog.Any(k, event.Meta[k]))
	}

	level := l.level
	if event.Msg == MsgRunError {
		level = slog.LevelWarn
	}
	l.logger.LogAttrs(context.Background(), level, event.Msg, attrs...)
}
