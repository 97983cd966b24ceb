package logging

import (
	"context"
	"log/slog"
)

// sink is one destination of a fanout. Records for which skip returns true
// never reach the handler.
type sink struct {
	handler slog.Handler
	skip    func(slog.Record) bool
}

func (s sink) accepts(record slog.Record) bool {
	return s.skip == nil || !s.skip(record)
}

// fanoutHandler writes each record to every sink that accepts it. The CLI
// pairs the log file with an optional stderr console that leaves out records
// it already renders itself.
type fanoutHandler struct {
	sinks []sink
}

func newFanoutHandler(sinks ...sink) slog.Handler {
	kept := make([]sink, 0, len(sinks))
	for _, s := range sinks {
		if s.handler != nil {
			kept = append(kept, s)
		}
	}
	switch {
	case len(kept) == 0:
		return NoopHandler{}
	case len(kept) == 1 && kept[0].skip == nil:
		return kept[0].handler
	default:
		return &fanoutHandler{sinks: kept}
	}
}

// skipEventTypes drops records whose own event_type attribute is one of
// types. Attributes bound with Logger.With are not inspected.
func skipEventTypes(types ...string) func(slog.Record) bool {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return func(record slog.Record) bool {
		skip := false
		record.Attrs(func(attr slog.Attr) bool {
			if attr.Key != FieldEventType {
				return true
			}
			_, skip = set[attr.Value.String()]
			return false
		})
		return skip
	}
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range h.sinks {
		if s.handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	last := len(h.sinks) - 1
	for i, s := range h.sinks {
		if !s.handler.Enabled(ctx, record.Level) || !s.accepts(record) {
			continue
		}
		rec := record
		if i < last {
			rec = record.Clone()
		}
		if err := s.handler.Handle(ctx, rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(handler slog.Handler) slog.Handler { return handler.WithAttrs(attrs) })
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(handler slog.Handler) slog.Handler { return handler.WithGroup(name) })
}

func (h *fanoutHandler) derive(fn func(slog.Handler) slog.Handler) slog.Handler {
	next := make([]sink, len(h.sinks))
	for i, s := range h.sinks {
		next[i] = sink{handler: fn(s.handler), skip: s.skip}
	}
	return &fanoutHandler{sinks: next}
}
