package instrument

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// newLogger writes JSON records to w and, when lp is set, to the OTLP log
// pipeline as well.
func newLogger(w io.Writer, cfg *Config, lp *sdklog.LoggerProvider) *slog.Logger {
	sinks := []slog.Handler{slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       parseLevel(cfg.LogLevel),
		AddSource:   true,
		ReplaceAttr: renameAttr,
	})}
	if lp != nil {
		sinks = append(sinks, otelslog.NewHandler(cfg.ServiceName, otelslog.WithLoggerProvider(lp)))
	}

	return slog.New(&recordHandler{
		sinks:   sinks,
		service: cfg.ServiceName,
		mask:    NewMasker(cfg.MaskFields),
	})
}

func renameAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		a.Key = "ts"
	case slog.LevelKey:
		a.Key = "severity"
	case slog.SourceKey:
		src, ok := a.Value.Any().(*slog.Source)
		if !ok {
			return a
		}
		_, rel, found := strings.Cut(src.File, "/internal/")
		if !found {
			return slog.Attr{}
		}
		return slog.String("file", "internal/"+rel+":"+strconv.Itoa(src.Line))
	}
	return a
}

// recordHandler tags records with the service and the correlation id, hides
// masked attributes and fans the result out to every sink.
type recordHandler struct {
	sinks   []slog.Handler
	service string
	mask    Masker
}

func (h *recordHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return slices.ContainsFunc(h.sinks, func(s slog.Handler) bool {
		return s.Enabled(ctx, level)
	})
}

func (h *recordHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.mask.attr(a))
		return true
	})
	if cID := GetCorrelationID(ctx); cID != "" {
		out.AddAttrs(slog.String("_cID", cID))
	}
	out.AddAttrs(slog.String("service", h.service))

	var errs []error
	for _, sink := range h.sinks {
		if sink.Enabled(ctx, out.Level) {
			errs = append(errs, sink.Handle(ctx, out.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (h *recordHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = h.mask.attr(a)
	}
	return h.derive(func(s slog.Handler) slog.Handler { return s.WithAttrs(masked) })
}

func (h *recordHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (h *recordHandler) derive(fn func(slog.Handler) slog.Handler) *recordHandler {
	sinks := make([]slog.Handler, len(h.sinks))
	for i, s := range h.sinks {
		sinks[i] = fn(s)
	}
	return &recordHandler{sinks: sinks, service: h.service, mask: h.mask}
}
