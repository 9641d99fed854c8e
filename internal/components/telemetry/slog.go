package telemetry

import (
	"context"
	"log/slog"
	"os"
	"strconv"
)

// InitSlog installs the default slog handler. Logs go to stderr so they
// never interleave with the grade report on stdout.
func InitSlog(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// SlogAPI reports to a slog.Logger. The zero value uses slog.Default().
type SlogAPI struct {
	Logger *slog.Logger
}

func NewSlogAPI(logger *slog.Logger) SlogAPI {
	return SlogAPI{Logger: logger}
}

func (s SlogAPI) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// report writes params as a "params" group keyed by position.
func (s SlogAPI) report(level slog.Level, msg, id string, params []any) {
	logger := s.logger()
	if !logger.Enabled(context.Background(), level) {
		return
	}
	attrs := make([]slog.Attr, 0, 2)
	if id != "" {
		attrs = append(attrs, slog.String("id", id))
	}
	if len(params) > 0 {
		group := make([]any, 0, len(params))
		for i, p := range params {
			group = append(group, slog.Any(strconv.Itoa(i), p))
		}
		attrs = append(attrs, slog.Group("params", group...))
	}
	logger.LogAttrs(context.Background(), level, msg, attrs...)
}

func (s SlogAPI) ReportBroken(id string, params ...any) {
	s.report(slog.LevelError, "broken component", id, params)
}

func (s SlogAPI) ReportWarning(id string, params ...any) {
	s.report(slog.LevelWarn, "warning", id, params)
}

func (s SlogAPI) ReportDebug(msg string, params ...any) {
	s.report(slog.LevelDebug, msg, "", params)
}

func (s SlogAPI) ReportCount(id string, count int64) {
	s.report(slog.LevelDebug, "count", id, []any{count})
}
