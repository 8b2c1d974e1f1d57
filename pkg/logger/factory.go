package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the record encoding.
type Format string

const (
	FormatJSON Format = "json"
	// FormatText is what deskctl prints to a terminal.
	FormatText Format = "text"
)

// Option configures New.
type Option func(*settings)

type settings struct {
	level      slog.Level
	format     Format
	output     io.Writer
	attrs      []slog.Attr
	extractors []ContextExtractor
}

func WithLevel(l slog.Level) Option {
	return func(s *settings) { s.level = l }
}

// WithFormat panics on anything but FormatJSON or FormatText.
func WithFormat(f Format) Option {
	if f != FormatJSON && f != FormatText {
		panic(fmt.Sprintf("logger: unknown format %q", f))
	}
	return func(s *settings) { s.format = f }
}

func WithTextFormatter() Option { return WithFormat(FormatText) }

// WithOutput ignores nil writers.
func WithOutput(w io.Writer) Option {
	return func(s *settings) {
		if w != nil {
			s.output = w
		}
	}
}

// WithContextExtractors skips nil extractors.
func WithContextExtractors(extractors ...ContextExtractor) Option {
	return func(s *settings) {
		for _, ex := range extractors {
			if ex != nil {
				s.extractors = append(s.extractors, ex)
			}
		}
	}
}

// WithEnvironment picks level and format for env and tags records with env
// and service. Production and staging get JSON at info; anything else is
// reported as development and gets text at debug.
func WithEnvironment(env, service string) Option {
	return func(s *settings) {
		switch strings.ToLower(env) {
		case "production", "prod", "staging", "stage":
			s.level, s.format = slog.LevelInfo, FormatJSON
		default:
			env = "development"
			s.level, s.format = slog.LevelDebug, FormatText
		}
		if service != "" {
			s.attrs = append(s.attrs, slog.String("service", service))
		}
		s.attrs = append(s.attrs, slog.String("env", env))
	}
}

// ParseLevel accepts slog level names in any case and falls back to info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if l.UnmarshalText([]byte(strings.TrimSpace(s))) != nil {
		return slog.LevelInfo
	}
	return l
}

// New builds a logger writing JSON at info to stderr unless opts say otherwise.
// Stdout stays free for command output.
func New(opts ...Option) *slog.Logger {
	s := settings{level: slog.LevelInfo, format: FormatJSON, output: os.Stderr}
	for _, opt := range opts {
		opt(&s)
	}

	ho := &slog.HandlerOptions{Level: s.level}
	var base slog.Handler = slog.NewJSONHandler(s.output, ho)
	if s.format == FormatText {
		base = slog.NewTextHandler(s.output, ho)
	}

	h := newContextHandler(base, s.extractors)
	if len(s.attrs) > 0 {
		h = h.WithAttrs(s.attrs)
	}
	return slog.New(h)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
