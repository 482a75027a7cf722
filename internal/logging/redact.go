// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyward Contributors

package logging

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Redaction replaces the value of a redacted field.
const Redaction = "***"

// Separator ends a key=value field inside a log message.
const Separator = ";"

// RedactingHandler masks attribute values whose keys match any of its glob
// patterns, and key=value; fields inside the message. Matching ignores case.
type RedactingHandler struct {
	handler  slog.Handler
	patterns []glob.Glob
}

// NewRedactingHandler wraps h. An invalid pattern is an error.
func NewRedactingHandler(h slog.Handler, patterns []string) (*RedactingHandler, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(strings.ToLower(p))
		if err != nil {
			return nil, oops.Code("LOG_REDACT_PATTERN_INVALID").With("pattern", p).Wrap(err)
		}
		compiled = append(compiled, g)
	}
	return &RedactingHandler{handler: h, patterns: compiled}, nil
}

func (h *RedactingHandler) match(key string) bool {
	key = strings.ToLower(key)
	for _, g := range h.patterns {
		if g.Match(key) {
			return true
		}
	}
	return false
}

// Enabled returns true if the level is enabled.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle redacts the record and passes it on.
func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, filterFields(h.match, Redaction, r.Message, Separator), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redact(a))
		return true
	})
	//nolint:wrapcheck // Handler interface requires unwrapped error passthrough
	return h.handler.Handle(ctx, out)
}

// WithAttrs returns a new handler with the given attributes redacted.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redact(a)
	}
	return &RedactingHandler{handler: h.handler.WithAttrs(redacted), patterns: h.patterns}
}

// WithGroup returns a new handler with the given group.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{handler: h.handler.WithGroup(name), patterns: h.patterns}
}

func (h *RedactingHandler) redact(a slog.Attr) slog.Attr {
	if h.match(a.Key) {
		return slog.String(a.Key, Redaction)
	}
	a.Value = a.Value.Resolve()
	switch a.Value.Kind() {
	case slog.KindGroup:
		group := a.Value.Group()
		out := make([]slog.Attr, len(group))
		for i, ga := range group {
			out[i] = h.redact(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindString:
		if s := a.Value.String(); strings.Contains(s, "=") {
			return slog.String(a.Key, filterFields(h.match, Redaction, s, Separator))
		}
	}
	return a
}

// FilterDatum returns message with the value of every key=value field named
// in fields replaced by redaction. Fields are delimited by separator.
func FilterDatum(fields []string, redaction, message, separator string) string {
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return filterFields(func(key string) bool {
		_, ok := set[key]
		return ok
	}, redaction, message, separator)
}

func filterFields(match func(string) bool, redaction, message, separator string) string {
	if separator == "" || !strings.Contains(message, "=") {
		return message
	}
	parts := strings.Split(message, separator)
	changed := false
	for i, part := range parts {
		key, _, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		name := strings.TrimSpace(key)
		if j := strings.LastIndexAny(name, " \t"); j >= 0 {
			name = name[j+1:]
		}
		if match(name) {
			parts[i] = key + "=" + redaction
			changed = true
		}
	}
	if !changed {
		return message
	}
	return strings.Join(parts, separator)
}
