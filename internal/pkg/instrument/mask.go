package instrument

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/samber/lo"
)

// Masked replaces every hidden value.
const Masked = "***"

// Masker is a case-insensitive set of field names whose values never reach
// the logs. The zero value hides nothing.
type Masker map[string]struct{}

func NewMasker(fields []string) Masker {
	m := make(Masker, len(fields))
	for _, field := range fields {
		if field = strings.ToLower(strings.TrimSpace(field)); field != "" {
			m[field] = struct{}{}
		}
	}
	return m
}

func (m Masker) Hides(key string) bool {
	_, ok := m[strings.ToLower(key)]
	return ok
}

// Data walks decoded JSON and hides the values of masked keys at any depth.
func (m Masker) Data(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if m.Hides(k) {
				out[k] = Masked
				continue
			}
			out[k] = m.Data(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = m.Data(item)
		}
		return out
	default:
		return v
	}
}

// JSON decodes raw and masks the result. It reports false for invalid JSON.
func (m Masker) JSON(raw []byte) (any, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	return m.Data(v), true
}

func (m Masker) jsonText(raw []byte) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || (raw[0] != '{' && raw[0] != '[') {
		return "", false
	}

	v, ok := m.JSON(raw)
	if !ok {
		return "", false
	}

	out, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	return string(out), true
}

func (m Masker) attr(a slog.Attr) slog.Attr {
	if len(m) == 0 {
		return a
	}
	if m.Hides(a.Key) {
		return slog.String(a.Key, Masked)
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		group := a.Value.Group()
		out := make([]slog.Attr, len(group))
		for i, item := range group {
			out[i] = m.attr(item)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindString:
		if text, ok := m.jsonText([]byte(a.Value.String())); ok {
			return slog.String(a.Key, text)
		}
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case map[string]any, []any:
			return slog.Any(a.Key, m.Data(v))
		case map[string]string:
			return slog.Any(a.Key, m.Data(lo.MapValues(v, func(s string, _ string) any { return s })))
		case []byte:
			if text, ok := m.jsonText(v); ok {
				return slog.String(a.Key, text)
			}
		}
	}

	return a
}
