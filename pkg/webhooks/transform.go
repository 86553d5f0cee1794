package webhooks

import (
	"fmt"
	"strings"
	"time"

	"github.com/gatewatch/gatewatch/pkg/events"
)

// TransformSet is a parsed per-webhook payload transformation. Each
// output field is populated from a path within the event data,
// optionally formatted and defaulted. An empty set delivers the event
// data unchanged.
type TransformSet struct {
	fields []transformField
}

type transformField struct {
	key        string
	source     string
	format     string
	def        any
	hasDefault bool
}

// Empty reports whether the set contains no transformations.
func (t TransformSet) Empty() bool { return len(t.fields) == 0 }

// Apply reshapes the event data. With an empty set the original data
// map is returned as-is.
func (t TransformSet) Apply(event *events.Event) map[string]any {
	if len(t.fields) == 0 {
		return event.Data
	}

	out := make(map[string]any, len(t.fields))
	for _, f := range t.fields {
		value, ok := events.Resolve(event.Data, f.source)
		if ok && f.format != "" {
			value = applyFormat(f.format, value)
		}
		if !ok {
			if !f.hasDefault {
				continue
			}
			value = f.def
		}
		out[f.key] = value
	}
	return out
}

// ParseTransformSet parses a raw transformation specification. A bare
// string is a source path into the event data; an object supports
// "source" (required), "format" and "default".
func ParseTransformSet(spec map[string]any) (TransformSet, error) {
	if len(spec) == 0 {
		return TransformSet{}, nil
	}

	fields := make([]transformField, 0, len(spec))
	for key, raw := range spec {
		switch v := raw.(type) {
		case string:
			fields = append(fields, transformField{key: key, source: v})
		case map[string]any:
			source, ok := v["source"].(string)
			if !ok || source == "" {
				return TransformSet{}, fmt.Errorf("field %q: source path is required", key)
			}
			f := transformField{key: key, source: source}
			if format, ok := v["format"]; ok {
				s, ok := format.(string)
				if !ok {
					return TransformSet{}, fmt.Errorf("field %q: format must be a string", key)
				}
				f.format = s
			}
			if def, ok := v["default"]; ok {
				f.def = def
				f.hasDefault = true
			}
			fields = append(fields, f)
		default:
			return TransformSet{}, fmt.Errorf("field %q: spec must be a path string or an object", key)
		}
	}
	return TransformSet{fields: fields}, nil
}

// applyFormat applies a named format. Formats are no-ops on values they
// do not understand, and unrecognized format names pass the value
// through unchanged.
func applyFormat(format string, value any) any {
	switch format {
	case "uppercase":
		if s, ok := value.(string); ok {
			return strings.ToUpper(s)
		}
	case "lowercase":
		if s, ok := value.(string); ok {
			return strings.ToLower(s)
		}
	case "iso-date":
		if t, ok := asTime(value); ok {
			return t.UTC().Format(time.RFC3339)
		}
	case "unix-timestamp":
		if t, ok := asTime(value); ok {
			return t.Unix()
		}
	}
	return value
}

func asTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, true
		}
	case float64:
		return time.Unix(int64(v), 0), true
	case int64:
		return time.Unix(v, 0), true
	case int:
		return time.Unix(int64(v), 0), true
	}
	return time.Time{}, false
}
