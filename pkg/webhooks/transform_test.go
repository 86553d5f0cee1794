package webhooks

import (
	"reflect"
	"testing"
	"time"

	"github.com/gatewatch/gatewatch/pkg/events"
)

func mustParseTransforms(t *testing.T, spec map[string]any) TransformSet {
	t.Helper()
	ts, err := ParseTransformSet(spec)
	if err != nil {
		t.Fatalf("Failed to parse transform set: %v", err)
	}
	return ts
}

func TestTransformSet_Apply(t *testing.T) {
	event := events.New("student.created", map[string]any{
		"name":  "Ada",
		"grade": float64(7),
		"enrollment": map[string]any{
			"campus": "West",
		},
		"created": "2026-03-01T10:00:00Z",
	}, nil)

	t.Run("empty set returns data unchanged", func(t *testing.T) {
		ts := mustParseTransforms(t, nil)
		got := ts.Apply(event)
		if !reflect.DeepEqual(got, event.Data) {
			t.Errorf("Apply() = %v, want original data", got)
		}
	})

	t.Run("bare string is a source path", func(t *testing.T) {
		ts := mustParseTransforms(t, map[string]any{"student_name": "name"})
		got := ts.Apply(event)
		want := map[string]any{"student_name": "Ada"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Apply() = %v, want %v", got, want)
		}
	})

	t.Run("nested source path", func(t *testing.T) {
		ts := mustParseTransforms(t, map[string]any{"campus": map[string]any{"source": "enrollment.campus"}})
		got := ts.Apply(event)
		if got["campus"] != "West" {
			t.Errorf("campus = %v, want West", got["campus"])
		}
	})

	t.Run("uppercase format", func(t *testing.T) {
		ts := mustParseTransforms(t, map[string]any{"name": map[string]any{"source": "name", "format": "uppercase"}})
		got := ts.Apply(event)
		if got["name"] != "ADA" {
			t.Errorf("name = %v, want ADA", got["name"])
		}
	})

	t.Run("lowercase format", func(t *testing.T) {
		ts := mustParseTransforms(t, map[string]any{"name": map[string]any{"source": "name", "format": "lowercase"}})
		got := ts.Apply(event)
		if got["name"] != "ada" {
			t.Errorf("name = %v, want ada", got["name"])
		}
	})

	t.Run("iso-date format", func(t *testing.T) {
		ts := mustParseTransforms(t, map[string]any{"when": map[string]any{"source": "created", "format": "iso-date"}})
		got := ts.Apply(event)
		if got["when"] != "2026-03-01T10:00:00Z" {
			t.Errorf("when = %v, want 2026-03-01T10:00:00Z", got["when"])
		}
	})

	t.Run("unix-timestamp format", func(t *testing.T) {
		ts := mustParseTransforms(t, map[string]any{"when": map[string]any{"source": "created", "format": "unix-timestamp"}})
		got := ts.Apply(event)
		want, _ := time.Parse(time.RFC3339, "2026-03-01T10:00:00Z")
		if got["when"] != want.Unix() {
			t.Errorf("when = %v, want %v", got["when"], want.Unix())
		}
	})

	t.Run("format is a no-op on incompatible value", func(t *testing.T) {
		ts := mustParseTransforms(t, map[string]any{"grade": map[string]any{"source": "grade", "format": "uppercase"}})
		got := ts.Apply(event)
		if got["grade"] != float64(7) {
			t.Errorf("grade = %v, want 7", got["grade"])
		}
	})

	t.Run("unknown format passes through", func(t *testing.T) {
		ts := mustParseTransforms(t, map[string]any{"name": map[string]any{"source": "name", "format": "rot13"}})
		got := ts.Apply(event)
		if got["name"] != "Ada" {
			t.Errorf("name = %v, want Ada", got["name"])
		}
	})

	t.Run("default applies on absent source", func(t *testing.T) {
		ts := mustParseTransforms(t, map[string]any{"room": map[string]any{"source": "homeroom", "default": "unassigned"}})
		got := ts.Apply(event)
		if got["room"] != "unassigned" {
			t.Errorf("room = %v, want unassigned", got["room"])
		}
	})

	t.Run("default ignored when source present", func(t *testing.T) {
		ts := mustParseTransforms(t, map[string]any{"name": map[string]any{"source": "name", "default": "anon"}})
		got := ts.Apply(event)
		if got["name"] != "Ada" {
			t.Errorf("name = %v, want Ada", got["name"])
		}
	})

	t.Run("absent source without default omits the key", func(t *testing.T) {
		ts := mustParseTransforms(t, map[string]any{"room": "homeroom", "name": "name"})
		got := ts.Apply(event)
		if _, ok := got["room"]; ok {
			t.Error("Expected room to be omitted")
		}
		if got["name"] != "Ada" {
			t.Errorf("name = %v, want Ada", got["name"])
		}
	})
}

func TestParseTransformSet_Errors(t *testing.T) {
	tests := []struct {
		name string
		spec map[string]any
	}{
		{
			name: "missing source",
			spec: map[string]any{"x": map[string]any{"format": "uppercase"}},
		},
		{
			name: "empty source",
			spec: map[string]any{"x": map[string]any{"source": ""}},
		},
		{
			name: "non-string format",
			spec: map[string]any{"x": map[string]any{"source": "a", "format": 5}},
		},
		{
			name: "unsupported spec type",
			spec: map[string]any{"x": 42},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseTransformSet(tt.spec); err == nil {
				t.Error("Expected parse error")
			}
		})
	}
}
