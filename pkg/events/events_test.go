package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("assigns id and timestamp", func(t *testing.T) {
		event := New("student.created", map[string]any{"name": "Ada"}, nil)

		assert.NotEmpty(t, event.ID)
		assert.Equal(t, "student.created", event.Type)
		assert.WithinDuration(t, time.Now().UTC(), event.CreatedAt, time.Second)
	})

	t.Run("unique ids", func(t *testing.T) {
		a := New("student.created", nil, nil)
		b := New("student.created", nil, nil)
		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("metadata defaults", func(t *testing.T) {
		event := New("student.created", nil, nil)

		assert.Equal(t, DefaultSource, event.Metadata["source"])
		assert.Equal(t, DefaultSchemaVersion, event.Metadata["schema_version"])
		ts, ok := event.Metadata["timestamp"].(string)
		require.True(t, ok)
		_, err := time.Parse(time.RFC3339, ts)
		assert.NoError(t, err)
	})

	t.Run("caller metadata wins over defaults", func(t *testing.T) {
		event := New("student.created", nil, map[string]any{
			"source":   "importer",
			"trace_id": "t-1",
		})

		assert.Equal(t, "importer", event.Metadata["source"])
		assert.Equal(t, "t-1", event.Metadata["trace_id"])
		assert.Equal(t, DefaultSchemaVersion, event.Metadata["schema_version"])
	})

	t.Run("input maps are copied", func(t *testing.T) {
		data := map[string]any{"name": "Ada"}
		metadata := map[string]any{"trace_id": "t-1"}
		event := New("student.created", data, metadata)

		data["name"] = "mutated"
		metadata["trace_id"] = "mutated"

		assert.Equal(t, "Ada", event.Data["name"])
		assert.Equal(t, "t-1", event.Metadata["trace_id"])
	})
}

func TestEvent_Field(t *testing.T) {
	event := New("security.alert", map[string]any{
		"severity": "critical",
		"location": map[string]any{"building": "north"},
	}, map[string]any{
		"source": "sensor-12",
	})

	tests := []struct {
		name   string
		path   string
		want   any
		wantOK bool
	}{
		{name: "type", path: "type", want: "security.alert", wantOK: true},
		{name: "id", path: "id", want: event.ID, wantOK: true},
		{name: "data field", path: "data.severity", want: "critical", wantOK: true},
		{name: "nested data field", path: "data.location.building", want: "north", wantOK: true},
		{name: "metadata field", path: "metadata.source", want: "sensor-12", wantOK: true},
		{name: "missing field", path: "data.missing", wantOK: false},
		{name: "path through non-map", path: "data.severity.deeper", wantOK: false},
		{name: "empty path", path: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := event.Field(tt.path)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	root := map[string]any{
		"a": map[string]any{
			"b": map[string]any{
				"c": 42,
			},
		},
		"nil_value": nil,
	}

	t.Run("deep path", func(t *testing.T) {
		got, ok := Resolve(root, "a.b.c")
		require.True(t, ok)
		assert.Equal(t, 42, got)
	})

	t.Run("intermediate map", func(t *testing.T) {
		got, ok := Resolve(root, "a.b")
		require.True(t, ok)
		assert.Equal(t, map[string]any{"c": 42}, got)
	})

	t.Run("present nil value resolves", func(t *testing.T) {
		got, ok := Resolve(root, "nil_value")
		assert.True(t, ok)
		assert.Nil(t, got)
	})

	t.Run("missing key", func(t *testing.T) {
		_, ok := Resolve(root, "a.x")
		assert.False(t, ok)
	})
}
