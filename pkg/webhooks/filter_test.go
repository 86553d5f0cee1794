package webhooks

import (
	"testing"

	"github.com/gatewatch/gatewatch/pkg/events"
)

func filterEvent() *events.Event {
	return events.New("security.alert", map[string]any{
		"severity": "critical",
		"level":    float64(7),
		"location": map[string]any{
			"building": "north",
			"floor":    float64(2),
		},
	}, map[string]any{
		"source": "sensor-12",
	})
}

func mustParseFilters(t *testing.T, spec map[string]any) FilterSet {
	t.Helper()
	fs, err := ParseFilterSet(spec)
	if err != nil {
		t.Fatalf("Failed to parse filter set: %v", err)
	}
	return fs
}

func TestFilterSet_Matches(t *testing.T) {
	tests := []struct {
		name string
		spec map[string]any
		want bool
	}{
		{
			name: "empty set matches everything",
			spec: nil,
			want: true,
		},
		{
			name: "bare literal equality",
			spec: map[string]any{"data.severity": "critical"},
			want: true,
		},
		{
			name: "bare literal mismatch",
			spec: map[string]any{"data.severity": "low"},
			want: false,
		},
		{
			name: "numeric equality coerces int and float",
			spec: map[string]any{"data.level": 7},
			want: true,
		},
		{
			name: "explicit eq",
			spec: map[string]any{"data.severity": map[string]any{"$eq": "critical"}},
			want: true,
		},
		{
			name: "ne",
			spec: map[string]any{"data.severity": map[string]any{"$ne": "low"}},
			want: true,
		},
		{
			name: "ne mismatch",
			spec: map[string]any{"data.severity": map[string]any{"$ne": "critical"}},
			want: false,
		},
		{
			name: "in",
			spec: map[string]any{"data.severity": map[string]any{"$in": []any{"high", "critical"}}},
			want: true,
		},
		{
			name: "nin",
			spec: map[string]any{"data.severity": map[string]any{"$nin": []any{"low", "medium"}}},
			want: true,
		},
		{
			name: "gt",
			spec: map[string]any{"data.level": map[string]any{"$gt": 5}},
			want: true,
		},
		{
			name: "gte boundary",
			spec: map[string]any{"data.level": map[string]any{"$gte": 7}},
			want: true,
		},
		{
			name: "lt fails",
			spec: map[string]any{"data.level": map[string]any{"$lt": 7}},
			want: false,
		},
		{
			name: "lte boundary",
			spec: map[string]any{"data.level": map[string]any{"$lte": 7}},
			want: true,
		},
		{
			name: "string ordering is lexical",
			spec: map[string]any{"data.severity": map[string]any{"$gt": "aaa"}},
			want: true,
		},
		{
			name: "ordered with mixed types fails",
			spec: map[string]any{"data.severity": map[string]any{"$gt": 5}},
			want: false,
		},
		{
			name: "regex",
			spec: map[string]any{"data.severity": map[string]any{"$regex": "^crit"}},
			want: true,
		},
		{
			name: "regex case insensitive option",
			spec: map[string]any{"data.severity": map[string]any{"$regex": "^CRIT", "$options": "i"}},
			want: true,
		},
		{
			name: "regex case sensitivity without option",
			spec: map[string]any{"data.severity": map[string]any{"$regex": "^CRIT"}},
			want: false,
		},
		{
			name: "nested path",
			spec: map[string]any{"data.location.building": "north"},
			want: true,
		},
		{
			name: "metadata path",
			spec: map[string]any{"metadata.source": "sensor-12"},
			want: true,
		},
		{
			name: "top-level type path",
			spec: map[string]any{"type": "security.alert"},
			want: true,
		},
		{
			name: "multiple conditions AND",
			spec: map[string]any{
				"data.severity": "critical",
				"data.level":    map[string]any{"$gte": 5},
			},
			want: true,
		},
		{
			name: "multiple conditions one fails",
			spec: map[string]any{
				"data.severity": "critical",
				"data.level":    map[string]any{"$gte": 100},
			},
			want: false,
		},
		{
			name: "multiple operators on one field",
			spec: map[string]any{"data.level": map[string]any{"$gte": 5, "$lt": 10}},
			want: true,
		},
		{
			name: "literal object without operators is equality",
			spec: map[string]any{"data.location": map[string]any{"building": "north", "floor": float64(2)}},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := mustParseFilters(t, tt.spec)
			if got := fs.Matches(filterEvent()); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterSet_AbsentField(t *testing.T) {
	tests := []struct {
		name string
		spec map[string]any
		want bool
	}{
		{
			name: "eq against nil matches absent",
			spec: map[string]any{"data.missing": nil},
			want: true,
		},
		{
			name: "eq against value fails on absent",
			spec: map[string]any{"data.missing": "x"},
			want: false,
		},
		{
			name: "ne passes on absent",
			spec: map[string]any{"data.missing": map[string]any{"$ne": "x"}},
			want: true,
		},
		{
			name: "ordered fails on absent",
			spec: map[string]any{"data.missing": map[string]any{"$gt": 1}},
			want: false,
		},
		{
			name: "in fails on absent",
			spec: map[string]any{"data.missing": map[string]any{"$in": []any{"x"}}},
			want: false,
		},
		{
			name: "nin passes on absent",
			spec: map[string]any{"data.missing": map[string]any{"$nin": []any{"x"}}},
			want: true,
		},
		{
			name: "regex fails on absent",
			spec: map[string]any{"data.missing": map[string]any{"$regex": ".*"}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := mustParseFilters(t, tt.spec)
			if got := fs.Matches(filterEvent()); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseFilterSet_Errors(t *testing.T) {
	tests := []struct {
		name string
		spec map[string]any
	}{
		{
			name: "unknown operator",
			spec: map[string]any{"data.x": map[string]any{"$bogus": 1}},
		},
		{
			name: "empty field path",
			spec: map[string]any{"": "x"},
		},
		{
			name: "in operand not a sequence",
			spec: map[string]any{"data.x": map[string]any{"$in": "x"}},
		},
		{
			name: "regex operand not a string",
			spec: map[string]any{"data.x": map[string]any{"$regex": 5}},
		},
		{
			name: "invalid regex pattern",
			spec: map[string]any{"data.x": map[string]any{"$regex": "("}},
		},
		{
			name: "options without regex",
			spec: map[string]any{"data.x": map[string]any{"$options": "i"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseFilterSet(tt.spec); err == nil {
				t.Error("Expected parse error")
			}
		})
	}
}
