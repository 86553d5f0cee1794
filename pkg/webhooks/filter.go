package webhooks

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/gatewatch/gatewatch/pkg/events"
)

// FilterSet is a parsed per-webhook filter specification. All entries
// must pass for an event to be delivered; an empty set matches every
// event. Specifications are parsed once at registration so malformed
// filters are rejected early instead of at evaluation time.
type FilterSet struct {
	conds []fieldCondition
}

type fieldCondition struct {
	path string
	cond condition
}

// condition evaluates a single operator against a resolved field value.
// ok is false when the field path did not resolve.
type condition interface {
	matches(value any, ok bool) bool
}

// Empty reports whether the set contains no conditions.
func (f FilterSet) Empty() bool { return len(f.conds) == 0 }

// Matches evaluates all conditions against the event, short-circuiting
// on the first failure.
func (f FilterSet) Matches(event *events.Event) bool {
	for _, fc := range f.conds {
		value, ok := event.Field(fc.path)
		if !fc.cond.matches(value, ok) {
			return false
		}
	}
	return true
}

// ParseFilterSet parses a raw filter specification. Each entry maps a
// dot-separated field path to either a literal (equality test) or an
// operator object such as {"$gte": 5} or {"$regex": "^sev", "$options": "i"}.
func ParseFilterSet(spec map[string]any) (FilterSet, error) {
	if len(spec) == 0 {
		return FilterSet{}, nil
	}

	conds := make([]fieldCondition, 0, len(spec))
	for path, raw := range spec {
		if path == "" {
			return FilterSet{}, fmt.Errorf("empty field path")
		}
		cond, err := parseCondition(raw)
		if err != nil {
			return FilterSet{}, fmt.Errorf("field %q: %w", path, err)
		}
		conds = append(conds, fieldCondition{path: path, cond: cond})
	}
	return FilterSet{conds: conds}, nil
}

func parseCondition(raw any) (condition, error) {
	obj, isMap := raw.(map[string]any)
	if !isMap || !hasOperatorKey(obj) {
		return eqCondition{want: raw}, nil
	}

	var conds []condition
	options, _ := obj["$options"].(string)

	for op, operand := range obj {
		switch op {
		case "$eq":
			conds = append(conds, eqCondition{want: operand})
		case "$ne":
			conds = append(conds, neCondition{want: operand})
		case "$in", "$nin":
			seq, ok := toSlice(operand)
			if !ok {
				return nil, fmt.Errorf("%s operand must be a sequence", op)
			}
			conds = append(conds, membershipCondition{set: seq, negate: op == "$nin"})
		case "$gt", "$gte", "$lt", "$lte":
			conds = append(conds, orderedCondition{op: op, operand: operand})
		case "$regex":
			pattern, ok := operand.(string)
			if !ok {
				return nil, fmt.Errorf("$regex operand must be a string")
			}
			if strings.Contains(options, "i") {
				pattern = "(?i)" + pattern
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("invalid $regex pattern: %w", err)
			}
			conds = append(conds, regexCondition{re: re})
		case "$options":
			// consumed alongside $regex
		default:
			return nil, fmt.Errorf("unknown operator %q", op)
		}
	}

	if len(conds) == 0 {
		return nil, fmt.Errorf("no operator in condition object")
	}
	if len(conds) == 1 {
		return conds[0], nil
	}
	return allCondition(conds), nil
}

func hasOperatorKey(obj map[string]any) bool {
	for k := range obj {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}

// eqCondition matches when the value equals the operand. An absent
// field matches only a nil operand.
type eqCondition struct{ want any }

func (c eqCondition) matches(value any, ok bool) bool {
	if !ok {
		return c.want == nil
	}
	return looseEqual(value, c.want)
}

// neCondition is the negation of eqCondition; an absent field differs
// from any non-nil operand.
type neCondition struct{ want any }

func (c neCondition) matches(value any, ok bool) bool {
	return !(eqCondition{want: c.want}).matches(value, ok)
}

type membershipCondition struct {
	set    []any
	negate bool
}

func (c membershipCondition) matches(value any, ok bool) bool {
	found := false
	if ok {
		for _, candidate := range c.set {
			if looseEqual(value, candidate) {
				found = true
				break
			}
		}
	}
	if c.negate {
		return !found
	}
	return found
}

// orderedCondition compares numerically when both sides coerce to
// float64, lexically when both are strings, and fails otherwise.
// Absent fields always fail ordered comparisons.
type orderedCondition struct {
	op      string
	operand any
}

func (c orderedCondition) matches(value any, ok bool) bool {
	if !ok {
		return false
	}
	if lhs, lok := toFloat(value); lok {
		if rhs, rok := toFloat(c.operand); rok {
			return compareOrdered(c.op, lhs, rhs)
		}
		return false
	}
	ls, lok := value.(string)
	rs, rok := c.operand.(string)
	if lok && rok {
		switch {
		case ls < rs:
			return compareOrdered(c.op, 0, 1)
		case ls > rs:
			return compareOrdered(c.op, 1, 0)
		default:
			return compareOrdered(c.op, 0, 0)
		}
	}
	return false
}

func compareOrdered(op string, lhs, rhs float64) bool {
	switch op {
	case "$gt":
		return lhs > rhs
	case "$gte":
		return lhs >= rhs
	case "$lt":
		return lhs < rhs
	case "$lte":
		return lhs <= rhs
	}
	return false
}

// regexCondition matches the pattern against the stringified value.
type regexCondition struct{ re *regexp.Regexp }

func (c regexCondition) matches(value any, ok bool) bool {
	if !ok {
		return false
	}
	return c.re.MatchString(fmt.Sprint(value))
}

// allCondition is the conjunction of several operators applied to the
// same field, e.g. {"$gte": 5, "$lt": 10}.
type allCondition []condition

func (c allCondition) matches(value any, ok bool) bool {
	for _, sub := range c {
		if !sub.matches(value, ok) {
			return false
		}
	}
	return true
}

// looseEqual compares with numeric coercion so that a JSON-decoded
// float64(5) equals an int 5 from a literal spec.
func looseEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func toSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
