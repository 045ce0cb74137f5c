package sandbox

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// undefined marks a lookup that found nothing. It is falsy, survives
// |default, and raises a descriptive error in any other use.
type undefined struct {
	name string
}

func (u undefined) String() string { return fmt.Sprintf("undefined %q", u.name) }

func isUndefined(v any) bool {
	_, ok := v.(undefined)
	return ok
}

// truthy implements boolean coercion: nil, false, zero, empty string,
// empty collection, and undefined are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case undefined:
		return false
	case bool:
		return t
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// formatValue renders a value for output. None and booleans render
// in their canonical capitalized form, whole floats keep one decimal
// place, so 80.0 prints as "80.0" and 7 prints as "7".
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case bool:
		if t {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return formatFloat(t)
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, reprValue(item))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := sortedKeys(t)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, "'"+k+"': "+reprValue(t[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("%v", t)
	}
}

// reprValue is formatValue with strings quoted, for values nested in
// collections.
func reprValue(v any) string {
	if s, ok := v.(string); ok {
		return "'" + s + "'"
	}
	return formatValue(v)
}

func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e16 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// sortedKeys gives deterministic iteration order for maps.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// asFloat converts a numeric value, reporting whether it was numeric.
func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func bothInts(a, b any) (int64, int64, bool) {
	x, okX := a.(int64)
	y, okY := b.(int64)
	if okX && okY {
		return x, y, true
	}
	if bx, ok := a.(bool); ok && okY {
		return boolInt(bx), y, true
	}
	if by, ok := b.(bool); ok && okX {
		return x, boolInt(by), true
	}
	return 0, 0, false
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// valuesEqual compares scalars across the int64/float64 divide.
// Collections never compare equal.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
		return false
	}
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		return ok && as == bs
	}
	return false
}

// compareValues orders two values. Only numbers compare with numbers
// and strings with strings.
func compareValues(a, b any) (int, bool) {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}
	if as, aok := a.(string); aok {
		if bs, bok := b.(string); bok {
			return strings.Compare(as, bs), true
		}
	}
	return 0, false
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "none"
	case undefined:
		return "undefined"
	case bool:
		return "bool"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "string"
	case []any:
		return "list"
	case map[string]any:
		return "dict"
	default:
		return fmt.Sprintf("%T", v)
	}
}
