package liquid

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ValueKind discriminates the tagged-variant Value type (spec.md §9: "The
// dynamic object model in the source becomes a tagged variant").
type ValueKind int

const (
	VNil ValueKind = iota
	VBool
	VInt
	VFloat
	VString
	VArray
	VMap
	VDrop
	VRange
	VUndefined
)

var valueKindNames = map[ValueKind]string{
	VNil: "nil", VBool: "bool", VInt: "integer", VFloat: "float",
	VString: "string", VArray: "array", VMap: "map", VDrop: "drop",
	VRange: "range", VUndefined: "undefined",
}

func (k ValueKind) String() string { return valueKindNames[k] }

// orderedMap preserves insertion order for map iteration: setting a key
// again replaces its value but keeps the key at its first position.
type orderedMap struct {
	keys   []string
	values map[string]Value
}

func newOrderedMap() *orderedMap {
	return &orderedMap{values: make(map[string]Value)}
}

func (m *orderedMap) set(key string, v Value) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

func (m *orderedMap) get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *orderedMap) len() int { return len(m.keys) }

// Set/Get/Len are the exported forms of set/get/len, for callers outside
// the package building a map Value by hand (e.g. a host CLI converting
// JSON input into template variables).
func (m *orderedMap) Set(key string, v Value) { m.set(key, v) }
func (m *orderedMap) Get(key string) (Value, bool) { return m.get(key) }
func (m *orderedMap) Len() int { return m.len() }

// Value is the single runtime value type every expression evaluates to.
// Only one of the typed fields is meaningful, selected by Kind. Drop holds
// a host-provided object implementing the Drop capability; Undefined holds
// the policy that produced the sentinel.
type Value struct {
	Kind ValueKind

	Bool  bool
	Int   int64
	Float float64
	Str   string
	Array []Value
	Map   *orderedMap
	Drop  Drop
	Range [2]int64

	// Safe marks a string value as not requiring autoescape, e.g. literals
	// typed directly into a template, or the output of the "safe" filter.
	Safe bool

	// isSingleton marks the package-level Empty/Blank/ContinueValue
	// constants so they can be told apart from an ordinary string that
	// happens to share their sentinel payload.
	isSingleton bool

	// UndefinedPolicy and UndefinedHint are populated only when Kind ==
	// VUndefined, recording the policy that produced the sentinel and the
	// root variable name of the path that failed to resolve (for
	// DebugUndefined's string form).
	UndefinedPolicy UndefinedPolicy
	UndefinedHint   string
}

// Process-wide singleton constants (spec.md §9).
var (
	Nil           = Value{Kind: VNil}
	Empty         = Value{Kind: VString, Str: "__empty__singleton__", isSingleton: true}
	Blank         = Value{Kind: VString, Str: "__blank__singleton__", isSingleton: true}
	ContinueValue = Value{Kind: VString, Str: "__continue__singleton__", isSingleton: true}
)

// isEmptySingleton/isBlankSingleton/isContinueSingleton distinguish the
// singletons from ordinary strings that happen to share their sentinel
// payload: besides Kind + Str, they require the unexported isSingleton
// flag, which only the package-level constants carry (a string literal
// holding the same sentinel text is an ordinary string).
func isEmptySingleton(v Value) bool    { return v.Kind == VString && v.Str == Empty.Str && v.isSingleton }
func isBlankSingleton(v Value) bool    { return v.Kind == VString && v.Str == Blank.Str && v.isSingleton }
func isContinueSingleton(v Value) bool { return v.Kind == VString && v.Str == ContinueValue.Str && v.isSingleton }

func BoolValue(b bool) Value          { return Value{Kind: VBool, Bool: b} }
func IntValue(n int64) Value          { return Value{Kind: VInt, Int: n} }
func FloatValue(f float64) Value      { return Value{Kind: VFloat, Float: f} }
func StringValue(s string) Value      { return Value{Kind: VString, Str: s} }
func SafeStringValue(s string) Value  { return Value{Kind: VString, Str: s, Safe: true} }
func ArrayValue(vs []Value) Value     { return Value{Kind: VArray, Array: vs} }
func RangeValue(a, b int64) Value     { return Value{Kind: VRange, Range: [2]int64{a, b}} }
func DropValue(d Drop) Value          { return Value{Kind: VDrop, Drop: d} }
func UndefinedValue(policy UndefinedPolicy, hint string) Value {
	return Value{Kind: VUndefined, UndefinedPolicy: policy, UndefinedHint: hint}
}

func NewMap() *orderedMap { return newOrderedMap() }

func MapValue(m *orderedMap) Value { return Value{Kind: VMap, Map: m} }

// IsTrue implements Liquid truthiness: everything is truthy except false,
// nil, a Strict/StrictDefault undefined, and a drop projecting onto false
// or nil. Empty string, 0, 0.0, empty array and empty map are truthy.
func (v Value) IsTrue() bool {
	switch v.Kind {
	case VNil:
		return false
	case VBool:
		return v.Bool
	case VUndefined:
		return v.UndefinedPolicy != PolicyStrict && v.UndefinedPolicy != PolicyStrictDefault
	case VDrop:
		// A to-liquid-capable drop's projection is consulted before
		// truthiness, e.g. a drop that projects onto nil/false.
		switch p := v.Drop.ToLiquid(); p.Kind {
		case VNil:
			return false
		case VBool:
			return p.Bool
		default:
			return true
		}
	default:
		return true
	}
}

// projectDrop consults a VDrop's ToLiquid projection once, so comparison
// and truthiness logic can operate on the projected value instead of
// falling through to a "drops never compare equal" default (spec.md §4.5).
// Not recursive: a drop whose projection is itself another drop (e.g. the
// built-in loop drops) is left as VDrop.
func projectDrop(v Value) Value {
	if v.Kind == VDrop {
		return v.Drop.ToLiquid()
	}
	return v
}

// dropsEqual compares two drops that both remained VDrop after projection,
// by interface identity. Recovers from a non-comparable underlying type
// instead of panicking.
func dropsEqual(a, b Drop) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

// toRangeEndpoint coerces a Value to an integer range endpoint; non-numeric
// values coerce to 0 per spec.md §3.2, and the result is clamped to the
// math.MinInt32..math.MaxInt32 range.
func (v Value) toRangeEndpoint() int64 {
	var n int64
	switch v.Kind {
	case VInt:
		n = v.Int
	case VFloat:
		n = int64(v.Float)
	case VString:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
		if err == nil {
			n = parsed
		}
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	if n < math.MinInt32 {
		return math.MinInt32
	}
	return n
}

func (v Value) toInt() int64 {
	switch v.Kind {
	case VInt:
		return v.Int
	case VFloat:
		return int64(v.Float)
	case VString:
		n, err := strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
		if err != nil {
			return 0
		}
		return n
	case VBool:
		if v.Bool {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// toSlice materializes any iterable Value (array, range, map-as-pairs) as
// a slice of Values for the for/tablerow loop drivers.
func (v Value) toSlice() []Value {
	switch v.Kind {
	case VArray:
		return v.Array
	case VRange:
		start, stop := v.Range[0], v.Range[1]
		if stop < start {
			return nil
		}
		out := make([]Value, 0, stop-start+1)
		for i := start; i <= stop; i++ {
			out = append(out, IntValue(i))
		}
		return out
	case VMap:
		out := make([]Value, 0, v.Map.len())
		for _, k := range v.Map.keys {
			val, _ := v.Map.get(k)
			pair := ArrayValue([]Value{StringValue(k), val})
			out = append(out, pair)
		}
		return out
	default:
		return nil
	}
}

// contains implements the `contains` operator: substring for strings,
// membership for arrays, key presence for maps.
func (v Value) contains(other Value) bool {
	switch v.Kind {
	case VString:
		return strings.Contains(v.Str, other.String())
	case VArray:
		for _, el := range v.Array {
			if valuesEqual(el, other) {
				return true
			}
		}
		return false
	case VMap:
		_, ok := v.Map.get(other.String())
		return ok
	default:
		return false
	}
}

// String coerces a Value to its template-output string form (spec.md
// §4.5): booleans render as "true"/"false"; nil/undefined render as ""
// (except a Debug undefined, which renders a hint naming the missing
// variable); sequences concatenate their elements with no separator; maps
// render as empty string; numbers use the shortest round-trip representation.
func (v Value) String() string {
	switch v.Kind {
	case VNil:
		return ""
	case VUndefined:
		if v.UndefinedPolicy == PolicyDebug {
			return fmt.Sprintf("'%s' is undefined", v.UndefinedHint)
		}
		return ""
	case VBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case VInt:
		return strconv.FormatInt(v.Int, 10)
	case VFloat:
		return formatFloat(v.Float)
	case VString:
		if isEmptySingleton(v) || isBlankSingleton(v) || isContinueSingleton(v) {
			return ""
		}
		return v.Str
	case VArray:
		var b strings.Builder
		for _, el := range v.Array {
			b.WriteString(el.String())
		}
		return b.String()
	case VMap:
		return ""
	case VRange:
		return fmt.Sprintf("%d..%d", v.Range[0], v.Range[1])
	case VDrop:
		if s, ok := v.Drop.(fmt.Stringer); ok {
			return s.String()
		}
		return ""
	default:
		return ""
	}
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// valuesEqual implements Liquid structural equality, including the
// singleton projection rules: Empty equals any empty string/array/map,
// Blank equals any whitespace-only string or empty array/map, Nil equals
// itself and nothing else (spec.md §4.5).
func valuesEqual(a, b Value) bool {
	a, b = projectDrop(a), projectDrop(b)
	if isEmptySingleton(a) || isEmptySingleton(b) {
		other := a
		if isEmptySingleton(a) {
			other = b
		}
		return isEmptyLike(other)
	}
	if isBlankSingleton(a) || isBlankSingleton(b) {
		other := a
		if isBlankSingleton(a) {
			other = b
		}
		return isBlankLike(other)
	}
	if a.Kind == VNil || b.Kind == VNil {
		return a.Kind == VNil && b.Kind == VNil
	}
	if a.Kind != b.Kind {
		// Allow numeric cross-comparison (int vs float).
		if (a.Kind == VInt || a.Kind == VFloat) && (b.Kind == VInt || b.Kind == VFloat) {
			return a.asFloat() == b.asFloat()
		}
		return false
	}
	switch a.Kind {
	case VBool:
		return a.Bool == b.Bool
	case VInt:
		return a.Int == b.Int
	case VFloat:
		return a.Float == b.Float
	case VString:
		return a.Str == b.Str
	case VArray:
		if len(a.Array) != len(b.Array) {
			return false
		}
		for i := range a.Array {
			if !valuesEqual(a.Array[i], b.Array[i]) {
				return false
			}
		}
		return true
	case VRange:
		return a.Range == b.Range
	case VDrop:
		return dropsEqual(a.Drop, b.Drop)
	case VMap:
		if a.Map.len() != b.Map.len() {
			return false
		}
		for _, k := range a.Map.keys {
			av, _ := a.Map.get(k)
			bv, ok := b.Map.get(k)
			if !ok || !valuesEqual(av, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func isEmptyLike(v Value) bool {
	switch v.Kind {
	case VString:
		return v.Str == "" || isEmptySingleton(v)
	case VArray:
		return len(v.Array) == 0
	case VMap:
		return v.Map.len() == 0
	default:
		return false
	}
}

func isBlankLike(v Value) bool {
	switch v.Kind {
	case VString:
		return strings.TrimSpace(v.Str) == ""
	case VArray:
		return len(v.Array) == 0
	case VMap:
		return v.Map.len() == 0
	default:
		return false
	}
}

func (v Value) asFloat() float64 {
	if v.Kind == VFloat {
		return v.Float
	}
	return float64(v.Int)
}

// compareValues implements ordered comparison: only between two numbers.
func compareValues(a, b Value) (int, bool) {
	a, b = projectDrop(a), projectDrop(b)
	if (a.Kind != VInt && a.Kind != VFloat) || (b.Kind != VInt && b.Kind != VFloat) {
		return 0, false
	}
	af, bf := a.asFloat(), b.asFloat()
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	default:
		return 0, true
	}
}

// sortedMapKeys returns a map's keys sorted, a deterministic key ordering
// distinct from insertion order. No filter in this package calls it.
func sortedMapKeys(m *orderedMap) []string {
	keys := append([]string(nil), m.keys...)
	sort.Strings(keys)
	return keys
}
