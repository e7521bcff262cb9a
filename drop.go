package liquid

import "fmt"

// UndefinedPolicy selects what happens when identifier resolution fails
// (spec.md §4.4).
type UndefinedPolicy int

const (
	// PolicyLax: all operations on the sentinel yield empty/zero; no errors.
	PolicyLax UndefinedPolicy = iota
	// PolicyStrict: any use of the sentinel raises UndefinedError.
	PolicyStrict
	// PolicyStrictDefault: permits substitution via the `default` filter,
	// else raises.
	PolicyStrictDefault
	// PolicyDebug: string form includes a hint of the missing path.
	PolicyDebug
)

// Drop is the capability interface a host object implements to customize
// how it is projected into Liquid (spec.md §9: "Drops ... become a
// capability { to_liquid() -> Value, before_method(name), force_invoke(name,
// args) }"). A type need only implement ToLiquid; BeforeMethod and
// ForceInvoke are optional refinements checked via type assertion.
type Drop interface {
	ToLiquid() Value
}

// BeforeMethodDrop lets a Drop intercept attribute lookups before the
// default map/field projection runs (e.g. to compute a derived property).
type BeforeMethodDrop interface {
	BeforeMethod(name string) (Value, bool)
}

// ForceInvokeDrop lets a Drop expose a method callable with no arguments
// from template attribute syntax (e.g. ".size" invoking a Size() method).
type ForceInvokeDrop interface {
	ForceInvoke(name string, args []Value) (Value, bool)
}

// forloopDrop is the `forloop` object exposed inside a `for` block body.
type forloopDrop struct {
	index      int // 0-based
	length     int
	parentloop *forloopDrop
}

func (f *forloopDrop) ToLiquid() Value { return DropValue(f) }

func (f *forloopDrop) BeforeMethod(name string) (Value, bool) {
	switch name {
	case "first":
		return BoolValue(f.index == 0), true
	case "last":
		return BoolValue(f.index == f.length-1), true
	case "index":
		return IntValue(int64(f.index) + 1), true
	case "index0":
		return IntValue(int64(f.index)), true
	case "rindex":
		return IntValue(int64(f.length - f.index)), true
	case "rindex0":
		return IntValue(int64(f.length - f.index - 1)), true
	case "length":
		return IntValue(int64(f.length)), true
	case "parentloop":
		if f.parentloop == nil {
			return Nil, true
		}
		return f.parentloop.ToLiquid(), true
	default:
		return Value{}, false
	}
}

func (f *forloopDrop) String() string {
	return fmt.Sprintf("forloop(index=%d,length=%d)", f.index+1, f.length)
}

// tablerowloopDrop is the `tablerowloop` object exposed inside a
// `tablerow` block body.
type tablerowloopDrop struct {
	index  int // 0-based
	length int
	cols   int
}

func (t *tablerowloopDrop) ToLiquid() Value { return DropValue(t) }

func (t *tablerowloopDrop) BeforeMethod(name string) (Value, bool) {
	col := t.index % t.cols
	switch name {
	case "first":
		return BoolValue(t.index == 0), true
	case "last":
		return BoolValue(t.index == t.length-1), true
	case "index":
		return IntValue(int64(t.index) + 1), true
	case "index0":
		return IntValue(int64(t.index)), true
	case "rindex":
		return IntValue(int64(t.length - t.index)), true
	case "rindex0":
		return IntValue(int64(t.length - t.index - 1)), true
	case "length":
		return IntValue(int64(t.length)), true
	case "col":
		return IntValue(int64(col) + 1), true
	case "col0":
		return IntValue(int64(col)), true
	case "col_first":
		return BoolValue(col == 0), true
	case "col_last":
		return BoolValue(col == t.cols-1), true
	case "row":
		return IntValue(int64(t.index/t.cols) + 1), true
	default:
		return Value{}, false
	}
}

func (t *tablerowloopDrop) String() string {
	return fmt.Sprintf("tablerowloop(index=%d,length=%d)", t.index+1, t.length)
}
