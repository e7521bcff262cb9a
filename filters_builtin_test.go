package liquid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runFilter looks up a registered filter by name and calls it directly,
// bypassing the parser/pipe machinery.
func runFilter(t *testing.T, name string, left Value, args []Value, kwargs map[string]Value) Value {
	t.Helper()
	fn, ok := builtinFilters[name]
	require.True(t, ok, "filter %q not registered", name)
	v, err := fn(left, args, kwargs)
	require.NoError(t, err)
	return v
}

func TestNumericFilters(t *testing.T) {
	tests := []struct {
		name string
		fn   string
		left Value
		args []Value
		want Value
	}{
		{"plus ints", "plus", IntValue(2), []Value{IntValue(3)}, IntValue(5)},
		{"plus mixed promotes to float", "plus", IntValue(2), []Value{FloatValue(0.5)}, FloatValue(2.5)},
		{"minus ints", "minus", IntValue(5), []Value{IntValue(3)}, IntValue(2)},
		{"times ints", "times", IntValue(4), []Value{IntValue(3)}, IntValue(12)},
		{"divided_by ints floors", "divided_by", IntValue(7), []Value{IntValue(2)}, IntValue(3)},
		{"divided_by floats", "divided_by", FloatValue(7), []Value{IntValue(2)}, FloatValue(3.5)},
		{"modulo ints", "modulo", IntValue(7), []Value{IntValue(3)}, IntValue(1)},
		{"abs negative int", "abs", IntValue(-4), nil, IntValue(4)},
		{"abs positive float", "abs", FloatValue(4.2), nil, FloatValue(4.2)},
		{"ceil", "ceil", FloatValue(4.1), nil, IntValue(5)},
		{"floor", "floor", FloatValue(4.9), nil, IntValue(4)},
		{"round no precision", "round", FloatValue(4.6), nil, IntValue(5)},
		{"round with precision", "round", FloatValue(4.567), []Value{IntValue(2)}, FloatValue(4.57)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runFilter(t, tt.fn, tt.left, tt.args, nil)
			assert.Equal(t, tt.want.Kind, got.Kind)
			if got.Kind == VInt {
				assert.Equal(t, tt.want.Int, got.Int)
			} else {
				assert.InDelta(t, tt.want.Float, got.Float, 0.0001)
			}
		})
	}
}

func TestDivisionByZeroErrors(t *testing.T) {
	_, err := builtinFilters["divided_by"](IntValue(1), []Value{IntValue(0)}, nil)
	require.Error(t, err)

	_, err = builtinFilters["modulo"](IntValue(1), []Value{IntValue(0)}, nil)
	require.Error(t, err)
}

func TestArrayFilters(t *testing.T) {
	arr := ArrayValue([]Value{IntValue(3), IntValue(1), IntValue(2)})

	t.Run("size counts array elements and string bytes", func(t *testing.T) {
		assert.Equal(t, int64(3), runFilter(t, "size", arr, nil, nil).Int)
		assert.Equal(t, int64(5), runFilter(t, "size", StringValue("hello"), nil, nil).Int)
	})

	t.Run("first and last", func(t *testing.T) {
		assert.Equal(t, int64(3), runFilter(t, "first", arr, nil, nil).Int)
		assert.Equal(t, int64(2), runFilter(t, "last", arr, nil, nil).Int)
		assert.Equal(t, VNil, runFilter(t, "first", ArrayValue(nil), nil, nil).Kind)
	})

	t.Run("join with default and custom separator", func(t *testing.T) {
		strs := ArrayValue([]Value{StringValue("a"), StringValue("b")})
		assert.Equal(t, "a, b", runFilter(t, "join", strs, nil, nil).Str)
		assert.Equal(t, "a-b", runFilter(t, "join", strs, []Value{StringValue("-")}, nil).Str)
	})

	t.Run("split on separator and empty separator", func(t *testing.T) {
		out := runFilter(t, "split", StringValue("a,b,c"), []Value{StringValue(",")}, nil)
		require.Len(t, out.Array, 3)
		assert.Equal(t, "b", out.Array[1].Str)

		chars := runFilter(t, "split", StringValue("abc"), nil, nil)
		require.Len(t, chars.Array, 3)
	})

	t.Run("reverse", func(t *testing.T) {
		out := runFilter(t, "reverse", arr, nil, nil)
		assert.Equal(t, []int64{2, 1, 3}, []int64{out.Array[0].Int, out.Array[1].Int, out.Array[2].Int})
	})

	t.Run("sort ascending", func(t *testing.T) {
		out := runFilter(t, "sort", arr, nil, nil)
		assert.Equal(t, []int64{1, 2, 3}, []int64{out.Array[0].Int, out.Array[1].Int, out.Array[2].Int})
	})

	t.Run("sort by property key", func(t *testing.T) {
		mk := func(n int64) Value {
			om := NewMap()
			om.Set("n", IntValue(n))
			return MapValue(om)
		}
		items := ArrayValue([]Value{mk(3), mk(1), mk(2)})
		out := runFilter(t, "sort", items, []Value{StringValue("n")}, nil)
		first, _ := out.Array[0].Map.get("n")
		assert.Equal(t, int64(1), first.Int)
	})

	t.Run("uniq removes duplicates preserving first occurrence", func(t *testing.T) {
		dup := ArrayValue([]Value{IntValue(1), IntValue(2), IntValue(1)})
		out := runFilter(t, "uniq", dup, nil, nil)
		require.Len(t, out.Array, 2)
		assert.Equal(t, int64(1), out.Array[0].Int)
		assert.Equal(t, int64(2), out.Array[1].Int)
	})

	t.Run("map projects a property", func(t *testing.T) {
		mk := func(n int64) Value {
			om := NewMap()
			om.Set("n", IntValue(n))
			return MapValue(om)
		}
		items := ArrayValue([]Value{mk(1), mk(2)})
		out := runFilter(t, "map", items, []Value{StringValue("n")}, nil)
		assert.Equal(t, int64(1), out.Array[0].Int)
		assert.Equal(t, int64(2), out.Array[1].Int)
	})

	t.Run("where filters by truthy property", func(t *testing.T) {
		mk := func(active bool) Value {
			om := NewMap()
			om.Set("active", BoolValue(active))
			return MapValue(om)
		}
		items := ArrayValue([]Value{mk(true), mk(false), mk(true)})
		out := runFilter(t, "where", items, []Value{StringValue("active")}, nil)
		assert.Len(t, out.Array, 2)
	})

	t.Run("where filters by property equal to a value", func(t *testing.T) {
		mk := func(kind string) Value {
			om := NewMap()
			om.Set("kind", StringValue(kind))
			return MapValue(om)
		}
		items := ArrayValue([]Value{mk("a"), mk("b"), mk("a")})
		out := runFilter(t, "where", items, []Value{StringValue("kind"), StringValue("a")}, nil)
		assert.Len(t, out.Array, 2)
	})

	t.Run("concat appends arrays", func(t *testing.T) {
		out := runFilter(t, "concat", ArrayValue([]Value{IntValue(1)}), []Value{ArrayValue([]Value{IntValue(2)})}, nil)
		require.Len(t, out.Array, 2)
		assert.Equal(t, int64(2), out.Array[1].Int)
	})

	t.Run("compact drops nil and undefined entries", func(t *testing.T) {
		items := ArrayValue([]Value{IntValue(1), Nil, UndefinedValue(PolicyLax, "x"), IntValue(2)})
		out := runFilter(t, "compact", items, nil, nil)
		assert.Len(t, out.Array, 2)
	})

	t.Run("slice on array with start and length", func(t *testing.T) {
		out := runFilter(t, "slice", arr, []Value{IntValue(1), IntValue(2)}, nil)
		require.Len(t, out.Array, 2)
		assert.Equal(t, int64(1), out.Array[0].Int)
	})

	t.Run("slice negative start wraps from end", func(t *testing.T) {
		out := runFilter(t, "slice", StringValue("liquid"), []Value{IntValue(-3), IntValue(3)}, nil)
		assert.Equal(t, "uid", out.Str)
	})
}

func TestDefaultFilter(t *testing.T) {
	t.Run("nil falls back to default", func(t *testing.T) {
		out := runFilter(t, "default", Nil, []Value{StringValue("fallback")}, nil)
		assert.Equal(t, "fallback", out.Str)
	})

	t.Run("false falls back unless allow_false", func(t *testing.T) {
		out := runFilter(t, "default", BoolValue(false), []Value{StringValue("fallback")}, nil)
		assert.Equal(t, "fallback", out.Str)

		out = runFilter(t, "default", BoolValue(false), []Value{StringValue("fallback")}, map[string]Value{"allow_false": BoolValue(true)})
		assert.False(t, out.Bool)
	})

	t.Run("empty string falls back", func(t *testing.T) {
		out := runFilter(t, "default", StringValue(""), []Value{StringValue("fallback")}, nil)
		assert.Equal(t, "fallback", out.Str)
	})

	t.Run("non-empty value passes through", func(t *testing.T) {
		out := runFilter(t, "default", StringValue("present"), []Value{StringValue("fallback")}, nil)
		assert.Equal(t, "present", out.Str)
	})
}

func TestStringFilters(t *testing.T) {
	tests := []struct {
		name string
		fn   string
		left Value
		args []Value
		want string
	}{
		{"upcase", "upcase", StringValue("abc"), nil, "ABC"},
		{"downcase", "downcase", StringValue("ABC"), nil, "abc"},
		{"capitalize", "capitalize", StringValue("hello WORLD"), nil, "Hello world"},
		{"strip", "strip", StringValue("  hi  "), nil, "hi"},
		{"lstrip", "lstrip", StringValue("  hi  "), nil, "hi  "},
		{"rstrip", "rstrip", StringValue("  hi  "), nil, "  hi"},
		{"strip_newlines", "strip_newlines", StringValue("a\nb\r\nc"), nil, "abc"},
		{"replace", "replace", StringValue("a-a-a"), []Value{StringValue("a"), StringValue("b")}, "b-b-b"},
		{"replace_first", "replace_first", StringValue("a-a-a"), []Value{StringValue("a"), StringValue("b")}, "b-a-a"},
		{"remove", "remove", StringValue("a-a-a"), []Value{StringValue("a")}, "--"},
		{"remove_first", "remove_first", StringValue("a-a-a"), []Value{StringValue("a")}, "-a-a"},
		{"append", "append", StringValue("hello"), []Value{StringValue(" world")}, "hello world"},
		{"prepend", "prepend", StringValue("world"), []Value{StringValue("hello ")}, "hello world"},
		{"escape", "escape", StringValue(`<a href="x">&'`), nil, "&lt;a href=&#34;x&#34;&gt;&amp;&#39;"},
		{"url_encode", "url_encode", StringValue("a b"), nil, "a+b"},
		{"newline_to_br", "newline_to_br", StringValue("a\nb"), nil, "a<br />\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runFilter(t, tt.fn, tt.left, tt.args, nil)
			assert.Equal(t, tt.want, got.Str)
		})
	}
}

func TestTruncateFilters(t *testing.T) {
	t.Run("truncate under limit passes through", func(t *testing.T) {
		out := runFilter(t, "truncate", StringValue("short"), []Value{IntValue(50)}, nil)
		assert.Equal(t, "short", out.Str)
	})

	t.Run("truncate cuts and appends suffix", func(t *testing.T) {
		out := runFilter(t, "truncate", StringValue("1234567890"), []Value{IntValue(6)}, nil)
		assert.Equal(t, "123...", out.Str)
	})

	t.Run("truncatewords", func(t *testing.T) {
		out := runFilter(t, "truncatewords", StringValue("one two three four"), []Value{IntValue(2)}, nil)
		assert.Equal(t, "one two...", out.Str)
	})

	t.Run("truncatewords under limit passes through", func(t *testing.T) {
		out := runFilter(t, "truncatewords", StringValue("one two"), []Value{IntValue(5)}, nil)
		assert.Equal(t, "one two", out.Str)
	})
}

func TestURLDecodeFilter(t *testing.T) {
	out := runFilter(t, "url_decode", StringValue("a+b%20c"), nil, nil)
	assert.Equal(t, "a b c", out.Str)

	_, err := builtinFilters["url_decode"](StringValue("%zz"), nil, nil)
	require.Error(t, err)
}

func TestSafeFilterMarksValueUnescaped(t *testing.T) {
	out := runFilter(t, "safe", StringValue("<b>hi</b>"), nil, nil)
	assert.True(t, out.Safe)
	assert.Equal(t, "<b>hi</b>", out.Str)
}

func TestEscapeOnceFilterDoesNotDoubleEscape(t *testing.T) {
	once := runFilter(t, "escape_once", StringValue("&amp; already"), nil, nil)
	assert.Equal(t, "&amp; already", once.Str)

	fresh := runFilter(t, "escape_once", StringValue("a & b"), nil, nil)
	assert.Equal(t, "a &amp; b", fresh.Str)
}

func TestDateFilter(t *testing.T) {
	out := runFilter(t, "date", StringValue("2024-03-05"), []Value{StringValue("%Y-%m-%d")}, nil)
	assert.Equal(t, "2024-03-05", out.Str)

	_, err := builtinFilters["date"](StringValue("not a date"), nil, nil)
	require.Error(t, err)
}

func TestJSONFilter(t *testing.T) {
	om := NewMap()
	om.Set("name", StringValue("liquid"))
	om.Set("count", IntValue(3))
	out := runFilter(t, "json", MapValue(om), nil, nil)
	assert.Equal(t, `{"name":"liquid","count":3}`, out.Str)

	arr := ArrayValue([]Value{IntValue(1), StringValue("x"), Nil})
	out = runFilter(t, "json", arr, nil, nil)
	assert.Equal(t, `[1,"x",null]`, out.Str)
}
