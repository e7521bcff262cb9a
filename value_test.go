package liquid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueIsTrue(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"nil is false", Nil, false},
		{"false bool", BoolValue(false), false},
		{"true bool", BoolValue(true), true},
		{"zero int is true", IntValue(0), true},
		{"empty string is true", StringValue(""), true},
		{"empty array is true", ArrayValue(nil), true},
		{"lax undefined is true", UndefinedValue(PolicyLax, "x"), true},
		{"strict undefined is false", UndefinedValue(PolicyStrict, "x"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.IsTrue())
		})
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"nil", Nil, ""},
		{"undefined", UndefinedValue(PolicyLax, "x"), ""},
		{"true", BoolValue(true), "true"},
		{"false", BoolValue(false), "false"},
		{"int", IntValue(42), "42"},
		{"float with fraction", FloatValue(3.5), "3.5"},
		{"float integral keeps .0", FloatValue(3), "3.0"},
		{"string", StringValue("hi"), "hi"},
		{"array concatenates with no separator", ArrayValue([]Value{StringValue("a"), StringValue("b")}), "ab"},
		{"map renders empty", MapValue(NewMap()), ""},
		{"range", RangeValue(1, 3), "1..3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.String())
		})
	}
}

func TestValuesEqual(t *testing.T) {
	emptyArr := ArrayValue(nil)
	emptyMap := MapValue(NewMap())

	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"int vs float cross-kind equal", IntValue(2), FloatValue(2.0), true},
		{"nil equals nil", Nil, Nil, true},
		{"nil never equals other kinds", Nil, IntValue(0), false},
		{"empty singleton matches empty string", Empty, StringValue(""), true},
		{"empty singleton matches empty array", Empty, emptyArr, true},
		{"empty singleton matches empty map", Empty, emptyMap, true},
		{"empty singleton rejects non-empty string", Empty, StringValue("x"), false},
		{"blank singleton matches whitespace string", Blank, StringValue("  \t"), true},
		{"blank singleton rejects non-blank string", Blank, StringValue("x"), false},
		{"blank singleton matches empty array", Blank, emptyArr, true},
		{"strings compare by content", StringValue("a"), StringValue("a"), true},
		{"strings differ", StringValue("a"), StringValue("b"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, valuesEqual(tt.a, tt.b))
		})
	}
}

func TestValueContains(t *testing.T) {
	arr := ArrayValue([]Value{StringValue("a"), IntValue(1)})
	m := MapValue(func() *orderedMap {
		om := NewMap()
		om.Set("key", IntValue(1))
		return om
	}())

	assert.True(t, StringValue("hello world").contains(StringValue("world")))
	assert.False(t, StringValue("hello").contains(StringValue("xyz")))
	assert.True(t, arr.contains(IntValue(1)))
	assert.False(t, arr.contains(IntValue(99)))
	assert.True(t, m.contains(StringValue("key")))
	assert.False(t, m.contains(StringValue("missing")))
}

func TestValueToSlice(t *testing.T) {
	t.Run("range materializes inclusive ints", func(t *testing.T) {
		items := RangeValue(2, 4).toSlice()
		want := []int64{2, 3, 4}
		for i, w := range want {
			assert.Equal(t, w, items[i].Int)
		}
	})

	t.Run("descending range yields nothing", func(t *testing.T) {
		assert.Empty(t, RangeValue(5, 1).toSlice())
	})

	t.Run("map yields key/value pairs in insertion order", func(t *testing.T) {
		om := NewMap()
		om.Set("b", IntValue(2))
		om.Set("a", IntValue(1))
		items := MapValue(om).toSlice()
		assert.Equal(t, "b", items[0].Array[0].Str)
		assert.Equal(t, "a", items[1].Array[0].Str)
	})
}

func TestOrderedMapPreservesInsertionOrderAndOverwrite(t *testing.T) {
	om := NewMap()
	om.Set("first", IntValue(1))
	om.Set("second", IntValue(2))
	om.Set("first", IntValue(100))

	assert.Equal(t, 2, om.Len())
	v, ok := om.Get("first")
	assert.True(t, ok)
	assert.Equal(t, int64(100), v.Int)
	assert.Equal(t, []string{"first", "second"}, om.keys)
}

func TestCompareValues(t *testing.T) {
	t.Run("numeric ordering", func(t *testing.T) {
		cmp, ok := compareValues(IntValue(1), IntValue(2))
		assert.True(t, ok)
		assert.Equal(t, -1, cmp)
	})

	t.Run("non-numeric operands are not comparable", func(t *testing.T) {
		_, ok := compareValues(StringValue("a"), StringValue("b"))
		assert.False(t, ok)
	})
}
