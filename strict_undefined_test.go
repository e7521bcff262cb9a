package liquid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// strictRender compiles src against a fresh strict-undefined Environment and
// renders it, returning the *Error cause if rendering failed.
func strictRender(t *testing.T, src string, vars map[string]Value) (string, *Error) {
	t.Helper()
	env := NewEnvironment(nil)
	env.Undefined = PolicyStrict
	tpl, err := env.FromString(src)
	require.NoError(t, err)
	out, err := tpl.Render(vars)
	if err == nil {
		return out, nil
	}
	lerr, ok := err.(*Error)
	require.True(t, ok)
	return out, lerr
}

func TestStrictUndefinedRaisesInCondition(t *testing.T) {
	_, lerr := strictRender(t, `{% if missing %}x{% endif %}`, nil)
	require.NotNil(t, lerr)
	assert.Equal(t, KindUndefined, lerr.Kind)
}

func TestStrictUndefinedRaisesInComparison(t *testing.T) {
	_, lerr := strictRender(t, `{{ missing == 1 }}`, nil)
	require.NotNil(t, lerr)
	assert.Equal(t, KindUndefined, lerr.Kind)
}

func TestStrictUndefinedRaisesInAndOr(t *testing.T) {
	_, lerr := strictRender(t, `{% if true and missing %}x{% endif %}`, nil)
	require.NotNil(t, lerr)
	assert.Equal(t, KindUndefined, lerr.Kind)
}

func TestStrictUndefinedRaisesInFilterApplication(t *testing.T) {
	_, lerr := strictRender(t, `{{ missing | upcase }}`, nil)
	require.NotNil(t, lerr)
	assert.Equal(t, KindUndefined, lerr.Kind)
}

func TestStrictUndefinedRaisesInAssignment(t *testing.T) {
	_, lerr := strictRender(t, `{% assign a = missing %}{{ a }}`, nil)
	require.NotNil(t, lerr)
	assert.Equal(t, KindUndefined, lerr.Kind)
}

func TestStrictUndefinedRaisesInLoopIterable(t *testing.T) {
	_, lerr := strictRender(t, `{% for i in missing %}{{ i }}{% endfor %}`, nil)
	require.NotNil(t, lerr)
	assert.Equal(t, KindUndefined, lerr.Kind)
}

func TestStrictUndefinedRaisesInCaseSubject(t *testing.T) {
	_, lerr := strictRender(t, `{% case missing %}{% when 1 %}x{% endcase %}`, nil)
	require.NotNil(t, lerr)
	assert.Equal(t, KindUndefined, lerr.Kind)
}

// PolicyStrictDefault still permits the `default` filter to substitute a
// value, without raising first.
func TestStrictDefaultUndefinedAllowsDefaultFilter(t *testing.T) {
	env := NewEnvironment(nil)
	env.Undefined = PolicyStrictDefault
	tpl, err := env.FromString(`{{ missing | default: "fallback" }}`)
	require.NoError(t, err)
	out, err := tpl.Render(nil)
	require.NoError(t, err)
	assert.Equal(t, "fallback", out)
}

// A StrictDefault undefined still raises once a non-default filter runs.
func TestStrictDefaultUndefinedRaisesOnOtherFilters(t *testing.T) {
	env := NewEnvironment(nil)
	env.Undefined = PolicyStrictDefault
	tpl, err := env.FromString(`{{ missing | upcase }}`)
	require.NoError(t, err)
	_, err = tpl.Render(nil)
	require.Error(t, err)
	lerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindUndefined, lerr.Kind)
}

func TestModeWarnRecordsAbsorbedErrorAndContinuesRendering(t *testing.T) {
	env := NewEnvironment(nil)
	env.Mode = ModeWarn
	env.Undefined = PolicyStrict
	tpl, err := env.FromString(`before{{ missing }}after`)
	require.NoError(t, err)

	out, warnings, err := tpl.RenderWithWarnings(nil)
	require.NoError(t, err)
	assert.Equal(t, "beforeafter", out)
	require.Len(t, warnings, 1)
	assert.Equal(t, KindUndefined, warnings[0].Kind)
}

func TestModeLaxAbsorbsSilentlyWithNoWarnings(t *testing.T) {
	env := NewEnvironment(nil)
	env.Mode = ModeLax
	env.Undefined = PolicyStrict
	tpl, err := env.FromString(`before{{ missing }}after`)
	require.NoError(t, err)

	out, warnings, err := tpl.RenderWithWarnings(nil)
	require.NoError(t, err)
	assert.Equal(t, "beforeafter", out)
	assert.Empty(t, warnings)
}

func TestModeStrictPropagatesImmediately(t *testing.T) {
	env := NewEnvironment(nil)
	env.Undefined = PolicyStrict
	tpl, err := env.FromString(`before{{ missing }}after`)
	require.NoError(t, err)

	_, err = tpl.Render(nil)
	require.Error(t, err)
}

func TestModeWarnRecordsUnknownTagSkip(t *testing.T) {
	env := NewEnvironment(nil)
	env.Mode = ModeWarn
	tpl, err := env.FromString(`before{% nosuch %}after`)
	require.NoError(t, err)

	out, warnings, err := tpl.RenderWithWarnings(nil)
	require.NoError(t, err)
	assert.Equal(t, "beforeafter", out)
	require.Len(t, warnings, 1)
}

// contextDepth/loop-iteration/output-limit errors are resource limits, not
// spec.md §7's recoverable runtime errors, so they stay fatal even in Lax.
func TestModeLaxDoesNotAbsorbResourceLimitErrors(t *testing.T) {
	env := NewEnvironment(nil)
	env.Mode = ModeLax
	env.MaxLoopIterations = 1
	tpl, err := env.FromString(`{% for i in (1..5) %}{{ i }}{% endfor %}`)
	require.NoError(t, err)

	_, err = tpl.Render(nil)
	require.Error(t, err)
	lerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindLoopIterationLimit, lerr.Kind)
}

// dropStub is a minimal Drop whose ToLiquid projection is an ordinary Value,
// used to exercise comparison-time projection independent of the built-in
// loop drops (whose ToLiquid wraps themselves).
type dropStub struct{ val Value }

func (d dropStub) ToLiquid() Value { return d.val }

func TestDropsCompareByToLiquidProjection(t *testing.T) {
	a := DropValue(dropStub{val: IntValue(5)})
	b := DropValue(dropStub{val: IntValue(5)})
	c := DropValue(dropStub{val: IntValue(6)})

	assert.True(t, valuesEqual(a, b))
	assert.False(t, valuesEqual(a, c))
	assert.True(t, valuesEqual(a, IntValue(5)))

	cmp, ok := compareValues(a, c)
	require.True(t, ok)
	assert.Equal(t, -1, cmp)
}

func TestDropIsTrueConsultsProjection(t *testing.T) {
	falsy := DropValue(dropStub{val: BoolValue(false)})
	nilProjected := DropValue(dropStub{val: Nil})
	other := DropValue(dropStub{val: StringValue("x")})

	assert.False(t, falsy.IsTrue())
	assert.False(t, nilProjected.IsTrue())
	assert.True(t, other.IsTrue())
}

func TestBuiltinLoopDropsCompareByIdentity(t *testing.T) {
	src := `{% for i in (1..2) %}{% if forloop == forloop %}same{% endif %}{% endfor %}`
	var buf strings.Builder
	env := NewEnvironment(nil)
	tpl, err := env.FromString(src)
	require.NoError(t, err)
	require.NoError(t, tpl.RenderTo(&buf, nil))
	assert.Equal(t, "samesame", buf.String())
}
