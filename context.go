package liquid

import (
	"fmt"
	"strings"
)

// scope is one frame of the variable scope stack.
type scope map[string]Value

// Context is the per-render mutable state threaded through every node's
// render call (spec.md §3.4). A Context is single-render: it must not be
// shared across concurrent renders, mirroring the teacher's
// ExecutionContext Public/Private/Shared split generalized to Liquid's
// scope-stack model.
type Context struct {
	env *Environment

	name string // template name, for error provenance

	scopes  []scope
	globals scope

	stopIndexes map[string]int
	counters    map[string]int64
	cycles      map[string]int

	disabledTags map[string]bool

	depth        int
	maxDepth     int
	loopIters    int
	maxLoopIters int
	outputBytes  int
	maxOutput    int

	undefinedPolicy UndefinedPolicy
	autoescape      bool
	strictFilters   bool

	mode     Mode
	warnings []*Error
}

// NewContext builds a fresh render Context bound to env, seeded with the
// environment's globals and the caller-supplied variables.
func NewContext(env *Environment, name string, vars map[string]Value) *Context {
	ctx := &Context{
		env:             env,
		name:            name,
		scopes:          []scope{make(scope)},
		globals:         make(scope),
		stopIndexes:     make(map[string]int),
		counters:        make(map[string]int64),
		cycles:          make(map[string]int),
		disabledTags:    make(map[string]bool),
		maxDepth:        env.MaxContextDepth,
		maxLoopIters:    env.MaxLoopIterations,
		maxOutput:       env.OutputStreamLimit,
		undefinedPolicy: env.Undefined,
		autoescape:      env.Autoescape,
		strictFilters:   env.StrictFilters,
		mode:            env.Mode,
	}
	for k, v := range env.Globals {
		ctx.globals[k] = v
	}
	for k, v := range vars {
		ctx.scopes[0][k] = v
	}
	return ctx
}

func (c *Context) templateName() string { return c.name }

// Logf writes a debug line tagged with this context's template name,
// visible only when SetDebug(true) has been called.
func (c *Context) Logf(format string, args ...any) {
	Logf(c.name, format, args...)
}

// pushScope opens a new, empty variable scope (for/include/render blocks).
func (c *Context) pushScope() {
	c.scopes = append(c.scopes, make(scope))
}

// pushScopeWith opens a new scope pre-populated with vars, used by
// render's isolated-scope semantics.
func (c *Context) pushScopeWith(vars scope) {
	c.scopes = append(c.scopes, vars)
}

func (c *Context) popScope() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

// cloneVisibleScope flattens every currently visible scope (bottom to top,
// later writes win) into one map, used by `include` to share the caller's
// scope chain with a nested render.
func (c *Context) cloneVisibleScope() scope {
	out := make(scope)
	for _, s := range c.scopes {
		for k, v := range s {
			out[k] = v
		}
	}
	return out
}

// Set writes to the innermost (top) scope.
func (c *Context) Set(name string, v Value) {
	c.scopes[len(c.scopes)-1][name] = v
}

// AssignGlobal writes to the outermost scope, matching Liquid's `assign`
// semantics: an assignment inside a for-loop body leaks to the enclosing
// template (spec.md §8 invariant 4).
func (c *Context) AssignGlobal(name string, v Value) {
	c.scopes[0][name] = v
}

// Resolve looks up a dotted/bracketed path, already reduced to a sequence
// of evaluated Values (spec.md §4.4).
func (c *Context) Resolve(path []Value) (Value, error) {
	if len(path) == 0 {
		return Nil, nil
	}
	root := path[0].String()

	var cur Value
	found := false
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if v, ok := c.scopes[i][root]; ok {
			cur = v
			found = true
			break
		}
	}
	if !found {
		if v, ok := c.globals[root]; ok {
			cur = v
			found = true
		}
	}
	if !found {
		switch root {
		case "forloop", "tablerowloop":
			if v, ok := c.lookupBuiltinDrop(root); ok {
				cur = v
				found = true
			}
		}
	}
	if !found {
		return c.undefined(root), nil
	}

	for _, seg := range path[1:] {
		next, ok, err := c.descend(cur, seg)
		if err != nil {
			return Value{}, err
		}
		if !ok {
			return c.undefined(root), nil
		}
		cur = next
	}
	return cur, nil
}

func (c *Context) lookupBuiltinDrop(name string) (Value, bool) {
	v, ok := c.scopes[len(c.scopes)-1][name]
	return v, ok
}

// descend resolves one further path segment against cur (spec.md §4.4.2).
func (c *Context) descend(cur Value, seg Value) (Value, bool, error) {
	switch cur.Kind {
	case VMap:
		key := seg.String()
		v, ok := cur.Map.get(key)
		return v, ok, nil
	case VArray:
		if seg.Kind != VInt {
			return Value{}, false, nil
		}
		idx := int(seg.Int)
		if idx < 0 {
			idx += len(cur.Array)
		}
		if idx < 0 || idx >= len(cur.Array) {
			return Value{}, false, nil
		}
		return cur.Array[idx], true, nil
	case VDrop:
		if bm, ok := cur.Drop.(BeforeMethodDrop); ok {
			if v, ok := bm.BeforeMethod(seg.String()); ok {
				return v, true, nil
			}
		}
		if fi, ok := cur.Drop.(ForceInvokeDrop); ok {
			if v, ok := fi.ForceInvoke(seg.String(), nil); ok {
				return v, true, nil
			}
		}
		return Value{}, false, nil
	case VString:
		if seg.Kind == VInt {
			// Liquid strings are not index-subscriptable; treat as
			// undefined rather than erroring.
			return Value{}, false, nil
		}
		return Value{}, false, nil
	default:
		return Value{}, false, nil
	}
}

func (c *Context) undefined(hint string) Value {
	c.Logf("undefined variable %q", hint)
	return UndefinedValue(c.undefinedPolicy, hint)
}

// checkUndefinedUse applies the undefined policy at a use site (output,
// comparison, filter argument). Lax undefineds are silently usable;
// Strict/StrictDefault raise unless the caller is the default filter.
func (c *Context) checkUndefinedUse(v Value, tok *Token) error {
	if v.Kind != VUndefined {
		return nil
	}
	switch v.UndefinedPolicy {
	case PolicyStrict, PolicyStrictDefault:
		return errorf(KindUndefined, "context", "undefined variable %q", v.UndefinedHint).At(c.name, tok.Line, tok.Col, tok)
	default:
		return nil
	}
}

// recoverableKinds are the runtime error kinds spec.md §7 classifies as
// "non-fatal": a resource-limit breach or a parse-time syntax error is
// always fatal regardless of mode.
var recoverableKinds = map[Kind]bool{
	KindGeneric:        true,
	KindType:           true,
	KindUndefined:      true,
	KindDisabledTag:    true,
	KindNoSuchFilter:   true,
	KindFilterArgument: true,
	KindFilterValue:    true,
}

// absorb applies the mode policy to a runtime error produced while
// rendering a statement: Strict always propagates; Warn records the error
// and reports it handled; Lax silently reports it handled. A non-recoverable
// Kind (or a non-*Error cause) always propagates regardless of mode.
func (c *Context) absorb(err error) bool {
	if err == nil {
		return true
	}
	if c.mode == ModeStrict {
		return false
	}
	lerr, ok := err.(*Error)
	if !ok || !recoverableKinds[lerr.Kind] {
		return false
	}
	if c.mode == ModeWarn {
		c.warnings = append(c.warnings, lerr)
	}
	return true
}

// Warnings returns the errors absorbed while rendering in ModeWarn, in
// encounter order. Always empty outside ModeWarn.
func (c *Context) Warnings() []*Error { return c.warnings }

// stopIndex returns the last-recorded cursor for a loop key, 0 if never set.
func (c *Context) stopIndex(key string) int { return c.stopIndexes[key] }

func (c *Context) setStopIndex(key string, idx int) { c.stopIndexes[key] = idx }

// incrementCounter/decrementCounter implement the independent counter
// namespace used by the increment/decrement tags (spec.md §4.3).
func (c *Context) incrementCounter(name string) int64 {
	v := c.counters[name]
	c.counters[name] = v + 1
	return v
}

func (c *Context) decrementCounter(name string) int64 {
	v := c.counters[name] - 1
	c.counters[name] = v
	return v
}

// cycleNext implements the `cycle` tag's per-(group) rotating counter.
func (c *Context) cycleNext(key string, n int) int {
	i := c.cycles[key]
	c.cycles[key] = (i + 1) % n
	return i % n
}

// disableTag/isTagDisabled/withDisabledTag implement the disabled-tag
// enforcement used by render to forbid nested include (spec.md §3.4).
func (c *Context) disableTag(name string) { c.disabledTags[name] = true }

func (c *Context) isTagDisabled(name string) bool { return c.disabledTags[name] }

// checkDepth enforces max_context_depth on entry to include/render.
func (c *Context) checkDepth(tok *Token) error {
	c.depth++
	if c.maxDepth > 0 && c.depth > c.maxDepth {
		return errorf(KindContextDepth, "context", "maximum template include depth (%d) exceeded", c.maxDepth).At(c.name, tok.Line, tok.Col, tok)
	}
	return nil
}

func (c *Context) leaveDepth() { c.depth-- }

// checkLoopIteration enforces max loop iterations across the whole render.
func (c *Context) checkLoopIteration(tok *Token) error {
	c.loopIters++
	if c.maxLoopIters > 0 && c.loopIters > c.maxLoopIters {
		return errorf(KindLoopIterationLimit, "context", "maximum loop iteration count (%d) exceeded", c.maxLoopIters).At(c.name, tok.Line, tok.Col, tok)
	}
	return nil
}

// checkOutput enforces output_stream_limit as text is written to the
// render buffer.
func (c *Context) checkOutput(n int, tok *Token) error {
	c.outputBytes += n
	if c.maxOutput > 0 && c.outputBytes > c.maxOutput {
		return errorf(KindOutputStreamLimit, "context", "maximum output size (%d bytes) exceeded", c.maxOutput).At(c.name, tok.Line, tok.Col, tok)
	}
	return nil
}

// writeEscaped writes s to buf, applying HTML autoescape if the context
// requires it and s is not marked safe.
func (c *Context) writeEscaped(buf *strings.Builder, s string, safe bool, tok *Token) error {
	if c.autoescape && !safe {
		s = htmlEscape(s)
	}
	if err := c.checkOutput(len(s), tok); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func htmlEscape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&#34;",
		"'", "&#39;",
	)
	return replacer.Replace(s)
}

// applyFilter resolves a filter by name in the environment's registry and
// invokes it per the contract in spec.md §4.6.
func (c *Context) applyFilter(f *Filter, left Value) (Value, error) {
	fn, ok := c.env.filters[f.Name]
	if !ok {
		if c.strictFilters {
			return Value{}, errorf(KindNoSuchFilter, "filter", "no such filter %q", f.Name).At(c.name, f.tok.Line, f.tok.Col, f.tok)
		}
		return left, nil
	}

	args := make([]Value, 0, len(f.Args))
	for _, a := range f.Args {
		v, err := a.Evaluate(c)
		if err != nil {
			return Value{}, err
		}
		args = append(args, v)
	}
	kwargs := make(map[string]Value, len(f.Kwargs))
	for _, kw := range f.Kwargs {
		v, err := kw.Expr.Evaluate(c)
		if err != nil {
			return Value{}, err
		}
		kwargs[kw.Name] = v
	}

	out, err := fn(left, args, kwargs)
	if err != nil {
		if _, ok := err.(*filterValueError); ok {
			return left, nil
		}
		if lerr, ok := err.(*Error); ok {
			return Value{}, lerr.At(c.name, f.tok.Line, f.tok.Col, f.tok)
		}
		return Value{}, errorf(KindGeneric, f.Name, "%v", err).At(c.name, f.tok.Line, f.tok.Col, f.tok)
	}
	return out, nil
}

// filterValueError marks a filter failure as value-local (spec.md §4.6:
// "skip this filter only, keep walking the chain") rather than fatal.
type filterValueError struct{ msg string }

func (e *filterValueError) Error() string { return e.msg }

func newFilterValueError(format string, args ...any) error {
	return &filterValueError{msg: fmt.Sprintf(format, args...)}
}
