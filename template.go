package liquid

import "strings"

// Template is a compiled, parsed template bound to the Environment that
// produced it (spec.md §2). A *Template is safe for concurrent Render
// calls: rendering only ever mutates a freshly allocated Context.
type Template struct {
	env  *Environment
	name string
	tree *ParseTree
}

// Name returns the template's name as known to its Environment
// ("<string>" for FromString-compiled templates).
func (t *Template) Name() string { return t.name }

// Render executes the template against vars and returns the resulting
// output.
func (t *Template) Render(vars map[string]Value) (string, error) {
	ctx := NewContext(t.env, t.name, vars)
	var buf strings.Builder
	if err := t.tree.Render(ctx, &buf); err != nil {
		return buf.String(), err
	}
	return buf.String(), nil
}

// RenderWithWarnings executes the template like Render, additionally
// returning any errors absorbed while rendering in ModeWarn (spec.md §7).
// Always empty outside ModeWarn; in ModeLax the same errors are absorbed
// silently and never appear here.
func (t *Template) RenderWithWarnings(vars map[string]Value) (string, []*Error, error) {
	ctx := NewContext(t.env, t.name, vars)
	var buf strings.Builder
	err := t.tree.Render(ctx, &buf)
	return buf.String(), ctx.Warnings(), err
}

// RenderTo executes the template against vars, writing output directly
// into buf rather than returning a string (avoids an extra copy for
// callers that already hold a builder).
func (t *Template) RenderTo(buf *strings.Builder, vars map[string]Value) error {
	ctx := NewContext(t.env, t.name, vars)
	return t.tree.Render(ctx, buf)
}

// RenderContext executes the template against an already-built Context,
// letting a caller share one Context (and therefore one variable scope)
// across several template renders, e.g. a REPL replaying successive
// input lines against accumulated assign/increment state.
func (t *Template) RenderContext(ctx *Context, buf *strings.Builder) error {
	return t.tree.Render(ctx, buf)
}

// ChildNodes exposes the template's top-level statements to the static
// tag-analysis utility (spec.md §1's out-of-scope collaborator).
func (t *Template) ChildNodes() []Node { return t.tree.Statements }
