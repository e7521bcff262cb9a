// Package liquid implements the core of a Liquid template engine: lexing,
// parsing, and evaluating "{{ output }}" statements and "{% tag %}" control
// flow against a render Context.
//
// A minimal render looks like:
//
//	env := liquid.NewEnvironment(liquid.NewDictLoader(nil))
//	tpl, err := env.FromString("Hello {{ name }}!")
//	out, err := tpl.Render(map[string]liquid.Value{"name": liquid.StringValue("World")})
//
// The engine is split into layers that mirror the grammar itself: a
// template-level lexer that distinguishes literal text from "{{ }}" and
// "{% %}" regions, an expression-level lexer invoked lazily on those
// regions, a Pratt-style expression parser, a recursive-descent tag/block
// parser, and a tree-walking evaluator. See SPEC_FULL.md and DESIGN.md in
// the repository root for the full design rationale.
package liquid

// Version is the engine version string.
const Version = "0.1"
