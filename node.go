package liquid

import "strings"

// Node is any statement-level tree element (spec.md §3.3). Every node
// exposes Token and Render; ChildNodes is an optional refinement for
// static analyzers, checked via the Analyzable interface.
type Node interface {
	Token() *Token
	Render(ctx *Context, buf *strings.Builder) error
}

// Analyzable is implemented by nodes that expose their child nodes for the
// static tag-analysis utility (spec.md §1's out-of-scope collaborator).
type Analyzable interface {
	ChildNodes() []Node
}

// ParseTree is the root of a compiled template: not itself a statement.
type ParseTree struct {
	Statements []Node
}

func (t *ParseTree) Render(ctx *Context, buf *strings.Builder) error {
	for _, s := range t.Statements {
		if err := s.Render(ctx, buf); err != nil {
			if ctx.absorb(err) {
				continue
			}
			return err
		}
	}
	return nil
}

func (t *ParseTree) ChildNodes() []Node { return t.Statements }

// Literal is raw template text between tag/statement regions.
type Literal struct {
	tok  *Token
	Text string
}

func (l *Literal) Token() *Token { return l.tok }

func (l *Literal) Render(ctx *Context, buf *strings.Builder) error {
	return ctx.writeEscaped(buf, l.Text, false, l.tok)
}

// Statement is an output region "{{ expression }}".
type Statement struct {
	tok        *Token
	Expression Expression
}

func (s *Statement) Token() *Token { return s.tok }

func (s *Statement) Render(ctx *Context, buf *strings.Builder) error {
	v, err := s.Expression.Evaluate(ctx)
	if err != nil {
		return err
	}
	if err := ctx.checkUndefinedUse(v, s.tok); err != nil {
		return err
	}
	return ctx.writeEscaped(buf, v.String(), v.Safe, s.tok)
}

func (s *Statement) ChildNodes() []Node { return nil }

// BlockNode renders a sequence of statements into an intermediate buffer;
// if the result is whitespace-only, nothing is written to the parent
// buffer (suppresses blank tag blocks, spec.md §3.3/§4.3). On an error
// partway through, whatever non-whitespace content was already buffered is
// flushed before the error propagates (DESIGN.md Open Question 3, grounded
// on original_source/liquid/ast.py's BlockNode.render_to_output).
type BlockNode struct {
	tok        *Token
	Statements []Node
}

func (b *BlockNode) Token() *Token { return b.tok }

func (b *BlockNode) Render(ctx *Context, buf *strings.Builder) error {
	var inner strings.Builder
	for _, s := range b.Statements {
		err := s.Render(ctx, &inner)
		if err != nil {
			if ctx.absorb(err) {
				continue
			}
			flushIfNonBlank(&inner, buf)
			return err
		}
	}
	flushIfNonBlank(&inner, buf)
	return nil
}

func flushIfNonBlank(inner *strings.Builder, buf *strings.Builder) {
	if strings.TrimSpace(inner.String()) != "" {
		buf.WriteString(inner.String())
	}
}

func (b *BlockNode) ChildNodes() []Node { return b.Statements }

// ConditionalBlockNode renders Block only if Condition is truthy; it
// reports whether it fired so a parent IfNode/CaseNode can implement
// elsif/when chaining.
type ConditionalBlockNode struct {
	tok       *Token
	Condition Expression // nil means "always true" (else/final branch)
	Block     *BlockNode
}

func (c *ConditionalBlockNode) Token() *Token { return c.tok }

// Fire evaluates the condition and, if truthy, renders the block. It
// returns whether the block fired.
func (c *ConditionalBlockNode) Fire(ctx *Context, buf *strings.Builder) (bool, error) {
	if c.Condition != nil {
		v, err := c.Condition.Evaluate(ctx)
		if err != nil {
			return false, err
		}
		if !v.IsTrue() {
			return false, nil
		}
	}
	return true, c.Block.Render(ctx, buf)
}

func (c *ConditionalBlockNode) Render(ctx *Context, buf *strings.Builder) error {
	_, err := c.Fire(ctx, buf)
	return err
}

func (c *ConditionalBlockNode) ChildNodes() []Node { return []Node{c.Block} }

// IllegalNode is a placeholder for an unrecognized tag encountered under a
// non-strict mode (spec.md §7): in ModeWarn its skip is recorded as a
// warning, in ModeLax it renders nothing at all.
type IllegalNode struct {
	tok  *Token
	Name string
}

func (n *IllegalNode) Token() *Token { return n.tok }

func (n *IllegalNode) Render(ctx *Context, buf *strings.Builder) error {
	return errorf(KindGeneric, "parser", "unknown tag %q skipped", n.Name).At(ctx.name, n.tok.Line, n.tok.Col, n.tok)
}
