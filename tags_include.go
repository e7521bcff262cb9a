package liquid

import "strings"

func init() {
	registerBuiltinTag("include", "", parseIncludeTag)
	registerBuiltinTag("render", "", parseRenderTag)
}

// includeLike is shared by IncludeNode and RenderNode: both resolve a
// template by name via the loader and accept `with <expr> (as <name>)?`
// (bind a single value) or `for <expr> (as <name>)?` (iterate, rendering
// once per element with a forloop). They differ only in scope sharing
// (spec.md §4.3).
type includeLike struct {
	tok      *Token
	Name     Expression
	With     Expression
	WithAs   string
	For      Expression
	ForAs    string
	Isolated bool // true for render, false for include
}

// IncludeNode shares the caller's scope chain: it can read outer
// variables, and (unlike render) does not disable nested `include`.
type IncludeNode struct{ includeLike }

// RenderNode creates a fresh, isolated scope containing only the
// explicitly passed with/for binding, and disables `include` in the
// nested context.
type RenderNode struct{ includeLike }

func (n *IncludeNode) Token() *Token { return n.tok }
func (n *RenderNode) Token() *Token  { return n.tok }

func (n *IncludeNode) Render(ctx *Context, buf *strings.Builder) error {
	if ctx.isTagDisabled("include") {
		return errorf(KindDisabledTag, "include", "tag %q is disabled in this context", "include").At(ctx.name, n.tok.Line, n.tok.Col, n.tok)
	}
	return n.includeLike.render(ctx, buf)
}

func (n *RenderNode) Render(ctx *Context, buf *strings.Builder) error {
	if ctx.isTagDisabled("render") {
		return errorf(KindDisabledTag, "render", "tag %q is disabled in this context", "render").At(ctx.name, n.tok.Line, n.tok.Col, n.tok)
	}
	return n.includeLike.render(ctx, buf)
}

func (n *includeLike) render(ctx *Context, buf *strings.Builder) error {
	nameVal, err := n.Name.Evaluate(ctx)
	if err != nil {
		return err
	}
	tpl, err := ctx.env.FromFile(nameVal.String())
	if err != nil {
		return err
	}

	if err := ctx.checkDepth(n.tok); err != nil {
		return err
	}
	defer ctx.leaveDepth()

	switch {
	case n.For != nil:
		return n.renderFor(ctx, buf, tpl)
	default:
		return n.renderOnce(ctx, buf, tpl, nil)
	}
}

func (n *includeLike) renderOnce(ctx *Context, buf *strings.Builder, tpl *Template, loopBind map[string]Value) error {
	vars := make(scope)
	if n.With != nil {
		v, err := n.With.Evaluate(ctx)
		if err != nil {
			return err
		}
		name := n.WithAs
		if name == "" {
			name = tpl.name
		}
		vars[name] = v
	}
	for k, v := range loopBind {
		vars[k] = v
	}

	if n.Isolated {
		saved := ctx.scopes
		savedDisabled := ctx.disabledTags["include"]
		ctx.scopes = []scope{vars}
		ctx.disabledTags["include"] = true
		err := tpl.tree.Render(ctx, buf)
		ctx.scopes = saved
		if !savedDisabled {
			delete(ctx.disabledTags, "include")
		}
		return err
	}

	shared := ctx.cloneVisibleScope()
	for k, v := range vars {
		shared[k] = v
	}
	ctx.pushScopeWith(shared)
	defer ctx.popScope()
	return tpl.tree.Render(ctx, buf)
}

func (n *includeLike) renderFor(ctx *Context, buf *strings.Builder, tpl *Template) error {
	v, err := n.For.Evaluate(ctx)
	if err != nil {
		return err
	}
	items := v.toSlice()
	name := n.ForAs
	if name == "" {
		name = tpl.name
	}
	for i, item := range items {
		if err := ctx.checkLoopIteration(n.tok); err != nil {
			return err
		}
		fl := &forloopDrop{index: i, length: len(items)}
		bind := map[string]Value{name: item, "forloop": fl.ToLiquid()}
		if err := n.renderOnce(ctx, buf, tpl, bind); err != nil {
			return err
		}
	}
	return nil
}

func parseIncludeTag(p *Parser, tok *Token) (Node, error) {
	base, err := parseIncludeLikeArgs(p, "include")
	if err != nil {
		return nil, err
	}
	base.tok = tok
	return &IncludeNode{includeLike: *base}, nil
}

func parseRenderTag(p *Parser, tok *Token) (Node, error) {
	base, err := parseIncludeLikeArgs(p, "render")
	if err != nil {
		return nil, err
	}
	base.tok = tok
	base.Isolated = true
	return &RenderNode{includeLike: *base}, nil
}

func parseIncludeLikeArgs(p *Parser, tagName string) (*includeLike, error) {
	exprTok, ok := p.parseOptionalExpressionToken()
	if !ok {
		return nil, p.errorf("%s requires a template name", tagName)
	}
	ep, err := p.newExprParser(exprTok)
	if err != nil {
		return nil, err
	}
	name, err := ep.parsePrimary()
	if err != nil {
		return nil, err
	}

	node := &includeLike{Name: name}
	for {
		switch ep.cur().Kind {
		case TokenWith:
			ep.advance()
			withExpr, err := ep.parsePrimary()
			if err != nil {
				return nil, err
			}
			node.With = withExpr
			if _, ok := ep.match(TokenAs); ok {
				asTok, err := ep.expect(TokenIdentifier)
				if err != nil {
					return nil, err
				}
				node.WithAs = asTok.Val
			}
		case TokenFor:
			ep.advance()
			forExpr, err := ep.parseLoopIterable()
			if err != nil {
				return nil, err
			}
			node.For = forExpr
			if _, ok := ep.match(TokenAs); ok {
				asTok, err := ep.expect(TokenIdentifier)
				if err != nil {
					return nil, err
				}
				node.ForAs = asTok.Val
			}
		case TokenComma:
			// legacy "include 'x', var: val" param form: treat remaining
			// comma-separated kwargs as additional `with`-style bindings
			// under their own names.
			ep.advance()
			if err := parseIncludeKwarg(ep, node); err != nil {
				return nil, err
			}
		case TokenEOF:
			return node, nil
		default:
			return nil, ep.errorf("unexpected token %s in %s", ep.cur().Kind, tagName)
		}
	}
}

// parseIncludeKwarg folds one "name: value" pair from the legacy
// parameter-passing form into the node's With binding under that name,
// building up a small map if more than one is present.
func parseIncludeKwarg(ep *exprParser, node *includeLike) error {
	nameTok, err := ep.expect(TokenIdentifier)
	if err != nil {
		return err
	}
	if _, err := ep.expect(TokenColon); err != nil {
		return err
	}
	val, err := ep.parsePrimary()
	if err != nil {
		return err
	}
	if node.With == nil {
		node.With = &namedParamsExpr{params: map[string]Expression{nameTok.Val: val}}
	} else if np, ok := node.With.(*namedParamsExpr); ok {
		np.params[nameTok.Val] = val
	}
	return nil
}

// namedParamsExpr evaluates to a Map built from its named sub-expressions,
// used by include's legacy "name: value, name2: value2" parameter form.
type namedParamsExpr struct {
	params map[string]Expression
}

func (e *namedParamsExpr) Token() *Token { return nil }

func (e *namedParamsExpr) Evaluate(ctx *Context) (Value, error) {
	m := newOrderedMap()
	for k, expr := range e.params {
		v, err := expr.Evaluate(ctx)
		if err != nil {
			return Value{}, err
		}
		m.set(k, v)
	}
	return MapValue(m), nil
}
