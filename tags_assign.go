package liquid

import "strings"

func init() {
	registerBuiltinTag("assign", "", parseAssignTag)
	registerBuiltinTag("capture", "endcapture", parseCaptureTag)
	registerBuiltinTag("increment", "", parseIncrementTag)
	registerBuiltinTag("decrement", "", parseDecrementTag)
}

// AssignNode evaluates its expression and stores the result into the
// outermost scope (spec.md §4.3).
type AssignNode struct {
	tok  *Token
	Expr *AssignmentExpression
}

func (n *AssignNode) Token() *Token { return n.tok }

func (n *AssignNode) Render(ctx *Context, buf *strings.Builder) error {
	_, err := n.Expr.Evaluate(ctx)
	return err
}

func parseAssignTag(p *Parser, tok *Token) (Node, error) {
	exprTok, ok := p.parseOptionalExpressionToken()
	if !ok {
		return nil, p.errorf("assign requires an expression")
	}
	assign, err := p.parseAssignmentFromToken(exprTok)
	if err != nil {
		return nil, err
	}
	return &AssignNode{tok: tok, Expr: assign}, nil
}

// CaptureNode renders its body into a fresh buffer and assigns the
// resulting string to Name (spec.md §4.3).
type CaptureNode struct {
	tok  *Token
	Name string
	Body *BlockNode
}

func (n *CaptureNode) Token() *Token { return n.tok }

func (n *CaptureNode) Render(ctx *Context, buf *strings.Builder) error {
	var inner strings.Builder
	if err := n.Body.Render(ctx, &inner); err != nil {
		return err
	}
	ctx.AssignGlobal(n.Name, StringValue(inner.String()))
	return nil
}

func (n *CaptureNode) ChildNodes() []Node { return []Node{n.Body} }

func parseCaptureTag(p *Parser, tok *Token) (Node, error) {
	exprTok, ok := p.parseOptionalExpressionToken()
	if !ok {
		return nil, p.errorf("capture requires a variable name")
	}
	ep, err := p.newExprParser(exprTok)
	if err != nil {
		return nil, err
	}
	nameTok, err := ep.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	stmts, _, _, err := p.parseNodesUntil("endcapture")
	if err != nil {
		return nil, err
	}
	return &CaptureNode{tok: tok, Name: nameTok.Val, Body: &BlockNode{tok: tok, Statements: stmts}}, nil
}

// IncrementNode/DecrementNode manage a named counter independent of assign
// (spec.md §4.3): increment returns the pre-increment value starting at 0;
// decrement returns the post-decrement value, first call yielding -1.
type IncrementNode struct {
	tok  *Token
	Name string
}

func (n *IncrementNode) Token() *Token { return n.tok }

func (n *IncrementNode) Render(ctx *Context, buf *strings.Builder) error {
	v := ctx.incrementCounter(n.Name)
	return ctx.writeEscaped(buf, IntValue(v).String(), true, n.tok)
}

type DecrementNode struct {
	tok  *Token
	Name string
}

func (n *DecrementNode) Token() *Token { return n.tok }

func (n *DecrementNode) Render(ctx *Context, buf *strings.Builder) error {
	v := ctx.decrementCounter(n.Name)
	return ctx.writeEscaped(buf, IntValue(v).String(), true, n.tok)
}

func parseIncrementTag(p *Parser, tok *Token) (Node, error) {
	name, err := parseBareIdentifierArg(p, "increment")
	if err != nil {
		return nil, err
	}
	return &IncrementNode{tok: tok, Name: name}, nil
}

func parseDecrementTag(p *Parser, tok *Token) (Node, error) {
	name, err := parseBareIdentifierArg(p, "decrement")
	if err != nil {
		return nil, err
	}
	return &DecrementNode{tok: tok, Name: name}, nil
}

func parseBareIdentifierArg(p *Parser, tagName string) (string, error) {
	exprTok, ok := p.parseOptionalExpressionToken()
	if !ok {
		return "", p.errorf("%s requires a variable name", tagName)
	}
	ep, err := p.newExprParser(exprTok)
	if err != nil {
		return "", err
	}
	nameTok, err := ep.expect(TokenIdentifier)
	if err != nil {
		return "", err
	}
	return nameTok.Val, nil
}
