package liquid

import "strings"

func init() {
	registerBuiltinTag("echo", "", parseEchoTag)
}

// EchoNode is equivalent to Statement but usable as a line inside a
// `liquid` tag body, where "{{ }}" delimiters are not written (spec.md
// §4.3).
type EchoNode struct {
	tok        *Token
	Expression Expression
}

func (n *EchoNode) Token() *Token { return n.tok }

func (n *EchoNode) Render(ctx *Context, buf *strings.Builder) error {
	v, err := n.Expression.Evaluate(ctx)
	if err != nil {
		return err
	}
	if err := ctx.checkUndefinedUse(v, n.tok); err != nil {
		return err
	}
	return ctx.writeEscaped(buf, v.String(), v.Safe, n.tok)
}

func parseEchoTag(p *Parser, tok *Token) (Node, error) {
	exprTok, ok := p.parseOptionalExpressionToken()
	if !ok {
		return nil, p.errorf("echo requires an expression")
	}
	expr, err := p.parseFilteredExpressionFromToken(exprTok)
	if err != nil {
		return nil, err
	}
	return &EchoNode{tok: tok, Expression: expr}, nil
}
