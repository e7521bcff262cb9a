package liquid

import "strings"

func init() {
	registerBuiltinTag("liquid", "", parseLiquidTag)
}

// LiquidNode's body is a line-oriented embedded tag sequence: each
// non-blank line is parsed as a tag, without requiring "{% %}" delimiters
// (spec.md §4.3).
type LiquidNode struct {
	tok  *Token
	Body *BlockNode
}

func (n *LiquidNode) Token() *Token { return n.tok }

func (n *LiquidNode) Render(ctx *Context, buf *strings.Builder) error {
	return n.Body.Render(ctx, buf)
}

func (n *LiquidNode) ChildNodes() []Node { return []Node{n.Body} }

func parseLiquidTag(p *Parser, tok *Token) (Node, error) {
	exprTok, ok := p.parseOptionalExpressionToken()
	if !ok {
		return &LiquidNode{tok: tok, Body: &BlockNode{tok: tok}}, nil
	}
	synthetic := wrapLiquidLines(exprTok.Val)
	tokens, err := lex(p.name, synthetic)
	if err != nil {
		return nil, err
	}
	sub := newParser(p.env, p.name, tokens)
	tree, err := sub.parseTree()
	if err != nil {
		return nil, err
	}
	return &LiquidNode{tok: tok, Body: &BlockNode{tok: tok, Statements: tree.Statements}}, nil
}

// wrapLiquidLines rewrites each non-blank line of a `liquid` tag's body as
// its own "{% ... %}" region so the ordinary tag parser can be reused
// unmodified.
func wrapLiquidLines(body string) string {
	lines := strings.Split(body, "\n")
	var b strings.Builder
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		b.WriteString("{% ")
		b.WriteString(trimmed)
		b.WriteString(" %}")
	}
	return b.String()
}
