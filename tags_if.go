package liquid

import "strings"

func init() {
	registerBuiltinTag("if", "endif", parseIfTag)
	registerBuiltinTag("unless", "endunless", parseUnlessTag)
}

// IfNode is a chain of conditional branches (if/elsif*/else?); the first
// branch whose condition fires is rendered (spec.md §4.3).
type IfNode struct {
	tok      *Token
	tagName  string
	Branches []*ConditionalBlockNode
}

func (n *IfNode) Token() *Token { return n.tok }

func (n *IfNode) Render(ctx *Context, buf *strings.Builder) error {
	if ctx.isTagDisabled(n.tagName) {
		return errorf(KindDisabledTag, n.tagName, "tag %q is disabled in this context", n.tagName).At(ctx.name, n.tok.Line, n.tok.Col, n.tok)
	}
	for _, b := range n.Branches {
		fired, err := b.Fire(ctx, buf)
		if err != nil {
			return err
		}
		if fired {
			return nil
		}
	}
	return nil
}

func (n *IfNode) ChildNodes() []Node {
	out := make([]Node, len(n.Branches))
	for i, b := range n.Branches {
		out[i] = b
	}
	return out
}

// negatedExpression inverts the Liquid-truthy projection of another
// expression, used by `unless`.
type negatedExpression struct {
	tok   *Token
	Inner Expression
}

func (n *negatedExpression) Token() *Token { return n.tok }

func (n *negatedExpression) Evaluate(ctx *Context) (Value, error) {
	v, err := n.Inner.Evaluate(ctx)
	if err != nil {
		return Value{}, err
	}
	return BoolValue(!v.IsTrue()), nil
}

func parseConditionArg(p *Parser) (Expression, error) {
	exprTok, ok := p.parseOptionalExpressionToken()
	if !ok {
		return nil, p.errorf("expected a condition expression")
	}
	return p.parseBooleanExpressionFromToken(exprTok)
}

func parseIfTag(p *Parser, tok *Token) (Node, error) {
	cond, err := parseConditionArg(p)
	if err != nil {
		return nil, err
	}
	node := &IfNode{tok: tok, tagName: "if"}
	for {
		stmts, matched, matchTok, err := p.parseNodesUntil("elsif", "else", "endif")
		if err != nil {
			return nil, err
		}
		node.Branches = append(node.Branches, &ConditionalBlockNode{tok: tok, Condition: cond, Block: &BlockNode{tok: tok, Statements: stmts}})

		switch matched {
		case "elsif":
			exprTok, ok := p.parseOptionalExpressionToken()
			if !ok {
				return nil, p.errorf("elsif requires a condition")
			}
			cond, err = p.parseBooleanExpressionFromToken(exprTok)
			if err != nil {
				return nil, err
			}
			tok = matchTok
		case "else":
			elseStmts, _, _, err := p.parseNodesUntil("endif")
			if err != nil {
				return nil, err
			}
			node.Branches = append(node.Branches, &ConditionalBlockNode{tok: matchTok, Condition: nil, Block: &BlockNode{tok: matchTok, Statements: elseStmts}})
			return node, nil
		case "endif":
			return node, nil
		}
	}
}

func parseUnlessTag(p *Parser, tok *Token) (Node, error) {
	cond, err := parseConditionArg(p)
	if err != nil {
		return nil, err
	}
	negated := &negatedExpression{tok: tok, Inner: cond}
	node := &IfNode{tok: tok, tagName: "unless"}
	for {
		stmts, matched, matchTok, err := p.parseNodesUntil("else", "endunless")
		if err != nil {
			return nil, err
		}
		node.Branches = append(node.Branches, &ConditionalBlockNode{tok: tok, Condition: negated, Block: &BlockNode{tok: tok, Statements: stmts}})
		negated = nil

		switch matched {
		case "else":
			elseStmts, _, _, err := p.parseNodesUntil("endunless")
			if err != nil {
				return nil, err
			}
			node.Branches = append(node.Branches, &ConditionalBlockNode{tok: matchTok, Condition: nil, Block: &BlockNode{tok: matchTok, Statements: elseStmts}})
			return node, nil
		case "endunless":
			return node, nil
		}
	}
}
