package liquid

import "strings"

func init() {
	registerBuiltinTag("cycle", "", parseCycleTag)
}

// CycleNode maintains a counter in context, keyed by the explicit group
// name when one is given and otherwise by the value list,
// emitting the value at counter%N and advancing it (spec.md §4.3).
type CycleNode struct {
	tok    *Token
	Group  string // explicit group name, or "" to key by the value list itself
	Values []Expression
}

func (n *CycleNode) Token() *Token { return n.tok }

func (n *CycleNode) Render(ctx *Context, buf *strings.Builder) error {
	key := n.Group
	if key == "" {
		key = cycleValuesKey(n.Values)
	}
	idx := ctx.cycleNext(key, len(n.Values))
	v, err := n.Values[idx].Evaluate(ctx)
	if err != nil {
		return err
	}
	return ctx.writeEscaped(buf, v.String(), v.Safe, n.tok)
}

func cycleValuesKey(values []Expression) string {
	var b strings.Builder
	for _, v := range values {
		b.WriteString(exprSourceText(v))
		b.WriteByte(';')
	}
	return b.String()
}

// parseCycleTag parses "cycle (group:)? v1, v2, ...".
func parseCycleTag(p *Parser, tok *Token) (Node, error) {
	exprTok, ok := p.parseOptionalExpressionToken()
	if !ok {
		return nil, p.errorf("cycle requires at least one value")
	}
	ep, err := p.newExprParser(exprTok)
	if err != nil {
		return nil, err
	}

	node := &CycleNode{tok: tok}
	if ep.cur().Kind == TokenString && ep.peek(1).Kind == TokenColon {
		groupTok := ep.advance()
		ep.advance() // colon
		node.Group = groupTok.Val
	}

	for {
		v, err := ep.parsePrimary()
		if err != nil {
			return nil, err
		}
		node.Values = append(node.Values, v)
		if _, ok := ep.match(TokenComma); !ok {
			break
		}
	}
	if !ep.atEnd() {
		return nil, ep.errorf("unexpected trailing token %s in cycle", ep.cur().Kind)
	}
	return node, nil
}
