package liquid

import (
	"fmt"
	"strings"
)

func init() {
	registerBuiltinTag("tablerow", "endtablerow", parseTablerowTag)
}

// TablerowNode is like ForNode but wraps iteration in "<tr>" rows of Cols
// cells, exposing a `tablerowloop` drop (spec.md §4.3).
type TablerowNode struct {
	tok  *Token
	Loop *LoopExpression
	Body *BlockNode
}

func (n *TablerowNode) Token() *Token { return n.tok }

func (n *TablerowNode) Render(ctx *Context, buf *strings.Builder) error {
	if ctx.isTagDisabled("tablerow") {
		return errorf(KindDisabledTag, "tablerow", "tag %q is disabled in this context", "tablerow").At(ctx.name, n.tok.Line, n.tok.Col, n.tok)
	}
	resolved, err := n.Loop.resolve(ctx)
	if err != nil {
		return err
	}
	cols := len(resolved.items)
	if resolved.hasCols && resolved.cols > 0 {
		cols = resolved.cols
	}
	if cols <= 0 {
		cols = 1
	}

	ctx.pushScope()
	defer ctx.popScope()

	for i, item := range resolved.items {
		if err := ctx.checkLoopIteration(n.tok); err != nil {
			return err
		}
		if i%cols == 0 {
			fmt.Fprintf(buf, `<tr class="row%d">`, i/cols+1)
		}
		fmt.Fprintf(buf, `<td class="col%d">`, i%cols+1)

		trl := &tablerowloopDrop{index: i, length: len(resolved.items), cols: cols}
		ctx.Set("tablerowloop", trl.ToLiquid())
		ctx.Set(n.Loop.Name, item)

		if err := n.Body.Render(ctx, buf); err != nil {
			if lce, ok := err.(*loopControlError); ok {
				if lce.signal == signalBreak {
					buf.WriteString("</td>")
					if i%cols == cols-1 || i == len(resolved.items)-1 {
						buf.WriteString("</tr>")
					}
					return nil
				}
			} else {
				return err
			}
		}
		buf.WriteString("</td>")
		if i%cols == cols-1 || i == len(resolved.items)-1 {
			buf.WriteString("</tr>")
		}
	}
	return nil
}

func (n *TablerowNode) ChildNodes() []Node { return []Node{n.Body} }

func parseTablerowTag(p *Parser, tok *Token) (Node, error) {
	exprTok, ok := p.parseOptionalExpressionToken()
	if !ok {
		return nil, p.errorf("tablerow requires a loop expression")
	}
	loop, err := p.parseLoopExpressionFromToken(exprTok, true)
	if err != nil {
		return nil, err
	}
	stmts, _, _, err := p.parseNodesUntil("endtablerow")
	if err != nil {
		return nil, err
	}
	return &TablerowNode{tok: tok, Loop: loop, Body: &BlockNode{tok: tok, Statements: stmts}}, nil
}
