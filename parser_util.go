package liquid

import (
	"fmt"
	"strconv"
)

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// exprSourceText reconstructs a stable textual form of an expression for
// use as part of the loop stop-index key (spec.md §9: the source's stop
// index is keyed by "loop-variable-name + iterable-source-text"). This
// does not attempt to reproduce the exact original source bytes, only a
// deterministic projection of the expression's structure, which is
// sufficient: two loops over syntactically identical iterable expressions
// always produce the same key.
func exprSourceText(e Expression) string {
	switch v := e.(type) {
	case *Identifier:
		s := ""
		for i, p := range v.Path {
			if i > 0 {
				s += "."
			}
			if p.isName {
				s += p.name
			} else {
				s += "[" + exprSourceText(p.index) + "]"
			}
		}
		return s
	case *IntegerLiteral:
		return fmt.Sprintf("%d", v.Val)
	case *FloatLiteral:
		return fmt.Sprintf("%g", v.Val)
	case *StringLiteral:
		return strconv.Quote(v.Val)
	case *RangeLiteral:
		return "(" + exprSourceText(v.Start) + ".." + exprSourceText(v.Stop) + ")"
	case *Boolean:
		return fmt.Sprintf("%t", v.Val)
	default:
		return fmt.Sprintf("%T", e)
	}
}
