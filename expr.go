package liquid

import "strings"

// Expression is any node that yields a Value when evaluated against a
// Context. This is the Liquid analogue of the teacher's IEvaluator
// interface, generalized from string rendering to Value production.
type Expression interface {
	Token() *Token
	Evaluate(ctx *Context) (Value, error)
}

// nilExpr, emptyExpr, blankExpr and continueExpr are process-wide singletons
// for the four constant keywords that carry their own equality rules rather
// than wrapping an ordinary Go value (spec.md §9's "Global/module-level
// state ... becomes process-wide immutable constants").
type nilExpr struct{ tok *Token }
type emptyExpr struct{ tok *Token }
type blankExpr struct{ tok *Token }
type continueExpr struct{ tok *Token }

func (e *nilExpr) Token() *Token      { return e.tok }
func (e *emptyExpr) Token() *Token    { return e.tok }
func (e *blankExpr) Token() *Token    { return e.tok }
func (e *continueExpr) Token() *Token { return e.tok }

func (e *nilExpr) Evaluate(ctx *Context) (Value, error)      { return Nil, nil }
func (e *emptyExpr) Evaluate(ctx *Context) (Value, error)    { return Empty, nil }
func (e *blankExpr) Evaluate(ctx *Context) (Value, error)    { return Blank, nil }
func (e *continueExpr) Evaluate(ctx *Context) (Value, error) { return ContinueValue, nil }

// Boolean is a literal true/false.
type Boolean struct {
	tok *Token
	Val bool
}

func (b *Boolean) Token() *Token { return b.tok }
func (b *Boolean) Evaluate(ctx *Context) (Value, error) {
	return BoolValue(b.Val), nil
}

// StringLiteral is a quoted string literal. It honors the context's
// autoescape setting by returning a marked-safe value: a literal string
// typed directly into a template is never itself a source of untrusted
// markup.
type StringLiteral struct {
	tok *Token
	Val string
}

func (s *StringLiteral) Token() *Token { return s.tok }
func (s *StringLiteral) Evaluate(ctx *Context) (Value, error) {
	return SafeStringValue(s.Val), nil
}

// IntegerLiteral is a decimal integer literal.
type IntegerLiteral struct {
	tok *Token
	Val int64
}

func (n *IntegerLiteral) Token() *Token { return n.tok }
func (n *IntegerLiteral) Evaluate(ctx *Context) (Value, error) {
	return IntValue(n.Val), nil
}

// FloatLiteral is a decimal float literal.
type FloatLiteral struct {
	tok *Token
	Val float64
}

func (f *FloatLiteral) Token() *Token { return f.tok }
func (f *FloatLiteral) Evaluate(ctx *Context) (Value, error) {
	return FloatValue(f.Val), nil
}

// RangeLiteral evaluates to an inclusive integer range "(start..stop)".
// Non-numeric endpoints coerce to 0; a descending range (stop < start)
// yields an empty range rather than an error.
type RangeLiteral struct {
	tok        *Token
	Start, Stop Expression
}

func (r *RangeLiteral) Token() *Token { return r.tok }

func (r *RangeLiteral) Evaluate(ctx *Context) (Value, error) {
	start, err := r.Start.Evaluate(ctx)
	if err != nil {
		return Value{}, err
	}
	stop, err := r.Stop.Evaluate(ctx)
	if err != nil {
		return Value{}, err
	}
	return RangeValue(start.toRangeEndpoint(), stop.toRangeEndpoint()), nil
}

// pathElem is one segment of an Identifier's path: either a literal name
// (string or integer) captured verbatim from source, or a nested
// Identifier evaluated at resolution time (bracketed lookup, e.g. a[b.c]).
type pathElem struct {
	name   string
	isName bool
	index  Expression // non-nil for a bracketed sub-expression
}

// Identifier is a dotted/bracketed variable path, e.g. "a.b[c.d][0]".
type Identifier struct {
	tok  *Token
	Path []pathElem
}

func (id *Identifier) Token() *Token { return id.tok }

func (id *Identifier) Evaluate(ctx *Context) (Value, error) {
	segs := make([]Value, 0, len(id.Path))
	for _, p := range id.Path {
		if p.isName {
			segs = append(segs, StringValue(p.name))
			continue
		}
		v, err := p.index.Evaluate(ctx)
		if err != nil {
			return Value{}, err
		}
		segs = append(segs, v)
	}
	return ctx.Resolve(segs)
}

// rootName returns the first path segment's literal name, used by tags that
// need to know what identifier an expression names (e.g. assign's target).
func (id *Identifier) rootName() (string, bool) {
	if len(id.Path) == 0 || !id.Path[0].isName {
		return "", false
	}
	return id.Path[0].name, true
}

// PrefixOp enumerates the unary operators.
type PrefixOp int

const (
	PrefixNeg PrefixOp = iota
)

// PrefixExpression is a unary operator applied to a numeric operand.
// Liquid's only prefix operator is unary minus.
type PrefixExpression struct {
	tok   *Token
	Op    PrefixOp
	Right Expression
}

func (p *PrefixExpression) Token() *Token { return p.tok }

func (p *PrefixExpression) Evaluate(ctx *Context) (Value, error) {
	right, err := p.Right.Evaluate(ctx)
	if err != nil {
		return Value{}, err
	}
	switch right.Kind {
	case VInt:
		return IntValue(-right.Int), nil
	case VFloat:
		return FloatValue(-right.Float), nil
	default:
		return Value{}, errorf(KindType, "evaluator", "unary minus applied to non-numeric value").At(ctx.templateName(), p.tok.Line, p.tok.Col, p.tok)
	}
}

// InfixOp enumerates binary comparison/logical operators.
type InfixOp int

const (
	OpEq InfixOp = iota
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpContains
	OpAnd
	OpOr
)

var infixOpNames = map[InfixOp]string{
	OpEq: "==", OpNeq: "!=", OpLt: "<", OpLte: "<=",
	OpGt: ">", OpGte: ">=", OpContains: "contains",
	OpAnd: "and", OpOr: "or",
}

func (op InfixOp) String() string { return infixOpNames[op] }

// InfixExpression is a binary comparison or logical combination.
type InfixExpression struct {
	tok         *Token
	Left, Right Expression
	Op          InfixOp
}

func (e *InfixExpression) Token() *Token { return e.tok }

func (e *InfixExpression) Evaluate(ctx *Context) (Value, error) {
	left, err := e.Left.Evaluate(ctx)
	if err != nil {
		return Value{}, err
	}
	if err := ctx.checkUndefinedUse(left, e.tok); err != nil {
		return Value{}, err
	}

	// and/or are Liquid-truthy combinations of the operands, not the raw
	// operand values (spec.md §4.2: "produce the Liquid-truthy boolean
	// combination (not the operand itself)").
	switch e.Op {
	case OpAnd:
		if !left.IsTrue() {
			return BoolValue(false), nil
		}
		right, err := e.Right.Evaluate(ctx)
		if err != nil {
			return Value{}, err
		}
		if err := ctx.checkUndefinedUse(right, e.tok); err != nil {
			return Value{}, err
		}
		return BoolValue(right.IsTrue()), nil
	case OpOr:
		if left.IsTrue() {
			return BoolValue(true), nil
		}
		right, err := e.Right.Evaluate(ctx)
		if err != nil {
			return Value{}, err
		}
		if err := ctx.checkUndefinedUse(right, e.tok); err != nil {
			return Value{}, err
		}
		return BoolValue(right.IsTrue()), nil
	}

	right, err := e.Right.Evaluate(ctx)
	if err != nil {
		return Value{}, err
	}
	if err := ctx.checkUndefinedUse(right, e.tok); err != nil {
		return Value{}, err
	}

	switch e.Op {
	case OpEq:
		return BoolValue(valuesEqual(left, right)), nil
	case OpNeq:
		return BoolValue(!valuesEqual(left, right)), nil
	case OpContains:
		return BoolValue(left.contains(right)), nil
	case OpLt, OpLte, OpGt, OpGte:
		cmp, ok := compareValues(left, right)
		if !ok {
			return Value{}, errorf(KindType, "evaluator", "cannot compare %s with %s", left.Kind, right.Kind).At(ctx.templateName(), e.tok.Line, e.tok.Col, e.tok)
		}
		switch e.Op {
		case OpLt:
			return BoolValue(cmp < 0), nil
		case OpLte:
			return BoolValue(cmp <= 0), nil
		case OpGt:
			return BoolValue(cmp > 0), nil
		case OpGte:
			return BoolValue(cmp >= 0), nil
		}
	}
	return Value{}, errorf(KindGeneric, "evaluator", "unreachable infix operator").At(ctx.templateName(), e.tok.Line, e.tok.Col, e.tok)
}

// BooleanExpression wraps any expression for use in a condition context
// (if/unless/elsif), projecting its result through Liquid truthiness.
type BooleanExpression struct {
	tok  *Token
	Expr Expression
}

func (b *BooleanExpression) Token() *Token { return b.tok }

func (b *BooleanExpression) Evaluate(ctx *Context) (Value, error) {
	v, err := b.Expr.Evaluate(ctx)
	if err != nil {
		return Value{}, err
	}
	if err := ctx.checkUndefinedUse(v, b.tok); err != nil {
		return Value{}, err
	}
	return BoolValue(v.IsTrue()), nil
}

// Filter is a descriptor consumed by FilteredExpression; it is not itself
// an Expression.
type Filter struct {
	tok    *Token
	Name   string
	Args   []Expression
	Kwargs []kwarg
}

type kwarg struct {
	Name string
	Expr Expression
}

// FilteredExpression is a primary expression followed by zero or more
// pipeline filters applied left to right.
type FilteredExpression struct {
	tok     *Token
	Expr    Expression
	Filters []*Filter
}

func (f *FilteredExpression) Token() *Token { return f.tok }

func (f *FilteredExpression) Evaluate(ctx *Context) (Value, error) {
	val, err := f.Expr.Evaluate(ctx)
	if err != nil {
		return Value{}, err
	}
	// Filter output is unmarked (escapable) unless the chain applies safe.
	safe := false
	for _, filt := range f.Filters {
		// A StrictDefault undefined is allowed to reach the default filter
		// for substitution (checkUndefinedUse's documented carve-out); any
		// other filter application, or a plain Strict undefined, raises.
		skipCheck := val.Kind == VUndefined && val.UndefinedPolicy == PolicyStrictDefault && filt.Name == "default"
		if !skipCheck {
			if err := ctx.checkUndefinedUse(val, f.tok); err != nil {
				return Value{}, err
			}
		}
		val, err = ctx.applyFilter(filt, val)
		if err != nil {
			return Value{}, err
		}
		if filt.Name == "safe" {
			safe = true
		}
	}
	val.Safe = safe
	return val, nil
}

// AssignmentExpression is used only inside the assign tag's expression
// region: "name = expression".
type AssignmentExpression struct {
	tok  *Token
	Name string
	Expr Expression
}

func (a *AssignmentExpression) Token() *Token { return a.tok }

func (a *AssignmentExpression) Evaluate(ctx *Context) (Value, error) {
	v, err := a.Expr.Evaluate(ctx)
	if err != nil {
		return Value{}, err
	}
	if err := ctx.checkUndefinedUse(v, a.tok); err != nil {
		return Value{}, err
	}
	ctx.AssignGlobal(a.Name, v)
	return v, nil
}

// LoopExpression is the iteration descriptor shared by the for and
// tablerow tags: "name in iterable (limit:N)? (offset:N|continue)?
// (cols:N)? reversed?".
type LoopExpression struct {
	tok      *Token
	Name     string
	Iterable Expression
	Limit    Expression // nil if absent
	Offset   Expression // nil if absent; may be continueExpr
	Cols     Expression // nil if absent (tablerow only)
	Reversed bool

	// sourceText is exprSourceText's structural reconstruction of the
	// iterable sub-expression (not its original bytes), used to derive the
	// stop-index key alongside Name (spec.md §9's
	// grounding: "name + iterable-source-text").
	sourceText string
}

func (l *LoopExpression) Token() *Token { return l.tok }

// stopIndexKey derives the per-loop cursor key used by Context's stop-index
// registry to support "offset: continue".
func (l *LoopExpression) stopIndexKey() string {
	return l.Name + "-" + trimIdentSource(l.sourceText)
}

// Evaluate is not used directly for LoopExpression (ForNode/TablerowNode
// call resolve instead, since they need limit/offset/cols as plain ints
// rather than Values); it is provided to satisfy the Expression interface
// for uniformity with other sum-type members.
func (l *LoopExpression) Evaluate(ctx *Context) (Value, error) {
	return l.Iterable.Evaluate(ctx)
}

// resolvedLoop carries the evaluated, int-coerced parameters of a
// LoopExpression ready for the loop driver to consume.
type resolvedLoop struct {
	items    []Value
	limit    int
	hasLimit bool
	offset   int
	cols     int
	hasCols  bool
	reversed bool
}

func (l *LoopExpression) resolve(ctx *Context) (*resolvedLoop, error) {
	iterVal, err := l.Iterable.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.checkUndefinedUse(iterVal, l.tok); err != nil {
		return nil, err
	}
	items := iterVal.toSlice()

	out := &resolvedLoop{reversed: l.Reversed}

	if l.Limit != nil {
		v, err := l.Limit.Evaluate(ctx)
		if err != nil {
			return nil, err
		}
		out.limit = int(v.toInt())
		out.hasLimit = true
	}

	if l.Offset != nil {
		if _, isContinue := l.Offset.(*continueExpr); isContinue {
			out.offset = ctx.stopIndex(l.stopIndexKey())
		} else {
			v, err := l.Offset.Evaluate(ctx)
			if err != nil {
				return nil, err
			}
			out.offset = int(v.toInt())
		}
	}

	if l.Cols != nil {
		v, err := l.Cols.Evaluate(ctx)
		if err != nil {
			return nil, err
		}
		out.cols = int(v.toInt())
		out.hasCols = true
	}

	if out.offset > 0 {
		if out.offset >= len(items) {
			items = nil
		} else {
			items = items[out.offset:]
		}
	}
	if out.hasLimit && out.limit < len(items) {
		if out.limit < 0 {
			out.limit = 0
		}
		items = items[:out.limit]
	}
	if out.reversed {
		rev := make([]Value, len(items))
		for i, v := range items {
			rev[len(items)-1-i] = v
		}
		items = rev
	}
	out.items = items

	ctx.setStopIndex(l.stopIndexKey(), out.offset+len(items))
	return out, nil
}

// trimIdentSource strips surrounding whitespace for use as a stable
// stop-index key fragment.
func trimIdentSource(s string) string { return strings.TrimSpace(s) }
