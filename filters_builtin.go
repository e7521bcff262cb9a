package liquid

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// builtinFilters is the default filter registry copied into every new
// Environment, grounded on the teacher's builtinFilters map and extended
// with Liquid's filter set (SPEC_FULL.md §6).
var builtinFilters = map[string]FilterFunction{
	"plus":       filterPlus,
	"minus":      filterMinus,
	"times":      filterTimes,
	"divided_by": filterDividedBy,
	"modulo":     filterModulo,
	"abs":        filterAbs,
	"ceil":       filterCeil,
	"floor":      filterFloor,
	"round":      filterRound,

	"size":  filterSize,
	"first": filterFirst,
	"last":  filterLast,
	"join":  filterJoin,
	"split": filterSplit,
	"reverse": filterReverse,
	"sort":    filterSort,
	"uniq":    filterUniq,
	"map":     filterMap,
	"where":   filterWhere,
	"concat":  filterConcat,
	"compact": filterCompact,
	"slice":   filterSlice,
	"default": filterDefault,

	"upcase":          filterUpcase,
	"downcase":        filterDowncase,
	"capitalize":      filterCapitalize,
	"strip":           filterStrip,
	"lstrip":          filterLstrip,
	"rstrip":          filterRstrip,
	"strip_newlines":  filterStripNewlines,
	"replace":         filterReplace,
	"replace_first":   filterReplaceFirst,
	"remove":          filterRemove,
	"remove_first":    filterRemoveFirst,
	"append":          filterAppend,
	"prepend":         filterPrepend,
	"truncate":        filterTruncate,
	"truncatewords":   filterTruncatewords,
	"escape":          filterEscape,
	"escape_once":     filterEscapeOnce,
	"url_encode":      filterURLEncode,
	"url_decode":      filterURLDecode,
	"newline_to_br":   filterNewlineToBr,
	"safe":            filterSafe,

	"date": filterDate,
	"json": filterJSON,
}

func arg(args []Value, i int) (Value, bool) {
	if i < 0 || i >= len(args) {
		return Value{}, false
	}
	return args[i], true
}

// --- numeric filters ---

func filterPlus(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	a, _ := arg(args, 0)
	return numericBinOp(left, a, func(x, y float64) float64 { return x + y }, func(x, y int64) int64 { return x + y })
}

func filterMinus(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	a, _ := arg(args, 0)
	return numericBinOp(left, a, func(x, y float64) float64 { return x - y }, func(x, y int64) int64 { return x - y })
}

func filterTimes(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	a, _ := arg(args, 0)
	return numericBinOp(left, a, func(x, y float64) float64 { return x * y }, func(x, y int64) int64 { return x * y })
}

func filterDividedBy(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	a, _ := arg(args, 0)
	if left.Kind == VInt && a.Kind == VInt {
		if a.Int == 0 {
			return Value{}, NewFilterValueError("divided_by: division by zero")
		}
		return IntValue(left.Int / a.Int), nil
	}
	y := a.asFloat()
	if y == 0 {
		return Value{}, NewFilterValueError("divided_by: division by zero")
	}
	return FloatValue(left.asFloat() / y), nil
}

func filterModulo(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	a, _ := arg(args, 0)
	if left.Kind == VInt && a.Kind == VInt {
		if a.Int == 0 {
			return Value{}, NewFilterValueError("modulo: division by zero")
		}
		return IntValue(left.Int % a.Int), nil
	}
	y := a.asFloat()
	if y == 0 {
		return Value{}, NewFilterValueError("modulo: division by zero")
	}
	return FloatValue(math.Mod(left.asFloat(), y)), nil
}

func numericBinOp(a, b Value, ffn func(x, y float64) float64, ifn func(x, y int64) int64) (Value, error) {
	if a.Kind == VInt && b.Kind == VInt {
		return IntValue(ifn(a.Int, b.Int)), nil
	}
	return FloatValue(ffn(a.asFloat(), b.asFloat())), nil
}

func filterAbs(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	if left.Kind == VInt {
		if left.Int < 0 {
			return IntValue(-left.Int), nil
		}
		return left, nil
	}
	return FloatValue(math.Abs(left.asFloat())), nil
}

func filterCeil(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	return IntValue(int64(math.Ceil(left.asFloat()))), nil
}

func filterFloor(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	return IntValue(int64(math.Floor(left.asFloat()))), nil
}

func filterRound(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	if a, ok := arg(args, 0); ok {
		prec := a.toInt()
		mult := math.Pow(10, float64(prec))
		return FloatValue(math.Round(left.asFloat()*mult) / mult), nil
	}
	return IntValue(int64(math.Round(left.asFloat()))), nil
}

// --- array/size filters ---

func filterSize(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	switch left.Kind {
	case VString:
		return IntValue(int64(len(left.Str))), nil
	case VArray:
		return IntValue(int64(len(left.Array))), nil
	case VMap:
		return IntValue(int64(left.Map.len())), nil
	default:
		return IntValue(0), nil
	}
}

func filterFirst(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	switch left.Kind {
	case VArray:
		if len(left.Array) == 0 {
			return Nil, nil
		}
		return left.Array[0], nil
	case VString:
		if left.Str == "" {
			return Nil, nil
		}
		return StringValue(left.Str[:1]), nil
	default:
		return Nil, nil
	}
}

func filterLast(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	switch left.Kind {
	case VArray:
		if len(left.Array) == 0 {
			return Nil, nil
		}
		return left.Array[len(left.Array)-1], nil
	case VString:
		if left.Str == "" {
			return Nil, nil
		}
		return StringValue(left.Str[len(left.Str)-1:]), nil
	default:
		return Nil, nil
	}
}

func filterJoin(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	sep := ", "
	if a, ok := arg(args, 0); ok {
		sep = a.String()
	}
	parts := make([]string, len(left.Array))
	for i, v := range left.Array {
		parts[i] = v.String()
	}
	return StringValue(strings.Join(parts, sep)), nil
}

func filterSplit(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	sep := ""
	if a, ok := arg(args, 0); ok {
		sep = a.String()
	}
	var parts []string
	if sep == "" {
		parts = strings.Split(left.String(), "")
	} else {
		parts = strings.Split(left.String(), sep)
	}
	out := make([]Value, len(parts))
	for i, p := range parts {
		out[i] = StringValue(p)
	}
	return ArrayValue(out), nil
}

func filterReverse(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	if left.Kind != VArray {
		return left, nil
	}
	out := make([]Value, len(left.Array))
	for i, v := range left.Array {
		out[len(left.Array)-1-i] = v
	}
	return ArrayValue(out), nil
}

func filterSort(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	if left.Kind != VArray {
		return left, nil
	}
	out := append([]Value(nil), left.Array...)
	var key string
	if a, ok := arg(args, 0); ok {
		key = a.String()
	}
	sort.SliceStable(out, func(i, j int) bool {
		vi, vj := out[i], out[j]
		if key != "" {
			vi, _ = projectProperty(vi, key)
			vj, _ = projectProperty(vj, key)
		}
		cmp, ok := compareValues(vi, vj)
		if ok {
			return cmp < 0
		}
		return vi.String() < vj.String()
	})
	return ArrayValue(out), nil
}

func filterUniq(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	if left.Kind != VArray {
		return left, nil
	}
	var out []Value
	for _, v := range left.Array {
		dup := false
		for _, seen := range out {
			if valuesEqual(seen, v) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return ArrayValue(out), nil
}

func filterMap(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	if left.Kind != VArray {
		return Nil, nil
	}
	key := ""
	if a, ok := arg(args, 0); ok {
		key = a.String()
	}
	out := make([]Value, len(left.Array))
	for i, v := range left.Array {
		p, _ := projectProperty(v, key)
		out[i] = p
	}
	return ArrayValue(out), nil
}

func filterWhere(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	if left.Kind != VArray {
		return Nil, nil
	}
	key := ""
	if a, ok := arg(args, 0); ok {
		key = a.String()
	}
	var want Value
	hasWant := false
	if a, ok := arg(args, 1); ok {
		want = a
		hasWant = true
	}
	var out []Value
	for _, v := range left.Array {
		p, ok := projectProperty(v, key)
		if !ok {
			continue
		}
		if hasWant {
			if valuesEqual(p, want) {
				out = append(out, v)
			}
		} else if p.IsTrue() {
			out = append(out, v)
		}
	}
	return ArrayValue(out), nil
}

func projectProperty(v Value, key string) (Value, bool) {
	switch v.Kind {
	case VMap:
		return v.Map.get(key)
	case VDrop:
		if bm, ok := v.Drop.(BeforeMethodDrop); ok {
			return bm.BeforeMethod(key)
		}
	}
	return Value{}, false
}

func filterConcat(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	a, _ := arg(args, 0)
	if left.Kind != VArray || a.Kind != VArray {
		return left, nil
	}
	out := append([]Value(nil), left.Array...)
	out = append(out, a.Array...)
	return ArrayValue(out), nil
}

func filterCompact(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	if left.Kind != VArray {
		return left, nil
	}
	var out []Value
	for _, v := range left.Array {
		if v.Kind == VNil || v.Kind == VUndefined {
			continue
		}
		out = append(out, v)
	}
	return ArrayValue(out), nil
}

func filterSlice(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	a0, _ := arg(args, 0)
	start := int(a0.toInt())
	length := 1
	if a1, ok := arg(args, 1); ok {
		length = int(a1.toInt())
	}
	switch left.Kind {
	case VArray:
		n := len(left.Array)
		if start < 0 {
			start += n
		}
		if start < 0 || start >= n {
			return ArrayValue(nil), nil
		}
		end := start + length
		if end > n {
			end = n
		}
		return ArrayValue(left.Array[start:end]), nil
	case VString:
		s := left.Str
		n := len(s)
		if start < 0 {
			start += n
		}
		if start < 0 || start >= n {
			return StringValue(""), nil
		}
		end := start + length
		if end > n {
			end = n
		}
		return StringValue(s[start:end]), nil
	default:
		return left, nil
	}
}

func filterDefault(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	allowFalse := false
	if v, ok := kwargs["allow_false"]; ok {
		allowFalse = v.IsTrue()
	}
	useDefault := false
	switch left.Kind {
	case VNil, VUndefined:
		useDefault = true
	case VBool:
		useDefault = !left.Bool && !allowFalse
	default:
		useDefault = isEmptyLike(left)
	}
	if useDefault {
		if a, ok := arg(args, 0); ok {
			return a, nil
		}
		return StringValue(""), nil
	}
	return left, nil
}

// --- string filters ---

func filterUpcase(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	return StringValue(strings.ToUpper(left.String())), nil
}

func filterDowncase(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	return StringValue(strings.ToLower(left.String())), nil
}

func filterCapitalize(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	s := left.String()
	if s == "" {
		return StringValue(s), nil
	}
	return StringValue(strings.ToUpper(s[:1]) + strings.ToLower(s[1:])), nil
}

func filterStrip(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	return StringValue(strings.TrimSpace(left.String())), nil
}

func filterLstrip(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	return StringValue(strings.TrimLeft(left.String(), " \t\r\n")), nil
}

func filterRstrip(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	return StringValue(strings.TrimRight(left.String(), " \t\r\n")), nil
}

func filterStripNewlines(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	s := strings.ReplaceAll(left.String(), "\r\n", "")
	s = strings.ReplaceAll(s, "\n", "")
	return StringValue(s), nil
}

func filterReplace(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	a0, _ := arg(args, 0)
	a1, _ := arg(args, 1)
	return StringValue(strings.ReplaceAll(left.String(), a0.String(), a1.String())), nil
}

func filterReplaceFirst(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	a0, _ := arg(args, 0)
	a1, _ := arg(args, 1)
	return StringValue(strings.Replace(left.String(), a0.String(), a1.String(), 1)), nil
}

func filterRemove(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	a0, _ := arg(args, 0)
	return StringValue(strings.ReplaceAll(left.String(), a0.String(), "")), nil
}

func filterRemoveFirst(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	a0, _ := arg(args, 0)
	return StringValue(strings.Replace(left.String(), a0.String(), "", 1)), nil
}

func filterAppend(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	a0, _ := arg(args, 0)
	return StringValue(left.String() + a0.String()), nil
}

func filterPrepend(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	a0, _ := arg(args, 0)
	return StringValue(a0.String() + left.String()), nil
}

func filterTruncate(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	s := left.String()
	n := 50
	if a, ok := arg(args, 0); ok {
		n = int(a.toInt())
	}
	suffix := "..."
	if a, ok := arg(args, 1); ok {
		suffix = a.String()
	}
	if len(s) <= n {
		return StringValue(s), nil
	}
	cut := n - len(suffix)
	if cut < 0 {
		cut = 0
	}
	return StringValue(s[:cut] + suffix), nil
}

func filterTruncatewords(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	words := strings.Fields(left.String())
	n := 15
	if a, ok := arg(args, 0); ok {
		n = int(a.toInt())
	}
	suffix := "..."
	if a, ok := arg(args, 1); ok {
		suffix = a.String()
	}
	if len(words) <= n {
		return StringValue(strings.Join(words, " ")), nil
	}
	return StringValue(strings.Join(words[:n], " ") + suffix), nil
}

func filterEscape(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	return StringValue(htmlEscape(left.String())), nil
}

func filterEscapeOnce(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	s := left.String()
	if strings.ContainsAny(s, "&<>\"'") && !looksAlreadyEscaped(s) {
		return StringValue(htmlEscape(s)), nil
	}
	return StringValue(htmlUnescapeThenEscape(s)), nil
}

func looksAlreadyEscaped(s string) bool {
	return strings.Contains(s, "&amp;") || strings.Contains(s, "&lt;") || strings.Contains(s, "&gt;")
}

func htmlUnescapeThenEscape(s string) string {
	unescaper := strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&#34;", `"`, "&#39;", "'")
	return htmlEscape(unescaper.Replace(s))
}

func filterURLEncode(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	return StringValue(url.QueryEscape(left.String())), nil
}

func filterURLDecode(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	s, err := url.QueryUnescape(left.String())
	if err != nil {
		return Value{}, NewFilterValueError("url_decode: %v", err)
	}
	return StringValue(s), nil
}

func filterNewlineToBr(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	s := strings.ReplaceAll(left.String(), "\r\n", "<br />\n")
	s = strings.ReplaceAll(s, "\n", "<br />\n")
	return StringValue(s), nil
}

func filterSafe(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	left.Safe = true
	return left, nil
}

func filterDate(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	layout := "%Y-%m-%d"
	if a, ok := arg(args, 0); ok {
		layout = a.String()
	}
	var t time.Time
	switch left.Kind {
	case VString:
		parsed, err := parseLiquidDate(left.Str)
		if err != nil {
			return Value{}, NewFilterValueError("date: %v", err)
		}
		t = parsed
	case VInt:
		t = time.Unix(left.Int, 0).UTC()
	default:
		return Value{}, NewFilterValueError("date: unsupported input type")
	}
	return StringValue(formatStrftime(t, layout)), nil
}

func parseLiquidDate(s string) (time.Time, error) {
	if strings.EqualFold(s, "now") || strings.EqualFold(s, "today") {
		return timeNowSubstitute(), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", s)
}

// timeNowSubstitute is isolated behind a variable so tests can stub "now".
var timeNowSubstitute = func() time.Time { return time.Now().UTC() }

// formatStrftime maps the common strftime directives Liquid templates use
// onto Go's reference-layout formatter.
func formatStrftime(t time.Time, layout string) string {
	var b strings.Builder
	for i := 0; i < len(layout); i++ {
		if layout[i] != '%' || i == len(layout)-1 {
			b.WriteByte(layout[i])
			continue
		}
		i++
		switch layout[i] {
		case 'Y':
			b.WriteString(strconv.Itoa(t.Year()))
		case 'm':
			b.WriteString(fmt.Sprintf("%02d", t.Month()))
		case 'd':
			b.WriteString(fmt.Sprintf("%02d", t.Day()))
		case 'H':
			b.WriteString(fmt.Sprintf("%02d", t.Hour()))
		case 'M':
			b.WriteString(fmt.Sprintf("%02d", t.Minute()))
		case 'S':
			b.WriteString(fmt.Sprintf("%02d", t.Second()))
		case 'B':
			b.WriteString(t.Month().String())
		case 'A':
			b.WriteString(t.Weekday().String())
		case '%':
			b.WriteByte('%')
		default:
			b.WriteByte('%')
			b.WriteByte(layout[i])
		}
	}
	return b.String()
}

func filterJSON(left Value, args []Value, kwargs map[string]Value) (Value, error) {
	return StringValue(toJSON(left)), nil
}

func toJSON(v Value) string {
	switch v.Kind {
	case VNil, VUndefined:
		return "null"
	case VBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case VInt:
		return strconv.FormatInt(v.Int, 10)
	case VFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case VString:
		return strconv.Quote(v.Str)
	case VArray:
		parts := make([]string, len(v.Array))
		for i, el := range v.Array {
			parts[i] = toJSON(el)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case VMap:
		parts := make([]string, 0, v.Map.len())
		for _, k := range v.Map.keys {
			val, _ := v.Map.get(k)
			parts = append(parts, strconv.Quote(k)+":"+toJSON(val))
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return "null"
	}
}
