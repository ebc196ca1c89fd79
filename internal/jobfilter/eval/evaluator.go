// Package eval implements the pure, re-entrant evaluator that walks a
// compiled query tree against a document, in both match mode (boolean
// predicates over a job record) and expression mode ($expr and its
// descendants).
package eval

import (
	"math"
	"strings"

	"github.com/spf13/cast"

	"github.com/bargom/jobfilter/internal/jobfilter/compiler"
	"github.com/bargom/jobfilter/internal/jobfilter/path"
	"github.com/bargom/jobfilter/internal/jobfilter/value"
)

// Config tunes the evaluator's ancillary resources. Zero value resolves
// to DefaultConfig via New.
type Config struct {
	RegexCacheSize int
}

// DefaultConfig returns the evaluator defaults used when not overridden
// by JOBFILTER_REGEX_CACHE_SIZE.
func DefaultConfig() Config {
	return Config{RegexCacheSize: defaultRegexCacheSize}
}

// Evaluator applies a compiled query tree to documents. It holds no
// per-call state beyond its regex cache, so one Evaluator is safely
// reused — concurrently — across every document in a filter pass.
type Evaluator struct {
	regexes *regexCache
}

// New builds an Evaluator from cfg.
func New(cfg Config) *Evaluator {
	if cfg.RegexCacheSize <= 0 {
		cfg.RegexCacheSize = defaultRegexCacheSize
	}
	return &Evaluator{regexes: newRegexCache(cfg.RegexCacheSize)}
}

// NewDefault builds an Evaluator with DefaultConfig.
func NewDefault() *Evaluator { return New(DefaultConfig()) }

// Match runs a compiled query tree in match mode against doc, returning
// whether the document satisfies it.
func (e *Evaluator) Match(doc value.Value, node *compiler.Node) (bool, error) {
	switch node.Kind {
	case compiler.KindOperator:
		switch node.Op {
		case "$and":
			for _, c := range node.Args {
				ok, err := e.Match(doc, c)
				if err != nil || !ok {
					return ok, err
				}
			}
			return true, nil
		case "$or":
			for _, c := range node.Args {
				ok, err := e.Match(doc, c)
				if err != nil {
					return false, err
				}
				if ok {
					return true, nil
				}
			}
			return false, nil
		case "$nor":
			for _, c := range node.Args {
				ok, err := e.Match(doc, c)
				if err != nil {
					return false, err
				}
				if ok {
					return false, nil
				}
			}
			return true, nil
		default:
			return false, compiler.NewEvalError(node.Op, "operator not valid as a top-level match clause")
		}

	case compiler.KindFieldMatch:
		resolved := path.Resolve(doc, node.Path)
		return e.matchFieldValue(resolved, node.Predicate)

	case compiler.KindExprPredicate:
		v, err := e.Eval(doc, node.Expr)
		if err != nil {
			return false, err
		}
		return value.Truthy(v), nil

	default:
		return false, compiler.NewEvalError("", "invalid match node kind: "+node.Kind.String())
	}
}

// matchFieldValue applies pred to v, additionally trying every element
// of v when v is an array — the reference language's implicit
// "matches the whole array or any element" rule for array-valued
// fields, which also covers values already fanned out by path.Resolve.
func (e *Evaluator) matchFieldValue(v value.Value, pred *compiler.Node) (bool, error) {
	ok, err := e.evalPredicate(v, pred)
	if err != nil || ok {
		return ok, err
	}
	if v.IsArray() {
		for _, elem := range v.Elements() {
			ok, err := e.evalPredicate(elem, pred)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
	}
	return false, nil
}

func (e *Evaluator) evalPredicate(v value.Value, pred *compiler.Node) (bool, error) {
	if pred.Kind != compiler.KindOperator {
		return false, compiler.NewEvalError("", "invalid predicate node kind: "+pred.Kind.String())
	}

	switch pred.Op {
	case "$and":
		for _, c := range pred.Args {
			ok, err := e.evalPredicate(v, c)
			if err != nil || !ok {
				return ok, err
			}
		}
		return true, nil

	case "$eq":
		// A null operand matches both an explicit null and an absent field.
		if pred.Args[0].Lit.IsNull() && v.IsMissing() {
			return true, nil
		}
		return value.Equal(v, pred.Args[0].Lit), nil
	case "$ne":
		return !value.Equal(v, pred.Args[0].Lit), nil
	case "$gt":
		return !v.IsMissing() && value.Compare(v, pred.Args[0].Lit) > 0, nil
	case "$gte":
		return !v.IsMissing() && value.Compare(v, pred.Args[0].Lit) >= 0, nil
	case "$lt":
		return !v.IsMissing() && value.Compare(v, pred.Args[0].Lit) < 0, nil
	case "$lte":
		return !v.IsMissing() && value.Compare(v, pred.Args[0].Lit) <= 0, nil

	case "$exists":
		want := value.Truthy(pred.Args[0].Lit)
		return !v.IsMissing() == want, nil

	case "$type":
		return matchesType(v, pred.Args[0].Lit), nil

	case "$size":
		if !v.IsArray() {
			return false, nil
		}
		n, ok := pred.Args[0].Lit.AsInt()
		if !ok {
			return false, compiler.NewEvalError("$size", "operand must be an integer")
		}
		return int64(len(v.Elements())) == n, nil

	case "$mod":
		if !v.IsNumber() {
			return false, nil
		}
		divisor := pred.Args[0].Lit.AsFloat()
		remainder := pred.Args[1].Lit.AsFloat()
		if divisor == 0 {
			return false, compiler.NewEvalError("$mod", "division by zero")
		}
		return math.Mod(v.AsFloat(), divisor) == remainder, nil

	case "$matches":
		return e.matchesRegex(v, pred.Args[0].Lit)

	case "$all":
		if !v.IsArray() {
			return false, nil
		}
		wanted := pred.Args[0].Lit
		if !wanted.IsArray() {
			return false, compiler.NewEvalError("$all", "operand must be an array")
		}
		for _, w := range wanted.Elements() {
			if !containsElement(v, w) {
				return false, nil
			}
		}
		return true, nil

	case "$in":
		wanted := pred.Args[0].Lit
		if !wanted.IsArray() {
			return false, compiler.NewEvalError("$in", "operand must be an array")
		}
		return containsElement(wanted, v), nil

	case "$nin":
		wanted := pred.Args[0].Lit
		if !wanted.IsArray() {
			return false, compiler.NewEvalError("$nin", "operand must be an array")
		}
		return !containsElement(wanted, v), nil

	case "$not":
		ok, err := e.evalPredicate(v, pred.Args[0])
		if err != nil {
			return false, err
		}
		return !ok, nil

	default:
		return false, compiler.ErrUnknownOperator(pred.Op)
	}
}

func containsElement(arr, v value.Value) bool {
	for _, e := range arr.Elements() {
		if value.Equal(e, v) {
			return true
		}
	}
	return false
}

func matchesType(v value.Value, want value.Value) bool {
	name := "missing"
	if !v.IsMissing() {
		name = value.TypeName(v)
	}
	if want.IsArray() {
		for _, w := range want.Elements() {
			if w.IsString() && w.Str() == name {
				return true
			}
		}
		return false
	}
	return want.IsString() && want.Str() == name
}

func (e *Evaluator) matchesRegex(v value.Value, spec value.Value) (bool, error) {
	if !v.IsString() {
		return false, nil
	}
	pattern, flags, err := regexSpec(spec)
	if err != nil {
		return false, err
	}
	re, err := e.regexes.compile(pattern, flags)
	if err != nil {
		return false, compiler.NewEvalError("$matches", err.Error())
	}
	ok, err := re.MatchString(v.Str())
	if err != nil {
		return false, compiler.NewEvalError("$matches", err.Error())
	}
	return ok, nil
}

func regexSpec(spec value.Value) (pattern, flags string, err error) {
	if spec.IsString() {
		return spec.Str(), "", nil
	}
	if spec.IsObject() {
		o := spec.Obj()
		p, ok := o.Get("pattern")
		if !ok || !p.IsString() {
			return "", "", compiler.NewEvalError("$matches", "object form requires a string pattern")
		}
		pattern = p.Str()
		if f, ok := o.Get("flags"); ok && f.IsString() {
			flags = f.Str()
		}
		return pattern, flags, nil
	}
	return "", "", compiler.NewEvalError("$matches", "pattern must be a string or {pattern, flags} object")
}

// Eval runs a compiled expression node against doc in expression mode,
// returning the computed value.
func (e *Evaluator) Eval(doc value.Value, node *compiler.Node) (value.Value, error) {
	switch node.Kind {
	case compiler.KindLiteral:
		return node.Lit, nil

	case compiler.KindFieldRef:
		return path.Resolve(doc, node.Path), nil

	case compiler.KindSwitch:
		for _, b := range node.Branches {
			cv, err := e.Eval(doc, b.Case)
			if err != nil {
				return value.Missing(), err
			}
			if value.Truthy(cv) {
				return e.Eval(doc, b.Then)
			}
		}
		if node.Default != nil {
			return e.Eval(doc, node.Default)
		}
		return value.Missing(), compiler.NewEvalError("$switch", "no branch matched and no default was given")

	case compiler.KindOperator:
		return e.evalOperator(doc, node)

	default:
		return value.Missing(), compiler.NewEvalError("", "invalid expression node kind: "+node.Kind.String())
	}
}

func (e *Evaluator) evalArgs(doc value.Value, nodes []*compiler.Node) ([]value.Value, error) {
	out := make([]value.Value, len(nodes))
	for i, n := range nodes {
		v, err := e.Eval(doc, n)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *Evaluator) evalOperator(doc value.Value, node *compiler.Node) (value.Value, error) {
	switch node.Op {
	case "$array":
		args, err := e.evalArgs(doc, node.Args)
		if err != nil {
			return value.Missing(), err
		}
		return value.ArrayFrom(args), nil

	case "$and":
		for _, a := range node.Args {
			v, err := e.Eval(doc, a)
			if err != nil {
				return value.Missing(), err
			}
			if !value.Truthy(v) {
				return value.Bool(false), nil
			}
		}
		return value.Bool(true), nil

	case "$or":
		for _, a := range node.Args {
			v, err := e.Eval(doc, a)
			if err != nil {
				return value.Missing(), err
			}
			if value.Truthy(v) {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil

	case "$not":
		v, err := e.Eval(doc, node.Args[0])
		if err != nil {
			return value.Missing(), err
		}
		return value.Bool(!value.Truthy(v)), nil

	case "$cond":
		ifv, err := e.Eval(doc, node.Args[0])
		if err != nil {
			return value.Missing(), err
		}
		if value.Truthy(ifv) {
			return e.Eval(doc, node.Args[1])
		}
		return e.Eval(doc, node.Args[2])

	case "$ifNull":
		for i, a := range node.Args {
			v, err := e.Eval(doc, a)
			if err != nil {
				return value.Missing(), err
			}
			if i == len(node.Args)-1 || !v.IsNullish() {
				return v, nil
			}
		}
		return value.Missing(), nil

	case "$cmp":
		args, err := e.evalArgs(doc, node.Args)
		if err != nil {
			return value.Missing(), err
		}
		return value.Int(int64(value.Compare(args[0], args[1]))), nil

	case "$eq", "$ne", "$gt", "$gte", "$lt", "$lte":
		args, err := e.evalArgs(doc, node.Args)
		if err != nil {
			return value.Missing(), err
		}
		return evalComparison(node.Op, args[0], args[1]), nil

	case "$exists":
		v, err := e.Eval(doc, node.Args[0])
		if err != nil {
			return value.Missing(), err
		}
		return value.Bool(!v.IsMissing()), nil

	case "$type":
		v, err := e.Eval(doc, node.Args[0])
		if err != nil {
			return value.Missing(), err
		}
		if v.IsMissing() {
			return value.String("missing"), nil
		}
		return value.String(value.TypeName(v)), nil

	case "$size":
		v, err := e.Eval(doc, node.Args[0])
		if err != nil {
			return value.Missing(), err
		}
		if !v.IsArray() {
			return value.Missing(), compiler.NewEvalError("$size", "operand must be an array")
		}
		return value.Int(int64(len(v.Elements()))), nil

	case "$mod":
		return e.evalArithmetic2(doc, node, func(a, b float64) (float64, error) {
			if b == 0 {
				return 0, compiler.NewEvalError("$mod", "division by zero")
			}
			return math.Mod(a, b), nil
		})
	case "$matches":
		args, err := e.evalArgs(doc, node.Args)
		if err != nil {
			return value.Missing(), err
		}
		ok, err := e.matchesRegex(args[0], args[1])
		if err != nil {
			return value.Missing(), err
		}
		return value.Bool(ok), nil

	case "$in":
		args, err := e.evalArgs(doc, node.Args)
		if err != nil {
			return value.Missing(), err
		}
		if !args[1].IsArray() {
			return value.Missing(), compiler.NewEvalError("$in", "second operand must be an array")
		}
		return value.Bool(containsElement(args[1], args[0])), nil

	case "$nin":
		args, err := e.evalArgs(doc, node.Args)
		if err != nil {
			return value.Missing(), err
		}
		if !args[1].IsArray() {
			return value.Missing(), compiler.NewEvalError("$nin", "second operand must be an array")
		}
		return value.Bool(!containsElement(args[1], args[0])), nil

	case "$add":
		return e.evalArithmeticVariadic(doc, node, 0, func(acc, v float64) float64 { return acc + v })
	case "$multiply":
		return e.evalArithmeticVariadic(doc, node, 1, func(acc, v float64) float64 { return acc * v })
	case "$subtract":
		return e.evalArithmetic2(doc, node, func(a, b float64) (float64, error) { return a - b, nil })
	case "$divide":
		return e.evalArithmetic2(doc, node, func(a, b float64) (float64, error) {
			if b == 0 {
				return 0, compiler.NewEvalError("$divide", "division by zero")
			}
			return a / b, nil
		})

	case "$abs":
		return e.evalArithmetic1(doc, node, math.Abs)
	case "$ceil":
		return e.evalArithmetic1(doc, node, math.Ceil)
	case "$floor":
		return e.evalArithmetic1(doc, node, math.Floor)
	case "$sqrt":
		return e.evalArithmetic1(doc, node, math.Sqrt)

	case "$round":
		return e.evalRoundTrunc(doc, node, true)
	case "$trunc":
		return e.evalRoundTrunc(doc, node, false)

	case "$max":
		return e.evalExtreme(doc, node, 1)
	case "$min":
		return e.evalExtreme(doc, node, -1)

	case "$concat":
		return e.evalConcat(doc, node)
	case "$substr":
		return e.evalSubstr(doc, node)
	case "$toLower":
		return e.evalStringUnary(doc, node, strings.ToLower)
	case "$toUpper":
		return e.evalStringUnary(doc, node, strings.ToUpper)
	case "$trim":
		return e.evalStringUnary(doc, node, strings.TrimSpace)
	case "$ltrim":
		return e.evalStringUnary(doc, node, func(s string) string { return strings.TrimLeft(s, " \t\n\r") })
	case "$rtrim":
		return e.evalStringUnary(doc, node, func(s string) string { return strings.TrimRight(s, " \t\n\r") })
	case "$split":
		return e.evalSplit(doc, node)
	case "$strLen":
		v, err := e.Eval(doc, node.Args[0])
		if err != nil {
			return value.Missing(), err
		}
		if v.IsNullish() {
			return value.Null(), nil
		}
		if !v.IsString() {
			return value.Missing(), compiler.NewEvalError("$strLen", "operand must be a string")
		}
		return value.Int(int64(len([]rune(v.Str())))), nil
	case "$strLenBytes":
		v, err := e.Eval(doc, node.Args[0])
		if err != nil {
			return value.Missing(), err
		}
		if v.IsNullish() {
			return value.Null(), nil
		}
		if !v.IsString() {
			return value.Missing(), compiler.NewEvalError("$strLenBytes", "operand must be a string")
		}
		return value.Int(int64(len(v.Str()))), nil
	case "$indexOfBytes":
		return e.evalIndexOfBytes(doc, node)
	case "$substrBytes":
		return e.evalSubstrBytes(doc, node)
	case "$strcasecmp":
		return e.evalStrcasecmp(doc, node)
	case "$contains":
		return e.evalStringPredicate(doc, node, strings.Contains)
	case "$startsWith":
		return e.evalStringPredicate(doc, node, strings.HasPrefix)
	case "$endsWith":
		return e.evalStringPredicate(doc, node, strings.HasSuffix)

	case "$isNumber":
		v, err := e.Eval(doc, node.Args[0])
		if err != nil {
			return value.Missing(), err
		}
		return value.Bool(v.IsNumber()), nil

	case "$toBool":
		v, err := e.Eval(doc, node.Args[0])
		if err != nil {
			return value.Missing(), err
		}
		if v.IsNullish() {
			return value.Null(), nil
		}
		return value.Bool(value.Truthy(v)), nil

	case "$toBoolEx":
		// Diverges from $toBool in exactly one case: the empty string
		// converts to false here, true under $toBool.
		v, err := e.Eval(doc, node.Args[0])
		if err != nil {
			return value.Missing(), err
		}
		if v.IsNullish() {
			return value.Null(), nil
		}
		if v.IsString() && v.Str() == "" {
			return value.Bool(false), nil
		}
		return value.Bool(value.Truthy(v)), nil

	case "$toInt", "$toLong":
		return e.evalToInt(doc, node)
	case "$toDouble", "$toDecimal":
		return e.evalToFloat(doc, node)
	case "$toString":
		return e.evalToString(doc, node)

	default:
		return value.Missing(), compiler.ErrUnknownOperator(node.Op)
	}
}

func evalComparison(op string, a, b value.Value) value.Value {
	if op == "$eq" {
		return value.Bool(value.Equal(a, b))
	}
	if op == "$ne" {
		return value.Bool(!value.Equal(a, b))
	}
	c := value.Compare(a, b)
	switch op {
	case "$gt":
		return value.Bool(c > 0)
	case "$gte":
		return value.Bool(c >= 0)
	case "$lt":
		return value.Bool(c < 0)
	case "$lte":
		return value.Bool(c <= 0)
	default:
		return value.Bool(false)
	}
}

// evalArithmetic1 applies a unary float function, propagating null when
// the operand is null or missing per the engine's arithmetic rules.
func (e *Evaluator) evalArithmetic1(doc value.Value, node *compiler.Node, fn func(float64) float64) (value.Value, error) {
	v, err := e.Eval(doc, node.Args[0])
	if err != nil {
		return value.Missing(), err
	}
	if v.IsNullish() {
		return value.Null(), nil
	}
	if !v.IsNumber() {
		return value.Missing(), compiler.NewEvalError(node.Op, "operand must be numeric")
	}
	return value.NumberFromFloat(fn(v.AsFloat())), nil
}

func (e *Evaluator) evalArithmetic2(doc value.Value, node *compiler.Node, fn func(a, b float64) (float64, error)) (value.Value, error) {
	a, err := e.Eval(doc, node.Args[0])
	if err != nil {
		return value.Missing(), err
	}
	b, err := e.Eval(doc, node.Args[1])
	if err != nil {
		return value.Missing(), err
	}
	if a.IsNullish() || b.IsNullish() {
		return value.Null(), nil
	}
	if !a.IsNumber() || !b.IsNumber() {
		return value.Missing(), compiler.NewEvalError(node.Op, "operands must be numeric")
	}
	r, err := fn(a.AsFloat(), b.AsFloat())
	if err != nil {
		return value.Missing(), err
	}
	return value.NumberFromFloat(r), nil
}

func (e *Evaluator) evalArithmeticVariadic(doc value.Value, node *compiler.Node, identity float64, fn func(acc, v float64) float64) (value.Value, error) {
	acc := identity
	for _, a := range node.Args {
		v, err := e.Eval(doc, a)
		if err != nil {
			return value.Missing(), err
		}
		if v.IsNullish() {
			return value.Null(), nil
		}
		if !v.IsNumber() {
			return value.Missing(), compiler.NewEvalError(node.Op, "operands must be numeric")
		}
		acc = fn(acc, v.AsFloat())
	}
	return value.NumberFromFloat(acc), nil
}

// evalExtreme implements $max/$min: unlike the other arithmetic
// operators, null and missing operands are ignored rather than making
// the whole expression null; the result is null only when every
// operand is nullish.
func (e *Evaluator) evalExtreme(doc value.Value, node *compiler.Node, want int) (value.Value, error) {
	var best value.Value
	have := false
	for _, a := range node.Args {
		v, err := e.Eval(doc, a)
		if err != nil {
			return value.Missing(), err
		}
		if v.IsNullish() {
			continue
		}
		if !have {
			best = v
			have = true
			continue
		}
		c := value.Compare(v, best)
		if (want > 0 && c > 0) || (want < 0 && c < 0) {
			best = v
		}
	}
	if !have {
		return value.Null(), nil
	}
	return best, nil
}

// evalRoundTrunc implements $round/$trunc with banker's rounding
// (round-half-to-even), scaled to an optional decimal place count.
func (e *Evaluator) evalRoundTrunc(doc value.Value, node *compiler.Node, roundHalfToEven bool) (value.Value, error) {
	v, err := e.Eval(doc, node.Args[0])
	if err != nil {
		return value.Missing(), err
	}
	if v.IsNullish() {
		return value.Null(), nil
	}
	if !v.IsNumber() {
		return value.Missing(), compiler.NewEvalError(node.Op, "operand must be numeric")
	}

	place := int64(0)
	if len(node.Args) > 1 {
		pv, err := e.Eval(doc, node.Args[1])
		if err != nil {
			return value.Missing(), err
		}
		if !pv.IsNullish() {
			p, ok := pv.AsInt()
			if !ok {
				return value.Missing(), compiler.NewEvalError(node.Op, "place must be an integer")
			}
			place = p
		}
	}

	scale := math.Pow(10, float64(place))
	scaled := v.AsFloat() * scale
	var result float64
	if roundHalfToEven {
		result = math.RoundToEven(scaled)
	} else {
		result = math.Trunc(scaled)
	}
	return value.NumberFromFloat(result / scale), nil
}

func (e *Evaluator) evalConcat(doc value.Value, node *compiler.Node) (value.Value, error) {
	var sb strings.Builder
	for _, a := range node.Args {
		v, err := e.Eval(doc, a)
		if err != nil {
			return value.Missing(), err
		}
		if v.IsNullish() {
			return value.Null(), nil
		}
		if !v.IsString() {
			return value.Missing(), compiler.NewEvalError("$concat", "operands must be strings")
		}
		sb.WriteString(v.Str())
	}
	return value.String(sb.String()), nil
}

func (e *Evaluator) evalSubstr(doc value.Value, node *compiler.Node) (value.Value, error) {
	args, err := e.evalArgs(doc, node.Args)
	if err != nil {
		return value.Missing(), err
	}
	s, start, length := args[0], args[1], args[2]
	if s.IsNullish() {
		return value.Null(), nil
	}
	if !s.IsString() {
		return value.Missing(), compiler.NewEvalError("$substr", "first operand must be a string")
	}
	startI, ok1 := start.AsInt()
	lenI, ok2 := length.AsInt()
	if !ok1 || !ok2 {
		return value.Missing(), compiler.NewEvalError("$substr", "start and length must be integers")
	}
	runes := []rune(s.Str())
	if startI < 0 {
		startI = 0
	}
	if startI >= int64(len(runes)) {
		return value.String(""), nil
	}
	end := startI + lenI
	if lenI < 0 || end > int64(len(runes)) {
		end = int64(len(runes))
	}
	return value.String(string(runes[startI:end])), nil
}

// evalSubstrBytes mirrors evalSubstr but indexes into the UTF-8 byte
// sequence instead of runes, per $substrBytes's byte-offset contract.
func (e *Evaluator) evalSubstrBytes(doc value.Value, node *compiler.Node) (value.Value, error) {
	args, err := e.evalArgs(doc, node.Args)
	if err != nil {
		return value.Missing(), err
	}
	s, start, length := args[0], args[1], args[2]
	if s.IsNullish() {
		return value.Null(), nil
	}
	if !s.IsString() {
		return value.Missing(), compiler.NewEvalError("$substrBytes", "first operand must be a string")
	}
	startI, ok1 := start.AsInt()
	lenI, ok2 := length.AsInt()
	if !ok1 || !ok2 {
		return value.Missing(), compiler.NewEvalError("$substrBytes", "start and length must be integers")
	}
	b := s.Str()
	if startI < 0 {
		startI = 0
	}
	if startI >= int64(len(b)) {
		return value.String(""), nil
	}
	end := startI + lenI
	if lenI < 0 || end > int64(len(b)) {
		end = int64(len(b))
	}
	return value.String(b[startI:end]), nil
}

// evalStrcasecmp implements ASCII case-insensitive byte comparison,
// returning -1, 0, or 1.
func (e *Evaluator) evalStrcasecmp(doc value.Value, node *compiler.Node) (value.Value, error) {
	args, err := e.evalArgs(doc, node.Args)
	if err != nil {
		return value.Missing(), err
	}
	a, b := args[0], args[1]
	if !a.IsString() || !b.IsString() {
		return value.Missing(), compiler.NewEvalError("$strcasecmp", "operands must be strings")
	}
	as, bs := asciiLower(a.Str()), asciiLower(b.Str())
	switch {
	case as < bs:
		return value.Int(-1), nil
	case as > bs:
		return value.Int(1), nil
	default:
		return value.Int(0), nil
	}
}

func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// evalStringPredicate backs $contains/$startsWith/$endsWith: a string
// test evaluated against two operands, nullish-propagating like the
// engine's other string operators.
func (e *Evaluator) evalStringPredicate(doc value.Value, node *compiler.Node, test func(s, substr string) bool) (value.Value, error) {
	args, err := e.evalArgs(doc, node.Args)
	if err != nil {
		return value.Missing(), err
	}
	s, sub := args[0], args[1]
	if s.IsNullish() {
		return value.Null(), nil
	}
	if !s.IsString() || !sub.IsString() {
		return value.Missing(), compiler.NewEvalError(node.Op, "operands must be strings")
	}
	return value.Bool(test(s.Str(), sub.Str())), nil
}

func (e *Evaluator) evalStringUnary(doc value.Value, node *compiler.Node, fn func(string) string) (value.Value, error) {
	v, err := e.Eval(doc, node.Args[0])
	if err != nil {
		return value.Missing(), err
	}
	if v.IsNullish() {
		return value.Null(), nil
	}
	if !v.IsString() {
		return value.Missing(), compiler.NewEvalError(node.Op, "operand must be a string")
	}
	return value.String(fn(v.Str())), nil
}

func (e *Evaluator) evalSplit(doc value.Value, node *compiler.Node) (value.Value, error) {
	args, err := e.evalArgs(doc, node.Args)
	if err != nil {
		return value.Missing(), err
	}
	s, sep := args[0], args[1]
	if s.IsNullish() || sep.IsNullish() {
		return value.Null(), nil
	}
	if !s.IsString() || !sep.IsString() {
		return value.Missing(), compiler.NewEvalError("$split", "operands must be strings")
	}
	parts := strings.Split(s.Str(), sep.Str())
	elems := make([]value.Value, len(parts))
	for i, p := range parts {
		elems[i] = value.String(p)
	}
	return value.ArrayFrom(elems), nil
}

func (e *Evaluator) evalIndexOfBytes(doc value.Value, node *compiler.Node) (value.Value, error) {
	args, err := e.evalArgs(doc, node.Args)
	if err != nil {
		return value.Missing(), err
	}
	s, sub := args[0], args[1]
	if s.IsNullish() {
		return value.Null(), nil
	}
	if !s.IsString() || !sub.IsString() {
		return value.Missing(), compiler.NewEvalError("$indexOfBytes", "operands must be strings")
	}
	start := 0
	if len(args) > 2 {
		n, ok := args[2].AsInt()
		if !ok {
			return value.Missing(), compiler.NewEvalError("$indexOfBytes", "start must be an integer")
		}
		start = int(n)
	}
	str := s.Str()
	if start < 0 {
		start = 0
	}
	if start > len(str) {
		return value.Int(-1), nil
	}
	idx := strings.Index(str[start:], sub.Str())
	if idx < 0 {
		return value.Int(-1), nil
	}
	return value.Int(int64(idx + start)), nil
}

func (e *Evaluator) evalToInt(doc value.Value, node *compiler.Node) (value.Value, error) {
	v, err := e.Eval(doc, node.Args[0])
	if err != nil {
		return value.Missing(), err
	}
	if v.IsNullish() {
		return value.Null(), nil
	}
	i, err := cast.ToInt64E(value.ToAny(v))
	if err != nil {
		return value.Missing(), compiler.NewEvalError(node.Op, "cannot convert to integer: "+err.Error())
	}
	return value.Int(i), nil
}

func (e *Evaluator) evalToFloat(doc value.Value, node *compiler.Node) (value.Value, error) {
	v, err := e.Eval(doc, node.Args[0])
	if err != nil {
		return value.Missing(), err
	}
	if v.IsNullish() {
		return value.Null(), nil
	}
	f, err := cast.ToFloat64E(value.ToAny(v))
	if err != nil {
		return value.Missing(), compiler.NewEvalError(node.Op, "cannot convert to double: "+err.Error())
	}
	return value.Float(f), nil
}

func (e *Evaluator) evalToString(doc value.Value, node *compiler.Node) (value.Value, error) {
	v, err := e.Eval(doc, node.Args[0])
	if err != nil {
		return value.Missing(), err
	}
	if v.IsNullish() {
		return value.Null(), nil
	}
	s, err := cast.ToStringE(value.ToAny(v))
	if err != nil {
		return value.Missing(), compiler.NewEvalError(node.Op, "cannot convert to string: "+err.Error())
	}
	return value.String(s), nil
}
