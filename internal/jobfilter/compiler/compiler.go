package compiler

import (
	"strings"

	"github.com/bargom/jobfilter/internal/jobfilter/value"
)

// maxCompileDepth bounds query nesting to guard against pathological or
// cyclic input; it is generous enough for any realistic filter.
const maxCompileDepth = 64

// Compile turns a query document into an executable tree in match
// mode: top-level keys are field paths (or $and/$or/$nor/$expr), and
// the whole document is the implicit conjunction of its entries.
func Compile(query value.Value) (*Node, error) {
	if query.IsMissing() || query.IsNull() {
		return operator("$and"), nil
	}
	if !query.IsObject() {
		return nil, NewCompileError("filter query must be an object")
	}
	return compileMatchDoc(query, 0)
}

// CompileExpr compiles a value as a standalone expression, the entry
// point used for the right-hand side of "$expr".
func CompileExpr(v value.Value) (*Node, error) {
	return compileExpr(v, 0)
}

func checkDepth(depth int) error {
	if depth > maxCompileDepth {
		return NewCompileError("query exceeds maximum nesting depth")
	}
	return nil
}

// compileMatchDoc compiles one match-mode document into the implicit
// AND of its field predicates and logical combinators.
func compileMatchDoc(doc value.Value, depth int) (*Node, error) {
	if err := checkDepth(depth); err != nil {
		return nil, err
	}
	o := doc.Obj()
	var clauses []*Node
	for p := o.Oldest(); p != nil; p = p.Next() {
		key := p.Key
		val := p.Value

		switch key {
		case "$and", "$or", "$nor":
			if !val.IsArray() {
				return nil, ErrArity(key, 1)
			}
			var subs []*Node
			for _, elem := range val.Elements() {
				if !elem.IsObject() {
					return nil, NewCompileErrorOp(key, "each clause must be an object")
				}
				sub, err := compileMatchDoc(elem, depth+1)
				if err != nil {
					return nil, err
				}
				subs = append(subs, sub)
			}
			clauses = append(clauses, operator(key, subs...))

		case "$expr":
			expr, err := compileExpr(val, depth+1)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, &Node{Kind: KindExprPredicate, Expr: expr})

		default:
			pred, err := compileFieldPredicate(val, depth+1)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, &Node{Kind: KindFieldMatch, Path: key, Predicate: pred})
		}
	}

	switch len(clauses) {
	case 0:
		return operator("$and"), nil
	case 1:
		return clauses[0], nil
	default:
		return operator("$and", clauses...), nil
	}
}

// compileFieldPredicate compiles the right-hand side of a field entry
// in a match document. A plain value means implicit equality; an
// object whose keys all start with "$" is a conjunction of those
// operators applied to the resolved field value (an unknown operator
// name is a compile error).
func compileFieldPredicate(val value.Value, depth int) (*Node, error) {
	if err := checkDepth(depth); err != nil {
		return nil, err
	}
	if val.IsObject() && isOperatorDocument(val) {
		o := val.Obj()
		var ops []*Node
		for p := o.Oldest(); p != nil; p = p.Next() {
			n, err := compilePredicateOperator(p.Key, p.Value, depth+1)
			if err != nil {
				return nil, err
			}
			ops = append(ops, n)
		}
		if len(ops) == 1 {
			return ops[0], nil
		}
		return operator("$and", ops...), nil
	}
	return operator("$eq", literal(val)), nil
}

// isOperatorDocument reports whether every key of an object value is
// $-prefixed (the names are not checked against the registry here),
// distinguishing
// {$gte: 18} (a predicate) from {street: "Main"} (a literal to match
// by deep equality).
func isOperatorDocument(v value.Value) bool {
	o := v.Obj()
	if o.Len() == 0 {
		return false
	}
	for p := o.Oldest(); p != nil; p = p.Next() {
		if !strings.HasPrefix(p.Key, "$") {
			return false
		}
	}
	return true
}

func compilePredicateOperator(op string, val value.Value, depth int) (*Node, error) {
	def, ok := lookup(op)
	if !ok {
		return nil, ErrUnknownOperator(op)
	}
	if def.Mode&ModeMatch == 0 {
		return nil, NewCompileErrorOp(op, "not valid in match position")
	}

	switch op {
	case "$not":
		inner, err := compileFieldPredicate(val, depth+1)
		if err != nil {
			return nil, err
		}
		return operator(op, inner), nil
	case "$mod":
		if !val.IsArray() || len(val.Elements()) != 2 {
			return nil, ErrArity(op, 2)
		}
		elems := val.Elements()
		return operator(op, literal(elems[0]), literal(elems[1])), nil
	default:
		return operator(op, literal(val)), nil
	}
}

// compileExpr compiles a value in expression mode: "$field" strings
// resolve paths ("$$"-prefixed strings are rejected), single-key objects
// whose key starts with "$" compile to operator calls (an unknown name
// is a compile error), and everything else is a literal.
func compileExpr(v value.Value, depth int) (*Node, error) {
	if err := checkDepth(depth); err != nil {
		return nil, err
	}

	if v.IsString() {
		s := v.Str()
		if strings.HasPrefix(s, "$$") {
			return nil, NewCompileError("system variables are not supported: " + s)
		}
		if strings.HasPrefix(s, "$") && len(s) > 1 {
			return fieldRef(s[1:]), nil
		}
		return literal(v), nil
	}

	if v.IsArray() {
		elems := v.Elements()
		args := make([]*Node, 0, len(elems))
		for _, e := range elems {
			n, err := compileExpr(e, depth+1)
			if err != nil {
				return nil, err
			}
			args = append(args, n)
		}
		return operator("$array", args...), nil
	}

	if v.IsObject() {
		o := v.Obj()
		if o.Len() == 1 {
			p := o.Oldest()
			if strings.HasPrefix(p.Key, "$") {
				return compileExprOperator(p.Key, p.Value, depth+1)
			}
		}
		return literal(v), nil
	}

	return literal(v), nil
}

func compileExprOperator(op string, arg value.Value, depth int) (*Node, error) {
	if op == "$literal" {
		return literal(arg), nil
	}

	def, ok := lookup(op)
	if !ok {
		return nil, ErrUnknownOperator(op)
	}
	if def.Mode&ModeExpr == 0 {
		return nil, NewCompileErrorOp(op, "not valid in expression position")
	}

	if op == "$switch" {
		return compileSwitch(arg, depth)
	}
	if op == "$cond" {
		return compileCond(arg, depth)
	}

	var operands []value.Value
	if arg.IsArray() {
		operands = arg.Elements()
	} else {
		operands = []value.Value{arg}
	}
	if err := checkArity(op, def, len(operands)); err != nil {
		return nil, err
	}

	args := make([]*Node, 0, len(operands))
	for _, o := range operands {
		n, err := compileExpr(o, depth+1)
		if err != nil {
			return nil, err
		}
		args = append(args, n)
	}
	return operator(op, args...), nil
}

func compileCond(arg value.Value, depth int) (*Node, error) {
	var ifV, thenV, elseV value.Value
	if arg.IsArray() {
		elems := arg.Elements()
		if len(elems) != 3 {
			return nil, ErrArity("$cond", 3)
		}
		ifV, thenV, elseV = elems[0], elems[1], elems[2]
	} else if arg.IsObject() {
		o := arg.Obj()
		var ok1, ok2, ok3 bool
		ifV, ok1 = o.Get("if")
		thenV, ok2 = o.Get("then")
		elseV, ok3 = o.Get("else")
		if !ok1 || !ok2 || !ok3 {
			return nil, NewCompileErrorOp("$cond", "object form requires if, then and else")
		}
	} else {
		return nil, ErrArity("$cond", 3)
	}

	ifNode, err := compileExpr(ifV, depth+1)
	if err != nil {
		return nil, err
	}
	thenNode, err := compileExpr(thenV, depth+1)
	if err != nil {
		return nil, err
	}
	elseNode, err := compileExpr(elseV, depth+1)
	if err != nil {
		return nil, err
	}
	return operator("$cond", ifNode, thenNode, elseNode), nil
}

func compileSwitch(arg value.Value, depth int) (*Node, error) {
	if !arg.IsObject() {
		return nil, NewCompileErrorOp("$switch", "requires an object with branches")
	}
	o := arg.Obj()
	branchesV, ok := o.Get("branches")
	if !ok || !branchesV.IsArray() {
		return nil, NewCompileErrorOp("$switch", "requires a branches array")
	}

	var branches []SwitchBranch
	for _, b := range branchesV.Elements() {
		if !b.IsObject() {
			return nil, NewCompileErrorOp("$switch", "each branch must be an object")
		}
		bo := b.Obj()
		caseV, ok1 := bo.Get("case")
		thenV, ok2 := bo.Get("then")
		if !ok1 || !ok2 {
			return nil, NewCompileErrorOp("$switch", "each branch requires case and then")
		}
		caseNode, err := compileExpr(caseV, depth+1)
		if err != nil {
			return nil, err
		}
		thenNode, err := compileExpr(thenV, depth+1)
		if err != nil {
			return nil, err
		}
		branches = append(branches, SwitchBranch{Case: caseNode, Then: thenNode})
	}

	var def *Node
	if defV, ok := o.Get("default"); ok {
		n, err := compileExpr(defV, depth+1)
		if err != nil {
			return nil, err
		}
		def = n
	}

	return &Node{Kind: KindSwitch, Branches: branches, Default: def}, nil
}
