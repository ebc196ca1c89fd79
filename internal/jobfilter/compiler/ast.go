package compiler

import "github.com/bargom/jobfilter/internal/jobfilter/value"

// Kind identifies the shape of a compiled tree node.
type Kind int

const (
	// KindLiteral holds a constant value.Value produced at compile time.
	KindLiteral Kind = iota
	// KindFieldRef resolves a dotted path against the document at eval
	// time ("$path" in expression mode).
	KindFieldRef
	// KindOperator applies a named operator to Args. Used for both
	// logical combinators in match mode ($and/$or/$nor over sub-queries)
	// and the full arithmetic/string/conditional/type surface in
	// expression mode.
	KindOperator
	// KindFieldMatch is a match-mode leaf: test the value resolved at
	// Path against Predicate.
	KindFieldMatch
	// KindExprPredicate wraps an expression-mode node used as a
	// match-mode predicate ("$expr" inside a match document).
	KindExprPredicate
	// KindSwitch implements $switch: the first Branch whose Case is
	// truthy wins; Default applies when none match.
	KindSwitch
)

func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "Literal"
	case KindFieldRef:
		return "FieldRef"
	case KindOperator:
		return "Operator"
	case KindFieldMatch:
		return "FieldMatch"
	case KindExprPredicate:
		return "ExprPredicate"
	case KindSwitch:
		return "Switch"
	default:
		return "Unknown"
	}
}

// SwitchBranch is one `{case, then}` arm of a compiled $switch.
type SwitchBranch struct {
	Case *Node
	Then *Node
}

// Node is one node of a compiled query tree. Only the fields relevant
// to Kind are populated; the rest are zero.
type Node struct {
	Kind Kind

	Lit  value.Value // KindLiteral
	Path string      // KindFieldRef, KindFieldMatch

	Op   string  // KindOperator: operator name, e.g. "$and", "$add"
	Args []*Node // KindOperator: operand nodes, in source order

	Predicate *Node // KindFieldMatch: the value-predicate applied to the resolved field
	Expr      *Node // KindExprPredicate: the wrapped expression

	Branches []SwitchBranch // KindSwitch
	Default  *Node          // KindSwitch
}

func literal(v value.Value) *Node { return &Node{Kind: KindLiteral, Lit: v} }

func fieldRef(path string) *Node { return &Node{Kind: KindFieldRef, Path: path} }

func operator(op string, args ...*Node) *Node {
	return &Node{Kind: KindOperator, Op: op, Args: args}
}
