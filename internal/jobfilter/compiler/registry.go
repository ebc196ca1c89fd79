package compiler

// Mode identifies whether an operator is legal in match position
// (a field predicate), expression position ($expr and its descendants),
// or both.
type Mode int

const (
	ModeMatch Mode = 1 << iota
	ModeExpr
)

const ModeBoth = ModeMatch | ModeExpr

// Arity bounds the number of operands an operator accepts. Max of -1
// means unbounded (variadic).
type Arity struct {
	Min int
	Max int
}

func fixedArity(n int) Arity { return Arity{Min: n, Max: n} }

func variadicArity(min int) Arity { return Arity{Min: min, Max: -1} }

// OperatorDef describes one operator's compile-time contract: which
// modes it's legal in and how many operands it takes. Evaluation
// semantics live in the eval package, keyed by the same name.
type OperatorDef struct {
	Name  string
	Mode  Mode
	Arity Arity
}

// registry is the full ~60-operator table spanning comparison,
// element, logical, conditional, arithmetic, string, type-conversion
// and meta operators, mirroring the reference query language's
// operator surface.
var registry = buildRegistry()

func buildRegistry() map[string]OperatorDef {
	defs := []OperatorDef{
		// Comparison. Arity applies to the expression-mode form, e.g.
		// {$gt: ["$a", "$b"]}; the match-mode value-predicate form,
		// {field: {$gt: 5}}, supplies only the right-hand operand and
		// is not arity-checked against this table (see
		// compilePredicateOperator).
		{"$eq", ModeBoth, fixedArity(2)},
		{"$ne", ModeBoth, fixedArity(2)},
		{"$gt", ModeBoth, fixedArity(2)},
		{"$gte", ModeBoth, fixedArity(2)},
		{"$lt", ModeBoth, fixedArity(2)},
		{"$lte", ModeBoth, fixedArity(2)},
		{"$cmp", ModeExpr, fixedArity(2)},

		// Element / array tests
		{"$exists", ModeBoth, fixedArity(1)},
		{"$type", ModeBoth, fixedArity(1)},
		{"$size", ModeBoth, fixedArity(1)},
		{"$mod", ModeBoth, fixedArity(2)},
		{"$matches", ModeBoth, fixedArity(2)},
		{"$all", ModeMatch, fixedArity(1)},
		{"$in", ModeBoth, fixedArity(2)},
		{"$nin", ModeBoth, fixedArity(2)},

		// Logical
		{"$and", ModeBoth, variadicArity(0)},
		{"$or", ModeBoth, variadicArity(0)},
		{"$nor", ModeMatch, variadicArity(0)},
		{"$not", ModeBoth, fixedArity(1)},

		// Conditional (expr-mode only)
		{"$cond", ModeExpr, fixedArity(3)},
		{"$ifNull", ModeExpr, variadicArity(2)},
		{"$switch", ModeExpr, variadicArity(0)}, // validated structurally, not by Args

		// Arithmetic
		{"$add", ModeExpr, variadicArity(0)},
		{"$subtract", ModeExpr, fixedArity(2)},
		{"$multiply", ModeExpr, variadicArity(0)},
		{"$divide", ModeExpr, fixedArity(2)},
		{"$abs", ModeExpr, fixedArity(1)},
		{"$ceil", ModeExpr, fixedArity(1)},
		{"$floor", ModeExpr, fixedArity(1)},
		{"$round", ModeExpr, variadicArity(1)},
		{"$trunc", ModeExpr, variadicArity(1)},
		{"$sqrt", ModeExpr, fixedArity(1)},
		{"$max", ModeExpr, variadicArity(0)},
		{"$min", ModeExpr, variadicArity(0)},

		// String
		{"$concat", ModeExpr, variadicArity(0)},
		{"$substr", ModeExpr, fixedArity(3)},
		{"$toLower", ModeExpr, fixedArity(1)},
		{"$toUpper", ModeExpr, fixedArity(1)},
		{"$trim", ModeExpr, fixedArity(1)},
		{"$ltrim", ModeExpr, fixedArity(1)},
		{"$rtrim", ModeExpr, fixedArity(1)},
		{"$split", ModeExpr, fixedArity(2)},
		{"$strLen", ModeExpr, fixedArity(1)},
		{"$strLenBytes", ModeExpr, fixedArity(1)},
		{"$indexOfBytes", ModeExpr, variadicArity(2)},
		{"$substrBytes", ModeExpr, fixedArity(3)},
		{"$strcasecmp", ModeExpr, fixedArity(2)},
		{"$contains", ModeExpr, fixedArity(2)},
		{"$startsWith", ModeExpr, fixedArity(2)},
		{"$endsWith", ModeExpr, fixedArity(2)},

		// Type conversion
		{"$isNumber", ModeExpr, fixedArity(1)},
		{"$toBool", ModeExpr, fixedArity(1)},
		{"$toBoolEx", ModeExpr, fixedArity(1)},
		{"$toInt", ModeExpr, fixedArity(1)},
		{"$toLong", ModeExpr, fixedArity(1)},
		{"$toDouble", ModeExpr, fixedArity(1)},
		{"$toDecimal", ModeExpr, fixedArity(1)},
		{"$toString", ModeExpr, fixedArity(1)},

		// Meta
		{"$literal", ModeExpr, fixedArity(1)},
	}

	m := make(map[string]OperatorDef, len(defs))
	for _, d := range defs {
		m[d.Name] = d
	}
	return m
}

// lookup returns the operator definition for name, if known.
func lookup(name string) (OperatorDef, bool) {
	d, ok := registry[name]
	return d, ok
}

// checkArity validates the number of supplied operands n against def,
// returning the spec'd compile error on mismatch.
func checkArity(op string, def OperatorDef, n int) error {
	if n < def.Arity.Min {
		return ErrArity(op, def.Arity.Min)
	}
	if def.Arity.Max >= 0 && n > def.Arity.Max {
		return ErrArity(op, def.Arity.Max)
	}
	return nil
}
