package compiler

import "fmt"

// ErrorType categorizes filter errors for structured handling, mirroring
// the teacher query package's ErrorType enum.
type ErrorType int

const (
	// ErrorCompile indicates a problem found while compiling a query
	// document into an executable tree: unknown operator, arity
	// mismatch, malformed branch.
	ErrorCompile ErrorType = iota
	// ErrorEval indicates a problem applying an operator to a document
	// at evaluation time: unsupported type, division by zero, a regex
	// that fails to compile.
	ErrorEval
	// ErrorIterator indicates a problem propagated from the queue
	// collaborator.
	ErrorIterator
)

func (t ErrorType) String() string {
	switch t {
	case ErrorCompile:
		return "CompileError"
	case ErrorEval:
		return "EvalError"
	case ErrorIterator:
		return "IteratorError"
	default:
		return fmt.Sprintf("UnknownError(%d)", int(t))
	}
}

// FilterError is the error type every compile or eval failure in the
// jobfilter package surfaces as.
type FilterError struct {
	Type    ErrorType
	Op      string // operator name, when applicable
	Message string
}

func (e *FilterError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s (%s): %s", e.Type, e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *FilterError) Unwrap() error { return nil }

// NewCompileError creates a compile-time FilterError.
func NewCompileError(message string) *FilterError {
	return &FilterError{Type: ErrorCompile, Message: message}
}

// NewCompileErrorOp creates a compile-time FilterError tied to an operator.
func NewCompileErrorOp(op, message string) *FilterError {
	return &FilterError{Type: ErrorCompile, Op: op, Message: message}
}

// NewEvalError creates an evaluation-time FilterError.
func NewEvalError(op, message string) *FilterError {
	return &FilterError{Type: ErrorEval, Op: op, Message: message}
}

// NewIteratorError wraps an error from the queue collaborator.
func NewIteratorError(message string) *FilterError {
	return &FilterError{Type: ErrorIterator, Message: message}
}

// ErrArity formats the arity-mismatch message spec'd in §7:
// "<opname> expression must resolve to array(<N>)".
func ErrArity(op string, n int) *FilterError {
	return NewCompileErrorOp(op, fmt.Sprintf("%s expression must resolve to array(%d)", op, n))
}

// ErrUnknownOperator formats an unknown-operator compile error.
func ErrUnknownOperator(op string) *FilterError {
	return NewCompileErrorOp(op, fmt.Sprintf("unrecognized expression %q", op))
}
