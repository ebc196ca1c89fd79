// Package value implements the tagged value model the job filter engine
// evaluates queries against: null, boolean, integer, float, string, array,
// object, and a distinguished missing marker.
package value

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind identifies the variant a Value holds.
type Kind int

const (
	KindMissing Kind = iota
	KindNull
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt, KindFloat:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Object is an insertion-order-preserving string-keyed map of Values.
type Object = orderedmap.OrderedMap[string, Value]

// Value is a tagged union over the document model's variants. It is a
// struct rather than an interface so that comparison and copying stay
// allocation-free on the hot evaluation path.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	arr  []Value
	obj  *Object
}

// Missing returns the sentinel for an absent path.
func Missing() Value { return Value{kind: KindMissing} }

// Null returns a present null value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps a 64-bit integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a float64.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array wraps a slice of elements.
func Array(elems ...Value) Value {
	return Value{kind: KindArray, arr: elems}
}

// ArrayFrom wraps an existing slice without copying.
func ArrayFrom(elems []Value) Value {
	return Value{kind: KindArray, arr: elems}
}

// NewObject returns an empty, ordered Object value.
func NewObject() Value {
	return Value{kind: KindObject, obj: orderedmap.New[string, Value]()}
}

// ObjectFrom wraps an existing ordered map without copying.
func ObjectFrom(om *Object) Value {
	if om == nil {
		om = orderedmap.New[string, Value]()
	}
	return Value{kind: KindObject, obj: om}
}

// Kind returns the value's variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether the value is the Missing sentinel.
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// IsNull reports whether the value is a present null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsNullish reports whether the value is Null or Missing — the two
// variants several operators (arithmetic propagation, $ifNull) treat alike.
func (v Value) IsNullish() bool { return v.kind == KindNull || v.kind == KindMissing }

// IsNumber reports whether the value is an Int or a Float.
func (v Value) IsNumber() bool { return v.kind == KindInt || v.kind == KindFloat }

// IsBool reports whether the value is a Bool.
func (v Value) IsBool() bool { return v.kind == KindBool }

// IsString reports whether the value is a String.
func (v Value) IsString() bool { return v.kind == KindString }

// IsArray reports whether the value is an Array.
func (v Value) IsArray() bool { return v.kind == KindArray }

// IsObject reports whether the value is an Object.
func (v Value) IsObject() bool { return v.kind == KindObject }

// BoolValue returns the boolean payload; callers must check IsBool first.
func (v Value) BoolValue() bool { return v.b }

// Str returns the string payload; callers must check IsString first.
func (v Value) Str() string { return v.s }

// Elements returns the array payload; callers must check IsArray first.
func (v Value) Elements() []Value { return v.arr }

// Obj returns the object payload; callers must check IsObject first.
func (v Value) Obj() *Object { return v.obj }

// AsFloat returns the numeric payload widened to float64. Only valid
// when IsNumber is true.
func (v Value) AsFloat() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// AsInt returns the payload as int64 when it is an exact integer (either
// stored as KindInt, or a KindFloat with no fractional part).
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		if v.f == math.Trunc(v.f) && !math.IsInf(v.f, 0) && !math.IsNaN(v.f) {
			return int64(v.f), true
		}
	}
	return 0, false
}

// IsInt reports whether the value is stored as KindInt specifically.
func (v Value) IsInt() bool { return v.kind == KindInt }

// Int64 returns the raw int64 payload of a KindInt value.
func (v Value) Int64() int64 { return v.i }

// Float64 returns the raw float64 payload of a KindFloat value.
func (v Value) Float64() float64 { return v.f }

// NumberFromFloat returns the preferred numeric representation for a
// computed float result: an integer Value when the float has no
// fractional part and fits losslessly, a Float Value otherwise. This
// implements §3's "integer-typed result is preferred" rule.
func NumberFromFloat(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Float(f)
	}
	if f == math.Trunc(f) && f >= -(1<<53) && f <= (1<<53) {
		return Int(int64(f))
	}
	return Float(f)
}

// TypeName returns the $type-visible name of the value: one of "null",
// "bool", "number", "string", "array", "object". Missing has no type
// name under this function; callers handle $exists/Missing separately.
func TypeName(v Value) string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt, KindFloat:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return ""
	}
}

// typeRank gives the canonical cross-type ordering from §4.1:
// Null < Number < String < Object < Array < Bool. Missing sorts below
// everything (it is never compared in expression-mode ordering, but a
// rank keeps Compare total).
func typeRank(v Value) int {
	switch v.kind {
	case KindMissing:
		return 0
	case KindNull:
		return 1
	case KindInt, KindFloat:
		return 2
	case KindString:
		return 3
	case KindObject:
		return 4
	case KindArray:
		return 5
	case KindBool:
		return 6
	default:
		return 7
	}
}

// Compare implements the canonical ordering used by $cmp, $min, $max,
// and the inequality operators. It returns -1, 0, or 1.
func Compare(a, b Value) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return sign(ra - rb)
	}

	switch a.kind {
	case KindMissing, KindNull:
		return 0
	case KindBool:
		if a.b == b.b {
			return 0
		}
		if !a.b {
			return -1
		}
		return 1
	case KindInt, KindFloat:
		return compareNumbers(a, b)
	case KindString:
		return strings.Compare(a.s, b.s)
	case KindArray:
		return compareArrays(a.arr, b.arr)
	case KindObject:
		return compareObjects(a.obj, b.obj)
	default:
		return 0
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

// compareNumbers orders NaN as greater than any other number, matching
// the reference test suite's expectations.
func compareNumbers(a, b Value) int {
	af, bf := a.AsFloat(), b.AsFloat()
	aNaN, bNaN := math.IsNaN(af), math.IsNaN(bf)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}

func compareArrays(a, b []Value) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return sign(len(a) - len(b))
}

func compareObjects(a, b *Object) int {
	// Order-insensitive: compare sorted key/value pairs.
	ak := sortedKeys(a)
	bk := sortedKeys(b)
	n := len(ak)
	if len(bk) < n {
		n = len(bk)
	}
	for i := 0; i < n; i++ {
		if c := strings.Compare(ak[i], bk[i]); c != 0 {
			return c
		}
		av, _ := a.Get(ak[i])
		bv, _ := b.Get(bk[i])
		if c := Compare(av, bv); c != 0 {
			return c
		}
	}
	return sign(len(ak) - len(bk))
}

func sortedKeys(om *Object) []string {
	if om == nil {
		return nil
	}
	keys := make([]string, 0, om.Len())
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	sort.Strings(keys)
	return keys
}

// Equal implements deep, order-insensitive equality for objects and
// element-wise equality for arrays, per §4.5's $eq contract.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		// Int/Float are a single numeric cohort for equality purposes.
		if a.IsNumber() && b.IsNumber() {
			return a.AsFloat() == b.AsFloat()
		}
		return false
	}
	switch a.kind {
	case KindMissing, KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindFloat:
		return a.f == b.f
	case KindString:
		return a.s == b.s
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return equalObjects(a.obj, b.obj)
	default:
		return false
	}
}

func equalObjects(a, b *Object) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Len() != b.Len() {
		return false
	}
	for pair := a.Oldest(); pair != nil; pair = pair.Next() {
		bv, ok := b.Get(pair.Key)
		if !ok || !Equal(pair.Value, bv) {
			return false
		}
	}
	return true
}

// Truthy implements MongoDB-style truthiness used by $toBool: any value
// other than false, 0 (int or float), null, or missing is truthy. Note
// the empty string IS truthy under this rule — see $toBoolEx for the
// variant that treats "" as false.
func Truthy(v Value) bool {
	switch v.kind {
	case KindMissing, KindNull:
		return false
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	default:
		return true
	}
}

// FromAny converts a generic Go value tree (as produced by
// encoding/json.Unmarshal with UseNumber, or an *orderedmap.OrderedMap
// for sources that already preserve key order) into a Value.
func FromAny(a any) Value {
	switch t := a.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case float64:
		return NumberFromFloat(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i)
		}
		if f, err := t.Float64(); err == nil {
			return NumberFromFloat(f)
		}
		return Null()
	case []any:
		elems := make([]Value, len(t))
		for i, e := range t {
			elems[i] = FromAny(e)
		}
		return ArrayFrom(elems)
	case map[string]any:
		om := orderedmap.New[string, Value]()
		for k, e := range t {
			om.Set(k, FromAny(e))
		}
		return ObjectFrom(om)
	case *orderedmap.OrderedMap[string, any]:
		om := orderedmap.New[string, Value]()
		for pair := t.Oldest(); pair != nil; pair = pair.Next() {
			om.Set(pair.Key, FromAny(pair.Value))
		}
		return ObjectFrom(om)
	default:
		return Null()
	}
}

// ToAny converts a Value back into a plain Go value tree, for JSON
// re-encoding at the API boundary. Missing converts to nil, same as Null.
func ToAny(v Value) any {
	switch v.kind {
	case KindMissing, KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = ToAny(e)
		}
		return out
	case KindObject:
		out := make(map[string]any, v.obj.Len())
		for pair := v.obj.Oldest(); pair != nil; pair = pair.Next() {
			out[pair.Key] = ToAny(pair.Value)
		}
		return out
	default:
		return nil
	}
}
