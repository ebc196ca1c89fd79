// Package path resolves dotted field paths against jobfilter values,
// including the implicit-array fan-out traversal described in the
// engine's path resolution rules.
package path

import (
	"strconv"
	"strings"

	"github.com/bargom/jobfilter/internal/jobfilter/value"
)

// Split breaks a dotted path into its segments. It performs no
// escaping — paths are expected to be plain `a.b.c` strings, matching
// the reference query language.
func Split(p string) []string {
	if p == "" {
		return nil
	}
	return strings.Split(p, ".")
}

// Resolve walks doc following the dotted path p, applying array
// fan-out where a non-numeric segment meets an array. It returns
// value.Missing() when the path cannot be resolved.
func Resolve(doc value.Value, p string) value.Value {
	return resolveSegments(doc, Split(p))
}

// ResolveAll behaves like Resolve but additionally exposes the
// flattened list of leaf values visited during fan-out, for operators
// that need to test "matches the whole array or any element" against
// every fanned-out branch rather than just the reassembled array.
func ResolveAll(doc value.Value, p string) []value.Value {
	segs := Split(p)
	return collectLeaves(doc, segs)
}

func resolveSegments(cur value.Value, segs []string) value.Value {
	if len(segs) == 0 {
		return cur
	}
	seg := segs[0]
	rest := segs[1:]

	switch cur.Kind() {
	case value.KindObject:
		v, ok := cur.Obj().Get(seg)
		if !ok {
			return value.Missing()
		}
		return resolveSegments(v, rest)

	case value.KindArray:
		if idx, err := strconv.Atoi(seg); err == nil && idx >= 0 {
			elems := cur.Elements()
			if idx >= len(elems) {
				return value.Missing()
			}
			return resolveSegments(elems[idx], rest)
		}
		// Fan out: resolve the remaining path against every element,
		// collecting non-Missing results into a new array. Elements that
		// are themselves arrays are not descended into; reaching inside a
		// nested array takes an explicit index segment.
		var out []value.Value
		for _, elem := range cur.Elements() {
			if elem.IsArray() {
				continue
			}
			r := resolveSegments(elem, segs)
			if !r.IsMissing() {
				out = append(out, r)
			}
		}
		if out == nil {
			return value.Missing()
		}
		return value.ArrayFrom(out)

	default:
		return value.Missing()
	}
}

// collectLeaves mirrors resolveSegments but flattens nested fan-out
// arrays produced at different recursion depths into one slice instead
// of reassembling nested arrays. It backs ResolveAll; the evaluator's
// operators resolve paths through Resolve.
func collectLeaves(cur value.Value, segs []string) []value.Value {
	if len(segs) == 0 {
		return []value.Value{cur}
	}
	seg := segs[0]
	rest := segs[1:]

	switch cur.Kind() {
	case value.KindObject:
		v, ok := cur.Obj().Get(seg)
		if !ok {
			return nil
		}
		return collectLeaves(v, rest)

	case value.KindArray:
		if idx, err := strconv.Atoi(seg); err == nil && idx >= 0 {
			elems := cur.Elements()
			if idx >= len(elems) {
				return nil
			}
			return collectLeaves(elems[idx], rest)
		}
		var out []value.Value
		for _, elem := range cur.Elements() {
			if elem.IsArray() {
				continue
			}
			out = append(out, collectLeaves(elem, segs)...)
		}
		return out

	default:
		return nil
	}
}
