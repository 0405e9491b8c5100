package reflow

import (
	"math"
	"reflect"
)

// identical reports whether two values are the same under Object.is-style
// semantics: NaN is identical to NaN, maps/slices/funcs compare by
// reference identity, and comparable values compare with ==. Values of
// different dynamic types are never identical.
func identical(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	av := reflect.ValueOf(a)
	bv := reflect.ValueOf(b)
	if av.Type() != bv.Type() {
		return false
	}

	switch av.Kind() {
	case reflect.Float32, reflect.Float64:
		fa, fb := av.Float(), bv.Float()
		if math.IsNaN(fa) && math.IsNaN(fb) {
			return true
		}
		return fa == fb

	case reflect.Slice:
		// Same underlying array and same length: the same array object.
		if av.Len() != bv.Len() {
			return false
		}
		return av.UnsafePointer() == bv.UnsafePointer()

	case reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return av.UnsafePointer() == bv.UnsafePointer()

	case reflect.Pointer:
		return av.Pointer() == bv.Pointer()

	default:
		if av.Comparable() {
			return a == b
		}
		return false
	}
}

// depsChanged compares two dependency snapshots pairwise and by length.
func depsChanged(prev, next []any) bool {
	if len(prev) != len(next) {
		return true
	}
	for i := range next {
		if !identical(prev[i], next[i]) {
			return true
		}
	}
	return false
}
