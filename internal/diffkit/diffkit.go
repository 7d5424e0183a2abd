// Package diffkit shallow-compares labeled value snapshots and renders
// human-readable before/after strings for the changed keys.
//
// Comparison is identity-based per key, mirroring UI-framework prop and
// state comparison: two structurally-equal but freshly-allocated objects
// are reported as changed. Display strings are lossy and for
// presentation only.
package diffkit

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"unicode/utf8"
)

// Kind is a coarse display classification of a snapshot value.
type Kind string

const (
	KindPrimitive Kind = "primitive"
	KindObject    Kind = "object"
	KindArray     Kind = "array"
	KindFunction  Kind = "function"
	KindUndefined Kind = "undefined"
)

// Change describes one key whose value differs between two snapshots.
type Change struct {
	Key      string `json:"key"`
	Previous string `json:"previous"`
	Current  string `json:"current"`
	Kind     Kind   `json:"kind"`
}

// maxDisplayLen bounds rendered values; longer output is cut with an
// ellipsis marker.
const maxDisplayLen = 60

// Diff reports the keys whose values differ between prev and cur, plus a
// display-ready Change per key, sorted by key.
//
// A nil map on either side means "not tracked" and yields an empty
// result; absence is not a change signal.
func Diff(prev, cur map[string]any) ([]string, []Change) {
	if prev == nil || cur == nil {
		return nil, nil
	}

	keys := make(map[string]struct{}, len(prev)+len(cur))
	for k := range prev {
		keys[k] = struct{}{}
	}
	for k := range cur {
		keys[k] = struct{}{}
	}

	changed := make([]string, 0, len(keys))
	for k := range keys {
		pv, pok := prev[k]
		cv, cok := cur[k]
		if pok != cok || !sameValue(pv, cv) {
			changed = append(changed, k)
		}
	}
	if len(changed) == 0 {
		return nil, nil
	}
	sort.Strings(changed)

	changes := make([]Change, 0, len(changed))
	for _, k := range changed {
		pv, pok := prev[k]
		cv, cok := cur[k]
		ch := Change{
			Key:      k,
			Previous: Display(pv),
			Current:  Display(cv),
			Kind:     KindOf(cv),
		}
		if !pok {
			ch.Previous = "undefined"
		}
		if !cok {
			ch.Current = "undefined"
			ch.Kind = KindUndefined
		}
		changes = append(changes, ch)
	}
	return changed, changes
}

// sameValue implements identity comparison. Reference kinds compare by
// pointer, comparable values by ==, and everything else (fresh
// non-comparable values) reports as different.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ra := reflect.ValueOf(a)
	rb := reflect.ValueOf(b)
	if ra.Kind() != rb.Kind() {
		return false
	}

	switch ra.Kind() {
	case reflect.Map, reflect.Func, reflect.Chan, reflect.Pointer, reflect.UnsafePointer:
		return ra.Pointer() == rb.Pointer()
	case reflect.Slice:
		// Same backing array and length is "the same slice".
		return ra.Pointer() == rb.Pointer() && ra.Len() == rb.Len()
	default:
		if ra.Type() != rb.Type() {
			return false
		}
		if !ra.Type().Comparable() {
			return false
		}
		return a == b
	}
}

// KindOf classifies v for display purposes.
func KindOf(v any) Kind {
	if v == nil {
		return KindUndefined
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func:
		return KindFunction
	case reflect.Slice, reflect.Array:
		return KindArray
	case reflect.Map, reflect.Struct:
		return KindObject
	case reflect.Pointer:
		if rv.Elem().Kind() == reflect.Struct || rv.Elem().Kind() == reflect.Map {
			return KindObject
		}
		return KindPrimitive
	default:
		return KindPrimitive
	}
}

// Display renders v as a bounded single-line string.
func Display(v any) string {
	if v == nil {
		return "undefined"
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func:
		return truncate("function")
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct:
		// JSON reads better than Go syntax for snapshot payloads.
		if b, err := json.Marshal(v); err == nil {
			return truncate(string(b))
		}
		return truncate(fmt.Sprintf("%+v", v))
	case reflect.Pointer:
		if rv.IsNil() {
			return "undefined"
		}
		return Display(rv.Elem().Interface())
	default:
		return truncate(fmt.Sprintf("%v", v))
	}
}

func truncate(s string) string {
	if len(s) <= maxDisplayLen {
		return s
	}
	// Back off to a rune boundary so the cut never splits a multi-byte
	// character.
	cut := maxDisplayLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
