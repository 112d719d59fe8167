package versionstore

import (
	"encoding/json"
	"reflect"

	"github.com/graphvault/core/internal/types"
)

// ComputeDiff added/removed/changed keys between
// two consecutive versions' property maps. Equality is judged on each
// value's canonical JSON encoding so differently-typed-but-equal numeric
// representations (e.g. json.Number vs float64) don't register as
// spurious changes.
func ComputeDiff(oldProps, newProps types.Properties) types.Diff {
	d := types.Diff{
		Added:   map[string]any{},
		Removed: map[string]any{},
		Changed: map[string]types.DiffEntry{},
	}

	for k, newVal := range newProps {
		oldVal, existed := oldProps[k]
		if !existed {
			d.Added[k] = newVal
			continue
		}
		if !jsonEqual(oldVal, newVal) {
			d.Changed[k] = types.DiffEntry{Old: oldVal, New: newVal}
		}
	}
	for k, oldVal := range oldProps {
		if _, stillPresent := newProps[k]; !stillPresent {
			d.Removed[k] = oldVal
		}
	}
	return d
}

func jsonEqual(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return reflect.DeepEqual(ab, bb)
}
