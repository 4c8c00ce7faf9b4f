// Package transform turns raw network report rows into flat warehouse records.
package transform

import (
	"sort"
	"strconv"
)

// Separator joins a nested key to its parent.
const Separator = "_"

// FlatRecord is a JSON object without nested non-empty objects or arrays.
type FlatRecord map[string]interface{}

// Flatten collapses nested objects and arrays into a single level map.
// {"a": {"b": 1}, "c": [2, 3]} becomes {"a_b": 1, "c_0": 2, "c_1": 3}.
// Empty objects and arrays are kept as values. obj is not modified, and
// flattening a FlatRecord again returns an equal record.
//
// Keys are visited in sorted order. When two paths flatten to the same key,
// the path visited last wins, so {"a": {"b": 2}, "a_b": 1} always gives
// {"a_b": 1}.
func Flatten(obj map[string]interface{}) FlatRecord {
	out := make(FlatRecord, len(obj))
	for _, k := range sortedKeys(obj) {
		flattenInto(out, k, obj[k])
	}
	return out
}

func flattenInto(out FlatRecord, key string, value interface{}) {
	switch v := value.(type) {
	case map[string]interface{}:
		if len(v) == 0 {
			out[key] = v
			return
		}
		for _, k := range sortedKeys(v) {
			flattenInto(out, key+Separator+k, v[k])
		}
	case FlatRecord:
		flattenInto(out, key, map[string]interface{}(v))
	case []interface{}:
		if len(v) == 0 {
			out[key] = v
			return
		}
		for i, child := range v {
			flattenInto(out, key+Separator+strconv.Itoa(i), child)
		}
	default:
		out[key] = v
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
