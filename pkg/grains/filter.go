package grains

import (
	"fmt"
	"path"
	"sort"
)

// FilterBy looks up the value of a grain in a lookup table and returns
// the matching entry. An exact key match always wins; otherwise the keys
// are tried as glob patterns in sorted order, first match wins. When the
// grain value is a list, each element is tried in order before moving to
// the next key strategy. Falls back to the defaultKey entry when nothing
// matches.
//
// When baseKey names a lookup entry, the selected value is deep-merged
// over a copy of it; the merge map, when given, is deep-merged over the
// result last. Both sides of a merge must be maps.
func (s *Store) FilterBy(lookup map[string]any, grain string, merge map[string]any, defaultKey string, baseKey string) (any, error) {
	if len(lookup) == 0 {
		return nil, fmt.Errorf("filter_by: empty lookup table")
	}

	var candidates []string
	switch value := s.Get(grain, nil, DefaultDelimiter).(type) {
	case []any:
		for _, member := range value {
			candidates = append(candidates, fmt.Sprint(member))
		}
	case nil:
	default:
		candidates = append(candidates, fmt.Sprint(value))
	}

	selected, found := matchLookup(lookup, candidates)
	if !found {
		if defaultKey == "" {
			return nil, fmt.Errorf("filter_by: no match for grain %q and no default", grain)
		}
		var ok bool
		selected, ok = lookup[defaultKey]
		if !ok {
			return nil, fmt.Errorf("filter_by: default key %q not in lookup table", defaultKey)
		}
	}

	if baseKey != "" {
		base, ok := lookup[baseKey]
		if !ok {
			return nil, fmt.Errorf("filter_by: base key %q not in lookup table", baseKey)
		}
		baseMap, baseOK := base.(map[string]any)
		selectedMap, selOK := selected.(map[string]any)
		if !baseOK || !selOK {
			return nil, fmt.Errorf("filter_by: base merge requires map values")
		}
		selected = deepMerge(deepCopy(baseMap), selectedMap)
	}

	if merge != nil {
		selectedMap, ok := selected.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("filter_by: merge requires the selected value to be a map")
		}
		selected = deepMerge(deepCopy(selectedMap), merge)
	}

	return selected, nil
}

// matchLookup resolves candidates against lookup keys: exact match first,
// then glob patterns in sorted key order.
func matchLookup(lookup map[string]any, candidates []string) (any, bool) {
	for _, candidate := range candidates {
		if value, ok := lookup[candidate]; ok {
			return value, true
		}
	}

	keys := make([]string, 0, len(lookup))
	for key := range lookup {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, candidate := range candidates {
		for _, key := range keys {
			if matched, err := path.Match(key, candidate); err == nil && matched {
				return lookup[key], true
			}
		}
	}
	return nil, false
}

// deepMerge merges src into dst recursively; non-map values in src
// overwrite dst. dst is modified and returned.
func deepMerge(dst, src map[string]any) map[string]any {
	for key, value := range src {
		srcMap, srcIsMap := value.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[key] = deepMerge(dstMap, srcMap)
			continue
		}
		dst[key] = value
	}
	return dst
}

// deepCopy copies nested maps so merges never mutate the lookup table.
func deepCopy(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for key, value := range src {
		if inner, ok := value.(map[string]any); ok {
			dst[key] = deepCopy(inner)
			continue
		}
		dst[key] = value
	}
	return dst
}
