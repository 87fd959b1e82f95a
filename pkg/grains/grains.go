// Package grains provides filtered read access to a host-description
// dictionary: nested lookups by delimited path, sanitized listings, and
// glob-based lookup-table filtering.
package grains

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultDelimiter separates path segments in nested lookups.
const DefaultDelimiter = ":"

// Store holds the grains dictionary. It is read-only after construction.
type Store struct {
	data map[string]any
}

// New wraps an existing grains map.
func New(data map[string]any) *Store {
	if data == nil {
		data = map[string]any{}
	}
	return &Store{data: data}
}

// Load reads a grains dictionary from a YAML document on disk.
func Load(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read grains file: %w", err)
	}
	var data map[string]any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse grains file: %w", err)
	}
	return New(data), nil
}

// Get retrieves the value at a delimited path, descending through nested
// maps and slices. Slices accept a numeric segment as an index; a
// non-numeric segment is looked up inside slice elements that are maps.
// The default is returned when the path does not resolve.
func (s *Store) Get(key string, def any, delimiter string) any {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	if value, ok := traverse(s.data, strings.Split(key, delimiter)); ok {
		return value
	}
	return def
}

// HasValue reports whether the path resolves to a truthy value.
func (s *Store) HasValue(key string) bool {
	return isTruthy(s.Get(key, nil, DefaultDelimiter))
}

// Items returns a shallow copy of all grains, optionally with
// identifying values sanitized.
func (s *Store) Items(sanitize bool) map[string]any {
	out := make(map[string]any, len(s.data))
	for key, value := range s.data {
		out[key] = value
	}
	if sanitize {
		sanitizeInPlace(out)
	}
	return out
}

// Item returns the named top-level grains. Unknown names are skipped.
func (s *Store) Item(names []string, sanitize bool) map[string]any {
	out := make(map[string]any, len(names))
	for _, name := range names {
		if value, ok := s.data[name]; ok {
			out[name] = value
		}
	}
	if sanitize {
		sanitizeInPlace(out)
	}
	return out
}

// Ls returns all top-level grain names, sorted.
func (s *Store) Ls() []string {
	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func traverse(data any, parts []string) (any, bool) {
	current := data
	for i, part := range parts {
		switch node := current.(type) {
		case map[string]any:
			value, ok := node[part]
			if !ok {
				return nil, false
			}
			current = value
		case []any:
			if idx, err := strconv.Atoi(part); err == nil {
				if idx < 0 || idx >= len(node) {
					return nil, false
				}
				current = node[idx]
				continue
			}
			// Non-numeric segment: resolve against list members that
			// are maps, first match wins.
			for _, member := range node {
				if inner, ok := member.(map[string]any); ok {
					if value, found := traverse(inner, parts[i:]); found {
						return value, true
					}
				}
			}
			return nil, false
		default:
			return nil, false
		}
	}
	return current, true
}

func isTruthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case map[string]any:
		return len(v) > 0
	case []any:
		return len(v) > 0
	default:
		return true
	}
}
