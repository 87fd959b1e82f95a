package grains

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterBy_ExactMatch(t *testing.T) {
	s := testStore()

	out, err := s.FilterBy(map[string]any{
		"Debian": map[string]any{"pkg": "apache2"},
		"RedHat": map[string]any{"pkg": "httpd"},
	}, "os_family", nil, "default", "")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"pkg": "apache2"}, out)
}

func TestFilterBy_GlobMatch(t *testing.T) {
	s := testStore()

	out, err := s.FilterBy(map[string]any{
		"web*":    "a web node",
		"default": "something else",
	}, "id", nil, "default", "")
	require.NoError(t, err)
	assert.Equal(t, "a web node", out)
}

func TestFilterBy_ExactBeatsGlob(t *testing.T) {
	s := testStore()

	// "Debian" matches both the exact key and the "*" pattern; the exact
	// key wins regardless of key ordering.
	out, err := s.FilterBy(map[string]any{
		"*":      "glob",
		"Debian": "exact",
	}, "os_family", nil, "", "")
	require.NoError(t, err)
	assert.Equal(t, "exact", out)
}

func TestFilterBy_ListGrain(t *testing.T) {
	s := testStore()

	out, err := s.FilterBy(map[string]any{
		"10.0.0.*": "internal",
		"default":  "external",
	}, "ipv4", nil, "default", "")
	require.NoError(t, err)
	assert.Equal(t, "internal", out)
}

func TestFilterBy_DefaultFallback(t *testing.T) {
	s := testStore()

	out, err := s.FilterBy(map[string]any{
		"Suse":    "zypper",
		"default": "unknown",
	}, "os_family", nil, "default", "")
	require.NoError(t, err)
	assert.Equal(t, "unknown", out)

	_, err = s.FilterBy(map[string]any{"Suse": "zypper"}, "os_family", nil, "", "")
	require.Error(t, err)
}

func TestFilterBy_BaseAndMerge(t *testing.T) {
	s := testStore()

	lookup := map[string]any{
		"default": map[string]any{
			"A": map[string]any{"B": "C"},
			"D": "E",
		},
		"Debian": map[string]any{
			"A": map[string]any{"B": "G"},
		},
	}

	out, err := s.FilterBy(lookup, "os_family", map[string]any{"D": "J"}, "default", "default")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"A": map[string]any{"B": "G"},
		"D": "J",
	}, out)

	// The lookup table itself is never mutated by the merge.
	assert.Equal(t, "E", lookup["default"].(map[string]any)["D"])
}

func TestFilterBy_MergeRequiresMap(t *testing.T) {
	s := testStore()

	_, err := s.FilterBy(map[string]any{
		"Debian": "not a map",
	}, "os_family", map[string]any{"k": "v"}, "", "")
	require.Error(t, err)
}

func TestFilterBy_BaseKeyMissing(t *testing.T) {
	s := testStore()

	_, err := s.FilterBy(map[string]any{
		"Debian": map[string]any{},
	}, "os_family", nil, "", "nosuch")
	require.Error(t, err)
}
