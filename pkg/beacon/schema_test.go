package beacon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateProxyBeaconDocument_Valid(t *testing.T) {
	doc := []byte(`{
		"proxies": {
			"p8000": {
				"pid_file": "/run/proxies/p8000.pid",
				"start_command": ["proxyd", "--id", "p8000"]
			}
		}
	}`)
	require.NoError(t, ValidateProxyBeaconDocument(doc))
}

func TestValidateProxyBeaconDocument_MissingProxies(t *testing.T) {
	err := ValidateProxyBeaconDocument([]byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "proxies")
}

func TestValidateProxyBeaconDocument_EmptyStartCommand(t *testing.T) {
	doc := []byte(`{
		"proxies": {
			"p8000": {
				"pid_file": "/run/proxies/p8000.pid",
				"start_command": []
			}
		}
	}`)
	require.Error(t, ValidateProxyBeaconDocument(doc))
}

func TestValidateProxyBeaconDocument_NotJSON(t *testing.T) {
	require.Error(t, ValidateProxyBeaconDocument([]byte("not json")))
}
