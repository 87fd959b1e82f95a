package beacon

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ProxyBeaconSchema is the JSON Schema for proxy beacon configuration
// documents.
const ProxyBeaconSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["proxies"],
  "properties": {
    "proxies": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {
        "type": "object",
        "required": ["pid_file", "start_command"],
        "properties": {
          "pid_file": {
            "type": "string",
            "minLength": 1
          },
          "start_command": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "string",
              "minLength": 1
            }
          }
        }
      }
    }
  }
}`

// ValidateProxyBeaconDocument checks a raw JSON configuration document
// against the proxy beacon schema.
func ValidateProxyBeaconDocument(raw []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(ProxyBeaconSchema)
	documentLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("beacon config validation: %w", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return fmt.Errorf("invalid beacon configuration: %s", strings.Join(problems, "; "))
}
