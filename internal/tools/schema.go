// Package tools ships the built-in tools the model can call: workspace file
// access, HTTP fetch, and the current time.
package tools

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// reflectSchema derives a JSON schema from a tool's input struct. Field
// descriptions come from jsonschema struct tags; fields without omitempty are
// required.
func reflectSchema(input any) json.RawMessage {
	reflector := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(input)
	schema.Version = ""

	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}
