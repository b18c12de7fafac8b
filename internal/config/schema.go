package config

import (
	"github.com/invopop/jsonschema"
)

// Schema describes config.yml for editors and CI validation.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		FieldNameTag:               "yaml",
		RequiredFromJSONSchemaTags: true,
		AllowAdditionalProperties:  true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(new(Document))
	schema.Title = "Ability Engine Configuration"
	schema.Description = "Validates config.yml consumed by the ability engine server"
	return schema
}
