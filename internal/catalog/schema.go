package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON string

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("catalog-schema.json", strings.NewReader(schemaJSON)); err != nil {
		panic(fmt.Sprintf("catalog: add schema resource: %v", err))
	}
	schema, err := compiler.Compile("catalog-schema.json")
	if err != nil {
		panic(fmt.Sprintf("catalog: compile schema: %v", err))
	}
	return schema
}

// ValidateDocument checks a raw catalog payload against the embedded JSON
// schema before the structural transform runs. Failures wrap ErrCatalogLoad.
func ValidateDocument(payload []byte) error {
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return fmt.Errorf("%w: malformed JSON: %v", ErrCatalogLoad, err)
	}
	if err := compiledSchema.Validate(v); err != nil {
		return fmt.Errorf("%w: schema validation: %v", ErrCatalogLoad, err)
	}
	return nil
}
