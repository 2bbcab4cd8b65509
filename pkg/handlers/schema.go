package handlers

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// allocateSchema describes the JSON body of the allocate and validate
// endpoints. Cell values may be strings, numbers, booleans, null or flat lists.
const allocateSchema = `{
  "type": "object",
  "required": ["candidates", "internships"],
  "properties": {
    "candidates":    {"$ref": "#/definitions/rows"},
    "internships":   {"$ref": "#/definitions/rows"},
    "allow_partial": {"type": "boolean"}
  },
  "definitions": {
    "scalar": {"type": ["string", "number", "boolean", "null"]},
    "rows": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": {
          "anyOf": [
            {"$ref": "#/definitions/scalar"},
            {"type": "array", "items": {"$ref": "#/definitions/scalar"}}
          ]
        }
      }
    }
  }
}`

var requestSchema = mustSchema(allocateSchema)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("invalid request schema: %v", err))
	}
	return s
}

// validateShape checks body against the request schema and returns one
// message per violation
func validateShape(body []byte) ([]string, error) {
	result, err := requestSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}
	errs := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		errs[i] = desc.String()
	}
	return errs, nil
}
