// Package structured turns Go structs into response schemas and decodes
// model replies back into validated values.
package structured

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"

	"github.com/nelssec/llm-workflows/internal/llm"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrInvalidOutput marks replies that are not valid JSON for the schema or
// fail field validation.
var ErrInvalidOutput = errors.New("invalid structured output")

// SchemaFor reflects T into an inline JSON schema.
func SchemaFor[T any]() (json.RawMessage, error) {
	return marshalSchema(reflectSchema[T]())
}

// SchemaWithEnum is SchemaFor with the enum of one top-level property
// replaced, so one decision type can serve several domains.
func SchemaWithEnum[T any](property string, values []string) (json.RawMessage, error) {
	schema := reflectSchema[T]()

	prop, ok := schema.Properties.Get(property)
	if !ok {
		return nil, errors.Newf("schema has no property %q", property)
	}
	prop.Enum = make([]interface{}, len(values))
	for i, v := range values {
		prop.Enum[i] = v
	}

	return marshalSchema(schema)
}

func reflectSchema[T any]() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	var v T
	schema := r.Reflect(&v)
	schema.Version = ""
	schema.ID = ""
	return schema
}

func marshalSchema(schema *jsonschema.Schema) (json.RawMessage, error) {
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal schema")
	}
	return b, nil
}

// Decode parses raw into T and runs struct validation.
func Decode[T any](raw string) (*T, error) {
	var out T
	if err := json.Unmarshal([]byte(stripFences(raw)), &out); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to parse model output"), ErrInvalidOutput)
	}
	if err := validate.Struct(&out); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return &out, nil
		}
		return nil, errors.Mark(errors.Wrap(err, "model output failed validation"), ErrInvalidOutput)
	}
	return &out, nil
}

// Generate asks client for a reply shaped like T. If req.Format is empty the
// schema is derived from T.
func Generate[T any](ctx context.Context, client llm.Client, req *llm.Request) (*T, error) {
	if req.Format == nil {
		schema, err := SchemaFor[T]()
		if err != nil {
			return nil, err
		}
		req.Format = schema
	}

	resp, err := client.Chat(ctx, req)
	if err != nil {
		return nil, err
	}

	return Decode[T](resp.Content)
}

// stripFences removes a surrounding markdown code fence, which some local
// models emit even when constrained to JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
