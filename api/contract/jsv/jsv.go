// Package jsv is the JSON Schema validation backend. It renders schema
// nodes into a draft 2020-12 document and compiles it with
// santhosh-tekuri/jsonschema, trading the native provider's zero
// dependencies for full keyword coverage.
package jsv

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/celsowm/adorn-api/api/contract"
)

// Provider compiles schema nodes through the jsonschema library.
type Provider struct{}

func (Provider) Name() string { return "jsonschema" }

// Compile renders the node plus all components into one schema document
// and compiles it. Component refs become $defs refs so the compiled
// schema is self-contained.
func (Provider) Compile(node *contract.SchemaNode, components map[string]*contract.SchemaNode) (contract.Predicate, error) {
	doc := map[string]any{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
	}
	defs := make(map[string]any, len(components))
	for name, n := range components {
		defs[name] = schemaValue(n)
	}
	doc["$defs"] = defs
	for k, v := range schemaValue(node) {
		doc[k] = v
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema: %w", err)
	}
	data = bytes.ReplaceAll(data, []byte("#/components/schemas/"), []byte("#/$defs/"))

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	sch, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return func(data any) []contract.FieldError {
		err := sch.Validate(data)
		if err == nil {
			return nil
		}
		ve, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return []contract.FieldError{{Message: err.Error()}}
		}
		return flatten(ve)
	}, nil
}

// schemaValue renders a node as a generic JSON value, going through the
// shared OpenAPI renderer so both backends see identical schemas.
func schemaValue(n *contract.SchemaNode) map[string]any {
	data, _ := json.Marshal(contract.RenderSchema(n))
	var out map[string]any
	_ = json.Unmarshal(data, &out)
	if out == nil {
		out = map[string]any{}
	}
	return out
}

// flatten walks the cause tree down to its leaves and converts each
// instance location into a dot path.
func flatten(ve *jsonschema.ValidationError) []contract.FieldError {
	if len(ve.Causes) == 0 {
		return []contract.FieldError{{
			Path:    pointerToPath(ve.InstanceLocation),
			Message: ve.Message,
		}}
	}
	var out []contract.FieldError
	for _, c := range ve.Causes {
		out = append(out, flatten(c)...)
	}
	return out
}

// pointerToPath converts a JSON pointer ("/pets/0/name") into the dot
// path form the rest of the system reports ("pets[0].name").
func pointerToPath(ptr string) string {
	if ptr == "" || ptr == "/" {
		return ""
	}
	var b strings.Builder
	for _, seg := range strings.Split(strings.TrimPrefix(ptr, "/"), "/") {
		seg = strings.ReplaceAll(strings.ReplaceAll(seg, "~1", "/"), "~0", "~")
		if _, err := strconv.Atoi(seg); err == nil {
			fmt.Fprintf(&b, "[%s]", seg)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}
