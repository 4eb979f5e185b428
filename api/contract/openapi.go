package contract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// OpenAPIFilename is the OpenAPI artifact name inside the output dir.
const OpenAPIFilename = "openapi.json"

// OpenAPIInfo configures the info section of the emitted document.
type OpenAPIInfo struct {
	Title       string
	Version     string
	Description string
	Servers     []string
}

// BuildOpenAPI renders the manifest and its schema registry as an
// OpenAPI 3.1 JSON document. Output is deterministic: paths, methods,
// components, and required lists are sorted.
func BuildOpenAPI(m *Manifest, reg *Registry, info OpenAPIInfo) ([]byte, error) {
	doc := &OpenAPIDocument{
		OpenAPI: "3.1.0",
		Info: OpenAPIDocInfo{
			Title:       info.Title,
			Version:     info.Version,
			Description: info.Description,
		},
	}
	for _, s := range info.Servers {
		doc.Servers = append(doc.Servers, OpenAPIServer{URL: s})
	}

	doc.Components.Schemas = make(map[string]*OpenAPISchema)
	doc.Components.Schemas["ErrorResponse"] = errorResponseSchema()
	for _, name := range reg.Names() {
		node, _ := reg.Resolve(name)
		doc.Components.Schemas[name] = RenderSchema(node)
	}

	// Group operations by full path.
	byPath := make(map[string][]ManifestOperation)
	for _, op := range m.Operations() {
		byPath[op.HTTP.Path] = append(byPath[op.HTTP.Path], op)
	}
	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	doc.Paths = make(map[string]*OpenAPIPathItem)
	for _, p := range paths {
		ops := byPath[p]
		sort.Slice(ops, func(i, j int) bool {
			return methodOrder(ops[i].HTTP.Method) < methodOrder(ops[j].HTTP.Method)
		})

		item := &OpenAPIPathItem{}
		for _, op := range ops {
			rendered := renderOperation(op)
			switch op.HTTP.Method {
			case "GET":
				item.Get = rendered
			case "POST":
				item.Post = rendered
			case "PUT":
				item.Put = rendered
			case "PATCH":
				item.Patch = rendered
			case "DELETE":
				item.Delete = rendered
			}
		}
		key := p
		if key == "" {
			key = "/"
		}
		doc.Paths[key] = item
	}

	return json.MarshalIndent(doc, "", "  ")
}

// WriteOpenAPI persists an OpenAPI document to dir.
func WriteOpenAPI(dir string, data []byte) error {
	path := filepath.Join(dir, OpenAPIFilename)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func renderOperation(op ManifestOperation) *OpenAPIOperation {
	out := &OpenAPIOperation{
		OperationID: op.OperationID,
		Tags:        []string{pathTag(op.HTTP.Path)},
		Responses:   make(map[string]*OpenAPIResponse),
	}

	addParams := func(in string, args []ManifestArg) {
		for _, a := range args {
			out.Parameters = append(out.Parameters, OpenAPIParameter{
				Name:     a.Name,
				In:       in,
				Required: a.Required,
				Schema:   argSchema(a),
			})
		}
	}
	addParams("path", op.Args.Path)
	addParams("query", op.Args.Query)
	addParams("header", op.Args.Headers)
	addParams("cookie", op.Args.Cookies)

	sort.SliceStable(out.Parameters, func(i, j int) bool {
		if out.Parameters[i].In != out.Parameters[j].In {
			return paramInOrder(out.Parameters[i].In) < paramInOrder(out.Parameters[j].In)
		}
		return out.Parameters[i].Name < out.Parameters[j].Name
	})

	if op.Args.Body != nil {
		body := &OpenAPIRequestBody{
			Required: op.Args.Body.Required,
			Content:  map[string]OpenAPIMediaType{},
		}
		ct := op.Args.Body.ContentType
		if ct == "" {
			ct = "application/json"
		}
		body.Content[ct] = OpenAPIMediaType{Schema: refOrAny(op.Args.Body.SchemaRef)}
		out.RequestBody = body
	}

	for _, r := range op.Responses {
		resp := &OpenAPIResponse{Description: statusDescription(r.Status)}
		if r.ContentType != "" {
			schema := refOrAny(r.SchemaRef)
			if r.IsArray {
				schema = &OpenAPISchema{Type: "array", Items: schema}
			}
			resp.Content = map[string]OpenAPIMediaType{r.ContentType: {Schema: schema}}
		}
		out.Responses[fmt.Sprintf("%d", r.Status)] = resp
	}

	// Operations with wire bindings can reject input.
	if op.Args.Body != nil || len(op.Args.Path)+len(op.Args.Query)+len(op.Args.Headers)+len(op.Args.Cookies) > 0 {
		if _, ok := out.Responses["400"]; !ok {
			out.Responses["400"] = errorResponse("Bad Request")
		}
	}
	if op.Auth != "" {
		if _, ok := out.Responses["401"]; !ok {
			out.Responses["401"] = errorResponse("Unauthorized")
		}
	}
	if _, ok := out.Responses["500"]; !ok {
		out.Responses["500"] = errorResponse("Internal Server Error")
	}

	return out
}

func argSchema(a ManifestArg) *OpenAPISchema {
	if a.SchemaRef != "" {
		return &OpenAPISchema{Ref: a.SchemaRef}
	}
	switch a.SchemaType {
	case "integer":
		return &OpenAPISchema{Type: "integer"}
	case "number":
		return &OpenAPISchema{Type: "number"}
	case "boolean":
		return &OpenAPISchema{Type: "boolean"}
	default:
		return &OpenAPISchema{Type: "string"}
	}
}

func refOrAny(ref string) *OpenAPISchema {
	if ref == "" {
		return &OpenAPISchema{}
	}
	return &OpenAPISchema{Ref: ref}
}

// RenderSchema converts an internal schema node into an OpenAPI 3.1
// schema. Nullable wrappers render as anyOf with a null type; optional
// wrappers only affect required lists and render as their inner node.
func RenderSchema(n *SchemaNode) *OpenAPISchema {
	if n == nil {
		return &OpenAPISchema{}
	}
	switch n.Kind {
	case SchemaRef:
		return &OpenAPISchema{Ref: "#/components/schemas/" + n.Ref}

	case SchemaString:
		out := &OpenAPISchema{
			Type:      "string",
			Format:    n.Format,
			Pattern:   n.Pattern,
			MinLength: n.MinLength,
			MaxLength: n.MaxLength,
		}
		for _, e := range n.Enum {
			out.Enum = append(out.Enum, e)
		}
		return out

	case SchemaNumber:
		t := "number"
		if n.Int {
			t = "integer"
		}
		return &OpenAPISchema{Type: t, Minimum: n.Min, Maximum: n.Max}

	case SchemaBoolean:
		return &OpenAPISchema{Type: "boolean"}

	case SchemaLiteral:
		return &OpenAPISchema{Const: n.Literal}

	case SchemaArray:
		return &OpenAPISchema{Type: "array", Items: RenderSchema(n.Items)}

	case SchemaObject:
		out := &OpenAPISchema{Type: "object", Properties: make(map[string]*OpenAPISchema)}
		for _, p := range n.Properties {
			out.Properties[p.Name] = RenderSchema(p.Schema)
		}
		req := append([]string(nil), n.Required...)
		sort.Strings(req)
		out.Required = req
		if n.Strict {
			f := false
			out.AdditionalProperties = &f
		}
		return out

	case SchemaUnion:
		out := &OpenAPISchema{}
		for _, m := range n.AnyOf {
			out.AnyOf = append(out.AnyOf, RenderSchema(m))
		}
		return out

	case SchemaNullable:
		return &OpenAPISchema{AnyOf: []*OpenAPISchema{
			RenderSchema(n.Inner),
			{Type: "null"},
		}}

	case SchemaOptional:
		return RenderSchema(n.Inner)

	default:
		return &OpenAPISchema{}
	}
}

// ParseComponents reads a persisted OpenAPI document and rebuilds the
// schema registry from its components/schemas section. It inverts
// RenderSchema; optional wrappers do not round-trip, but required lists
// carry the same information for validation.
func ParseComponents(data []byte) (*Registry, error) {
	var doc struct {
		Components OpenAPIComponents `json:"components"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse openapi document: %w", err)
	}

	reg := NewRegistry()
	names := make([]string, 0, len(doc.Components.Schemas))
	for name := range doc.Components.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		reg.Fill(name, parseSchema(doc.Components.Schemas[name]))
	}
	return reg, nil
}

func parseSchema(s *OpenAPISchema) *SchemaNode {
	if s == nil {
		return &SchemaNode{}
	}
	if s.Ref != "" {
		return &SchemaNode{Kind: SchemaRef, Ref: strings.TrimPrefix(s.Ref, "#/components/schemas/")}
	}
	if len(s.AnyOf) > 0 {
		// A two-member anyOf with a null arm is a rendered nullable.
		if len(s.AnyOf) == 2 {
			if s.AnyOf[1] != nil && s.AnyOf[1].Type == "null" {
				return &SchemaNode{Kind: SchemaNullable, Inner: parseSchema(s.AnyOf[0])}
			}
			if s.AnyOf[0] != nil && s.AnyOf[0].Type == "null" {
				return &SchemaNode{Kind: SchemaNullable, Inner: parseSchema(s.AnyOf[1])}
			}
		}
		out := &SchemaNode{Kind: SchemaUnion}
		for _, m := range s.AnyOf {
			out.AnyOf = append(out.AnyOf, parseSchema(m))
		}
		return out
	}
	if s.Const != nil {
		return &SchemaNode{Kind: SchemaLiteral, Literal: s.Const}
	}

	switch s.Type {
	case "string":
		out := &SchemaNode{
			Kind:      SchemaString,
			Format:    s.Format,
			Pattern:   s.Pattern,
			MinLength: s.MinLength,
			MaxLength: s.MaxLength,
		}
		for _, e := range s.Enum {
			if str, ok := e.(string); ok {
				out.Enum = append(out.Enum, str)
			}
		}
		return out
	case "integer":
		return &SchemaNode{Kind: SchemaNumber, Int: true, Min: s.Minimum, Max: s.Maximum}
	case "number":
		return &SchemaNode{Kind: SchemaNumber, Min: s.Minimum, Max: s.Maximum}
	case "boolean":
		return &SchemaNode{Kind: SchemaBoolean}
	case "array":
		return &SchemaNode{Kind: SchemaArray, Items: parseSchema(s.Items)}
	case "object":
		out := &SchemaNode{Kind: SchemaObject, Required: append([]string(nil), s.Required...)}
		if s.AdditionalProperties != nil && !*s.AdditionalProperties {
			out.Strict = true
		}
		names := make([]string, 0, len(s.Properties))
		for name := range s.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		required := make(map[string]bool, len(s.Required))
		for _, r := range s.Required {
			required[r] = true
		}
		for _, name := range names {
			prop := parseSchema(s.Properties[name])
			if !required[name] {
				prop = &SchemaNode{Kind: SchemaOptional, Inner: prop}
			}
			out.Properties = append(out.Properties, SchemaProperty{Name: name, Schema: prop})
		}
		return out
	default:
		return &SchemaNode{}
	}
}

func errorResponse(desc string) *OpenAPIResponse {
	return &OpenAPIResponse{
		Description: desc,
		Content: map[string]OpenAPIMediaType{
			"application/json": {Schema: &OpenAPISchema{Ref: "#/components/schemas/ErrorResponse"}},
		},
	}
}

func errorResponseSchema() *OpenAPISchema {
	f := false
	return &OpenAPISchema{
		Type: "object",
		Properties: map[string]*OpenAPISchema{
			"error": {
				Type: "object",
				Properties: map[string]*OpenAPISchema{
					"code":    {Type: "string"},
					"message": {Type: "string"},
					"fields": {
						Type: "array",
						Items: &OpenAPISchema{
							Type: "object",
							Properties: map[string]*OpenAPISchema{
								"path":    {Type: "string"},
								"message": {Type: "string"},
							},
							Required: []string{"message", "path"},
						},
					},
				},
				Required: []string{"code", "message"},
			},
		},
		Required:             []string{"error"},
		AdditionalProperties: &f,
	}
}

func statusDescription(status int) string {
	switch status {
	case 200:
		return "OK"
	case 201:
		return "Created"
	case 202:
		return "Accepted"
	case 204:
		return "No Content"
	case 400:
		return "Bad Request"
	case 401:
		return "Unauthorized"
	case 403:
		return "Forbidden"
	case 404:
		return "Not Found"
	case 409:
		return "Conflict"
	case 422:
		return "Unprocessable Entity"
	case 500:
		return "Internal Server Error"
	default:
		return fmt.Sprintf("Status %d", status)
	}
}

func methodOrder(method string) int {
	switch method {
	case "GET":
		return 0
	case "POST":
		return 1
	case "PUT":
		return 2
	case "PATCH":
		return 3
	case "DELETE":
		return 4
	default:
		return 5
	}
}

func paramInOrder(in string) int {
	switch in {
	case "path":
		return 0
	case "query":
		return 1
	case "header":
		return 2
	case "cookie":
		return 3
	default:
		return 4
	}
}

// pathTag derives an operation tag from the first path segment.
func pathTag(path string) string {
	path = strings.TrimPrefix(path, "/")
	seg, _, _ := strings.Cut(path, "/")
	if seg == "" || strings.HasPrefix(seg, "{") {
		return "default"
	}
	return seg
}

// OpenAPI document types, 3.1 flavored.

type OpenAPIDocument struct {
	OpenAPI    string                      `json:"openapi"`
	Info       OpenAPIDocInfo              `json:"info"`
	Servers    []OpenAPIServer             `json:"servers,omitempty"`
	Paths      map[string]*OpenAPIPathItem `json:"paths"`
	Components OpenAPIComponents           `json:"components"`
}

type OpenAPIDocInfo struct {
	Title       string `json:"title"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

type OpenAPIServer struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

type OpenAPIPathItem struct {
	Get    *OpenAPIOperation `json:"get,omitempty"`
	Post   *OpenAPIOperation `json:"post,omitempty"`
	Put    *OpenAPIOperation `json:"put,omitempty"`
	Patch  *OpenAPIOperation `json:"patch,omitempty"`
	Delete *OpenAPIOperation `json:"delete,omitempty"`
}

type OpenAPIOperation struct {
	OperationID string                      `json:"operationId"`
	Tags        []string                    `json:"tags,omitempty"`
	Summary     string                      `json:"summary,omitempty"`
	Description string                      `json:"description,omitempty"`
	Parameters  []OpenAPIParameter          `json:"parameters,omitempty"`
	RequestBody *OpenAPIRequestBody         `json:"requestBody,omitempty"`
	Responses   map[string]*OpenAPIResponse `json:"responses"`
}

type OpenAPIParameter struct {
	Name     string         `json:"name"`
	In       string         `json:"in"`
	Required bool           `json:"required"`
	Schema   *OpenAPISchema `json:"schema"`
}

type OpenAPIRequestBody struct {
	Description string                      `json:"description,omitempty"`
	Required    bool                        `json:"required"`
	Content     map[string]OpenAPIMediaType `json:"content"`
}

type OpenAPIResponse struct {
	Description string                      `json:"description"`
	Content     map[string]OpenAPIMediaType `json:"content,omitempty"`
}

type OpenAPIMediaType struct {
	Schema *OpenAPISchema `json:"schema"`
}

type OpenAPIComponents struct {
	Schemas map[string]*OpenAPISchema `json:"schemas"`
}

// OpenAPISchema is the rendered JSON Schema shape.
type OpenAPISchema struct {
	Ref                  string                    `json:"$ref,omitempty"`
	Type                 string                    `json:"type,omitempty"`
	Format               string                    `json:"format,omitempty"`
	Pattern              string                    `json:"pattern,omitempty"`
	MinLength            *int                      `json:"minLength,omitempty"`
	MaxLength            *int                      `json:"maxLength,omitempty"`
	Minimum              *float64                  `json:"minimum,omitempty"`
	Maximum              *float64                  `json:"maximum,omitempty"`
	Enum                 []any                     `json:"enum,omitempty"`
	Const                any                       `json:"const,omitempty"`
	Items                *OpenAPISchema            `json:"items,omitempty"`
	Properties           map[string]*OpenAPISchema `json:"properties,omitempty"`
	Required             []string                  `json:"required,omitempty"`
	AdditionalProperties *bool                     `json:"additionalProperties,omitempty"`
	AnyOf                []*OpenAPISchema          `json:"anyOf,omitempty"`
	Description          string                    `json:"description,omitempty"`
}
