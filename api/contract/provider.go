package contract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// FieldError is one structured validation failure.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Predicate validates decoded JSON data. A nil error slice means the
// data conforms.
type Predicate func(data any) []FieldError

// SchemaProvider is the pluggable validation backend capability. A
// provider compiles a schema node (resolving refs through components)
// into a predicate. The native provider below has no external
// dependency; api/contract/jsv supplies a JSON Schema backed one.
type SchemaProvider interface {
	// Name identifies the provider in artifacts ("native", "jsonschema").
	Name() string
	// Compile builds a predicate for the schema node. Refs resolve
	// against components.
	Compile(node *SchemaNode, components map[string]*SchemaNode) (Predicate, error)
}

// NativeProvider compiles schema nodes into plain Go closures. It is
// the self-contained default backend.
type NativeProvider struct{}

func (NativeProvider) Name() string { return "native" }

// Compile builds a closure tree mirroring the schema node tree. Cyclic
// component graphs are handled with late-bound ref predicates: a ref
// closure looks up its target in the compiled set at call time, which
// is filled before any predicate runs.
func (NativeProvider) Compile(node *SchemaNode, components map[string]*SchemaNode) (Predicate, error) {
	c := &nativeCompiler{
		components: components,
		compiled:   make(map[string]Predicate),
	}
	p, err := c.compile(node, "")
	if err != nil {
		return nil, err
	}
	return p, nil
}

type nativeCompiler struct {
	components map[string]*SchemaNode
	compiled   map[string]Predicate
}

func (c *nativeCompiler) compile(node *SchemaNode, path string) (Predicate, error) {
	if node == nil {
		return acceptAll, nil
	}

	switch node.Kind {
	case SchemaRef:
		name := node.Ref
		if _, ok := c.components[name]; !ok {
			return nil, fmt.Errorf("unresolved schema ref %q", name)
		}
		if _, done := c.compiled[name]; !done {
			// Reserve before recursing so self-references terminate.
			c.compiled[name] = nil
			target, err := c.compile(c.components[name], "")
			if err != nil {
				return nil, err
			}
			c.compiled[name] = target
		}
		return func(data any) []FieldError {
			p := c.compiled[name]
			if p == nil {
				return nil
			}
			return prefix(path, p(data))
		}, nil

	case SchemaString:
		return c.compileString(node, path)

	case SchemaNumber:
		return c.compileNumber(node, path), nil

	case SchemaBoolean:
		return func(data any) []FieldError {
			if _, ok := data.(bool); !ok {
				return fail(path, "expected boolean")
			}
			return nil
		}, nil

	case SchemaLiteral:
		want := node.Literal
		return func(data any) []FieldError {
			if !literalEqual(data, want) {
				return fail(path, fmt.Sprintf("expected literal %v", want))
			}
			return nil
		}, nil

	case SchemaArray:
		items, err := c.compile(node.Items, "")
		if err != nil {
			return nil, err
		}
		return func(data any) []FieldError {
			arr, ok := data.([]any)
			if !ok {
				return fail(path, "expected array")
			}
			var errs []FieldError
			for i, item := range arr {
				errs = append(errs, prefix(fmt.Sprintf("%s[%d]", path, i), items(item))...)
			}
			return errs
		}, nil

	case SchemaObject:
		return c.compileObject(node, path)

	case SchemaUnion:
		members := make([]Predicate, 0, len(node.AnyOf))
		for _, m := range node.AnyOf {
			p, err := c.compile(m, "")
			if err != nil {
				return nil, err
			}
			members = append(members, p)
		}
		return func(data any) []FieldError {
			for _, p := range members {
				if len(p(data)) == 0 {
					return nil
				}
			}
			return fail(path, "value matches no union member")
		}, nil

	case SchemaNullable:
		inner, err := c.compile(node.Inner, path)
		if err != nil {
			return nil, err
		}
		return func(data any) []FieldError {
			if data == nil {
				return nil
			}
			return inner(data)
		}, nil

	case SchemaOptional:
		// Absence is decided by the enclosing object; present values
		// validate against the inner schema.
		return c.compile(node.Inner, path)

	default:
		return acceptAll, nil
	}
}

func (c *nativeCompiler) compileString(node *SchemaNode, path string) (Predicate, error) {
	var pattern *regexp.Regexp
	if node.Pattern != "" {
		re, err := regexp.Compile(node.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", node.Pattern, err)
		}
		pattern = re
	}
	minLen, maxLen := node.MinLength, node.MaxLength
	format := node.Format
	var enum map[string]bool
	if len(node.Enum) > 0 {
		enum = make(map[string]bool, len(node.Enum))
		for _, e := range node.Enum {
			enum[e] = true
		}
	}

	return func(data any) []FieldError {
		s, ok := data.(string)
		if !ok {
			return fail(path, "expected string")
		}
		if minLen != nil && len(s) < *minLen {
			return fail(path, fmt.Sprintf("shorter than minLength %d", *minLen))
		}
		if maxLen != nil && len(s) > *maxLen {
			return fail(path, fmt.Sprintf("longer than maxLength %d", *maxLen))
		}
		if pattern != nil && !pattern.MatchString(s) {
			return fail(path, "does not match pattern")
		}
		if enum != nil && !enum[s] {
			return fail(path, "not one of the allowed values")
		}
		if format == "uuid" {
			if _, err := uuid.Parse(s); err != nil {
				return fail(path, "not a valid uuid")
			}
		}
		return nil
	}, nil
}

func (c *nativeCompiler) compileNumber(node *SchemaNode, path string) Predicate {
	integer := node.Int
	min, max := node.Min, node.Max
	return func(data any) []FieldError {
		f, ok := numberValue(data)
		if !ok {
			return fail(path, "expected number")
		}
		if integer && f != float64(int64(f)) {
			return fail(path, "expected integer")
		}
		if min != nil && f < *min {
			return fail(path, fmt.Sprintf("below minimum %v", *min))
		}
		if max != nil && f > *max {
			return fail(path, fmt.Sprintf("above maximum %v", *max))
		}
		return nil
	}
}

func (c *nativeCompiler) compileObject(node *SchemaNode, path string) (Predicate, error) {
	type propPred struct {
		name     string
		optional bool
		pred     Predicate
	}
	props := make([]propPred, 0, len(node.Properties))
	known := make(map[string]bool, len(node.Properties))
	required := make(map[string]bool, len(node.Required))
	for _, r := range node.Required {
		required[r] = true
	}

	for _, p := range node.Properties {
		_, optional, _ := p.Schema.Unwrap()
		pred, err := c.compile(stripOptional(p.Schema), "")
		if err != nil {
			return nil, err
		}
		props = append(props, propPred{name: p.Name, optional: optional || !required[p.Name], pred: pred})
		known[p.Name] = true
	}
	strict := node.Strict

	return func(data any) []FieldError {
		obj, ok := data.(map[string]any)
		if !ok {
			return fail(path, "expected object")
		}
		var errs []FieldError
		for _, p := range props {
			v, present := obj[p.name]
			if !present {
				if !p.optional {
					errs = append(errs, FieldError{Path: joinPath(path, p.name), Message: "missing required property"})
				}
				continue
			}
			errs = append(errs, prefix(joinPath(path, p.name), p.pred(v))...)
		}
		if strict {
			for k := range obj {
				if !known[k] {
					errs = append(errs, FieldError{Path: joinPath(path, k), Message: "unexpected property"})
				}
			}
		}
		return errs
	}, nil
}

// stripOptional removes a leading optional wrapper; presence checks
// belong to the enclosing object, not the value predicate.
func stripOptional(n *SchemaNode) *SchemaNode {
	if n != nil && n.Kind == SchemaOptional {
		return n.Inner
	}
	return n
}

func acceptAll(any) []FieldError { return nil }

func fail(path, message string) []FieldError {
	return []FieldError{{Path: path, Message: message}}
}

func prefix(path string, errs []FieldError) []FieldError {
	if path == "" || len(errs) == 0 {
		return errs
	}
	out := make([]FieldError, len(errs))
	for i, e := range errs {
		p := e.Path
		if p == "" {
			p = path
		} else if !strings.HasPrefix(p, path) {
			p = joinPath(path, strings.TrimPrefix(p, "."))
		}
		out[i] = FieldError{Path: p, Message: e.Message}
	}
	return out
}

func joinPath(base, prop string) string {
	if base == "" {
		return prop
	}
	if strings.HasPrefix(prop, "[") {
		return base + prop
	}
	return base + "." + prop
}

func numberValue(data any) (float64, bool) {
	switch v := data.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func literalEqual(data, want any) bool {
	if f, ok := numberValue(data); ok {
		if wf, ok2 := numberValue(want); ok2 {
			return f == wf
		}
	}
	return data == want
}
