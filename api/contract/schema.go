package contract

import (
	"fmt"
	"sort"
	"strings"
)

// SchemaKind discriminates SchemaNode variants.
type SchemaKind string

const (
	SchemaString   SchemaKind = "string"
	SchemaNumber   SchemaKind = "number"
	SchemaBoolean  SchemaKind = "boolean"
	SchemaLiteral  SchemaKind = "literal"
	SchemaArray    SchemaKind = "array"
	SchemaObject   SchemaKind = "object"
	SchemaUnion    SchemaKind = "union"
	SchemaOptional SchemaKind = "optional"
	SchemaNullable SchemaKind = "nullable"
	// SchemaRef points at a hoisted component by name.
	SchemaRef SchemaKind = "ref"
)

// SchemaNode is the tagged internal representation of a type prior to
// OpenAPI rendering. Nodes are immutable values once built, except that
// hoisted object bodies are filled in after their name is reserved
// (forward declaration, see Registry.Reserve).
type SchemaNode struct {
	Kind SchemaKind

	// string
	MinLength *int
	MaxLength *int
	Pattern   string
	Format    string
	Enum      []string

	// number
	Int bool
	Min *float64
	Max *float64

	// literal
	Literal any

	// array
	Items *SchemaNode

	// object; Properties keep declaration order for deterministic output
	Properties []SchemaProperty
	Required   []string
	Strict     bool

	// union
	AnyOf []*SchemaNode

	// optional / nullable
	Inner *SchemaNode

	// ref
	Ref string
}

// SchemaProperty is one named property of an object schema.
type SchemaProperty struct {
	Name   string
	Schema *SchemaNode
}

// Unwrap strips optional and nullable wrappers, returning the inner
// node plus flags for each wrapper encountered.
func (n *SchemaNode) Unwrap() (inner *SchemaNode, optional, nullable bool) {
	inner = n
	for inner != nil {
		switch inner.Kind {
		case SchemaOptional:
			optional = true
			inner = inner.Inner
		case SchemaNullable:
			nullable = true
			inner = inner.Inner
		default:
			return inner, optional, nullable
		}
	}
	return inner, optional, nullable
}

// RefName returns the component name for a ref node, or "".
func (n *SchemaNode) RefName() string {
	if n.Kind == SchemaRef {
		return n.Ref
	}
	return ""
}

// ScalarType returns the OpenAPI primitive type name for a scalar node
// ("string", "integer", "number", "boolean"), resolving refs through
// the given registry. Returns "" for non-scalars.
func (n *SchemaNode) ScalarType(reg *Registry) string {
	node, _, _ := n.Unwrap()
	if node == nil {
		return ""
	}
	if node.Kind == SchemaRef && reg != nil {
		if resolved, ok := reg.Resolve(node.Ref); ok {
			return resolved.ScalarType(reg)
		}
		return ""
	}
	switch node.Kind {
	case SchemaString:
		return "string"
	case SchemaNumber:
		if node.Int {
			return "integer"
		}
		return "number"
	case SchemaBoolean:
		return "boolean"
	case SchemaLiteral:
		switch node.Literal.(type) {
		case string:
			return "string"
		case bool:
			return "boolean"
		case float64, int:
			return "number"
		}
	}
	return ""
}

// Registry hoists named schemas to shared components. Declared types
// are deduplicated by their qualified source name, so two structurally
// distinct occurrences of the same type emit one component.
//
// A name is reserved before its body is translated; a second visit
// during translation short-circuits on the reservation, which is what
// breaks cycles in self-referential type graphs.
type Registry struct {
	nodes map[string]*SchemaNode // component name -> node (nil while reserved)
	bySrc map[string]string      // qualified source name -> component name
	order []string
}

// NewRegistry returns an empty schema registry.
func NewRegistry() *Registry {
	return &Registry{
		nodes: make(map[string]*SchemaNode),
		bySrc: make(map[string]string),
	}
}

// Reserve claims a component slot for the qualified source name and
// returns the component name plus whether the slot already existed.
// The short, package-stripped name is preferred; on collision with a
// different source type the sanitized qualified name is used instead.
func (r *Registry) Reserve(srcName string) (component string, existed bool) {
	if comp, ok := r.bySrc[srcName]; ok {
		return comp, true
	}

	comp := shortName(srcName)
	if holder, taken := r.srcFor(comp); taken && holder != srcName {
		comp = sanitizeComponent(srcName)
	}

	r.bySrc[srcName] = comp
	if _, ok := r.nodes[comp]; !ok {
		r.nodes[comp] = nil
		r.order = append(r.order, comp)
	}
	return comp, false
}

// Fill records the completed body for a reserved component.
func (r *Registry) Fill(component string, node *SchemaNode) {
	if _, ok := r.nodes[component]; !ok {
		r.order = append(r.order, component)
	}
	r.nodes[component] = node
}

// Add registers a component under an explicit name, reserving the name
// if it is new. Used for hoisting anonymous body/response schemas under
// derived names.
func (r *Registry) Add(component string, node *SchemaNode) string {
	name := component
	for i := 2; ; i++ {
		existing, ok := r.nodes[name]
		if !ok || existing == nil {
			break
		}
		name = fmt.Sprintf("%s%d", component, i)
	}
	r.Fill(name, node)
	return name
}

// Resolve returns the node for a component name. The bool is false for
// unknown names and for reserved-but-unfilled slots.
func (r *Registry) Resolve(component string) (*SchemaNode, bool) {
	n, ok := r.nodes[component]
	if !ok || n == nil {
		return nil, false
	}
	return n, true
}

// Components returns all filled components in a deterministic order.
func (r *Registry) Components() map[string]*SchemaNode {
	out := make(map[string]*SchemaNode, len(r.nodes))
	for name, n := range r.nodes {
		if n != nil {
			out[name] = n
		}
	}
	return out
}

// Names returns filled component names sorted lexically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.nodes))
	for name, n := range r.nodes {
		if n != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Len returns the number of reserved or filled components.
func (r *Registry) Len() int { return len(r.order) }

func (r *Registry) srcFor(component string) (string, bool) {
	for src, comp := range r.bySrc {
		if comp == component {
			return src, true
		}
	}
	return "", false
}

// shortName strips the package qualifier from a qualified type name.
func shortName(qualified string) string {
	if i := strings.LastIndex(qualified, "."); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}

// sanitizeComponent turns a qualified name into a valid component key.
func sanitizeComponent(qualified string) string {
	var b strings.Builder
	for _, c := range qualified {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-', c == '.':
			b.WriteRune(c)
		default:
			b.WriteRune('.')
		}
	}
	return b.String()
}
