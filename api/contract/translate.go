package contract

import (
	"fmt"
	"log/slog"
)

// Translator converts type expressions into schema nodes, hoisting
// declared types into a shared registry. Translation is best-effort:
// unsupported shapes yield no schema and a warning, never an error.
//
// A Translator is not safe for concurrent use; the build runs it as a
// single synchronous batch (single-writer registry discipline).
type Translator struct {
	reg *Registry
	log *slog.Logger

	warnings []string
}

// NewTranslator returns a translator writing hoisted components into reg.
// logger may be nil.
func NewTranslator(reg *Registry, logger *slog.Logger) *Translator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Translator{reg: reg, log: logger}
}

// Registry returns the component registry the translator hoists into.
func (tr *Translator) Registry() *Registry { return tr.reg }

// Warnings returns accumulated skip warnings, in emission order.
func (tr *Translator) Warnings() []string { return tr.warnings }

// Translate converts a type expression into a schema node. The second
// return is false when the expression has no schema representation;
// callers must treat that as "skip this field or parameter", not as an
// error.
func (tr *Translator) Translate(t *TypeExpr) (*SchemaNode, bool) {
	if t == nil {
		return nil, false
	}

	switch t.Kind {
	case TypeString:
		if t.Name != "" {
			return tr.hoist(t)
		}
		return &SchemaNode{Kind: SchemaString, Format: t.Format}, true

	case TypeNumber:
		if t.Name != "" {
			return tr.hoist(t)
		}
		return &SchemaNode{Kind: SchemaNumber, Int: t.Int}, true

	case TypeBoolean:
		return &SchemaNode{Kind: SchemaBoolean}, true

	case TypeLiteral:
		return &SchemaNode{Kind: SchemaLiteral, Literal: t.Literal}, true

	case TypeArray:
		// An untranslatable element poisons the whole array.
		items, ok := tr.Translate(t.Elem)
		if !ok {
			tr.warnf("array element type has no schema; skipping array")
			return nil, false
		}
		return &SchemaNode{Kind: SchemaArray, Items: items}, true

	case TypeObject:
		if t.Name != "" {
			return tr.hoist(t)
		}
		return tr.translateObjectBody(t), true

	case TypeUnion:
		return tr.translateUnion(t)

	case TypeNull, TypeUndefined:
		// A bare null/undefined carries no payload schema.
		return nil, false

	case TypeCtx:
		return nil, false

	default:
		tr.warnf("unsupported type shape %q; skipping", t.Kind)
		return nil, false
	}
}

// translateUnion partitions members into null, undefined, and real
// members, translates the real members, and wraps the result.
//
// Wrapping order is a correctness invariant: a null member wraps the
// result in nullable first, and an undefined member wraps in optional
// outside of that, so T | null | undefined always resolves to
// optional(nullable(T)). Clients test for "absent" before "null".
func (tr *Translator) translateUnion(t *TypeExpr) (*SchemaNode, bool) {
	var (
		hasNull      bool
		hasUndefined bool
		real         []*TypeExpr
	)
	for _, m := range t.Members {
		switch m.Kind {
		case TypeNull:
			hasNull = true
		case TypeUndefined:
			hasUndefined = true
		default:
			real = append(real, m)
		}
	}

	var node *SchemaNode
	switch len(real) {
	case 0:
		// Nothing to carry on the wire; the parameter or field drops.
		return nil, false
	case 1:
		n, ok := tr.Translate(real[0])
		if !ok {
			return nil, false
		}
		node = n
	default:
		anyOf := make([]*SchemaNode, 0, len(real))
		for _, m := range real {
			n, ok := tr.Translate(m)
			if !ok {
				tr.warnf("union member has no schema; dropping member")
				continue
			}
			anyOf = append(anyOf, n)
		}
		switch len(anyOf) {
		case 0:
			return nil, false
		case 1:
			node = anyOf[0]
		default:
			node = &SchemaNode{Kind: SchemaUnion, AnyOf: anyOf}
		}
	}

	if hasNull {
		node = &SchemaNode{Kind: SchemaNullable, Inner: node}
	}
	if hasUndefined {
		node = &SchemaNode{Kind: SchemaOptional, Inner: node}
	}
	return node, true
}

// translateObjectBody converts an object's members. Fields whose type
// has no schema are skipped with a warning. Objects are strict by
// default: additional properties are disallowed.
func (tr *Translator) translateObjectBody(t *TypeExpr) *SchemaNode {
	node := &SchemaNode{Kind: SchemaObject, Strict: true}
	for _, f := range t.Fields {
		fs, ok := tr.Translate(f.Type)
		if !ok {
			tr.warnf("field %q has no schema; skipping field", f.Name)
			continue
		}
		if f.Optional && fs.Kind != SchemaOptional {
			fs = &SchemaNode{Kind: SchemaOptional, Inner: fs}
		}
		node.Properties = append(node.Properties, SchemaProperty{Name: f.Name, Schema: fs})
		if _, optional, _ := fs.Unwrap(); !optional {
			node.Required = append(node.Required, f.Name)
		}
	}
	return node
}

// hoist promotes a declared type to a shared component and returns a
// reference to it. The name is reserved before recursing into the body,
// so a second visit during that recursion returns the reservation
// instead of recursing again. Recursive type graphs terminate because
// the short-circuit fires on the reservation, not the completed body.
func (tr *Translator) hoist(t *TypeExpr) (*SchemaNode, bool) {
	comp, existed := tr.reg.Reserve(t.Name)
	if existed {
		return &SchemaNode{Kind: SchemaRef, Ref: comp}, true
	}

	var body *SchemaNode
	switch t.Kind {
	case TypeObject:
		body = tr.translateObjectBody(t)
	case TypeString:
		body = &SchemaNode{Kind: SchemaString, Format: t.Format}
	case TypeNumber:
		body = &SchemaNode{Kind: SchemaNumber, Int: t.Int}
	default:
		body = &SchemaNode{Kind: SchemaObject, Strict: true}
	}
	tr.reg.Fill(comp, body)

	return &SchemaNode{Kind: SchemaRef, Ref: comp}, true
}

func (tr *Translator) warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	tr.warnings = append(tr.warnings, msg)
	tr.log.Warn(msg)
}
