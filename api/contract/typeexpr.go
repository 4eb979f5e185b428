// Package contract generates and enforces HTTP API contracts.
//
// The pipeline runs in two halves. At build time the source scanner
// (api/contract/scan) lowers controller descriptors and handler
// signatures into SourceOperation values, the placement inferencer
// assigns every parameter a wire role, the translator converts type
// expressions into schema nodes, and the manifest builder emits a
// versioned manifest plus an OpenAPI document and a compiled validator
// set. At startup the runtime binder reconciles registered controllers
// against the persisted manifest before any route is served.
package contract

// TypeKind discriminates TypeExpr variants.
type TypeKind int

const (
	// TypeString is a string scalar, optionally refined by Format.
	TypeString TypeKind = iota + 1
	// TypeNumber is a numeric scalar; Int marks integer-valued numbers.
	TypeNumber
	// TypeBoolean is a boolean scalar.
	TypeBoolean
	// TypeLiteral is a single literal value (string, number, or bool).
	TypeLiteral
	// TypeArray is a homogeneous list of Elem.
	TypeArray
	// TypeObject is a record with named Fields.
	TypeObject
	// TypeUnion is a set of alternative Members.
	TypeUnion
	// TypeNull is the null member of a union.
	TypeNull
	// TypeUndefined marks an absent-allowed member of a union.
	TypeUndefined
	// TypeCtx is the framework request-context type.
	TypeCtx
	// TypeUnsupported is any shape the translator cannot express.
	TypeUnsupported
)

func (k TypeKind) String() string {
	switch k {
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeBoolean:
		return "boolean"
	case TypeLiteral:
		return "literal"
	case TypeArray:
		return "array"
	case TypeObject:
		return "object"
	case TypeUnion:
		return "union"
	case TypeNull:
		return "null"
	case TypeUndefined:
		return "undefined"
	case TypeCtx:
		return "ctx"
	case TypeUnsupported:
		return "unsupported"
	default:
		return "invalid"
	}
}

// TypeExpr is the scanner's portable view of a type expression. It is
// immutable once produced; the translator never mutates it.
type TypeExpr struct {
	Kind TypeKind

	// Name is the package-qualified name for declared types
	// (e.g. "petstore.CreatePetRequest"). Empty for anonymous shapes.
	Name string

	// Format refines string scalars: "uuid", "date-time", "byte".
	Format string

	// Int marks integer-valued numbers.
	Int bool

	// Literal holds the value for TypeLiteral (string, float64, or bool).
	Literal any

	Elem    *TypeExpr   // TypeArray element
	Fields  []TypeField // TypeObject members, declaration order
	Members []*TypeExpr // TypeUnion alternatives
}

// TypeField is one declared member of an object type.
type TypeField struct {
	Name     string
	Type     *TypeExpr
	Optional bool
}

// Scalar type expression singletons. Shared values are safe because
// TypeExpr is never mutated after construction.
var (
	StringExpr    = &TypeExpr{Kind: TypeString}
	IntExpr       = &TypeExpr{Kind: TypeNumber, Int: true}
	NumberExpr    = &TypeExpr{Kind: TypeNumber}
	BoolExpr      = &TypeExpr{Kind: TypeBoolean}
	NullExpr      = &TypeExpr{Kind: TypeNull}
	UndefinedExpr = &TypeExpr{Kind: TypeUndefined}
	CtxExpr       = &TypeExpr{Kind: TypeCtx}
	UUIDExpr      = &TypeExpr{Kind: TypeString, Format: "uuid"}
	TimeExpr      = &TypeExpr{Kind: TypeString, Format: "date-time"}
)

// Union builds a union of the given members. Nested unions are
// flattened so the translator only ever partitions one level.
func Union(members ...*TypeExpr) *TypeExpr {
	flat := make([]*TypeExpr, 0, len(members))
	for _, m := range members {
		if m == nil {
			continue
		}
		if m.Kind == TypeUnion {
			flat = append(flat, m.Members...)
			continue
		}
		flat = append(flat, m)
	}
	return &TypeExpr{Kind: TypeUnion, Members: flat}
}

// NullableExpr is the frontend lowering for pointer types: T | null.
func NullableExpr(t *TypeExpr) *TypeExpr {
	return Union(t, NullExpr)
}

// OptionalExpr marks a type absent-allowed: T | undefined.
func OptionalExpr(t *TypeExpr) *TypeExpr {
	return Union(t, UndefinedExpr)
}

// ArrayOf builds an array type expression.
func ArrayOf(elem *TypeExpr) *TypeExpr {
	return &TypeExpr{Kind: TypeArray, Elem: elem}
}

// ObjectOf builds an anonymous object type expression.
func ObjectOf(fields ...TypeField) *TypeExpr {
	return &TypeExpr{Kind: TypeObject, Fields: fields}
}

// IsObjectLike reports whether a type expression is an object with
// property members once unions and wrappers are stripped. Arrays and
// scalars are not object-like. The placement inferencer uses this to
// decide body and query-object roles.
func (t *TypeExpr) IsObjectLike() bool {
	real := t.realMember()
	return real != nil && real.Kind == TypeObject && len(real.Fields) > 0
}

// IsScalar reports whether the type reduces to a string, number,
// boolean, or literal once unions and wrappers are stripped.
func (t *TypeExpr) IsScalar() bool {
	real := t.realMember()
	if real == nil {
		return false
	}
	switch real.Kind {
	case TypeString, TypeNumber, TypeBoolean, TypeLiteral:
		return true
	}
	return false
}

// IsCtx reports whether the type is the framework request-context type.
func (t *TypeExpr) IsCtx() bool {
	real := t.realMember()
	return real != nil && real.Kind == TypeCtx
}

// realMember strips union wrappers down to the single "real" member,
// or nil when the union has zero or several real members.
func (t *TypeExpr) realMember() *TypeExpr {
	if t == nil {
		return nil
	}
	if t.Kind != TypeUnion {
		return t
	}
	var real *TypeExpr
	for _, m := range t.Members {
		switch m.Kind {
		case TypeNull, TypeUndefined:
			continue
		}
		if real != nil {
			return nil
		}
		real = m
	}
	if real != nil && real.Kind == TypeUnion {
		return real.realMember()
	}
	return real
}
