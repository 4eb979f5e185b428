package scan

import (
	"go/types"
	"reflect"
	"strings"

	"github.com/celsowm/adorn-api/api/contract"
)

// lowerer converts go/types type objects into portable type
// expressions. Named types are memoized so recursive type graphs
// terminate: the node is registered before its fields are filled.
type lowerer struct {
	named map[*types.TypeName]*contract.TypeExpr
}

func newLowerer() *lowerer {
	return &lowerer{named: make(map[*types.TypeName]*contract.TypeExpr)}
}

// Well-known named types that lower to refined scalars instead of
// structural objects.
const (
	uuidPkgPath     = "github.com/google/uuid"
	timePkgPath     = "time"
	contractPkgPath = "github.com/celsowm/adorn-api/api/contract"
)

// lower converts a Go type into a type expression. Pointers become
// nullable unions; everything the wire model cannot express lowers to
// an unsupported node carrying the Go type string for diagnostics.
func (l *lowerer) lower(t types.Type) *contract.TypeExpr {
	switch tt := t.(type) {
	case *types.Pointer:
		return contract.NullableExpr(l.lower(tt.Elem()))

	case *types.Named:
		return l.lowerNamed(tt)

	case *types.Alias:
		return l.lower(types.Unalias(tt))

	case *types.Basic:
		return lowerBasic(tt)

	case *types.Slice:
		if basic, ok := tt.Elem().(*types.Basic); ok && basic.Kind() == types.Byte {
			return &contract.TypeExpr{Kind: contract.TypeString, Format: "byte"}
		}
		return contract.ArrayOf(l.lower(tt.Elem()))

	case *types.Array:
		return contract.ArrayOf(l.lower(tt.Elem()))

	case *types.Struct:
		expr := &contract.TypeExpr{Kind: contract.TypeObject}
		expr.Fields = l.lowerFields(tt)
		return expr

	default:
		return &contract.TypeExpr{Kind: contract.TypeUnsupported, Name: t.String()}
	}
}

func (l *lowerer) lowerNamed(named *types.Named) *contract.TypeExpr {
	obj := named.Obj()
	if obj.Pkg() != nil {
		switch {
		case obj.Pkg().Path() == uuidPkgPath && obj.Name() == "UUID":
			return contract.UUIDExpr
		case obj.Pkg().Path() == timePkgPath && obj.Name() == "Time":
			return contract.TimeExpr
		case obj.Pkg().Path() == contractPkgPath && obj.Name() == "Ctx":
			return contract.CtxExpr
		}
	}

	if expr, ok := l.named[obj]; ok {
		return expr
	}

	under := named.Underlying()
	st, isStruct := under.(*types.Struct)
	if !isStruct {
		// Named scalars (type UserID string) lower to their underlying
		// shape; the declared name is not worth a component.
		return l.lower(under)
	}

	expr := &contract.TypeExpr{Kind: contract.TypeObject, Name: qualifiedName(obj)}
	l.named[obj] = expr
	expr.Fields = l.lowerFields(st)
	return expr
}

// lowerFields converts struct fields into object members following
// encoding/json conventions: unexported and json:"-" fields are
// dropped, omitempty marks a field absent-allowed, and anonymous
// embedded structs flatten into the parent.
func (l *lowerer) lowerFields(st *types.Struct) []contract.TypeField {
	var out []contract.TypeField
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		if !f.Exported() {
			continue
		}

		name, omitempty, skip := parseJSONTag(fieldTag(st, i))
		if skip {
			continue
		}

		if f.Anonymous() && name == "" {
			embedded := f.Type()
			if ptr, ok := embedded.(*types.Pointer); ok {
				embedded = ptr.Elem()
			}
			if est, ok := embedded.Underlying().(*types.Struct); ok {
				out = append(out, l.lowerFields(est)...)
				continue
			}
		}
		if name == "" {
			name = f.Name()
		}

		ft := l.lower(f.Type())
		if omitempty {
			ft = contract.OptionalExpr(ft)
		}
		out = append(out, contract.TypeField{
			Name:     name,
			Type:     ft,
			Optional: omitempty,
		})
	}
	return out
}

func lowerBasic(b *types.Basic) *contract.TypeExpr {
	switch b.Kind() {
	case types.String:
		return contract.StringExpr
	case types.Bool:
		return contract.BoolExpr
	case types.Int, types.Int8, types.Int16, types.Int32, types.Int64,
		types.Uint, types.Uint8, types.Uint16, types.Uint32, types.Uint64:
		return contract.IntExpr
	case types.Float32, types.Float64:
		return contract.NumberExpr
	default:
		return &contract.TypeExpr{Kind: contract.TypeUnsupported, Name: b.String()}
	}
}

// qualifiedName is the component source name for a declared type:
// package name dot type name.
func qualifiedName(obj *types.TypeName) string {
	if obj.Pkg() == nil {
		return obj.Name()
	}
	return obj.Pkg().Name() + "." + obj.Name()
}

func fieldTag(st *types.Struct, i int) string {
	return st.Tag(i)
}

// parseJSONTag reads the json key of a struct tag. skip is true for
// json:"-" fields.
func parseJSONTag(tag string) (name string, omitempty, skip bool) {
	value := reflect.StructTag(tag).Get("json")
	if value == "" {
		return "", false, false
	}
	parts := strings.Split(value, ",")
	name = parts[0]
	if name == "-" && len(parts) == 1 {
		return "", false, true
	}
	if name == "-" {
		name = ""
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitempty = true
		}
	}
	return name, omitempty, false
}
