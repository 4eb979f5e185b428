//go:build property

package contract

import (
	"fmt"
	"testing"

	"github.com/celsowm/adorn-api/proptest"
)

func randomParamType(g *proptest.Generator) *TypeExpr {
	return proptest.OneOfFunc(g,
		func(*proptest.Generator) *TypeExpr { return StringExpr },
		func(*proptest.Generator) *TypeExpr { return IntExpr },
		func(*proptest.Generator) *TypeExpr { return BoolExpr },
		func(*proptest.Generator) *TypeExpr { return UUIDExpr },
		func(*proptest.Generator) *TypeExpr { return CtxExpr },
		func(g *proptest.Generator) *TypeExpr {
			return ObjectOf(TypeField{Name: g.IdentifierLower(8), Type: StringExpr})
		},
	)
}

func randomOperation(g *proptest.Generator) SourceOperation {
	verb := proptest.OneOf(g, "GET", "POST", "PUT", "PATCH", "DELETE")

	nTokens := g.IntRange(0, 2)
	path := ""
	for i := 0; i < nTokens; i++ {
		path += fmt.Sprintf("/{%s}", g.IdentifierLower(6)+fmt.Sprintf("%d", i))
	}

	nParams := g.IntRange(0, 5)
	params := make([]RawParam, nParams)
	for i := range params {
		params[i] = RawParam{
			Name: fmt.Sprintf("p%d", i),
			Type: randomParamType(g),
		}
	}
	return SourceOperation{HTTPMethod: verb, Path: path, Params: params}
}

// TestProperty_InferBindingsTotal tests that placement inference assigns
// every parameter exactly one binding, whatever the operation shape.
func TestProperty_InferBindingsTotal(t *testing.T) {
	proptest.QuickCheck(t, "every param gets exactly one binding", func(g *proptest.Generator) bool {
		op := randomOperation(g)
		bindings := InferBindings(op)
		if len(bindings) != len(op.Params) {
			return false
		}
		seen := make(map[int]bool)
		for _, b := range bindings {
			if seen[b.Index] {
				return false
			}
			seen[b.Index] = true
		}
		return true
	})
}

// TestProperty_InferBindingsSingleBody tests that inference never
// produces more than one body binding.
func TestProperty_InferBindingsSingleBody(t *testing.T) {
	proptest.QuickCheck(t, "at most one body binding", func(g *proptest.Generator) bool {
		bodies := 0
		for _, b := range InferBindings(randomOperation(g)) {
			if b.Kind == BindBody {
				bodies++
			}
		}
		return bodies <= 1
	})
}

// TestProperty_InferBindingsNoBodyOnReadVerbs tests that GET and DELETE
// operations never receive an inferred body.
func TestProperty_InferBindingsNoBodyOnReadVerbs(t *testing.T) {
	proptest.QuickCheck(t, "no inferred body on GET or DELETE", func(g *proptest.Generator) bool {
		op := randomOperation(g)
		op.HTTPMethod = proptest.OneOf(g, "GET", "DELETE")
		for _, b := range InferBindings(op) {
			if b.Kind == BindBody {
				return false
			}
		}
		return true
	})
}

// TestProperty_InferBindingsPathBounded tests that the number of path
// bindings never exceeds the number of path tokens.
func TestProperty_InferBindingsPathBounded(t *testing.T) {
	proptest.QuickCheck(t, "path bindings bounded by tokens", func(g *proptest.Generator) bool {
		op := randomOperation(g)
		tokens := len(PathTokens(op.Path))
		paths := 0
		for _, b := range InferBindings(op) {
			if b.Kind == BindPath {
				paths++
			}
		}
		return paths <= tokens
	})
}

// TestProperty_InferBindingsDeterministic tests that inference is a
// pure function of the operation.
func TestProperty_InferBindingsDeterministic(t *testing.T) {
	proptest.QuickCheck(t, "inference is deterministic", func(g *proptest.Generator) bool {
		op := randomOperation(g)
		first := InferBindings(op)
		for i := 0; i < 3; i++ {
			again := InferBindings(op)
			if len(again) != len(first) {
				return false
			}
			for j := range again {
				if again[j] != first[j] {
					return false
				}
			}
		}
		return true
	})
}
