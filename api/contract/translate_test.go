package contract

import (
	"testing"
)

func translate(t *testing.T, expr *TypeExpr) (*SchemaNode, *Translator) {
	t.Helper()
	tr := NewTranslator(NewRegistry(), nil)
	node, ok := tr.Translate(expr)
	if !ok {
		t.Fatalf("expected a schema for %v, got none (warnings: %v)", expr.Kind, tr.Warnings())
	}
	return node, tr
}

func TestTranslateScalars(t *testing.T) {
	tests := []struct {
		name       string
		expr       *TypeExpr
		wantKind   SchemaKind
		wantFormat string
		wantInt    bool
	}{
		{"string", StringExpr, SchemaString, "", false},
		{"uuid", UUIDExpr, SchemaString, "uuid", false},
		{"time", TimeExpr, SchemaString, "date-time", false},
		{"int", IntExpr, SchemaNumber, "", true},
		{"number", NumberExpr, SchemaNumber, "", false},
		{"bool", BoolExpr, SchemaBoolean, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, _ := translate(t, tt.expr)
			if node.Kind != tt.wantKind {
				t.Errorf("expected kind %s, got %s", tt.wantKind, node.Kind)
			}
			if node.Format != tt.wantFormat {
				t.Errorf("expected format %q, got %q", tt.wantFormat, node.Format)
			}
			if node.Int != tt.wantInt {
				t.Errorf("expected Int=%v, got %v", tt.wantInt, node.Int)
			}
		})
	}
}

// A type that allows both null and absence must resolve with the
// optional wrapper outside the nullable wrapper, so clients can test
// for "absent" before "null".
func TestUnionNullUndefinedOrdering(t *testing.T) {
	node, _ := translate(t, Union(StringExpr, NullExpr, UndefinedExpr))

	if node.Kind != SchemaOptional {
		t.Fatalf("expected optional outermost, got %s", node.Kind)
	}
	if node.Inner.Kind != SchemaNullable {
		t.Fatalf("expected nullable inside optional, got %s", node.Inner.Kind)
	}
	if node.Inner.Inner.Kind != SchemaString {
		t.Errorf("expected string innermost, got %s", node.Inner.Inner.Kind)
	}
}

func TestUnionMemberOrderIrrelevant(t *testing.T) {
	// The same members in any order produce the same wrapping.
	orders := [][]*TypeExpr{
		{StringExpr, NullExpr, UndefinedExpr},
		{NullExpr, UndefinedExpr, StringExpr},
		{UndefinedExpr, StringExpr, NullExpr},
	}
	for _, members := range orders {
		node, _ := translate(t, Union(members...))
		if node.Kind != SchemaOptional || node.Inner.Kind != SchemaNullable {
			t.Errorf("members %v: expected optional(nullable(_)), got %s(%s)",
				members, node.Kind, node.Inner.Kind)
		}
	}
}

func TestUnionNullOnlyWrapper(t *testing.T) {
	node, _ := translate(t, Union(IntExpr, NullExpr))
	if node.Kind != SchemaNullable {
		t.Fatalf("expected nullable, got %s", node.Kind)
	}
	if node.Inner.Kind != SchemaNumber || !node.Inner.Int {
		t.Errorf("expected integer inside nullable")
	}
}

func TestUnionUndefinedOnlyWrapper(t *testing.T) {
	node, _ := translate(t, Union(BoolExpr, UndefinedExpr))
	if node.Kind != SchemaOptional {
		t.Fatalf("expected optional, got %s", node.Kind)
	}
	if node.Inner.Kind != SchemaBoolean {
		t.Errorf("expected boolean inside optional")
	}
}

func TestUnionMultipleRealMembers(t *testing.T) {
	node, _ := translate(t, Union(StringExpr, IntExpr, NullExpr))
	if node.Kind != SchemaNullable {
		t.Fatalf("expected nullable, got %s", node.Kind)
	}
	inner := node.Inner
	if inner.Kind != SchemaUnion {
		t.Fatalf("expected union inside nullable, got %s", inner.Kind)
	}
	if len(inner.AnyOf) != 2 {
		t.Errorf("expected 2 union members, got %d", len(inner.AnyOf))
	}
}

func TestUnionWithoutRealMembers(t *testing.T) {
	tr := NewTranslator(NewRegistry(), nil)
	if _, ok := tr.Translate(Union(NullExpr, UndefinedExpr)); ok {
		t.Error("expected no schema for a union of only null and undefined")
	}
}

func TestNamedObjectHoisted(t *testing.T) {
	pet := &TypeExpr{
		Kind: TypeObject,
		Name: "petstore.Pet",
		Fields: []TypeField{
			{Name: "id", Type: UUIDExpr},
			{Name: "tag", Type: OptionalExpr(StringExpr), Optional: true},
		},
	}
	node, tr := translate(t, pet)

	if node.Kind != SchemaRef || node.Ref != "Pet" {
		t.Fatalf("expected ref to Pet, got %s %q", node.Kind, node.Ref)
	}
	body, ok := tr.Registry().Resolve("Pet")
	if !ok {
		t.Fatal("component Pet was not filled")
	}
	if body.Kind != SchemaObject || !body.Strict {
		t.Errorf("expected a strict object body, got %s strict=%v", body.Kind, body.Strict)
	}
	if len(body.Required) != 1 || body.Required[0] != "id" {
		t.Errorf("expected required [id], got %v", body.Required)
	}
	if len(body.Properties) != 2 {
		t.Errorf("expected 2 properties, got %d", len(body.Properties))
	}
}

func TestHoistedTypeDeduplicated(t *testing.T) {
	user := &TypeExpr{
		Kind:   TypeObject,
		Name:   "auth.User",
		Fields: []TypeField{{Name: "name", Type: StringExpr}},
	}
	tr := NewTranslator(NewRegistry(), nil)
	tr.Translate(user)
	tr.Translate(user)

	if got := len(tr.Registry().Names()); got != 1 {
		t.Errorf("expected 1 component after two translations, got %d", got)
	}
}

func TestComponentNameCollision(t *testing.T) {
	a := &TypeExpr{Kind: TypeObject, Name: "a.User", Fields: []TypeField{{Name: "x", Type: StringExpr}}}
	b := &TypeExpr{Kind: TypeObject, Name: "b.User", Fields: []TypeField{{Name: "y", Type: StringExpr}}}

	tr := NewTranslator(NewRegistry(), nil)
	na, _ := tr.Translate(a)
	nb, _ := tr.Translate(b)

	if na.Ref != "User" {
		t.Errorf("first type should take the short name, got %q", na.Ref)
	}
	if nb.Ref == "User" {
		t.Error("second type must not share the first type's component")
	}
	if got := len(tr.Registry().Names()); got != 2 {
		t.Errorf("expected 2 components, got %d", got)
	}
}

func TestRecursiveTypeTerminates(t *testing.T) {
	node := &TypeExpr{Kind: TypeObject, Name: "tree.Node"}
	node.Fields = []TypeField{
		{Name: "value", Type: StringExpr},
		{Name: "next", Type: NullableExpr(node), Optional: true},
	}

	got, tr := translate(t, node)
	if got.Kind != SchemaRef || got.Ref != "Node" {
		t.Fatalf("expected ref to Node, got %s %q", got.Kind, got.Ref)
	}
	body, ok := tr.Registry().Resolve("Node")
	if !ok {
		t.Fatal("component Node was not filled")
	}
	var next *SchemaNode
	for _, p := range body.Properties {
		if p.Name == "next" {
			next = p.Schema
		}
	}
	if next == nil {
		t.Fatal("missing next property")
	}
	inner, _, nullable := next.Unwrap()
	if !nullable {
		t.Error("next should be nullable")
	}
	if inner.Kind != SchemaRef || inner.Ref != "Node" {
		t.Errorf("next should reference Node, got %s %q", inner.Kind, inner.Ref)
	}
}

func TestArrayOfUnsupportedElement(t *testing.T) {
	tr := NewTranslator(NewRegistry(), nil)
	if _, ok := tr.Translate(ArrayOf(CtxExpr)); ok {
		t.Error("expected no schema for an array of context values")
	}
	if len(tr.Warnings()) == 0 {
		t.Error("expected a warning for the skipped array")
	}
}

func TestObjectSkipsUntranslatableField(t *testing.T) {
	obj := ObjectOf(
		TypeField{Name: "ok", Type: StringExpr},
		TypeField{Name: "bad", Type: CtxExpr},
	)
	node, tr := translate(t, obj)
	if len(node.Properties) != 1 || node.Properties[0].Name != "ok" {
		t.Errorf("expected only the translatable field, got %v", node.Properties)
	}
	if len(tr.Warnings()) == 0 {
		t.Error("expected a warning for the skipped field")
	}
}

func TestOptionalFieldNotDoubleWrapped(t *testing.T) {
	obj := ObjectOf(
		TypeField{Name: "tag", Type: OptionalExpr(StringExpr), Optional: true},
	)
	node, _ := translate(t, obj)
	prop := node.Properties[0].Schema
	if prop.Kind != SchemaOptional {
		t.Fatalf("expected optional wrapper, got %s", prop.Kind)
	}
	if prop.Inner.Kind == SchemaOptional {
		t.Error("optional wrapper was applied twice")
	}
}
