package contract

import (
	"regexp"
)

// SourceOperation is one decorated handler as extracted by the scanner.
// Immutable once produced.
type SourceOperation struct {
	Controller string // controller identifier, e.g. "pets"
	Method     string // handler symbol name, e.g. "CreatePet"
	HTTPMethod string // normalized verb: GET, POST, PUT, PATCH, DELETE
	Path       string // path template relative to the controller base path
	Params     []RawParam
	Result     *TypeExpr // nil when the handler returns only error

	// Explicit per-operation overrides from the descriptor.
	OperationID   string
	SuccessStatus int
	Replies       []ReplyVariant
	Auth          string
}

// ReplyVariant is an explicitly declared status/body response.
type ReplyVariant struct {
	Status  int
	Type    *TypeExpr // nil for an empty body
	IsArray bool
}

// RawParam is one handler parameter before placement inference.
type RawParam struct {
	Name     string
	Type     *TypeExpr
	Optional bool
	Hint     ParamHint // explicit placement marker, or HintNone
	HintName string    // header/cookie name for those hints
	Scalar   ScalarHint
}

// ParamHint is an explicit placement marker attached in the descriptor.
type ParamHint int

const (
	HintNone ParamHint = iota
	HintBody
	HintQuery
	HintCtx
	HintHeader
	HintCookie
)

// ScalarHint refines how a scalar parameter is parsed and validated.
type ScalarHint string

const (
	ScalarString  ScalarHint = "string"
	ScalarInt     ScalarHint = "int"
	ScalarNumber  ScalarHint = "number"
	ScalarBoolean ScalarHint = "boolean"
	ScalarUUID    ScalarHint = "uuid"
)

// BindingKind is the wire role assigned to a parameter.
type BindingKind string

const (
	BindPath BindingKind = "path"
	// BindQuery is a whole query object whose properties spread into
	// individual query parameters at schema-build time.
	BindQuery BindingKind = "query"
	// BindQueryScalar is a single query string parameter named after
	// the parameter itself.
	BindQueryScalar BindingKind = "queryScalar"
	BindBody        BindingKind = "body"
	BindCtx         BindingKind = "ctx"
	BindHeader      BindingKind = "header"
	BindCookie      BindingKind = "cookie"
)

// ParamBinding assigns one parameter its wire role. Bindings keep the
// declared parameter order so the runtime can assemble call-site
// arguments by index.
type ParamBinding struct {
	Kind   BindingKind
	Name   string // path token, query/header/cookie name; empty for body and ctx
	Index  int    // position in the declared parameter list
	Scalar ScalarHint
}

var pathTokenRegex = regexp.MustCompile(`\{([^}/]+)\}`)

// PathTokens returns the `{name}` tokens of a path template in order.
func PathTokens(path string) []string {
	matches := pathTokenRegex.FindAllStringSubmatch(path, -1)
	if len(matches) == 0 {
		return nil
	}
	tokens := make([]string, len(matches))
	for i, m := range matches {
		tokens[i] = m[1]
	}
	return tokens
}

// bodyVerbs are the verbs for which a body parameter may be inferred.
var bodyVerbs = map[string]bool{"POST": true, "PUT": true, "PATCH": true}

// InferBindings assigns every parameter of op exactly one wire role.
//
// Placement runs in order: path tokens claim parameters (an exact name
// match always wins over position), explicit hints bind next, then the
// framework context type, then body inference for POST/PUT/PATCH, and
// finally everything left becomes a query object or query scalar. The
// function is total: unresolved edge cases default to queryScalar.
func InferBindings(op SourceOperation) []ParamBinding {
	n := len(op.Params)
	bindings := make([]ParamBinding, n)
	assigned := make([]bool, n)

	// 1. Path tokens. Name matches are claimed first across all tokens
	// so a later token never steals an exact match positionally.
	// Hinted parameters are never claimed here; their hint binds them
	// in the next pass even when their name equals a token.
	tokens := PathTokens(op.Path)
	tokenParam := make([]int, len(tokens))
	for i := range tokenParam {
		tokenParam[i] = -1
	}
	for ti, tok := range tokens {
		for pi, p := range op.Params {
			if !assigned[pi] && p.Hint == HintNone && p.Name == tok {
				tokenParam[ti] = pi
				assigned[pi] = true
				break
			}
		}
	}
	for ti, tok := range tokens {
		pi := tokenParam[ti]
		if pi < 0 {
			// No name match: next unassigned parameter, positionally.
			for ci, p := range op.Params {
				if assigned[ci] || p.Hint != HintNone {
					continue
				}
				pi = ci
				assigned[ci] = true
				break
			}
		}
		if pi < 0 {
			continue // more tokens than parameters
		}
		bindings[pi] = ParamBinding{
			Kind:   BindPath,
			Name:   tok,
			Index:  pi,
			Scalar: scalarFor(op.Params[pi]),
		}
	}

	// 2. Explicit hints win regardless of type shape.
	for pi, p := range op.Params {
		if assigned[pi] || p.Hint == HintNone {
			continue
		}
		b := ParamBinding{Index: pi, Scalar: scalarFor(p)}
		switch p.Hint {
		case HintBody:
			b.Kind = BindBody
		case HintQuery:
			if p.Type.IsObjectLike() {
				b.Kind = BindQuery
			} else {
				b.Kind = BindQueryScalar
				b.Name = p.Name
			}
		case HintCtx:
			b.Kind = BindCtx
		case HintHeader:
			b.Kind = BindHeader
			b.Name = p.HintName
			if b.Name == "" {
				b.Name = p.Name
			}
		case HintCookie:
			b.Kind = BindCookie
			b.Name = p.HintName
			if b.Name == "" {
				b.Name = p.Name
			}
		}
		bindings[pi] = b
		assigned[pi] = true
	}

	// 3. Framework context type.
	for pi, p := range op.Params {
		if !assigned[pi] && p.Type.IsCtx() {
			bindings[pi] = ParamBinding{Kind: BindCtx, Index: pi}
			assigned[pi] = true
		}
	}

	// 4. Body inference: first remaining object-like parameter, at most
	// one per operation, never on GET/DELETE.
	if bodyVerbs[op.HTTPMethod] && !hasBody(bindings, assigned) {
		for pi, p := range op.Params {
			if assigned[pi] || !p.Type.IsObjectLike() {
				continue
			}
			bindings[pi] = ParamBinding{Kind: BindBody, Index: pi}
			assigned[pi] = true
			break
		}
	}

	// 5. Remaining parameters: object-like spreads as a query object,
	// everything else is a single query scalar.
	for pi, p := range op.Params {
		if assigned[pi] {
			continue
		}
		if p.Type.IsObjectLike() {
			bindings[pi] = ParamBinding{Kind: BindQuery, Index: pi}
		} else {
			bindings[pi] = ParamBinding{
				Kind:   BindQueryScalar,
				Name:   p.Name,
				Index:  pi,
				Scalar: scalarFor(p),
			}
		}
		assigned[pi] = true
	}

	return bindings
}

func hasBody(bindings []ParamBinding, assigned []bool) bool {
	for i, b := range bindings {
		if assigned[i] && b.Kind == BindBody {
			return true
		}
	}
	return false
}

// scalarFor picks the scalar hint for a parameter: an explicit hint
// wins, otherwise the hint is derived from the type shape.
func scalarFor(p RawParam) ScalarHint {
	if p.Scalar != "" {
		return p.Scalar
	}
	real := p.Type.realMember()
	if real == nil {
		return ScalarString
	}
	switch real.Kind {
	case TypeNumber:
		if real.Int {
			return ScalarInt
		}
		return ScalarNumber
	case TypeBoolean:
		return ScalarBoolean
	case TypeString:
		if real.Format == "uuid" {
			return ScalarUUID
		}
		return ScalarString
	default:
		return ScalarString
	}
}
