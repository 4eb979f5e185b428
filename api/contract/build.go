package contract

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"
)

// SourceController is a controller as extracted by the scanner: its
// identifier, base path, and decorated operations.
type SourceController struct {
	ControllerID string
	BasePath     string
	Ops          []SourceOperation
}

// BuildError is a fatal manifest-construction failure. No partial
// manifest is ever produced alongside one.
type BuildError struct {
	Code    string
	Message string
}

func (e *BuildError) Error() string { return e.Message }

// BuildOptions configure manifest construction.
type BuildOptions struct {
	// ValidationMode is recorded in the manifest: "none",
	// "jsonschema-runtime", or "precompiled".
	ValidationMode string
	// SchemaFile is the relative path of the paired OpenAPI document.
	SchemaFile string
	// ValidatorsFile is the relative path of the validators artifact,
	// empty when validation is off.
	ValidatorsFile string
	Logger         *slog.Logger
}

// BuildManifest aggregates scanned controllers into a manifest,
// hoisting all referenced schemas into reg. Duplicate operationIds and
// duplicate (method, fullPath) pairs are fatal.
func BuildManifest(controllers []SourceController, reg *Registry, opts BuildOptions) (*Manifest, error) {
	if opts.ValidationMode == "" {
		opts.ValidationMode = "none"
	}
	if opts.SchemaFile == "" {
		opts.SchemaFile = "./openapi.json"
	}
	tr := NewTranslator(reg, opts.Logger)

	m := &Manifest{
		ManifestVersion: ManifestVersion,
		GeneratedAt:     time.Now().UTC(),
		Generator: ManifestGenerator{
			Name:    GeneratorName,
			Version: GeneratorVersion,
			Go:      runtime.Version(),
		},
		Schemas: ManifestSchemas{
			Kind:                     "openapi-3.1",
			File:                     opts.SchemaFile,
			ComponentsSchemasPointer: "/components/schemas",
		},
		Validation: ManifestValidation{Mode: opts.ValidationMode},
	}
	if opts.ValidatorsFile != "" {
		f := opts.ValidatorsFile
		m.Validation.PrecompiledModule = &f
	}

	seenOps := make(map[string]string)    // operationId -> "METHOD path"
	seenRoutes := make(map[string]string) // "METHOD path" -> operationId

	for _, sc := range controllers {
		mc := ManifestController{
			ControllerID: sc.ControllerID,
			BasePath:     normalizePath(sc.BasePath),
		}
		for _, op := range sc.Ops {
			mop, err := buildOperation(sc, op, tr)
			if err != nil {
				return nil, err
			}

			if prev, dup := seenOps[mop.OperationID]; dup {
				return nil, &BuildError{
					Code: "duplicate_operation_id",
					Message: fmt.Sprintf("duplicate operationId %q: %s and %s %s",
						mop.OperationID, prev, mop.HTTP.Method, mop.HTTP.Path),
				}
			}
			seenOps[mop.OperationID] = mop.HTTP.Method + " " + mop.HTTP.Path

			routeKey := mop.HTTP.Method + " " + mop.HTTP.Path
			if prev, dup := seenRoutes[routeKey]; dup {
				return nil, &BuildError{
					Code: "duplicate_route",
					Message: fmt.Sprintf("duplicate route %s declared by operations %q and %q",
						routeKey, prev, mop.OperationID),
				}
			}
			seenRoutes[routeKey] = mop.OperationID

			mc.Operations = append(mc.Operations, mop)
		}
		m.Controllers = append(m.Controllers, mc)
	}

	return m, nil
}

func buildOperation(sc SourceController, op SourceOperation, tr *Translator) (ManifestOperation, error) {
	opID := op.OperationID
	if opID == "" {
		opID = DeriveOperationID(sc.ControllerID, op.Method)
	}

	mop := ManifestOperation{
		OperationID: opID,
		HTTP: ManifestHTTP{
			Method: op.HTTPMethod,
			Path:   JoinPath(sc.BasePath, op.Path),
		},
		Handler:    ManifestHandler{MethodName: op.Method},
		Auth:       op.Auth,
		Pagination: false,
	}

	bindings := InferBindings(op)
	for _, b := range bindings {
		p := op.Params[b.Index]
		switch b.Kind {
		case BindPath:
			mop.Args.Path = append(mop.Args.Path, ManifestArg{
				Name:       b.Name,
				Index:      b.Index,
				Required:   true,
				SchemaType: scalarSchemaType(b.Scalar),
			})
		case BindQueryScalar:
			mop.Args.Query = append(mop.Args.Query, ManifestArg{
				Name:       b.Name,
				Index:      b.Index,
				Required:   paramRequired(p),
				SchemaType: scalarSchemaType(b.Scalar),
			})
		case BindQuery:
			mop.Args.Query = append(mop.Args.Query, spreadQueryObject(p, b, tr)...)
		case BindHeader:
			mop.Args.Headers = append(mop.Args.Headers, ManifestArg{
				Name:       b.Name,
				Index:      b.Index,
				Required:   paramRequired(p),
				SchemaType: scalarSchemaType(b.Scalar),
			})
		case BindCookie:
			mop.Args.Cookies = append(mop.Args.Cookies, ManifestArg{
				Name:       b.Name,
				Index:      b.Index,
				Required:   paramRequired(p),
				SchemaType: scalarSchemaType(b.Scalar),
			})
		case BindBody:
			// An untranslatable body leaves SchemaRef empty, which
			// downstream treats as an unvalidated binding.
			ref := hoistedRef(p.Type, upperFirst(opID)+"Body", tr)
			mop.Args.Body = &ManifestBodyArg{
				Index:       b.Index,
				Required:    paramRequired(p),
				ContentType: "application/json",
				SchemaRef:   ref,
			}
		case BindCtx:
			// Context parameters never appear in the manifest; the
			// runtime infers them from the index gaps.
		}
	}

	mop.Responses = buildResponses(op, opID, tr)
	return mop, nil
}

// buildResponses picks the response variants for an operation. Explicit
// reply variants override the defaults entirely; otherwise the success
// status follows the verb table (POST 201, DELETE 204, else 200) with
// any per-operation status override winning.
func buildResponses(op SourceOperation, opID string, tr *Translator) []ManifestResponse {
	if len(op.Replies) > 0 {
		out := make([]ManifestResponse, 0, len(op.Replies))
		for _, r := range op.Replies {
			mr := ManifestResponse{Status: r.Status, IsArray: r.IsArray}
			if r.Type != nil {
				mr.ContentType = "application/json"
				mr.SchemaRef = hoistedRef(r.Type, fmt.Sprintf("%sReply%d", upperFirst(opID), r.Status), tr)
			}
			out = append(out, mr)
		}
		return out
	}

	status := op.SuccessStatus
	if status == 0 {
		status = DefaultSuccessStatus(op.HTTPMethod)
	}

	resp := ManifestResponse{Status: status}
	if op.Result != nil && status != 204 {
		elem, isArray := arrayElem(op.Result)
		resp.ContentType = "application/json"
		if isArray {
			resp.IsArray = true
			resp.SchemaRef = hoistedRef(elem, upperFirst(opID)+"Item", tr)
		} else {
			resp.SchemaRef = hoistedRef(op.Result, upperFirst(opID)+"Response", tr)
		}
	}
	return []ManifestResponse{resp}
}

// DefaultSuccessStatus is the single verb→status policy used by both
// the builder and the adapter: POST creates (201), DELETE empties
// (204), everything else succeeds with content (200).
func DefaultSuccessStatus(method string) int {
	switch method {
	case "POST":
		return 201
	case "DELETE":
		return 204
	default:
		return 200
	}
}

// DeriveOperationID derives the operation id from a controller id and
// handler method name: lowerCamel controller + UpperCamel method.
func DeriveOperationID(controllerID, methodName string) string {
	return lowerFirst(controllerID) + upperFirst(methodName)
}

// JoinPath combines a base path and an operation path with slash
// normalization: no double slashes, no trailing slash except root.
func JoinPath(base, path string) string {
	joined := normalizePath(base) + normalizePath(path)
	return normalizePath(joined)
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "/" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return strings.TrimSuffix(p, "/")
}

// spreadQueryObject expands a query-object parameter into one manifest
// entry per translatable property. Untranslatable properties are
// skipped by the translator with a warning.
func spreadQueryObject(p RawParam, b ParamBinding, tr *Translator) []ManifestArg {
	node, ok := tr.Translate(p.Type)
	if !ok {
		return nil
	}
	obj := resolveObject(node, tr.Registry())
	if obj == nil {
		return nil
	}

	objOptional := p.Optional
	if _, optional, _ := node.Unwrap(); optional {
		objOptional = true
	}

	var out []ManifestArg
	for _, prop := range obj.Properties {
		inner, optional, _ := prop.Schema.Unwrap()
		arg := ManifestArg{
			Name:     prop.Name,
			Index:    b.Index,
			Required: !optional && !objOptional,
			Property: prop.Name,
		}
		if inner != nil && inner.Kind == SchemaRef {
			arg.SchemaRef = "#/components/schemas/" + inner.Ref
			arg.SchemaType = inner.ScalarType(tr.Registry())
		} else {
			arg.SchemaType = prop.Schema.ScalarType(tr.Registry())
		}
		if arg.SchemaType == "" && arg.SchemaRef == "" {
			arg.SchemaType = "string"
		}
		out = append(out, arg)
	}
	return out
}

// resolveObject follows wrappers and refs down to an object node.
func resolveObject(node *SchemaNode, reg *Registry) *SchemaNode {
	inner, _, _ := node.Unwrap()
	for inner != nil && inner.Kind == SchemaRef {
		resolved, ok := reg.Resolve(inner.Ref)
		if !ok {
			return nil
		}
		inner, _, _ = resolved.Unwrap()
	}
	if inner == nil || inner.Kind != SchemaObject {
		return nil
	}
	return inner
}

// hoistedRef translates a type and guarantees the result is a
// components reference, hoisting anonymous schemas under fallbackName.
// A nullable wrapper is part of the contract (the handler type admits
// JSON null), so a nullable ref is hoisted as a wrapper component
// rather than collapsed to the bare ref. Returns "" when the type has
// no schema.
func hoistedRef(t *TypeExpr, fallbackName string, tr *Translator) string {
	node, ok := tr.Translate(t)
	if !ok {
		return ""
	}
	inner, _, nullable := node.Unwrap()
	if inner.Kind == SchemaRef && !nullable {
		return "#/components/schemas/" + inner.Ref
	}
	name := tr.Registry().Add(fallbackName, node)
	return "#/components/schemas/" + name
}

// arrayElem unwraps a result type to its array element, if any.
func arrayElem(t *TypeExpr) (*TypeExpr, bool) {
	real := t.realMember()
	if real != nil && real.Kind == TypeArray {
		return real.Elem, true
	}
	return nil, false
}

// paramRequired reports whether a non-path parameter is required on the
// wire: optional params and optional-typed params are not.
func paramRequired(p RawParam) bool {
	if p.Optional {
		return false
	}
	if p.Type != nil && p.Type.Kind == TypeUnion {
		for _, m := range p.Type.Members {
			if m.Kind == TypeUndefined {
				return false
			}
		}
	}
	return true
}

func scalarSchemaType(s ScalarHint) string {
	switch s {
	case ScalarInt:
		return "integer"
	case ScalarNumber:
		return "number"
	case ScalarBoolean:
		return "boolean"
	default:
		return "string"
	}
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
