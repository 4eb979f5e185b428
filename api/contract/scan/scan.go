// Package scan extracts controller descriptors from Go source. It
// loads packages with full type information, finds contract.Controller
// composite literals, and lowers each registered handler's signature
// into the portable operation form the manifest builder consumes.
//
// Scanning is static: the target package is never executed. Anything
// the scanner cannot understand becomes a warning and the offending
// operation is skipped; a scan only fails when the packages themselves
// do not load.
package scan

import (
	"fmt"
	"go/ast"
	"go/constant"
	"go/types"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/celsowm/adorn-api/api/contract"
)

// Config configures a scan.
type Config struct {
	// Dir is the module root to scan from.
	Dir string
	// Patterns are package patterns; "./..." when empty.
	Patterns []string
	Logger   *slog.Logger
}

// Result is the outcome of one scan.
type Result struct {
	Controllers []contract.SourceController
	// Inputs are the source files the scan read, for the build cache.
	Inputs   []string
	Warnings []string
}

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo |
	packages.NeedDeps

// Scan loads the configured packages and extracts all controller
// descriptors found in them.
func Scan(cfg Config) (*Result, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	pkgs, err := packages.Load(&packages.Config{Mode: loadMode, Dir: cfg.Dir}, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}
	var loadErrs []string
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			loadErrs = append(loadErrs, e.Error())
		}
	}
	if len(loadErrs) > 0 {
		return nil, fmt.Errorf("packages did not load cleanly:\n  %s", strings.Join(loadErrs, "\n  "))
	}

	s := &scanner{logger: cfg.Logger, lower: newLowerer()}
	inputs := make(map[string]bool)

	for _, pkg := range pkgs {
		for _, f := range pkg.GoFiles {
			if skipFile(f) {
				continue
			}
			inputs[f] = true
		}
		for i, file := range pkg.Syntax {
			if skipFile(syntaxFilename(pkg, i)) {
				continue
			}
			s.scanFile(pkg, file)
		}
	}

	res := &Result{Controllers: s.controllers, Warnings: s.warnings}
	for f := range inputs {
		res.Inputs = append(res.Inputs, f)
	}
	sort.Strings(res.Inputs)
	sort.Slice(res.Controllers, func(i, j int) bool {
		return res.Controllers[i].ControllerID < res.Controllers[j].ControllerID
	})
	return res, nil
}

// syntaxFilename returns the source path behind the i-th syntax tree.
// Syntax trees align with CompiledGoFiles, which can differ from
// GoFiles in both order and content when generated files are involved.
func syntaxFilename(pkg *packages.Package, i int) string {
	if i < len(pkg.CompiledGoFiles) {
		return pkg.CompiledGoFiles[i]
	}
	return ""
}

func skipFile(path string) bool {
	return strings.Contains(path, "/vendor/") ||
		strings.Contains(path, "zz_generated") ||
		strings.HasSuffix(path, "_test.go")
}

type scanner struct {
	logger      *slog.Logger
	lower       *lowerer
	controllers []contract.SourceController
	warnings    []string
}

func (s *scanner) warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.warnings = append(s.warnings, msg)
	s.logger.Warn(msg)
}

func (s *scanner) scanFile(pkg *packages.Package, file *ast.File) {
	ast.Inspect(file, func(n ast.Node) bool {
		lit, ok := n.(*ast.CompositeLit)
		if !ok {
			return true
		}
		if !isContractType(pkg.TypesInfo.TypeOf(lit), "Controller") {
			return true
		}
		if c, ok := s.extractController(pkg, lit); ok {
			s.controllers = append(s.controllers, c)
		}
		return false
	})
}

func (s *scanner) extractController(pkg *packages.Package, lit *ast.CompositeLit) (contract.SourceController, bool) {
	var c contract.SourceController
	for _, elt := range lit.Elts {
		key, value, ok := keyed(elt)
		if !ok {
			continue
		}
		switch key {
		case "Name":
			c.ControllerID, _ = stringValue(pkg, value)
		case "BasePath":
			c.BasePath, _ = stringValue(pkg, value)
		case "Ops":
			opsLit, ok := value.(*ast.CompositeLit)
			if !ok {
				s.warnf("%s: Ops is not a literal slice; controller skipped", pkg.Fset.Position(value.Pos()))
				return contract.SourceController{}, false
			}
			for _, opElt := range opsLit.Elts {
				opLit, ok := opElt.(*ast.CompositeLit)
				if !ok {
					s.warnf("%s: op is not a literal; skipped", pkg.Fset.Position(opElt.Pos()))
					continue
				}
				if op, ok := s.extractOp(pkg, opLit); ok {
					c.Ops = append(c.Ops, op)
				}
			}
		}
	}
	if c.ControllerID == "" {
		s.warnf("%s: controller has no literal Name; skipped", pkg.Fset.Position(lit.Pos()))
		return contract.SourceController{}, false
	}
	for i := range c.Ops {
		c.Ops[i].Controller = c.ControllerID
	}
	return c, true
}

func (s *scanner) extractOp(pkg *packages.Package, lit *ast.CompositeLit) (contract.SourceOperation, bool) {
	var op contract.SourceOperation
	hints := make(map[string]string)
	var fnExpr ast.Expr

	for _, elt := range lit.Elts {
		key, value, ok := keyed(elt)
		if !ok {
			continue
		}
		switch key {
		case "Method":
			m, _ := stringValue(pkg, value)
			op.HTTPMethod = strings.ToUpper(strings.TrimSpace(m))
		case "Path":
			op.Path, _ = stringValue(pkg, value)
		case "Fn":
			fnExpr = value
		case "OperationID":
			op.OperationID, _ = stringValue(pkg, value)
		case "Status":
			op.SuccessStatus, _ = intValue(pkg, value)
		case "Auth":
			op.Auth, _ = stringValue(pkg, value)
		case "Hints":
			s.extractHints(pkg, value, hints)
		case "Replies":
			op.Replies = s.extractReplies(pkg, value)
		}
	}

	if fnExpr == nil {
		s.warnf("%s: op has no Fn; skipped", pkg.Fset.Position(lit.Pos()))
		return contract.SourceOperation{}, false
	}
	fn := resolveFunc(pkg, fnExpr)
	if fn == nil {
		s.warnf("%s: op Fn is not a resolvable function; skipped", pkg.Fset.Position(fnExpr.Pos()))
		return contract.SourceOperation{}, false
	}
	op.Method = fn.Name()

	sig, ok := fn.Type().(*types.Signature)
	if !ok {
		s.warnf("%s: handler %s has no signature; skipped", pkg.Fset.Position(fnExpr.Pos()), fn.Name())
		return contract.SourceOperation{}, false
	}
	op.Params = s.lowerParams(sig, hints)
	op.Result = s.lowerResult(sig)
	return op, true
}

// lowerParams converts the handler's value parameters into raw
// parameters, attaching any explicit hints by name.
func (s *scanner) lowerParams(sig *types.Signature, hints map[string]string) []contract.RawParam {
	tuple := sig.Params()
	out := make([]contract.RawParam, 0, tuple.Len())
	for i := 0; i < tuple.Len(); i++ {
		v := tuple.At(i)
		p := contract.RawParam{
			Name: v.Name(),
			Type: s.lower.lower(v.Type()),
		}
		applyHint(&p, hints[v.Name()])
		if p.Type != nil && p.Type.Kind == contract.TypeUnion {
			for _, m := range p.Type.Members {
				if m.Kind == contract.TypeUndefined {
					p.Optional = true
				}
			}
		}
		out = append(out, p)
	}
	return out
}

// lowerResult picks the handler's payload result: the first non-error
// result, or nil for error-only handlers.
func (s *scanner) lowerResult(sig *types.Signature) *contract.TypeExpr {
	results := sig.Results()
	for i := 0; i < results.Len(); i++ {
		t := results.At(i).Type()
		if isErrorType(t) {
			continue
		}
		return s.lower.lower(t)
	}
	return nil
}

func (s *scanner) extractHints(pkg *packages.Package, expr ast.Expr, out map[string]string) {
	lit, ok := expr.(*ast.CompositeLit)
	if !ok {
		s.warnf("%s: Hints is not a literal map; ignored", pkg.Fset.Position(expr.Pos()))
		return
	}
	for _, elt := range lit.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			continue
		}
		k, okK := stringValue(pkg, kv.Key)
		v, okV := stringValue(pkg, kv.Value)
		if okK && okV {
			out[k] = v
		}
	}
}

func (s *scanner) extractReplies(pkg *packages.Package, expr ast.Expr) []contract.ReplyVariant {
	lit, ok := expr.(*ast.CompositeLit)
	if !ok {
		s.warnf("%s: Replies is not a literal slice; ignored", pkg.Fset.Position(expr.Pos()))
		return nil
	}
	var out []contract.ReplyVariant
	for _, elt := range lit.Elts {
		rl, ok := elt.(*ast.CompositeLit)
		if !ok {
			continue
		}
		var rv contract.ReplyVariant
		for _, f := range rl.Elts {
			key, value, ok := keyed(f)
			if !ok {
				continue
			}
			switch key {
			case "Status":
				rv.Status, _ = intValue(pkg, value)
			case "IsArray":
				rv.IsArray, _ = boolValue(pkg, value)
			case "Body":
				if t := pkg.TypesInfo.TypeOf(value); t != nil {
					rv.Type = s.lower.lower(t)
				}
			}
		}
		if rv.Status != 0 {
			out = append(out, rv)
		}
	}
	return out
}

// applyHint interprets one placement hint string: a role ("body",
// "query", "ctx"), a named role ("header=X-Request-Id",
// "cookie=session"), or a scalar refinement.
func applyHint(p *contract.RawParam, hint string) {
	if hint == "" {
		return
	}
	role, name, _ := strings.Cut(hint, "=")
	switch role {
	case "body":
		p.Hint = contract.HintBody
	case "query":
		p.Hint = contract.HintQuery
	case "ctx":
		p.Hint = contract.HintCtx
	case "header":
		p.Hint = contract.HintHeader
		p.HintName = name
	case "cookie":
		p.Hint = contract.HintCookie
		p.HintName = name
	case "string", "int", "number", "boolean", "uuid":
		p.Scalar = contract.ScalarHint(role)
	}
}

// resolveFunc resolves an op's Fn expression to the function object it
// names. Method values, package-level functions, and locally bound
// method expressions all resolve through the type info.
func resolveFunc(pkg *packages.Package, expr ast.Expr) *types.Func {
	switch e := expr.(type) {
	case *ast.Ident:
		if fn, ok := pkg.TypesInfo.Uses[e].(*types.Func); ok {
			return fn
		}
	case *ast.SelectorExpr:
		if sel, ok := pkg.TypesInfo.Selections[e]; ok {
			if fn, ok := sel.Obj().(*types.Func); ok {
				return fn
			}
		}
		if fn, ok := pkg.TypesInfo.Uses[e.Sel].(*types.Func); ok {
			return fn
		}
	}
	return nil
}

func keyed(elt ast.Expr) (string, ast.Expr, bool) {
	kv, ok := elt.(*ast.KeyValueExpr)
	if !ok {
		return "", nil, false
	}
	ident, ok := kv.Key.(*ast.Ident)
	if !ok {
		return "", nil, false
	}
	return ident.Name, kv.Value, true
}

func stringValue(pkg *packages.Package, expr ast.Expr) (string, bool) {
	tv, ok := pkg.TypesInfo.Types[expr]
	if !ok || tv.Value == nil || tv.Value.Kind() != constant.String {
		return "", false
	}
	return constant.StringVal(tv.Value), true
}

func intValue(pkg *packages.Package, expr ast.Expr) (int, bool) {
	tv, ok := pkg.TypesInfo.Types[expr]
	if !ok || tv.Value == nil || tv.Value.Kind() != constant.Int {
		return 0, false
	}
	n, exact := constant.Int64Val(tv.Value)
	if !exact {
		return 0, false
	}
	return int(n), true
}

func boolValue(pkg *packages.Package, expr ast.Expr) (bool, bool) {
	tv, ok := pkg.TypesInfo.Types[expr]
	if !ok || tv.Value == nil || tv.Value.Kind() != constant.Bool {
		return false, false
	}
	return constant.BoolVal(tv.Value), true
}

func isContractType(t types.Type, name string) bool {
	named, ok := t.(*types.Named)
	if !ok {
		return false
	}
	obj := named.Obj()
	return obj.Pkg() != nil && obj.Pkg().Path() == contractPkgPath && obj.Name() == name
}

func isErrorType(t types.Type) bool {
	named, ok := t.(*types.Named)
	if !ok {
		return false
	}
	return named.Obj().Pkg() == nil && named.Obj().Name() == "error"
}
