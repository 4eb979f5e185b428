package contract

import (
	"fmt"
	"net/http"
	"sort"
)

// RouteConfigError reports drift between the registered controllers and
// the manifest they are bound against. Binding is all-or-nothing: any
// drift fails the whole bind.
type RouteConfigError struct {
	OperationID string
	Message     string
}

func (e *RouteConfigError) Error() string {
	if e.OperationID == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.OperationID, e.Message)
}

// BoundRoute is one operation joined with its live handler. The
// manifest supplies the wire contract, the registry supplies the
// function value.
type BoundRoute struct {
	OperationID string
	Method      string
	Path        string
	Controller  string
	MethodName  string
	Args        ManifestArgs
	Responses   []ManifestResponse
	Auth        string
	Fn          any
	Middleware  []func(http.Handler) http.Handler
}

// Pattern returns the ServeMux pattern for the route ("GET /users/{id}").
func (r BoundRoute) Pattern() string {
	p := r.Path
	if p == "" {
		p = "/"
	}
	return r.Method + " " + p
}

// SuccessStatus returns the first declared 2xx status, falling back to
// the verb default.
func (r BoundRoute) SuccessStatus() int {
	for _, resp := range r.Responses {
		if resp.Status >= 200 && resp.Status < 300 {
			return resp.Status
		}
	}
	return DefaultSuccessStatus(r.Method)
}

// BindRoutes joins a sealed controller registry against a manifest and
// returns the bound routes, sorted by pattern. Every registered
// operation must have a manifest entry with a matching method and path,
// and every manifest operation must have a registered handler;
// anything else is drift and fails with a RouteConfigError.
func BindRoutes(cr *ControllerRegistry, m *Manifest) ([]BoundRoute, error) {
	cr.Seal()

	bound := make(map[string]bool)
	var routes []BoundRoute

	for _, c := range cr.Controllers() {
		for _, op := range c.Ops {
			opID := op.OperationID
			if opID == "" {
				_, name, err := op.HandlerName()
				if err != nil {
					return nil, &RouteConfigError{
						Message: fmt.Sprintf("controller %s: cannot resolve handler for %s %s: %v",
							c.Name, op.Method, op.Path, err),
					}
				}
				opID = DeriveOperationID(c.Name, name)
			}

			mop, ok := m.FindOperation(opID)
			if !ok {
				return nil, &RouteConfigError{
					OperationID: opID,
					Message:     "operation is registered but missing from the manifest; run 'adorn build'",
				}
			}
			if mop.HTTP.Method != op.Method {
				return nil, &RouteConfigError{
					OperationID: opID,
					Message: fmt.Sprintf("http method drifted: manifest says %s, code says %s; run 'adorn build'",
						mop.HTTP.Method, op.Method),
				}
			}
			wantPath := JoinPath(c.BasePath, op.Path)
			if mop.HTTP.Path != wantPath {
				return nil, &RouteConfigError{
					OperationID: opID,
					Message: fmt.Sprintf("route path drifted: manifest says %q, code says %q; run 'adorn build'",
						mop.HTTP.Path, wantPath),
				}
			}

			routes = append(routes, BoundRoute{
				OperationID: opID,
				Method:      mop.HTTP.Method,
				Path:        mop.HTTP.Path,
				Controller:  c.Name,
				MethodName:  mop.Handler.MethodName,
				Args:        mop.Args,
				Responses:   mop.Responses,
				Auth:        mop.Auth,
				Fn:          op.Fn,
				Middleware:  op.Use,
			})
			bound[opID] = true
		}
	}

	for _, mop := range m.Operations() {
		if !bound[mop.OperationID] {
			return nil, &RouteConfigError{
				OperationID: mop.OperationID,
				Message:     "manifest operation has no registered handler; run 'adorn build'",
			}
		}
	}

	sort.Slice(routes, func(i, j int) bool { return routes[i].Pattern() < routes[j].Pattern() })
	return routes, nil
}
