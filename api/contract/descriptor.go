package contract

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"runtime"
	"strings"
)

// Ctx is the framework request context handed to handlers that declare
// a parameter of this type. It is the only handler parameter that does
// not come from the wire.
type Ctx struct {
	Request *http.Request
	Writer  http.ResponseWriter
}

// Op declares one operation on a controller. The source scanner reads
// Op literals statically; the runtime binder reads the registered
// values. Fn carries the live handler; its symbol name doubles as the
// handler identity on both sides.
type Op struct {
	Method string // GET, POST, PUT, PATCH, DELETE
	Path   string // path template relative to the controller base path
	Fn     any    // handler function value

	// OperationID overrides the derived controller+method id.
	OperationID string
	// Status overrides the default success status for this operation.
	Status int
	// Auth names the auth scheme required for this route ("bearer").
	Auth string
	// Pagination marks list operations for adapter-level pagination.
	Pagination bool
	// Replies declares explicit response variants. When set they replace
	// the derived success response entirely.
	Replies []Reply
	// Use lists per-route middleware, applied in order.
	Use []func(http.Handler) http.Handler
	// Hints carries explicit parameter placement markers keyed by
	// parameter name: "body", "query", "ctx", "header=X-Name",
	// "cookie=name", or a scalar hint (string|int|number|boolean|uuid).
	Hints map[string]string
}

// Reply declares one explicit response variant: a status code plus a
// body prototype whose type the scanner reads. A nil Body declares an
// empty response.
type Reply struct {
	Status  int
	Body    any
	IsArray bool
}

// Controller describes one controller: a base path plus its operations.
// Registration is explicit; there is no implicit metadata registry.
type Controller struct {
	Name     string
	BasePath string
	Ops      []Op
}

// HandlerName resolves the symbol name of an operation's handler
// function via the runtime function table.
func (o Op) HandlerName() (pkg, name string, err error) {
	if o.Fn == nil {
		return "", "", errors.New("op has nil handler")
	}
	v := reflect.ValueOf(o.Fn)
	if v.Kind() != reflect.Func {
		return "", "", errors.New("op handler is not a function")
	}
	fn := runtime.FuncForPC(v.Pointer())
	if fn == nil {
		return "", "", errors.New("op handler has no function info")
	}
	full := fn.Name()
	lastDot := strings.LastIndex(full, ".")
	if lastDot < 0 {
		return "", full, nil
	}
	pkg = full[:lastDot]
	name = full[lastDot+1:]
	// Method values look like "(*T).Method-fm".
	name = strings.TrimSuffix(name, "-fm")
	if i := strings.LastIndex(name, ")."); i >= 0 {
		name = name[i+2:]
	}
	return pkg, name, nil
}

var allowedVerbs = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true, "DELETE": true,
}

// Validate checks a controller descriptor for structural problems.
func (c Controller) Validate() error {
	if c.Name == "" {
		return errors.New("controller name cannot be empty")
	}
	if c.BasePath != "" && !strings.HasPrefix(c.BasePath, "/") {
		return fmt.Errorf("controller %s: base path must start with /", c.Name)
	}
	for _, op := range c.Ops {
		verb := strings.ToUpper(strings.TrimSpace(op.Method))
		if !allowedVerbs[verb] {
			return fmt.Errorf("controller %s: unsupported method %q", c.Name, op.Method)
		}
		if op.Path != "" && !strings.HasPrefix(op.Path, "/") {
			return fmt.Errorf("controller %s: op path %q must start with /", c.Name, op.Path)
		}
		if op.Fn == nil {
			return fmt.Errorf("controller %s: %s %s has nil handler", c.Name, verb, op.Path)
		}
	}
	return nil
}

// ControllerRegistry records controller registrations. It is
// process-wide state with an explicit init phase: controllers register
// at module load, the binder seals the registry, and it is read-only
// thereafter.
type ControllerRegistry struct {
	controllers []Controller
	sealed      bool
}

// NewControllerRegistry returns an empty controller registry.
func NewControllerRegistry() *ControllerRegistry {
	return &ControllerRegistry{}
}

// Register adds a controller descriptor and returns it for chaining.
// Panics on invalid descriptors and on registration after sealing;
// both indicate programmer error at module load. Verbs are stored in
// their canonical uppercase form, matching what the scanner writes
// into the manifest.
func (r *ControllerRegistry) Register(c Controller) Controller {
	if r.sealed {
		panic("contract: Register called after the registry was sealed")
	}
	if err := c.Validate(); err != nil {
		panic("contract: " + err.Error())
	}
	ops := make([]Op, len(c.Ops))
	copy(ops, c.Ops)
	for i := range ops {
		ops[i].Method = strings.ToUpper(strings.TrimSpace(ops[i].Method))
	}
	c.Ops = ops
	r.controllers = append(r.controllers, c)
	return c
}

// Seal marks the registry read-only. The runtime binder seals before
// binding so late registrations fail loudly instead of being silently
// unreachable.
func (r *ControllerRegistry) Seal() { r.sealed = true }

// Controllers returns a copy of all registered controllers.
func (r *ControllerRegistry) Controllers() []Controller {
	return append([]Controller(nil), r.controllers...)
}
