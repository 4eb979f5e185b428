// Package serve turns bound routes into live HTTP handlers. Each
// handler assembles its call-site arguments from the manifest's wire
// bindings, validates the body when a compiled validator exists, and
// invokes the registered handler function through reflection.
package serve

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/celsowm/adorn-api/api/contract"
)

// Options configure the mux assembly.
type Options struct {
	// Validators is the compiled validator set, or nil to skip
	// validation entirely.
	Validators *contract.ValidatorSet
	// BearerSecret signs and verifies bearer tokens for routes that
	// declare bearer auth. Binding such a route without a secret fails.
	BearerSecret []byte
	Logger       *slog.Logger
}

// NewMux registers every bound route on a fresh ServeMux using the
// method-qualified patterns of Go 1.22.
func NewMux(routes []contract.BoundRoute, opts Options) (*http.ServeMux, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	mux := http.NewServeMux()

	for _, route := range routes {
		inv, err := newInvoker(route, opts)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", route.OperationID, err)
		}

		var h http.Handler = inv
		for i := len(route.Middleware) - 1; i >= 0; i-- {
			h = route.Middleware[i](h)
		}
		if route.Auth == "bearer" {
			if len(opts.BearerSecret) == 0 {
				return nil, fmt.Errorf("route %s declares bearer auth but no secret is configured", route.OperationID)
			}
			h = RequireBearer(opts.BearerSecret)(h)
		}
		mux.Handle(route.Pattern(), h)
	}
	return mux, nil
}

var ctxType = reflect.TypeOf(contract.Ctx{})

// invoker is one route's compiled calling convention: the handler
// value plus its parameter types, resolved once at bind time.
type invoker struct {
	route      contract.BoundRoute
	fn         reflect.Value
	params     []reflect.Type
	validators *contract.ValidatorSet
	logger     *slog.Logger
}

func newInvoker(route contract.BoundRoute, opts Options) (*invoker, error) {
	fn := reflect.ValueOf(route.Fn)
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return nil, errors.New("handler is not a function")
	}
	ft := fn.Type()
	params := make([]reflect.Type, ft.NumIn())
	for i := range params {
		params[i] = ft.In(i)
	}

	maxIndex := -1
	forEachArg(route.Args, func(index int) {
		if index > maxIndex {
			maxIndex = index
		}
	})
	if maxIndex >= len(params) {
		return nil, fmt.Errorf("manifest binds argument %d but the handler takes %d", maxIndex, len(params))
	}

	return &invoker{
		route:      route,
		fn:         fn,
		params:     params,
		validators: opts.Validators,
		logger:     opts.Logger,
	}, nil
}

func forEachArg(args contract.ManifestArgs, f func(index int)) {
	if args.Body != nil {
		f(args.Body.Index)
	}
	for _, a := range args.Path {
		f(a.Index)
	}
	for _, a := range args.Query {
		f(a.Index)
	}
	for _, a := range args.Headers {
		f(a.Index)
	}
	for _, a := range args.Cookies {
		f(a.Index)
	}
}

func (v *invoker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	args, err := v.buildArgs(w, r)
	if err != nil {
		RespondError(w, err)
		return
	}

	results := v.fn.Call(args)
	payload, callErr := splitResults(v.fn.Type(), results)
	if callErr != nil {
		RespondError(w, callErr)
		return
	}

	status := v.route.SuccessStatus()
	if status == http.StatusNoContent {
		RespondNoContent(w)
		return
	}
	v.checkResponse(status, payload)
	RespondJSON(w, status, payload)
}

// buildArgs assembles the handler's argument list from the request.
func (v *invoker) buildArgs(w http.ResponseWriter, r *http.Request) ([]reflect.Value, error) {
	args := make([]reflect.Value, len(v.params))
	filled := make([]bool, len(v.params))
	query := r.URL.Query()

	for _, a := range v.route.Args.Path {
		value := r.PathValue(a.Name)
		if value == "" {
			return nil, &BindError{Source: "path", Field: a.Name, Err: errors.New("missing path variable")}
		}
		val, err := v.scalarArg(value, v.params[a.Index])
		if err != nil {
			return nil, &BindError{Source: "path", Field: a.Name, Err: err}
		}
		args[a.Index], filled[a.Index] = val, true
	}

	// Spread query-object entries share an index; group them so each
	// target struct is built once.
	objectEntries := make(map[int][]contract.ManifestArg)
	for _, a := range v.route.Args.Query {
		if a.Property != "" {
			objectEntries[a.Index] = append(objectEntries[a.Index], a)
			continue
		}
		if !query.Has(a.Name) {
			if a.Required {
				return nil, &BindError{Source: "query", Field: a.Name, Err: errors.New("missing required parameter")}
			}
			continue
		}
		val, err := v.queryArg(query[a.Name], v.params[a.Index])
		if err != nil {
			return nil, &BindError{Source: "query", Field: a.Name, Err: err}
		}
		args[a.Index], filled[a.Index] = val, true
	}
	for index, entries := range objectEntries {
		val, err := v.queryObjectArg(query, entries, v.params[index])
		if err != nil {
			return nil, err
		}
		args[index], filled[index] = val, true
	}

	for _, a := range v.route.Args.Headers {
		value := r.Header.Get(a.Name)
		if value == "" {
			if a.Required {
				return nil, &BindError{Source: "header", Field: a.Name, Err: errors.New("missing required header")}
			}
			continue
		}
		val, err := v.scalarArg(value, v.params[a.Index])
		if err != nil {
			return nil, &BindError{Source: "header", Field: a.Name, Err: err}
		}
		args[a.Index], filled[a.Index] = val, true
	}

	for _, a := range v.route.Args.Cookies {
		cookie, err := r.Cookie(a.Name)
		if err != nil || cookie.Value == "" {
			if a.Required {
				return nil, &BindError{Source: "cookie", Field: a.Name, Err: errors.New("missing required cookie")}
			}
			continue
		}
		val, err := v.scalarArg(cookie.Value, v.params[a.Index])
		if err != nil {
			return nil, &BindError{Source: "cookie", Field: a.Name, Err: err}
		}
		args[a.Index], filled[a.Index] = val, true
	}

	if b := v.route.Args.Body; b != nil {
		val, err := v.bodyArg(r, b, v.params[b.Index])
		if err != nil {
			return nil, err
		}
		if val.IsValid() {
			args[b.Index], filled[b.Index] = val, true
		}
	}

	// Unbound parameters: the framework context gets the live request,
	// anything else stays zero.
	for i, t := range v.params {
		if filled[i] {
			continue
		}
		switch {
		case t == ctxType:
			args[i] = reflect.ValueOf(contract.Ctx{Request: r, Writer: w})
		case t.Kind() == reflect.Ptr && t.Elem() == ctxType:
			args[i] = reflect.ValueOf(&contract.Ctx{Request: r, Writer: w})
		default:
			args[i] = reflect.Zero(t)
		}
	}
	return args, nil
}

// scalarArg converts a single wire string, unwrapping an optional
// pointer target.
func (v *invoker) scalarArg(value string, t reflect.Type) (reflect.Value, error) {
	if t.Kind() == reflect.Ptr {
		elem, err := convertString(value, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil
	}
	return convertString(value, t)
}

// queryArg handles single and multi-value query parameters.
func (v *invoker) queryArg(values []string, t reflect.Type) (reflect.Value, error) {
	if t.Kind() == reflect.Slice {
		return convertStrings(values, t.Elem())
	}
	return v.scalarArg(values[0], t)
}

// queryObjectArg builds a query-object parameter by populating one
// struct field per spread entry.
func (v *invoker) queryObjectArg(query map[string][]string, entries []contract.ManifestArg, t reflect.Type) (reflect.Value, error) {
	structType := t
	pointer := structType.Kind() == reflect.Ptr
	if pointer {
		structType = structType.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return reflect.Value{}, &BindError{Source: "query", Err: fmt.Errorf("cannot bind query object to %s", t)}
	}

	ptr := reflect.New(structType)
	target := ptr.Elem()
	for _, a := range entries {
		values, present := query[a.Name]
		if !present || len(values) == 0 {
			if a.Required {
				return reflect.Value{}, &BindError{Source: "query", Field: a.Name, Err: errors.New("missing required parameter")}
			}
			continue
		}
		idx, ok := fieldByJSONName(structType, a.Property)
		if !ok {
			continue
		}
		val, err := v.queryArg(values, structType.Field(idx).Type)
		if err != nil {
			return reflect.Value{}, &BindError{Source: "query", Field: a.Name, Err: err}
		}
		target.Field(idx).Set(val)
	}
	if pointer {
		return ptr, nil
	}
	return target, nil
}

// bodyArg decodes and validates the JSON body. The generic decode runs
// first so validation sees exactly what came off the wire; the typed
// decode only happens for valid payloads.
func (v *invoker) bodyArg(r *http.Request, b *contract.ManifestBodyArg, t reflect.Type) (reflect.Value, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return reflect.Value{}, &BindError{Source: "body", Err: err}
	}
	if len(data) == 0 {
		if b.Required {
			return reflect.Value{}, &BindError{Source: "body", Err: errors.New("missing required body")}
		}
		return reflect.Value{}, nil
	}

	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return reflect.Value{}, &BindError{Source: "body", Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	if res := v.validators.ValidateBody(v.route.OperationID, decoded); !res.OK {
		return reflect.Value{}, &ValidationError{Fields: res.Errors}
	}

	structType := t
	pointer := structType.Kind() == reflect.Ptr
	if pointer {
		structType = structType.Elem()
	}
	ptr := reflect.New(structType)
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		return reflect.Value{}, &BindError{Source: "body", Err: err}
	}
	if pointer {
		return ptr, nil
	}
	return ptr.Elem(), nil
}

// checkResponse revalidates the outgoing payload when a response
// validator exists. A mismatch is logged, never served as an error:
// the contract drifted, the client still gets the data.
func (v *invoker) checkResponse(status int, payload any) {
	if v.validators == nil || payload == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return
	}
	if res := v.validators.ValidateResponse(v.route.OperationID, status, "application/json", decoded); !res.OK {
		v.logger.Warn("response does not match its declared schema",
			"operation", v.route.OperationID, "status", status, "problems", len(res.Errors))
	}
}

var errorInterface = reflect.TypeOf((*error)(nil)).Elem()

// splitResults separates a handler's return values into payload and
// error by their declared types.
func splitResults(ft reflect.Type, results []reflect.Value) (any, error) {
	var payload any
	var callErr error
	havePayload := false
	for i, res := range results {
		if ft.Out(i).Implements(errorInterface) {
			if err, ok := res.Interface().(error); ok && err != nil {
				callErr = err
			}
			continue
		}
		if !havePayload {
			payload = res.Interface()
			havePayload = true
		}
	}
	return payload, callErr
}

// fieldByJSONName finds a struct field by its json tag name, falling
// back to a case-insensitive field name match.
func fieldByJSONName(t reflect.Type, name string) (int, bool) {
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		tagName, _, _ := strings.Cut(tag, ",")
		if tagName == name {
			return i, true
		}
	}
	for i := 0; i < t.NumField(); i++ {
		if strings.EqualFold(t.Field(i).Name, name) {
			return i, true
		}
	}
	return -1, false
}
