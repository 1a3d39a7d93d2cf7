// Package restbind is the reference REST adapter: it turns dualbind
// REST bindings into gorilla/mux routes. Parameter extraction follows
// the binding's origin declarations; body payloads are validated with
// go-playground/validator before the handler runs.
package restbind

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"runtime/debug"
	"strconv"
	"sync"

	"dualbind"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
)

// Adapter implements dualbind.RESTAdapter on top of a gorilla/mux
// router. Binding happens at bootstrap time; request serving is
// concurrent.
type Adapter struct {
	mu       sync.Mutex
	router   *mux.Router
	routes   map[string]struct{}
	logger   *slog.Logger
	validate *validator.Validate
	decoder  *schema.Decoder
}

// New creates an adapter with an empty router.
func New() *Adapter {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	return &Adapter{
		router:   mux.NewRouter(),
		routes:   make(map[string]struct{}),
		validate: validator.New(),
		decoder:  decoder,
	}
}

// WithLogger sets a custom logger. If not set, slog.Default() is used.
func (a *Adapter) WithLogger(logger *slog.Logger) *Adapter {
	a.logger = logger
	return a
}

func (a *Adapter) log() *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	return slog.Default()
}

// Handler returns the http.Handler serving all bound routes, for use
// with http.ListenAndServe or httptest.
func (a *Adapter) Handler() http.Handler {
	return a.router
}

// BindREST registers one action as a route. Re-binding a verb+path
// pair is a conflict, never an overwrite.
func (a *Adapter) BindREST(b dualbind.RESTBinding) error {
	key := string(b.Verb) + " " + b.Path
	a.mu.Lock()
	if _, dup := a.routes[key]; dup {
		a.mu.Unlock()
		return dualbind.Errorf(dualbind.CodeConflict, "route %s already bound", key)
	}
	a.routes[key] = struct{}{}
	a.mu.Unlock()

	a.router.HandleFunc(b.Path, a.serve(b)).Methods(string(b.Verb))
	return nil
}

// serve builds the request handler for one binding: extract arguments
// per the origin declarations, invoke, envelope the result.
func (a *Adapter) serve(b dualbind.RESTBinding) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				a.log().Error("panic in REST handler",
					slog.String("path", b.Path),
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())))
				writeError(w, dualbind.NewError(dualbind.CodeInternal, "internal server error"), a.log())
			}
		}()

		args, err := a.extract(w, r, b.Extractors)
		if err != nil {
			writeError(w, transformError(err), a.log())
			return
		}

		ctx := dualbind.WithHTTP(r.Context(), w, r)
		res, err := b.Handler(ctx, args)
		if err != nil {
			writeError(w, transformError(err), a.log())
			return
		}
		writeResult(w, res, a.log())
	}
}

// extract resolves every declared parameter from its origin. The body
// is decoded at most once and shared by all body-origin parameters.
func (a *Adapter) extract(w http.ResponseWriter, r *http.Request, extractors []dualbind.Extractor) ([]any, error) {
	args := make([]any, len(extractors))
	var body map[string]json.RawMessage
	bodyRead := false

	for i, e := range extractors {
		switch e.Origin {
		case dualbind.OriginBody:
			if !bodyRead {
				bodyRead = true
				var err error
				body, err = decodeBody(r)
				if err != nil {
					return nil, err
				}
			}
			v, err := a.bodyArg(body, e)
			if err != nil {
				return nil, err
			}
			args[i] = v

		case dualbind.OriginQuery:
			v, err := a.queryArg(r, e)
			if err != nil {
				return nil, err
			}
			args[i] = v

		case dualbind.OriginPath:
			raw, ok := mux.Vars(r)[e.Name]
			if !ok || raw == "" {
				return nil, dualbind.Errorf(dualbind.CodeInvalidArgument, "missing path parameter %q", e.Name)
			}
			v, err := convertString(raw, e.Type)
			if err != nil {
				return nil, err
			}
			args[i] = v

		case dualbind.OriginHeader:
			raw := r.Header.Get(e.Name)
			if raw == "" {
				if e.Required {
					return nil, dualbind.Errorf(dualbind.CodeInvalidArgument, "missing header %q", e.Name)
				}
				continue
			}
			v, err := convertString(raw, e.Type)
			if err != nil {
				return nil, err
			}
			args[i] = v

		case dualbind.OriginCookie:
			c, err := r.Cookie(e.Name)
			if err != nil || c.Value == "" {
				if e.Required {
					return nil, dualbind.Errorf(dualbind.CodeInvalidArgument, "missing cookie %q", e.Name)
				}
				continue
			}
			v, err := convertString(c.Value, e.Type)
			if err != nil {
				return nil, err
			}
			args[i] = v

		case dualbind.OriginContext:
			args[i] = dualbind.InjectionFromContext(r.Context(), e.Name)

		case dualbind.OriginRequest:
			args[i] = r

		case dualbind.OriginResponse:
			args[i] = w
		}
	}
	return args, nil
}

// decodeBody reads the JSON request body into a field map. An empty
// body yields an empty map so optional parameters stay resolvable.
func decodeBody(r *http.Request) (map[string]json.RawMessage, error) {
	if r.Body == nil {
		return map[string]json.RawMessage{}, nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, dualbind.Errorf(dualbind.CodeInvalidArgument, "failed to read body: %v", err)
	}
	if len(data) == 0 {
		return map[string]json.RawMessage{}, nil
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, dualbind.Errorf(dualbind.CodeInvalidArgument, "failed to decode body: %v", err)
	}
	return body, nil
}

// bodyArg resolves one body-origin parameter from the decoded field
// map and validates struct-shaped values.
func (a *Adapter) bodyArg(body map[string]json.RawMessage, e dualbind.Extractor) (any, error) {
	raw, ok := body[e.Name]
	if !ok && e.Type != nil && derefKind(e.Type) == reflect.Struct {
		// Struct-shaped parameters without a matching field take the
		// whole body.
		whole, err := json.Marshal(body)
		if err != nil {
			return nil, dualbind.Errorf(dualbind.CodeInvalidArgument, "body: %v", err)
		}
		raw, ok = whole, true
	}
	if !ok {
		if e.Required {
			return nil, dualbind.Errorf(dualbind.CodeInvalidArgument, "missing body field %q", e.Name)
		}
		return nil, nil
	}
	if e.Type == nil {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, dualbind.Errorf(dualbind.CodeInvalidArgument, "body field %q: %v", e.Name, err)
		}
		return v, nil
	}
	out := reflect.New(e.Type)
	if err := json.Unmarshal(raw, out.Interface()); err != nil {
		return nil, dualbind.Errorf(dualbind.CodeInvalidArgument, "body field %q: %v", e.Name, err)
	}
	if derefKind(e.Type) == reflect.Struct {
		if err := a.validate.Struct(out.Elem().Interface()); err != nil {
			return nil, err
		}
	}
	return out.Elem().Interface(), nil
}

// queryArg resolves one query-origin parameter. Struct-shaped
// parameters are decoded from the whole query string with
// gorilla/schema; scalars read one named value.
func (a *Adapter) queryArg(r *http.Request, e dualbind.Extractor) (any, error) {
	if e.Type != nil && derefKind(e.Type) == reflect.Struct {
		out := reflect.New(e.Type)
		if err := a.decoder.Decode(out.Interface(), r.URL.Query()); err != nil {
			return nil, dualbind.Errorf(dualbind.CodeInvalidArgument, "failed to decode query: %v", err)
		}
		if err := a.validate.Struct(out.Elem().Interface()); err != nil {
			return nil, err
		}
		return out.Elem().Interface(), nil
	}
	raw := r.URL.Query().Get(e.Name)
	if raw == "" {
		if e.Required {
			return nil, dualbind.Errorf(dualbind.CodeInvalidArgument, "missing query parameter %q", e.Name)
		}
		return nil, nil
	}
	return convertString(raw, e.Type)
}

func derefKind(t reflect.Type) reflect.Kind {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind()
}

// convertString coerces an extracted string to the declared parameter
// type.
func convertString(raw string, t reflect.Type) (any, error) {
	if t == nil {
		return raw, nil
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(raw).Convert(t).Interface(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, dualbind.Errorf(dualbind.CodeInvalidArgument, "%q is not an integer", raw)
		}
		return reflect.ValueOf(n).Convert(t).Interface(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, dualbind.Errorf(dualbind.CodeInvalidArgument, "%q is not an unsigned integer", raw)
		}
		return reflect.ValueOf(n).Convert(t).Interface(), nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, dualbind.Errorf(dualbind.CodeInvalidArgument, "%q is not a number", raw)
		}
		return reflect.ValueOf(f).Convert(t).Interface(), nil
	case reflect.Bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, dualbind.Errorf(dualbind.CodeInvalidArgument, "%q is not a boolean", raw)
		}
		return reflect.ValueOf(v).Convert(t).Interface(), nil
	default:
		return nil, dualbind.Errorf(dualbind.CodeInvalidArgument, "cannot convert %q to %s", raw, t)
	}
}

// transformError maps handler and validation errors to the engine's
// error envelope.
func transformError(err error) *dualbind.Error {
	var engineErr *dualbind.Error
	if errors.As(err, &engineErr) {
		return engineErr
	}
	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) {
		e := dualbind.NewError(dualbind.CodeInvalidArgument, "validation failed")
		for _, ve := range valErrs {
			e = e.WithDetail(ve.Field(), ve.Tag())
		}
		return e
	}
	return dualbind.NewError(dualbind.CodeInternal, err.Error())
}
