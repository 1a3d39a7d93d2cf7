package dualbind

import (
	"context"
	"net/http"
)

type contextKey struct {
	name string
}

var (
	actorKey   = &contextKey{"actor"}
	requestKey = &contextKey{"request"}
	writerKey  = &contextKey{"writer"}
	actionKey  = &contextKey{"action_info"}
)

// injectionKey keys named context-origin values. Distinct names yield
// distinct keys, so injections cannot collide with each other or with
// the engine's own context values.
type injectionKey struct {
	name string
}

// WithActor returns a context carrying the acting principal. Permission
// predicates read it through the phase context.
func WithActor(ctx context.Context, actor any) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the acting principal, or nil.
func ActorFromContext(ctx context.Context) any {
	return ctx.Value(actorKey)
}

// WithHTTP returns a context carrying the transport request and
// response writer. The REST adapter sets it before invoking a handler;
// request- and response-origin parameters are resolved from it.
func WithHTTP(ctx context.Context, w http.ResponseWriter, r *http.Request) context.Context {
	ctx = context.WithValue(ctx, writerKey, w)
	return context.WithValue(ctx, requestKey, r)
}

// RequestFromContext returns the HTTP request, or nil outside an HTTP
// invocation.
func RequestFromContext(ctx context.Context) *http.Request {
	if r, ok := ctx.Value(requestKey).(*http.Request); ok {
		return r
	}
	return nil
}

// WriterFromContext returns the HTTP response writer, or nil outside an
// HTTP invocation.
func WriterFromContext(ctx context.Context) http.ResponseWriter {
	if w, ok := ctx.Value(writerKey).(http.ResponseWriter); ok {
		return w
	}
	return nil
}

// WithInjection returns a context carrying a named value for a
// context-origin parameter.
func WithInjection(ctx context.Context, name string, value any) context.Context {
	return context.WithValue(ctx, injectionKey{name}, value)
}

// InjectionFromContext returns the named context-origin value, or nil.
func InjectionFromContext(ctx context.Context, name string) any {
	return ctx.Value(injectionKey{name})
}

func withActionInfo(ctx context.Context, info *ActionInfo) context.Context {
	return context.WithValue(ctx, actionKey, info)
}

// ActionFromContext returns the class and action name of the current
// invocation.
func ActionFromContext(ctx context.Context) (class, action string, ok bool) {
	if info, ok := ctx.Value(actionKey).(*ActionInfo); ok {
		return info.Class, info.Action, true
	}
	return "", "", false
}
