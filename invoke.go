package dualbind

import (
	"context"
	"encoding/json"
	"reflect"
)

// Callable is the uniform call surface every bound action is reduced
// to. Arguments are positional and match the descriptor's parameter
// bindings; lifted instance callables additionally take the entity
// identifier as args[0].
type Callable func(ctx context.Context, args []any) (any, error)

// ActionInfo identifies the action being invoked. It is passed to
// call-time hooks.
type ActionInfo struct {
	Class  string
	Action string
}

// Hook wraps call-time handler execution. Hooks run in registration
// order, outermost first, around the permission gate and the handler.
// A hook can inspect or replace arguments, short-circuit by returning
// an error, or decorate the result. The permission gate itself is not
// a hook and cannot be displaced by one.
type Hook func(ctx context.Context, args []any, info *ActionInfo, next Callable) (any, error)

// chainHooks combines multiple hooks into a single one. The first hook
// in the slice is the outermost one.
func chainHooks(hooks []Hook) Hook {
	if len(hooks) == 0 {
		return nil
	}
	if len(hooks) == 1 {
		return hooks[0]
	}
	return func(ctx context.Context, args []any, info *ActionInfo, final Callable) (any, error) {
		chain := final
		for i := len(hooks) - 1; i >= 0; i-- {
			current := hooks[i]
			next := chain
			chain = func(ctx context.Context, args []any) (any, error) {
				return current(ctx, args, info, next)
			}
		}
		return chain(ctx, args)
	}
}

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// signature describes a callable's declared parameters and results,
// with the receiver and a leading context.Context stripped.
type signature struct {
	params   []reflect.Type
	takesCtx bool
	ret      reflect.Type // nil when the callable returns no value
	retErr   bool
}

// funcSignature analyzes a func type. skipReceiver is set when t is a
// method func obtained from MethodByName, whose first input is the
// receiver.
func funcSignature(t reflect.Type, skipReceiver bool) (*signature, error) {
	if t.Kind() != reflect.Func {
		return nil, Errorf(CodeConfiguration, "member is %s, want func", t.Kind())
	}
	if t.IsVariadic() {
		return nil, NewError(CodeConfiguration, "variadic members cannot be bound")
	}
	sig := &signature{}
	start := 0
	if skipReceiver {
		start = 1
	}
	if t.NumIn() > start && t.In(start) == ctxType {
		sig.takesCtx = true
		start++
	}
	for i := start; i < t.NumIn(); i++ {
		sig.params = append(sig.params, t.In(i))
	}
	switch t.NumOut() {
	case 0:
	case 1:
		if t.Out(0) == errType {
			sig.retErr = true
		} else {
			sig.ret = t.Out(0)
		}
	case 2:
		if t.Out(1) != errType {
			return nil, NewError(CodeConfiguration, "second result must be error")
		}
		sig.ret = t.Out(0)
		sig.retErr = true
	default:
		return nil, Errorf(CodeConfiguration, "too many results (%d), want at most (T, error)", t.NumOut())
	}
	return sig, nil
}

// wrapFunc reduces an arbitrary registered function to a Callable.
// Arguments are converted to the declared parameter types; the result
// and error are returned exactly as produced.
func wrapFunc(fn reflect.Value, sig *signature) Callable {
	return func(ctx context.Context, args []any) (any, error) {
		in, err := buildCallArgs(ctx, sig, args, nil)
		if err != nil {
			return nil, err
		}
		return callResults(fn.Call(in), sig)
	}
}

// buildCallArgs converts positional args to reflect values per sig,
// prepending receiver (if non-nil) and ctx (if the signature takes one).
func buildCallArgs(ctx context.Context, sig *signature, args []any, receiver *reflect.Value) ([]reflect.Value, error) {
	if len(args) != len(sig.params) {
		return nil, Errorf(CodeInvalidArgument, "got %d arguments, want %d", len(args), len(sig.params))
	}
	in := make([]reflect.Value, 0, len(args)+2)
	if receiver != nil {
		in = append(in, *receiver)
	}
	if sig.takesCtx {
		in = append(in, reflect.ValueOf(ctx))
	}
	for i, arg := range args {
		v, err := convertArg(arg, sig.params[i])
		if err != nil {
			return nil, Errorf(CodeInvalidArgument, "argument %d: %v", i, err)
		}
		in = append(in, v)
	}
	return in, nil
}

// callResults unpacks reflect call results per sig, propagating the
// handler's return value and error unchanged.
func callResults(out []reflect.Value, sig *signature) (any, error) {
	var res any
	var err error
	idx := 0
	if sig.ret != nil {
		res = out[idx].Interface()
		idx++
	}
	if sig.retErr {
		if e := out[idx].Interface(); e != nil {
			err = e.(error)
		}
	}
	return res, err
}

// convertArg coerces a dynamically-typed argument to the declared
// parameter type. Adapters deliver JSON-shaped values (float64 numbers,
// map[string]any objects), so numeric widening and a JSON round trip
// for object-shaped values are supported.
func convertArg(arg any, t reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(arg)
	if v.Type() == t {
		return v, nil
	}
	if v.Type().AssignableTo(t) {
		return v.Convert(t), nil
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String:
		if v.Type().ConvertibleTo(t) {
			return v.Convert(t), nil
		}
	case reflect.Map, reflect.Slice:
		// JSON round trip for object- and list-shaped values.
		data, err := json.Marshal(arg)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(t)
		if err := json.Unmarshal(data, out.Interface()); err != nil {
			return reflect.Value{}, err
		}
		return out.Elem(), nil
	}
	return reflect.Value{}, Errorf(CodeInvalidArgument, "cannot convert %s to %s", v.Type(), t)
}
