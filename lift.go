package dualbind

import (
	"context"
	"reflect"
)

// Loader is the narrow persistence contract the engine consumes: load
// one entity of the given class by identifier. A nil entity with a nil
// error means not found. Loads may suspend; the calling adapter awaits
// them through the context. Everything else about persistence is an
// external collaborator's concern.
type Loader interface {
	LoadByIdentifier(ctx context.Context, class reflect.Type, id string) (any, error)
}

// liftInstance synthesizes the static-scope equivalent of an instance
// method: a callable taking the entity identifier as its first
// argument, loading the entity, and forwarding the remaining arguments
// to the original method bound to it. The result and error of the
// original method propagate unchanged.
//
// The loader is resolved at call time so Registry configuration order
// does not matter. Exactly one load is performed per invocation.
func liftInstance(class *Class, member string, loader func() Loader) (Callable, *signature, error) {
	method, ok := class.ptr.MethodByName(member)
	if !ok {
		return nil, nil, Errorf(CodeConfiguration, "%s has no method %s", class.Name(), member)
	}
	sig, err := funcSignature(method.Func.Type(), true)
	if err != nil {
		return nil, nil, err
	}

	fn := method.Func
	lifted := func(ctx context.Context, args []any) (any, error) {
		if len(args) == 0 {
			return nil, NewError(CodeInvalidArgument, "missing entity identifier")
		}
		id, ok := args[0].(string)
		if !ok {
			return nil, Errorf(CodeInvalidArgument, "entity identifier must be a string, got %T", args[0])
		}
		l := loader()
		if l == nil {
			return nil, Errorf(CodeInternal, "no loader configured for %s.%s", class.Name(), member)
		}
		entity, err := l.LoadByIdentifier(ctx, class.Type(), id)
		if err != nil {
			return nil, err
		}
		if entity == nil {
			return nil, Errorf(CodeNotFound, "%s %q not found", class.Name(), id)
		}
		receiver, err := receiverValue(entity, class)
		if err != nil {
			return nil, err
		}
		in, err := buildCallArgs(ctx, sig, args[1:], &receiver)
		if err != nil {
			return nil, err
		}
		return callResults(fn.Call(in), sig)
	}
	return lifted, sig, nil
}

// receiverValue coerces a loaded entity to the class's pointer type,
// taking an addressable copy when the loader returned a value.
func receiverValue(entity any, class *Class) (reflect.Value, error) {
	v := reflect.ValueOf(entity)
	switch v.Type() {
	case class.ptr:
		return v, nil
	case class.typ:
		p := reflect.New(class.typ)
		p.Elem().Set(v)
		return p, nil
	}
	return reflect.Value{}, Errorf(CodeInternal,
		"loader returned %s, want %s", v.Type(), class.ptr)
}
