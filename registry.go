package dualbind

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
)

// Registry is the central owner of classes, action descriptors, and
// protocol bindings. Registration happens once, single-threaded, at
// bootstrap time; call-time execution of bound handlers may run with
// arbitrary request concurrency and never writes registry state.
type Registry struct {
	mu          sync.RWMutex
	classes     map[reflect.Type]*Class
	descriptors map[memberKey]*ActionDescriptor
	actions     []*Action
	bound       map[string]struct{}

	loader   Loader
	logger   *slog.Logger
	override TypeOverrideFunc
	hooks    []Hook
}

type memberKey struct {
	class  reflect.Type
	member string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		classes:     make(map[reflect.Type]*Class),
		descriptors: make(map[memberKey]*ActionDescriptor),
		bound:       make(map[string]struct{}),
	}
}

// WithLoader sets the persistence collaborator used by lifted instance
// callables. It returns the registry for chaining.
func (r *Registry) WithLoader(l Loader) *Registry {
	r.loader = l
	return r
}

// WithLogger sets a custom logger. If not set, slog.Default() is used.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTypeOverride installs a GraphQL type-inference override,
// consulted before the builtin heuristic.
func (r *Registry) WithTypeOverride(fn TypeOverrideFunc) *Registry {
	r.override = fn
	return r
}

// WithHook adds a call-time hook. Hooks run in the order added,
// outermost first, around every bound handler.
func (r *Registry) WithHook(h Hook) *Registry {
	r.hooks = append(r.hooks, h)
	return r
}

func (r *Registry) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}

// Class returns the binding surface for an entity type, creating the
// class record on first use. The entity must be a struct or pointer to
// struct; anything else is a programmer error and panics.
func (r *Registry) Class(entity any) *ClassBinding {
	c, err := newClass(entity)
	if err != nil {
		panic("dualbind: " + err.Error())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.classes[c.Type()]; ok {
		c = existing
	} else {
		r.classes[c.Type()] = c
	}
	return &ClassBinding{registry: r, class: c}
}

// Descriptor returns the descriptor recorded for (entity class,
// member), if one was built. Lifted members are reachable both under
// the original member name and the synthesized static name.
func (r *Registry) Descriptor(entity any, member string) (*ActionDescriptor, bool) {
	t := reflect.TypeOf(entity)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[memberKey{t, member}]
	return d, ok
}

// Actions returns all actions built so far, in registration order.
func (r *Registry) Actions() []*Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Action, len(r.actions))
	copy(out, r.actions)
	return out
}

// ClassBinding registers members of one class against the registry.
type ClassBinding struct {
	registry *Registry
	class    *Class
}

// Class returns the underlying class record.
func (cb *ClassBinding) Class() *Class { return cb.class }

// Static registers a function as a static member of the class. The
// value must be a func; anything else is a programmer error and
// panics. It returns the binding for chaining.
func (cb *ClassBinding) Static(member string, fn any) *ClassBinding {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		panic("dualbind: static member " + member + " must be a func")
	}
	cb.registry.mu.Lock()
	defer cb.registry.mu.Unlock()
	cb.class.setStatic(member, v)
	return cb
}

// Action classifies the member, builds its immutable descriptor, and
// lifts instance members to the static call surface. The resulting
// action is recorded on the registry and can then be bound to protocol
// adapters. Building the same member twice is a conflict.
func (cb *ClassBinding) Action(member string, opts Options) (*Action, error) {
	r := cb.registry
	class := cb.class

	scope, err := class.classify(member)
	if err != nil {
		return nil, err
	}

	var callable Callable
	var sig *signature
	switch scope {
	case ScopeStatic:
		fn, _ := class.Static(member)
		sig, err = funcSignature(fn.Type(), false)
		if err != nil {
			return nil, err
		}
		callable = wrapFunc(fn, sig)
	case ScopeInstance:
		callable, sig, err = liftInstance(class, member, func() Loader { return r.loader })
		if err != nil {
			return nil, err
		}
	}

	desc, err := buildDescriptor(class, member, scope, sig, opts, r.override)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	key := memberKey{class.Type(), member}
	if _, exists := r.descriptors[key]; exists {
		return nil, Errorf(CodeConflict, "%s.%s already has a descriptor", class.Name(), member)
	}
	r.descriptors[key] = desc
	if scope == ScopeInstance {
		// Register the synthesized callable on the class and copy the
		// descriptor metadata onto it. Losing metadata during lifting
		// would desynchronize the two protocol surfaces.
		if class.IsStatic(desc.StaticName) {
			return nil, Errorf(CodeConflict, "%s.%s: static name %q already taken", class.Name(), member, desc.StaticName)
		}
		class.setStatic(desc.StaticName, reflect.ValueOf(callable))
		r.descriptors[memberKey{class.Type(), desc.StaticName}] = desc
	}

	a := &Action{Descriptor: desc, registry: r, class: class, callable: callable}
	r.actions = append(r.actions, a)
	return a, nil
}

// MustAction is like Action but panics on error. Intended for
// bootstrap-time registration where a configuration error is fatal.
func (cb *ClassBinding) MustAction(member string, opts Options) *Action {
	a, err := cb.Action(member, opts)
	if err != nil {
		panic("dualbind: " + err.Error())
	}
	return a
}

// Action is one bound operation: the descriptor plus the callable it
// gates and dispatches to.
type Action struct {
	Descriptor *ActionDescriptor

	registry *Registry
	class    *Class
	callable Callable
}

// Invoke executes the action from Go code through the same permission
// gate the protocol bindings use. Arguments are positional per the
// descriptor's parameter bindings; lifted actions take the entity
// identifier first.
func (a *Action) Invoke(ctx context.Context, args ...any) (any, error) {
	return a.registry.compose(a)(ctx, args)
}

// Bind registers the action with whichever adapters are enabled and
// supplied. Re-binding the same static name raises a conflict rather
// than overwriting. Unsupported verbs and operation kinds were already
// rejected at descriptor-build time.
//
// The action is recorded as bound only after every adapter call
// succeeds; a failed Bind leaves it unbound and may be retried once the
// adapter-side condition is fixed.
func (r *Registry) Bind(a *Action, rest RESTAdapter, gql GraphQLAdapter) error {
	desc := a.Descriptor

	boundKey := desc.Class + "." + desc.StaticName
	r.mu.Lock()
	if _, dup := r.bound[boundKey]; dup {
		r.mu.Unlock()
		return Errorf(CodeConflict, "action %s already bound", boundKey)
	}
	r.mu.Unlock()

	handler := r.compose(a)

	if desc.AutogenREST && desc.Verb != "" && rest != nil {
		if err := rest.BindREST(restBinding(desc, handler)); err != nil {
			return err
		}
		r.log().Info("bound REST action",
			slog.String("class", desc.Class),
			slog.String("action", desc.Name),
			slog.String("verb", string(desc.Verb)),
			slog.String("path", desc.Path))
	}

	if desc.AutogenGraphQL && desc.OperationKind != "" && gql != nil {
		gqlHandler := handler
		if desc.OperationKind == OpSubscription {
			gqlHandler = r.compose(&Action{
				Descriptor: desc,
				registry:   r,
				class:      a.class,
				callable:   subscribeCallable(desc),
			})
		}
		if err := gql.BindGraphQL(graphqlBinding(desc, gqlHandler, r.override)); err != nil {
			return err
		}
		r.log().Info("bound GraphQL action",
			slog.String("class", desc.Class),
			slog.String("action", gqlFieldName(desc.Name)),
			slog.String("kind", string(desc.OperationKind)))
	}

	r.mu.Lock()
	r.bound[boundKey] = struct{}{}
	r.mu.Unlock()
	return nil
}

// BindAll binds every recorded action, stopping at the first error.
func (r *Registry) BindAll(rest RESTAdapter, gql GraphQLAdapter) error {
	for _, a := range r.Actions() {
		if err := r.Bind(a, rest, gql); err != nil {
			return err
		}
	}
	return nil
}

// compose assembles the call-time pipeline for an action: action info
// on the context, registered hooks outermost, then the permission gate,
// then the callable. The gate sits inside the hook chain so no hook
// can observe a result the rule denied.
func (r *Registry) compose(a *Action) Callable {
	desc := a.Descriptor
	gated := permissionGate(desc, a.callable)
	chain := chainHooks(r.hooks)
	info := &ActionInfo{Class: desc.Class, Action: desc.Name}
	return func(ctx context.Context, args []any) (any, error) {
		ctx = withActionInfo(ctx, info)
		if chain == nil {
			return gated(ctx, args)
		}
		return chain(ctx, args, info, gated)
	}
}

// subscribeCallable adapts a subscription source into the uniform call
// surface: the gated handler returns the update channel.
func subscribeCallable(desc *ActionDescriptor) Callable {
	return func(ctx context.Context, args []any) (any, error) {
		return desc.Subscription.Source.Updates(ctx), nil
	}
}
