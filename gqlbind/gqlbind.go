// Package gqlbind is the reference GraphQL adapter: it turns dualbind
// GraphQL bindings into graphql-go fields and assembles them into a
// runtime schema. Argument and return types are built from the
// binding's type hints; object-shaped types are derived from struct
// fields.
package gqlbind

import (
	"context"
	"log/slog"
	"reflect"
	"sync"

	"dualbind"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
)

// Adapter implements dualbind.GraphQLAdapter. Binding happens at
// bootstrap time; query execution is concurrent.
type Adapter struct {
	mu            sync.Mutex
	logger        *slog.Logger
	queries       graphql.Fields
	mutations     graphql.Fields
	subscriptions graphql.Fields

	inputs  map[reflect.Type]graphql.Input
	outputs map[reflect.Type]graphql.Output
	enums   map[reflect.Type]*graphql.Enum
	anon    int
}

// New creates an adapter with no bound operations.
func New() *Adapter {
	return &Adapter{
		queries:       graphql.Fields{},
		mutations:     graphql.Fields{},
		subscriptions: graphql.Fields{},
		inputs:        make(map[reflect.Type]graphql.Input),
		outputs:       make(map[reflect.Type]graphql.Output),
		enums:         make(map[reflect.Type]*graphql.Enum),
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

// BindGraphQL registers one action as a field of the matching root
// type. Re-binding a name within an operation kind is a conflict,
// never an overwrite.
func (a *Adapter) BindGraphQL(b dualbind.GraphQLBinding) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var fields graphql.Fields
	switch b.OperationKind {
	case dualbind.OpQuery:
		fields = a.queries
	case dualbind.OpMutation:
		fields = a.mutations
	case dualbind.OpSubscription:
		fields = a.subscriptions
	default:
		return dualbind.Errorf(dualbind.CodeConfiguration, "unrecognized operation kind %q", b.OperationKind)
	}
	if _, dup := fields[b.Name]; dup {
		return dualbind.Errorf(dualbind.CodeConflict, "%s %s already bound", b.OperationKind, b.Name)
	}

	field := &graphql.Field{
		Type: a.outputFor(b.ReturnType, b.ReturnTypeHint),
		Args: a.argsFor(b.Args),
	}
	if b.OperationKind == dualbind.OpSubscription {
		field.Resolve = func(p graphql.ResolveParams) (any, error) {
			return p.Source, nil
		}
		field.Subscribe = a.subscribe(b)
	} else {
		field.Resolve = a.resolve(b)
	}
	fields[b.Name] = field
	return nil
}

// resolve builds the field resolver: positional arguments from the
// argument map, injections from the context, then the bound handler.
func (a *Adapter) resolve(b dualbind.GraphQLBinding) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		args, err := a.callArgs(p, b)
		if err != nil {
			return nil, err
		}
		return b.Handler(p.Context, args)
	}
}

// subscribe builds the subscription resolver. The handler yields the
// update channel; events are forwarded so the executor sees the plain
// channel type it expects.
func (a *Adapter) subscribe(b dualbind.GraphQLBinding) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		args, err := a.callArgs(p, b)
		if err != nil {
			return nil, err
		}
		res, err := b.Handler(p.Context, args)
		if err != nil {
			return nil, err
		}
		src, ok := res.(<-chan any)
		if !ok {
			return nil, dualbind.Errorf(dualbind.CodeInternal, "subscription %s did not produce a channel", b.Name)
		}
		out := make(chan any)
		go func() {
			defer close(out)
			for {
				select {
				case <-p.Context.Done():
					return
				case v, open := <-src:
					if !open {
						return
					}
					select {
					case out <- v:
					case <-p.Context.Done():
						return
					}
				}
			}
		}()
		return out, nil
	}
}

// callArgs assembles the positional argument list for one invocation.
func (a *Adapter) callArgs(p graphql.ResolveParams, b dualbind.GraphQLBinding) ([]any, error) {
	args := make([]any, b.NumParams)
	for _, arg := range b.Args {
		v, present := p.Args[arg.Name]
		if !present {
			if !arg.Nullable {
				return nil, dualbind.Errorf(dualbind.CodeInvalidArgument, "missing argument %q", arg.Name)
			}
			continue
		}
		args[arg.Index] = v
	}
	for _, inj := range b.Injections {
		switch inj.Origin {
		case dualbind.OriginContext:
			args[inj.Index] = dualbind.InjectionFromContext(p.Context, inj.Name)
		case dualbind.OriginRequest:
			args[inj.Index] = dualbind.RequestFromContext(p.Context)
		case dualbind.OriginResponse:
			args[inj.Index] = dualbind.WriterFromContext(p.Context)
		}
	}
	return args, nil
}

func (a *Adapter) argsFor(args []dualbind.GQLArg) graphql.FieldConfigArgument {
	if len(args) == 0 {
		return nil
	}
	out := graphql.FieldConfigArgument{}
	for _, arg := range args {
		t := a.inputFor(arg.Type, arg.TypeHint)
		if !arg.Nullable {
			t = graphql.NewNonNull(t)
		}
		out[arg.Name] = &graphql.ArgumentConfig{Type: t}
	}
	return out
}

// Schema assembles the bound fields into a runtime schema. The query
// root always exists; graphql requires one, so a registry with no
// query-kind actions gets a lone _service probe field.
func (a *Adapter) Schema() (graphql.Schema, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	queries := graphql.Fields{}
	for name, f := range a.queries {
		queries[name] = f
	}
	if len(queries) == 0 {
		queries["_service"] = &graphql.Field{
			Type: graphql.String,
			Resolve: func(graphql.ResolveParams) (any, error) {
				return "ok", nil
			},
		}
	}

	cfg := graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{Name: "Query", Fields: queries}),
	}
	if len(a.mutations) > 0 {
		cfg.Mutation = graphql.NewObject(graphql.ObjectConfig{Name: "Mutation", Fields: a.mutations})
	}
	if len(a.subscriptions) > 0 {
		cfg.Subscription = graphql.NewObject(graphql.ObjectConfig{Name: "Subscription", Fields: a.subscriptions})
	}
	return graphql.NewSchema(cfg)
}

// Do executes one request against the bound schema. Intended for tests
// and in-process callers; HTTP serving belongs to external bootstrap
// code.
func (a *Adapter) Do(ctx context.Context, query string, vars map[string]any) *graphql.Result {
	schema, err := a.Schema()
	if err != nil {
		a.log().Error("schema assembly failed", slog.Any("error", err))
		return &graphql.Result{Errors: []gqlerrors.FormattedError{gqlerrors.FormatError(err)}}
	}
	return graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  query,
		VariableValues: vars,
		Context:        ctx,
	})
}
