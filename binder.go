package dualbind

import (
	"reflect"
	"strings"
)

// Extractor is one parameter-extraction declaration handed to the REST
// adapter: where to pull the value from, under what name, and what
// declared type to coerce it to.
type Extractor struct {
	Index    int
	Origin   Origin
	Name     string
	Required bool
	Type     reflect.Type
}

// RESTBinding is the registration contract exposed to a REST adapter
// for one bound action.
type RESTBinding struct {
	Class      string
	Action     string
	Verb       Verb
	Path       string
	Extractors []Extractor
	Handler    Callable
}

// GQLArg is one GraphQL argument declaration: a client-supplied
// parameter translated into the adapter's vocabulary.
type GQLArg struct {
	Index    int
	Name     string
	Type     reflect.Type
	TypeHint TypeHint
	Nullable bool
}

// GraphQLBinding is the registration contract exposed to a GraphQL
// adapter for one bound action. Args covers client-supplied origins;
// Injections covers context, request, and response origins, resolved
// through the adapter's context-injection mechanism.
type GraphQLBinding struct {
	Class          string
	Name           string
	OperationKind  OperationKind
	ReturnType     reflect.Type
	ReturnTypeHint TypeHint
	Args           []GQLArg
	Injections     []Extractor
	NumParams      int
	Handler        Callable
}

// RESTAdapter registers a verb, path, and handler with a REST surface.
type RESTAdapter interface {
	BindREST(b RESTBinding) error
}

// GraphQLAdapter registers an operation kind, return type, and handler
// with a GraphQL surface.
type GraphQLAdapter interface {
	BindGraphQL(b GraphQLBinding) error
}

// restBinding translates a descriptor into the REST adapter's
// vocabulary. Origins map one-to-one; the adapter decides how context,
// request, and response injections are satisfied.
func restBinding(desc *ActionDescriptor, handler Callable) RESTBinding {
	extractors := make([]Extractor, len(desc.Params))
	for i, p := range desc.Params {
		extractors[i] = Extractor{
			Index:    p.Index,
			Origin:   p.Origin,
			Name:     p.Name,
			Required: p.Required,
			Type:     p.Type,
		}
	}
	return RESTBinding{
		Class:      desc.Class,
		Action:     desc.Name,
		Verb:       desc.Verb,
		Path:       desc.Path,
		Extractors: extractors,
		Handler:    handler,
	}
}

// graphqlBinding translates a descriptor into the GraphQL adapter's
// vocabulary: client-supplied parameters become typed arguments,
// injection origins become context-injection declarations. The return
// type hint consults the same override hook that governs parameter
// hints before falling back to the builtin heuristic.
func graphqlBinding(desc *ActionDescriptor, handler Callable, override TypeOverrideFunc) GraphQLBinding {
	b := GraphQLBinding{
		Class:         desc.Class,
		Name:          gqlFieldName(desc.Name),
		OperationKind: desc.OperationKind,
		ReturnType:    desc.ReturnType,
		NumParams:     len(desc.Params),
		Handler:       handler,
	}
	if desc.ReturnType != nil {
		hint, ok := TypeHint(""), false
		if override != nil {
			hint, ok = override(desc.ReturnType)
		}
		if !ok {
			hint = InferTypeHint(desc.ReturnType)
		}
		b.ReturnTypeHint = hint
	}
	for _, p := range desc.Params {
		if p.Origin.clientSupplied() {
			b.Args = append(b.Args, GQLArg{
				Index:    p.Index,
				Name:     gqlFieldName(p.Name),
				Type:     p.Type,
				TypeHint: p.GQLType,
				Nullable: !p.Required,
			})
			continue
		}
		b.Injections = append(b.Injections, Extractor{
			Index:    p.Index,
			Origin:   p.Origin,
			Name:     p.Name,
			Required: p.Required,
			Type:     p.Type,
		})
	}
	return b
}

// gqlFieldName folds a derived action name into a legal GraphQL field
// name: separator-delimited words re-joined in lower camel case.
//
//	gqlFieldName("create-multiple") // "createMultiple"
func gqlFieldName(name string) string {
	words := strings.Split(name, "-")
	var b strings.Builder
	b.Grow(len(name))
	for i, w := range words {
		if w == "" {
			continue
		}
		if i == 0 {
			b.WriteString(w)
			continue
		}
		b.WriteString(strings.ToUpper(w[:1]))
		b.WriteString(w[1:])
	}
	return b.String()
}
