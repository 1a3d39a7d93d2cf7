package dualbind

import (
	"fmt"
	"reflect"
	"strings"
)

// Verb is a REST verb. An empty verb disables the REST binding.
type Verb string

const (
	GET     Verb = "GET"
	POST    Verb = "POST"
	PUT     Verb = "PUT"
	DELETE  Verb = "DELETE"
	PATCH   Verb = "PATCH"
	OPTIONS Verb = "OPTIONS"
	HEAD    Verb = "HEAD"
)

func (v Verb) valid() bool {
	switch v {
	case GET, POST, PUT, DELETE, PATCH, OPTIONS, HEAD:
		return true
	}
	return false
}

// OperationKind is a GraphQL operation kind. An empty kind disables
// the GraphQL binding.
type OperationKind string

const (
	OpQuery        OperationKind = "query"
	OpMutation     OperationKind = "mutation"
	OpSubscription OperationKind = "subscription"
)

func (k OperationKind) valid() bool {
	switch k {
	case OpQuery, OpMutation, OpSubscription:
		return true
	}
	return false
}

// Origin identifies where a parameter's value comes from. The mapping
// is recorded once at descriptor-build time and replayed identically
// into both protocol adapters.
type Origin string

const (
	OriginBody     Origin = "body"
	OriginQuery    Origin = "query"
	OriginPath     Origin = "path"
	OriginHeader   Origin = "header"
	OriginCookie   Origin = "cookie"
	OriginContext  Origin = "context"
	OriginRequest  Origin = "request"
	OriginResponse Origin = "response"
)

func (o Origin) valid() bool {
	switch o {
	case OriginBody, OriginQuery, OriginPath, OriginHeader,
		OriginCookie, OriginContext, OriginRequest, OriginResponse:
		return true
	}
	return false
}

// clientSupplied reports whether the origin carries a value the client
// sends, as opposed to one the adapter injects.
func (o Origin) clientSupplied() bool {
	switch o {
	case OriginBody, OriginQuery, OriginPath, OriginHeader, OriginCookie:
		return true
	}
	return false
}

// ParamBinding records where one declared parameter's value comes
// from. Index matches the callable's declared parameter order and is
// unique per descriptor.
type ParamBinding struct {
	Index    int
	Origin   Origin
	Name     string
	Required bool
	Type     reflect.Type
	GQLType  TypeHint
}

// ActionDescriptor is the canonical, immutable record produced per
// bound member. Descriptors are built once at registration time and
// never mutated; changing behavior means building a new descriptor,
// never patching fields in place.
type ActionDescriptor struct {
	Class  string
	Member string
	Scope  MemberScope

	Name string
	Path string

	Verb          Verb
	OperationKind OperationKind
	StaticName    string

	// AutogenREST and AutogenGraphQL independently toggle each
	// protocol's binding. Both false is a legal silent no-op, not an
	// error.
	AutogenREST    bool
	AutogenGraphQL bool

	Phase      Phase
	Permission Rule

	Params     []ParamBinding
	ReturnType reflect.Type

	Subscription *SubscriptionOptions
}

// RESTOptions configure the REST side of an action. Supplying the
// block forces the REST binding on.
type RESTOptions struct {
	Verb Verb
	Path string
}

// GraphQLOptions configure the GraphQL side of an action. Supplying
// the block forces the GraphQL binding on. Kind OpSubscription
// requires Subscription options.
type GraphQLOptions struct {
	Kind         OperationKind
	Subscription *SubscriptionOptions
}

// SubscriptionOptions name the update source a subscription-kind
// action streams from.
type SubscriptionOptions struct {
	Source Subscribable
}

// ParamOption overrides the binding for one declared parameter,
// positionally. Zero-valued fields keep the defaults: origin body,
// required, derived name, inferred GraphQL type.
type ParamOption struct {
	Origin   Origin
	Name     string
	Required *bool
	GQLType  TypeHint
}

// Options are the caller-supplied overrides for one action.
type Options struct {
	Name       string
	Path       string
	StaticName string

	Phase      Phase
	Permission Rule

	Params []ParamOption

	REST    *RESTOptions
	GraphQL *GraphQLOptions

	// DisableREST and DisableGraphQL opt a protocol out. Ignored when
	// the matching option block is supplied.
	DisableREST    bool
	DisableGraphQL bool
}

// fragment is one merge step in descriptor construction. The builder
// is a pure fold over an ordered fragment list producing one immutable
// result; there is no partially-mutated shared state between steps.
type fragment func(d *ActionDescriptor)

// buildDescriptor layers built-in defaults, the derived name and path,
// caller options, and the forced-on autogen flags into one descriptor,
// then validates it.
func buildDescriptor(class *Class, member string, scope MemberScope, sig *signature, opts Options, override TypeOverrideFunc) (*ActionDescriptor, error) {
	fragments := []fragment{
		defaultsFragment(class, member, scope, sig),
		derivedFragment(member, scope),
		callerFragment(opts),
		paramsFragment(opts.Params),
		liftFragment(scope),
		autogenFragment(opts),
		phaseFragment(),
		inferFragment(override),
	}

	d := &ActionDescriptor{}
	for _, f := range fragments {
		f(d)
	}
	if err := validateDescriptor(d, len(opts.Params), len(sig.params)); err != nil {
		return nil, err
	}
	return d, nil
}

func defaultsFragment(class *Class, member string, scope MemberScope, sig *signature) fragment {
	return func(d *ActionDescriptor) {
		d.Class = class.Name()
		d.Member = member
		d.Scope = scope
		d.AutogenREST = true
		d.AutogenGraphQL = true
		d.ReturnType = sig.ret
		d.Params = make([]ParamBinding, len(sig.params))
		for i, t := range sig.params {
			d.Params[i] = ParamBinding{
				Index:    i,
				Origin:   OriginBody,
				Name:     fmt.Sprintf("arg%d", i),
				Required: true,
				Type:     t,
			}
		}
	}
}

func derivedFragment(member string, scope MemberScope) fragment {
	return func(d *ActionDescriptor) {
		d.Name, d.Path = DeriveName(member)
		if scope == ScopeInstance {
			d.StaticName = member + "Static"
		} else {
			d.StaticName = member
		}
	}
}

func callerFragment(opts Options) fragment {
	return func(d *ActionDescriptor) {
		if opts.Name != "" {
			d.Name = opts.Name
		}
		if opts.Path != "" {
			d.Path = opts.Path
		}
		if opts.StaticName != "" {
			d.StaticName = opts.StaticName
		}
		if opts.Phase != "" {
			d.Phase = opts.Phase
		}
		if opts.Permission != nil {
			d.Permission = opts.Permission
		}
		if opts.REST != nil {
			d.Verb = opts.REST.Verb
			if opts.REST.Path != "" {
				d.Path = opts.REST.Path
			}
		}
		if opts.GraphQL != nil {
			d.OperationKind = opts.GraphQL.Kind
			d.Subscription = opts.GraphQL.Subscription
		}
	}
}

func paramsFragment(params []ParamOption) fragment {
	return func(d *ActionDescriptor) {
		for i, p := range params {
			if i >= len(d.Params) {
				return // caught by validateDescriptor
			}
			b := &d.Params[i]
			if p.Origin != "" {
				b.Origin = p.Origin
			}
			if p.Name != "" {
				b.Name = p.Name
			}
			if p.Required != nil {
				b.Required = *p.Required
			}
			if p.GQLType != "" {
				b.GQLType = p.GQLType
			}
			if !b.Origin.clientSupplied() && p.Required == nil {
				b.Required = false
			}
		}
	}
}

// liftFragment prepends the implicit identifier parameter for instance
// members. The identifier rides the {id} path segment when the path
// template declares one, otherwise the id query parameter.
func liftFragment(scope MemberScope) fragment {
	return func(d *ActionDescriptor) {
		if scope != ScopeInstance {
			return
		}
		idOrigin := OriginQuery
		if strings.Contains(d.Path, "{id}") {
			idOrigin = OriginPath
		}
		id := ParamBinding{
			Origin:   idOrigin,
			Name:     "id",
			Required: true,
			Type:     reflect.TypeOf(""),
		}
		d.Params = append([]ParamBinding{id}, d.Params...)
		for i := range d.Params {
			d.Params[i].Index = i
		}
	}
}

// autogenFragment applies the forced-true override: an explicitly
// supplied protocol option block always wins over a disable flag.
func autogenFragment(opts Options) fragment {
	return func(d *ActionDescriptor) {
		if opts.DisableREST {
			d.AutogenREST = false
		}
		if opts.DisableGraphQL {
			d.AutogenGraphQL = false
		}
		if opts.REST != nil {
			d.AutogenREST = true
		}
		if opts.GraphQL != nil {
			d.AutogenGraphQL = true
		}
	}
}

// phaseFragment defaults the CRUD phase from the REST verb, falling
// back to the operation kind for GraphQL-only actions.
func phaseFragment() fragment {
	return func(d *ActionDescriptor) {
		if d.Phase != "" {
			return
		}
		switch d.Verb {
		case POST:
			d.Phase = PhaseCreate
		case PUT, PATCH:
			d.Phase = PhaseUpdate
		case DELETE:
			d.Phase = PhaseDelete
		case GET, HEAD, OPTIONS:
			d.Phase = PhaseRead
		default:
			if d.OperationKind == OpMutation {
				d.Phase = PhaseUpdate
			} else {
				d.Phase = PhaseRead
			}
		}
	}
}

func inferFragment(override TypeOverrideFunc) fragment {
	return func(d *ActionDescriptor) {
		for i := range d.Params {
			b := &d.Params[i]
			if b.GQLType != "" || b.Type == nil {
				continue
			}
			if override != nil {
				if hint, ok := override(b.Type); ok {
					b.GQLType = hint
					continue
				}
			}
			b.GQLType = InferTypeHint(b.Type)
		}
	}
}

func validateDescriptor(d *ActionDescriptor, optParams, declared int) error {
	if optParams > declared {
		return Errorf(CodeConfiguration,
			"%s.%s: %d parameter options for %d declared parameters", d.Class, d.Member, optParams, declared)
	}
	if d.Verb != "" && !d.Verb.valid() {
		return Errorf(CodeConfiguration, "%s.%s: unrecognized verb %q", d.Class, d.Member, d.Verb)
	}
	if d.OperationKind != "" && !d.OperationKind.valid() {
		return Errorf(CodeConfiguration, "%s.%s: unrecognized operation kind %q", d.Class, d.Member, d.OperationKind)
	}
	if d.OperationKind == OpSubscription && d.Subscription == nil {
		return Errorf(CodeConfiguration, "%s.%s: subscription requires subscription options", d.Class, d.Member)
	}
	for _, p := range d.Params {
		if !p.Origin.valid() {
			return Errorf(CodeConfiguration, "%s.%s: parameter %d has unrecognized origin %q", d.Class, d.Member, p.Index, p.Origin)
		}
		if p.Origin == OriginPath {
			if p.Name == "" {
				return Errorf(CodeConfiguration, "%s.%s: path parameter %d has no name", d.Class, d.Member, p.Index)
			}
			if !strings.Contains(d.Path, "{"+p.Name+"}") {
				return Errorf(CodeConfiguration,
					"%s.%s: path parameter %q not present in path template %q", d.Class, d.Member, p.Name, d.Path)
			}
		}
	}
	return nil
}
