package dualbind

import "context"

// Phase is the CRUD stage a permission rule is evaluated against.
type Phase string

const (
	PhaseCreate Phase = "create"
	PhaseRead   Phase = "read"
	PhaseUpdate Phase = "update"
	PhaseDelete Phase = "delete"
)

// PhaseContext is the CRUD-stage-specific data a permission rule sees.
// Create-phase contexts carry the not-yet-persisted draft; the other
// phases identify the persisted entity. The gate runs before the
// entity load so that a denial records zero loads, so Entity is only
// populated when the caller already holds it.
type PhaseContext struct {
	Phase    Phase
	Actor    any
	EntityID string
	Draft    any
	Entity   any
}

// Rule is a permission rule: either a literal verdict or a predicate
// over the phase context. The interface is sealed; Allow and Predicate
// are the only implementations.
type Rule interface {
	allow(pc *PhaseContext) bool
}

// Allow is a literal permission verdict. Evaluating it never touches
// the phase context.
type Allow bool

func (a Allow) allow(*PhaseContext) bool { return bool(a) }

// Predicate is a permission rule computed from the phase context.
// Predicates must be pure over their context and complete without
// suspension.
type Predicate func(pc *PhaseContext) bool

func (p Predicate) allow(pc *PhaseContext) bool { return p(pc) }

// Evaluate resolves a rule against a phase context. A nil rule allows.
// Predicates are invoked fresh on every call and never memoized: each
// invocation may see a different actor or entity state.
func Evaluate(rule Rule, pc *PhaseContext) bool {
	if rule == nil {
		return true
	}
	return rule.allow(pc)
}

// permissionGate wraps a callable so the rule is evaluated before
// anything else runs. Denial surfaces as a permission_denied error and
// the inner callable, including any entity load it would perform, is
// never reached.
func permissionGate(desc *ActionDescriptor, inner Callable) Callable {
	if desc.Permission == nil {
		return inner
	}
	return func(ctx context.Context, args []any) (any, error) {
		pc := phaseContext(ctx, desc, args)
		if !Evaluate(desc.Permission, pc) {
			return nil, Errorf(CodePermissionDenied, "action %q denied", desc.Name)
		}
		return inner(ctx, args)
	}
}

// phaseContext assembles the context a rule is evaluated against.
func phaseContext(ctx context.Context, desc *ActionDescriptor, args []any) *PhaseContext {
	pc := &PhaseContext{
		Phase: desc.Phase,
		Actor: ActorFromContext(ctx),
	}
	if desc.Scope == ScopeInstance && len(args) > 0 {
		if id, ok := args[0].(string); ok {
			pc.EntityID = id
		}
	}
	if desc.Phase == PhaseCreate {
		for _, p := range desc.Params {
			if p.Origin == OriginBody && p.Index < len(args) {
				pc.Draft = args[p.Index]
				break
			}
		}
	}
	return pc
}
