package dualbind

import (
	"fmt"
	"reflect"
)

// MemberScope records the classification verdict for a bound member.
// It is computed once at descriptor-build time and stored in the
// descriptor, never re-derived at call time.
type MemberScope string

const (
	// ScopeStatic marks a member reachable directly on the class,
	// without a constructed entity.
	ScopeStatic MemberScope = "static"

	// ScopeInstance marks a member reachable only on a constructed
	// entity. Instance members are lifted to a static call surface
	// before binding.
	ScopeInstance MemberScope = "instance"
)

// Class describes a bindable entity type: the entity's struct type plus
// a table of static callables registered against it. Instance members
// are the methods declared on the entity (resolved through the pointer
// type, so both value and pointer receivers qualify); static members
// are plain functions registered by name, including callables
// synthesized by lifting.
type Class struct {
	name    string
	typ     reflect.Type // entity struct type, never a pointer
	ptr     reflect.Type // pointer type, methods resolved here
	statics map[string]reflect.Value
}

func newClass(entity any) (*Class, error) {
	t := reflect.TypeOf(entity)
	if t == nil {
		return nil, NewError(CodeConfiguration, "entity must not be nil")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, Errorf(CodeConfiguration, "entity must be a struct type, got %s", t.Kind())
	}
	return &Class{
		name:    t.Name(),
		typ:     t,
		ptr:     reflect.PointerTo(t),
		statics: make(map[string]reflect.Value),
	}, nil
}

// Name returns the class name, taken from the entity type.
func (c *Class) Name() string { return c.name }

// Type returns the entity struct type.
func (c *Class) Type() reflect.Type { return c.typ }

// Static returns the registered static callable for member, if any.
func (c *Class) Static(member string) (reflect.Value, bool) {
	fn, ok := c.statics[member]
	return fn, ok
}

func (c *Class) setStatic(member string, fn reflect.Value) {
	c.statics[member] = fn
}

// IsStatic reports whether member is reachable directly on the class
// and is callable.
func (c *Class) IsStatic(member string) bool {
	fn, ok := c.statics[member]
	return ok && fn.IsValid() && fn.Kind() == reflect.Func
}

// IsInstance reports whether member is reachable on a constructed
// entity, is callable, and is not shadowed by a static member of the
// same name.
func (c *Class) IsInstance(member string) bool {
	if c.IsStatic(member) {
		return false
	}
	m, ok := c.ptr.MethodByName(member)
	return ok && m.Func.IsValid()
}

// classify returns the scope of member. A member that is neither
// static nor instance-callable is a configuration error; callers must
// reject binding it, never silently skip it.
func (c *Class) classify(member string) (MemberScope, error) {
	switch {
	case c.IsStatic(member):
		return ScopeStatic, nil
	case c.IsInstance(member):
		return ScopeInstance, nil
	default:
		return "", Errorf(CodeConfiguration,
			"%s.%s is neither a static nor an instance member", c.name, member)
	}
}

func (c *Class) String() string {
	return fmt.Sprintf("Class(%s)", c.name)
}
