package dualbind

import (
	"reflect"
	"testing"
)

func TestNewClass(t *testing.T) {
	c, err := newClass(&Widget{})
	if err != nil {
		t.Fatalf("newClass: %v", err)
	}
	if c.Name() != "Widget" {
		t.Errorf("class name = %q, want Widget", c.Name())
	}
	if c.Type().Kind() != reflect.Struct {
		t.Errorf("class type kind = %s, want struct", c.Type().Kind())
	}
}

func TestNewClassRejectsNonStruct(t *testing.T) {
	if _, err := newClass(42); !IsCode(err, CodeConfiguration) {
		t.Errorf("newClass(42) error = %v, want configuration", err)
	}
	if _, err := newClass(nil); !IsCode(err, CodeConfiguration) {
		t.Errorf("newClass(nil) error = %v, want configuration", err)
	}
}

func TestClassify(t *testing.T) {
	c, _ := newClass(&Widget{})
	c.setStatic("Search", reflect.ValueOf(func(q string) []string { return nil }))

	if !c.IsStatic("Search") {
		t.Error("Search should be static")
	}
	if c.IsInstance("Search") {
		t.Error("Search should not be instance")
	}
	if !c.IsInstance("Rename") {
		t.Error("Rename should be instance")
	}
	if c.IsStatic("Rename") {
		t.Error("Rename should not be static")
	}

	scope, err := c.classify("Search")
	if err != nil || scope != ScopeStatic {
		t.Errorf("classify(Search) = %v, %v; want static", scope, err)
	}
	scope, err = c.classify("Rename")
	if err != nil || scope != ScopeInstance {
		t.Errorf("classify(Rename) = %v, %v; want instance", scope, err)
	}
}

// A static member shadows an instance method of the same name: exactly
// one of the predicates holds.
func TestClassifyStaticShadowsInstance(t *testing.T) {
	c, _ := newClass(&Widget{})
	c.setStatic("Rename", reflect.ValueOf(func(id, newName string) (string, error) { return newName, nil }))

	if !c.IsStatic("Rename") {
		t.Error("shadowed Rename should classify as static")
	}
	if c.IsInstance("Rename") {
		t.Error("shadowed Rename should not classify as instance")
	}
}

func TestClassifyUnknownMember(t *testing.T) {
	c, _ := newClass(&Widget{})
	if _, err := c.classify("Nope"); !IsCode(err, CodeConfiguration) {
		t.Errorf("classify(Nope) error = %v, want configuration", err)
	}
}
