package gqlbind

import (
	"fmt"
	"reflect"
	"strings"

	"dualbind"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

// jsonScalar is the fallback for map- and interface-shaped values that
// have no struct schema to derive fields from. Values pass through
// unchanged.
var jsonScalar = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "JSON",
	Description: "Arbitrary JSON value.",
	Serialize:   func(value any) any { return value },
	ParseValue:  func(value any) any { return value },
	ParseLiteral: func(valueAST ast.Value) any {
		return valueAST.GetValue()
	},
})

// inputFor maps a declared parameter type to a GraphQL input type per
// its hint.
func (a *Adapter) inputFor(t reflect.Type, hint dualbind.TypeHint) graphql.Input {
	if hint == "" && t != nil {
		hint = dualbind.InferTypeHint(t)
	}
	switch hint {
	case dualbind.TypeInt:
		return graphql.Int
	case dualbind.TypeFloat:
		return graphql.Float
	case dualbind.TypeBoolean:
		return graphql.Boolean
	case dualbind.TypeEnum:
		if e := a.enumFor(t); e != nil {
			return e
		}
		return graphql.String
	case dualbind.TypeObject:
		return a.inputObjectFor(t)
	default:
		return graphql.String
	}
}

// outputFor maps a return type to a GraphQL output type per its hint.
// A nil return type becomes Boolean: the action reports completion
// only.
func (a *Adapter) outputFor(t reflect.Type, hint dualbind.TypeHint) graphql.Output {
	if t == nil {
		return graphql.Boolean
	}
	if hint == "" {
		hint = dualbind.InferTypeHint(t)
	}
	switch hint {
	case dualbind.TypeInt:
		return graphql.Int
	case dualbind.TypeFloat:
		return graphql.Float
	case dualbind.TypeBoolean:
		return graphql.Boolean
	case dualbind.TypeEnum:
		if e := a.enumFor(t); e != nil {
			return e
		}
		return graphql.String
	case dualbind.TypeObject:
		return a.outputObjectFor(t)
	default:
		return graphql.String
	}
}

// inputObjectFor derives an input object type from a struct's fields.
// Non-struct shapes fall back to the JSON scalar.
func (a *Adapter) inputObjectFor(t reflect.Type) graphql.Input {
	t = deref(t)
	if t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		elem := t.Elem()
		return graphql.NewList(a.inputFor(elem, dualbind.InferTypeHint(elem)))
	}
	if t.Kind() != reflect.Struct {
		return jsonScalar
	}
	if cached, ok := a.inputs[t]; ok {
		return cached
	}
	fields := graphql.InputObjectConfigFieldMap{}
	for name, ft := range structFields(t) {
		fields[name] = &graphql.InputObjectFieldConfig{
			Type: a.inputFor(ft, dualbind.InferTypeHint(ft)),
		}
	}
	obj := graphql.NewInputObject(graphql.InputObjectConfig{
		Name:   a.typeName(t) + "Input",
		Fields: fields,
	})
	a.inputs[t] = obj
	return obj
}

// outputObjectFor derives an object type from a struct's fields.
// Slices become lists; non-struct shapes fall back to the JSON scalar.
func (a *Adapter) outputObjectFor(t reflect.Type) graphql.Output {
	t = deref(t)
	if t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		elem := t.Elem()
		return graphql.NewList(a.outputFor(elem, dualbind.InferTypeHint(elem)))
	}
	if t.Kind() != reflect.Struct {
		return jsonScalar
	}
	if cached, ok := a.outputs[t]; ok {
		return cached
	}
	fields := graphql.Fields{}
	for name, ft := range structFields(t) {
		fields[name] = &graphql.Field{
			Type: a.outputFor(ft, dualbind.InferTypeHint(ft)),
		}
	}
	obj := graphql.NewObject(graphql.ObjectConfig{
		Name:   a.typeName(t),
		Fields: fields,
	})
	a.outputs[t] = obj
	return obj
}

// enumFor builds an enum type from a dualbind.Enum implementor.
func (a *Adapter) enumFor(t reflect.Type) *graphql.Enum {
	if t == nil {
		return nil
	}
	t = deref(t)
	if cached, ok := a.enums[t]; ok {
		return cached
	}
	var names []string
	if v, ok := reflect.New(t).Elem().Interface().(dualbind.Enum); ok {
		names = v.EnumValues()
	} else if v, ok := reflect.New(t).Interface().(dualbind.Enum); ok {
		names = v.EnumValues()
	} else {
		return nil
	}
	values := graphql.EnumValueConfigMap{}
	for _, name := range names {
		values[name] = &graphql.EnumValueConfig{Value: name}
	}
	e := graphql.NewEnum(graphql.EnumConfig{
		Name:   a.typeName(t),
		Values: values,
	})
	a.enums[t] = e
	return e
}

// structFields yields the bindable fields of a struct: exported, not
// json-skipped, named by json tag when present.
func structFields(t reflect.Type) map[string]reflect.Type {
	out := make(map[string]reflect.Type, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		out[name] = f.Type
	}
	return out
}

// typeName returns a schema-unique name for a Go type, synthesizing
// one for anonymous structs.
func (a *Adapter) typeName(t reflect.Type) string {
	if t.Name() != "" {
		return t.Name()
	}
	a.anon++
	return fmt.Sprintf("Anonymous%d", a.anon)
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
