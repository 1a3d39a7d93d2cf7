package dualbind

import "reflect"

// TypeHint is the inferred GraphQL kind for a parameter or return
// type. The inference is heuristic; callers can pin a hint per
// parameter or install a registry-wide override.
type TypeHint string

const (
	TypeString  TypeHint = "string"
	TypeInt     TypeHint = "int"
	TypeFloat   TypeHint = "float"
	TypeBoolean TypeHint = "boolean"
	TypeEnum    TypeHint = "enum"
	TypeObject  TypeHint = "object"
)

// Enum marks a type whose values form a closed set. Types implementing
// it are inferred as GraphQL enums; EnumValues lists the legal names.
type Enum interface {
	EnumValues() []string
}

// TypeOverrideFunc overrides type inference for specific Go types.
// Returning false defers to the builtin heuristic.
type TypeOverrideFunc func(t reflect.Type) (TypeHint, bool)

var enumType = reflect.TypeOf((*Enum)(nil)).Elem()

// InferTypeHint deduces a GraphQL kind from a declared Go type:
// integer kinds as int, other numerics as float, string as string,
// bool as boolean, Enum implementors as enum, anything else as input
// object. Pointers are dereferenced first.
func InferTypeHint(t reflect.Type) TypeHint {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Implements(enumType) || reflect.PointerTo(t).Implements(enumType) {
		return TypeEnum
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return TypeInt
	case reflect.Float32, reflect.Float64:
		return TypeFloat
	case reflect.String:
		return TypeString
	case reflect.Bool:
		return TypeBoolean
	default:
		return TypeObject
	}
}
