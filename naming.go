package dualbind

import (
	"strings"
	"unicode"
)

// DeriveName converts a member identifier to its canonical action name
// and default route path. A word boundary is inserted before each
// upper-case rune, the result is lower-cased and joined with '-', and
// a leading separator is stripped. The derivation is deterministic and
// idempotent: deriving an already-derived name yields it unchanged.
//
//	DeriveName("CreateMultiple") // "create-multiple", "/create-multiple"
//
// Two differently-cased identifiers that fold to the same name are a
// caller error; no collision detection is performed here.
func DeriveName(member string) (name, path string) {
	var b strings.Builder
	b.Grow(len(member) + 4)
	for i, r := range member {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	name = b.String()
	return name, "/" + name
}
