package format

import "strings"

// Kind identifies a format: one of the builtin set or a named custom format.
// Kind is comparable and immutable; use it as a map key.
type Kind struct {
	name   string
	custom bool
}

// Builtin format kinds.
var (
	JSON      = Kind{name: "json"}
	YAML      = Kind{name: "yaml"}
	CSV       = Kind{name: "csv"}
	XML       = Kind{name: "xml"}
	TOML      = Kind{name: "toml"}
	INI       = Kind{name: "ini"}
	Plaintext = Kind{name: "plaintext"}
)

// Builtins lists the builtin kinds in their default registration order.
var Builtins = []Kind{JSON, YAML, CSV, XML, TOML, INI, Plaintext}

// Custom returns the Kind of a custom format. Names are case-insensitive.
func Custom(name string) Kind {
	return Kind{name: strings.ToLower(strings.TrimSpace(name)), custom: true}
}

// String returns the format name ("json", "yaml", or the custom name).
func (k Kind) String() string {
	return k.name
}

// IsCustom reports whether k names a custom format.
func (k Kind) IsCustom() bool {
	return k.custom
}

// IsZero reports whether k is the zero Kind (no format).
func (k Kind) IsZero() bool {
	return k.name == ""
}

// aliases maps accepted spellings to builtin kinds.
var aliases = map[string]Kind{
	"json":      JSON,
	"yaml":      YAML,
	"yml":       YAML,
	"csv":       CSV,
	"xml":       XML,
	"toml":      TOML,
	"ini":       INI,
	"plaintext": Plaintext,
	"text":      Plaintext,
	"txt":       Plaintext,
}

// ParseKind parses a format name.
//
// Builtin names and their aliases ("yml", "txt", "text") map to builtin
// kinds. "custom:<name>" and any other non-empty name map to Custom(name),
// so registered custom formats are addressable by plain name. The empty
// string returns the zero Kind.
func ParseKind(s string) Kind {
	lower := strings.ToLower(strings.TrimSpace(s))
	if lower == "" {
		return Kind{}
	}
	if rest, ok := strings.CutPrefix(lower, "custom:"); ok {
		return Custom(rest)
	}
	if k, ok := aliases[lower]; ok {
		return k
	}
	return Custom(lower)
}

// isBuiltinName reports whether name collides with a builtin name or alias.
func isBuiltinName(name string) bool {
	_, ok := aliases[strings.ToLower(name)]
	return ok
}
