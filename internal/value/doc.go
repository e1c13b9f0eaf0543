// Package value provides the intermediate representation every format
// decodes into and encodes from.
//
// This package contains the value model only. All other internal packages
// import value; value imports nothing internal, so it stays the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - Value is sealed: Null, Bool, Int, Float, String, Array and *Object are
//     the only implementations
//   - Object preserves insertion order end-to-end (YAML, JSON and INI output
//     depend on it)
//   - No codec may depend on another codec's private representation; they
//     all meet here
package value
