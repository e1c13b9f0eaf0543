// Package format maps format identifiers to encode/decode behavior.
//
// Every codec converts between raw bytes and value.Value; no codec sees
// another codec's representation. The Registry resolves a location (file
// path) or an explicit format name to a Kind and dispatches to its Codec.
//
// Resolution rules:
//   - an explicit format always wins, even over a conflicting extension
//   - otherwise the lower-cased extension must be claimed by exactly one
//     registered format, or the registry's format order must break the tie
//   - locations without an extension (standard streams, in-memory sources)
//     need an explicit format
//
// A Registry is built once (builtins plus custom registrations) and frozen
// when the first engine is constructed from it. After that it is read-only
// and safe to share between any number of concurrently running engines.
package format
