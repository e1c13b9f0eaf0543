// Package endpoint provides the byte-level capabilities a pipeline reads
// from and writes to: files, the process standard streams, and in-memory
// buffers.
//
// A Provider hands out a reader over one source; a Target accepts one
// complete payload. Targets never expose partial writes: a file target
// writes through a temporary file and renames it into place, so a failed
// or cancelled write leaves the previous content untouched.
//
// Every reader returned by a Provider strips a leading UTF-8 BOM and
// transcodes UTF-16 input (detected by its BOM) to UTF-8.
package endpoint
