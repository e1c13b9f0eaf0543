// Package records decodes sources incrementally into a lazy, single-pass
// sequence of values.
//
// A Stream pulls one record at a time and decodes only as much of its
// source as that record needs: one JSON Lines line, one CSV row after the
// header, one YAML document, one line of plain text. Formats without a
// record boundary are decoded whole; a top-level array then yields one
// record per element.
//
// Decode failures travel in-band as Items carrying an error. Under the
// accumulate policy the stream moves on to the next record; under
// fast-fail it ends right after the failing item.
package records
