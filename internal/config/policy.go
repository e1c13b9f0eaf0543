package config

import (
	"fmt"
	"strings"
)

// ErrorPolicy governs every multi-item operation: reading N inputs, writing
// M outputs, and decoding a record stream.
type ErrorPolicy string

const (
	// Accumulate attempts every item and reports all failures together.
	Accumulate ErrorPolicy = "accumulate"

	// FastFail stops at the first failure.
	FastFail ErrorPolicy = "fast_fail"
)

// DefaultPolicy is used when a configuration leaves error_policy unset.
const DefaultPolicy = Accumulate

// ParseErrorPolicy parses "accumulate", "fast_fail" or "fastfail"
// (case-insensitive). The empty string yields DefaultPolicy.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultPolicy, nil
	case "accumulate":
		return Accumulate, nil
	case "fast_fail", "fastfail", "fast-fail":
		return FastFail, nil
	default:
		return "", fmt.Errorf("unknown error policy %q (want fast_fail or accumulate)", s)
	}
}

// IsFastFail reports whether p stops at the first failure.
func (p ErrorPolicy) IsFastFail() bool {
	return p == FastFail
}

// String returns the canonical policy name.
func (p ErrorPolicy) String() string {
	if p == "" {
		return string(DefaultPolicy)
	}
	return string(p)
}

// UnmarshalText implements encoding.TextUnmarshaler so YAML, JSON and CUE
// configs accept every spelling ParseErrorPolicy does.
func (p *ErrorPolicy) UnmarshalText(text []byte) error {
	parsed, err := ParseErrorPolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
