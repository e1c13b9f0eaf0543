package format

import (
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/multiio/internal/value"
)

// Registry maps format kinds to codecs and extensions to kinds.
//
// Thread-safety: registration is guarded by an internal mutex; once Freeze
// has been called the registry is read-only and lookups from any number of
// goroutines are safe.
type Registry struct {
	mu          sync.RWMutex
	codecs      map[Kind]Codec
	kinds       []Kind            // registration order
	byExt       map[string][]Kind // extension -> claiming kinds, registration order
	formatOrder []Kind
	frozen      bool
}

// RegistryOption configures a Registry at construction.
type RegistryOption func(*Registry)

// WithFormatOrder sets the tie-break order for extensions claimed by
// several formats.
func WithFormatOrder(order ...Kind) RegistryOption {
	return func(r *Registry) {
		r.formatOrder = slices.Clone(order)
	}
}

// New creates an empty registry.
func New(opts ...RegistryOption) *Registry {
	r := &Registry{
		codecs: make(map[Kind]Codec),
		byExt:  make(map[string][]Kind),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewDefault creates a registry with every builtin format registered.
func NewDefault(opts ...RegistryOption) *Registry {
	r := New(opts...)
	for _, k := range Builtins {
		codec, _ := NewBuiltin(k) // Builtins are always constructible
		_ = r.RegisterBuiltin(codec)
	}
	return r
}

// RegisterBuiltin adds a builtin codec.
// Fails with DuplicateFormat if its kind is already present.
func (r *Registry) RegisterBuiltin(codec Codec) error {
	if codec.Kind().IsCustom() {
		return &FormatError{Code: ErrCodeUnsupportedFormat, Kind: codec.Kind()}
	}
	return r.register(codec)
}

// RegisterCustom adds a custom codec.
// Fails with DuplicateFormat if the name is taken, including by a builtin
// name or alias.
func (r *Registry) RegisterCustom(codec Codec) error {
	kind := codec.Kind()
	if !kind.IsCustom() || kind.IsZero() {
		return &FormatError{Code: ErrCodeUnsupportedFormat, Kind: kind}
	}
	if isBuiltinName(kind.String()) {
		return &FormatError{Code: ErrCodeDuplicateFormat, Kind: kind}
	}
	return r.register(codec)
}

func (r *Registry) register(codec Codec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kind := codec.Kind()
	if r.frozen {
		return &FormatError{Code: ErrCodeRegistryFrozen, Kind: kind}
	}
	if _, exists := r.codecs[kind]; exists {
		return &FormatError{Code: ErrCodeDuplicateFormat, Kind: kind}
	}

	r.codecs[kind] = codec
	r.kinds = append(r.kinds, kind)
	for _, ext := range normalizeExtensions(codec.Extensions()) {
		if !slices.Contains(r.byExt[ext], kind) {
			r.byExt[ext] = append(r.byExt[ext], kind)
		}
	}
	return nil
}

// Freeze makes the registry immutable. Engines call it at construction so
// every engine sharing the registry sees a stable set of formats.
// Freeze is idempotent.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// SetFormatOrder replaces the default tie-break order.
// Fails with RegistryFrozen once the registry is frozen.
func (r *Registry) SetFormatOrder(order ...Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return &FormatError{Code: ErrCodeRegistryFrozen}
	}
	r.formatOrder = slices.Clone(order)
	return nil
}

// Extensions returns the extensions claimed by kind.
func (r *Registry) Extensions(kind Kind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[kind]
	if !ok {
		return nil
	}
	return normalizeExtensions(c.Extensions())
}

// Kinds returns the registered kinds in registration order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.kinds)
}

// FormatOrder returns the registry's default tie-break order.
func (r *Registry) FormatOrder() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.formatOrder)
}

// Has reports whether kind is registered.
func (r *Registry) Has(kind Kind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.codecs[kind]
	return ok
}

// Codec returns the codec registered for kind.
func (r *Registry) Codec(kind Kind) (Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[kind]
	if !ok {
		return nil, &FormatError{Code: ErrCodeUnsupportedFormat, Kind: kind}
	}
	return c, nil
}

// Lookup resolves a format name (with aliases) to a registered kind.
func (r *Registry) Lookup(name string) (Kind, error) {
	kind := ParseKind(name)
	if kind.IsZero() || !r.Has(kind) {
		return Kind{}, &FormatError{Code: ErrCodeUnsupportedFormat, Kind: kind}
	}
	return kind, nil
}

// Resolve determines the format of location using the registry's own
// format order. See ResolveWithOrder.
func (r *Registry) Resolve(location string, explicit Kind) (Kind, error) {
	return r.ResolveWithOrder(location, explicit, nil)
}

// ResolveWithOrder determines the format of location.
//
// A non-zero explicit kind is returned as-is: an explicit format is a
// caller override and is never second-guessed. Otherwise the lower-cased
// extension of location is looked up; one claimant wins outright, several
// are broken by order (falling back to the registry's format order), and
// none is UnsupportedFormat.
func (r *Registry) ResolveWithOrder(location string, explicit Kind, order []Kind) (Kind, error) {
	if !explicit.IsZero() {
		return explicit, nil
	}

	ext := Extension(location)
	if ext == "" {
		return Kind{}, &FormatError{Code: ErrCodeUnsupportedFormat, Location: location}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := r.byExt[ext]
	switch len(candidates) {
	case 0:
		return Kind{}, &FormatError{Code: ErrCodeUnsupportedFormat, Location: location, Extension: ext}
	case 1:
		return candidates[0], nil
	}

	if len(order) == 0 {
		order = r.formatOrder
	}
	for _, k := range order {
		if slices.Contains(candidates, k) {
			return k, nil
		}
	}
	return Kind{}, &FormatError{
		Code:       ErrCodeAmbiguousFormat,
		Location:   location,
		Extension:  ext,
		Candidates: slices.Clone(candidates),
	}
}

// Decode dispatches to the codec registered for kind.
func (r *Registry) Decode(kind Kind, data []byte) (value.Value, error) {
	c, err := r.Codec(kind)
	if err != nil {
		return nil, err
	}
	return c.Decode(data)
}

// Encode dispatches to the codec registered for kind.
func (r *Registry) Encode(kind Kind, v value.Value) ([]byte, error) {
	c, err := r.Codec(kind)
	if err != nil {
		return nil, err
	}
	return c.Encode(v)
}

// Extension returns the lower-cased extension of location without the dot.
// Standard-stream markers and in-memory names without a dot return "".
func Extension(location string) string {
	if location == "" || location == "-" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(location), "."))
}
