package testutil

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/roach88/multiio/internal/endpoint"
)

// OpenLog records which providers were opened, in order.
//
// Thread-safety: all methods are safe for concurrent use.
type OpenLog struct {
	mu     sync.Mutex
	opened []string
}

// Add records an open of id.
func (l *OpenLog) Add(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opened = append(l.opened, id)
}

// Opened returns the ids opened so far.
func (l *OpenLog) Opened() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.opened...)
}

// Has reports whether id was opened.
func (l *OpenLog) Has(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, o := range l.opened {
		if o == id {
			return true
		}
	}
	return false
}

// StubProvider serves fixed text under a location, recording every open.
// Delay postpones the open, which scrambles completion order when several
// stubs are read concurrently.
type StubProvider struct {
	IDValue string
	Loc     string
	Text    string
	Delay   time.Duration
	OpenErr error
	Log     *OpenLog
}

// NewStub creates a stub provider. The location decides format inference.
func NewStub(id, location, text string, log *OpenLog) *StubProvider {
	return &StubProvider{IDValue: id, Loc: location, Text: text, Log: log}
}

// ID implements endpoint.Provider.
func (p *StubProvider) ID() string { return p.IDValue }

// Location implements endpoint.Provider.
func (p *StubProvider) Location() string { return p.Loc }

// Open implements endpoint.Provider.
func (p *StubProvider) Open(ctx context.Context) (io.ReadCloser, error) {
	if p.Log != nil {
		p.Log.Add(p.IDValue)
	}
	if p.Delay > 0 {
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.OpenErr != nil {
		return nil, p.OpenErr
	}
	return io.NopCloser(strings.NewReader(p.Text)), nil
}

// ErrInjected is the cause used by failing doubles.
var ErrInjected = errors.New("injected failure")

// FailingTarget rejects every write.
type FailingTarget struct {
	IDValue string
	Loc     string
}

// ID implements endpoint.Target.
func (t *FailingTarget) ID() string { return t.IDValue }

// Location implements endpoint.Target.
func (t *FailingTarget) Location() string { return t.Loc }

// Write implements endpoint.Target.
func (t *FailingTarget) Write(context.Context, []byte) error {
	return &endpoint.IOError{Code: endpoint.ErrCodePermissionDenied, Op: "write", Location: t.Loc, Err: ErrInjected}
}

// CancelingTarget cancels a context the first time it is written to, then
// stores the payload like a memory target.
type CancelingTarget struct {
	*endpoint.MemoryTarget
	Cancel context.CancelFunc
}

// Write implements endpoint.Target.
func (t *CancelingTarget) Write(ctx context.Context, data []byte) error {
	err := t.MemoryTarget.Write(ctx, data)
	t.Cancel()
	return err
}
