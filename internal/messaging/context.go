package messaging

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// DocumentHost creates and reports the auxiliary execution context. Its
// lifetime belongs to the host; this package never destroys it.
type DocumentHost interface {
	HasDocument() bool
	CreateDocument(ctx context.Context) error
}

// ContextManager guards creation of the auxiliary context so that
// concurrent callers share a single creation.
type ContextManager struct {
	host    DocumentHost
	pending singleflight.Group
}

// NewContextManager returns a manager for host.
func NewContextManager(host DocumentHost) *ContextManager {
	return &ContextManager{host: host}
}

// EnsureContext returns once the auxiliary context exists. If a creation is
// already in flight the caller waits for that one; otherwise it starts one.
// The creation is not tied to any single caller's cancellation, but each
// caller stops waiting when its own ctx ends.
func (m *ContextManager) EnsureContext(ctx context.Context) error {
	if m.host.HasDocument() {
		return nil
	}
	createCtx := context.WithoutCancel(ctx)
	ch := m.pending.DoChan("create", func() (any, error) {
		// A creation may have finished between the check above and here.
		if m.host.HasDocument() {
			return nil, nil
		}
		return nil, m.host.CreateDocument(createCtx)
	})
	select {
	case r := <-ch:
		return r.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}
