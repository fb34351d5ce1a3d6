// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services consume them. Keeping the package
// free of net/http lets services read the actor's identity without pulling in
// transport code, and lets tests inject identities and clocks directly.
//
// Usage in services (read values):
//
//	actor := requestcontext.Actor(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware and tests (set values):
//
//	ctx = requestcontext.WithActor(ctx, actor)
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "charter/pkg/domain"
)

// ActorIdentity is the authenticated caller as asserted by the identity
// provider: who they are, what authority they hold, and over which region.
type ActorIdentity struct {
	AccountID id.AccountID
	Role      id.Role
	RegionID  id.RegionID
}

// IsZero reports whether no identity was attached to the request.
func (a ActorIdentity) IsZero() bool {
	return a.AccountID.IsNil()
}

type (
	actorKey       struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
	deviceKey      struct{}
)

// Actor retrieves the authenticated actor from the context. Returns the zero
// identity if the request is unauthenticated.
func Actor(ctx context.Context) ActorIdentity {
	if actor, ok := ctx.Value(actorKey{}).(ActorIdentity); ok {
		return actor
	}
	return ActorIdentity{}
}

// WithActor injects the authenticated actor into the context.
func WithActor(ctx context.Context, actor ActorIdentity) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// RequestID retrieves the request correlation id, or "" if unset.
func RequestID(ctx context.Context) string {
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok {
		return rid
	}
	return ""
}

// WithRequestID injects a request correlation id into the context.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// Now returns the request time if middleware pinned one, else the wall clock.
// Pinning keeps every timestamp within one request consistent and lets tests
// freeze time.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the request time in the context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// Device retrieves the caller's device summary ("Chrome 126 on Linux"), or ""
// if unset. Used only to enrich audit events.
func Device(ctx context.Context) string {
	if d, ok := ctx.Value(deviceKey{}).(string); ok {
		return d
	}
	return ""
}

// WithDevice injects a device summary into the context.
func WithDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, deviceKey{}, device)
}
