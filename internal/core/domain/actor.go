package domain

import "context"

type actorKey struct{}

// SystemActor is recorded in audit columns when no authenticated user is
// attached to the context (bootstrap, background jobs, tests).
const SystemActor = "system"

// WithActor returns a copy of ctx carrying the name of the acting user.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the acting user stored in ctx, or SystemActor.
func ActorFrom(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return SystemActor
}
