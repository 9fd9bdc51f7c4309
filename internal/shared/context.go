package shared

import "context"

type sessionContextKey struct{}

type actorContextKey struct{}

// Actor is the authenticated staff member performing a request.
type Actor struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithActor stores the resolved actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the actor resolved for the request. Bearer tokens take
// precedence over the cookie session.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if actor, ok := ctx.Value(actorContextKey{}).(Actor); ok && actor.UserID != 0 {
		return actor, true
	}
	return SessionFromContext(ctx).Actor()
}
