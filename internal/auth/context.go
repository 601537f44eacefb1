package auth

import "context"

type contextKey string

const memberKey contextKey = "member"

// WithMember stores the authenticated member on ctx.
func WithMember(ctx context.Context, m Member) context.Context {
	return context.WithValue(ctx, memberKey, m)
}

// MemberFromContext returns the authenticated member if present.
func MemberFromContext(ctx context.Context) (Member, bool) {
	m, ok := ctx.Value(memberKey).(Member)
	return m, ok
}
