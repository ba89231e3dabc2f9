package middleware

import "context"

type actorKey struct{}

// actor is the authenticated caller. Each With* call stores a modified copy
// so values set upstream are never mutated.
type actor struct {
	userID   string
	role     string
	vendorID string
}

func actorFrom(ctx context.Context) actor {
	if ctx == nil {
		return actor{}
	}
	a, _ := ctx.Value(actorKey{}).(actor)
	return a
}

func withActor(ctx context.Context, edit func(*actor)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	a := actorFrom(ctx)
	edit(&a)
	return context.WithValue(ctx, actorKey{}, a)
}

func UserIDFromContext(ctx context.Context) string { return actorFrom(ctx).userID }

func RoleFromContext(ctx context.Context) string { return actorFrom(ctx).role }

// VendorIDFromContext returns the vendor profile id resolved by VendorContext.
func VendorIDFromContext(ctx context.Context) string { return actorFrom(ctx).vendorID }

func WithUserID(ctx context.Context, userID string) context.Context {
	return withActor(ctx, func(a *actor) { a.userID = userID })
}

func WithRole(ctx context.Context, role string) context.Context {
	return withActor(ctx, func(a *actor) { a.role = role })
}

func WithVendorID(ctx context.Context, vendorID string) context.Context {
	return withActor(ctx, func(a *actor) { a.vendorID = vendorID })
}
