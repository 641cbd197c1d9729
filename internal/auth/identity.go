package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Identity is the authenticated caller. Handlers pass it explicitly into
// services, which scope every read and write by UserID.
type Identity struct {
	UserID uuid.UUID
	Token  string
}

type identityKey struct{}

// WithIdentity attaches id to ctx. Only the auth middleware calls this.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != uuid.Nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
