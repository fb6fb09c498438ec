package accounts_test

import (
	"context"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
)

func TestIdentityContextRoundTrip(t *testing.T) {
	identity := testIdentity("user-1", "pepe@example.com", "user")

	ctx := accounts.WithIdentity(context.Background(), identity)

	got, ok := accounts.IdentityFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "user-1", got.ID())
}

func TestIdentityFromContextMissing(t *testing.T) {
	_, ok := accounts.IdentityFromContext(context.Background())
	assert.False(t, ok)
}

func TestClaimsContextRoundTrip(t *testing.T) {
	claims := &accounts.SessionClaims{UID: "user-2", UserRole: "admin"}

	ctx := accounts.WithClaimsContext(context.Background(), claims)

	got, ok := accounts.GetClaims(ctx)
	assert.True(t, ok)
	assert.Equal(t, "user-2", got.UserID())
	assert.Equal(t, "admin", got.Role())
}

func TestGetClaimsMissing(t *testing.T) {
	_, ok := accounts.GetClaims(context.Background())
	assert.False(t, ok)
}
