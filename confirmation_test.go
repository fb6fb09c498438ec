package accounts_test

import (
	"testing"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
)

func TestConfirmationIssuerIssue(t *testing.T) {
	issuer := accounts.NewConfirmationIssuer(accounts.DefaultConfirmationTTL)

	before := time.Now()
	token, expiresAt, err := issuer.Issue()
	after := time.Now()

	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	// 16 random bytes, base64url without padding
	assert.Len(t, token, 22)
	assert.NotContains(t, token, "=")
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")

	assert.True(t, expiresAt.After(before.Add(48*time.Hour-time.Second)))
	assert.True(t, expiresAt.Before(after.Add(48*time.Hour+time.Second)))
}

func TestConfirmationIssuerTokensAreUnique(t *testing.T) {
	issuer := accounts.NewConfirmationIssuer(0)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token, _, err := issuer.Issue()
		assert.NoError(t, err)
		assert.False(t, seen[token], "token issued twice")
		seen[token] = true
	}
}

func TestConfirmationIssuerCustomTTL(t *testing.T) {
	issuer := accounts.NewConfirmationIssuer(time.Hour)

	_, expiresAt, err := issuer.Issue()
	assert.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 2*time.Second)
}
