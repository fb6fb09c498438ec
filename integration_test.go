package accounts_test

import (
	"context"
	"testing"
	"time"

	accounts "github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Walks the whole lifecycle against the in-memory directory: register a
// pending account, confirm it through the emailed token, log in, and
// resolve the issued session token back to the identity.
func TestRegistrationConfirmationLoginFlow(t *testing.T) {
	ctx := context.Background()
	frontend := "https://app.example.com"

	store := newFakeAccounts()
	repo := &fakeRepoManager{accounts: store}
	mailer := &fakeMailer{}
	issuer := accounts.NewConfirmationIssuer(48 * time.Hour)

	provider := accounts.NewAccountProvider(store).WithLogger(noopLogger{})
	auther := accounts.NewAuthenticator(provider, testConfig()).WithLogger(noopLogger{})

	// register
	register := accounts.NewRegisterAccountHandler(repo, issuer, mailer, frontend).
		WithLogger(noopLogger{})

	var registerRes *accounts.RegisterAccountResponse
	err := register.Execute(ctx, accounts.RegisterAccountMessage{
		FirstName: "Pepe",
		LastName:  "Rone",
		Email:     "pepe@example.com",
		Password:  "flowPassword1!",
		OnResponse: func(resp *accounts.RegisterAccountResponse) {
			registerRes = resp
		},
	})
	require.NoError(t, err)
	assert.Equal(t, accounts.MsgRegistrationReceived, registerRes.Message)

	require.Len(t, store.registered, 1)
	created := store.registered[0]
	require.NotNil(t, created.ConfirmationToken)
	token := *created.ConfirmationToken

	// the response never leaks the token, only the email carries it
	require.Len(t, mailer.messages, 1)
	link, _ := mailer.messages[0].Context["confirm_link"].(string)
	assert.Contains(t, link, token)

	// login works even before confirmation
	preToken, _, err := auther.Login(ctx, "pepe@example.com", "flowPassword1!")
	require.NoError(t, err)
	assert.NotEmpty(t, preToken)

	// confirm
	confirm := accounts.NewConfirmAccountHandler(repo)

	var confirmRes *accounts.ConfirmAccountResponse
	err = confirm.Execute(ctx, accounts.ConfirmAccountMessage{
		Token: token,
		OnResponse: func(resp *accounts.ConfirmAccountResponse) {
			confirmRes = resp
		},
	})
	require.NoError(t, err)
	assert.True(t, confirmRes.Confirmed)
	assert.Equal(t, accounts.MsgConfirmationSucceeded, confirmRes.Message)

	// confirming again is idempotent
	err = confirm.Execute(ctx, accounts.ConfirmAccountMessage{
		Token: token,
		OnResponse: func(resp *accounts.ConfirmAccountResponse) {
			confirmRes = resp
		},
	})
	require.NoError(t, err)
	assert.Equal(t, accounts.MsgAlreadyConfirmed, confirmRes.Message)

	// login and resolve the session token
	sessionToken, identity, err := auther.Login(ctx, "pepe@example.com", "flowPassword1!")
	require.NoError(t, err)
	assert.Equal(t, "user", identity.Role())

	claims, err := auther.TokenService().Validate(sessionToken)
	require.NoError(t, err)
	assert.Equal(t, created.ID.String(), claims.UserID())
	assert.Equal(t, "pepe@example.com", claims.Email())

	resolved, err := auther.IdentityFromToken(ctx, sessionToken)
	require.NoError(t, err)
	assert.Equal(t, created.ID.String(), resolved.ID())

	// the directory lists the one confirmed account
	records, total, err := repo.Accounts().List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, records, 1)
	assert.True(t, records[0].Confirmed)

	// wrong password still fails after confirmation
	_, _, err = auther.Login(ctx, "pepe@example.com", "wrongPassword1!")
	assert.True(t, goerrors.Is(err, accounts.ErrMismatchedHashAndPassword))
}
