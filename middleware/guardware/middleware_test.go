package guardware_test

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/mock"

	"github.com/goliatone/go-accounts/middleware/guardware"
)

type fakeClaims struct {
	subject string
	role    string
}

func (c fakeClaims) Subject() string { return c.subject }
func (c fakeClaims) UserID() string  { return c.subject }
func (c fakeClaims) Email() string   { return "" }
func (c fakeClaims) Role() string    { return c.role }

func (c fakeClaims) HasRole(role string) bool { return c.role == role }

func (c fakeClaims) IsAtLeast(minRole string) bool { return c.role == minRole }

// fakeValidator hands back a canned result so each test controls the
// validation outcome without minting real tokens
type fakeValidator struct {
	claims guardware.AuthClaims
	err    error
}

func (v fakeValidator) Validate(string) (guardware.AuthClaims, error) {
	return v.claims, v.err
}

func passthroughErr(c router.Context, err error) error {
	return err
}

func TestGuard_ValidTokenAttachesIdentity(t *testing.T) {
	var resolvedSubject string

	cfg := guardware.Config{
		TokenValidator: fakeValidator{claims: fakeClaims{subject: "acc-1", role: "user"}},
		ErrorHandler:   passthroughErr,
		IdentityResolver: func(ctx context.Context, claims guardware.AuthClaims) (any, error) {
			resolvedSubject = claims.UserID()
			return "identity:" + claims.UserID(), nil
		},
	}

	middleware := guardware.New(cfg)(func(router.Context) error { return nil })

	ctx := router.NewMockContext()
	ctx.HeadersM["Authorization"] = "Bearer some.signed.token"
	ctx.On("GetString", "Authorization", "").Return("Bearer some.signed.token")
	ctx.On("Context").Return(context.Background()).Maybe()
	ctx.On("Locals", "identity", mock.Anything).Return(nil)
	ctx.On("Locals", "user", mock.Anything).Return(nil)

	if err := middleware(ctx); err != nil {
		t.Fatalf("unexpected error for valid token: %v", err)
	}
	if !ctx.NextCalled {
		t.Error("expected the request to continue to the handler")
	}
	if resolvedSubject != "acc-1" {
		t.Errorf("expected resolver to receive subject acc-1, got %q", resolvedSubject)
	}
}

func TestGuard_MissingHeaderRejectsBeforeValidation(t *testing.T) {
	validated := false

	cfg := guardware.Config{
		TokenValidator: validatorSpy{&validated},
		ErrorHandler:   passthroughErr,
	}
	middleware := guardware.New(cfg)(func(router.Context) error { return nil })

	ctx := router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("")

	err := middleware(ctx)
	if !errors.Is(err, guardware.ErrMissingOrMalformed) {
		t.Fatalf("expected missing header rejection, got: %v", err)
	}
	if validated {
		t.Error("validator must not run when no token was extracted")
	}
	if ctx.NextCalled {
		t.Error("request must not reach the handler")
	}
}

type validatorSpy struct{ called *bool }

func (v validatorSpy) Validate(string) (guardware.AuthClaims, error) {
	*v.called = true
	return nil, errors.New("token is malformed: spy")
}

func TestGuard_ExpiredAndTamperedCollapse(t *testing.T) {
	tests := []struct {
		name        string
		validateErr error
	}{
		{name: "expired token", validateErr: errors.New("token is expired")},
		{name: "bad signature", validateErr: errors.New("token signature is invalid")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := guardware.Config{
				TokenValidator: fakeValidator{err: tt.validateErr},
				ErrorHandler:   passthroughErr,
			}
			middleware := guardware.New(cfg)(func(router.Context) error { return nil })

			ctx := router.NewMockContext()
			ctx.HeadersM["Authorization"] = "Bearer whatever.token.here"
			ctx.On("GetString", "Authorization", "").Return("Bearer whatever.token.here")

			err := middleware(ctx)
			if err == nil {
				t.Fatal("expected rejection, got nil")
			}
			if ctx.NextCalled {
				t.Error("request must not reach the handler")
			}
			// both land on the generic invalid reply
			if _, msg := guardware.ClassifyForWire(err); msg != guardware.MsgInvalidToken {
				t.Errorf("expected %q, got %q", guardware.MsgInvalidToken, msg)
			}
		})
	}
}

func TestGuard_MalformedTokenIsDistinct(t *testing.T) {
	cfg := guardware.Config{
		TokenValidator: fakeValidator{err: errors.New("token is malformed: could not base64 decode")},
		ErrorHandler:   passthroughErr,
	}
	middleware := guardware.New(cfg)(func(router.Context) error { return nil })

	ctx := router.NewMockContext()
	ctx.HeadersM["Authorization"] = "Bearer not-a-jwt"
	ctx.On("GetString", "Authorization", "").Return("Bearer not-a-jwt")

	err := middleware(ctx)
	if err == nil {
		t.Fatal("expected rejection, got nil")
	}
	if _, msg := guardware.ClassifyForWire(err); msg != guardware.MsgMalformedToken {
		t.Errorf("expected %q, got %q", guardware.MsgMalformedToken, msg)
	}
}

func TestGuard_UnresolvableSubjectIsUnauthenticated(t *testing.T) {
	cfg := guardware.Config{
		TokenValidator: fakeValidator{claims: fakeClaims{subject: "ghost"}},
		ErrorHandler:   passthroughErr,
		IdentityResolver: func(ctx context.Context, claims guardware.AuthClaims) (any, error) {
			return nil, goerrors.New("identity not found", goerrors.CategoryAuth)
		},
	}
	middleware := guardware.New(cfg)(func(router.Context) error { return nil })

	ctx := router.NewMockContext()
	ctx.HeadersM["Authorization"] = "Bearer some.signed.token"
	ctx.On("GetString", "Authorization", "").Return("Bearer some.signed.token")
	ctx.On("Context").Return(context.Background()).Maybe()

	err := middleware(ctx)
	if !errors.Is(err, guardware.ErrIdentityNotResolvable) {
		t.Fatalf("expected unresolvable identity rejection, got: %v", err)
	}
	if ctx.NextCalled {
		t.Error("request must not reach the handler")
	}

	status, msg := guardware.ClassifyForWire(err)
	if status != router.StatusUnauthorized || msg != guardware.MsgUserNotFound {
		t.Errorf("expected 401 %q, got %d %q", guardware.MsgUserNotFound, status, msg)
	}
}

func TestGuard_DirectoryFailureIsNotUnauthenticated(t *testing.T) {
	cfg := guardware.Config{
		TokenValidator: fakeValidator{claims: fakeClaims{subject: "acc-1"}},
		ErrorHandler:   passthroughErr,
		IdentityResolver: func(ctx context.Context, claims guardware.AuthClaims) (any, error) {
			return nil, errors.New("connection refused")
		},
	}
	middleware := guardware.New(cfg)(func(router.Context) error { return nil })

	ctx := router.NewMockContext()
	ctx.HeadersM["Authorization"] = "Bearer some.signed.token"
	ctx.On("GetString", "Authorization", "").Return("Bearer some.signed.token")
	ctx.On("Context").Return(context.Background()).Maybe()

	err := middleware(ctx)
	if !errors.Is(err, guardware.ErrIdentityLookupFailed) {
		t.Fatalf("expected lookup failure, got: %v", err)
	}
	if errors.Is(err, guardware.ErrIdentityNotResolvable) {
		t.Error("a broken directory must not look like a missing user")
	}

	status, msg := guardware.ClassifyForWire(err)
	if status != router.StatusInternalServerError || msg != guardware.MsgInternalError {
		t.Errorf("expected 500 %q, got %d %q", guardware.MsgInternalError, status, msg)
	}
}

func TestGuard_FilterSkipsAuthentication(t *testing.T) {
	cfg := guardware.Config{
		TokenValidator: fakeValidator{err: errors.New("should never run")},
		ErrorHandler:   passthroughErr,
		Filter: func(router.Context) bool {
			return true
		},
	}
	middleware := guardware.New(cfg)(func(router.Context) error { return nil })

	ctx := router.NewMockContext()

	if err := middleware(ctx); err != nil {
		t.Fatalf("expected filtered request to pass, got: %v", err)
	}
	if !ctx.NextCalled {
		t.Error("filtered request should continue to the handler")
	}
}
