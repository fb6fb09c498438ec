package accounts

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeTokenMalformed identifies tokens that could not be parsed
	TextCodeTokenMalformed = "TOKEN_MALFORMED"
	// TextCodeTokenSignature identifies tokens whose signature does not verify
	TextCodeTokenSignature = "TOKEN_SIGNATURE_INVALID"
	// TextCodeTokenExpired identifies tokens past their expiry
	TextCodeTokenExpired = "TOKEN_EXPIRED"
	// TextCodeInvalidCredentials is the shared code for any credential failure
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	// TextCodeEmailTaken identifies registration against an existing email
	TextCodeEmailTaken = "EMAIL_TAKEN"
)

// ErrTokenMalformed is returned when a token cannot be parsed at all
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed)

// ErrTokenSignature is returned when a token parses but its signature does
// not match the signing key. Covers tampering and wrong-key tokens alike.
var ErrTokenSignature = goerrors.New("token signature is invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenSignature)

// ErrTokenExpired is returned for a well signed token past its expiry
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired)

// ErrMismatchedHashAndPassword is the single generic failure for both an
// unknown email and a wrong password. Callers must not narrow it.
var ErrMismatchedHashAndPassword = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials)

// ErrUnableToDecodeSession unable to decode claims from a parsed token
var ErrUnableToDecodeSession = goerrors.New("unable to decode session", goerrors.CategoryAuth)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryAuth)

// ErrNoEmptyString rejects empty passwords before hashing
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation)

// ErrPasswordTooLong is returned when the plaintext exceeds the input limit
// of the hashing algorithm. Realistic passwords never trigger it.
var ErrPasswordTooLong = goerrors.New("password exceeds hash input limit", goerrors.CategoryValidation).
	WithTextCode("PASSWORD_TOO_LONG")

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed")
}
