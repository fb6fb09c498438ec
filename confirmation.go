package accounts

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultConfirmationTTL is the window a confirmation link stays valid
const DefaultConfirmationTTL = 48 * time.Hour

// 16 bytes of CSPRNG output, 128 bits of entropy per token
const confirmationTokenBytes = 16

// ConfirmationIssuer generates opaque, unguessable confirmation tokens with
// a fixed validity window. It does no I/O and keeps no state.
type ConfirmationIssuer struct {
	ttl time.Duration
}

var _ ConfirmationTokenIssuer = (*ConfirmationIssuer)(nil)

// NewConfirmationIssuer creates an issuer. A non positive ttl falls back to
// DefaultConfirmationTTL.
func NewConfirmationIssuer(ttl time.Duration) *ConfirmationIssuer {
	if ttl <= 0 {
		ttl = DefaultConfirmationTTL
	}
	return &ConfirmationIssuer{ttl: ttl}
}

// Issue returns a new token and the moment it stops being accepted
func (g *ConfirmationIssuer) Issue() (string, time.Time, error) {
	buf := make([]byte, confirmationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", time.Time{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate confirmation token")
	}

	return base64.RawURLEncoding.EncodeToString(buf), time.Now().Add(g.ttl), nil
}
