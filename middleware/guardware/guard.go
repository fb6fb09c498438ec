package guardware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

var (
	defaultTokenLookup       = "header:" + router.HeaderAuthorization
	ErrMissingOrMalformed    = errors.New("missing or malformed authorization header")
	ErrIdentityNotResolvable = errors.New("token subject resolves to no account")
	ErrIdentityLookupFailed  = errors.New("identity lookup failed")
)

// External reply bodies. Signature and expiry failures collapse into the
// generic invalid message so a caller cannot distinguish them.
const (
	MsgInvalidAuthHeader = "Invalid authorization header."
	MsgMalformedToken    = "Malformed token."
	MsgInvalidToken      = "Invalid token."
	MsgUserNotFound      = "User not found."
	MsgInternalError     = "Internal server error."
)

// TokenValidator mirrors the accounts package's validator to avoid an
// import cycle
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// Logger mirrors the accounts logger so the guard can report lookup
// failures without depending on the parent package
type Logger interface {
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}

// AuthClaims mirrors the structured claims interface from the accounts
// package
type AuthClaims interface {
	Subject() string
	UserID() string
	Email() string
	Role() string
	HasRole(role string) bool
	IsAtLeast(minRole string) bool
}

type Config struct {
	Filter         func(router.Context) bool
	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler
	ContextKey     string
	TokenLookup    string
	AuthScheme     string

	// TokenValidator is required for token validation
	TokenValidator TokenValidator

	// IdentityResolver resolves validated claims to a live account. When
	// set, a token whose subject no longer exists is rejected even though
	// the signature verified.
	IdentityResolver func(ctx context.Context, claims AuthClaims) (any, error)

	// IdentityContextKey is where the resolved identity is stored in the
	// router context. Only used when IdentityResolver is set.
	IdentityContextKey string

	// RequiredRole specifies an exact role that must be present
	RequiredRole string
	// MinimumRole specifies the minimum role level required (uses role hierarchy)
	MinimumRole string

	// ContextEnricher propagates claims to the standard Go context after
	// successful validation.
	ContextEnricher func(c context.Context, claims AuthClaims) context.Context

	// Logger receives internal guard failures, never token contents
	Logger Logger
}

// New builds the guard middleware. The sequence is fixed: extract header,
// validate token, check roles, resolve identity, attach, continue.
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			raw, err := ExtractRawTokenFromContext(ctx, cfg.getExtractors())
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			claims, err := cfg.TokenValidator.Validate(raw)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			if err := performAuthorizationChecks(claims, cfg); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			if cfg.IdentityResolver != nil {
				identity, err := cfg.IdentityResolver(ctx.Context(), claims)
				if err != nil {
					if isUnauthenticatedResolution(err) {
						return cfg.ErrorHandler(ctx, fmt.Errorf("%w: %v", ErrIdentityNotResolvable, err))
					}
					cfg.Logger.Error("identity resolution failed", "error", err)
					return cfg.ErrorHandler(ctx, fmt.Errorf("%w: %v", ErrIdentityLookupFailed, err))
				}
				ctx.Locals(cfg.IdentityContextKey, identity)
			}

			ctx.Locals(cfg.ContextKey, claims)

			if cfg.ContextEnricher != nil {
				stdCtx := ctx.Context()
				ctx.SetContext(cfg.ContextEnricher(stdCtx, claims))
			}

			return cfg.SuccessHandler(ctx)
		}
	}
}

// performAuthorizationChecks performs RBAC checks using the configured options
func performAuthorizationChecks(claims AuthClaims, cfg Config) error {
	if cfg.RequiredRole == "" && cfg.MinimumRole == "" {
		return nil
	}

	if cfg.RequiredRole != "" {
		if !claims.HasRole(cfg.RequiredRole) {
			return fmt.Errorf("access denied: required role '%s' not found", cfg.RequiredRole)
		}
	}

	if cfg.MinimumRole != "" {
		if !claims.IsAtLeast(cfg.MinimumRole) {
			return fmt.Errorf("access denied: minimum role '%s' required", cfg.MinimumRole)
		}
	}

	return nil
}

func ExtractRawTokenFromContext(ctx router.Context, extractors []TokenExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = DefaultErrorHandler
	}

	if cfg.TokenValidator == nil {
		panic("GUARD: middleware configuration: TokenValidator is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.IdentityContextKey == "" {
		cfg.IdentityContextKey = "identity"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}

	return cfg
}

// DefaultErrorHandler maps guard failures to the wire responses
func DefaultErrorHandler(c router.Context, err error) error {
	status, message := ClassifyForWire(err)
	return c.Status(status).SendString(message)
}

// ClassifyForWire narrows a guard failure to a status and body. Every
// authentication failure is 401; the body distinguishes only as far as the
// protocol allows. A broken identity lookup is the one server fault here
// and surfaces as an opaque 500. Custom error handlers can reuse it.
func ClassifyForWire(err error) (int, string) {
	switch {
	case errors.Is(err, ErrMissingOrMalformed):
		return router.StatusUnauthorized, MsgInvalidAuthHeader
	case errors.Is(err, ErrIdentityLookupFailed):
		return router.StatusInternalServerError, MsgInternalError
	case errors.Is(err, ErrIdentityNotResolvable):
		return router.StatusUnauthorized, MsgUserNotFound
	case isMalformedTokenError(err):
		return router.StatusUnauthorized, MsgMalformedToken
	default:
		return router.StatusUnauthorized, MsgInvalidToken
	}
}

func isMalformedTokenError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed")
}

// isUnauthenticatedResolution separates "the subject does not exist" from
// "the directory broke". Only the former may answer as a 401.
func isUnauthenticatedResolution(err error) bool {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		switch rich.Category {
		case goerrors.CategoryAuth, goerrors.CategoryAuthz, goerrors.CategoryNotFound:
			return true
		}
	}
	return goerrors.IsNotFound(err)
}

func (cfg *Config) getExtractors() []TokenExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func GetExtractors(tokenLookup string, authSchemes ...string) []TokenExtractor {
	extractors := make([]TokenExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	// header:Authorization,query:auth_token,param:token
	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, tokenFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, tokenFromQuery(parts[1]))
		case "param":
			extractors = append(extractors, tokenFromParam(parts[1]))
		case "cookie":
			extractors = append(extractors, tokenFromCookie(parts[1]))
		}
	}

	return extractors
}

type TokenExtractor func(c router.Context) (string, error)

// tokenFromHeader returns a function that extracts the token from the
// request header.
func tokenFromHeader(header string, authScheme string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		return ParseBearerToken(c.GetString(header, ""), authScheme)
	}
}

// ParseBearerToken pulls the raw token out of an Authorization header
// value. The scheme comparison is case insensitive, the token itself is
// passed through untouched.
func ParseBearerToken(headerValue, authScheme string) (string, error) {
	l := len(authScheme)
	if l == 0 {
		return "", ErrMissingOrMalformed
	}
	authScheme = strings.TrimSpace(authScheme)
	if len(headerValue) > l+1 && strings.EqualFold(headerValue[:l], authScheme) {
		token := strings.TrimSpace(headerValue[l:])
		if token == "" {
			return "", ErrMissingOrMalformed
		}
		return token, nil
	}
	return "", ErrMissingOrMalformed
}

// tokenFromQuery returns a function that extracts the token from the query string.
func tokenFromQuery(param string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrMissingOrMalformed
		}
		return token, nil
	}
}

// tokenFromParam returns a function that extracts the token from the url param string.
func tokenFromParam(param string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		token := c.Param(param)
		if token == "" {
			return "", ErrMissingOrMalformed
		}
		return token, nil
	}
}

// tokenFromCookie returns a function that extracts the token from the named cookie.
func tokenFromCookie(name string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrMissingOrMalformed
		}
		return token, nil
	}
}
