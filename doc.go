// Package accounts provides user-account management: bcrypt credential
// hashing, email confirmation with opaque time-boxed tokens, HS256 session
// tokens, and a bearer-token guard middleware for protecting routes.
//
// The package is transport agnostic at its core; HTTP controllers built on
// go-router are provided for the common JSON API surface, and cmd/server
// assembles a runnable service.
package accounts
