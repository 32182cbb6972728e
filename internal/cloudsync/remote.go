// Package cloudsync mirrors the local collections to a cloud file.
//
// The policy is last-write-wins on the whole blob: whichever side carries the
// newer lastSynced timestamp replaces the other. There is no merge and no retry.
package cloudsync

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
)

// ErrRemoteNotFound is returned by a Remote when no file has been uploaded yet
var ErrRemoteNotFound = errors.New("remote file not found")

// Remote is a cloud file store reached with OAuth2-style credentials
type Remote interface {
	// Name identifies the provider in logs and status responses
	Name() string

	// AuthCodeURL returns the URL the user visits to grant access, or ""
	// when the provider needs no browser step
	AuthCodeURL(state, verifier string) string

	// Exchange turns an authorization code into credentials
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)

	// TokenSource refreshes credentials as needed
	TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource

	// Revoke invalidates credentials with the provider
	Revoke(ctx context.Context, ts oauth2.TokenSource) error

	Download(ctx context.Context, ts oauth2.TokenSource) ([]byte, error)
	Upload(ctx context.Context, ts oauth2.TokenSource, data []byte) error
}
