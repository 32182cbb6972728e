// Package memory is an in-process sync remote for development and tests.
package memory

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/oauth2"

	"github.com/mcoot/combattracker/internal/cloudsync"
	"github.com/mcoot/combattracker/internal/model"
)

// Remote keeps the sync file in memory
type Remote struct {
	mu      sync.Mutex
	data    []byte
	revoked []string

	// Err, when set, is returned by Download and Upload
	Err error
}

// Ensure Remote implements the interface
var _ cloudsync.Remote = (*Remote)(nil)

// New creates an empty remote
func New() *Remote {
	return &Remote{}
}

func (r *Remote) Name() string {
	return "memory"
}

func (r *Remote) AuthCodeURL(state, verifier string) string {
	q := url.Values{"state": {state}}
	return "memory://authorize?" + q.Encode()
}

// Exchange accepts any non-empty code as the access token
func (r *Remote) Exchange(_ context.Context, code, _ string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code is required", model.ErrInvalidValue)
	}
	return &oauth2.Token{AccessToken: code, TokenType: "Bearer"}, nil
}

func (r *Remote) TokenSource(_ context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return oauth2.StaticTokenSource(tok)
}

func (r *Remote) Revoke(_ context.Context, ts oauth2.TokenSource) error {
	tok, err := ts.Token()
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked = append(r.revoked, tok.AccessToken)
	return nil
}

// Revoked lists the access tokens passed to Revoke
func (r *Remote) Revoked() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.revoked...)
}

func (r *Remote) Download(_ context.Context, ts oauth2.TokenSource) ([]byte, error) {
	if _, err := ts.Token(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	if r.data == nil {
		return nil, cloudsync.ErrRemoteNotFound
	}
	return append([]byte(nil), r.data...), nil
}

func (r *Remote) Upload(_ context.Context, ts oauth2.TokenSource, data []byte) error {
	if _, err := ts.Token(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.data = append([]byte(nil), data...)
	return nil
}

// Data returns the stored file, or nil
func (r *Remote) Data() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data
}

// SetData replaces the stored file
func (r *Remote) SetData(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = data
}
