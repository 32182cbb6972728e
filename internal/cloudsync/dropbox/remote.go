// Package dropbox stores the sync file in a Dropbox app folder.
package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/mcoot/combattracker/internal/cloudsync"
	"github.com/mcoot/combattracker/internal/model"
)

// Config holds the app credentials and endpoints
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Path of the sync file inside the app folder
	Path string

	// Endpoints; overridden in tests
	AuthURL    string
	APIURL     string
	ContentURL string
}

// DefaultConfig returns the public Dropbox endpoints
func DefaultConfig() Config {
	return Config{
		Path:       "/combat-tracker.json",
		AuthURL:    "https://www.dropbox.com",
		APIURL:     "https://api.dropboxapi.com",
		ContentURL: "https://content.dropboxapi.com",
	}
}

// Remote talks to the Dropbox HTTP API
type Remote struct {
	oauth  *oauth2.Config
	config Config
}

// Ensure Remote implements the interface
var _ cloudsync.Remote = (*Remote)(nil)

// New creates a Dropbox remote
func New(cfg Config) *Remote {
	return &Remote{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   strings.TrimSuffix(cfg.AuthURL, "/") + "/oauth2/authorize",
				TokenURL:  strings.TrimSuffix(cfg.APIURL, "/") + "/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		config: cfg,
	}
}

func (r *Remote) Name() string {
	return "dropbox"
}

// AuthCodeURL requests offline access so a refresh token is issued
func (r *Remote) AuthCodeURL(state, verifier string) string {
	return r.oauth.AuthCodeURL(state,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("token_access_type", "offline"),
	)
}

func (r *Remote) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code is required", model.ErrInvalidValue)
	}
	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}
	return r.oauth.Exchange(ctx, code, opts...)
}

func (r *Remote) TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return r.oauth.TokenSource(ctx, tok)
}

func (r *Remote) Revoke(ctx context.Context, ts oauth2.TokenSource) error {
	resp, err := r.call(ctx, ts, r.config.APIURL+"/2/auth/token/revoke", nil, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (r *Remote) Download(ctx context.Context, ts oauth2.TokenSource) ([]byte, error) {
	arg := map[string]any{"path": r.config.Path}
	resp, err := r.call(ctx, ts, r.config.ContentURL+"/2/files/download", arg, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read download: %w", err)
	}
	return data, nil
}

func (r *Remote) Upload(ctx context.Context, ts oauth2.TokenSource, data []byte) error {
	arg := map[string]any{"path": r.config.Path, "mode": "overwrite", "mute": true}
	resp, err := r.call(ctx, ts, r.config.ContentURL+"/2/files/upload", arg, data)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// apiError is the error body of the Dropbox API
type apiError struct {
	Summary string `json:"error_summary"`
}

// call performs an RPC-style or content-style request. Content endpoints take
// their arguments in the Dropbox-API-Arg header.
func (r *Remote) call(ctx context.Context, ts oauth2.TokenSource, url string, arg map[string]any, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if arg != nil {
		header, err := json.Marshal(arg)
		if err != nil {
			return nil, fmt.Errorf("encode api arg: %w", err)
		}
		req.Header.Set("Dropbox-API-Arg", string(header))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}

	resp, err := oauth2.NewClient(ctx, ts).Do(req)
	if err != nil {
		return nil, fmt.Errorf("dropbox request: %w", err)
	}
	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr apiError
	_ = json.Unmarshal(raw, &apiErr)
	if resp.StatusCode == http.StatusConflict && strings.Contains(apiErr.Summary, "not_found") {
		return nil, cloudsync.ErrRemoteNotFound
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: %s", model.ErrNotAuthorized, strings.TrimSpace(string(raw)))
	}
	return nil, fmt.Errorf("dropbox %s: status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(raw)))
}
