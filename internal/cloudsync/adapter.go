package cloudsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/oauth2"

	"github.com/mcoot/combattracker/internal/dependencies/clock"
	"github.com/mcoot/combattracker/internal/dependencies/random"
	"github.com/mcoot/combattracker/internal/model"
	"github.com/mcoot/combattracker/internal/storage"
)

// Direction says which side won a sync
type Direction string

const (
	Pulled Direction = "pulled" // Remote replaced local
	Pushed Direction = "pushed" // Local replaced remote
)

// Result describes a completed sync
type Result struct {
	Direction  Direction `json:"direction"`
	LastSynced int64     `json:"lastSynced"`
}

// Adapter syncs the local key-value store with a Remote
type Adapter struct {
	kv      storage.KV
	locks   *storage.KeyLocks
	remote  Remote
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
	running atomic.Bool
}

// New creates a sync adapter. Reading and replacing local collections holds
// every collection key in locks, so provider writes never interleave.
func New(kv storage.KV, locks *storage.KeyLocks, remote Remote, clk clock.Clock, rnd random.Random, logger *slog.Logger) *Adapter {
	return &Adapter{
		kv:     kv,
		locks:  locks,
		remote: remote,
		clock:  clk,
		random: rnd,
		logger: logger.With(slog.String("provider", remote.Name())),
	}
}

// Provider returns the remote's name
func (a *Adapter) Provider() string {
	return a.remote.Name()
}

// AuthorizationURL starts authorization. The PKCE verifier is kept until
// Authorize is called.
func (a *Adapter) AuthorizationURL(ctx context.Context) (string, error) {
	verifier := oauth2.GenerateVerifier()
	if err := a.kv.Set(ctx, storage.KeySyncVerifier, verifier); err != nil {
		return "", fmt.Errorf("store verifier: %w", err)
	}
	return a.remote.AuthCodeURL(a.random.ID(), verifier), nil
}

// Authorize exchanges an authorization code for credentials and stores them
func (a *Adapter) Authorize(ctx context.Context, code string) error {
	verifier, _, err := a.kv.Get(ctx, storage.KeySyncVerifier)
	if err != nil {
		return fmt.Errorf("read verifier: %w", err)
	}
	tok, err := a.remote.Exchange(ctx, code, verifier)
	if err != nil {
		return fmt.Errorf("exchange code: %w", err)
	}
	if err := a.saveToken(ctx, tok); err != nil {
		return err
	}
	if err := a.kv.Delete(ctx, storage.KeySyncVerifier); err != nil {
		return fmt.Errorf("clear verifier: %w", err)
	}
	a.logger.Info("sync authorized")
	return nil
}

// Revoke forgets the stored credentials. A failure to revoke them remotely
// is logged and does not stop the local sign-out.
func (a *Adapter) Revoke(ctx context.Context) error {
	tok, err := a.loadToken(ctx)
	if err != nil {
		return err
	}
	if tok != nil {
		if err := a.remote.Revoke(ctx, a.remote.TokenSource(ctx, tok)); err != nil {
			a.logger.Warn("remote revoke failed", slog.String("error", err.Error()))
		}
	}
	for _, key := range []string{storage.KeySyncToken, storage.KeySyncVerifier, storage.KeyLastSynced} {
		if err := a.kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	a.logger.Info("sync revoked")
	return nil
}

// IsAuthorized reports whether credentials are stored
func (a *Adapter) IsAuthorized(ctx context.Context) (bool, error) {
	tok, err := a.loadToken(ctx)
	if err != nil {
		return false, err
	}
	return tok != nil, nil
}

// LastSyncTime returns the local lastSynced timestamp, or 0 if never synced
func (a *Adapter) LastSyncTime(ctx context.Context) (int64, error) {
	raw, ok, err := a.kv.Get(ctx, storage.KeyLastSynced)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", storage.KeyLastSynced, err)
	}
	if !ok {
		return 0, nil
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		a.logger.Warn("stored sync time is unreadable", slog.String("value", raw))
		return 0, nil
	}
	return ts, nil
}

// Upload pushes local data unconditionally
func (a *Adapter) Upload(ctx context.Context) (int64, error) {
	var ts int64
	err := a.exclusive(ctx, func(src oauth2.TokenSource) error {
		var err error
		ts, err = a.push(ctx, src)
		return err
	})
	return ts, err
}

// Download replaces local data with the remote file unconditionally
func (a *Adapter) Download(ctx context.Context) (int64, error) {
	var ts int64
	err := a.exclusive(ctx, func(src oauth2.TokenSource) error {
		data, err := a.remote.Download(ctx, src)
		if errors.Is(err, ErrRemoteNotFound) {
			return model.ErrNoRemoteData
		}
		if err != nil {
			return fmt.Errorf("download: %w", err)
		}
		blob, err := decodeBlob(data)
		if err != nil {
			return err
		}
		ts = blob.LastSynced
		return a.pull(ctx, blob)
	})
	return ts, err
}

// Sync downloads the remote file once. If it is newer than the last sync it
// replaces local data; otherwise local data is pushed. Only one sync runs at
// a time; concurrent calls fail with model.ErrSyncInProgress.
func (a *Adapter) Sync(ctx context.Context) (Result, error) {
	var result Result
	err := a.exclusive(ctx, func(src oauth2.TokenSource) error {
		local, err := a.LastSyncTime(ctx)
		if err != nil {
			return err
		}

		var remote Blob
		data, err := a.remote.Download(ctx, src)
		switch {
		case errors.Is(err, ErrRemoteNotFound):
			// Nothing uploaded yet; treat as the oldest possible state
		case err != nil:
			return fmt.Errorf("download: %w", err)
		default:
			if remote, err = decodeBlob(data); err != nil {
				return err
			}
		}

		if remote.LastSynced > local {
			if err := a.pull(ctx, remote); err != nil {
				return err
			}
			result = Result{Direction: Pulled, LastSynced: remote.LastSynced}
			return nil
		}

		ts, err := a.push(ctx, src)
		if err != nil {
			return err
		}
		result = Result{Direction: Pushed, LastSynced: ts}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	a.logger.Info("sync complete",
		slog.String("direction", string(result.Direction)),
		slog.Int64("last_synced", result.LastSynced),
	)
	return result, nil
}

// exclusive runs fn with credentials, rejecting overlapping calls
func (a *Adapter) exclusive(ctx context.Context, fn func(src oauth2.TokenSource) error) error {
	if !a.running.CompareAndSwap(false, true) {
		return model.ErrSyncInProgress
	}
	defer a.running.Store(false)

	tok, err := a.loadToken(ctx)
	if err != nil {
		return err
	}
	if tok == nil {
		return model.ErrNotAuthorized
	}
	return fn(a.persisting(ctx, tok))
}

func (a *Adapter) push(ctx context.Context, src oauth2.TokenSource) (int64, error) {
	unlock := a.locks.Lock(storage.CollectionKeys...)
	blob, err := readLocal(ctx, a.kv)
	unlock()
	if err != nil {
		return 0, err
	}
	blob.LastSynced = clock.Millis(a.clock)

	data, err := json.Marshal(blob)
	if err != nil {
		return 0, fmt.Errorf("encode sync file: %w", err)
	}
	if err := a.remote.Upload(ctx, src, data); err != nil {
		return 0, fmt.Errorf("upload: %w", err)
	}
	if err := a.setLastSynced(ctx, blob.LastSynced); err != nil {
		return 0, err
	}
	return blob.LastSynced, nil
}

func (a *Adapter) pull(ctx context.Context, blob Blob) error {
	defer a.locks.Lock(storage.CollectionKeys...)()

	if err := writeLocal(ctx, a.kv, blob); err != nil {
		return err
	}
	return a.setLastSynced(ctx, blob.LastSynced)
}

func (a *Adapter) setLastSynced(ctx context.Context, ts int64) error {
	if err := a.kv.Set(ctx, storage.KeyLastSynced, strconv.FormatInt(ts, 10)); err != nil {
		return fmt.Errorf("write %s: %w", storage.KeyLastSynced, err)
	}
	return nil
}

func (a *Adapter) loadToken(ctx context.Context) (*oauth2.Token, error) {
	raw, ok, err := a.kv.Get(ctx, storage.KeySyncToken)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		a.logger.Warn("stored credentials are unreadable", slog.String("error", err.Error()))
		return nil, nil
	}
	return &tok, nil
}

func (a *Adapter) saveToken(ctx context.Context, tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := a.kv.Set(ctx, storage.KeySyncToken, string(data)); err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}
	return nil
}

// persisting wraps the remote's token source so refreshed credentials are saved
func (a *Adapter) persisting(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return &persistingSource{
		ctx:     ctx,
		adapter: a,
		base:    a.remote.TokenSource(ctx, tok),
		last:    tok.AccessToken,
	}
}

type persistingSource struct {
	ctx     context.Context
	adapter *Adapter
	base    oauth2.TokenSource

	mu   sync.Mutex
	last string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.adapter.saveToken(s.ctx, tok); err != nil {
			s.adapter.logger.Warn("failed to store refreshed credentials", slog.String("error", err.Error()))
		}
	}
	return tok, nil
}
