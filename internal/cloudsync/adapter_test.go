package cloudsync_test

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/oauth2"

	"github.com/mcoot/combattracker/internal/cloudsync"
	syncmem "github.com/mcoot/combattracker/internal/cloudsync/memory"
	"github.com/mcoot/combattracker/internal/dependencies/mocks"
	"github.com/mcoot/combattracker/internal/model"
	"github.com/mcoot/combattracker/internal/storage"
	"github.com/mcoot/combattracker/internal/storage/memory"
	"github.com/mcoot/combattracker/internal/testutil"
)

var start = time.UnixMilli(1_700_000_000_000)

type AdapterSuite struct {
	suite.Suite
	kv      *memory.Storage
	locks   *storage.KeyLocks
	remote  *syncmem.Remote
	clock   *mocks.MockClock
	adapter *cloudsync.Adapter
	ctx     context.Context
}

func TestAdapterSuite(t *testing.T) {
	suite.Run(t, new(AdapterSuite))
}

func (s *AdapterSuite) SetupTest() {
	s.kv = memory.New()
	s.locks = storage.NewKeyLocks()
	s.remote = syncmem.New()
	s.clock = mocks.NewMockClock(start)
	s.adapter = cloudsync.New(s.kv, s.locks, s.remote, s.clock, mocks.NewMockRandom(), testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *AdapterSuite) authorize() {
	_, err := s.adapter.AuthorizationURL(s.ctx)
	s.Require().NoError(err)
	s.Require().NoError(s.adapter.Authorize(s.ctx, "token-1"))
}

func (s *AdapterSuite) setLocal(key, value string) {
	s.Require().NoError(s.kv.Set(s.ctx, key, value))
}

func (s *AdapterSuite) local(key string) (string, bool) {
	v, ok, err := s.kv.Get(s.ctx, key)
	s.Require().NoError(err)
	return v, ok
}

func (s *AdapterSuite) remoteBlob() cloudsync.Blob {
	var blob cloudsync.Blob
	s.Require().NoError(json.Unmarshal(s.remote.Data(), &blob))
	return blob
}

func ptr(s string) *string { return &s }

// Authorization

func (s *AdapterSuite) TestAuthorizeStoresCredentials() {
	url, err := s.adapter.AuthorizationURL(s.ctx)
	s.Require().NoError(err)
	s.Contains(url, "state=id-1")
	_, ok := s.local(storage.KeySyncVerifier)
	s.True(ok)

	s.Require().NoError(s.adapter.Authorize(s.ctx, "token-1"))

	authorized, err := s.adapter.IsAuthorized(s.ctx)
	s.Require().NoError(err)
	s.True(authorized)
	_, ok = s.local(storage.KeySyncVerifier)
	s.False(ok)
}

func (s *AdapterSuite) TestAuthorizeFailure() {
	err := s.adapter.Authorize(s.ctx, "")
	s.ErrorIs(err, model.ErrInvalidValue)

	authorized, err := s.adapter.IsAuthorized(s.ctx)
	s.Require().NoError(err)
	s.False(authorized)
}

func (s *AdapterSuite) TestRevoke() {
	s.authorize()
	_, err := s.adapter.Sync(s.ctx)
	s.Require().NoError(err)

	s.Require().NoError(s.adapter.Revoke(s.ctx))

	authorized, _ := s.adapter.IsAuthorized(s.ctx)
	s.False(authorized)
	s.Equal([]string{"token-1"}, s.remote.Revoked())
	ts, err := s.adapter.LastSyncTime(s.ctx)
	s.Require().NoError(err)
	s.Zero(ts)
}

func (s *AdapterSuite) TestRequiresAuthorization() {
	_, err := s.adapter.Sync(s.ctx)
	s.ErrorIs(err, model.ErrNotAuthorized)

	_, err = s.adapter.Upload(s.ctx)
	s.ErrorIs(err, model.ErrNotAuthorized)

	_, err = s.adapter.Download(s.ctx)
	s.ErrorIs(err, model.ErrNotAuthorized)
}

// Sync policy

func (s *AdapterSuite) TestSyncPushesWhenRemoteIsEmpty() {
	s.authorize()
	s.setLocal(storage.KeyPlayers, `[{"id":"p1"}]`)

	result, err := s.adapter.Sync(s.ctx)

	s.Require().NoError(err)
	s.Equal(cloudsync.Pushed, result.Direction)
	s.Equal(start.UnixMilli(), result.LastSynced)

	blob := s.remoteBlob()
	s.Equal(ptr(`[{"id":"p1"}]`), blob.Players)
	s.Nil(blob.Combats)
	s.Nil(blob.Monsters)
	s.Equal(start.UnixMilli(), blob.LastSynced)

	ts, _ := s.adapter.LastSyncTime(s.ctx)
	s.Equal(start.UnixMilli(), ts)
}

func (s *AdapterSuite) TestSyncPullsNewerRemote() {
	s.authorize()
	s.setLocal(storage.KeyLastSynced, strconv.FormatInt(start.UnixMilli(), 10))
	s.setLocal(storage.KeyCombats, `[{"id":"old"}]`)
	s.setLocal(storage.KeyMonsters, `[{"id":"m1"}]`)
	remote := cloudsync.Blob{
		Combats:    ptr(`[{"id":"new"}]`),
		Players:    ptr(`[]`),
		Monsters:   nil,
		LastSynced: start.UnixMilli() + 5000,
	}
	data, _ := json.Marshal(remote)
	s.remote.SetData(data)

	result, err := s.adapter.Sync(s.ctx)

	s.Require().NoError(err)
	s.Equal(cloudsync.Pulled, result.Direction)
	s.Equal(remote.LastSynced, result.LastSynced)

	combats, _ := s.local(storage.KeyCombats)
	s.Equal(`[{"id":"new"}]`, combats)
	players, _ := s.local(storage.KeyPlayers)
	s.Equal(`[]`, players)
	_, ok := s.local(storage.KeyMonsters)
	s.False(ok, "null remote field removes the local key")

	ts, _ := s.adapter.LastSyncTime(s.ctx)
	s.Equal(remote.LastSynced, ts)
}

func (s *AdapterSuite) TestSyncPushesWhenLocalIsNewer() {
	s.authorize()
	s.setLocal(storage.KeyLastSynced, strconv.FormatInt(start.UnixMilli(), 10))
	s.setLocal(storage.KeyCombats, `[{"id":"local"}]`)
	old, _ := json.Marshal(cloudsync.Blob{Combats: ptr(`[{"id":"stale"}]`), LastSynced: start.UnixMilli() - 1})
	s.remote.SetData(old)
	s.clock.Advance(time.Minute)

	result, err := s.adapter.Sync(s.ctx)

	s.Require().NoError(err)
	s.Equal(cloudsync.Pushed, result.Direction)
	s.Equal(ptr(`[{"id":"local"}]`), s.remoteBlob().Combats)
	s.Equal(start.Add(time.Minute).UnixMilli(), s.remoteBlob().LastSynced)
}

func (s *AdapterSuite) TestSyncEqualTimestampsPush() {
	s.authorize()
	s.setLocal(storage.KeyLastSynced, strconv.FormatInt(start.UnixMilli(), 10))
	s.setLocal(storage.KeyPlayers, `[{"id":"local"}]`)
	same, _ := json.Marshal(cloudsync.Blob{Players: ptr(`[{"id":"remote"}]`), LastSynced: start.UnixMilli()})
	s.remote.SetData(same)

	result, err := s.adapter.Sync(s.ctx)

	s.Require().NoError(err)
	s.Equal(cloudsync.Pushed, result.Direction)
	s.Equal(ptr(`[{"id":"local"}]`), s.remoteBlob().Players)
}

func (s *AdapterSuite) TestSyncPropagatesNetworkErrors() {
	s.authorize()
	s.remote.Err = errors.New("connection reset")

	_, err := s.adapter.Sync(s.ctx)

	s.ErrorContains(err, "connection reset")
	ts, _ := s.adapter.LastSyncTime(s.ctx)
	s.Zero(ts)
}

func (s *AdapterSuite) TestSyncRejectsCorruptRemote() {
	s.authorize()
	s.remote.SetData([]byte("{not json"))

	_, err := s.adapter.Sync(s.ctx)

	s.ErrorContains(err, "decode remote file")
}

// Upload and download

func (s *AdapterSuite) TestUploadAndDownload() {
	s.authorize()
	s.setLocal(storage.KeyMonsters, `[{"id":"m1"}]`)

	ts, err := s.adapter.Upload(s.ctx)
	s.Require().NoError(err)
	s.Equal(start.UnixMilli(), ts)

	s.Require().NoError(s.kv.Delete(s.ctx, storage.KeyMonsters))
	ts, err = s.adapter.Download(s.ctx)

	s.Require().NoError(err)
	s.Equal(start.UnixMilli(), ts)
	monsters, ok := s.local(storage.KeyMonsters)
	s.True(ok)
	s.Equal(`[{"id":"m1"}]`, monsters)
}

func (s *AdapterSuite) TestDownloadWithoutRemoteFile() {
	s.authorize()

	_, err := s.adapter.Download(s.ctx)

	s.ErrorIs(err, model.ErrNoRemoteData)
}

func (s *AdapterSuite) TestDownloadWaitsForCollectionWriters() {
	s.authorize()
	s.setLocal(storage.KeyPlayers, `[{"id":"p1"}]`)
	_, err := s.adapter.Upload(s.ctx)
	s.Require().NoError(err)
	s.setLocal(storage.KeyPlayers, `[{"id":"p1"},{"id":"p2"}]`)

	unlock := s.locks.Lock(storage.KeyPlayers)
	done := make(chan error, 1)
	go func() {
		_, err := s.adapter.Download(s.ctx)
		done <- err
	}()

	s.Never(func() bool { return len(done) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	players, _ := s.local(storage.KeyPlayers)
	s.Equal(`[{"id":"p1"},{"id":"p2"}]`, players, "local data is untouched while a writer holds the key")

	unlock()
	s.Require().NoError(<-done)
	players, _ = s.local(storage.KeyPlayers)
	s.Equal(`[{"id":"p1"}]`, players)
}

// Concurrency guard

// blockingRemote holds Download open until released
type blockingRemote struct {
	*syncmem.Remote
	entered chan struct{}
	release chan struct{}
}

func (r *blockingRemote) Download(ctx context.Context, ts oauth2.TokenSource) ([]byte, error) {
	close(r.entered)
	<-r.release
	return r.Remote.Download(ctx, ts)
}

func (s *AdapterSuite) TestConcurrentSyncIsRejected() {
	remote := &blockingRemote{
		Remote:  syncmem.New(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	adapter := cloudsync.New(s.kv, s.locks, remote, s.clock, mocks.NewMockRandom(), testutil.NopLogger())
	s.Require().NoError(adapter.Authorize(s.ctx, "token-1"))

	done := make(chan error, 1)
	go func() {
		_, err := adapter.Sync(s.ctx)
		done <- err
	}()
	<-remote.entered

	_, err := adapter.Sync(s.ctx)
	s.ErrorIs(err, model.ErrSyncInProgress)
	_, err = adapter.Upload(s.ctx)
	s.ErrorIs(err, model.ErrSyncInProgress)

	close(remote.release)
	s.Require().NoError(<-done)

	// The guard is released afterwards
	remote.entered = make(chan struct{})
	remote.release = make(chan struct{})
	close(remote.release)
	_, err = adapter.Sync(s.ctx)
	s.NoError(err)
}
