package datasync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"civicsync-dashboard/identity"
	"civicsync-dashboard/models"
	"civicsync-dashboard/pubsub"
	"civicsync-dashboard/session"
	"civicsync-dashboard/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

var paths = store.TenantPaths("test-tenant")

type fakeSessions struct {
	mu      sync.Mutex
	snap    session.Snapshot
	changes *pubsub.Broadcaster
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{changes: pubsub.NewBroadcaster()}
}

func (f *fakeSessions) Snapshot() session.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSessions) Changes() (<-chan struct{}, func()) {
	return f.changes.Subscribe()
}

func (f *fakeSessions) set(state session.State, epoch uint64) {
	f.mu.Lock()
	f.snap = session.Snapshot{State: state, Epoch: epoch}
	if state == session.Authenticated {
		f.snap.Admin = &identity.Identity{UID: "admin"}
	}
	f.mu.Unlock()
	f.changes.Notify()
}

type fakeStore struct {
	snapshots chan store.Snapshot

	mu          sync.Mutex
	profiles    []store.Document
	profilesErr error
	subErr      error
	fetchCalls  int
	fetchPaths  []string
	subPaths    []string

	activeSubs atomic.Int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{snapshots: make(chan store.Snapshot)}
}

func (f *fakeStore) FetchAll(ctx context.Context, path string) ([]store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	f.fetchPaths = append(f.fetchPaths, path)
	return f.profiles, f.profilesErr
}

func (f *fakeStore) Subscribe(ctx context.Context, path string) (*store.Subscription, error) {
	f.mu.Lock()
	f.subPaths = append(f.subPaths, path)
	err := f.subErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	f.activeSubs.Add(1)
	return store.NewSubscription(ctx, func(ctx context.Context, out chan<- store.Snapshot) {
		defer f.activeSubs.Add(-1)
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-f.snapshots:
				if !store.Send(ctx, out, snap) {
					return
				}
			}
		}
	}), nil
}

func (f *fakeStore) UpdateFields(ctx context.Context, path, id string, fields bson.M) error {
	return nil
}

func (f *fakeStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

func doc(t *testing.T, id string, fields bson.M) store.Document {
	t.Helper()
	d, err := store.NewDocument(id, fields)
	require.NoError(t, err)
	return d
}

func issuesSnapshot(t *testing.T, n int) store.Snapshot {
	t.Helper()
	var docs []store.Document
	for i := 0; i < n; i++ {
		docs = append(docs, doc(t, string(rune('a'+i)), bson.M{"title": "issue", "status": "Acknowledged", "upvotes": i}))
	}
	return store.Snapshot{Docs: docs}
}

func startSync(t *testing.T, s *Synchronizer) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msg)
}

func TestInactiveWhileUnauthenticated(t *testing.T) {
	st := newFakeStore()
	sessions := newFakeSessions()
	s := New(st, paths, sessions)
	startSync(t, s)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, st.calls())
	assert.Equal(t, int32(0), st.activeSubs.Load())
	assert.Empty(t, s.Issues())
}

func TestActivatesOnAuthentication(t *testing.T) {
	st := newFakeStore()
	st.profiles = []store.Document{doc(t, "u1", bson.M{"name": "Ada", "points": 50})}
	sessions := newFakeSessions()
	s := New(st, paths, sessions)
	startSync(t, s)

	sessions.set(session.Authenticated, 1)
	st.snapshots <- issuesSnapshot(t, 2)

	eventually(t, func() bool { return len(s.Issues()) == 2 }, "issues never loaded")
	eventually(t, func() bool { return len(s.Profiles()) == 1 }, "profiles never loaded")

	assert.Equal(t, models.Profile{ID: "u1", Name: "Ada", Points: 50}, s.Profiles()["u1"])
	assert.Equal(t, []string{paths.Profiles}, st.fetchPaths)
	assert.Equal(t, []string{paths.Issues}, st.subPaths)
}

func TestSnapshotReplacesWholeList(t *testing.T) {
	st := newFakeStore()
	sessions := newFakeSessions()
	s := New(st, paths, sessions)
	startSync(t, s)
	sessions.set(session.Authenticated, 1)

	st.snapshots <- issuesSnapshot(t, 3)
	eventually(t, func() bool { return len(s.Issues()) == 3 }, "first snapshot")

	st.snapshots <- issuesSnapshot(t, 1)
	eventually(t, func() bool { return len(s.Issues()) == 1 }, "second snapshot must replace the first")
}

func TestDeauthenticationClearsCaches(t *testing.T) {
	st := newFakeStore()
	st.profiles = []store.Document{doc(t, "u1", bson.M{"points": 10})}
	sessions := newFakeSessions()
	s := New(st, paths, sessions)
	startSync(t, s)

	changes, release := s.Changes()
	defer release()

	sessions.set(session.Authenticated, 1)
	st.snapshots <- issuesSnapshot(t, 2)
	eventually(t, func() bool { return len(s.Issues()) == 2 && len(s.Profiles()) == 1 }, "initial load")

	sessions.set(session.Unauthenticated, 1)
	eventually(t, func() bool { return len(s.Issues()) == 0 && len(s.Profiles()) == 0 }, "caches not cleared")
	eventually(t, func() bool { return st.activeSubs.Load() == 0 }, "subscription not released")
	assert.Equal(t, 1, st.calls(), "no new fetch before the next session")
	assert.NotEmpty(t, changes)

	sessions.set(session.Authenticated, 2)
	st.snapshots <- issuesSnapshot(t, 1)
	eventually(t, func() bool { return len(s.Issues()) == 1 }, "second session load")
	assert.Equal(t, 2, st.calls())
}

func TestNewEpochRestartsActivation(t *testing.T) {
	st := newFakeStore()
	sessions := newFakeSessions()
	s := New(st, paths, sessions)
	startSync(t, s)

	sessions.set(session.Authenticated, 1)
	st.snapshots <- issuesSnapshot(t, 2)
	eventually(t, func() bool { return len(s.Issues()) == 2 }, "initial load")

	sessions.set(session.Authenticated, 2)
	eventually(t, func() bool { return st.calls() == 2 }, "profiles not refetched for new session")
	assert.Empty(t, s.Issues())
	eventually(t, func() bool { return st.activeSubs.Load() == 1 }, "exactly one live subscription")
}

func TestProfileFetchFailureLeavesCacheEmpty(t *testing.T) {
	st := newFakeStore()
	st.profilesErr = errors.New("permission denied")
	sessions := newFakeSessions()
	s := New(st, paths, sessions)
	startSync(t, s)

	sessions.set(session.Authenticated, 1)
	st.snapshots <- issuesSnapshot(t, 1)

	eventually(t, func() bool { return len(s.Issues()) == 1 }, "issues should load independently")
	assert.Empty(t, s.Profiles())
}

func issueIDs(issues []models.Issue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.ID
	}
	return out
}

func TestSnapshotErrorKeepsLastKnownIssues(t *testing.T) {
	st := newFakeStore()
	st.profiles = []store.Document{doc(t, "u1", bson.M{"points": 10})}
	sessions := newFakeSessions()
	s := New(st, paths, sessions)
	startSync(t, s)

	sessions.set(session.Authenticated, 1)
	st.snapshots <- issuesSnapshot(t, 2)
	eventually(t, func() bool { return len(s.Issues()) == 2 && len(s.Profiles()) == 1 }, "initial load")

	changes, release := s.Changes()
	defer release()
	time.Sleep(20 * time.Millisecond)
	select {
	case <-changes:
	default:
	}

	// The feed hands over one snapshot at a time, so once the third send
	// is accepted the first error has been fully handled.
	for i := 0; i < 3; i++ {
		st.snapshots <- store.Snapshot{Err: errors.New("stream reset")}
	}

	assert.Equal(t, []string{"a", "b"}, issueIDs(s.Issues()))
	assert.Empty(t, changes, "errors must not signal a cache change")

	st.snapshots <- issuesSnapshot(t, 3)
	eventually(t, func() bool { return len(s.Issues()) == 3 }, "feed must recover after an error")
	assert.Equal(t, []string{"a", "b", "c"}, issueIDs(s.Issues()))
}

func TestSubscribeFailureIsLogged(t *testing.T) {
	st := newFakeStore()
	st.subErr = errors.New("change streams unsupported")
	sessions := newFakeSessions()
	s := New(st, paths, sessions)
	startSync(t, s)

	sessions.set(session.Authenticated, 1)
	eventually(t, func() bool { return st.calls() == 1 }, "profiles still fetched")
	assert.Empty(t, s.Issues())
}

func TestRunReleasesOnShutdown(t *testing.T) {
	st := newFakeStore()
	sessions := newFakeSessions()
	sessions.set(session.Authenticated, 1)
	s := New(st, paths, sessions)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()

	eventually(t, func() bool { return st.activeSubs.Load() == 1 }, "subscription not started")
	cancel()
	<-done
	assert.Equal(t, int32(0), st.activeSubs.Load())
	assert.Equal(t, 0, sessions.changes.Len())
}

func TestDecodeIssues(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	docs := []store.Document{
		doc(t, "full", bson.M{
			"title":      "Broken light",
			"location":   "Main Street",
			"status":     "In-Progress",
			"upvotes":    4,
			"imageUrl":   "https://cdn/img.jpg",
			"reporterId": "u1",
			"createdAt":  created,
		}),
		doc(t, "sparse", bson.M{"title": "Anonymous"}),
		doc(t, "loose", bson.M{"title": "Typed by hand", "upvotes": "12", "createdAt": "2024-05-01T12:00:00Z"}),
		doc(t, "garbled", bson.M{"title": 7, "upvotes": "many"}),
	}

	issues := DecodeIssues(docs)
	require.Len(t, issues, 4)

	full := issues[0]
	assert.Equal(t, "full", full.ID)
	assert.Equal(t, models.InProgress, full.Status)
	assert.Equal(t, 4, full.Upvotes)
	assert.Equal(t, "u1", full.ReporterID)
	require.NotNil(t, full.CreatedAt)
	assert.True(t, created.Equal(*full.CreatedAt))

	sparse := issues[1]
	assert.Equal(t, "sparse", sparse.ID)
	assert.Zero(t, sparse.Upvotes)
	assert.Nil(t, sparse.CreatedAt)
	assert.Empty(t, sparse.ReporterID)

	loose := issues[2]
	assert.Equal(t, "loose", loose.ID)
	assert.Equal(t, "Typed by hand", loose.Title)
	assert.Equal(t, 12, loose.Upvotes)
	require.NotNil(t, loose.CreatedAt)
	assert.True(t, created.Equal(*loose.CreatedAt))

	garbled := issues[3]
	assert.Equal(t, "garbled", garbled.ID)
	assert.Empty(t, garbled.Title)
	assert.Zero(t, garbled.Upvotes)
}
