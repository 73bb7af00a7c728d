package datasync

import (
	"context"
	"log"
	"sync"

	"civicsync-dashboard/models"
	"civicsync-dashboard/pubsub"
	"civicsync-dashboard/session"
	"civicsync-dashboard/store"
)

// SessionSource is the part of the session manager the synchronizer follows.
type SessionSource interface {
	Snapshot() session.Snapshot
	Changes() (<-chan struct{}, func())
}

// Synchronizer mirrors the tenant's issues and reporter profiles while an
// admin session is authenticated, and drops both caches as soon as it is not.
type Synchronizer struct {
	store    store.DocumentStore
	paths    store.Paths
	sessions SessionSource

	mu       sync.RWMutex
	issues   []models.Issue
	profiles map[string]models.Profile
	// generation invalidates results of a torn-down activation.
	generation uint64

	changes *pubsub.Broadcaster

	// Owned by the Run goroutine.
	active      bool
	activeEpoch uint64
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

func New(ds store.DocumentStore, paths store.Paths, sessions SessionSource) *Synchronizer {
	return &Synchronizer{
		store:    ds,
		paths:    paths,
		sessions: sessions,
		profiles: make(map[string]models.Profile),
		changes:  pubsub.NewBroadcaster(),
	}
}

// Run follows session changes until ctx is done, then releases everything.
func (s *Synchronizer) Run(ctx context.Context) error {
	sessionChanges, release := s.sessions.Changes()
	defer release()

	s.reconcile(ctx, s.sessions.Snapshot())
	for {
		select {
		case <-ctx.Done():
			s.deactivate()
			return nil
		case <-sessionChanges:
			s.reconcile(ctx, s.sessions.Snapshot())
		}
	}
}

func (s *Synchronizer) reconcile(ctx context.Context, snap session.Snapshot) {
	if !snap.Authenticated() {
		if s.active {
			s.deactivate()
		}
		return
	}
	if s.active && s.activeEpoch == snap.Epoch {
		return
	}
	s.deactivate()
	s.activate(ctx, snap.Epoch)
}

func (s *Synchronizer) activate(ctx context.Context, epoch uint64) {
	s.mu.RLock()
	gen := s.generation
	s.mu.RUnlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.active = true
	s.activeEpoch = epoch

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.loadProfiles(ctx, gen)
	}()
	go func() {
		defer s.wg.Done()
		s.watchIssues(ctx, gen)
	}()
}

// deactivate stops the current activation, waits for it, and clears both caches.
func (s *Synchronizer) deactivate() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.wg.Wait()
	s.active = false

	s.mu.Lock()
	s.generation++
	s.issues = nil
	s.profiles = make(map[string]models.Profile)
	s.mu.Unlock()

	s.changes.Notify()
}

func (s *Synchronizer) loadProfiles(ctx context.Context, gen uint64) {
	docs, err := s.store.FetchAll(ctx, s.paths.Profiles)
	if err != nil {
		log.Println("Error fetching user profiles:", err)
		return
	}

	profiles := make(map[string]models.Profile, len(docs))
	for _, doc := range docs {
		var p models.Profile
		if err := doc.Decode(&p); err != nil {
			log.Printf("Skipping profile %s: %v", doc.ID, err)
			continue
		}
		p.ID = doc.ID
		profiles[doc.ID] = p
	}

	s.mu.Lock()
	if s.generation == gen {
		s.profiles = profiles
	}
	s.mu.Unlock()
	s.changes.Notify()
}

func (s *Synchronizer) watchIssues(ctx context.Context, gen uint64) {
	sub, err := s.store.Subscribe(ctx, s.paths.Issues)
	if err != nil {
		log.Println("Error fetching issues:", err)
		return
	}
	defer sub.Unsubscribe()

	for snap := range sub.C {
		if snap.Err != nil {
			log.Println("Error fetching issues:", snap.Err)
			continue
		}
		issues := DecodeIssues(snap.Docs)

		s.mu.Lock()
		if s.generation == gen {
			s.issues = issues
		}
		s.mu.Unlock()
		s.changes.Notify()
	}
}

// DecodeIssues converts stored documents into issues, skipping undecodable ones.
func DecodeIssues(docs []store.Document) []models.Issue {
	issues := make([]models.Issue, 0, len(docs))
	for _, doc := range docs {
		var issue models.Issue
		if err := doc.Decode(&issue); err != nil {
			log.Printf("Skipping issue %s: %v", doc.ID, err)
			continue
		}
		issue.ID = doc.ID
		issues = append(issues, issue)
	}
	return issues
}

// Issues returns a copy of the issue cache.
func (s *Synchronizer) Issues() []models.Issue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Issue(nil), s.issues...)
}

// Profiles returns a copy of the profile cache.
func (s *Synchronizer) Profiles() map[string]models.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.Profile, len(s.profiles))
	for id, p := range s.profiles {
		out[id] = p
	}
	return out
}

// Changes signals whenever either cache is replaced or cleared.
func (s *Synchronizer) Changes() (<-chan struct{}, func()) {
	return s.changes.Subscribe()
}
