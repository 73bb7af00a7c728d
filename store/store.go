package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrMissingID is returned when a stored document carries no _id.
var ErrMissingID = errors.New("document has no _id")

// Document is one stored record: its identifier plus the raw field data.
type Document struct {
	ID   string
	Data bson.Raw
}

// Decode unmarshals the document's fields into v.
func (d Document) Decode(v interface{}) error {
	return bson.Unmarshal(d.Data, v)
}

// NewDocument builds a Document from arbitrary fields. Used by fakes and tests.
func NewDocument(id string, fields interface{}) (Document, error) {
	data, err := bson.Marshal(fields)
	if err != nil {
		return Document{}, fmt.Errorf("marshal document %s: %w", id, err)
	}
	return Document{ID: id, Data: data}, nil
}

// documentFromRaw extracts the identifier from a raw BSON document.
func documentFromRaw(raw bson.Raw) (Document, error) {
	val, err := raw.LookupErr("_id")
	if err != nil {
		return Document{}, ErrMissingID
	}
	var id string
	switch v := val; v.Type {
	case bson.TypeObjectID:
		id = v.ObjectID().Hex()
	case bson.TypeString:
		id = v.StringValue()
	default:
		id = v.String()
	}
	// Cursors reuse their buffer between documents.
	data := make(bson.Raw, len(raw))
	copy(data, raw)
	return Document{ID: id, Data: data}, nil
}

// idFilter matches a document whose _id is either the hex ObjectID or the plain string.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{oid, id}}}
	}
	return bson.M{"_id": id}
}

// Snapshot is the full content of a collection at one point in time.
type Snapshot struct {
	Docs []Document
	Err  error
}

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks . DocumentStore

// DocumentStore is the external document database the dashboard mirrors.
type DocumentStore interface {
	// Subscribe delivers a full-collection snapshot now and after every change.
	Subscribe(ctx context.Context, path string) (*Subscription, error)
	// FetchAll reads every document under path once.
	FetchAll(ctx context.Context, path string) ([]Document, error)
	// UpdateFields applies a partial update to one document.
	UpdateFields(ctx context.Context, path, id string, fields bson.M) error
}

// Subscription is a live snapshot feed. C is closed once the feed stops.
type Subscription struct {
	C      <-chan Snapshot
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSubscription runs feed in its own goroutine until ctx ends or Unsubscribe is called.
// feed must return when its context is done.
func NewSubscription(ctx context.Context, feed func(ctx context.Context, out chan<- Snapshot)) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Snapshot)
	sub := &Subscription{C: out, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		defer close(out)
		feed(ctx, out)
	}()
	return sub
}

// Unsubscribe stops the feed and waits for it to release its resources.
func (s *Subscription) Unsubscribe() {
	s.cancel()
	<-s.done
}

// Send delivers snap unless ctx ends first.
func Send(ctx context.Context, out chan<- Snapshot, snap Snapshot) bool {
	select {
	case out <- snap:
		return true
	case <-ctx.Done():
		return false
	}
}
