package status

import (
	"context"
	"fmt"
	"log"

	"civicsync-dashboard/models"

	"go.mongodb.org/mongo-driver/bson"
)

// Updater is the store operation the mutator needs.
type Updater interface {
	UpdateFields(ctx context.Context, path, id string, fields bson.M) error
}

// Mutator changes the status of one issue at a time. There is no optimistic
// local update: the new status shows up when the live issue feed redelivers.
type Mutator struct {
	store      Updater
	issuesPath string
}

func NewMutator(store Updater, issuesPath string) *Mutator {
	return &Mutator{store: store, issuesPath: issuesPath}
}

func (m *Mutator) SetStatus(ctx context.Context, issueID string, status models.IssueStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}

	err := m.store.UpdateFields(ctx, m.issuesPath, issueID, bson.M{"status": string(status)})
	if err != nil {
		// TODO: surface failed updates to the dashboard as a transient notification.
		log.Println("Error updating status:", err)
		return err
	}
	return nil
}
