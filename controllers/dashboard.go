package controllers

import (
	"context"

	"civicsync-dashboard/models"
	"civicsync-dashboard/session"
)

// Sessions is the session manager as seen by the HTTP handlers.
type Sessions interface {
	Snapshot() session.Snapshot
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
}

// Caches exposes the synchronized issue and profile caches.
type Caches interface {
	Issues() []models.Issue
	Profiles() map[string]models.Profile
	Changes() (<-chan struct{}, func())
}

type StatusSetter interface {
	SetStatus(ctx context.Context, issueID string, status models.IssueStatus) error
}

// Dashboard bundles the collaborators every handler needs
type Dashboard struct {
	Sessions Sessions
	Data     Caches
	Status   StatusSetter
}

func NewDashboard(sessions Sessions, data Caches, status StatusSetter) *Dashboard {
	return &Dashboard{Sessions: sessions, Data: data, Status: status}
}
