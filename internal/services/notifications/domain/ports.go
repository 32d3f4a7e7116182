package domain

import (
	"context"

	"moonmining/internal/adapters/esi/notification"
	"moonmining/internal/core/extraction"
)

// StorePort ingests raw notifications for an owner
type StorePort interface {
	// StoreNotifications saves notifications not stored before and returns how many were new
	StoreNotifications(ctx context.Context, ownerID int64, raws []notification.Raw) (int, error)
}

// SourcePort is the event source the extraction pipeline reads from
type SourcePort interface {
	// ListMoonMining returns the owner's notifications of the moon mining types, oldest first
	ListMoonMining(ctx context.Context, ownerID int64) ([]Notification, error)
	// ListForRefinery returns the owner's moon mining notifications about one refinery, oldest first
	ListForRefinery(ctx context.Context, ownerID, refineryID int64) ([]Notification, error)
	// Refineries lists the structures named by the owner's moon mining notifications
	Refineries(ctx context.Context, ownerID int64) ([]int64, error)
	// EventsForRefinery parses ListForRefinery into events; malformed notifications are reported, not fatal
	EventsForRefinery(ctx context.Context, ownerID, refineryID int64) ([]extraction.Event, []notification.Failure, error)
}

// StorageRepo is the persistence the service needs
type StorageRepo interface {
	Insert(ctx context.Context, xs []Notification) (int, error)
	List(ctx context.Context, ownerID int64, types []string, refineryID *int64) ([]Notification, error)
	StructureIDs(ctx context.Context, ownerID int64, types []string) ([]int64, error)
}
