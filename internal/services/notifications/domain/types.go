// Package domain defines the types and ports of the notifications service
package domain

import "time"

// Notification is one stored game notification of an owner
type Notification struct {
	OwnerID        int64
	NotificationID int64
	Type           string
	// StructureID is read from the details at store time; zero when the details carry none
	StructureID int64
	SenderID    int64
	SenderType  string
	Timestamp   time.Time
	IsRead      *bool
	Details     string // YAML text as received
}
