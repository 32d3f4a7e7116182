// Package service provides the notifications service implementation
package service

import (
	"context"
	"strings"

	"moonmining/internal/adapters/esi/notification"
	"moonmining/internal/core/extraction"
	"moonmining/internal/modkit/repokit"
	perr "moonmining/internal/platform/errors"
	"moonmining/internal/platform/logger"
	dom "moonmining/internal/services/notifications/domain"
)

// Config for the notifications service
type Config struct {
	// BatchSize caps rows per insert statement
	BatchSize int
}

// Service implements domain.StorePort and domain.SourcePort
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[dom.StorageRepo]
	Cfg    Config
}

// New constructs the notifications service
func New(db repokit.TxRunner, binder repokit.Binder[dom.StorageRepo], cfg Config) *Service {
	if db == nil {
		panic("notifications.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("notifications.Service requires a non nil Repo binder")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	return &Service{DB: db, Binder: binder, Cfg: cfg}
}

func (s *Service) repo() dom.StorageRepo { return s.Binder.Bind(s.DB) }

// StoreNotifications implements domain.StorePort.
// Types are stored without surrounding whitespace; ids repeated within raws are stored once
func (s *Service) StoreNotifications(ctx context.Context, ownerID int64, raws []notification.Raw) (int, error) {
	if ownerID <= 0 {
		return 0, perr.InvalidArgf("owner id must be positive, got %d", ownerID)
	}
	seen := make(map[int64]struct{}, len(raws))
	xs := make([]dom.Notification, 0, len(raws))
	for _, r := range raws {
		if _, dup := seen[r.NotificationID]; dup {
			continue
		}
		seen[r.NotificationID] = struct{}{}
		structureID, _ := notification.StructureID(r.Text)
		xs = append(xs, dom.Notification{
			OwnerID:        ownerID,
			NotificationID: r.NotificationID,
			Type:           strings.TrimSpace(r.Type),
			StructureID:    structureID,
			SenderID:       r.SenderID,
			SenderType:     r.SenderType,
			Timestamp:      r.Timestamp.UTC(),
			IsRead:         r.IsRead,
			Details:        r.Text,
		})
	}

	var added int
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		repo := s.Binder.Bind(q)
		for start := 0; start < len(xs); start += s.Cfg.BatchSize {
			end := min(start+s.Cfg.BatchSize, len(xs))
			n, err := repo.Insert(ctx, xs[start:end])
			if err != nil {
				return err
			}
			added += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	logger.C(ctx).Debug().Int("received", len(raws)).Int("added", added).Msg("notifications: stored")
	return added, nil
}

// ListMoonMining implements domain.SourcePort
func (s *Service) ListMoonMining(ctx context.Context, ownerID int64) ([]dom.Notification, error) {
	return s.repo().List(ctx, ownerID, extraction.NotificationTypes(), nil)
}

// ListForRefinery implements domain.SourcePort
func (s *Service) ListForRefinery(ctx context.Context, ownerID, refineryID int64) ([]dom.Notification, error) {
	return s.repo().List(ctx, ownerID, extraction.NotificationTypes(), &refineryID)
}

// Refineries implements domain.SourcePort
func (s *Service) Refineries(ctx context.Context, ownerID int64) ([]int64, error) {
	return s.repo().StructureIDs(ctx, ownerID, extraction.NotificationTypes())
}

// EventsForRefinery implements domain.SourcePort
func (s *Service) EventsForRefinery(
	ctx context.Context,
	ownerID, refineryID int64,
) ([]extraction.Event, []notification.Failure, error) {
	ns, err := s.ListForRefinery(ctx, ownerID, refineryID)
	if err != nil {
		return nil, nil, err
	}
	events, failed := notification.ParseAll(ToRaw(ns))

	l := logger.C(ctx)
	for _, f := range failed {
		l.Warn().Err(f.Err).
			Int64("notification_id", f.NotificationID).
			Str("type", f.Type).
			Int64("refinery_id", refineryID).
			Msg("notifications: malformed event skipped")
	}
	return events, failed, nil
}

// ToRaw converts stored notifications back into their raw form
func ToRaw(ns []dom.Notification) []notification.Raw {
	out := make([]notification.Raw, len(ns))
	for i, n := range ns {
		out[i] = notification.Raw{
			NotificationID: n.NotificationID,
			Type:           n.Type,
			Timestamp:      n.Timestamp,
			Text:           n.Details,
			SenderID:       n.SenderID,
			SenderType:     n.SenderType,
			IsRead:         n.IsRead,
		}
	}
	return out
}
