// Package repo provides the notifications repository implementation
package repo

import (
	"context"
	_ "embed"
	"strings"
	"time"

	"moonmining/internal/modkit/repokit"
	perr "moonmining/internal/platform/errors"
	"moonmining/internal/platform/store"
	"moonmining/internal/services/notifications/domain"
)

//go:embed schema.sql
var schema string

// Migrate creates the notifications table when missing
func Migrate(ctx context.Context, q repokit.Queryer) error {
	_, err := q.Exec(ctx, schema)
	return perr.FromPostgres(err, "notifications migrate")
}

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[domain.StorageRepo] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) domain.StorageRepo { return &pg{q: q} }

// Insert adds notifications, skipping ids the owner already has
func (r *pg) Insert(ctx context.Context, xs []domain.Notification) (int, error) {
	if len(xs) == 0 {
		return 0, nil
	}
	n := len(xs)
	owners := make([]int64, 0, n)
	ids := make([]int64, 0, n)
	types := make([]string, 0, n)
	structures := make([]*int64, 0, n)
	senders := make([]int64, 0, n)
	senderTypes := make([]string, 0, n)
	stamps := make([]time.Time, 0, n)
	reads := make([]*bool, 0, n)
	details := make([]string, 0, n)
	for _, x := range xs {
		owners = append(owners, x.OwnerID)
		ids = append(ids, x.NotificationID)
		types = append(types, x.Type)
		if x.StructureID > 0 {
			v := x.StructureID
			structures = append(structures, &v)
		} else {
			structures = append(structures, nil)
		}
		senders = append(senders, x.SenderID)
		senderTypes = append(senderTypes, x.SenderType)
		stamps = append(stamps, x.Timestamp.UTC())
		reads = append(reads, x.IsRead)
		details = append(details, x.Details)
	}

	tag, err := r.q.Exec(ctx, `
		INSERT INTO notifications
			(owner_id, notification_id, notif_type, structure_id, sender_id, sender_type, timestamp, is_read, details)
		SELECT * FROM UNNEST(
			$1::bigint[], $2::bigint[], $3::text[], $4::bigint[], $5::bigint[],
			$6::text[], $7::timestamptz[], $8::boolean[], $9::text[])
		ON CONFLICT (owner_id, notification_id) DO NOTHING`,
		owners, ids, types, structures, senders, senderTypes, stamps, reads, details)
	if err != nil {
		return 0, perr.FromPostgres(err, "insert notifications")
	}
	return int(tag.RowsAffected()), nil
}

func scanNotification(row store.Row) (domain.Notification, error) {
	var (
		n          domain.Notification
		structure  *int64
		sender     *int64
		senderType *string
	)
	err := row.Scan(&n.OwnerID, &n.NotificationID, &n.Type, &structure, &sender, &senderType,
		&n.Timestamp, &n.IsRead, &n.Details)
	if err != nil {
		return n, err
	}
	if structure != nil {
		n.StructureID = *structure
	}
	if sender != nil {
		n.SenderID = *sender
	}
	if senderType != nil {
		n.SenderType = *senderType
	}
	return n, nil
}

// List returns an owner's notifications of the given types, optionally for one structure
func (r *pg) List(ctx context.Context, ownerID int64, types []string, refineryID *int64) ([]domain.Notification, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT owner_id, notification_id, notif_type, structure_id, sender_id, sender_type,
			timestamp, is_read, details
		FROM notifications
		WHERE owner_id = $1 AND notif_type = ANY($2::text[])`)
	args := []any{ownerID, types}
	if refineryID != nil {
		sb.WriteString(` AND structure_id = $3`)
		args = append(args, *refineryID)
	}
	sb.WriteString(` ORDER BY timestamp, notification_id`)

	out, err := store.Many(ctx, r.q, scanNotification, sb.String(), args...)
	return out, perr.FromPostgresf(err, "list notifications of owner %d", ownerID)
}

// StructureIDs lists the distinct structures named by an owner's notifications of the given types
func (r *pg) StructureIDs(ctx context.Context, ownerID int64, types []string) ([]int64, error) {
	out, err := store.Many(ctx, r.q, func(row store.Row) (int64, error) {
		var id int64
		err := row.Scan(&id)
		return id, err
	}, `
		SELECT DISTINCT structure_id FROM notifications
		WHERE owner_id = $1 AND notif_type = ANY($2::text[]) AND structure_id IS NOT NULL
		ORDER BY structure_id`, ownerID, types)
	return out, perr.FromPostgresf(err, "list structures of owner %d", ownerID)
}
