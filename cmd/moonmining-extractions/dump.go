package main

import (
	"io"
	"os"
	"time"

	"moonmining/internal/adapters/esi/notification"
	perr "moonmining/internal/platform/errors"

	"gopkg.in/yaml.v3"
)

// dumpNotification is one character notification as exported from the notifications endpoint
type dumpNotification struct {
	NotificationID int64     `yaml:"notification_id"`
	Type           string    `yaml:"type"`
	Timestamp      time.Time `yaml:"timestamp"`
	Text           string    `yaml:"text"`
	SenderID       int64     `yaml:"sender_id"`
	SenderType     string    `yaml:"sender_type"`
	IsRead         *bool     `yaml:"is_read"`
}

type dumpOwner struct {
	OwnerID       int64              `yaml:"owner_id"`
	Notifications []dumpNotification `yaml:"notifications"`
}

// readDump loads a notifications dump file grouped by owner
func readDump(path string) (map[int64][]notification.Raw, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "open dump %s", path)
	}
	defer func() { _ = f.Close() }()
	return decodeDump(f)
}

func decodeDump(r io.Reader) (map[int64][]notification.Raw, error) {
	var owners []dumpOwner
	if err := yaml.NewDecoder(r).Decode(&owners); err != nil && err != io.EOF {
		return nil, perr.Wrap(err, perr.ErrorCodeMalformedEvent, "decode dump")
	}
	out := make(map[int64][]notification.Raw, len(owners))
	for _, o := range owners {
		if o.OwnerID <= 0 {
			return nil, perr.InvalidArgf("dump entry without owner_id")
		}
		for _, n := range o.Notifications {
			out[o.OwnerID] = append(out[o.OwnerID], notification.Raw{
				NotificationID: n.NotificationID,
				Type:           n.Type,
				Timestamp:      n.Timestamp,
				Text:           n.Text,
				SenderID:       n.SenderID,
				SenderType:     n.SenderType,
				IsRead:         n.IsRead,
			})
		}
	}
	return out, nil
}
