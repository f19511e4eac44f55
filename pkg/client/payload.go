package client

import (
	"bytes"
	"encoding/json"
)

type PayloadKind int

const (
	PayloadEmpty PayloadKind = iota
	PayloadObject
	PayloadArray
)

// Payload is the canonical shape of a notifications_list message.
type Payload struct {
	Kind          PayloadKind
	Notifications []Notification
	UnreadCount   int
	Total         int
}

type listObject struct {
	Notifications []json.RawMessage `json:"notifications"`
	UnreadCount   int               `json:"unreadCount"`
	Total         int               `json:"total"`
}

// ParsePayload accepts {notifications, unreadCount, total}, a bare array
// (unread count 0), or anything else as empty. It never fails; items that
// do not decode or have no id are skipped.
func ParsePayload(raw json.RawMessage) Payload {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return emptyPayload()
	}

	switch trimmed[0] {
	case '{':
		var obj listObject
		if err := json.Unmarshal(trimmed, &obj); err != nil || obj.Notifications == nil {
			return emptyPayload()
		}
		items := decodeItems(obj.Notifications)
		total := obj.Total
		if total < len(items) {
			total = len(items)
		}
		return Payload{Kind: PayloadObject, Notifications: items, UnreadCount: max(obj.UnreadCount, 0), Total: total}

	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return emptyPayload()
		}
		items := decodeItems(arr)
		return Payload{Kind: PayloadArray, Notifications: items, UnreadCount: 0, Total: len(items)}

	default:
		return emptyPayload()
	}
}

func emptyPayload() Payload {
	return Payload{Kind: PayloadEmpty, Notifications: []Notification{}}
}

func decodeItems(raw []json.RawMessage) []Notification {
	out := make([]Notification, 0, len(raw))
	for _, r := range raw {
		var n Notification
		if err := json.Unmarshal(r, &n); err != nil || n.ID == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}
