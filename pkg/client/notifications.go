package client

import (
	"encoding/json"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"iptv-live/pkg/events"

	"github.com/samber/lo"
)

// State is a copy of the hook's view. Notifications are unread first, then
// read, each newest first; UnreadCount always matches the list.
type State struct {
	Notifications []Notification
	UnreadCount   int
}

type HookOption func(*Notifications)

// WithOnChange registers fn to be called, outside the hook's lock, after
// every change of state.
func WithOnChange(fn func(State)) HookOption {
	return func(n *Notifications) { n.onChange = fn }
}

func WithLogger(log *slog.Logger) HookOption {
	return func(n *Notifications) { n.log = log }
}

// Notifications keeps one user's notifications consistent across the
// initial fetch, live pushes and local read/delete actions.
type Notifications struct {
	transport Transport
	userID    string
	log       *slog.Logger
	onChange  func(State)

	mu     sync.Mutex
	items  []Notification
	unread int
	unsubs []Unsubscribe
}

func NewNotifications(t Transport, userID string, opts ...HookOption) *Notifications {
	n := &Notifications{
		transport: t,
		userID:    userID,
		log:       slog.Default(),
		items:     []Notification{},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type readAck struct {
	NotificationID string `json:"notification_id"`
}

// Start subscribes to the notification events and requests the full list.
func (n *Notifications) Start() error {
	n.mu.Lock()
	n.unsubs = append(n.unsubs,
		n.transport.Subscribe(events.NotificationsList, n.onList),
		n.transport.Subscribe(events.NotificationReceived, n.onPush),
		n.transport.Subscribe(events.NotificationRead, n.onRead),
		n.transport.Subscribe(events.NotificationDeleted, n.onDeleted),
		n.transport.Subscribe(events.NotificationsCleared, n.onCleared),
	)
	n.mu.Unlock()
	return n.Refresh()
}

// Close releases every subscription taken by Start.
func (n *Notifications) Close() {
	n.mu.Lock()
	unsubs := n.unsubs
	n.unsubs = nil
	n.mu.Unlock()
	for _, u := range unsubs {
		u()
	}
}

// Refresh asks the server for the full list again.
func (n *Notifications) Refresh() error {
	return n.transport.Emit(events.FetchNotifications, events.Fetch{UserID: n.userID})
}

func (n *Notifications) onList(data json.RawMessage) {
	p := ParsePayload(data)
	items := lo.UniqBy(p.Notifications, func(x Notification) string { return x.ID })
	n.update(func() bool {
		n.items = items
		return true
	})
}

func (n *Notifications) onPush(data json.RawMessage) {
	var item Notification
	if err := json.Unmarshal(data, &item); err != nil || item.ID == "" {
		n.log.Debug("Ignoring malformed notification push", "error", err)
		return
	}
	n.update(func() bool {
		if lo.ContainsBy(n.items, func(x Notification) bool { return x.ID == item.ID }) {
			return false
		}
		n.items = append([]Notification{item}, n.items...)
		return true
	})
}

// onRead applies the server's acknowledgement; an empty id means all.
func (n *Notifications) onRead(data json.RawMessage) {
	var ack readAck
	_ = json.Unmarshal(data, &ack)
	n.update(func() bool {
		changed := false
		for i := range n.items {
			if !n.items[i].IsRead && (ack.NotificationID == "" || n.items[i].ID == ack.NotificationID) {
				n.items[i].IsRead = true
				changed = true
			}
		}
		return changed
	})
}

func (n *Notifications) onDeleted(data json.RawMessage) {
	var ack readAck
	if err := json.Unmarshal(data, &ack); err != nil || ack.NotificationID == "" {
		return
	}
	n.update(func() bool { return n.removeLocked(ack.NotificationID) })
}

func (n *Notifications) onCleared(json.RawMessage) {
	n.update(func() bool {
		if len(n.items) == 0 {
			return false
		}
		n.items = []Notification{}
		return true
	})
}

// MarkAsRead flips the notification locally, then tells the server.
func (n *Notifications) MarkAsRead(id string) error {
	return n.markAsRead(id, true)
}

// MarkAsReadKeepOrder flips the notification but leaves it in place until
// Resort is called, for UIs that animate the move.
func (n *Notifications) MarkAsReadKeepOrder(id string) error {
	return n.markAsRead(id, false)
}

func (n *Notifications) markAsRead(id string, resort bool) error {
	found := false
	n.apply(resort, func() bool {
		for i := range n.items {
			if n.items[i].ID == id && !n.items[i].IsRead {
				n.items[i].IsRead = true
				found = true
				return true
			}
		}
		return false
	})
	if !found {
		return nil
	}
	return n.transport.Emit(events.MarkNotificationRead, events.NotificationRef{NotificationID: id})
}

// Remove drops the notification locally and asks the server to delete it.
func (n *Notifications) Remove(id string) error {
	n.update(func() bool { return n.removeLocked(id) })
	return n.transport.Emit(events.DeleteNotification, events.NotificationRef{NotificationID: id})
}

func (n *Notifications) ClearAll() error {
	n.update(func() bool {
		n.items = []Notification{}
		return true
	})
	return n.transport.Emit(events.ClearNotifications, struct{}{})
}

func (n *Notifications) removeLocked(id string) bool {
	kept := lo.Reject(n.items, func(x Notification, _ int) bool { return x.ID == id })
	if len(kept) == len(n.items) {
		return false
	}
	n.items = kept
	return true
}

// Resort re-derives the unread-first, newest-first order.
func (n *Notifications) Resort() {
	n.update(func() bool { return true })
}

// Preview returns up to count notifications from the top of the list.
func (n *Notifications) Preview(count int) []Notification {
	return n.DrawerSlice(0, count)
}

// DrawerSlice returns a copy of items [start, end), clamped to the list.
func (n *Notifications) DrawerSlice(start, end int) []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	start = max(start, 0)
	end = min(end, len(n.items))
	if start >= end {
		return []Notification{}
	}
	return slices.Clone(n.items[start:end])
}

func (n *Notifications) Snapshot() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stateLocked()
}

func (n *Notifications) UnreadCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.unread
}

func (n *Notifications) update(mutate func() bool) {
	n.apply(true, mutate)
}

// apply runs mutate under the lock, re-derives order and unread count, and
// reports the new state when anything changed.
func (n *Notifications) apply(resort bool, mutate func() bool) {
	n.mu.Lock()
	if !mutate() {
		n.mu.Unlock()
		return
	}
	if resort {
		sortNotifications(n.items)
	}
	n.unread = lo.CountBy(n.items, func(x Notification) bool { return !x.IsRead })
	state := n.stateLocked()
	onChange := n.onChange
	n.mu.Unlock()

	if onChange != nil {
		onChange(state)
	}
}

func (n *Notifications) stateLocked() State {
	return State{Notifications: slices.Clone(n.items), UnreadCount: n.unread}
}

func sortNotifications(items []Notification) {
	slices.SortStableFunc(items, func(a, b Notification) int {
		if a.IsRead != b.IsRead {
			if !a.IsRead {
				return -1
			}
			return 1
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
