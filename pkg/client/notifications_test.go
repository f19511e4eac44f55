package client

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"iptv-live/pkg/events"

	"github.com/stretchr/testify/require"
)

type emitted struct {
	event string
	data  any
}

type fakeTransport struct {
	mu       sync.Mutex
	handlers map[string][]Handler
	emitted  []emitted
	released int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[string][]Handler)}
}

func (f *fakeTransport) Emit(event string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitted = append(f.emitted, emitted{event: event, data: data})
	return nil
}

func (f *fakeTransport) Subscribe(event string, h Handler) Unsubscribe {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[event] = append(f.handlers[event], h)
	idx := len(f.handlers[event]) - 1
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.handlers[event][idx] = nil
			f.released++
		})
	}
}

func (f *fakeTransport) push(t *testing.T, event string, v any) {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	f.pushRaw(event, raw)
}

func (f *fakeTransport) pushRaw(event string, raw json.RawMessage) {
	f.mu.Lock()
	hs := append([]Handler(nil), f.handlers[event]...)
	f.mu.Unlock()
	for _, h := range hs {
		if h != nil {
			h(raw)
		}
	}
}

func (f *fakeTransport) events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.emitted))
	for _, e := range f.emitted {
		out = append(out, e.event)
	}
	return out
}

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func note(id string, minutes int, read bool) Notification {
	return Notification{ID: id, Title: id, CreatedAt: base.Add(time.Duration(minutes) * time.Minute), IsRead: read}
}

func ids(ns []Notification) []string {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.ID)
	}
	return out
}

func startHook(t *testing.T) (*Notifications, *fakeTransport) {
	t.Helper()
	tr := newFakeTransport()
	hook := NewNotifications(tr, "u-1")
	require.NoError(t, hook.Start())
	t.Cleanup(hook.Close)
	return hook, tr
}

func TestHook_InitialLoadSortsUnreadFirst(t *testing.T) {
	req := require.New(t)
	hook, tr := startHook(t)

	req.Equal([]string{events.FetchNotifications}, tr.events())

	tr.push(t, events.NotificationsList, map[string]any{
		"notifications": []Notification{note("old-read", 1, true), note("old", 2, false), note("new-read", 5, true), note("new", 4, false)},
		"unreadCount":   99,
		"total":         4,
	})

	state := hook.Snapshot()
	req.Equal([]string{"new", "old", "new-read", "old-read"}, ids(state.Notifications))
	req.Equal(2, state.UnreadCount)
}

func TestHook_BareArrayAndNull(t *testing.T) {
	req := require.New(t)
	hook, tr := startHook(t)

	tr.push(t, events.NotificationsList, []Notification{note("a", 1, false)})
	req.Equal(1, hook.UnreadCount())

	tr.pushRaw(events.NotificationsList, json.RawMessage("null"))
	req.Empty(hook.Snapshot().Notifications)
	req.Equal(0, hook.UnreadCount())

	tr.pushRaw(events.NotificationsList, json.RawMessage(`{"notifications": "nope"}`))
	req.Empty(hook.Snapshot().Notifications)
}

func TestHook_LivePushIsDeduplicated(t *testing.T) {
	req := require.New(t)
	hook, tr := startHook(t)
	tr.push(t, events.NotificationsList, []Notification{note("a", 1, false)})

	tr.push(t, events.NotificationReceived, note("b", 2, false))
	tr.push(t, events.NotificationReceived, note("b", 2, false))
	tr.push(t, events.NotificationReceived, note("a", 1, false))
	tr.pushRaw(events.NotificationReceived, json.RawMessage(`{"title":"no id"}`))
	tr.pushRaw(events.NotificationReceived, json.RawMessage(`[1,2]`))

	state := hook.Snapshot()
	req.Equal([]string{"b", "a"}, ids(state.Notifications))
	req.Equal(2, state.UnreadCount)
}

func TestHook_ListWithRepeatedIDs(t *testing.T) {
	req := require.New(t)
	hook, tr := startHook(t)

	tr.push(t, events.NotificationsList, map[string]any{
		"notifications": []Notification{note("a", 1, false), note("b", 2, false), note("a", 1, false)},
	})

	state := hook.Snapshot()
	req.Equal([]string{"b", "a"}, ids(state.Notifications))
	req.Equal(2, state.UnreadCount)
}

func TestHook_MarkAsRead(t *testing.T) {
	req := require.New(t)
	hook, tr := startHook(t)
	tr.push(t, events.NotificationsList, []Notification{note("a", 1, false), note("b", 2, false)})

	req.NoError(hook.MarkAsRead("b"))

	state := hook.Snapshot()
	req.Equal([]string{"a", "b"}, ids(state.Notifications))
	req.True(state.Notifications[1].IsRead)
	req.Equal(1, state.UnreadCount)
	req.Equal(events.MarkNotificationRead, tr.events()[len(tr.events())-1])

	// already read: no change, nothing sent
	sent := len(tr.events())
	req.NoError(hook.MarkAsRead("b"))
	req.NoError(hook.MarkAsRead("missing"))
	req.Equal(1, hook.UnreadCount())
	req.Len(tr.events(), sent)

	// the server's echo is a no-op
	tr.push(t, events.NotificationRead, map[string]any{"notification_id": "b", "unreadCount": 1})
	req.Equal(1, hook.UnreadCount())
}

func TestHook_MarkAsReadKeepOrderThenResort(t *testing.T) {
	req := require.New(t)
	hook, tr := startHook(t)
	tr.push(t, events.NotificationsList, []Notification{note("a", 1, false), note("b", 2, false)})

	req.NoError(hook.MarkAsReadKeepOrder("b"))
	req.Equal([]string{"b", "a"}, ids(hook.Snapshot().Notifications))
	req.Equal(1, hook.UnreadCount())

	hook.Resort()
	req.Equal([]string{"a", "b"}, ids(hook.Snapshot().Notifications))
}

func TestHook_ServerAcksFromOtherTabs(t *testing.T) {
	req := require.New(t)
	hook, tr := startHook(t)
	tr.push(t, events.NotificationsList, []Notification{note("a", 1, false), note("b", 2, false), note("c", 3, false)})

	tr.push(t, events.NotificationDeleted, map[string]any{"notification_id": "c", "unreadCount": 2})
	req.Equal([]string{"b", "a"}, ids(hook.Snapshot().Notifications))

	tr.push(t, events.NotificationRead, map[string]any{"unreadCount": 0})
	req.Equal(0, hook.UnreadCount())

	tr.push(t, events.NotificationsCleared, map[string]any{"unreadCount": 0})
	req.Empty(hook.Snapshot().Notifications)
}

func TestHook_RemoveAndClearAll(t *testing.T) {
	req := require.New(t)
	hook, tr := startHook(t)
	tr.push(t, events.NotificationsList, []Notification{note("a", 1, false), note("b", 2, true)})

	req.NoError(hook.Remove("a"))
	req.Equal([]string{"b"}, ids(hook.Snapshot().Notifications))
	req.Equal(0, hook.UnreadCount())

	req.NoError(hook.ClearAll())
	req.Empty(hook.Snapshot().Notifications)

	evs := tr.events()
	req.Equal([]string{events.DeleteNotification, events.ClearNotifications}, evs[len(evs)-2:])
}

func TestHook_PreviewAndDrawerSlice(t *testing.T) {
	req := require.New(t)
	hook, tr := startHook(t)
	tr.push(t, events.NotificationsList, []Notification{note("a", 1, false), note("b", 2, false), note("c", 3, true)})
	sent := len(tr.events())

	req.Equal([]string{"b", "a"}, ids(hook.Preview(2)))
	req.Equal([]string{"b", "a", "c"}, ids(hook.Preview(10)))
	req.Equal([]string{"a", "c"}, ids(hook.DrawerSlice(1, 5)))
	req.Empty(hook.DrawerSlice(3, 1))
	req.Empty(hook.DrawerSlice(-4, 0))

	preview := hook.Preview(1)
	preview[0].Title = "mutated"
	req.Equal("b", hook.Snapshot().Notifications[0].Title)
	req.Len(tr.events(), sent)
}

func TestHook_RefreshAndClose(t *testing.T) {
	req := require.New(t)
	tr := newFakeTransport()
	var changes int
	hook := NewNotifications(tr, "u-1", WithOnChange(func(State) { changes++ }))
	req.NoError(hook.Start())

	req.NoError(hook.Refresh())
	req.Equal([]string{events.FetchNotifications, events.FetchNotifications}, tr.events())

	tr.push(t, events.NotificationsList, []Notification{note("a", 1, false)})
	req.Equal(1, changes)

	hook.Close()
	hook.Close()
	req.Equal(5, tr.released)

	tr.push(t, events.NotificationReceived, note("b", 2, false))
	req.Len(hook.Snapshot().Notifications, 1)
}

func TestHook_SortInvariantUnderRandomOps(t *testing.T) {
	req := require.New(t)
	hook, tr := startHook(t)

	for i := range 30 {
		n := note(string(rune('a'+i%26))+string(rune('0'+i/26)), (i*7)%23, i%3 == 0)
		tr.push(t, events.NotificationReceived, n)
		if i%4 == 0 {
			req.NoError(hook.MarkAsRead(n.ID))
		}
		if i%9 == 0 {
			req.NoError(hook.Remove(n.ID))
		}

		state := hook.Snapshot()
		unread := 0
		seenRead := false
		for j, x := range state.Notifications {
			if x.IsRead {
				seenRead = true
			} else {
				unread++
				req.False(seenRead, "unread after read at %d", j)
			}
			if j > 0 && state.Notifications[j-1].IsRead == x.IsRead {
				req.False(x.CreatedAt.After(state.Notifications[j-1].CreatedAt))
			}
		}
		req.Equal(unread, state.UnreadCount)
	}
}
