package presence

import (
	"slices"
	"strings"
	"sync"

	"iptv-live/internal/identity"
)

// Online is the process-wide user_id -> identity map. A user with several
// open connections stays online until the last one disconnects.
type Online struct {
	mu    sync.RWMutex
	users map[string]identity.Identity
	conns map[string]int
}

func NewOnline() *Online {
	return &Online{
		users: make(map[string]identity.Identity),
		conns: make(map[string]int),
	}
}

// Add returns the online list and whether this is the user's first
// connection.
func (o *Online) Add(id identity.Identity) ([]identity.Identity, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.users[id.UserID] = id
	o.conns[id.UserID]++
	return o.listLocked(), o.conns[id.UserID] == 1
}

// Remove returns the online list and whether the user's last connection
// just closed.
func (o *Online) Remove(id identity.Identity) ([]identity.Identity, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	n, ok := o.conns[id.UserID]
	if !ok {
		return o.listLocked(), false
	}
	if n > 1 {
		o.conns[id.UserID] = n - 1
		return o.listLocked(), false
	}
	delete(o.conns, id.UserID)
	delete(o.users, id.UserID)
	return o.listLocked(), true
}

func (o *Online) IsOnline(userID string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.users[userID]
	return ok
}

func (o *Online) List() []identity.Identity {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.listLocked()
}

func (o *Online) listLocked() []identity.Identity {
	out := make([]identity.Identity, 0, len(o.users))
	for _, id := range o.users {
		out = append(out, id)
	}
	sortByUserID(out)
	return out
}

func sortByUserID(ids []identity.Identity) {
	slices.SortFunc(ids, func(a, b identity.Identity) int {
		return strings.Compare(a.UserID, b.UserID)
	})
}
