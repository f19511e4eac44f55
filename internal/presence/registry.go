package presence

import (
	"sync"

	"iptv-live/internal/identity"

	"github.com/samber/lo"
)

// Registry tracks which identities are present in each conversation room.
// A room lists at most one entry per user id, showing that user's latest
// connection. The user stays listed until their last connection in the room
// leaves.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string][]identity.Identity
	// room id -> user id -> connection id -> identity
	conns map[string]map[string]map[string]identity.Identity
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string][]identity.Identity),
		conns: make(map[string]map[string]map[string]identity.Identity),
	}
}

// Join drops any entry with the same user id, appends id and returns a copy of
// the resulting membership. The room is created on first join.
func (r *Registry) Join(roomID string, id identity.Identity) []identity.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := lo.Filter(r.rooms[roomID], func(m identity.Identity, _ int) bool {
		return m.UserID != id.UserID
	})
	members = append(members, id)
	r.rooms[roomID] = members

	users, ok := r.conns[roomID]
	if !ok {
		users = make(map[string]map[string]identity.Identity)
		r.conns[roomID] = users
	}
	if users[id.UserID] == nil {
		users[id.UserID] = make(map[string]identity.Identity)
	}
	users[id.UserID][id.ConnectionID] = id
	return clone(members)
}

// Leave removes the connection from roomID. It reports whether the list of
// users changed; unknown rooms are a no-op.
func (r *Registry) Leave(roomID string, id identity.Identity) ([]identity.Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(roomID, id)
}

// LeaveAll removes the connection from every room it is registered in and
// returns the new membership of each room whose user list changed.
func (r *Registry) LeaveAll(id identity.Identity) map[string][]identity.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()

	affected := make(map[string][]identity.Identity)
	for roomID := range r.rooms {
		if members, changed := r.leaveLocked(roomID, id); changed {
			affected[roomID] = members
		}
	}
	return affected
}

func (r *Registry) leaveLocked(roomID string, id identity.Identity) ([]identity.Identity, bool) {
	members, ok := r.rooms[roomID]
	if !ok {
		return nil, false
	}
	open := r.conns[roomID][id.UserID]
	if _, joined := open[id.ConnectionID]; !joined {
		return clone(members), false
	}
	delete(open, id.ConnectionID)

	if len(open) > 0 {
		// Another tab of the same user is still in the room: keep the user
		// listed under one of the remaining connections.
		for i, m := range members {
			if m.UserID == id.UserID && m.ConnectionID == id.ConnectionID {
				for _, other := range open {
					members[i] = other
					break
				}
			}
		}
		return clone(members), false
	}

	delete(r.conns[roomID], id.UserID)
	kept := lo.Reject(members, func(m identity.Identity, _ int) bool {
		return m.UserID == id.UserID
	})
	if len(kept) == 0 {
		delete(r.rooms, roomID)
		delete(r.conns, roomID)
		return []identity.Identity{}, true
	}
	r.rooms[roomID] = kept
	return clone(kept), true
}

func (r *Registry) Contains(roomID, userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.ContainsBy(r.rooms[roomID], func(m identity.Identity) bool {
		return m.UserID == userID
	})
}

func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func clone(members []identity.Identity) []identity.Identity {
	out := make([]identity.Identity, len(members))
	copy(out, members)
	return out
}
