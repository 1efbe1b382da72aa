package server

import "sort"

// SessionAndUserID is one connection's identity pair. SessionID
// uniquely identifies a transport connection for its lifetime; UserID
// is a short server-assigned pseudo-identity. Both are opaque tokens.
type SessionAndUserID struct {
	SessionID string
	UserID    string
}

// UserSessionHandle is the capability a session holds for one room
// membership and presents back to leave the room. Two handles are equal
// iff their room and identity match.
type UserSessionHandle struct {
	Room     string
	Identity SessionAndUserID
}

// userRegistry tracks which identities are members of a single room.
// It does no locking of its own; the owning room serializes access.
type userRegistry struct {
	members map[UserSessionHandle]struct{}
}

func newUserRegistry() *userRegistry {
	return &userRegistry{members: make(map[UserSessionHandle]struct{})}
}

// insert records the handle, reporting whether it was newly added. A
// repeat insert is a no-op returning false.
func (r *userRegistry) insert(handle UserSessionHandle) bool {
	if _, ok := r.members[handle]; ok {
		return false
	}
	r.members[handle] = struct{}{}
	return true
}

// remove deletes the handle, reporting whether an entry was actually
// removed. Removing an absent handle is a no-op returning false.
func (r *userRegistry) remove(handle UserSessionHandle) bool {
	if _, ok := r.members[handle]; !ok {
		return false
	}
	delete(r.members, handle)
	return true
}

// uniqueUserIDs returns the distinct user ids currently present,
// sorted. A user holding several sessions in the room counts once.
func (r *userRegistry) uniqueUserIDs() []string {
	seen := make(map[string]struct{}, len(r.members))
	for handle := range r.members {
		seen[handle.Identity.UserID] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
