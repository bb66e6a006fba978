// Package registry tracks which identity each live connection last declared.
package registry

import "github.com/DoyleJ11/lol-draft-rooms/internal/engine"

type Identity struct {
	DisplayName string
	RoomName    string
	Team        engine.Team
}

// Registry is not safe for concurrent use. The hub goroutine owns it.
type Registry struct {
	bound map[string]Identity // session id -> identity
}

func New() *Registry {
	return &Registry{bound: make(map[string]Identity)}
}

// Bind records or overwrites the identity bound to sessionID.
func (r *Registry) Bind(sessionID string, id Identity) {
	r.bound[sessionID] = id
}

func (r *Registry) Lookup(sessionID string) (Identity, bool) {
	id, ok := r.bound[sessionID]
	return id, ok
}

func (r *Registry) Unbind(sessionID string) {
	delete(r.bound, sessionID)
}

// CountBoundTo returns how many live connections declare membership in roomName.
func (r *Registry) CountBoundTo(roomName string) int {
	n := 0
	for _, id := range r.bound {
		if id.RoomName == roomName {
			n++
		}
	}
	return n
}

func (r *Registry) Len() int { return len(r.bound) }
