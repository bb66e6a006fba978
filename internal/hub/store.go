package hub

import (
	"errors"

	"github.com/DoyleJ11/lol-draft-rooms/internal/lobby"
	"github.com/DoyleJ11/lol-draft-rooms/internal/types"
)

var ErrRoomAlreadyExists = errors.New("room already exists")
var ErrRoomNotFound = errors.New("room does not exist")

type entry struct {
	lobby   *lobby.Lobby
	summary types.RoomSummary // last roster snapshot reported by the lobby
}

// store is the authoritative set of rooms, kept in creation order.
// Owned by the hub goroutine.
type store struct {
	rooms map[string]*entry
	order []string
}

func newStore() *store {
	return &store{rooms: make(map[string]*entry)}
}

func (s *store) find(name string) (*entry, bool) {
	e, ok := s.rooms[name]
	return e, ok
}

// create registers a room under name. spawn is only called when the name is free.
func (s *store) create(name, creator string, spawn func() *lobby.Lobby) (*entry, error) {
	if _, exists := s.rooms[name]; exists {
		return nil, ErrRoomAlreadyExists
	}
	e := &entry{
		lobby: spawn(),
		summary: types.RoomSummary{
			Name:     name,
			Creator:  creator,
			BlueTeam: []string{},
			RedTeam:  []string{},
		},
	}
	s.rooms[name] = e
	s.order = append(s.order, name)
	return e, nil
}

func (s *store) update(summary types.RoomSummary) {
	if e, ok := s.rooms[summary.Name]; ok {
		e.summary = summary
	}
}

func (s *store) list() []types.RoomSummary {
	out := make([]types.RoomSummary, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.rooms[name].summary)
	}
	return out
}

// remove deletes the room and returns its lobby, or nil if it was already gone.
func (s *store) remove(name string) *lobby.Lobby {
	e, ok := s.rooms[name]
	if !ok {
		return nil
	}
	delete(s.rooms, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return e.lobby
}

func (s *store) all() []*lobby.Lobby {
	out := make([]*lobby.Lobby, 0, len(s.rooms))
	for _, e := range s.rooms {
		out = append(out, e.lobby)
	}
	return out
}
