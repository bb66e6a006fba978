package hub

import (
	"context"
	"errors"
	"strings"

	"github.com/DoyleJ11/lol-draft-rooms/internal/catalog"
	"github.com/DoyleJ11/lol-draft-rooms/internal/engine"
	"github.com/DoyleJ11/lol-draft-rooms/internal/lobby"
	"github.com/DoyleJ11/lol-draft-rooms/internal/registry"
	"github.com/DoyleJ11/lol-draft-rooms/internal/session"
	"github.com/DoyleJ11/lol-draft-rooms/internal/types"
	"go.uber.org/zap"
)

type HubMsg interface{ isHubMsg() }

// Connect adds a session to the global audience.
type Connect struct {
	Session *session.Session
}

// Disconnect runs the cleanup for a closed transport. Done, if set, is
// closed once cleanup has finished.
type Disconnect struct {
	SessionID string
	Done      chan struct{}
}

type GetRooms struct {
	SessionID string
}

type CreateRoom struct {
	SessionID string
	RoomName  string
	Creator   string
}

type JoinRoom struct {
	SessionID string
	RoomName  string
	Username  string
	Team      engine.Team
}

type SelectChampion struct {
	SessionID  string
	RoomName   string
	Team       engine.Team
	Type       engine.CommandType
	ChampionID int
}

type ListRooms struct {
	Reply chan []types.RoomSummary
}

type GetLobby struct {
	RoomName string
	Reply    chan *lobby.Lobby
}

type ShutdownHub struct{}

func (Connect) isHubMsg()        {}
func (Disconnect) isHubMsg()     {}
func (GetRooms) isHubMsg()       {}
func (CreateRoom) isHubMsg()     {}
func (JoinRoom) isHubMsg()       {}
func (SelectChampion) isHubMsg() {}
func (ListRooms) isHubMsg()      {}
func (GetLobby) isHubMsg()       {}
func (ShutdownHub) isHubMsg()    {}

// Hub owns the room directory, the connection registry and the global
// audience. All of it is touched only from the hub goroutine; per-room
// rosters and draft state live in each room's lobby goroutine.
type Hub struct {
	inbox    chan HubMsg
	rooms    *store
	conns    *registry.Registry
	sessions map[string]*session.Session
	catalog  *catalog.Catalog
	rules    engine.Rules
	ctx      context.Context
	cancel   context.CancelFunc
	log      *zap.Logger
}

func NewHub(parent context.Context, cat *catalog.Catalog, rules engine.Rules, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		rooms:    newStore(),
		conns:    registry.New(),
		sessions: make(map[string]*session.Session),
		catalog:  cat,
		rules:    rules,
		ctx:      ctx,
		cancel:   cancel,
		log:      log,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Send delivers msg to the hub unless it has stopped.
func (h *Hub) Send(msg HubMsg) bool {
	if h.ctx.Err() != nil {
		return false
	}
	select {
	case h.inbox <- msg:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Connect:
				h.sessions[msg.Session.ID()] = msg.Session
				h.log.Debug("session connected", zap.String("session", msg.Session.ID()))

			case Disconnect:
				h.disconnect(msg.SessionID)
				if msg.Done != nil {
					close(msg.Done)
				}

			case GetRooms:
				if s := h.sessions[msg.SessionID]; s != nil {
					s.Send(types.RoomList(h.rooms.list()))
				}

			case CreateRoom:
				h.createRoom(msg)

			case JoinRoom:
				h.joinRoom(msg)

			case SelectChampion:
				h.selectChampion(msg)

			case ListRooms:
				msg.Reply <- h.rooms.list()

			case GetLobby:
				var lb *lobby.Lobby
				if e, ok := h.rooms.find(msg.RoomName); ok {
					lb = e.lobby
				}
				msg.Reply <- lb // May be nil

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) createRoom(msg CreateRoom) {
	requester := h.sessions[msg.SessionID]
	if requester == nil {
		return
	}
	creator := strings.TrimSpace(msg.Creator)
	if strings.TrimSpace(msg.RoomName) == "" || creator == "" {
		h.log.Debug("ignoring createRoom without name or creator", zap.String("session", msg.SessionID))
		return
	}

	state := engine.NewState(h.catalog.Snapshot())
	_, err := h.rooms.create(msg.RoomName, creator, func() *lobby.Lobby {
		return lobby.NewLobby(h.ctx, msg.RoomName, creator, state, h.rules, h.log)
	})
	if err != nil {
		h.log.Info("create room rejected", zap.String("room", msg.RoomName), zap.Error(err))
		requester.Send(types.RoomError(errorText(err, "")))
		return
	}

	h.log.Info("room created", zap.String("room", msg.RoomName), zap.String("creator", creator))
	h.broadcastAll(types.RoomList(h.rooms.list()))
	requester.Send(types.DraftState(state.Clone()))
}

func (h *Hub) joinRoom(msg JoinRoom) {
	requester := h.sessions[msg.SessionID]
	if requester == nil {
		return
	}
	username := strings.TrimSpace(msg.Username)
	if _, ok := engine.ParseTeam(string(msg.Team)); !ok || username == "" {
		h.log.Debug("ignoring malformed joinRoom", zap.String("session", msg.SessionID))
		return
	}

	e, ok := h.rooms.find(msg.RoomName)
	if !ok {
		requester.Send(types.RoomError(errorText(ErrRoomNotFound, "")))
		return
	}

	res, ok := request(e.lobby, func(reply chan lobby.JoinResult) lobby.Msg {
		return lobby.Join{Session: requester, Username: username, Team: msg.Team, Reply: reply}
	})
	if !ok {
		requester.Send(types.RoomError(errorText(ErrRoomNotFound, "")))
		return
	}
	if res.Err != nil {
		requester.Send(types.RoomError(errorText(res.Err, msg.Team)))
		return
	}
	h.rooms.update(res.Summary)

	prev, wasBound := h.conns.Lookup(msg.SessionID)
	h.conns.Bind(msg.SessionID, registry.Identity{DisplayName: username, RoomName: msg.RoomName, Team: msg.Team})

	// A connection declares one identity at a time; release the old one.
	if wasBound && (prev.RoomName != msg.RoomName || prev.DisplayName != username) {
		h.vacate(msg.SessionID, prev, prev.RoomName != msg.RoomName)
	}

	h.broadcastAll(types.RoomList(h.rooms.list()))
}

func (h *Hub) disconnect(sessionID string) {
	delete(h.sessions, sessionID)

	id, ok := h.conns.Lookup(sessionID)
	if !ok {
		// never joined anything
		return
	}
	h.conns.Unbind(sessionID)
	h.vacate(sessionID, id, true)

	h.log.Debug("session disconnected",
		zap.String("session", sessionID),
		zap.String("room", id.RoomName),
		zap.String("username", id.DisplayName),
		zap.Int("bound", h.conns.Len()))
	h.broadcastAll(types.RoomList(h.rooms.list()))
}

// vacate removes a previously declared identity from its room's roster and
// reclaims the room if nothing holds it anymore. The session must already be
// unbound from (or rebound away from) that identity.
func (h *Hub) vacate(sessionID string, id registry.Identity, unsubscribe bool) {
	e, ok := h.rooms.find(id.RoomName)
	if !ok {
		return
	}
	sid := ""
	if unsubscribe {
		sid = sessionID
	}
	summary, ok := request(e.lobby, func(reply chan types.RoomSummary) lobby.Msg {
		return lobby.Leave{SessionID: sid, Username: id.DisplayName, Team: id.Team, Reply: reply}
	})
	if !ok {
		return
	}
	h.rooms.update(summary)

	// Rosters and live connections can disagree: a socket may be bound
	// without a roster slot. Both must be empty before the room goes.
	remaining := h.conns.CountBoundTo(id.RoomName)
	if !summary.Empty() || remaining > 0 {
		return
	}
	if lb := h.rooms.remove(id.RoomName); lb != nil {
		stopLobby(lb)
		h.log.Info("room reclaimed", zap.String("room", id.RoomName))
	}
}

func (h *Hub) selectChampion(msg SelectChampion) {
	requester := h.sessions[msg.SessionID]
	if requester == nil {
		return
	}
	e, ok := h.rooms.find(msg.RoomName)
	if !ok {
		requester.Send(types.RoomError(errorText(ErrRoomNotFound, "")))
		return
	}

	var actor engine.Team
	if id, ok := h.conns.Lookup(msg.SessionID); ok && id.RoomName == msg.RoomName {
		actor = id.Team
	}
	act := lobby.Act{
		Session: requester,
		Cmd: engine.Command{
			Type:       msg.Type,
			Team:       msg.Team,
			Actor:      actor,
			ChampionID: msg.ChampionID,
		},
	}
	select {
	case e.lobby.Inbox() <- act:
	case <-e.lobby.Done():
	}
}

func (h *Hub) broadcastAll(msg types.ServerMessage) {
	for _, s := range h.sessions {
		s.Send(msg)
	}
}

func (h *Hub) shutdown() {
	for _, lb := range h.rooms.all() {
		stopLobby(lb)
	}
	h.rooms = newStore()
	h.cancel()
}

// request sends a message built around a fresh reply channel and waits for
// the answer. It reports false if the lobby stopped first.
func request[T any](lb *lobby.Lobby, build func(chan T) lobby.Msg) (T, bool) {
	var zero T
	reply := make(chan T, 1)
	select {
	case lb.Inbox() <- build(reply):
	case <-lb.Done():
		return zero, false
	}
	select {
	case v := <-reply:
		return v, true
	case <-lb.Done():
		return zero, false
	}
}

func stopLobby(lb *lobby.Lobby) {
	select {
	case lb.Inbox() <- lobby.Shutdown{}:
	case <-lb.Done():
	}
}

// errorText maps a rejected request onto the message shown to the client.
func errorText(err error, team engine.Team) string {
	switch {
	case errors.Is(err, ErrRoomAlreadyExists):
		return "Room already exists"
	case errors.Is(err, ErrRoomNotFound):
		return "Room does not exist"
	case errors.Is(err, lobby.ErrTeamFull):
		if team == engine.TeamRed {
			return "Red team is full"
		}
		return "Blue team is full"
	default:
		return err.Error()
	}
}
