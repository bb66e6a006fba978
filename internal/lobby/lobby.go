package lobby

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/DoyleJ11/lol-draft-rooms/internal/engine"
	"github.com/DoyleJ11/lol-draft-rooms/internal/session"
	"github.com/DoyleJ11/lol-draft-rooms/internal/types"
	"go.uber.org/zap"
)

// MaxTeamSize is the roster capacity of each team.
const MaxTeamSize = 5

var ErrTeamFull = errors.New("team is full")

type Msg interface{ isLobbyMsg() }

// Join puts Username on Team, vacating the other team's slot in the same step,
// and subscribes Session to room broadcasts.
type Join struct {
	Session  *session.Session
	Username string
	Team     engine.Team
	Reply    chan JoinResult
}

func (Join) isLobbyMsg() {}

type JoinResult struct {
	Summary types.RoomSummary
	Err     error
}

// Leave removes Username from Team's roster. If SessionID is set the
// connection also stops receiving room broadcasts.
type Leave struct {
	SessionID string
	Username  string
	Team      engine.Team
	Reply     chan types.RoomSummary
}

func (Leave) isLobbyMsg() {}

// Act applies a ban or pick. Errors go back to Session only.
type Act struct {
	Session *session.Session
	Cmd     engine.Command
}

func (Act) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type View struct {
	Version    int
	NumClients int
	Room       types.Room
}

type Lobby struct {
	name    string
	creator string
	blue    []string
	red     []string
	state   engine.State
	rules   engine.Rules
	version int

	inbox   chan Msg
	clients map[string]*session.Session
	ctx     context.Context
	cancel  context.CancelFunc
	log     *zap.Logger
}

func NewLobby(parent context.Context, name, creator string, initial engine.State, rules engine.Rules, log *zap.Logger) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		name:    name,
		creator: creator,
		blue:    []string{},
		red:     []string{},
		state:   initial,
		rules:   rules,
		inbox:   make(chan Msg, 64), // Small buffer
		clients: make(map[string]*session.Session),
		ctx:     ctx,
		cancel:  cancel,
		log:     log.With(zap.String("room", name)),
	}

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				msg.Reply <- l.join(msg)

			case Leave:
				msg.Reply <- l.leave(msg)

			case Act:
				l.act(msg)

			case GetState:
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					Room:       l.room(),
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) join(msg Join) JoinResult {
	target := l.roster(msg.Team)
	if len(*target) >= MaxTeamSize && !slices.Contains(*target, msg.Username) {
		return JoinResult{Summary: l.summary(), Err: fmt.Errorf("%w: %s", ErrTeamFull, msg.Team)}
	}

	// Switching sides: vacate the old slot before taking the new one.
	other := l.roster(msg.Team.Other())
	*other = slices.DeleteFunc(*other, func(p string) bool { return p == msg.Username })
	if !slices.Contains(*target, msg.Username) {
		*target = append(*target, msg.Username)
	}
	l.clients[msg.Session.ID()] = msg.Session
	l.version++

	l.log.Info("player joined",
		zap.String("username", msg.Username),
		zap.String("team", string(msg.Team)),
		zap.Int("blue", len(l.blue)),
		zap.Int("red", len(l.red)))

	l.broadcast(types.RoomUpdated(l.room()))
	msg.Session.Send(types.DraftState(l.state.Clone()))
	return JoinResult{Summary: l.summary()}
}

func (l *Lobby) leave(msg Leave) types.RoomSummary {
	roster := l.roster(msg.Team)
	*roster = slices.DeleteFunc(*roster, func(p string) bool { return p == msg.Username })
	if msg.SessionID != "" {
		delete(l.clients, msg.SessionID)
	}
	l.version++

	l.log.Info("player left",
		zap.String("username", msg.Username),
		zap.String("team", string(msg.Team)))

	l.broadcast(types.RoomUpdated(l.room()))
	return l.summary()
}

func (l *Lobby) act(msg Act) {
	events, next, err := engine.Apply(l.state, msg.Cmd, l.rules)
	if err != nil {
		if errors.Is(err, engine.ErrUnknownChampion) || errors.Is(err, engine.ErrUnsupportedCommand) {
			l.log.Debug("ignoring malformed selection", zap.Error(err))
			return
		}
		l.log.Debug("selection rejected", zap.Error(err))
		if msg.Session != nil {
			msg.Session.Send(types.RoomError(rejectionText(err)))
		}
		return
	}

	l.state = next
	l.version++
	for _, e := range events {
		l.log.Debug("draft event",
			zap.String("event", string(e.Type)),
			zap.String("team", string(e.Team)),
			zap.Int("champion_id", e.ChampionID))
	}
	if engine.ContainsEvent(events, engine.EvtDraftCompleted) {
		l.log.Info("draft completed")
	}

	l.broadcast(types.DraftState(l.state.Clone()))
}

func (l *Lobby) shutdown() {
	clear(l.clients)
	l.cancel()
}

func (l *Lobby) broadcast(msg types.ServerMessage) {
	for id, s := range l.clients {
		if !s.Send(msg) {
			// Client is slow/full - drop them. The transport closes it.
			delete(l.clients, id)
		}
	}
}

func (l *Lobby) roster(team engine.Team) *[]string {
	if team == engine.TeamRed {
		return &l.red
	}
	return &l.blue
}

func (l *Lobby) summary() types.RoomSummary {
	return types.RoomSummary{
		Name:     l.name,
		Creator:  l.creator,
		BlueTeam: slices.Clone(l.blue),
		RedTeam:  slices.Clone(l.red),
	}
}

func (l *Lobby) room() types.Room {
	return types.Room{RoomSummary: l.summary(), DraftState: l.state.Clone()}
}

func rejectionText(err error) string {
	switch {
	case errors.Is(err, engine.ErrWrongTurn):
		return "It is not your turn"
	case errors.Is(err, engine.ErrWrongTeam):
		return "You are not on that team"
	case errors.Is(err, engine.ErrIllegalBan), errors.Is(err, engine.ErrIllegalPick):
		return "Champion is already banned or picked"
	case errors.Is(err, engine.ErrDraftCompleted):
		return "Draft is already complete"
	default:
		return err.Error()
	}
}

func (l *Lobby) Name() string { return l.name }

// Expose the inbox so tests or the hub can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the lobby has stopped.
func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }
