package hub

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DoyleJ11/lol-draft-rooms/internal/catalog"
	"github.com/DoyleJ11/lol-draft-rooms/internal/engine"
	"github.com/DoyleJ11/lol-draft-rooms/internal/lobby"
	"github.com/DoyleJ11/lol-draft-rooms/internal/session"
	"github.com/DoyleJ11/lol-draft-rooms/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHub(t *testing.T, rules engine.Rules) *Hub {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewHub(ctx, cat, rules, zap.NewNop())
}

func connect(t *testing.T, h *Hub, id string) *session.Session {
	t.Helper()
	s := session.New(id, 256, nil, zap.NewNop())
	require.True(t, h.Send(Connect{Session: s}))
	return s
}

func listRooms(t *testing.T, h *Hub) []types.RoomSummary {
	t.Helper()
	reply := make(chan []types.RoomSummary, 1)
	h.Inbox() <- ListRooms{Reply: reply}
	select {
	case rooms := <-reply:
		return rooms
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for room list")
		return nil
	}
}

func findRoom(t *testing.T, h *Hub, name string) (types.RoomSummary, bool) {
	t.Helper()
	for _, r := range listRooms(t, h) {
		if r.Name == name {
			return r, true
		}
	}
	return types.RoomSummary{}, false
}

func disconnect(t *testing.T, h *Hub, id string) {
	t.Helper()
	done := make(chan struct{})
	h.Inbox() <- Disconnect{SessionID: id, Done: done}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for disconnect of %s", id)
	}
}

func joinRoom(h *Hub, sid, room, name string, team engine.Team) {
	h.Inbox() <- JoinRoom{SessionID: sid, RoomName: room, Username: name, Team: team}
}

// expectMsg reads until a message of the given type shows up.
func expectMsg(t *testing.T, s *session.Session, typ string) types.ServerMessage {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case msg := <-s.Outbox():
			if msg.Type == typ {
				return msg
			}
		case <-deadline:
			t.Fatalf("%s: timed out waiting for %q", s.ID(), typ)
			return types.ServerMessage{}
		}
	}
}

func expectNoMsg(t *testing.T, s *session.Session, typ string, within time.Duration) {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case msg := <-s.Outbox():
			if msg.Type == typ {
				t.Fatalf("%s: unexpected %q: %+v", s.ID(), typ, msg.Data)
			}
		case <-deadline:
			return
		}
	}
}

func TestHub_ScenarioA_CreateRoom(t *testing.T) {
	h := newTestHub(t, engine.Rules{})
	alice := connect(t, h, "s-alice")
	other := connect(t, h, "s-other")

	h.Inbox() <- CreateRoom{SessionID: "s-alice", RoomName: "R1", Creator: "alice"}

	rooms := listRooms(t, h)
	require.Len(t, rooms, 1)
	assert.Equal(t, types.RoomSummary{Name: "R1", Creator: "alice", BlueTeam: []string{}, RedTeam: []string{}}, rooms[0])

	// directory goes to everyone, draft state only to the creator
	assert.Equal(t, rooms, expectMsg(t, other, types.EvtRoomList).Data)
	expectMsg(t, alice, types.EvtRoomList)
	state := expectMsg(t, alice, types.EvtDraftState).Data.(engine.State)
	assert.NotEmpty(t, state.AvailableChampions)
	expectNoMsg(t, other, types.EvtDraftState, 50*time.Millisecond)
}

func TestHub_CreateRoom_DuplicateNameRejected(t *testing.T) {
	h := newTestHub(t, engine.Rules{})
	connect(t, h, "s-alice")
	bob := connect(t, h, "s-bob")

	h.Inbox() <- CreateRoom{SessionID: "s-alice", RoomName: "R1", Creator: "alice"}
	expectMsg(t, bob, types.EvtRoomList)

	h.Inbox() <- CreateRoom{SessionID: "s-bob", RoomName: "R1", Creator: "bob"}
	assert.Equal(t, types.RoomError("Room already exists"), expectMsg(t, bob, types.EvtRoomError))

	rooms := listRooms(t, h)
	require.Len(t, rooms, 1)
	assert.Equal(t, "alice", rooms[0].Creator)

	// names are case sensitive
	h.Inbox() <- CreateRoom{SessionID: "s-bob", RoomName: "r1", Creator: "bob"}
	assert.Len(t, listRooms(t, h), 2)
}

func TestHub_CreateRoom_DoesNotJoinCreator(t *testing.T) {
	h := newTestHub(t, engine.Rules{})
	connect(t, h, "s-alice")
	h.Inbox() <- CreateRoom{SessionID: "s-alice", RoomName: "R1", Creator: "alice"}

	r, ok := findRoom(t, h, "R1")
	require.True(t, ok)
	assert.True(t, r.Empty())

	// creator leaving without joining does not reclaim anything
	disconnect(t, h, "s-alice")
	_, ok = findRoom(t, h, "R1")
	assert.True(t, ok)
}

func TestHub_ScenarioB_TeamCapacity(t *testing.T) {
	h := newTestHub(t, engine.Rules{})
	connect(t, h, "s0")
	h.Inbox() <- CreateRoom{SessionID: "s0", RoomName: "R1", Creator: "alice"}

	connect(t, h, "s-alice")
	connect(t, h, "s-bob")
	joinRoom(h, "s-alice", "R1", "alice", engine.TeamBlue)
	joinRoom(h, "s-bob", "R1", "bob", engine.TeamBlue)

	r, _ := findRoom(t, h, "R1")
	assert.Equal(t, []string{"alice", "bob"}, r.BlueTeam)

	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("s%d", i+1)
		connect(t, h, id)
		joinRoom(h, id, "R1", fmt.Sprintf("p%d", i), engine.TeamBlue)
	}
	full, _ := findRoom(t, h, "R1")
	require.Len(t, full.BlueTeam, lobby.MaxTeamSize)

	late := connect(t, h, "s-late")
	joinRoom(h, "s-late", "R1", "late", engine.TeamBlue)
	assert.Equal(t, types.RoomError("Blue team is full"), expectMsg(t, late, types.EvtRoomError))

	r, _ = findRoom(t, h, "R1")
	assert.Equal(t, full.BlueTeam, r.BlueTeam)
	assert.Empty(t, r.RedTeam)
}

func TestHub_ScenarioC_SwitchTeams(t *testing.T) {
	h := newTestHub(t, engine.Rules{})
	connect(t, h, "s-alice")
	h.Inbox() <- CreateRoom{SessionID: "s-alice", RoomName: "R1", Creator: "alice"}

	joinRoom(h, "s-alice", "R1", "alice", engine.TeamBlue)
	joinRoom(h, "s-alice", "R1", "alice", engine.TeamRed)

	r, _ := findRoom(t, h, "R1")
	assert.Empty(t, r.BlueTeam)
	assert.Equal(t, []string{"alice"}, r.RedTeam)

	// re-joining the same team leaves the roster unchanged
	joinRoom(h, "s-alice", "R1", "alice", engine.TeamRed)
	r, _ = findRoom(t, h, "R1")
	assert.Equal(t, []string{"alice"}, r.RedTeam)
}

func TestHub_ScenarioD_LastOccupantDisconnectReclaimsRoom(t *testing.T) {
	h := newTestHub(t, engine.Rules{})
	alice := connect(t, h, "s-alice")
	watcher := connect(t, h, "s-watch")
	h.Inbox() <- CreateRoom{SessionID: "s-alice", RoomName: "R1", Creator: "alice"}
	joinRoom(h, "s-alice", "R1", "alice", engine.TeamBlue)
	expectMsg(t, alice, types.EvtDraftState)

	disconnect(t, h, "s-alice")

	_, ok := findRoom(t, h, "R1")
	assert.False(t, ok)

	// the watcher's latest directory no longer lists R1
	var last types.ServerMessage
	for {
		select {
		case msg := <-watcher.Outbox():
			if msg.Type == types.EvtRoomList {
				last = msg
			}
			continue
		default:
		}
		break
	}
	assert.Equal(t, types.RoomList(nil), last)

	reply := make(chan *lobby.Lobby, 1)
	h.Inbox() <- GetLobby{RoomName: "R1", Reply: reply}
	assert.Nil(t, <-reply)
}

func TestHub_ScenarioE_BoundConnectionKeepsRoomAlive(t *testing.T) {
	h := newTestHub(t, engine.Rules{})
	connect(t, h, "s1")
	connect(t, h, "s2")
	h.Inbox() <- CreateRoom{SessionID: "s1", RoomName: "R1", Creator: "alice"}

	// two tabs, same display name
	joinRoom(h, "s1", "R1", "alice", engine.TeamBlue)
	joinRoom(h, "s2", "R1", "alice", engine.TeamBlue)

	disconnect(t, h, "s1")
	r, ok := findRoom(t, h, "R1")
	require.True(t, ok, "a bound connection must prevent reclamation")
	assert.True(t, r.Empty())

	disconnect(t, h, "s2")
	_, ok = findRoom(t, h, "R1")
	assert.False(t, ok)
}

func TestHub_DisconnectKeepsRoomWithOtherPlayers(t *testing.T) {
	h := newTestHub(t, engine.Rules{})
	connect(t, h, "s-alice")
	bob := connect(t, h, "s-bob")
	h.Inbox() <- CreateRoom{SessionID: "s-alice", RoomName: "R1", Creator: "alice"}
	joinRoom(h, "s-alice", "R1", "alice", engine.TeamBlue)
	joinRoom(h, "s-bob", "R1", "bob", engine.TeamRed)
	expectMsg(t, bob, types.EvtDraftState)

	disconnect(t, h, "s-alice")

	r, ok := findRoom(t, h, "R1")
	require.True(t, ok)
	assert.Empty(t, r.BlueTeam)
	assert.Equal(t, []string{"bob"}, r.RedTeam)

	updated := expectMsg(t, bob, types.EvtRoomUpdated).Data.(types.Room)
	assert.Empty(t, updated.BlueTeam)
}

func TestHub_DisconnectUnboundSession_IsNoop(t *testing.T) {
	h := newTestHub(t, engine.Rules{})
	connect(t, h, "s-alice")
	h.Inbox() <- CreateRoom{SessionID: "s-alice", RoomName: "R1", Creator: "alice"}

	disconnect(t, h, "s-never-seen")
	assert.Len(t, listRooms(t, h), 1)
}

func TestHub_JoinUnknownRoom(t *testing.T) {
	h := newTestHub(t, engine.Rules{})
	alice := connect(t, h, "s-alice")

	joinRoom(h, "s-alice", "nope", "alice", engine.TeamBlue)
	assert.Equal(t, types.RoomError("Room does not exist"), expectMsg(t, alice, types.EvtRoomError))
}

func TestHub_JoinMalformedIsIgnored(t *testing.T) {
	h := newTestHub(t, engine.Rules{})
	alice := connect(t, h, "s-alice")
	h.Inbox() <- CreateRoom{SessionID: "s-alice", RoomName: "R1", Creator: "alice"}

	joinRoom(h, "s-alice", "R1", "   ", engine.TeamBlue)
	joinRoom(h, "s-alice", "R1", "alice", "green")

	r, _ := findRoom(t, h, "R1")
	assert.True(t, r.Empty())
	expectNoMsg(t, alice, types.EvtRoomError, 50*time.Millisecond)
}

func TestHub_JoinAnotherRoomReleasesPreviousSlot(t *testing.T) {
	h := newTestHub(t, engine.Rules{})
	connect(t, h, "s-alice")
	h.Inbox() <- CreateRoom{SessionID: "s-alice", RoomName: "R1", Creator: "alice"}
	h.Inbox() <- CreateRoom{SessionID: "s-alice", RoomName: "R2", Creator: "alice"}

	joinRoom(h, "s-alice", "R1", "alice", engine.TeamBlue)
	joinRoom(h, "s-alice", "R2", "alice", engine.TeamRed)

	rooms := listRooms(t, h)
	require.Len(t, rooms, 1, "R1 lost its only occupant and must be reclaimed")
	assert.Equal(t, "R2", rooms[0].Name)
	assert.Equal(t, []string{"alice"}, rooms[0].RedTeam)
}

func TestHub_RenameInSameRoomReleasesOldName(t *testing.T) {
	h := newTestHub(t, engine.Rules{})
	connect(t, h, "s1")
	h.Inbox() <- CreateRoom{SessionID: "s1", RoomName: "R1", Creator: "alice"}

	joinRoom(h, "s1", "R1", "alice", engine.TeamBlue)
	joinRoom(h, "s1", "R1", "alicia", engine.TeamBlue)

	r, ok := findRoom(t, h, "R1")
	require.True(t, ok)
	assert.Equal(t, []string{"alicia"}, r.BlueTeam)
}

func TestHub_SelectionBroadcastsToRoomOnly(t *testing.T) {
	h := newTestHub(t, engine.Rules{})
	alice := connect(t, h, "s-alice")
	outsider := connect(t, h, "s-out")
	h.Inbox() <- CreateRoom{SessionID: "s-alice", RoomName: "R1", Creator: "alice"}
	joinRoom(h, "s-alice", "R1", "alice", engine.TeamBlue)
	expectMsg(t, alice, types.EvtDraftState) // on create
	expectMsg(t, alice, types.EvtDraftState) // on join

	h.Inbox() <- SelectChampion{SessionID: "s-alice", RoomName: "R1", Team: engine.TeamBlue, Type: engine.CmdBanChampion, ChampionID: 2}

	state := expectMsg(t, alice, types.EvtDraftState).Data.(engine.State)
	assert.Equal(t, []int{2}, state.Blue.Bans)
	expectNoMsg(t, outsider, types.EvtDraftState, 50*time.Millisecond)
}

func TestHub_SelectionOnUnknownRoom(t *testing.T) {
	h := newTestHub(t, engine.Rules{})
	alice := connect(t, h, "s-alice")

	h.Inbox() <- SelectChampion{SessionID: "s-alice", RoomName: "ghost", Team: engine.TeamBlue, Type: engine.CmdPickChampion, ChampionID: 1}
	assert.Equal(t, types.RoomError("Room does not exist"), expectMsg(t, alice, types.EvtRoomError))
}

func TestHub_StrictRules_UnboundActorRejected(t *testing.T) {
	h := newTestHub(t, engine.Rules{EnforceTurnOrder: true})
	alice := connect(t, h, "s-alice")
	h.Inbox() <- CreateRoom{SessionID: "s-alice", RoomName: "R1", Creator: "alice"}

	h.Inbox() <- SelectChampion{SessionID: "s-alice", RoomName: "R1", Team: engine.TeamBlue, Type: engine.CmdBanChampion, ChampionID: 1}
	assert.Equal(t, types.RoomError("You are not on that team"), expectMsg(t, alice, types.EvtRoomError))

	joinRoom(h, "s-alice", "R1", "alice", engine.TeamBlue)
	h.Inbox() <- SelectChampion{SessionID: "s-alice", RoomName: "R1", Team: engine.TeamBlue, Type: engine.CmdBanChampion, ChampionID: 1}

	var state engine.State
	for i := 0; i < 3 && len(state.Blue.Bans) == 0; i++ {
		state = expectMsg(t, alice, types.EvtDraftState).Data.(engine.State)
	}
	assert.Equal(t, []int{1}, state.Blue.Bans)
	assert.Equal(t, engine.PhaseBan, state.Red.CurrentPhase)
}

func TestHub_GetRoomsRepliesToRequesterOnly(t *testing.T) {
	h := newTestHub(t, engine.Rules{})
	alice := connect(t, h, "s-alice")
	bob := connect(t, h, "s-bob")

	h.Inbox() <- GetRooms{SessionID: "s-alice"}
	assert.Equal(t, types.RoomList(nil), expectMsg(t, alice, types.EvtRoomList))
	expectNoMsg(t, bob, types.EvtRoomList, 50*time.Millisecond)
}

func TestHub_ConcurrentJoinsKeepRosterInvariants(t *testing.T) {
	h := newTestHub(t, engine.Rules{})
	connect(t, h, "creator")
	h.Inbox() <- CreateRoom{SessionID: "creator", RoomName: "R1", Creator: "creator"}

	const players = 16
	for i := 0; i < players; i++ {
		connect(t, h, fmt.Sprintf("s%d", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < players; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sid := fmt.Sprintf("s%d", i)
			name := fmt.Sprintf("p%d", i%8) // shared names force switches
			for j := 0; j < 10; j++ {
				team := engine.TeamBlue
				if (i+j)%2 == 0 {
					team = engine.TeamRed
				}
				joinRoom(h, sid, "R1", name, team)
			}
		}(i)
	}
	wg.Wait()

	r, ok := findRoom(t, h, "R1")
	require.True(t, ok)
	assert.LessOrEqual(t, len(r.BlueTeam), lobby.MaxTeamSize)
	assert.LessOrEqual(t, len(r.RedTeam), lobby.MaxTeamSize)
	for _, name := range r.BlueTeam {
		assert.NotContains(t, r.RedTeam, name)
	}
	seen := map[string]bool{}
	for _, name := range append(append([]string{}, r.BlueTeam...), r.RedTeam...) {
		assert.False(t, seen[name], "duplicate roster entry %s", name)
		seen[name] = true
	}
}

func TestHub_Shutdown_StopsLobbies(t *testing.T) {
	h := newTestHub(t, engine.Rules{})
	connect(t, h, "s-alice")
	h.Inbox() <- CreateRoom{SessionID: "s-alice", RoomName: "R1", Creator: "alice"}

	reply := make(chan *lobby.Lobby, 1)
	h.Inbox() <- GetLobby{RoomName: "R1", Reply: reply}
	lb := <-reply
	require.NotNil(t, lb)

	h.Inbox() <- ShutdownHub{}
	for _, done := range []<-chan struct{}{h.Done(), lb.Done()} {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("expected hub and lobby to stop")
		}
	}
	assert.False(t, h.Send(GetRooms{SessionID: "s-alice"}))
}
