package types

import (
	"encoding/json"

	"github.com/DoyleJ11/lol-draft-rooms/internal/engine"
)

// Inbound event names.
const (
	EvtGetRooms     = "getRooms"
	EvtCreateRoom   = "createRoom"
	EvtJoinRoom     = "joinRoom"
	EvtBanChampion  = "banChampion"
	EvtPickChampion = "pickChampion"
)

// Outbound event names.
const (
	EvtRoomList    = "roomList"
	EvtRoomError   = "roomError"
	EvtDraftState  = "draftState"
	EvtRoomUpdated = "roomUpdated"
)

type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type CreateRoomPayload struct {
	RoomName string `json:"roomName"`
	Creator  string `json:"creator"`
}

type JoinRoomPayload struct {
	RoomName string `json:"roomName"`
	Username string `json:"username"`
	Team     string `json:"team"`
}

type SelectionPayload struct {
	RoomName   string `json:"roomName"`
	Team       string `json:"team"`
	ChampionID int    `json:"championId"`
}

type ServerMessage struct {
	Type string `json:"type"` // "roomList" | "roomError" | "draftState" | "roomUpdated"
	Data any    `json:"data"`
}

// RoomSummary is one directory entry.
type RoomSummary struct {
	Name     string   `json:"name"`
	Creator  string   `json:"creator"`
	BlueTeam []string `json:"blueTeam"`
	RedTeam  []string `json:"redTeam"`
}

// Empty reports whether both rosters are empty.
func (r RoomSummary) Empty() bool {
	return len(r.BlueTeam) == 0 && len(r.RedTeam) == 0
}

type Room struct {
	RoomSummary
	DraftState engine.State `json:"draftState"`
}

func RoomList(rooms []RoomSummary) ServerMessage {
	if rooms == nil {
		rooms = []RoomSummary{}
	}
	return ServerMessage{Type: EvtRoomList, Data: rooms}
}

func RoomError(msg string) ServerMessage {
	return ServerMessage{Type: EvtRoomError, Data: msg}
}

func DraftState(s engine.State) ServerMessage {
	return ServerMessage{Type: EvtDraftState, Data: s}
}

func RoomUpdated(r Room) ServerMessage {
	return ServerMessage{Type: EvtRoomUpdated, Data: r}
}
