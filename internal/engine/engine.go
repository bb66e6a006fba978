package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/DoyleJ11/lol-draft-rooms/internal/catalog"
)

var ErrWrongTurn = errors.New("invalid turn")
var ErrWrongTeam = errors.New("not a member of that team")
var ErrIllegalPick = errors.New("illegal champion")
var ErrIllegalBan = errors.New("illegal ban")
var ErrUnknownChampion = errors.New("champion not in catalog")
var ErrUnsupportedCommand = errors.New("unsupported command")
var ErrDraftCompleted = errors.New("draft already completed")

type Team string

const (
	TeamBlue Team = "blue"
	TeamRed  Team = "red"
)

func ParseTeam(team string) (Team, bool) {
	switch team {
	case "blue":
		return TeamBlue, true
	case "red":
		return TeamRed, true
	default:
		return "", false
	}
}

func (t Team) Other() Team {
	if t == TeamBlue {
		return TeamRed
	}
	return TeamBlue
}

type Action string

const (
	ActionBan  Action = "ban"
	ActionPick Action = "pick"
)

// Phase is a single team's next expected action.
type Phase string

const (
	PhaseBan  Phase = "ban"
	PhasePick Phase = "pick"
	PhaseDone Phase = "done"
)

// Stage is the overall position of the draft in GameOrder.
type Stage string

const (
	StageBan1  Stage = "ban1"
	StagePick1 Stage = "pick1"
	StageBan2  Stage = "ban2"
	StagePick2 Stage = "pick2"
	StageDone  Stage = "done"
)

type TurnStep struct {
	Team   Team
	Action Action
}

type TeamDraft struct {
	Bans         []int `json:"bans"`
	Picks        []int `json:"picks"`
	CurrentPhase Phase `json:"currentPhase"`
}

// State is the shared selection state of one room.
type State struct {
	Blue               TeamDraft          `json:"blueTeam"`
	Red                TeamDraft          `json:"redTeam"`
	Cursor             int                `json:"cursor"`
	Stage              Stage              `json:"stage"`
	AvailableChampions []catalog.Champion `json:"availableChampions"`
}

type Rules struct {
	// EnforceTurnOrder makes GameOrder authoritative. When false any ban or
	// pick of a catalog champion is accepted as sent.
	EnforceTurnOrder bool
}

type CommandType string

const (
	CmdBanChampion  CommandType = "BanChampion"
	CmdPickChampion CommandType = "PickChampion"
)

type Command struct {
	Type CommandType
	Team Team
	// Actor is the team the acting connection is bound to, empty if unbound.
	Actor      Team
	ChampionID int
}

type EventType string

const (
	EvtChampionPicked EventType = "ChampionPicked"
	EvtChampionBanned EventType = "ChampionBanned"
	EvtTurnAdvanced   EventType = "TurnAdvanced"
	EvtDraftCompleted EventType = "DraftCompleted"
)

type Event struct {
	Type       EventType
	Team       Team
	ChampionID int
}

func NewState(champions []catalog.Champion) State {
	s := State{
		Blue:               TeamDraft{Bans: []int{}, Picks: []int{}},
		Red:                TeamDraft{Bans: []int{}, Picks: []int{}},
		AvailableChampions: champions,
	}
	s.refresh()
	return s
}

// Clone deep-copies the ban and pick lists so a broadcast snapshot never
// aliases the room's live state. The champion snapshot is immutable and shared.
func (s State) Clone() State {
	s.Blue.Bans = slices.Clone(s.Blue.Bans)
	s.Blue.Picks = slices.Clone(s.Blue.Picks)
	s.Red.Bans = slices.Clone(s.Red.Bans)
	s.Red.Picks = slices.Clone(s.Red.Picks)
	return s
}

func (s *State) Team(t Team) *TeamDraft {
	if t == TeamRed {
		return &s.Red
	}
	return &s.Blue
}

func (s *State) refresh() {
	s.Stage = DeriveStage(s.Cursor)
	s.Blue.CurrentPhase = teamPhase(TeamBlue, len(s.Blue.Bans)+len(s.Blue.Picks))
	s.Red.CurrentPhase = teamPhase(TeamRed, len(s.Red.Bans)+len(s.Red.Picks))
}

func (s State) offers(id int) bool {
	return slices.ContainsFunc(s.AvailableChampions, func(c catalog.Champion) bool { return c.ID == id })
}

// Apply validates cmd against s and returns the resulting state. s is never modified.
func Apply(s State, cmd Command, rules Rules) ([]Event, State, error) {
	var action Action
	switch cmd.Type {
	case CmdBanChampion:
		action = ActionBan
	case CmdPickChampion:
		action = ActionPick
	default:
		return nil, s, ErrUnsupportedCommand
	}
	if _, ok := ParseTeam(string(cmd.Team)); !ok {
		return nil, s, fmt.Errorf("%w: team %q", ErrUnsupportedCommand, cmd.Team)
	}
	if !s.offers(cmd.ChampionID) {
		return nil, s, fmt.Errorf("%w: %d", ErrUnknownChampion, cmd.ChampionID)
	}

	if rules.EnforceTurnOrder {
		step, done := currentStep(s)
		if done {
			return nil, s, ErrDraftCompleted
		}
		if cmd.Actor != cmd.Team {
			return nil, s, ErrWrongTeam
		}
		// Turn must match BOTH team & action
		if step.Team != cmd.Team || step.Action != action {
			return nil, s, ErrWrongTurn
		}
		if action == ActionPick && !canPick(s, cmd.ChampionID) {
			return nil, s, ErrIllegalPick
		}
		if action == ActionBan && !canBan(s, cmd.ChampionID) {
			return nil, s, ErrIllegalBan
		}
	}

	next := s.Clone()
	draft := next.Team(cmd.Team)
	events := make([]Event, 0, 3)
	if action == ActionBan {
		draft.Bans = append(draft.Bans, cmd.ChampionID)
		events = append(events, Event{Type: EvtChampionBanned, Team: cmd.Team, ChampionID: cmd.ChampionID})
	} else {
		draft.Picks = append(draft.Picks, cmd.ChampionID)
		events = append(events, Event{Type: EvtChampionPicked, Team: cmd.Team, ChampionID: cmd.ChampionID})
	}
	events = append(events, Event{Type: EvtTurnAdvanced})

	next.Cursor++
	next.refresh()
	if next.Cursor == len(GameOrder) {
		events = append(events, Event{Type: EvtDraftCompleted})
	}
	return events, next, nil
}

func hasPick(s State, id int) bool {
	return slices.Contains(s.Blue.Picks, id) || slices.Contains(s.Red.Picks, id)
}

func hasBan(s State, id int) bool {
	return slices.Contains(s.Blue.Bans, id) || slices.Contains(s.Red.Bans, id)
}

func canPick(s State, id int) bool {
	return !hasBan(s, id) && !hasPick(s, id)
}

func canBan(s State, id int) bool {
	return !hasBan(s, id) && !hasPick(s, id)
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
