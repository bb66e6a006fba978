package engine

// GameOrder is the tournament draft order. Cursor indexes into it.
var GameOrder = []TurnStep{
	// Ban Phase 1
	{Team: TeamBlue, Action: ActionBan},
	{Team: TeamRed, Action: ActionBan},
	{Team: TeamBlue, Action: ActionBan},
	{Team: TeamRed, Action: ActionBan},
	{Team: TeamBlue, Action: ActionBan},
	{Team: TeamRed, Action: ActionBan},
	// Pick Phase 1
	{Team: TeamBlue, Action: ActionPick},
	{Team: TeamRed, Action: ActionPick},
	{Team: TeamRed, Action: ActionPick},
	{Team: TeamBlue, Action: ActionPick},
	{Team: TeamBlue, Action: ActionPick},
	{Team: TeamRed, Action: ActionPick},
	// Ban Phase 2
	{Team: TeamRed, Action: ActionBan},
	{Team: TeamBlue, Action: ActionBan},
	{Team: TeamRed, Action: ActionBan},
	{Team: TeamBlue, Action: ActionBan},
	// Pick Phase 2
	{Team: TeamRed, Action: ActionPick},
	{Team: TeamBlue, Action: ActionPick},
	{Team: TeamBlue, Action: ActionPick},
	{Team: TeamRed, Action: ActionPick},
}

func DeriveStage(cursor int) Stage {
	if cursor >= len(GameOrder) {
		return StageDone
	} else if cursor >= 0 && cursor <= 5 {
		return StageBan1
	} else if cursor > 5 && cursor <= 11 {
		return StagePick1
	} else if cursor > 11 && cursor <= 15 {
		return StageBan2
	} else {
		return StagePick2
	}
}

// teamPhase reports what a team does next once it has already taken `taken` actions.
func teamPhase(team Team, taken int) Phase {
	n := 0
	for _, step := range GameOrder {
		if step.Team != team {
			continue
		}
		if n == taken {
			return Phase(step.Action)
		}
		n++
	}
	return PhaseDone
}

func currentStep(s State) (TurnStep, bool) {
	if s.Cursor >= len(GameOrder) {
		return TurnStep{}, true
	}
	return GameOrder[s.Cursor], false
}
