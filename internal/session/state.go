package session

// State is the lifecycle phase of a session.
type State int

const (
	StateLobby State = iota
	StateInProgress
	StateResolving
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateLobby:
		return "lobby"
	case StateInProgress:
		return "in_progress"
	case StateResolving:
		return "resolving"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// transitions lists the legal forward moves. Nothing moves backwards.
var transitions = map[State][]State{
	StateLobby:      {StateInProgress, StateClosed},
	StateInProgress: {StateResolving, StateClosed},
	StateResolving:  {StateClosed},
}

// CanTransition reports whether s may move to next.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Status is a participant's standing within a running game.
type Status int

const (
	StatusPlaying Status = iota
	StatusStood
	StatusBusted
	StatusFolded
	StatusWon
	StatusForfeited
)

// Terminal reports whether the participant can no longer act.
func (s Status) Terminal() bool {
	return s != StatusPlaying
}

func (s Status) String() string {
	switch s {
	case StatusPlaying:
		return "playing"
	case StatusStood:
		return "stood"
	case StatusBusted:
		return "busted"
	case StatusFolded:
		return "folded"
	case StatusWon:
		return "won"
	case StatusForfeited:
		return "forfeited"
	default:
		return "unknown"
	}
}

// Outcome classifies a settlement for display and progress tracking.
type Outcome string

const (
	OutcomeWin        Outcome = "win"
	OutcomeLose       Outcome = "lose"
	OutcomePush       Outcome = "push"
	OutcomeSpecialWin Outcome = "special_win"
	OutcomeForfeit    Outcome = "forfeit"
	OutcomeRefund     Outcome = "refund"
)

// Won reports whether the outcome counts as a victory.
func (o Outcome) Won() bool {
	return o == OutcomeWin || o == OutcomeSpecialWin
}

// CloseReason records why a session reached StateClosed.
type CloseReason string

const (
	ReasonNone         CloseReason = ""
	ReasonCompleted    CloseReason = "completed"
	ReasonCancelled    CloseReason = "cancelled"
	ReasonLobbyExpired CloseReason = "lobby_expired"
	ReasonTimeout      CloseReason = "timeout"
	ReasonAborted      CloseReason = "aborted"
)
