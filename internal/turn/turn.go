// Package turn implements seat rotation for individual and team games.
package turn

import (
	"github.com/park285/madn-server/internal/apperr"
)

type Mode string

const (
	ModeIndividual Mode = "individual"
	ModeTeam       Mode = "team"
)

func (m Mode) Valid() bool { return m == ModeIndividual || m == ModeTeam }

// MinParticipants is the smallest number of seats (players or active teams)
// a game can start with.
const MinParticipants = 2

// State is the rotation cursor. Current is a seat index in individual mode
// and the virtual player index in team mode.
type State struct {
	Mode         Mode `json:"mode"`
	Current      int  `json:"current"`
	Participants int  `json:"participants"`
	Round        int  `json:"round"`
	TurnNumber   int  `json:"turnNumber"`
}

// Begin returns the initial rotation for the given number of seats.
func Begin(mode Mode, participants int) (State, error) {
	if !mode.Valid() {
		return State{}, apperr.New(apperr.CodeInvalidMode, "unknown mode %q", mode)
	}
	if participants < MinParticipants {
		return State{}, apperr.New(apperr.CodeTooFewPlayers, "need %d participants, have %d", MinParticipants, participants)
	}
	return State{Mode: mode, Participants: participants, Round: 1, TurnNumber: 1}, nil
}

// Advance passes the turn after a consumed roll. A six keeps the turn.
func (s *State) Advance(dice int) {
	if dice == 6 || s.Participants <= 0 {
		return
	}
	s.Current = (s.Current + 1) % s.Participants
	if s.Current == 0 {
		s.Round++
	}
	s.TurnNumber++
}

// ActingMember picks the human serving the current virtual player: the
// member at (round-1) mod team size, keyed off the global round.
func (s State) ActingMember(members []string) (string, error) {
	if len(members) == 0 {
		return "", apperr.New(apperr.CodeEmptyTeam, "virtual player %d has no members", s.Current)
	}
	round := s.Round
	if round < 1 {
		round = 1
	}
	return members[(round-1)%len(members)], nil
}
