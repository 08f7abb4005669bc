package race

import "github.com/vovakirdan/racehub/internal/protocol"

// Role is the authority a sender needs for a transition.
type Role int

const (
	// RoleAny accepts every connected participant.
	RoleAny Role = iota

	// RoleHost accepts only the current host.
	RoleHost

	// RoleRacer accepts only participants of record in the current race.
	RoleRacer
)

// String returns a human-readable name for the role.
func (r Role) String() string {
	switch r {
	case RoleAny:
		return "any"
	case RoleHost:
		return "host"
	case RoleRacer:
		return "racer"
	default:
		return "unknown"
	}
}

type transitionKey struct {
	phase Phase
	msg   protocol.MessageType
}

// effect applies an accepted message. It runs on the coordinator goroutine.
type effect func(c *Coordinator, sender *Participant, msg protocol.Inbound)

type transition struct {
	role   Role
	effect effect
}

// TransitionTable maps (phase, message type) to the role required and the
// effect applied. Pairs missing from the table are ignored.
type TransitionTable map[transitionKey]transition

func defaultTransitions() TransitionTable {
	return TransitionTable{
		{PhaseWaiting, protocol.TypeSetRounds}:        {RoleHost, (*Coordinator).setRounds},
		{PhaseWaiting, protocol.TypeRequestStartGame}: {RoleHost, (*Coordinator).startRace},
		{PhaseRacing, protocol.TypeRequestStartGame}:  {RoleHost, (*Coordinator).rejectStartInProgress},
		{PhaseResults, protocol.TypeRequestStartGame}: {RoleHost, (*Coordinator).rejectStartInProgress},

		{PhaseRacing, protocol.TypePlayerUpdate}: {RoleRacer, (*Coordinator).relayUpdate},
		{PhaseRacing, protocol.TypeRaceFinished}: {RoleRacer, (*Coordinator).recordFinish},

		{PhaseRacing, protocol.TypeRequestReturnToLobby}:  {RoleAny, (*Coordinator).returnToLobby},
		{PhaseResults, protocol.TypeRequestReturnToLobby}: {RoleAny, (*Coordinator).returnToLobby},
	}
}

// Lookup returns the role a message needs in phase, and whether the pair is
// valid at all.
func (t TransitionTable) Lookup(phase Phase, msg protocol.MessageType) (Role, bool) {
	tr, ok := t[transitionKey{phase, msg}]
	return tr.role, ok
}
