// Package protocol defines the JSON messages exchanged between race clients
// and the session coordinator. Every message is a single JSON object carrying
// a "type" discriminator.
package protocol

// MessageType is the value of the "type" discriminator.
type MessageType string

// Inbound message types (client -> coordinator).
const (
	TypePlayerUpdate         MessageType = "playerUpdate"
	TypeSetRounds            MessageType = "setRounds"
	TypeRequestStartGame     MessageType = "requestStartGame"
	TypeRaceFinished         MessageType = "raceFinished"
	TypeRequestReturnToLobby MessageType = "requestReturnToLobby"
)

// Outbound message types (coordinator -> client). playerUpdate is shared with
// the inbound side.
const (
	TypeLobbyInfo           MessageType = "lobbyInfo"
	TypePlayerJoined        MessageType = "playerJoined"
	TypePlayerDisconnected  MessageType = "playerDisconnected"
	TypeUpdateLobbySettings MessageType = "updateLobbySettings"
	TypeNewHost             MessageType = "newHost"
	TypeStartGameError      MessageType = "startGameError"
	TypeStartGame           MessageType = "startGame"
	TypeShowResults         MessageType = "showResults"
)

// ParticipantID identifies a connected participant. Assigned monotonically
// from 0 and never reused within a process.
type ParticipantID int

// Phase is the coarse-grained session state.
type Phase string

const (
	PhaseWaiting Phase = "waiting"
	PhaseRacing  Phase = "racing"
	PhaseResults Phase = "results"
)

// Participant is a roster entry.
type Participant struct {
	ID   ParticipantID `json:"id"`
	Name string        `json:"name"`
}

// Settings is the host-controlled race configuration.
type Settings struct {
	Rounds int `json:"rounds"`
}

// SpawnInfo is the starting position assigned to one racer.
type SpawnInfo struct {
	Name     string  `json:"name"`
	Slot     int     `json:"slot"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
}

// ResultEntry is one line of the final standings. Time is the elapsed race
// time in milliseconds, nil when the racer did not finish.
type ResultEntry struct {
	ID   ParticipantID `json:"id"`
	Name string        `json:"name"`
	Time *int64        `json:"time"`
}

// Outbound is implemented by every message the coordinator sends.
type Outbound interface {
	MessageType() MessageType
}

// LobbyInfo is personalized per recipient: IsHost differs between them.
type LobbyInfo struct {
	Type          MessageType    `json:"type"`
	ParticipantID ParticipantID  `json:"participantId"`
	IsHost        bool           `json:"isHost"`
	HostID        *ParticipantID `json:"hostId"`
	Phase         Phase          `json:"phase"`
	Roster        []Participant  `json:"roster"`
	Configuration Settings       `json:"configuration"`
}

func (LobbyInfo) MessageType() MessageType { return TypeLobbyInfo }

// NewLobbyInfo builds a lobbyInfo message for one recipient.
func NewLobbyInfo(self ParticipantID, host *ParticipantID, phase Phase, roster []Participant, cfg Settings) LobbyInfo {
	if roster == nil {
		roster = []Participant{}
	}
	return LobbyInfo{
		Type:          TypeLobbyInfo,
		ParticipantID: self,
		IsHost:        host != nil && *host == self,
		HostID:        host,
		Phase:         phase,
		Roster:        roster,
		Configuration: cfg,
	}
}

type PlayerJoined struct {
	Type        MessageType `json:"type"`
	Participant Participant `json:"participant"`
}

func (PlayerJoined) MessageType() MessageType { return TypePlayerJoined }

func NewPlayerJoined(p Participant) PlayerJoined {
	return PlayerJoined{Type: TypePlayerJoined, Participant: p}
}

type PlayerDisconnected struct {
	Type          MessageType   `json:"type"`
	ParticipantID ParticipantID `json:"participantId"`
}

func (PlayerDisconnected) MessageType() MessageType { return TypePlayerDisconnected }

func NewPlayerDisconnected(id ParticipantID) PlayerDisconnected {
	return PlayerDisconnected{Type: TypePlayerDisconnected, ParticipantID: id}
}

type UpdateLobbySettings struct {
	Type          MessageType `json:"type"`
	Configuration Settings    `json:"configuration"`
}

func (UpdateLobbySettings) MessageType() MessageType { return TypeUpdateLobbySettings }

func NewUpdateLobbySettings(cfg Settings) UpdateLobbySettings {
	return UpdateLobbySettings{Type: TypeUpdateLobbySettings, Configuration: cfg}
}

type NewHost struct {
	Type   MessageType   `json:"type"`
	HostID ParticipantID `json:"hostId"`
}

func (NewHost) MessageType() MessageType { return TypeNewHost }

func NewNewHost(id ParticipantID) NewHost {
	return NewHost{Type: TypeNewHost, HostID: id}
}

type StartGameError struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

func (StartGameError) MessageType() MessageType { return TypeStartGameError }

func NewStartGameError(message string) StartGameError {
	return StartGameError{Type: TypeStartGameError, Message: message}
}

// StartGame announces a race. StartTime is Unix milliseconds.
type StartGame struct {
	Type                MessageType                 `json:"type"`
	RaceID              string                      `json:"raceId"`
	InitialParticipants map[ParticipantID]SpawnInfo `json:"initialParticipants"`
	Configuration       Settings                    `json:"configuration"`
	StartTime           int64                       `json:"startTime"`
}

func (StartGame) MessageType() MessageType { return TypeStartGame }

func NewStartGame(raceID string, spawns map[ParticipantID]SpawnInfo, cfg Settings, startTime int64) StartGame {
	return StartGame{
		Type:                TypeStartGame,
		RaceID:              raceID,
		InitialParticipants: spawns,
		Configuration:       cfg,
		StartTime:           startTime,
	}
}

// PlayerUpdateRelay is a position update forwarded to the other racers.
type PlayerUpdateRelay struct {
	Type          MessageType   `json:"type"`
	ParticipantID ParticipantID `json:"participantId"`
	X             float64       `json:"x"`
	Y             float64       `json:"y"`
	Rotation      float64       `json:"rotation"`
}

func (PlayerUpdateRelay) MessageType() MessageType { return TypePlayerUpdate }

func NewPlayerUpdateRelay(id ParticipantID, u PlayerUpdate) PlayerUpdateRelay {
	return PlayerUpdateRelay{
		Type:          TypePlayerUpdate,
		ParticipantID: id,
		X:             u.X,
		Y:             u.Y,
		Rotation:      u.Rotation,
	}
}

type ShowResults struct {
	Type    MessageType   `json:"type"`
	RaceID  string        `json:"raceId"`
	Results []ResultEntry `json:"results"`
}

func (ShowResults) MessageType() MessageType { return TypeShowResults }

func NewShowResults(raceID string, results []ResultEntry) ShowResults {
	if results == nil {
		results = []ResultEntry{}
	}
	return ShowResults{Type: TypeShowResults, RaceID: raceID, Results: results}
}
