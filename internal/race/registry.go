package race

import (
	"sort"

	"github.com/vovakirdan/racehub/internal/protocol"
)

// Registry tracks connected participants and hands out identities.
// It is owned by the Coordinator goroutine and is not safe for concurrent use.
type Registry struct {
	nextID       ParticipantID
	participants map[ParticipantID]*Participant
}

// Removal describes what a participant held when it was unregistered.
type Removal struct {
	Participant *Participant
	WasHost     bool
	HadSlot     bool
}

// NewRegistry creates an empty registry. The first identity is 0.
func NewRegistry() *Registry {
	return &Registry{
		participants: make(map[ParticipantID]*Participant),
	}
}

// Register assigns the next identity to handle. Identities are never reused.
func (r *Registry) Register(handle SessionHandle) *Participant {
	id := r.nextID
	r.nextID++

	p := &Participant{
		ID:     id,
		Name:   DisplayName(id),
		Handle: handle,
	}
	r.participants[id] = p
	return p
}

// Unregister removes a participant. host is the host identity before removal.
// ok is false if id was not registered.
func (r *Registry) Unregister(id ParticipantID, host *ParticipantID) (Removal, bool) {
	p, exists := r.participants[id]
	if !exists {
		return Removal{}, false
	}
	delete(r.participants, id)

	return Removal{
		Participant: p,
		WasHost:     host != nil && *host == id,
		HadSlot:     p.Slot != nil,
	}, true
}

// Get retrieves a participant by identity.
func (r *Registry) Get(id ParticipantID) (*Participant, bool) {
	p, ok := r.participants[id]
	return p, ok
}

// Count returns the number of connected participants.
func (r *Registry) Count() int {
	return len(r.participants)
}

// IDs returns active identities in ascending order.
func (r *Registry) IDs() []ParticipantID {
	ids := make([]ParticipantID, 0, len(r.participants))
	for id := range r.participants {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Active returns connected participants in ascending identity order.
func (r *Registry) Active() []*Participant {
	ids := r.IDs()
	out := make([]*Participant, len(ids))
	for i, id := range ids {
		out[i] = r.participants[id]
	}
	return out
}

// ListActive returns the lobby roster.
func (r *Registry) ListActive() []protocol.Participant {
	active := r.Active()
	roster := make([]protocol.Participant, len(active))
	for i, p := range active {
		roster[i] = protocol.Participant{ID: p.ID, Name: p.Name}
	}
	return roster
}
