package race

import (
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/racehub/internal/protocol"
)

// Router fans messages out to participants. Delivery is best effort: a failed
// send is logged and never stops delivery to the other recipients.
type Router struct {
	registry *Registry
	logger   *log.Logger
}

// NewRouter creates a router over the registry's participants.
func NewRouter(registry *Registry, logger *log.Logger) *Router {
	return &Router{registry: registry, logger: logger}
}

// BroadcastAll sends msg to every connected participant.
func (r *Router) BroadcastAll(msg protocol.Outbound) int {
	return r.deliver(msg, nil)
}

// BroadcastExcept sends msg to everyone but excluded.
func (r *Router) BroadcastExcept(msg protocol.Outbound, excluded ParticipantID) int {
	return r.deliver(msg, &excluded)
}

// SendTo sends msg to a single participant. Unknown targets are skipped.
func (r *Router) SendTo(id ParticipantID, msg protocol.Outbound) bool {
	p, ok := r.registry.Get(id)
	if !ok {
		return false
	}
	return r.send(p, msg)
}

// deliver returns the number of recipients that accepted msg.
func (r *Router) deliver(msg protocol.Outbound, excluded *ParticipantID) int {
	delivered := 0
	for _, p := range r.registry.Active() {
		if excluded != nil && p.ID == *excluded {
			continue
		}
		if r.send(p, msg) {
			delivered++
		}
	}
	return delivered
}

func (r *Router) send(p *Participant, msg protocol.Outbound) bool {
	if p.Handle == nil {
		return false
	}
	if err := p.Handle.Send(msg); err != nil {
		r.logger.Debug("send skipped", "participant", p.ID, "type", msg.MessageType(), "error", err)
		return false
	}
	return true
}
