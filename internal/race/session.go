package race

import (
	"errors"
	"sync"

	"github.com/vovakirdan/racehub/internal/protocol"
)

var (
	// ErrSessionClosed is returned when sending to a session that has ended.
	ErrSessionClosed = errors.New("race: session closed")

	// ErrSendBufferFull is returned when a session cannot keep up.
	ErrSendBufferFull = errors.New("race: send buffer full")
)

// SessionHandle is the transport-neutral interface for talking to one
// participant. The coordinator never touches sockets directly.
type SessionHandle interface {
	// Send queues a message for delivery. Must not block; an error means the
	// message was not queued.
	Send(msg protocol.Outbound) error
}

// ChannelSession is a SessionHandle backed by a buffered channel.
// Used by in-process clients and tests.
type ChannelSession struct {
	events    chan protocol.Outbound
	done      chan struct{}
	closeOnce sync.Once
}

// NewChannelSession creates a channel-backed session.
// bufferSize controls how many messages can be queued before Send fails.
func NewChannelSession(bufferSize int) *ChannelSession {
	if bufferSize < 1 {
		bufferSize = 64
	}
	return &ChannelSession{
		events: make(chan protocol.Outbound, bufferSize),
		done:   make(chan struct{}),
	}
}

// Send queues msg. A full buffer is reported rather than dropping older
// messages, so queued messages keep their order.
func (s *ChannelSession) Send(msg protocol.Outbound) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.events <- msg:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Events returns the channel messages are delivered on.
func (s *ChannelSession) Events() <-chan protocol.Outbound {
	return s.events
}

// Done returns a channel closed by Close.
func (s *ChannelSession) Done() <-chan struct{} {
	return s.done
}

// Close marks the session as ended. Safe to call multiple times.
func (s *ChannelSession) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Drain returns every message queued so far without blocking.
func (s *ChannelSession) Drain() []protocol.Outbound {
	var out []protocol.Outbound
	for {
		select {
		case msg := <-s.events:
			out = append(out, msg)
		default:
			return out
		}
	}
}
