// Package session is the outbound half of one client connection.
package session

import (
	"context"
	"sync/atomic"

	"github.com/DoyleJ11/lol-draft-rooms/internal/types"
	"go.uber.org/zap"
)

// Session buffers messages for a single connection. Send is safe to call
// from any goroutine; the transport drains Outbox.
type Session struct {
	id   string
	out  chan types.ServerMessage
	kick context.CancelFunc
	slow atomic.Bool
	log  *zap.Logger
}

// New creates a session with an outbox of the given size. kick is called once
// if the client stops keeping up, and should tear the connection down.
func New(id string, size int, kick context.CancelFunc, log *zap.Logger) *Session {
	if size <= 0 {
		size = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		id:   id,
		out:  make(chan types.ServerMessage, size),
		kick: kick,
		log:  log.With(zap.String("session", id)),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Outbox() <-chan types.ServerMessage { return s.out }

// Send never blocks. A full outbox drops the message and kicks the client.
func (s *Session) Send(msg types.ServerMessage) bool {
	select {
	case s.out <- msg:
		return true
	default:
	}

	if s.slow.CompareAndSwap(false, true) {
		s.log.Warn("outbox full, dropping slow client", zap.String("type", msg.Type))
		if s.kick != nil {
			s.kick()
		}
	}
	return false
}

// Slow reports whether the session has overflowed its outbox.
func (s *Session) Slow() bool { return s.slow.Load() }
