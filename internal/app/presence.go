package app

import (
	"github.com/dkeye/chatrelay/internal/core"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatrelay/pkg/protocol"
)

// PresenceBroadcaster publishes the full online set, never a delta, so a
// client can always replace its local state with the last snapshot received.
type PresenceBroadcaster struct {
	reg *Registry
	out Sender
}

func NewPresenceBroadcaster(reg *Registry, out Sender) *PresenceBroadcaster {
	return &PresenceBroadcaster{reg: reg, out: out}
}

// Broadcast sends the current snapshot to every registered connection and
// returns how many accepted it.
func (p *PresenceBroadcaster) Broadcast() int {
	online := p.reg.ListOnline()
	sent := p.out.PushAll(p.reg.Connections(), protocol.EventOnlineUsers, online)
	log.Debug().Str("module", "app.presence").Int("online", len(online)).Int("sent_to", sent).Msg("presence broadcast")
	return sent
}

// SendTo pushes the current snapshot to a single connection.
func (p *PresenceBroadcaster) SendTo(conn core.Connection) bool {
	return p.out.Push(conn, protocol.EventOnlineUsers, p.reg.ListOnline())
}
