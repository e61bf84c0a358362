package app

import (
	"github.com/dkeye/chatrelay/internal/core"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatrelay/pkg/protocol"
)

// Sender delivers best-effort events to live connections.
type Sender interface {
	Push(conn core.Connection, event string, data any) bool
	PushAll(conns []core.Connection, event string, data any) int
}

// Pusher encodes events and hands them to connection send queues without
// blocking. Full queues are resolved by Policy.
type Pusher struct {
	Policy  Policy
	Metrics *Metrics
}

func (p *Pusher) Push(conn core.Connection, event string, data any) bool {
	frame, err := protocol.Encode(event, data)
	if err != nil {
		log.Error().Err(err).Str("module", "app.push").Str("event", event).Msg("encode")
		return false
	}
	return p.send(conn, event, frame)
}

// PushAll encodes once and fans the frame out. It returns how many
// connections accepted it.
func (p *Pusher) PushAll(conns []core.Connection, event string, data any) int {
	if len(conns) == 0 {
		return 0
	}
	frame, err := protocol.Encode(event, data)
	if err != nil {
		log.Error().Err(err).Str("module", "app.push").Str("event", event).Msg("encode")
		return 0
	}
	sent := 0
	for _, conn := range conns {
		if p.send(conn, event, frame) {
			sent++
		}
	}
	return sent
}

func (p *Pusher) send(conn core.Connection, event string, frame core.Frame) bool {
	if conn == nil {
		return false
	}
	if err := conn.TrySend(frame); err != nil {
		p.Metrics.pushed(event, false)
		log.Warn().Err(err).Str("module", "app.push").Str("conn", string(conn.ID())).Str("event", event).Msg("push failed")
		if p.Policy == nil {
			return false
		}
		switch p.Policy.OnBackPressure(conn, event) {
		case KickConnection:
			log.Info().Str("module", "app.push").Str("conn", string(conn.ID())).Msg("closing slow connection")
			conn.Close()
		case DropFrame, NoAction:
		}
		return false
	}
	p.Metrics.pushed(event, true)
	return true
}
