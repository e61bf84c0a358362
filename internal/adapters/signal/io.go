package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatrelay/pkg/protocol"
)

const writeWait = 5 * time.Second

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("conn", string(c.ID())).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Str("conn", string(c.ID())).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.ID())).Msg("ping failed")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, uid domain.UserID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("user", string(uid)).Str("conn", string(c.ID())).Msg("readPump closing")
		cancel()
		ctl.Orch.Disconnect(uid, c.ID())
		c.Close()
	}()

	pongWait := ctl.opts.PingPeriod * 10 / 9
	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("user", string(uid)).Msg("readPump read error")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		ctl.handleSignal(uid, c, data)
	}
}

func (ctl *SignalWSController) handleSignal(uid domain.UserID, c *WsSignalConn, data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.ID())).Msg("bad json")
		return
	}

	key := string(uid)
	if key == "" {
		key = string(c.ID())
	}
	if !ctl.opts.Limiter.Allow(key, time.Now()) {
		log.Warn().Str("module", "signal").Str("key", key).Str("type", env.Type).Msg("rate limited")
		ctl.sendJSON(c, protocol.EventError, protocol.ErrorEvent{Error: "rate_limited"})
		return
	}

	switch env.Type {
	case protocol.EventPing:
		ctl.handlePing(c)
	case protocol.EventWhoAmI:
		ctl.handleWhoAmI(uid, c)
	case protocol.EventOnlineUsers:
		ctl.Orch.SendOnlineUsers(c)
	case protocol.EventCallInitiate:
		ctl.handleCallInitiate(uid, c, env)
	case protocol.EventCallAccept:
		ctl.handleCallAccept(uid, c, env)
	case protocol.EventCallReject:
		ctl.handleCallReject(uid, c, env)
	case protocol.EventCallSignal:
		ctl.handleCallSignal(uid, c, env)
	case protocol.EventCallEnd:
		ctl.handleCallEnd(uid, c, env)
	case protocol.EventJoinGroup:
		ctl.handleJoinGroup(uid, c, env)
	case protocol.EventLeaveGroup:
		ctl.handleLeaveGroup(uid, c, env)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
		ctl.reply(c, env, protocol.Fail(protocol.MsgBadRequest))
	}
}

func (ctl *SignalWSController) sendJSON(c core.Connection, event string, v any) {
	b, err := protocol.Encode(event, v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

// reply answers env's ack id, if it carried one.
func (ctl *SignalWSController) reply(c core.Connection, env protocol.Envelope, ack protocol.Ack) {
	if len(env.Ack) == 0 {
		return
	}
	b, err := protocol.EncodeAck(env.Ack, ack)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ack marshal")
		return
	}
	_ = c.TrySend(b)
}
