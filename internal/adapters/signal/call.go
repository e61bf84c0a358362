package signal

import (
	"github.com/dkeye/chatrelay/internal/adapters/rtc"
	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatrelay/pkg/protocol"
)

func (ctl *SignalWSController) handleCallInitiate(uid domain.UserID, conn *WsSignalConn, env protocol.Envelope) {
	p, err := protocol.Decode[protocol.CallInitiate](env.Type, env.Data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("user", string(uid)).Msg("bad call:initiate payload")
		ctl.reply(conn, env, protocol.Fail(protocol.MsgBadRequest))
		return
	}
	ctl.reply(conn, env, ctl.Orch.InitiateCall(uid, p))
}

func (ctl *SignalWSController) handleCallAccept(uid domain.UserID, conn *WsSignalConn, env protocol.Envelope) {
	p, err := protocol.Decode[protocol.CallAnswer](env.Type, env.Data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("user", string(uid)).Msg("bad call:accept payload")
		ctl.reply(conn, env, protocol.Fail(protocol.MsgBadRequest))
		return
	}
	ctl.reply(conn, env, ctl.Orch.AcceptCall(uid, p))
}

func (ctl *SignalWSController) handleCallReject(uid domain.UserID, conn *WsSignalConn, env protocol.Envelope) {
	p, err := protocol.Decode[protocol.CallAnswer](env.Type, env.Data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("user", string(uid)).Msg("bad call:reject payload")
		ctl.reply(conn, env, protocol.Fail(protocol.MsgBadRequest))
		return
	}
	ctl.reply(conn, env, ctl.Orch.RejectCall(uid, p))
}

func (ctl *SignalWSController) handleCallSignal(uid domain.UserID, conn *WsSignalConn, env protocol.Envelope) {
	p, err := protocol.Decode[protocol.CallSignal](env.Type, env.Data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("user", string(uid)).Msg("bad call:signal payload")
		return
	}
	delivered := ctl.Orch.RelaySignal(uid, p)
	log.Debug().
		Str("module", "signal").
		Str("call", string(p.CallID)).
		Str("kind", string(rtc.ClassifySignal(p.Signal))).
		Bool("delivered", delivered).
		Msg("signal relayed")
}

func (ctl *SignalWSController) handleCallEnd(uid domain.UserID, conn *WsSignalConn, env protocol.Envelope) {
	p, err := protocol.Decode[protocol.CallEnd](env.Type, env.Data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("user", string(uid)).Msg("bad call:end payload")
		ctl.reply(conn, env, protocol.Fail(protocol.MsgBadRequest))
		return
	}
	ctl.reply(conn, env, ctl.Orch.EndCall(uid, p))
}
