package signal

import (
	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatrelay/pkg/protocol"
)

func (ctl *SignalWSController) handleJoinGroup(uid domain.UserID, conn *WsSignalConn, env protocol.Envelope) {
	p, err := protocol.Decode[protocol.GroupRef](env.Type, env.Data)
	if err != nil || uid == "" {
		log.Warn().Err(err).Str("module", "signal").Str("user", string(uid)).Msg("bad joinGroup")
		ctl.reply(conn, env, protocol.Fail(protocol.MsgBadRequest))
		return
	}
	ctl.Orch.JoinGroup(uid, p.GroupID)
	log.Info().Str("module", "signal").Str("user", string(uid)).Str("group", string(p.GroupID)).Msg("join group")
	ctl.reply(conn, env, protocol.OK())
}

func (ctl *SignalWSController) handleLeaveGroup(uid domain.UserID, conn *WsSignalConn, env protocol.Envelope) {
	p, err := protocol.Decode[protocol.GroupRef](env.Type, env.Data)
	if err != nil || uid == "" {
		log.Warn().Err(err).Str("module", "signal").Str("user", string(uid)).Msg("bad leaveGroup")
		ctl.reply(conn, env, protocol.Fail(protocol.MsgBadRequest))
		return
	}
	ctl.Orch.LeaveGroup(uid, p.GroupID)
	ctl.reply(conn, env, protocol.OK())
}
