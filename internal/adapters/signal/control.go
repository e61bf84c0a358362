package signal

import (
	"github.com/dkeye/chatrelay/internal/domain"

	"github.com/dkeye/chatrelay/pkg/protocol"
)

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	ctl.sendJSON(conn, protocol.EventPong, nil)
}

func (ctl *SignalWSController) handleWhoAmI(uid domain.UserID, conn *WsSignalConn) {
	resp := protocol.WhoAmI{
		UserID:       uid,
		ConnectionID: conn.ID(),
		Groups:       []domain.GroupID{},
	}
	if uid != "" && ctl.Orch.IsCurrent(uid, conn.ID()) {
		resp.Groups = ctl.Orch.GroupsOf(uid)
	}
	ctl.sendJSON(conn, protocol.EventWhoAmI, resp)
}
