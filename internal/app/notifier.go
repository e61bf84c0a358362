package app

import (
	"encoding/json"

	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatrelay/pkg/protocol"
)

// Notifier pushes message events produced by the persistence layer to
// whoever is online. The persisted record stays authoritative; a push that
// finds nobody is simply skipped.
type Notifier struct {
	reg    *Registry
	groups *Groups
	out    Sender
}

func NewNotifier(reg *Registry, groups *Groups, out Sender) *Notifier {
	return &Notifier{reg: reg, groups: groups, out: out}
}

// NotifyNewMessage forwards message verbatim to receiver.
func (n *Notifier) NotifyNewMessage(receiver domain.UserID, message json.RawMessage) bool {
	conn, ok := n.reg.Lookup(receiver)
	if !ok {
		log.Debug().Str("module", "app.notifier").Str("receiver", string(receiver)).Msg("new message: receiver offline")
		return false
	}
	return n.out.Push(conn, protocol.EventNewMessage, message)
}

func (n *Notifier) NotifyMessageDeleted(receiver domain.UserID, messageID string) bool {
	conn, ok := n.reg.Lookup(receiver)
	if !ok {
		return false
	}
	return n.out.Push(conn, protocol.EventMessageDeleted, messageID)
}

// NotifyGroupMessage pushes message to every online member of gid except
// sender and returns how many received it.
func (n *Notifier) NotifyGroupMessage(gid domain.GroupID, sender domain.UserID, message json.RawMessage) int {
	var conns []core.Connection
	for _, uid := range n.groups.Members(gid) {
		if uid == sender {
			continue
		}
		if conn, ok := n.reg.Lookup(uid); ok {
			conns = append(conns, conn)
		}
	}
	sent := n.out.PushAll(conns, protocol.EventNewGroupMessage, protocol.GroupMessage{
		GroupID:  gid,
		SenderID: sender,
		Message:  message,
	})
	log.Debug().Str("module", "app.notifier").Str("group", string(gid)).Int("sent_to", sent).Msg("group message")
	return sent
}
