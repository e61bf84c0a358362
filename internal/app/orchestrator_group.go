package app

import (
	"encoding/json"

	"github.com/dkeye/chatrelay/internal/domain"
)

func (o *Orchestrator) JoinGroup(uid domain.UserID, gid domain.GroupID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, online := o.Registry.Lookup(uid); !online {
		return false
	}
	return o.Groups.Join(uid, gid)
}

func (o *Orchestrator) LeaveGroup(uid domain.UserID, gid domain.GroupID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Groups.Leave(uid, gid)
}

func (o *Orchestrator) GroupsOf(uid domain.UserID) []domain.GroupID {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Groups.Of(uid)
}

func (o *Orchestrator) ListGroups() []GroupInfo {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Groups.List()
}

func (o *Orchestrator) NotifyNewMessage(receiver domain.UserID, message json.RawMessage) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Notifier.NotifyNewMessage(receiver, message)
}

func (o *Orchestrator) NotifyMessageDeleted(receiver domain.UserID, messageID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Notifier.NotifyMessageDeleted(receiver, messageID)
}

func (o *Orchestrator) NotifyGroupMessage(gid domain.GroupID, sender domain.UserID, message json.RawMessage) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Notifier.NotifyGroupMessage(gid, sender, message)
}
