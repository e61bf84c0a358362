package app

import (
	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatrelay/pkg/protocol"
)

// The sender's authenticated identity is authoritative: identity fields in a
// payload must be empty or match it.

func (o *Orchestrator) InitiateCall(from domain.UserID, p protocol.CallInitiate) protocol.Ack {
	if from == "" || (p.CallerID != "" && p.CallerID != from) {
		log.Warn().Str("module", "app.orch").Str("user", string(from)).Str("caller", string(p.CallerID)).Msg("initiate: caller mismatch")
		return protocol.Fail(protocol.MsgBadRequest)
	}
	p.CallerID = from
	if p.TargetUserID == from {
		return protocol.Fail(protocol.MsgBadRequest)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Calls.Initiate(p)
}

func (o *Orchestrator) AcceptCall(from domain.UserID, p protocol.CallAnswer) protocol.Ack {
	if from == "" || (p.CalleeID != "" && p.CalleeID != from) {
		return protocol.Fail(protocol.MsgBadRequest)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Calls.Accept(from, p)
}

// RejectCall is idempotent: an unknown call still acks OK. Only a calleeId
// that names someone else is refused.
func (o *Orchestrator) RejectCall(from domain.UserID, p protocol.CallAnswer) protocol.Ack {
	if from == "" || (p.CalleeID != "" && p.CalleeID != from) {
		log.Warn().Str("module", "app.orch").Str("user", string(from)).Str("callee", string(p.CalleeID)).Msg("reject: callee mismatch")
		return protocol.Fail(protocol.MsgBadRequest)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Calls.Reject(from, p)
	return protocol.OK()
}

func (o *Orchestrator) RelaySignal(from domain.UserID, p protocol.CallSignal) bool {
	if from == "" {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Calls.Signal(from, p)
}

func (o *Orchestrator) EndCall(from domain.UserID, p protocol.CallEnd) protocol.Ack {
	if from == "" || (p.UserID != "" && p.UserID != from) {
		log.Warn().Str("module", "app.orch").Str("user", string(from)).Str("claimed", string(p.UserID)).Msg("end: user mismatch")
		return protocol.Fail(protocol.MsgBadRequest)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Calls.End(from, p.CallID)
	return protocol.OK()
}

func (o *Orchestrator) ActiveCalls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Calls.Active()
}
