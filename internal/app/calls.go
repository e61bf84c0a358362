package app

import (
	"sort"
	"sync"
	"time"

	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatrelay/pkg/protocol"
)

// Timer is the part of *time.Timer the relay needs.
type Timer interface {
	Stop() bool
}

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

type activeCall struct {
	call  domain.Call
	timer Timer
}

// CallRelay mediates two-party call negotiation. It keeps one session per
// call id and only forwards control-plane payloads; media never passes
// through it.
//
// CallRelay is not safe for concurrent use. Ring timeouts fire on their own
// goroutine and take lock before touching relay state, so lock must be the
// same mutex that serializes every other call into the relay.
type CallRelay struct {
	reg  *Registry
	out  Sender
	lock sync.Locker

	clock       Clock
	ringTimeout time.Duration
	metrics     *Metrics

	calls map[domain.CallID]*activeCall
}

// NewCallRelay builds a relay. A ringTimeout of zero leaves unanswered calls
// ringing until a participant ends them or disconnects.
func NewCallRelay(reg *Registry, out Sender, lock sync.Locker, clock Clock, ringTimeout time.Duration, m *Metrics) *CallRelay {
	if clock == nil {
		clock = systemClock{}
	}
	return &CallRelay{
		reg:         reg,
		out:         out,
		lock:        lock,
		clock:       clock,
		ringTimeout: ringTimeout,
		metrics:     m,
		calls:       make(map[domain.CallID]*activeCall),
	}
}

// Initiate opens a ringing session if the callee is online and rings them.
func (r *CallRelay) Initiate(p protocol.CallInitiate) protocol.Ack {
	logger := log.With().Str("module", "app.calls").Str("call", string(p.CallID)).Logger()

	calleeConn, ok := r.reg.Lookup(p.TargetUserID)
	if !ok {
		r.metrics.call(outcomeOffline)
		logger.Info().Str("callee", string(p.TargetUserID)).Msg("initiate: callee offline")
		return protocol.Fail(protocol.MsgCalleeOffline)
	}

	if old, ok := r.calls[p.CallID]; ok {
		// Duplicate ids are not rejected; the newer session wins.
		logger.Warn().Msg("initiate: call id reused, replacing session")
		r.stop(old)
	}

	ac := &activeCall{call: domain.Call{
		ID:        p.CallID,
		CallerID:  p.CallerID,
		CalleeID:  p.TargetUserID,
		Type:      p.CallType,
		Status:    domain.CallRinging,
		CreatedAt: r.clock.Now(),
	}}
	r.calls[p.CallID] = ac
	if r.ringTimeout > 0 {
		ac.timer = r.clock.AfterFunc(r.ringTimeout, func() {
			r.lock.Lock()
			defer r.lock.Unlock()
			r.expire(ac)
		})
	}
	r.metrics.call(outcomeInitiated)
	r.metrics.setActiveCalls(len(r.calls))

	r.out.Push(calleeConn, protocol.EventCallIncoming, protocol.CallIncoming{
		CallerID:   p.CallerID,
		CallerName: p.CallerName,
		CallType:   p.CallType,
		CallID:     p.CallID,
	})
	logger.Info().
		Str("caller", string(p.CallerID)).
		Str("callee", string(p.TargetUserID)).
		Str("type", string(p.CallType)).
		Msg("ringing")
	return protocol.OK()
}

// Accept moves a ringing session to accepted on behalf of its callee.
func (r *CallRelay) Accept(callee domain.UserID, p protocol.CallAnswer) protocol.Ack {
	logger := log.With().Str("module", "app.calls").Str("call", string(p.CallID)).Logger()

	ac, ok := r.calls[p.CallID]
	if !ok || ac.call.CalleeID != callee {
		logger.Info().Str("user", string(callee)).Msg("accept: call not found")
		return protocol.Fail(protocol.MsgCallNotFound)
	}
	if ac.call.Status != domain.CallRinging {
		return protocol.Fail(protocol.MsgCallNotRinging)
	}

	callerConn, ok := r.reg.Lookup(ac.call.CallerID)
	if !ok {
		r.remove(ac)
		r.metrics.call(outcomeCallerGone)
		logger.Info().Str("caller", string(ac.call.CallerID)).Msg("accept: caller gone, session removed")
		return protocol.Fail(protocol.MsgCallerGone)
	}

	if ac.timer != nil {
		ac.timer.Stop()
	}
	ac.call.Status = domain.CallAccepted
	ac.call.AcceptedAt = r.clock.Now()
	r.metrics.call(outcomeAccepted)

	r.out.Push(callerConn, protocol.EventCallAccepted, protocol.CallAccepted{
		CalleeID: ac.call.CalleeID,
		CallID:   ac.call.ID,
	})
	logger.Info().Msg("accepted")
	return protocol.OK()
}

// Reject tears down a session on behalf of its callee. Unknown calls are ignored.
func (r *CallRelay) Reject(callee domain.UserID, p protocol.CallAnswer) {
	ac, ok := r.calls[p.CallID]
	if !ok || ac.call.CalleeID != callee {
		return
	}
	if conn, ok := r.reg.Lookup(ac.call.CallerID); ok {
		r.out.Push(conn, protocol.EventCallRejected, protocol.CallRejected{
			CalleeID: ac.call.CalleeID,
			CallID:   ac.call.ID,
		})
	}
	r.remove(ac)
	r.metrics.call(outcomeRejected)
	log.Info().Str("module", "app.calls").Str("call", string(p.CallID)).Msg("rejected")
}

// Signal forwards an opaque negotiation payload. It reports whether the
// target was online; offline targets are dropped silently.
func (r *CallRelay) Signal(from domain.UserID, p protocol.CallSignal) bool {
	conn, ok := r.reg.Lookup(p.TargetUserID)
	if !ok {
		log.Debug().Str("module", "app.calls").Str("call", string(p.CallID)).Str("target", string(p.TargetUserID)).Msg("signal dropped: target offline")
		return false
	}
	return r.out.Push(conn, protocol.EventCallSignal, protocol.RelayedSignal{
		Signal:     p.Signal,
		CallID:     p.CallID,
		FromUserID: from,
	})
}

// End terminates a session on behalf of either participant and tells the
// other one. Unknown calls and non-participants are ignored.
func (r *CallRelay) End(from domain.UserID, callID domain.CallID) {
	ac, ok := r.calls[callID]
	if !ok {
		return
	}
	peer, ok := ac.call.Peer(from)
	if !ok {
		log.Warn().Str("module", "app.calls").Str("call", string(callID)).Str("user", string(from)).Msg("end: not a participant")
		return
	}
	if conn, ok := r.reg.Lookup(peer); ok {
		r.out.Push(conn, protocol.EventCallEnded, protocol.CallEnded{CallID: callID})
	}
	r.remove(ac)
	r.metrics.call(outcomeEnded)
	log.Info().Str("module", "app.calls").Str("call", string(callID)).Str("by", string(from)).Msg("ended")
}

// DropUser ends every session uid takes part in, notifying the other side
// once per session. It returns the number of sessions removed.
func (r *CallRelay) DropUser(uid domain.UserID) int {
	var hit []*activeCall
	for _, ac := range r.calls {
		if ac.call.Involves(uid) {
			hit = append(hit, ac)
		}
	}
	sort.Slice(hit, func(i, j int) bool { return hit[i].call.ID < hit[j].call.ID })

	for _, ac := range hit {
		peer, _ := ac.call.Peer(uid)
		if conn, ok := r.reg.Lookup(peer); ok {
			r.out.Push(conn, protocol.EventCallEnded, protocol.CallEnded{CallID: ac.call.ID})
		}
		r.remove(ac)
		r.metrics.call(outcomeDropped)
		log.Info().Str("module", "app.calls").Str("call", string(ac.call.ID)).Str("user", string(uid)).Msg("ended by disconnect")
	}
	return len(hit)
}

// Get returns a copy of the session for id.
func (r *CallRelay) Get(id domain.CallID) (domain.Call, bool) {
	ac, ok := r.calls[id]
	if !ok {
		return domain.Call{}, false
	}
	return ac.call, true
}

func (r *CallRelay) Active() int { return len(r.calls) }

func (r *CallRelay) expire(ac *activeCall) {
	cur, ok := r.calls[ac.call.ID]
	if !ok || cur != ac || ac.call.Status != domain.CallRinging {
		return
	}
	ended := protocol.CallEnded{CallID: ac.call.ID, Reason: "timeout"}
	for _, uid := range []domain.UserID{ac.call.CallerID, ac.call.CalleeID} {
		if conn, ok := r.reg.Lookup(uid); ok {
			r.out.Push(conn, protocol.EventCallEnded, ended)
		}
	}
	r.remove(ac)
	r.metrics.call(outcomeTimeout)
	log.Info().Str("module", "app.calls").Str("call", string(ac.call.ID)).Dur("after", r.ringTimeout).Msg("ring timeout")
}

func (r *CallRelay) remove(ac *activeCall) {
	r.stop(ac)
	if cur, ok := r.calls[ac.call.ID]; ok && cur == ac {
		delete(r.calls, ac.call.ID)
	}
	r.metrics.setActiveCalls(len(r.calls))
}

func (r *CallRelay) stop(ac *activeCall) {
	if ac.timer != nil {
		ac.timer.Stop()
	}
}
