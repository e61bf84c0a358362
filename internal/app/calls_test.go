package app_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/dkeye/chatrelay/pkg/protocol"
)

func initiate(callee, caller, callID string) protocol.CallInitiate {
	return protocol.CallInitiate{
		TargetUserID: domain.UserID(callee),
		CallerID:     domain.UserID(caller),
		CallerName:   "Alice",
		CallType:     domain.CallVideo,
		CallID:       domain.CallID(callID),
	}
}

func answer(caller, callee, callID string) protocol.CallAnswer {
	return protocol.CallAnswer{
		CallerID: domain.UserID(caller),
		CalleeID: domain.UserID(callee),
		CallID:   domain.CallID(callID),
	}
}

func TestCall_InitiateRingsCallee(t *testing.T) {
	f := newFixture(t, 0)
	f.connect(t, "u1")
	b := f.connect(t, "u2")

	ack := f.orch.InitiateCall("u1", initiate("u2", "u1", "c1"))
	assert.Equal(t, protocol.OK(), ack)

	var in protocol.CallIncoming
	b.last(t, protocol.EventCallIncoming, &in)
	assert.Equal(t, protocol.CallIncoming{CallerID: "u1", CallerName: "Alice", CallType: domain.CallVideo, CallID: "c1"}, in)

	call, ok := f.orch.Calls.Get("c1")
	require.True(t, ok)
	assert.Equal(t, domain.CallRinging, call.Status)
	assert.Equal(t, domain.UserID("u2"), call.CalleeID)
}

func TestCall_InitiateToOfflineUser(t *testing.T) {
	f := newFixture(t, 0)
	a := f.connect(t, "u1")

	ack := f.orch.InitiateCall("u1", initiate("u3", "u1", "c1"))
	assert.False(t, ack.Success)
	assert.Equal(t, "Usuário não está online", ack.Message)
	assert.Equal(t, 0, f.orch.ActiveCalls())

	a.reset()
	f.orch.EndCall("u3", protocol.CallEnd{UserID: "u3", CallID: "c1"})
	assert.Equal(t, 0, f.orch.ActiveCalls())
	assert.Empty(t, a.events())
}

func TestCall_InitiateRejectsImpersonation(t *testing.T) {
	f := newFixture(t, 0)
	f.connect(t, "u1")
	b := f.connect(t, "u2")
	b.reset()

	ack := f.orch.InitiateCall("u1", initiate("u2", "u9", "c1"))
	assert.Equal(t, protocol.Fail(protocol.MsgBadRequest), ack)
	assert.Equal(t, 0, f.orch.ActiveCalls())
	assert.Empty(t, b.events())
}

func TestCall_AcceptNotifiesCaller(t *testing.T) {
	f := newFixture(t, 0)
	a := f.connect(t, "u1")
	f.connect(t, "u2")
	require.True(t, f.orch.InitiateCall("u1", initiate("u2", "u1", "c1")).Success)

	ack := f.orch.AcceptCall("u2", answer("u1", "u2", "c1"))
	assert.Equal(t, protocol.OK(), ack)

	var acc protocol.CallAccepted
	a.last(t, protocol.EventCallAccepted, &acc)
	assert.Equal(t, protocol.CallAccepted{CalleeID: "u2", CallID: "c1"}, acc)

	call, _ := f.orch.Calls.Get("c1")
	assert.Equal(t, domain.CallAccepted, call.Status)
}

func TestCall_AcceptUnknownCall(t *testing.T) {
	f := newFixture(t, 0)
	f.connect(t, "u1")
	f.connect(t, "u2")

	ack := f.orch.AcceptCall("u2", answer("u1", "u2", "nope"))
	assert.Equal(t, protocol.Fail(protocol.MsgCallNotFound), ack)
	assert.Equal(t, 0, f.orch.ActiveCalls())
}

func TestCall_AcceptTwiceIsRefused(t *testing.T) {
	f := newFixture(t, 0)
	a := f.connect(t, "u1")
	f.connect(t, "u2")
	f.orch.InitiateCall("u1", initiate("u2", "u1", "c1"))
	require.True(t, f.orch.AcceptCall("u2", answer("u1", "u2", "c1")).Success)

	ack := f.orch.AcceptCall("u2", answer("u1", "u2", "c1"))
	assert.Equal(t, protocol.Fail(protocol.MsgCallNotRinging), ack)
	assert.Equal(t, 1, f.orch.ActiveCalls())
	assert.Equal(t, 1, a.count(protocol.EventCallAccepted))
}

func TestCall_OnlyCalleeMayAccept(t *testing.T) {
	f := newFixture(t, 0)
	f.connect(t, "u1")
	f.connect(t, "u2")
	f.connect(t, "u3")
	f.orch.InitiateCall("u1", initiate("u2", "u1", "c1"))

	ack := f.orch.AcceptCall("u3", answer("u1", "u3", "c1"))
	assert.Equal(t, protocol.Fail(protocol.MsgCallNotFound), ack)
	call, _ := f.orch.Calls.Get("c1")
	assert.Equal(t, domain.CallRinging, call.Status)
}

func TestCall_AcceptAfterCallerLeftRemovesSession(t *testing.T) {
	f := newFixture(t, 0)
	f.connect(t, "u1")
	f.connect(t, "u2")
	f.orch.InitiateCall("u1", initiate("u2", "u1", "c1"))

	// Drop the caller's mapping without the disconnect cascade, as if the
	// caller vanished between ring and answer.
	f.orch.Registry.Unregister("u1")

	ack := f.orch.AcceptCall("u2", answer("u1", "u2", "c1"))
	assert.Equal(t, protocol.Fail(protocol.MsgCallerGone), ack)
	_, ok := f.orch.Calls.Get("c1")
	assert.False(t, ok)
}

func TestCall_RejectIsIdempotent(t *testing.T) {
	f := newFixture(t, 0)
	a := f.connect(t, "u1")
	f.connect(t, "u2")
	f.orch.InitiateCall("u1", initiate("u2", "u1", "c1"))

	f.orch.RejectCall("u2", answer("u1", "u2", "c1"))
	f.orch.RejectCall("u2", answer("u1", "u2", "c1"))

	require.Equal(t, 1, a.count(protocol.EventCallRejected))
	var rej protocol.CallRejected
	a.last(t, protocol.EventCallRejected, &rej)
	assert.Equal(t, protocol.CallRejected{CalleeID: "u2", CallID: "c1"}, rej)
	assert.Equal(t, 0, f.orch.ActiveCalls())
}

func TestCall_EndIsIdempotentAndNotifiesPeer(t *testing.T) {
	f := newFixture(t, 0)
	a := f.connect(t, "u1")
	b := f.connect(t, "u2")
	f.orch.InitiateCall("u1", initiate("u2", "u1", "c1"))
	f.orch.AcceptCall("u2", answer("u1", "u2", "c1"))

	f.orch.EndCall("u2", protocol.CallEnd{UserID: "u2", CallID: "c1"})
	f.orch.EndCall("u2", protocol.CallEnd{UserID: "u2", CallID: "c1"})

	assert.Equal(t, 1, a.count(protocol.EventCallEnded))
	assert.Equal(t, 0, b.count(protocol.EventCallEnded))
	assert.Equal(t, 0, f.orch.ActiveCalls())
}

func TestCall_EndByOutsiderIsIgnored(t *testing.T) {
	f := newFixture(t, 0)
	f.connect(t, "u1")
	f.connect(t, "u2")
	f.connect(t, "u3")
	f.orch.InitiateCall("u1", initiate("u2", "u1", "c1"))

	f.orch.EndCall("u3", protocol.CallEnd{CallID: "c1"})
	assert.Equal(t, 1, f.orch.ActiveCalls())
}

func TestCall_SignalIsRelayedVerbatim(t *testing.T) {
	f := newFixture(t, 0)
	f.connect(t, "u1")
	b := f.connect(t, "u2")

	payload := json.RawMessage(`{"type":"offer","sdp":"v=0\r\n"}`)
	ok := f.orch.RelaySignal("u1", protocol.CallSignal{Signal: payload, TargetUserID: "u2", CallID: "c1"})
	require.True(t, ok)

	var got protocol.RelayedSignal
	b.last(t, protocol.EventCallSignal, &got)
	assert.JSONEq(t, string(payload), string(got.Signal))
	assert.Equal(t, domain.CallID("c1"), got.CallID)
	assert.Equal(t, domain.UserID("u1"), got.FromUserID)
}

// Scenario: during an accepted call u1 disconnects; u2 gets call:ended and
// later signals to u1 are dropped.
func TestCall_DisconnectEndsCall(t *testing.T) {
	f := newFixture(t, 0)
	a := f.connect(t, "u1")
	b := f.connect(t, "u2")
	f.orch.InitiateCall("u1", initiate("u2", "u1", "c1"))
	f.orch.AcceptCall("u2", answer("u1", "u2", "c1"))

	f.orch.Disconnect("u1", a.ID())

	require.Equal(t, 1, b.count(protocol.EventCallEnded))
	var ended protocol.CallEnded
	b.last(t, protocol.EventCallEnded, &ended)
	assert.Equal(t, domain.CallID("c1"), ended.CallID)
	assert.Equal(t, 0, f.orch.ActiveCalls())

	before := len(a.events())
	ok := f.orch.RelaySignal("u2", protocol.CallSignal{Signal: json.RawMessage(`{}`), TargetUserID: "u1", CallID: "c1"})
	assert.False(t, ok)
	assert.Len(t, a.events(), before)
}

func TestCall_DisconnectLeavesOtherCallsAlone(t *testing.T) {
	f := newFixture(t, 0)
	a := f.connect(t, "u1")
	b := f.connect(t, "u2")
	c := f.connect(t, "u3")
	d := f.connect(t, "u4")
	f.orch.InitiateCall("u1", initiate("u2", "u1", "c1"))
	f.orch.InitiateCall("u3", initiate("u1", "u3", "c2"))
	f.orch.InitiateCall("u3", initiate("u4", "u3", "c3"))

	f.orch.Disconnect("u1", a.ID())

	assert.Equal(t, 1, b.count(protocol.EventCallEnded))
	assert.Equal(t, 1, c.count(protocol.EventCallEnded))
	assert.Equal(t, 0, d.count(protocol.EventCallEnded))
	_, ok := f.orch.Calls.Get("c3")
	assert.True(t, ok)
	assert.Equal(t, 1, f.orch.ActiveCalls())
}

func TestCall_RingTimeoutEndsUnansweredCall(t *testing.T) {
	f := newFixture(t, 30*time.Second)
	a := f.connect(t, "u1")
	b := f.connect(t, "u2")
	f.orch.InitiateCall("u1", initiate("u2", "u1", "c1"))

	f.clock.Advance(29 * time.Second)
	assert.Equal(t, 1, f.orch.ActiveCalls())

	f.clock.Advance(time.Second)
	assert.Equal(t, 0, f.orch.ActiveCalls())
	for _, c := range []*fakeConn{a, b} {
		var ended protocol.CallEnded
		c.last(t, protocol.EventCallEnded, &ended)
		assert.Equal(t, protocol.CallEnded{CallID: "c1", Reason: "timeout"}, ended)
	}
}

func TestCall_AcceptedCallDoesNotTimeOut(t *testing.T) {
	f := newFixture(t, 30*time.Second)
	f.connect(t, "u1")
	b := f.connect(t, "u2")
	f.orch.InitiateCall("u1", initiate("u2", "u1", "c1"))
	f.orch.AcceptCall("u2", answer("u1", "u2", "c1"))

	f.clock.Advance(time.Minute)
	assert.Equal(t, 1, f.orch.ActiveCalls())
	assert.Equal(t, 0, b.count(protocol.EventCallEnded))
}

func TestCall_ReusedIDReplacesSession(t *testing.T) {
	f := newFixture(t, 30*time.Second)
	f.connect(t, "u1")
	f.connect(t, "u2")
	f.connect(t, "u3")
	f.orch.InitiateCall("u1", initiate("u2", "u1", "c1"))
	f.clock.Advance(20 * time.Second)
	f.orch.InitiateCall("u3", initiate("u2", "u3", "c1"))

	// The first session's timer must not end the replacement.
	f.clock.Advance(15 * time.Second)
	call, ok := f.orch.Calls.Get("c1")
	require.True(t, ok)
	assert.Equal(t, domain.UserID("u3"), call.CallerID)
}

func TestCall_InitiateFillsCallerFromSender(t *testing.T) {
	f := newFixture(t, 0)
	f.connect(t, "u1")
	b := f.connect(t, "u2")

	ack := f.orch.InitiateCall("u1", initiate("u2", "", "c1"))
	assert.Equal(t, protocol.OK(), ack)

	var in protocol.CallIncoming
	b.last(t, protocol.EventCallIncoming, &in)
	assert.Equal(t, domain.UserID("u1"), in.CallerID)
	call, ok := f.orch.Calls.Get("c1")
	require.True(t, ok)
	assert.Equal(t, domain.UserID("u1"), call.CallerID)
}

func TestCall_InitiateToSelfWithoutCaller(t *testing.T) {
	f := newFixture(t, 0)
	f.connect(t, "u1")

	ack := f.orch.InitiateCall("u1", initiate("u1", "", "c1"))
	assert.Equal(t, protocol.Fail(protocol.MsgBadRequest), ack)
	assert.Equal(t, 0, f.orch.ActiveCalls())
}

func TestCall_RejectForSomeoneElseIsRefused(t *testing.T) {
	f := newFixture(t, 0)
	a := f.connect(t, "u1")
	f.connect(t, "u2")
	f.connect(t, "u3")
	f.orch.InitiateCall("u1", initiate("u2", "u1", "c1"))

	ack := f.orch.RejectCall("u3", answer("u1", "u2", "c1"))
	assert.Equal(t, protocol.Fail(protocol.MsgBadRequest), ack)
	assert.Equal(t, 1, f.orch.ActiveCalls())
	assert.Equal(t, 0, a.count(protocol.EventCallRejected))

	assert.Equal(t, protocol.OK(), f.orch.RejectCall("u2", answer("u1", "u2", "c1")))
	assert.Equal(t, protocol.OK(), f.orch.RejectCall("u2", answer("u1", "u2", "c1")))
}

func TestCall_EndForSomeoneElseIsRefused(t *testing.T) {
	f := newFixture(t, 0)
	f.connect(t, "u1")
	b := f.connect(t, "u2")
	f.orch.InitiateCall("u1", initiate("u2", "u1", "c1"))

	ack := f.orch.EndCall("u1", protocol.CallEnd{UserID: "u2", CallID: "c1"})
	assert.Equal(t, protocol.Fail(protocol.MsgBadRequest), ack)
	assert.Equal(t, 1, f.orch.ActiveCalls())
	assert.Equal(t, 0, b.count(protocol.EventCallEnded))

	assert.Equal(t, protocol.OK(), f.orch.EndCall("u1", protocol.CallEnd{CallID: "c1"}))
	assert.Equal(t, 0, f.orch.ActiveCalls())
}
