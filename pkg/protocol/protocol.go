// Package protocol defines the JSON events exchanged over the signaling socket.
//
// Every frame is an Envelope. Client requests that expect an acknowledgement
// carry an "ack" id; the server answers with an EventAck envelope echoing it.
package protocol

import (
	"encoding/json"
)

// Client -> server events.
const (
	EventPing         = "ping"
	EventWhoAmI       = "whoami"
	EventCallInitiate = "call:initiate"
	EventCallAccept   = "call:accept"
	EventCallReject   = "call:reject"
	EventCallSignal   = "call:signal"
	EventCallEnd      = "call:end"
	EventJoinGroup    = "joinGroup"
	EventLeaveGroup   = "leaveGroup"
)

// Server -> client events.
const (
	EventAck             = "ack"
	EventPong            = "pong"
	EventError           = "error"
	EventOnlineUsers     = "getOnlineUsers"
	EventCallIncoming    = "call:incoming"
	EventCallAccepted    = "call:accepted"
	EventCallRejected    = "call:rejected"
	EventCallEnded       = "call:ended"
	EventNewMessage      = "newMessage"
	EventMessageDeleted  = "messageDeleted"
	EventNewGroupMessage = "newGroupMessage"
)

// Acknowledgement messages shown to end users.
const (
	MsgCalleeOffline  = "Usuário não está online"
	MsgCallNotFound   = "Chamada não encontrada"
	MsgCallNotRinging = "Chamada não está chamando"
	MsgCallerGone     = "Quem ligou não está mais online"
	MsgBadRequest     = "Requisição inválida"
)

type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
	Ack  json.RawMessage `json:"ack,omitempty"`
}

// Ack is the synchronous result of a client request.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func OK() Ack { return Ack{Success: true} }

func Fail(msg string) Ack { return Ack{Message: msg} }

// Encode builds an outbound frame.
func Encode(event string, data any) ([]byte, error) {
	env := struct {
		Type string `json:"type"`
		Data any    `json:"data,omitempty"`
	}{Type: event, Data: data}
	return json.Marshal(env)
}

// EncodeAck builds the reply to a request that carried an ack id.
func EncodeAck(id json.RawMessage, ack Ack) ([]byte, error) {
	return json.Marshal(struct {
		Type string          `json:"type"`
		Ack  json.RawMessage `json:"ack"`
		Data Ack             `json:"data"`
	}{EventAck, id, ack})
}
