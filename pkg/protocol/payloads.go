package protocol

import (
	"encoding/json"

	"github.com/samber/oops"

	"github.com/dkeye/chatrelay/internal/domain"
)

// ErrCodeInvalidPayload tags every decoding or validation failure.
const ErrCodeInvalidPayload = "invalid_payload"

// Payload is implemented by every inbound event body.
type Payload interface {
	Validate() error
}

// Decode unmarshals raw into a fresh T and validates it.
func Decode[T any, P interface {
	*T
	Payload
}](event string, raw json.RawMessage) (T, error) {
	var v T
	errs := oops.In("protocol").Code(ErrCodeInvalidPayload).With("event", event)
	if len(raw) == 0 {
		return v, errs.Errorf("missing data")
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, errs.Wrapf(err, "decode")
	}
	if err := P(&v).Validate(); err != nil {
		return v, errs.Wrap(err)
	}
	return v, nil
}

func missing(field string) error {
	return oops.Code(ErrCodeInvalidPayload).With("field", field).Errorf("missing %s", field)
}

type CallInitiate struct {
	TargetUserID domain.UserID   `json:"targetUserId"`
	CallerID     domain.UserID   `json:"callerId"`
	CallerName   string          `json:"callerName,omitempty"`
	CallType     domain.CallType `json:"callType"`
	CallID       domain.CallID   `json:"callId"`
}

func (p *CallInitiate) Validate() error {
	switch {
	case p.TargetUserID == "":
		return missing("targetUserId")
	case p.CallID == "":
		return missing("callId")
	}
	// callerId may be omitted; the connection identity fills it in.
	if p.CallerID != "" && p.TargetUserID == p.CallerID {
		return oops.Code(ErrCodeInvalidPayload).Errorf("caller and callee must differ")
	}
	if _, err := domain.ParseCallType(string(p.CallType)); err != nil {
		return oops.Code(ErrCodeInvalidPayload).With("callType", p.CallType).Wrap(err)
	}
	return nil
}

// CallAnswer is the body of call:accept and call:reject.
type CallAnswer struct {
	CallerID domain.UserID `json:"callerId"`
	CalleeID domain.UserID `json:"calleeId"`
	CallID   domain.CallID `json:"callId"`
}

func (p *CallAnswer) Validate() error {
	if p.CallID == "" {
		return missing("callId")
	}
	return nil
}

type CallSignal struct {
	Signal       json.RawMessage `json:"signal"`
	TargetUserID domain.UserID   `json:"targetUserId"`
	CallID       domain.CallID   `json:"callId"`
}

func (p *CallSignal) Validate() error {
	switch {
	case len(p.Signal) == 0 || string(p.Signal) == "null":
		return missing("signal")
	case p.TargetUserID == "":
		return missing("targetUserId")
	case p.CallID == "":
		return missing("callId")
	}
	return nil
}

type CallEnd struct {
	UserID domain.UserID `json:"userId"`
	CallID domain.CallID `json:"callId"`
}

func (p *CallEnd) Validate() error {
	if p.CallID == "" {
		return missing("callId")
	}
	return nil
}

// GroupRef is the body of joinGroup and leaveGroup. Clients send either a bare
// string or {"groupId": "..."}.
type GroupRef struct {
	GroupID domain.GroupID `json:"groupId"`
}

func (p *GroupRef) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		p.GroupID = domain.GroupID(s)
		return nil
	}
	type plain GroupRef
	return json.Unmarshal(b, (*plain)(p))
}

func (p *GroupRef) Validate() error {
	id, err := domain.ParseGroupID(string(p.GroupID))
	if err != nil {
		return missing("groupId")
	}
	p.GroupID = id
	return nil
}

// Outbound payloads.

type CallIncoming struct {
	CallerID   domain.UserID   `json:"callerId"`
	CallerName string          `json:"callerName,omitempty"`
	CallType   domain.CallType `json:"callType"`
	CallID     domain.CallID   `json:"callId"`
}

type CallAccepted struct {
	CalleeID domain.UserID `json:"calleeId"`
	CallID   domain.CallID `json:"callId"`
}

type CallRejected struct {
	CalleeID domain.UserID `json:"calleeId"`
	CallID   domain.CallID `json:"callId"`
}

type CallEnded struct {
	CallID domain.CallID `json:"callId"`
	Reason string        `json:"reason,omitempty"`
}

type RelayedSignal struct {
	Signal     json.RawMessage `json:"signal"`
	CallID     domain.CallID   `json:"callId"`
	FromUserID domain.UserID   `json:"fromUserId,omitempty"`
}

type WhoAmI struct {
	UserID       domain.UserID       `json:"userId,omitempty"`
	ConnectionID domain.ConnectionID `json:"connectionId"`
	Groups       []domain.GroupID    `json:"groups"`
}

type GroupMessage struct {
	GroupID  domain.GroupID  `json:"groupId"`
	SenderID domain.UserID   `json:"senderId,omitempty"`
	Message  json.RawMessage `json:"message"`
}

type ErrorEvent struct {
	Error string `json:"error"`
}
