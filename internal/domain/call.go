package domain

import (
	"errors"
	"time"
)

type (
	CallID     string
	CallType   string
	CallStatus string
)

const (
	CallVoice CallType = "voice"
	CallVideo CallType = "video"
)

// A rejected or ended call is deleted, so only live states are listed.
const (
	CallRinging  CallStatus = "ringing"
	CallAccepted CallStatus = "accepted"
)

var ErrUnknownCallType = errors.New("unknown call type")

func ParseCallType(raw string) (CallType, error) {
	switch CallType(raw) {
	case CallVoice, CallVideo:
		return CallType(raw), nil
	}
	return "", ErrUnknownCallType
}

// Call is the control-plane record of one two-party negotiation.
type Call struct {
	ID         CallID
	CallerID   UserID
	CalleeID   UserID
	Type       CallType
	Status     CallStatus
	CreatedAt  time.Time
	AcceptedAt time.Time
}

func (c *Call) Involves(u UserID) bool {
	return c.CallerID == u || c.CalleeID == u
}

// Peer returns the participant on the other side of u.
func (c *Call) Peer(u UserID) (UserID, bool) {
	switch u {
	case c.CallerID:
		return c.CalleeID, true
	case c.CalleeID:
		return c.CallerID, true
	}
	return "", false
}
