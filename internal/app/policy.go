package app

import "github.com/dkeye/chatrelay/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickConnection
)

// Policy decides what happens to a connection whose send queue is full.
type Policy interface {
	OnBackPressure(conn core.Connection, event string) BackpressureAction
}

// SimplePolicy closes slow connections; the client is expected to reconnect
// and receive a fresh presence snapshot.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(core.Connection, string) BackpressureAction {
	return KickConnection
}

// DropPolicy only drops the frame that did not fit.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(core.Connection, string) BackpressureAction {
	return DropFrame
}
