package core

import "github.com/dkeye/chatrelay/internal/domain"

// Frame is one encoded outbound event.
type Frame []byte

// Connection abstracts a live client transport.
// Owned by the adapter; core code may Close() it but never reads from it.
type Connection interface {
	ID() domain.ConnectionID
	TrySend(Frame) error
	Close()
}
