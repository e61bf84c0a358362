// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

const (
	MaxUserIDLen  = 128
	MaxGroupIDLen = 128
)

var (
	ErrUserIDEmpty   = errors.New("user id empty")
	ErrUserIDTooLong = errors.New("user id too long")
	ErrGroupIDEmpty  = errors.New("group id empty")
)

// UserID is the opaque, stable identity presented at handshake.
type UserID string

// ConnectionID is assigned by the transport, unique per live connection.
type ConnectionID string

type GroupID string

// ParseUserID trims and validates a raw identity.
func ParseUserID(raw string) (UserID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrUserIDEmpty
	}
	if len(raw) > MaxUserIDLen {
		return "", ErrUserIDTooLong
	}
	return UserID(raw), nil
}

func ParseGroupID(raw string) (GroupID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > MaxGroupIDLen {
		return "", ErrGroupIDEmpty
	}
	return GroupID(raw), nil
}
