package app

import (
	"context"

	"github.com/dkeye/chatrelay/internal/domain"
)

// GroupDirectory answers which groups a user belongs to. It is consulted once
// per connection to subscribe the user to their groups.
type GroupDirectory interface {
	GroupsOf(ctx context.Context, uid domain.UserID) ([]domain.GroupID, error)
}

// StaticDirectory is a fixed user -> groups table.
type StaticDirectory map[domain.UserID][]domain.GroupID

func (d StaticDirectory) GroupsOf(_ context.Context, uid domain.UserID) ([]domain.GroupID, error) {
	return d[uid], nil
}

// NewStaticDirectory converts a raw config table.
func NewStaticDirectory(raw map[string][]string) StaticDirectory {
	d := make(StaticDirectory, len(raw))
	for u, groups := range raw {
		uid, err := domain.ParseUserID(u)
		if err != nil {
			continue
		}
		for _, g := range groups {
			if gid, err := domain.ParseGroupID(g); err == nil {
				d[uid] = append(d[uid], gid)
			}
		}
	}
	return d
}
