package app

import (
	"sort"

	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

type GroupInfo struct {
	ID          domain.GroupID `json:"id"`
	MemberCount int            `json:"member_count"`
}

// Groups tracks which online users listen to which group. A group exists
// only while it has members.
type Groups struct {
	members map[domain.GroupID]map[domain.UserID]struct{}
	byUser  map[domain.UserID]map[domain.GroupID]struct{}
}

func NewGroups() *Groups {
	return &Groups{
		members: make(map[domain.GroupID]map[domain.UserID]struct{}),
		byUser:  make(map[domain.UserID]map[domain.GroupID]struct{}),
	}
}

// Join reports whether uid was newly added to gid.
func (g *Groups) Join(uid domain.UserID, gid domain.GroupID) bool {
	if uid == "" || gid == "" {
		return false
	}
	set, ok := g.members[gid]
	if !ok {
		set = make(map[domain.UserID]struct{})
		g.members[gid] = set
	}
	if _, in := set[uid]; in {
		return false
	}
	set[uid] = struct{}{}

	mine, ok := g.byUser[uid]
	if !ok {
		mine = make(map[domain.GroupID]struct{})
		g.byUser[uid] = mine
	}
	mine[gid] = struct{}{}
	log.Debug().Str("module", "app.groups").Str("user", string(uid)).Str("group", string(gid)).Msg("joined")
	return true
}

// Leave reports whether uid was a member of gid.
func (g *Groups) Leave(uid domain.UserID, gid domain.GroupID) bool {
	set, ok := g.members[gid]
	if !ok {
		return false
	}
	if _, in := set[uid]; !in {
		return false
	}
	delete(set, uid)
	if len(set) == 0 {
		delete(g.members, gid)
	}
	if mine, ok := g.byUser[uid]; ok {
		delete(mine, gid)
		if len(mine) == 0 {
			delete(g.byUser, uid)
		}
	}
	log.Debug().Str("module", "app.groups").Str("user", string(uid)).Str("group", string(gid)).Msg("left")
	return true
}

// LeaveAll drops uid from every group and returns the groups it left.
func (g *Groups) LeaveAll(uid domain.UserID) []domain.GroupID {
	left := g.Of(uid)
	for _, gid := range left {
		g.Leave(uid, gid)
	}
	return left
}

func (g *Groups) Members(gid domain.GroupID) []domain.UserID {
	set := g.members[gid]
	out := make([]domain.UserID, 0, len(set))
	for uid := range set {
		out = append(out, uid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (g *Groups) Of(uid domain.UserID) []domain.GroupID {
	set := g.byUser[uid]
	out := make([]domain.GroupID, 0, len(set))
	for gid := range set {
		out = append(out, gid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (g *Groups) List() []GroupInfo {
	out := make([]GroupInfo, 0, len(g.members))
	for gid, set := range g.members {
		out = append(out, GroupInfo{ID: gid, MemberCount: len(set)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
