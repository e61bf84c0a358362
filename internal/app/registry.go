package app

import (
	"sort"

	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Registry maps a user identity to its single live connection.
// It is not safe for concurrent use; the Orchestrator serializes access.
type Registry struct {
	byUser map[domain.UserID]core.Connection
}

func NewRegistry() *Registry {
	return &Registry{byUser: make(map[domain.UserID]core.Connection)}
}

// Register maps uid to conn, replacing any previous mapping. It reports
// whether a mapping was recorded and returns the connection it displaced, if
// that was a different one. An empty uid is not tracked.
func (r *Registry) Register(uid domain.UserID, conn core.Connection) (prev core.Connection, ok bool) {
	if uid == "" || conn == nil {
		return nil, false
	}
	if old, had := r.byUser[uid]; had && old.ID() != conn.ID() {
		prev = old
	}
	r.byUser[uid] = conn
	ev := log.Info().Str("module", "app.registry").Str("user", string(uid)).Str("conn", string(conn.ID()))
	if prev != nil {
		ev = ev.Str("replaced", string(prev.ID()))
	}
	ev.Msg("registered")
	return prev, true
}

// Unregister removes uid's mapping. It reports whether anything was removed.
func (r *Registry) Unregister(uid domain.UserID) bool {
	if _, ok := r.byUser[uid]; !ok {
		return false
	}
	delete(r.byUser, uid)
	log.Info().Str("module", "app.registry").Str("user", string(uid)).Msg("unregistered")
	return true
}

// UnregisterConn removes uid's mapping only while cid is still the current
// connection, so a superseded connection cannot evict its replacement.
func (r *Registry) UnregisterConn(uid domain.UserID, cid domain.ConnectionID) bool {
	conn, ok := r.byUser[uid]
	if !ok {
		return false
	}
	if conn.ID() != cid {
		log.Debug().Str("module", "app.registry").Str("user", string(uid)).Str("conn", string(cid)).Msg("stale disconnect ignored")
		return false
	}
	return r.Unregister(uid)
}

func (r *Registry) Lookup(uid domain.UserID) (core.Connection, bool) {
	conn, ok := r.byUser[uid]
	return conn, ok
}

// ListOnline returns the registered identities in ascending order.
func (r *Registry) ListOnline() []domain.UserID {
	out := make([]domain.UserID, 0, len(r.byUser))
	for uid := range r.byUser {
		out = append(out, uid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Connections returns every live connection, ordered by owning identity.
func (r *Registry) Connections() []core.Connection {
	users := r.ListOnline()
	out := make([]core.Connection, 0, len(users))
	for _, uid := range users {
		out = append(out, r.byUser[uid])
	}
	return out
}

func (r *Registry) Len() int { return len(r.byUser) }
