package app

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Policy      Policy
	Metrics     *Metrics
	Directory   GroupDirectory
	RingTimeout time.Duration
	Clock       Clock
}

// Orchestrator is the single owner of relay state. Every inbound event runs
// as one critical section under mu, so registry, call, and group state are
// always observed consistently and presence broadcasts follow the mutation
// that triggered them.
type Orchestrator struct {
	mu sync.Mutex

	Registry  *Registry
	Presence  *PresenceBroadcaster
	Calls     *CallRelay
	Groups    *Groups
	Notifier  *Notifier
	Directory GroupDirectory
	Metrics   *Metrics
}

func NewOrchestrator(opts Options) *Orchestrator {
	o := &Orchestrator{
		Registry:  NewRegistry(),
		Groups:    NewGroups(),
		Directory: opts.Directory,
		Metrics:   opts.Metrics,
	}
	if opts.Policy == nil {
		opts.Policy = SimplePolicy{}
	}
	out := &Pusher{Policy: opts.Policy, Metrics: opts.Metrics}
	o.Presence = NewPresenceBroadcaster(o.Registry, out)
	o.Calls = NewCallRelay(o.Registry, out, &o.mu, opts.Clock, opts.RingTimeout, opts.Metrics)
	o.Notifier = NewNotifier(o.Registry, o.Groups, out)
	return o
}

// Connect registers conn as uid's live connection, subscribes it to the
// user's directory groups and broadcasts presence. A connection that
// presents no identity is not tracked. A previous connection for uid is
// closed.
func (o *Orchestrator) Connect(ctx context.Context, uid domain.UserID, conn core.Connection) bool {
	if uid == "" {
		log.Info().Str("module", "app.orch").Str("conn", string(conn.ID())).Msg("anonymous connection not tracked")
		return false
	}

	var groups []domain.GroupID
	if o.Directory != nil {
		var err error
		if groups, err = o.Directory.GroupsOf(ctx, uid); err != nil {
			log.Warn().Err(err).Str("module", "app.orch").Str("user", string(uid)).Msg("group lookup failed")
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	prev, ok := o.Registry.Register(uid, conn)
	if !ok {
		return false
	}
	if prev != nil {
		log.Info().Str("module", "app.orch").Str("user", string(uid)).Str("stale", string(prev.ID())).Msg("closing superseded connection")
		prev.Close()
	}
	for _, gid := range groups {
		o.Groups.Join(uid, gid)
	}
	o.Metrics.setOnline(o.Registry.Len())
	o.Presence.Broadcast()
	return true
}

// Disconnect runs the cleanup for a closed transport: unregister, end the
// user's calls, drop group memberships, broadcast presence. It does nothing
// when cid is no longer uid's current connection.
func (o *Orchestrator) Disconnect(uid domain.UserID, cid domain.ConnectionID) {
	if uid == "" {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.Registry.UnregisterConn(uid, cid) {
		return
	}
	ended := o.Calls.DropUser(uid)
	left := o.Groups.LeaveAll(uid)
	o.Metrics.setOnline(o.Registry.Len())
	o.Presence.Broadcast()
	log.Info().Str("module", "app.orch").Str("user", string(uid)).Int("calls_ended", ended).Int("groups_left", len(left)).Msg("disconnected")
}

// OnlineUsers returns the current presence snapshot.
func (o *Orchestrator) OnlineUsers() []domain.UserID {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Registry.ListOnline()
}

// SendOnlineUsers pushes the snapshot to conn only.
func (o *Orchestrator) SendOnlineUsers(conn core.Connection) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Presence.SendTo(conn)
}

// IsCurrent reports whether conn is uid's registered connection.
func (o *Orchestrator) IsCurrent(uid domain.UserID, cid domain.ConnectionID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	conn, ok := o.Registry.Lookup(uid)
	return ok && conn.ID() == cid
}
