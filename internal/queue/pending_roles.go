package queue

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/notifyhub/role-manager-bot/internal/domain"
)

const shardCount = 64

// PendingRoles holds, per member, the notification-eligible roles granted
// since that member's settling timer was started.
//
// A member is present if and only if a settling timer for it is scheduled
// (or about to be). The map is split into shards, each behind its own
// mutex, so enqueues for different members never contend on one lock
// while all operations on a single member are serialised.
type PendingRoles struct {
	shards [shardCount]shard
}

type shard struct {
	mu      sync.Mutex
	entries map[domain.MemberID]*pendingEntry
}

type pendingEntry struct {
	member domain.Member
	roles  []domain.Role
}

func New() *PendingRoles {
	p := &PendingRoles{}
	for i := range p.shards {
		p.shards[i].entries = make(map[domain.MemberID]*pendingEntry)
	}
	return p
}

func (p *PendingRoles) shardFor(id domain.MemberID) *shard {
	return &p.shards[xxhash.Sum64String(id)%shardCount]
}

// Enqueue appends the roles not already pending for the member and
// returns the ones actually added.
//
// spawn is true only when this call moved the member from empty to
// non-empty; the caller must then start exactly one settling timer. Any
// later call while the member is still pending returns spawn=false, and
// the running timer picks its roles up because Drain reads the set at
// fire time.
func (p *PendingRoles) Enqueue(member domain.Member, roles []domain.Role) (added []domain.Role, spawn bool) {
	if len(roles) == 0 {
		return nil, false
	}

	s := p.shardFor(member.ID)
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[member.ID]
	wasEmpty := e == nil || len(e.roles) == 0

	seen := make(map[string]struct{}, len(roles))
	if e != nil {
		for _, r := range e.roles {
			seen[r.ID] = struct{}{}
		}
	}
	for _, r := range roles {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		added = append(added, r)
	}

	if len(added) == 0 {
		return nil, false
	}

	if e == nil {
		e = &pendingEntry{}
		s.entries[member.ID] = e
	}
	// Keep the freshest mention/avatar for the eventual message.
	e.member = member
	e.roles = append(e.roles, added...)

	return added, wasEmpty
}

// Drain removes the member's pending entry and returns it.
// ok is false when nothing was pending.
func (p *PendingRoles) Drain(id domain.MemberID) (member domain.Member, roles []domain.Role, ok bool) {
	s := p.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, found := s.entries[id]
	if !found {
		return domain.Member{}, nil, false
	}
	delete(s.entries, id)

	if len(e.roles) == 0 {
		return e.member, nil, false
	}
	return e.member, e.roles, true
}

// Len returns the number of members with a pending set.
// Used by the pending_members gauge and the ops snapshot.
func (p *PendingRoles) Len() int {
	n := 0
	for i := range p.shards {
		s := &p.shards[i]
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}

// Snapshot returns a copy of every pending set, keyed by member id.
func (p *PendingRoles) Snapshot() map[domain.MemberID][]domain.Role {
	out := make(map[domain.MemberID][]domain.Role)
	for i := range p.shards {
		s := &p.shards[i]
		s.mu.Lock()
		for id, e := range s.entries {
			out[id] = append([]domain.Role(nil), e.roles...)
		}
		s.mu.Unlock()
	}
	return out
}
