// Package session owns the process-wide answer to "who is logged in and
// with what profile". Each browser session (keyed by the opaque ID carried
// in the session cookie) is one instance of the state machine
//
//	Loading -> Authenticated(principal, session, profile) | Anonymous
//
// Principal and Profile are always published together under one lock, so a
// consumer can never observe a role-less Authenticated state mid-resolution.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/eduardobaptist/ifpassweb/internal/model"
)

type State int

const (
	StateLoading State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Snapshot is the published state of one browser session.
type Snapshot struct {
	State     State
	Principal model.Principal
	Session   model.Session
	Profile   *model.Profile
}

// Role returns the profile role, or "" when the profile is absent. An
// absent or unrecognized role is unauthorized for every guarded route.
func (s Snapshot) Role() string {
	return s.Profile.Role()
}

// Change is delivered to subscribers on every published transition.
type Change struct {
	SID      string
	Snapshot Snapshot
}

type Authenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (model.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (model.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

type ProfileLoader interface {
	Load(ctx context.Context, token, principalID string) (*model.Profile, error)
}

// Grant is the durable part of a browser session: enough to replay against
// the backend after a process restart.
type Grant struct {
	RefreshToken string          `json:"refresh_token"`
	Principal    model.Principal `json:"principal"`
	SavedAt      time.Time       `json:"saved_at"`
}

// GrantStore persists grants across restarts. A nil store means sessions
// live only as long as the process.
type GrantStore interface {
	Save(ctx context.Context, sid string, grant Grant) error
	Load(ctx context.Context, sid string) (Grant, bool, error)
	Delete(ctx context.Context, sid string) error
}

const restoreTimeout = 15 * time.Second

type entry struct {
	snapshot Snapshot
	seq      uint64
	lastSeen time.Time
}

type Manager struct {
	auth          Authenticator
	profiles      ProfileLoader
	grants        GrantStore
	ttl           time.Duration
	refreshLeeway time.Duration

	mu      sync.Mutex
	entries map[string]*entry
	subs    map[int]func(Change)
	nextSub int
}

func NewManager(auth Authenticator, profiles ProfileLoader, grants GrantStore, ttl, refreshLeeway time.Duration) *Manager {
	return &Manager{
		auth:          auth,
		profiles:      profiles,
		grants:        grants,
		ttl:           ttl,
		refreshLeeway: refreshLeeway,
		entries:       make(map[string]*entry),
		subs:          make(map[int]func(Change)),
	}
}

// Subscribe registers a callback for auth-state changes and returns its
// unsubscribe function. Callbacks run outside the manager lock.
func (m *Manager) Subscribe(fn func(Change)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Resolve returns the current snapshot for sid without blocking. A session
// ID seen for the first time enters Loading while its persisted grant is
// replayed in the background; with no grant store to replay from it is
// Anonymous immediately.
func (m *Manager) Resolve(ctx context.Context, sid string) Snapshot {
	now := time.Now().UTC()

	m.mu.Lock()
	if e, ok := m.entries[sid]; ok {
		e.lastSeen = now
		snapshot := e.snapshot
		m.mu.Unlock()
		return snapshot
	}

	if m.grants == nil {
		e := &entry{snapshot: Snapshot{State: StateAnonymous}, lastSeen: now}
		m.entries[sid] = e
		m.mu.Unlock()
		return e.snapshot
	}

	e := &entry{snapshot: Snapshot{State: StateLoading}, seq: 1, lastSeen: now}
	m.entries[sid] = e
	m.mu.Unlock()

	go m.restore(sid, 1)
	return Snapshot{State: StateLoading}
}

func (m *Manager) restore(sid string, seq uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
	defer cancel()

	grant, ok, err := m.grants.Load(ctx, sid)
	if err != nil {
		log.Printf("grant load failed for %s: %v", sid, err)
	}
	if err != nil || !ok || grant.RefreshToken == "" {
		m.publish(sid, seq, Snapshot{State: StateAnonymous})
		return
	}

	sess, err := m.auth.RefreshSession(ctx, grant.RefreshToken)
	if err != nil {
		log.Printf("session restore failed for %s: %v", sid, err)
		_ = m.grants.Delete(ctx, sid)
		m.publish(sid, seq, Snapshot{State: StateAnonymous})
		return
	}
	m.finishResolution(ctx, sid, seq, sess)
}

// SignIn authenticates credentials against the backend and runs the full
// resolution path. The returned snapshot already carries the profile;
// navigation decisions are made from it, never from the raw auth response.
func (m *Manager) SignIn(ctx context.Context, sid, email, password string) (Snapshot, error) {
	sess, err := m.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return Snapshot{}, err
	}
	seq := m.beginResolution(sid)
	return m.finishResolution(ctx, sid, seq, sess), nil
}

// SignOut requests a backend sign-out and then unconditionally clears the
// session, whether or not the backend call succeeded.
func (m *Manager) SignOut(ctx context.Context, sid string) {
	m.mu.Lock()
	e, ok := m.entries[sid]
	if !ok {
		m.mu.Unlock()
		return
	}
	e.seq++
	seq := e.seq
	token := e.snapshot.Session.AccessToken
	m.mu.Unlock()

	if token != "" {
		if err := m.auth.SignOut(ctx, token); err != nil {
			log.Printf("backend sign-out failed: %v", err)
		}
	}
	if m.grants != nil {
		if err := m.grants.Delete(ctx, sid); err != nil {
			log.Printf("grant delete failed for %s: %v", sid, err)
		}
	}
	m.publish(sid, seq, Snapshot{State: StateAnonymous})
}

// RefreshDue refreshes every authenticated session whose access token
// expires within the configured leeway. A grant the backend no longer
// accepts demotes its session to Anonymous.
func (m *Manager) RefreshDue(ctx context.Context, now time.Time) {
	type due struct {
		sid          string
		seq          uint64
		refreshToken string
	}

	m.mu.Lock()
	var dues []due
	for sid, e := range m.entries {
		if e.snapshot.State != StateAuthenticated {
			continue
		}
		expiresAt := e.snapshot.Session.ExpiresAt
		if expiresAt.IsZero() || now.Add(m.refreshLeeway).Before(expiresAt) {
			continue
		}
		e.seq++
		dues = append(dues, due{sid: sid, seq: e.seq, refreshToken: e.snapshot.Session.RefreshToken})
	}
	m.mu.Unlock()

	for _, d := range dues {
		sess, err := m.auth.RefreshSession(ctx, d.refreshToken)
		if err != nil {
			log.Printf("session refresh failed for %s: %v", d.sid, err)
			if m.grants != nil {
				_ = m.grants.Delete(ctx, d.sid)
			}
			m.publish(d.sid, d.seq, Snapshot{State: StateAnonymous})
			continue
		}
		m.finishResolution(ctx, d.sid, d.seq, sess)
	}
}

// SweepExpired drops entries that have not been touched within the session
// TTL and returns how many were removed.
func (m *Manager) SweepExpired(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for sid, e := range m.entries {
		if now.Sub(e.lastSeen) > m.ttl {
			delete(m.entries, sid)
			removed++
		}
	}
	return removed
}

// beginResolution claims the next sequence number for sid. Any resolution
// still in flight under an older number will be discarded at publish time.
func (m *Manager) beginResolution(sid string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[sid]
	if !ok {
		e = &entry{snapshot: Snapshot{State: StateLoading}}
		m.entries[sid] = e
	}
	e.seq++
	e.lastSeen = time.Now().UTC()
	return e.seq
}

// finishResolution loads the profile for the freshly issued session and
// publishes principal and profile as one transition. A profile fetch
// failure keeps the principal and session with an absent profile; guarded
// routes then treat the session as unauthorized.
func (m *Manager) finishResolution(ctx context.Context, sid string, seq uint64, sess model.Session) Snapshot {
	prof, err := m.profiles.Load(ctx, sess.AccessToken, sess.Principal.ID)
	if err != nil {
		log.Printf("profile load failed for %s: %v", sess.Principal.ID, err)
		prof = nil
	}

	snapshot := Snapshot{
		State:     StateAuthenticated,
		Principal: sess.Principal,
		Session:   sess,
		Profile:   prof,
	}
	if !m.publish(sid, seq, snapshot) {
		return m.current(sid)
	}
	if m.grants != nil {
		grant := Grant{RefreshToken: sess.RefreshToken, Principal: sess.Principal, SavedAt: time.Now().UTC()}
		if err := m.grants.Save(ctx, sid, grant); err != nil {
			log.Printf("grant save failed for %s: %v", sid, err)
		}
	}
	return snapshot
}

// publish installs snapshot for sid if seq is still the newest resolution,
// then notifies subscribers. A stale seq means a newer resolution or a
// sign-out won the race; the stale result is discarded.
func (m *Manager) publish(sid string, seq uint64, snapshot Snapshot) bool {
	m.mu.Lock()
	e, ok := m.entries[sid]
	if !ok || e.seq != seq {
		m.mu.Unlock()
		return false
	}
	e.snapshot = snapshot
	subs := make([]func(Change), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	change := Change{SID: sid, Snapshot: snapshot}
	for _, fn := range subs {
		fn(change)
	}
	return true
}

func (m *Manager) current(sid string) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[sid]; ok {
		return e.snapshot
	}
	return Snapshot{State: StateAnonymous}
}
