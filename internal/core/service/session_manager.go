package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/comunidadlabs/community-auth/internal/api/metrics"
	"github.com/comunidadlabs/community-auth/internal/core/domain"
	"github.com/comunidadlabs/community-auth/internal/core/normalize"
	"github.com/comunidadlabs/community-auth/internal/core/ports"
)

// State is the lifecycle phase of the auth session.
type State string

const (
	StateInitializing           State = "initializing"
	StateUnauthenticated        State = "unauthenticated"
	StateAuthenticated          State = "authenticated"
	StateAuthenticatingLogin    State = "authenticating_login"
	StateAuthenticatingRegister State = "authenticating_register"
	StateLoggingOut             State = "logging_out"
)

// Snapshot is an immutable view of the session handed to subscribers.
type Snapshot struct {
	State        State
	User         *domain.User
	Capabilities domain.Capabilities
	Err          string
}

// Options tunes session-manager behavior.
type Options struct {
	// GuardStaleResults discards a login/register completion when a newer
	// attempt has started since. Off by default: the historical behavior is
	// last-write-wins, with re-entrant triggers disabled by the UI.
	GuardStaleResults bool
}

// SessionManager is the sole owner of the in-memory auth state. All
// mutation funnels through its methods; reads hand out copies. It mirrors
// its state into the session store, with memory always updated before the
// persistence write is issued.
type SessionManager struct {
	svc   ports.UserService
	store ports.SessionStore
	log   zerolog.Logger
	opts  Options

	mu          sync.Mutex
	state       State
	user        *domain.User
	errMsg      string
	seq         uint64
	subscribers map[int]chan Snapshot
	nextSubID   int
}

// NewSessionManager builds a manager in the Initializing state. Call
// Initialize once to restore any persisted session.
func NewSessionManager(svc ports.UserService, store ports.SessionStore, log zerolog.Logger, opts Options) *SessionManager {
	return &SessionManager{
		svc:         svc,
		store:       store,
		log:         log,
		opts:        opts,
		state:       StateInitializing,
		subscribers: make(map[int]chan Snapshot),
	}
}

// Initialize seeds the in-memory session from the store. Read failures are
// captured in the error state rather than returned; the session proceeds
// unauthenticated either way.
func (m *SessionManager) Initialize(ctx context.Context) {
	stored, err := m.store.UserData(ctx)
	token := ""
	if err == nil {
		token, err = m.store.Token(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case err != nil:
		metrics.SessionRestoresTotal.WithLabelValues("error").Inc()
		m.log.Warn().Err(err).Msg("session restore failed")
		m.errMsg = err.Error()
		m.state = StateUnauthenticated
	case stored != nil && token != "":
		metrics.SessionRestoresTotal.WithLabelValues("restored").Inc()
		user := stored.ToUser()
		m.user = &user
		m.state = StateAuthenticated
	default:
		metrics.SessionRestoresTotal.WithLabelValues("empty").Inc()
		m.state = StateUnauthenticated
	}
	m.publishLocked()
}

// Login authenticates against the remote user service. On success the
// normalized user is committed to memory, then persisted. On rejection the
// error message is mirrored into the session error state and the error is
// returned.
func (m *SessionManager) Login(ctx context.Context, credential, password string) (*domain.User, error) {
	return m.authenticate(ctx, StateAuthenticatingLogin, metrics.LoginsTotal, func() (domain.RawUserRecord, error) {
		return m.svc.Login(ctx, credential, password)
	})
}

// Register creates an account and signs the new user in; same contract
// shape as Login.
func (m *SessionManager) Register(ctx context.Context, credential, password, name string) (*domain.User, error) {
	return m.authenticate(ctx, StateAuthenticatingRegister, metrics.RegistrationsTotal, func() (domain.RawUserRecord, error) {
		return m.svc.Register(ctx, credential, password, name)
	})
}

// Logout resets the in-memory session first, then clears remote and stored
// state. Cleanup failures propagate, but by then the session is already
// unauthenticated: the user is never stuck logged-in behind a storage fault.
func (m *SessionManager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.state = StateLoggingOut
	m.user = nil
	m.errMsg = ""
	m.publishLocked()
	m.mu.Unlock()

	remoteErr := m.svc.Logout(ctx)
	if remoteErr != nil {
		m.log.Warn().Err(remoteErr).Msg("remote logout failed")
	}
	storeErr := m.store.ClearAll(ctx)

	m.mu.Lock()
	m.state = StateUnauthenticated
	m.publishLocked()
	m.mu.Unlock()

	return errors.Join(storeErr, remoteErr)
}

// SetRole overrides the current user's role locally, without a remote call.
// A no-op when no user is signed in.
func (m *SessionManager) SetRole(ctx context.Context, role domain.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", domain.ErrInvalidArgument, role)
	}

	m.mu.Lock()
	if m.user == nil {
		m.mu.Unlock()
		return nil
	}
	m.user.Role = role
	stored := m.user.ToStored()
	m.publishLocked()
	m.mu.Unlock()

	return m.store.SetUserData(ctx, stored)
}

// UpdateUser shallow-merges profile fields into the current user and
// persists the result. A no-op when no user is signed in.
func (m *SessionManager) UpdateUser(ctx context.Context, update domain.UserUpdate) error {
	m.mu.Lock()
	if m.user == nil {
		m.mu.Unlock()
		return nil
	}
	if update.Name != nil {
		m.user.Name = *update.Name
	}
	if update.Email != nil {
		m.user.Email = *update.Email
	}
	if update.Avatar != nil {
		m.user.Avatar = *update.Avatar
	}
	stored := m.user.ToStored()
	m.publishLocked()
	m.mu.Unlock()

	return m.store.SetUserData(ctx, stored)
}

// ListUsers fetches every community member, normalized and ordered by role
// rank then name.
func (m *SessionManager) ListUsers(ctx context.Context) ([]domain.User, error) {
	records, err := m.svc.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	users := normalize.Users(records)
	domain.SortUsers(users)
	return users, nil
}

// UpdateUserRole promotes or demotes another member. Only a super admin may
// call it. When the target is the signed-in user, memory and storage are
// updated to match.
func (m *SessionManager) UpdateUserRole(ctx context.Context, userID string, role domain.Role) (*domain.User, error) {
	if !m.Capabilities().IsSuperAdmin {
		return nil, domain.ErrForbidden
	}

	record, err := m.svc.UpdateUserRole(ctx, userID, role)
	if err != nil {
		return nil, err
	}
	updated := normalize.User(record)

	m.mu.Lock()
	self := m.user != nil && m.user.ID == userID
	if self {
		m.user.Role = updated.Role
		m.publishLocked()
	}
	var stored domain.StoredUser
	if self {
		stored = m.user.ToStored()
	}
	m.mu.Unlock()

	if self {
		if err := m.store.SetUserData(ctx, stored); err != nil {
			return &updated, err
		}
	}
	return &updated, nil
}

// ClearError resets the error state without touching auth state.
func (m *SessionManager) ClearError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errMsg == "" {
		return
	}
	m.errMsg = ""
	m.publishLocked()
}

// Err returns the current human-readable error message, "" when clear.
func (m *SessionManager) Err() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errMsg
}

// State returns the current lifecycle state.
func (m *SessionManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CurrentUser returns a copy of the signed-in user, nil when there is none.
func (m *SessionManager) CurrentUser() *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyUser(m.user)
}

// CurrentRole returns the signed-in user's role, nil when unauthenticated.
func (m *SessionManager) CurrentRole() *domain.Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	role := m.user.Role
	return &role
}

// Capabilities derives the UI gating flags from the current role.
func (m *SessionManager) Capabilities() domain.Capabilities {
	return domain.ResolveCapabilities(m.CurrentRole())
}

// Subscribe registers an observer. The returned channel receives a snapshot
// after every state change; slow consumers miss intermediate snapshots
// rather than blocking the manager. The cancel function unsubscribes.
func (m *SessionManager) Subscribe() (<-chan Snapshot, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	ch := make(chan Snapshot, 8)
	m.subscribers[id] = ch

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if sub, ok := m.subscribers[id]; ok {
			delete(m.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

// authenticate runs the shared login/register flow: transient state, remote
// call, normalize, commit memory, persist.
func (m *SessionManager) authenticate(ctx context.Context, transient State, counter *prometheus.CounterVec, call func() (domain.RawUserRecord, error)) (*domain.User, error) {
	m.mu.Lock()
	m.state = transient
	m.seq++
	mySeq := m.seq
	m.publishLocked()
	m.mu.Unlock()

	record, err := call()
	if err != nil {
		counter.WithLabelValues("rejected").Inc()
		m.mu.Lock()
		if !m.opts.GuardStaleResults || mySeq == m.seq {
			m.errMsg = authMessage(err)
			m.state = m.settledStateLocked()
			m.publishLocked()
		}
		m.mu.Unlock()
		return nil, err
	}

	user := normalize.User(record)

	m.mu.Lock()
	if m.opts.GuardStaleResults && mySeq != m.seq {
		counter.WithLabelValues("stale").Inc()
		m.log.Debug().Str("user_id", user.ID).Msg("discarding stale auth result")
		m.mu.Unlock()
		return nil, nil
	}
	counter.WithLabelValues("success").Inc()
	m.user = &user
	m.errMsg = ""
	m.state = StateAuthenticated
	m.publishLocked()
	stored := user.ToStored()
	m.mu.Unlock()

	if err := m.persistSession(ctx, record.Token, stored); err != nil {
		m.mu.Lock()
		m.errMsg = err.Error()
		m.publishLocked()
		m.mu.Unlock()
		return copyUser(&user), err
	}
	return copyUser(&user), nil
}

// persistSession mirrors a fresh session into the store.
func (m *SessionManager) persistSession(ctx context.Context, token string, stored domain.StoredUser) error {
	if token == "" {
		m.log.Warn().Str("user_id", stored.ID).Msg("auth record carried no token, session not persisted")
		return nil
	}
	if err := m.store.SetToken(ctx, token); err != nil {
		return err
	}
	return m.store.SetUserData(ctx, stored)
}

// settledStateLocked resolves the post-operation state from the in-memory
// user. Callers hold m.mu.
func (m *SessionManager) settledStateLocked() State {
	if m.user != nil {
		return StateAuthenticated
	}
	return StateUnauthenticated
}

// publishLocked fans the current snapshot out to subscribers without
// blocking. Callers hold m.mu.
func (m *SessionManager) publishLocked() {
	var role *domain.Role
	if m.user != nil {
		r := m.user.Role
		role = &r
	}
	snapshot := Snapshot{
		State:        m.state,
		User:         copyUser(m.user),
		Capabilities: domain.ResolveCapabilities(role),
		Err:          m.errMsg,
	}
	for _, ch := range m.subscribers {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

func copyUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

// authMessage extracts the display message from an auth failure.
func authMessage(err error) string {
	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		return authErr.Message
	}
	return err.Error()
}
