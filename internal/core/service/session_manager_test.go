package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/comunidadlabs/community-auth/internal/core/domain"
	"github.com/comunidadlabs/community-auth/internal/infrastructure/securestore"
)

type stubUserService struct {
	loginFn      func(ctx context.Context, credential, password string) (domain.RawUserRecord, error)
	registerFn   func(ctx context.Context, credential, password, name string) (domain.RawUserRecord, error)
	logoutFn     func(ctx context.Context) error
	listFn       func(ctx context.Context) ([]domain.RawUserRecord, error)
	updateRoleFn func(ctx context.Context, userID string, role domain.Role) (domain.RawUserRecord, error)
}

func (s *stubUserService) Login(ctx context.Context, credential, password string) (domain.RawUserRecord, error) {
	return s.loginFn(ctx, credential, password)
}

func (s *stubUserService) Register(ctx context.Context, credential, password, name string) (domain.RawUserRecord, error) {
	return s.registerFn(ctx, credential, password, name)
}

func (s *stubUserService) Logout(ctx context.Context) error {
	if s.logoutFn != nil {
		return s.logoutFn(ctx)
	}
	return nil
}

func (s *stubUserService) ListUsers(ctx context.Context) ([]domain.RawUserRecord, error) {
	return s.listFn(ctx)
}

func (s *stubUserService) UpdateUserRole(ctx context.Context, userID string, role domain.Role) (domain.RawUserRecord, error) {
	return s.updateRoleFn(ctx, userID, role)
}

// stubStore is an in-memory session store with per-operation error injection.
type stubStore struct {
	token    string
	user     *domain.StoredUser
	settings domain.AppSettings
	hasSet   bool

	setUserCalls int
	errOn        map[string]error
}

func newStubStore() *stubStore {
	return &stubStore{settings: domain.DefaultAppSettings(), errOn: map[string]error{}}
}

func (s *stubStore) fail(op string) error { return s.errOn[op] }

func (s *stubStore) SetToken(_ context.Context, token string) error {
	if err := s.fail("set_token"); err != nil {
		return err
	}
	if token == "" {
		return domain.ErrInvalidArgument
	}
	s.token = token
	return nil
}

func (s *stubStore) Token(context.Context) (string, error) {
	if err := s.fail("get_token"); err != nil {
		return "", err
	}
	return s.token, nil
}

func (s *stubStore) RemoveToken(context.Context) error {
	s.token = ""
	return nil
}

func (s *stubStore) SetUserData(_ context.Context, user domain.StoredUser) error {
	if err := s.fail("set_user_data"); err != nil {
		return err
	}
	s.setUserCalls++
	clone := user
	s.user = &clone
	return nil
}

func (s *stubStore) UserData(context.Context) (*domain.StoredUser, error) {
	if err := s.fail("get_user_data"); err != nil {
		return nil, err
	}
	if s.user == nil {
		return nil, nil
	}
	clone := *s.user
	return &clone, nil
}

func (s *stubStore) SetAppSettings(_ context.Context, patch domain.AppSettingsPatch) error {
	s.settings = patch.Apply(s.settings)
	s.hasSet = true
	return nil
}

func (s *stubStore) AppSettings(context.Context) (domain.AppSettings, error) {
	return s.settings, nil
}

func (s *stubStore) ClearAll(context.Context) error {
	if err := s.fail("clear_all"); err != nil {
		return err
	}
	s.token = ""
	s.user = nil
	s.settings = domain.DefaultAppSettings()
	return nil
}

func (s *stubStore) IsAuthenticated(context.Context) (bool, error) {
	return s.token != "" && s.user != nil, nil
}

func boardLoginStub() *stubUserService {
	return &stubUserService{
		loginFn: func(_ context.Context, credential, _ string) (domain.RawUserRecord, error) {
			return domain.RawUserRecord{ID: "1", Name: "Alice", Email: credential, Role: "board", Token: "tok-1"}, nil
		},
	}
}

func TestSessionManager_Login_Success(t *testing.T) {
	store := newStubStore()
	m := NewSessionManager(boardLoginStub(), store, zerolog.Nop(), Options{})
	ctx := context.Background()

	user, err := m.Login(ctx, "alice@example.com", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Role != domain.RoleBoardMember {
		t.Fatalf("expected board_member, got %s", user.Role)
	}
	if m.State() != StateAuthenticated {
		t.Fatalf("expected authenticated state, got %s", m.State())
	}

	caps := m.Capabilities()
	if !caps.IsBoardMember || caps.IsSuperAdmin {
		t.Fatalf("unexpected capabilities: %+v", caps)
	}

	authed, err := store.IsAuthenticated(ctx)
	if err != nil || !authed {
		t.Fatalf("store should report authenticated, got %v (%v)", authed, err)
	}
	if store.token != "tok-1" {
		t.Fatalf("token not persisted: %q", store.token)
	}
	if store.user == nil || store.user.Role != domain.RoleBoardMember {
		t.Fatalf("persisted user wrong: %+v", store.user)
	}
}

func TestSessionManager_Login_PersistsToEncryptedStore(t *testing.T) {
	backend, err := securestore.NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("backend: %v", err)
	}
	store, err := securestore.New(backend, "test-passphrase", zerolog.Nop())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	m := NewSessionManager(boardLoginStub(), store, zerolog.Nop(), Options{})
	ctx := context.Background()

	if _, err := m.Login(ctx, "alice@example.com", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	authed, err := store.IsAuthenticated(ctx)
	if err != nil || !authed {
		t.Fatalf("encrypted store should report authenticated, got %v (%v)", authed, err)
	}

	// A fresh manager over the same store restores the session.
	restored := NewSessionManager(boardLoginStub(), store, zerolog.Nop(), Options{})
	restored.Initialize(ctx)
	if restored.State() != StateAuthenticated {
		t.Fatalf("expected restored session, got %s", restored.State())
	}
	if user := restored.CurrentUser(); user == nil || user.Name != "Alice" || user.Role != domain.RoleBoardMember {
		t.Fatalf("restored user wrong: %+v", user)
	}
}

func TestSessionManager_Login_Rejected(t *testing.T) {
	svc := &stubUserService{
		loginFn: func(context.Context, string, string) (domain.RawUserRecord, error) {
			return domain.RawUserRecord{}, domain.NewAuthError("Invalid email or password", domain.ErrInvalidCredentials)
		},
	}
	m := NewSessionManager(svc, newStubStore(), zerolog.Nop(), Options{})

	_, err := m.Login(context.Background(), "alice@example.com", "bad")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if m.State() != StateUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", m.State())
	}
	if m.Err() != "Invalid email or password" {
		t.Fatalf("expected mirrored error message, got %q", m.Err())
	}
	if m.CurrentUser() != nil {
		t.Fatalf("no user should be set")
	}

	m.ClearError()
	if m.Err() != "" {
		t.Fatalf("error state should clear")
	}
	if m.State() != StateUnauthenticated {
		t.Fatalf("ClearError must not touch auth state")
	}
}

func TestSessionManager_Register_Success(t *testing.T) {
	svc := &stubUserService{
		registerFn: func(_ context.Context, credential, _, name string) (domain.RawUserRecord, error) {
			return domain.RawUserRecord{ID: "9", Name: name, Email: credential, Role: "member", Token: "tok-9"}, nil
		},
	}
	store := newStubStore()
	m := NewSessionManager(svc, store, zerolog.Nop(), Options{})

	user, err := m.Register(context.Background(), "dani@example.com", "hunter2-plus", "Dani Sol")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != domain.RoleCommunityMember {
		t.Fatalf("expected community_member, got %s", user.Role)
	}
	if store.user == nil || store.user.FirstName != "Dani" || store.user.LastName != "Sol" {
		t.Fatalf("persisted split name wrong: %+v", store.user)
	}
}

func TestSessionManager_Logout_Symmetry(t *testing.T) {
	store := newStubStore()
	m := NewSessionManager(boardLoginStub(), store, zerolog.Nop(), Options{})
	ctx := context.Background()

	if _, err := m.Login(ctx, "alice@example.com", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := m.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if m.State() != StateUnauthenticated || m.CurrentUser() != nil || m.CurrentRole() != nil {
		t.Fatalf("memory not cleared: state=%s user=%v", m.State(), m.CurrentUser())
	}
	if authed, _ := store.IsAuthenticated(ctx); authed {
		t.Fatalf("store should be cleared")
	}
	if token, _ := store.Token(ctx); token != "" {
		t.Fatalf("token should be gone")
	}
	if user, _ := store.UserData(ctx); user != nil {
		t.Fatalf("user data should be gone")
	}
}

func TestSessionManager_Logout_OptimisticOnStorageFault(t *testing.T) {
	store := newStubStore()
	m := NewSessionManager(boardLoginStub(), store, zerolog.Nop(), Options{})
	ctx := context.Background()

	if _, err := m.Login(ctx, "alice@example.com", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	store.errOn["clear_all"] = errors.New("disk on fire")
	err := m.Logout(ctx)
	if err == nil {
		t.Fatalf("storage fault should propagate")
	}

	// The user is logged out of the app regardless.
	if m.CurrentUser() != nil || m.State() != StateUnauthenticated {
		t.Fatalf("memory must be reset before cleanup: state=%s", m.State())
	}
}

func TestSessionManager_SetRole_NoUserIsNoop(t *testing.T) {
	store := newStubStore()
	m := NewSessionManager(boardLoginStub(), store, zerolog.Nop(), Options{})

	if err := m.SetRole(context.Background(), domain.RoleSuperAdmin); err != nil {
		t.Fatalf("no-op SetRole should not error: %v", err)
	}
	if m.CurrentRole() != nil {
		t.Fatalf("role should remain nil")
	}
	if store.setUserCalls != 0 {
		t.Fatalf("nothing should be persisted, got %d writes", store.setUserCalls)
	}
}

func TestSessionManager_SetRole_InvalidRole(t *testing.T) {
	m := NewSessionManager(boardLoginStub(), newStubStore(), zerolog.Nop(), Options{})
	if err := m.SetRole(context.Background(), domain.Role("owner")); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestSessionManager_SetRole_UpdatesMemoryAndStore(t *testing.T) {
	store := newStubStore()
	m := NewSessionManager(boardLoginStub(), store, zerolog.Nop(), Options{})
	ctx := context.Background()

	if _, err := m.Login(ctx, "alice@example.com", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := m.SetRole(ctx, domain.RoleSuperAdmin); err != nil {
		t.Fatalf("SetRole: %v", err)
	}

	if role := m.CurrentRole(); role == nil || *role != domain.RoleSuperAdmin {
		t.Fatalf("memory role wrong: %v", role)
	}
	if store.user == nil || store.user.Role != domain.RoleSuperAdmin {
		t.Fatalf("persisted role wrong: %+v", store.user)
	}
	if !m.Capabilities().IsSuperAdmin {
		t.Fatalf("capabilities should follow the override")
	}
}

func TestSessionManager_UpdateUser(t *testing.T) {
	store := newStubStore()
	m := NewSessionManager(boardLoginStub(), store, zerolog.Nop(), Options{})
	ctx := context.Background()

	// No-op without a user.
	name := "Nobody"
	if err := m.UpdateUser(ctx, domain.UserUpdate{Name: &name}); err != nil {
		t.Fatalf("no-op UpdateUser should not error: %v", err)
	}
	if store.setUserCalls != 0 {
		t.Fatalf("no-op should not persist")
	}

	if _, err := m.Login(ctx, "alice@example.com", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	newName := "Alice Cooper"
	newEmail := "cooper@example.com"
	if err := m.UpdateUser(ctx, domain.UserUpdate{Name: &newName, Email: &newEmail}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	user := m.CurrentUser()
	if user.Name != "Alice Cooper" || user.Email != "cooper@example.com" {
		t.Fatalf("merge wrong: %+v", user)
	}
	if user.Role != domain.RoleBoardMember {
		t.Fatalf("role must survive a profile edit, got %s", user.Role)
	}
	if store.user == nil || store.user.FirstName != "Alice" || store.user.LastName != "Cooper" {
		t.Fatalf("persisted name wrong: %+v", store.user)
	}
}

func TestSessionManager_Initialize_RestoresSession(t *testing.T) {
	store := newStubStore()
	store.token = "tok-restore"
	store.user = &domain.StoredUser{ID: "u7", Email: "bruno@example.com", FirstName: "Bruno", Role: domain.RoleSuperAdmin}

	m := NewSessionManager(boardLoginStub(), store, zerolog.Nop(), Options{})
	if m.State() != StateInitializing {
		t.Fatalf("expected initializing before Initialize, got %s", m.State())
	}

	m.Initialize(context.Background())

	if m.State() != StateAuthenticated {
		t.Fatalf("expected authenticated, got %s", m.State())
	}
	user := m.CurrentUser()
	if user == nil || user.ID != "u7" || user.Role != domain.RoleSuperAdmin {
		t.Fatalf("restored user wrong: %+v", user)
	}
}

func TestSessionManager_Initialize_EmptyStore(t *testing.T) {
	m := NewSessionManager(boardLoginStub(), newStubStore(), zerolog.Nop(), Options{})
	m.Initialize(context.Background())

	if m.State() != StateUnauthenticated || m.CurrentUser() != nil {
		t.Fatalf("expected clean unauthenticated start, got %s", m.State())
	}
	if m.Err() != "" {
		t.Fatalf("no error expected, got %q", m.Err())
	}
}

func TestSessionManager_Initialize_ReadFailure(t *testing.T) {
	store := newStubStore()
	store.errOn["get_user_data"] = errors.New("keychain unavailable")

	m := NewSessionManager(boardLoginStub(), store, zerolog.Nop(), Options{})
	m.Initialize(context.Background())

	if m.State() != StateUnauthenticated {
		t.Fatalf("read failure should still settle unauthenticated, got %s", m.State())
	}
	if m.Err() == "" {
		t.Fatalf("error state should capture the failure")
	}
}

func TestSessionManager_UpdateUserRole_RequiresSuperAdmin(t *testing.T) {
	m := NewSessionManager(boardLoginStub(), newStubStore(), zerolog.Nop(), Options{})
	ctx := context.Background()

	if _, err := m.Login(ctx, "alice@example.com", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	// Board member, not super admin.
	if _, err := m.UpdateUserRole(ctx, "other", domain.RoleBoardMember); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestSessionManager_UpdateUserRole_OtherUserLeavesSessionAlone(t *testing.T) {
	svc := boardLoginStub()
	svc.updateRoleFn = func(_ context.Context, userID string, role domain.Role) (domain.RawUserRecord, error) {
		return domain.RawUserRecord{ID: userID, Name: "Carla Ruiz", Email: "carla@example.com", Role: string(role)}, nil
	}
	store := newStubStore()
	m := NewSessionManager(svc, store, zerolog.Nop(), Options{})
	ctx := context.Background()

	if _, err := m.Login(ctx, "alice@example.com", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := m.SetRole(ctx, domain.RoleSuperAdmin); err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	writesBefore := store.setUserCalls

	updated, err := m.UpdateUserRole(ctx, "u-carla", domain.RoleBoardMember)
	if err != nil {
		t.Fatalf("UpdateUserRole: %v", err)
	}
	if updated.Role != domain.RoleBoardMember {
		t.Fatalf("expected board_member, got %s", updated.Role)
	}

	// Another member's promotion must not rewrite our own stored session.
	if store.setUserCalls != writesBefore {
		t.Fatalf("session store written for a different user")
	}
	if store.user.ID != "1" || store.user.Role != domain.RoleSuperAdmin {
		t.Fatalf("own stored record changed: %+v", store.user)
	}
}

func TestSessionManager_UpdateUserRole_SelfUpdatesSession(t *testing.T) {
	svc := boardLoginStub()
	svc.updateRoleFn = func(_ context.Context, userID string, role domain.Role) (domain.RawUserRecord, error) {
		return domain.RawUserRecord{ID: userID, Name: "Alice", Email: "alice@example.com", Role: string(role)}, nil
	}
	store := newStubStore()
	m := NewSessionManager(svc, store, zerolog.Nop(), Options{})
	ctx := context.Background()

	if _, err := m.Login(ctx, "alice@example.com", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := m.SetRole(ctx, domain.RoleSuperAdmin); err != nil {
		t.Fatalf("SetRole: %v", err)
	}

	if _, err := m.UpdateUserRole(ctx, "1", domain.RoleBoardMember); err != nil {
		t.Fatalf("UpdateUserRole: %v", err)
	}

	if role := m.CurrentRole(); role == nil || *role != domain.RoleBoardMember {
		t.Fatalf("own demotion should reach memory, got %v", role)
	}
	if store.user.Role != domain.RoleBoardMember {
		t.Fatalf("own demotion should reach storage, got %s", store.user.Role)
	}
}

func TestSessionManager_ListUsers_NormalizedAndSorted(t *testing.T) {
	svc := boardLoginStub()
	svc.listFn = func(context.Context) ([]domain.RawUserRecord, error) {
		return []domain.RawUserRecord{
			{ID: "3", Name: "zoe", Role: "member"},
			{ID: "1", Name: "Bea", Role: "superadmin"},
			{ID: "2", Name: "ann", Role: "bogus"},
			{ID: "4", Name: "Cam", Role: "board"},
		}, nil
	}
	m := NewSessionManager(svc, newStubStore(), zerolog.Nop(), Options{})

	users, err := m.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	want := []string{"Bea", "Cam", "ann", "zoe"}
	for i, name := range want {
		if users[i].Name != name {
			t.Fatalf("position %d: expected %s, got %s", i, name, users[i].Name)
		}
	}
	if users[2].Role != domain.RoleCommunityMember {
		t.Fatalf("unknown role should normalize to community_member, got %s", users[2].Role)
	}
}

func TestSessionManager_Subscribe(t *testing.T) {
	m := NewSessionManager(boardLoginStub(), newStubStore(), zerolog.Nop(), Options{})
	ch, cancel := m.Subscribe()
	defer cancel()

	if _, err := m.Login(context.Background(), "alice@example.com", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	// First snapshot is the transient state, second the commit.
	first := <-ch
	if first.State != StateAuthenticatingLogin {
		t.Fatalf("expected authenticating_login, got %s", first.State)
	}
	second := <-ch
	if second.State != StateAuthenticated {
		t.Fatalf("expected authenticated, got %s", second.State)
	}
	if second.User == nil || !second.Capabilities.IsBoardMember {
		t.Fatalf("snapshot missing user/capabilities: %+v", second)
	}
}

func TestSessionManager_StaleLoginDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	svc := &stubUserService{
		loginFn: func(_ context.Context, credential, _ string) (domain.RawUserRecord, error) {
			if credential == "slow@example.com" {
				close(started)
				<-release // first attempt resolves late
				return domain.RawUserRecord{ID: "old", Name: "Old", Email: credential, Role: "member", Token: "tok-old"}, nil
			}
			return domain.RawUserRecord{ID: "new", Name: "New", Email: credential, Role: "board", Token: "tok-new"}, nil
		},
	}
	store := newStubStore()
	m := NewSessionManager(svc, store, zerolog.Nop(), Options{GuardStaleResults: true})
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = m.Login(ctx, "slow@example.com", "pw")
	}()
	<-started

	// Second attempt starts after the first and wins.
	if _, err := m.Login(ctx, "fast@example.com", "pw"); err != nil {
		t.Fatalf("second login: %v", err)
	}
	close(release)
	<-done

	user := m.CurrentUser()
	if user == nil || user.ID != "new" {
		t.Fatalf("stale result overwrote the session: %+v", user)
	}
	if store.token != "tok-new" {
		t.Fatalf("stale token persisted: %q", store.token)
	}
}
