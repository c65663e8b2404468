package remote

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/comunidadlabs/community-auth/internal/core/domain"
)

const mockTokenTTL = 24 * time.Hour

// mockAccount is one entry in the offline dataset.
type mockAccount struct {
	record       domain.RawUserRecord
	passwordHash []byte
}

// Mock is the in-memory stand-in for the production user service, used when
// the remote API is unreachable or not configured. Its seeded records carry
// the same inconsistent role aliases the real backends emit ("superadmin",
// "board", "member"), so normalization is exercised either way.
type Mock struct {
	mu        sync.Mutex
	byEmail   map[string]*mockAccount
	jwtSecret string
}

// NewMock returns a Mock seeded with one account per role. All seeded
// accounts share the password "password123".
func NewMock(jwtSecret string) *Mock {
	m := &Mock{
		byEmail:   make(map[string]*mockAccount),
		jwtSecret: jwtSecret,
	}
	seed := []struct {
		name, email, role string
	}{
		{"Ana Torres", "ana@comunidad.app", "superadmin"},
		{"Bruno Vega", "bruno@comunidad.app", "board"},
		{"Carla Ruiz", "carla@comunidad.app", "member"},
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	now := time.Now().UTC()
	for _, s := range seed {
		m.byEmail[s.email] = &mockAccount{
			record: domain.RawUserRecord{
				ID:        uuid.NewString(),
				Name:      s.name,
				Email:     s.email,
				Role:      s.role,
				CreatedAt: &now,
				UpdatedAt: &now,
			},
			passwordHash: hash,
		}
	}
	return m
}

func (m *Mock) Login(_ context.Context, credential, password string) (domain.RawUserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.byEmail[strings.ToLower(credential)]
	if !ok {
		return domain.RawUserRecord{}, domain.NewAuthError("Invalid email or password", domain.ErrInvalidCredentials)
	}
	if bcrypt.CompareHashAndPassword(account.passwordHash, []byte(password)) != nil {
		return domain.RawUserRecord{}, domain.NewAuthError("Invalid email or password", domain.ErrInvalidCredentials)
	}

	record := account.record
	token, err := m.mintToken(record)
	if err != nil {
		return domain.RawUserRecord{}, err
	}
	record.Token = token
	return record, nil
}

func (m *Mock) Register(_ context.Context, credential, password, name string) (domain.RawUserRecord, error) {
	if credential == "" || password == "" {
		return domain.RawUserRecord{}, domain.NewAuthError("Email and password are required", domain.ErrInvalidCredentials)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(credential)
	if _, exists := m.byEmail[email]; exists {
		return domain.RawUserRecord{}, domain.NewAuthError("An account with this email already exists", domain.ErrUserExists)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return domain.RawUserRecord{}, err
	}

	now := time.Now().UTC()
	account := &mockAccount{
		record: domain.RawUserRecord{
			ID:        uuid.NewString(),
			Name:      name,
			Email:     email,
			Role:      "member",
			CreatedAt: &now,
			UpdatedAt: &now,
		},
		passwordHash: hash,
	}
	m.byEmail[email] = account

	record := account.record
	token, err := m.mintToken(record)
	if err != nil {
		return domain.RawUserRecord{}, err
	}
	record.Token = token
	return record, nil
}

func (m *Mock) Logout(context.Context) error {
	return nil
}

func (m *Mock) ListUsers(context.Context) ([]domain.RawUserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := make([]domain.RawUserRecord, 0, len(m.byEmail))
	for _, account := range m.byEmail {
		records = append(records, account.record)
	}
	return records, nil
}

func (m *Mock) UpdateUserRole(_ context.Context, userID string, role domain.Role) (domain.RawUserRecord, error) {
	if !role.Valid() {
		return domain.RawUserRecord{}, domain.ErrInvalidArgument
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, account := range m.byEmail {
		if account.record.ID == userID {
			now := time.Now().UTC()
			account.record.Role = string(role)
			account.record.UpdatedAt = &now
			return account.record, nil
		}
	}
	return domain.RawUserRecord{}, domain.ErrUserNotFound
}

// mintToken issues an HS256 token so the dataset round-trips through the
// same bearer handling as the real service.
func (m *Mock) mintToken(record domain.RawUserRecord) (string, error) {
	claims := jwt.MapClaims{
		"sub":   record.ID,
		"email": record.Email,
		"role":  record.Role,
		"exp":   time.Now().Add(mockTokenTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(m.jwtSecret))
}
