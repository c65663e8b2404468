package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidArgument = errors.New("invalid argument")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrUserNotFound = errors.New("user not found")
var ErrUserExists = errors.New("user already exists")
var ErrForbidden = errors.New("access forbidden")
var ErrNoSession = errors.New("no active session")

// AuthError carries the human-readable message surfaced when the remote
// user service rejects a login or registration.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError wraps cause with a message suitable for direct display.
func NewAuthError(message string, cause error) *AuthError {
	return &AuthError{Message: message, Err: cause}
}

// User is a canonical community member. The Role field always holds one of
// the three canonical values; raw payloads must pass through the
// normalization layer before becoming a User.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// RawUserRecord is an untrusted user payload as returned by the remote user
// service or found in legacy storage. Every field is optional and the role
// may be any of several aliases; it is never used directly as a User.
type RawUserRecord struct {
	ID          string     `json:"id,omitempty"`
	Name        string     `json:"name,omitempty"`
	FirstName   string     `json:"first_name,omitempty"`
	LastName    string     `json:"last_name,omitempty"`
	Email       string     `json:"email,omitempty"`
	Role        string     `json:"role,omitempty"`
	Avatar      string     `json:"avatar,omitempty"`
	Token       string     `json:"token,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	CommunityID string     `json:"community_id,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// StoredUser is the persisted shape of a user inside the secure session
// store. Names are kept split, matching the backend account schema.
type StoredUser struct {
	ID          string    `json:"id" validate:"required"`
	Email       string    `json:"email" validate:"required,email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Role        Role      `json:"role"`
	Avatar      string    `json:"avatar,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	CommunityID string    `json:"community_id,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// ToStored converts a canonical User into its persisted shape, splitting the
// display name on the first space.
func (u User) ToStored() StoredUser {
	first, last := u.Name, ""
	if i := strings.IndexByte(u.Name, ' '); i >= 0 {
		first, last = u.Name[:i], u.Name[i+1:]
	}
	return StoredUser{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: first,
		LastName:  last,
		Role:      u.Role,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// ToUser reconstructs the canonical User from its persisted shape.
func (s StoredUser) ToUser() User {
	name := s.FirstName
	if s.LastName != "" {
		name = strings.TrimSpace(s.FirstName + " " + s.LastName)
	}
	return User{
		ID:        s.ID,
		Name:      name,
		Email:     s.Email,
		Role:      s.Role,
		Avatar:    s.Avatar,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// AppSettings are the per-device preferences kept alongside the session.
type AppSettings struct {
	Theme         string    `json:"theme"`
	Notifications bool      `json:"notifications"`
	Language      string    `json:"language"`
	LastSync      time.Time `json:"last_sync,omitempty"`
	BiometricAuth bool      `json:"biometric_auth"`
}

// DefaultAppSettings returns the settings applied for any never-set field.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Theme:         "auto",
		Notifications: true,
		Language:      "en",
		BiometricAuth: false,
	}
}

// AppSettingsPatch is a partial settings update; nil fields are left as-is.
type AppSettingsPatch struct {
	Theme         *string    `json:"theme,omitempty"`
	Notifications *bool      `json:"notifications,omitempty"`
	Language      *string    `json:"language,omitempty"`
	LastSync      *time.Time `json:"last_sync,omitempty"`
	BiometricAuth *bool      `json:"biometric_auth,omitempty"`
}

// Apply merges the patch into s and returns the result.
func (p AppSettingsPatch) Apply(s AppSettings) AppSettings {
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.Notifications != nil {
		s.Notifications = *p.Notifications
	}
	if p.Language != nil {
		s.Language = *p.Language
	}
	if p.LastSync != nil {
		s.LastSync = *p.LastSync
	}
	if p.BiometricAuth != nil {
		s.BiometricAuth = *p.BiometricAuth
	}
	return s
}

// UserUpdate is a partial self-service profile edit; nil fields are left
// untouched.
type UserUpdate struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
}

func (u UserUpdate) String() string {
	parts := make([]string, 0, 3)
	if u.Name != nil {
		parts = append(parts, "name")
	}
	if u.Email != nil {
		parts = append(parts, "email")
	}
	if u.Avatar != nil {
		parts = append(parts, "avatar")
	}
	return fmt.Sprintf("update(%s)", strings.Join(parts, ","))
}
