package auth

import (
	"errors"
	"time"
)

var (
	// ErrInvalidCredentials indicates a login failure.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailExists signals a duplicate email registration.
	ErrEmailExists = errors.New("a user already exists with this email address")
	// ErrTokenInvalid means a supplied token cannot be validated.
	ErrTokenInvalid = errors.New("invalid or expired token")
	// ErrInvalidSession means the presented refresh token does not belong to the active session.
	ErrInvalidSession = errors.New("no valid session found")
	// ErrSessionExpired means the active session is past its refresh expiry.
	ErrSessionExpired = errors.New("refresh token expired")
	// ErrUnauthorized is returned when an access token does not resolve to an active session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUserNotFound indicates missing user.
	ErrUserNotFound = errors.New("user not found")
	// ErrSessionNotFound indicates the user has no active session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrCodeNotFound indicates no verification code matched.
	ErrCodeNotFound = errors.New("verification code not found")
	// ErrInvalidOrExpiredCode is returned when a reset code is unknown or stale.
	ErrInvalidOrExpiredCode = errors.New("invalid or expired verification code")
	// ErrPasswordMismatch indicates the current password is incorrect.
	ErrPasswordMismatch = errors.New("current password does not match")
	// ErrPasswordUnchanged indicates the new password matches the current one.
	ErrPasswordUnchanged = errors.New("the new password cannot be the same as the old password")
)

// UserRole identifies the privileges assigned to a user.
type UserRole string

const (
	RoleSuperAdmin     UserRole = "Super admin"
	RoleAdmin          UserRole = "Admin"
	RoleManager        UserRole = "Manager"
	RoleContentOfficer UserRole = "Content Officer"
	// RoleUser is assigned on registration.
	RoleUser UserRole = "User"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleManager, RoleContentOfficer, RoleUser:
		return true
	}
	return false
}

// OnlineStatus tracks presence.
type OnlineStatus string

const (
	StatusOffline OnlineStatus = "Offline"
	StatusOnline  OnlineStatus = "Online"
)

// AccountStatus tracks whether the account may be used.
type AccountStatus string

const (
	AccountActive      AccountStatus = "Active"
	AccountDeactivated AccountStatus = "Deactivate"
)

// User models the authentication entity persisted in storage.
type User struct {
	ID            string        `json:"id" bson:"_id" db:"id"`
	Email         string        `json:"email" bson:"email" db:"email"`
	Name          string        `json:"name" bson:"name" db:"name"`
	Phone         string        `json:"phone,omitempty" bson:"phone,omitempty" db:"phone"`
	Role          UserRole      `json:"role" bson:"role" db:"role"`
	Status        OnlineStatus  `json:"status" bson:"status" db:"status"`
	AccountStatus AccountStatus `json:"accountStatus" bson:"account_status" db:"account_status"`
	IsVerified    bool          `json:"isVerified" bson:"is_verified" db:"is_verified"`
	PasswordHash  string        `json:"-" bson:"password_hash" db:"password_hash"`
	CreatedAt     time.Time     `json:"createdAt" bson:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updatedAt" bson:"updated_at" db:"updated_at"`
}

// Summary is the public projection returned on login.
type Summary struct {
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
}

// Summary returns the login projection of u.
func (u *User) Summary() Summary {
	return Summary{Name: u.Name, Email: u.Email, Role: u.Role}
}

// Session is the single active token pair bound to a user.
type Session struct {
	UserID                string    `json:"userId" bson:"user_id" db:"user_id"`
	AccessToken           string    `json:"-" bson:"access_token" db:"access_token"`
	RefreshToken          string    `json:"-" bson:"refresh_token" db:"refresh_token"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt" bson:"refresh_token_expires_at" db:"refresh_token_expires_at"`
	CreatedAt             time.Time `json:"createdAt" bson:"created_at" db:"created_at"`
	UpdatedAt             time.Time `json:"updatedAt" bson:"updated_at" db:"updated_at"`
}

// Expired reports whether the refresh window has passed at now.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.RefreshTokenExpiresAt)
}

// VerificationCode is a one-time numeric code proving control of an email.
type VerificationCode struct {
	ID        string    `json:"id" bson:"_id" db:"id"`
	UserID    string    `json:"userId" bson:"user_id" db:"user_id"`
	Code      string    `json:"-" bson:"code" db:"code"`
	ExpiresAt time.Time `json:"expiresAt" bson:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at" db:"created_at"`
}

// Expired reports whether the code is stale at now.
func (v *VerificationCode) Expired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}

// Claims carries the identity embedded in signed tokens.
type Claims struct {
	Subject string
	Email   string
	Name    string
	Role    UserRole
}
