package model

import "time"

// User represents an account record as stored in the `users` table.
// Sensitive fields (PasswordHash, RefreshTokenHash, the one-time tokens)
// never appear in API responses; handlers build separate response types.
//
// RefreshTokenHash holds the SHA-256 digest of the most recently issued
// refresh token, or the empty string before first login.  A non-empty value
// corresponds to exactly one currently-valid refresh token: issuing a new
// one overwrites this field and thereby invalidates the previous token.
//
// DeletedAt implements soft deletion; repository queries exclude rows
// where it is set.
type User struct {
	ID           uint64     // users.id
	Username     string     // users.username (unique)
	Email        string     // users.email (unique)
	PasswordHash string     // users.password_hash (bcrypt)
	RoleID       uint8      // users.role_id (references roles.id)
	Role         string     // joined roles.name
	IsVerified   bool       // users.is_verified
	VerifyToken  string     // users.verification_token (nullable)
	VerifyExpiry *time.Time // users.verification_token_expires_at
	ResetToken   string     // users.reset_token (nullable)
	ResetExpiry  *time.Time // users.reset_token_expires_at
	RefreshHash  string     // users.refresh_token_hash (SHA-256 hex, nullable)
	CreatedAt    time.Time  // users.created_at
	UpdatedAt    time.Time  // users.updated_at
	DeletedAt    *time.Time // users.deleted_at (soft delete tombstone)
}

// Role represents a row in the `roles` table.  Role names are a fixed enum
// (admin, lecturer, student); users reference this table via RoleID.
type Role struct {
	ID   uint8  // roles.id
	Name string // roles.name
}
