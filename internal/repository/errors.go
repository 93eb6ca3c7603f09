// Package repository defines error types that are reused across multiple
// repositories. These sentinel values let higher layers such as the auth
// service distinguish between failure scenarios without inspecting driver
// errors. ErrEmailExists and ErrUsernameExists surface MySQL duplicate-key
// violations on the respective unique indexes; ErrNotFound normalizes
// sql.ErrNoRows and soft-deleted rows.
package repository

import "errors"

// ErrNotFound is returned when no matching, non-deleted row exists.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when an insert collides with the unique
// email index.
var ErrEmailExists = errors.New("email already exists")

// ErrUsernameExists is returned when an insert collides with the unique
// username index.
var ErrUsernameExists = errors.New("username already exists")
