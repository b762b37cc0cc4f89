package models

import "time"

// User is a registered account. Usernames are unique among non-deleted users.
type User struct {
	ID           string     `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	PasswordHash string     `json:"-" db:"password_hash"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	IsDeleted    bool       `json:"-" db:"is_deleted"`
	DeletedAt    *time.Time `json:"-" db:"deleted_at"`
}
