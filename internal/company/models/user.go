package models

import "time"

// User is an account holder. PasswordHash is never serialized by the transport layer.
type User struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	IsActive     bool
	IsSuperuser  bool
	CreatedAt    time.Time
}

// SignUp carries the fields needed to register a user.
type SignUp struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// UserUpdate carries a partial profile update; nil fields are left as is.
type UserUpdate struct {
	ID        int64
	FirstName *string
	LastName  *string
}
