package domain

import (
	"strings"
	"time"
)

// UserStatus represents lifecycle states for a platform user.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusInactive  UserStatus = "INACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// Valid reports whether s is one of the known statuses.
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusSuspended:
		return true
	}
	return false
}

// ParseUserStatus accepts any letter case.
func ParseUserStatus(raw string) (UserStatus, bool) {
	status := UserStatus(strings.ToUpper(strings.TrimSpace(raw)))
	return status, status.Valid()
}

// User is the identity record for a booking platform customer.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PhoneNumber  string
	PasswordHash string
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the part of a user the user may edit.
type Profile struct {
	FirstName   string
	LastName    string
	PhoneNumber string
}

// Profile returns the editable fields of u.
func (u *User) Profile() Profile {
	return Profile{FirstName: u.FirstName, LastName: u.LastName, PhoneNumber: u.PhoneNumber}
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NormalizeEmail is the single case policy for stored and looked-up emails.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CanTransition reports whether a user in status from may move to status to.
// Moving to the current status is allowed and treated as a no-op by callers.
func CanTransition(from, to UserStatus) bool {
	if from == to {
		return true
	}
	switch to {
	case UserStatusActive:
		return from == UserStatusInactive || from == UserStatusSuspended
	case UserStatusInactive:
		// a suspended user leaves suspension only through reactivation
		return from == UserStatusActive
	case UserStatusSuspended:
		return from == UserStatusActive
	}
	return false
}
