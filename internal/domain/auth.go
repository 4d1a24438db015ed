package domain

import "time"

// Role differentiates regular users from administrators acting on other accounts.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Token represents issued access token metadata.
type Token struct {
	Value     string
	SubjectID string
	Role      Role
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// UserStats summarizes the user base by status.
type UserStats struct {
	Total     int64
	Active    int64
	Inactive  int64
	Suspended int64
}
