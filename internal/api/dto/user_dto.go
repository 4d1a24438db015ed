package dto

import (
	"time"

	"github.com/booking-system/user-service/internal/domain"
)

// UserRegisterRequest payload for new users.
type UserRegisterRequest struct {
	FirstName   string `json:"firstName" validate:"required,max=100"`
	LastName    string `json:"lastName" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required,max=72"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,max=32"`
}

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest payload for profile edits. Empty names are left unchanged.
type UpdateProfileRequest struct {
	FirstName   string `json:"firstName" validate:"max=100"`
	LastName    string `json:"lastName" validate:"max=100"`
	PhoneNumber string `json:"phoneNumber" validate:"max=32"`
}

// ChangePasswordRequest payload for self-service password changes.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

// StatusChangeRequest carries the optional audit reason of admin actions.
type StatusChangeRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UserResponse is the public view of a user. The password hash never leaves the service.
type UserResponse struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PageResponse wraps a page of users.
type PageResponse struct {
	Items         []UserResponse `json:"items"`
	Page          int            `json:"page"`
	Size          int            `json:"size"`
	TotalElements int64          `json:"totalElements"`
	TotalPages    int            `json:"totalPages"`
	HasNext       bool           `json:"hasNext"`
}

// StatsResponse reports user counts per status.
type StatsResponse struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Inactive  int64 `json:"inactive"`
	Suspended int64 `json:"suspended"`
}

// PasswordResetResponse returns the generated temporary password to the admin.
type PasswordResetResponse struct {
	TemporaryPassword string `json:"temporaryPassword"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Status:      string(u.Status),
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// NewPageResponse maps a domain page.
func NewPageResponse(p domain.Page) PageResponse {
	items := make([]UserResponse, 0, len(p.Items))
	for i := range p.Items {
		items = append(items, NewUserResponse(&p.Items[i]))
	}
	return PageResponse{
		Items:         items,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
		HasNext:       p.HasNext(),
	}
}

// NewStatsResponse maps domain stats.
func NewStatsResponse(s domain.UserStats) StatsResponse {
	return StatsResponse{Total: s.Total, Active: s.Active, Inactive: s.Inactive, Suspended: s.Suspended}
}
