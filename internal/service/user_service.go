package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/booking-system/user-service/internal/auth"
	"github.com/booking-system/user-service/internal/domain"
	"github.com/booking-system/user-service/internal/events"
	"github.com/booking-system/user-service/internal/repository"
	apperrors "github.com/booking-system/user-service/pkg/util"
)

// NewUser carries registration input.
type NewUser struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	PhoneNumber string
}

// ProfileUpdate carries the fields a profile update may change. Email and
// password are changed elsewhere or not at all.
type ProfileUpdate struct {
	FirstName   string
	LastName    string
	PhoneNumber string
}

// UserDependencies encapsulates collaborators of the user service.
type UserDependencies struct {
	Store     repository.UserStore
	Passwords *auth.PasswordPolicy
	Publisher events.Publisher
	Logger    *zap.Logger
	ServiceID string
}

// UserService enforces the user lifecycle: registration, authentication,
// profile and password changes, status transitions and deletion. Every
// mutation is a single store write followed by best-effort event emission.
type UserService struct {
	store     repository.UserStore
	passwords *auth.PasswordPolicy
	publisher events.Publisher
	logger    *zap.Logger
	serviceID string

	decoyOnce sync.Once
	decoyHash string
}

// NewUserService builds the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		store:     deps.Store,
		passwords: deps.Passwords,
		publisher: deps.Publisher,
		logger:    logger,
		serviceID: deps.ServiceID,
	}
}

// CreateUser registers a new ACTIVE user.
func (s *UserService) CreateUser(ctx context.Context, in NewUser) (*domain.User, error) {
	email := domain.NormalizeEmail(in.Email)
	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)
	if email == "" || firstName == "" || lastName == "" {
		return nil, apperrors.NewInvalidArgument("first name, last name and email are required", nil)
	}
	s.logger.Info("creating user", zap.String("email", email))

	exists, err := s.store.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, apperrors.NewEmailAlreadyExists(email)
	}
	if !s.passwords.IsStrong(in.Password) {
		return nil, apperrors.NewInvalidPassword(s.passwords.Requirements())
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
		PasswordHash: hash,
		Status:       domain.UserStatusActive,
	}
	// a concurrent registration of the same email surfaces here as CONSTRAINT_VIOLATION
	if err := s.store.Save(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user created", zap.String("user_id", user.ID))

	s.emit(ctx, events.UserCreated{
		UserID:      user.ID,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		PhoneNumber: user.PhoneNumber,
		Status:      user.Status,
	})
	s.notify(ctx, user.ID, events.EventUserCreated,
		"Welcome to the booking platform",
		fmt.Sprintf("Hi %s, your account has been created.", user.FullName()))
	return user, nil
}

// Authenticate returns the user and true when the email exists and the
// password verifies. Unknown email and wrong password are indistinguishable
// to the caller; only storage failures produce an error.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*domain.User, bool, error) {
	user, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, apperrors.ErrNotFound) {
		// spend the same hashing time as a real comparison
		s.passwords.Verify(password, s.decoy())
		s.logger.Warn("authentication failed", zap.String("reason", "unknown email"))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find user by email: %w", err)
	}

	if !s.passwords.Verify(password, user.PasswordHash) {
		s.logger.Warn("authentication failed", zap.String("user_id", user.ID), zap.String("reason", "password mismatch"))
		return nil, false, nil
	}

	s.logger.Info("user authenticated", zap.String("user_id", user.ID))
	return user, true, nil
}

// UpdateProfile replaces name and phone number.
func (s *UserService) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*domain.User, error) {
	s.logger.Info("updating user profile", zap.String("user_id", id))

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := map[string]any{}
	previous := map[string]any{}
	apply := func(field string, dst *string, value string) {
		value = strings.TrimSpace(value)
		if *dst == value {
			return
		}
		previous[field] = *dst
		updated[field] = value
		*dst = value
	}
	if first := strings.TrimSpace(update.FirstName); first != "" {
		apply("firstName", &user.FirstName, first)
	}
	if last := strings.TrimSpace(update.LastName); last != "" {
		apply("lastName", &user.LastName, last)
	}
	apply("phoneNumber", &user.PhoneNumber, update.PhoneNumber)

	if len(updated) == 0 {
		return user, nil
	}
	user, err = written(id)(s.store.UpdateProfile(ctx, id, user.Profile()))
	if err != nil {
		return nil, err
	}
	s.logger.Info("user profile updated", zap.String("user_id", id), zap.Int("fields", len(updated)))

	s.emit(ctx, events.UserUpdated{UserID: user.ID, UpdatedFields: updated, PreviousValues: previous})
	return user, nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *UserService) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	s.logger.Info("changing password", zap.String("user_id", id))

	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !s.passwords.Verify(currentPassword, user.PasswordHash) {
		return apperrors.NewInvalidPassword("current password is incorrect")
	}
	if !s.passwords.IsStrong(newPassword) {
		return apperrors.NewInvalidPassword("new " + s.passwords.Requirements())
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if _, err := written(id)(s.store.UpdatePassword(ctx, id, hash)); err != nil {
		return err
	}
	s.logger.Info("password changed", zap.String("user_id", id))

	s.emit(ctx, events.UserPasswordChanged{
		UserID:    user.ID,
		Email:     user.Email,
		ChangedBy: domain.RoleUser,
		ActorID:   user.ID,
	})
	s.notify(ctx, user.ID, events.EventUserPasswordChanged,
		"Your password was changed",
		"The password for your account was just changed. If this was not you, contact support.")
	return nil
}

// DeleteUser removes the user record permanently.
func (s *UserService) DeleteUser(ctx context.Context, id, adminID, reason string) error {
	s.logger.Info("deleting user", zap.String("user_id", id), zap.String("admin_id", adminID), zap.String("reason", reason))

	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewUserNotFound(id)
		}
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	s.logger.Info("user deleted", zap.String("user_id", id))

	s.emit(ctx, events.UserDeleted{
		UserID:    id,
		Email:     user.Email,
		DeletedBy: adminID,
		Reason:    reason,
	})
	return nil
}

// SoftDelete marks the user INACTIVE without removing the record.
func (s *UserService) SoftDelete(ctx context.Context, id, adminID, reason string) (*domain.User, error) {
	return s.changeStatus(ctx, id, adminID, domain.UserStatusInactive, reason)
}

// Reactivate returns an INACTIVE or SUSPENDED user to ACTIVE.
func (s *UserService) Reactivate(ctx context.Context, id, adminID string) (*domain.User, error) {
	return s.changeStatus(ctx, id, adminID, domain.UserStatusActive, "")
}

// Suspend moves an ACTIVE user to SUSPENDED.
func (s *UserService) Suspend(ctx context.Context, id, adminID, reason string) (*domain.User, error) {
	return s.changeStatus(ctx, id, adminID, domain.UserStatusSuspended, reason)
}

// ResetPassword replaces the password with a generated temporary one and
// returns it. The plaintext is not stored or published; the caller delivers it.
func (s *UserService) ResetPassword(ctx context.Context, id, adminID string) (string, error) {
	s.logger.Info("resetting password", zap.String("user_id", id), zap.String("admin_id", adminID))

	user, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	temporary, err := s.passwords.GenerateTemporary()
	if err != nil {
		return "", fmt.Errorf("generate temporary password: %w", err)
	}
	hash, err := s.passwords.Hash(temporary)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	if _, err := written(id)(s.store.UpdatePassword(ctx, id, hash)); err != nil {
		return "", err
	}
	s.logger.Info("password reset", zap.String("user_id", id))

	s.emit(ctx, events.UserPasswordChanged{
		UserID:    user.ID,
		Email:     user.Email,
		ChangedBy: domain.RoleAdmin,
		ActorID:   adminID,
	})
	s.notify(ctx, user.ID, events.EventUserPasswordChanged,
		"Your password was reset",
		"An administrator reset your password. You will receive a temporary password separately.")
	return temporary, nil
}

// GetUser returns the user with the given id.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.load(ctx, id)
}

// GetUserByEmail returns the user registered with email.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NewDomainError(apperrors.CodeUserNotFound, "user not found", http.StatusNotFound, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return user, nil
}

// EmailExists reports whether email is registered.
func (s *UserService) EmailExists(ctx context.Context, email string) (bool, error) {
	return s.store.ExistsByEmail(ctx, email)
}

// ListUsers returns a page of all users.
func (s *UserService) ListUsers(ctx context.Context, req domain.PageRequest) (domain.Page, error) {
	req, err := req.Normalize()
	if err != nil {
		return domain.Page{}, err
	}
	return s.store.FindAll(ctx, req)
}

// ListUsersByStatus returns a page of users in the given status.
func (s *UserService) ListUsersByStatus(ctx context.Context, status domain.UserStatus, req domain.PageRequest) (domain.Page, error) {
	if !status.Valid() {
		return domain.Page{}, apperrors.NewInvalidArgument("unknown status", map[string]any{"status": status})
	}
	req, err := req.Normalize()
	if err != nil {
		return domain.Page{}, err
	}
	return s.store.FindByStatus(ctx, status, req)
}

// SearchUsers matches term against first and last names.
func (s *UserService) SearchUsers(ctx context.Context, term string, req domain.PageRequest) (domain.Page, error) {
	if strings.TrimSpace(term) == "" {
		return domain.Page{}, apperrors.NewInvalidArgument("search term is required", nil)
	}
	req, err := req.Normalize()
	if err != nil {
		return domain.Page{}, err
	}
	return s.store.SearchByName(ctx, term, req)
}

// Stats counts users per status.
func (s *UserService) Stats(ctx context.Context) (domain.UserStats, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("count users: %w", err)
	}
	stats := domain.UserStats{
		Active:    counts[domain.UserStatusActive],
		Inactive:  counts[domain.UserStatusInactive],
		Suspended: counts[domain.UserStatusSuspended],
	}
	stats.Total = stats.Active + stats.Inactive + stats.Suspended
	return stats, nil
}

func (s *UserService) changeStatus(ctx context.Context, id, actorID string, to domain.UserStatus, reason string) (*domain.User, error) {
	s.logger.Info("changing user status",
		zap.String("user_id", id),
		zap.String("admin_id", actorID),
		zap.String("status", string(to)))

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	from := user.Status
	if !domain.CanTransition(from, to) {
		return nil, apperrors.NewInvalidStatusTransition(string(from), string(to))
	}
	if from == to {
		return user, nil
	}

	// the store rejects the write if another change moved the user off from
	user, err = written(id)(s.store.UpdateStatus(ctx, id, from, to))
	if err != nil {
		return nil, err
	}
	s.logger.Info("user status changed", zap.String("user_id", id), zap.String("from", string(from)), zap.String("to", string(to)))

	s.emit(ctx, events.UserStatusChanged{
		UserID:         user.ID,
		PreviousStatus: from,
		NewStatus:      to,
		ChangedBy:      actorID,
		Reason:         reason,
	})
	return user, nil
}

func (s *UserService) load(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.store.FindByID(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NewUserNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", id, err)
	}
	return user, nil
}

// written maps a store update result for user id onto service errors.
func written(id string) func(*domain.User, error) (*domain.User, error) {
	return func(user *domain.User, err error) (*domain.User, error) {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewUserNotFound(id)
		}
		if err != nil {
			return nil, fmt.Errorf("update user %s: %w", id, err)
		}
		return user, nil
	}
}

// emit publishes after the commit. Failures are logged and never returned.
func (s *UserService) emit(ctx context.Context, payload events.Payload) {
	if s.publisher == nil {
		return
	}
	event := events.New(s.serviceID, payload)
	if err := s.publisher.Publish(ctx, event.Topic(), event.Key(), event); err != nil {
		s.logger.Error("lifecycle event not published",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.String("user_id", event.Key()),
			zap.Error(err))
	}
}

func (s *UserService) notify(ctx context.Context, userID string, trigger events.EventType, subject, message string) {
	s.emit(ctx, events.NotificationRequested{
		UserID:           userID,
		NotificationType: events.NotificationEmail,
		Subject:          subject,
		Message:          message,
		TriggeredBy:      trigger,
	})
}

// decoy returns a hash used to equalize timing for unknown emails.
func (s *UserService) decoy() string {
	s.decoyOnce.Do(func() {
		hash, err := s.passwords.Hash("decoy-Password-1")
		if err != nil {
			s.logger.Warn("decoy hash unavailable", zap.Error(err))
			return
		}
		s.decoyHash = hash
	})
	return s.decoyHash
}
