package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/booking-system/user-service/internal/api/dto"
	"github.com/booking-system/user-service/internal/auth"
	"github.com/booking-system/user-service/internal/domain"
	"github.com/booking-system/user-service/internal/service"
	apperrors "github.com/booking-system/user-service/pkg/util"
)

// RoleResolver decides which role a user's token carries.
type RoleResolver interface {
	RoleFor(userID string) domain.Role
}

// UsersHandler exposes the user lifecycle over HTTP.
type UsersHandler struct {
	users  *service.UserService
	tokens *auth.TokenManager
	roles  RoleResolver
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService, tokens *auth.TokenManager, roles RoleResolver) *UsersHandler {
	return &UsersHandler{users: users, tokens: tokens, roles: roles}
}

// Register handles POST /api/v1/users/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.users.CreateUser(c.UserContext(), service.NewUser{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return err
	}

	token, err := h.tokens.GenerateToken(user.ID, h.roles.RoleFor(user.ID))
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"user": dto.NewUserResponse(user),
			"auth": dto.AuthResponse{Token: token.Value, ExpiresAt: token.ExpiresAt},
		},
	})
}

// Login handles POST /api/v1/users/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, ok, err := h.users.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewUnauthorized("invalid email or password")
	}
	if user.Status != domain.UserStatusActive {
		return apperrors.NewForbidden("account is not active")
	}

	token, err := h.tokens.GenerateToken(user.ID, h.roles.RoleFor(user.ID))
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": dto.NewUserResponse(user),
			"auth": dto.AuthResponse{Token: token.Value, ExpiresAt: token.ExpiresAt},
		},
	})
}

// Me handles GET /api/v1/users/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(principal.User)})
}

// Get handles GET /api/v1/users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.users.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// List handles GET /api/v1/users with an optional status filter.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	req := pageRequest(c)

	var (
		page domain.Page
		err  error
	)
	if raw := c.Query("status"); raw != "" {
		status, valid := domain.ParseUserStatus(raw)
		if !valid {
			return apperrors.NewInvalidArgument("unknown status", map[string]any{"status": raw})
		}
		page, err = h.users.ListUsersByStatus(c.UserContext(), status, req)
	} else {
		page, err = h.users.ListUsers(c.UserContext(), req)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPageResponse(page)})
}

// Search handles GET /api/v1/users/search?q=.
func (h *UsersHandler) Search(c *fiber.Ctx) error {
	page, err := h.users.SearchUsers(c.UserContext(), c.Query("q"), pageRequest(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPageResponse(page)})
}

// Stats handles GET /api/v1/users/stats.
func (h *UsersHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.users.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStatsResponse(stats)})
}

// EmailExists handles GET /api/v1/users/email-exists?email=.
func (h *UsersHandler) EmailExists(c *fiber.Ctx) error {
	email := c.Query("email")
	if email == "" {
		return apperrors.NewInvalidArgument("email is required", nil)
	}
	exists, err := h.users.EmailExists(c.UserContext(), email)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"exists": exists}})
}

// Update handles PUT /api/v1/users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.users.UpdateProfile(c.UserContext(), c.Params("id"), service.ProfileUpdate{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// ChangePassword handles POST /api/v1/users/:id/password.
func (h *UsersHandler) ChangePassword(c *fiber.Ctx) error {
	var req dto.ChangePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.users.ChangePassword(c.UserContext(), c.Params("id"), req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Delete handles DELETE /api/v1/users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	req, err := statusChange(c)
	if err != nil {
		return err
	}
	if err := h.users.DeleteUser(c.UserContext(), c.Params("id"), actorID(c), req.Reason); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Deactivate handles POST /api/v1/users/:id/deactivate.
func (h *UsersHandler) Deactivate(c *fiber.Ctx) error {
	req, err := statusChange(c)
	if err != nil {
		return err
	}
	user, err := h.users.SoftDelete(c.UserContext(), c.Params("id"), actorID(c), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Reactivate handles POST /api/v1/users/:id/reactivate.
func (h *UsersHandler) Reactivate(c *fiber.Ctx) error {
	user, err := h.users.Reactivate(c.UserContext(), c.Params("id"), actorID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Suspend handles POST /api/v1/users/:id/suspend.
func (h *UsersHandler) Suspend(c *fiber.Ctx) error {
	req, err := statusChange(c)
	if err != nil {
		return err
	}
	user, err := h.users.Suspend(c.UserContext(), c.Params("id"), actorID(c), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// ResetPassword handles POST /api/v1/users/:id/password/reset.
func (h *UsersHandler) ResetPassword(c *fiber.Ctx) error {
	temporary, err := h.users.ResetPassword(c.UserContext(), c.Params("id"), actorID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.PasswordResetResponse{TemporaryPassword: temporary}})
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return dto.Validate(out)
}

// statusChange reads the optional reason body of admin actions.
func statusChange(c *fiber.Ctx) (dto.StatusChangeRequest, error) {
	var req dto.StatusChangeRequest
	if len(c.Body()) == 0 {
		return req, nil
	}
	return req, parseBody(c, &req)
}

func pageRequest(c *fiber.Ctx) domain.PageRequest {
	return domain.PageRequest{
		Page:      c.QueryInt("page", 0),
		Size:      c.QueryInt("size", 0),
		SortField: c.Query("sort"),
		SortDir:   domain.SortDirection(c.Query("direction")),
	}
}

func actorID(c *fiber.Ctx) string {
	if principal, ok := auth.PrincipalFromContext(c); ok && principal.User != nil {
		return principal.User.ID
	}
	return ""
}
