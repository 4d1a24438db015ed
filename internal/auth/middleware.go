package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/booking-system/user-service/internal/domain"
	"github.com/booking-system/user-service/internal/repository"
	apperrors "github.com/booking-system/user-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	User *domain.User
	Role domain.Role
}

// IsAdmin reports whether the caller holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == domain.RoleAdmin
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenManager
	users  repository.UserStore
	admins map[string]struct{}
}

// NewAuthMiddleware constructs middleware. adminIDs lists user ids granted the admin role.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserStore, adminIDs []string) *AuthMiddleware {
	admins := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		if id = strings.TrimSpace(id); id != "" {
			admins[id] = struct{}{}
		}
	}
	return &AuthMiddleware{tokens: tokens, users: users, admins: admins}
}

// RoleFor returns the role a freshly authenticated user is issued.
func (m *AuthMiddleware) RoleFor(userID string) domain.Role {
	if _, ok := m.admins[userID]; ok {
		return domain.RoleAdmin
	}
	return domain.RoleUser
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	user, err := m.users.FindByID(c.UserContext(), claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewUnauthorized("user not found")
		}
		return apperrors.MapError(err)
	}
	if user.Status != domain.UserStatusActive {
		return apperrors.NewUnauthorized("account is not active")
	}

	// the allow-list is authoritative; a stale admin claim is downgraded
	c.Locals(principalKey, &Principal{User: user, Role: m.RoleFor(user.ID)})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
