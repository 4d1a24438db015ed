package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/booking-system/user-service/internal/domain"
	apperrors "github.com/booking-system/user-service/pkg/util"
)

// MemoryUserStore keeps users in process memory. It is used when no Postgres
// DSN is configured and as the store behind service tests.
type MemoryUserStore struct {
	mu      sync.RWMutex
	users   map[string]domain.User
	byEmail map[string]string
	now     func() time.Time
}

// NewMemoryUserStore creates an empty store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users:   make(map[string]domain.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

var _ UserStore = (*MemoryUserStore)(nil)

func (s *MemoryUserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byEmail[domain.NormalizeEmail(email)]
	return ok, nil
}

func (s *MemoryUserStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, apperrors.NewNotFound("user", map[string]any{"user_id": id})
	}
	return &user, nil
}

func (s *MemoryUserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, apperrors.NewNotFound("user", nil)
	}
	user := s.users[id]
	return &user, nil
}

func (s *MemoryUserStore) Save(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	if user.ID == "" {
		email := domain.NormalizeEmail(user.Email)
		if _, taken := s.byEmail[email]; taken {
			return apperrors.NewConstraintViolation("email "+email+" is already registered", nil)
		}
		user.ID = uuid.NewString()
		user.Email = email
		user.CreatedAt = now
		user.UpdatedAt = now
		s.users[user.ID] = *user
		s.byEmail[email] = user.ID
		return nil
	}

	existing, ok := s.users[user.ID]
	if !ok {
		return apperrors.NewNotFound("user", map[string]any{"user_id": user.ID})
	}
	// email and creation time are fixed once the record exists
	user.Email = existing.Email
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = now
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryUserStore) UpdateProfile(ctx context.Context, id string, profile domain.Profile) (*domain.User, error) {
	return s.modify(ctx, id, func(user *domain.User) error {
		user.FirstName = profile.FirstName
		user.LastName = profile.LastName
		user.PhoneNumber = profile.PhoneNumber
		return nil
	})
}

func (s *MemoryUserStore) UpdatePassword(ctx context.Context, id, passwordHash string) (*domain.User, error) {
	return s.modify(ctx, id, func(user *domain.User) error {
		user.PasswordHash = passwordHash
		return nil
	})
}

func (s *MemoryUserStore) UpdateStatus(ctx context.Context, id string, from, to domain.UserStatus) (*domain.User, error) {
	return s.modify(ctx, id, func(user *domain.User) error {
		if user.Status != from {
			return apperrors.NewInvalidStatusTransition(string(user.Status), string(to))
		}
		user.Status = to
		return nil
	})
}

// modify applies change to the stored record under the write lock and
// returns a copy of the result. Nothing is written when change fails.
func (s *MemoryUserStore) modify(ctx context.Context, id string, change func(*domain.User) error) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, apperrors.NewNotFound("user", map[string]any{"user_id": id})
	}
	if err := change(&user); err != nil {
		return nil, err
	}
	user.UpdatedAt = s.now().UTC()
	s.users[id] = user
	return &user, nil
}

func (s *MemoryUserStore) DeleteByID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return apperrors.NewNotFound("user", map[string]any{"user_id": id})
	}
	delete(s.users, id)
	delete(s.byEmail, user.Email)
	return nil
}

func (s *MemoryUserStore) FindAll(ctx context.Context, req domain.PageRequest) (domain.Page, error) {
	return s.list(ctx, req, func(domain.User) bool { return true })
}

func (s *MemoryUserStore) FindByStatus(ctx context.Context, status domain.UserStatus, req domain.PageRequest) (domain.Page, error) {
	if !status.Valid() {
		return domain.Page{}, apperrors.NewInvalidArgument("unknown status", map[string]any{"status": status})
	}
	return s.list(ctx, req, func(u domain.User) bool { return u.Status == status })
}

func (s *MemoryUserStore) SearchByName(ctx context.Context, term string, req domain.PageRequest) (domain.Page, error) {
	needle := strings.ToLower(strings.TrimSpace(term))
	return s.list(ctx, req, func(u domain.User) bool {
		return strings.Contains(strings.ToLower(u.FirstName), needle) ||
			strings.Contains(strings.ToLower(u.LastName), needle)
	})
}

func (s *MemoryUserStore) CountByStatus(ctx context.Context) (map[domain.UserStatus]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[domain.UserStatus]int64)
	for _, u := range s.users {
		counts[u.Status]++
	}
	return counts, nil
}

// Len returns the number of stored users.
func (s *MemoryUserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func (s *MemoryUserStore) list(ctx context.Context, req domain.PageRequest, keep func(domain.User) bool) (domain.Page, error) {
	if err := ctx.Err(); err != nil {
		return domain.Page{}, err
	}
	req, err := req.Normalize()
	if err != nil {
		return domain.Page{}, err
	}

	s.mu.RLock()
	matched := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		if keep(u) {
			matched = append(matched, u)
		}
	}
	s.mu.RUnlock()

	less := userLess(req.SortField)
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if req.SortDir == domain.SortDesc {
			a, b = b, a
		}
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		return matched[i].ID < matched[j].ID
	})

	total := int64(len(matched))
	start := req.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + req.Size
	if end > len(matched) {
		end = len(matched)
	}
	return domain.NewPage(matched[start:end], req, total), nil
}

func userLess(field string) func(a, b domain.User) bool {
	switch field {
	case "id":
		return func(a, b domain.User) bool { return a.ID < b.ID }
	case "firstName":
		return func(a, b domain.User) bool { return a.FirstName < b.FirstName }
	case "email":
		return func(a, b domain.User) bool { return a.Email < b.Email }
	case "phoneNumber":
		return func(a, b domain.User) bool { return a.PhoneNumber < b.PhoneNumber }
	case "status":
		return func(a, b domain.User) bool { return a.Status < b.Status }
	case "createdAt":
		return func(a, b domain.User) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case "updatedAt":
		return func(a, b domain.User) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	default:
		return func(a, b domain.User) bool { return a.LastName < b.LastName }
	}
}
