package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booking-system/user-service/internal/domain"
	apperrors "github.com/booking-system/user-service/pkg/util"
)

func seedUser(t *testing.T, store *MemoryUserStore, first, last, email string, status domain.UserStatus) *domain.User {
	t.Helper()
	user := &domain.User{FirstName: first, LastName: last, Email: email, PasswordHash: "hash", Status: status}
	require.NoError(t, store.Save(context.Background(), user))
	return user
}

func TestMemoryStoreInsertAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()

	user := seedUser(t, store, "Jane", "Doe", "Jane@Example.com", domain.UserStatusActive)
	require.NotEmpty(t, user.ID)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.False(t, user.CreatedAt.IsZero())

	byID, err := store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)

	byEmail, err := store.FindByEmail(ctx, "JANE@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	exists, err := store.ExistsByEmail(ctx, "jane@EXAMPLE.com")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()
	user := seedUser(t, store, "Jane", "Doe", "jane@example.com", domain.UserStatusActive)

	found, err := store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	found.FirstName = "Mutated"

	again, err := store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", again.FirstName)
}

func TestMemoryStoreDuplicateEmail(t *testing.T) {
	store := NewMemoryUserStore()
	seedUser(t, store, "Jane", "Doe", "jane@example.com", domain.UserStatusActive)

	err := store.Save(context.Background(), &domain.User{FirstName: "J", LastName: "D", Email: "JANE@example.com", Status: domain.UserStatusActive})
	assert.ErrorIs(t, err, apperrors.ErrConstraintViolation)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStoreUpdateKeepsEmail(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()
	user := seedUser(t, store, "Jane", "Doe", "jane@example.com", domain.UserStatusActive)

	user.Email = "other@example.com"
	user.FirstName = "Janet"
	require.NoError(t, store.Save(ctx, user))

	found, err := store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Janet", found.FirstName)
	assert.Equal(t, "jane@example.com", found.Email)

	missing := &domain.User{ID: "nope", FirstName: "X"}
	assert.ErrorIs(t, store.Save(ctx, missing), apperrors.ErrNotFound)
}

func TestMemoryStoreTargetedUpdatesTouchOnlyTheirFields(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()
	user := seedUser(t, store, "Jane", "Doe", "jane@example.com", domain.UserStatusActive)

	_, err := store.UpdatePassword(ctx, user.ID, "new-hash")
	require.NoError(t, err)
	_, err = store.UpdateStatus(ctx, user.ID, domain.UserStatusActive, domain.UserStatusSuspended)
	require.NoError(t, err)

	updated, err := store.UpdateProfile(ctx, user.ID, domain.Profile{FirstName: "Janet", LastName: "Doe", PhoneNumber: "555"})
	require.NoError(t, err)
	assert.Equal(t, "Janet", updated.FirstName)
	assert.Equal(t, "555", updated.PhoneNumber)
	assert.Equal(t, "new-hash", updated.PasswordHash)
	assert.Equal(t, domain.UserStatusSuspended, updated.Status)
	assert.Equal(t, "jane@example.com", updated.Email)

	_, err = store.UpdateProfile(ctx, "nope", domain.Profile{FirstName: "X"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = store.UpdatePassword(ctx, "nope", "hash")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMemoryStoreUpdateStatusRequiresExpectedStatus(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()
	user := seedUser(t, store, "Jane", "Doe", "jane@example.com", domain.UserStatusSuspended)

	_, err := store.UpdateStatus(ctx, user.ID, domain.UserStatusActive, domain.UserStatusInactive)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatusTransition)

	found, err := store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UserStatusSuspended, found.Status)

	_, err = store.UpdateStatus(ctx, "nope", domain.UserStatusActive, domain.UserStatusInactive)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()
	user := seedUser(t, store, "Jane", "Doe", "jane@example.com", domain.UserStatusActive)

	require.NoError(t, store.DeleteByID(ctx, user.ID))
	_, err := store.FindByID(ctx, user.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, store.DeleteByID(ctx, user.ID), apperrors.ErrNotFound)

	exists, err := store.ExistsByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.False(t, exists, "email is free again after delete")
}

func TestMemoryStorePaging(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()
	for i := 0; i < 7; i++ {
		status := domain.UserStatusActive
		if i%3 == 0 {
			status = domain.UserStatusSuspended
		}
		seedUser(t, store, fmt.Sprintf("First%d", i), fmt.Sprintf("Last%d", i), fmt.Sprintf("u%d@example.com", i), status)
	}

	page, err := store.FindAll(ctx, domain.PageRequest{Page: 1, Size: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(7), page.TotalElements)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "Last3", page.Items[0].LastName)

	desc, err := store.FindAll(ctx, domain.PageRequest{Size: 2, SortField: "lastName", SortDir: domain.SortDesc})
	require.NoError(t, err)
	assert.Equal(t, "Last6", desc.Items[0].LastName)

	suspended, err := store.FindByStatus(ctx, domain.UserStatusSuspended, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), suspended.TotalElements)

	_, err = store.FindAll(ctx, domain.PageRequest{SortField: "passwordHash"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	_, err = store.FindAll(ctx, domain.PageRequest{Page: 1 << 62, Size: 10})
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestMemoryStoreSearchAndCount(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()
	seedUser(t, store, "Jane", "Doe", "jane@example.com", domain.UserStatusActive)
	seedUser(t, store, "John", "Smith", "john@example.com", domain.UserStatusInactive)
	seedUser(t, store, "Ann", "Johnson", "ann@example.com", domain.UserStatusActive)

	page, err := store.SearchByName(ctx, "JOHN", domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalElements)

	counts, err := store.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[domain.UserStatusActive])
	assert.Equal(t, int64(1), counts[domain.UserStatusInactive])
	assert.Zero(t, counts[domain.UserStatusSuspended])
}

func TestMemoryStoreHonoursCancelledContext(t *testing.T) {
	store := NewMemoryUserStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.FindByID(ctx, "any")
	assert.ErrorIs(t, err, context.Canceled)
}
