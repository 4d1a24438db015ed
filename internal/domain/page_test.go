package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/booking-system/user-service/pkg/util"
)

func TestPageRequestNormalizeDefaults(t *testing.T) {
	req, err := PageRequest{}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, req.Size)
	assert.Equal(t, DefaultSortField, req.SortField)
	assert.Equal(t, SortAsc, req.SortDir)
	assert.Equal(t, "last_name", req.Column())
	assert.Equal(t, 0, req.Offset())
}

func TestPageRequestNormalizeRejects(t *testing.T) {
	bad := []PageRequest{
		{Page: -1},
		{Size: -5},
		{Size: MaxPageSize + 1},
		{SortField: "password_hash"},
		{SortDir: "sideways"},
		{Page: 1 << 62, Size: 10},
		{Page: math.MaxInt/MaxPageSize + 1, Size: MaxPageSize},
		{Page: math.MaxInt},
	}
	for _, req := range bad {
		_, err := req.Normalize()
		assert.ErrorIs(t, err, apperrors.ErrInvalidArgument, "%+v", req)
	}
}

func TestPageRequestDescending(t *testing.T) {
	req, err := PageRequest{Page: 2, Size: 5, SortField: "createdAt", SortDir: "DESC"}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, SortDesc, req.SortDir)
	assert.Equal(t, 10, req.Offset())
	assert.Equal(t, "created_at", req.Column())
}

func TestPageRequestLargestPageKeepsOffsetPositive(t *testing.T) {
	req, err := PageRequest{Page: math.MaxInt / MaxPageSize, Size: MaxPageSize}.Normalize()
	require.NoError(t, err)
	assert.Positive(t, req.Offset())
}

func TestNewPage(t *testing.T) {
	page := NewPage(nil, PageRequest{Page: 0, Size: 10}, 25)
	assert.NotNil(t, page.Items)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasNext())

	last := NewPage(nil, PageRequest{Page: 2, Size: 10}, 25)
	assert.False(t, last.HasNext())
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to UserStatus
		ok       bool
	}{
		{UserStatusActive, UserStatusInactive, true},
		{UserStatusActive, UserStatusSuspended, true},
		{UserStatusInactive, UserStatusActive, true},
		{UserStatusInactive, UserStatusSuspended, false},
		{UserStatusSuspended, UserStatusActive, true},
		{UserStatusSuspended, UserStatusInactive, false},
		{UserStatusActive, UserStatusActive, true},
		{UserStatusActive, UserStatus("DELETED"), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestNormalizeEmailAndParseStatus(t *testing.T) {
	assert.Equal(t, "jane@example.com", NormalizeEmail("  Jane@Example.COM "))

	status, ok := ParseUserStatus("suspended")
	assert.True(t, ok)
	assert.Equal(t, UserStatusSuspended, status)

	_, ok = ParseUserStatus("gone")
	assert.False(t, ok)
}
