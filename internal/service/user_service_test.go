package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"shutterhub/internal/models"
	"shutterhub/internal/repository"
	"shutterhub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_UpdateMyProfile_Validation(t *testing.T) {
	t.Parallel()

	svc := NewUserService(noopUserRepo(), nil, nil, DefaultQuotaPolicy())
	ctx := context.Background()

	tests := []struct {
		name string
		in   UpdateProfileInput
	}{
		{name: "nothing to update", in: UpdateProfileInput{UserID: 1}},
		{name: "display name too long", in: UpdateProfileInput{UserID: 1, DisplayName: strPtr(strings.Repeat("n", 81))}},
		{name: "bio too long", in: UpdateProfileInput{UserID: 1, Bio: strPtr(strings.Repeat("b", 1001))}},
		{name: "website without scheme", in: UpdateProfileInput{UserID: 1, Website: strPtr("example.com")}},
		{name: "website with ftp scheme", in: UpdateProfileInput{UserID: 1, Website: strPtr("ftp://example.com")}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.UpdateMyProfile(ctx, tt.in)
			assertValidationError(t, err)
		})
	}
}

func TestUserService_UpdateMyProfile_TrimsFields(t *testing.T) {
	t.Parallel()

	var fields map[string]interface{}
	users := noopUserRepo()
	users.updateProfileFn = func(_ context.Context, _ uint, f map[string]interface{}) error {
		fields = f
		return nil
	}
	svc := NewUserService(users, nil, nil, DefaultQuotaPolicy())

	_, err := svc.UpdateMyProfile(context.Background(), UpdateProfileInput{
		UserID:      1,
		DisplayName: strPtr("  Ana P. "),
		Website:     strPtr(" https://ana.example.com "),
		Bio:         strPtr(""),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana P.", fields["display_name"])
	assert.Equal(t, "https://ana.example.com", fields["website"])
	assert.Equal(t, "", fields["bio"])
}

func TestUserService_UploadAvatar_ReplacesPrevious(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemoryStore("avatars")
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "avatars/1/old.webp", strings.NewReader("old"), 3, "image/webp"))

	var fields map[string]interface{}
	users := noopUserRepo()
	users.getProfileFn = func(_ context.Context, id uint) (*models.Profile, error) {
		p := testProfile(id)
		p.AvatarKey = "avatars/1/old.webp"
		return p, nil
	}
	users.updateProfileFn = func(_ context.Context, _ uint, f map[string]interface{}) error {
		fields = f
		return nil
	}
	svc := NewUserService(users, store, nil, DefaultQuotaPolicy())

	profile, err := svc.UploadAvatar(ctx, 1, pngUpload(t, "me.png"))
	require.NoError(t, err)
	assert.False(t, store.Has("avatars/1/old.webp"))
	assert.True(t, store.Has(profile.AvatarKey))
	assert.Equal(t, "image/webp", store.ContentType(profile.AvatarKey))
	assert.Equal(t, profile.AvatarURL, fields["avatar_url"])
}

func TestUserService_UploadAvatar_KeepsOldOnFailure(t *testing.T) {
	t.Parallel()

	store := testutil.NewMemoryStore("avatars")
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "avatars/1/old.webp", strings.NewReader("old"), 3, "image/webp"))

	users := noopUserRepo()
	users.getProfileFn = func(_ context.Context, id uint) (*models.Profile, error) {
		p := testProfile(id)
		p.AvatarKey = "avatars/1/old.webp"
		return p, nil
	}
	users.updateProfileFn = func(_ context.Context, _ uint, _ map[string]interface{}) error {
		return errors.New("db down")
	}
	svc := NewUserService(users, store, nil, DefaultQuotaPolicy())

	_, err := svc.UploadAvatar(ctx, 1, pngUpload(t, "me.png"))
	require.Error(t, err)
	assert.True(t, store.Has("avatars/1/old.webp"))
	assert.Equal(t, 1, store.Len())
}

func TestUserService_GetPublicProfile(t *testing.T) {
	t.Parallel()

	joined := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	users := noopUserRepo()
	users.getProfileByUsernameFn = func(_ context.Context, username string) (*models.Profile, error) {
		if username != "ana" {
			return nil, models.NewNotFoundError("Profile", username)
		}
		until := joined.Add(time.Hour)
		return &models.Profile{
			UserID: 7, Username: "ana", IsVIP: true, CreatedAt: joined,
			IsSuspended: true, SuspendedUntil: &until, WarningCount: 2,
		}, nil
	}
	users.profileStatsFn = func(_ context.Context, _ uint) (*repository.ProfileStats, error) {
		return &repository.ProfileStats{PhotoCount: 12, AverageRating: 4.25, ListingCount: 1}, nil
	}
	svc := NewUserService(users, nil, nil, DefaultQuotaPolicy())
	ctx := context.Background()

	public, err := svc.GetPublicProfile(ctx, " ana ")
	require.NoError(t, err)
	assert.Equal(t, uint(7), public.UserID)
	assert.True(t, public.IsVIP)
	assert.Equal(t, int64(12), public.PhotoCount)
	assert.Equal(t, joined, public.JoinedAt)

	_, err = svc.GetPublicProfile(ctx, "bob")
	assertNotFoundError(t, err)
	_, err = svc.GetPublicProfile(ctx, "  ")
	assertValidationError(t, err)
}

func TestUserService_GetUploadQuota(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 2, 10, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		name          string
		vip           bool
		day           string
		count         int
		wantLimit     int
		wantRemaining int
	}{
		{name: "regular fresh day", day: "2024-02-09", count: 3, wantLimit: 3, wantRemaining: 3},
		{name: "regular partially used", day: "2024-02-10", count: 2, wantLimit: 3, wantRemaining: 1},
		{name: "vip exhausted", vip: true, day: "2024-02-10", count: 10, wantLimit: 10, wantRemaining: 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			users := noopUserRepo()
			users.getProfileFn = func(_ context.Context, id uint) (*models.Profile, error) {
				p := testProfile(id)
				p.IsVIP = tt.vip
				p.UploadCountDay = tt.day
				p.DailyUploadCount = tt.count
				return p, nil
			}
			svc := NewUserService(users, nil, nil, DefaultQuotaPolicy())
			svc.now = func() time.Time { return now }

			quota, err := svc.GetUploadQuota(context.Background(), 1)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, quota.Limit)
			assert.Equal(t, tt.wantRemaining, quota.Remaining)
			assert.Equal(t, time.Date(2024, 2, 11, 0, 0, 0, 0, time.UTC), quota.ResetsAt)
		})
	}
}

func TestUserService_HasRole(t *testing.T) {
	t.Parallel()

	users := noopUserRepo()
	users.hasRoleFn = func(_ context.Context, id uint, role string) (bool, error) {
		return id == 1 && role == models.RoleAdmin, nil
	}
	svc := NewUserService(users, nil, nil, DefaultQuotaPolicy())
	ctx := context.Background()

	ok, err := svc.HasRole(ctx, 1, " ADMIN ")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.IsAdmin(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = svc.HasRole(ctx, 1, "")
	assertValidationError(t, err)
}
