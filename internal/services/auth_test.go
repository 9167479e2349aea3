package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/princeprakhar/travel-review-backend/internal/database/testutil"
	"github.com/princeprakhar/travel-review-backend/internal/models"
	"github.com/princeprakhar/travel-review-backend/internal/utils"
)

func TestAuthService_SignupAndLogin(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewAuthService(db, "test-secret")
	ctx := context.Background()

	resp, err := svc.Signup(ctx, SignupRequest{Email: "Traveler@Example.com", Password: "password123", Nickname: "traveler"})
	require.NoError(t, err)
	assert.Equal(t, "traveler@example.com", resp.User.Email)

	var stored models.User
	require.NoError(t, db.First(&stored, resp.User.ID).Error)
	assert.NotEqual(t, "password123", stored.PasswordHash)
	assert.True(t, stored.CheckPassword("password123"))

	claims, err := utils.ValidateToken(resp.Token.AccessToken, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)

	_, err = svc.Signup(ctx, SignupRequest{Email: "traveler@example.com", Password: "password123", Nickname: "again"})
	assert.ErrorIs(t, err, ErrValidation)

	login, err := svc.Login(ctx, LoginRequest{Email: "traveler@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)

	_, err = svc.Login(ctx, LoginRequest{Email: "traveler@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	user, err := svc.GetUserByID(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "traveler", user.Nickname)

	_, err = svc.GetUserByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuthService_GetProfileCountsPublishedReviews(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewAuthService(db, "test-secret")
	ctx := context.Background()

	resp, err := svc.Signup(ctx, SignupRequest{Email: "writer@example.com", Password: "password123", Nickname: "writer"})
	require.NoError(t, err)
	assert.Zero(t, resp.User.ReviewCount)

	route := models.TravelRoute{UserID: resp.User.ID, Name: "Gyeongju"}
	require.NoError(t, db.Create(&route).Error)
	for i, active := range []bool{true, true, false} {
		review := models.Review{UserID: resp.User.ID, TravelRouteID: route.ID, Title: "day", Content: "walk", Rating: float64(i), IsActive: true}
		require.NoError(t, db.Create(&review).Error)
		if !active {
			require.NoError(t, db.Model(&review).Update("is_active", false).Error)
		}
	}

	profile, err := svc.GetProfile(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "writer", profile.Nickname)
	assert.Equal(t, int64(2), profile.ReviewCount)

	login, err := svc.Login(ctx, LoginRequest{Email: "writer@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), login.User.ReviewCount)

	_, err = svc.GetProfile(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuthService_SignupValidation(t *testing.T) {
	svc := NewAuthService(testutil.NewTestDB(t), "test-secret")

	tests := []struct {
		name string
		req  SignupRequest
	}{
		{"bad email", SignupRequest{Email: "not-an-email", Password: "password123", Nickname: "nick"}},
		{"short password", SignupRequest{Email: "a@example.com", Password: "short", Nickname: "nick"}},
		{"short nickname", SignupRequest{Email: "a@example.com", Password: "password123", Nickname: "n"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func strPtr(s string) *string { return &s }

func TestAuthService_UpdateProfile(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewAuthService(db, "test-secret")
	ctx := context.Background()

	resp, err := svc.Signup(ctx, SignupRequest{Email: "a@example.com", Password: "password123", Nickname: "alice"})
	require.NoError(t, err)
	id := resp.User.ID

	profile, err := svc.UpdateProfile(ctx, id, UpdateProfileRequest{
		NewPassword: strPtr("new-password"),
		Nickname:    strPtr("  wanderer "),
		Birthday:    strPtr("1990-04-12"),
		Gender:      strPtr("female"),
	})
	require.NoError(t, err)
	assert.Equal(t, "wanderer", profile.Nickname)
	assert.Equal(t, "1990-04-12", profile.Birthday)
	assert.Equal(t, "female", profile.Gender)

	_, err = svc.Login(ctx, LoginRequest{Email: "a@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, LoginRequest{Email: "a@example.com", Password: "new-password"})
	require.NoError(t, err)

	profile, err = svc.UpdateProfile(ctx, id, UpdateProfileRequest{Gender: strPtr("none")})
	require.NoError(t, err)
	assert.Empty(t, profile.Gender)
	assert.Equal(t, "wanderer", profile.Nickname)

	tests := []struct {
		name string
		req  UpdateProfileRequest
	}{
		{"empty", UpdateProfileRequest{}},
		{"short password", UpdateProfileRequest{NewPassword: strPtr("short")}},
		{"short nickname", UpdateProfileRequest{Nickname: strPtr("x")}},
		{"bad birthday", UpdateProfileRequest{Birthday: strPtr("12/04/1990")}},
		{"future birthday", UpdateProfileRequest{Birthday: strPtr(time.Now().AddDate(1, 0, 0).Format("2006-01-02"))}},
		{"unknown gender", UpdateProfileRequest{Gender: strPtr("robot")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateProfile(ctx, id, tt.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	_, err = svc.UpdateProfile(ctx, 999, UpdateProfileRequest{Nickname: strPtr("ghost")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuthService_CheckPassword(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewAuthService(db, "test-secret")
	ctx := context.Background()

	resp, err := svc.Signup(ctx, SignupRequest{Email: "a@example.com", Password: "password123", Nickname: "alice"})
	require.NoError(t, err)

	ok, err := svc.CheckPassword(ctx, resp.User.ID, "password123")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CheckPassword(ctx, resp.User.ID, "password124")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.CheckPassword(ctx, 999, "password123")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuthService_ScheduleDeletion(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewAuthService(db, "test-secret")
	ctx := context.Background()

	resp, err := svc.Signup(ctx, SignupRequest{Email: "a@example.com", Password: "password123", Nickname: "alice"})
	require.NoError(t, err)
	id := resp.User.ID

	deleteAt, err := svc.ScheduleDeletion(ctx, id)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(AccountDeletionGrace), deleteAt, time.Minute)

	var stored models.User
	require.NoError(t, db.First(&stored, id).Error)
	assert.True(t, stored.IsDeleted)
	require.NotNil(t, stored.DeletedAt)
	assert.WithinDuration(t, deleteAt, *stored.DeletedAt, time.Second)

	_, err = svc.Login(ctx, LoginRequest{Email: "a@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.GetProfile(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.ScheduleDeletion(ctx, id)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.ScheduleDeletion(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}
