package services

import (
	"context"
	"errors"
	"time"

	"github.com/princeprakhar/travel-review-backend/internal/models"
	"github.com/princeprakhar/travel-review-backend/internal/types"
	"github.com/princeprakhar/travel-review-backend/internal/utils"
	"github.com/princeprakhar/travel-review-backend/pkg/logger"
	"gorm.io/gorm"
)

// AccountDeletionGrace is how long a scheduled account deletion waits.
const AccountDeletionGrace = 3 * 24 * time.Hour

// birthdayLayout is the wire format of birthdays.
const birthdayLayout = "2006-01-02"

type AuthService struct {
	db        *gorm.DB
	jwtSecret string
}

func NewAuthService(db *gorm.DB, jwtSecret string) *AuthService {
	return &AuthService{
		db:        db,
		jwtSecret: jwtSecret,
	}
}

type SignupRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Nickname string `json:"nickname" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest changes only the fields that are set. Gender "none"
// clears the stored value.
type UpdateProfileRequest struct {
	NewPassword *string `json:"new_password"`
	Nickname    *string `json:"nickname"`
	Birthday    *string `json:"birthday"`
	Gender      *string `json:"gender"`
}

type PasswordCheckRequest struct {
	Password string `json:"password" binding:"required"`
}

func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*types.AuthResponse, error) {
	email := utils.NormalizeEmail(req.Email)
	nickname := utils.SanitizeString(req.Nickname)

	if !utils.IsValidEmail(email) {
		return nil, ValidationError("invalid email format")
	}
	if !utils.IsValidPassword(req.Password) {
		return nil, ValidationError("password must be at least %d characters", utils.MinPasswordLength)
	}
	if !utils.IsValidNickname(nickname) {
		return nil, ValidationError("nickname must be between 2 and 30 characters")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, InternalError("failed to check user", err)
	}
	if count > 0 {
		return nil, ValidationError("user already exists")
	}

	user := models.User{Email: email, Nickname: nickname, IsActive: true}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, InternalError("failed to hash password", err)
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, InternalError("failed to create user", err)
	}

	logger.WithFields(logger.Fields{"user_id": user.ID}).Info("user signed up")
	return s.issue(user, 0)
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*types.AuthResponse, error) {
	email := utils.NormalizeEmail(req.Email)

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ? AND is_active = ? AND is_deleted = ?", email, true, false).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, InternalError("failed to find user", err)
	}

	if !user.CheckPassword(req.Password) {
		return nil, ErrInvalidCredentials
	}

	reviews, err := s.countReviews(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.issue(user, reviews)
}

// GetUserByID finds an active account. Accounts scheduled for deletion are
// reported as not found.
func (s *AuthService) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ? AND is_active = ? AND is_deleted = ?", userID, true, false).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("user")
		}
		return nil, InternalError("failed to find user", err)
	}
	return &user, nil
}

// GetProfile returns the caller's account with the number of reviews they
// still have published.
func (s *AuthService) GetProfile(ctx context.Context, userID uint) (*types.UserProfile, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	reviews, err := s.countReviews(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	profile := toProfile(*user, reviews)
	return &profile, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uint, req UpdateProfileRequest) (*types.UserProfile, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.NewPassword != nil {
		if !utils.IsValidPassword(*req.NewPassword) {
			return nil, ValidationError("password must be at least %d characters", utils.MinPasswordLength)
		}
		if err := user.SetPassword(*req.NewPassword); err != nil {
			return nil, InternalError("failed to hash password", err)
		}
		updates["password_hash"] = user.PasswordHash
	}
	if req.Nickname != nil {
		nickname := utils.SanitizeString(*req.Nickname)
		if !utils.IsValidNickname(nickname) {
			return nil, ValidationError("nickname must be between 2 and 30 characters")
		}
		updates["nickname"] = nickname
	}
	if req.Birthday != nil {
		birthday, err := time.Parse(birthdayLayout, utils.SanitizeString(*req.Birthday))
		if err != nil {
			return nil, ValidationError("birthday must be formatted as YYYY-MM-DD")
		}
		if birthday.After(time.Now().UTC()) {
			return nil, ValidationError("birthday must not be in the future")
		}
		updates["birthday"] = birthday
	}
	if req.Gender != nil {
		switch gender := utils.SanitizeString(*req.Gender); gender {
		case models.GenderMale, models.GenderFemale:
			updates["gender"] = gender
		case "none":
			updates["gender"] = ""
		default:
			return nil, ValidationError("gender must be one of male, female, none")
		}
	}
	if len(updates) == 0 {
		return nil, ValidationError("no fields to update")
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, InternalError("failed to update user", err)
	}

	logger.WithFields(logger.Fields{"user_id": user.ID, "fields": len(updates)}).Info("profile updated")
	return s.GetProfile(ctx, user.ID)
}

// CheckPassword re-authenticates a signed-in user, for example before a
// sensitive change. A wrong password is a result, not an error.
func (s *AuthService) CheckPassword(ctx context.Context, userID uint, password string) (bool, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.CheckPassword(password), nil
}

// ScheduleDeletion marks the account deleted and sets the end of the grace
// period. From then on the account can no longer log in.
func (s *AuthService) ScheduleDeletion(ctx context.Context, userID uint) (time.Time, error) {
	deleteAt := time.Now().UTC().Add(AccountDeletionGrace)

	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND is_active = ? AND is_deleted = ?", userID, true, false).
		Updates(map[string]interface{}{
			"is_deleted": true,
			"deleted_at": deleteAt,
		})
	if res.Error != nil {
		return time.Time{}, InternalError("failed to schedule account deletion", res.Error)
	}
	if res.RowsAffected == 0 {
		var user models.User
		if err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", userID, true).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return time.Time{}, NotFoundError("user")
			}
			return time.Time{}, InternalError("failed to find user", err)
		}
		return time.Time{}, ValidationError("account is already scheduled for deletion")
	}

	logger.WithFields(logger.Fields{"user_id": userID, "delete_at": deleteAt}).Info("account deletion scheduled")
	return deleteAt, nil
}

func (s *AuthService) countReviews(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Review{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&count).Error; err != nil {
		return 0, InternalError("failed to count reviews", err)
	}
	return count, nil
}

func toProfile(user models.User, reviews int64) types.UserProfile {
	profile := types.UserProfile{
		ID:          user.ID,
		Email:       user.Email,
		Nickname:    user.Nickname,
		Gender:      user.Gender,
		ReviewCount: reviews,
		CreatedAt:   user.CreatedAt,
	}
	if user.Birthday != nil {
		profile.Birthday = user.Birthday.UTC().Format(birthdayLayout)
	}
	return profile
}

func (s *AuthService) issue(user models.User, reviews int64) (*types.AuthResponse, error) {
	token, expiresAt, err := utils.GenerateAccessToken(user.ID, user.Email, s.jwtSecret)
	if err != nil {
		return nil, InternalError("failed to generate token", err)
	}

	return &types.AuthResponse{
		Token: types.AccessToken{
			AccessToken: token,
			ExpiresAt:   expiresAt.Unix(),
		},
		User: toProfile(user, reviews),
	}, nil
}
