package types

import "time"

type AccessToken struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"access_token_expires_at"`
}

// UserProfile is the public view of an account.
type UserProfile struct {
	ID          uint      `json:"id"`
	Email       string    `json:"email"`
	Nickname    string    `json:"nickname"`
	Birthday    string    `json:"birthday,omitempty"`
	Gender      string    `json:"gender,omitempty"`
	ReviewCount int64     `json:"review_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// PasswordCheck answers a re-authentication request.
type PasswordCheck struct {
	Authenticated bool `json:"authentication"`
}

type AuthResponse struct {
	Token AccessToken `json:"token"`
	User  UserProfile `json:"user"`
}
