package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// User authors travel routes, reviews, comments and likes. An account whose
// deletion is scheduled keeps its row with IsDeleted set; DeletedAt is when
// the grace period ends, not when the request was made.
type User struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Email        string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string     `json:"-" gorm:"column:password_hash;not null"`
	Nickname     string     `json:"nickname" gorm:"size:30;not null"`
	Birthday     *time.Time `json:"birthday,omitempty"`
	Gender       string     `json:"gender,omitempty" gorm:"size:10"`
	IsActive     bool       `json:"is_active" gorm:"default:true"`
	IsDeleted    bool       `json:"-" gorm:"default:false;index"`
	DeletedAt    *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (u *User) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}
