package models

import (
	"time"
)

type Review struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	UserID        uint      `json:"user_id" gorm:"not null;index"`
	TravelRouteID uint      `json:"travelroute_id" gorm:"column:travel_route_id;not null;index"`
	Title         string    `json:"title" gorm:"not null"`
	Rating        float64   `json:"rating" gorm:"not null;check:rating >= 0 AND rating <= 5"`
	Content       string    `json:"content" gorm:"type:text;not null"`
	LikeCount     int       `json:"like_count" gorm:"not null;default:0"`
	IsActive      bool      `json:"is_active" gorm:"default:true"`
	CreatedAt     time.Time `json:"created_at" gorm:"index"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Relations
	User        User          `json:"-" gorm:"foreignKey:UserID"`
	TravelRoute TravelRoute   `json:"-" gorm:"foreignKey:TravelRouteID"`
	Images      []ReviewImage `json:"images,omitempty" gorm:"foreignKey:ReviewID"`
}

// Like is keyed by (user, review); the composite primary key enforces one like
// per pair.
type Like struct {
	UserID    uint      `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	ReviewID  uint      `json:"review_id" gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	User   User   `json:"-" gorm:"foreignKey:UserID"`
	Review Review `json:"-" gorm:"foreignKey:ReviewID;constraint:OnDelete:CASCADE"`
}

func (Like) TableName() string {
	return "review_likes"
}

type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	ReviewID  uint      `json:"review_id" gorm:"not null;index"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	User   User   `json:"-" gorm:"foreignKey:UserID"`
	Review Review `json:"-" gorm:"foreignKey:ReviewID;constraint:OnDelete:CASCADE"`
}
