package models

import "time"

type ImageSourceType string

const (
	ImageSourceUpload ImageSourceType = "UPLOAD"
	ImageSourceLink   ImageSourceType = "LINK"
)

// ReviewImage starts out temporary (ReviewID nil, IsTemporary true) and becomes
// permanent when a review submission references its URL.
type ReviewImage struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	ReviewID    *uint           `json:"review_id" gorm:"index"`
	UserID      uint            `json:"user_id" gorm:"not null;index"`
	Filepath    string          `json:"filepath" gorm:"not null;uniqueIndex"`
	SourceType  ImageSourceType `json:"source_type" gorm:"type:varchar(16);not null"`
	IsTemporary bool            `json:"is_temporary" gorm:"not null;default:true;index"`
	CreatedAt   time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
