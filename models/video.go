package models

import "time"

// Video represents an uploaded video belonging to a channel (its owner).
type Video struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	VideoFile   string    `gorm:"size:512;not null" json:"videoFile"`
	Thumbnail   string    `gorm:"size:512;not null" json:"thumbnail"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"size:2048;not null" json:"description"`
	Duration    float64   `gorm:"not null" json:"duration"`
	Views       int64     `gorm:"default:0" json:"views"`
	IsPublished bool      `gorm:"default:true" json:"isPublished"`
	OwnerID     uint      `gorm:"index;not null" json:"ownerId"`
	Owner       User      `gorm:"foreignKey:OwnerID;references:ID" json:"-"`
}
