package models

import "time"

// WatchEvent records that a user watched a video. The watch history is the
// user's events ordered by creation time, newest first.
type WatchEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UserID    uint      `gorm:"index;not null" json:"userId"`
	VideoID   uint      `gorm:"index;not null" json:"videoId"`
	Video     Video     `gorm:"foreignKey:VideoID;references:ID" json:"-"`
}
