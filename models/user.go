package models

import (
	"time"
)

// User is the identity record. PasswordHash and RefreshToken are excluded
// from JSON so handlers can return the record directly without leaking
// credentials; RefreshToken holds the single currently-valid refresh token
// (empty means no active session).
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Username     string    `gorm:"size:255;not null;uniqueIndex" json:"username"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	FullName     string    `gorm:"size:255;not null;index" json:"fullName"`
	Avatar       string    `gorm:"size:512;not null" json:"avatar"`
	CoverImage   string    `gorm:"size:512" json:"coverImage"`
	PasswordHash []byte    `gorm:"not null" json:"-"`
	RefreshToken string    `gorm:"size:1024" json:"-"`

	WatchHistory []WatchEvent `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}
