package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"vidtube/models"
)

// errDuplicateUser is returned by Create when username or email is taken.
var errDuplicateUser = errors.New("duplicate username or email")

// UserStore is the persistence contract the session operations and handlers
// consume. Not-found is reported as gorm.ErrRecordNotFound. All updates are
// single-row atomic; there is no cross-row coordination here (last writer
// wins on concurrent refreshes, which is what keeps exactly one refresh
// token valid).
type UserStore interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
	// FindByLogin matches the identifier against username or email.
	FindByLogin(ctx context.Context, identifier string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	// UpdateByID applies a partial column patch to one user row.
	UpdateByID(ctx context.Context, id uint, patch map[string]any) error
	Save(ctx context.Context, u *models.User) error

	ChannelProfile(ctx context.Context, username string, viewerID uint) (*ChannelProfile, error)
	WatchHistory(ctx context.Context, userID uint) ([]WatchHistoryItem, error)
	AddToWatchHistory(ctx context.Context, userID, videoID uint) error
}

// ChannelProfile is the public projection of a user's channel page.
type ChannelProfile struct {
	ID                       uint   `json:"id"`
	Username                 string `json:"username"`
	Email                    string `json:"email"`
	FullName                 string `json:"fullName"`
	Avatar                   string `json:"avatar"`
	CoverImage               string `json:"coverImage"`
	SubscribersCount         int64  `json:"subscribersCount"`
	ChannelSubscribedToCount int64  `json:"channelSubscribedToCount"`
	IsSubscribed             bool   `json:"isSubscribed"`
}

// WatchOwner is the minimal owner projection embedded in history items.
type WatchOwner struct {
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

// WatchHistoryItem is one watched video, newest first.
type WatchHistoryItem struct {
	VideoID   uint       `json:"videoId"`
	VideoFile string     `json:"videoFile"`
	Thumbnail string     `json:"thumbnail"`
	Title     string     `json:"title"`
	Duration  float64    `json:"duration"`
	Views     int64      `json:"views"`
	WatchedAt time.Time  `json:"watchedAt"`
	Owner     WatchOwner `json:"owner"`
}

// gormUserStore is the postgres-backed store.
type gormUserStore struct {
	db *gorm.DB
}

func newGormUserStore(db *gorm.DB) *gormUserStore {
	return &gormUserStore{db: db}
}

func (s *gormUserStore) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormUserStore) FindByLogin(ctx context.Context, identifier string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, identifier).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormUserStore) Create(ctx context.Context, u *models.User) error {
	// pre-check existing (optimistic); the unique indexes still back this up
	var cnt int64
	s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", u.Username, u.Email).
		Count(&cnt)
	if cnt > 0 {
		return errDuplicateUser
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueConstraintError(err) { // race condition after initial check
			return errDuplicateUser
		}
		return err
	}
	return nil
}

func (s *gormUserStore) UpdateByID(ctx context.Context, id uint, patch map[string]any) error {
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(patch).Error
}

func (s *gormUserStore) Save(ctx context.Context, u *models.User) error {
	return s.db.WithContext(ctx).Save(u).Error
}

func (s *gormUserStore) ChannelProfile(ctx context.Context, username string, viewerID uint) (*ChannelProfile, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	profile := &ChannelProfile{
		ID:         user.ID,
		Username:   user.Username,
		Email:      user.Email,
		FullName:   user.FullName,
		Avatar:     user.Avatar,
		CoverImage: user.CoverImage,
	}
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Subscription{}).Where("channel_id = ?", user.ID).
		Count(&profile.SubscribersCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Subscription{}).Where("subscriber_id = ?", user.ID).
		Count(&profile.ChannelSubscribedToCount).Error; err != nil {
		return nil, err
	}
	if viewerID != 0 {
		var cnt int64
		if err := db.Model(&models.Subscription{}).
			Where("channel_id = ? AND subscriber_id = ?", user.ID, viewerID).
			Count(&cnt).Error; err != nil {
			return nil, err
		}
		profile.IsSubscribed = cnt > 0
	}
	return profile, nil
}

func (s *gormUserStore) WatchHistory(ctx context.Context, userID uint) ([]WatchHistoryItem, error) {
	var events []models.WatchEvent
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(100).
		Preload("Video").
		Preload("Video.Owner").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	items := make([]WatchHistoryItem, 0, len(events))
	for _, ev := range events {
		items = append(items, WatchHistoryItem{
			VideoID:   ev.VideoID,
			VideoFile: ev.Video.VideoFile,
			Thumbnail: ev.Video.Thumbnail,
			Title:     ev.Video.Title,
			Duration:  ev.Video.Duration,
			Views:     ev.Video.Views,
			WatchedAt: ev.CreatedAt,
			Owner: WatchOwner{
				Username: ev.Video.Owner.Username,
				FullName: ev.Video.Owner.FullName,
				Avatar:   ev.Video.Owner.Avatar,
			},
		})
	}
	return items, nil
}

func (s *gormUserStore) AddToWatchHistory(ctx context.Context, userID, videoID uint) error {
	var video models.Video
	if err := s.db.WithContext(ctx).First(&video, videoID).Error; err != nil {
		return err
	}
	ev := models.WatchEvent{UserID: userID, VideoID: videoID}
	return s.db.WithContext(ctx).Create(&ev).Error
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") || strings.Contains(s, "already exists")
}
