package main

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"vidtube/models"
	"vidtube/pkg/media"
)

// memStore is an in-memory UserStore used by unit tests. It mirrors the
// store contract: not-found is gorm.ErrRecordNotFound, Create reports
// duplicates, reads hand out copies so mutations must go through updates.
type memStore struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*models.User
	videos map[uint]*models.Video
	events []models.WatchEvent
	subs   []models.Subscription
}

func newMemStore() *memStore {
	return &memStore{
		nextID: 1,
		users:  map[uint]*models.User{},
		videos: map[uint]*models.Video{},
	}
}

func (m *memStore) FindByID(_ context.Context, id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) FindByLogin(_ context.Context, identifier string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == identifier || u.Email == identifier {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memStore) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return errDuplicateUser
		}
	}
	u.ID = m.nextID
	m.nextID++
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) UpdateByID(_ context.Context, id uint, patch map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil // gorm Updates on a missing row affects zero rows, no error
	}
	for col, val := range patch {
		switch col {
		case "refresh_token":
			u.RefreshToken = val.(string)
		case "password_hash":
			u.PasswordHash = val.([]byte)
		case "full_name":
			u.FullName = val.(string)
		case "email":
			u.Email = val.(string)
		case "avatar":
			u.Avatar = val.(string)
		case "cover_image":
			u.CoverImage = val.(string)
		}
	}
	u.UpdatedAt = time.Now()
	return nil
}

func (m *memStore) Save(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	cp.UpdatedAt = time.Now()
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) ChannelProfile(_ context.Context, username string, viewerID uint) (*ChannelProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var channel *models.User
	for _, u := range m.users {
		if u.Username == username {
			channel = u
			break
		}
	}
	if channel == nil {
		return nil, gorm.ErrRecordNotFound
	}
	profile := &ChannelProfile{
		ID:         channel.ID,
		Username:   channel.Username,
		Email:      channel.Email,
		FullName:   channel.FullName,
		Avatar:     channel.Avatar,
		CoverImage: channel.CoverImage,
	}
	for _, s := range m.subs {
		if s.ChannelID == channel.ID {
			profile.SubscribersCount++
			if s.SubscriberID == viewerID {
				profile.IsSubscribed = true
			}
		}
		if s.SubscriberID == channel.ID {
			profile.ChannelSubscribedToCount++
		}
	}
	return profile, nil
}

func (m *memStore) WatchHistory(_ context.Context, userID uint) ([]WatchHistoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []WatchHistoryItem{}
	for i := len(m.events) - 1; i >= 0; i-- {
		ev := m.events[i]
		if ev.UserID != userID {
			continue
		}
		video := m.videos[ev.VideoID]
		owner := m.users[video.OwnerID]
		item := WatchHistoryItem{
			VideoID:   video.ID,
			VideoFile: video.VideoFile,
			Thumbnail: video.Thumbnail,
			Title:     video.Title,
			Duration:  video.Duration,
			Views:     video.Views,
			WatchedAt: ev.CreatedAt,
		}
		if owner != nil {
			item.Owner = WatchOwner{Username: owner.Username, FullName: owner.FullName, Avatar: owner.Avatar}
		}
		items = append(items, item)
	}
	return items, nil
}

func (m *memStore) AddToWatchHistory(_ context.Context, userID, videoID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.videos[videoID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.events = append(m.events, models.WatchEvent{
		ID:        uint(len(m.events) + 1),
		CreatedAt: time.Now(),
		UserID:    userID,
		VideoID:   videoID,
	})
	return nil
}

// addVideo seeds a video for history tests.
func (m *memStore) addVideo(v models.Video) models.Video {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v.ID == 0 {
		v.ID = m.nextID
		m.nextID++
	}
	m.videos[v.ID] = &v
	return v
}

// addSubscription seeds a subscriber->channel edge for profile tests.
func (m *memStore) addSubscription(subscriberID, channelID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, models.Subscription{SubscriberID: subscriberID, ChannelID: channelID})
}

// fakeUploader stands in for the media collaborator in controller tests.
type fakeUploader struct {
	fail bool
}

func (f *fakeUploader) Upload(_ context.Context, folder string, file media.File) (string, error) {
	if f.fail {
		return "", media.ErrUnsupported
	}
	return "/public/" + folder + "/" + file.Name, nil
}
