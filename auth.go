package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"vidtube/models"
	"vidtube/pkg/media"
)

// hashPassword produces a salted adaptive digest; hashing the same password
// twice yields different digests.
func hashPassword(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
}

// checkPassword reports only match / no match.
func checkPassword(plain string, digest []byte) bool {
	return bcrypt.CompareHashAndPassword(digest, []byte(plain)) == nil
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type registerInput struct {
	Username string
	Email    string
	FullName string
	Password string
	Avatar   *media.File
	Cover    *media.File
}

// registerUser validates, uploads the avatar (mandatory) and cover
// (optional), hashes the password and persists the new user. The returned
// record is safe to serialize: credential fields are stripped by JSON tags.
func registerUser(ctx context.Context, store UserStore, uploader media.Uploader, in registerInput) (*models.User, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.ToLower(strings.TrimSpace(in.Email))
	fullName := strings.TrimSpace(in.FullName)
	if username == "" || email == "" || fullName == "" || strings.TrimSpace(in.Password) == "" {
		return nil, errValidation("All fields are required")
	}
	if in.Avatar == nil {
		return nil, errValidation("Avatar is required")
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	avatarURL, err := uploader.Upload(ctx, "avatars", *in.Avatar)
	if err != nil {
		return nil, errValidation("Avatar is required")
	}
	coverURL := ""
	if in.Cover != nil {
		// cover failures are tolerated, the field is optional
		if url, err := uploader.Upload(ctx, "covers", *in.Cover); err == nil {
			coverURL = url
		}
	}
	user := &models.User{
		Username:     username,
		Email:        email,
		FullName:     fullName,
		Avatar:       avatarURL,
		CoverImage:   coverURL,
		PasswordHash: hash,
	}
	if err := store.Create(ctx, user); err != nil {
		if errors.Is(err, errDuplicateUser) {
			return nil, errConflict("User with email or username already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// loginUser authenticates by username or email and starts a session.
func loginUser(ctx context.Context, store UserStore, issuer *tokenIssuer, identifier, password string) (*models.User, *tokenPair, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return nil, nil, errValidation("username or email is required")
	}
	user, err := store.FindByLogin(ctx, identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errNotFound("User does not exist")
		}
		return nil, nil, fmt.Errorf("find user: %w", err)
	}
	if !checkPassword(password, user.PasswordHash) {
		return nil, nil, errUnauthorized("Invalid user credentials")
	}
	pair, err := issueSession(ctx, store, issuer, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// issueSession mints a fresh access+refresh pair and persists the refresh
// token on the user row, overwriting (and thereby revoking) any prior one.
func issueSession(ctx context.Context, store UserStore, issuer *tokenIssuer, user *models.User) (*tokenPair, error) {
	access, err := issuer.issueAccess(user)
	if err != nil {
		return nil, err
	}
	refresh, err := issuer.issueRefresh(user.ID)
	if err != nil {
		return nil, err
	}
	if err := store.UpdateByID(ctx, user.ID, map[string]any{"refresh_token": refresh}); err != nil {
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}
	user.RefreshToken = refresh
	return &tokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// logoutUser clears the stored refresh token. Idempotent.
func logoutUser(ctx context.Context, store UserStore, userID uint) error {
	return store.UpdateByID(ctx, userID, map[string]any{"refresh_token": ""})
}

// refreshSession rotates the token pair. Reuse of a rotated or revoked token
// is reported as "expired or used", distinct from tampered tokens.
func refreshSession(ctx context.Context, store UserStore, issuer *tokenIssuer, incoming string) (*tokenPair, error) {
	if strings.TrimSpace(incoming) == "" {
		return nil, errUnauthorized("unauthorized request")
	}
	userID, err := issuer.verifyRefresh(incoming)
	if err != nil {
		if errors.Is(err, errTokenExpired) {
			return nil, errUnauthorized("Refresh token is expired or used")
		}
		return nil, errUnauthorized("Invalid refresh token")
	}
	user, err := store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errUnauthorized("Invalid refresh token")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user.RefreshToken == "" || incoming != user.RefreshToken {
		return nil, errUnauthorized("Refresh token is expired or used")
	}
	return issueSession(ctx, store, issuer, user)
}

// changePassword re-hashes after verifying the old password. The current
// refresh token deliberately stays valid; upstream behaves the same and
// clients rely on staying logged in after a password change.
func changePassword(ctx context.Context, store UserStore, userID uint, oldPassword, newPassword string) error {
	if strings.TrimSpace(oldPassword) == "" || strings.TrimSpace(newPassword) == "" {
		return errValidation("All fields are required")
	}
	user, err := store.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if !checkPassword(oldPassword, user.PasswordHash) {
		return errUnauthorized("Invalid password")
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return store.UpdateByID(ctx, userID, map[string]any{"password_hash": hash})
}
