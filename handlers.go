package main

import (
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"vidtube/pkg/media"
)

const maxUploadBytes = 5 * 1024 * 1024

func setupRoutes(r *gin.Engine) {
	u := r.Group("/users")
	u.POST("/register", registerHandler)
	u.POST("/login", loginHandler)
	u.POST("/refresh-token", refreshTokenHandler)

	authed := u.Group("")
	authed.Use(authRequired())
	authed.POST("/logout", logoutHandler)
	authed.POST("/change-password", changePasswordHandler)
	authed.GET("/me", currentUserHandler)
	authed.PATCH("/update-account", updateAccountHandler)
	authed.PATCH("/avatar", updateAvatarHandler)
	authed.PATCH("/cover-image", updateCoverImageHandler)
	authed.GET("/c/:username", channelProfileHandler)
	authed.GET("/history", watchHistoryHandler)
	authed.POST("/history/:videoId", addWatchHistoryHandler)
}

// respond writes the success envelope.
func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, gin.H{"statusCode": status, "message": message, "data": data})
}

// fail maps domain errors to the error envelope; anything unclassified is a
// 500 that does not leak internals.
func fail(c *gin.Context, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.Status, gin.H{"success": false, "statusCode": apiErr.Status, "message": apiErr.Message})
		return
	}
	log.Printf("internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"success":    false,
		"statusCode": http.StatusInternalServerError,
		"message":    "Internal server error",
	})
}

func setAuthCookies(c *gin.Context, pair *tokenPair) {
	c.SetSameSite(http.SameSiteLaxMode)
	secure := cfg.Production()
	c.SetCookie("accessToken", pair.AccessToken, int(cfg.AccessTokenExpiry.Seconds()), "/", "", secure, true)
	c.SetCookie("refreshToken", pair.RefreshToken, int(cfg.RefreshTokenExpiry.Seconds()), "/", "", secure, true)
}

func clearAuthCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	secure := cfg.Production()
	c.SetCookie("accessToken", "", -1, "/", "", secure, true)
	c.SetCookie("refreshToken", "", -1, "/", "", secure, true)
}

// formFile turns an optional multipart file into a media.File. The caller
// must close the returned closer when non-nil.
func formFile(fh *multipart.FileHeader) (*media.File, multipart.File, error) {
	if fh == nil {
		return nil, nil, nil
	}
	if fh.Size > maxUploadBytes {
		return nil, nil, errValidation("file too large (max 5MB)")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	return &media.File{Name: fh.Filename, Reader: f}, f, nil
}

func registerHandler(c *gin.Context) {
	in := registerInput{
		Username: c.PostForm("username"),
		Email:    c.PostForm("email"),
		FullName: c.PostForm("fullName"),
		Password: c.PostForm("password"),
	}
	avatarFH, _ := c.FormFile("avatar")
	coverFH, _ := c.FormFile("coverImage")

	avatar, avatarF, err := formFile(avatarFH)
	if err != nil {
		fail(c, err)
		return
	}
	if avatarF != nil {
		defer avatarF.Close()
	}
	cover, coverF, err := formFile(coverFH)
	if err != nil {
		fail(c, err)
		return
	}
	if coverF != nil {
		defer coverF.Close()
	}
	in.Avatar = avatar
	in.Cover = cover

	user, err := registerUser(c.Request.Context(), users, uploads, in)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "User registered successfully", user)
}

func loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errValidation("invalid request body"))
		return
	}
	identifier := req.Username
	if identifier == "" {
		identifier = req.Email
	}
	user, pair, err := loginUser(c.Request.Context(), users, tokens, identifier, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	setAuthCookies(c, pair)
	respond(c, http.StatusOK, "User logged in successfully", gin.H{
		"user":         user,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

func refreshTokenHandler(c *gin.Context) {
	incoming, _ := c.Cookie("refreshToken")
	if incoming == "" {
		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		// body is optional, the cookie is the usual carrier
		_ = c.ShouldBindJSON(&req)
		incoming = req.RefreshToken
	}
	pair, err := refreshSession(c.Request.Context(), users, tokens, incoming)
	if err != nil {
		fail(c, err)
		return
	}
	setAuthCookies(c, pair)
	respond(c, http.StatusOK, "Access token refreshed successfully", pair)
}

func logoutHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		abortUnauthorized(c)
		return
	}
	if err := logoutUser(c.Request.Context(), users, user.ID); err != nil {
		fail(c, err)
		return
	}
	clearAuthCookies(c)
	respond(c, http.StatusOK, "User logged out", gin.H{})
}

func changePasswordHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		abortUnauthorized(c)
		return
	}
	var req struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errValidation("invalid request body"))
		return
	}
	if err := changePassword(c.Request.Context(), users, user.ID, req.OldPassword, req.NewPassword); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Password changed successfully", gin.H{})
}

func currentUserHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		abortUnauthorized(c)
		return
	}
	respond(c, http.StatusOK, "Current user fetched successfully", user)
}

func updateAccountHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		abortUnauthorized(c)
		return
	}
	var req struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errValidation("invalid request body"))
		return
	}
	fullName := strings.TrimSpace(req.FullName)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if fullName == "" || email == "" {
		fail(c, errValidation("All fields are required"))
		return
	}
	ctx := c.Request.Context()
	err := users.UpdateByID(ctx, user.ID, map[string]any{"full_name": fullName, "email": email})
	if err != nil {
		if isUniqueConstraintError(err) {
			fail(c, errConflict("User with email or username already exists"))
			return
		}
		fail(c, err)
		return
	}
	updated, err := users.FindByID(ctx, user.ID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Account details updated successfully", updated)
}

func updateAvatarHandler(c *gin.Context) {
	updateImageField(c, "avatar", "Avatar file is missing", "Avatar updated successfully")
}

func updateCoverImageHandler(c *gin.Context) {
	updateImageField(c, "coverImage", "Cover image file is missing", "Cover image updated successfully")
}

// updateImageField uploads a single multipart image and saves its URL on the
// user record (field is the form name; avatar -> User.Avatar, coverImage ->
// User.CoverImage).
func updateImageField(c *gin.Context, field, missingMsg, okMsg string) {
	user, ok := currentUser(c)
	if !ok {
		abortUnauthorized(c)
		return
	}
	fh, err := c.FormFile(field)
	if err != nil {
		fail(c, errValidation(missingMsg))
		return
	}
	file, closer, err := formFile(fh)
	if err != nil {
		fail(c, err)
		return
	}
	defer closer.Close()

	folder := "avatars"
	if field == "coverImage" {
		folder = "covers"
	}
	url, err := uploads.Upload(c.Request.Context(), folder, *file)
	if err != nil {
		fail(c, errValidation("could not process uploaded image"))
		return
	}
	if field == "coverImage" {
		user.CoverImage = url
	} else {
		user.Avatar = url
	}
	if err := users.Save(c.Request.Context(), user); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, okMsg, user)
}

func channelProfileHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		abortUnauthorized(c)
		return
	}
	username := strings.ToLower(strings.TrimSpace(c.Param("username")))
	if username == "" {
		fail(c, errValidation("username is required"))
		return
	}
	profile, err := users.ChannelProfile(c.Request.Context(), username, user.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, errNotFound("Channel does not exist"))
			return
		}
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Channel profile fetched successfully", profile)
}

func watchHistoryHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		abortUnauthorized(c)
		return
	}
	items, err := users.WatchHistory(c.Request.Context(), user.ID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Watch history fetched successfully", items)
}

func addWatchHistoryHandler(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		abortUnauthorized(c)
		return
	}
	videoID, err := strconv.ParseUint(c.Param("videoId"), 10, 64)
	if err != nil || videoID == 0 {
		fail(c, errValidation("videoId is required"))
		return
	}
	if err := users.AddToWatchHistory(c.Request.Context(), user.ID, uint(videoID)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, errNotFound("Video does not exist"))
			return
		}
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Watch history updated successfully", gin.H{})
}

// corsMiddleware mirrors the upstream cors({origin, credentials:true}) setup.
func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		if origin != "*" {
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
