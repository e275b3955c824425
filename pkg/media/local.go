package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

var slugRE = regexp.MustCompile(`[^a-z0-9._-]+`)

// LocalStore writes images under BaseDir and exposes them under BaseURL.
// Images are re-encoded so stored files never carry the original bytes, and
// bounded to MaxDim on the longer edge to keep avatar/cover payloads sane.
type LocalStore struct {
	BaseDir string
	BaseURL string
	MaxDim  int
}

func NewLocalStore(baseDir string) *LocalStore {
	return &LocalStore{BaseDir: baseDir, BaseURL: "/public", MaxDim: 1600}
}

func (s *LocalStore) Upload(ctx context.Context, folder string, f File) (string, error) {
	img, err := imaging.Decode(f.Reader)
	if err != nil {
		return "", ErrUnsupported
	}
	if s.MaxDim > 0 && (img.Bounds().Dx() > s.MaxDim || img.Bounds().Dy() > s.MaxDim) {
		img = imaging.Fit(img, s.MaxDim, s.MaxDim, imaging.Lanczos)
	}
	name := uniqueName(f.Name)
	dir := filepath.Join(s.BaseDir, folder)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	if err := imaging.Save(img, filepath.Join(dir, name)); err != nil {
		return "", fmt.Errorf("save %s: %w", name, err)
	}
	return s.BaseURL + "/" + folder + "/" + name, nil
}

// uniqueName slugs the original base name and appends a nanosecond stamp so
// two uploads of the same file never collide. The extension decides the
// encoder; anything exotic falls back to jpeg.
func uniqueName(orig string) string {
	ext := strings.ToLower(filepath.Ext(orig))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff":
	default:
		ext = ".jpg"
	}
	base := strings.TrimSuffix(filepath.Base(orig), filepath.Ext(orig))
	base = slugRE.ReplaceAllString(strings.ToLower(base), "-")
	base = strings.Trim(base, "-")
	if base == "" {
		base = "file"
	}
	return fmt.Sprintf("%s-%d%s", base, time.Now().UnixNano(), ext)
}
