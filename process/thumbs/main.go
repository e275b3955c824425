// Command thumbs generates thumbnails for uploaded images. It scans the
// upload tree once, then optionally keeps watching for new files. Thumbnails
// are written next to the originals as <name>_thumb.jpg so the front-end can
// request them by convention.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"
)

const thumbSuffix = "_thumb"

var verbose bool

var extSupported = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

func main() {
	dirFlag := flag.String("dir", "public", "upload base directory to scan for images")
	size := flag.Int("size", 320, "thumbnail bounding box in pixels")
	watch := flag.Bool("watch", false, "watch the directory tree for new files")
	workers := flag.Int("workers", 0, "worker pool size (default NumCPU)")
	force := flag.Bool("force", false, "regenerate thumbnails that already exist")
	flag.BoolVar(&verbose, "verbose", false, "verbose per-file logging")
	flag.Parse()

	files := listImageFiles(*dirFlag)
	log.Printf("Scanning %d files (workers=%d)", len(files), effectiveWorkers(*workers))
	runWorkerPool(files, *size, *force, effectiveWorkers(*workers))

	if *watch {
		if err := watchDirectory(*dirFlag, *size, *force, effectiveWorkers(*workers)); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	}
}

func effectiveWorkers(w int) int {
	if w <= 0 {
		return runtime.NumCPU()
	}
	return w
}

func logV(format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
	}
}

// isCandidate reports whether path is an image that needs a thumbnail.
func isCandidate(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if !extSupported[ext] {
		return false
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return !strings.HasSuffix(base, thumbSuffix)
}

func thumbPath(path string) string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return base + thumbSuffix + ".jpg"
}

// listImageFiles walks the whole upload tree (avatars/, covers/, ...).
func listImageFiles(dir string) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if isCandidate(path) {
			out = append(out, path)
		}
		return nil
	})
	sort.Strings(out)
	return out
}

func generateThumb(path string, size int, force bool) {
	dst := thumbPath(path)
	if !force {
		if _, err := os.Stat(dst); err == nil {
			logV("skip %s (thumbnail exists)", path)
			return
		}
	}
	img, err := imaging.Open(path)
	if err != nil {
		log.Printf("open %s failed: %v", path, err)
		return
	}
	thumb := imaging.Thumbnail(img, size, size, imaging.Lanczos)
	if err := imaging.Save(thumb, dst, imaging.JPEGQuality(85)); err != nil {
		log.Printf("save %s failed: %v", dst, err)
		return
	}
	logV("thumb %s -> %s", path, dst)
}

func runWorkerPool(files []string, size int, force bool, workers int) {
	fileCh := make(chan string, len(files))
	for _, f := range files {
		fileCh <- f
	}
	close(fileCh)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range fileCh {
				generateThumb(f, size, force)
			}
		}()
	}
	wg.Wait()
}

// watchDirectory waits for new files under dir and thumbnails them after a
// short debounce so half-written files are not picked up.
func watchDirectory(dir string, size int, force bool, workers int) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	// fsnotify is not recursive; watch the base plus existing subdirs
	if err := w.Add(dir); err != nil {
		return err
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if e.IsDir() {
			_ = w.Add(filepath.Join(dir, e.Name()))
		}
	}
	log.Printf("Watching %s (debounced) ...", dir)

	fileCh := make(chan string, 256)
	go func() {
		pending := map[string]time.Time{}
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					close(fileCh)
					return
				}
				if ev.Op&fsnotify.Create == fsnotify.Create {
					if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
						_ = w.Add(ev.Name)
						continue
					}
					if isCandidate(ev.Name) {
						pending[ev.Name] = time.Now()
					}
				}
			case <-ticker.C:
				now := time.Now()
				for name, t := range pending {
					if now.Sub(t) > 300*time.Millisecond { // stable
						fileCh <- name
						delete(pending, name)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					close(fileCh)
					return
				}
				log.Printf("watch error: %v", err)
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range fileCh {
				generateThumb(f, size, force)
			}
		}()
	}
	wg.Wait()
	return nil
}
