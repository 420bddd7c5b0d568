// Package fonts discovers installed font files on desktop systems and keeps
// the result current with an fsnotify watcher.
package fonts

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

var fontExts = map[string]bool{
	".ttf":   true,
	".otf":   true,
	".ttc":   true,
	".woff":  true,
	".woff2": true,
}

// DefaultDirs returns the usual font directories for the running OS.
func DefaultDirs() []string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return []string{"/System/Library/Fonts", "/Library/Fonts", filepath.Join(home, "Library", "Fonts")}
	case "windows":
		dirs := []string{filepath.Join(os.Getenv("WINDIR"), "Fonts")}
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			dirs = append(dirs, filepath.Join(local, "Microsoft", "Windows", "Fonts"))
		}
		return dirs
	default:
		return []string{"/usr/share/fonts", "/usr/local/share/fonts", filepath.Join(home, ".local", "share", "fonts"), filepath.Join(home, ".fonts")}
	}
}

// Catalog maps font names to file paths. The first scan happens on demand
// and its result is cached until a watched directory changes.
type Catalog struct {
	dirs     []string
	debounce time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	fonts   map[string]string
	scanErr error
	valid   bool
}

// New returns a Catalog over dirs. Missing directories are skipped.
func New(dirs []string, logger zerolog.Logger) *Catalog {
	return &Catalog{
		dirs:     dirs,
		debounce: 500 * time.Millisecond,
		logger:   logger.With().Str("component", "fonts").Logger(),
	}
}

// Dirs returns the directories the catalog scans.
func (c *Catalog) Dirs() []string { return c.dirs }

// Fonts returns a copy of the catalog. A non-nil error means some files or
// directories could not be read; the map still holds everything found.
func (c *Catalog) Fonts(ctx context.Context) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		fonts, err := scan(ctx, c.dirs)
		if ctx.Err() != nil {
			// An interrupted scan is partial and is not cached.
			return fonts, err
		}
		c.fonts, c.scanErr, c.valid = fonts, err, true
		c.logger.Debug().Int("fonts", len(c.fonts)).Msg("font catalog scanned")
	}
	out := make(map[string]string, len(c.fonts))
	for name, path := range c.fonts {
		out[name] = path
	}
	return out, c.scanErr
}

// Invalidate drops the cached scan.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}

func scan(ctx context.Context, dirs []string) (map[string]string, error) {
	fonts := make(map[string]string)
	var errs []error
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				errs = append(errs, err)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() || !fontExts[strings.ToLower(filepath.Ext(path))] {
				return nil
			}
			name := fontName(path)
			// Earlier directories win, so user overrides can be listed first.
			if _, seen := fonts[name]; !seen {
				fonts[name] = path
			}
			return nil
		})
		if err != nil {
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
		}
	}
	return fonts, errors.Join(errs...)
}

// fontName derives a display name from a file name: "NotoSans-Bold.ttf"
// becomes "NotoSans-Bold", "open_sans.ttf" becomes "open sans".
func fontName(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ReplaceAll(name, "_", " ")
}

// Watch invalidates the catalog whenever a font directory changes, after a
// debounce window. It returns when ctx is done.
func (c *Catalog) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	watched := 0
	for _, dir := range c.dirs {
		watched += c.addTree(watcher, dir)
	}
	if watched == 0 {
		watcher.Close()
		return errors.New("no font directory could be watched")
	}

	c.logger.Info().Int("dirs", watched).Msg("watching font directories")
	go c.watchLoop(ctx, watcher)
	return nil
}

func (c *Catalog) addTree(watcher *fsnotify.Watcher, root string) int {
	n := 0
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			c.logger.Warn().Err(err).Str("dir", path).Msg("cannot watch font directory")
			return nil
		}
		n++
		return nil
	})
	return n
}

func (c *Catalog) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	var mu sync.Mutex
	var timer *time.Timer
	flush := func() {
		c.Invalidate()
		c.logger.Info().Msg("font directories changed, catalog invalidated")
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					c.addTree(watcher, event.Name)
				}
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(c.debounce, flush)
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			c.logger.Error().Err(err).Msg("watcher error")
		}
	}
}
