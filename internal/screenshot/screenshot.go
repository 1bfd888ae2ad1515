// Package screenshot resolves screenshot targets named by the documentation
// plan to image files. The default implementation looks up pre-captured
// images in a configured directory; capture automation can be plugged in via
// the Capturer interface. A missing screenshot is a degradation, never a
// run failure.
package screenshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Capturer resolves a target (a command, path, or UI entry point) to an
// image file on disk.
type Capturer interface {
	Capture(ctx context.Context, target string) (string, error)
}

// imageExtensions in lookup preference order.
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}

// DirCapturer serves pre-captured screenshots from a directory, matched by
// the slugified target name.
type DirCapturer struct {
	dir string
}

// NewDirCapturer creates a directory-backed capturer.
func NewDirCapturer(dir string) *DirCapturer {
	return &DirCapturer{dir: dir}
}

// Capture looks for <dir>/<slug>.<ext> and returns the first match.
func (c *DirCapturer) Capture(_ context.Context, target string) (string, error) {
	slug := Slug(target)
	if slug == "" {
		return "", fmt.Errorf("empty screenshot target")
	}
	for _, ext := range imageExtensions {
		path := filepath.Join(c.dir, slug+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no screenshot for target %q (looked for %s.* in %s)", target, slug, c.dir)
}

// Slug normalizes a target to a filesystem-safe name: lowercase with runs of
// non-alphanumerics collapsed to single hyphens.
func Slug(target string) string {
	var sb strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(target)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				sb.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}
