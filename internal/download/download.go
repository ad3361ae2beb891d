// Package download caches reference image files on disk so practice
// sessions render without re-fetching.
package download

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/avbell/easel/internal/logging"
	"github.com/avbell/easel/internal/store"
)

// Cache downloads image files into a local directory, keyed by provider id.
type Cache struct {
	dir    string
	client *http.Client
}

// NewCache creates a download cache rooted at dir.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create image cache dir: %w", err)
	}
	return &Cache{
		dir: dir,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Path returns where an image's file lives, whether or not it exists yet.
func (c *Cache) Path(providerID string) string {
	return filepath.Join(c.dir, providerID+".jpg")
}

// Fetch ensures the image's file is on disk and returns its path. Already
// cached files are not re-downloaded.
func (c *Cache) Fetch(img store.CuratedImage) (string, error) {
	path := c.Path(img.ProviderID)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	resp, err := c.client.Get(img.URL)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", img.ProviderID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: status %d", img.ProviderID, resp.StatusCode)
	}

	// Write to a temp name first so a partial download never looks cached
	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("write image file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("close image file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("finalize image file: %w", err)
	}

	logging.Debug("Image downloaded", "image", img.ProviderID)
	return path, nil
}

// Prefetch downloads a batch of images, logging and skipping failures.
func (c *Cache) Prefetch(images []store.CuratedImage) {
	for _, img := range images {
		if _, err := c.Fetch(img); err != nil {
			logging.Warn("Prefetch failed", "image", img.ProviderID, "error", err)
		}
	}
}
