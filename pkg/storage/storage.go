package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Manager builds deterministic on-disk locations for downloaded media.
// Files are keyed by shortcode so repeat scrapes of the same item land on
// the same path.
type Manager struct {
	root string
}

// NewManager creates a storage manager rooted at baseDir/instagram.
func NewManager(baseDir string) (*Manager, error) {
	root := filepath.Join(baseDir, "instagram")
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	return &Manager{root: root}, nil
}

// VideoPath returns the deterministic video path for a shortcode.
func (m *Manager) VideoPath(shortcode string) string {
	return filepath.Join(m.root, fmt.Sprintf("%s.mp4", shortcode))
}

// ThumbnailPath returns the deterministic thumbnail path for a shortcode.
func (m *Manager) ThumbnailPath(shortcode string) string {
	return filepath.Join(m.root, fmt.Sprintf("%s.jpg", shortcode))
}

// HasVideo reports whether a video for the shortcode already exists on disk.
func (m *Manager) HasVideo(shortcode string) bool {
	_, err := os.Stat(m.VideoPath(shortcode))
	return err == nil
}

// Root returns the media directory path.
func (m *Manager) Root() string {
	return m.root
}
