// Package dp stores display-picture blobs and their thumbnails on the
// filesystem, under storage/dp/<u0>/<u0u1>/<uuid>.<mime> (spec §6).
package dp

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

// ThumbSize is the fixed edge length of the generated thumbnail.
const ThumbSize = 21

// Store roots every display picture under Root.
type Store struct {
	Root string
}

// New returns a Store rooted at root.
func New(root string) *Store {
	return &Store{Root: root}
}

func shard(id string) (string, string) {
	if len(id) == 0 {
		return "_", "_"
	}
	u0 := string(id[0])
	u0u1 := id
	if len(id) >= 2 {
		u0u1 = id[:2]
	}
	return u0, u0u1
}

func (s *Store) dirFor(id string) string {
	u0, u0u1 := shard(id)
	return filepath.Join(s.Root, u0, u0u1)
}

// Save decodes raw image data, writes the original and a ThumbSize x
// ThumbSize thumbnail, and returns the generated uuid. mime is the subtype
// used for both file extensions (e.g. "jpeg").
func (s *Store) Save(raw []byte, mime string) (string, error) {
	id := uuid.NewString()
	dir := s.dirFor(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	fullPath := filepath.Join(dir, fmt.Sprintf("%s.%s", id, mime))
	if err := os.WriteFile(fullPath, raw, 0o644); err != nil {
		return "", err
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	thumb := image.NewRGBA(image.Rect(0, 0, ThumbSize, ThumbSize))
	draw.ApproxBiLinear.Scale(thumb, thumb.Bounds(), img, img.Bounds(), draw.Over, nil)

	thumbPath := filepath.Join(dir, fmt.Sprintf("%s_thumb.%s", id, mime))
	f, err := os.Create(thumbPath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := jpeg.Encode(f, thumb, &jpeg.Options{Quality: 85}); err != nil {
		return "", err
	}
	return id, nil
}

// Path returns the on-disk path for a stored blob or its thumbnail.
func (s *Store) Path(id, mime string, thumb bool) string {
	dir := s.dirFor(id)
	if thumb {
		return filepath.Join(dir, fmt.Sprintf("%s_thumb.%s", id, mime))
	}
	return filepath.Join(dir, fmt.Sprintf("%s.%s", id, mime))
}
