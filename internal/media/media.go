package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	MaxWidth  = 800
	MaxHeight = 800
)

var ErrInvalidImage = errors.New("invalid image")

// Store keeps uploaded files under Root. Returned names are relative to Root
// and use forward slashes.
type Store struct {
	Root string
}

// SaveProductImage decodes an upload, shrinks it to fit MaxWidth x MaxHeight
// and writes it as JPEG under products/.
func (s *Store) SaveProductImage(r io.Reader) (string, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	img = imaging.Fit(img, MaxWidth, MaxHeight, imaging.Lanczos)

	dir := filepath.Join(s.Root, "products")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	name := uuid.NewString() + ".jpg"
	if err := imaging.Save(img, filepath.Join(dir, name), imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return path.Join("products", name), nil
}

func (s *Store) Remove(name string) error {
	if name == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.Root, filepath.FromSlash(name)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
