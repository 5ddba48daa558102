package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngOf(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.NRGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &buf
}

func TestSaveProductImage_FitsLargeImages(t *testing.T) {
	t.Parallel()

	s := &Store{Root: t.TempDir()}
	name, err := s.SaveProductImage(pngOf(t, 1600, 400))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "products/"))
	assert.True(t, strings.HasSuffix(name, ".jpg"))

	img, err := imaging.Open(filepath.Join(s.Root, filepath.FromSlash(name)))
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestSaveProductImage_KeepsSmallImages(t *testing.T) {
	t.Parallel()

	s := &Store{Root: t.TempDir()}
	name, err := s.SaveProductImage(pngOf(t, 120, 90))
	require.NoError(t, err)

	img, err := imaging.Open(filepath.Join(s.Root, filepath.FromSlash(name)))
	require.NoError(t, err)
	assert.Equal(t, 120, img.Bounds().Dx())
	assert.Equal(t, 90, img.Bounds().Dy())
}

func TestSaveProductImage_RejectsGarbage(t *testing.T) {
	t.Parallel()

	s := &Store{Root: t.TempDir()}
	_, err := s.SaveProductImage(strings.NewReader("not an image"))
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestRemove(t *testing.T) {
	t.Parallel()

	s := &Store{Root: t.TempDir()}
	name, err := s.SaveProductImage(pngOf(t, 10, 10))
	require.NoError(t, err)

	require.NoError(t, s.Remove(name))
	assert.NoError(t, s.Remove(name))
	assert.NoError(t, s.Remove(""))
}
