package media

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	_ "golang.org/x/image/webp" // WebP format support

	"gallery-thumbs/internal/filesystem"
	"gallery-thumbs/internal/logging"
)

const (
	// MaxImageDimension is the largest width or height decoded at full size.
	// Larger images are downscaled right after decoding.
	MaxImageDimension = 4096

	// MaxImagePixels bounds width*height of the decoded working copy.
	// 20MP is ~80MB in RGBA.
	MaxImagePixels = 20_000_000
)

// constrainedSize returns the size an image of width x height is reduced to
// so that neither side exceeds maxDimension and the area stays below
// maxPixels. ok is false when no reduction is needed.
func constrainedSize(width, height, maxDimension, maxPixels int) (w, h int, ok bool) {
	if width <= maxDimension && height <= maxDimension && width*height <= maxPixels {
		return width, height, false
	}

	w, h = width, height
	if w > maxDimension || h > maxDimension {
		if w > h {
			h = h * maxDimension / w
			w = maxDimension
		} else {
			w = w * maxDimension / h
			h = maxDimension
		}
	}
	if w*h > maxPixels {
		scale := float64(maxPixels) / float64(w*h)
		w = int(float64(w) * scale)
		h = int(float64(h) * scale)
	}
	return max(w, 1), max(h, 1), true
}

// LoadImageConstrained decodes an image with EXIF orientation applied,
// downscaling it when it exceeds maxDimension or maxPixels.
func LoadImageConstrained(path string, maxDimension, maxPixels int) (image.Image, error) {
	file, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	b := img.Bounds()
	w, h, constrain := constrainedSize(b.Dx(), b.Dy(), maxDimension, maxPixels)
	if !constrain {
		return img, nil
	}

	logging.Debug("Constraining large image %s from %dx%d to %dx%d", path, b.Dx(), b.Dy(), w, h)
	return imaging.Resize(img, w, h, imaging.Lanczos), nil
}

// resize bounds img to maxX x maxY. With keepAspect the whole image fits in
// the box; otherwise the box is filled and the overflow cropped around the
// centre. Images already inside the box are not enlarged.
func resize(img image.Image, maxX, maxY int, keepAspect bool) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxX && b.Dy() <= maxY {
		return img
	}
	if keepAspect {
		return imaging.Fit(img, maxX, maxY, imaging.Lanczos)
	}
	return imaging.Fill(img, maxX, maxY, imaging.Center, imaging.Lanczos)
}

// encodeJPEG encodes img as a JPEG rendition.
func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return buf.Bytes(), nil
}
