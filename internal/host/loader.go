package host

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// loadImage decodes the file at path with whichever registered decoder
// matches its content. EXIF orientation is applied so the result is upright.
func (p *Predictor) loadImage(path string) (image.Image, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image data: %w", err)
	}

	p.logger.Debug("ImageLoader", "image data read", map[string]interface{}{
		"path":       path,
		"size_bytes": len(data),
	})

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image header: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	format = determineActualFormat(strings.ToLower(filepath.Ext(path)), format)
	bounds := img.Bounds()

	p.logger.Debug("ImageLoader", "image loaded successfully", map[string]interface{}{
		"width":  bounds.Dx(),
		"height": bounds.Dy(),
		"format": format,
	})

	return img, format, nil
}

func determineActualFormat(extension, decodedFormat string) string {
	if decodedFormat != "" {
		return decodedFormat
	}

	switch extension {
	case ".tiff", ".tif":
		return "tiff"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".png":
		return "png"
	case ".bmp":
		return "bmp"
	case ".gif":
		return "gif"
	case ".webp":
		return "webp"
	default:
		return "unknown"
	}
}
