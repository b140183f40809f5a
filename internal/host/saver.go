package host

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
)

const outputPattern = "xray-*.png"

// saveImage encodes img as PNG into a fresh file under dir and returns its
// path. The file is removed again if encoding fails.
func (p *Predictor) saveImage(dir string, img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("no image data to save")
	}

	file, err := os.CreateTemp(dir, outputPattern)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}

	path := file.Name()
	if err := encodePNG(file, img); err != nil {
		file.Close()
		os.Remove(path)
		p.logger.Error("ImageSaver", err, map[string]interface{}{"path": path})
		return "", err
	}

	if err := file.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close output file: %w", err)
	}

	bounds := img.Bounds()
	p.logger.Debug("ImageSaver", "image saved", map[string]interface{}{
		"path":   path,
		"width":  bounds.Dx(),
		"height": bounds.Dy(),
	})

	return path, nil
}

func encodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}
