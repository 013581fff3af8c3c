// Package vision decodes figure images and extracts the visual features
// the rule-based classifier scores: geometry, intensity statistics, edge
// and shape densities, symmetry, and color composition. Extraction is
// pure computation; callers own all I/O.
package vision

import (
	"bytes"
	"fmt"
	"image"
	"strconv"

	// Registered decoders for the codec set Figdock environments provision.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	apperrors "github.com/figdock/figdock/internal/platform/errors"
)

// Decode limits. Config is checked before full pixel decode so oversized
// inputs are rejected cheaply.
const (
	MaxImageBytes = 12 << 20
	MaxDimension  = 6000
)

// Decode parses image bytes into an image after enforcing size caps.
// It returns the decoded image and the detected format name.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", apperrors.New(apperrors.CodeImageDecodeFailed, "empty image data")
	}
	if len(data) > MaxImageBytes {
		return nil, "", apperrors.WithMetadata(apperrors.CodeImageTooLarge,
			"image exceeds byte limit",
			map[string]string{"bytes": strconv.Itoa(len(data))})
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.CodeImageUnsupported, "decode image config", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", apperrors.New(apperrors.CodeImageDecodeFailed, "image has no pixels")
	}
	if cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return nil, "", apperrors.WithMetadata(apperrors.CodeImageTooLarge,
			"image exceeds dimension limit",
			map[string]string{
				"width":  strconv.Itoa(cfg.Width),
				"height": strconv.Itoa(cfg.Height),
			})
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.CodeImageDecodeFailed,
			fmt.Sprintf("decode %s image", format), err)
	}
	return img, format, nil
}
