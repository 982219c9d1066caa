package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	"github.com/bbrks/go-blurhash"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// blurHashSize bounds the thumbnail the hash is computed from.
// The placeholder is low resolution, so a 64px image gives the same hash in milliseconds.
const blurHashSize = 64

// ComputeBlurHash decodes an image and returns its BlurHash (4x3 components)
// along with the original dimensions.
func ComputeBlurHash(data []byte) (hash string, width, height int, err error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", 0, 0, fmt.Errorf("decode image: %w", err)
	}
	bounds := img.Bounds()

	hash, err = blurhash.Encode(4, 3, thumbnail(img))
	if err != nil {
		return "", 0, 0, fmt.Errorf("encode blurhash: %w", err)
	}
	return hash, bounds.Dx(), bounds.Dy(), nil
}

// thumbnail scales img down to fit blurHashSize using nearest-neighbor sampling.
func thumbnail(img image.Image) image.Image {
	bounds := img.Bounds()
	srcWidth, srcHeight := bounds.Dx(), bounds.Dy()

	if srcWidth <= blurHashSize && srcHeight <= blurHashSize {
		return img
	}

	dstWidth, dstHeight := blurHashSize, blurHashSize
	if srcWidth > srcHeight {
		dstHeight = max(srcHeight*blurHashSize/srcWidth, 1)
	} else {
		dstWidth = max(srcWidth*blurHashSize/srcHeight, 1)
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstWidth, dstHeight))
	xRatio := float64(srcWidth) / float64(dstWidth)
	yRatio := float64(srcHeight) / float64(dstHeight)

	for y := range dstHeight {
		for x := range dstWidth {
			srcX := int(float64(x) * xRatio)
			srcY := int(float64(y) * yRatio)
			dst.Set(x, y, img.At(bounds.Min.X+srcX, bounds.Min.Y+srcY))
		}
	}
	return dst
}
