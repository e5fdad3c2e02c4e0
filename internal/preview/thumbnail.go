package preview

import (
	"image"
	"io"
	"math"
	"net/http"

	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"evidence-explorer/pkg/apierror"
)

const thumbnailQuality = 85

// EncodeThumbnail decodes an image from r, scales it so that its longer side
// is at most size pixels and writes it to w as JPEG. Images are never
// enlarged.
func EncodeThumbnail(r io.Reader, size int, w io.Writer) error {
	src, _, err := image.Decode(r)
	if err != nil {
		return apierror.New(apierror.CodeBadRequest, "cannot decode image", err.Error(), http.StatusUnsupportedMediaType)
	}

	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return apierror.New(apierror.CodeBadRequest, "invalid image dimensions", "", http.StatusUnsupportedMediaType)
	}

	maxDim := max(width, height)
	scale := math.Min(float64(size)/float64(maxDim), 1)

	targetWidth := max(int(math.Round(float64(width)*scale)), 1)
	targetHeight := max(int(math.Round(float64(height)*scale)), 1)

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	return jpeg.Encode(w, dst, &jpeg.Options{Quality: thumbnailQuality})
}
