package upload

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"

	// Decoders for the accepted source formats.
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// MaxWidth bounds the width of every uploaded image.
	MaxWidth = 1080
	// JPEGQuality is the fixed re-encode quality.
	JPEGQuality = 70
)

// Compress decodes an image, center-crops it to the aspect ratio of purpose,
// scales it down to at most MaxWidth pixels wide and re-encodes it as JPEG.
func Compress(r io.Reader, purpose Purpose) ([]byte, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	crop := cropRect(src.Bounds(), purpose)
	w, h := targetSize(crop.Dx(), crop.Dy())

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode %s as jpeg: %w", format, err)
	}
	return buf.Bytes(), nil
}

// cropRect is the largest centered rectangle of b with the purpose's aspect.
func cropRect(b image.Rectangle, purpose Purpose) image.Rectangle {
	aw, ah := purpose.Aspect()
	w, h := b.Dx(), b.Dy()

	if w*ah > h*aw {
		cw := h * aw / ah
		x0 := b.Min.X + (w-cw)/2
		return image.Rect(x0, b.Min.Y, x0+cw, b.Max.Y)
	}
	ch := w * ah / aw
	y0 := b.Min.Y + (h-ch)/2
	return image.Rect(b.Min.X, y0, b.Max.X, y0+ch)
}

func targetSize(w, h int) (int, int) {
	if w > MaxWidth {
		h = h * MaxWidth / w
		w = MaxWidth
	}
	return max(w, 1), max(h, 1)
}
