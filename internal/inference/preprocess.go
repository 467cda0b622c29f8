package inference

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// DecodeJPEG decodes one frame payload from the bus. Callers treat a
// decode failure as a corrupted frame, not a pipeline error.
func DecodeJPEG(data []byte) (image.Image, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}
	return img, nil
}

// toRGBA resizes src to w x h, returning the backing pixel buffer in a
// fixed layout for tensor conversion. A src already at the target size
// skips the interpolation pass.
func toRGBA(src image.Image, w, h int) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if b.Dx() == w && b.Dy() == h {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	}
	return dst
}

// fillCHW writes one image into dst at batch offset using channel-first
// layout, applying scale and shift per pixel: out = (p - shift) * scale.
func fillCHW(dst []float32, img *image.RGBA, w, h int, shift, scale float32) {
	plane := w * h
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			i := y*w + x
			px := row[x*4:]
			dst[i] = (float32(px[0]) - shift) * scale
			dst[plane+i] = (float32(px[1]) - shift) * scale
			dst[2*plane+i] = (float32(px[2]) - shift) * scale
		}
	}
}

// CropRegion extracts the bbox region from a frame, with the box given in
// normalized [x1,y1,x2,y2] coordinates. Returns nil for degenerate boxes.
func CropRegion(img image.Image, bbox []float64) image.Image {
	if len(bbox) != 4 {
		return nil
	}
	b := img.Bounds()
	x1 := b.Min.X + int(bbox[0]*float64(b.Dx()))
	y1 := b.Min.Y + int(bbox[1]*float64(b.Dy()))
	x2 := b.Min.X + int(bbox[2]*float64(b.Dx()))
	y2 := b.Min.Y + int(bbox[3]*float64(b.Dy()))

	if x1 < b.Min.X {
		x1 = b.Min.X
	}
	if y1 < b.Min.Y {
		y1 = b.Min.Y
	}
	if x2 > b.Max.X {
		x2 = b.Max.X
	}
	if y2 > b.Max.Y {
		y2 = b.Max.Y
	}
	if x2-x1 <= 0 || y2-y1 <= 0 {
		return nil
	}

	region := image.Rect(x1, y1, x2, y2)
	crop := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))
	draw.Draw(crop, crop.Bounds(), img, region.Min, draw.Src)
	return crop
}
