package classifier

import (
	"bytes"
	"image"
	"net/http"

	"github.com/disintegration/imaging"
)

// downscale shrinks an upload so its longest side fits maxDim and re-encodes it as JPEG.
// Undecodable input is passed through untouched.
func downscale(data []byte, maxDim int) ([]byte, string) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return data, http.DetectContentType(data)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxDim || bounds.Dy() > maxDim {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}
	return encodeJPEG(img, data)
}

func encodeJPEG(img image.Image, original []byte) ([]byte, string) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return original, http.DetectContentType(original)
	}
	return buf.Bytes(), "image/jpeg"
}
