package image

import (
	"bytes"
	"fmt"
	stdimage "image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"strings"
	"sync"

	"setka/internal/domain"
)

// formatMaxSide bounds the template so the upload stays small.
const formatMaxSide = 1024

var formatCache sync.Map

// FormatImage renders the black template whose shape tells a text-to-image
// model which aspect ratio to produce. Results are cached per size.
func FormatImage(ar domain.AspectRatio, resolution string) ([]byte, error) {
	w, h := formatSize(ar, resolution)
	key := fmt.Sprintf("%dx%d", w, h)
	if cached, ok := formatCache.Load(key); ok {
		return cached.([]byte), nil
	}

	img := stdimage.NewRGBA(stdimage.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &stdimage.Uniform{C: color.RGBA{A: 255}}, stdimage.Point{}, draw.Src)

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("image: encode format template: %w", err)
	}
	data := buf.Bytes()
	formatCache.Store(key, data)
	return data, nil
}

func formatSize(ar domain.AspectRatio, resolution string) (int, int) {
	if !ar.ValidResolution(resolution) {
		resolution = ar.DefaultResolution()
	}
	w, h, ok := parseResolution(resolution)
	if !ok {
		rw, rh := ar.Dimensions()
		w, h = rw*formatMaxSide/max(rw, rh), rh*formatMaxSide/max(rw, rh)
	}
	if side := max(w, h); side > formatMaxSide {
		w = w * formatMaxSide / side
		h = h * formatMaxSide / side
	}
	return max(w, 1), max(h, 1)
}

func parseResolution(res string) (int, int, bool) {
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(res)), "x")
	if !ok {
		return 0, 0, false
	}
	w, err := strconv.Atoi(ws)
	if err != nil || w <= 0 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

func decodeDimensions(data []byte) (int, int) {
	cfg, _, err := stdimage.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
