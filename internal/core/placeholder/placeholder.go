// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package placeholder renders the still image used when every provider failed
// for a slot. The image is a pure function of the segment's style, emotion and
// concept text, so a rerun of the same request produces byte-identical files.
//
// Logic Flow:
//  1. A canvas at a quarter of the output resolution is filled with a vertical
//     gradient taken from the emotion palette.
//  2. Decorative shapes are drawn according to the style tag, positioned by a
//     PRNG seeded from an FNV hash of the tags and concept.
//  3. The concept text and style are written as a label.
//  4. The canvas is upscaled to the output resolution and encoded as PNG.
package placeholder

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/jaycherian/gcp-go-shorts-assembly/internal/core/model"
)

// ProviderID is recorded as the provider of every placeholder asset.
const ProviderID = "placeholder"

// downscale is the ratio between the output size and the drawing canvas.
const downscale = 4

type palette struct {
	top, bottom color.RGBA
}

var palettes = map[string]palette{
	"inspiring":  {color.RGBA{255, 215, 0, 255}, color.RGBA{255, 140, 0, 255}},
	"powerful":   {color.RGBA{128, 0, 128, 255}, color.RGBA{255, 0, 255, 255}},
	"confident":  {color.RGBA{0, 100, 200, 255}, color.RGBA{0, 200, 255, 255}},
	"ambitious":  {color.RGBA{255, 0, 0, 255}, color.RGBA{255, 100, 100, 255}},
	"successful": {color.RGBA{0, 128, 0, 255}, color.RGBA{144, 238, 144, 255}},
}

var (
	gold  = color.RGBA{255, 215, 0, 255}
	white = color.RGBA{255, 255, 255, 255}
	shade = color.RGBA{0, 0, 0, 160}
)

// Renderer writes placeholder PNGs of Width x Height into Dir.
type Renderer struct {
	Width  int
	Height int
	Dir    string
}

// NewRenderer creates a renderer for the given frame size.
func NewRenderer(width, height int, dir string) *Renderer {
	return &Renderer{Width: width, Height: height, Dir: dir}
}

// Render writes the placeholder for segment and returns its path. The name
// carries the slot index and a random suffix so concurrent runs never share a
// file; the content depends only on the segment.
func (r *Renderer) Render(segment model.VisualSegment, index int) (string, error) {
	data, err := r.Encode(segment)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating placeholder directory %s: %w", r.Dir, err)
	}
	path := filepath.Join(r.Dir, fmt.Sprintf("placeholder-%03d-%s.png", index, uuid.NewString()))
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing placeholder %s: %w", path, err)
	}
	return path, nil
}

// Encode returns the PNG bytes of the placeholder for segment.
func (r *Renderer) Encode(segment model.VisualSegment) ([]byte, error) {
	width, height := r.Width, r.Height
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid placeholder size %dx%d", width, height)
	}
	cw, ch := max(width/downscale, 1), max(height/downscale, 1)
	canvas := image.NewRGBA(image.Rect(0, 0, cw, ch))

	style := strings.ToLower(segment.Style())
	emotion := strings.ToLower(segment.Emotion())
	rng := rand.New(rand.NewPCG(Seed(segment), 0x9e3779b97f4a7c15))

	p, ok := palettes[emotion]
	if !ok {
		p = palettes[model.DefaultEmotionTag]
	}
	fillGradient(canvas, p)

	switch style {
	case "luxury":
		for range 5 {
			cx, cy := rng.IntN(cw), rng.IntN(ch)
			radius := 5 + rng.IntN(max(cw/6, 6))
			drawCircle(canvas, cx, cy, radius, gold)
		}
	case "modern":
		for range 8 {
			x0, y0 := rng.IntN(cw), rng.IntN(ch)
			x1, y1 := rng.IntN(cw), rng.IntN(ch)
			drawLine(canvas, x0, y0, x1, y1, white)
		}
	case "abstract":
		for range 6 {
			cx, cy := rng.IntN(cw), rng.IntN(ch)
			radius := 4 + rng.IntN(max(cw/8, 5))
			drawPolygon(canvas, cx, cy, radius, 6, rng.Float64()*math.Pi, white)
		}
	}

	drawLabel(canvas, labelLines(segment.ConceptText, style, cw))

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(out, out.Bounds(), canvas, canvas.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encoding placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

// Seed returns the PRNG seed for segment: an FNV-1a hash of style, emotion and
// concept text.
func Seed(segment model.VisualSegment) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToLower(segment.Style())))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strings.ToLower(segment.Emotion())))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(segment.ConceptText))
	return h.Sum64()
}

func fillGradient(img *image.RGBA, p palette) {
	b := img.Bounds()
	span := max(b.Dy()-1, 1)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		t := float64(y-b.Min.Y) / float64(span)
		c := color.RGBA{
			R: lerp(p.top.R, p.bottom.R, t),
			G: lerp(p.top.G, p.bottom.G, t),
			B: lerp(p.top.B, p.bottom.B, t),
			A: 255,
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

func drawCircle(img *image.RGBA, cx, cy, r int, c color.RGBA) {
	for y := cy - r - 1; y <= cy+r+1; y++ {
		for x := cx - r - 1; x <= cx+r+1; x++ {
			d := math.Hypot(float64(x-cx), float64(y-cy))
			if math.Abs(d-float64(r)) <= 0.75 {
				setIn(img, x, y, c)
			}
		}
	}
}

// drawLine is Bresenham's algorithm.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		setIn(img, x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func drawPolygon(img *image.RGBA, cx, cy, r, sides int, rotation float64, c color.RGBA) {
	px := make([]int, sides)
	py := make([]int, sides)
	for i := range sides {
		a := rotation + 2*math.Pi*float64(i)/float64(sides)
		px[i] = cx + int(math.Round(float64(r)*math.Cos(a)))
		py[i] = cy + int(math.Round(float64(r)*math.Sin(a)))
	}
	for i := range sides {
		j := (i + 1) % sides
		drawLine(img, px[i], py[i], px[j], py[j], c)
	}
}

func setIn(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// labelLines wraps the concept text to the canvas width and appends the style.
func labelLines(concept, style string, width int) []string {
	face := basicfont.Face7x13
	perLine := max((width-8)/face.Advance, 1)

	var lines []string
	var current string
	for _, word := range strings.Fields(concept) {
		for len(word) > perLine {
			if current != "" {
				lines = append(lines, current)
				current = ""
			}
			lines = append(lines, word[:perLine])
			word = word[perLine:]
		}
		switch {
		case current == "":
			current = word
		case len(current)+1+len(word) <= perLine:
			current += " " + word
		default:
			lines = append(lines, current)
			current = word
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	if len(lines) > 6 {
		lines = lines[:6]
	}
	tag := "[" + style + "]"
	if len(tag) > perLine {
		tag = tag[:perLine]
	}
	return append(lines, tag)
}

// drawLabel writes lines centred on a translucent band in the middle of img.
func drawLabel(img *image.RGBA, lines []string) {
	face := basicfont.Face7x13
	lineHeight := face.Height + 2
	b := img.Bounds()
	bandHeight := lineHeight*len(lines) + 8
	top := b.Min.Y + (b.Dy()-bandHeight)/2
	band := image.Rect(b.Min.X, top, b.Max.X, top+bandHeight)
	draw.Draw(img, band, image.NewUniform(shade), image.Point{}, draw.Over)

	d := &font.Drawer{Dst: img, Src: image.NewUniform(white), Face: face}
	for i, line := range lines {
		w := d.MeasureString(line).Ceil()
		x := b.Min.X + (b.Dx()-w)/2
		y := top + 4 + face.Ascent + i*lineHeight
		d.Dot = fixed.P(x, y)
		d.DrawString(line)
	}
}
