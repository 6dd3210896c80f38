package report

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	domerrors "github.com/garyellow/lnmu-portal/internal/errors"
)

// LogicalWidth is the report width before the pixel ratio is applied.
const LogicalWidth = 900

const (
	pad          = 24.0
	headerHeight = 80.0
	photoWidth   = 112.0
	photoHeight  = 128.0
	qrSize       = 120.0
	columnGap    = 16.0
	barHeight    = 36.0
	cellPad      = 16.0
	cellGap      = 8.0
	fieldGap     = 4.0
	rowHeight    = 32.0
	signHeight   = 56.0
	lineFactor   = 1.4
)

var (
	white       = color.RGBA{0xff, 0xff, 0xff, 0xff}
	headerBlue  = color.RGBA{0x1e, 0x40, 0xaf, 0xff}
	headerMuted = color.RGBA{0xbf, 0xdb, 0xfe, 0xff}
	sectionBlue = color.RGBA{0x1d, 0x4e, 0xd8, 0xff}
	tableHead   = color.RGBA{0xdb, 0xea, 0xfe, 0xff}
	panel       = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	frame       = color.RGBA{0xd1, 0xd5, 0xdb, 0xff}
	rule        = color.RGBA{0xe5, 0xe7, 0xeb, 0xff}
	imageFrame  = color.RGBA{0x60, 0xa5, 0xfa, 0xff}
	labelInk    = color.RGBA{0x4b, 0x55, 0x63, 0xff}
	valueInk    = color.RGBA{0x1f, 0x29, 0x37, 0xff}
	captionInk  = color.RGBA{0x37, 0x41, 0x51, 0xff}
	ink         = color.RGBA{0x11, 0x18, 0x27, 0xff}
)

type style struct {
	size float64
	bold bool
	ink  color.Color
}

var (
	titleStyle    = style{size: 18, bold: true, ink: white}
	subtitleStyle = style{size: 12, ink: headerMuted}
	labelStyle    = style{size: 13, bold: true, ink: labelInk}
	valueStyle    = style{size: 13, ink: valueInk}
	barStyle      = style{size: 14, bold: true, ink: white}
	headCellStyle = style{size: 12, bold: true, ink: ink}
	cellStyle     = style{size: 12, ink: ink}
	captionStyle  = style{size: 12, ink: captionInk}
)

// Renderer rasterizes report documents.
type Renderer struct {
	regular *opentype.Font
	bold    *opentype.Font
	ratio   int
}

// NewRenderer creates a renderer producing LogicalWidth*pixelRatio wide images.
func NewRenderer(pixelRatio int) (*Renderer, error) {
	if pixelRatio < 1 {
		return nil, fmt.Errorf("pixel ratio %d: %w", pixelRatio, domerrors.ErrInvalidInput)
	}
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	return &Renderer{regular: regular, bold: bold, ratio: pixelRatio}, nil
}

// PixelRatio returns the device pixels per logical pixel.
func (r *Renderer) PixelRatio() int {
	return r.ratio
}

// Render draws doc on an opaque white canvas. Nil assets leave their frames
// empty.
func (r *Renderer) Render(doc Document, assets Assets) (*image.RGBA, error) {
	scale := float64(r.ratio)
	faces := &faceSet{regular: r.regular, bold: r.bold, scale: scale, faces: make(map[faceKey]font.Face)}
	defer faces.close()

	height := layout(&canvas{scale: scale, faces: faces}, doc, assets)
	if faces.err != nil {
		return nil, fmt.Errorf("load font face: %w", faces.err)
	}

	img := image.NewRGBA(image.Rect(0, 0, LogicalWidth*r.ratio, int(math.Ceil(height*scale))))
	draw.Draw(img, img.Bounds(), image.NewUniform(white), image.Point{}, draw.Src)
	layout(&canvas{img: img, scale: scale, faces: faces}, doc, assets)
	return img, nil
}

func layout(c *canvas, doc Document, a Assets) float64 {
	const width = float64(LogicalWidth)

	c.fill(0, 0, width, headerHeight, headerBlue)
	c.text(pad, 14, doc.Title, titleStyle)
	c.text(pad, 14+c.lineHeight(titleStyle)+4, doc.Subtitle, subtitleStyle)
	y := headerHeight

	y = drawProfile(c, y, doc, a)
	y = drawSection(c, y, "Admission Details", doc.Admission)
	y = drawEducation(c, y, doc.Education)
	y = drawSignature(c, y, a.Signature)

	c.box(0, 0, width, y, 1, frame)
	return y
}

func drawProfile(c *canvas, y float64, doc Document, a Assets) float64 {
	const width = float64(LogicalWidth)
	infoX := pad + photoWidth + columnGap
	infoW := width - infoX - columnGap - qrSize - pad
	qrX := width - pad - qrSize

	infoH := drawFields(c.dry(), infoX, 0, infoW, doc.Personal)
	total := math.Max(math.Max(photoHeight, qrSize), infoH) + 2*pad

	c.fill(0, y, width, total, panel)
	c.picture(a.Photo, pad, y+pad, photoWidth, photoHeight)
	c.box(pad, y+pad, photoWidth, photoHeight, 2, imageFrame)
	drawFields(c, infoX, y+pad, infoW, doc.Personal)
	c.picture(a.QRCode, qrX, y+pad, qrSize, qrSize)
	c.box(qrX, y+pad, qrSize, qrSize, 1, frame)
	return y + total
}

// drawFields stacks label/value pairs and returns the height used.
func drawFields(c *canvas, x, y, w float64, fields []Field) float64 {
	cy := y
	for i, f := range fields {
		if i > 0 {
			cy += fieldGap
		}
		c.text(x, cy, c.fit(f.Label+":", w, labelStyle), labelStyle)
		cy += c.lineHeight(labelStyle)
		for _, line := range c.wrap(f.Value, w, valueStyle) {
			c.text(x, cy, line, valueStyle)
			cy += c.lineHeight(valueStyle)
		}
	}
	return cy - y
}

func drawBar(c *canvas, y float64, title string) {
	c.fill(pad, y, LogicalWidth-2*pad, barHeight, sectionBlue)
	c.text(pad+cellPad, y+(barHeight-c.lineHeight(barStyle))/2, title, barStyle)
}

func drawSection(c *canvas, y float64, title string, fields []Field) float64 {
	const width = float64(LogicalWidth)
	colW := (width - 2*pad - 2*cellPad - cellGap) / 2

	rows := (len(fields) + 1) / 2
	rowHeights := make([]float64, rows)
	for i, f := range fields {
		h := drawFields(c.dry(), 0, 0, colW, []Field{f})
		rowHeights[i/2] = math.Max(rowHeights[i/2], h)
	}
	gridH := 2 * cellPad
	for i, h := range rowHeights {
		if i > 0 {
			gridH += cellGap
		}
		gridH += h
	}
	total := barHeight + gridH + cellPad

	c.fill(0, y, width, total, panel)
	drawBar(c, y, title)
	gy := y + barHeight
	c.box(pad, gy, width-2*pad, gridH, 1, frame)

	cy := gy + cellPad
	for i, f := range fields {
		col := float64(i % 2)
		drawFields(c, pad+cellPad+col*(colW+cellGap), cy, colW, []Field{f})
		if i%2 == 1 || i == len(fields)-1 {
			cy += rowHeights[i/2] + cellGap
		}
	}
	return y + total
}

func drawEducation(c *canvas, y float64, rows []QualificationRow) float64 {
	const width = float64(LogicalWidth)
	headers := []string{"Class", "Board", "Year", "Marks", "Percentage"}
	tableW := width - 2*pad
	colW := tableW / float64(len(headers))
	total := barHeight + rowHeight*float64(len(rows)+1) + pad

	c.fill(0, y, width, total, panel)
	drawBar(c, y, "Educational Qualification")

	ty := y + barHeight
	c.fill(pad, ty, tableW, rowHeight, tableHead)
	drawRow(c, ty, colW, headers, headCellStyle)
	for i, row := range rows {
		cells := []string{row.Class, row.Board, row.Year, row.Marks, row.Percentage}
		drawRow(c, ty+rowHeight*float64(i+1), colW, cells, cellStyle)
	}
	return y + total
}

func drawRow(c *canvas, y, colW float64, cells []string, st style) {
	ty := y + (rowHeight-c.lineHeight(st))/2
	for i, cell := range cells {
		x := pad + float64(i)*colW
		c.box(x, y, colW, rowHeight, 1, frame)
		c.centered(x, ty, colW, c.fit(cell, colW-8, st), st)
	}
}

func drawSignature(c *canvas, y float64, sig image.Image) float64 {
	const width = float64(LogicalWidth)
	total := pad + signHeight + cellGap + c.lineHeight(captionStyle) + pad

	signW := 160.0
	if sig != nil && sig.Bounds().Dy() > 0 {
		b := sig.Bounds()
		signW = signHeight * float64(b.Dx()) / float64(b.Dy())
		signW = math.Min(math.Max(signW, signHeight), 320)
	}
	x := (width - signW) / 2

	c.fill(0, y, width, total, panel)
	c.fill(0, y, width, 1, rule)
	c.picture(sig, x, y+pad, signW, signHeight)
	c.box(x, y+pad, signW, signHeight, 2, imageFrame)
	c.centered(0, y+pad+signHeight+cellGap, width, "Student Signature", captionStyle)
	return y + total
}

// canvas draws in logical coordinates. With a nil img it only measures.
type canvas struct {
	img   *image.RGBA
	scale float64
	faces *faceSet
}

func (c *canvas) dry() *canvas {
	return &canvas{scale: c.scale, faces: c.faces}
}

func (c *canvas) dev(v float64) int {
	return int(math.Round(v * c.scale))
}

func (c *canvas) fill(x, y, w, h float64, col color.Color) {
	if c.img == nil {
		return
	}
	r := image.Rect(c.dev(x), c.dev(y), c.dev(x+w), c.dev(y+h))
	draw.Draw(c.img, r, image.NewUniform(col), image.Point{}, draw.Src)
}

func (c *canvas) box(x, y, w, h, t float64, col color.Color) {
	c.fill(x, y, w, t, col)
	c.fill(x, y+h-t, w, t, col)
	c.fill(x, y, t, h, col)
	c.fill(x+w-t, y, t, h, col)
}

// picture scales src to cover the box, cropping the overflow.
func (c *canvas) picture(src image.Image, x, y, w, h float64) {
	if c.img == nil || src == nil || w <= 0 || h <= 0 {
		return
	}
	dst := image.Rect(c.dev(x), c.dev(y), c.dev(x+w), c.dev(y+h))
	draw.CatmullRom.Scale(c.img, dst, src, coverRect(src.Bounds(), w/h), draw.Over, nil)
}

func coverRect(b image.Rectangle, aspect float64) image.Rectangle {
	bw, bh := float64(b.Dx()), float64(b.Dy())
	if bw == 0 || bh == 0 || aspect <= 0 {
		return b
	}
	if bw/bh > aspect {
		cw := int(math.Round(bh * aspect))
		off := (b.Dx() - cw) / 2
		return image.Rect(b.Min.X+off, b.Min.Y, b.Min.X+off+cw, b.Max.Y)
	}
	ch := int(math.Round(bw / aspect))
	off := (b.Dy() - ch) / 2
	return image.Rect(b.Min.X, b.Min.Y+off, b.Max.X, b.Min.Y+off+ch)
}

func (c *canvas) lineHeight(st style) float64 {
	return st.size * lineFactor
}

func (c *canvas) width(s string, st style) float64 {
	return float64(font.MeasureString(c.faces.get(st), s)) / 64 / c.scale
}

// text draws s with the top of its line box at y.
func (c *canvas) text(x, y float64, s string, st style) {
	if c.img == nil || s == "" {
		return
	}
	face := c.faces.get(st)
	m := face.Metrics()
	ascent := float64(m.Ascent) / 64
	descent := float64(m.Descent) / 64
	baseline := y*c.scale + (c.lineHeight(st)*c.scale-(ascent+descent))/2 + ascent

	d := font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(st.ink),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(x * c.scale * 64), Y: fixed.Int26_6(baseline * 64)},
	}
	d.DrawString(s)
}

func (c *canvas) centered(x, y, w float64, s string, st style) {
	c.text(x+(w-c.width(s, st))/2, y, s, st)
}

// wrap breaks s into lines no wider than maxWidth, splitting words that do
// not fit on a line of their own.
func (c *canvas) wrap(s string, maxWidth float64, st style) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	line := ""
	for _, w := range words {
		for utf8.RuneCountInString(w) > 1 && c.width(w, st) > maxWidth {
			if line != "" {
				lines = append(lines, line)
				line = ""
			}
			head, tail := c.split(w, maxWidth, st)
			lines = append(lines, head)
			w = tail
		}
		if line == "" {
			line = w
			continue
		}
		if candidate := line + " " + w; c.width(candidate, st) <= maxWidth {
			line = candidate
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

func (c *canvas) split(w string, maxWidth float64, st style) (string, string) {
	runes := []rune(w)
	n := 1
	for n < len(runes)-1 && c.width(string(runes[:n+1]), st) <= maxWidth {
		n++
	}
	return string(runes[:n]), string(runes[n:])
}

// fit truncates s with an ellipsis so it fits in maxWidth.
func (c *canvas) fit(s string, maxWidth float64, st style) string {
	if c.width(s, st) <= maxWidth {
		return s
	}
	runes := []rune(s)
	for len(runes) > 1 {
		runes = runes[:len(runes)-1]
		if candidate := string(runes) + "…"; c.width(candidate, st) <= maxWidth {
			return candidate
		}
	}
	return string(runes)
}

type faceKey struct {
	size float64
	bold bool
}

// faceSet caches faces for one render. Faces are not safe for concurrent use.
type faceSet struct {
	regular *opentype.Font
	bold    *opentype.Font
	scale   float64
	faces   map[faceKey]font.Face
	err     error
}

func (f *faceSet) get(st style) font.Face {
	key := faceKey{size: st.size, bold: st.bold}
	if face, ok := f.faces[key]; ok {
		return face
	}
	src := f.regular
	if st.bold {
		src = f.bold
	}
	face, err := opentype.NewFace(src, &opentype.FaceOptions{
		Size:    st.size * f.scale,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		if f.err == nil {
			f.err = err
		}
		face = basicfont.Face7x13
	}
	f.faces[key] = face
	return face
}

func (f *faceSet) close() {
	for _, face := range f.faces {
		_ = face.Close()
	}
}
