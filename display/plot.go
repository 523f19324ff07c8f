// plot.go - Scatter-Plot der Optimierungs-Trajektorie
// Hauptfunktionen: Plot.RenderText, Plot.RenderImage, Plot.WritePNG
package display

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/latentlab/ganinvert/domain"
	"github.com/latentlab/ganinvert/inversion"
)

// PlotLimit begrenzt beide Achsen auf [-PlotLimit, PlotLimit]
const PlotLimit = 7.5

var (
	referenceColor = colorful.Color{R: 0.122, G: 0.467, B: 0.706}
	traceStart     = colorful.Color{R: 1, G: 0.7, B: 0.7}
	traceEnd       = colorful.Color{R: 0.8, G: 0, B: 0}
	axisColor      = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	frameColor     = color.RGBA{R: 60, G: 60, B: 60, A: 255}
)

// Plot ist der 2D-Plot aus Referenzpunkten, Trajektorie und aktueller Position
type Plot struct {
	Limit      float64
	References []domain.ReferencePoint
	Trace      []inversion.TracePoint

	// Current ist optional und wird nicht Teil der Trajektorie
	Current *inversion.Coordinate
}

// NewPlot erstellt einen Plot mit den Standardgrenzen
func NewPlot(refs []domain.ReferencePoint) *Plot {
	return &Plot{Limit: PlotLimit, References: refs}
}

// TraceColor ist die Farbe des i-ten von n Trajektorienpunkten (hell nach dunkel)
func TraceColor(i, n int) colorful.Color {
	if n <= 1 {
		return traceEnd
	}
	return traceStart.BlendLab(traceEnd, float64(i)/float64(n-1)).Clamped()
}

// project bildet (x, y) auf ein Raster mit w Spalten und h Zeilen ab
func (p *Plot) project(x, y float64, w, h int) (int, int, bool) {
	limit := p.limit()
	if math.IsNaN(x) || math.IsNaN(y) || math.Abs(x) > limit || math.Abs(y) > limit {
		return 0, 0, false
	}
	col := int(math.Round((x + limit) / (2 * limit) * float64(w-1)))
	row := int(math.Round((limit - y) / (2 * limit) * float64(h-1)))
	return col, row, true
}

func (p *Plot) limit() float64 {
	if p.Limit <= 0 {
		return PlotLimit
	}
	return p.Limit
}

type cell struct {
	r     rune
	color string
}

// RenderText zeichnet den Plot als Textraster; colored schaltet ANSI-Farben ein
func (p *Plot) RenderText(w, h int, colored bool) []string {
	if w < 3 || h < 3 {
		return nil
	}

	grid := make([][]cell, h)
	for i := range grid {
		grid[i] = make([]cell, w)
		for j := range grid[i] {
			grid[i][j] = cell{r: ' '}
		}
	}

	col0, row0, _ := p.project(0, 0, w, h)
	for x := range w {
		grid[row0][x] = cell{r: '─', color: ColorGrey}
	}
	for y := range h {
		grid[y][col0] = cell{r: '│', color: ColorGrey}
	}
	grid[row0][col0] = cell{r: '┼', color: ColorGrey}

	for _, ref := range p.References {
		col, row, ok := p.project(ref.X, ref.Y, w, h)
		if !ok {
			continue
		}
		grid[row][col] = cell{r: 'o', color: ColorBlue}

		// Beschriftung rechts vom Punkt, soweit Platz ist
		label := runewidth.Truncate(ref.Label, w-col-2, "")
		x := col + 2
		for _, r := range label {
			if x >= w {
				break
			}
			grid[row][x] = cell{r: r}
			x += runewidth.RuneWidth(r)
		}
	}

	for i, pt := range p.Trace {
		col, row, ok := p.project(pt.X, pt.Y, w, h)
		if !ok {
			continue
		}
		grid[row][col] = cell{r: '●', color: fg(TraceColor(i, len(p.Trace)))}
	}

	if p.Current != nil {
		if col, row, ok := p.project(p.Current.X, p.Current.Y, w, h); ok {
			grid[row][col] = cell{r: '+', color: ColorBold + ColorRed}
		}
	}

	lines := make([]string, h)
	for i, row := range grid {
		var sb strings.Builder
		for _, c := range row {
			if colored && c.color != "" {
				sb.WriteString(c.color)
				sb.WriteRune(c.r)
				sb.WriteString(ColorDefault)
			} else {
				sb.WriteRune(c.r)
			}
		}
		lines[i] = sb.String()
	}
	return lines
}

// RenderImage zeichnet den Plot als quadratisches Bild
func (p *Plot) RenderImage(size int) *image.RGBA {
	if size < 16 {
		size = 16
	}
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	col0, row0, _ := p.project(0, 0, size, size)
	for i := range size {
		img.Set(i, row0, axisColor)
		img.Set(col0, i, axisColor)
		img.Set(i, 0, frameColor)
		img.Set(i, size-1, frameColor)
		img.Set(0, i, frameColor)
		img.Set(size-1, i, frameColor)
	}

	radius := max(2, size/120)
	face := basicfont.Face7x13
	for _, ref := range p.References {
		x, y, ok := p.project(ref.X, ref.Y, size, size)
		if !ok {
			continue
		}
		disc(img, x, y, radius, referenceColor)

		d := font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(color.Black),
			Face: face,
			Dot:  fixed.P(x+radius+2, y+face.Ascent/2),
		}
		d.DrawString(ref.Label)
	}

	for i, pt := range p.Trace {
		if x, y, ok := p.project(pt.X, pt.Y, size, size); ok {
			disc(img, x, y, radius, TraceColor(i, len(p.Trace)))
		}
	}

	if p.Current != nil {
		if x, y, ok := p.project(p.Current.X, p.Current.Y, size, size); ok {
			for d := -2 * radius; d <= 2*radius; d++ {
				img.Set(x+d, y, traceEnd)
				img.Set(x, y+d, traceEnd)
			}
		}
	}
	return img
}

// WritePNG schreibt RenderImage als PNG
func (p *Plot) WritePNG(w io.Writer, size int) error {
	return png.Encode(w, p.RenderImage(size))
}

func disc(img *image.RGBA, cx, cy, r int, c color.Color) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				img.Set(cx+dx, cy+dy, c)
			}
		}
	}
}
