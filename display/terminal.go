// terminal.go - Live-Ansicht der Inversion im Terminal
// Hauptfunktionen: NewTerminal, DetectTerminal, Terminal.Publish*
package display

import (
	"fmt"
	"image"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/containerd/console"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/latentlab/ganinvert/domain"
	"github.com/latentlab/ganinvert/envconfig"
	"github.com/latentlab/ganinvert/inversion"
	"github.com/latentlab/ganinvert/vision"
)

const (
	defaultWidth = 80
	maxImageRows = 16
	plotHeight   = 21
	maxPlotWidth = 61
	plainEvery   = 100
)

// grauwerte fuer die Ansicht ohne Farben, dunkel nach hell
const asciiRamp = " .:-=+*#%@"

// FormatCoordinate ist die Koordinaten-Zeile der Anzeige
func FormatCoordinate(c inversion.Coordinate) string {
	return fmt.Sprintf("Coordinate | x:%.3f y:%.3f, z:%.3f", c.X, c.Y, c.Z)
}

// TerminalOptions steuert die Terminal-Ansicht
type TerminalOptions struct {
	Width        int
	Color        bool
	Plain        bool
	RefreshEvery int
	References   []domain.ReferencePoint
}

// DetectTerminal liest Breite und Faehigkeiten des Terminals hinter f
func DetectTerminal(f *os.File) TerminalOptions {
	opts := TerminalOptions{
		Width:        defaultWidth,
		Color:        !envconfig.NoColor(),
		Plain:        envconfig.PlainProgress(),
		RefreshEvery: int(envconfig.RefreshEvery()),
	}

	if !term.IsTerminal(int(f.Fd())) {
		opts.Plain = true
		opts.Color = false
		return opts
	}

	if runtime.GOOS == "windows" {
		// Aktiviert die VT-Verarbeitung der Windows-Konsole
		if c, err := console.ConsoleFromFile(f); err == nil {
			if ws, err := c.Size(); err == nil && ws.Width > 0 {
				opts.Width = int(ws.Width)
			}
			return opts
		}
	}

	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
		opts.Width = w
	}
	return opts
}

// Terminal ist ein inversion.ProgressSink fuer die Kommandozeile
type Terminal struct {
	out  io.Writer
	opts TerminalOptions

	target *image.RGBA
	recon  *image.RGBA
	coord  inversion.Coordinate
	trace  []inversion.TracePoint
	frame  inversion.Frame

	lines int
}

var (
	_ inversion.ProgressSink = (*Terminal)(nil)
	_ inversion.TraceSink    = (*Terminal)(nil)
	_ inversion.TargetSink   = (*Terminal)(nil)
	_ inversion.FrameSink    = (*Terminal)(nil)
)

func NewTerminal(out io.Writer, opts TerminalOptions) *Terminal {
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}
	if opts.RefreshEvery <= 0 {
		opts.RefreshEvery = 1
	}
	return &Terminal{out: out, opts: opts}
}

func (t *Terminal) PublishTarget(img *image.RGBA) { t.target = img }

func (t *Terminal) PublishImage(_ int, img *image.RGBA) { t.recon = img }

func (t *Terminal) PublishCoordinate(_ int, c inversion.Coordinate) { t.coord = c }

func (t *Terminal) PublishTrace(_ int, trace []inversion.TracePoint) { t.trace = trace }

func (t *Terminal) PublishFrame(f inversion.Frame) { t.frame = f }

// PublishProgress ist der letzte Aufruf jeder Iteration und loest das Zeichnen aus
func (t *Terminal) PublishProgress(iteration int, fraction float64) {
	last := fraction >= 1
	if t.opts.Plain {
		if iteration == 1 || iteration%plainEvery == 0 || last {
			fmt.Fprintf(t.out, "%s | %s\n", t.describe(iteration), FormatCoordinate(t.coord))
		}
		return
	}

	if iteration%t.opts.RefreshEvery != 0 && iteration != 1 && !last {
		return
	}
	t.redraw(iteration, fraction)
}

func (t *Terminal) describe(iteration int) string {
	if t.frame.Iteration == iteration {
		return t.frame.Describe()
	}
	return fmt.Sprintf("iteration %d", iteration)
}

// Close zeigt den Cursor wieder an
func (t *Terminal) Close() error {
	if !t.opts.Plain && t.lines > 0 {
		_, err := io.WriteString(t.out, CursorShow)
		return err
	}
	return nil
}

func (t *Terminal) redraw(iteration int, fraction float64) {
	var lines []string
	lines = append(lines, t.imageLines()...)
	lines = append(lines, FormatCoordinate(t.coord))

	plot := NewPlot(t.opts.References)
	plot.Trace = t.trace
	current := t.coord
	plot.Current = &current
	lines = append(lines, plot.RenderText(min(t.opts.Width, maxPlotWidth), plotHeight, t.opts.Color)...)

	lines = append(lines, t.progressBar(iteration, fraction), t.describe(iteration))

	var sb strings.Builder
	if t.lines == 0 {
		sb.WriteString(CursorHide)
	} else {
		sb.WriteString(CursorUpN(t.lines) + CursorBOL)
	}
	for _, l := range lines {
		sb.WriteString(l + ClearToEOL + "\n")
	}
	io.WriteString(t.out, sb.String()) //nolint:errcheck
	t.lines = len(lines)
}

// imageLines stellt Ziel und Rekonstruktion nebeneinander dar
func (t *Terminal) imageLines() []string {
	panel := (t.opts.Width - 3) / 2
	rows := min(panel/2, maxImageRows)
	if panel < 4 || rows < 2 {
		return nil
	}
	panel = rows * 2

	left := t.renderImage(t.target, panel, rows)
	right := t.renderImage(t.recon, panel, rows)

	lines := []string{center("Target Image", panel) + "   " + center("Prediction", panel)}
	for i := range rows {
		lines = append(lines, left[i]+"   "+right[i])
	}
	return lines
}

// renderImage gibt rows Zeilen mit je w Zeichen zurueck; jede Zeile deckt zwei Pixelreihen ab
func (t *Terminal) renderImage(img *image.RGBA, w, rows int) []string {
	out := make([]string, rows)
	if img == nil {
		for i := range out {
			out[i] = strings.Repeat(" ", w)
		}
		return out
	}

	px := vision.ScaleToFit(img, w, rows*2)
	b := px.Bounds()
	inside := func(x, y int) bool {
		return x < b.Dx() && y < b.Dy()
	}

	for r := range rows {
		var sb strings.Builder
		for x := range w {
			if !inside(x, 2*r) {
				sb.WriteByte(' ')
				continue
			}
			top := px.RGBAAt(b.Min.X+x, b.Min.Y+2*r)
			bottom := top
			if inside(x, 2*r+1) {
				bottom = px.RGBAAt(b.Min.X+x, b.Min.Y+2*r+1)
			}
			if t.opts.Color {
				sb.WriteString(fg(top) + bg(bottom) + "▀" + ColorDefault)
				continue
			}
			lum := (luma(top.R, top.G, top.B) + luma(bottom.R, bottom.G, bottom.B)) / 2
			sb.WriteByte(asciiRamp[int(lum*float64(len(asciiRamp)-1)+0.5)])
		}
		out[r] = sb.String()
	}
	return out
}

func luma(r, g, b uint8) float64 {
	return (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 255
}

func (t *Terminal) progressBar(iteration int, fraction float64) string {
	status := fmt.Sprintf(" %3.0f%% %d/%d", fraction*100, iteration, max(t.frame.Total, iteration))
	width := t.opts.Width - runewidth.StringWidth(status) - 2
	if width < 1 {
		return strings.TrimSpace(status)
	}

	fraction = min(max(fraction, 0), 1)
	filled := int(fraction * float64(width))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]" + status
}

func center(s string, width int) string {
	s = runewidth.Truncate(s, width, "")
	pad := width - runewidth.StringWidth(s)
	return strings.Repeat(" ", pad/2) + s + strings.Repeat(" ", pad-pad/2)
}
