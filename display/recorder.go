// recorder.go - In-Memory-Sink fuer Web-Ansicht und Tests
package display

import (
	"image"
	"sync"

	"github.com/latentlab/ganinvert/inversion"
)

// Snapshot ist der zuletzt veroeffentlichte Zustand eines Laufs
type Snapshot struct {
	Target     *image.RGBA
	Image      *image.RGBA
	Coordinate inversion.Coordinate
	Trace      []inversion.TracePoint
	Frame      inversion.Frame
	Iteration  int
	Progress   float64

	// Counts zaehlt die Aufrufe je Publish-Methode
	Images      int
	Coordinates int
	Traces      int
	Progresses  int
}

// Recorder merkt sich alle Veroeffentlichungen; sicher fuer einen Schreiber
// und beliebig viele Leser
type Recorder struct {
	mu      sync.Mutex
	snap    Snapshot
	history []float64
	changed chan struct{}
}

var (
	_ inversion.ProgressSink = (*Recorder)(nil)
	_ inversion.TraceSink    = (*Recorder)(nil)
	_ inversion.TargetSink   = (*Recorder)(nil)
	_ inversion.FrameSink    = (*Recorder)(nil)
)

func NewRecorder() *Recorder {
	return &Recorder{changed: make(chan struct{})}
}

func (r *Recorder) PublishTarget(img *image.RGBA) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.Target = img
}

func (r *Recorder) PublishImage(_ int, img *image.RGBA) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.Image = img
	r.snap.Images++
}

func (r *Recorder) PublishCoordinate(_ int, c inversion.Coordinate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.Coordinate = c
	r.snap.Coordinates++
}

func (r *Recorder) PublishTrace(_ int, trace []inversion.TracePoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.Trace = trace
	r.snap.Traces++
}

func (r *Recorder) PublishFrame(f inversion.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.Frame = f
}

// PublishProgress schliesst eine Iteration ab und weckt alle Wartenden
func (r *Recorder) PublishProgress(iteration int, fraction float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.Iteration = iteration
	r.snap.Progress = fraction
	r.snap.Progresses++
	r.history = append(r.history, fraction)

	close(r.changed)
	r.changed = make(chan struct{})
}

// Changed wird beim naechsten abgeschlossenen Fortschritt geschlossen
func (r *Recorder) Changed() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.changed
}

// Snapshot gibt eine Kopie des aktuellen Zustands zurueck
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.snap
	s.Trace = append([]inversion.TracePoint(nil), r.snap.Trace...)
	return s
}

// Progress gibt alle veroeffentlichten Fortschrittswerte zurueck
func (r *Recorder) Progress() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.history...)
}
