// session.go - Die eine laufende Inversion der Web-Ansicht
// Enthaelt: session, startSession(), Server.replace(), Server.reset()

package server

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/latentlab/ganinvert/display"
	"github.com/latentlab/ganinvert/domain"
	"github.com/latentlab/ganinvert/inversion"
)

type session struct {
	id      uuid.UUID
	domain  domain.Domain
	sample  domain.Sample
	total   int
	started time.Time

	rec    *display.Recorder
	cancel context.CancelFunc
	done   chan struct{}

	// err ist erst nach done gueltig
	err error
}

func (s *session) finished() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// stop bricht den Lauf ab und wartet auf sein Ende
func (s *session) stop() {
	s.cancel()
	<-s.done
}

// RunRequest startet eine neue Sitzung
type RunRequest struct {
	Domain     string `json:"domain"`
	Sample     string `json:"sample"`
	Iterations int    `json:"iterations,omitempty"`
	LatentType string `json:"latent_type,omitempty"`
}

// startSession bereitet Modell und Ziel vor und startet die Schleife im Hintergrund
func (s *Server) startSession(req RunRequest) (*session, error) {
	d, err := domain.Lookup(req.Domain)
	if err != nil {
		return nil, err
	}
	sample, err := d.ResolveSample(s.cfg.DataDir, req.Sample)
	if err != nil {
		return nil, err
	}

	opts := s.cfg.Options
	if req.Iterations > 0 {
		opts.Iterations = req.Iterations
	}
	if req.LatentType != "" {
		opts.LatentType = req.LatentType
	}

	model, err := s.models.get(d)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	logger := s.logger.With("session", id.String(), "domain", d.Name, "sample", sample.Key)
	inv, err := model.NewInverter(opts, logger)
	if err != nil {
		return nil, err
	}

	target, err := inversion.LoadTarget(sample.Path, opts.Transform)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		id:      id,
		domain:  d,
		sample:  sample,
		total:   opts.Iterations,
		started: time.Now(),
		rec:     display.NewRecorder(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(sess.done)
		defer cancel()
		_, err := inv.Run(ctx, target, sess.rec)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("inversion fehlgeschlagen", "error", err)
			sess.err = err
		}
	}()

	return sess, nil
}

// replace beendet die alte Sitzung und setzt die neue als aktuell
func (s *Server) replace(next *session) {
	s.mu.Lock()
	prev := s.current
	s.current = next
	close(s.swapped)
	s.swapped = make(chan struct{})
	s.mu.Unlock()

	if prev != nil {
		prev.stop()
		s.logger.Info("sitzung ersetzt", "session", prev.id.String())
	}
}

// reset beendet die aktuelle Sitzung ohne Nachfolger
func (s *Server) reset() bool {
	s.mu.Lock()
	had := s.current != nil
	s.mu.Unlock()
	s.replace(nil)
	return had
}

// Shutdown beendet eine laufende Sitzung
func (s *Server) Shutdown() {
	s.reset()
}

func (s *Server) session() (*session, <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.swapped
}

// State ist die JSON-Sicht auf die aktuelle Sitzung
type State struct {
	ID         string      `json:"id,omitempty"`
	Domain     string      `json:"domain,omitempty"`
	Sample     string      `json:"sample,omitempty"`
	Running    bool        `json:"running"`
	Iteration  int         `json:"iteration"`
	Total      int         `json:"total"`
	Progress   float64     `json:"progress"`
	Coordinate *Coordinate `json:"coordinate,omitempty"`
	Readout    string      `json:"readout,omitempty"`
	Trace      []Point     `json:"trace"`
	Labels     []Label     `json:"references"`
	Loss       *Loss       `json:"loss,omitempty"`
	Error      string      `json:"error,omitempty"`
	Elapsed    string      `json:"elapsed,omitempty"`
}

type Coordinate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type Point struct {
	Iteration int     `json:"iteration"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

type Label struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label"`
}

type Loss struct {
	Total      float64 `json:"total"`
	Perceptual float64 `json:"perceptual"`
	MSE        float64 `json:"mse"`
	LR         float32 `json:"lr"`
}

func (s *session) state() State {
	// Erst Ende pruefen, dann lesen: ein beendeter Lauf liefert so immer den letzten Stand
	running := !s.finished()
	snap := s.rec.Snapshot()
	st := State{
		ID:        s.id.String(),
		Domain:    string(s.domain.Name),
		Sample:    s.sample.Key,
		Running:   running,
		Iteration: snap.Iteration,
		Total:     s.total,
		Progress:  snap.Progress,
		Trace:     make([]Point, 0, len(snap.Trace)),
		Labels:    make([]Label, 0, len(s.domain.References)),
		Elapsed:   time.Since(s.started).Round(time.Millisecond).String(),
	}

	if snap.Coordinates > 0 {
		c := snap.Coordinate
		st.Coordinate = &Coordinate{X: c.X, Y: c.Y, Z: c.Z}
		st.Readout = display.FormatCoordinate(c)
	}
	for _, p := range snap.Trace {
		st.Trace = append(st.Trace, Point{Iteration: p.Iteration, X: p.X, Y: p.Y})
	}
	for _, r := range s.domain.References {
		st.Labels = append(st.Labels, Label{X: r.X, Y: r.Y, Label: r.Label})
	}
	if f := snap.Frame; f.Iteration > 0 {
		st.Loss = &Loss{Total: f.Loss, Perceptual: f.Perceptual, MSE: f.Pixel, LR: f.LR}
	}
	if !st.Running && s.err != nil {
		st.Error = s.err.Error()
	}
	return st
}

func idleState() State {
	return State{Trace: []Point{}, Labels: []Label{}}
}
