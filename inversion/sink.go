package inversion

import "image"

// Coordinate ist die Position des Latents im PCA-Raum
type Coordinate struct {
	X, Y, Z float64
}

// TracePoint ist ein dauerhafter Punkt der Trajektorie
type TracePoint struct {
	Iteration int
	X, Y      float64
}

// ProgressSink empfaengt die Anzeige-Daten jeder Iteration
type ProgressSink interface {
	PublishImage(iteration int, img *image.RGBA)
	PublishCoordinate(iteration int, c Coordinate)
	PublishProgress(iteration int, fraction float64)
}

// TraceSink empfaengt die Trajektorie, wenn ein Punkt hinzukommt
type TraceSink interface {
	PublishTrace(iteration int, trace []TracePoint)
}

// TargetSink empfaengt das unveraenderte Zielbild vor der ersten Iteration
type TargetSink interface {
	PublishTarget(img *image.RGBA)
}

// FrameSink empfaengt den vollstaendigen Frame inklusive Verluste
type FrameSink interface {
	PublishFrame(f Frame)
}

// Discard verwirft alles
var Discard ProgressSink = discard{}

type discard struct{}

func (discard) PublishImage(int, *image.RGBA)     {}
func (discard) PublishCoordinate(int, Coordinate) {}
func (discard) PublishProgress(int, float64)      {}
