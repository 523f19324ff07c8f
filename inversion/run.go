package inversion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Run fuehrt alle Iterationen aus und veroeffentlicht jeden Frame.
// Ein abgebrochener Context beendet den Lauf zwischen zwei Iterationen.
func (inv *Inverter) Run(ctx context.Context, target *Target, sink ProgressSink) (*State, error) {
	if sink == nil {
		sink = Discard
	}

	s, err := inv.NewState(target)
	if err != nil {
		return nil, err
	}

	runID := uuid.New()
	logger := inv.logger.With("run", runID.String())
	logger.Info("inversion gestartet",
		"experiment", inv.opts.ExpDetail,
		"target", target.Path,
		"gpu", inv.opts.GPUNum,
		"options", inv.opts)

	if ts, ok := sink.(TargetSink); ok {
		ts.PublishTarget(target.Raw)
	}

	start := time.Now()
	for !s.Done() {
		if err := ctx.Err(); err != nil {
			logger.Info("inversion abgebrochen", "iteration", s.Iteration, "duration", time.Since(start))
			return s, err
		}

		f, err := inv.Step(s)
		if err != nil {
			return s, err
		}

		publish(sink, f, s)

		if f.Iteration%TraceEvery == 0 {
			logger.Debug("fortschritt",
				"iteration", f.Iteration,
				"loss", f.Loss,
				"perceptual", f.Perceptual,
				"mse", f.Pixel,
				"lr", f.LR,
				slog.Group("coord", "x", f.Coordinate.X, "y", f.Coordinate.Y, "z", f.Coordinate.Z))
		}
	}

	logger.Info("inversion beendet", "iterations", s.Iteration, "trace", len(s.Trace), "duration", time.Since(start))
	return s, nil
}

func publish(sink ProgressSink, f Frame, s *State) {
	sink.PublishImage(f.Iteration, f.Image)
	sink.PublishCoordinate(f.Iteration, f.Coordinate)
	if f.TraceAppended {
		if ts, ok := sink.(TraceSink); ok {
			ts.PublishTrace(f.Iteration, append([]TracePoint(nil), s.Trace...))
		}
	}
	if fs, ok := sink.(FrameSink); ok {
		fs.PublishFrame(f)
	}
	sink.PublishProgress(f.Iteration, f.Progress)
}

// Describe fasst einen Frame fuer Log- und Textausgaben zusammen
func (f Frame) Describe() string {
	return fmt.Sprintf("iteration %d/%d | loss:%.4f | lpips:%.4f, mse:%.4f | lr:%.2e",
		f.Iteration, f.Total, f.Loss, f.Perceptual, f.Pixel, f.LR)
}
