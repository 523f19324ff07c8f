// handlers.go - HTTP-Handler der Web-Ansicht
// Enthaelt: Index, Domains, Samples, Run, Reset, State, Events, Image

package server

import (
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/latentlab/ganinvert/display"
	"github.com/latentlab/ganinvert/domain"
	"github.com/latentlab/ganinvert/inversion"
	"github.com/latentlab/ganinvert/projector"
	"github.com/latentlab/ganinvert/vision"
)

const plotSize = 480

// statusFor ordnet Fehler einem HTTP-Status zu
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownDomain),
		errors.Is(err, domain.ErrUnknownSample),
		errors.Is(err, domain.ErrSampleDirMissing),
		errors.Is(err, domain.ErrNoSamples):
		return http.StatusNotFound
	case errors.Is(err, inversion.ErrUnknownLatentType),
		errors.Is(err, inversion.ErrInvalidOptions),
		errors.Is(err, vision.ErrInvalidTransform):
		return http.StatusBadRequest
	case errors.Is(err, projector.ErrArtifactMissing), errors.Is(err, os.ErrNotExist):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) IndexHandler(c *gin.Context) {
	page, err := assets.ReadFile("index.html")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

type domainResponse struct {
	Name          string `json:"name"`
	Generator     string `json:"generator"`
	Projector     string `json:"projector"`
	SelectBy      string `json:"select_by"`
	HasReferences bool   `json:"has_references"`
}

func (s *Server) DomainsHandler(c *gin.Context) {
	var resp []domainResponse
	for _, d := range domain.All() {
		selectBy := "index"
		if d.SelectByName {
			selectBy = "name"
		}
		resp = append(resp, domainResponse{
			Name:          string(d.Name),
			Generator:     string(d.GeneratorDomain),
			Projector:     filepath.Base(d.ProjectorPath("")),
			SelectBy:      selectBy,
			HasReferences: len(d.References) > 0,
		})
	}
	c.JSON(http.StatusOK, gin.H{"domains": resp})
}

type sampleResponse struct {
	Key  string `json:"key"`
	File string `json:"file"`
}

func (s *Server) SamplesHandler(c *gin.Context) {
	d, err := domain.Lookup(c.Param("domain"))
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	samples, err := d.Samples(s.cfg.DataDir)
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	resp := make([]sampleResponse, 0, len(samples))
	for _, sample := range samples {
		resp = append(resp, sampleResponse{Key: sample.Key, File: filepath.Base(sample.Path)})
	}
	c.JSON(http.StatusOK, gin.H{"domain": d.Name, "samples": resp})
}

func (s *Server) RunHandler(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); errors.Is(err, io.EOF) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing request body"})
		return
	} else if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := s.startSession(req)
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	s.replace(sess)

	s.logger.Info("sitzung gestartet", "session", sess.id.String(), "domain", sess.domain.Name, "sample", sess.sample.Key, "iterations", sess.total)
	c.JSON(http.StatusAccepted, sess.state())
}

func (s *Server) ResetHandler(c *gin.Context) {
	stopped := s.reset()
	c.JSON(http.StatusOK, gin.H{"status": "reset", "stopped": stopped})
}

func (s *Server) StateHandler(c *gin.Context) {
	sess, _ := s.session()
	if sess == nil {
		c.JSON(http.StatusOK, idleState())
		return
	}
	c.JSON(http.StatusOK, sess.state())
}

// EventsHandler sendet den Zustand nach jeder Iteration als Server-Sent Event
func (s *Server) EventsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	for {
		sess, swapped := s.session()

		var changed, done <-chan struct{}
		state := idleState()
		if sess != nil {
			changed = sess.rec.Changed()
			done = sess.done
			state = sess.state()
		}

		c.SSEvent("state", state)
		c.Writer.Flush()

		// Nach dem Ende sendet nur noch ein Sitzungswechsel
		if sess != nil && !state.Running {
			done = nil
			changed = nil
		}

		select {
		case <-ctx.Done():
			return
		case <-swapped:
		case <-changed:
		case <-done:
		}
	}
}

// ImageHandler liefert target, prediction oder plot als PNG
func (s *Server) ImageHandler(c *gin.Context) {
	sess, _ := s.session()

	var img image.Image
	switch kind := c.Param("kind"); kind {
	case "target", "prediction":
		if sess == nil {
			break
		}
		snap := sess.rec.Snapshot()
		if kind == "target" && snap.Target != nil {
			img = snap.Target
		} else if kind == "prediction" && snap.Image != nil {
			img = snap.Image
		}
	case "plot":
		plot := display.NewPlot(nil)
		if sess != nil {
			snap := sess.rec.Snapshot()
			plot.References = sess.domain.References
			plot.Trace = snap.Trace
			if snap.Coordinates > 0 {
				plot.Current = &snap.Coordinate
			}
		}
		size := plotSize
		if v, err := strconv.Atoi(c.Query("size")); err == nil && v >= 64 && v <= 2048 {
			size = v
		}
		img = plot.RenderImage(size)
	default:
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown image " + strconv.Quote(kind)})
		return
	}

	if img == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no image yet"})
		return
	}

	c.Header("Content-Type", "image/png")
	c.Status(http.StatusOK)
	if err := png.Encode(c.Writer, img); err != nil {
		s.logger.Warn("png kodieren", "error", err)
	}
}
