package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/latentlab/ganinvert/domain"
	"github.com/latentlab/ganinvert/generator"
	"github.com/latentlab/ganinvert/inversion"
	"github.com/latentlab/ganinvert/projector"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testDim = 8

func testModel(t *testing.T, d domain.Domain) *inversion.Model {
	t.Helper()
	rng := rand.New(rand.NewPCG(1, 1))
	p := func(shape ...int) *generator.Param {
		n := 1
		for _, s := range shape {
			n *= s
		}
		data := make([]float32, n)
		for i := range data {
			data[i] = float32(rng.NormFloat64() * 0.3)
		}
		return &generator.Param{Shape: shape, Data: data}
	}

	g, err := generator.FromMap(map[string]*generator.Param{
		"style.0.weight":   p(testDim, testDim),
		"style.0.bias":     p(testDim),
		"synthesis.weight": p(6, testDim),
		"synthesis.bias":   p(6),
		"to_rgb.0.weight":  p(3*4*4, 6),
		"to_rgb.1.weight":  p(3*8*8, 6),
	})
	require.NoError(t, err)

	comps := make([]float64, 3*testDim)
	for i := range comps {
		comps[i] = rng.NormFloat64()
	}
	proj, err := projector.NewPCA(mat.NewDense(3, testDim, comps), nil)
	require.NoError(t, err)

	return &inversion.Model{Domain: d, Generator: g, Projector: proj}
}

func writePNG(t *testing.T, path string, c color.RGBA) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := range 8 {
		for x := range 8 {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

type testServer struct {
	*Server
	handler http.Handler
	loads   atomic.Int32
}

func newTestServer(t *testing.T, iterations int) *testServer {
	t.Helper()
	dir := t.TempDir()
	for i, name := range []string{"a", "b", "c"} {
		writePNG(t, filepath.Join(dir, domain.SampleRoot, string(domain.Dog), name+".png"), color.RGBA{R: uint8(80 * i), G: 120, B: 200, A: 255})
	}
	writePNG(t, filepath.Join(dir, domain.SampleRoot, string(domain.Celebs), "irene.png"), color.RGBA{R: 200, G: 150, B: 130, A: 255})
	writePNG(t, filepath.Join(dir, "outside.png"), color.RGBA{A: 255})

	opts := inversion.DefaultOptions()
	opts.Iterations = iterations
	opts.Transform.Size = 8

	ts := &testServer{}
	ts.Server = NewServer(Config{
		DataDir: dir,
		Options: opts,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Loader: func(d domain.Domain) (*inversion.Model, error) {
			ts.loads.Add(1)
			return testModel(t, d), nil
		},
	})
	ts.handler = ts.GenerateRoutes()
	t.Cleanup(ts.Shutdown)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func (ts *testServer) state(t *testing.T) State {
	t.Helper()
	w := ts.do(t, http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	return st
}

func (ts *testServer) waitDone(t *testing.T) State {
	t.Helper()
	var st State
	require.Eventually(t, func() bool {
		st = ts.state(t)
		return !st.Running
	}, 10*time.Second, 10*time.Millisecond)
	return st
}

func TestIndex(t *testing.T) {
	ts := newTestServer(t, 1)
	w := ts.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "EventSource")
	assert.Contains(t, w.Body.String(), "RESET")
}

func TestDomains(t *testing.T) {
	ts := newTestServer(t, 1)
	w := ts.do(t, http.MethodGet, "/api/domains", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Domains []domainResponse `json:"domains"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Domains, 5)

	celebs := resp.Domains[4]
	assert.Equal(t, "celebs", celebs.Name)
	assert.Equal(t, "FFHQ", celebs.Generator)
	assert.Equal(t, "pca(FFHQ).pickle", celebs.Projector)
	assert.Equal(t, "name", celebs.SelectBy)
	assert.True(t, celebs.HasReferences)

	assert.Equal(t, "index", resp.Domains[0].SelectBy)
	assert.False(t, resp.Domains[0].HasReferences)
}

func TestSamples(t *testing.T) {
	ts := newTestServer(t, 1)

	w := ts.do(t, http.MethodGet, "/api/domains/Dog/samples", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Samples []sampleResponse `json:"samples"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []sampleResponse{{Key: "1", File: "b.png"}, {Key: "2", File: "c.png"}}, resp.Samples)

	cases := map[string]string{
		"unknown domain": "/api/domains/Dgo/samples",
		"missing dir":    "/api/domains/Cat/samples",
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			w := ts.do(t, http.MethodGet, path, nil)
			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Contains(t, w.Body.String(), "error")
		})
	}

	w = ts.do(t, http.MethodGet, "/api/domains/Dgo/samples", nil)
	assert.Contains(t, w.Body.String(), "Dog")
}

func TestRunValidation(t *testing.T) {
	ts := newTestServer(t, 1)

	cases := []struct {
		name   string
		body   any
		status int
	}{
		{"no body", nil, http.StatusBadRequest},
		{"unknown domain", RunRequest{Domain: "cows"}, http.StatusNotFound},
		{"unknown sample", RunRequest{Domain: "Dog", Sample: "7"}, http.StatusNotFound},
		{"hidden first sample", RunRequest{Domain: "Dog", Sample: "0"}, http.StatusNotFound},
		{"unknown celeb", RunRequest{Domain: "celebs", Sample: "nobody"}, http.StatusNotFound},
		{"celeb outside sample dir", RunRequest{Domain: "celebs", Sample: "../../outside"}, http.StatusNotFound},
		{"latent type", RunRequest{Domain: "Dog", LatentType: "mean"}, http.StatusBadRequest},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/api/run", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	st := ts.state(t)
	assert.Empty(t, st.ID)
	assert.False(t, st.Running)
}

func TestRunToCompletion(t *testing.T) {
	ts := newTestServer(t, 120)

	w := ts.do(t, http.MethodPost, "/api/run", RunRequest{Domain: "celebs", Sample: "irene"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var started State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	assert.NotEmpty(t, started.ID)
	assert.Equal(t, 120, started.Total)

	st := ts.waitDone(t)
	assert.Equal(t, started.ID, st.ID)
	assert.Empty(t, st.Error)
	assert.Equal(t, 120, st.Iteration)
	assert.InDelta(t, 1.0, st.Progress, 1e-9)
	require.NotNil(t, st.Coordinate)
	assert.True(t, strings.HasPrefix(st.Readout, "Coordinate | x:"))
	require.Len(t, st.Trace, 2)
	assert.Equal(t, 1, st.Trace[0].Iteration)
	assert.Equal(t, 101, st.Trace[1].Iteration)
	assert.NotEmpty(t, st.Labels)
	require.NotNil(t, st.Loss)

	for _, kind := range []string{"target", "prediction", "plot"} {
		w := ts.do(t, http.MethodGet, "/api/images/"+kind, nil)
		require.Equal(t, http.StatusOK, w.Code, kind)
		assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
		_, err := png.Decode(w.Body)
		assert.NoError(t, err, kind)
	}

	// zweiter Lauf derselben Domaene nutzt das geladene Modell
	w = ts.do(t, http.MethodPost, "/api/run", RunRequest{Domain: "celebs", Sample: "irene", Iterations: 3})
	require.Equal(t, http.StatusAccepted, w.Code)
	st = ts.waitDone(t)
	assert.Equal(t, 3, st.Iteration)
	assert.Equal(t, int32(1), ts.loads.Load())
}

func TestRunReplacesSession(t *testing.T) {
	ts := newTestServer(t, 1_000_000)

	w := ts.do(t, http.MethodPost, "/api/run", RunRequest{Domain: "Dog"})
	require.Equal(t, http.StatusAccepted, w.Code)
	first, _ := ts.session()
	require.NotNil(t, first)

	w = ts.do(t, http.MethodPost, "/api/run", RunRequest{Domain: "Dog", Sample: "2", Iterations: 2})
	require.Equal(t, http.StatusAccepted, w.Code)

	assert.True(t, first.finished())
	assert.NoError(t, first.err)

	st := ts.waitDone(t)
	assert.NotEqual(t, first.id.String(), st.ID)
	assert.Equal(t, "2", st.Sample)
}

func TestReset(t *testing.T) {
	ts := newTestServer(t, 1_000_000)

	w := ts.do(t, http.MethodPost, "/api/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"reset","stopped":false}`, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/run", RunRequest{Domain: "Dog"})
	require.Equal(t, http.StatusAccepted, w.Code)
	sess, _ := ts.session()

	w = ts.do(t, http.MethodPost, "/api/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"reset","stopped":true}`, w.Body.String())
	assert.True(t, sess.finished())

	st := ts.state(t)
	assert.Empty(t, st.ID)
	assert.Nil(t, st.Coordinate)
	assert.Equal(t, 0.0, st.Progress)

	w = ts.do(t, http.MethodGet, "/api/images/prediction", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// leerer Plot ist immer verfuegbar
	w = ts.do(t, http.MethodGet, "/api/images/plot?size=64", nil)
	require.Equal(t, http.StatusOK, w.Code)
	img, err := png.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
}

func TestUnknownImage(t *testing.T) {
	ts := newTestServer(t, 1)
	w := ts.do(t, http.MethodGet, "/api/images/latent", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `\"latent\"`)
}

func TestEvents(t *testing.T) {
	ts := newTestServer(t, 5)
	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan State)
	go func() {
		defer close(events)
		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for sc.Scan() {
			data, ok := strings.CutPrefix(sc.Text(), "data:")
			if !ok {
				continue
			}
			var st State
			if json.Unmarshal([]byte(data), &st) == nil {
				select {
				case events <- st:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	first := <-events
	assert.Empty(t, first.ID)

	w := ts.do(t, http.MethodPost, "/api/run", RunRequest{Domain: "Dog"})
	require.Equal(t, http.StatusAccepted, w.Code)

	for st := range events {
		if st.ID != "" && !st.Running {
			assert.Equal(t, 5, st.Iteration)
			return
		}
	}
	t.Fatal("stream endete ohne abgeschlossenen lauf")
}

func TestAllowedHosts(t *testing.T) {
	r := gin.New()
	r.Use(allowedHostsMiddleware(&net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 8501}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	cases := map[string]int{
		"localhost:8501":   http.StatusOK,
		"127.0.0.1:8501":   http.StatusOK,
		"[::1]:8501":       http.StatusOK,
		"192.168.1.4":      http.StatusOK,
		"gan.local":        http.StatusOK,
		"box.internal:80":  http.StatusOK,
		"example.com":      http.StatusForbidden,
		"8.8.8.8:8501":     http.StatusForbidden,
		"localhost.evil.x": http.StatusForbidden,
	}
	for host, status := range cases {
		t.Run(host, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Host = host
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, status, w.Code)
		})
	}

	t.Run("public listener", func(t *testing.T) {
		r := gin.New()
		r.Use(allowedHostsMiddleware(&net.TCPAddr{IP: net.IPv4(0, 0, 0, 0), Port: 8501}))
		r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = "example.com"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(domain.ErrUnknownDomain))
	assert.Equal(t, http.StatusBadRequest, statusFor(inversion.ErrInvalidOptions))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(projector.ErrArtifactMissing))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
