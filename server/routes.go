// routes.go - Router der Web-Ansicht
// Enthaelt: Server, NewServer(), GenerateRoutes()

package server

import (
	"embed"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/latentlab/ganinvert/domain"
	"github.com/latentlab/ganinvert/envconfig"
	"github.com/latentlab/ganinvert/inversion"
)

//go:embed index.html
var assets embed.FS

// ModelLoader laedt die Bausteine einer Domaene
type ModelLoader func(d domain.Domain) (*inversion.Model, error)

// Config bestimmt, womit neue Sitzungen gestartet werden
type Config struct {
	DataDir string
	Options inversion.Options
	Loader  ModelLoader
	Logger  *slog.Logger
}

// Server haelt genau eine Inversions-Sitzung
type Server struct {
	addr    net.Addr
	cfg     Config
	logger  *slog.Logger
	models  *modelCache
	mu      sync.Mutex
	current *session
	swapped chan struct{}
}

func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.DataDir == "" {
		cfg.DataDir = envconfig.DataDir()
	}
	if cfg.Loader == nil {
		dataDir := cfg.DataDir
		cfg.Loader = func(d domain.Domain) (*inversion.Model, error) {
			return inversion.LoadModel(dataDir, d, "")
		}
	}

	return &Server{
		cfg:     cfg,
		logger:  cfg.Logger,
		models:  newModelCache(cfg.Loader),
		swapped: make(chan struct{}),
	}
}

func (s *Server) GenerateRoutes() http.Handler {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowWildcard = true
	corsConfig.AllowBrowserExtensions = true
	corsConfig.AllowHeaders = []string{
		"Content-Type",
		"Accept",
		"X-Requested-With",
		"Cache-Control",
	}
	corsConfig.AllowOrigins = envconfig.AllowedOrigins()

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(
		gin.Recovery(),
		requestLogger(s.logger),
		cors.New(corsConfig),
		allowedHostsMiddleware(s.addr),
	)

	r.GET("/", s.IndexHandler)
	r.HEAD("/", s.IndexHandler)

	api := r.Group("/api", noCacheMiddleware())
	api.GET("/domains", s.DomainsHandler)
	api.GET("/domains/:domain/samples", s.SamplesHandler)
	api.POST("/run", s.RunHandler)
	api.POST("/reset", s.ResetHandler)
	api.GET("/state", s.StateHandler)
	api.GET("/events", s.EventsHandler)
	api.GET("/images/:kind", s.ImageHandler)

	return r
}

// modelCache laedt jede Domaene nur einmal
type modelCache struct {
	mu     sync.Mutex
	load   ModelLoader
	models map[domain.Name]*inversion.Model
}

func newModelCache(load ModelLoader) *modelCache {
	return &modelCache{load: load, models: make(map[domain.Name]*inversion.Model)}
}

func (c *modelCache) get(d domain.Domain) (*inversion.Model, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.models[d.Name]; ok {
		return m, nil
	}
	m, err := c.load(d)
	if err != nil {
		return nil, err
	}
	c.models[d.Name] = m
	return m, nil
}
