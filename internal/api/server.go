// Package api is the bridge's HTTP surface: health, the realtime drawing
// upgrade and the device pairing and configuration endpoints.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/benmeehan/pixie-bridge/internal/models"
	"github.com/benmeehan/pixie-bridge/internal/store"
	"github.com/benmeehan/pixie-bridge/internal/utils"
	"github.com/benmeehan/pixie-bridge/pkg/jwt"
)

// DeviceAdmin is the registry surface exposed over HTTP.
type DeviceAdmin interface {
	AddDevice(ctx context.Context, mac string) (*models.Device, error)
	Claim(ctx context.Context, code string, ownerID int64, name string) (*models.Device, error)
	ClaimByMAC(ctx context.Context, mac string, ownerID int64, name string) (*models.Device, error)
	UpdateConfig(ctx context.Context, deviceID, ownerID int64, patch models.ConfigPatch) (*models.Device, error)
	FactoryReset(ctx context.Context, deviceID, ownerID int64) error
	ShowPhoto(ctx context.Context, deviceID, ownerID, photoID int64) error
}

// DrawingArchive saves and restores canvases.
type DrawingArchive interface {
	Save(ctx context.Context, deviceID, userID int64, title string) (*models.Drawing, error)
	Load(ctx context.Context, deviceID, userID, drawingID int64) (*models.Drawing, error)
	List(ctx context.Context, deviceID, userID int64) ([]models.Drawing, error)
}

// Realtime serves an authenticated websocket upgrade.
type Realtime interface {
	ServeHTTP(w http.ResponseWriter, r *http.Request, user models.User)
}

// BrokerStatus reports broker connectivity.
type BrokerStatus interface {
	IsConnected() bool
}

// SessionCounter reports live drawing sessions.
type SessionCounter interface {
	ActiveSessions() int
}

// Options configures the HTTP server.
type Options struct {
	Listen         string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
	AdminKey       string
}

// Server owns the gin engine and its http.Server.
type Server struct {
	opts     Options
	devices  DeviceAdmin
	drawings DrawingArchive
	realtime Realtime
	broker   BrokerStatus
	sessions SessionCounter
	tokens   jwt.ValidatorInterface
	users    store.UserStore
	logger   zerolog.Logger

	router *gin.Engine

	mu     sync.Mutex
	server *http.Server
	done   chan error
}

func NewServer(opts Options, devices DeviceAdmin, drawings DrawingArchive, realtime Realtime, broker BrokerStatus, sessions SessionCounter,
	tokens jwt.ValidatorInterface, users store.UserStore, logger zerolog.Logger) *Server {
	s := &Server{
		opts:     opts,
		devices:  devices,
		drawings: drawings,
		realtime: realtime,
		broker:   broker,
		sessions: sessions,
		tokens:   tokens,
		users:    users,
		logger:   logger,
	}
	s.router = s.routes()
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(s.logger))

	corsConfig := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type", adminKeyHeader},
		MaxAge:       12 * time.Hour,
	}
	if origins := utils.NormalizeOrigins(s.opts.AllowedOrigins); len(origins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", s.health)
	router.GET("/ws", s.authenticate(), s.websocket)

	admin := router.Group("/admin", s.requireAdminKey())
	admin.POST("/pixies", s.addDevice)

	pixies := router.Group("/pixies", s.authenticate())
	pixies.POST("/claim", s.claim)
	pixies.POST("/register/:mac", s.claimByMAC)
	pixies.PATCH("/:id/config", s.updateConfig)
	pixies.POST("/:id/factory-reset", s.factoryReset)
	pixies.POST("/:id/photo", s.showPhoto)
	pixies.GET("/:id/drawings", s.listDrawings)
	pixies.POST("/:id/drawings", s.saveDrawing)
	pixies.GET("/:id/drawings/:drawingId", s.loadDrawing)

	return router
}

// Start begins serving in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		s.logger.Warn().Msg("HTTP server is already running")
		return errors.New("http server is already running")
	}

	ln, err := net.Listen("tcp", s.opts.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Listen, err)
	}

	s.server = &http.Server{
		Addr:         ln.Addr().String(),
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}
	s.done = make(chan error, 1)

	srv, done := s.server, s.done
	go func() {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			s.logger.Error().Err(err).Str("listen", srv.Addr).Msg("HTTP server failed")
		}
		done <- err
	}()

	s.logger.Info().Str("listen", srv.Addr).Msg("HTTP server started successfully")
	return nil
}

// Stop shuts the server down, waiting for in-flight requests up to the write timeout.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		s.logger.Warn().Msg("HTTP server is not running")
		return errors.New("http server is not running")
	}

	timeout := s.opts.WriteTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := s.server.Shutdown(ctx)
	if serveErr := <-s.done; err == nil {
		err = serveErr
	}
	s.server = nil

	s.logger.Info().Msg("HTTP server stopped")
	return err
}

// AllowedOrigins builds a websocket origin check from the configured origins.
// An empty list allows any origin.
func AllowedOrigins(origins []string) func(r *http.Request) bool {
	origins = utils.NormalizeOrigins(origins)
	if len(origins) == 0 {
		return nil
	}
	set := utils.SliceToSet(origins)
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.ToLower(origin)]
		return ok
	}
}
