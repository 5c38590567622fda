// Package server exposes the engine's inbound surface: synchronous
// signal reads, the keepalive ping, the websocket subscription stream
// and the Prometheus scrape endpoint.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"depthsignal/config"
	"depthsignal/internal/aggregator"
	"depthsignal/internal/enrichment"
	"depthsignal/logger"
)

// Server hosts the Gin-powered API for the aggregation engine.
type Server struct {
	cfg        config.ServerConfig
	log        *logger.Log
	agg        *aggregator.Aggregator
	enrich     *enrichment.Service
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// NewServer constructs the API server when the feature is enabled.
// When disabled the returned server is nil and safe to Run.
func NewServer(cfg config.ServerConfig, agg *aggregator.Aggregator, enrich *enrichment.Service) *Server {
	if !cfg.Enabled {
		return nil
	}

	return &Server{
		cfg:    cfg,
		log:    logger.GetLogger(),
		agg:    agg,
		enrich: enrich,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Run starts the HTTP server and blocks until the context is
// cancelled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	if s == nil {
		return nil
	}

	log := s.log.WithComponent("server")

	router := s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         s.cfg.Address,
		Handler:      router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	// Websocket pushes outlive the normal write timeout.
	s.httpServer.WriteTimeout = 0

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logger.Fields{"address": s.cfg.Address}).Info("server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server shutdown failed")
		return err
	}
	log.Info("server stopped")
	return nil
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/ping", s.handlePing)
	router.GET("/api/signals", s.handleSignals)
	router.GET("/api/enrichment", s.handleEnrichment)
	router.GET("/ws", s.handleSubscribe)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return router
}

func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

func (s *Server) handleSignals(c *gin.Context) {
	set, err := s.agg.Signals(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, set)
}

func (s *Server) handleEnrichment(c *gin.Context) {
	if s.enrich == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "enrichment disabled"})
		return
	}
	c.JSON(http.StatusOK, s.enrich.Snapshot(c.Request.Context()))
}

// handleSubscribe upgrades the connection and streams every snapshot
// the aggregator publishes. The subscriber is pruned when it cannot
// keep up or disconnects.
func (s *Server) handleSubscribe(c *gin.Context) {
	log := s.log.WithComponent("server")

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub, err := s.agg.Subscribe(c.Request.Context())
	if err != nil {
		log.WithError(err).Warn("subscription failed")
		return
	}
	defer func() {
		_ = s.agg.Unsubscribe(context.Background(), sub.ID)
	}()

	// Reader goroutine surfaces the client closing the connection.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case set, ok := <-sub.C:
			if !ok {
				// Pruned by the aggregator.
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(set); err != nil {
				log.WithError(err).WithFields(logger.Fields{
					"subscriber": sub.ID.String(),
				}).Warn("snapshot push failed")
				return
			}
		}
	}
}
