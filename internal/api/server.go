package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pv-configurator/internal/recommend"
	"pv-configurator/internal/storage"
	"pv-configurator/internal/sysconfig"
)

type Server struct {
	router *gin.Engine
	server *http.Server
	ranker *recommend.Ranker
	engine *sysconfig.Engine
	db     *storage.Database
	port   int
}

type ServerConfig struct {
	Port     int
	Ranker   *recommend.Ranker
	Engine   *sysconfig.Engine
	Database *storage.Database
}

func NewServer(cfg ServerConfig) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	s := &Server{
		router: router,
		ranker: cfg.Ranker,
		engine: cfg.Engine,
		db:     cfg.Database,
		port:   cfg.Port,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler)

	api := s.router.Group("/api/v1")
	{
		api.GET("/accessories", s.accessoriesHandler)
		api.POST("/stringing", s.stringingHandler)

		project := api.Group("/projects/:projectID")
		project.GET("/recommendations/pv-modules", s.recommendPVModulesHandler)
		project.GET("/recommendations/inverters", s.recommendInvertersHandler)
		project.GET("/recommendations/batteries", s.recommendBatteriesHandler)

		project.GET("/configuration", s.getConfigurationHandler)
		project.PUT("/configuration", s.configureHandler)
		project.GET("/configuration/quote-gate", s.quoteGateHandler)
		project.PUT("/configuration/panels", s.updatePanelCountHandler)
		project.PUT("/configuration/inverter", s.swapInverterHandler)
		project.PUT("/configuration/inverter/units", s.setParallelUnitsHandler)
		project.PUT("/configuration/battery", s.setBatteryHandler)
		project.DELETE("/configuration/battery", s.removeBatteryHandler)
		project.PUT("/configuration/accessories", s.setAccessoriesHandler)
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("API server starting", "port", s.port)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) healthHandler(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK
	if err := s.db.Ping(c.Request.Context()); err != nil {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now(),
	})
}
