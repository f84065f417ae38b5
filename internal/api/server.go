package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akriventsev/bankcore/internal/observability"
)

// ServerConfig конфигурация HTTP сервера
type ServerConfig struct {
	Port          int
	BasePath      string
	Mode          string // "debug", "release", "test"
	EnableTracing bool
	ServiceName   string
}

// DefaultServerConfig возвращает конфигурацию сервера по умолчанию
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:        8080,
		BasePath:    "/api/v1",
		Mode:        gin.ReleaseMode,
		ServiceName: "bankcore",
	}
}

// Server HTTP сервер банковского API
type Server struct {
	config  ServerConfig
	router  *gin.Engine
	handler *Handler
	issuer  *TokenIssuer
	logger  *zap.Logger
	server  *http.Server
	running bool
}

// NewServer создает HTTP сервер и регистрирует маршруты
func NewServer(config ServerConfig, handler *Handler, issuer *TokenIssuer, metricsHandler http.Handler, logger *zap.Logger) *Server {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	if config.EnableTracing {
		router.Use(observability.HTTPTracingMiddleware(config.ServiceName))
		router.Use(observability.CorrelationIDMiddleware())
	}

	s := &Server{
		config:  config,
		router:  router,
		handler: handler,
		issuer:  issuer,
		logger:  logger,
	}
	s.registerRoutes(metricsHandler)
	return s
}

func (s *Server) registerRoutes(metricsHandler http.Handler) {
	s.router.GET("/healthz", s.handler.Health)
	if metricsHandler != nil {
		s.router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	base := s.router.Group(s.config.BasePath)
	base.POST("/signup", s.handler.Signup)
	base.POST("/login", s.handler.Login)

	account := base.Group("/account")
	account.Use(AuthMiddleware(s.issuer))
	account.GET("", s.handler.GetAccount)
	account.DELETE("", s.handler.CloseAccount)
	account.GET("/balance", s.handler.GetBalance)
	account.POST("/deposit", s.handler.Deposit)
	account.POST("/withdraw", s.handler.Withdraw)
	account.POST("/transfer", s.handler.Transfer)
	account.PUT("/password", s.handler.ChangePassword)
	account.GET("/overdraft", s.handler.GetOverdraftLimit)
	account.PUT("/overdraft", s.handler.SetOverdraftLimit)

	accounts := base.Group("/accounts")
	accounts.Use(AuthMiddleware(s.issuer))
	accounts.GET("", s.handler.ListAccounts)
}

// Router возвращает gin router, используется в тестах
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start запускает HTTP сервер
func (s *Server) Start(ctx context.Context) error {
	s.running = true
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.router,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server failed", zap.Error(err))
		}
	}()

	s.logger.Info("http server started", zap.Int("port", s.config.Port))
	return nil
}

// Stop останавливает HTTP сервер с graceful shutdown
func (s *Server) Stop(ctx context.Context) error {
	s.running = false
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
	return nil
}

// IsRunning проверяет, запущен ли сервер
func (s *Server) IsRunning() bool {
	return s.running
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}
