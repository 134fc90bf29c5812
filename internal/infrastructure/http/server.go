package http

import (
	"context"
	"net/http"

	handlers "github.com/familu/entitlement-service/internal/adapter/handler/http"
	"github.com/familu/entitlement-service/internal/config"
	"github.com/familu/entitlement-service/internal/middleware/auth"
	"github.com/familu/entitlement-service/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Services are the use cases exposed over HTTP.
type Services struct {
	Catalog    handlers.CatalogReader
	Search     handlers.DirectorySearcher
	Account    handlers.AccountReader
	Checkout   handlers.CheckoutStarter
	Reconciler handlers.SessionReconciler
	Webhook    handlers.WebhookProcessor
}

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	services Services
}

func NewServer(cfg *config.Config, log *zap.Logger, services Services) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewRequestValidator()

	logger.WithEchoLogger(e, log)

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(logger.NewEchoRequestLogger(log))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Service.ClientURL},
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))

	s := &Server{
		config:   cfg,
		logger:   log,
		echo:     e,
		services: services,
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	addr := s.config.Server.HTTP.Address()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	catalogHandler := handlers.NewCatalogHandler(s.services.Catalog, s.logger)
	searchHandler := handlers.NewSearchHandler(s.services.Search, s.logger)
	accountHandler := handlers.NewAccountHandler(s.services.Account, s.logger)
	checkoutHandler := handlers.NewCheckoutHandler(s.services.Checkout, s.services.Reconciler, s.logger)
	webhookHandler := handlers.NewWebhookHandler(s.services.Webhook, s.logger)

	jwtConfig := auth.JWTConfig{
		Secret: s.config.JWT.Secret,
		Issuer: s.config.JWT.Issuer,
		Logger: s.logger,
	}
	optionalConfig := jwtConfig
	optionalConfig.Optional = true

	v1 := s.echo.Group("/api/v1")

	// Public catalog
	v1.GET("/categories", catalogHandler.GetCategories)
	v1.GET("/categories/one-time", catalogHandler.GetOneTimeOffers)

	// Directory reads are open to anonymous viewers and redacted per identity
	browse := v1.Group("", auth.JWTMiddleware(optionalConfig))
	browse.GET("/search", searchHandler.Search)
	browse.GET("/profiles/:type/:id", searchHandler.GetProfile)

	protected := v1.Group("", auth.JWTMiddleware(jwtConfig))
	protected.GET("/access", accountHandler.GetAccess)
	protected.GET("/purchases", accountHandler.GetPurchases)
	protected.POST("/checkout", checkoutHandler.CreateCheckout)
	protected.GET("/checkout/sessions/:sessionId", checkoutHandler.CheckSessionStatus)
	protected.POST("/subscriptions/portal", checkoutHandler.CreatePortalSession)

	// Webhook route (outside API versioning)
	s.echo.POST("/webhook", webhookHandler.HandleWebhook)
}
