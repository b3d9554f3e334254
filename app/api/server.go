package api

import (
	"careerai/app/config"
	"careerai/app/service/advisor"
	"careerai/app/service/assessment"
	"careerai/app/service/roadmap"
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/do"
)

const userHeader = "X-User-ID"

type Server struct {
	cfg        *config.Config
	app        *fiber.App
	advisor    *advisor.Service
	assessment *assessment.Service
	roadmap    *roadmap.Service

	// parent of every request context, cancelled on shutdown
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

func NewServer(cfg *config.Config, advisorService *advisor.Service, assessmentService *assessment.Service, roadmapService *roadmap.Service) *Server {
	s := &Server{
		cfg:        cfg,
		advisor:    advisorService,
		assessment: assessmentService,
		roadmap:    roadmapService,
	}
	s.baseCtx, s.cancelBase = context.WithCancel(context.Background())

	s.app = fiber.New(fiber.Config{
		AppName:               "careerai",
		DisableStartupMessage: true,
		Immutable:             true,
		ErrorHandler:          errorHandler,
	})

	s.app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	s.app.Use(requestid.New())
	s.app.Use(cors.New(cors.Config{
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Request-ID, " + userHeader,
		ExposeHeaders: "X-Request-ID",
	}))
	s.app.Use(tracing())
	s.app.Use(lifetime(s.baseCtx))
	s.app.Use(requestLogger())

	s.registerRoutes()

	return s
}

func New(di *do.Injector) (*Server, error) {
	return NewServer(
		do.MustInvoke[*config.Config](di),
		do.MustInvoke[*advisor.Service](di),
		do.MustInvoke[*assessment.Service](di),
		do.MustInvoke[*roadmap.Service](di),
	), nil
}

func (s *Server) registerRoutes() {
	s.app.Get("/", s.index)
	s.app.Get("/health", s.health)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	apiGroup := s.app.Group("/api")
	apiGroup.Post("/chat", timeout.NewWithContext(s.chat, s.cfg.HTTP.RequestTimeout))
	apiGroup.Post("/assessment", timeout.NewWithContext(s.assess, s.cfg.HTTP.RequestTimeout))

	items := apiGroup.Group("/roadmap/items")
	items.Get("/", s.listItems)
	items.Post("/", s.createItem)
	items.Get("/:id", s.getItem)
	items.Patch("/:id", s.updateItem)
	items.Delete("/:id", s.deleteItem)
}

func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", s.cfg.HTTP.Addr)
		errCh <- s.app.Listen(s.cfg.HTTP.Addr)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down HTTP server")
	case err := <-errCh:
		s.cancelBase()
		return err
	}

	return s.Shutdown()
}

// Shutdown stops accepting connections and waits for in-flight requests up
// to the shutdown timeout. Requests still running after that are cancelled.
func (s *Server) Shutdown() error {
	defer s.cancelBase()
	return s.app.ShutdownWithTimeout(s.cfg.HTTP.ShutdownTimeout)
}

func (s *Server) index(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Welcome to the Career AI API. See /api/... for endpoints.",
	})
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "ok",
		"aiAvailable": s.advisor.Available(),
	})
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	if code >= fiber.StatusInternalServerError {
		slog.ErrorContext(c.UserContext(), "Request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
		if fiberErr == nil {
			return c.Status(code).JSON(fiber.Map{"error": "Internal server error"})
		}
	}

	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
