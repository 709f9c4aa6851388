package server

import (
	"github.com/Yamuna-Lakshmanan/HelpNow/internal/alert"
	"github.com/Yamuna-Lakshmanan/HelpNow/internal/auth"
	"github.com/Yamuna-Lakshmanan/HelpNow/internal/config"
	"github.com/Yamuna-Lakshmanan/HelpNow/internal/contact"
	"github.com/Yamuna-Lakshmanan/HelpNow/internal/db"
	"github.com/Yamuna-Lakshmanan/HelpNow/internal/escort"
	"github.com/Yamuna-Lakshmanan/HelpNow/internal/history"
	"github.com/Yamuna-Lakshmanan/HelpNow/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
	Escort *escort.Service
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	hub := stream.NewHub(redisClient)

	var persist history.Persistence
	if redisClient != nil {
		persist = history.NewRedisPersistence(redisClient)
	} else {
		persist = history.NewMemoryPersistence()
	}

	contacts := contact.NewService(poolQuerier(db))
	dispatcher := alert.NewDispatcher(poolQuerier(db), contacts, nil)
	caller := alert.NewCaller(nil)

	policy := escort.Policy{
		CheckInInterval: cfg.CheckInInterval,
		CheckInTimeout:  cfg.CheckInTimeout,
		HomeRadiusM:     cfg.HomeRadiusM,
		EmergencyNumber: cfg.EmergencyNumber,
	}

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: hub,
		Escort: escort.NewService(policy, persist, hub, dispatcher, caller),
	}

	registerRoutes(s, contacts)
	return s
}

// poolQuerier avoids handing a typed-nil pool to code that checks its
// Querier against nil.
func poolQuerier(pool *pgxpool.Pool) db.Querier {
	if pool == nil {
		return nil
	}
	return pool
}

func registerRoutes(s *Server, contacts *contact.Service) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	escort.RegisterRoutes(s.App.Group("/escort"), s.Escort, jwtMiddleware)
	contact.RegisterRoutes(s.App.Group("/contacts"), contacts, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
