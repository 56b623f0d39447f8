package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"filmlog-backend/internal/di"
	"filmlog-backend/internal/shared/logger"

	"github.com/caarlos0/env/v6"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

// ServerConfig holds the ops HTTP surface configuration
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"localhost"`
	Port string `env:"SERVER_PORT" envDefault:"3000"`
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	serverCfg := &ServerConfig{}
	if err := env.Parse(serverCfg); err != nil {
		log.Fatalf("Failed to parse server config: %v", err)
	}
	redisCfg := &di.RedisConfig{}
	if err := env.Parse(redisCfg); err != nil {
		log.Fatalf("Failed to parse redis config: %v", err)
	}

	appLogger := logger.NewLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	container := di.NewContainer(appLogger)
	if err := container.InitializeInfrastructure(ctx, redisCfg); err != nil {
		appLogger.Fatalf("Failed to initialize infrastructure: %v", err)
	}
	if err := container.InitializeModules(); err != nil {
		appLogger.Fatalf("Failed to initialize modules: %v", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      "filmlog-backend",
		ErrorHandler: fiberErrorHandler(appLogger),
	})
	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	go func() {
		addr := serverCfg.Host + ":" + serverCfg.Port
		appLogger.Infof("Listening on %s", addr)
		if err := app.Listen(addr); err != nil {
			appLogger.Fatalf("Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Infof("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		appLogger.Errorf("Server shutdown failed: %v", err)
	}
	container.Shutdown(shutdownCtx)
}

func fiberErrorHandler(appLogger logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}
		appLogger.Errorf("Request failed: %v", err)
		return c.Status(code).JSON(fiber.Map{"error": err.Error()})
	}
}
