package server

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"crypto-spot-arbitrage/internal/storage/jsonlog"
)

// FiberServer is the read-only dashboard boundary. It serves the persisted
// bounded logs unmodified; the bot never depends on it.
type FiberServer struct {
	*fiber.App

	logs   *jsonlog.Set
	logger *zap.Logger
}

func New(logs *jsonlog.Set, logger *zap.Logger) *FiberServer {
	server := &FiberServer{
		App: fiber.New(fiber.Config{
			ServerHeader: "crypto-spot-arbitrage",
			AppName:      "crypto-spot-arbitrage",
		}),

		logs:   logs,
		logger: logger,
	}

	return server
}
