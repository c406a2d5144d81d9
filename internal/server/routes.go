package server

import (
	"encoding/json"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"crypto-spot-arbitrage/internal/storage/jsonlog"
)

const liveDataPushInterval = 3 * time.Second

func (s *FiberServer) RegisterFiberRoutes() {
	s.Get("/", s.homeHandler)
	s.Get("/api/live-data", s.logHandler(s.logs.Prices))
	s.Get("/api/arbitrage-log", s.logHandler(s.logs.Opportunities))
	s.Get("/api/trade-log", s.logHandler(s.logs.Trades))

	s.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.Get("/ws/live-data", websocket.New(s.liveDataSocket))
}

func (s *FiberServer) homeHandler(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString("<h1>Crypto Arbitrage Dashboard</h1>" +
		"<p>Visit /api/live-data, /api/arbitrage-log or /api/trade-log</p>")
}

// logHandler serves one bounded log as a JSON array. A missing or unreadable
// log reads as empty, matching the storage layer's recovery behavior.
func (s *FiberServer) logHandler(log *jsonlog.Log) fiber.Handler {
	return func(c *fiber.Ctx) error {
		entries := log.Entries()
		if entries == nil {
			entries = []json.RawMessage{}
		}
		return c.JSON(entries)
	}
}

// liveDataSocket pushes the prices log to the client on a short interval
// until the connection drops.
func (s *FiberServer) liveDataSocket(c *websocket.Conn) {
	defer c.Close()

	ticker := time.NewTicker(liveDataPushInterval)
	defer ticker.Stop()

	for range ticker.C {
		entries := s.logs.Prices.Entries()
		if entries == nil {
			entries = []json.RawMessage{}
		}
		payload, err := json.Marshal(entries)
		if err != nil {
			s.logger.Error("failed to encode live data", zap.Error(err))
			return
		}
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
