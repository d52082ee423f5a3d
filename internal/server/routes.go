package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/sathwikbalu/Zenith-Study/internal/signaling"
)

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  64 * 1024,
		WriteBufferSize: 64 * 1024,
		// No configured origins means any origin may connect.
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			return allowed[r.Header.Get("Origin")]
		},
	}
}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// HistoryReader returns the archived chat of a session, oldest first.
type HistoryReader interface {
	History(ctx context.Context, sessionID string, limit int64) ([]signaling.ChatBroadcast, error)
}

// NewRouter wires the hub's HTTP surface. The history route exists only
// when a reader is given.
func NewRouter(hub *signaling.Hub, allowedOrigins []string, history HistoryReader) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/health", healthCheck)
	router.GET("/stats", stats(hub))
	router.GET("/ws", ServeWs(hub, newUpgrader(allowedOrigins)))
	if history != nil {
		router.GET("/history/:session", chatHistory(history))
	}
	return router
}

func healthCheck(c *gin.Context) {
	c.String(http.StatusOK, "Signaling server is healthy.")
}

func stats(hub *signaling.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := hub.Stats(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

func chatHistory(history HistoryReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := int64(defaultHistoryLimit)
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || n <= 0 {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = min(n, maxHistoryLimit)
		}

		msgs, err := history.History(c.Request.Context(), c.Param("session"), limit)
		if err != nil {
			slog.Error("read chat history", "session", c.Param("session"), "error", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "chat history unavailable"})
			return
		}
		c.JSON(http.StatusOK, msgs)
	}
}

// ServeWs upgrades the request and hands the socket to the hub.
func ServeWs(hub *signaling.Hub, upgrader websocket.Upgrader) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Warn("failed to upgrade connection", "remote", c.ClientIP(), "error", err)
			return
		}

		client := hub.NewClient()
		client.Attach(conn)
		if err := hub.Register(client); err != nil {
			conn.Close()
			return
		}
		slog.Debug("socket connected", "socket", client.ID, "remote", c.ClientIP())

		go client.WritePump()
		go client.ReadPump()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
