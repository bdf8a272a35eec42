package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/brightsteps/brightsteps-backend/internal/config"
	ws "github.com/brightsteps/brightsteps-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// MonitorHandler streams live session progress to dashboard clients.
type MonitorHandler struct {
	rdb      *redis.Client
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(rdb *redis.Client, log zerolog.Logger, allowedOrigins []string) *MonitorHandler {
	return &MonitorHandler{
		rdb:      rdb,
		log:      log.With().Str("component", "monitor_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// ExamProgressStream godoc
// WS /ws/exams/:exam_id/progress
// Upgrades to WebSocket and relays session progress events for one exam.
// Events are published by the session engine on a Redis Pub/Sub channel;
// the handler forwards them verbatim inside a typed frame.
func (h *MonitorHandler) ExamProgressStream(c *gin.Context) {
	examID := c.Param("exam_id")
	if examID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("exam_id", examID).Logger()

	channelName := config.CacheKey.ExamProgressChannel(examID)
	pubsub := h.rdb.Subscribe(c.Request.Context(), channelName)
	defer pubsub.Close()

	events := pubsub.Channel()

	wsLog.Info().Msg("Dashboard attached to progress stream")

	// Reader goroutine: answers pings and detects the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			msg, err := ws.ReadEnvelope(conn)
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				} else {
					wsLog.Debug().Msg("Connection closed")
				}
				return
			}

			switch msg.Action {
			case ws.ActionPing:
				ws.WritePong(conn)
			default:
				ws.WriteError(conn, "unknown action: "+string(msg.Action))
			}
		}
	}()

	for {
		select {
		case <-done:
			wsLog.Info().Msg("Dashboard detached from progress stream")
			return

		case <-c.Request.Context().Done():
			return

		case msg, ok := <-events:
			if !ok {
				return
			}
			frame := ws.ProgressFrame{
				Event:   ws.EventProgress,
				ExamID:  examID,
				Payload: json.RawMessage(msg.Payload),
			}
			if err := ws.WriteProgress(conn, frame); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed, dropping client")
				return
			}
		}
	}
}
