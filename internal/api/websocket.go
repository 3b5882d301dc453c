package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quantcore/internal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamFrame wraps a bus payload with its topic for the client.
type streamFrame struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

// websocket streams fills, cycle reports, rejections, and risk alerts.
func (s *Server) websocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if s.Bus == nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"bus not ready"}`))
		return
	}

	topics := []events.Topic{
		events.TopicOrderFilled,
		events.TopicCycle,
		events.TopicRejection,
		events.TopicRiskAlert,
	}

	merged := make(chan streamFrame, 100)
	done := make(chan struct{})
	defer close(done)

	for _, topic := range topics {
		stream, unsub := s.Bus.Subscribe(topic, 100)
		defer unsub()
		go func(topic events.Topic, stream <-chan any) {
			for msg := range stream {
				select {
				case merged <- streamFrame{Topic: string(topic), Payload: msg}:
				case <-done:
					return
				}
			}
		}(topic, stream)
	}

	for frame := range merged {
		if err := conn.WriteJSON(frame); err != nil {
			s.Logger.Debug("ws write failed", zap.Error(err))
			return
		}
	}
}
