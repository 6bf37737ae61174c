package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/docsight/backend/pkg/logger"
)

// WebSocketHandler streams chat turns over a socket. It shares the turn
// pipeline with the HTTP handler; only the transport differs.
type WebSocketHandler struct {
	chat *ChatHandler
}

func NewWebSocketHandler(chat *ChatHandler) *WebSocketHandler {
	return &WebSocketHandler{chat: chat}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type      string `json:"type"`
			SessionID string `json:"session_id"`
			Content   string `json:"content"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			break
		}

		if msg.Type != "chat" || strings.TrimSpace(msg.Content) == "" {
			continue
		}

		if err := h.streamTurn(c, msg.SessionID, msg.Content); err != nil {
			logger.Error("Failed to stream turn", zap.Error(err))
			h.sendError(c, "Failed to generate a response. Please try again.")
		}
	}
}

func (h *WebSocketHandler) streamTurn(c *websocket.Conn, sessionID, content string) error {
	h.sendChunk(c, "status", "Thinking...")

	result, err := h.chat.runTurn(context.Background(), sessionID, content)
	if err != nil {
		return err
	}

	words := strings.Fields(result.Answer)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}
		if err := h.sendChunk(c, "chunk", chunk); err != nil {
			return err
		}
	}

	return c.WriteJSON(map[string]interface{}{
		"type":       "complete",
		"session_id": result.SessionID,
		"sources":    result.Sources,
		"latency_ms": result.LatencyMS,
	})
}

func (h *WebSocketHandler) sendChunk(c *websocket.Conn, msgType, content string) error {
	return c.WriteJSON(map[string]interface{}{
		"type":    msgType,
		"content": content,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}
