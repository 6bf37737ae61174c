package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/docsight/backend/internal/chat"
	"github.com/docsight/backend/internal/conversation"
	"github.com/docsight/backend/internal/evaluation"
	"github.com/docsight/backend/internal/metrics"
	"github.com/docsight/backend/internal/session"
	"github.com/docsight/backend/pkg/logger"
)

type ChatHandler struct {
	engine    *chat.Engine
	registry  *session.Registry
	store     conversation.Store
	evaluator *evaluation.Evaluator
}

func NewChatHandler(engine *chat.Engine, registry *session.Registry, store conversation.Store, evaluator *evaluation.Evaluator) *ChatHandler {
	return &ChatHandler{
		engine:    engine,
		registry:  registry,
		store:     store,
		evaluator: evaluator,
	}
}

type turnResult struct {
	SessionID    string        `json:"session_id"`
	Answer       string        `json:"answer"`
	Sources      []chat.Source `json:"sources"`
	HistoryTurns int           `json:"history_turns"`
	LatencyMS    int64         `json:"latency_ms"`
}

func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req struct {
		SessionID string `json:"session_id"`
		Message   string `json:"message"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message is required",
		})
	}

	result, err := h.runTurn(c.Context(), req.SessionID, req.Message)
	if err != nil {
		var genErr *chat.GenerationError
		if errors.As(err, &genErr) {
			logger.Error("Turn failed", zap.String("stage", genErr.Stage), zap.Error(err))
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Failed to generate a response. Please try again.",
			})
		}

		logger.Error("Turn failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process message",
		})
	}

	return c.JSON(result)
}

// runTurn executes one turn against the session, persists the new turns and
// kicks off the advisory evaluation. It is shared by the HTTP and WebSocket
// paths.
func (h *ChatHandler) runTurn(ctx context.Context, sessionID, message string) (*turnResult, error) {
	start := time.Now()
	sess := h.registry.GetOrCreate(sessionID)
	metrics.SessionsActive.Set(float64(h.registry.Count()))

	var resp *chat.Response
	err := sess.Do(func(history chat.History) (chat.History, error) {
		r, next, err := h.engine.Respond(ctx, history, message)
		if err != nil {
			return history, err
		}
		resp = r

		h.persist(next)

		return next, nil
	})

	metrics.TurnDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TurnsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.TurnsTotal.WithLabelValues("success").Inc()
	metrics.RetrievedChunks.Observe(float64(len(resp.Sources)))

	if h.evaluator != nil {
		go h.evaluator.Annotate(context.Background(), resp.Condensed, resp.Answer, resp.Context)
	}

	return &turnResult{
		SessionID:    sess.ID,
		Answer:       resp.Answer,
		Sources:      resp.Sources,
		HistoryTurns: sess.History().Len(),
		LatencyMS:    time.Since(start).Milliseconds(),
	}, nil
}

// persist appends the newest user and assistant turns to the log. A write
// failure never fails the turn; the in-memory history is the source of truth.
func (h *ChatHandler) persist(history chat.History) {
	turns := history.Turns()
	if len(turns) < 2 {
		return
	}

	entries := conversation.FromTurns(turns[len(turns)-2:])
	if err := h.store.Append(entries); err != nil {
		metrics.PersistenceFailures.Inc()
		logger.Error("Failed to persist turns", zap.Error(err))
	}
}

func (h *ChatHandler) GetHistory(c *fiber.Ctx) error {
	id := c.Params("id")

	sess := h.registry.Get(id)
	if sess == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	}

	return c.JSON(fiber.Map{
		"session_id": sess.ID,
		"turns":      sess.History().Turns(),
	})
}
