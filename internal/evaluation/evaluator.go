package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docsight/backend/internal/chat"
	"github.com/docsight/backend/internal/conversation"
	"github.com/docsight/backend/internal/llm"
	"github.com/docsight/backend/pkg/logger"
)

// Judge is the slice of the LLM client the evaluator needs.
type Judge interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

// Evaluator scores how well an answer is grounded in the retrieved context
// and records the verdict as a system entry in the conversation log. It never
// touches the live session history.
type Evaluator struct {
	judge Judge
	store conversation.Store
}

type Verdict struct {
	Grounded  bool    `json:"grounded"`
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

func NewEvaluator(judge Judge, store conversation.Store) *Evaluator {
	return &Evaluator{judge: judge, store: store}
}

const judgeSystemPrompt = `You are a strict evaluator. Given a question, a context passage and an
answer, judge whether the answer is grounded in the context. Respond with JSON:
{"grounded": bool, "score": float between 0 and 1, "reasoning": short string}.`

// Evaluate scores one question/answer pair against the context it was
// generated from.
func (e *Evaluator) Evaluate(ctx context.Context, question, answer, contextText string) (*Verdict, error) {
	userPrompt := fmt.Sprintf("Question: %s\n\nContext:\n%s\n\nAnswer: %s", question, contextText, answer)

	resp, err := e.judge.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: judgeSystemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  0.1,
		MaxTokens:    256,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}

	verdict, err := parseVerdict(resp.Content)
	if err != nil {
		return nil, err
	}

	logger.Info("Answer evaluated",
		zap.Bool("grounded", verdict.Grounded),
		zap.Float64("score", verdict.Score),
	)

	return verdict, nil
}

// Annotate evaluates an answer and appends the verdict to the conversation
// log. Failures are logged and swallowed; evaluation is advisory.
func (e *Evaluator) Annotate(ctx context.Context, question, answer, contextText string) {
	verdict, err := e.Evaluate(ctx, question, answer, contextText)
	if err != nil {
		logger.Warn("Evaluation failed", zap.Error(err))
		return
	}

	entry := conversation.Entry{
		Timestamp: time.Now(),
		Role:      chat.RoleSystem,
		Content: fmt.Sprintf("evaluation grounded=%t score=%.2f: %s",
			verdict.Grounded, verdict.Score, verdict.Reasoning),
	}

	if err := e.store.Append([]conversation.Entry{entry}); err != nil {
		logger.Warn("Failed to record evaluation", zap.Error(err))
	}
}

// parseVerdict tolerates models that wrap the JSON in a code fence.
func parseVerdict(content string) (*Verdict, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var verdict Verdict
	if err := json.Unmarshal([]byte(content), &verdict); err != nil {
		return nil, fmt.Errorf("failed to parse evaluation response: %w", err)
	}

	return &verdict, nil
}
