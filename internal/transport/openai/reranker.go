package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/matchd/internal/domain"
)

const rerankSystemPrompt = `You rank tutor candidates for a student's request.
Consider subject expertise, budget fit, schedule, teaching style from the bio,
and overall quality (rating, experience).
Return ONLY a JSON object of the form {"ranking": ["id1", "id2", ...]}
listing every candidate id exactly once, best match first. No explanations.`

// Reranker asks an LLM to reorder candidates via a single chat completion.
// One call per invocation; retry policy lives in the rerank use case.
type Reranker struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// RerankerConfig holds the rerank provider settings.
type RerankerConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewReranker creates an OpenAI-compatible rerank client.
func NewReranker(cfg *RerankerConfig) *Reranker {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Reranker{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

var _ domain.Reranker = (*Reranker)(nil)

type rerankPayload struct {
	Order      domain.OrderContext      `json:"student_order"`
	Candidates []domain.RerankCandidate `json:"candidates"`
}

type rerankReply struct {
	Ranking []string `json:"ranking"`
}

// Rerank sends the order context plus candidates and parses the returned
// ordering. Unparseable output is a malformed response, never retried here.
func (r *Reranker) Rerank(
	ctx context.Context, order domain.OrderContext, candidates []domain.RerankCandidate,
) ([]string, error) {
	payload, err := json.Marshal(rerankPayload{Order: order, Candidates: candidates})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank payload: %w", err)
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: rerankSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
	})
	if err != nil {
		return nil, classifyAPIError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in rerank response", domain.ErrMalformedResponse)
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)

	var reply rerankReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return nil, fmt.Errorf("%w: parse rerank reply: %w", domain.ErrMalformedResponse, err)
	}
	if len(reply.Ranking) == 0 {
		return nil, fmt.Errorf("%w: empty ranking", domain.ErrMalformedResponse)
	}

	return reply.Ranking, nil
}

// stripCodeFence unwraps ```json fenced blocks some models emit despite the
// JSON response format hint.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
