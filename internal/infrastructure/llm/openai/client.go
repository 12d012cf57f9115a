// Package openai talks to an OpenAI-compatible chat-completion endpoint:
// page recognition over base64-embedded images and stateless chat over a
// caller-supplied context. Outbound calls are paced by a rate limiter and
// guarded by a circuit breaker; a failed call is fatal for its page and is
// never retried.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/avoronin/docmd/internal/core/domain"
	"github.com/avoronin/docmd/internal/infrastructure/resilience"
)

type Config struct {
	BaseURL     string
	APIKey      string
	VisionModel string
	ChatModel   string
	MaxTokens   int
	Timeout     time.Duration
	RequestsPer float64
}

type Client struct {
	api         *openai.Client
	visionModel string
	chatModel   string
	maxTokens   int
	timeout     time.Duration
	limiter     *rate.Limiter
	executor    *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) *Client {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 100 * time.Second
	}
	if cfg.RequestsPer <= 0 {
		cfg.RequestsPer = 2
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = cfg.VisionModel
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		api:         openai.NewClientWithConfig(apiCfg),
		visionModel: cfg.VisionModel,
		chatModel:   cfg.ChatModel,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RequestsPer), 1),
		executor:    executor,
	}
}

// Recognize sends one raster image to the vision model and returns the
// tokens consumed along with the extracted Markdown.
func (c *Client) Recognize(ctx context.Context, image []byte) (int, string, error) {
	encoded := base64.StdEncoding.EncodeToString(image)

	req := openai.ChatCompletionRequest{
		Model:       c.visionModel,
		Temperature: 0.4,
		MaxTokens:   c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: visionSystemPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: visionUserPrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: "data:image/png;base64," + encoded,
						},
					},
				},
			},
		},
	}

	resp, err := c.complete(ctx, "llm.recognize", req)
	if err != nil {
		return 0, "", domain.WrapError(domain.ErrUpstreamModel, "recognize image", err)
	}
	return resp.Usage.TotalTokens, resp.Choices[0].Message.Content, nil
}

// Chat answers a question over a caller-supplied context string. No page or
// document concept is involved.
func (c *Client) Chat(ctx context.Context, question, contextText string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Temperature: 0.7,
		MaxTokens:   c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: chatSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextText, question),
			},
		},
	}

	resp, err := c.complete(ctx, "llm.chat", req)
	if err != nil {
		return "", domain.WrapError(domain.ErrUpstreamModel, "generate answer", err)
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) complete(ctx context.Context, operation string, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return openai.ChatCompletionResponse{}, err
	}

	var resp openai.ChatCompletionResponse
	call := func(callCtx context.Context) error {
		callCtx, cancel := context.WithTimeout(callCtx, c.timeout)
		defer cancel()

		out, err := c.api.CreateChatCompletion(callCtx, req)
		if err != nil {
			return err
		}
		if len(out.Choices) == 0 {
			return errors.New("empty completion response")
		}
		resp = out
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, operation, call, classifyModelError)
	} else {
		err = call(ctx)
	}
	return resp, err
}

// classifyModelError never allows retries: a model failure is fatal for the
// page being processed. It still feeds the breaker, except for caller-side
// cancellation.
func classifyModelError(err error) resilience.Classification {
	if err == nil {
		return resilience.Classification{}
	}
	if errors.Is(err, context.Canceled) {
		return resilience.Classification{Retryable: false, RecordFailure: false}
	}
	return resilience.Classification{Retryable: false, RecordFailure: true}
}
