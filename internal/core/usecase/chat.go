package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/avoronin/docmd/internal/core/domain"
	"github.com/avoronin/docmd/internal/core/ports"
)

// ChatUseCase answers a stateless question over a caller-supplied context
// string. It has no document or page concept and does not touch the
// conversion pipeline.
type ChatUseCase struct {
	model ports.VisionModel
}

func NewChatUseCase(model ports.VisionModel) *ChatUseCase {
	return &ChatUseCase{model: model}
}

func (uc *ChatUseCase) Answer(ctx context.Context, question, contextText string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "chat", fmt.Errorf("question is required"))
	}
	answer, err := uc.model.Chat(ctx, question, contextText)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return answer, nil
}
