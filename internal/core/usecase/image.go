package usecase

import (
	"context"
	"fmt"

	"github.com/avoronin/docmd/internal/core/domain"
	"github.com/avoronin/docmd/internal/core/ports"
)

// RecognizeImageUseCase converts a single in-memory image synchronously.
// Unlike submitted documents it leaves no workspace trace and writes no
// ledger row; the caller gets the Markdown and the token cost directly.
type RecognizeImageUseCase struct {
	model      ports.VisionModel
	normalizer ports.Normalizer
}

func NewRecognizeImageUseCase(model ports.VisionModel, normalizer ports.Normalizer) *RecognizeImageUseCase {
	return &RecognizeImageUseCase{model: model, normalizer: normalizer}
}

func (uc *RecognizeImageUseCase) Recognize(ctx context.Context, image []byte) (int, string, error) {
	if len(image) == 0 {
		return 0, "", domain.WrapError(domain.ErrInvalidInput, "recognize image", fmt.Errorf("image is required"))
	}
	tokens, markdown, err := uc.model.Recognize(ctx, image)
	if err != nil {
		return 0, "", fmt.Errorf("recognize image: %w", err)
	}
	return tokens, uc.normalizer.StripFences(markdown), nil
}
