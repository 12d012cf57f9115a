package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/avoronin/docmd/internal/core/domain"
	"github.com/avoronin/docmd/internal/core/ports"
)

// TokenUsageUseCase reads the per-user token accounting.
type TokenUsageUseCase struct {
	ledger ports.TokenLedger
}

func NewTokenUsageUseCase(ledger ports.TokenLedger) *TokenUsageUseCase {
	return &TokenUsageUseCase{ledger: ledger}
}

func (uc *TokenUsageUseCase) List(ctx context.Context, userID string) ([]domain.TokenRecord, error) {
	if err := ValidateUserID(userID); err != nil {
		return nil, err
	}
	return uc.ledger.List(ctx, userID)
}

func (uc *TokenUsageUseCase) Get(ctx context.Context, userID, fileName string) (domain.TokenRecord, error) {
	if err := ValidateUserID(userID); err != nil {
		return domain.TokenRecord{}, err
	}
	if strings.TrimSpace(fileName) == "" {
		return domain.TokenRecord{}, domain.WrapError(domain.ErrInvalidInput, "get token usage", fmt.Errorf("file name is required"))
	}
	return uc.ledger.Get(ctx, userID, fileName)
}
