package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/avoronin/docmd/internal/core/domain"
	"github.com/avoronin/docmd/internal/core/ports"
)

// ResultUseCase retrieves finished conversion artifacts and prepares raw
// Markdown for download.
type ResultUseCase struct {
	workspace  ports.Workspace
	ledger     ports.TokenLedger
	normalizer ports.Normalizer
}

func NewResultUseCase(workspace ports.Workspace, ledger ports.TokenLedger, normalizer ports.Normalizer) *ResultUseCase {
	return &ResultUseCase{workspace: workspace, ledger: ledger, normalizer: normalizer}
}

// Result loads the artifact for a base name (without extension). The token
// count is attached when the ledger has a row; a missing row reports zero
// rather than failing the lookup.
func (uc *ResultUseCase) Result(ctx context.Context, userID, baseName string) (domain.DocumentResult, error) {
	if err := ValidateUserID(userID); err != nil {
		return domain.DocumentResult{}, err
	}
	if strings.TrimSpace(baseName) == "" {
		return domain.DocumentResult{}, domain.WrapError(domain.ErrInvalidInput, "get result", fmt.Errorf("file name is required"))
	}

	markdown, err := uc.workspace.ReadResult(userID, baseName)
	if err != nil {
		return domain.DocumentResult{}, err
	}

	out := domain.DocumentResult{
		FileName: baseName,
		Markdown: uc.normalizer.Normalize(markdown),
	}
	record, err := uc.ledger.Get(ctx, userID, baseName)
	if err != nil {
		if !domain.IsKind(err, domain.ErrNotFound) {
			return domain.DocumentResult{}, err
		}
		return out, nil
	}
	out.Tokens = record.TotalTokens
	return out, nil
}

// RenderForDownload normalizes raw Markdown about to be streamed back to
// the caller.
func (uc *ResultUseCase) RenderForDownload(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "render download", fmt.Errorf("content is required"))
	}
	return uc.normalizer.Normalize(content), nil
}
