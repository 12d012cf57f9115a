package usecase

import (
	"context"
	"fmt"

	"github.com/avoronin/docmd/internal/core/ports"
)

// ResetUseCase purges everything a user owns: the three storage areas, all
// ledger rows and all persisted document states. Used before a fresh
// cleaning session so stale data cannot pollute status derivation.
type ResetUseCase struct {
	workspace ports.Workspace
	ledger    ports.TokenLedger
	states    ports.DocumentStateStore
}

func NewResetUseCase(workspace ports.Workspace, ledger ports.TokenLedger, states ports.DocumentStateStore) *ResetUseCase {
	return &ResetUseCase{workspace: workspace, ledger: ledger, states: states}
}

func (uc *ResetUseCase) Reset(ctx context.Context, userID string) error {
	if err := ValidateUserID(userID); err != nil {
		return err
	}
	if err := uc.workspace.PurgeUser(userID); err != nil {
		return fmt.Errorf("purge workspace: %w", err)
	}
	if err := uc.ledger.DeleteAll(ctx, userID); err != nil {
		return fmt.Errorf("delete token records: %w", err)
	}
	if err := uc.states.DeleteAll(ctx, userID); err != nil {
		return fmt.Errorf("delete document states: %w", err)
	}
	return nil
}
