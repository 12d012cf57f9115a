package usecase

import (
	"context"
	"fmt"

	"github.com/avoronin/docmd/internal/core/domain"
	"github.com/avoronin/docmd/internal/core/ports"
)

// StatusUseCase derives the workspace status. The 0/1/2 code comes from the
// upload/result directory comparison; the persisted per-document states are
// attached so a failed run is distinguishable from one still in flight.
type StatusUseCase struct {
	workspace ports.Workspace
	states    ports.DocumentStateStore
}

func NewStatusUseCase(workspace ports.Workspace, states ports.DocumentStateStore) *StatusUseCase {
	return &StatusUseCase{workspace: workspace, states: states}
}

func (uc *StatusUseCase) Status(ctx context.Context, userID string) (domain.WorkspaceStatus, error) {
	if err := ValidateUserID(userID); err != nil {
		return domain.WorkspaceStatus{}, err
	}

	code, documents, err := uc.workspace.Status(userID)
	if err != nil {
		return domain.WorkspaceStatus{}, fmt.Errorf("derive workspace status: %w", err)
	}

	status := domain.WorkspaceStatus{Code: code, Documents: documents}
	if code == domain.StatusNotStarted {
		return status, nil
	}

	states, err := uc.states.ListStates(ctx, userID)
	if err != nil {
		return domain.WorkspaceStatus{}, fmt.Errorf("list document states: %w", err)
	}
	if len(states) > 0 {
		status.States = make(map[string]domain.DocumentState, len(documents))
		for base := range documents {
			if state, ok := states[base]; ok {
				status.States[base] = state
			}
		}
	}
	return status, nil
}
