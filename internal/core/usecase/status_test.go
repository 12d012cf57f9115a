package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/avoronin/docmd/internal/core/domain"
)

func TestStatusNotStartedForUnknownUser(t *testing.T) {
	uc := NewStatusUseCase(newFakeWorkspace(), newFakeStateStore())

	status, err := uc.Status(context.Background(), "u-unknown")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Code != domain.StatusNotStarted {
		t.Fatalf("expected not started, got %d", status.Code)
	}
	if status.Documents != nil {
		t.Fatalf("expected no documents map, got %v", status.Documents)
	}
}

func TestStatusAttachesPersistedStates(t *testing.T) {
	workspace := newFakeWorkspace()
	states := newFakeStateStore()

	if _, err := workspace.SaveUpload("u-1", "a.pdf", strings.NewReader("x")); err != nil {
		t.Fatalf("SaveUpload() error = %v", err)
	}
	if _, err := workspace.SaveUpload("u-1", "b.pdf", strings.NewReader("x")); err != nil {
		t.Fatalf("SaveUpload() error = %v", err)
	}
	if err := workspace.WriteResult("u-1", "a", "# done"); err != nil {
		t.Fatalf("WriteResult() error = %v", err)
	}
	if err := states.Upsert(context.Background(), "u-1", "a", domain.StateDone, ""); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := states.Upsert(context.Background(), "u-1", "b", domain.StateFailed, "model unavailable"); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	uc := NewStatusUseCase(workspace, states)
	status, err := uc.Status(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}

	if status.Code != domain.StatusInProgress {
		t.Fatalf("expected in-progress, got %d", status.Code)
	}
	if !status.Documents["a"] || status.Documents["b"] {
		t.Fatalf("unexpected documents map %v", status.Documents)
	}
	if status.States["a"] != domain.StateDone || status.States["b"] != domain.StateFailed {
		t.Fatalf("unexpected states %v", status.States)
	}
}

func TestStatusCompleteWhenEveryUploadHasAResult(t *testing.T) {
	workspace := newFakeWorkspace()
	if _, err := workspace.SaveUpload("u-1", "a.pdf", strings.NewReader("x")); err != nil {
		t.Fatalf("SaveUpload() error = %v", err)
	}
	if err := workspace.WriteResult("u-1", "a", "# done"); err != nil {
		t.Fatalf("WriteResult() error = %v", err)
	}

	uc := NewStatusUseCase(workspace, newFakeStateStore())
	status, err := uc.Status(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Code != domain.StatusComplete {
		t.Fatalf("expected complete, got %d", status.Code)
	}
}

func TestStatusIgnoresStatesForDocumentsNoLongerUploaded(t *testing.T) {
	workspace := newFakeWorkspace()
	states := newFakeStateStore()

	if _, err := workspace.SaveUpload("u-1", "current.pdf", strings.NewReader("x")); err != nil {
		t.Fatalf("SaveUpload() error = %v", err)
	}
	if err := states.Upsert(context.Background(), "u-1", "current", domain.StateProcessing, ""); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := states.Upsert(context.Background(), "u-1", "deleted-long-ago", domain.StateDone, ""); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	uc := NewStatusUseCase(workspace, states)
	status, err := uc.Status(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if _, ok := status.States["deleted-long-ago"]; ok {
		t.Fatalf("expected stale state to be dropped, got %v", status.States)
	}
	if status.States["current"] != domain.StateProcessing {
		t.Fatalf("expected processing state for current, got %v", status.States)
	}
}
