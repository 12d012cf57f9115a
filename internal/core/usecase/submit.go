package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/avoronin/docmd/internal/core/domain"
	"github.com/avoronin/docmd/internal/core/ports"
)

// SubmitDocumentUseCase accepts one source document into the user's upload
// area and schedules its conversion. The call returns as soon as the job is
// published; progress is observable only through status queries.
type SubmitDocumentUseCase struct {
	workspace   ports.Workspace
	states      ports.DocumentStateStore
	queue       ports.JobQueue
	allowedExts map[string]struct{}
}

func NewSubmitDocumentUseCase(
	workspace ports.Workspace,
	states ports.DocumentStateStore,
	queue ports.JobQueue,
	allowedExts []string,
) *SubmitDocumentUseCase {
	exts := make(map[string]struct{}, len(allowedExts))
	for _, ext := range allowedExts {
		exts[strings.ToLower(ext)] = struct{}{}
	}
	return &SubmitDocumentUseCase{
		workspace:   workspace,
		states:      states,
		queue:       queue,
		allowedExts: exts,
	}
}

func (uc *SubmitDocumentUseCase) Submit(ctx context.Context, userID, fileName string, body io.Reader) error {
	if err := ValidateUserID(userID); err != nil {
		return err
	}
	if strings.TrimSpace(fileName) == "" || body == nil {
		return domain.WrapError(domain.ErrInvalidInput, "submit document", fmt.Errorf("file is required"))
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if _, ok := uc.allowedExts[ext]; !ok {
		return domain.WrapError(domain.ErrInvalidInput, "submit document", fmt.Errorf("unsupported extension %q", ext))
	}

	name := filepath.Base(fileName)
	if _, err := uc.workspace.SaveUpload(userID, name, body); err != nil {
		return fmt.Errorf("save upload: %w", err)
	}

	// Key the state row on the stored name with its extension intact;
	// lowercasing is only for the allowlist check.
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if err := uc.states.Upsert(ctx, userID, base, domain.StatePending, ""); err != nil {
		return fmt.Errorf("mark document pending: %w", err)
	}

	if err := uc.queue.PublishOCRJob(ctx, domain.OCRJob{UserID: userID, FileName: name}); err != nil {
		return fmt.Errorf("publish ocr job: %w", err)
	}
	return nil
}

// ValidateUserID rejects empty and whitespace-only user identifiers.
func ValidateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "validate user", fmt.Errorf("user id is required"))
	}
	return nil
}
