package ports

import (
	"context"
	"io"

	"github.com/avoronin/docmd/internal/core/domain"
)

// DocumentSubmitter is the inbound contract for document submission.
type DocumentSubmitter interface {
	Submit(ctx context.Context, userID, fileName string, body io.Reader) error
}

// StatusReader reports per-user conversion status.
type StatusReader interface {
	Status(ctx context.Context, userID string) (domain.WorkspaceStatus, error)
}

// ResultReader retrieves finished conversion artifacts.
type ResultReader interface {
	Result(ctx context.Context, userID, baseName string) (domain.DocumentResult, error)
}

// DocumentProcessor is the inbound contract for asynchronous conversion runs.
type DocumentProcessor interface {
	Process(ctx context.Context, job domain.OCRJob) error
}

// WorkspaceResetter purges a user's workspace and ledger rows.
type WorkspaceResetter interface {
	Reset(ctx context.Context, userID string) error
}

// ChatAnswerer answers a stateless question over a caller-supplied context.
type ChatAnswerer interface {
	Answer(ctx context.Context, question, contextText string) (string, error)
}
