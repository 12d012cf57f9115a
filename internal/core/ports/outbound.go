package ports

import (
	"context"
	"io"

	"github.com/avoronin/docmd/internal/core/domain"
)

// Workspace owns the three per-user storage areas and derives the
// directory-based processing status.
type Workspace interface {
	// EnsureAreas creates upload/temp/result for the user, idempotently.
	EnsureAreas(userID string) error
	// SaveUpload stores a source document, replacing any previous document
	// with the same base name along with its result artifact.
	SaveUpload(userID, fileName string, body io.Reader) (string, error)
	// UploadPath resolves the on-disk path of a stored source document.
	UploadPath(userID, fileName string) string
	// TempPath resolves the path of a per-run raster artifact.
	TempPath(userID, fileName string) string
	// Status derives the 0/1/2 status code and the per-document map.
	Status(userID string) (domain.StatusCode, map[string]bool, error)
	// WriteResult stores the final Markdown artifact for a base name.
	WriteResult(userID, baseName, markdown string) error
	// ReadResult loads the Markdown artifact for a base name.
	ReadResult(userID, baseName string) (string, error)
	// PurgeTemp removes every file in the user's temp area.
	PurgeTemp(userID string) error
	// PurgeUser removes the whole workspace.
	PurgeUser(userID string) error
}

// PageSource is one opened document addressed page by page.
type PageSource interface {
	PageCount() int
	// RenderPage rasterizes the page with the given 1-based index into a
	// PNG file at destPath and returns its bytes.
	RenderPage(ctx context.Context, page int, destPath string) ([]byte, error)
	Close() error
}

// PageRasterizer opens PDF or image documents as page-addressable sources.
type PageRasterizer interface {
	Open(ctx context.Context, path string) (PageSource, error)
}

// VisionModel is the external chat-completion service boundary.
type VisionModel interface {
	// Recognize extracts Markdown from one raster image and reports the
	// tokens consumed.
	Recognize(ctx context.Context, image []byte) (int, string, error)
	// Chat answers a question over a caller-supplied context string.
	Chat(ctx context.Context, question, contextText string) (string, error)
}

// TokenLedger is the durable per-(user, file) token accounting store.
type TokenLedger interface {
	// Record upserts the row for (user, file), replacing any previous
	// total: a re-processed document reports only its latest run.
	Record(ctx context.Context, userID, fileName string, totalTokens int) error
	Get(ctx context.Context, userID, fileName string) (domain.TokenRecord, error)
	List(ctx context.Context, userID string) ([]domain.TokenRecord, error)
	DeleteAll(ctx context.Context, userID string) error
}

// DocumentStateStore persists the per-document lifecycle state.
type DocumentStateStore interface {
	Upsert(ctx context.Context, userID, baseName string, state domain.DocumentState, errMessage string) error
	ListStates(ctx context.Context, userID string) (map[string]domain.DocumentState, error)
	DeleteAll(ctx context.Context, userID string) error
}

// JobQueue publishes and consumes OCR jobs.
type JobQueue interface {
	PublishOCRJob(ctx context.Context, job domain.OCRJob) error
	SubscribeOCRJobs(ctx context.Context, handler func(context.Context, domain.OCRJob) error) error
}

// Normalizer cleans model output and download payloads.
type Normalizer interface {
	Normalize(text string) string
	StripFences(text string) string
}
