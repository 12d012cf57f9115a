package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/avoronin/docmd/internal/core/domain"
	"github.com/avoronin/docmd/internal/core/ports"
)

// ProcessObserver receives per-page timings and token counts from
// conversion runs. The zero value of the use case reports to a no-op.
type ProcessObserver interface {
	ObservePage(duration time.Duration)
	AddTokens(tokens int)
}

// ProcessDocumentUseCase drives one document through the conversion
// pipeline: rasterize each page, recognize it with the vision model,
// aggregate the Markdown fragments in page order, persist the artifact and
// the token total, and purge the temp area no matter how the run ends.
type ProcessDocumentUseCase struct {
	workspace  ports.Workspace
	rasterizer ports.PageRasterizer
	vision     ports.VisionModel
	ledger     ports.TokenLedger
	states     ports.DocumentStateStore
	normalizer ports.Normalizer
	observer   ProcessObserver
	keys       *keyedMutex
}

func NewProcessDocumentUseCase(
	workspace ports.Workspace,
	rasterizer ports.PageRasterizer,
	vision ports.VisionModel,
	ledger ports.TokenLedger,
	states ports.DocumentStateStore,
	normalizer ports.Normalizer,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		workspace:  workspace,
		rasterizer: rasterizer,
		vision:     vision,
		ledger:     ledger,
		states:     states,
		normalizer: normalizer,
		observer:   noopObserver{},
		keys:       newKeyedMutex(),
	}
}

// SetObserver installs a metrics sink. Not safe to call once runs are in
// flight.
func (uc *ProcessDocumentUseCase) SetObserver(observer ProcessObserver) {
	if observer != nil {
		uc.observer = observer
	}
}

func (uc *ProcessDocumentUseCase) Process(ctx context.Context, job domain.OCRJob) error {
	base := strings.TrimSuffix(job.FileName, filepath.Ext(job.FileName))

	// One run per (user, base name) at a time; a queued re-submission
	// starts only after the current run released its temp files.
	unlock := uc.keys.Lock(job.UserID + "/" + base)
	defer unlock()

	if err := uc.states.Upsert(ctx, job.UserID, base, domain.StateProcessing, ""); err != nil {
		return fmt.Errorf("mark document processing: %w", err)
	}

	if err := uc.run(ctx, job, base); err != nil {
		if failErr := uc.states.Upsert(ctx, job.UserID, base, domain.StateFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed state: %v", err, failErr)
		}
		return err
	}

	if err := uc.states.Upsert(ctx, job.UserID, base, domain.StateDone, ""); err != nil {
		return fmt.Errorf("mark document done: %w", err)
	}
	return nil
}

// run executes the page loop. The result artifact is written only after
// every page succeeded, so its presence is a reliable completion signal; a
// failed run leaves no partial artifact and no ledger row.
func (uc *ProcessDocumentUseCase) run(ctx context.Context, job domain.OCRJob, base string) (err error) {
	defer func() {
		if purgeErr := uc.workspace.PurgeTemp(job.UserID); purgeErr != nil && err == nil {
			err = fmt.Errorf("purge temp area: %w", purgeErr)
		}
	}()

	source, err := uc.rasterizer.Open(ctx, uc.workspace.UploadPath(job.UserID, job.FileName))
	if err != nil {
		return fmt.Errorf("open page source: %w", err)
	}
	defer source.Close()

	fragments := make([]domain.PageFragment, 0, source.PageCount())

	for page := 1; page <= source.PageCount(); page++ {
		raster := uc.workspace.TempPath(job.UserID, fmt.Sprintf("%s_page_%d.png", base, page))

		image, err := source.RenderPage(ctx, page, raster)
		if err != nil {
			return fmt.Errorf("render page %d: %w", page, err)
		}

		start := time.Now()
		tokens, markdown, err := uc.vision.Recognize(ctx, image)
		uc.observer.ObservePage(time.Since(start))
		if err != nil {
			return fmt.Errorf("recognize page %d: %w", page, err)
		}

		fragments = append(fragments, domain.PageFragment{
			Index:    page,
			Markdown: uc.normalizer.StripFences(markdown),
			Tokens:   tokens,
		})
		uc.observer.AddTokens(tokens)
	}

	var result strings.Builder
	totalTokens := 0
	for _, fragment := range fragments {
		result.WriteString(fragment.Markdown)
		totalTokens += fragment.Tokens
	}

	if err := uc.workspace.WriteResult(job.UserID, base, result.String()); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	if err := uc.ledger.Record(ctx, job.UserID, base, totalTokens); err != nil {
		return fmt.Errorf("record token usage: %w", err)
	}
	return nil
}

type noopObserver struct{}

func (noopObserver) ObservePage(time.Duration) {}
func (noopObserver) AddTokens(int)             {}
