// Package bootstrap assembles the application graph shared by the API and
// the worker: config, postgres, NATS, the model client and the use cases
// on top of them.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/avoronin/docmd/internal/config"
	"github.com/avoronin/docmd/internal/core/usecase"
	"github.com/avoronin/docmd/internal/infrastructure/llm/openai"
	"github.com/avoronin/docmd/internal/infrastructure/markdown"
	natsqueue "github.com/avoronin/docmd/internal/infrastructure/queue/nats"
	"github.com/avoronin/docmd/internal/infrastructure/rasterizer/poppler"
	"github.com/avoronin/docmd/internal/infrastructure/repository/postgres"
	"github.com/avoronin/docmd/internal/infrastructure/resilience"
	"github.com/avoronin/docmd/internal/infrastructure/workspace"
)

type App struct {
	Config config.Config

	Submit    *usecase.SubmitDocumentUseCase
	Status    *usecase.StatusUseCase
	Result    *usecase.ResultUseCase
	Tokens    *usecase.TokenUsageUseCase
	Reset     *usecase.ResetUseCase
	Chat      *usecase.ChatUseCase
	Recognize *usecase.RecognizeImageUseCase
	Process   *usecase.ProcessDocumentUseCase

	Queue *natsqueue.Queue

	db *sql.DB
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	ledger := postgres.NewTokenLedgerRepository(db)
	states := postgres.NewDocumentStateRepository(db)

	schemaCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := ledger.EnsureSchema(schemaCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	ws, err := workspace.New(cfg.WorkspaceRoot)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init workspace: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect queue: %w", err)
	}

	model := openai.New(openai.Config{
		BaseURL:     cfg.OpenAIBaseURL,
		APIKey:      cfg.OpenAIAPIKey,
		VisionModel: cfg.VisionModel,
		ChatModel:   cfg.ChatModel,
		MaxTokens:   cfg.VisionMaxTokens,
		Timeout:     time.Duration(cfg.VisionTimeoutSecs) * time.Second,
		RequestsPer: cfg.VisionRequestsPerS,
	}, executor)

	rasterizer := poppler.New(cfg.PdftoppmBinary, cfg.RasterDPI)
	normalizer := markdown.NewNormalizer()

	return &App{
		Config:    cfg,
		Submit:    usecase.NewSubmitDocumentUseCase(ws, states, queue, cfg.AllowedExtensions),
		Status:    usecase.NewStatusUseCase(ws, states),
		Result:    usecase.NewResultUseCase(ws, ledger, normalizer),
		Tokens:    usecase.NewTokenUsageUseCase(ledger),
		Reset:     usecase.NewResetUseCase(ws, ledger, states),
		Chat:      usecase.NewChatUseCase(model),
		Recognize: usecase.NewRecognizeImageUseCase(model, normalizer),
		Process:   usecase.NewProcessDocumentUseCase(ws, rasterizer, model, ledger, states, normalizer),
		Queue:     queue,
		db:        db,
	}, nil
}

func (a *App) Close() {
	if a.Queue != nil {
		a.Queue.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
