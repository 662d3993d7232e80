package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/campaign-assistant/internal/config"
	"github.com/kirillkom/campaign-assistant/internal/core/ports"
	"github.com/kirillkom/campaign-assistant/internal/core/usecase"
	"github.com/kirillkom/campaign-assistant/internal/infrastructure/chunking"
	"github.com/kirillkom/campaign-assistant/internal/infrastructure/classifier/keyword"
	"github.com/kirillkom/campaign-assistant/internal/infrastructure/extractor"
	"github.com/kirillkom/campaign-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/campaign-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/campaign-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/campaign-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/campaign-assistant/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/campaign-assistant/internal/infrastructure/vector/chromem"
	"github.com/kirillkom/campaign-assistant/internal/infrastructure/vector/qdrant"
)

// Options carries per-process observers. Nil fields are ignored.
type Options struct {
	ResilienceObserver resilience.Observer
	GenerationObserver ports.GenerationObserver
}

type App struct {
	Config config.Config

	Queue       ports.MessageQueue
	Documents   ports.DocumentReader
	Ingestor    ports.DocumentIngestor
	Processor   ports.DocumentProcessor
	Retriever   ports.Retriever
	Synthesizer ports.Synthesizer
	Models      ports.ModelRouting

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	executor := resilience.NewExecutor(cfg.Resilience())
	if opts.ResilienceObserver != nil {
		executor.WithObserver(opts.ResilienceObserver)
	}

	taskModels, err := config.LoadTaskModels(cfg.ModelsConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load task models: %w", err)
	}
	chunker, err := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("init chunker: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Concurrency:        cfg.WorkerConcurrency,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel, cfg.OllamaTimeout, executor)
	runtime := ollama.NewRuntime(ollamaClient)
	embedder, err := ollama.NewEmbedder(ollamaClient, cfg.EmbedCacheSize)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init embedder: %w", err)
	}

	vectors, err := newVectorStore(cfg, embedder, executor)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, err
	}

	router, err := usecase.NewModelRouter(runtime, taskModels)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init model router: %w", err)
	}
	if opts.GenerationObserver != nil {
		router.WithObserver(opts.GenerationObserver)
	}

	retriever := usecase.NewRetrievalUseCase(vectors, cfg.RetrievalSettings())

	return &App{
		Config: cfg,
		Queue:  queue,

		Documents:   usecase.NewDocumentCatalogUseCase(repo),
		Ingestor:    usecase.NewIngestDocumentUseCase(repo, storage, queue),
		Processor:   usecase.NewProcessDocumentUseCase(repo, extractor.New(storage), keyword.New(), chunker, embedder, vectors),
		Retriever:   retriever,
		Synthesizer: usecase.NewSynthesisUseCase(retriever, router, cfg.GenerationSettings()),
		Models:      router,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func newVectorStore(cfg config.Config, embedder ports.Embedder, executor *resilience.Executor) (ports.VectorStore, error) {
	switch cfg.VectorBackend {
	case config.VectorBackendQdrant:
		slog.Info("vector_backend_selected", "backend", cfg.VectorBackend, "url", cfg.QdrantURL, "collection", cfg.QdrantCollection)
		return qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, embedder, executor), nil
	case config.VectorBackendChromem, "":
		store, err := chromem.New(cfg.ChromemPath, cfg.QdrantCollection, embedder)
		if err != nil {
			return nil, fmt.Errorf("init chromem store: %w", err)
		}
		slog.Info("vector_backend_selected", "backend", config.VectorBackendChromem, "path", cfg.ChromemPath, "chunks", store.Count())
		return store, nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// QueueHealthy reports the broker connection state when the queue exposes it.
func (a *App) QueueHealthy() bool {
	h, ok := a.Queue.(interface{ Healthy() bool })
	return !ok || h.Healthy()
}
