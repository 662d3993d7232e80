package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/campaign-assistant/internal/core/ports"
)

// WorkerMetrics is the subset of worker metrics the document loop reports.
type WorkerMetrics interface {
	StartDocument()
	FinishDocument(service string, duration time.Duration, err error)
	ObserveQueueLag(service string, lag time.Duration)
	ObserveChunks(service, contentType string, chunks int)
}

// DocumentWorker processes ingestion events from the queue.
type DocumentWorker struct {
	service   string
	queue     ports.MessageQueue
	processor ports.DocumentProcessor
	documents ports.DocumentReader
	metrics   WorkerMetrics
	timeout   time.Duration
}

func NewDocumentWorker(service string, app *App, metrics WorkerMetrics) *DocumentWorker {
	return &DocumentWorker{
		service:   service,
		queue:     app.Queue,
		processor: app.Processor,
		documents: app.Documents,
		metrics:   metrics,
		timeout:   app.Config.WorkerDocumentTimeout,
	}
}

// Run blocks until ctx is cancelled or the subscription fails.
func (w *DocumentWorker) Run(ctx context.Context) error {
	slog.Info("worker_subscribed", "service", w.service)
	return w.queue.SubscribeDocumentIngested(ctx, w.Handle)
}

func (w *DocumentWorker) Handle(ctx context.Context, documentID string) error {
	if w.metrics != nil {
		if doc, err := w.documents.GetByID(ctx, documentID); err == nil {
			w.metrics.ObserveQueueLag(w.service, time.Since(doc.CreatedAt))
		}
		w.metrics.StartDocument()
	}

	processCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		processCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	start := time.Now()
	err := w.processor.ProcessByID(processCtx, documentID)
	duration := time.Since(start)
	if w.metrics != nil {
		w.metrics.FinishDocument(w.service, duration, err)
	}
	if err != nil {
		slog.Error("document_process_failed", "document_id", documentID, "duration_ms", duration.Milliseconds(), "error", err)
		return err
	}

	if doc, getErr := w.documents.GetByID(ctx, documentID); getErr == nil {
		if w.metrics != nil {
			w.metrics.ObserveChunks(w.service, doc.ContentType, doc.ChunkCount)
		}
		slog.Info("document_processed",
			"document_id", documentID,
			"content_type", doc.ContentType,
			"chunks", doc.ChunkCount,
			"duration_ms", duration.Milliseconds(),
		)
	}
	return nil
}
