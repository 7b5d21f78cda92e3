package worker

import (
	"context"
	"log/slog"
	"time"

	"resumebox/internal/metrics"
	"resumebox/internal/resume"
)

// Worker 按固定间隔批量消费处理队列。
//
// tick 在单个 goroutine 内同步执行，天然不会重入：上一批还在处理时
// 不会开始新的一批。ctx 取消后在下一个调度点优雅退出。
type Worker struct {
	queue     *resume.Queue
	processor *resume.Processor
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

// New 构造 Worker。
func New(queue *resume.Queue, processor *resume.Processor, logger *slog.Logger, interval time.Duration, batchSize int) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		queue:     queue,
		processor: processor,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run 启动调度循环，阻塞直到 ctx 取消。
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("queue worker started",
		slog.Duration("interval", w.interval),
		slog.Int("batch_size", w.batchSize),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("queue worker stopping")
			return nil
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick 认领并处理一批条目。单个条目的失败被隔离，不会中断批次。
func (w *Worker) tick(ctx context.Context) {
	start := time.Now()
	defer func() {
		metrics.ObserveQueueTick(time.Since(start))
	}()

	items, err := w.queue.NextBatch(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("select queue batch failed", slog.Any("error", err))
		return
	}
	if len(items) == 0 {
		return
	}

	w.logger.Info("processing queue batch", slog.Int("count", len(items)))

	for i := range items {
		item := &items[i]

		select {
		case <-ctx.Done():
			return
		default:
		}

		claimed, err := w.queue.Claim(ctx, item.ID)
		if err != nil {
			w.logger.Error("claim queue item failed",
				slog.Uint64("queue_item_id", uint64(item.ID)),
				slog.Any("error", err),
			)
			continue
		}
		if !claimed {
			// 手动触发抢先认领了这个条目。
			continue
		}

		metrics.QueueItemStarted()
		_, err = w.processor.ProcessClaimedItem(ctx, item)
		metrics.QueueItemFinished(err == nil)
		if err != nil {
			w.logger.Error("process queue item failed",
				slog.Uint64("queue_item_id", uint64(item.ID)),
				slog.Uint64("document_id", uint64(item.DocumentID)),
				slog.Any("error", err),
			)
			continue
		}
	}
}
