package resume

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"gorm.io/gorm"

	"resumebox/internal/database"
	"resumebox/internal/errcode"
	"resumebox/internal/extraction"
	"resumebox/internal/notify"
	"resumebox/internal/storage"
)

// Notifier 发布处理结果通知；nil 实现视为不通知。
type Notifier interface {
	PublishProcessing(ctx context.Context, ownerID uint, msg notify.ProcessingNotifyMessage) error
}

// Processor 执行单个已认领队列条目的完整处理流程，
// 后台 worker 与手动 "立即处理" 共用同一条路径，产出相同的结果结构。
type Processor struct {
	db       *gorm.DB
	store    *storage.Store
	engine   extraction.Engine
	results  *Results
	cache    *StateCache
	queue    *Queue
	notifier Notifier
	logger   *slog.Logger
}

// NewProcessor 构造 Processor。notifier 可为 nil。
func NewProcessor(
	db *gorm.DB,
	store *storage.Store,
	engine extraction.Engine,
	results *Results,
	cache *StateCache,
	queue *Queue,
	notifier Notifier,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		db:       db,
		store:    store,
		engine:   engine,
		results:  results,
		cache:    cache,
		queue:    queue,
		notifier: notifier,
		logger:   logger,
	}
}

// ProcessClaimedItem 处理一个已处于 processing 状态的队列条目。
// 任一步骤失败都会把条目和文档置为 failed 并返回错误，由调用方决定是否继续批次。
func (p *Processor) ProcessClaimedItem(ctx context.Context, item *database.ProcessingQueueItem) (*database.ProcessingResult, error) {
	log := p.logger.With(
		slog.Uint64("queue_item_id", uint64(item.ID)),
		slog.Uint64("document_id", uint64(item.DocumentID)),
	)

	var doc database.Document
	if err := p.db.WithContext(ctx).First(&doc, item.DocumentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("document vanished before processing, failing queue item")
		}
		_ = p.queue.Fail(ctx, item.ID, err)
		return nil, fmt.Errorf("load document %d: %w", item.DocumentID, err)
	}

	log = log.With(slog.Uint64("owner_id", uint64(doc.OwnerID)))

	if err := p.setDocumentStatus(ctx, doc.ID, database.DocumentStatusProcessing); err != nil {
		_ = p.queue.Fail(ctx, item.ID, err)
		return nil, err
	}

	data, err := p.store.Read(doc.StoragePath)
	if err != nil {
		return nil, p.failItem(ctx, item, &doc, fmt.Errorf("read stored file: %w", err))
	}

	opts := decodeOptions(item.Options)

	res, err := p.engine.Extract(ctx, data, opts)
	if err != nil {
		return nil, p.failItem(ctx, item, &doc, err)
	}

	screenshotPaths := p.saveScreenshots(doc.ID, res.Screenshots, log)

	result, err := p.results.SaveExtraction(ctx, doc.ID, res, screenshotPaths)
	if err != nil {
		return nil, p.failItem(ctx, item, &doc, err)
	}

	if err := p.setDocumentStatus(ctx, doc.ID, database.DocumentStatusCompleted); err != nil {
		return nil, p.failItem(ctx, item, &doc, err)
	}
	if err := p.queue.Complete(ctx, item.ID); err != nil {
		log.Error("mark queue item completed failed", slog.Any("error", err))
	}

	// AI 分析是软失败路径，提取完成后的状态不受其影响。
	p.results.MaybeEnrich(ctx, doc.ID, res)

	if doc.IsActive {
		if err := p.cache.UpdateState(ctx, doc.OwnerID, doc.ID); err != nil {
			// 处理期间激活简历可能已切换，此时拒绝覆盖缓存是预期行为。
			log.Warn("refresh state cache skipped", slog.Any("error", err))
		}
	}

	p.publish(ctx, doc.OwnerID, notify.ProcessingNotifyMessage{
		Status:     database.DocumentStatusCompleted,
		DocumentID: doc.ID,
		ErrorCode:  errcode.OK,
	}, log)

	log.Info("document processed",
		slog.Int("text_length", result.TextLength),
		slog.Int("page_count", result.PageCount),
	)
	return result, nil
}

// ProcessNow 绕过队列立即处理，与后台 worker 互斥（同一单写者认领）。
func (p *Processor) ProcessNow(ctx context.Context, ownerID, documentID uint) (*database.ProcessingResult, error) {
	var doc database.Document
	err := p.db.WithContext(ctx).
		Where("id = ? AND owner_id = ? AND kind = ?", documentID, ownerID, database.DocumentKindResume).
		First(&doc).Error
	if err != nil {
		return nil, err
	}

	item, err := p.queue.ClaimForDocument(ctx, doc.ID)
	if err != nil {
		return nil, err
	}

	return p.ProcessClaimedItem(ctx, item)
}

func (p *Processor) failItem(ctx context.Context, item *database.ProcessingQueueItem, doc *database.Document, cause error) error {
	if err := p.queue.Fail(ctx, item.ID, cause); err != nil {
		p.logger.Error("mark queue item failed failed", slog.Any("error", err))
	}
	if err := p.setDocumentStatus(ctx, doc.ID, database.DocumentStatusFailed); err != nil {
		p.logger.Error("mark document failed failed", slog.Any("error", err))
	}

	p.publish(ctx, doc.OwnerID, notify.ProcessingNotifyMessage{
		Status:       database.DocumentStatusFailed,
		DocumentID:   doc.ID,
		ErrorCode:    errcode.ExtractionFailed,
		ErrorMessage: cause.Error(),
	}, p.logger)

	return cause
}

func (p *Processor) setDocumentStatus(ctx context.Context, documentID uint, status string) error {
	err := p.db.WithContext(ctx).
		Model(&database.Document{}).
		Where("id = ?", documentID).
		Update("processing_status", status).Error
	if err != nil {
		return fmt.Errorf("set document %d status %s: %w", documentID, status, err)
	}
	return nil
}

// saveScreenshots 把截图写入存储并返回记录下来的相对路径。
// 写入失败只记录警告，截图是尽力而为的产物。
func (p *Processor) saveScreenshots(documentID uint, shots [][]byte, log *slog.Logger) []string {
	paths := make([]string, 0, len(shots))
	for i, shot := range shots {
		relPath := filepath.Join("screenshots", fmt.Sprint(documentID), fmt.Sprintf("page-%d.jpg", i+1))
		saved, err := p.store.Save(relPath, shot)
		if err != nil {
			log.Warn("save page screenshot failed",
				slog.Int("page", i+1),
				slog.Any("error", err),
			)
			continue
		}
		paths = append(paths, saved)
	}
	return paths
}

func (p *Processor) publish(ctx context.Context, ownerID uint, msg notify.ProcessingNotifyMessage, log *slog.Logger) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.PublishProcessing(ctx, ownerID, msg); err != nil {
		log.Warn("publish processing notification failed", slog.Any("error", err))
	}
}

func decodeOptions(raw []byte) database.ProcessingOptions {
	if len(raw) == 0 {
		return database.DefaultProcessingOptions()
	}
	var opts database.ProcessingOptions
	if err := json.Unmarshal(raw, &opts); err != nil {
		return database.DefaultProcessingOptions()
	}
	return opts
}
