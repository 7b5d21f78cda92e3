package resume

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"resumebox/internal/database"
	"resumebox/internal/storage"
)

// Deleter 执行简历的级联硬删除。
// 简历是限额资源，没有软删除路径：行和磁盘产物一起永久移除。
type Deleter struct {
	db     *gorm.DB
	store  *storage.Store
	cache  *StateCache
	logger *slog.Logger
}

// NewDeleter 构造 Deleter。
func NewDeleter(db *gorm.DB, store *storage.Store, cache *StateCache, logger *slog.Logger) *Deleter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deleter{db: db, store: store, cache: cache, logger: logger}
}

// HardDelete 删除文档及其全部关联行与磁盘产物。
// 文件删除尽力而为（已不存在视为成功，其余 IO 错误仅记录警告）；
// 行删除在一个事务内级联完成，不会留下悬挂引用。
func (d *Deleter) HardDelete(ctx context.Context, ownerID, documentID uint) error {
	log := d.logger.With(
		slog.Uint64("owner_id", uint64(ownerID)),
		slog.Uint64("document_id", uint64(documentID)),
	)

	var doc database.Document
	err := d.db.WithContext(ctx).
		Where("id = ? AND owner_id = ? AND kind = ?", documentID, ownerID, database.DocumentKindResume).
		First(&doc).Error
	if err != nil {
		return err
	}

	d.removeArtifacts(ctx, &doc, log)

	err = d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("document_id = ?", doc.ID).
			Delete(&database.ProcessingQueueItem{}).Error; err != nil {
			return fmt.Errorf("delete queue items: %w", err)
		}
		if err := tx.Unscoped().Where("document_id = ?", doc.ID).
			Delete(&database.ProcessingResult{}).Error; err != nil {
			return fmt.Errorf("delete processing result: %w", err)
		}
		if err := tx.Unscoped().Where("document_id = ?", doc.ID).
			Delete(&database.ResumeAnalysis{}).Error; err != nil {
			return fmt.Errorf("delete resume analysis: %w", err)
		}
		if err := tx.Unscoped().Delete(&database.Document{}, doc.ID).Error; err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if doc.IsActive {
		if err := d.cache.ClearState(ctx, ownerID); err != nil {
			log.Warn("clear state cache after delete failed", slog.Any("error", err))
		}
	}

	log.Info("document hard-deleted")
	return nil
}

// removeArtifacts 删除主文件与记录在案的截图产物。
// 产物路径在生成时就已落库，删除是查表而不是按通配符猜路径。
func (d *Deleter) removeArtifacts(ctx context.Context, doc *database.Document, log *slog.Logger) {
	if err := d.store.Remove(doc.StoragePath); err != nil {
		log.Warn("remove stored file failed", slog.String("path", doc.StoragePath), slog.Any("error", err))
	}

	var result database.ProcessingResult
	err := d.db.WithContext(ctx).Where("document_id = ?", doc.ID).First(&result).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("load processing result for artifact cleanup failed", slog.Any("error", err))
		}
		return
	}

	var paths []string
	if len(result.ScreenshotPaths) > 0 {
		if err := json.Unmarshal(result.ScreenshotPaths, &paths); err != nil {
			log.Warn("decode screenshot paths failed", slog.Any("error", err))
			return
		}
	}
	for _, path := range paths {
		if err := d.store.Remove(path); err != nil {
			log.Warn("remove screenshot failed", slog.String("path", path), slog.Any("error", err))
		}
	}
}
