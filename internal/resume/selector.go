package resume

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"resumebox/internal/database"
)

// Selector 维护 "每个 Owner 至多一份激活简历" 的不变式。
type Selector struct {
	db     *gorm.DB
	cache  *StateCache
	logger *slog.Logger
}

// NewSelector 构造 Selector。
func NewSelector(db *gorm.DB, cache *StateCache, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{db: db, cache: cache, logger: logger}
}

// SetActive 把目标文档设为 Owner 的激活简历。
// 先取消其余简历的激活再激活目标，两步在同一事务内序列化，
// 并发调用不会出现 0 份或 2 份激活简历。成功后清空状态缓存，下次读取重新计算。
func (s *Selector) SetActive(ctx context.Context, ownerID, documentID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc database.Document
		err := tx.Where("id = ? AND owner_id = ? AND kind = ?", documentID, ownerID, database.DocumentKindResume).
			First(&doc).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			return fmt.Errorf("load document: %w", err)
		}

		err = tx.Model(&database.Document{}).
			Where("owner_id = ? AND kind = ? AND id <> ?", ownerID, database.DocumentKindResume, documentID).
			Update("is_active", false).Error
		if err != nil {
			return fmt.Errorf("deactivate other resumes: %w", err)
		}

		err = tx.Model(&database.Document{}).
			Where("id = ?", documentID).
			Update("is_active", true).Error
		if err != nil {
			return fmt.Errorf("activate resume: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.cache.ClearState(ctx, ownerID); err != nil {
		// 缓存失效失败不回滚激活；记录后由下一次成功处理覆盖。
		s.logger.Warn("clear state cache after activation failed",
			slog.Uint64("owner_id", uint64(ownerID)),
			slog.Any("error", err),
		)
	}
	return nil
}
