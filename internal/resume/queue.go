package resume

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"resumebox/internal/database"
)

// Queue 提供对处理队列表的读写。
//
// 认领通过条件更新实现单写者语义：只有前一状态仍为 queued 的更新才会生效，
// 因此后台 worker 与手动触发不可能同时处理同一文档。
type Queue struct {
	db *gorm.DB
}

// NewQueue 构造 Queue。
func NewQueue(db *gorm.DB) *Queue {
	return &Queue{db: db}
}

// NextBatch 返回最多 limit 个待处理条目，优先级升序、同优先级按创建时间先进先出。
func (q *Queue) NextBatch(ctx context.Context, limit int) ([]database.ProcessingQueueItem, error) {
	var items []database.ProcessingQueueItem
	err := q.db.WithContext(ctx).
		Where("status = ?", database.QueueStatusQueued).
		Order("priority ASC, created_at ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("select queued items: %w", err)
	}
	return items, nil
}

// Claim 尝试把条目从 queued 置为 processing。
// 返回 false 表示该条目已被其它执行者抢先认领。
func (q *Queue) Claim(ctx context.Context, itemID uint) (bool, error) {
	res := q.db.WithContext(ctx).
		Model(&database.ProcessingQueueItem{}).
		Where("id = ? AND status = ?", itemID, database.QueueStatusQueued).
		Update("status", database.QueueStatusProcessing)
	if res.Error != nil {
		return false, fmt.Errorf("claim queue item %d: %w", itemID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ClaimForDocument 为手动触发认领文档的处理权。
// 已有 queued 条目则认领它；已在处理中则返回 ErrAlreadyProcessing；
// 没有未完结条目时新建一个直接处于 processing 的条目。
func (q *Queue) ClaimForDocument(ctx context.Context, documentID uint) (*database.ProcessingQueueItem, error) {
	var claimed database.ProcessingQueueItem

	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item database.ProcessingQueueItem
		err := tx.Where("document_id = ? AND status IN ?", documentID,
			[]string{database.QueueStatusQueued, database.QueueStatusProcessing}).
			Order("created_at ASC").
			First(&item).Error

		switch {
		case err == nil:
			if item.Status == database.QueueStatusProcessing {
				return ErrAlreadyProcessing
			}
			res := tx.Model(&database.ProcessingQueueItem{}).
				Where("id = ? AND status = ?", item.ID, database.QueueStatusQueued).
				Update("status", database.QueueStatusProcessing)
			if res.Error != nil {
				return fmt.Errorf("claim queue item %d: %w", item.ID, res.Error)
			}
			if res.RowsAffected != 1 {
				return ErrAlreadyProcessing
			}
			item.Status = database.QueueStatusProcessing
			claimed = item
			return nil

		case errors.Is(err, gorm.ErrRecordNotFound):
			item = database.ProcessingQueueItem{
				DocumentID: documentID,
				Status:     database.QueueStatusProcessing,
				Priority:   database.DefaultQueuePriority,
			}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("create queue item: %w", err)
			}
			claimed = item
			return nil

		default:
			return fmt.Errorf("find outstanding queue item: %w", err)
		}
	})
	if err != nil {
		return nil, err
	}

	return &claimed, nil
}

// Complete 将条目置为终态 completed。
func (q *Queue) Complete(ctx context.Context, itemID uint) error {
	err := q.db.WithContext(ctx).
		Model(&database.ProcessingQueueItem{}).
		Where("id = ?", itemID).
		Update("status", database.QueueStatusCompleted).Error
	if err != nil {
		return fmt.Errorf("complete queue item %d: %w", itemID, err)
	}
	return nil
}

// Fail 将条目置为终态 failed，并记录错误与重试计数（仅用于诊断，不会自动重入队）。
func (q *Queue) Fail(ctx context.Context, itemID uint, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if len(msg) > 2000 {
		msg = msg[:2000]
	}

	err := q.db.WithContext(ctx).
		Model(&database.ProcessingQueueItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{
			"status":      database.QueueStatusFailed,
			"last_error":  msg,
			"retry_count": gorm.Expr("retry_count + 1"),
		}).Error
	if err != nil {
		return fmt.Errorf("fail queue item %d: %w", itemID, err)
	}
	return nil
}
