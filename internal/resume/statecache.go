package resume

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"resumebox/internal/database"
)

// 派生的处理状态，只在读取时计算，从不落库。
const (
	StatusNoResume          = "no_resume"
	StatusNeedsProcessing   = "needs_processing"
	StatusNeedsReprocessing = "needs_reprocessing"
	StatusUpToDate          = "up_to_date"
)

// State 是缓存行加派生状态的读取视图。
type State struct {
	OwnerID                uint       `json:"owner_id"`
	ActiveDocumentID       *uint      `json:"active_document_id"`
	HasParsedResume        bool       `json:"has_parsed_resume"`
	TextLength             int        `json:"text_length"`
	WordCount              int        `json:"word_count"`
	LineCount              int        `json:"line_count"`
	PageCount              int        `json:"page_count"`
	ProcessedAt            *time.Time `json:"processed_at"`
	ProcessingNeededStatus string     `json:"processing_needed_status"`
}

// StateCache 维护按 Owner 反范式化的处理状态快照。
type StateCache struct {
	db *gorm.DB
}

// NewStateCache 构造 StateCache。
func NewStateCache(db *gorm.DB) *StateCache {
	return &StateCache{db: db}
}

// GetState 返回 Owner 的处理状态，首次读取时惰性建行。
// processing_needed_status 每次都从 Document 表现状重新派生。
func (c *StateCache) GetState(ctx context.Context, ownerID uint) (*State, error) {
	row, err := c.ensureRow(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	active, err := c.findActiveDocument(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	state := &State{
		OwnerID:          ownerID,
		ActiveDocumentID: row.ActiveDocumentID,
		HasParsedResume:  row.HasParsedResume,
		TextLength:       row.TextLength,
		WordCount:        row.WordCount,
		LineCount:        row.LineCount,
		PageCount:        row.PageCount,
		ProcessedAt:      row.ProcessedAt,
	}
	state.ProcessingNeededStatus = deriveStatus(row, active)
	return state, nil
}

// UpdateState 用 documentId 的 Document+ProcessingResult 连接结果覆盖缓存行。
// documentId 不是 Owner 当前激活的简历时拒绝写入，防止旧结果污染缓存。
func (c *StateCache) UpdateState(ctx context.Context, ownerID, documentID uint) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc database.Document
		err := tx.Where("id = ? AND owner_id = ? AND kind = ?", documentID, ownerID, database.DocumentKindResume).
			First(&doc).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotActiveResume
			}
			return fmt.Errorf("load document: %w", err)
		}
		if !doc.IsActive {
			return ErrNotActiveResume
		}

		var result database.ProcessingResult
		if err := tx.Where("document_id = ?", documentID).First(&result).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("no processing result for document %d: %w", documentID, err)
			}
			return fmt.Errorf("load processing result: %w", err)
		}

		processedAt := result.ProcessedAt
		row := database.UserResumeProcessingState{
			OwnerID:          ownerID,
			ActiveDocumentID: &doc.ID,
			HasParsedResume:  true,
			TextLength:       result.TextLength,
			WordCount:        result.WordCount,
			LineCount:        result.LineCount,
			PageCount:        result.PageCount,
			ProcessedAt:      &processedAt,
		}
		err = tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "owner_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"active_document_id", "has_parsed_resume",
				"text_length", "word_count", "line_count", "page_count",
				"processed_at", "updated_at",
			}),
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("upsert state row: %w", err)
		}
		return nil
	})
}

// ClearState 清空全部反范式化字段并置 has_parsed_resume=false。
// 激活简历被删除或切换时调用，保证不会把旧结果当作当前状态返回。
func (c *StateCache) ClearState(ctx context.Context, ownerID uint) error {
	row := database.UserResumeProcessingState{
		OwnerID: ownerID,
	}
	err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"active_document_id": nil,
			"has_parsed_resume":  false,
			"text_length":        0,
			"word_count":         0,
			"line_count":         0,
			"page_count":         0,
			"processed_at":       nil,
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("clear state row: %w", err)
	}
	return nil
}

func (c *StateCache) ensureRow(ctx context.Context, ownerID uint) (*database.UserResumeProcessingState, error) {
	var row database.UserResumeProcessingState
	err := c.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&row).Error
	if err == nil {
		return &row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load state row: %w", err)
	}

	row = database.UserResumeProcessingState{OwnerID: ownerID, HasParsedResume: false}
	if err := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "owner_id"}}, DoNothing: true}).
		Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create state row: %w", err)
	}
	return &row, nil
}

func (c *StateCache) findActiveDocument(ctx context.Context, ownerID uint) (*database.Document, error) {
	var doc database.Document
	err := c.db.WithContext(ctx).
		Where("owner_id = ? AND kind = ? AND is_active = ?", ownerID, database.DocumentKindResume, true).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active document: %w", err)
	}
	return &doc, nil
}

// deriveStatus 按派生规则计算 processing_needed_status。
func deriveStatus(row *database.UserResumeProcessingState, active *database.Document) string {
	if active == nil {
		return StatusNoResume
	}
	if !row.HasParsedResume || row.ProcessedAt == nil {
		return StatusNeedsProcessing
	}
	// 缓存的是别的文档的结果时同样视为未处理。
	if row.ActiveDocumentID == nil || *row.ActiveDocumentID != active.ID {
		return StatusNeedsProcessing
	}
	if row.ProcessedAt.Before(active.UploadedAt) {
		return StatusNeedsReprocessing
	}
	return StatusUpToDate
}
