package resume

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"resumebox/internal/database"
	"resumebox/internal/enrichment"
	"resumebox/internal/extraction"
)

// Results 负责提取结果的持久化以及满足条件时触发 AI 分析。
type Results struct {
	db         *gorm.DB
	analyzer   enrichment.Analyzer
	logger     *slog.Logger
	minTextLen int
	aiTimeout  time.Duration
}

// NewResults 构造 Results。analyzer 传 nil 时完全跳过 AI 分析。
func NewResults(db *gorm.DB, analyzer enrichment.Analyzer, logger *slog.Logger, minTextLen int, aiTimeout time.Duration) *Results {
	if logger == nil {
		logger = slog.Default()
	}
	return &Results{
		db:         db,
		analyzer:   analyzer,
		logger:     logger,
		minTextLen: minTextLen,
		aiTimeout:  aiTimeout,
	}
}

// SaveExtraction 以文档为键 upsert 提取结果（冲突即整行覆盖，不追加）。
func (r *Results) SaveExtraction(ctx context.Context, documentID uint, res *extraction.Result, screenshotPaths []string) (*database.ProcessingResult, error) {
	pathsJSON, err := json.Marshal(screenshotPaths)
	if err != nil {
		return nil, fmt.Errorf("marshal screenshot paths: %w", err)
	}

	row := database.ProcessingResult{
		DocumentID:      documentID,
		ExtractedText:   res.Text,
		TextLength:      res.TextLength,
		WordCount:       res.WordCount,
		LineCount:       res.LineCount,
		PageCount:       res.PageCount,
		PDFTitle:        res.Title,
		PDFAuthor:       res.Author,
		PDFCreator:      res.Creator,
		PDFProducer:     res.Producer,
		ScreenshotPaths: datatypes.JSON(pathsJSON),
		ProcessedAt:     time.Now(),
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "document_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"extracted_text", "text_length", "word_count", "line_count", "page_count",
			"pdf_title", "pdf_author", "pdf_creator", "pdf_producer",
			"screenshot_paths", "processed_at", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("upsert processing result: %w", err)
	}
	return &row, nil
}

// MaybeEnrich 在提取文本足够长时调用 AI 分析并保存 ResumeAnalysis。
// 任何失败（超时、响应畸形）都是软失败：记录日志，不改变文档的处理状态。
func (r *Results) MaybeEnrich(ctx context.Context, documentID uint, res *extraction.Result) {
	log := r.logger.With(slog.Uint64("document_id", uint64(documentID)))

	if r.analyzer == nil {
		return
	}
	if res.TextLength < r.minTextLen {
		log.Info("skipping ai enrichment, extracted text too short",
			slog.Int("text_length", res.TextLength),
			slog.Int("min_text_len", r.minTextLen),
		)
		return
	}

	var firstPage []byte
	if len(res.Screenshots) > 0 {
		firstPage = res.Screenshots[0]
	}

	aiCtx, cancel := context.WithTimeout(ctx, r.aiTimeout)
	defer cancel()

	analysis, err := r.analyzer.Analyze(aiCtx, res.Text, firstPage)
	if err != nil {
		log.Warn("ai enrichment failed, document stays completed", slog.Any("error", err))
		return
	}

	if err := r.saveAnalysis(ctx, documentID, analysis, res.Contact); err != nil {
		log.Warn("persist resume analysis failed", slog.Any("error", err))
	}
}

// saveAnalysis upsert ResumeAnalysis；AI 未给出的联系人字段用启发式结果兜底。
func (r *Results) saveAnalysis(ctx context.Context, documentID uint, analysis *enrichment.Analysis, hints extraction.ContactHints) error {
	skillsJSON, err := json.Marshal(analysis.Skills)
	if err != nil {
		return fmt.Errorf("marshal skills: %w", err)
	}
	recsJSON, err := json.Marshal(analysis.Recommendations)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}

	row := database.ResumeAnalysis{
		DocumentID:      documentID,
		ContactName:     firstNonEmpty(analysis.ContactName, hints.Name),
		ContactEmail:    firstNonEmpty(analysis.ContactEmail, hints.Email),
		ContactPhone:    firstNonEmpty(analysis.ContactPhone, hints.Phone),
		Skills:          datatypes.JSON(skillsJSON),
		QualityScore:    analysis.QualityScore,
		ATSScore:        analysis.ATSScore,
		AestheticScore:  analysis.AestheticScore,
		Recommendations: datatypes.JSON(recsJSON),
		AnalyzedAt:      time.Now(),
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "document_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"contact_name", "contact_email", "contact_phone",
			"skills", "quality_score", "ats_score", "aesthetic_score",
			"recommendations", "analyzed_at", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert resume analysis: %w", err)
	}
	return nil
}

// Get 返回文档的提取结果与可选的 AI 分析（分析缺失不是错误）。
func (r *Results) Get(ctx context.Context, documentID uint) (*database.ProcessingResult, *database.ResumeAnalysis, error) {
	var result database.ProcessingResult
	if err := r.db.WithContext(ctx).Where("document_id = ?", documentID).First(&result).Error; err != nil {
		return nil, nil, err
	}

	var analysis database.ResumeAnalysis
	err := r.db.WithContext(ctx).Where("document_id = ?", documentID).First(&analysis).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &result, nil, nil
		}
		return nil, nil, fmt.Errorf("load resume analysis: %w", err)
	}
	return &result, &analysis, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
