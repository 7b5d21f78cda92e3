package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resumebox/internal/api/middleware"
	"resumebox/internal/database"
	"resumebox/internal/extraction"
	"resumebox/internal/resume"
)

// ProcessingHandler 负责手动触发处理、查询结果与状态缓存。
type ProcessingHandler struct {
	db        *gorm.DB
	processor *resume.Processor
	results   *resume.Results
	cache     *resume.StateCache
}

// NewProcessingHandler 构造 ProcessingHandler。
func NewProcessingHandler(db *gorm.DB, processor *resume.Processor, results *resume.Results, cache *resume.StateCache) *ProcessingHandler {
	return &ProcessingHandler{
		db:        db,
		processor: processor,
		results:   results,
		cache:     cache,
	}
}

// ProcessNow 同步处理指定文档，与后台 worker 互斥。
func (h *ProcessingHandler) ProcessNow(c *gin.Context) {
	log := middleware.LoggerFromContext(c)

	var req ownerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	documentID, err := parseDocumentID(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid document id")
		return
	}

	result, err := h.processor.ProcessNow(c.Request.Context(), req.OwnerID, documentID)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			NotFound(c, "resume not found")
		case errors.Is(err, resume.ErrAlreadyProcessing):
			Conflict(c, "resume is already being processed")
		case errors.Is(err, extraction.ErrUnreadablePDF):
			Unprocessable(c, "resume could not be parsed")
		default:
			log.Error("manual processing failed", "document_id", documentID, "error", err)
			Internal(c, "failed to process resume")
		}
		return
	}

	c.JSON(http.StatusOK, newResultResponse(result, nil))
}

type resultResponse struct {
	DocumentID      uint     `json:"document_id"`
	TextLength      int      `json:"text_length"`
	WordCount       int      `json:"word_count"`
	LineCount       int      `json:"line_count"`
	PageCount       int      `json:"page_count"`
	PDFTitle        string   `json:"pdf_title,omitempty"`
	PDFAuthor       string   `json:"pdf_author,omitempty"`
	PDFCreator      string   `json:"pdf_creator,omitempty"`
	PDFProducer     string   `json:"pdf_producer,omitempty"`
	ExtractedText   string   `json:"extracted_text,omitempty"`
	ScreenshotPaths []string  `json:"screenshot_paths,omitempty"`
	ProcessedAt     time.Time `json:"processed_at"`

	Analysis *analysisResponse `json:"analysis,omitempty"`
}

type analysisResponse struct {
	ContactName     string   `json:"contact_name,omitempty"`
	ContactEmail    string   `json:"contact_email,omitempty"`
	ContactPhone    string   `json:"contact_phone,omitempty"`
	Skills          []string `json:"skills,omitempty"`
	QualityScore    int      `json:"quality_score"`
	ATSScore        int      `json:"ats_score"`
	AestheticScore  int      `json:"aesthetic_score"`
	Recommendations []string `json:"recommendations,omitempty"`
}

func newResultResponse(result *database.ProcessingResult, analysis *database.ResumeAnalysis) resultResponse {
	resp := resultResponse{
		DocumentID:    result.DocumentID,
		TextLength:    result.TextLength,
		WordCount:     result.WordCount,
		LineCount:     result.LineCount,
		PageCount:     result.PageCount,
		PDFTitle:      result.PDFTitle,
		PDFAuthor:     result.PDFAuthor,
		PDFCreator:    result.PDFCreator,
		PDFProducer:   result.PDFProducer,
		ExtractedText: result.ExtractedText,
		ProcessedAt:   result.ProcessedAt,
	}
	resp.ScreenshotPaths = decodeStringSlice(result.ScreenshotPaths)

	if analysis != nil {
		resp.Analysis = &analysisResponse{
			ContactName:     analysis.ContactName,
			ContactEmail:    analysis.ContactEmail,
			ContactPhone:    analysis.ContactPhone,
			Skills:          decodeStringSlice(analysis.Skills),
			QualityScore:    analysis.QualityScore,
			ATSScore:        analysis.ATSScore,
			AestheticScore:  analysis.AestheticScore,
			Recommendations: decodeStringSlice(analysis.Recommendations),
		}
	}
	return resp
}

// GetResults 返回文档的提取结果与可选的 AI 分析。
func (h *ProcessingHandler) GetResults(c *gin.Context) {
	documentID, err := parseDocumentID(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid document id")
		return
	}

	ownerID, err := parseOwnerID(c.Query("owner_id"))
	if err != nil {
		BadRequest(c, "invalid owner_id")
		return
	}

	ctx := c.Request.Context()
	var doc database.Document
	if err := h.db.WithContext(ctx).
		Where("id = ? AND owner_id = ? AND kind = ?", documentID, ownerID, database.DocumentKindResume).
		First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "resume not found")
			return
		}
		Internal(c, "failed to query resume")
		return
	}

	result, analysis, err := h.results.Get(ctx, documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "no processing results yet")
			return
		}
		Internal(c, "failed to query processing results")
		return
	}

	c.JSON(http.StatusOK, newResultResponse(result, analysis))
}

// GetState 返回 Owner 的处理状态快照，首次访问时惰性建行。
func (h *ProcessingHandler) GetState(c *gin.Context) {
	ownerID, err := parseOwnerID(c.Param("owner"))
	if err != nil {
		BadRequest(c, "invalid owner id")
		return
	}

	state, err := h.cache.GetState(c.Request.Context(), ownerID)
	if err != nil {
		Internal(c, "failed to query processing state")
		return
	}

	c.JSON(http.StatusOK, state)
}

// NeedsProcessing 返回激活简历是否需要（重新）处理。
func (h *ProcessingHandler) NeedsProcessing(c *gin.Context) {
	ownerID, err := parseOwnerID(c.Param("owner"))
	if err != nil {
		BadRequest(c, "invalid owner id")
		return
	}

	state, err := h.cache.GetState(c.Request.Context(), ownerID)
	if err != nil {
		Internal(c, "failed to query processing state")
		return
	}

	needed := state.ProcessingNeededStatus == resume.StatusNeedsProcessing ||
		state.ProcessingNeededStatus == resume.StatusNeedsReprocessing

	c.JSON(http.StatusOK, gin.H{
		"needs_processing": needed,
		"reason":           state.ProcessingNeededStatus,
	})
}

func decodeStringSlice(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil
	}
	return values
}
