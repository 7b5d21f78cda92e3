package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resumebox/internal/api/middleware"
	"resumebox/internal/database"
	"resumebox/internal/resume"
)

// ResumeHandler 负责简历文档的上传、查询、激活与删除。
type ResumeHandler struct {
	db       *gorm.DB
	uploader *resume.Uploader
	selector *resume.Selector
	deleter  *resume.Deleter
}

// NewResumeHandler 构造 ResumeHandler。
func NewResumeHandler(db *gorm.DB, uploader *resume.Uploader, selector *resume.Selector, deleter *resume.Deleter) *ResumeHandler {
	return &ResumeHandler{
		db:       db,
		uploader: uploader,
		selector: selector,
		deleter:  deleter,
	}
}

var errInvalidDocumentID = errors.New("invalid document id")

type documentResponse struct {
	ID               uint      `json:"id"`
	OwnerID          uint      `json:"owner_id"`
	OriginalName     string    `json:"original_name"`
	StoredName       string    `json:"stored_name"`
	ByteSize         int64     `json:"byte_size"`
	MimeType         string    `json:"mime_type"`
	IsActive         bool      `json:"is_active"`
	ProcessingStatus string    `json:"processing_status"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

func newDocumentResponse(doc database.Document) documentResponse {
	return documentResponse{
		ID:               doc.ID,
		OwnerID:          doc.OwnerID,
		OriginalName:     doc.OriginalName,
		StoredName:       doc.StoredName,
		ByteSize:         doc.ByteSize,
		MimeType:         doc.MimeType,
		IsActive:         doc.IsActive,
		ProcessingStatus: doc.ProcessingStatus,
		UploadedAt:       doc.UploadedAt,
	}
}

// UploadResume 接收 multipart 上传，写入文档并入队处理。
func (h *ResumeHandler) UploadResume(c *gin.Context) {
	log := middleware.LoggerFromContext(c)

	ownerID, err := parseOwnerID(c.PostForm("owner_id"))
	if err != nil {
		BadRequest(c, "invalid owner_id")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		Internal(c, "failed to open uploaded file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		Internal(c, "failed to read uploaded file")
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	options := database.DefaultProcessingOptions()
	if raw := c.PostForm("options"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &options); err != nil {
			BadRequest(c, "invalid options payload")
			return
		}
	}

	outcome, err := h.uploader.Upload(c.Request.Context(), resume.UploadInput{
		OwnerID:      ownerID,
		OriginalName: fileHeader.Filename,
		MimeType:     mimeType,
		Data:         data,
		Options:      options,
	})
	if err != nil {
		switch {
		case errors.Is(err, resume.ErrQuotaExceeded):
			Forbidden(c, "resume limit reached")
		case errors.Is(err, resume.ErrUnsupportedMime):
			BadRequest(c, "only PDF uploads are supported")
		case errors.Is(err, resume.ErrFileTooLarge):
			BadRequest(c, "file exceeds the upload size limit")
		case errors.Is(err, resume.ErrEmptyFile):
			BadRequest(c, "file is empty")
		case errors.Is(err, resume.ErrMaliciousFile):
			BadRequest(c, "file failed the malware scan")
		default:
			log.Error("upload resume failed", "error", err)
			Internal(c, "failed to store resume")
		}
		return
	}

	c.JSON(http.StatusCreated, outcome)
}

// ListResumes 列出某个 Owner 的简历，默认只含激活的那份。
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	ownerID, err := parseOwnerID(c.Param("owner"))
	if err != nil {
		BadRequest(c, "invalid owner id")
		return
	}

	query := h.db.WithContext(c.Request.Context()).
		Where("owner_id = ? AND kind = ?", ownerID, database.DocumentKindResume)
	if c.Query("include_inactive") != "true" {
		query = query.Where("is_active = ?", true)
	}

	var docs []database.Document
	if err := query.Order("uploaded_at DESC").Find(&docs).Error; err != nil {
		Internal(c, "failed to list resumes")
		return
	}

	items := make([]documentResponse, 0, len(docs))
	for _, doc := range docs {
		items = append(items, newDocumentResponse(doc))
	}
	c.JSON(http.StatusOK, items)
}

// GetActiveResume 返回 Owner 当前激活的简历，没有则 404。
func (h *ResumeHandler) GetActiveResume(c *gin.Context) {
	ownerID, err := parseOwnerID(c.Param("owner"))
	if err != nil {
		BadRequest(c, "invalid owner id")
		return
	}

	var doc database.Document
	err = h.db.WithContext(c.Request.Context()).
		Where("owner_id = ? AND kind = ? AND is_active = ?", ownerID, database.DocumentKindResume, true).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "no active resume")
			return
		}
		Internal(c, "failed to query active resume")
		return
	}

	c.JSON(http.StatusOK, newDocumentResponse(doc))
}

type ownerRequest struct {
	OwnerID uint `json:"owner_id" binding:"required"`
}

// ActivateResume 将指定文档设为 Owner 的激活简历。
func (h *ResumeHandler) ActivateResume(c *gin.Context) {
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

	if err := h.selector.SetActive(c.Request.Context(), req.OwnerID, documentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "resume not found")
			return
		}
		Internal(c, "failed to activate resume")
		return
	}

	doc, err := h.loadOwnedDocument(c.Request.Context(), req.OwnerID, documentID)
	if err != nil {
		Internal(c, "failed to reload resume")
		return
	}
	c.JSON(http.StatusOK, newDocumentResponse(*doc))
}

// DeleteResume 物理删除文档及其全部衍生数据。
func (h *ResumeHandler) DeleteResume(c *gin.Context) {
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

	if err := h.deleter.HardDelete(c.Request.Context(), req.OwnerID, documentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "resume not found")
			return
		}
		Internal(c, "failed to delete resume")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ResumeHandler) loadOwnedDocument(ctx context.Context, ownerID, documentID uint) (*database.Document, error) {
	var doc database.Document
	if err := h.db.WithContext(ctx).
		Where("id = ? AND owner_id = ? AND kind = ?", documentID, ownerID, database.DocumentKindResume).
		First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func parseOwnerID(raw string) (uint, error) {
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		return 0, errInvalidDocumentID
	}
	return uint(value), nil
}

func parseDocumentID(raw string) (uint, error) {
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		return 0, errInvalidDocumentID
	}
	return uint(value), nil
}
