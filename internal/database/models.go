package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 文档处理状态。
const (
	DocumentStatusPending    = "pending"
	DocumentStatusQueued     = "queued"
	DocumentStatusProcessing = "processing"
	DocumentStatusCompleted  = "completed"
	DocumentStatusFailed     = "failed"
)

// 队列条目状态。queued/processing 视为未完结，terminal 状态不会被重新入队。
const (
	QueueStatusQueued     = "queued"
	QueueStatusProcessing = "processing"
	QueueStatusCompleted  = "completed"
	QueueStatusFailed     = "failed"
)

// DocumentKindResume 是当前唯一支持的文档类型。
const DocumentKindResume = "resume"

// DefaultQueuePriority 数值越小越优先。
const DefaultQueuePriority = 100

// Document 表示用户上传的一份文件及其处理状态。
// 同一 Owner + Kind 下最多只有一行 IsActive = true。
type Document struct {
	gorm.Model
	OwnerID          uint   `gorm:"index"`
	Kind             string `gorm:"size:32;index;default:resume"`
	StoredName       string `gorm:"size:255"`
	OriginalName     string `gorm:"size:255"`
	StoragePath      string `gorm:"size:512"`
	ByteSize         int64
	MimeType         string `gorm:"size:128"`
	IsActive         bool   `gorm:"index"`
	ProcessingStatus string `gorm:"size:32;index"`
	UploadedAt       time.Time
}

// ProcessingOptions 描述一次提取任务启用的步骤，作为 JSONB 存储在队列条目上。
type ProcessingOptions struct {
	ExtractText        bool `json:"extract_text"`
	ExtractMetadata    bool `json:"extract_metadata"`
	ExtractScreenshots bool `json:"extract_screenshots"`
	ExtractImages      bool `json:"extract_images"`
	ExtractTables      bool `json:"extract_tables"`
}

// DefaultProcessingOptions 返回上传时的默认提取配置。
func DefaultProcessingOptions() ProcessingOptions {
	return ProcessingOptions{
		ExtractText:        true,
		ExtractMetadata:    true,
		ExtractScreenshots: true,
	}
}

// ProcessingQueueItem 表示一份文档的提取任务。
// 同一文档同一时间最多只有一个 queued/processing 条目。
type ProcessingQueueItem struct {
	gorm.Model
	DocumentID uint           `gorm:"index"`
	Status     string         `gorm:"size:32;index"`
	Priority   int            `gorm:"index;default:100"`
	Options    datatypes.JSON `gorm:"type:jsonb"`
	RetryCount int
	LastError  string `gorm:"size:2048"`
}

// ProcessingResult 保存一份文档的提取结果，与文档一一对应。
type ProcessingResult struct {
	gorm.Model
	DocumentID      uint   `gorm:"uniqueIndex"`
	ExtractedText   string `gorm:"type:text"`
	TextLength      int
	WordCount       int
	LineCount       int
	PageCount       int
	PDFTitle        string         `gorm:"size:512"`
	PDFAuthor       string         `gorm:"size:512"`
	PDFCreator      string         `gorm:"size:512"`
	PDFProducer     string         `gorm:"size:512"`
	ScreenshotPaths datatypes.JSON `gorm:"type:jsonb"`
	ProcessedAt     time.Time
}

// ResumeAnalysis 保存 AI 分析结果，仅在分析成功时存在。
type ResumeAnalysis struct {
	gorm.Model
	DocumentID      uint `gorm:"uniqueIndex"`
	ContactName     string
	ContactEmail    string
	ContactPhone    string
	Skills          datatypes.JSON `gorm:"type:jsonb"`
	QualityScore    int
	ATSScore        int
	AestheticScore  int
	Recommendations datatypes.JSON `gorm:"type:jsonb"`
	AnalyzedAt      time.Time
}

// UserResumeProcessingState 是按 Owner 反范式化的处理状态快照。
// processing_needed_status 总是在读取时派生，从不落库。
type UserResumeProcessingState struct {
	gorm.Model
	OwnerID          uint `gorm:"uniqueIndex"`
	ActiveDocumentID *uint
	HasParsedResume  bool
	TextLength       int
	WordCount        int
	LineCount        int
	PageCount        int
	ProcessedAt      *time.Time
}
