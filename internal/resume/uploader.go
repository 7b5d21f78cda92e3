package resume

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"resumebox/internal/database"
	"resumebox/internal/storage"
)

var allowedMimeTypes = map[string]bool{
	"application/pdf": true,
}

// Uploader 负责简历上传：校验、限额、落盘与入队在一个事务内完成。
type Uploader struct {
	db             *gorm.DB
	store          *storage.Store
	logger         *slog.Logger
	maxUploadBytes int64
	maxResumes     int
	clamdAddr      string
}

// NewUploader 构造 Uploader。clamdAddr 为空时跳过病毒扫描。
func NewUploader(db *gorm.DB, store *storage.Store, logger *slog.Logger, maxUploadBytes int64, maxResumes int, clamdAddr string) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{
		db:             db,
		store:          store,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
		maxResumes:     maxResumes,
		clamdAddr:      clamdAddr,
	}
}

// UploadInput 描述一次上传请求。
type UploadInput struct {
	OwnerID      uint
	OriginalName string
	MimeType     string
	Data         []byte
	Options      database.ProcessingOptions
}

// UploadOutcome 是上传成功后的返回值。
type UploadOutcome struct {
	DocumentID uint   `json:"document_id"`
	StoredName string `json:"stored_name"`
	Status     string `json:"status"`
}

// Upload 校验输入后在一个事务内写入 Document 与队列条目。
// 首次上传的简历自动激活；任一步骤失败会回滚并删除刚写入的文件。
func (u *Uploader) Upload(ctx context.Context, in UploadInput) (*UploadOutcome, error) {
	if in.OwnerID == 0 {
		return nil, ErrMissingOwner
	}
	if len(in.Data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(in.Data)) > u.maxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, len(in.Data), u.maxUploadBytes)
	}
	if !allowedMimeTypes[in.MimeType] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMime, in.MimeType)
	}

	if err := u.scanForViruses(in.Data); err != nil {
		return nil, err
	}

	optionsJSON, err := marshalOptions(in.Options)
	if err != nil {
		return nil, err
	}

	storedName := uuid.NewString() + ".pdf"
	var savedPath string
	doc := database.Document{
		OwnerID:          in.OwnerID,
		Kind:             database.DocumentKindResume,
		StoredName:       storedName,
		OriginalName:     in.OriginalName,
		ByteSize:         int64(len(in.Data)),
		MimeType:         in.MimeType,
		ProcessingStatus: database.DocumentStatusPending,
		UploadedAt:       time.Now(),
	}

	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&database.Document{}).
			Where("owner_id = ? AND kind = ?", in.OwnerID, database.DocumentKindResume).
			Count(&count).Error; err != nil {
			return fmt.Errorf("count resumes: %w", err)
		}
		if u.maxResumes > 0 && count >= int64(u.maxResumes) {
			return ErrQuotaExceeded
		}

		relPath := filepath.Join("resumes", fmt.Sprint(in.OwnerID), storedName)
		saved, err := u.store.Save(relPath, in.Data)
		if err != nil {
			return fmt.Errorf("persist upload: %w", err)
		}
		savedPath = saved
		doc.StoragePath = saved

		var activeCount int64
		if err := tx.Model(&database.Document{}).
			Where("owner_id = ? AND kind = ? AND is_active = ?", in.OwnerID, database.DocumentKindResume, true).
			Count(&activeCount).Error; err != nil {
			return fmt.Errorf("count active resumes: %w", err)
		}
		doc.IsActive = activeCount == 0

		if err := tx.Create(&doc).Error; err != nil {
			return fmt.Errorf("create document: %w", err)
		}

		item := database.ProcessingQueueItem{
			DocumentID: doc.ID,
			Status:     database.QueueStatusQueued,
			Priority:   database.DefaultQueuePriority,
			Options:    optionsJSON,
		}
		if err := tx.Create(&item).Error; err != nil {
			return fmt.Errorf("create queue item: %w", err)
		}

		return nil
	})
	if err != nil {
		// 不留孤儿文件：事务失败时把刚写入的文件删掉。
		if savedPath != "" {
			if removeErr := u.store.Remove(savedPath); removeErr != nil {
				u.logger.Warn("remove uploaded file after rollback failed",
					slog.String("path", savedPath),
					slog.Any("error", removeErr),
				)
			}
		}
		return nil, err
	}

	return &UploadOutcome{
		DocumentID: doc.ID,
		StoredName: storedName,
		Status:     doc.ProcessingStatus,
	}, nil
}

func (u *Uploader) scanForViruses(data []byte) error {
	if u.clamdAddr == "" {
		return nil
	}

	clamdClient := clamd.NewClamd(u.clamdAddr)
	abortChan := make(chan bool)
	scanChan, err := clamdClient.ScanStream(bytes.NewReader(data), abortChan)
	if err != nil {
		return fmt.Errorf("scan file: %w", err)
	}
	defer close(abortChan)

	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			return ErrMaliciousFile
		}
	}
	return nil
}

func marshalOptions(opts database.ProcessingOptions) (datatypes.JSON, error) {
	if opts == (database.ProcessingOptions{}) {
		opts = database.DefaultProcessingOptions()
	}
	data, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("marshal processing options: %w", err)
	}
	return datatypes.JSON(data), nil
}
