package resume

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"resumebox/internal/config"
	"resumebox/internal/database"
	"resumebox/internal/extraction"
	"resumebox/internal/notify"
	"resumebox/internal/storage"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.NewStore(config.StorageConfig{
		UploadRoot:  t.TempDir(),
		FallbackDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func seedDocument(t *testing.T, db *gorm.DB, ownerID uint, active bool, storagePath string) *database.Document {
	t.Helper()
	doc := database.Document{
		OwnerID:          ownerID,
		Kind:             database.DocumentKindResume,
		StoredName:       uuid.NewString() + ".pdf",
		OriginalName:     "resume.pdf",
		StoragePath:      storagePath,
		ByteSize:         128,
		MimeType:         "application/pdf",
		IsActive:         active,
		ProcessingStatus: database.DocumentStatusPending,
		UploadedAt:       time.Now(),
	}
	if err := db.Create(&doc).Error; err != nil {
		t.Fatalf("seed document: %v", err)
	}
	return &doc
}

func seedQueueItem(t *testing.T, db *gorm.DB, documentID uint, status string, priority int) *database.ProcessingQueueItem {
	t.Helper()
	item := database.ProcessingQueueItem{
		DocumentID: documentID,
		Status:     status,
		Priority:   priority,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed queue item: %v", err)
	}
	return &item
}

// fakeEngine 返回预设结果，payload 含 "corrupt" 时返回预设错误。
type fakeEngine struct {
	result  *extraction.Result
	err     error
	calls   int
	payload []byte
}

func (e *fakeEngine) Extract(_ context.Context, data []byte, _ database.ProcessingOptions) (*extraction.Result, error) {
	e.calls++
	e.payload = data
	if e.err != nil {
		return nil, e.err
	}
	if e.result != nil {
		return e.result, nil
	}
	return &extraction.Result{
		Text:       "hello world",
		TextLength: 11,
		WordCount:  2,
		LineCount:  1,
		PageCount:  1,
	}, nil
}

type fakeNotifier struct {
	owners   []uint
	messages []notify.ProcessingNotifyMessage
}

func (n *fakeNotifier) PublishProcessing(_ context.Context, ownerID uint, msg notify.ProcessingNotifyMessage) error {
	n.owners = append(n.owners, ownerID)
	n.messages = append(n.messages, msg)
	return nil
}
