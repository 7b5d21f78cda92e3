package resume

import (
	"context"
	"errors"
	"testing"
	"time"

	"resumebox/internal/database"
)

func TestNextBatchOrdersByPriorityThenFIFO(t *testing.T) {
	db := newTestDB(t)
	queue := NewQueue(db)
	ctx := context.Background()

	docLow := seedDocument(t, db, 1, true, "resumes/1/low.pdf")
	docOldest := seedDocument(t, db, 1, false, "resumes/1/oldest.pdf")
	docNewer := seedDocument(t, db, 1, false, "resumes/1/newer.pdf")

	base := time.Now().Add(-time.Hour)
	items := []database.ProcessingQueueItem{
		{DocumentID: docLow.ID, Status: database.QueueStatusQueued, Priority: 200},
		{DocumentID: docOldest.ID, Status: database.QueueStatusQueued, Priority: 100},
		{DocumentID: docNewer.ID, Status: database.QueueStatusQueued, Priority: 100},
	}
	items[0].CreatedAt = base
	items[1].CreatedAt = base.Add(time.Minute)
	items[2].CreatedAt = base.Add(2 * time.Minute)
	for i := range items {
		if err := db.Create(&items[i]).Error; err != nil {
			t.Fatalf("seed item: %v", err)
		}
	}

	batch, err := queue.NextBatch(ctx, 10)
	if err != nil {
		t.Fatalf("next batch: %v", err)
	}
	if len(batch) != 3 {
		t.Fatalf("batch size = %d, want 3", len(batch))
	}

	wantOrder := []uint{docOldest.ID, docNewer.ID, docLow.ID}
	for i, want := range wantOrder {
		if batch[i].DocumentID != want {
			t.Errorf("batch[%d].DocumentID = %d, want %d", i, batch[i].DocumentID, want)
		}
	}
}

func TestNextBatchSkipsTerminalItems(t *testing.T) {
	db := newTestDB(t)
	queue := NewQueue(db)
	ctx := context.Background()

	doc := seedDocument(t, db, 1, true, "resumes/1/a.pdf")
	seedQueueItem(t, db, doc.ID, database.QueueStatusCompleted, 100)
	seedQueueItem(t, db, doc.ID, database.QueueStatusFailed, 100)
	seedQueueItem(t, db, doc.ID, database.QueueStatusProcessing, 100)

	batch, err := queue.NextBatch(ctx, 10)
	if err != nil {
		t.Fatalf("next batch: %v", err)
	}
	if len(batch) != 0 {
		t.Fatalf("batch size = %d, want 0", len(batch))
	}
}

func TestClaimIsExclusive(t *testing.T) {
	db := newTestDB(t)
	queue := NewQueue(db)
	ctx := context.Background()

	doc := seedDocument(t, db, 1, true, "resumes/1/a.pdf")
	item := seedQueueItem(t, db, doc.ID, database.QueueStatusQueued, 100)

	claimed, err := queue.Claim(ctx, item.ID)
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if !claimed {
		t.Fatal("first claim should succeed")
	}

	claimed, err = queue.Claim(ctx, item.ID)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if claimed {
		t.Fatal("second claim must lose")
	}
}

func TestClaimForDocument(t *testing.T) {
	db := newTestDB(t)
	queue := NewQueue(db)
	ctx := context.Background()

	t.Run("claims existing queued item", func(t *testing.T) {
		doc := seedDocument(t, db, 1, true, "resumes/1/a.pdf")
		item := seedQueueItem(t, db, doc.ID, database.QueueStatusQueued, 100)

		claimed, err := queue.ClaimForDocument(ctx, doc.ID)
		if err != nil {
			t.Fatalf("claim: %v", err)
		}
		if claimed.ID != item.ID {
			t.Errorf("claimed item %d, want %d", claimed.ID, item.ID)
		}
		if claimed.Status != database.QueueStatusProcessing {
			t.Errorf("status = %q, want processing", claimed.Status)
		}
	})

	t.Run("rejects when already processing", func(t *testing.T) {
		doc := seedDocument(t, db, 2, true, "resumes/2/a.pdf")
		seedQueueItem(t, db, doc.ID, database.QueueStatusProcessing, 100)

		_, err := queue.ClaimForDocument(ctx, doc.ID)
		if !errors.Is(err, ErrAlreadyProcessing) {
			t.Fatalf("err = %v, want ErrAlreadyProcessing", err)
		}
	})

	t.Run("creates item when none outstanding", func(t *testing.T) {
		doc := seedDocument(t, db, 3, true, "resumes/3/a.pdf")
		seedQueueItem(t, db, doc.ID, database.QueueStatusCompleted, 100)

		claimed, err := queue.ClaimForDocument(ctx, doc.ID)
		if err != nil {
			t.Fatalf("claim: %v", err)
		}
		if claimed.Status != database.QueueStatusProcessing {
			t.Errorf("status = %q, want processing", claimed.Status)
		}
		if claimed.Priority != database.DefaultQueuePriority {
			t.Errorf("priority = %d, want %d", claimed.Priority, database.DefaultQueuePriority)
		}
	})
}

func TestFailRecordsErrorAndRetryCount(t *testing.T) {
	db := newTestDB(t)
	queue := NewQueue(db)
	ctx := context.Background()

	doc := seedDocument(t, db, 1, true, "resumes/1/a.pdf")
	item := seedQueueItem(t, db, doc.ID, database.QueueStatusProcessing, 100)

	if err := queue.Fail(ctx, item.ID, errors.New("engine exploded")); err != nil {
		t.Fatalf("fail: %v", err)
	}

	var reloaded database.ProcessingQueueItem
	if err := db.First(&reloaded, item.ID).Error; err != nil {
		t.Fatalf("reload item: %v", err)
	}
	if reloaded.Status != database.QueueStatusFailed {
		t.Errorf("status = %q, want failed", reloaded.Status)
	}
	if reloaded.LastError != "engine exploded" {
		t.Errorf("last_error = %q", reloaded.LastError)
	}
	if reloaded.RetryCount != 1 {
		t.Errorf("retry_count = %d, want 1", reloaded.RetryCount)
	}
}
