package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"resumebox/internal/database"
	"resumebox/internal/resume"
)

func uploadAndDecode(t *testing.T, s *testServer, ownerID, filename string, content []byte) resume.UploadOutcome {
	t.Helper()
	rec := s.uploadResume(t, ownerID, filename, content)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var outcome resume.UploadOutcome
	if err := json.Unmarshal(rec.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	return outcome
}

func TestProcessNowEndpoint(t *testing.T) {
	s := newTestServer(t, 3)
	outcome := uploadAndDecode(t, s, "1", "cv.pdf", []byte("%PDF-1.4 fine"))

	rec := s.doJSON(t, http.MethodPost, fmt.Sprintf("/v1/resumes/%d/process", outcome.DocumentID), gin.H{"owner_id": 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result resultResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.TextLength == 0 || result.PageCount == 0 {
		t.Errorf("result = %+v, want populated counts", result)
	}

	var doc database.Document
	if err := s.db.First(&doc, outcome.DocumentID).Error; err != nil {
		t.Fatalf("load document: %v", err)
	}
	if doc.ProcessingStatus != database.DocumentStatusCompleted {
		t.Errorf("document status = %q, want completed", doc.ProcessingStatus)
	}
}

func TestProcessNowEndpointConflict(t *testing.T) {
	s := newTestServer(t, 3)
	outcome := uploadAndDecode(t, s, "1", "cv.pdf", []byte("%PDF-1.4"))

	err := s.db.Model(&database.ProcessingQueueItem{}).
		Where("document_id = ?", outcome.DocumentID).
		Update("status", database.QueueStatusProcessing).Error
	if err != nil {
		t.Fatalf("mark processing: %v", err)
	}

	rec := s.doJSON(t, http.MethodPost, fmt.Sprintf("/v1/resumes/%d/process", outcome.DocumentID), gin.H{"owner_id": 1})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestProcessNowEndpointUnreadablePDF(t *testing.T) {
	s := newTestServer(t, 3)
	outcome := uploadAndDecode(t, s, "1", "cv.pdf", []byte("%PDF-1.4 corrupt body"))

	rec := s.doJSON(t, http.MethodPost, fmt.Sprintf("/v1/resumes/%d/process", outcome.DocumentID), gin.H{"owner_id": 1})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}

	var doc database.Document
	if err := s.db.First(&doc, outcome.DocumentID).Error; err != nil {
		t.Fatalf("load document: %v", err)
	}
	if doc.ProcessingStatus != database.DocumentStatusFailed {
		t.Errorf("document status = %q, want failed", doc.ProcessingStatus)
	}
}

func TestProcessNowEndpointWrongOwner(t *testing.T) {
	s := newTestServer(t, 3)
	outcome := uploadAndDecode(t, s, "1", "cv.pdf", []byte("%PDF-1.4"))

	rec := s.doJSON(t, http.MethodPost, fmt.Sprintf("/v1/resumes/%d/process", outcome.DocumentID), gin.H{"owner_id": 2})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetResultsEndpoint(t *testing.T) {
	s := newTestServer(t, 3)
	outcome := uploadAndDecode(t, s, "1", "cv.pdf", []byte("%PDF-1.4 fine"))

	target := fmt.Sprintf("/v1/resumes/%d/results?owner_id=1", outcome.DocumentID)
	rec := s.do(t, http.MethodGet, target, nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("before processing: status = %d, want 404", rec.Code)
	}

	if rec := s.doJSON(t, http.MethodPost, fmt.Sprintf("/v1/resumes/%d/process", outcome.DocumentID), gin.H{"owner_id": 1}); rec.Code != http.StatusOK {
		t.Fatalf("process status = %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, target, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("after processing: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result resultResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.DocumentID != outcome.DocumentID {
		t.Errorf("document_id = %d, want %d", result.DocumentID, outcome.DocumentID)
	}
	if result.Analysis != nil {
		t.Error("analysis should be absent when enrichment is disabled")
	}

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/v1/resumes/%d/results?owner_id=2", outcome.DocumentID), nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign owner status = %d, want 404", rec.Code)
	}
}

func TestStateEndpoint(t *testing.T) {
	s := newTestServer(t, 3)

	rec := s.do(t, http.MethodGet, "/v1/resumes/state/1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var state resume.State
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.ProcessingNeededStatus != resume.StatusNoResume {
		t.Errorf("fresh owner status = %q, want no_resume", state.ProcessingNeededStatus)
	}

	outcome := uploadAndDecode(t, s, "1", "cv.pdf", []byte("%PDF-1.4 fine"))
	if rec := s.doJSON(t, http.MethodPost, fmt.Sprintf("/v1/resumes/%d/process", outcome.DocumentID), gin.H{"owner_id": 1}); rec.Code != http.StatusOK {
		t.Fatalf("process status = %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/v1/resumes/state/1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.ProcessingNeededStatus != resume.StatusUpToDate {
		t.Errorf("processed owner status = %q, want up_to_date", state.ProcessingNeededStatus)
	}
	if !state.HasParsedResume {
		t.Error("state should report a parsed resume")
	}
}

func TestNeedsProcessingEndpoint(t *testing.T) {
	s := newTestServer(t, 3)

	var payload struct {
		NeedsProcessing bool   `json:"needs_processing"`
		Reason          string `json:"reason"`
	}

	rec := s.do(t, http.MethodGet, "/v1/resumes/needs-processing/1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.NeedsProcessing || payload.Reason != resume.StatusNoResume {
		t.Errorf("fresh owner payload = %+v", payload)
	}

	uploadAndDecode(t, s, "1", "cv.pdf", []byte("%PDF-1.4 fine"))

	rec = s.do(t, http.MethodGet, "/v1/resumes/needs-processing/1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !payload.NeedsProcessing || payload.Reason != resume.StatusNeedsProcessing {
		t.Errorf("unprocessed upload payload = %+v", payload)
	}
}
