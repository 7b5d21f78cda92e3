package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"resumebox/internal/database"
)

// ErrUnreadablePDF marks input that cannot be read or parsed as a PDF at all.
// Everything else the engine tolerates degrades to a partial result.
var ErrUnreadablePDF = errors.New("extraction: unreadable pdf")

// Result holds everything the engine could pull out of one document.
// Screenshots may be empty even on success; they are best-effort.
type Result struct {
	Text        string
	TextLength  int
	WordCount   int
	LineCount   int
	PageCount   int
	Title       string
	Author      string
	Creator     string
	Producer    string
	Screenshots [][]byte
	Contact     ContactHints
}

// Engine extracts text, metadata and page screenshots from raw PDF bytes.
type Engine interface {
	Extract(ctx context.Context, data []byte, opts database.ProcessingOptions) (*Result, error)
}

// ScreenshotRenderer renders page captures for a PDF on disk.
type ScreenshotRenderer interface {
	CapturePages(ctx context.Context, pdfPath string, pageCount int) ([][]byte, error)
}

// PDFEngine 基于 pdfcpu + ledongthuc/pdf 实现提取，截图渲染可选注入。
type PDFEngine struct {
	renderer ScreenshotRenderer
	logger   *slog.Logger
}

// NewPDFEngine 构造提取引擎；renderer 传 nil 则跳过截图。
func NewPDFEngine(renderer ScreenshotRenderer, logger *slog.Logger) *PDFEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFEngine{renderer: renderer, logger: logger}
}

// Extract runs the extraction pipeline over raw PDF bytes.
//
// Minimum viable success is text + metadata. Screenshot, image and table
// extraction never fail the document; their errors are logged as warnings.
func (e *PDFEngine) Extract(ctx context.Context, data []byte, opts database.ProcessingOptions) (*Result, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrUnreadablePDF)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, fmt.Errorf("%w: missing pdf header", ErrUnreadablePDF)
	}

	pdfCtx, err := api.ReadContext(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadablePDF, err)
	}
	if err := api.ValidateContext(pdfCtx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadablePDF, err)
	}

	result := &Result{PageCount: pdfCtx.PageCount}

	if opts.ExtractMetadata {
		result.Title = strings.TrimSpace(pdfCtx.Title)
		result.Author = strings.TrimSpace(pdfCtx.Author)
		result.Creator = strings.TrimSpace(pdfCtx.Creator)
		result.Producer = strings.TrimSpace(pdfCtx.Producer)
	}

	if opts.ExtractText {
		text, err := extractText(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadablePDF, err)
		}
		result.Text = text
		result.TextLength = len(text)
		result.WordCount = len(strings.Fields(text))
		result.LineCount = countLines(text)
		result.Contact = ExtractContactHints(text)
	}

	if opts.ExtractScreenshots {
		shots, err := e.captureScreenshots(ctx, data, result.PageCount)
		if err != nil {
			e.logger.Warn("page screenshot capture failed, continuing without screenshots",
				slog.Any("error", err))
		} else {
			result.Screenshots = shots
		}
	}

	if opts.ExtractImages || opts.ExtractTables {
		e.logger.Warn("image/table extraction requested but not supported, skipping")
	}

	return result, nil
}

// extractText 解码 PDF 内容流为纯文本。
// ledongthuc/pdf 对畸形文件可能 panic，这里统一转为错误返回。
func extractText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decode pdf text: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf for text extraction: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract plain text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read plain text: %w", err)
	}
	return buf.String(), nil
}

func (e *PDFEngine) captureScreenshots(ctx context.Context, data []byte, pageCount int) ([][]byte, error) {
	if e.renderer == nil {
		return nil, nil
	}

	// 渲染器通过 chromium 的 file:// 视图打开文档，需要先落盘到临时文件。
	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("resumebox-render-%s.pdf", uuid.NewString()))
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("write temp pdf: %w", err)
	}
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	return e.renderer.CapturePages(ctx, tmpPath, pageCount)
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	count := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}
