package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"resumebox/internal/config"
)

// RodRenderer renders page screenshots by loading the PDF in headless
// chromium's built-in viewer and capturing the viewport page by page.
type RodRenderer struct {
	logger  *slog.Logger
	scale   float64
	quality int
}

// NewRodRenderer 构造基于 rod 的截图渲染器。
func NewRodRenderer(cfg config.ExtractionConfig, logger *slog.Logger) *RodRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	scale := cfg.RenderScale
	if scale <= 0 {
		scale = 1.0
	}
	quality := cfg.ScreenshotQuality
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	return &RodRenderer{logger: logger, scale: scale, quality: quality}
}

// CapturePages 逐页截取 PDF 渲染结果，返回 JPEG 字节切片。
// 单页失败只记录警告，不影响其余页面。
func (r *RodRenderer) CapturePages(ctx context.Context, pdfPath string, pageCount int) (_ [][]byte, err error) {
	if pageCount <= 0 {
		return nil, nil
	}

	launch := launcher.New().
		Headless(true).
		NoSandbox(true)
	defer func() {
		if err != nil {
			launch.Cleanup()
		}
	}()

	if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	browserURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	browser := rod.New().ControlURL(browserURL).Timeout(90 * time.Second)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	defer func() {
		_ = browser.Close()
		launch.Cleanup()
	}()

	fileURL := url.URL{Scheme: "file", Path: pdfPath}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer func() {
		_ = page.Close()
	}()

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             int(595 * r.scale),
		Height:            int(842 * r.scale),
		DeviceScaleFactor: r.scale,
	}).Call(page); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	shots := make([][]byte, 0, pageCount)
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		target := fmt.Sprintf("%s#page=%d&zoom=page-fit", fileURL.String(), pageNum)
		data, shotErr := r.captureOne(ctx, page, target)
		if shotErr != nil {
			r.logger.Warn("capture pdf page failed",
				slog.Int("page", pageNum),
				slog.Any("error", shotErr),
			)
			continue
		}
		shots = append(shots, data)
	}

	return shots, nil
}

func (r *RodRenderer) captureOne(ctx context.Context, page *rod.Page, target string) ([]byte, error) {
	page = page.Context(ctx)

	if err := page.Navigate(target); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}
	// chromium 内置 PDF viewer 渲染没有完成信号，留一小段时间绘制。
	time.Sleep(300 * time.Millisecond)

	req := &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: intPtr(r.quality),
	}
	data, err := page.Screenshot(false, req)
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return data, nil
}

func intPtr(value int) *int {
	return &value
}
