package enrichment

import (
	"context"
	"errors"
)

// Analysis is the structured outcome of one resume analysis call.
type Analysis struct {
	ContactName     string   `json:"contact_name"`
	ContactEmail    string   `json:"contact_email"`
	ContactPhone    string   `json:"contact_phone"`
	Skills          []string `json:"skills"`
	QualityScore    int      `json:"quality_score"`
	ATSScore        int      `json:"ats_score"`
	AestheticScore  int      `json:"aesthetic_score"`
	Recommendations []string `json:"recommendations"`
}

// ErrMalformedResponse 表示模型返回的内容无法解析为有效分析结果。
// 调用方应将其作为软失败处理，不影响文档的提取状态。
var ErrMalformedResponse = errors.New("enrichment: malformed analysis response")

// Analyzer produces a structured analysis from extracted resume text and,
// optionally, a first-page screenshot.
type Analyzer interface {
	Analyze(ctx context.Context, text string, firstPageJPEG []byte) (*Analysis, error)
	Close() error
}
