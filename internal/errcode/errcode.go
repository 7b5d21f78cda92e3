package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：业务可恢复/告警类错误（例如 AI 分析失败但提取已完成）
// - 5xxx：系统错误（需要中断流程）
const (
	OK                = 0
	EnrichmentSkipped = 4001
	ExtractionFailed  = 4220
	SystemError       = 5000
)
