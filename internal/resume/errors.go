package resume

import "errors"

// 组件边界上的业务错误，供 API 层映射为 HTTP 状态码。
var (
	// ErrQuotaExceeded 上传数量达到配置上限。
	ErrQuotaExceeded = errors.New("resume: quota exceeded")
	// ErrUnsupportedMime 文件类型不在白名单内。
	ErrUnsupportedMime = errors.New("resume: unsupported mime type")
	// ErrFileTooLarge 文件超过大小上限。
	ErrFileTooLarge = errors.New("resume: file too large")
	// ErrEmptyFile 空文件。
	ErrEmptyFile = errors.New("resume: empty file")
	// ErrMissingOwner 请求缺少 Owner 标识。
	ErrMissingOwner = errors.New("resume: missing owner")
	// ErrMaliciousFile 病毒扫描未通过。
	ErrMaliciousFile = errors.New("resume: malicious file detected")
	// ErrNotActiveResume 目标文档不是 Owner 当前激活的简历，更新缓存被拒绝。
	ErrNotActiveResume = errors.New("resume: document is not the owner's active resume")
	// ErrAlreadyProcessing 文档已被其它执行者占用（worker 与手动触发互斥）。
	ErrAlreadyProcessing = errors.New("resume: document is already being processed")
)
