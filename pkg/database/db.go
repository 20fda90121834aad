package database

// SheetStore 定义 CUE 处理状态存储接口。
// 记录以 (路径, 内容校验和) 为键，CUE 被修改后会重新处理。
type SheetStore interface {
	MarkProcessed(cuePath, checksum, runID string) error // 将 CUE 标记为已处理
	IsProcessed(cuePath, checksum string) (bool, error)  // 检查 CUE 是否已处理
	HasSheet(cuePath string) (bool, error)               // 检查 CUE 是否以任何内容处理过
	ProcessedRuns() ([]ProcessedSheet, error)            // 按处理时间倒序列出记录
	Close() error                                        // 关闭数据库连接
}
