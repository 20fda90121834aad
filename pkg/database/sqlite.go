package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// ProcessedSheet 一条已处理记录
type ProcessedSheet struct {
	Path        string
	Checksum    string
	RunID       string
	ProcessedAt time.Time
}

// sqliteStore 是 SheetStore 接口的 SQLite 实现
type sqliteStore struct {
	db     *sql.DB
	logger *log.Logger
}

const createTableSQL = `
	CREATE TABLE IF NOT EXISTS processed_sheets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL,
		checksum TEXT NOT NULL,
		run_id TEXT NOT NULL,
		processed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(path, checksum)
	);
	`

// NewSQLiteStore 初始化 SQLite 数据库并返回 SheetStore 接口实例
func NewSQLiteStore(dataSourceName string, log *log.Logger) (SheetStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// 调度器的多个扫描任务可能同时写入
	db.SetMaxOpenConns(1)
	// 尝试创建表，如果不存在
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close() // 创建表失败也要关闭连接
		return nil, fmt.Errorf("failed to create processed_sheets table: %w", err)
	}
	log.Printf("SQLite database initialized at: %s", dataSourceName)
	return &sqliteStore{db: db, logger: log}, nil
}

// Close 关闭数据库连接
func (s *sqliteStore) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.logger.Println("SQLite database connection closed.")
		return err
	}
	return nil
}

// MarkProcessed 将 CUE 标记为已处理，重复标记时更新运行 ID
func (s *sqliteStore) MarkProcessed(cuePath, checksum, runID string) error {
	_, err := s.db.Exec(`INSERT INTO processed_sheets (path, checksum, run_id, processed_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(path, checksum) DO UPDATE SET run_id = excluded.run_id, processed_at = excluded.processed_at`,
		cuePath, checksum, runID, time.Now().UTC())
	if err != nil {
		s.logger.Printf("ERROR: Failed to mark %s as processed: %v", cuePath, err)
		return fmt.Errorf("failed to mark processed sheet %s: %w", cuePath, err)
	}
	s.logger.Printf("Sheet %s marked as processed (run %s).", cuePath, runID)
	return nil
}

// IsProcessed 检查 CUE 在当前内容下是否已处理
func (s *sqliteStore) IsProcessed(cuePath, checksum string) (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM processed_sheets WHERE path = ? AND checksum = ?", cuePath, checksum).Scan(&count)
	if err != nil {
		s.logger.Printf("ERROR: Failed to check if %s is processed: %v", cuePath, err)
		return false, fmt.Errorf("failed to check processed status for %s: %w", cuePath, err)
	}
	return count > 0, nil
}

// HasSheet 检查 CUE 路径是否有过处理记录，不论内容是否变化
func (s *sqliteStore) HasSheet(cuePath string) (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM processed_sheets WHERE path = ?", cuePath).Scan(&count)
	if err != nil {
		s.logger.Printf("ERROR: Failed to look up %s: %v", cuePath, err)
		return false, fmt.Errorf("failed to look up processed sheet %s: %w", cuePath, err)
	}
	return count > 0, nil
}

// ProcessedRuns 按处理时间倒序列出所有记录
func (s *sqliteStore) ProcessedRuns() ([]ProcessedSheet, error) {
	rows, err := s.db.Query("SELECT path, checksum, run_id, processed_at FROM processed_sheets ORDER BY processed_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list processed sheets: %w", err)
	}
	defer rows.Close()
	var out []ProcessedSheet
	for rows.Next() {
		var rec ProcessedSheet
		if err := rows.Scan(&rec.Path, &rec.Checksum, &rec.RunID, &rec.ProcessedAt); err != nil {
			return nil, fmt.Errorf("failed to scan processed sheet: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
