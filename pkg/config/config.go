package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	SourceDir              string        `json:"source_dir"`               // 待切割的整轨目录
	OutputDir              string        `json:"output_dir"`               // 切割后的文件存放目录
	DataDir                string        `json:"data_dir"`                 // SQLite数据库文件和锁文件存放目录
	DBFileName             string        `json:"db_file_name"`             // SQLite数据库文件名
	DBPath                 string        `json:"-"`                        // 完整的数据库文件路径
	FFmpegPath             string        `json:"ffmpeg_path"`              // FFmpeg 可执行文件路径
	OutputFormat           string        `json:"output_format"`            // 输出格式 (扩展名)，如 flac
	SplitWorkers           int           `json:"split_workers"`            // 同时运行的 FFmpeg 进程数
	TradToSimp             bool          `json:"trad_to_simp"`             // 标签是否繁转简
	Overwrite              bool          `json:"overwrite"`                // 允许写入非空的输出目录
	StabilityCheckInterval time.Duration `json:"stability_check_interval"` // 每次检查的间隔
	StabilityQuietDuration time.Duration `json:"stability_quiet_duration"` // 文件在多长时间内没有变化才算稳定
	StabilityMaxWait       time.Duration `json:"stability_max_wait"`       // 最长等待文件稳定的时间
}

const (
	sourceDir = "/app/source"
	outputDir = "/app/music"
	dataDir   = "/app/data"

	dbFileName   = "cuesplit.db"
	ffmpeg       = "ffmpeg"
	outputFormat = "flac"

	// 文件稳定性检查相关参数
	stabilityCheckInterval = 5 * time.Second // 每次检查的间隔
	stabilityQuietDuration = 1 * time.Minute // 文件在多长时间内没有变化才算稳定
	stabilityMaxWait       = 12 * time.Hour  // 最长等待文件稳定的时间
)

// LoadConfig 从环境变量或默认值加载配置。envFiles 为空时尝试加载当前目录的 .env
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) > 0 {
		// 显式指定的文件必须存在
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := &Config{
		SourceDir:              envOrDefault("SOURCE_DIR", sourceDir),
		OutputDir:              envOrDefault("OUTPUT_DIR", outputDir),
		DataDir:                envOrDefault("DATA_DIR", dataDir),
		DBFileName:             envOrDefault("DB_FILE_NAME", dbFileName),
		FFmpegPath:             envOrDefault("FFMPEG_PATH", ffmpeg),
		OutputFormat:           strings.TrimPrefix(envOrDefault("OUTPUT_FORMAT", outputFormat), "."),
		SplitWorkers:           parseIntOrDefault(os.Getenv("SPLIT_WORKERS"), runtime.NumCPU()),
		TradToSimp:             parseBoolOrDefault(os.Getenv("TRAD_TO_SIMP"), false),
		Overwrite:              parseBoolOrDefault(os.Getenv("OVERWRITE"), false),
		StabilityCheckInterval: parseDurationOrDefault(os.Getenv("STABILITY_CHECK_INTERVAL"), stabilityCheckInterval),
		StabilityQuietDuration: parseDurationOrDefault(os.Getenv("STABILITY_QUIET_DURATION"), stabilityQuietDuration),
		StabilityMaxWait:       parseDurationOrDefault(os.Getenv("STABILITY_MAX_WAIT"), stabilityMaxWait),
	}
	cfg.DBPath = filepath.Join(cfg.DataDir, cfg.DBFileName)
	return cfg, nil
}

// Validate 检查配置值是否可用
func (c *Config) Validate() error {
	var errs []error
	if c.SourceDir == "" {
		errs = append(errs, errors.New("source directory is empty"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output directory is empty"))
	}
	if c.SourceDir != "" && c.OutputDir != "" && filepath.Clean(c.SourceDir) == filepath.Clean(c.OutputDir) {
		errs = append(errs, fmt.Errorf("output directory %s must differ from source directory", c.OutputDir))
	}
	if c.SplitWorkers < 1 {
		errs = append(errs, fmt.Errorf("split workers must be at least 1, got %d", c.SplitWorkers))
	}
	if c.OutputFormat == "" {
		errs = append(errs, errors.New("output format is empty"))
	}
	if c.StabilityCheckInterval <= 0 {
		errs = append(errs, fmt.Errorf("stability check interval must be positive, got %v", c.StabilityCheckInterval))
	}
	return errors.Join(errs...)
}

// EnsureDirs 确认输出目录和数据目录存在
func (c *Config) EnsureDirs() error {
	if err := os.MkdirAll(c.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", c.OutputDir, err)
	}
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", c.DataDir, err)
	}
	c.DBPath = filepath.Join(c.DataDir, c.DBFileName)
	return nil
}

// LockPath 单实例锁文件
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, "cuesplit.lock")
}

func envOrDefault(key, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultValue
}

func parseDurationOrDefault(s string, defaultValue time.Duration) time.Duration {
	if s == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Warning: Could not parse duration '%s', using default '%v'. Error: %v", s, defaultValue, err)
		return defaultValue
	}
	return d
}

func parseIntOrDefault(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		log.Printf("Warning: Could not parse integer '%s', using default '%d'. Error: %v", s, defaultValue, err)
		return defaultValue
	}
	return n
}

func parseBoolOrDefault(s string, defaultValue bool) bool {
	if s == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		log.Printf("Warning: Could not parse boolean '%s', using default '%t'. Error: %v", s, defaultValue, err)
		return defaultValue
	}
	return b
}
