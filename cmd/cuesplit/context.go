package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/yleoer/cuesplit/pkg/config"
	"github.com/yleoer/cuesplit/pkg/converter"
	"github.com/yleoer/cuesplit/pkg/database"
	"github.com/yleoer/cuesplit/pkg/processor"
	"github.com/yleoer/cuesplit/pkg/scanner"
	"github.com/yleoer/cuesplit/pkg/scheduler"
)

type commandContext struct {
	envFileFlag *string
	quietFlag   *bool
	outputFlag  *string
}

func newCommandContext(envFileFlag *string, quietFlag *bool, outputFlag *string) *commandContext {
	return &commandContext{
		envFileFlag: envFileFlag,
		quietFlag:   quietFlag,
		outputFlag:  outputFlag,
	}
}

func (c *commandContext) logger(cmd *cobra.Command) *log.Logger {
	var w io.Writer = cmd.ErrOrStderr()
	if c.quietFlag != nil && *c.quietFlag {
		w = io.Discard
	}
	return log.New(w, "[cuesplit] ", log.LstdFlags|log.Lshortfile)
}

func (c *commandContext) loadConfig() (*config.Config, error) {
	var envFiles []string
	if c.envFileFlag != nil {
		if path := strings.TrimSpace(*c.envFileFlag); path != "" {
			envFiles = append(envFiles, path)
		}
	}
	return config.LoadConfig(envFiles...)
}

// pipeline 是 split 和 watch 共用的依赖
type pipeline struct {
	scheduler *scheduler.TaskScheduler
	store     database.SheetStore
	lock      *flock.Flock
}

func (p *pipeline) Close() error {
	var errs []error
	if p.store != nil {
		errs = append(errs, p.store.Close())
	}
	if p.lock != nil {
		errs = append(errs, p.lock.Unlock())
	}
	return errors.Join(errs...)
}

// openPipeline 校验配置，获取单实例锁并初始化所有依赖服务
func (c *commandContext) openPipeline(cfg *config.Config, logger *log.Logger) (*pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}
	logger.Printf("Configuration loaded: SourceDir=%s, OutputDir=%s, DataDir=%s, DBPath=%s",
		cfg.SourceDir, cfg.OutputDir, cfg.DataDir, cfg.DBPath)

	p := &pipeline{lock: flock.New(cfg.LockPath())}
	ok, err := p.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another cuesplit instance is already running")
	}

	tc := converter.NewNoopConverter()
	if cfg.TradToSimp {
		if tc, err = converter.NewOpenCCConverter(logger); err != nil {
			_ = p.Close()
			return nil, err
		}
	}
	p.store, err = database.NewSQLiteStore(cfg.DBPath, logger)
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	albumScanner := scanner.NewAlbumScanner(tc, logger)
	ffmpegProcessor := processor.NewFFmpegProcessor(processor.Options{
		FFmpegPath: cfg.FFmpegPath,
		Format:     cfg.OutputFormat,
		Workers:    cfg.SplitWorkers,
		Overwrite:  cfg.Overwrite,
	}, logger)
	p.scheduler = scheduler.NewTaskScheduler(cfg, p.store, albumScanner, ffmpegProcessor, logger)
	return p, nil
}
