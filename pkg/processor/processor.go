package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yleoer/cuesplit/pkg/album"
	"github.com/yleoer/cuesplit/pkg/cue"
	"github.com/yleoer/cuesplit/pkg/util"
)

// Options FFmpeg 处理器的参数
type Options struct {
	FFmpegPath string
	Format     string // 输出扩展名
	Workers    int    // 同时运行的 FFmpeg 进程数
	Overwrite  bool   // 允许写入非空目录
	// Run 执行一条 FFmpeg 命令，为空时直接运行并收集 stderr
	Run func(cmd *exec.Cmd) error
}

// FFmpegProcessor 负责通过 FFmpeg 处理音乐文件
type FFmpegProcessor struct {
	opts   Options
	logger *log.Logger
	run    func(cmd *exec.Cmd) error
}

// NewFFmpegProcessor 创建一个新的 FFmpegProcessor 实例
func NewFFmpegProcessor(opts Options, logger *log.Logger) *FFmpegProcessor {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	opts.Format = strings.TrimPrefix(opts.Format, ".")
	if opts.Format == "" {
		opts.Format = "flac"
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	run := opts.Run
	if run == nil {
		run = runCommand
	}
	return &FFmpegProcessor{opts: opts, logger: logger, run: run}
}

type splitJob struct {
	input  string
	output string
	cover  string
	seg    cue.Segment
}

// ProcessAlbum 把专辑的每张光盘按 Segment 切割到 targetDir 下，保留专辑目录的相对层级。
// 输出目录非空时拒绝写入，除非开启了 Overwrite 或专辑是在 CUE 修改后重新切割。
// 单个轨道失败不影响其他轨道，所有失败合并后返回。
func (p *FFmpegProcessor) ProcessAlbum(ctx context.Context, a *album.Album, targetDir string) error {
	albumOutputDir := p.AlbumOutputDir(a, targetDir)
	if !p.opts.Overwrite && !a.Resplit {
		empty, err := util.IsDirEmpty(albumOutputDir)
		if err != nil {
			return fmt.Errorf("failed to inspect output directory %s: %w", albumOutputDir, err)
		}
		if !empty {
			return fmt.Errorf("output directory %s is not empty", albumOutputDir)
		}
	}
	if err := os.MkdirAll(albumOutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create album output directory %s: %w", albumOutputDir, err)
	}

	var jobs []splitJob
	for _, disc := range a.Discs {
		discOutputDir := albumOutputDir
		if len(a.Discs) > 1 {
			discOutputDir = filepath.Join(albumOutputDir, fmt.Sprintf("Disc %d", disc.DiscNumber))
			if err := os.MkdirAll(discOutputDir, 0755); err != nil {
				return fmt.Errorf("failed to create disc output directory %s: %w", discOutputDir, err)
			}
		}
		total := len(disc.Segments)
		for _, seg := range disc.Segments {
			name := util.TrackFileName(seg.Track.Number, total, seg.Tags[cue.TagTitle], p.opts.Format)
			jobs = append(jobs, splitJob{
				input:  disc.AudioPath,
				output: filepath.Join(discOutputDir, name),
				cover:  a.CoverArt,
				seg:    seg,
			})
		}
	}

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(p.opts.Workers)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("track %02d: %w", job.seg.Track.Number, err))
				mu.Unlock()
				return nil
			}
			if err := p.splitTrack(ctx, job); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// AlbumOutputDir 输出目录。没有相对路径时使用 "艺术家/专辑 (年份)"
func (p *FFmpegProcessor) AlbumOutputDir(a *album.Album, targetDir string) string {
	if rel := filepath.Clean(a.RelDir); a.RelDir != "" && rel != "." && !strings.HasPrefix(rel, "..") {
		return filepath.Join(targetDir, rel)
	}
	dirName := util.SanitizeFileName(a.Title)
	if a.Year != "" {
		dirName = fmt.Sprintf("%s (%s)", dirName, a.Year)
	}
	return filepath.Join(targetDir, util.SanitizeFileName(a.Artist), dirName)
}

func (p *FFmpegProcessor) splitTrack(ctx context.Context, job splitJob) error {
	title := job.seg.Tags[cue.TagTitle]
	p.logger.Printf("  Processing Track %02d: %s", job.seg.Track.Number, title)
	args := BuildArgs(job.input, job.output, job.seg, coverFor(p.opts.Format, job.cover), p.opts.Format)
	cmd := exec.CommandContext(ctx, p.opts.FFmpegPath, args...)
	p.logger.Printf("  -> Executing FFmpeg... Command: %s %s", p.opts.FFmpegPath, strings.Join(args, " "))
	if err := p.run(cmd); err != nil {
		p.logger.Printf("  -> ERROR: FFmpeg execution failed for track %02d %s.", job.seg.Track.Number, title)
		return fmt.Errorf("track %02d %q: %w", job.seg.Track.Number, title, err)
	}
	p.logger.Printf("  -> Successfully created %s", job.output)
	return nil
}

func runCommand(cmd *exec.Cmd) error {
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, lastLine(msg))
		}
		return err
	}
	return nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// 只有这些容器可以嵌入封面
func coverFor(format, cover string) string {
	switch format {
	case "flac", "mp3", "m4a":
		return cover
	}
	return ""
}

func codecFor(format string) string {
	switch format {
	case "wav":
		return "pcm_s16le"
	case "mp3":
		return "libmp3lame"
	case "m4a":
		return "alac"
	case "wv":
		return "wavpack"
	}
	return "flac"
}

// metadataKeys 标签名 -> FFmpeg 元数据键，按写入顺序排列
var metadataKeys = []struct{ tag, key string }{
	{cue.TagTitle, "title"},
	{cue.TagArtist, "artist"},
	{cue.TagArtist, "album_artist"},
	{cue.TagAlbum, "album"},
	{cue.TagDate, "date"},
	{cue.TagGenre, "genre"},
}

// BuildArgs 构建一条包含了切割、转码和元数据写入的 FFmpeg 参数列表
func BuildArgs(inputFile, outputFile string, seg cue.Segment, coverArtPath, format string) []string {
	args := []string{"-y", "-ss", util.FormatDurationToFFmpegTime(seg.StartDuration())}
	if seg.HasEnd { // 只有非最后一个轨道才设置结束时间
		args = append(args, "-to", util.FormatDurationToFFmpegTime(seg.EndDuration()))
	}
	args = append(args, "-i", inputFile)
	if coverArtPath != "" {
		args = append(args, "-i", coverArtPath)
	}
	args = append(args, "-map", "0:a")
	if coverArtPath != "" {
		args = append(args,
			"-map", "1:v",
			"-c:v", "mjpeg",
			"-disposition:v", "attached_pic",
		)
	}
	args = append(args, "-c:a", codecFor(format))
	for _, m := range metadataKeys {
		args = addMetadata(args, m.key, seg.Tags[m.tag])
	}
	track := seg.Tags[cue.TagTrackNumber]
	if total := seg.Tags[cue.TagTrackTotal]; track != "" && total != "" {
		track += "/" + total
	}
	args = addMetadata(args, "track", track)
	return append(args, outputFile)
}

func addMetadata(args []string, key, value string) []string {
	if value == "" {
		return args
	}
	return append(args, "-metadata", fmt.Sprintf("%s=%s", key, value))
}
