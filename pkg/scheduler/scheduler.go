package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/yleoer/cuesplit/pkg/album"
	"github.com/yleoer/cuesplit/pkg/config"
	"github.com/yleoer/cuesplit/pkg/database"
	"github.com/yleoer/cuesplit/pkg/scanner"
	"github.com/yleoer/cuesplit/pkg/util"
)

// AlbumProcessor 把一张专辑切割到输出目录
type AlbumProcessor interface {
	ProcessAlbum(ctx context.Context, a *album.Album, targetDir string) error
}

// Summary 一次运行的统计
type Summary struct {
	RunID     string
	Albums    int
	Processed int
	Skipped   int
	Failed    int
}

// TaskScheduler 负责调度专辑扫描和处理任务
type TaskScheduler struct {
	cfg               *config.Config
	store             database.SheetStore
	albumScanner      *scanner.AlbumScanner
	albumProcessor    AlbumProcessor
	logger            *log.Logger
	scanMutex         sync.Mutex // 保护扫描过程
	pendingScans      map[string]*time.Timer
	pendingScansMutex sync.Mutex // 保护 pendingScans map
	wg                sync.WaitGroup
	onWatching        func() // 监听器就绪后调用，测试用
}

// NewTaskScheduler 创建一个新的 TaskScheduler 实例
func NewTaskScheduler(
	cfg *config.Config,
	store database.SheetStore,
	albumScanner *scanner.AlbumScanner,
	albumProcessor AlbumProcessor,
	logger *log.Logger,
) *TaskScheduler {
	return &TaskScheduler{
		cfg:            cfg,
		store:          store,
		albumScanner:   albumScanner,
		albumProcessor: albumProcessor,
		logger:         logger,
		pendingScans:   make(map[string]*time.Timer),
	}
}

// RunOnce 扫描整个源目录并处理所有未处理的 CUE，不做稳定性检查
func (ts *TaskScheduler) RunOnce(ctx context.Context) (Summary, error) {
	summary := Summary{RunID: uuid.NewString()}
	ts.logger.Printf("Run %s: scanning %s...", summary.RunID, ts.cfg.SourceDir)
	albums, scanErr := ts.albumScanner.ScanTree(ts.cfg.SourceDir)
	summary.Albums = len(albums)

	errs := []error{scanErr}
	for _, a := range albums {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		processed, err := ts.ProcessAlbum(ctx, a, summary.RunID)
		switch {
		case err != nil:
			summary.Failed++
			errs = append(errs, fmt.Errorf("%s: %w", a.Path, err))
		case processed:
			summary.Processed++
		default:
			summary.Skipped++
		}
	}
	ts.logger.Printf("Run %s finished: %d albums, %d processed, %d skipped, %d failed.",
		summary.RunID, summary.Albums, summary.Processed, summary.Skipped, summary.Failed)
	return summary, errors.Join(errs...)
}

// ProcessAlbum 切割专辑并把每张光盘标记为已处理。
// 所有光盘都已处理过时跳过，返回 false。
func (ts *TaskScheduler) ProcessAlbum(ctx context.Context, a *album.Album, runID string) (bool, error) {
	pending := false
	for _, disc := range a.Discs {
		processed, err := ts.store.IsProcessed(disc.CuePath, disc.Checksum)
		if err != nil {
			// 即使出错也尝试处理，避免遗漏
			ts.logger.Printf("ERROR: Error checking processed status for %s: %v", disc.CuePath, err)
		}
		if processed {
			continue
		}
		pending = true
		// 同一个 CUE 以旧内容切割过，输出目录里是它自己之前的结果
		known, err := ts.store.HasSheet(disc.CuePath)
		if err != nil {
			ts.logger.Printf("ERROR: Error looking up %s: %v", disc.CuePath, err)
		}
		if known {
			ts.logger.Printf("  -> %s changed since it was last split. Replacing previous output.", disc.CuePath)
			a.Resplit = true
		}
	}
	if !pending {
		ts.logger.Printf("  -> Album %s already processed. Skipping.", a.Path)
		return false, nil
	}

	ts.logger.Printf("Album '%s - %s' (%s) found with %d discs, %d tracks. Splitting...",
		a.Artist, a.Title, a.Year, len(a.Discs), a.TrackCount())
	if err := ts.albumProcessor.ProcessAlbum(ctx, a, ts.cfg.OutputDir); err != nil {
		ts.logger.Printf("ERROR: Error processing album '%s - %s': %v", a.Artist, a.Title, err)
		return false, err
	}
	ts.logger.Printf("Successfully processed album '%s - %s'.", a.Artist, a.Title)

	var errs []error
	for _, disc := range a.Discs {
		if err := ts.store.MarkProcessed(disc.CuePath, disc.Checksum, runID); err != nil {
			errs = append(errs, err)
		}
	}
	return true, errors.Join(errs...)
}

// InitialScan 对源目录的每个一级子目录安排一次扫描
func (ts *TaskScheduler) InitialScan(ctx context.Context) error {
	root := ts.cfg.SourceDir
	ts.logger.Println("Performing initial scan for unprocessed albums in source directory...")
	entries, err := os.ReadDir(root)
	if err != nil {
		ts.logger.Printf("ERROR: Error reading source directory %s for initial scan: %v", root, err)
		return fmt.Errorf("failed to read source directory %s: %w", root, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			ts.TriggerScan(ctx, filepath.Join(root, entry.Name()))
		}
	}
	ts.logger.Println("Initial scan scheduled.")
	return nil
}

// TriggerScan 将一个目录添加到延迟扫描队列，同一目录的重复请求会重置计时器
func (ts *TaskScheduler) TriggerScan(ctx context.Context, dirPath string) {
	ts.pendingScansMutex.Lock()
	defer ts.pendingScansMutex.Unlock()
	if timer, ok := ts.pendingScans[dirPath]; ok && timer.Stop() {
		ts.wg.Done()
	}
	ts.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(ts.cfg.StabilityCheckInterval, func() {
		defer ts.wg.Done()
		ts.pendingScansMutex.Lock()
		if ts.pendingScans[dirPath] == timer {
			delete(ts.pendingScans, dirPath)
		}
		ts.pendingScansMutex.Unlock()
		ts.performScan(ctx, dirPath)
	})
	ts.pendingScans[dirPath] = timer
	ts.logger.Printf("Scheduled scan for %s in %v", dirPath, ts.cfg.StabilityCheckInterval)
}

// Wait 等待所有已安排的扫描结束
func (ts *TaskScheduler) Wait() {
	ts.wg.Wait()
}

// stopPending 取消还没有开始的扫描
func (ts *TaskScheduler) stopPending() {
	ts.pendingScansMutex.Lock()
	defer ts.pendingScansMutex.Unlock()
	for dir, timer := range ts.pendingScans {
		if timer.Stop() {
			ts.wg.Done()
		}
		delete(ts.pendingScans, dir)
	}
}

// performScan 执行实际的专辑目录扫描和处理
func (ts *TaskScheduler) performScan(ctx context.Context, dir string) {
	if ctx.Err() != nil {
		return
	}
	ts.scanMutex.Lock() // 获取全局锁，避免并发处理同一个目录
	defer ts.scanMutex.Unlock()
	ts.logger.Printf("-> Performing full scan for changes in directory: %s", dir)
	if !ts.waitForFilesStability(ctx, dir) {
		if ctx.Err() != nil {
			return
		}
		ts.logger.Printf("  -> Files in %s are still changing. Rescheduling scan.", dir)
		ts.TriggerScan(ctx, dir)
		return
	}

	albums, err := ts.albumScanner.ScanTree(dir)
	if err != nil {
		ts.logger.Printf("ERROR: Error scanning directory %s: %v", dir, err)
	}
	if len(albums) == 0 {
		ts.logger.Printf("No valid album data found in %s after scan. Not marking as processed.", dir)
		return
	}
	runID := uuid.NewString()
	for _, a := range albums {
		// 输出目录相对于源目录，而不是被扫描的子目录
		if rel, err := filepath.Rel(ts.cfg.SourceDir, a.Path); err == nil && !strings.HasPrefix(rel, "..") {
			a.RelDir = rel
		}
		if _, err := ts.ProcessAlbum(ctx, a, runID); err != nil {
			ts.logger.Printf("ERROR: Run %s: %s: %v", runID, a.Path, err)
		}
	}
}

// waitForFilesStability 检查目录 (含子目录) 中的相关文件是否稳定。
// 第一次看到的文件以修改时间作为最后变化时间，已经静止足够久的文件不需要等待。
func (ts *TaskScheduler) waitForFilesStability(ctx context.Context, dir string) bool {
	ts.logger.Printf("  -> Waiting for files in %s to stabilize for %v...", dir, ts.cfg.StabilityQuietDuration)
	previousFileStates := make(map[string]fileInfo)
	fileQuietTimes := make(map[string]time.Time)
	startOverallWait := time.Now()
	for time.Since(startOverallWait) < ts.cfg.StabilityMaxWait {
		currentCheckTime := time.Now()
		currentFileStates, err := relevantFileStates(dir)
		if err != nil {
			ts.logger.Printf("ERROR: Error reading directory %s for stability check: %v", dir, err)
			if !sleepContext(ctx, ts.cfg.StabilityCheckInterval) {
				return false
			}
			continue
		}
		if len(currentFileStates) == 0 {
			ts.logger.Printf("  -> No relevant files found in %s that require stability check. Proceeding.", dir)
			return true
		}

		allQuiet := true
		for filePath, info := range currentFileStates {
			prevInfo, exists := previousFileStates[filePath]
			switch {
			case !exists:
				lastChange := info.ModTime
				if lastChange.After(currentCheckTime) {
					lastChange = currentCheckTime
				}
				fileQuietTimes[filePath] = lastChange
			case prevInfo.Size != info.Size || !prevInfo.ModTime.Equal(info.ModTime):
				fileQuietTimes[filePath] = currentCheckTime
			}
			if currentCheckTime.Sub(fileQuietTimes[filePath]) < ts.cfg.StabilityQuietDuration {
				allQuiet = false
			}
		}
		previousFileStates = currentFileStates
		if allQuiet {
			ts.logger.Printf("  -> All relevant files in %s are stable for at least %v.", dir, ts.cfg.StabilityQuietDuration)
			return true
		}
		if !sleepContext(ctx, ts.cfg.StabilityCheckInterval) {
			return false
		}
	}
	ts.logger.Printf("  -> Max wait time for stability exceeded for %s. Files still active within %v or new files appeared.", dir, ts.cfg.StabilityQuietDuration)
	return false
}

// fileInfo 用于存储文件的关键信息
type fileInfo struct {
	Size    int64
	ModTime time.Time
}

func relevantFileStates(dir string) (map[string]fileInfo, error) {
	states := make(map[string]fileInfo)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path != dir {
				return nil
			}
			return err
		}
		if d.IsDir() || !util.IsRelevantMusicFile(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) { // 文件被删除
				return nil
			}
			return err
		}
		states[path] = fileInfo{Size: info.Size(), ModTime: info.ModTime()}
		return nil
	})
	return states, err
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Watch 监听源目录，直到 ctx 结束。
// 任何子目录中的变化都会触发对其所在一级子目录的扫描。
func (ts *TaskScheduler) Watch(ctx context.Context) error {
	root := filepath.Clean(ts.cfg.SourceDir)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating file watcher: %w", err)
	}
	defer watcher.Close()
	defer ts.stopPending()

	if err := addWatchTree(watcher, root); err != nil {
		return fmt.Errorf("error adding source path %s to watcher: %w", root, err)
	}
	ts.logger.Printf("Monitoring source directory %s for new albums...", root)
	if ts.onWatching != nil {
		ts.onWatching()
	}

	for {
		select {
		case <-ctx.Done():
			ts.logger.Println("Watcher stopped.")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			ts.handleEvent(ctx, watcher, root, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			ts.logger.Printf("ERROR: Watcher error: %v", err)
		}
	}
}

func (ts *TaskScheduler) handleEvent(ctx context.Context, watcher *fsnotify.Watcher, root string, event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}
	ts.logger.Printf("Watcher event: %s, on %s", event.Op.String(), event.Name)
	isDir := util.IsDirectory(event.Name)
	if isDir && event.Has(fsnotify.Create) {
		// fsnotify 不递归，新目录需要单独添加
		if err := addWatchTree(watcher, event.Name); err != nil {
			ts.logger.Printf("ERROR: Error watching %s: %v", event.Name, err)
		}
	}
	if !isDir && !util.IsRelevantMusicFile(event.Name) {
		return
	}
	albumDir := topLevelDir(root, event.Name, isDir)
	if albumDir == "" {
		ts.logger.Printf("  -> Event %s not in an album directory. Ignoring.", event.Name)
		return
	}
	ts.logger.Printf("  -> Change detected in album candidate: %s. Scheduling scan.", albumDir)
	ts.TriggerScan(ctx, albumDir)
}

// topLevelDir 返回 path 所属的源目录一级子目录，直接位于源目录下的文件返回空
func topLevelDir(root, path string, isDir bool) string {
	dir := path
	if !isDir {
		dir = filepath.Dir(path)
	}
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	first, _, _ := strings.Cut(rel, string(filepath.Separator))
	return filepath.Join(root, first)
}

func addWatchTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
