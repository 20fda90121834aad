package scanner

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yleoer/cuesplit/pkg/album"
	"github.com/yleoer/cuesplit/pkg/converter"
	"github.com/yleoer/cuesplit/pkg/cue"
	"github.com/yleoer/cuesplit/pkg/util"
)

const unknownArtist = "Unknown Artist"

var coverNames = []string{"folder.jpg", "cover.jpg", "front.jpg", "folder.png", "cover.png"}

// AlbumScanner 负责扫描专辑目录并构建 Album 对象
type AlbumScanner struct {
	converter converter.TextConverter
	logger    *log.Logger
}

// NewAlbumScanner 创建一个新的 AlbumScanner 实例
func NewAlbumScanner(tc converter.TextConverter, logger *log.Logger) *AlbumScanner {
	if tc == nil {
		tc = converter.NewNoopConverter()
	}
	return &AlbumScanner{converter: tc, logger: logger}
}

// ScanTree 递归扫描 root，每个直接包含 CUE 文件的目录都作为一张专辑。
// 单个目录失败不会中断扫描，所有错误合并后返回。
func (s *AlbumScanner) ScanTree(root string) ([]*album.Album, error) {
	var albums []*album.Album
	var errs []error
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		cues, err := findCueFiles(path)
		if err != nil {
			return err
		}
		if len(cues) == 0 {
			return nil
		}
		a, err := s.ScanAlbumDirectory(path)
		if err != nil {
			s.logger.Printf("ERROR: Skipping %s: %v", path, err)
			errs = append(errs, err)
			return nil
		}
		if rel, err := filepath.Rel(root, path); err == nil {
			a.RelDir = rel
		}
		albums = append(albums, a)
		return nil
	})
	if err != nil {
		return albums, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return albums, errors.Join(errs...)
}

// ScanAlbumDirectory 扫描专辑目录并构建 Album 对象
func (s *AlbumScanner) ScanAlbumDirectory(rootPath string) (*album.Album, error) {
	albumObj := &album.Album{Path: rootPath, RelDir: filepath.Base(rootPath)}
	s.logger.Printf("  Searching for CUE files in %s...", rootPath)
	cues, err := findCueFiles(rootPath)
	if err != nil {
		return nil, err
	}
	if len(cues) == 0 {
		return nil, fmt.Errorf("no cue file found in %s", rootPath)
	}

	var errs []error
	for _, cuePath := range cues {
		s.logger.Printf("  Found CUE file: %s", cuePath)
		disc, err := s.scanDisc(rootPath, cuePath, len(albumObj.Discs)+1)
		if err != nil {
			s.logger.Printf("ERROR: Error processing CUE file %s: %v", cuePath, err)
			errs = append(errs, err)
			continue
		}
		albumObj.Discs = append(albumObj.Discs, disc)
	}
	if len(albumObj.Discs) == 0 {
		return albumObj, fmt.Errorf("no usable cue sheet in %s: %w", rootPath, errors.Join(errs...))
	}

	s.fillAlbumInfo(albumObj)
	for _, name := range coverNames {
		coverPath := filepath.Join(rootPath, name)
		if _, err := os.Stat(coverPath); err == nil {
			albumObj.CoverArt = coverPath
			break
		}
	}
	return albumObj, nil
}

func (s *AlbumScanner) scanDisc(dir, cuePath string, discNumber int) (*album.Disc, error) {
	data, err := os.ReadFile(cuePath)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	content, err := util.DecodeText(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(cuePath), err)
	}
	sheet, err := cue.ParseString(content)
	if err != nil {
		return nil, err
	}
	segments, err := cue.Resolve(sheet)
	if err != nil {
		return nil, err
	}
	audioPath, err := resolveAudio(dir, cuePath, sheet.Files[0].Path)
	if err != nil {
		return nil, err
	}
	// CUE 中的标题也可能需要繁转简
	for i := range segments {
		segments[i].Tags = converter.ConvertTags(s.converter, segments[i].Tags)
	}
	s.logger.Printf("  -> %d tracks, audio %s", len(segments), filepath.Base(audioPath))
	return &album.Disc{
		DiscNumber: discNumber,
		CuePath:    cuePath,
		AudioPath:  audioPath,
		Checksum:   hex.EncodeToString(sum[:]),
		Sheet:      sheet,
		Segments:   segments,
	}, nil
}

// fillAlbumInfo 专辑信息取自第一张光盘的 CUE，没有时退回目录名
func (s *AlbumScanner) fillAlbumInfo(a *album.Album) {
	sheet := a.Discs[0].Sheet
	if title, ok := sheet.Field("TITLE"); ok && title != "" {
		a.Title = title
	} else {
		a.Title = filepath.Base(a.Path)
	}
	if artist, ok := sheet.Field("PERFORMER"); ok && artist != "" {
		a.Artist = artist
	} else {
		s.logger.Printf("Warning: No PERFORMER in %s. Falling back to default \"%s\".", a.Discs[0].CuePath, unknownArtist)
		a.Artist = unknownArtist
	}
	a.Year = sheet.Date
	a.Artist = s.converter.TradToSim(a.Artist)
	a.Title = s.converter.TradToSim(a.Title)
}

// findCueFiles 返回目录下 (不含子目录) 按文件名排序的 CUE 文件
func findCueFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var cues []string
	for _, e := range entries {
		if !e.IsDir() && util.IsCueFile(e.Name()) {
			cues = append(cues, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(cues)
	return cues, nil
}

// resolveAudio 找到 CUE 对应的整轨音频。
// 优先使用 FILE 中的路径 (相对于 CUE 所在目录)；找不到时在目录中查找
// 与 CUE 或 FILE 同名 (扩展名不同) 的音频文件，必须唯一。
func resolveAudio(dir, cuePath, ref string) (string, error) {
	// FILE 中可能是 Windows 路径
	ref = strings.ReplaceAll(ref, "\\", "/")
	candidate := ref
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(filepath.Dir(cuePath), candidate)
	}
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	stems := []string{util.Stem(cuePath), util.Stem(ref)}
	var matches []string
	for _, e := range entries {
		if e.IsDir() || !util.IsSupportedAudioFile(e.Name()) {
			continue
		}
		stem := util.Stem(e.Name())
		for _, want := range stems {
			if strings.EqualFold(stem, want) {
				matches = append(matches, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("source audio file %q specified in %s not found", ref, filepath.Base(cuePath))
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("two or more audio files match %s: %s", filepath.Base(cuePath), strings.Join(matches, ", "))
	}
}
