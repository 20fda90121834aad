package cue

import (
	"fmt"
	"math"
	"time"
)

// FramesPerSecond CD 音频每秒的帧数
const FramesPerSecond = 75

// Unknown 默认值，仅用于 Sheet.Title / Sheet.Performer / Track.Title
const Unknown = "Unknown"

// Time 表示 MM:SS:FF 形式的时间戳。帧数不做 0-74 的范围检查。
type Time struct {
	Minutes int
	Seconds int
	Frames  int
}

// Milliseconds 将时间换算为毫秒: ((m*60 + s) + f/75) * 1000
func (t Time) Milliseconds() float64 {
	return (float64(t.Minutes*60+t.Seconds) + float64(t.Frames)/FramesPerSecond) * 1000
}

// Duration 将时间换算为 time.Duration (四舍五入到纳秒)
func (t Time) Duration() time.Duration {
	return msToDuration(t.Milliseconds())
}

func (t Time) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Minutes, t.Seconds, t.Frames)
}

// Index 轨道索引。0 是 pregap 起点，1 是轨道起点，2 以上是子索引。
type Index struct {
	Number int
	Time   Time
}

// Field 是保留下来的 CD-TEXT / REM 字段，按源文本顺序排列
type Field struct {
	Name  string
	Value string
}

// Track 代表 FILE 下的一个 TRACK
type Track struct {
	Number  int
	Type    string // AUDIO, MODE1/2352 ...
	Title   string // 没有 TITLE 时为 "Unknown"
	Indices []Index
	Flags   []string
	Pregap  *Time
	Postgap *Time
	ISRC    string
	Fields  []Field
}

// Start 返回 INDEX 01 的时间
func (t Track) Start() (Time, bool) {
	for _, idx := range t.Indices {
		if idx.Number == 1 {
			return idx.Time, true
		}
	}
	return Time{}, false
}

// Field 返回轨道中第一个同名字段的值
func (t Track) Field(name string) (string, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// File 代表一条 FILE 语句及其下的轨道
type File struct {
	Path   string // 按原样保存，可能是相对路径
	Type   string // WAVE, MP3, BINARY ...
	Tracks []Track
}

// Sheet 是解析后的整个 CUE 文件。Date 和 Genre 为空表示源文本中没有。
type Sheet struct {
	Title      string
	Performer  string
	Date       string
	Genre      string
	CDTextFile string
	Fields     []Field // 全局 (FILE 之前) 的字段
	Files      []File
}

// Field 返回最后一个同名的全局字段值 (后出现的覆盖先出现的)
func (s *Sheet) Field(name string) (string, bool) {
	for i := len(s.Fields) - 1; i >= 0; i-- {
		if s.Fields[i].Name == name {
			return s.Fields[i].Value, true
		}
	}
	return "", false
}

// 分割时写入的标签名
const (
	TagAlbum       = "album"
	TagArtist      = "artist"
	TagDate        = "date"
	TagGenre       = "genre"
	TagTitle       = "title"
	TagTrackNumber = "tracknumber"
	TagTrackTotal  = "tracktotal"
)

// Segment 是一个轨道的切割边界。Start/End 单位为毫秒；最后一个轨道 HasEnd 为 false。
type Segment struct {
	Track  Track
	Start  float64
	End    float64
	HasEnd bool
	Tags   map[string]string
}

// StartDuration 返回 Start 对应的 time.Duration
func (s Segment) StartDuration() time.Duration {
	return msToDuration(s.Start)
}

// EndDuration 返回 End 对应的 time.Duration，没有结束时间时返回 0
func (s Segment) EndDuration() time.Duration {
	if !s.HasEnd {
		return 0
	}
	return msToDuration(s.End)
}

// FormatStart 以两位小数输出起点毫秒数
func (s Segment) FormatStart() string {
	return FormatMilliseconds(s.Start)
}

// FormatEnd 以两位小数输出终点毫秒数，没有终点时返回空字符串
func (s Segment) FormatEnd() string {
	if !s.HasEnd {
		return ""
	}
	return FormatMilliseconds(s.End)
}

// FormatMilliseconds 两位小数
func FormatMilliseconds(ms float64) string {
	return fmt.Sprintf("%.2f", ms)
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(math.Round(ms * float64(time.Millisecond)))
}
