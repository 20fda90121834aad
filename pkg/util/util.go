package util

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// ReadTextFileContent 智能读取文本文件内容，自动处理 UTF-8、UTF-16 (带 BOM) 和 GBK 编码
// 返回的内容保证是UTF-8编码的字符串。
func ReadTextFileContent(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text, err := DecodeText(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return text, nil
}

// DecodeText 按 BOM -> UTF-8 -> GBK 的顺序识别编码
func DecodeText(data []byte) (string, error) {
	var dec *encoding.Decoder
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return string(bytes.TrimPrefix(data, bomUTF8)), nil
	case bytes.HasPrefix(data, bomUTF16LE):
		dec = unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
	case bytes.HasPrefix(data, bomUTF16BE):
		dec = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
	case utf8.Valid(data):
		return string(data), nil
	default:
		// 中文 CUE 大多是 GBK
		dec = simplifiedchinese.GBK.NewDecoder()
	}
	out, err := dec.Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// SanitizeFileName 清理文件名，移除或替换不适用于文件路径的字符
func SanitizeFileName(name string) string {
	// 替换所有斜杠为下划线
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")

	// 移除其他不安全的文件名字符 (Windows/Linux通用不推荐的字符)
	invalidChars := []string{":", "*", "?", "\"", "<", ">", "|"}
	for _, char := range invalidChars {
		name = strings.ReplaceAll(name, char, "")
	}
	// 将多个空格替换为一个空格
	return strings.Join(strings.Fields(name), " ")
}

// TrackFileName 生成 "NN. 标题.ext" 形式的文件名，序号宽度取总轨道数的位数，至少两位
func TrackFileName(number, total int, title, ext string) string {
	width := len(strconv.Itoa(total))
	if width < 2 {
		width = 2
	}
	name := fmt.Sprintf("%0*d", width, number)
	if title = SanitizeFileName(title); title != "" {
		name += ". " + title
	}
	return name + "." + strings.TrimPrefix(ext, ".")
}

// FormatDurationToFFmpegTime 将 time.Duration 格式化为 FFmpeg 的 HH:MM:SS.ms 格式
func FormatDurationToFFmpegTime(d time.Duration) string {
	d = d.Round(time.Millisecond)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	ms := d / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// IsDirectory 辅助函数，检查路径是否为目录
func IsDirectory(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// IsDirEmpty 目录不存在也视为空
func IsDirEmpty(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}

// IsSupportedAudioFile 可以按 CUE 切割的整轨音频
func IsSupportedAudioFile(filePath string) bool {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".ape", ".flac", ".wav", ".wv":
		return true
	}
	return false
}

// IsCueFile 判断文件是否为 CUE
func IsCueFile(filePath string) bool {
	return strings.EqualFold(filepath.Ext(filePath), ".cue")
}

// IsRelevantMusicFile 辅助函数，判断文件是否为我们关心的音乐相关文件
func IsRelevantMusicFile(filePath string) bool {
	if IsSupportedAudioFile(filePath) || IsCueFile(filePath) {
		return true
	}
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".mp3", ".m4a", ".aac", ".ogg", ".jpg", ".png":
		return true
	}
	return false
}

// Stem 去掉扩展名的文件名
func Stem(filePath string) string {
	base := filepath.Base(filePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
