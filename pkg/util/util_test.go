package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

func TestDecodeText(t *testing.T) {
	const text = "TITLE \"笨小孩\""

	gbk, err := simplifiedchinese.GBK.NewEncoder().String(text)
	require.NoError(t, err)
	utf16le, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(text)
	require.NoError(t, err)
	utf16be, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder().String(text)
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"utf-8", []byte(text)},
		{"utf-8 bom", append([]byte{0xEF, 0xBB, 0xBF}, text...)},
		{"utf-16le bom", []byte(utf16le)},
		{"utf-16be bom", []byte(utf16be)},
		{"gbk", []byte(gbk)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeText(tt.data)
			require.NoError(t, err)
			assert.Equal(t, text, got)
		})
	}
}

func TestReadTextFileContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.cue")
	require.NoError(t, os.WriteFile(path, []byte("REM x\n"), 0o644))

	got, err := ReadTextFileContent(path)
	require.NoError(t, err)
	assert.Equal(t, "REM x\n", got)

	_, err = ReadTextFileContent(filepath.Join(t.TempDir(), "missing.cue"))
	assert.True(t, os.IsNotExist(err))
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "AC_DC", SanitizeFileName("AC/DC"))
	assert.Equal(t, "What Now", SanitizeFileName("  What?   Now  "))
	assert.Equal(t, "a_b_c", SanitizeFileName(`a\b/c`))
	assert.Equal(t, "", SanitizeFileName(`"*"`))
}

func TestTrackFileName(t *testing.T) {
	assert.Equal(t, "01. One.flac", TrackFileName(1, 9, "One", "flac"))
	assert.Equal(t, "07. AC_DC.flac", TrackFileName(7, 12, "AC/DC", ".flac"))
	assert.Equal(t, "042. Deep.wav", TrackFileName(42, 120, "Deep", "wav"))
	assert.Equal(t, "03.flac", TrackFileName(3, 3, "", "flac"))
}

func TestFormatDurationToFFmpegTime(t *testing.T) {
	assert.Equal(t, "00:00:00.000", FormatDurationToFFmpegTime(0))
	assert.Equal(t, "00:01:30.493", FormatDurationToFFmpegTime(90493333333*time.Nanosecond))
	assert.Equal(t, "01:02:03.500", FormatDurationToFFmpegTime(time.Hour+2*time.Minute+3500*time.Millisecond))
}

func TestFileKinds(t *testing.T) {
	assert.True(t, IsSupportedAudioFile("x/Album.FLAC"))
	assert.True(t, IsSupportedAudioFile("Album.ape"))
	assert.False(t, IsSupportedAudioFile("Album.mp3"))
	assert.True(t, IsCueFile("Album.CUE"))
	assert.True(t, IsRelevantMusicFile("folder.jpg"))
	assert.False(t, IsRelevantMusicFile("notes.txt"))
	assert.Equal(t, "Album", Stem("/music/Album.flac"))
}

func TestIsDirEmpty(t *testing.T) {
	dir := t.TempDir()
	empty, err := IsDirEmpty(dir)
	require.NoError(t, err)
	assert.True(t, empty)

	empty, err = IsDirEmpty(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.True(t, empty)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), nil, 0o644))
	empty, err = IsDirEmpty(dir)
	require.NoError(t, err)
	assert.False(t, empty)
	assert.True(t, IsDirectory(dir))
	assert.False(t, IsDirectory(filepath.Join(dir, "a")))
}
