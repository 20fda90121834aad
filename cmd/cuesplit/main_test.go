package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yleoer/cuesplit/pkg/cue"
)

const albumCue = `REM GENRE Pop
REM DATE 1995
PERFORMER "Band"
TITLE "Album"
FILE "Album.flac" WAVE
  TRACK 01 AUDIO
    TITLE "One"
    INDEX 01 00:00:00
  TRACK 02 AUDIO
    TITLE "Two"
    PERFORMER "Guest"
    FLAGS DCP
    INDEX 00 01:28:00
    INDEX 01 01:30:37
`

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeCue(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "Album.cue")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSegmentsJSON(t *testing.T) {
	path := writeCue(t, t.TempDir(), albumCue)

	out, _, err := runCLI(t, "segments", path)
	require.NoError(t, err)

	var got []struct {
		Track int               `json:"track"`
		Title string            `json:"title"`
		Start float64           `json:"start"`
		End   *float64          `json:"end"`
		Tags  map[string]string `json:"tags"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, 0.0, got[0].Start)
	require.NotNil(t, got[0].End)
	assert.Equal(t, 90493.33, *got[0].End)
	assert.Equal(t, 90493.33, got[1].Start)
	assert.Nil(t, got[1].End)
	assert.Equal(t, map[string]string{
		"album":       "Album",
		"artist":      "Band",
		"date":        "1995",
		"genre":       "Pop",
		"title":       "Two",
		"tracknumber": "2",
		"tracktotal":  "2",
	}, got[1].Tags)
}

func TestSegmentsTable(t *testing.T) {
	path := writeCue(t, t.TempDir(), albumCue)

	out, _, err := runCLI(t, "segments", "--output", "table", path)
	require.NoError(t, err)
	assert.Contains(t, out, "START (MS)")
	assert.Contains(t, out, "90493.33")
	assert.Contains(t, out, "00:01:30.493")
}

func TestSegmentsRejectsMultiFileSheet(t *testing.T) {
	path := writeCue(t, t.TempDir(), albumCue+`FILE "b.flac" WAVE
  TRACK 03 AUDIO
    INDEX 01 00:00:00
`)
	_, _, err := runCLI(t, "segments", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, cue.ErrValidation)
}

func TestInspectJSON(t *testing.T) {
	path := writeCue(t, t.TempDir(), albumCue)

	out, _, err := runCLI(t, "inspect", path)
	require.NoError(t, err)

	var got sheetView
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Album", got.Title)
	assert.Equal(t, "1995", got.Date)
	require.Len(t, got.Files, 1)
	tracks := got.Files[0].Tracks
	require.Len(t, tracks, 2)
	assert.Equal(t, []string{"DCP"}, tracks[1].Flags)
	require.Len(t, tracks[1].Indices, 2)
	assert.Equal(t, "01:30:37", tracks[1].Indices[1].Time)
}

func TestInspectTable(t *testing.T) {
	path := writeCue(t, t.TempDir(), albumCue)

	out, _, err := runCLI(t, "inspect", "-o", "table", path)
	require.NoError(t, err)
	assert.Contains(t, out, "FILE Album.flac (WAVE)")
	assert.Contains(t, out, "Guest")
	assert.Contains(t, out, "01:30:37")
	assert.Contains(t, out, "00:01:30.493")
}

func TestInspectParseError(t *testing.T) {
	path := writeCue(t, t.TempDir(), "TITLE \"x\"\nBOGUS\n")

	_, _, err := runCLI(t, "inspect", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, cue.ErrParse)
	var perr *cue.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Line)
}

func TestUnknownOutputFormat(t *testing.T) {
	path := writeCue(t, t.TempDir(), albumCue)
	_, _, err := runCLI(t, "segments", "--output", "yaml", path)
	require.Error(t, err)
}

// fakeFFmpeg 创建最后一个参数指定的输出文件
const fakeFFmpeg = `#!/bin/sh
for last; do :; done
: > "$last"
`

func TestSplitAndRuns(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stands in for ffmpeg")
	}
	base := t.TempDir()
	src := filepath.Join(base, "src")
	out := filepath.Join(base, "out")
	albumDir := filepath.Join(src, "Band", "Album")
	require.NoError(t, os.MkdirAll(albumDir, 0o755))
	writeCue(t, albumDir, albumCue)
	require.NoError(t, os.WriteFile(filepath.Join(albumDir, "Album.flac"), []byte("audio"), 0o644))

	ffmpeg := filepath.Join(base, "ffmpeg")
	require.NoError(t, os.WriteFile(ffmpeg, []byte(fakeFFmpeg), 0o755))

	envFile := filepath.Join(base, "cuesplit.env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"DATA_DIR="+filepath.Join(base, "data")+"\n"+
			"FFMPEG_PATH="+ffmpeg+"\n"+
			"SPLIT_WORKERS=2\n"), 0o644))
	for _, k := range []string{"DATA_DIR", "FFMPEG_PATH", "SPLIT_WORKERS", "SOURCE_DIR", "OUTPUT_DIR", "OUTPUT_FORMAT", "TRAD_TO_SIMP", "OVERWRITE"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	stdout, _, err := runCLI(t, "--env-file", envFile, "--quiet", "split", "--in", src, "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "1 albums, 1 processed, 0 skipped, 0 failed")
	assert.FileExists(t, filepath.Join(out, "Band", "Album", "01. One.flac"))
	assert.FileExists(t, filepath.Join(out, "Band", "Album", "02. Two.flac"))

	stdout, _, err = runCLI(t, "--env-file", envFile, "-q", "split", "--in", src, "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "1 albums, 0 processed, 1 skipped, 0 failed")

	stdout, _, err = runCLI(t, "--env-file", envFile, "-q", "runs")
	require.NoError(t, err)
	var runs []runView
	require.NoError(t, json.Unmarshal([]byte(stdout), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, filepath.Join(albumDir, "Album.cue"), runs[0].Path)
	assert.Len(t, runs[0].Checksum, 64)
}
