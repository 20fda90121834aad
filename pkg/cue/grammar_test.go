package cue

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalSheet = `FILE "a.wav" WAVE
  TRACK 01 AUDIO
    INDEX 01 00:00:00
`

func kinds(nodes []*Node) []Kind {
	out := make([]Kind, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Kind)
	}
	return out
}

func TestParseTreeShape(t *testing.T) {
	src := `REM GENRE Rock
PERFORMER "Artist"
CDTEXTFILE disc.cdt
FILE "a.wav" WAVE
  TRACK 01 AUDIO
    TITLE "One"
    FLAGS DCP PRE
    PREGAP 00:02:00
    INDEX 00 00:00:00
    INDEX 01 00:02:00
    POSTGAP 00:01:00
    TRACK_ISRC USRC17607839
`
	tree, err := Parse(src)
	require.NoError(t, err)
	require.Equal(t, KindCueFile, tree.Kind)
	assert.Equal(t, []Kind{KindRem, KindCDText, KindCDTextFile, KindFile}, kinds(tree.Children))

	file := tree.Children[3]
	require.Len(t, file.Children, 3)
	assert.Equal(t, KindQuoted, file.Children[0].Kind)
	assert.Equal(t, `"a.wav"`, file.Children[0].Value)
	assert.Equal(t, "WAVE", file.Children[1].Value)

	track := file.Children[2]
	assert.Equal(t, []Kind{
		KindNumber, KindWord, KindCDText, KindFlags, KindPregap,
		KindIndex, KindIndex, KindPostgap, KindTrackISRC,
	}, kinds(track.Children))
	assert.Equal(t, Position{Line: 5, Column: 3}, track.Pos)

	flags := track.Children[3]
	require.Len(t, flags.Children, 2)
	assert.Equal(t, "DCP", flags.Children[0].Value)
	assert.Equal(t, "PRE", flags.Children[1].Value)

	index := track.Children[6]
	assert.Equal(t, "01", index.Children[0].Value)
	assert.Equal(t, "00:02:00", index.Children[1].Value)
}

func TestParseRem(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		keyword  string
		children []string
	}{
		{"keyword", "REM DATE 1999", "DATE", []string{"1999"}},
		{"keyword multi word", `REM COMMENT "ExactAudioCopy v1.0" beta 4`, "COMMENT", []string{`"ExactAudioCopy v1.0"`, "beta", "4"}},
		{"free form", "REM ripped by someone", "", []string{"ripped", "by", "someone"}},
		{"unknown keyword", "REM COMMENTARY track", "", []string{"COMMENTARY", "track"}},
		{"keyword without value", "REM DATE", "", []string{"DATE"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Parse(tt.line + "\n" + minimalSheet)
			require.NoError(t, err)
			rem := tree.Children[0]
			require.Equal(t, KindRem, rem.Kind)
			assert.Equal(t, tt.keyword, rem.Value)
			values := make([]string, 0, len(rem.Children))
			for _, c := range rem.Children {
				values = append(values, c.Value)
			}
			assert.Equal(t, tt.children, values)
			assert.Equal(t, KindFile, tree.Children[1].Kind)
		})
	}
}

func TestParseQuotedString(t *testing.T) {
	tests := []struct {
		name string
		text string
		kind Kind
		raw  string
	}{
		{"double", `"Hello World"`, KindQuoted, `"Hello World"`},
		{"single", `'Hello World'`, KindQuoted, `'Hello World'`},
		{"escaped", `"He said \"hi\""`, KindQuoted, `"He said \"hi\""`},
		{"other quote inside", `"It's"`, KindQuoted, `"It's"`},
		{"inner quotes run to last quote", `"The "Best" Of"`, KindQuoted, `"The "Best" Of"`},
		{"escaped quote cannot close", `"Say\"`, KindWord, `"Say\"`},
		{"unterminated falls back to word", `"Hello`, KindWord, `"Hello`},
		{"bare word", `Hello`, KindWord, `Hello`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Parse("TITLE " + tt.text + "\n" + minimalSheet)
			require.NoError(t, err)
			value := tree.Children[0].Children[0]
			assert.Equal(t, tt.kind, value.Kind)
			assert.Equal(t, tt.raw, value.Value)
		})
	}
}

func TestParseQuotedStringInTrack(t *testing.T) {
	tree, err := Parse("FILE \"a.wav\" WAVE\n  TRACK 01 AUDIO\n    TITLE \"Song (\"Live\" version)\"\n    INDEX 01 00:00:00\n")
	require.NoError(t, err)
	track := tree.Children[0].Children[2]
	require.Equal(t, KindTrack, track.Kind)
	title := track.Children[2]
	assert.Equal(t, `"Song ("Live" version)"`, title.Children[0].Value)
}

func TestParseKeywordNeedsBoundary(t *testing.T) {
	// TITLES 不是关键字，整行无法归约
	_, err := Parse("TITLES foo\n" + minimalSheet)
	require.Error(t, err)
}

func TestParseCRLFAndBOM(t *testing.T) {
	src := "\ufeffTITLE \"Album\"\r\nFILE \"a.wav\" WAVE\r\n  TRACK 01 AUDIO\r\n    INDEX 01 00:00:00\r\n"
	tree, err := Parse(src)
	require.NoError(t, err)
	assert.Equal(t, []Kind{KindCDText, KindFile}, kinds(tree.Children))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		line     int
		column   int
		expected string
	}{
		{
			name:     "unknown track statement",
			src:      "FILE \"a.wav\" WAVE\n  TRACK 01 AUDIO\n    BOGUS 1\n",
			line:     3,
			column:   5,
			expected: "INDEX",
		},
		{
			name:     "no file statement",
			src:      "TITLE \"Album\"\n",
			line:     2,
			column:   1,
			expected: "FILE",
		},
		{
			name:     "track without statements",
			src:      "FILE \"a.wav\" WAVE\n  TRACK 01 AUDIO\n",
			line:     3,
			column:   1,
			expected: "INDEX",
		},
		{
			name:     "whitespace inside time",
			src:      "FILE \"a.wav\" WAVE\n  TRACK 01 AUDIO\n    INDEX 01 00: 00:00\n",
			line:     3,
			column:   17,
			expected: "number",
		},
		{
			name:     "trailing garbage",
			src:      minimalSheet + "GARBAGE\n",
			line:     4,
			column:   1,
			expected: "end of input",
		},
		{
			name:     "empty input",
			src:      "",
			line:     1,
			column:   1,
			expected: "FILE",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Parse(tt.src)
			require.Error(t, err)
			assert.Nil(t, tree)
			assert.True(t, errors.Is(err, ErrParse))

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.line, perr.Line)
			assert.Equal(t, tt.column, perr.Column)
			assert.Contains(t, perr.Expected, tt.expected)
		})
	}
}

func TestParseErrorMessage(t *testing.T) {
	err := (&ParseError{Line: 3, Column: 5, Expected: []string{"INDEX", "TRACK"}}).Error()
	assert.Equal(t, "cue: parse error at line 3, column 5: expected INDEX or TRACK", err)
}
