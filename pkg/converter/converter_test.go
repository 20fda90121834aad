package converter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yleoer/cuesplit/pkg/cue"
)

type upperConverter struct{}

func (upperConverter) TradToSim(text string) string { return strings.ToUpper(text) }

func TestConvertTags(t *testing.T) {
	tags := map[string]string{
		cue.TagAlbum:       "album",
		cue.TagTitle:       "title",
		cue.TagDate:        "1999",
		cue.TagTrackNumber: "1",
	}
	got := ConvertTags(upperConverter{}, tags)
	assert.Equal(t, map[string]string{
		cue.TagAlbum:       "ALBUM",
		cue.TagTitle:       "TITLE",
		cue.TagDate:        "1999",
		cue.TagTrackNumber: "1",
	}, got)
	// 原 map 不变
	assert.Equal(t, "album", tags[cue.TagAlbum])
	_, ok := got[cue.TagArtist]
	assert.False(t, ok)
}

func TestConvertTagsNilConverter(t *testing.T) {
	tags := map[string]string{cue.TagTitle: "x"}
	assert.Equal(t, tags, ConvertTags(nil, tags))
	assert.Equal(t, "繁體", NewNoopConverter().TradToSim("繁體"))
}
