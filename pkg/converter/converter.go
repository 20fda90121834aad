package converter

import "github.com/yleoer/cuesplit/pkg/cue"

// TextConverter 定义文本转换器接口
type TextConverter interface {
	TradToSim(text string) string // 将繁体中文转换为简体
}

// 需要转换的标签；数字类标签保持原样
var convertibleTags = []string{cue.TagAlbum, cue.TagArtist, cue.TagGenre, cue.TagTitle}

// ConvertTags 返回转换后的标签副本，不修改原 map
func ConvertTags(tc TextConverter, tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	if tc == nil {
		return out
	}
	for _, k := range convertibleTags {
		if v, ok := out[k]; ok {
			out[k] = tc.TradToSim(v)
		}
	}
	return out
}

type noopConverter struct{}

// NewNoopConverter 不做任何转换，TRAD_TO_SIMP 关闭时使用
func NewNoopConverter() TextConverter { return noopConverter{} }

func (noopConverter) TradToSim(text string) string { return text }
