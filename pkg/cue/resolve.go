package cue

import (
	"fmt"
	"strconv"
)

// Resolve 计算唯一一个 FILE 中每个轨道的切割边界。
//
// 每个轨道以 INDEX 01 为起点，以源文本中下一个轨道的 INDEX 01 为终点，
// 最后一个轨道没有终点 (切到音频结尾)。轨道不会重新排序。
// 多个 FILE、缺少 INDEX 01 或轨道号重复时返回 *ValidationError，不返回部分结果。
func Resolve(sheet *Sheet) ([]Segment, error) {
	if sheet == nil {
		return nil, &ValidationError{Reason: "nil cue sheet"}
	}
	if len(sheet.Files) != 1 {
		return nil, &ValidationError{
			Reason: fmt.Sprintf("cue sheet has %d FILE statements, only single-file sheets can be split", len(sheet.Files)),
		}
	}
	file := sheet.Files[0]
	if len(file.Tracks) == 0 {
		return nil, &ValidationError{Reason: fmt.Sprintf("file %q has no tracks", file.Path)}
	}

	starts := make([]Time, len(file.Tracks))
	seen := make(map[int]struct{}, len(file.Tracks))
	for i, tr := range file.Tracks {
		if _, dup := seen[tr.Number]; dup {
			return nil, &ValidationError{Track: tr.Number, Reason: "duplicate track number"}
		}
		seen[tr.Number] = struct{}{}

		start, ok := tr.Start()
		if !ok {
			return nil, &ValidationError{Track: tr.Number, Reason: "no INDEX 01"}
		}
		starts[i] = start
	}

	total := len(file.Tracks)
	segments := make([]Segment, 0, total)
	for i, tr := range file.Tracks {
		seg := Segment{
			Track: tr,
			Start: starts[i].Milliseconds(),
			Tags:  segmentTags(sheet, tr, total),
		}
		if i+1 < total {
			seg.End = starts[i+1].Milliseconds()
			seg.HasEnd = true
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// segmentTags 只使用源文本中真实出现的值，"Unknown" 默认值不会写入标签
func segmentTags(sheet *Sheet, tr Track, total int) map[string]string {
	tags := make(map[string]string, 7)
	set := func(key, value string) {
		if value != "" {
			tags[key] = value
		}
	}
	album, _ := sheet.Field("TITLE")
	artist, _ := sheet.Field("PERFORMER")
	title, _ := tr.Field("TITLE")
	set(TagAlbum, album)
	set(TagArtist, artist)
	set(TagDate, sheet.Date)
	set(TagGenre, sheet.Genre)
	set(TagTitle, title)
	if tr.Number > 0 {
		set(TagTrackNumber, strconv.Itoa(tr.Number))
	}
	set(TagTrackTotal, strconv.Itoa(total))
	return tags
}
