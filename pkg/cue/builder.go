package cue

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yleoer/cuesplit/pkg/util"
)

// ParseString 解析 CUE 文本并构建 Sheet
func ParseString(src string) (*Sheet, error) {
	tree, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return Build(tree)
}

// ParseReader 一次性读取 r 的全部内容后解析
func ParseReader(r io.Reader) (*Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read cue sheet: %w", err)
	}
	return ParseString(string(data))
}

// ParseFile 读取并解析 CUE 文件，UTF-8 以外的 GBK 编码会被自动转换
func ParseFile(path string) (*Sheet, error) {
	content, err := util.ReadTextFileContent(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cue file %s: %w", path, err)
	}
	sheet, err := ParseString(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sheet, nil
}

// Build 遍历语法树，生成 Sheet。语法树之外的值 (例如无法解析的数字) 返回 *BuildError。
func Build(tree *Node) (*Sheet, error) {
	b := &builder{
		unescape: strings.NewReplacer(`\'`, `'`, `\"`, `"`),
	}
	return b.cueFile(tree)
}

type builder struct {
	unescape *strings.Replacer
}

func (b *builder) fail(n *Node, format string, args ...any) *BuildError {
	e := &BuildError{Msg: fmt.Sprintf(format, args...)}
	if n != nil {
		e.Line, e.Column = n.Pos.Line, n.Pos.Column
	}
	return e
}

func (b *builder) expect(n *Node, kind Kind) error {
	if n == nil {
		return b.fail(nil, "expected %s node, got nothing", kind)
	}
	if n.Kind != kind {
		return b.fail(n, "expected %s node, got %s", kind, n.Kind)
	}
	return nil
}

func (b *builder) text(n *Node) (string, error) {
	if n == nil {
		return "", b.fail(nil, "expected text node, got nothing")
	}
	switch n.Kind {
	case KindQuoted:
		if len(n.Value) < 2 {
			return "", b.fail(n, "malformed quoted string %q", n.Value)
		}
		return b.unescape.Replace(n.Value[1 : len(n.Value)-1]), nil
	case KindWord:
		return n.Value, nil
	}
	return "", b.fail(n, "expected text node, got %s", n.Kind)
}

func (b *builder) number(n *Node) (int, error) {
	if err := b.expect(n, KindNumber); err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(n.Value)
	if err != nil {
		e := b.fail(n, "invalid number %q", n.Value)
		e.Err = err
		return 0, e
	}
	return v, nil
}

func (b *builder) time(n *Node) (Time, error) {
	if err := b.expect(n, KindTime); err != nil {
		return Time{}, err
	}
	if len(n.Children) != 3 {
		return Time{}, b.fail(n, "time needs 3 components, got %d", len(n.Children))
	}
	var parts [3]int
	for i, c := range n.Children {
		v, err := b.number(c)
		if err != nil {
			return Time{}, err
		}
		parts[i] = v
	}
	return Time{Minutes: parts[0], Seconds: parts[1], Frames: parts[2]}, nil
}

// field 处理 cdtext 和 rem 节点
func (b *builder) field(n *Node) (Field, error) {
	switch n.Kind {
	case KindCDText:
		if len(n.Children) != 1 {
			return Field{}, b.fail(n, "%s needs exactly one value", n.Value)
		}
		v, err := b.text(n.Children[0])
		if err != nil {
			return Field{}, err
		}
		return Field{Name: n.Value, Value: v}, nil
	case KindRem:
		if len(n.Children) == 0 {
			return Field{}, b.fail(n, "REM without text")
		}
		values := make([]string, 0, len(n.Children))
		for _, c := range n.Children {
			v, err := b.text(c)
			if err != nil {
				return Field{}, err
			}
			values = append(values, v)
		}
		name := n.Value
		if name == "" {
			name = "COMMENT"
		}
		return Field{Name: name, Value: strings.Join(values, " ")}, nil
	}
	return Field{}, b.fail(n, "expected cdtext or rem node, got %s", n.Kind)
}

func (b *builder) index(n *Node) (Index, error) {
	if len(n.Children) != 2 {
		return Index{}, b.fail(n, "INDEX needs a number and a time")
	}
	num, err := b.number(n.Children[0])
	if err != nil {
		return Index{}, err
	}
	t, err := b.time(n.Children[1])
	if err != nil {
		return Index{}, err
	}
	return Index{Number: num, Time: t}, nil
}

func (b *builder) gap(n *Node) (*Time, error) {
	if len(n.Children) != 1 {
		return nil, b.fail(n, "%s needs a time", n.Kind)
	}
	t, err := b.time(n.Children[0])
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (b *builder) track(n *Node) (Track, error) {
	if err := b.expect(n, KindTrack); err != nil {
		return Track{}, err
	}
	if len(n.Children) < 2 {
		return Track{}, b.fail(n, "TRACK needs a number and a type")
	}
	num, err := b.number(n.Children[0])
	if err != nil {
		return Track{}, err
	}
	if err := b.expect(n.Children[1], KindWord); err != nil {
		return Track{}, err
	}
	track := Track{Number: num, Type: n.Children[1].Value}
	hasTitle := false

	for _, c := range n.Children[2:] {
		switch c.Kind {
		case KindCDText, KindRem:
			f, err := b.field(c)
			if err != nil {
				return Track{}, err
			}
			track.Fields = append(track.Fields, f)
			// 取第一个 TITLE
			if c.Kind == KindCDText && f.Name == "TITLE" && !hasTitle {
				track.Title = f.Value
				hasTitle = true
			}
			if c.Kind == KindCDText && f.Name == "ISRC" {
				track.ISRC = f.Value
			}
		case KindIndex:
			idx, err := b.index(c)
			if err != nil {
				return Track{}, err
			}
			track.Indices = append(track.Indices, idx)
		case KindFlags:
			for _, w := range c.Children {
				track.Flags = append(track.Flags, w.Value)
			}
		case KindPregap:
			if track.Pregap, err = b.gap(c); err != nil {
				return Track{}, err
			}
		case KindPostgap:
			if track.Postgap, err = b.gap(c); err != nil {
				return Track{}, err
			}
		case KindTrackISRC:
			if len(c.Children) != 1 {
				return Track{}, b.fail(c, "TRACK_ISRC needs a value")
			}
			track.ISRC = c.Children[0].Value
		default:
			return Track{}, b.fail(c, "unexpected %s node in track", c.Kind)
		}
	}
	if !hasTitle {
		track.Title = Unknown
	}
	return track, nil
}

func (b *builder) file(n *Node) (File, error) {
	if len(n.Children) < 3 {
		return File{}, b.fail(n, "FILE needs a path, a type and at least one track")
	}
	path, err := b.text(n.Children[0])
	if err != nil {
		return File{}, err
	}
	if err := b.expect(n.Children[1], KindWord); err != nil {
		return File{}, err
	}
	file := File{Path: path, Type: n.Children[1].Value}
	for _, c := range n.Children[2:] {
		tr, err := b.track(c)
		if err != nil {
			return File{}, err
		}
		file.Tracks = append(file.Tracks, tr)
	}
	return file, nil
}

func (b *builder) cueFile(n *Node) (*Sheet, error) {
	if err := b.expect(n, KindCueFile); err != nil {
		return nil, err
	}
	sheet := &Sheet{Title: Unknown, Performer: Unknown}
	for _, c := range n.Children {
		switch c.Kind {
		case KindCDText, KindRem:
			f, err := b.field(c)
			if err != nil {
				return nil, err
			}
			sheet.Fields = append(sheet.Fields, f)
			// 同名字段后出现的覆盖先出现的
			switch f.Name {
			case "DATE":
				sheet.Date = f.Value
			case "GENRE":
				sheet.Genre = f.Value
			case "PERFORMER":
				sheet.Performer = f.Value
			case "TITLE":
				sheet.Title = f.Value
			}
		case KindCDTextFile:
			if len(c.Children) != 1 {
				return nil, b.fail(c, "CDTEXTFILE needs a path")
			}
			path, err := b.text(c.Children[0])
			if err != nil {
				return nil, err
			}
			sheet.CDTextFile = path
		case KindFile:
			f, err := b.file(c)
			if err != nil {
				return nil, err
			}
			sheet.Files = append(sheet.Files, f)
		default:
			return nil, b.fail(c, "unexpected %s node at top level", c.Kind)
		}
	}
	if len(sheet.Files) == 0 {
		return nil, b.fail(n, "cue sheet has no FILE statement")
	}
	return sheet, nil
}
