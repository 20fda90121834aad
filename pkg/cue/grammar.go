package cue

import (
	"slices"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind 语法树节点的类型
type Kind int

const (
	KindCueFile Kind = iota
	KindCDText
	KindRem
	KindCDTextFile
	KindFile
	KindTrack
	KindIndex
	KindFlags
	KindPregap
	KindPostgap
	KindTrackISRC
	KindTime
	KindNumber
	KindQuoted
	KindWord
)

var kindNames = [...]string{
	KindCueFile:    "cue_file",
	KindCDText:     "cdtext",
	KindRem:        "rem",
	KindCDTextFile: "cdtextfile",
	KindFile:       "file_statement",
	KindTrack:      "track",
	KindIndex:      "track_index",
	KindFlags:      "flags",
	KindPregap:     "pregap",
	KindPostgap:    "postgap",
	KindTrackISRC:  "track_isrc",
	KindTime:       "time",
	KindNumber:     "number",
	KindQuoted:     "quoted_string",
	KindWord:       "word",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Position 行列号都从 1 开始，列按字符计
type Position struct {
	Line   int
	Column int
}

// Node 语法树节点。
// 关键字类节点 (cdtext, rem) 的 Value 是关键字本身，REM 没有关键字时 Value 为空；
// 终结符节点 (number, word, quoted_string) 的 Value 是原始文本，quoted_string 包含引号。
type Node struct {
	Kind     Kind
	Value    string
	Pos      Position
	Children []*Node
}

var cdtextKeywords = []string{
	"ARRANGER", "CATALOG", "COMPOSER", "DISC_ID", "GENRE", "ISRC",
	"MESSAGE", "PERFORMER", "SIZE_INFO", "SONGWRITER",
	"TITLE", "TOC_INFO1", "TOC_INFO2", "UPC_EAN",
}

var remKeywords = []string{
	"COMMENT", "DATE", "DISCID", "DISCNUMBER", "GENRE",
	"REPLAYGAIN_ALBUM_GAIN", "REPLAYGAIN_ALBUM_PEAK",
	"REPLAYGAIN_TRACK_GAIN", "REPLAYGAIN_TRACK_PEAK",
	"TOTALDISCS",
}

// Parse 把 CUE 文本解析成语法树。
// 采用带回溯的递归下降，备选项按顺序尝试，第一个成功的生效。
// 失败时返回 *ParseError，位置为回溯前到达的最远处。
func Parse(src string) (*Node, error) {
	p := newParser(src)
	root, ok := p.cueFile()
	if !ok {
		return nil, p.error()
	}
	return root, nil
}

type parser struct {
	src        string
	pos        int
	lineStarts []int

	farthest int
	expected []string
}

func newParser(src string) *parser {
	src = strings.TrimPrefix(src, "\ufeff")
	p := &parser{src: src, farthest: -1, lineStarts: []int{0}}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			p.lineStarts = append(p.lineStarts, i+1)
		}
	}
	return p
}

func (p *parser) position(off int) Position {
	line := sort.SearchInts(p.lineStarts, off+1) - 1
	col := utf8.RuneCountInString(p.src[p.lineStarts[line]:off]) + 1
	return Position{Line: line + 1, Column: col}
}

func (p *parser) error() *ParseError {
	off := p.farthest
	if off < 0 {
		off = 0
	}
	pos := p.position(off)
	return &ParseError{Line: pos.Line, Column: pos.Column, Expected: slices.Clone(p.expected)}
}

// fail 记录当前位置期望但没有匹配上的元素
func (p *parser) fail(what string) {
	switch {
	case p.pos > p.farthest:
		p.farthest = p.pos
		p.expected = append(p.expected[:0], what)
	case p.pos == p.farthest && !slices.Contains(p.expected, what):
		p.expected = append(p.expected, what)
	}
}

// --- 空白 ---

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		p.pos += size
	}
}

// skipBlank 跳过空白但不跨行
func (p *parser) skipBlank() {
	for p.pos < len(p.src) {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if r == '\n' || !unicode.IsSpace(r) {
			return
		}
		p.pos += size
	}
}

func (p *parser) skip(inline bool) {
	if inline {
		p.skipBlank()
	} else {
		p.skipSpace()
	}
}

// boundary 关键字后面必须是空白或输入结尾
func (p *parser) boundary(off int) bool {
	if off >= len(p.src) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(p.src[off:])
	return unicode.IsSpace(r)
}

// --- 终结符 ---

func (p *parser) literal(kw string, inline bool) bool {
	start := p.pos
	p.skip(inline)
	if strings.HasPrefix(p.src[p.pos:], kw) && p.boundary(p.pos+len(kw)) {
		p.pos += len(kw)
		return true
	}
	p.fail(kw)
	p.pos = start
	return false
}

func (p *parser) oneOf(set []string, label string, inline bool) (string, bool) {
	start := p.pos
	p.skip(inline)
	for _, kw := range set {
		if strings.HasPrefix(p.src[p.pos:], kw) && p.boundary(p.pos+len(kw)) {
			p.pos += len(kw)
			return kw, true
		}
	}
	p.fail(label)
	p.pos = start
	return "", false
}

// quoted 单引号或双引号包围的字符串，不能跨行。
// 字符串在同一行最后一个未转义的同种引号处结束，所以 "The "Best" Of" 是一个整体。
// 与外层引号相同的 \" 或 \' 不会结束字符串。
func (p *parser) quoted(inline bool) (*Node, bool) {
	start := p.pos
	p.skip(inline)
	at := p.pos
	if at < len(p.src) && (p.src[at] == '"' || p.src[at] == '\'') {
		q := p.src[at]
		end := -1
	scan:
		for i := at + 1; i < len(p.src); i++ {
			switch p.src[i] {
			case '\\':
				if i+1 < len(p.src) && p.src[i+1] == q {
					i++
				}
			case '\n':
				break scan
			case q:
				end = i
			}
		}
		if end > 0 {
			p.pos = end + 1
			return &Node{Kind: KindQuoted, Value: p.src[at : end+1], Pos: p.position(at)}, true
		}
	}
	p.fail("quoted string")
	p.pos = start
	return nil, false
}

func (p *parser) word(inline bool) (*Node, bool) {
	start := p.pos
	p.skip(inline)
	at := p.pos
	for p.pos < len(p.src) {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if unicode.IsSpace(r) {
			break
		}
		p.pos += size
	}
	if p.pos == at {
		p.fail("word")
		p.pos = start
		return nil, false
	}
	return &Node{Kind: KindWord, Value: p.src[at:p.pos], Pos: p.position(at)}, true
}

func (p *parser) text(inline bool) (*Node, bool) {
	if n, ok := p.quoted(inline); ok {
		return n, true
	}
	return p.word(inline)
}

// textsToEOL 读取当前行剩余的所有 text
func (p *parser) textsToEOL() []*Node {
	var out []*Node
	for {
		n, ok := p.text(true)
		if !ok {
			return out
		}
		out = append(out, n)
	}
}

// number 1-3 位数字。skipWS 为 false 时用于 time 内部，不允许前导空白。
func (p *parser) number(skipWS bool) (*Node, bool) {
	start := p.pos
	if skipWS {
		p.skipSpace()
	}
	at := p.pos
	for p.pos < len(p.src) && p.pos-at < 3 && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == at {
		p.fail("number")
		p.pos = start
		return nil, false
	}
	return &Node{Kind: KindNumber, Value: p.src[at:p.pos], Pos: p.position(at)}, true
}

// time mm:ss:ff，中间没有空白
func (p *parser) time() (*Node, bool) {
	start := p.pos
	p.skipSpace()
	at := p.pos
	node := &Node{Kind: KindTime, Pos: p.position(at)}
	for i := 0; i < 3; i++ {
		if i > 0 {
			if p.pos >= len(p.src) || p.src[p.pos] != ':' {
				p.fail(`":"`)
				p.pos = start
				return nil, false
			}
			p.pos++
		}
		n, ok := p.number(false)
		if !ok {
			p.pos = start
			return nil, false
		}
		node.Children = append(node.Children, n)
	}
	node.Value = p.src[at:p.pos]
	return node, true
}

// --- 语句 ---

func (p *parser) cdtext() (*Node, bool) {
	start := p.pos
	kw, ok := p.oneOf(cdtextKeywords, "CD-TEXT keyword", false)
	if !ok {
		return nil, false
	}
	node := &Node{Kind: KindCDText, Value: kw, Pos: p.position(p.pos - len(kw))}
	value, ok := p.text(false)
	if !ok {
		p.pos = start
		return nil, false
	}
	node.Children = []*Node{value}
	return node, true
}

// rem 是 REM [keyword] text...，text 读到行尾。
// 没有关键字 (或关键字后面没有内容) 时按 COMMENT 处理，Value 留空。
func (p *parser) rem() (*Node, bool) {
	start := p.pos
	if !p.literal("REM", false) {
		return nil, false
	}
	pos := p.position(p.pos - len("REM"))
	afterREM := p.pos
	if kw, ok := p.oneOf(remKeywords, "REM keyword", true); ok {
		if values := p.textsToEOL(); len(values) > 0 {
			return &Node{Kind: KindRem, Value: kw, Pos: pos, Children: values}, true
		}
		p.pos = afterREM
	}
	values := p.textsToEOL()
	if len(values) == 0 {
		p.pos = start
		return nil, false
	}
	return &Node{Kind: KindRem, Pos: pos, Children: values}, true
}

func (p *parser) cdtextFile() (*Node, bool) {
	start := p.pos
	if !p.literal("CDTEXTFILE", false) {
		return nil, false
	}
	pos := p.position(p.pos - len("CDTEXTFILE"))
	path, ok := p.text(false)
	if !ok {
		p.pos = start
		return nil, false
	}
	return &Node{Kind: KindCDTextFile, Pos: pos, Children: []*Node{path}}, true
}

func (p *parser) trackIndex() (*Node, bool) {
	start := p.pos
	if !p.literal("INDEX", false) {
		return nil, false
	}
	pos := p.position(p.pos - len("INDEX"))
	num, ok := p.number(true)
	if !ok {
		p.pos = start
		return nil, false
	}
	t, ok := p.time()
	if !ok {
		p.pos = start
		return nil, false
	}
	return &Node{Kind: KindIndex, Pos: pos, Children: []*Node{num, t}}, true
}

func (p *parser) flags() (*Node, bool) {
	start := p.pos
	if !p.literal("FLAGS", false) {
		return nil, false
	}
	node := &Node{Kind: KindFlags, Pos: p.position(p.pos - len("FLAGS"))}
	for {
		w, ok := p.word(true)
		if !ok {
			break
		}
		node.Children = append(node.Children, w)
	}
	if len(node.Children) == 0 {
		p.pos = start
		return nil, false
	}
	return node, true
}

// gap 是 PREGAP / POSTGAP time
func (p *parser) gap(kw string, kind Kind) (*Node, bool) {
	start := p.pos
	if !p.literal(kw, false) {
		return nil, false
	}
	pos := p.position(p.pos - len(kw))
	t, ok := p.time()
	if !ok {
		p.pos = start
		return nil, false
	}
	return &Node{Kind: kind, Pos: pos, Children: []*Node{t}}, true
}

func (p *parser) trackISRC() (*Node, bool) {
	start := p.pos
	if !p.literal("TRACK_ISRC", false) {
		return nil, false
	}
	pos := p.position(p.pos - len("TRACK_ISRC"))
	w, ok := p.word(false)
	if !ok {
		p.pos = start
		return nil, false
	}
	return &Node{Kind: KindTrackISRC, Pos: pos, Children: []*Node{w}}, true
}

func (p *parser) trackStatement() (*Node, bool) {
	if n, ok := p.cdtext(); ok {
		return n, true
	}
	if n, ok := p.rem(); ok {
		return n, true
	}
	if n, ok := p.trackIndex(); ok {
		return n, true
	}
	if n, ok := p.flags(); ok {
		return n, true
	}
	if n, ok := p.gap("POSTGAP", KindPostgap); ok {
		return n, true
	}
	if n, ok := p.gap("PREGAP", KindPregap); ok {
		return n, true
	}
	return p.trackISRC()
}

// track 的前两个子节点固定为轨道号和轨道类型，之后至少有一条轨道语句
func (p *parser) track() (*Node, bool) {
	start := p.pos
	if !p.literal("TRACK", false) {
		return nil, false
	}
	node := &Node{Kind: KindTrack, Pos: p.position(p.pos - len("TRACK"))}
	num, ok := p.number(true)
	if !ok {
		p.pos = start
		return nil, false
	}
	typ, ok := p.word(false)
	if !ok {
		p.pos = start
		return nil, false
	}
	node.Children = append(node.Children, num, typ)
	for {
		st, ok := p.trackStatement()
		if !ok {
			break
		}
		node.Children = append(node.Children, st)
	}
	if len(node.Children) == 2 {
		p.pos = start
		return nil, false
	}
	return node, true
}

// file 的前两个子节点固定为路径和文件类型，之后至少有一个 track
func (p *parser) file() (*Node, bool) {
	start := p.pos
	if !p.literal("FILE", false) {
		return nil, false
	}
	node := &Node{Kind: KindFile, Pos: p.position(p.pos - len("FILE"))}
	path, ok := p.text(false)
	if !ok {
		p.pos = start
		return nil, false
	}
	typ, ok := p.word(false)
	if !ok {
		p.pos = start
		return nil, false
	}
	node.Children = append(node.Children, path, typ)
	for {
		tr, ok := p.track()
		if !ok {
			break
		}
		node.Children = append(node.Children, tr)
	}
	if len(node.Children) == 2 {
		p.pos = start
		return nil, false
	}
	return node, true
}

func (p *parser) global() (*Node, bool) {
	if n, ok := p.cdtext(); ok {
		return n, true
	}
	if n, ok := p.rem(); ok {
		return n, true
	}
	return p.cdtextFile()
}

func (p *parser) cueFile() (*Node, bool) {
	root := &Node{Kind: KindCueFile, Pos: Position{Line: 1, Column: 1}}
	for {
		g, ok := p.global()
		if !ok {
			break
		}
		root.Children = append(root.Children, g)
	}
	files := 0
	for {
		f, ok := p.file()
		if !ok {
			break
		}
		root.Children = append(root.Children, f)
		files++
	}
	if files == 0 {
		return nil, false
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		p.fail("end of input")
		return nil, false
	}
	return root, true
}
