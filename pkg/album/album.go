package album

import (
	"github.com/yleoer/cuesplit/pkg/cue"
)

// Album 代表一个包含 CUE 的目录
type Album struct {
	Path     string // 专辑目录
	RelDir   string // 相对于扫描根目录的路径，输出时保留目录层级
	Artist   string
	Title    string
	Year     string
	CoverArt string  // 封面图片路径
	Discs    []*Disc // 每个 CUE 对应一张光盘
	Resplit  bool    // CUE 修改后重新切割，允许覆盖这张专辑之前的输出
}

// Disc 代表一个 CUE 以及它指向的整轨音频
type Disc struct {
	DiscNumber int
	CuePath    string
	AudioPath  string
	Checksum   string // CUE 文件内容的 sha256，用于判断是否处理过
	Sheet      *cue.Sheet
	Segments   []cue.Segment
}

// TrackCount 返回所有光盘的轨道总数
func (a *Album) TrackCount() int {
	n := 0
	for _, d := range a.Discs {
		n += len(d.Segments)
	}
	return n
}
