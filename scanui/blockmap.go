package scanui

import "strings"

const (
	glyphVerified = '█'
	glyphWritten  = '▓'
	glyphPending  = '░'
	glyphFailed   = 'X'
)

// Legend explains the block map glyphs.
const Legend = "Legend:  █ verified   ▓ written   ░ pending   X error | Q to stop"

// BlockMap tracks how far the write and verify passes have reached over a
// span and renders it as rows of glyphs, one cell per slice of the span.
// Writes and reads run front to back, so two watermarks describe the whole
// span; failed offsets are kept separately.
type BlockMap struct {
	total    uint64
	written  uint64
	verified uint64
	failed   []uint64
}

// NewBlockMap returns a map over total bytes. A zero total renders nothing
// until SetTotal is called.
func NewBlockMap(total uint64) *BlockMap {
	return &BlockMap{total: total}
}

func (m *BlockMap) SetTotal(total uint64) {
	m.total = total
}

func (m *BlockMap) Total() uint64 {
	return m.total
}

// MarkWritten moves the write watermark forward to n bytes.
func (m *BlockMap) MarkWritten(n uint64) {
	m.written = max(m.written, n)
}

// MarkVerified moves the verify watermark forward to n bytes.
func (m *BlockMap) MarkVerified(n uint64) {
	m.verified = max(m.verified, n)
}

// MarkFailed flags the cell holding offset.
func (m *BlockMap) MarkFailed(offset uint64) {
	m.failed = append(m.failed, offset)
}

// Render lays the span out over at most width*rows cells. The last cell
// absorbs any remainder.
func (m *BlockMap) Render(width, rows int) []string {
	if m.total == 0 || width <= 0 || rows <= 0 {
		return nil
	}
	cells := uint64(width * rows)
	per := max(m.total/cells, 1)
	cells = min(cells, (m.total+per-1)/per)

	bad := make(map[uint64]bool, len(m.failed))
	for _, off := range m.failed {
		bad[min(off/per, cells-1)] = true
	}

	lines := make([]string, 0, rows)
	var b strings.Builder
	for c := uint64(0); c < cells; c++ {
		end := min((c+1)*per, m.total)
		if c == cells-1 {
			end = m.total
		}
		switch {
		case bad[c]:
			b.WriteRune(glyphFailed)
		case m.verified >= end:
			b.WriteRune(glyphVerified)
		case m.written >= end:
			b.WriteRune(glyphWritten)
		default:
			b.WriteRune(glyphPending)
		}
		if (c+1)%uint64(width) == 0 {
			lines = append(lines, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		lines = append(lines, b.String())
	}
	return lines
}
