package inspect

const (
	goldenGamma = 0x9E3779B97F4A7C15
	mixMul1     = 0xBF58476D1CE4E5B9
	mixMul2     = 0x94D049BB133111EB
)

// avalanche is the splitmix64 finalizer: two xor-shift-multiply rounds and a
// closing xor-shift.
func avalanche(z uint64) uint64 {
	z = (z ^ (z >> 30)) * mixMul1
	z = (z ^ (z >> 27)) * mixMul2
	return z ^ (z >> 31)
}

// Seed derives the generator seed for a block starting at offset. It is never
// zero.
func Seed(offset uint64) uint64 {
	s := avalanche(offset + goldenGamma)
	if s == 0 {
		s = goldenGamma
	}
	return s
}

// stream is a counter-based generator: the n-th byte depends only on the
// seed and n.
type stream struct {
	state uint64
}

func newStream(offset uint64) stream {
	return stream{state: Seed(offset)}
}

func (s *stream) next() byte {
	s.state += goldenGamma
	return byte(avalanche(s.state))
}

// Fill writes the stream for offset into buf.
func Fill(offset uint64, buf []byte) {
	s := newStream(offset)
	for i := range buf {
		buf[i] = s.next()
	}
}

// Check regenerates the stream for offset and compares it with buf. It
// returns the index of the first differing byte and false, or -1 and true
// when buf holds exactly what Fill would have written.
func Check(offset uint64, buf []byte) (int, bool) {
	s := newStream(offset)
	for i, actual := range buf {
		if actual != s.next() {
			return i, false
		}
	}
	return -1, true
}
