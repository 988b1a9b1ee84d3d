package inspect

// Alignment is the transfer granularity required by uncached I/O for offsets,
// lengths and buffer addresses.
const Alignment = 4096

// AlignUp rounds v up to a multiple of alignment. A zero alignment leaves v
// unchanged.
func AlignUp(v, alignment uint64) uint64 {
	if alignment == 0 {
		return v
	}
	return (v + alignment - 1) / alignment * alignment
}

// AlignDown rounds v down to a multiple of alignment.
func AlignDown(v, alignment uint64) uint64 {
	if alignment == 0 {
		return v
	}
	return v / alignment * alignment
}

// ResolveBlockSize validates a configured block size and rounds it up to
// Alignment.
func ResolveBlockSize(configured int) (int, error) {
	if configured <= 0 {
		return 0, configErrorf("block size must be greater than zero, got %d", configured)
	}
	return int(AlignUp(uint64(configured), Alignment)), nil
}
