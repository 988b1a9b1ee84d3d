// Package inspect is the storage diagnosis engine.
//
// An Inspector writes a deterministic byte stream across a target (a block
// device or an image file), reads it back, and classifies what it finds:
// healthy media, random physical corruption, data loss from unreadable
// blocks, or fake capacity where the device wraps high logical addresses
// onto cells it already used.
//
// The stream is keyed only by absolute byte offset, so nothing about what was
// written is kept anywhere but on the target itself. All I/O goes through
// uncached handles and block-aligned buffers so that timings and read results
// reflect the medium and not the OS page cache.
//
// Every phase is a synchronous loop. Callers that need to stay responsive run
// a phase on their own goroutine, pass a CancelToken they flip to stop it,
// and receive progress through an EventSink.
package inspect
