package inspect

import "github.com/pkg/errors"

var (
	// ErrInterrupted marks a phase stopped on request. It is not a fault:
	// callers should show a cancellation notice instead of an error.
	ErrInterrupted = errors.New("interrupted")

	// ErrInvalidConfig is wrapped by every configuration failure (zero block
	// size, misaligned totals, too few probe anchors, bad buffer alignment).
	ErrInvalidConfig = errors.New("invalid configuration")
)

func configErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidConfig, format, args...)
}
