package inspect

import (
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"truthbyte/logging"
)

var logger = logging.GetLogger("inspect")

const (
	DefaultBlockSize       = 4 * 1024 * 1024
	DefaultQuickProbeSteps = 100

	mib = 1024 * 1024

	// MaxLimitMB is the largest limit whose byte count fits in a uint64.
	MaxLimitMB uint64 = math.MaxUint64 / mib
)

// Config tunes an Inspector. The yaml tags match the CLI configuration file.
type Config struct {
	BlockSize         int  `yaml:"block_size"`
	QuickProbeEnabled bool `yaml:"quick_probe_enabled"`
	QuickProbeSteps   int  `yaml:"quick_probe_steps"`

	// Opener defaults to DirectOpener when nil.
	Opener Opener `yaml:"-"`
}

// DefaultConfig returns 4 MiB blocks with a 100-step quick probe enabled.
func DefaultConfig() Config {
	return Config{
		BlockSize:         DefaultBlockSize,
		QuickProbeEnabled: true,
		QuickProbeSteps:   DefaultQuickProbeSteps,
	}
}

// Inspector runs diagnosis phases against one target path. It holds no
// per-run state, so one Inspector can run any number of phases in turn.
type Inspector struct {
	path   string
	config Config
}

// New returns an Inspector for path using DefaultConfig.
func New(path string) *Inspector {
	return NewWithConfig(path, DefaultConfig())
}

// NewWithConfig returns an Inspector for path. The block size is validated
// when a phase starts, not here.
func NewWithConfig(path string, config Config) *Inspector {
	if config.Opener == nil {
		config.Opener = DirectOpener{}
	}
	return &Inspector{path: path, config: config}
}

func (i *Inspector) Path() string {
	return i.path
}

func (i *Inspector) Config() Config {
	return i.config
}

// QuickProbeEnabled reports whether callers should probe before a full scan.
func (i *Inspector) QuickProbeEnabled() bool {
	return i.config.QuickProbeEnabled
}

func (i *Inspector) QuickProbeSteps() int {
	return i.config.QuickProbeSteps
}

// checkTarget fails before any I/O when the target cannot be created.
func (i *Inspector) checkTarget() error {
	parent := filepath.Dir(i.path)
	st, err := os.Stat(parent)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(os.ErrNotExist, "parent directory %s does not exist", parent)
		}
		return errors.Wrapf(err, "stat %s", parent)
	}
	if !st.IsDir() {
		return errors.Wrapf(os.ErrNotExist, "parent %s is not a directory", parent)
	}
	if st, err := os.Stat(i.path); err == nil && st.IsDir() {
		return errors.Errorf("target %s is a directory", i.path)
	}
	return nil
}

// LimitBytes converts a MiB limit to bytes. Limits past MaxLimitMB fail with
// ErrInvalidConfig.
func LimitBytes(limitMB uint64) (uint64, error) {
	if limitMB > MaxLimitMB {
		return 0, configErrorf("limit of %d MB exceeds the maximum of %d MB", limitMB, MaxLimitMB)
	}
	return limitMB * mib, nil
}

// limitBytes is LimitBytes plus the aligned byte count.
func limitBytes(limitMB uint64) (aligned, raw uint64, err error) {
	raw, err = LimitBytes(limitMB)
	if err != nil {
		return 0, 0, err
	}
	return AlignDown(raw, Alignment), raw, nil
}
