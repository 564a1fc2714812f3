package coalesce

// Config holds the tuning knobs spec.md 6 lists, with the same defaults.
// It round-trips through YAML so a driver (see cmd/spillcoalesce) can load
// per-shader or per-target overrides instead of recompiling.
type Config struct {
	// WindowSize is the number of instructions scanned before an open
	// coalescing window is forcibly closed.
	WindowSize int `yaml:"windowSize"`
	// SpillFillCleanupWindow is S4's backward look-back distance.
	SpillFillCleanupWindow int `yaml:"spillFillCleanupWindow"`
	// FillWindowPressureThreshold and SpillWindowPressureThreshold are the
	// register-pressure values above which the corresponding window
	// narrows to NarrowWindowSize.
	FillWindowPressureThreshold  uint32 `yaml:"fillWindowPressureThreshold"`
	SpillWindowPressureThreshold uint32 `yaml:"spillWindowPressureThreshold"`
	// NarrowWindowSize is the reduced window used under register pressure.
	NarrowWindowSize int `yaml:"narrowWindowSize"`
}

// DefaultConfig returns the knob defaults from spec.md 6's tuning table.
func DefaultConfig() Config {
	return Config{
		WindowSize:                   10,
		SpillFillCleanupWindow:       10,
		FillWindowPressureThreshold:  64,
		SpillWindowPressureThreshold: 64,
		NarrowWindowSize:             3,
	}
}
