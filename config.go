package pingpong

import (
	"fmt"
	"strings"
	"time"
)

// Default configuration values, matching the reference demo: two
// RGBA records advanced once per second and wrapped at ten.
const (
	DefaultVectorLength             = 8
	DefaultPeriod                   = time.Second
	DefaultNormalizationMax float32 = 10
	DefaultModulus          float32 = 10
)

// ComponentsPerRecord is the number of scalars in one RGBA-shaped record.
// One compute invocation and one texel handle one record.
const ComponentsPerRecord = 4

// Backend selects which Device implementation OpenDevice uses.
type Backend int

const (
	// BackendAuto uses the registered GPU device and falls back to the
	// software device when no GPU is available.
	BackendAuto Backend = iota
	// BackendGPU requires the registered GPU device.
	BackendGPU
	// BackendSoftware runs the protocol in host memory.
	BackendSoftware
)

// String returns the backend name.
func (b Backend) String() string {
	switch b {
	case BackendAuto:
		return "auto"
	case BackendGPU:
		return "gpu"
	case BackendSoftware:
		return "software"
	default:
		return fmt.Sprintf("Backend(%d)", int(b))
	}
}

// ParseBackend parses a backend name as accepted on the command line.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return BackendAuto, nil
	case "gpu":
		return BackendGPU, nil
	case "software", "cpu":
		return BackendSoftware, nil
	default:
		return BackendAuto, fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, s)
	}
}

// Config holds the startup constants of the counter.
type Config struct {
	// VectorLength is the number of scalars in the state vector.
	// Must be a positive multiple of ComponentsPerRecord.
	VectorLength int

	// Period is the interval between scheduled ticks.
	Period time.Duration

	// NormalizationMax is the value mapped to full red by the present pass.
	NormalizationMax float32

	// Modulus is the wraparound bound of the update v' = (v + 1) mod Modulus.
	Modulus float32

	// Backend selects the device implementation.
	Backend Backend

	// Initial is the starting vector. Nil means 0, 1, ..., VectorLength-1.
	Initial Vector
}

// Option configures a Config.
//
// Example:
//
//	cfg, err := pingpong.NewConfig(
//	    pingpong.WithVectorLength(16),
//	    pingpong.WithPeriod(250*time.Millisecond),
//	)
type Option func(*Config)

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		VectorLength:     DefaultVectorLength,
		Period:           DefaultPeriod,
		NormalizationMax: DefaultNormalizationMax,
		Modulus:          DefaultModulus,
		Backend:          BackendAuto,
	}
}

// NewConfig applies opts over DefaultConfig and validates the result.
func NewConfig(opts ...Option) (Config, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WithVectorLength sets the number of scalars in the state vector.
func WithVectorLength(n int) Option {
	return func(c *Config) {
		c.VectorLength = n
	}
}

// WithPeriod sets the tick period.
func WithPeriod(d time.Duration) Option {
	return func(c *Config) {
		c.Period = d
	}
}

// WithNormalizationMax sets the value mapped to full red.
func WithNormalizationMax(v float32) Option {
	return func(c *Config) {
		c.NormalizationMax = v
	}
}

// WithModulus sets the wraparound bound.
func WithModulus(v float32) Option {
	return func(c *Config) {
		c.Modulus = v
	}
}

// WithBackend selects the device implementation.
func WithBackend(b Backend) Option {
	return func(c *Config) {
		c.Backend = b
	}
}

// WithInitial sets the starting vector. The vector length is taken from v.
func WithInitial(v Vector) Option {
	return func(c *Config) {
		c.Initial = v.Clone()
		c.VectorLength = len(v)
	}
}

// Validate reports whether the configuration can be used to open a device.
func (c Config) Validate() error {
	if c.VectorLength <= 0 || c.VectorLength%ComponentsPerRecord != 0 {
		return fmt.Errorf("%w: vector length %d is not a positive multiple of %d",
			ErrInvalidConfig, c.VectorLength, ComponentsPerRecord)
	}
	if c.Period <= 0 {
		return fmt.Errorf("%w: period must be positive, got %v", ErrInvalidConfig, c.Period)
	}
	if !(c.NormalizationMax > 0) {
		return fmt.Errorf("%w: normalization max must be positive, got %v", ErrInvalidConfig, c.NormalizationMax)
	}
	if !(c.Modulus > 0) {
		return fmt.Errorf("%w: modulus must be positive, got %v", ErrInvalidConfig, c.Modulus)
	}
	if c.Backend < BackendAuto || c.Backend > BackendSoftware {
		return fmt.Errorf("%w: unknown backend %v", ErrInvalidConfig, c.Backend)
	}
	if c.Initial != nil && len(c.Initial) != c.VectorLength {
		return fmt.Errorf("%w: initial vector has %d values, want %d",
			ErrInvalidConfig, len(c.Initial), c.VectorLength)
	}
	initial := c.InitialVector()
	if i, ok := initial.InRange(c.Modulus); !ok {
		return fmt.Errorf("%w: initial value %v at %d outside [0, %v)",
			ErrInvalidConfig, initial[i], i, c.Modulus)
	}
	return nil
}

// Records returns the number of RGBA records, which is also the compute
// invocation count and the state texture width.
func (c Config) Records() int {
	return c.VectorLength / ComponentsPerRecord
}

// InitialVector returns a fresh copy of the starting vector. Without an
// explicit Initial it is 0, 1, 2, ... wrapped at Modulus.
func (c Config) InitialVector() Vector {
	if c.Initial != nil {
		return c.Initial.Clone()
	}
	return SequentialMod(c.VectorLength, c.Modulus)
}
