package pingpong

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvVectorLength = "COUNTER_VECTOR_LENGTH"
	EnvPeriod       = "COUNTER_PERIOD"
	EnvNormMax      = "COUNTER_NORM_MAX"
	EnvModulus      = "COUNTER_MODULUS"
	EnvBackend      = "COUNTER_BACKEND"
	EnvInitial      = "COUNTER_INITIAL"
)

// LoadEnvFile loads variables from the given .env files into the process
// environment. Variables already set are not overridden. Missing files
// are ignored; with no arguments ".env" is tried.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("pingpong: load %s: %w", p, err)
		}
		Logger().Debug("pingpong: env file loaded", "path", p)
	}
	return nil
}

// ConfigFromEnv returns DefaultConfig overlaid with the COUNTER_*
// environment variables, then opts, and validates the result.
func ConfigFromEnv(opts ...Option) (Config, error) {
	return configFromLookup(os.LookupEnv, opts...)
}

func configFromLookup(lookup func(string) (string, bool), opts ...Option) (Config, error) {
	var envOpts []Option

	if s, ok := lookup(EnvVectorLength); ok {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return Config{}, envError(EnvVectorLength, s, err)
		}
		envOpts = append(envOpts, WithVectorLength(n))
	}
	if s, ok := lookup(EnvPeriod); ok {
		d, err := time.ParseDuration(strings.TrimSpace(s))
		if err != nil {
			return Config{}, envError(EnvPeriod, s, err)
		}
		envOpts = append(envOpts, WithPeriod(d))
	}
	if s, ok := lookup(EnvNormMax); ok {
		f, err := parseFloat32(s)
		if err != nil {
			return Config{}, envError(EnvNormMax, s, err)
		}
		envOpts = append(envOpts, WithNormalizationMax(f))
	}
	if s, ok := lookup(EnvModulus); ok {
		f, err := parseFloat32(s)
		if err != nil {
			return Config{}, envError(EnvModulus, s, err)
		}
		envOpts = append(envOpts, WithModulus(f))
	}
	if s, ok := lookup(EnvBackend); ok {
		b, err := ParseBackend(s)
		if err != nil {
			return Config{}, err
		}
		envOpts = append(envOpts, WithBackend(b))
	}
	if s, ok := lookup(EnvInitial); ok {
		v, err := ParseVector(s)
		if err != nil {
			return Config{}, envError(EnvInitial, s, err)
		}
		envOpts = append(envOpts, WithInitial(v))
	}

	return NewConfig(append(envOpts, opts...)...)
}

// ParseVector parses a comma-separated list of floats, such as "0,1,2,3".
func ParseVector(s string) (Vector, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty vector")
	}
	parts := strings.Split(s, ",")
	v := make(Vector, len(parts))
	for i, p := range parts {
		f, err := parseFloat32(p)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", i, err)
		}
		v[i] = f
	}
	return v, nil
}

func parseFloat32(s string) (float32, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil {
		return 0, err
	}
	return float32(f), nil
}

func envError(name, value string, err error) error {
	return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, name, value, err)
}
