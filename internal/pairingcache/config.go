package pairingcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/zmlAEQ/blscache/internal/bls381"
	"go.uber.org/multierr"
)

var ErrInvalidConfig = errors.New("pairingcache: invalid config")

// EnvCapacity overrides Config.Capacity when set.
const EnvCapacity = "BLSCACHE_CAPACITY"

// Config describes a cache deployment. Zero fields take defaults.
type Config struct {
	Capacity  int       `json:"capacity,omitempty"`
	Threshold *float64  `json:"threshold,omitempty"`
	Heuristic Heuristic `json:"heuristic,omitempty"`
	// Shards > 1 selects a Sharded cache.
	Shards int `json:"shards,omitempty"`
}

// Verifier is what FromConfig builds: a Cache or a Sharded.
type Verifier interface {
	AggregateVerify(pks, msgs [][]byte, sig *bls381.Signature, forceCache bool) (bool, error)
	Len() int
	Stats() Stats
}

var (
	_ Verifier = (*Cache)(nil)
	_ Verifier = (*Sharded)(nil)
)

func defaultConfig(c Config) Config {
	if c.Capacity == 0 {
		c.Capacity = DefaultCapacity
	}
	if c.Threshold == nil {
		t := DefaultThreshold
		c.Threshold = &t
	}
	if c.Heuristic == "" {
		c.Heuristic = CountMisses
	}
	if c.Shards == 0 {
		c.Shards = 1
	}
	return c
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var err error
	if c.Capacity <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: capacity %d", ErrInvalidConfig, c.Capacity))
	}
	if c.Threshold != nil && (*c.Threshold < 0 || *c.Threshold > 1) {
		err = multierr.Append(err, fmt.Errorf("%w: threshold %v outside [0,1]", ErrInvalidConfig, *c.Threshold))
	}
	if c.Heuristic != "" && !c.Heuristic.valid() {
		err = multierr.Append(err, fmt.Errorf("%w: unknown heuristic %q", ErrInvalidConfig, c.Heuristic))
	}
	if c.Shards < 0 || c.Shards > 256 {
		err = multierr.Append(err, fmt.Errorf("%w: shard count %d outside [1,256]", ErrInvalidConfig, c.Shards))
	}
	if c.Shards > c.Capacity && c.Capacity > 0 {
		err = multierr.Append(err, fmt.Errorf("%w: %d shards exceed capacity %d", ErrInvalidConfig, c.Shards, c.Capacity))
	}
	return err
}

// LoadConfig reads a JSON config from path, applies the environment
// override, fills defaults and validates.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	return Resolve(cfg)
}

// Resolve applies the environment override and defaults to cfg, then
// validates it.
func Resolve(cfg Config) (Config, error) {
	if v := os.Getenv(EnvCapacity); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvCapacity, v)
		}
		cfg.Capacity = n
	}
	cfg = defaultConfig(cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) options() []Option {
	c = defaultConfig(c)
	return []Option{WithThreshold(*c.Threshold), WithHeuristic(c.Heuristic)}
}

// FromConfig builds a Cache, or a Sharded when cfg.Shards > 1.
func FromConfig(cfg Config) (Verifier, error) {
	cfg = defaultConfig(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Shards > 1 {
		return NewSharded(cfg.Shards, cfg.Capacity, cfg.options()...)
	}
	return New(cfg.Capacity, cfg.options()...)
}
